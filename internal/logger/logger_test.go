package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	log := New()
	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected logger to be enabled")
	}
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Msg("test message")

	output := buf.String()
	if output == "" {
		t.Error("Expected log output, got empty string")
	}
	if !strings.Contains(output, "test message") {
		t.Errorf("Expected output to contain 'test message', got: %s", output)
	}
}

func TestEnvLevel(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  zerolog.Level
	}{
		// Unset variable falls back to info
		{name: "unset", value: "", want: zerolog.InfoLevel},
		// Standard level names parse
		{name: "debug", value: "debug", want: zerolog.DebugLevel},
		{name: "warn", value: "warn", want: zerolog.WarnLevel},
		// Mixed case is accepted
		{name: "mixed case", value: "ERROR", want: zerolog.ErrorLevel},
		// Garbage falls back to info instead of failing startup
		{name: "garbage", value: "verbose", want: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(levelEnvVar, tt.value)
			if got := envLevel(); got != tt.want {
				t.Errorf("envLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithContext(t *testing.T) {
	log := New()
	ctx := context.Background()

	ctxWithLogger := WithContext(ctx, log)

	if ctxWithLogger.Value(LoggerKey) == nil {
		t.Error("Expected logger in context, got nil")
	}
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	testLog := NewWithWriter(buf)
	ctx := WithContext(context.Background(), testLog)

	retrievedLog := FromContext(ctx)
	retrievedLog.Info().Msg("test")

	if buf.Len() == 0 {
		t.Error("Expected log output from retrieved logger")
	}
}

func TestFromContext_DefaultLogger(t *testing.T) {
	ctx := context.Background()

	// Should return a default logger when none is in context
	log := FromContext(ctx)

	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected default logger to be enabled")
	}
}

func TestWithComponent(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	tagged := WithComponent(log, "driver")
	tagged.Info().Msg("test message")

	output := buf.String()
	if !strings.Contains(output, "component") || !strings.Contains(output, "driver") {
		t.Errorf("Expected output to carry the component field, got: %s", output)
	}
}
