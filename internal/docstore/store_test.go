package docstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFetchLocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "statement.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}

	data, err := Fetch(context.Background(), path)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != "%PDF-1.4" {
		t.Errorf("Fetch returned %q", data)
	}
}

func TestDownloadLocalFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "report.csv")
	if err := os.WriteFile(src, []byte("Number,End-Customer\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(dir, "downloaded.csv")
	if err := Download(context.Background(), src, dest); err != nil {
		t.Fatalf("Download: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "Number,End-Customer\n" {
		t.Errorf("Download wrote %q", data)
	}
}

func TestFetchMissingFile(t *testing.T) {
	_, err := Fetch(context.Background(), filepath.Join(t.TempDir(), "absent.pdf"))
	if err == nil {
		t.Fatal("Fetch of a missing file returned nil error")
	}
}

func TestSplitURI(t *testing.T) {
	tests := []struct {
		name       string
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{name: "simple", uri: "gs://statements/acme.pdf", wantBucket: "statements", wantObject: "acme.pdf"},
		{name: "nested object", uri: "gs://statements/2024/08/acme.pdf", wantBucket: "statements", wantObject: "2024/08/acme.pdf"},
		// Degenerate URIs are rejected rather than guessed at
		{name: "no object", uri: "gs://statements", wantErr: true},
		{name: "empty object", uri: "gs://statements/", wantErr: true},
		{name: "no bucket", uri: "gs:///acme.pdf", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, object, err := splitURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("splitURI(%q) error = %v, wantErr %v", tt.uri, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if bucket != tt.wantBucket || object != tt.wantObject {
				t.Errorf("splitURI(%q) = %q, %q, want %q, %q", tt.uri, bucket, object, tt.wantBucket, tt.wantObject)
			}
		})
	}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{uri: "gs://statements/2024/acme.pdf", want: "acme.pdf"},
		{uri: "/tmp/statements/acme.pdf", want: "acme.pdf"},
		{uri: "acme.pdf", want: "acme.pdf"},
	}

	for _, tt := range tests {
		if got := Filename(tt.uri); got != tt.want {
			t.Errorf("Filename(%q) = %q, want %q", tt.uri, got, tt.want)
		}
	}
}
