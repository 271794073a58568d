// Package docstore moves statement documents between local disk and
// Cloud Storage. Pipeline code addresses documents by URI: a gs:// URI
// reads from the bucket, anything else is a local path.
package docstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"github.com/avlasov/pdfrecon/internal/logger"
)

// uploadTimeout bounds a single object upload.
const uploadTimeout = 2 * time.Minute

// Fetch reads the document behind uri.
func Fetch(ctx context.Context, uri string) ([]byte, error) {
	if strings.HasPrefix(uri, "gs://") {
		return fetchFromGCS(ctx, uri)
	}

	data, err := os.ReadFile(uri)
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", uri, err)
	}
	return data, nil
}

func fetchFromGCS(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := splitURI(uri)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	reader, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open gs://%s/%s: %w", bucket, object, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read gs://%s/%s: %w", bucket, object, err)
	}
	return data, nil
}

// Upload copies a local file into the bucket and returns its gs:// URI.
func Upload(ctx context.Context, localPath, bucket, object string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	client, err := storage.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	writer := client.Bucket(bucket).Object(object).NewWriter(ctx)
	if _, err := io.Copy(writer, f); err != nil {
		writer.Close()
		return "", fmt.Errorf("upload %s: %w", localPath, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalize gs://%s/%s: %w", bucket, object, err)
	}

	uri := fmt.Sprintf("gs://%s/%s", bucket, object)
	log := logger.FromContext(ctx)
	log.Info().Str("uri", uri).Msg("uploaded document")
	return uri, nil
}

// Download copies the document behind uri to destPath.
func Download(ctx context.Context, uri, destPath string) error {
	data, err := Fetch(ctx, uri)
	if err != nil {
		return err
	}
	if err := os.WriteFile(destPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", destPath, err)
	}
	return nil
}

// Filename returns the last path element of a URI, used for display
// and for naming uploaded objects.
func Filename(uri string) string {
	return path.Base(strings.TrimSuffix(uri, "/"))
}

// splitURI splits gs://bucket/object into its parts.
func splitURI(uri string) (bucket, object string, err error) {
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed GCS URI %q, want gs://bucket/object", uri)
	}
	return parts[0], parts[1], nil
}
