package docstore

import "context"

// Storage is the document store handlers and pipeline steps depend on.
type Storage interface {
	// Fetch reads the document behind a gs:// URI or local path.
	Fetch(ctx context.Context, uri string) ([]byte, error)
	// Upload copies a local file into a bucket, returning its gs:// URI.
	Upload(ctx context.Context, localPath, bucket, object string) (string, error)
}

// GCS implements Storage on the package functions.
type GCS struct{}

func (GCS) Fetch(ctx context.Context, uri string) ([]byte, error) {
	return Fetch(ctx, uri)
}

func (GCS) Upload(ctx context.Context, localPath, bucket, object string) (string, error) {
	return Upload(ctx, localPath, bucket, object)
}

var _ Storage = GCS{}
