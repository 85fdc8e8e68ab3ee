package storage

import (
	"context"
	"io"
	"time"
)

// PutOptions describes upload options for object storage.
type PutOptions struct {
	ContentType string
}

// CopySource describes a source object for server-side composition.
type CopySource struct {
	Bucket string
	Object string
}

// CopyDest describes a destination object for server-side composition.
type CopyDest struct {
	Bucket string
	Object string
}

// Store abstracts object storage operations. The accounting engine only ever
// presigns, stats and removes; direct Put/Compose are used by the fetch
// worker and tests. Reads go through presigned URLs, never the server.
type Store interface {
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts PutOptions) error
	StatObject(ctx context.Context, bucket, object string) (ObjectInfo, bool, error)
	RemoveObject(ctx context.Context, bucket, object string) error
	PresignedPutObject(ctx context.Context, bucket, object string, expiry time.Duration) (string, error)
	PresignedGetObject(ctx context.Context, bucket, object string, expiry time.Duration) (string, error)
	PresignedGetObjectWithResponse(ctx context.Context, bucket, object string, expiry time.Duration, params map[string]string) (string, error)
	ComposeObject(ctx context.Context, dest CopyDest, sources ...CopySource) error
}

// Default is the main object store instance.
var Default Store
