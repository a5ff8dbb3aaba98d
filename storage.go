package authd

import (
	"context"
	"io"
)

// FileStorage is the capability interface over blob storage. Exactly one
// implementation is selected at startup by configuration: the local
// filesystem backend or the remote S3 bucket backend. They are never mixed
// at runtime.
//
// Keys use "/" natively on both backends; no path-separator escaping is
// applied. Implementations must be safe for concurrent use after
// construction.
type FileStorage interface {
	// Save streams content under obj.Path, attaching content type and the
	// owner/original-name metadata. The write must be atomic from the
	// caller's perspective: a concurrent Open of the same path sees either
	// the old or the full new content. Failures wrap ErrStorageWrite; no
	// retries are attempted and partial remote writes are not cleaned up.
	Save(ctx context.Context, obj PutObject, content io.Reader) (SaveResult, error)

	// Open returns a byte stream for the object at path, or ErrNotFound.
	// The caller is responsible for closing the returned reader.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// URLFor returns a publicly dereferenceable URL for path. It is pure
	// string construction and performs no I/O. The local backend returns an
	// internal serving path since it has no public URL of its own.
	URLFor(path string) string
}
