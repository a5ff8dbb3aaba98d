package authd

import (
	"bytes"
	"io"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Principal is the authenticated identity attached to a request after
// successful token validation. It is produced only by TokenValidator, lives
// for a single request, and is never persisted.
type Principal struct {
	Subject     string
	Permissions []string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// HasPermission reports whether the principal carries the given permission.
func (p *Principal) HasPermission(perm string) bool {
	if p == nil {
		return false
	}
	return slices.Contains(p.Permissions, perm)
}

// User is the slice of a user record the avatar layer needs. The full record
// lives outside this module.
type User struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	Avatar string    `json:"avatar,omitempty"`
}

// Upload is the capability interface shared by real multipart uploads and
// synthetic in-memory images built from fetched bytes. Both flow through the
// same storage-write contract.
type Upload interface {
	// OriginalName returns the client-supplied file name.
	OriginalName() string
	// ContentType returns the declared MIME type.
	ContentType() string
	// Size returns the content length in bytes, or 0 when unknown.
	Size() int64
	// Open returns a reader over the content. The caller closes it.
	Open() (io.ReadCloser, error)
}

// BytesUpload is an in-memory Upload. The auto-avatar path uses it to feed
// fetched image bytes through the regular save routine.
type BytesUpload struct {
	Name string
	Type string
	Data []byte
}

func (b BytesUpload) OriginalName() string { return b.Name }
func (b BytesUpload) ContentType() string  { return b.Type }
func (b BytesUpload) Size() int64          { return int64(len(b.Data)) }

func (b BytesUpload) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.Data)), nil
}

// PutObject describes a blob being written to storage. OwnerID and
// OriginalName travel with the object as backend metadata: S3 user metadata
// on the remote backend, a metadata repo row on the local one.
type PutObject struct {
	Path         string
	ContentType  string
	Size         int64
	OwnerID      string
	OriginalName string
}

// SaveResult describes a completed storage write.
type SaveResult struct {
	BytesWritten int64
	Etag         string
}
