// Package filesystem provides the local storage backend. Writes are atomic
// (temp file plus rename), object metadata lands in a filesystem-adjacent
// metadata repo, and URLs resolve to an internal serving path.
package filesystem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/cfiguera/authd"
	"github.com/cfiguera/authd/metadata"
)

// Store is the local-filesystem FileStorage implementation.
type Store struct {
	root      *os.Root
	meta      metadata.Repo
	urlPrefix string
}

// New creates a Store rooted at root. The root sandboxes all file operations
// and prevents path traversal. meta may be nil to skip metadata recording.
// urlPrefix is the internal serving path prepended by URLFor, "/files" by
// default.
func New(root *os.Root, meta metadata.Repo, urlPrefix string) *Store {
	if urlPrefix == "" {
		urlPrefix = "/files"
	}
	return &Store{root: root, meta: meta, urlPrefix: strings.TrimSuffix(urlPrefix, "/")}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Save atomically writes content under obj.Path using a temp file and
// rename, then records the object's metadata. A concurrent Open of the same
// path sees either the old or the full new content, never a partial write.
func (s *Store) Save(ctx context.Context, obj authd.PutObject, content io.Reader) (authd.SaveResult, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return authd.SaveResult{}, ctxErr
	}

	if !authd.IsValidPath(obj.Path) {
		return authd.SaveResult{}, fmt.Errorf("save %q: %w", obj.Path, authd.ErrInvalidInput)
	}

	tmpFile := tmpFileName()
	t, createErr := s.root.Create(tmpFile)
	if createErr != nil {
		return authd.SaveResult{}, fmt.Errorf("save %q: create temp file: %w: %s", obj.Path, authd.ErrStorageWrite, createErr)
	}

	success := false
	defer func() {
		if closeErr := t.Close(); closeErr != nil {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if !success {
			if rmErr := s.root.Remove(t.Name()); rmErr != nil {
				slog.Warn("failed to remove tmp file", "err", rmErr)
			}
		}
	}()

	h := sha256.New()
	w := io.MultiWriter(h, t)

	written, err := io.Copy(w, &ctxReader{ctx: ctx, r: content})
	if err != nil {
		return authd.SaveResult{}, fmt.Errorf("save %q: copy contents: %w: %s", obj.Path, authd.ErrStorageWrite, err)
	}

	if err = t.Sync(); err != nil {
		return authd.SaveResult{}, fmt.Errorf("save %q: sync: %w: %s", obj.Path, authd.ErrStorageWrite, err)
	}

	destDir := filepath.Dir(obj.Path)
	if destDir != "." {
		if err := s.root.MkdirAll(destDir, 0o755); err != nil {
			return authd.SaveResult{}, fmt.Errorf("save %q: create directories: %w: %s", obj.Path, authd.ErrStorageWrite, err)
		}
	}

	if renameErr := s.root.Rename(tmpFile, obj.Path); renameErr != nil {
		return authd.SaveResult{}, fmt.Errorf("save %q: rename: %w: %s", obj.Path, authd.ErrStorageWrite, renameErr)
	}
	success = true

	result := authd.SaveResult{
		BytesWritten: written,
		Etag:         hex.EncodeToString(h.Sum(nil)),
	}

	if s.meta != nil {
		entry := metadata.Object{
			Path:         obj.Path,
			ContentType:  obj.ContentType,
			SizeBytes:    written,
			OwnerID:      obj.OwnerID,
			OriginalName: obj.OriginalName,
		}
		if _, _, err := s.meta.Upsert(ctx, entry); err != nil {
			return authd.SaveResult{}, fmt.Errorf("save %q: record metadata: %w: %s", obj.Path, authd.ErrStorageWrite, err)
		}
	}

	return result, nil
}

// Open opens a stored file for reading. Returns authd.ErrNotFound if the
// file does not exist.
func (s *Store) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.root.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, authd.ErrNotFound
		}
		return nil, fmt.Errorf("open %q: %w", path, err)
	}

	return f, nil
}

// URLFor returns the internal serving path for a stored object. The local
// backend has no public URL of its own, so the result is relative to the
// server serving the configured prefix.
func (s *Store) URLFor(path string) string {
	return s.urlPrefix + "/" + strings.TrimPrefix(path, "/")
}

func tmpFileName() string {
	return fmt.Sprintf(".t%s", uuid.New().String())
}
