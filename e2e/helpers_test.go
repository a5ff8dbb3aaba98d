package e2e_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cfiguera/authd"
	"github.com/cfiguera/authd/filesystem"
	authdhttp "github.com/cfiguera/authd/http"
	"github.com/cfiguera/authd/metadata"
)

const testSecret = "e2e-test-secret"

// avatarSources is a fake gravatar/initials pair the avatar service falls
// back to when no image was uploaded.
type avatarSources struct {
	gravatar *httptest.Server
	initials *httptest.Server

	gravatarHit bool
}

func newAvatarSources(t *testing.T) *avatarSources {
	t.Helper()

	s := &avatarSources{}
	s.gravatar = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if !s.gravatarHit {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("gravatar-image"))
	}))
	s.initials = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("initials-image"))
	}))

	t.Cleanup(func() {
		s.gravatar.Close()
		s.initials.Close()
	})
	return s
}

// stack is a fully wired server instance over local storage.
type stack struct {
	server    *httptest.Server
	avatars   *authd.AvatarService
	validator *authd.TokenValidator
	meta      metadata.Repo
	dataDir   string
	sources   *avatarSources
}

// newStack wires storage, metadata, avatar resolution, and the HTTP gate the
// same way cmd/authd serve does, but in-process against a test listener.
func newStack(t *testing.T, meta metadata.Repo) *stack {
	t.Helper()
	ctx := context.Background()

	dataDir := t.TempDir()
	root, err := os.OpenRoot(dataDir)
	require.NoError(t, err, "open storage root")
	t.Cleanup(func() { _ = root.Close() })

	if meta == nil {
		repo, closeDB, connErr := metadata.Connect(ctx, metadata.Config{
			Type:  "sqlite",
			DSN:   filepath.Join(t.TempDir(), "authd.db"),
			Table: "authd_objects",
		})
		require.NoError(t, connErr, "connect metadata")
		t.Cleanup(closeDB)
		meta = repo
	}

	storage := filesystem.New(root, meta, "/files")

	sources := newAvatarSources(t)
	avatars := authd.NewAvatarService(storage, authd.AvatarConfig{
		GravatarURL:  sources.gravatar.URL + "/avatar/%s",
		InitialsURL:  sources.initials.URL + "/api/?name=%s",
		FetchTimeout: 2 * time.Second,
	})

	validator, err := authd.NewTokenValidator(authd.TokenConfig{Secret: testSecret})
	require.NoError(t, err, "new token validator")

	handler := authdhttp.NewHandler(&authdhttp.HandlerConfig{Validator: validator}, avatars)
	server := httptest.NewServer(handler.Router())
	t.Cleanup(server.Close)

	return &stack{
		server:    server,
		avatars:   avatars,
		validator: validator,
		meta:      meta,
		dataDir:   dataDir,
		sources:   sources,
	}
}

func (s *stack) mintToken(t *testing.T, subject string, perms ...string) string {
	t.Helper()
	raw, err := s.validator.Mint(subject, perms)
	require.NoError(t, err, "mint token")
	return raw
}
