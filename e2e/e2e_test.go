package e2e_test

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cfiguera/authd"
	"github.com/cfiguera/authd/client"
)

func TestAvatarUploadAndServe(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, nil)
	userID := uuid.New()

	c, err := client.New(&client.Config{
		Endpoint: s.server.URL,
		Token:    s.mintToken(t, userID.String()),
	})
	require.NoError(t, err)

	imagePath := filepath.Join(t.TempDir(), "selfie.jpg")
	require.NoError(t, os.WriteFile(imagePath, []byte("jpeg-bytes"), 0o600))

	// Upload through the client, straight through the gate and the handler.
	result, err := c.UploadAvatar(ctx, userID.String(), imagePath)
	require.NoError(t, err)
	assert.Equal(t, userID.String()+"/avatar.jpg", result.Avatar)
	assert.Equal(t, "/files/avatars/"+userID.String()+"/avatar.jpg", result.URL)

	// The blob landed under the storage root.
	data, err := os.ReadFile(filepath.Join(s.dataDir, "avatars", userID.String(), "avatar.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	// Metadata was recorded with owner and original name.
	record, err := s.meta.Get(ctx, "avatars/"+userID.String()+"/avatar.jpg")
	require.NoError(t, err)
	assert.Equal(t, userID.String(), record.OwnerID)
	assert.Equal(t, "selfie.jpg", record.OriginalName)
	assert.Equal(t, "image/jpeg", record.ContentType)

	// Fetch it back through the public endpoint, no token.
	anon, err := client.New(&client.Config{Endpoint: s.server.URL})
	require.NoError(t, err)

	fetched, rc, err := anon.FetchAvatar(ctx, result.Avatar, "-")
	require.NoError(t, err)
	defer func() { _ = rc.Close() }()
	assert.Equal(t, "image/jpeg", fetched.ContentType)

	// The URL the server returned resolves too.
	resp, err := http.Get(s.server.URL + result.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
}

func TestAvatarAuthorization(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, nil)
	userID := uuid.New()

	imagePath := filepath.Join(t.TempDir(), "a.png")
	require.NoError(t, os.WriteFile(imagePath, []byte("png-bytes"), 0o600))

	t.Run("no token", func(t *testing.T) {
		c, err := client.New(&client.Config{Endpoint: s.server.URL, Token: "not.a.token"})
		require.NoError(t, err)

		_, err = c.UploadAvatar(ctx, userID.String(), imagePath)
		assert.ErrorIs(t, err, client.ErrUnauthorized)
	})

	t.Run("other subject", func(t *testing.T) {
		c, err := client.New(&client.Config{
			Endpoint: s.server.URL,
			Token:    s.mintToken(t, uuid.NewString()),
		})
		require.NoError(t, err)

		_, err = c.UploadAvatar(ctx, userID.String(), imagePath)
		assert.ErrorIs(t, err, client.ErrForbidden)
	})

	t.Run("admin", func(t *testing.T) {
		c, err := client.New(&client.Config{
			Endpoint: s.server.URL,
			Token:    s.mintToken(t, uuid.NewString(), "admin"),
		})
		require.NoError(t, err)

		result, err := c.UploadAvatar(ctx, userID.String(), imagePath)
		require.NoError(t, err)
		assert.Equal(t, userID.String()+"/avatar.png", result.Avatar)
	})
}

func TestAvatarUnsupportedTypeFallsBack(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, nil)
	userID := uuid.New()

	c, err := client.New(&client.Config{
		Endpoint: s.server.URL,
		Token:    s.mintToken(t, userID.String()),
	})
	require.NoError(t, err)

	gifPath := filepath.Join(t.TempDir(), "anim.gif")
	require.NoError(t, os.WriteFile(gifPath, []byte("gif-bytes"), 0o600))

	result, err := c.UploadAvatar(ctx, userID.String(), gifPath)
	require.NoError(t, err, "unsupported uploads still answer 200")
	assert.Equal(t, authd.DefaultAvatar, result.Avatar)

	// Nothing was stored for the user.
	_, statErr := os.Stat(filepath.Join(s.dataDir, "avatars", userID.String()))
	assert.True(t, os.IsNotExist(statErr))
}

func TestAutoAvatarFallbackChain(t *testing.T) {
	ctx := context.Background()

	user := authd.User{ID: uuid.New(), Name: "Jane Doe", Email: "jane@example.com"}

	t.Run("gravatar hit", func(t *testing.T) {
		s := newStack(t, nil)
		s.sources.gravatarHit = true

		name := s.avatars.GenerateAuto(ctx, user)
		assert.Equal(t, user.ID.String()+"/auto-avatar.png", name)

		data, err := os.ReadFile(filepath.Join(s.dataDir, "avatars", user.ID.String(), "auto-avatar.png"))
		require.NoError(t, err)
		assert.Equal(t, "gravatar-image", string(data))
	})

	t.Run("initials fallback", func(t *testing.T) {
		s := newStack(t, nil)

		name := s.avatars.GenerateAuto(ctx, user)
		assert.Equal(t, user.ID.String()+"/auto-avatar.png", name)

		data, err := os.ReadFile(filepath.Join(s.dataDir, "avatars", user.ID.String(), "auto-avatar.png"))
		require.NoError(t, err)
		assert.Equal(t, "initials-image", string(data))
	})

	t.Run("generated avatar is served", func(t *testing.T) {
		s := newStack(t, nil)
		name := s.avatars.GenerateAuto(ctx, user)

		resp, err := http.Get(s.server.URL + "/files/" + name)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	})
}

func TestMissingAvatarIs404(t *testing.T) {
	s := newStack(t, nil)

	resp, err := http.Get(s.server.URL + "/files/nope.jpg")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}
