package authd

import (
	"context"
	"crypto/md5" //nolint:gosec // gravatar addressing requires an md5 digest
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// avatarFolder is the storage namespace for all avatar blobs.
	avatarFolder = "avatars"

	// DefaultAvatar is the well-known default asset name. It must always be
	// resolvable under the avatar namespace.
	DefaultAvatar = "default.jpg"

	defaultGravatarURL  = "https://www.gravatar.com/avatar/%s?d=404"
	defaultInitialsURL  = "https://ui-avatars.com/api/?name=%s&format=png"
	defaultFetchTimeout = 5 * time.Second
)

// AvatarConfig holds configuration for AvatarService. Zero values fall back
// to the gravatar and ui-avatars public endpoints with a 5s fetch timeout.
type AvatarConfig struct {
	// GravatarURL is a printf template receiving the md5 hex digest of the
	// user's email. It must answer non-200 when no image exists.
	GravatarURL string
	// InitialsURL is a printf template receiving the "+"-joined display name.
	InitialsURL string
	// FetchTimeout bounds each external image fetch. Exceeding it counts as
	// a miss, not an error.
	FetchTimeout time.Duration
}

// AvatarService resolves user avatars on top of a FileStorage backend. Saving
// is best-effort: any failure degrades to the default asset instead of
// surfacing into the surrounding account flow.
type AvatarService struct {
	storage     FileStorage
	client      *http.Client
	gravatarURL string
	initialsURL string
}

// NewAvatarService creates an AvatarService over the given storage backend.
func NewAvatarService(storage FileStorage, cfg AvatarConfig) *AvatarService {
	if cfg.GravatarURL == "" {
		cfg.GravatarURL = defaultGravatarURL
	}
	if cfg.InitialsURL == "" {
		cfg.InitialsURL = defaultInitialsURL
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}

	return &AvatarService{
		storage:     storage,
		client:      &http.Client{Timeout: cfg.FetchTimeout},
		gravatarURL: cfg.GravatarURL,
		initialsURL: cfg.InitialsURL,
	}
}

// Save validates and stores an uploaded avatar and returns its reference
// name. It never returns an error: unsupported media types and storage
// failures are absorbed and the default asset name is returned, so a broken
// avatar upload cannot block account creation or profile updates.
func (s *AvatarService) Save(ctx context.Context, user User, upload Upload) string {
	name, err := s.save(ctx, user, upload)
	if err != nil {
		slog.Error("saving avatar failed, using default", "user", user.ID, "err", err)
		return DefaultAvatar
	}
	return name
}

func (s *AvatarService) save(ctx context.Context, user User, upload Upload) (string, error) {
	ext, ok := ExtensionFor(upload.ContentType())
	if !ok {
		return "", fmt.Errorf("%w: %s (accepted: %s)",
			ErrUnsupportedMedia, upload.ContentType(), strings.Join(AcceptedExtensions(), ", "))
	}

	name := fmt.Sprintf("%s/avatar.%s", user.ID, ext)

	content, err := upload.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer func() { _ = content.Close() }()

	obj := PutObject{
		Path:         avatarFolder + "/" + name,
		ContentType:  upload.ContentType(),
		Size:         upload.Size(),
		OwnerID:      user.ID.String(),
		OriginalName: upload.OriginalName(),
	}

	if _, err := s.storage.Save(ctx, obj, content); err != nil {
		return "", fmt.Errorf("store avatar: %w", err)
	}

	return name, nil
}

// GenerateAuto builds a fallback avatar for a user without an uploaded image.
// It tries a gravatar lookup keyed by the email digest, then an initials
// image service, and stores the first hit at <userID>/auto-avatar.png through
// the regular save routine. When both fetches miss or fail it returns the
// default asset name and stores nothing. Like Save, it never errors.
func (s *AvatarService) GenerateAuto(ctx context.Context, user User) string {
	data := s.fetch(ctx, s.gravatarLink(user.Email))
	if data == nil {
		data = s.fetch(ctx, s.initialsLink(user.Name))
	}
	if data == nil {
		return DefaultAvatar
	}

	name := fmt.Sprintf("%s/auto-avatar.png", user.ID)
	upload := BytesUpload{Name: "avatar.png", Type: "image/png", Data: data}

	obj := PutObject{
		Path:         avatarFolder + "/" + name,
		ContentType:  upload.ContentType(),
		Size:         upload.Size(),
		OwnerID:      user.ID.String(),
		OriginalName: upload.OriginalName(),
	}

	content, _ := upload.Open()
	defer func() { _ = content.Close() }()

	if _, err := s.storage.Save(ctx, obj, content); err != nil {
		slog.Error("storing auto avatar failed, using default", "user", user.ID, "err", err)
		return DefaultAvatar
	}

	return name
}

// Load returns the byte stream of a stored avatar by its reference name.
// Absence surfaces as ErrNotFound; the avatar endpoint turns that into a 404.
func (s *AvatarService) Load(ctx context.Context, name string) (io.ReadCloser, error) {
	if !IsValidPath(name) {
		return nil, fmt.Errorf("load avatar %q: %w", name, ErrNotFound)
	}

	content, err := s.storage.Open(ctx, avatarFolder+"/"+name)
	if err != nil {
		return nil, fmt.Errorf("load avatar %q: %w", name, err)
	}

	return content, nil
}

// URLFor resolves an avatar reference to a public URL. An empty reference or
// the default marker resolves to the fixed default asset. URLFor is total:
// it always returns a non-empty URL and never fails.
func (s *AvatarService) URLFor(reference string) string {
	if strings.TrimSpace(reference) == "" || reference == DefaultAvatar {
		return s.storage.URLFor(avatarFolder + "/" + DefaultAvatar)
	}
	return s.storage.URLFor(avatarFolder + "/" + reference)
}

func (s *AvatarService) gravatarLink(email string) string {
	digest := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email)))) //nolint:gosec // not used for security
	return fmt.Sprintf(s.gravatarURL, hex.EncodeToString(digest[:]))
}

func (s *AvatarService) initialsLink(name string) string {
	return fmt.Sprintf(s.initialsURL, strings.ReplaceAll(name, " ", "+"))
}

// fetch downloads an image, treating any non-200 response, timeout, or
// connection error as a miss. A miss is nil, not an error; the fallback
// chain moves on to its next source.
func (s *AvatarService) fetch(ctx context.Context, url string) []byte {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		slog.Debug("building avatar fetch request failed", "url", url, "err", err)
		return nil
	}

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Debug("avatar fetch failed", "url", url, "err", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Debug("reading avatar response failed", "url", url, "err", err)
		return nil
	}

	return data
}
