package http

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/cfiguera/authd"
)

// AvatarResolver is the slice of authd.AvatarService the handlers need.
type AvatarResolver interface {
	Save(ctx context.Context, user authd.User, upload authd.Upload) string
	Load(ctx context.Context, name string) (io.ReadCloser, error)
	URLFor(reference string) string
}

// AdminPermission lets a principal manage avatars of other subjects.
const AdminPermission = "admin"

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type HandlerConfig struct {
	Routes        *authd.RouteTable
	Validator     *authd.TokenValidator
	CORS          CORSConfig
	MaxUploadSize int64
}

// Handler provides the HTTP handlers for the avatar endpoints.
type Handler struct {
	config  HandlerConfig
	avatars AvatarResolver
}

// NewHandler creates a Handler with the given configuration and resolver.
func NewHandler(config *HandlerConfig, avatars AvatarResolver) *Handler {
	cfg := *config
	if cfg.Routes == nil {
		cfg.Routes = authd.DefaultRouteTable()
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = 8 << 20 // 8 MiB
	}
	return &Handler{config: cfg, avatars: avatars}
}

// AvatarResponse is the body returned after an avatar upload.
type AvatarResponse struct {
	Avatar string `json:"avatar"`
	URL    string `json:"url"`
}

// Router returns an http.Handler with the gate middleware and avatar routes
// configured.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Use(Gate(h.config.Routes, h.config.Validator))

	r.Get("/files/*", h.handleGetFile)
	r.With(RequireAuth).Put("/users/{id}/avatar", h.handlePutAvatar)

	return r
}

func (h *Handler) handleGetFile(w http.ResponseWriter, r *http.Request) {
	// Accept both the bare reference name and the full storage path the
	// backends produce in URLs ("avatars/<name>").
	name := strings.TrimPrefix(chi.URLParam(r, "*"), "avatars/")

	if !authd.IsValidPath(name) {
		WriteError(w, http.StatusNotFound, "not_found", "Avatar not found: "+name)
		return
	}

	content, err := h.avatars.Load(r.Context(), name)
	if err != nil {
		if errors.Is(err, authd.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "Avatar not found: "+name)
		} else {
			HandleError(w, err)
		}
		return
	}
	defer func() { _ = content.Close() }()

	w.Header().Set("Content-Type", contentTypeFor(name))
	_, _ = io.Copy(w, content)
}

func (h *Handler) handlePutAvatar(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid user id")
		return
	}

	if principal.Subject != userID.String() && !principal.HasPermission(AdminPermission) {
		WriteError(w, http.StatusForbidden, "forbidden", "Cannot modify another user's avatar")
		return
	}

	upload, err := uploadFromRequest(r, h.config.MaxUploadSize)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid upload")
		return
	}

	// Best-effort contract: an unsupported type or a storage failure still
	// answers 200 with the default asset.
	name := h.avatars.Save(r.Context(), authd.User{ID: userID}, upload)

	_ = WriteJSON(w, http.StatusOK, AvatarResponse{
		Avatar: name,
		URL:    h.avatars.URLFor(name),
	})
}

// uploadFromRequest builds an Upload from either a multipart "avatar" field
// or a raw request body with a Content-Type header.
func uploadFromRequest(r *http.Request, maxSize int64) (authd.Upload, error) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, header, err := r.FormFile("avatar")
		if err != nil {
			return nil, err
		}
		_ = file.Close()
		return &multipartUpload{header: header}, nil
	}

	data, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxSize))
	if err != nil {
		return nil, err
	}

	return authd.BytesUpload{Name: "avatar", Type: contentType, Data: data}, nil
}

// multipartUpload adapts a multipart file header to the Upload interface.
type multipartUpload struct {
	header *multipart.FileHeader
}

func (u *multipartUpload) OriginalName() string { return u.header.Filename }
func (u *multipartUpload) ContentType() string  { return u.header.Header.Get("Content-Type") }
func (u *multipartUpload) Size() int64          { return u.header.Size }

func (u *multipartUpload) Open() (io.ReadCloser, error) {
	return u.header.Open()
}

// contentTypeFor maps a served file name to its response content type:
// image/jpeg for names ending in jpg, image/png otherwise.
func contentTypeFor(name string) string {
	if strings.HasSuffix(name, "jpg") {
		return "image/jpeg"
	}
	return "image/png"
}
