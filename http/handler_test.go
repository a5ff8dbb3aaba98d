package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/cfiguera/authd"
	authdhttp "github.com/cfiguera/authd/http"
)

type SpyAvatarResolver struct {
	mock.Mock
}

func (s *SpyAvatarResolver) Save(ctx context.Context, user authd.User, upload authd.Upload) string {
	args := s.Called(ctx, user, upload)
	return args.String(0)
}

func (s *SpyAvatarResolver) Load(ctx context.Context, name string) (io.ReadCloser, error) {
	args := s.Called(ctx, name)
	if rc := args.Get(0); rc != nil {
		return rc.(io.ReadCloser), args.Error(1)
	}
	return nil, args.Error(1)
}

func (s *SpyAvatarResolver) URLFor(reference string) string {
	args := s.Called(reference)
	return args.String(0)
}

func newTestRouter(t *testing.T, avatars authdhttp.AvatarResolver) (http.Handler, *authd.TokenValidator) {
	t.Helper()
	validator := newTestValidator(t)
	handler := authdhttp.NewHandler(&authdhttp.HandlerConfig{Validator: validator}, avatars)
	return handler.Router(), validator
}

func TestHandleGetFile(t *testing.T) {
	t.Run("serves jpg as image/jpeg", func(t *testing.T) {
		avatars := new(SpyAvatarResolver)
		avatars.On("Load", mock.Anything, "42/avatar.jpg").
			Return(io.NopCloser(strings.NewReader("jpeg-bytes")), nil)

		router, _ := newTestRouter(t, avatars)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files/42/avatar.jpg", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
		assert.Equal(t, "jpeg-bytes", w.Body.String())
	})

	t.Run("serves png as image/png", func(t *testing.T) {
		avatars := new(SpyAvatarResolver)
		avatars.On("Load", mock.Anything, "42/auto-avatar.png").
			Return(io.NopCloser(strings.NewReader("png-bytes")), nil)

		router, _ := newTestRouter(t, avatars)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files/42/auto-avatar.png", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	})

	t.Run("strips avatars prefix from storage urls", func(t *testing.T) {
		avatars := new(SpyAvatarResolver)
		avatars.On("Load", mock.Anything, "default.jpg").
			Return(io.NopCloser(strings.NewReader("x")), nil)

		router, _ := newTestRouter(t, avatars)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files/avatars/default.jpg", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		avatars.AssertExpectations(t)
	})

	t.Run("missing avatar answers json 404", func(t *testing.T) {
		avatars := new(SpyAvatarResolver)
		avatars.On("Load", mock.Anything, "nope.jpg").Return(nil, authd.ErrNotFound)

		router, _ := newTestRouter(t, avatars)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files/nope.jpg", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var body authdhttp.ErrorResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "not_found", body.Error)
	})

	t.Run("no token required", func(t *testing.T) {
		avatars := new(SpyAvatarResolver)
		avatars.On("Load", mock.Anything, "a.jpg").
			Return(io.NopCloser(strings.NewReader("x")), nil)

		router, _ := newTestRouter(t, avatars)
		w := httptest.NewRecorder()
		// no Authorization header at all
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files/a.jpg", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("traversal attempt answers 404", func(t *testing.T) {
		avatars := new(SpyAvatarResolver)
		router, _ := newTestRouter(t, avatars)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/files/..%2Fsecrets", nil)
		router.ServeHTTP(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
		avatars.AssertNotCalled(t, "Load")
	})
}

func TestHandlePutAvatar(t *testing.T) {
	userID := uuid.MustParse("b4e8c6a2-1f3d-4c5e-9a7b-8d2e6f1a3c5b")

	putAvatar := func(t *testing.T, router http.Handler, token, id string, body io.Reader, contentType string) *httptest.ResponseRecorder {
		t.Helper()
		r := httptest.NewRequest(http.MethodPut, "/users/"+id+"/avatar", body)
		if token != "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
		if contentType != "" {
			r.Header.Set("Content-Type", contentType)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)
		return w
	}

	t.Run("subject updates own avatar", func(t *testing.T) {
		avatars := new(SpyAvatarResolver)
		router, validator := newTestRouter(t, avatars)

		want := userID.String() + "/avatar.jpg"
		avatars.On("Save", mock.Anything, authd.User{ID: userID}, mock.MatchedBy(func(u authd.Upload) bool {
			return u.ContentType() == "image/jpeg"
		})).Return(want)
		avatars.On("URLFor", want).Return("/files/avatars/" + want)

		token := mintToken(t, validator, userID.String())
		w := putAvatar(t, router, token, userID.String(), strings.NewReader("jpeg-bytes"), "image/jpeg")

		assert.Equal(t, http.StatusOK, w.Code)

		var resp authdhttp.AvatarResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, want, resp.Avatar)
		assert.Equal(t, "/files/avatars/"+want, resp.URL)
		avatars.AssertExpectations(t)
	})

	t.Run("admin updates another user's avatar", func(t *testing.T) {
		avatars := new(SpyAvatarResolver)
		router, validator := newTestRouter(t, avatars)

		avatars.On("Save", mock.Anything, authd.User{ID: userID}, mock.Anything).Return(authd.DefaultAvatar)
		avatars.On("URLFor", authd.DefaultAvatar).Return("/files/avatars/default.jpg")

		token := mintToken(t, validator, uuid.NewString(), authdhttp.AdminPermission)
		w := putAvatar(t, router, token, userID.String(), strings.NewReader("x"), "image/png")

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("other subject is forbidden", func(t *testing.T) {
		avatars := new(SpyAvatarResolver)
		router, validator := newTestRouter(t, avatars)

		token := mintToken(t, validator, uuid.NewString())
		w := putAvatar(t, router, token, userID.String(), strings.NewReader("x"), "image/png")

		assert.Equal(t, http.StatusForbidden, w.Code)
		avatars.AssertNotCalled(t, "Save")
	})

	t.Run("no token is unauthorized", func(t *testing.T) {
		avatars := new(SpyAvatarResolver)
		router, _ := newTestRouter(t, avatars)

		w := putAvatar(t, router, "", userID.String(), strings.NewReader("x"), "image/png")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		avatars.AssertNotCalled(t, "Save")
	})

	t.Run("invalid user id is bad request", func(t *testing.T) {
		avatars := new(SpyAvatarResolver)
		router, validator := newTestRouter(t, avatars)

		token := mintToken(t, validator, "user-42")
		w := putAvatar(t, router, token, "not-a-uuid", strings.NewReader("x"), "image/png")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unsupported type still answers 200 with default", func(t *testing.T) {
		avatars := new(SpyAvatarResolver)
		router, validator := newTestRouter(t, avatars)

		avatars.On("Save", mock.Anything, authd.User{ID: userID}, mock.Anything).Return(authd.DefaultAvatar)
		avatars.On("URLFor", authd.DefaultAvatar).Return("/files/avatars/default.jpg")

		token := mintToken(t, validator, userID.String())
		w := putAvatar(t, router, token, userID.String(), strings.NewReader("gif-bytes"), "image/gif")

		assert.Equal(t, http.StatusOK, w.Code)

		var resp authdhttp.AvatarResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, authd.DefaultAvatar, resp.Avatar)
	})

	t.Run("multipart upload carries original name", func(t *testing.T) {
		avatars := new(SpyAvatarResolver)
		router, validator := newTestRouter(t, avatars)

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreatePart(map[string][]string{
			"Content-Disposition": {`form-data; name="avatar"; filename="selfie.jpg"`},
			"Content-Type":        {"image/jpeg"},
		})
		assert.NoError(t, err)
		_, err = part.Write([]byte("jpeg-bytes"))
		assert.NoError(t, err)
		assert.NoError(t, mw.Close())

		want := userID.String() + "/avatar.jpg"
		avatars.On("Save", mock.Anything, authd.User{ID: userID}, mock.MatchedBy(func(u authd.Upload) bool {
			return u.OriginalName() == "selfie.jpg" && u.ContentType() == "image/jpeg"
		})).Return(want)
		avatars.On("URLFor", want).Return("/files/avatars/" + want)

		token := mintToken(t, validator, userID.String())
		w := putAvatar(t, router, token, userID.String(), &buf, mw.FormDataContentType())

		assert.Equal(t, http.StatusOK, w.Code)
		avatars.AssertExpectations(t)
	})
}
