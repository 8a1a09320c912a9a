package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/sagarc03/cybervault"
	vaulthttp "github.com/sagarc03/cybervault/http"
	"github.com/sagarc03/cybervault/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

type part struct {
	name, contentType, body string
}

func multipartRequest(t *testing.T, parts ...part) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		var w io.Writer
		var err error
		if p.contentType == "" {
			w, err = mw.CreateFormFile("file", p.name)
		} else {
			h := make(map[string][]string)
			h["Content-Disposition"] = []string{`form-data; name="file"; filename="` + p.name + `"`}
			h["Content-Type"] = []string{p.contentType}
			w, err = mw.CreatePart(h)
		}
		require.NoError(t, err)
		_, err = io.WriteString(w, p.body)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return authorized(req)
}

func namedFile(name string) any {
	return mock.MatchedBy(func(f cybervault.LocalFile) bool { return f.Name == name })
}

func TestHandler_SignUp(t *testing.T) {
	t.Run("creates a session", func(t *testing.T) {
		router, auth, _ := newTestRouter(t, vaulthttp.HandlerConfig{})
		auth.On("SignUp", mock.Anything, "neo@example.com", "thereisnospoon").Return(testSession(), nil)

		rec := serve(router, jsonRequest(http.MethodPost, "/auth/signup", `{"email":"neo@example.com","password":"thereisnospoon"}`))

		assert.Equal(t, http.StatusCreated, rec.Code)
		var got cybervault.Session
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Equal(t, testToken, got.AccessToken)
		assert.Equal(t, testOwner, got.Identity)
	})

	t.Run("collaborator message is kept", func(t *testing.T) {
		router, auth, _ := newTestRouter(t, vaulthttp.HandlerConfig{})
		auth.On("SignUp", mock.Anything, "neo@example.com", "x").Return(nil, identity.ErrWeakPassword)

		rec := serve(router, jsonRequest(http.MethodPost, "/auth/signup", `{"email":"neo@example.com","password":"x"}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "password should be at least 6 characters", decodeError(t, rec.Body).Message)
	})

	t.Run("existing user", func(t *testing.T) {
		router, auth, _ := newTestRouter(t, vaulthttp.HandlerConfig{})
		auth.On("SignUp", mock.Anything, "neo@example.com", "thereisnospoon").Return(nil, identity.ErrUserExists)

		rec := serve(router, jsonRequest(http.MethodPost, "/auth/signup", `{"email":"neo@example.com","password":"thereisnospoon"}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "user_exists", decodeError(t, rec.Body).Error)
	})

	t.Run("missing fields never reach the authenticator", func(t *testing.T) {
		router, _, _ := newTestRouter(t, vaulthttp.HandlerConfig{})

		rec := serve(router, jsonRequest(http.MethodPost, "/auth/signup", `{"email":"neo@example.com"}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = serve(router, jsonRequest(http.MethodPost, "/auth/signup", `email=neo`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_SignIn(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		router, auth, _ := newTestRouter(t, vaulthttp.HandlerConfig{})
		auth.On("SignIn", mock.Anything, "neo@example.com", "thereisnospoon").Return(testSession(), nil)

		rec := serve(router, jsonRequest(http.MethodPost, "/auth/signin", `{"email":"neo@example.com","password":"thereisnospoon"}`))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"access_token":"`+testToken+`"`)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		router, auth, _ := newTestRouter(t, vaulthttp.HandlerConfig{})
		auth.On("SignIn", mock.Anything, "neo@example.com", "wrong").Return(nil, identity.ErrInvalidCredentials)

		rec := serve(router, jsonRequest(http.MethodPost, "/auth/signin", `{"email":"neo@example.com","password":"wrong"}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeError(t, rec.Body)
		assert.Equal(t, "invalid_credentials", body.Error)
		assert.Equal(t, "invalid login credentials", body.Message)
	})
}

func TestHandler_SignOut(t *testing.T) {
	router, auth, _ := newTestRouter(t, vaulthttp.HandlerConfig{})
	auth.On("Revoke", mock.Anything, testToken).Return(nil)

	rec := serve(router, authorized(httptest.NewRequest(http.MethodPost, "/auth/signout", nil)))

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHandler_Session(t *testing.T) {
	router, _, _ := newTestRouter(t, vaulthttp.HandlerConfig{})

	rec := serve(router, authorized(httptest.NewRequest(http.MethodGet, "/auth/session", nil)))

	assert.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		User cybervault.Identity `json:"user"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, testOwner, got.User)
	assert.NotContains(t, rec.Body.String(), testToken)
}

func TestHandler_List(t *testing.T) {
	t.Run("returns the owner's records", func(t *testing.T) {
		router, _, files := newTestRouter(t, vaulthttp.HandlerConfig{})
		newer, older := record("newer.txt"), record("older.txt")
		files.On("List", mock.Anything, testOwner.ID).Return([]cybervault.FileRecord{newer, older}, nil)

		rec := serve(router, authorized(httptest.NewRequest(http.MethodGet, "/files", nil)))

		assert.Equal(t, http.StatusOK, rec.Code)
		var got struct {
			Files []cybervault.FileRecord `json:"files"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		require.Len(t, got.Files, 2)
		assert.Equal(t, "newer.txt", got.Files[0].Name)
		assert.Equal(t, newer.ID, got.Files[0].ID)
	})

	t.Run("empty list is an array", func(t *testing.T) {
		router, _, files := newTestRouter(t, vaulthttp.HandlerConfig{})
		files.On("List", mock.Anything, testOwner.ID).Return(nil, nil)

		rec := serve(router, authorized(httptest.NewRequest(http.MethodGet, "/files", nil)))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"files":[]}`, rec.Body.String())
	})

	t.Run("store failure", func(t *testing.T) {
		router, _, files := newTestRouter(t, vaulthttp.HandlerConfig{})
		files.On("List", mock.Anything, testOwner.ID).Return(nil, errors.New("connection refused"))

		rec := serve(router, authorized(httptest.NewRequest(http.MethodGet, "/files", nil)))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHandler_Upload(t *testing.T) {
	t.Run("stores each part in order", func(t *testing.T) {
		router, _, files := newTestRouter(t, vaulthttp.HandlerConfig{})
		var order []string
		var contents []string
		capture := func(args mock.Arguments) {
			f := args.Get(2).(cybervault.LocalFile)
			rc, err := f.Open()
			require.NoError(t, err)
			data, err := io.ReadAll(rc)
			require.NoError(t, err)
			_ = rc.Close()
			order = append(order, f.Name)
			contents = append(contents, string(data))
		}
		files.On("Upload", mock.Anything, testOwner, namedFile("a.txt")).Run(capture).Return(record("a.txt"), nil).Once()
		files.On("Upload", mock.Anything, testOwner, namedFile("b.txt")).Run(capture).Return(record("b.txt"), nil).Once()

		rec := serve(router, multipartRequest(t, part{name: "a.txt", body: "alpha"}, part{name: "b.txt", body: "bravo"}))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"a.txt", "b.txt"}, order)
		assert.Equal(t, []string{"alpha", "bravo"}, contents)

		var got struct {
			Results []struct {
				Name   string                 `json:"name"`
				Record *cybervault.FileRecord `json:"record"`
				Error  string                 `json:"error"`
			} `json:"results"`
			Notifications []struct {
				Level   string `json:"level"`
				Message string `json:"message"`
			} `json:"notifications"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		require.Len(t, got.Results, 2)
		require.NotNil(t, got.Results[0].Record)
		assert.Equal(t, "a.txt", got.Results[0].Record.Name)
		require.Len(t, got.Notifications, 2)
		assert.Equal(t, "success", got.Notifications[1].Level)
		assert.Equal(t, "Data transfer complete: b.txt", got.Notifications[1].Message)
	})

	t.Run("generic part types are sniffed", func(t *testing.T) {
		router, _, files := newTestRouter(t, vaulthttp.HandlerConfig{})
		var sniffed, declared string
		files.On("Upload", mock.Anything, testOwner, namedFile("notes.txt")).Run(func(args mock.Arguments) {
			sniffed = args.Get(2).(cybervault.LocalFile).ContentType
		}).Return(record("notes.txt"), nil)
		files.On("Upload", mock.Anything, testOwner, namedFile("page.html")).Run(func(args mock.Arguments) {
			declared = args.Get(2).(cybervault.LocalFile).ContentType
		}).Return(record("page.html"), nil)

		rec := serve(router, multipartRequest(t,
			part{name: "notes.txt", body: "plain words"},
			part{name: "page.html", contentType: "text/html", body: "<p>hi</p>"},
		))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/plain; charset=utf-8", sniffed)
		assert.Equal(t, "text/html", declared)
	})

	t.Run("a failing file does not stop the batch", func(t *testing.T) {
		router, _, files := newTestRouter(t, vaulthttp.HandlerConfig{MaxUploadSize: 8})
		files.On("Upload", mock.Anything, testOwner, namedFile("bad.txt")).Return(cybervault.FileRecord{}, errors.New("pq: connection reset"))
		files.On("Upload", mock.Anything, testOwner, namedFile("ok.txt")).Return(record("ok.txt"), nil)

		rec := serve(router, multipartRequest(t,
			part{name: "big.bin", body: "123456789"},
			part{name: "bad.txt", body: "x"},
			part{name: "ok.txt", body: "y"},
		))

		assert.Equal(t, http.StatusOK, rec.Code)
		var got struct {
			Results []struct {
				Name  string `json:"name"`
				Error string `json:"error"`
			} `json:"results"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		require.Len(t, got.Results, 3)
		assert.Contains(t, got.Results[0].Error, "file too large")
		assert.Equal(t, "upload failed", got.Results[1].Error)
		assert.Empty(t, got.Results[2].Error)
		files.AssertNotCalled(t, "Upload", mock.Anything, testOwner, namedFile("big.bin"))
	})

	t.Run("no file parts", func(t *testing.T) {
		router, _, _ := newTestRouter(t, vaulthttp.HandlerConfig{})

		rec := serve(router, multipartRequest(t))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not multipart", func(t *testing.T) {
		router, _, _ := newTestRouter(t, vaulthttp.HandlerConfig{})

		rec := serve(router, authorized(jsonRequest(http.MethodPost, "/files", `{}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("request over the limit", func(t *testing.T) {
		router, _, _ := newTestRouter(t, vaulthttp.HandlerConfig{MaxRequestSize: 64})

		rec := serve(router, multipartRequest(t, part{name: "a.txt", body: strings.Repeat("a", 256)}))

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Equal(t, "request_too_large", decodeError(t, rec.Body).Error)
	})
}

func TestHandler_Download(t *testing.T) {
	t.Run("streams the file as an attachment", func(t *testing.T) {
		router, _, files := newTestRouter(t, vaulthttp.HandlerConfig{})
		r := record("report.txt")
		files.On("Get", mock.Anything, testOwner.ID, r.ID).Return(r, nil)
		files.On("Open", mock.Anything, r).Return(io.NopCloser(strings.NewReader("report.txt")), nil)

		rec := serve(router, authorized(httptest.NewRequest(http.MethodGet, "/files/"+r.ID.String(), nil)))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "report.txt", rec.Body.String())
		assert.Equal(t, "attachment; filename=report.txt", rec.Header().Get("Content-Disposition"))
		assert.Equal(t, r.MimeType, rec.Header().Get("Content-Type"))
		assert.Equal(t, "10", rec.Header().Get("Content-Length"))
	})

	t.Run("unknown id", func(t *testing.T) {
		router, _, files := newTestRouter(t, vaulthttp.HandlerConfig{})
		id := uuid.New()
		files.On("Get", mock.Anything, testOwner.ID, id).Return(cybervault.FileRecord{}, cybervault.ErrNotFound)

		rec := serve(router, authorized(httptest.NewRequest(http.MethodGet, "/files/"+id.String(), nil)))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		router, _, _ := newTestRouter(t, vaulthttp.HandlerConfig{})

		rec := serve(router, authorized(httptest.NewRequest(http.MethodGet, "/files/not-a-uuid", nil)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_id", decodeError(t, rec.Body).Error)
	})

	t.Run("missing content is a dangling record", func(t *testing.T) {
		router, _, files := newTestRouter(t, vaulthttp.HandlerConfig{})
		r := record("gone.txt")
		files.On("Get", mock.Anything, testOwner.ID, r.ID).Return(r, nil)
		files.On("Open", mock.Anything, r).Return(nil, cybervault.ErrNotFound)

		rec := serve(router, authorized(httptest.NewRequest(http.MethodGet, "/files/"+r.ID.String(), nil)))

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, "dangling_record", decodeError(t, rec.Body).Error)
	})
}

func TestHandler_Delete(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		router, _, files := newTestRouter(t, vaulthttp.HandlerConfig{})
		r := record("old.txt")
		files.On("Get", mock.Anything, testOwner.ID, r.ID).Return(r, nil)
		files.On("Delete", mock.Anything, r).Return(nil)

		rec := serve(router, authorized(httptest.NewRequest(http.MethodDelete, "/files/"+r.ID.String(), nil)))

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("blob removed but record kept", func(t *testing.T) {
		router, _, files := newTestRouter(t, vaulthttp.HandlerConfig{})
		r := record("half.txt")
		files.On("Get", mock.Anything, testOwner.ID, r.ID).Return(r, nil)
		files.On("Delete", mock.Anything, r).Return(cybervault.ErrDanglingRecord)

		rec := serve(router, authorized(httptest.NewRequest(http.MethodDelete, "/files/"+r.ID.String(), nil)))

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, "dangling_record", decodeError(t, rec.Body).Error)
	})

	t.Run("blob failure", func(t *testing.T) {
		router, _, files := newTestRouter(t, vaulthttp.HandlerConfig{})
		r := record("stuck.txt")
		files.On("Get", mock.Anything, testOwner.ID, r.ID).Return(r, nil)
		files.On("Delete", mock.Anything, r).Return(errors.New("storage offline"))

		rec := serve(router, authorized(httptest.NewRequest(http.MethodDelete, "/files/"+r.ID.String(), nil)))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHandler_Health(t *testing.T) {
	t.Run("no pinger", func(t *testing.T) {
		router, _, _ := newTestRouter(t, vaulthttp.HandlerConfig{})

		rec := serve(router, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("store down", func(t *testing.T) {
		router, _, _ := newTestRouter(t, vaulthttp.HandlerConfig{
			Health: pingerFunc(func(context.Context) error { return errors.New("dial tcp: refused") }),
		})

		rec := serve(router, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.NotContains(t, rec.Body.String(), "dial tcp")
	})
}

func TestHandler_CORS(t *testing.T) {
	router, _, _ := newTestRouter(t, vaulthttp.HandlerConfig{
		CORS: vaulthttp.CORSConfig{
			Enabled:        true,
			AllowedOrigins: []string{"https://vault.example.com"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
		},
	})

	req := httptest.NewRequest(http.MethodOptions, "/files", nil)
	req.Header.Set("Origin", "https://vault.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := serve(router, req)

	assert.Equal(t, "https://vault.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
