package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sagarc03/cybervault"
	"github.com/sagarc03/cybervault/identity"
)

// Files is the vault surface the handlers need. *cybervault.Gateway implements it.
type Files interface {
	Upload(ctx context.Context, owner cybervault.Identity, file cybervault.LocalFile) (cybervault.FileRecord, error)
	List(ctx context.Context, ownerID string) ([]cybervault.FileRecord, error)
	Get(ctx context.Context, ownerID string, id uuid.UUID) (cybervault.FileRecord, error)
	Open(ctx context.Context, rec cybervault.FileRecord) (io.ReadCloser, error)
	Delete(ctx context.Context, rec cybervault.FileRecord) error
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

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
	CORS CORSConfig
	// MaxUploadSize caps each uploaded file. Default: cybervault.DefaultMaxUploadSize.
	MaxUploadSize int64
	// MaxRequestSize caps a whole multipart upload request. Default: 1 GiB.
	MaxRequestSize int64
	// Health is pinged by /healthz. Nil always reports healthy.
	Health Pinger
	// Metrics enables the metrics middleware and /metrics. Nil disables both.
	Metrics *Metrics
}

const (
	defaultMaxRequestSize int64 = 1 << 30
	multipartMemory       int64 = 32 << 20
)

// Handler serves the vault JSON API.
type Handler struct {
	config   HandlerConfig
	auth     identity.Authenticator
	files    Files
	validate *validator.Validate
}

// NewHandler creates a new Handler with the given configuration, authenticator and files.
func NewHandler(config *HandlerConfig, auth identity.Authenticator, files Files) *Handler {
	cfg := *config
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = cybervault.DefaultMaxUploadSize
	}
	if cfg.MaxRequestSize <= 0 {
		cfg.MaxRequestSize = defaultMaxRequestSize
	}
	return &Handler{
		config:   cfg,
		auth:     auth,
		files:    files,
		validate: validator.New(),
	}
}

// Router returns an http.Handler with all routes configured.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestLogger)
	if h.config.Metrics != nil {
		r.Use(h.config.Metrics.Middleware)
	}

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

	r.Get("/healthz", h.handleHealth)
	if h.config.Metrics != nil {
		r.Handle("/metrics", h.config.Metrics.Handler())
	}

	r.Post("/auth/signup", h.handleSignUp)
	r.Post("/auth/signin", h.handleSignIn)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(h.auth))
		r.Post("/auth/signout", h.handleSignOut)
		r.Get("/auth/session", h.handleSession)

		r.Get("/files", h.handleList)
		r.Post("/files", h.handleUpload)
		r.Get("/files/{id}", h.handleDownload)
		r.Delete("/files/{id}", h.handleDelete)
	})

	return r
}

type credentials struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) readCredentials(w http.ResponseWriter, r *http.Request) (credentials, bool) {
	var c credentials
	if err := ReadJSON(r, &c); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Request body must be JSON")
		return c, false
	}
	if err := h.validate.Struct(c); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Email and password are required")
		return c, false
	}
	return c, true
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	c, ok := h.readCredentials(w, r)
	if !ok {
		return
	}

	session, err := h.auth.SignUp(r.Context(), c.Email, c.Password)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusCreated, session)
}

func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	c, ok := h.readCredentials(w, r)
	if !ok {
		return
	}

	session, err := h.auth.SignIn(r.Context(), c.Email, c.Password)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, session)
}

func (h *Handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	session := SessionFromContext(r.Context())
	if err := h.auth.Revoke(r.Context(), session.AccessToken); err != nil {
		HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	session := SessionFromContext(r.Context())
	_ = WriteJSON(w, http.StatusOK, sessionResponse{
		User:      session.Identity,
		ExpiresAt: session.ExpiresAt,
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	owner := SessionFromContext(r.Context()).Identity

	records, err := h.files.List(r.Context(), owner.ID)
	if err != nil {
		HandleError(w, err)
		return
	}
	if records == nil {
		records = []cybervault.FileRecord{}
	}

	_ = WriteJSON(w, http.StatusOK, listResponse{Files: records})
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	owner := SessionFromContext(r.Context()).Identity

	if r.ContentLength > h.config.MaxRequestSize {
		WriteError(w, http.StatusRequestEntityTooLarge, "request_too_large", "Upload request too large")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxRequestSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, "request_too_large", "Upload request too large")
			return
		}
		WriteError(w, http.StatusBadRequest, "invalid_request", "Expected multipart/form-data body")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		WriteError(w, http.StatusBadRequest, "invalid_request", "No files selected")
		return
	}

	batch := make([]cybervault.LocalFile, 0, len(headers))
	for _, fh := range headers {
		batch = append(batch, localFile(fh))
	}

	var notes []notification
	notifier := cybervault.NotifierFunc(func(n cybervault.Notification) {
		notes = append(notes, notification{Level: n.Level.String(), Message: n.Message})
	})
	uploader := cybervault.NewUploader(h.files, cybervault.StaticIdentity(owner), notifier, cybervault.UploaderConfig{
		MaxSize: h.config.MaxUploadSize,
	})

	results, err := uploader.Upload(r.Context(), batch)
	if err != nil {
		HandleError(w, err)
		return
	}

	resp := uploadResponse{Results: make([]uploadResult, 0, len(results)), Notifications: notes}
	for _, res := range results {
		out := uploadResult{Name: res.Name}
		if res.Err != nil {
			out.Error = uploadErrorMessage(res.Err)
		} else {
			rec := res.Record
			out.Record = &rec
		}
		resp.Results = append(resp.Results, out)
	}

	_ = WriteJSON(w, http.StatusOK, resp)
}

// uploadErrorMessage hides storage internals behind a generic message.
func uploadErrorMessage(err error) string {
	switch {
	case errors.Is(err, cybervault.ErrFileTooLarge), errors.Is(err, cybervault.ErrInvalidInput):
		return err.Error()
	default:
		return "upload failed"
	}
}

// localFile adapts a multipart file header. A missing or generic part content
// type is replaced by one sniffed from the content.
func localFile(fh *multipart.FileHeader) cybervault.LocalFile {
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		if f, err := fh.Open(); err == nil {
			if m, err := mimetype.DetectReader(f); err == nil {
				contentType = m.String()
			}
			_ = f.Close()
		}
	}

	return cybervault.LocalFile{
		Name:        fh.Filename,
		Size:        fh.Size,
		ContentType: contentType,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (cybervault.FileRecord, bool) {
	owner := SessionFromContext(r.Context()).Identity

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_id", "Invalid file id")
		return cybervault.FileRecord{}, false
	}

	rec, err := h.files.Get(r.Context(), owner.ID, id)
	if err != nil {
		HandleError(w, err)
		return cybervault.FileRecord{}, false
	}
	return rec, true
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.lookup(w, r)
	if !ok {
		return
	}

	content, err := h.files.Open(r.Context(), rec)
	if err != nil {
		if errors.Is(err, cybervault.ErrNotFound) {
			err = errors.Join(cybervault.ErrDanglingRecord, err)
		}
		HandleError(w, err)
		return
	}
	defer func() { _ = content.Close() }()

	w.Header().Set("Content-Type", rec.MimeType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": rec.Name}))
	w.Header().Set("Content-Length", strconv.FormatInt(rec.Size, 10))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, content); err != nil {
		slog.Error("stream file", "id", rec.ID, "error", err)
	}
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.lookup(w, r)
	if !ok {
		return
	}

	if err := h.files.Delete(r.Context(), rec); err != nil {
		HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.config.Health != nil {
		if err := h.config.Health.Ping(r.Context()); err != nil {
			slog.Error("health check failed", "error", err)
			WriteError(w, http.StatusServiceUnavailable, "unavailable", "Metadata store unreachable")
			return
		}
	}

	_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
