package http_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sagarc03/cybervault"
	vaulthttp "github.com/sagarc03/cybervault/http"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testToken = "valid-token"

var testOwner = cybervault.Identity{ID: "0b6f3f9e-7a43-4f0e-9a3b-5f7c1d2e8a90", Email: "neo@example.com"}

func testSession() *cybervault.Session {
	return &cybervault.Session{
		AccessToken: testToken,
		Identity:    testOwner,
		ExpiresAt:   time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// MockAuthenticator is a mock implementation of identity.Authenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) SignUp(ctx context.Context, email, password string) (*cybervault.Session, error) {
	args := m.Called(ctx, email, password)
	s, _ := args.Get(0).(*cybervault.Session)
	return s, args.Error(1)
}

func (m *MockAuthenticator) SignIn(ctx context.Context, email, password string) (*cybervault.Session, error) {
	args := m.Called(ctx, email, password)
	s, _ := args.Get(0).(*cybervault.Session)
	return s, args.Error(1)
}

func (m *MockAuthenticator) Verify(ctx context.Context, token string) (*cybervault.Session, error) {
	args := m.Called(ctx, token)
	s, _ := args.Get(0).(*cybervault.Session)
	return s, args.Error(1)
}

func (m *MockAuthenticator) Revoke(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

// MockFiles is a mock implementation of http.Files
type MockFiles struct {
	mock.Mock
}

func (m *MockFiles) Upload(ctx context.Context, owner cybervault.Identity, file cybervault.LocalFile) (cybervault.FileRecord, error) {
	args := m.Called(ctx, owner, file)
	return args.Get(0).(cybervault.FileRecord), args.Error(1)
}

func (m *MockFiles) List(ctx context.Context, ownerID string) ([]cybervault.FileRecord, error) {
	args := m.Called(ctx, ownerID)
	records, _ := args.Get(0).([]cybervault.FileRecord)
	return records, args.Error(1)
}

func (m *MockFiles) Get(ctx context.Context, ownerID string, id uuid.UUID) (cybervault.FileRecord, error) {
	args := m.Called(ctx, ownerID, id)
	return args.Get(0).(cybervault.FileRecord), args.Error(1)
}

func (m *MockFiles) Open(ctx context.Context, rec cybervault.FileRecord) (io.ReadCloser, error) {
	args := m.Called(ctx, rec)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

func (m *MockFiles) Delete(ctx context.Context, rec cybervault.FileRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// newTestRouter builds a router whose authenticator accepts testToken.
func newTestRouter(t *testing.T, cfg vaulthttp.HandlerConfig) (http.Handler, *MockAuthenticator, *MockFiles) {
	t.Helper()
	auth := &MockAuthenticator{}
	auth.On("Verify", mock.Anything, testToken).Return(testSession(), nil).Maybe()
	files := &MockFiles{}
	t.Cleanup(func() {
		auth.AssertExpectations(t)
		files.AssertExpectations(t)
	})
	return vaulthttp.NewHandler(&cfg, auth, files).Router(), auth, files
}

func authorized(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer "+testToken)
	return req
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, body io.Reader) vaulthttp.ErrorResponse {
	t.Helper()
	var resp vaulthttp.ErrorResponse
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp
}

func record(name string) cybervault.FileRecord {
	return cybervault.FileRecord{
		ID:         uuid.New(),
		Name:       name,
		Size:       int64(len(name)),
		MimeType:   "text/plain; charset=utf-8",
		StorageKey: cybervault.StorageKey(testOwner.ID, name),
		OwnerID:    testOwner.ID,
		CreatedAt:  time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}
}
