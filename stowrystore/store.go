// Package stowrystore keeps vault blobs on a remote Stowry object server.
// Every request is authorized with a short-lived presigned URL.
package stowrystore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sagarc03/cybervault"
	"github.com/sagarc03/stowry-go"
)

const (
	// DefaultTimeout is the default HTTP client timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultExpires is the default presigned URL expiry in seconds (15 minutes).
	DefaultExpires = 900

	listPageSize = 1000
)

var (
	ErrEndpointRequired  = errors.New("endpoint is required")
	ErrAccessKeyRequired = errors.New("access key is required")
	ErrSecretKeyRequired = errors.New("secret key is required")
)

// Config identifies the server and the key pair used to sign requests.
type Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// Store implements cybervault.BlobStore against a Stowry server.
type Store struct {
	endpoint   string
	accessKey  string
	secretKey  string
	httpClient *http.Client
	signer     *stowry.Client
}

// Option configures a Store.
type Option func(*Store)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Store) {
		s.httpClient = client
	}
}

// New creates a Store for cfg.
func New(cfg Config, opts ...Option) (*Store, error) {
	switch {
	case cfg.Endpoint == "":
		return nil, ErrEndpointRequired
	case cfg.AccessKey == "":
		return nil, ErrAccessKeyRequired
	case cfg.SecretKey == "":
		return nil, ErrSecretKeyRequired
	}

	endpoint := strings.TrimSuffix(cfg.Endpoint, "/")

	s := &Store{
		endpoint:   endpoint,
		accessKey:  cfg.AccessKey,
		secretKey:  cfg.SecretKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		signer:     stowry.NewClient(endpoint, cfg.AccessKey, cfg.SecretKey),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// serverMetaData mirrors the object metadata returned by the server.
type serverMetaData struct {
	Path          string `json:"path"`
	FileSizeBytes int64  `json:"file_size_bytes"`
}

type serverListResult struct {
	Items      []serverMetaData `json:"items"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// Put uploads content with a presigned PUT.
func (s *Store) Put(ctx context.Context, key string, content io.Reader) (cybervault.PutResult, error) {
	presignURL := s.signer.PresignPut(normalizePath(key), DefaultExpires)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, presignURL, content)
	if err != nil {
		return cybervault.PutResult{}, fmt.Errorf("put %s: create request: %w", key, err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return cybervault.PutResult{}, fmt.Errorf("put %s: %w", key, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return cybervault.PutResult{}, fmt.Errorf("put %s: read response: %w", key, err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return cybervault.PutResult{}, fmt.Errorf("put %s: %w", key, parseServerError(resp.StatusCode, body))
	}

	var meta serverMetaData
	if err := json.Unmarshal(body, &meta); err != nil {
		return cybervault.PutResult{}, fmt.Errorf("put %s: parse response: %w", key, err)
	}

	return cybervault.PutResult{Key: key, BytesWritten: meta.FileSizeBytes}, nil
}

// Get streams the object with a presigned GET.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	presignURL := s.signer.PresignGet(normalizePath(key), DefaultExpires)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, presignURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("get %s: create request: %w", key, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil, cybervault.ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", key, parseServerError(resp.StatusCode, body))
	}

	return resp.Body, nil
}

// Delete removes each key with a presigned DELETE. A 404 counts as deleted.
func (s *Store) Delete(ctx context.Context, keys []string) error {
	var errs []error

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.deleteSingle(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}

	return errors.Join(errs...)
}

func (s *Store) deleteSingle(ctx context.Context, key string) error {
	presignURL := s.signer.PresignDelete(normalizePath(key), DefaultExpires)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, presignURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusOK, http.StatusNotFound:
		return nil
	}

	body, _ := io.ReadAll(resp.Body)
	return parseServerError(resp.StatusCode, body)
}

// List pages through every object on the server.
func (s *Store) List(ctx context.Context) ([]cybervault.BlobInfo, error) {
	var blobs []cybervault.BlobInfo
	cursor := ""

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := s.listPage(ctx, cursor)
		if err != nil {
			return nil, fmt.Errorf("list: %w", err)
		}

		for _, item := range page.Items {
			blobs = append(blobs, cybervault.BlobInfo{
				Key:  strings.TrimPrefix(item.Path, "/"),
				Size: item.FileSizeBytes,
			})
		}

		if page.NextCursor == "" {
			return blobs, nil
		}
		cursor = page.NextCursor
	}
}

func (s *Store) listPage(ctx context.Context, cursor string) (*serverListResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.presignList(cursor), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseServerError(resp.StatusCode, body)
	}

	var result serverListResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	return &result, nil
}

// presignList signs a list request by hand; stowry-go has no PresignList.
func (s *Store) presignList(cursor string) string {
	timestamp := time.Now().Unix()
	path := "/"
	sig := stowry.Sign(s.secretKey, http.MethodGet, path, timestamp, int64(DefaultExpires))

	query := url.Values{}
	query.Set(stowry.StowryCredentialParam, s.accessKey)
	query.Set(stowry.StowryDateParam, strconv.FormatInt(timestamp, 10))
	query.Set(stowry.StowryExpiresParam, strconv.Itoa(DefaultExpires))
	query.Set(stowry.StowrySignatureParam, sig)
	query.Set("limit", strconv.Itoa(listPageSize))
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	return s.endpoint + path + "?" + query.Encode()
}

// normalizePath ensures path has leading slash and no trailing slash.
func normalizePath(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimSuffix(path, "/")
}
