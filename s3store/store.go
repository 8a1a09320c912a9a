// Package s3store keeps vault blobs in an S3 compatible bucket.
package s3store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sagarc03/cybervault"
)

// maxDeleteBatch is the DeleteObjects request limit.
const maxDeleteBatch = 1000

// API is the subset of *s3.Client used by Store.
type API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) API {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// Config describes the bucket and how to reach it.
type Config struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`   // custom endpoint for MinIO and friends; empty uses AWS
	AccessKey string `mapstructure:"access_key"` // empty falls back to the default credential chain
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"` // prepended to every key
	PathStyle bool   `mapstructure:"path_style"`
}

// Store implements cybervault.BlobStore on S3.
type Store struct {
	api    API
	bucket string
	prefix string
}

// New loads AWS configuration and builds a client for cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("new s3 store: bucket is required")
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("new s3 store: load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	return NewWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(api API, bucket, prefix string) *Store {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Store{api: api, bucket: bucket, prefix: prefix}
}

func (s *Store) objectKey(key string) string {
	return s.prefix + key
}

// Put uploads content under key. Bodies that cannot seek are spooled to a
// temp file first so the request can be signed with a known length.
func (s *Store) Put(ctx context.Context, key string, content io.Reader) (cybervault.PutResult, error) {
	body, size, cleanup, err := seekableBody(content)
	if err != nil {
		return cybervault.PutResult{}, fmt.Errorf("put %s: %w", key, err)
	}
	defer cleanup()

	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(key)),
		Body:          body,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return cybervault.PutResult{}, fmt.Errorf("put %s: %w", key, err)
	}

	return cybervault.PutResult{Key: key, BytesWritten: size}, nil
}

func seekableBody(content io.Reader) (io.ReadSeeker, int64, func(), error) {
	if rs, ok := content.(io.ReadSeeker); ok {
		size, err := rs.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, nil, fmt.Errorf("measure body: %w", err)
		}
		if _, err = rs.Seek(0, io.SeekStart); err != nil {
			return nil, 0, nil, fmt.Errorf("rewind body: %w", err)
		}
		return rs, size, func() {}, nil
	}

	tmp, err := os.CreateTemp("", "cybervault-s3-*")
	if err != nil {
		return nil, 0, nil, fmt.Errorf("spool body: %w", err)
	}
	cleanup := func() {
		_ = tmp.Close()
		if rmErr := os.Remove(tmp.Name()); rmErr != nil {
			slog.Warn("failed to remove spool file", "path", tmp.Name(), "err", rmErr)
		}
	}

	size, err := io.Copy(tmp, content)
	if err != nil {
		cleanup()
		return nil, 0, nil, fmt.Errorf("spool body: %w", err)
	}
	if _, err = tmp.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return nil, 0, nil, fmt.Errorf("spool body: %w", err)
	}

	return tmp, size, cleanup, nil
}

// Get opens the object stored under key.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, cybervault.ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	return out.Body, nil
}

// Delete removes keys in batches. S3 reports success for missing keys.
func (s *Store) Delete(ctx context.Context, keys []string) error {
	for start := 0; start < len(keys); start += maxDeleteBatch {
		end := min(start+maxDeleteBatch, len(keys))

		objects := make([]types.ObjectIdentifier, 0, end-start)
		for _, key := range keys[start:end] {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(s.objectKey(key))})
		}

		out, err := s.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("delete objects: %w", err)
		}

		if len(out.Errors) > 0 {
			errs := make([]error, 0, len(out.Errors))
			for _, e := range out.Errors {
				errs = append(errs, fmt.Errorf("delete %s: %s: %s",
					aws.ToString(e.Key), aws.ToString(e.Code), aws.ToString(e.Message)))
			}
			return errors.Join(errs...)
		}
	}

	return nil
}

// List returns every object under the configured prefix.
func (s *Store) List(ctx context.Context) ([]cybervault.BlobInfo, error) {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)}
	if s.prefix != "" {
		input.Prefix = aws.String(s.prefix)
	}

	var blobs []cybervault.BlobInfo
	paginator := s3.NewListObjectsV2Paginator(s.api, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}

		for _, obj := range page.Contents {
			blobs = append(blobs, cybervault.BlobInfo{
				Key:  strings.TrimPrefix(aws.ToString(obj.Key), s.prefix),
				Size: aws.ToInt64(obj.Size),
			})
		}
	}

	return blobs, nil
}
