package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ImMohammedAbdulla/Backend-app/internal/storage"
	"github.com/ImMohammedAbdulla/Backend-app/pkg/breaker"
)

// Config holds S3-compatible object store settings.
type Config struct {
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
	// PublicBaseURL prefixes returned URLs. Defaults to Endpoint/Bucket.
	PublicBaseURL string
}

type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Storage implements storage.Storage on an S3-compatible bucket. Every call
// goes through a circuit breaker.
type Storage struct {
	api     objectAPI
	bucket  string
	baseURL string
	cb      *breaker.Breaker
}

// New builds an S3 client from static credentials and wraps it.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newWithAPI(client, cfg, breaker.New(breaker.DefaultConfig("s3-media"), logger)), nil
}

func newWithAPI(api objectAPI, cfg Config, cb *breaker.Breaker) *Storage {
	base := cfg.PublicBaseURL
	if base == "" {
		base = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return &Storage{
		api:     api,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimRight(base, "/"),
		cb:      cb,
	}
}

// Upload puts the object. The body is buffered so the SDK can sign a
// seekable payload over plain HTTP endpoints.
func (s *Storage) Upload(ctx context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	data, err := io.ReadAll(input.Data)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", input.Key, err)
	}

	err = s.cb.Do(func() error {
		_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(s.bucket),
			Key:           aws.String(input.Key),
			Body:          bytes.NewReader(data),
			ContentType:   aws.String(input.ContentType),
			ContentLength: aws.Int64(int64(len(data))),
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("s3 put %s: %w", input.Key, err)
	}

	return &storage.UploadResult{Key: input.Key, URL: s.url(input.Key)}, nil
}

// Delete removes the object under key.
func (s *Storage) Delete(ctx context.Context, key string) error {
	err := s.cb.Do(func() error {
		_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", key, err)
	}
	return nil
}

// GetURL returns the public URL of key without contacting the bucket.
func (s *Storage) GetURL(_ context.Context, key string) (string, error) {
	return s.url(key), nil
}

// Ping checks that the bucket is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.cb.Do(func() error {
		_, err := s.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
		return err
	})
}

func (s *Storage) url(key string) string {
	return s.baseURL + "/" + key
}
