package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"chatcast/internal/app/message"
	"chatcast/internal/pkg/logx"
)

const defaultS3ObjectKey = "chatcast/messages.json"

// S3Store keeps the whole history as a single JSON object in an S3-compatible bucket.
// Like FileStore it rewrites the object on every Persist.
type S3Store struct {
	bucket   string
	key      string
	client   *s3.Client
	uploader *manager.Uploader
	mu       sync.Mutex
}

// NewS3Store initializes the S3 client using a custom configuration that supports S3-compatible endpoints.
func NewS3Store(ctx context.Context, cfg ServiceConfig) (*S3Store, error) {
	sdkCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKeyID,
			cfg.S3SecretAccessKey,
			"",
		)),
		config.WithRegion("auto"),
	)
	if err != nil {
		logx.Error(err, "Failed to load AWS SDK config")
		return nil, errors.New("failed to initialize S3 client configuration")
	}

	client := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = true
	})

	key := cfg.S3ObjectKey
	if key == "" {
		key = defaultS3ObjectKey
	}

	return &S3Store{
		bucket:   cfg.S3BucketName,
		key:      key,
		client:   client,
		uploader: manager.NewUploader(client),
	}, nil
}

func (s *S3Store) Name() string { return BackendS3 }

func (s *S3Store) Load(ctx context.Context) ([]message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		var nf *types.NotFound
		if errors.As(err, &nsk) || errors.As(err, &nf) {
			return nil, nil
		}
		return nil, fmt.Errorf("get s3 object %s/%s: %w", s.bucket, s.key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3 object %s/%s: %w", s.bucket, s.key, err)
	}

	return decodeHistory(data)
}

func (s *S3Store) Persist(ctx context.Context, history []message.Message) error {
	data, err := encodeHistory(history)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("upload s3 object %s/%s: %w", s.bucket, s.key, err)
	}

	return nil
}

func (s *S3Store) Close() error { return nil }
