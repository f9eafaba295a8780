package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "donodopedaco/internal/config"
)

var ErrMissingConfig = errors.New("r2: endpoint, credentials and bucket are required")

// R2Client reads and writes objects in one Cloudflare R2 bucket through the
// S3 API.
type R2Client struct {
	client *s3.Client
	bucket string
}

func NewR2Client(ctx context.Context, r2 appconfig.R2) (*R2Client, error) {
	if r2.Endpoint == "" || r2.AccessKey == "" || r2.SecretKey == "" || r2.Bucket == "" {
		return nil, ErrMissingConfig
	}

	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				r2.AccessKey,
				r2.SecretKey,
				"",
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("r2: load config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(r2.Endpoint)
		o.UsePathStyle = true
	})

	return &R2Client{
		client: client,
		bucket: r2.Bucket,
	}, nil
}

// Get downloads the whole object at key.
func (r *R2Client) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("r2: get %s: %w", key, err)
	}
	defer func() { _ = out.Body.Close() }()

	return io.ReadAll(out.Body)
}

// Upload replaces the object at key.
func (r *R2Client) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("r2: put %s: %w", key, err)
	}
	return nil
}
