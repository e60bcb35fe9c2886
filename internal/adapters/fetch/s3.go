package fetch

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/developmentseed/stac-tiler/internal/domain"
)

// S3Source reads item documents from AWS S3 (s3://bucket/key).
type S3Source struct {
	cfg S3Config

	once    sync.Once
	client  *s3.Client
	initErr error
}

// S3Config holds S3 source configuration.
type S3Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3Source creates a new S3 source. The client is built lazily on
// first use so a service without any s3:// items never loads AWS
// configuration.
func NewS3Source(cfg S3Config) *S3Source {
	return &S3Source{cfg: cfg}
}

func (s *S3Source) init(ctx context.Context) {
	var opts []func(*config.LoadOptions) error

	opts = append(opts, config.WithRegion(s.cfg.Region))

	// Use explicit credentials if provided
	if s.cfg.AccessKeyID != "" && s.cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				s.cfg.AccessKeyID,
				s.cfg.SecretAccessKey,
				"",
			),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		s.initErr = err
		return
	}

	var clientOpts []func(*s3.Options)
	if s.cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(s.cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	s.client = s3.NewFromConfig(awsCfg, clientOpts...)
}

// Read downloads the object at s3://bucket/key.
func (s *S3Source) Read(ctx context.Context, location string) ([]byte, error) {
	bucket, key, err := splitObjectLocation(location, "s3://")
	if err != nil {
		return nil, err
	}

	s.once.Do(func() { s.init(ctx) })
	if s.initErr != nil {
		return nil, s.initErr
	}

	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	return io.ReadAll(resp.Body)
}

// splitObjectLocation splits scheme://container/path into its two
// parts.
func splitObjectLocation(location, prefix string) (string, string, error) {
	rest := strings.TrimPrefix(location, prefix)
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: malformed location %q", domain.ErrInvalidInput, location)
	}
	return parts[0], parts[1], nil
}
