package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/nestwatch/internal/common"
	sc "github.com/dmitrijs2005/nestwatch/internal/server/config"
	"github.com/dmitrijs2005/nestwatch/internal/server/metrics"
)

var ErrInvalidBlobPath = errors.New("invalid image path")

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
	getObject = func(c *s3.Client, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
		return c.GetObject(ctx, in, optFns...)
	}
)

// BlobStorage keeps photos under their device-side relative path.
type BlobStorage interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// S3BlobStorage stores photos in an S3-compatible bucket.
type S3BlobStorage struct {
	config  *sc.Config
	metrics *metrics.Metrics
}

func NewS3BlobStorage(config *sc.Config, m *metrics.Metrics) *S3BlobStorage {
	return &S3BlobStorage{config: config, metrics: m}
}

func (s *S3BlobStorage) client(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3User,
			s.config.S3Password,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.config.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func (s *S3BlobStorage) Put(ctx context.Context, key string, data []byte) error {
	if err := CheckBlobPath(key); err != nil {
		return err
	}

	c, err := s.client(ctx)
	if err != nil {
		return err
	}

	bucket := s.config.S3Bucket
	if _, err := putObject(c, ctx, &s3.PutObjectInput{
		Bucket:        &bucket,
		Key:           &key,
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}

	s.metrics.BlobBytes.WithLabelValues("in").Add(float64(len(data)))
	return nil
}

func (s *S3BlobStorage) Get(ctx context.Context, key string) ([]byte, error) {
	if err := CheckBlobPath(key); err != nil {
		return nil, err
	}

	c, err := s.client(ctx)
	if err != nil {
		return nil, err
	}

	bucket := s.config.S3Bucket
	out, err := getObject(c, ctx, &s3.GetObjectInput{Bucket: &bucket, Key: &key})
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}

	s.metrics.BlobBytes.WithLabelValues("out").Add(float64(len(data)))
	return data, nil
}

// CheckBlobPath accepts clean relative slash paths below img/.
func CheckBlobPath(p string) error {
	if p == "" || path.Clean(p) != p || !strings.HasPrefix(p, "img/") {
		return fmt.Errorf("%w: %q", ErrInvalidBlobPath, p)
	}
	return nil
}
