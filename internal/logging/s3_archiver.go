package logging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Archiver uploads closed audit files to a bucket.
type S3Archiver struct {
	client  *s3.Client
	bucket  string
	prefix  string
	podName string
	logger  *Logger
}

// S3ArchiverConfig selects the bucket. Endpoint is only set for
// S3-compatible stores such as MinIO.
type S3ArchiverConfig struct {
	Bucket   string
	Region   string
	Prefix   string
	PodName  string
	Endpoint string
}

// NewS3Archiver loads the default AWS credential chain for the region.
func NewS3Archiver(ctx context.Context, cfg S3ArchiverConfig) (*S3Archiver, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3ArchiverWithClient(client, cfg), nil
}

// NewS3ArchiverWithClient uses an already configured client.
func NewS3ArchiverWithClient(client *s3.Client, cfg S3ArchiverConfig) *S3Archiver {
	return &S3Archiver{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  cfg.Prefix,
		podName: cfg.PodName,
		logger:  NewLogger("s3-archiver"),
	}
}

// Key returns the object key for a file closed at t.
// Format: audit/2026/10/15/pricing-0-audit-20261015120000.jsonl
func (w *S3Archiver) Key(path string, t time.Time) string {
	return fmt.Sprintf("%s%04d/%02d/%02d/%s-%s",
		w.prefix, t.Year(), t.Month(), t.Day(), w.podName, filepath.Base(path))
}

// Archive uploads one file as JSON lines.
func (w *S3Archiver) Archive(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open audit file: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat audit file: %w", err)
	}
	if fi.Size() == 0 {
		return nil
	}

	key := w.Key(path, time.Now().UTC())
	_, err = w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(w.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(fi.Size()),
		ContentType:   aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}

	w.logger.Info("archived audit file", "key", key, "bytes", fi.Size())
	return nil
}
