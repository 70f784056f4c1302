package logging

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against MinIO:
//
//   docker run -d -p 9000:9000 -e MINIO_ROOT_USER=minioadmin \
//     -e MINIO_ROOT_PASSWORD=minioadmin minio/minio server /data
//   MINIO_ENDPOINT=http://localhost:9000 go test -run TestS3Archiver ./internal/logging

const testArchiveBucket = "test-pricing-audit"

func setupMinio(t *testing.T) *s3.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("MINIO_ENDPOINT not set, skipping S3 integration test")
	}
	accessKey := os.Getenv("MINIO_ACCESS_KEY")
	if accessKey == "" {
		accessKey = "minioadmin"
	}
	secretKey := os.Getenv("MINIO_SECRET_KEY")
	if secretKey == "" {
		secretKey = "minioadmin"
	}

	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	)
	require.NoError(t, err)

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(testArchiveBucket)}); err != nil {
		_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(testArchiveBucket)})
		require.NoError(t, err)
	}
	return client
}

func TestS3Archiver_UploadsFile(t *testing.T) {
	client := setupMinio(t)

	path := filepath.Join(t.TempDir(), "audit-1.jsonl")
	body := `{"action":"update_cell","model_id":"m1"}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	ar := NewS3ArchiverWithClient(client, S3ArchiverConfig{Bucket: testArchiveBucket, Prefix: "audit/", PodName: "test"})
	ctx := context.Background()
	require.NoError(t, ar.Archive(ctx, path))

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(testArchiveBucket),
		Key:    aws.String(ar.Key(path, time.Now().UTC())),
	})
	require.NoError(t, err)
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	require.NoError(t, err)
	assert.Equal(t, body, string(data))
}

func TestS3Archiver_Key(t *testing.T) {
	ar := &S3Archiver{prefix: "audit/", podName: "pricing-0"}
	key := ar.Key("/var/log/pricing/audit-20261015.jsonl", time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, "audit/2026/10/15/pricing-0-audit-20261015.jsonl", key)
}
