package content

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// S3 reads file bytes from an S3-compatible bucket holding a mirror of the
// repository. Object keys are Prefix joined with the file's path.
type S3 struct {
	client *minio.Client
	bucket string
	prefix string
	files  Locator
}

func NewS3(cfg S3Config, files Locator) (*S3, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("content: s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("content: s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("content: s3 bucket is required")
	}
	if files == nil {
		return nil, fmt.Errorf("content: s3 provider needs a file locator")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("content: init s3 client: %w", err)
	}
	return &S3{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		files:  files,
	}, nil
}

func (s *S3) key(rel string) string {
	rel = strings.TrimLeft(path.Clean("/"+rel), "/")
	if s.prefix == "" {
		return rel
	}
	return s.prefix + "/" + rel
}

func (s *S3) Content(ctx context.Context, fileID int64) ([]byte, error) {
	rel, ok, err := s.files.FilePath(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("file %d: %w", fileID, err)
	}
	if !ok {
		return nil, nil
	}
	obj, err := s.client.GetObject(ctx, s.bucket, s.key(rel), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("file %d: %w", fileID, err)
	}
	defer obj.Close()

	b, err := io.ReadAll(obj)
	if err != nil {
		code := minio.ToErrorResponse(err).Code
		if code == "NoSuchKey" || code == "NoSuchBucket" {
			return nil, nil
		}
		return nil, fmt.Errorf("file %d: %w", fileID, err)
	}
	return b, nil
}

// Put uploads one file's bytes under its repository path.
func (s *S3) Put(ctx context.Context, rel string, b []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.key(rel), bytes.NewReader(b), int64(len(b)), minio.PutObjectOptions{
		ContentType: "text/x-java-source",
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", rel, err)
	}
	return nil
}
