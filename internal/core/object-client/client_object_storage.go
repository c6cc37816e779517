package objectclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/markdave123-py/AmityBot/internal/core"
)

const (
	uploadTimeout  = 2 * time.Minute
	requestTimeout = 30 * time.Second
)

// S3Config carries the settings needed to reach the archive bucket.
type S3Config struct {
	AccessKey string
	SecretKey string
	Region    string
}

type S3Client struct {
	client   *s3.Client
	uploader *manager.Uploader
	region   string
}

var _ core.ObjectClient = (*S3Client)(nil)

func NewS3Client(ctx context.Context, c S3Config, logger *slog.Logger) (*S3Client, error) {
	if c.AccessKey == "" || c.SecretKey == "" {
		return nil, fmt.Errorf("AWS credentials not set")
	}
	if c.Region == "" {
		return nil, fmt.Errorf("AWS_REGION not set")
	}

	awsCfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	logger.Info("s3 client configured", "region", c.Region)

	return &S3Client{
		client:   client,
		uploader: manager.NewUploader(client),
		region:   c.Region,
	}, nil
}

// UploadFile streams data to S3 and returns the object URL.
func (c *S3Client) UploadFile(ctx context.Context, bucket, key string, data io.Reader, contentType string) (string, error) {
	ctxUpload, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	_, err := c.uploader.Upload(ctxUpload, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        data,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload failed: %w", err)
	}

	return objectURL(bucket, c.region, key), nil
}

func (c *S3Client) DeleteFile(ctx context.Context, bucket, key string) error {
	ctxDel, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	_, err := c.client.DeleteObject(ctxDel, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete failed: %w", err)
	}
	return nil
}

func objectURL(bucket, region, key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, key)
}
