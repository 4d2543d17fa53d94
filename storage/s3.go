package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/foodlens/food-lens-server/config"
)

// S3Uploader persists objects to an S3 bucket with public-read policy.
type S3Uploader struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	region  string
}

func NewS3Uploader(ctx context.Context) (*S3Uploader, error) {
	region := config.ConfigDefault("AWS_REGION", "us-east-1")
	accessKey := config.Config("AWS_ACCESS_KEY_ID")
	secretKey := config.Config("AWS_SECRET_ACCESS_KEY")
	bucket := config.Config("AWS_S3_BUCKET_NAME")

	cfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	return &S3Uploader{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
		region:  region,
	}, nil
}

func (u *S3Uploader) Upload(ctx context.Context, data []byte, key, contentType string) (*UploadResult, error) {
	if contentType == "" {
		contentType = "image/jpeg"
	}

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(u.bucket),
		Key:                  aws.String(key),
		Body:                 bytes.NewReader(data),
		ContentType:          aws.String(contentType),
		ServerSideEncryption: types.ServerSideEncryptionAes256,
		CacheControl:         aws.String("public, max-age=31536000"),
		Metadata: map[string]string{
			"uploaded-at": time.Now().UTC().Format(time.RFC3339),
			"source":      "food-lens-app",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("s3 put object: %w", err)
	}

	return &UploadResult{
		URL: fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.bucket, u.region, key),
		Key: key,
	}, nil
}

// UploadFromURL mirrors a remote image into owned storage.
func (u *S3Uploader) UploadFromURL(ctx context.Context, srcURL, key string) (*UploadResult, error) {
	data, contentType, err := fetchRemote(ctx, srcURL)
	if err != nil {
		return nil, err
	}
	return u.Upload(ctx, data, key, contentType)
}

func (u *S3Uploader) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	out, err := u.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign get object: %w", err)
	}
	return out.URL, nil
}

func (u *S3Uploader) Delete(ctx context.Context, key string) error {
	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete object: %w", err)
	}
	return nil
}

func fetchRemote(ctx context.Context, srcURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build download request: %w", err)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download failed: status %d", res.StatusCode)
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read download body: %w", err)
	}

	contentType := res.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return data, contentType, nil
}
