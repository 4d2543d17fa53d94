package storage

import (
	"context"
	"fmt"
	"time"

	gcs "cloud.google.com/go/storage"

	"github.com/foodlens/food-lens-server/config"
)

// GCSUploader is the Google Cloud Storage backend, selected with
// STORAGE_PROVIDER=gcs.
type GCSUploader struct {
	cl     *gcs.Client
	bucket string
}

func NewGCSUploader(ctx context.Context) (*GCSUploader, error) {
	bucket := config.Config("GCS_BUCKET_NAME")

	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}

	return &GCSUploader{cl: client, bucket: bucket}, nil
}

func (u *GCSUploader) Upload(ctx context.Context, data []byte, key, contentType string) (*UploadResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 50*time.Second)
	defer cancel()

	wc := u.cl.Bucket(u.bucket).Object(key).NewWriter(ctx)
	wc.ContentType = contentType
	wc.CacheControl = "public, max-age=31536000"

	if _, err := wc.Write(data); err != nil {
		return nil, fmt.Errorf("gcs write: %w", err)
	}
	if err := wc.Close(); err != nil {
		return nil, fmt.Errorf("gcs writer close: %w", err)
	}

	return &UploadResult{
		URL: fmt.Sprintf("https://storage.googleapis.com/%s/%s", u.bucket, key),
		Key: key,
	}, nil
}

func (u *GCSUploader) UploadFromURL(ctx context.Context, srcURL, key string) (*UploadResult, error) {
	data, contentType, err := fetchRemote(ctx, srcURL)
	if err != nil {
		return nil, err
	}
	return u.Upload(ctx, data, key, contentType)
}

func (u *GCSUploader) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	opts := &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(ttl),
	}

	signedURL, err := u.cl.Bucket(u.bucket).SignedURL(key, opts)
	if err != nil {
		return "", fmt.Errorf("gcs signed url: %w", err)
	}
	return signedURL, nil
}

func (u *GCSUploader) Delete(ctx context.Context, key string) error {
	if err := u.cl.Bucket(u.bucket).Object(key).Delete(ctx); err != nil {
		return fmt.Errorf("gcs delete: %w", err)
	}
	return nil
}
