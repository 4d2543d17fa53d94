package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/foodlens/food-lens-server/config"
)

// UploadResult is returned by every successful upload.
type UploadResult struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// Uploader persists objects to durable, publicly addressable storage.
// Uploads do not retry internally; retry policy lives with the caller.
type Uploader interface {
	Upload(ctx context.Context, data []byte, key, contentType string) (*UploadResult, error)
	UploadFromURL(ctx context.Context, srcURL, key string) (*UploadResult, error)
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// ValidateConfig reports missing environment variables for the active
// provider without constructing a client, for health checks.
func ValidateConfig() []string {
	var missing []string
	switch config.ConfigDefault("STORAGE_PROVIDER", "s3") {
	case "gcs":
		if config.ConfigDefault("GCS_BUCKET_NAME", "") == "" {
			missing = append(missing, "GCS_BUCKET_NAME")
		}
	default:
		for _, name := range []string{"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "AWS_S3_BUCKET_NAME"} {
			if config.ConfigDefault(name, "") == "" {
				missing = append(missing, name)
			}
		}
	}
	return missing
}

// NewFromEnv builds the uploader selected by STORAGE_PROVIDER
// (s3 by default, gcs as the alternative backend).
func NewFromEnv(ctx context.Context) (Uploader, error) {
	provider := config.ConfigDefault("STORAGE_PROVIDER", "s3")
	switch provider {
	case "s3":
		return NewS3Uploader(ctx)
	case "gcs":
		return NewGCSUploader(ctx)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", provider)
	}
}
