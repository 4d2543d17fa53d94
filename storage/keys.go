package storage

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BuildImageKey returns the object key for a menu item image. Keys are
// namespaced by tenant and item, and timestamped so regenerations never
// overwrite a prior object.
func BuildImageKey(restaurantID, menuItemID uuid.UUID, ext string) string {
	if ext == "" {
		ext = "png"
	}
	return fmt.Sprintf("restaurants/%s/menu-items/%s/%d.%s",
		restaurantID, menuItemID, time.Now().UnixNano(), ext)
}

// BuildQRKey returns the object key for a restaurant's menu QR code.
func BuildQRKey(restaurantID uuid.UUID) string {
	return fmt.Sprintf("restaurants/%s/qr/%d.png", restaurantID, time.Now().UnixNano())
}

// ExtractKey recovers the object key from a public URL produced by
// either backend. Returns an empty string for foreign URLs.
func ExtractKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	path := strings.TrimPrefix(u.Path, "/")

	// Virtual-hosted S3 style: https://{bucket}.s3.{region}.amazonaws.com/{key}
	if strings.Contains(u.Host, ".s3.") {
		return path
	}

	// GCS style: https://storage.googleapis.com/{bucket}/{key}
	if u.Host == "storage.googleapis.com" {
		if _, key, ok := strings.Cut(path, "/"); ok {
			return key
		}
	}

	return ""
}
