package storage

import (
	"fmt"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestBuildImageKeyPattern(t *testing.T) {
	rid := uuid.New()
	mid := uuid.New()

	key := BuildImageKey(rid, mid, "png")

	pattern := fmt.Sprintf(`^restaurants/%s/menu-items/%s/\d+\.png$`, rid, mid)
	assert.Regexp(t, regexp.MustCompile(pattern), key)
}

func TestBuildImageKeyDefaultsToPNG(t *testing.T) {
	key := BuildImageKey(uuid.New(), uuid.New(), "")
	assert.Regexp(t, `\.png$`, key)
}

func TestBuildImageKeyUniqueAcrossRegenerations(t *testing.T) {
	rid := uuid.New()
	mid := uuid.New()

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		key := BuildImageKey(rid, mid, "png")
		assert.False(t, seen[key], "key %q generated twice", key)
		seen[key] = true
	}
}

func TestExtractKeyS3(t *testing.T) {
	key := "restaurants/r1/menu-items/i1/123.png"
	url := "https://my-bucket.s3.us-east-1.amazonaws.com/" + key

	assert.Equal(t, key, ExtractKey(url))
}

func TestExtractKeyGCS(t *testing.T) {
	url := "https://storage.googleapis.com/my-bucket/restaurants/r1/qr/456.png"
	assert.Equal(t, "restaurants/r1/qr/456.png", ExtractKey(url))
}

func TestExtractKeyForeignURL(t *testing.T) {
	assert.Empty(t, ExtractKey("https://example.com/some/image.png"))
	assert.Empty(t, ExtractKey("not a url at all ://"))
	assert.Empty(t, ExtractKey(""))
}
