package imagegen

import (
	"context"
	"fmt"
	"strings"
)

// Request carries the dish attributes interpolated into the prompt.
// ItemName is required; the rest are optional.
type Request struct {
	ItemName    string
	Description string
	Cuisine     string
}

// Image is the decoded output of one successful generation.
type Image struct {
	Data []byte
	MIME string
}

// Generator turns a dish description into raw image bytes. Implementations
// own their retry policy and are stateless per invocation.
type Generator interface {
	GenerateMenuItemImage(ctx context.Context, req Request) (*Image, error)
}

// BuildFoodPrompt renders the fixed food-photography prompt template.
// Only the three request fields are interpolated.
func BuildFoodPrompt(req Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, "A high-quality food photo of %s", req.ItemName)
	if req.Description != "" {
		fmt.Fprintf(&b, " (%s)", req.Description)
	}
	if req.Cuisine != "" {
		fmt.Fprintf(&b, " in %s style", req.Cuisine)
	}
	b.WriteString(", served on a white ceramic plate, isolated on transparent background, 45% angled view. Professional food photography with appetizing presentation and excellent lighting.")

	return b.String()
}
