package imagegen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"

	"github.com/foodlens/food-lens-server/config"
)

const defaultImageModel = "gemini-2.5-flash-image"

// GeminiGenerator generates food photos with the Gemini image model.
// Failed or imageless responses are retried with linearly increasing
// backoff before the error surfaces to the caller.
type GeminiGenerator struct {
	invoke  func(ctx context.Context, prompt string) (*Image, error)
	retries int
	backoff time.Duration
	log     *logrus.Logger
}

// NewGeminiGenerator wraps a genai client constructed once at process
// start (the client reads GEMINI_API_KEY from the environment).
func NewGeminiGenerator(client *genai.Client, log *logrus.Logger) *GeminiGenerator {
	model := config.ConfigDefault("IMAGE_MODEL", defaultImageModel)

	g := &GeminiGenerator{
		retries: 2,
		backoff: time.Second,
		log:     log,
	}
	g.invoke = func(ctx context.Context, prompt string) (*Image, error) {
		return callImageModel(ctx, client, model, prompt)
	}
	return g
}

func newGenerator(invoke func(ctx context.Context, prompt string) (*Image, error), retries int, backoff time.Duration) *GeminiGenerator {
	return &GeminiGenerator{invoke: invoke, retries: retries, backoff: backoff, log: logrus.New()}
}

func (g *GeminiGenerator) GenerateMenuItemImage(ctx context.Context, req Request) (*Image, error) {
	if req.ItemName == "" {
		return nil, errors.New("item name is required")
	}

	prompt := BuildFoodPrompt(req)

	var lastErr error
	for attempt := 1; attempt <= g.retries+1; attempt++ {
		if attempt > 1 {
			// linear backoff: 1s, 2s, ...
			if err := sleepCtx(ctx, time.Duration(attempt-1)*g.backoff); err != nil {
				return nil, err
			}
		}

		img, err := g.invoke(ctx, prompt)
		if err != nil {
			lastErr = err
			g.log.WithError(err).WithField("attempt", attempt).Warn("image generation attempt failed")
			continue
		}
		if img == nil || len(img.Data) == 0 {
			lastErr = errors.New("no image data found in response")
			g.log.WithField("attempt", attempt).Warn("model response contained no image data")
			continue
		}
		return img, nil
	}

	return nil, fmt.Errorf("image generation failed after %d attempts: %w", g.retries+1, lastErr)
}

// TestConnection runs a throwaway generation to verify credentials.
func (g *GeminiGenerator) TestConnection(ctx context.Context) error {
	_, err := g.GenerateMenuItemImage(ctx, Request{ItemName: "test dish", Description: "a simple test dish"})
	return err
}

func callImageModel(ctx context.Context, client *genai.Client, model, prompt string) (*Image, error) {
	result, err := client.Models.GenerateContent(
		ctx,
		model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{},
	)
	if err != nil {
		return nil, err
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return nil, errors.New("no candidates in model response")
	}

	for _, part := range result.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			mime := part.InlineData.MIMEType
			if mime == "" {
				mime = "image/png"
			}
			return &Image{Data: part.InlineData.Data, MIME: mime}, nil
		}
	}

	return nil, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
