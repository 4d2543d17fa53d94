package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/foodlens/food-lens-server/config"
)

const (
	defaultVoiceID = "JBFqnCBsd6RMkjVDRZzb" // George
	defaultModelID = "eleven_multilingual_v2"
)

// Client is a thin ElevenLabs text-to-speech passthrough.
type Client struct {
	apiKey  string
	voiceID string
	baseURL string
	http    *http.Client
}

func New() *Client {
	return &Client{
		apiKey:  config.ConfigDefault("ELEVENLABS_API_KEY", ""),
		voiceID: config.ConfigDefault("ELEVENLABS_VOICE_ID", defaultVoiceID),
		baseURL: "https://api.elevenlabs.io",
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type synthesizeRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
	OutputFormat  string        `json:"output_format"`
}

// Synthesize converts text to MP3 audio bytes.
func (c *Client) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, errors.New("missing ELEVENLABS_API_KEY")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("text is required")
	}
	if voiceID == "" {
		voiceID = c.voiceID
	}

	payload := synthesizeRequest{
		Text:    cleanText(text),
		ModelID: defaultModelID,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.8,
		},
		OutputFormat: "mp3_44100_128",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", c.baseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elevenlabs api error (%d): %s", res.StatusCode, string(raw))
	}

	audio, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio body: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("empty audio response")
	}
	return audio, nil
}

var markupRe = regexp.MustCompile(`[*_#\x60~]`)

// cleanText strips markup that reads badly when spoken.
func cleanText(text string) string {
	cleaned := markupRe.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(cleaned), " ")
}
