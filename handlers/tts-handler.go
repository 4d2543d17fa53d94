package handler

import (
	"github.com/gofiber/fiber/v2"
)

type ttsRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voiceId"`
}

// TTS converts advisor text into MP3 audio via the speech provider.
func (h *Handler) TTS(c *fiber.Ctx) error {
	var req ttsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Text == "" {
		return badRequest(c, "Text is required")
	}

	audio, err := h.tts.Synthesize(c.UserContext(), req.Text, req.VoiceID)
	if err != nil {
		h.log.WithError(err).Error("TTS synthesis failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to synthesize speech",
		})
	}

	c.Set(fiber.HeaderContentType, "audio/mpeg")
	return c.Send(audio)
}
