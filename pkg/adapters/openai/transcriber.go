package openai

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"strings"

	"github.com/openai/openai-go"
)

// Transcribe converts a voice note to Spanish text.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*c.timeout)
	defer cancel()

	resp, err := c.api.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:     openai.File(bytes.NewReader(audio), "voice"+extension(mimeType), mimeType),
		Model:    c.transcribeModel,
		Language: openai.String("es"),
	})
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// extension picks a file name suffix the API accepts for the media type.
func extension(mimeType string) string {
	base, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return ".ogg"
	}
	switch base {
	case "audio/ogg", "audio/opus":
		return ".ogg"
	case "audio/mpeg":
		return ".mp3"
	case "audio/mp4", "audio/aac":
		return ".m4a"
	case "audio/amr":
		return ".amr"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	}
	return ".ogg"
}
