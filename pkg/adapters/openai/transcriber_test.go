package openai_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscribe(t *testing.T) {
	api := &fakeAPI{}
	c := newClient(t, api)

	text, err := c.Transcribe(context.Background(), []byte("OggS fake audio"), "audio/ogg; codecs=opus")
	require.NoError(t, err)

	assert.Equal(t, "quiero un poke de atún", text)
	assert.Contains(t, api.paths, "/audio/transcriptions")
}
