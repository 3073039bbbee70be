package cli_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/YOKOPOKE/yokopoke-sub000/internal/cli"
	"github.com/YOKOPOKE/yokopoke-sub000/internal/logging"
	"github.com/YOKOPOKE/yokopoke-sub000/internal/presentation/tui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChat(t *testing.T) {
	render, err := tui.NewRenderer(false)
	require.NoError(t, err)
	var out bytes.Buffer
	gw := cli.NewTerminalGateway(&out, render)

	app, err := cli.Build(context.Background(), testConfig(), gw, logging.NewNop())
	require.NoError(t, err)
	defer app.Close()

	in := strings.NewReader("hola\n\n1\n/salir\nnunca llega\n")
	var prompt bytes.Buffer
	require.NoError(t, cli.Chat(context.Background(), app.Bot, gw, "5215500000000", in, &prompt))

	got := out.String()
	assert.Contains(t, got, "Bienvenido")
	assert.Contains(t, got, "1. [ Ver Menú ]")
	assert.Contains(t, got, "Menú Yoko Poke", "typing 1 taps the first button")
	assert.NotContains(t, got, "nunca llega")
	assert.Equal(t, 4, strings.Count(prompt.String(), "> "))
}

func TestChat_StopsOnCancel(t *testing.T) {
	render, err := tui.NewRenderer(false)
	require.NoError(t, err)
	gw := cli.NewTerminalGateway(&bytes.Buffer{}, render)
	app, err := cli.Build(context.Background(), testConfig(), gw, logging.NewNop())
	require.NoError(t, err)
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stdin := blockingReader(make(chan struct{}))
	assert.NoError(t, cli.Chat(ctx, app.Bot, gw, "5215500000000", stdin, &bytes.Buffer{}))
}

// blockingReader never returns, like a terminal nobody types into.
type blockingReader chan struct{}

func (r blockingReader) Read(p []byte) (int, error) {
	<-r
	return 0, nil
}
