package whatsapp_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/YOKOPOKE/yokopoke-sub000/pkg/adapters/whatsapp"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type graphAPI struct {
	mu       sync.Mutex
	bodies   []map[string]any
	failures []int
	srv      *httptest.Server
}

func newGraphAPI(t *testing.T) *graphAPI {
	g := &graphAPI{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /phone-1/messages", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		g.mu.Lock()
		defer g.mu.Unlock()
		if len(g.failures) > 0 {
			status := g.failures[0]
			g.failures = g.failures[1:]
			http.Error(w, `{"error":{"message":"nope"}}`, status)
			return
		}
		var body map[string]any
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &body))
		g.bodies = append(g.bodies, body)
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.out"}]}`))
	})
	mux.HandleFunc("GET /media-9", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]string{
			"url":       g.srv.URL + "/download/media-9",
			"mime_type": "audio/ogg",
		})
	})
	mux.HandleFunc("GET /download/media-9", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte("OggS-bytes"))
	})
	g.srv = httptest.NewServer(mux)
	t.Cleanup(g.srv.Close)
	return g
}

func (g *graphAPI) client() *whatsapp.Client {
	return whatsapp.New(
		whatsapp.Config{PhoneNumberID: "phone-1", AccessToken: "token-1", BaseURL: g.srv.URL},
		whatsapp.WithBackOff(func() backoff.BackOff {
			return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 3)
		}),
	)
}

func (g *graphAPI) sent() []map[string]any {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.bodies
}

func TestClient_SendText(t *testing.T) {
	api := newGraphAPI(t)

	err := api.client().Send(context.Background(), "5215512345678", domain.Text("hola"))
	require.NoError(t, err)

	sent := api.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "whatsapp", sent[0]["messaging_product"])
	assert.Equal(t, "5215512345678", sent[0]["to"])
	assert.Equal(t, map[string]any{"body": "hola"}, sent[0]["text"])
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	api := newGraphAPI(t)
	api.failures = []int{http.StatusServiceUnavailable, http.StatusTooManyRequests}

	err := api.client().Send(context.Background(), "521", domain.Text("hola"))

	require.NoError(t, err)
	assert.Len(t, api.sent(), 1)
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	api := newGraphAPI(t)
	api.failures = []int{http.StatusBadRequest, http.StatusBadRequest}

	err := api.client().Send(context.Background(), "521", domain.Text("hola"))

	var apiErr *whatsapp.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	api.mu.Lock()
	assert.Len(t, api.failures, 1, "only one attempt")
	api.mu.Unlock()
}

func TestClient_GivesUpAfterRetries(t *testing.T) {
	api := newGraphAPI(t)
	api.failures = []int{500, 500, 500, 500, 500}

	err := api.client().Send(context.Background(), "521", domain.Text("hola"))

	assert.Error(t, err)
	api.mu.Lock()
	assert.Len(t, api.failures, 1, "one try plus three retries")
	api.mu.Unlock()
}

func TestClient_MarkRead(t *testing.T) {
	api := newGraphAPI(t)

	require.NoError(t, api.client().MarkRead(context.Background(), "wamid.1"))

	sent := api.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "read", sent[0]["status"])
	assert.Equal(t, "wamid.1", sent[0]["message_id"])
}

func TestClient_FetchMedia(t *testing.T) {
	api := newGraphAPI(t)

	data, mime, err := api.client().FetchMedia(context.Background(), "media-9")

	require.NoError(t, err)
	assert.Equal(t, "OggS-bytes", string(data))
	assert.Equal(t, "audio/ogg", mime)
}

func TestClient_FetchMediaUnknown(t *testing.T) {
	api := newGraphAPI(t)

	_, _, err := api.client().FetchMedia(context.Background(), "missing")

	assert.Error(t, err)
}
