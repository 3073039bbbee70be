// Package openai implements the language ports on an OpenAI-compatible API:
// intent classification, sales replies and option matching in JSON mode, and
// voice note transcription.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/YOKOPOKE/yokopoke-sub000/internal/logging"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	DefaultModel           = openai.ChatModelGPT4oMini
	DefaultTranscribeModel = openai.AudioModelWhisper1
	// DefaultTimeout bounds each call so a slow model never stalls a turn.
	DefaultTimeout = 8 * time.Second
)

var errEmptyCompletion = errors.New("completion returned no choices")

// Config holds the API credentials and models.
type Config struct {
	APIKey string
	// BaseURL points at an OpenAI-compatible endpoint. Empty uses api.openai.com.
	BaseURL         string
	Model           string
	TranscribeModel string
	Timeout         time.Duration
}

// Client is a ports.Classifier and ports.Transcriber.
type Client struct {
	api             openai.Client
	model           openai.ChatModel
	transcribeModel openai.AudioModel
	timeout         time.Duration
	logger          *slog.Logger
}

// Option configures the Client.
type Option func(*clientOptions)

type clientOptions struct {
	logger     *slog.Logger
	httpClient *http.Client
}

// WithLogger configures a logger for the Client.
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithHTTPClient replaces the HTTP client used for API calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = c
	}
}

// New creates a Client from cfg.
func New(cfg Config, opts ...Option) *Client {
	o := clientOptions{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(1),
	}
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		reqOpts = append(reqOpts, option.WithBaseURL(base))
	}
	if o.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(o.httpClient))
	}

	c := &Client{
		api:             openai.NewClient(reqOpts...),
		model:           DefaultModel,
		transcribeModel: DefaultTranscribeModel,
		timeout:         cfg.Timeout,
		logger:          o.logger,
	}
	if cfg.Model != "" {
		c.model = openai.ChatModel(cfg.Model)
	}
	if cfg.TranscribeModel != "" {
		c.transcribeModel = openai.AudioModel(cfg.TranscribeModel)
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	return c
}

// completeJSON runs a JSON-mode chat completion and decodes the answer into out.
func (c *Client) completeJSON(ctx context.Context, system, user string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		return fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return errEmptyCompletion
	}
	c.logger.Debug("Completion received", "model", c.model, "duration", time.Since(start), "tokens", resp.Usage.TotalTokens)

	content := extractJSON(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("failed to decode completion: %w", err)
	}
	return nil
}

var fencePattern = regexp.MustCompile("(?s)```(?:json)?(.*?)```")

// extractJSON tolerates models that wrap the object in prose or code fences.
func extractJSON(s string) string {
	if m := fencePattern.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	start, end := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return strings.TrimSpace(s)
}
