package ports

import (
	"context"

	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
)

// Classifier is the fallible language oracle consulted for free text.
// Every result is validated by the caller before it affects state.
type Classifier interface {
	ClassifyIntent(ctx context.Context, text string, cc domain.ClassifyContext) (domain.Classification, error)
	GenerateResponse(ctx context.Context, text string, cc domain.ChatContext) (domain.SalesReply, error)
	// InterpretSelection maps free text to option ids of the current builder step.
	InterpretSelection(ctx context.Context, text string, options []domain.Option) ([]domain.OptionID, error)
}

// Transcriber converts voice notes to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// MediaFetcher downloads inbound media by provider handle.
type MediaFetcher interface {
	FetchMedia(ctx context.Context, mediaID string) ([]byte, string, error)
}

// Gateway delivers outbound responses to a customer.
type Gateway interface {
	Send(ctx context.Context, to string, resp domain.Response) error
}
