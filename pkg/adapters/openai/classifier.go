package openai

import (
	"context"

	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
)

// ClassifyIntent labels the customer's message. Labels outside the closed
// intent set are mapped to CHAT.
func (c *Client) ClassifyIntent(ctx context.Context, text string, cc domain.ClassifyContext) (domain.Classification, error) {
	var out domain.Classification
	if err := c.completeJSON(ctx, classifySystem, classifyPrompt(text, cc), &out); err != nil {
		return domain.Classification{}, err
	}
	if !out.Intent.Known() {
		c.logger.Warn("Classifier returned unknown intent", "intent", out.Intent)
		out.Intent = domain.IntentChat
	}
	return out, nil
}

// GenerateResponse writes a sales reply. Products in AddToCart are unverified
// and must be checked against the catalog by the caller.
func (c *Client) GenerateResponse(ctx context.Context, text string, cc domain.ChatContext) (domain.SalesReply, error) {
	var out domain.SalesReply
	if err := c.completeJSON(ctx, salesSystem, salesPrompt(text, cc), &out); err != nil {
		return domain.SalesReply{}, err
	}
	if len(out.SuggestedActions) > 2 {
		out.SuggestedActions = out.SuggestedActions[:2]
	}
	return out, nil
}

// InterpretSelection maps free text to option ids. Unknown ids are returned as
// is; the builder discards them.
func (c *Client) InterpretSelection(ctx context.Context, text string, options []domain.Option) ([]domain.OptionID, error) {
	var out struct {
		IDs []domain.OptionID `json:"ids"`
	}
	if err := c.completeJSON(ctx, selectionSystem, selectionPrompt(text, options), &out); err != nil {
		return nil, err
	}
	return out.IDs, nil
}
