package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
)

// ErrOracleDown is returned by Classifier when Fail is set.
var ErrOracleDown = errors.New("classifier unavailable")

// Classifier is a scripted ports.Classifier.
type Classifier struct {
	mu sync.Mutex

	Classification domain.Classification
	Reply          domain.SalesReply
	Selection      []domain.OptionID
	Fail           bool

	Calls int
}

// ClassifyIntent returns the scripted classification.
func (c *Classifier) ClassifyIntent(ctx context.Context, text string, cc domain.ClassifyContext) (domain.Classification, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls++
	if c.Fail {
		return domain.Classification{}, ErrOracleDown
	}
	if c.Classification.Intent == "" {
		return domain.Classification{Intent: domain.IntentChat}, nil
	}
	return c.Classification, nil
}

// GenerateResponse returns the scripted reply.
func (c *Classifier) GenerateResponse(ctx context.Context, text string, cc domain.ChatContext) (domain.SalesReply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls++
	if c.Fail {
		return domain.SalesReply{}, ErrOracleDown
	}
	return c.Reply, nil
}

// InterpretSelection returns the scripted option ids.
func (c *Classifier) InterpretSelection(ctx context.Context, text string, options []domain.Option) ([]domain.OptionID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls++
	if c.Fail {
		return nil, ErrOracleDown
	}
	return c.Selection, nil
}
