package testutils

import (
	"context"
	"sync"

	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
)

// Sent is one response captured by Gateway.
type Sent struct {
	To       string
	Response domain.Response
}

// Gateway records outbound responses instead of delivering them.
type Gateway struct {
	mu   sync.Mutex
	sent []Sent
	Err  error
}

// Send records the response.
func (g *Gateway) Send(ctx context.Context, to string, resp domain.Response) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, Sent{To: to, Response: resp})
	return g.Err
}

// Sent returns every captured response.
func (g *Gateway) Sent() []Sent {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Sent(nil), g.sent...)
}

// Texts returns the text of every response sent to a recipient.
func (g *Gateway) Texts(to string) []string {
	var out []string
	for _, s := range g.Sent() {
		if s.To == to {
			out = append(out, s.Response.Text)
		}
	}
	return out
}
