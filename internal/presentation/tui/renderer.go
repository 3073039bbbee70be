// Package tui renders bot responses for the terminal chat simulator.
package tui

import (
	"fmt"
	"strings"

	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// Choice is a button or list row the customer can pick by number.
type Choice struct {
	ID    string
	Title string
}

// Choices returns the selectable entries of resp in display order.
func Choices(resp domain.Response) []Choice {
	var out []Choice
	for _, b := range resp.Buttons {
		out = append(out, Choice{ID: b.ID, Title: b.Title})
	}
	if resp.List != nil {
		for _, s := range resp.List.Sections {
			for _, r := range s.Rows {
				out = append(out, Choice{ID: r.ID, Title: r.Title})
			}
		}
	}
	return out
}

// Markdown converts a response to markdown. WhatsApp *bold* and _italic_
// are kept as they read fine either way; choices become a numbered list.
func Markdown(resp domain.Response) string {
	var sb strings.Builder
	if resp.List != nil && resp.List.Header != "" {
		fmt.Fprintf(&sb, "### %s\n\n", resp.List.Header)
	}
	for _, line := range strings.Split(resp.Text, "\n") {
		// Hard line breaks survive markdown rendering.
		sb.WriteString(line)
		sb.WriteString("  \n")
	}

	n := 0
	if len(resp.Buttons) > 0 {
		sb.WriteString("\n")
		for _, b := range resp.Buttons {
			n++
			fmt.Fprintf(&sb, "%d. [ %s ]\n", n, b.Title)
		}
	}
	if resp.List != nil {
		for _, s := range resp.List.Sections {
			sb.WriteString("\n")
			if s.Title != "" {
				fmt.Fprintf(&sb, "**%s**\n\n", s.Title)
			}
			for _, r := range s.Rows {
				n++
				fmt.Fprintf(&sb, "%d. %s", n, r.Title)
				if r.Description != "" {
					fmt.Fprintf(&sb, " _%s_", r.Description)
				}
				sb.WriteString("\n")
			}
		}
		if resp.List.Footer != "" {
			fmt.Fprintf(&sb, "\n%s\n", resp.List.Footer)
		}
	}
	if loc := resp.Location; loc != nil {
		fmt.Fprintf(&sb, "\n📍 %s %s (%.5f, %.5f)\n", loc.Name, loc.Address, loc.Latitude, loc.Longitude)
	}
	return sb.String()
}

// Renderer turns responses into terminal output.
type Renderer func(domain.Response) (string, error)

// NewRenderer returns a Renderer that styles markdown with glamour.
// Without styling it prints the markdown as is.
func NewRenderer(styled bool) (Renderer, error) {
	if !styled {
		return func(resp domain.Response) (string, error) {
			return Markdown(resp), nil
		}, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithEmoji(),
		glamour.WithWordWrap(72),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	return func(resp domain.Response) (string, error) {
		return r.Render(Markdown(resp))
	}, nil
}
