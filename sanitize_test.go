package yokopoke_test

import (
	"strings"
	"testing"

	"github.com/YOKOPOKE/yokopoke-sub000"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		limit int
		want  string
	}{
		{"plain", "quiero un poke", 100, "quiero un poke"},
		{"keeps newlines and tabs", "uno\ndos\tTres", 100, "uno\ndos\tTres"},
		{"strips ansi and null", "ho\x1b[31mla\x00", 100, "ho[31mla"},
		{"repairs utf8", "caf\xc3", 100, "caf"},
		{"trims", "  hola  ", 100, "hola"},
		{"no limit", strings.Repeat("a", 50), 0, strings.Repeat("a", 50)},
		{"truncates runes", "ñañaña", 4, "ñaña... (truncado)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, yokopoke.SanitizeInput(tt.input, tt.limit))
		})
	}
}
