package tui_test

import (
	"testing"

	"github.com/YOKOPOKE/yokopoke-sub000/internal/presentation/tui"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChoices(t *testing.T) {
	resp := domain.Response{
		Text:    "Elige",
		Buttons: []domain.Button{{ID: "menu", Title: "Ver Menú"}},
		List: &domain.List{Sections: []domain.Section{
			{Title: "Pokes", Rows: []domain.Row{{ID: "add:poke-atun", Title: "Poke de Atún"}}},
			{Title: "Bebidas", Rows: []domain.Row{{ID: "add:agua-jamaica", Title: "Agua de Jamaica"}}},
		}},
	}

	assert.Equal(t, []tui.Choice{
		{ID: "menu", Title: "Ver Menú"},
		{ID: "add:poke-atun", Title: "Poke de Atún"},
		{ID: "add:agua-jamaica", Title: "Agua de Jamaica"},
	}, tui.Choices(resp))
	assert.Empty(t, tui.Choices(domain.Text("hola")))
}

func TestMarkdown(t *testing.T) {
	resp := domain.Response{
		Text: "🥗 *Menú*\nElige una categoría",
		List: &domain.List{
			Header: "Yoko Poke",
			Sections: []domain.Section{{
				Title: "Pokes",
				Rows:  []domain.Row{{ID: "build:poke-grande", Title: "Poke Grande", Description: "Desde $189.00"}},
			}},
		},
	}

	md := tui.Markdown(resp)

	assert.Contains(t, md, "### Yoko Poke")
	assert.Contains(t, md, "🥗 *Menú*  \nElige una categoría  \n")
	assert.Contains(t, md, "**Pokes**")
	assert.Contains(t, md, "1. Poke Grande _Desde $189.00_")
}

func TestMarkdown_ButtonsAndLocation(t *testing.T) {
	resp := domain.WithButtons("¿Confirmas?", domain.Button{ID: "si", Title: "Sí"}, domain.Button{ID: "no", Title: "No"})
	md := tui.Markdown(resp)
	assert.Contains(t, md, "1. [ Sí ]\n2. [ No ]\n")

	loc := domain.Response{Text: "Aquí estamos", Location: &domain.Location{Latitude: 19.4, Longitude: -99.1, Name: "Yoko Poke"}}
	assert.Contains(t, tui.Markdown(loc), "📍 Yoko Poke")
}

func TestNewRenderer_Plain(t *testing.T) {
	render, err := tui.NewRenderer(false)
	require.NoError(t, err)

	out, err := render(domain.Text("hola"))
	require.NoError(t, err)
	assert.Equal(t, "hola  \n", out)
}
