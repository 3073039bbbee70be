package openai

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
)

const maxInput = 500

var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignora\s+(todo|las|lo|el|la)`),
	regexp.MustCompile(`(?i)ignore\s+(all|everything|above|previous)`),
	regexp.MustCompile(`(?i)olvida\s+(todo|las|lo)`),
	regexp.MustCompile(`(?i)forget\s+(all|everything)`),
	regexp.MustCompile(`(?i)new\s+instructions?`),
	regexp.MustCompile(`(?i)system\s*prompt`),
	regexp.MustCompile(`(?i)act\s+as`),
	regexp.MustCompile(`(?i)you\s+are\s+now`),
}

// sanitize truncates customer text and strips common prompt injection phrases.
func sanitize(text string) string {
	if r := []rune(text); len(r) > maxInput {
		text = string(r[:maxInput])
	}
	for _, p := range injectionPatterns {
		text = p.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}

const classifySystem = `Eres el clasificador de intenciones de Yoko Poke, un restaurante de poke bowls que vende por WhatsApp.
Analiza el ÚLTIMO mensaje del cliente y responde SOLO un objeto JSON:
{"intent": "...", "confidence": 0.0-1.0, "entities": {"products": [{"slug": "...", "name": "...", "quantity": 1}], "product": "...", "category": "..."}}

Intenciones válidas:
- ADD_TO_CART: pide productos del menú ("dame un spicy tuna", "dos limonadas").
- CATEGORY_FILTER: quiere ver el menú o una categoría ("ver bebidas", "la carta").
- START_BUILDER: quiere armar o personalizar su poke ("armar", "mediano", "grande").
- CHECKOUT: quiere finalizar ("eso es todo", "pagar"; "listo" con carrito lleno).
- INFO: horarios, ubicación, formas de pago.
- STATUS: pregunta por un pedido ya hecho.
- CHAT: recomendaciones, preguntas abiertas o cualquier otra cosa.
Usa solo productos y categorías del contexto. No inventes.`

const salesSystem = `Eres "Poki", el asistente de ventas de Yoko Poke. Español, tutea, breve y cálido.
Responde SOLO un objeto JSON:
{"text": "respuesta", "suggested_actions": ["máximo 2 botones"], "add_to_cart": [{"slug": "...", "name": "...", "quantity": 1}]}

Reglas:
1. Responde directo como Poki. No rompas personaje.
2. Usa el historial para entender el contexto.
3. Si el cliente pide productos, ponlos en "add_to_cart" y confírmalo en el texto.
4. Si quiere personalizar su poke, sugiere el botón "Armar Poke".
5. Si tiene comida pero no bebida, sugiere una bebida con sutileza.
6. NUNCA inventes productos, precios ni opciones: usa solo el MENÚ DISPONIBLE.`

const selectionSystem = `Eres un mesero experto de Yoko Poke. El cliente está eligiendo ingredientes de un paso.
Identifica qué opciones quiere. Entiende sinónimos y modismos ("arrocito" = Arroz, "palta" = Aguacate).
Si dice "todo", devuelve todas; si dice "nada" o "ninguno", devuelve una lista vacía. Ignora texto no relacionado.
Responde SOLO un objeto JSON: {"ids": ["id1", "id2"]}`

func classifyPrompt(text string, cc domain.ClassifyContext) string {
	var b strings.Builder
	writeHistory(&b, cc.History)
	writeCart(&b, cc.Cart)
	fmt.Fprintf(&b, "MODO: %s\n", cc.Mode)
	if len(cc.Categories) > 0 {
		names := make([]string, 0, len(cc.Categories))
		for _, c := range cc.Categories {
			names = append(names, fmt.Sprintf("%s (%s)", c.Name, c.Slug))
		}
		fmt.Fprintf(&b, "CATEGORÍAS: %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintf(&b, "MENSAJE ACTUAL DEL CLIENTE: %q", sanitize(text))
	return b.String()
}

func salesPrompt(text string, cc domain.ChatContext) string {
	var b strings.Builder
	writeHistory(&b, cc.History)
	b.WriteString("MENÚ DISPONIBLE:\n")
	for _, p := range cc.Products {
		fmt.Fprintf(&b, "- %s (slug %s): %s\n", p.Name, p.Slug, p.BasePrice)
	}
	writeCart(&b, cc.Cart)
	if cc.CustomerName != "" {
		fmt.Fprintf(&b, "CLIENTE: %s\n", cc.CustomerName)
	}
	if !cc.Open {
		b.WriteString("AVISO: el restaurante está cerrado; los pedidos quedan como preorden.\n")
	}
	fmt.Fprintf(&b, "MENSAJE DEL CLIENTE: %q", sanitize(text))
	return b.String()
}

func selectionPrompt(text string, options []domain.Option) string {
	var b strings.Builder
	b.WriteString("OPCIONES DISPONIBLES (id: nombre):\n")
	for _, o := range options {
		fmt.Fprintf(&b, "%s: %s\n", o.ID, o.Name)
	}
	fmt.Fprintf(&b, "MENSAJE DEL CLIENTE: %q", sanitize(text))
	return b.String()
}

func writeHistory(b *strings.Builder, history []domain.Exchange) {
	if len(history) == 0 {
		return
	}
	b.WriteString("CONVERSACIÓN RECIENTE:\n")
	for _, h := range history {
		who := "Cliente"
		if h.Role != "user" {
			who = "Poki"
		}
		text := h.Text
		if r := []rune(text); len(r) > 100 {
			text = string(r[:100])
		}
		fmt.Fprintf(b, "%s: %s\n", who, text)
	}
}

func writeCart(b *strings.Builder, cart []domain.LineItem) {
	if len(cart) == 0 {
		b.WriteString("CARRITO VACÍO\n")
		return
	}
	labels := make([]string, 0, len(cart))
	for _, it := range cart {
		labels = append(labels, it.Label())
	}
	fmt.Fprintf(b, "CARRITO: %s. Total: %s\n", strings.Join(labels, ", "), domain.CartTotal(cart))
}
