package router_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/YOKOPOKE/yokopoke-sub000/internal/testutils"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/adapters/memory"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/builder"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/checkout"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/hours"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/router"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const phone = "5215512345678"

var (
	cdmx    = time.FixedZone("CST", -6*60*60)
	evening = time.Date(2026, 6, 5, 18, 0, 0, 0, cdmx)
	morning = time.Date(2026, 6, 5, 10, 0, 0, 0, cdmx)
)

type env struct {
	router *router.Router
	orders *memory.OrderStore
	oracle *testutils.Classifier
	clock  *testutils.Clock
}

func newEnv(t *testing.T, at time.Time) *env {
	t.Helper()
	sched, err := hours.New(14, 22, cdmx)
	require.NoError(t, err)
	e := &env{
		orders: memory.NewOrderStore(),
		oracle: &testutils.Classifier{},
		clock:  testutils.NewClock(at),
	}
	catalog := testutils.Catalog(t)
	e.router = router.New(catalog, e.orders,
		router.WithSchedule(sched),
		router.WithClassifier(e.oracle),
		router.WithBuilder(builder.New(catalog, builder.WithClassifier(e.oracle))),
		router.WithCheckout(checkout.New(e.orders, checkout.WithSchedule(sched), checkout.WithClock(e.clock))),
	)
	return e
}

// known returns a session that already had a conversation.
func known(at time.Time) *domain.Session {
	s := domain.NewSession(phone, at.Add(-time.Hour))
	s.LastInteraction = at.Add(-time.Minute)
	return s
}

func turnAt(sess *domain.Session, at time.Time, texts ...string) *session.Turn {
	batch := make([]domain.PendingMessage, 0, len(texts))
	for i, text := range texts {
		batch = append(batch, domain.PendingMessage{
			ID:         fmt.Sprintf("m%d", i),
			Text:       text,
			Kind:       domain.KindText,
			ReceivedAt: at.Add(time.Duration(i) * time.Millisecond),
		})
	}
	input, kept := session.Aggregate(batch)
	return &session.Turn{Session: sess, Input: input, Messages: kept, Now: at}
}

func (e *env) say(t *testing.T, sess *domain.Session, at time.Time, texts ...string) []domain.Response {
	t.Helper()
	out, err := e.router.HandleTurn(context.Background(), turnAt(sess, at, texts...))
	require.NoError(t, err)
	return out
}

func rowIDs(resp domain.Response) []string {
	var ids []string
	if resp.List == nil {
		return nil
	}
	for _, s := range resp.List.Sections {
		for _, r := range s.Rows {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

func TestRouter_GreetsFreshSessionOnce(t *testing.T) {
	e := newEnv(t, evening)
	sess := domain.NewSession(phone, evening)

	out := e.say(t, sess, evening, "hola")

	require.Len(t, out, 1)
	assert.Contains(t, out[0].Text, "Bienvenido")
	assert.Equal(t, router.MenuReplyID, out[0].Buttons[0].ID)
	assert.Zero(t, e.oracle.Calls)
	require.Len(t, sess.History, 2)
	assert.Equal(t, "user", sess.History[0].Role)
}

func TestRouter_MenuNavigation(t *testing.T) {
	e := newEnv(t, evening)
	sess := known(evening)

	out := e.say(t, sess, evening, "Menú")
	require.Len(t, out, 1)
	assert.Equal(t, []string{"build:poke-grande", "cat:pokes", "cat:bebidas"}, rowIDs(out[0]))

	out = e.say(t, sess, evening, "cat:bebidas")
	require.Len(t, out, 1)
	assert.ElementsMatch(t, []string{"add:agua-jamaica", "add:limonada"}, rowIDs(out[0]))

	out = e.say(t, sess, evening, "cat:pokes")
	assert.ElementsMatch(t, []string{"build:poke-grande", "add:poke-atun"}, rowIDs(out[0]))

	e.say(t, sess, evening, "add:limonada")
	require.Len(t, sess.Cart, 1)
	assert.Equal(t, "limonada", sess.Cart[0].Slug)
	assert.Equal(t, domain.Pesos(40), sess.Cart[0].UnitPrice)
}

func TestRouter_ProductNamesInText(t *testing.T) {
	t.Run("quantity", func(t *testing.T) {
		e := newEnv(t, evening)
		sess := known(evening)

		e.say(t, sess, evening, "dame 2 agua de jamaica")

		require.Len(t, sess.Cart, 1)
		assert.Equal(t, 2, sess.Cart[0].Quantity)
		assert.Zero(t, e.oracle.Calls)
	})

	t.Run("simple plus customizable", func(t *testing.T) {
		e := newEnv(t, evening)
		sess := known(evening)

		out := e.say(t, sess, evening, "una limonada mineral y un poke grande")

		require.Len(t, sess.Cart, 1)
		assert.Equal(t, "limonada", sess.Cart[0].Slug)
		assert.Equal(t, domain.ModeBuilder, sess.Mode.Name())
		assert.Len(t, out, 3)
	})
}

func TestRouter_BuilderCompletionEntersCheckout(t *testing.T) {
	e := newEnv(t, evening)
	sess := known(evening)

	e.say(t, sess, evening, "build:poke-grande")
	require.Equal(t, domain.ModeBuilder, sess.Mode.Name())
	e.say(t, sess, evening, "arroz")
	e.say(t, sess, evening, "atun", "listo")
	out := e.say(t, sess, evening, "listo")

	require.Equal(t, domain.ModeCheckout, sess.Mode.Name())
	require.Len(t, sess.Cart, 1)
	assert.Equal(t, domain.Pesos(189), sess.Cart[0].UnitPrice)
	assert.Equal(t, []string{"Base: Arroz", "Proteína: Atún"}, sess.Cart[0].Details)
	require.Len(t, out, 2)
	assert.Contains(t, out[0].Text, "Poke Grande")
	assert.Contains(t, out[1].Text, "¿A nombre de quién")
}

func TestRouter_PauseAndResume(t *testing.T) {
	e := newEnv(t, evening)
	sess := known(evening)
	sess.Cart = []domain.LineItem{{Slug: "limonada", Name: "Limonada Mineral", UnitPrice: domain.Pesos(40), Quantity: 1}}

	out := e.say(t, sess, evening, "agente")
	require.Len(t, out, 1)
	require.Equal(t, domain.ModePaused, sess.Mode.Name())

	out = e.say(t, sess, evening.Add(10*time.Minute), "hola?")
	assert.Empty(t, out, "paused sessions stay silent")

	out = e.say(t, sess, evening.Add(20*time.Minute), "gracias", "bot")
	require.Len(t, out, 1)
	assert.Equal(t, domain.ModeNormal, sess.Mode.Name())
	assert.Len(t, sess.Cart, 1, "pausing keeps the cart")

	e.say(t, sess, evening.Add(30*time.Minute), "humano")
	out = e.say(t, sess, evening.Add(91*time.Minute), "hola")
	assert.Equal(t, domain.ModeNormal, sess.Mode.Name(), "pause expires on its own")
	require.Len(t, out, 1)
	assert.Contains(t, out[0].Text, "Hola")
}

func TestRouter_ResumeWordIgnoredWhenNotPaused(t *testing.T) {
	e := newEnv(t, evening)
	sess := known(evening)

	e.say(t, sess, evening, "bot")

	assert.Equal(t, domain.ModeNormal, sess.Mode.Name())
	assert.Positive(t, e.oracle.Calls, "falls through to the classifier")
}

func TestRouter_Reset(t *testing.T) {
	e := newEnv(t, evening)
	sess := known(evening)
	sess.Cart = []domain.LineItem{{Slug: "limonada", Quantity: 1}}
	sess.Mode = domain.BuilderMode{State: domain.NewBuilderState("poke-grande")}

	e.say(t, sess, evening, "/reset")

	assert.Equal(t, domain.ModeNormal, sess.Mode.Name())
	assert.Empty(t, sess.Cart)
}

func TestRouter_AfterHoursGate(t *testing.T) {
	e := newEnv(t, morning)
	sess := known(morning)

	out := e.say(t, sess, morning, "hola")
	require.Len(t, out, 1)
	require.Len(t, out[0].Buttons, 1)
	assert.Equal(t, router.AfterHoursReplyID, out[0].Buttons[0].ID)
	assert.Contains(t, out[0].Text, "cerrados")

	out = e.say(t, sess, morning, router.AfterHoursReplyID)
	assert.True(t, sess.AfterHoursAck)
	assert.Contains(t, out[0].Text, "14:00")

	out = e.say(t, sess, morning, "menu")
	require.NotNil(t, out[0].List)
}

func TestRouter_PausedSkipsGate(t *testing.T) {
	e := newEnv(t, morning)
	sess := known(morning)
	sess.Mode = domain.PausedMode{Until: morning.Add(time.Hour)}

	out := e.say(t, sess, morning, "hola")

	assert.Empty(t, out)
}

func TestRouter_ClassifierAddToCartDropsInventedProducts(t *testing.T) {
	e := newEnv(t, evening)
	e.oracle.Classification = domain.Classification{
		Intent: domain.IntentAddToCart,
		Entities: map[string]any{
			"products": []any{
				map[string]any{"name": "Sushi Dorado", "quantity": "2"},
				map[string]any{"slug": "limonada", "quantity": "3"},
			},
		},
	}
	sess := known(evening)

	e.say(t, sess, evening, "algo refrescante para tomar")

	require.Len(t, sess.Cart, 1)
	assert.Equal(t, "limonada", sess.Cart[0].Slug)
	assert.Equal(t, 3, sess.Cart[0].Quantity)
}

func TestRouter_ClassifierOnlyInventedProducts(t *testing.T) {
	e := newEnv(t, evening)
	e.oracle.Classification = domain.Classification{
		Intent:   domain.IntentAddToCart,
		Entities: map[string]any{"products": []any{map[string]any{"id": 99, "name": "Ramen"}}},
	}
	sess := known(evening)

	out := e.say(t, sess, evening, "algo calientito")

	assert.Empty(t, sess.Cart)
	require.Len(t, out, 1)
	assert.Contains(t, out[0].Text, "No encontré")
}

func TestRouter_ClassifierFailureSendsCannedReply(t *testing.T) {
	e := newEnv(t, evening)
	e.oracle.Fail = true
	sess := known(evening)

	out := e.say(t, sess, evening, "qué onda con el clima")

	require.Len(t, out, 1)
	assert.Contains(t, out[0].Text, "no te entendí")
	assert.Equal(t, router.MenuReplyID, out[0].Buttons[0].ID)
}

func TestRouter_ChatRevalidatesCartMutation(t *testing.T) {
	e := newEnv(t, evening)
	e.oracle.Reply = domain.SalesReply{
		Text:             "Te recomiendo la limonada 🍋",
		SuggestedActions: []string{"Ver menú", "Agregar limonada", "Finalizar pedido", "Otra cosa"},
		AddToCart: []domain.RequestedProduct{
			{Name: "Limonada Mineral", Quantity: 1},
			{Slug: "unicornio-azul"},
		},
	}
	sess := known(evening)

	out := e.say(t, sess, evening, "qué me recomiendas de tomar")

	require.Len(t, out, 2)
	assert.Len(t, out[0].Buttons, domain.MaxButtons)
	assert.Equal(t, "ver menu", out[0].Buttons[0].ID)
	require.Len(t, sess.Cart, 1)
	assert.Equal(t, "limonada", sess.Cart[0].Slug)
}

func TestRouter_ConfirmAfterRecentOrder(t *testing.T) {
	e := newEnv(t, evening)
	sess := known(evening)
	sess.LastOrderID = "3f9c1d2e-0000-4000-8000-000000000000"
	sess.LastOrderAt = evening.Add(-5 * time.Minute)

	out := e.say(t, sess, evening, "confirmar")

	require.Len(t, out, 1)
	assert.Contains(t, out[0].Text, "#3F9C1D")
	assert.Contains(t, out[0].Text, "ya está registrado")
	assert.Empty(t, e.orders.Orders())
}

func TestRouter_Reorder(t *testing.T) {
	e := newEnv(t, evening)
	sess := known(evening)
	_, err := e.orders.InsertOrder(context.Background(), &domain.Order{
		IdempotencyKey: "old",
		Phone:          phone,
		Items: []domain.LineItem{
			{Slug: "limonada", Name: "Limonada Mineral", UnitPrice: domain.Pesos(30), Quantity: 2},
			{Slug: "descontinuado", Name: "Poke Viejo", UnitPrice: domain.Pesos(99), Quantity: 1},
		},
	})
	require.NoError(t, err)

	out := e.say(t, sess, evening, "lo de siempre")

	require.Len(t, sess.Cart, 1)
	assert.Equal(t, 2, sess.Cart[0].Quantity)
	assert.Equal(t, domain.Pesos(40), sess.Cart[0].UnitPrice, "repriced at today's price")
	assert.Contains(t, out[0].Text, "Lo de siempre")
}

func TestRouter_CartCommands(t *testing.T) {
	e := newEnv(t, evening)
	sess := known(evening)
	sess.Cart = []domain.LineItem{{Slug: "limonada", Name: "Limonada Mineral", UnitPrice: domain.Pesos(40), Quantity: 2}}

	out := e.say(t, sess, evening, "ver carrito")
	assert.Contains(t, out[0].Text, "$80")

	out = e.say(t, sess, evening, "finalizar pedido")
	assert.Equal(t, domain.ModeCheckout, sess.Mode.Name())
	assert.Contains(t, out[0].Text, "$80")

	sess.Mode = domain.NormalMode{}
	e.say(t, sess, evening, "vaciar carrito")
	assert.Empty(t, sess.Cart)

	out = e.say(t, sess, evening, "finalizar pedido")
	assert.Equal(t, domain.ModeNormal, sess.Mode.Name())
	assert.Contains(t, out[0].Text, "vacío")
}

func TestRouter_ReorderSkipsProductsOffTheMenu(t *testing.T) {
	t.Run("partially", func(t *testing.T) {
		e := newEnv(t, evening)
		sess := known(evening)
		_, err := e.orders.InsertOrder(context.Background(), &domain.Order{
			IdempotencyKey: "old",
			Phone:          phone,
			Items: []domain.LineItem{
				{Slug: "agua-horchata", Name: "Agua de Horchata", UnitPrice: domain.Pesos(35), Quantity: 1},
				{Slug: "agua-jamaica", Name: "Agua de Jamaica", UnitPrice: domain.Pesos(35), Quantity: 1},
			},
		})
		require.NoError(t, err)

		e.say(t, sess, evening, "lo de siempre")

		require.Len(t, sess.Cart, 1)
		assert.Equal(t, "agua-jamaica", sess.Cart[0].Slug)
	})

	t.Run("entirely", func(t *testing.T) {
		e := newEnv(t, evening)
		sess := known(evening)
		_, err := e.orders.InsertOrder(context.Background(), &domain.Order{
			IdempotencyKey: "old",
			Phone:          phone,
			Items:          []domain.LineItem{{Slug: "agua-horchata", Name: "Agua de Horchata", UnitPrice: domain.Pesos(35), Quantity: 1}},
		})
		require.NoError(t, err)

		out := e.say(t, sess, evening, "lo de siempre")

		assert.Empty(t, sess.Cart)
		require.Len(t, out, 1)
		assert.Contains(t, out[0].Text, "ya no está disponible")
		assert.NotContains(t, out[0].Text, "¿Lo confirmamos?")
	})
}

func TestRouter_AddReplyForProductOffTheMenu(t *testing.T) {
	e := newEnv(t, evening)
	sess := known(evening)

	out := e.say(t, sess, evening, "add:agua-horchata")

	assert.Empty(t, sess.Cart)
	require.Len(t, out, 1)
	assert.Contains(t, out[0].Text, "ya no está disponible")
}

func TestRouter_CheckoutKeepsAbbreviationsInOneMessage(t *testing.T) {
	e := newEnv(t, evening)
	sess := known(evening)
	sess.Cart = []domain.LineItem{{Slug: "limonada", Name: "Limonada Mineral", UnitPrice: domain.Pesos(40), Quantity: 1}}

	e.say(t, sess, evening, "finalizar pedido")
	require.Equal(t, domain.ModeCheckout, sess.Mode.Name())

	e.say(t, sess, evening, "Juan P. Gómez")
	cm, ok := sess.Mode.(domain.CheckoutMode)
	require.True(t, ok)
	assert.Equal(t, "Juan P. Gómez", cm.State.CustomerName)
	assert.Equal(t, domain.StepCollectDelivery, cm.State.Step)

	e.say(t, sess, evening, "a domicilio")
	out := e.say(t, sess, evening, "Av. Reforma 123, Col. Centro")

	cm, ok = sess.Mode.(domain.CheckoutMode)
	require.True(t, ok)
	assert.Equal(t, domain.StepShowSummary, cm.State.Step)
	assert.Equal(t, "Av. Reforma 123, Col. Centro", cm.State.Address)
	require.NotEmpty(t, out)
	assert.Contains(t, out[len(out)-1].Text, "Av. Reforma 123, Col. Centro")
}

func TestRouter_CheckoutBurstWithAbbreviations(t *testing.T) {
	e := newEnv(t, evening)
	sess := known(evening)
	sess.Cart = []domain.LineItem{{Slug: "limonada", Name: "Limonada Mineral", UnitPrice: domain.Pesos(40), Quantity: 1}}
	e.say(t, sess, evening, "finalizar pedido")

	e.say(t, sess, evening, "Ma. Fernanda", "domicilio", "Calz. de Tlalpan 500, Col. Portales")

	cm, ok := sess.Mode.(domain.CheckoutMode)
	require.True(t, ok)
	assert.Equal(t, "Ma. Fernanda", cm.State.CustomerName)
	assert.Equal(t, domain.DeliveryDelivery, cm.State.DeliveryMethod)
	assert.Equal(t, "Calz. de Tlalpan 500, Col. Portales", cm.State.Address)
	assert.Equal(t, domain.StepShowSummary, cm.State.Step)
}

func TestRouter_BuilderTakesEachMessageWhole(t *testing.T) {
	e := newEnv(t, evening)
	sess := known(evening)
	e.say(t, sess, evening, "build:poke-grande")
	e.say(t, sess, evening, "arroz")

	e.say(t, sess, evening, "atun y salmon. porfa")

	bm, ok := sess.Mode.(domain.BuilderMode)
	require.True(t, ok)
	assert.Equal(t, []domain.OptionID{"atun", "salmon"}, bm.State.Selected("proteina"))
}
