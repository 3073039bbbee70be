package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_ModeSurvivesEncoding(t *testing.T) {
	now := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		mode domain.Mode
	}{
		{"normal", domain.NormalMode{}},
		{"builder", domain.BuilderMode{State: domain.BuilderState{
			ProductSlug: "poke-grande",
			StepIndex:   1,
			Selections:  map[domain.StepID][]domain.OptionID{"base": {"arroz"}},
		}}},
		{"checkout", domain.CheckoutMode{State: domain.CheckoutState{
			Step:     domain.StepCollectDelivery,
			Items:    []domain.LineItem{{Slug: "poke-grande", Name: "Poke Grande", UnitPrice: domain.Pesos(189), Quantity: 1}},
			Total:    domain.Pesos(189),
			OrderKey: "key-1",
		}}},
		{"paused", domain.PausedMode{Until: now.Add(time.Hour)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := domain.NewSession("5215500000000", now)
			sess.Mode = tt.mode

			data, err := json.Marshal(sess)
			require.NoError(t, err)

			var loaded domain.Session
			require.NoError(t, json.Unmarshal(data, &loaded))
			assert.Empty(t, loaded.Repair(20))
			assert.Equal(t, tt.mode.Name(), loaded.Mode.Name())
			assert.Equal(t, tt.mode, loaded.Mode)
		})
	}
}

func TestSession_RepairMalformedRecords(t *testing.T) {
	tests := []struct {
		name   string
		record string
		want   domain.ModeName
	}{
		{"unknown mode", `{"id":"a","mode":"DANCING"}`, domain.ModeNormal},
		{"builder without state", `{"id":"a","mode":"BUILDER"}`, domain.ModeNormal},
		{"builder without product", `{"id":"a","mode":"BUILDER","builder":{"step_index":2}}`, domain.ModeNormal},
		{"checkout without state", `{"id":"a","mode":"CHECKOUT"}`, domain.ModeNormal},
		{"checkout in terminal step", `{"id":"a","mode":"CHECKOUT","checkout":{"step":"CONFIRMED"}}`, domain.ModeNormal},
		{"paused without deadline", `{"id":"a","mode":"PAUSED"}`, domain.ModeNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sess domain.Session
			require.NoError(t, json.Unmarshal([]byte(tt.record), &sess))

			fixes := sess.Repair(20)
			assert.NotEmpty(t, fixes)
			assert.Equal(t, tt.want, sess.Mode.Name())
		})
	}
}

func TestSession_RepairClampsFields(t *testing.T) {
	var sess domain.Session
	record := `{
		"id": "a",
		"mode": "BUILDER",
		"builder": {"product_slug": "poke-grande", "step_index": -3},
		"lock": {"holder": "x"},
		"bucket": {"tokens": 99},
		"pending": [{"text": ""}, {"text": "hola"}]
	}`
	require.NoError(t, json.Unmarshal([]byte(record), &sess))

	fixes := sess.Repair(20)

	assert.Len(t, fixes, 4)
	b, ok := sess.Mode.(domain.BuilderMode)
	require.True(t, ok)
	assert.Equal(t, 0, b.State.StepIndex)
	assert.NotNil(t, b.State.Selections)
	assert.False(t, sess.Lock.Held())
	assert.Equal(t, 0, sess.Bucket.Tokens)
	require.Len(t, sess.Pending, 1)
	assert.Equal(t, "hola", sess.Pending[0].Text)
}

func TestSession_CloneIsDeep(t *testing.T) {
	sess := domain.NewSession("a", time.Now())
	sess.Mode = domain.BuilderMode{State: domain.BuilderState{
		ProductSlug: "poke",
		Selections:  map[domain.StepID][]domain.OptionID{"base": {"arroz"}},
	}}
	sess.Cart = []domain.LineItem{{Slug: "agua", Quantity: 1, Details: []string{"fria"}}}

	cp := sess.Clone()
	cp.Mode.(domain.BuilderMode).State.Selections["base"][0] = "quinoa"
	cp.Cart[0].Details[0] = "natural"

	assert.Equal(t, domain.OptionID("arroz"), sess.Mode.(domain.BuilderMode).State.Selections["base"][0])
	assert.Equal(t, "fria", sess.Cart[0].Details[0])
}

func TestSession_HistoryIsCapped(t *testing.T) {
	sess := domain.NewSession("a", time.Now())
	for i := 0; i < domain.HistoryLimit+5; i++ {
		sess.Record("user", "hola", time.Now())
	}
	assert.Len(t, sess.History, domain.HistoryLimit)
}

func TestMoney_String(t *testing.T) {
	assert.Equal(t, "$150", domain.Pesos(150).String())
	assert.Equal(t, "$150.50", domain.Money(15050).String())
	assert.Equal(t, "-$5", domain.Pesos(-5).String())
}

func TestAddToCart_ConsolidatesSimpleItems(t *testing.T) {
	var cart []domain.LineItem
	cart = domain.AddToCart(cart, domain.LineItem{Slug: "agua", UnitPrice: domain.Pesos(30), Quantity: 1})
	cart = domain.AddToCart(cart, domain.LineItem{Slug: "agua", UnitPrice: domain.Pesos(30), Quantity: 2})
	cart = domain.AddToCart(cart, domain.LineItem{Slug: "poke", UnitPrice: domain.Pesos(150), Quantity: 1, Details: []string{"Base: Arroz"}})
	cart = domain.AddToCart(cart, domain.LineItem{Slug: "poke", UnitPrice: domain.Pesos(150), Quantity: 1, Details: []string{"Base: Arroz"}})

	require.Len(t, cart, 3)
	assert.Equal(t, 3, cart[0].Quantity)
	assert.Equal(t, domain.Pesos(390), domain.CartTotal(cart))
}
