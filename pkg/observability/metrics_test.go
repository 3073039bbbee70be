package observability_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	m := observability.NewMetrics()
	h := m.Hooks()
	ctx := context.Background()

	h.OnMessage(ctx, domain.KindText)
	h.OnMessage(ctx, domain.KindText)
	h.OnDrop(ctx, &domain.DropEvent{Reason: domain.DropDuplicate})
	h.OnTurn(ctx, &domain.TurnEvent{Mode: domain.ModeBuilder, Duration: 200 * time.Millisecond})
	h.OnTurn(ctx, &domain.TurnEvent{Mode: domain.ModeNormal, Err: errors.New("boom")})
	h.OnOrderCommitted(ctx, &domain.OrderEvent{Total: domain.Pesos(150), Status: domain.OrderPending})
	h.OnLockReclaimed(ctx, &domain.LockEvent{})
	h.OnSendFailure(ctx, errors.New("timeout"))

	count := func(name string) int {
		n, err := testutil.GatherAndCount(m.Registry(), name)
		require.NoError(t, err)
		return n
	}
	assert.Equal(t, 1, count("yokopoke_messages_received_total"), "one series per kind")
	assert.Equal(t, 2, count("yokopoke_turns_total"))
	assert.Equal(t, 1, count("yokopoke_orders_committed_total"))
}

func TestMetrics_Handler(t *testing.T) {
	m := observability.NewMetrics()
	m.Hooks().OnOrderCommitted(context.Background(), &domain.OrderEvent{Total: domain.Pesos(150), Status: domain.OrderPending})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "yokopoke_order_revenue_pesos_total 150")
	assert.Contains(t, rec.Body.String(), `yokopoke_orders_committed_total{status="pending"} 1`)
}
