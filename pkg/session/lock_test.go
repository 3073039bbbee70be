package session

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/YOKOPOKE/yokopoke-sub000/pkg/adapters/memory"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestManager_LocksAreReleased(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				phone := fmt.Sprintf("52155%08d", (w*500+i)%300)
				_, _ = mgr.Update(ctx, phone, func(s *domain.Session) error {
					s.Cart = domain.AddToCart(s.Cart, domain.LineItem{Slug: "agua-jamaica", Quantity: 1})
					return nil
				})
				_, _ = mgr.Expire(ctx, phone)
				if i%3 == 0 {
					_ = mgr.Reset(ctx, phone)
				}
				if i%7 == 0 {
					_ = mgr.Delete(ctx, phone)
				}
			}
		}(w)
	}
	wg.Wait()

	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	assert.Empty(t, mgr.locks, "per-session mutexes must not outlive their users")
}
