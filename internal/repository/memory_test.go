package repository

import (
	"context"
	"sync"
	"testing"

	"legaldesk/internal/domain"
)

func newMemoryStores(t *testing.T) stores {
	store := NewMemoryStore()
	store.now = fakeClock()
	return stores{
		users:    NewMemoryUsers(store),
		products: store,
		orders:   NewMemoryOrders(store),
		tx:       NewMemoryTx(store),
	}
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, newMemoryStores)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	p := domain.Product{Title: "A", Price: 10, Category: "X", WhatsIncluded: []string{"one"}}
	if err := store.Create(ctx, &p); err != nil {
		t.Fatalf("create: %v", err)
	}
	p.WhatsIncluded[0] = "mutated"

	got, err := store.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got.Title = "changed"
	got.WhatsIncluded[0] = "changed"

	again, _ := store.GetByID(ctx, p.ID)
	if again.Title != "A" || again.WhatsIncluded[0] != "one" {
		t.Fatalf("store leaked internal state: %+v", again)
	}
}

func TestMemoryUsers_EmailCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryUsers(NewMemoryStore())
	u := domain.User{Name: "A", Email: "a@example.com", Role: domain.RoleClient}
	if err := users.Create(ctx, &u); err != nil {
		t.Fatal(err)
	}
	dup := domain.User{Name: "B", Email: "A@Example.com", Role: domain.RoleClient}
	if err := users.Create(ctx, &dup); err != ErrDuplicate {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if got, err := users.GetByEmail(ctx, "A@EXAMPLE.COM"); err != nil || got.ID != u.ID {
		t.Fatalf("lookup: %v", err)
	}
}

func TestMemoryTx_NestedAndConcurrent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tx := NewMemoryTx(store)
	users := NewMemoryUsers(store)
	orders := NewMemoryOrders(store)

	u := domain.User{Name: "C", Email: "c@example.com", Role: domain.RoleClient}
	if err := users.Create(ctx, &u); err != nil {
		t.Fatal(err)
	}
	p := domain.Product{Title: "A", Price: 10, Category: "X"}
	if err := store.Create(ctx, &p); err != nil {
		t.Fatal(err)
	}

	// nested transaction must not deadlock on the write lock
	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		return tx.WithTransaction(ctx, func(ctx context.Context) error {
			o := domain.Order{UserID: u.ID, ProductID: p.ID, Status: domain.OrderStatusPending}
			return orders.Create(ctx, &o)
		})
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = tx.WithTransaction(ctx, func(ctx context.Context) error {
				o := domain.Order{UserID: u.ID, ProductID: p.ID, Status: domain.OrderStatusPending}
				return orders.Create(ctx, &o)
			})
			_, _ = orders.List(ctx, OrderFilter{})
		}()
	}
	wg.Wait()

	list, _ := orders.List(ctx, OrderFilter{UserID: u.ID})
	if len(list) != 21 {
		t.Fatalf("expected 21 orders, got %d", len(list))
	}
}
