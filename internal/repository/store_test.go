package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"legaldesk/internal/domain"
)

type stores struct {
	users    UserRepository
	products ProductRepository
	orders   OrderRepository
	tx       TxManager
}

// fakeClock returns strictly increasing timestamps
func fakeClock() func() time.Time {
	t0 := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return t0.Add(time.Duration(n) * time.Second)
	}
}

func strptr(s string) *string { return &s }

func seedUser(t *testing.T, s stores, email string, role domain.Role) domain.User {
	t.Helper()
	u := domain.User{Name: "User " + email, Email: email, PasswordHash: "hash", Role: role}
	if err := s.users.Create(context.Background(), &u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func seedProduct(t *testing.T, s stores, title, category string, price int64) domain.Product {
	t.Helper()
	p := domain.Product{
		Title: title, Description: title + " service", Price: price, Category: category,
		ProcessingTime: "3-5 days", WhatsIncluded: []string{"Consultation", "Draft", "Review"},
	}
	if err := s.products.Create(context.Background(), &p); err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

func seedOrder(t *testing.T, s stores, userID, productID string) domain.Order {
	t.Helper()
	o := domain.Order{UserID: userID, ProductID: productID, Status: domain.OrderStatusPending, PaymentMethod: strptr("pending")}
	if err := s.orders.Create(context.Background(), &o); err != nil {
		t.Fatalf("create order: %v", err)
	}
	return o
}

func runStoreSuite(t *testing.T, newStores func(t *testing.T) stores) {
	t.Run("ProductCRUD", func(t *testing.T) {
		ctx := context.Background()
		s := newStores(t)
		p := seedProduct(t, s, "Contract Review", "Contract Law", 4500000)
		if p.ID == "" || p.CreatedAt.IsZero() {
			t.Fatalf("id and createdAt must be assigned: %+v", p)
		}

		got, err := s.products.GetByID(ctx, p.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Title != p.Title || got.Price != p.Price || len(got.WhatsIncluded) != 3 || got.WhatsIncluded[1] != "Draft" {
			t.Fatalf("unexpected product: %+v", got)
		}

		if err := s.products.Delete(ctx, p.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := s.products.GetByID(ctx, p.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
		if err := s.products.Delete(ctx, p.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("second delete: expected not found, got %v", err)
		}
	})

	t.Run("ProductPartialUpdate", func(t *testing.T) {
		ctx := context.Background()
		s := newStores(t)
		p := seedProduct(t, s, "Will Drafting", "Family Law", 1000)

		got, err := s.products.Update(ctx, p.ID, domain.ProductPatch{Price: domain.Some[int64](2500)})
		if err != nil {
			t.Fatalf("update price: %v", err)
		}
		if got.Price != 2500 || got.Title != "Will Drafting" || got.Category != "Family Law" || len(got.WhatsIncluded) != 3 {
			t.Fatalf("only price should change: %+v", got)
		}

		got, err = s.products.Update(ctx, p.ID, domain.ProductPatch{
			WhatsIncluded: domain.Some([]string{"B", "A"}),
			Title:         domain.Some("Will & Testament"),
		})
		if err != nil {
			t.Fatalf("update list: %v", err)
		}
		if got.Title != "Will & Testament" || got.Price != 2500 || len(got.WhatsIncluded) != 2 || got.WhatsIncluded[0] != "B" {
			t.Fatalf("unexpected product: %+v", got)
		}

		got, err = s.products.Update(ctx, p.ID, domain.ProductPatch{WhatsIncluded: domain.Null[[]string]()})
		if err != nil {
			t.Fatalf("clear list: %v", err)
		}
		if got.WhatsIncluded != nil {
			t.Fatalf("whatsIncluded should be cleared, got %v", got.WhatsIncluded)
		}

		got, err = s.products.Update(ctx, p.ID, domain.ProductPatch{})
		if err != nil || got.Price != 2500 {
			t.Fatalf("empty patch: %v %+v", err, got)
		}

		if _, err := s.products.Update(ctx, "missing", domain.ProductPatch{Title: domain.Some("x")}); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("ProductListOrderAndFilter", func(t *testing.T) {
		ctx := context.Background()
		s := newStores(t)
		seedProduct(t, s, "Company Registration", "Business Law", 300)
		seedProduct(t, s, "Trademark Filing", "Intellectual Property", 200)
		seedProduct(t, s, "Contract Review", "Business Law", 100)

		list, err := s.products.List(ctx, ProductFilter{})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 3 || list[0].Title != "Contract Review" || list[2].Title != "Company Registration" {
			t.Fatalf("expected newest first, got %+v", list)
		}

		list, _ = s.products.List(ctx, ProductFilter{Category: "Business Law"})
		if len(list) != 2 {
			t.Fatalf("category filter: got %d", len(list))
		}

		list, _ = s.products.List(ctx, ProductFilter{Search: "TRADEMARK"})
		if len(list) != 1 || list[0].Title != "Trademark Filing" {
			t.Fatalf("search filter: %+v", list)
		}

		list, _ = s.products.List(ctx, ProductFilter{Search: "service", Category: "Intellectual Property"})
		if len(list) != 1 {
			t.Fatalf("combined filter: %+v", list)
		}

		n, err := s.products.Count(ctx)
		if err != nil || n != 3 {
			t.Fatalf("count: %d %v", n, err)
		}
	})

	t.Run("Users", func(t *testing.T) {
		ctx := context.Background()
		s := newStores(t)
		first := seedUser(t, s, "a@example.com", domain.RoleAdmin)
		second := seedUser(t, s, "b@example.com", domain.RoleClient)

		dup := domain.User{Name: "Dup", Email: "a@example.com", PasswordHash: "x", Role: domain.RoleClient}
		if err := s.users.Create(ctx, &dup); !errors.Is(err, ErrDuplicate) {
			t.Fatalf("expected duplicate, got %v", err)
		}

		got, err := s.users.GetByEmail(ctx, "b@example.com")
		if err != nil || got.ID != second.ID || got.PasswordHash != "hash" {
			t.Fatalf("get by email: %v %+v", err, got)
		}
		if _, err := s.users.GetByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}

		list, err := s.users.List(ctx)
		if err != nil || len(list) != 2 || list[0].ID != second.ID {
			t.Fatalf("list newest first: %v %+v", err, list)
		}

		u, err := s.users.UpdateRole(ctx, second.ID, domain.RoleAdmin)
		if err != nil || u.Role != domain.RoleAdmin {
			t.Fatalf("update role: %v %+v", err, u)
		}
		if _, err := s.users.UpdateRole(ctx, "missing", domain.RoleAdmin); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}

		if err := s.users.Delete(ctx, first.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := s.users.GetByID(ctx, first.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
		// email is free again
		again := domain.User{Name: "Again", Email: "a@example.com", PasswordHash: "x", Role: domain.RoleClient}
		if err := s.users.Create(ctx, &again); err != nil {
			t.Fatalf("re-create after delete: %v", err)
		}
	})

	t.Run("OrderReferencesMustExist", func(t *testing.T) {
		ctx := context.Background()
		s := newStores(t)
		u := seedUser(t, s, "c@example.com", domain.RoleClient)
		o := domain.Order{UserID: u.ID, ProductID: "missing", Status: domain.OrderStatusPending}
		if err := s.orders.Create(ctx, &o); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected not found for missing product, got %v", err)
		}
	})

	t.Run("OrderPartialUpdatesDoNotClobber", func(t *testing.T) {
		ctx := context.Background()
		s := newStores(t)
		u := seedUser(t, s, "c@example.com", domain.RoleClient)
		p := seedProduct(t, s, "Contract Review", "Contract Law", 4500000)
		o := seedOrder(t, s, u.ID, p.ID)

		// admin sets status, client sets payment method, each with a stale view
		if _, err := s.orders.Update(ctx, o.ID, domain.OrderPatch{Status: domain.Some("completed")}); err != nil {
			t.Fatalf("status update: %v", err)
		}
		got, err := s.orders.Update(ctx, o.ID, domain.OrderPatch{PaymentMethod: domain.Some("bank_transfer")})
		if err != nil {
			t.Fatalf("payment update: %v", err)
		}
		if got.Status != domain.OrderStatusCompleted || got.PaymentMethod == nil || *got.PaymentMethod != "bank_transfer" {
			t.Fatalf("both fields must survive: %+v", got)
		}
		if !got.UpdatedAt.After(got.CreatedAt) {
			t.Fatalf("updatedAt must advance: %+v", got)
		}

		got, err = s.orders.Update(ctx, o.ID, domain.OrderPatch{InvoiceURL: domain.Some("https://files.example.com/inv-1.pdf")})
		if err != nil || got.InvoiceURL == nil || got.Status != domain.OrderStatusCompleted {
			t.Fatalf("invoice update: %v %+v", err, got)
		}
		got, err = s.orders.Update(ctx, o.ID, domain.OrderPatch{InvoiceURL: domain.Null[string]()})
		if err != nil || got.InvoiceURL != nil {
			t.Fatalf("invoice clear: %v %+v", err, got)
		}

		if _, err := s.orders.Update(ctx, "missing", domain.OrderPatch{PaymentMethod: domain.Some("card")}); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("OrderListAndDetails", func(t *testing.T) {
		ctx := context.Background()
		s := newStores(t)
		alice := seedUser(t, s, "alice@example.com", domain.RoleClient)
		bob := seedUser(t, s, "bob@example.com", domain.RoleClient)
		p := seedProduct(t, s, "Contract Review", "Contract Law", 4500000)
		o1 := seedOrder(t, s, alice.ID, p.ID)
		o2 := seedOrder(t, s, bob.ID, p.ID)
		o3 := seedOrder(t, s, alice.ID, p.ID)

		all, err := s.orders.List(ctx, OrderFilter{IncludeUser: true})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(all) != 3 || all[0].ID != o3.ID || all[1].ID != o2.ID || all[2].ID != o1.ID {
			t.Fatalf("expected newest first: %+v", all)
		}
		if all[1].User == nil || all[1].User.Email != "bob@example.com" {
			t.Fatalf("admin view must include user: %+v", all[1])
		}
		if all[0].Product == nil || all[0].Product.Title != "Contract Review" || all[0].Product.Description != "" {
			t.Fatalf("list view must include product summary without description: %+v", all[0].Product)
		}
		if all[0].Progress != 25 {
			t.Fatalf("progress: %d", all[0].Progress)
		}

		own, err := s.orders.List(ctx, OrderFilter{UserID: alice.ID})
		if err != nil || len(own) != 2 {
			t.Fatalf("own list: %v %d", err, len(own))
		}
		for _, o := range own {
			if o.UserID != alice.ID || o.User != nil {
				t.Fatalf("client view leaked: %+v", o)
			}
		}

		d, err := s.orders.GetDetails(ctx, o2.ID)
		if err != nil {
			t.Fatalf("details: %v", err)
		}
		if d.Product.Description == "" || d.User == nil || d.User.ID != bob.ID {
			t.Fatalf("details must include description and user: %+v", d)
		}
		if _, err := s.orders.GetDetails(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("CascadeInTransaction", func(t *testing.T) {
		ctx := context.Background()
		s := newStores(t)
		u := seedUser(t, s, "c@example.com", domain.RoleClient)
		other := seedUser(t, s, "d@example.com", domain.RoleClient)
		p1 := seedProduct(t, s, "A", "X", 10)
		p2 := seedProduct(t, s, "B", "X", 20)
		seedOrder(t, s, u.ID, p1.ID)
		seedOrder(t, s, other.ID, p1.ID)
		keep := seedOrder(t, s, other.ID, p2.ID)
		seedOrder(t, s, u.ID, p2.ID)

		err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
			n, err := s.orders.DeleteByProduct(ctx, p1.ID)
			if err != nil {
				return err
			}
			if n != 2 {
				t.Errorf("deleted %d orders of product, want 2", n)
			}
			return s.products.Delete(ctx, p1.ID)
		})
		if err != nil {
			t.Fatalf("product cascade: %v", err)
		}

		err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
			if _, err := s.orders.DeleteByUser(ctx, u.ID); err != nil {
				return err
			}
			return s.users.Delete(ctx, u.ID)
		})
		if err != nil {
			t.Fatalf("user cascade: %v", err)
		}

		left, _ := s.orders.List(ctx, OrderFilter{})
		if len(left) != 1 || left[0].ID != keep.ID {
			t.Fatalf("expected only %s to remain, got %+v", keep.ID, left)
		}
	})

	t.Run("FailedTransactionLeavesNoTrace", func(t *testing.T) {
		ctx := context.Background()
		s := newStores(t)
		u := seedUser(t, s, "c@example.com", domain.RoleClient)
		p := seedProduct(t, s, "A", "X", 10)
		o := seedOrder(t, s, u.ID, p.ID)
		boom := errors.New("boom")

		err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
			if _, err := s.orders.DeleteByProduct(ctx, p.ID); err != nil {
				return err
			}
			if err := s.products.Delete(ctx, p.ID); err != nil {
				return err
			}
			extra := domain.User{Name: "Late", Email: "late@example.com", PasswordHash: "hash", Role: domain.RoleClient}
			if err := s.users.Create(ctx, &extra); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected the callback error, got %v", err)
		}

		if _, err := s.products.GetByID(ctx, p.ID); err != nil {
			t.Fatalf("product must survive the failed cascade: %v", err)
		}
		if _, err := s.orders.GetByID(ctx, o.ID); err != nil {
			t.Fatalf("order must survive the failed cascade: %v", err)
		}
		if _, err := s.users.GetByEmail(ctx, "late@example.com"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("user created in the failed transaction must be gone, got %v", err)
		}
		// the email is free again
		seedUser(t, s, "late@example.com", domain.RoleClient)
	})

	t.Run("Stats", func(t *testing.T) {
		ctx := context.Background()
		s := newStores(t)
		empty, err := s.orders.Stats(ctx)
		if err != nil || empty.Total != 0 || empty.ByStatus[domain.OrderStatusPending] != 0 || len(empty.ByStatus) != 3 {
			t.Fatalf("empty stats: %v %+v", err, empty)
		}

		a := seedUser(t, s, "a@example.com", domain.RoleClient)
		b := seedUser(t, s, "b@example.com", domain.RoleClient)
		cheap := seedProduct(t, s, "Cheap", "X", 100)
		pricey := seedProduct(t, s, "Pricey", "X", 1000)
		seedOrder(t, s, a.ID, cheap.ID)
		o := seedOrder(t, s, a.ID, pricey.ID)
		seedOrder(t, s, b.ID, pricey.ID)
		if _, err := s.orders.Update(ctx, o.ID, domain.OrderPatch{Status: domain.Some("in_progress")}); err != nil {
			t.Fatal(err)
		}

		st, err := s.orders.Stats(ctx)
		if err != nil {
			t.Fatalf("stats: %v", err)
		}
		if st.Total != 3 || st.Clients != 2 || st.Revenue != 2100 {
			t.Fatalf("unexpected totals: %+v", st)
		}
		if st.ByStatus[domain.OrderStatusPending] != 2 || st.ByStatus[domain.OrderStatusInProgress] != 1 || st.ByStatus[domain.OrderStatusCompleted] != 0 {
			t.Fatalf("unexpected breakdown: %+v", st.ByStatus)
		}
	})
}
