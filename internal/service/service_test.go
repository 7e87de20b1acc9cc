package service

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"legaldesk/internal/auth"
	"legaldesk/internal/domain"
	"legaldesk/internal/repository"
)

type testEnv struct {
	products  *ProductService
	orders    *OrderService
	users     *UserService
	auth      *AuthService
	analytics *AnalyticsService
	userRepo  repository.UserRepository
	orderRepo repository.OrderRepository
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	store := repository.NewMemoryStore()
	usersRepo := repository.NewMemoryUsers(store)
	ordersRepo := repository.NewMemoryOrders(store)
	tx := repository.NewMemoryTx(store)
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	return &testEnv{
		products:  NewProductService(store, ordersRepo, tx),
		orders:    NewOrderService(store, ordersRepo, usersRepo, tx),
		users:     NewUserService(usersRepo, ordersRepo, tx, hasher),
		auth:      NewAuthService(usersRepo, hasher, auth.NewTokenManager("test-secret-0123456789")),
		analytics: NewAnalyticsService(store, ordersRepo),
		userRepo:  usersRepo,
		orderRepo: ordersRepo,
	}
}

// admin bootstraps an administrator and returns its identity
func (e *testEnv) admin(t *testing.T) *domain.Identity {
	t.Helper()
	ctx := context.Background()
	if _, err := e.users.EnsureAdmin(ctx, "Admin", "admin@example.com", "admin-pass"); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	u, err := e.userRepo.GetByEmail(ctx, "admin@example.com")
	if err != nil {
		t.Fatalf("admin lookup: %v", err)
	}
	id := u.Identity()
	return &id
}

func (e *testEnv) client(t *testing.T, email string) *domain.Identity {
	t.Helper()
	u, err := e.users.Register(context.Background(), nil, RegisterInput{Name: "Client", Email: email, Password: "secret1"})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	id := u.Identity()
	return &id
}

func (e *testEnv) product(t *testing.T, admin *domain.Identity) *domain.Product {
	t.Helper()
	p, err := e.products.Create(context.Background(), admin, domain.Product{
		Title: "Contract Review", Description: "Full review", Price: 4500000, Category: "Contract Law",
		ProcessingTime: "3-5 business days", WhatsIncluded: []string{"Review", "Redline"},
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}
