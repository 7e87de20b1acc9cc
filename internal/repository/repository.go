package repository

import (
	"context"
	"errors"
	"strings"

	"legaldesk/internal/domain"
)

// ErrNotFound возвращается, когда сущность не найдена
var ErrNotFound = errors.New("not found")

// ErrDuplicate нарушение уникальности (email пользователя)
var ErrDuplicate = errors.New("duplicate")

// ProductFilter параметры фильтрации каталога
type ProductFilter struct {
	// Search ищет подстроку в названии, описании и категории без учёта регистра
	Search string
	// Category точное совпадение категории
	Category string
}

// OrderFilter ограничивает выборку заказов
type OrderFilter struct {
	// UserID пустой: все заказы
	UserID string
	// IncludeUser подмешивает владельца заказа
	IncludeUser bool
}

// UserRepository интерфейс репозитория пользователей
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	UpdateRole(ctx context.Context, id string, role domain.Role) (*domain.User, error)
	Delete(ctx context.Context, id string) error
}

// ProductRepository интерфейс репозитория услуг
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	// Update записывает только поля, присутствующие в patch
	Update(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f ProductFilter) ([]domain.Product, error)
	Count(ctx context.Context) (int, error)
}

// OrderRepository интерфейс репозитория заказов
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	// GetDetails возвращает заказ с услугой и владельцем
	GetDetails(ctx context.Context, id string) (*domain.OrderDetails, error)
	// Update записывает только поля, присутствующие в patch
	Update(ctx context.Context, id string, patch domain.OrderPatch) (*domain.Order, error)
	Delete(ctx context.Context, id string) error
	DeleteByProduct(ctx context.Context, productID string) (int, error)
	DeleteByUser(ctx context.Context, userID string) (int, error)
	List(ctx context.Context, f OrderFilter) ([]domain.OrderDetails, error)
	Stats(ctx context.Context) (OrderStats, error)
}

// OrderStats агрегаты по всем заказам для аналитики
type OrderStats struct {
	Total    int
	ByStatus map[domain.OrderStatus]int
	// Revenue сумма цен услуг по всем заказам
	Revenue int64
	// Clients количество различных владельцев заказов
	Clients int
}

func newOrderStats() OrderStats {
	by := make(map[domain.OrderStatus]int, len(domain.OrderStatuses))
	for _, s := range domain.OrderStatuses {
		by[s] = 0
	}
	return OrderStats{ByStatus: by}
}

// TxManager абстракция транзакции. In-memory реализация держит блокировку записи на всё время fn.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// helper: case-insensitive contains
func containsIgnoreCase(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func (f ProductFilter) match(p domain.Product) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Search == "" {
		return true
	}
	return containsIgnoreCase(p.Title, f.Search) ||
		containsIgnoreCase(p.Description, f.Search) ||
		containsIgnoreCase(p.Category, f.Search)
}

func productSummary(p domain.Product, withDescription bool) *domain.ProductSummary {
	s := &domain.ProductSummary{ID: p.ID, Title: p.Title, Price: p.Price, Category: p.Category}
	if withDescription {
		s.Description = p.Description
	}
	return s
}

func userSummary(u domain.User) *domain.UserSummary {
	return &domain.UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}
