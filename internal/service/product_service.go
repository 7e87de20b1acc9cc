package service

import (
	"context"
	"strings"
	"time"

	"legaldesk/internal/domain"
	"legaldesk/internal/policy"
	"legaldesk/internal/repository"
)

// ProductService инкапсулирует бизнес-логику каталога услуг
type ProductService struct {
	repo   repository.ProductRepository
	orders repository.OrderRepository
	tx     repository.TxManager
}

func NewProductService(repo repository.ProductRepository, orders repository.OrderRepository, tx repository.TxManager) *ProductService {
	return &ProductService{repo: repo, orders: orders, tx: tx}
}

// Create добавляет услугу; доступно только администратору
func (s *ProductService) Create(ctx context.Context, id *domain.Identity, p domain.Product) (*domain.Product, error) {
	if err := policy.CanManageCatalog(id); err != nil {
		return nil, err
	}
	p.Title = strings.TrimSpace(p.Title)
	p.Category = strings.TrimSpace(p.Category)
	if p.Title == "" || p.Price == 0 || p.Category == "" {
		return nil, invalidf("title, price, and category are required")
	}
	if p.Price < 0 {
		return nil, invalidf("price must be greater than 0")
	}
	// id and createdAt are assigned by the store
	cp := p
	cp.ID, cp.CreatedAt = "", time.Time{}
	if err := s.repo.Create(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *ProductService) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

// Update применяет частичное обновление
func (s *ProductService) Update(ctx context.Context, id *domain.Identity, productID string, patch domain.ProductPatch) (*domain.Product, error) {
	if err := policy.CanManageCatalog(id); err != nil {
		return nil, err
	}
	if patch.Price.Set && (patch.Price.Value == nil || *patch.Price.Value <= 0) {
		return nil, invalidf("price must be greater than 0")
	}
	if patch.Title.Set && strings.TrimSpace(deref(patch.Title.Value)) == "" {
		return nil, invalidf("title cannot be empty")
	}
	if patch.Category.Set && strings.TrimSpace(deref(patch.Category.Value)) == "" {
		return nil, invalidf("category cannot be empty")
	}
	return s.repo.Update(ctx, productID, patch)
}

// Delete удаляет услугу вместе с её заказами в одной транзакции
func (s *ProductService) Delete(ctx context.Context, id *domain.Identity, productID string) error {
	if err := policy.CanManageCatalog(id); err != nil {
		return err
	}
	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetByID(ctx, productID); err != nil {
			return err
		}
		if _, err := s.orders.DeleteByProduct(ctx, productID); err != nil {
			return err
		}
		return s.repo.Delete(ctx, productID)
	})
}

func (s *ProductService) List(ctx context.Context, f repository.ProductFilter) ([]domain.Product, error) {
	return s.repo.List(ctx, f)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
