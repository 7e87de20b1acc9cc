package service

import (
	"context"
	"errors"
	"strings"

	"legaldesk/internal/domain"
	"legaldesk/internal/metrics"
	"legaldesk/internal/policy"
	"legaldesk/internal/repository"
)

// DefaultPaymentMethod проставляется, если клиент не выбрал способ оплаты
const DefaultPaymentMethod = "pending"

// OrderService реализует жизненный цикл заказа: создание, просмотр, изменение статуса и оплаты
type OrderService struct {
	products repository.ProductRepository
	orders   repository.OrderRepository
	users    repository.UserRepository
	tx       repository.TxManager
}

func NewOrderService(products repository.ProductRepository, orders repository.OrderRepository, users repository.UserRepository, tx repository.TxManager) *OrderService {
	return &OrderService{products: products, orders: orders, users: users, tx: tx}
}

// CreateOrder оформляет заказ клиента на услугу; статус всегда pending
func (s *OrderService) CreateOrder(ctx context.Context, id *domain.Identity, productID string, paymentMethod *string) (*domain.OrderDetails, error) {
	if err := policy.CanCreateOrder(id); err != nil {
		return nil, err
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, invalidf("product ID is required")
	}
	method := DefaultPaymentMethod
	if paymentMethod != nil && *paymentMethod != "" {
		method = *paymentMethod
	}

	var created *domain.OrderDetails
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		// token may outlive the account
		if _, err := s.users.GetByID(ctx, id.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return policy.ErrUnauthenticated
			}
			return err
		}
		if _, err := s.products.GetByID(ctx, productID); err != nil {
			return err
		}
		o := domain.Order{
			UserID:        id.ID,
			ProductID:     productID,
			Status:        domain.OrderStatusPending,
			PaymentMethod: &method,
		}
		if err := s.orders.Create(ctx, &o); err != nil {
			return err
		}
		d, err := s.orders.GetDetails(ctx, o.ID)
		if err != nil {
			return err
		}
		d.User = nil
		if d.Product != nil {
			d.Product.Description = ""
		}
		created = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordOrderCreated()
	return created, nil
}

// ListOrders администратор видит все заказы с владельцами, клиент только свои
func (s *OrderService) ListOrders(ctx context.Context, id *domain.Identity) ([]domain.OrderDetails, error) {
	scope, err := policy.OrderScope(id)
	if err != nil {
		return nil, err
	}
	return s.orders.List(ctx, repository.OrderFilter{UserID: scope.OwnerID, IncludeUser: scope.IncludeUser})
}

// GetOrder возвращает заказ по id администратору или владельцу
func (s *OrderService) GetOrder(ctx context.Context, id *domain.Identity, orderID string) (*domain.OrderDetails, error) {
	if id == nil {
		return nil, policy.ErrUnauthenticated
	}
	d, err := s.orders.GetDetails(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanViewOrder(id, d.Order); err != nil {
		return nil, err
	}
	return d, nil
}

// UpdateOrder применяет patch после проверки прав на каждое поле.
// Недопустимое поле отклоняет весь запрос, до записи в хранилище.
func (s *OrderService) UpdateOrder(ctx context.Context, id *domain.Identity, orderID string, patch domain.OrderPatch) (*domain.OrderDetails, error) {
	if id == nil {
		return nil, policy.ErrUnauthenticated
	}
	existing, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanUpdateOrder(id, *existing, patch); err != nil {
		return nil, err
	}
	if len(patch.Malformed) > 0 {
		return nil, invalidf("%s must be a string or null", strings.Join(patch.Malformed, ", "))
	}
	if patch.Status.Set {
		if _, err := domain.ParseOrderStatus(deref(patch.Status.Value)); err != nil {
			return nil, invalidf("%v", err)
		}
	}

	updated, err := s.orders.Update(ctx, orderID, patch)
	if err != nil {
		return nil, err
	}
	if patch.Status.Set {
		metrics.RecordOrderStatusChange(string(existing.Status), string(updated.Status))
	}
	return s.orders.GetDetails(ctx, orderID)
}

// DeleteOrder удаляет заказ; только администратор
func (s *OrderService) DeleteOrder(ctx context.Context, id *domain.Identity, orderID string) error {
	if err := policy.CanDeleteOrder(id); err != nil {
		return err
	}
	return s.orders.Delete(ctx, orderID)
}
