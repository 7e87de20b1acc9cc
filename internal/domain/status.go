package domain

import (
	"errors"
	"fmt"
)

// OrderStatus тип статуса заказа
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusCompleted  OrderStatus = "completed"
)

// OrderStatuses все допустимые статусы в порядке прохождения
var OrderStatuses = []OrderStatus{OrderStatusPending, OrderStatusInProgress, OrderStatusCompleted}

var ErrInvalidStatus = errors.New("invalid status value")

// ParseOrderStatus проверяет, что значение входит в перечисление.
// Переходы не ограничиваются: любой из трёх статусов может смениться любым другим.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(s); st {
	case OrderStatusPending, OrderStatusInProgress, OrderStatusCompleted:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

// Progress процент выполнения для отображения, не хранится
func (s OrderStatus) Progress() int {
	switch s {
	case OrderStatusPending:
		return 25
	case OrderStatusInProgress:
		return 75
	case OrderStatusCompleted:
		return 100
	default:
		return 0
	}
}
