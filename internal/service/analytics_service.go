package service

import (
	"context"

	"legaldesk/internal/domain"
	"legaldesk/internal/policy"
	"legaldesk/internal/repository"
)

// AnalyticsService сводка для панели администратора
type AnalyticsService struct {
	products repository.ProductRepository
	orders   repository.OrderRepository
}

func NewAnalyticsService(products repository.ProductRepository, orders repository.OrderRepository) *AnalyticsService {
	return &AnalyticsService{products: products, orders: orders}
}

// Summary выручка считается по цене услуги во всех заказах, клиенты это уникальные владельцы заказов
func (s *AnalyticsService) Summary(ctx context.Context, id *domain.Identity) (*domain.Analytics, error) {
	if err := policy.CanViewAnalytics(id); err != nil {
		return nil, err
	}
	products, err := s.products.Count(ctx)
	if err != nil {
		return nil, err
	}
	st, err := s.orders.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.Analytics{
		TotalProducts:   products,
		TotalOrders:     st.Total,
		TotalClients:    st.Clients,
		TotalRevenue:    st.Revenue,
		StatusBreakdown: st.ByStatus,
	}, nil
}
