package domain

import "time"

// User учётная запись администратора или клиента
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Identity возвращает набор claims, который попадает в токен сессии
func (u User) Identity() Identity {
	return Identity{ID: u.ID, Email: u.Email, Role: u.Role}
}

// Product юридическая услуга из каталога
type Product struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Price          int64     `json:"price"`
	Category       string    `json:"category"`
	ProcessingTime string    `json:"processingTime"`
	WhatsIncluded  []string  `json:"whatsIncluded"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Order заказ клиента на одну услугу
type Order struct {
	ID            string      `json:"id"`
	UserID        string      `json:"userId"`
	ProductID     string      `json:"productId"`
	Status        OrderStatus `json:"status"`
	PaymentMethod *string     `json:"paymentMethod"`
	InvoiceURL    *string     `json:"invoiceUrl"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// ProductSummary краткие данные услуги, подмешиваемые в заказ
type ProductSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Price       int64  `json:"price"`
	Category    string `json:"category"`
}

// UserSummary краткие данные владельца заказа
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// OrderDetails заказ вместе с услугой и (для администратора) владельцем
type OrderDetails struct {
	Order
	Progress int             `json:"progress"`
	Product  *ProductSummary `json:"product,omitempty"`
	User     *UserSummary    `json:"user,omitempty"`
}

// Analytics сводка для панели администратора
type Analytics struct {
	TotalProducts   int                 `json:"totalProducts"`
	TotalOrders     int                 `json:"totalOrders"`
	TotalClients    int                 `json:"totalClients"`
	TotalRevenue    int64               `json:"totalRevenue"`
	StatusBreakdown map[OrderStatus]int `json:"statusBreakdown"`
}
