package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"legaldesk/internal/domain"
	"legaldesk/internal/policy"
	"legaldesk/internal/repository"
)

// Product handlers
type createProductReq struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Price          int64    `json:"price"`
	Category       string   `json:"category"`
	ProcessingTime string   `json:"processingTime"`
	WhatsIncluded  []string `json:"whatsIncluded"`
}

// @Summary Create product
// @Tags products
// @Accept json
// @Produce json
// @Param input body createProductReq true "Product"
// @Success 201 {object} map[string]domain.Product
// @Failure 400 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Router /products [post]
func (s *Server) createProduct(c *gin.Context) {
	if !s.allowed(c, policy.CanManageCatalog) {
		return
	}
	var req createProductReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	p, err := s.svc.Products.Create(c, identity(c), domain.Product{
		Title:          req.Title,
		Description:    req.Description,
		Price:          req.Price,
		Category:       req.Category,
		ProcessingTime: req.ProcessingTime,
		WhatsIncluded:  req.WhatsIncluded,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"product": p})
}

// @Summary Get product by id
// @Tags products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} map[string]domain.Product
// @Failure 404 {object} errorResponse
// @Router /products/{id} [get]
func (s *Server) getProduct(c *gin.Context) {
	p, err := s.svc.Products.GetByID(c, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": p})
}

// @Summary Update product
// @Description Only the fields present in the body are changed.
// @Tags products
// @Accept json
// @Produce json
// @Param id path string true "Product ID"
// @Param input body createProductReq true "Fields to change"
// @Success 200 {object} map[string]domain.Product
// @Failure 400 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /products/{id} [put]
func (s *Server) updateProduct(c *gin.Context) {
	if !s.allowed(c, policy.CanManageCatalog) {
		return
	}
	var patch domain.ProductPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badJSON(c)
		return
	}
	p, err := s.svc.Products.Update(c, identity(c), c.Param("id"), patch)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": p})
}

// @Summary Delete product
// @Description Orders for the product are deleted with it.
// @Tags products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /products/{id} [delete]
func (s *Server) deleteProduct(c *gin.Context) {
	if err := s.svc.Products.Delete(c, identity(c), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

// @Summary List products
// @Tags products
// @Produce json
// @Param search query string false "Title, description or category contains"
// @Param category query string false "Exact category"
// @Success 200 {object} map[string][]domain.Product
// @Router /products [get]
func (s *Server) listProducts(c *gin.Context) {
	f := repository.ProductFilter{
		Search:   strings.TrimSpace(c.Query("search")),
		Category: strings.TrimSpace(c.Query("category")),
	}
	list, err := s.svc.Products.List(c, f)
	if err != nil {
		s.fail(c, err)
		return
	}
	if list == nil {
		list = []domain.Product{}
	}
	c.JSON(http.StatusOK, gin.H{"products": list})
}

// Order handlers
type createOrderReq struct {
	ProductID     string  `json:"productId"`
	PaymentMethod *string `json:"paymentMethod"`
}

// @Summary Create order
// @Description Clients only. The order starts as pending.
// @Tags orders
// @Accept json
// @Produce json
// @Param input body createOrderReq true "Order"
// @Success 201 {object} map[string]domain.OrderDetails
// @Failure 400 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /orders [post]
func (s *Server) createOrder(c *gin.Context) {
	if !s.allowed(c, policy.CanCreateOrder) {
		return
	}
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	o, err := s.svc.Orders.CreateOrder(c, identity(c), strings.TrimSpace(req.ProductID), req.PaymentMethod)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order": o})
}

// @Summary List orders
// @Description Admins see every order with its owner, clients see their own.
// @Tags orders
// @Produce json
// @Success 200 {object} map[string][]domain.OrderDetails
// @Failure 401 {object} errorResponse
// @Router /orders [get]
func (s *Server) listOrders(c *gin.Context) {
	list, err := s.svc.Orders.ListOrders(c, identity(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	if list == nil {
		list = []domain.OrderDetails{}
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

// @Summary Get order by id
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} map[string]domain.OrderDetails
// @Failure 401 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /orders/{id} [get]
func (s *Server) getOrder(c *gin.Context) {
	o, err := s.svc.Orders.GetOrder(c, identity(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": o})
}

// @Summary Update order
// @Description status and invoiceUrl are admin-only; the owner may change paymentMethod.
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param input body domain.OrderPatch true "Fields to change"
// @Success 200 {object} map[string]domain.OrderDetails
// @Failure 400 {object} errorResponse
// @Failure 401 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /orders/{id} [put]
func (s *Server) updateOrder(c *gin.Context) {
	if !s.allowed(c, authenticated) {
		return
	}
	var patch domain.OrderPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badJSON(c)
		return
	}
	o, err := s.svc.Orders.UpdateOrder(c, identity(c), c.Param("id"), patch)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": o})
}

// @Summary Delete order
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /orders/{id} [delete]
func (s *Server) deleteOrder(c *gin.Context) {
	if err := s.svc.Orders.DeleteOrder(c, identity(c), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order deleted successfully"})
}
