package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"legaldesk/internal/logging"
	"legaldesk/internal/metrics"
	"legaldesk/internal/service"
)

// Services bundles the application services the handlers call into.
type Services struct {
	Auth      *service.AuthService
	Users     *service.UserService
	Products  *service.ProductService
	Orders    *service.OrderService
	Analytics *service.AnalyticsService
}

type Options struct {
	Log          logrus.FieldLogger
	CookieSecure bool
	// requests per second and burst per client ip on login and register
	AuthRate  float64
	AuthBurst int
}

type Server struct {
	engine      *gin.Engine
	log         logrus.FieldLogger
	svc         Services
	secure      bool
	authLimiter *RateLimiter
}

func NewServer(svc Services, opts Options) *Server {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	r := gin.New()
	// ClientIP comes from the socket, not from forwarded headers
	_ = r.SetTrustedProxies(nil)
	// metrics wraps Recovery so recovered panics are counted as 500s
	r.Use(logging.RequestLogger(log), metrics.Middleware(), logging.Recovery(log))

	s := &Server{
		engine:      r,
		log:         log,
		svc:         svc,
		secure:      opts.CookieSecure,
		authLimiter: NewRateLimiter(opts.AuthRate, opts.AuthBurst),
	}
	r.Use(s.identify)
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	s.engine.GET("/metrics", gin.WrapH(metrics.Handler()))
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.engine.Group("/api")
	{
		authGroup := api.Group("/auth")
		authGroup.POST("/register", s.authLimiter.Handler(), s.register)
		authGroup.POST("/login", s.authLimiter.Handler(), s.login)
		authGroup.POST("/logout", s.logout)
		authGroup.GET("/me", s.me)

		products := api.Group("/products")
		products.GET("", s.listProducts)
		products.POST("", s.createProduct)
		products.GET("/:id", s.getProduct)
		products.PUT("/:id", s.updateProduct)
		products.DELETE("/:id", s.deleteProduct)

		orders := api.Group("/orders")
		orders.GET("", s.listOrders)
		orders.POST("", s.createOrder)
		orders.GET("/:id", s.getOrder)
		orders.PUT("/:id", s.updateOrder)
		orders.DELETE("/:id", s.deleteOrder)

		users := api.Group("/users")
		users.GET("", s.listUsers)
		users.POST("", s.createUser)
		users.PUT("/:id/role", s.changeRole)
		users.DELETE("/:id", s.deleteUser)

		api.GET("/analytics", s.analytics)
	}
}
