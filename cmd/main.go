package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"legaldesk/internal/auth"
	"legaldesk/internal/config"
	httpapi "legaldesk/internal/http"
	"legaldesk/internal/logging"
	"legaldesk/internal/repository"
	"legaldesk/internal/service"

	_ "legaldesk/docs"
)

// @title legaldesk API
// @version 1.0
// @description Legal services dashboard: catalog, orders and user administration.
// @BasePath /api
func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		logrus.WithError(err).Fatal("config")
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.WithError(err).Fatal("logger")
	}

	ctx := context.Background()
	st, err := openStores(ctx, cfg)
	if err != nil {
		log.WithError(err).WithField("driver", cfg.DBDriver).Fatal("open storage")
	}
	defer func() {
		if err := st.close(); err != nil {
			log.WithError(err).Warn("close storage")
		}
	}()

	hasher := auth.NewPasswordHasher(cfg.BcryptCost)
	tokens := auth.NewTokenManager(cfg.JWTSecret)
	usersSvc := service.NewUserService(st.users, st.orders, st.tx, hasher)

	if cfg.AdminEmail != "" {
		changed, err := usersSvc.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			log.WithError(err).Fatal("bootstrap admin")
		}
		if changed {
			log.WithField("email", service.NormalizeEmail(cfg.AdminEmail)).Info("admin account ready")
		}
	}

	srv := httpapi.NewServer(httpapi.Services{
		Auth:      service.NewAuthService(st.users, hasher, tokens),
		Users:     usersSvc,
		Products:  service.NewProductService(st.products, st.orders, st.tx),
		Orders:    service.NewOrderService(st.products, st.orders, st.users, st.tx),
		Analytics: service.NewAnalyticsService(st.products, st.orders),
	}, httpapi.Options{
		Log:          log,
		CookieSecure: cfg.CookieSecure,
		AuthRate:     cfg.AuthRateLimit,
		AuthBurst:    cfg.AuthRateBurst,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{"addr": httpServer.Addr, "db": cfg.DBDriver}).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown error")
	}
}

type stores struct {
	products repository.ProductRepository
	users    repository.UserRepository
	orders   repository.OrderRepository
	tx       repository.TxManager
	close    func() error
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.DBDriver == "memory" {
		store := repository.NewMemoryStore()
		return &stores{
			products: store,
			users:    repository.NewMemoryUsers(store),
			orders:   repository.NewMemoryOrders(store),
			tx:       repository.NewMemoryTx(store),
			close:    func() error { return nil },
		}, nil
	}

	dsn := cfg.DatabaseURL
	if cfg.DBDriver == repository.DriverSQLite && !strings.HasPrefix(dsn, "file:") {
		dsn = repository.SQLiteDSN(dsn)
	}
	db, err := repository.OpenDB(ctx, cfg.DBDriver, dsn)
	if err != nil {
		return nil, err
	}
	if err := repository.Migrate(db.DB, cfg.DBDriver); err != nil {
		_ = db.Close()
		return nil, err
	}
	store := repository.NewSQLStore(db)
	return &stores{
		products: store,
		users:    repository.NewSQLUsers(store),
		orders:   repository.NewSQLOrders(store),
		tx:       repository.NewSQLTx(store),
		close:    db.Close,
	}, nil
}
