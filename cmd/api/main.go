package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cocotrade/ops-backend/api/routes"
	"github.com/cocotrade/ops-backend/internal/auth"
	"github.com/cocotrade/ops-backend/internal/batches"
	"github.com/cocotrade/ops-backend/internal/customers"
	"github.com/cocotrade/ops-backend/internal/files"
	"github.com/cocotrade/ops-backend/internal/invoices"
	"github.com/cocotrade/ops-backend/internal/orders"
	"github.com/cocotrade/ops-backend/internal/outreach"
	"github.com/cocotrade/ops-backend/internal/products"
	"github.com/cocotrade/ops-backend/internal/reports"
	"github.com/cocotrade/ops-backend/internal/users"
	"github.com/cocotrade/ops-backend/pkg/auth/session"
	"github.com/cocotrade/ops-backend/pkg/config"
	"github.com/cocotrade/ops-backend/pkg/db"
	"github.com/cocotrade/ops-backend/pkg/filestore"
	"github.com/cocotrade/ops-backend/pkg/logger"
	"github.com/cocotrade/ops-backend/pkg/metrics"
	"github.com/cocotrade/ops-backend/pkg/migrate"
	"github.com/cocotrade/ops-backend/pkg/outbox"
	"github.com/cocotrade/ops-backend/pkg/redis"
	"github.com/cocotrade/ops-backend/pkg/whatsapp"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	gateway, err := whatsapp.NewClient(cfg.Gateway, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create whatsapp gateway client", err)
		os.Exit(1)
	}

	fileStore, err := filestore.NewClient(cfg.FileStore, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create file store client", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	usersRepo := users.NewRepository(conn)
	customersRepo := customers.NewRepository(conn)
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	customersService, err := customers.NewService(customersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create customers service", err)
		os.Exit(1)
	}

	productsService, err := products.NewService(products.NewRepository(conn))
	if err != nil {
		logg.Error(context.Background(), "failed to create products service", err)
		os.Exit(1)
	}

	batchesService, err := batches.NewService(batches.NewRepository(conn), dbClient, outboxSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create batches service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.NewRepository(conn), dbClient, outboxSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	invoicesService, err := invoices.NewService(invoices.NewRepository(conn), dbClient, outboxSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create invoices service", err)
		os.Exit(1)
	}

	reportsService, err := reports.NewService(reports.NewRepository(conn), redisClient, cfg.Reports.CacheTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create reports service", err)
		os.Exit(1)
	}

	outreachService, err := outreach.NewService(gateway, outreach.NewCustomerRepository(conn), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create outreach service", err)
		os.Exit(1)
	}

	filesService, err := files.NewService(fileStore)
	if err != nil {
		logg.Error(context.Background(), "failed to create files service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.Deps{
		Config:      cfg,
		Logger:      logg,
		DB:          dbClient,
		Redis:       redisClient,
		Sessions:    sessionManager,
		Metrics:     metrics.NewHTTPMetrics(prometheus.DefaultRegisterer),
		AuthService: authService,
		UsersRepo:   usersRepo,
		Customers:   customersService,
		Products:    productsService,
		Batches:     batchesService,
		Orders:      ordersService,
		Invoices:    invoicesService,
		Reports:     reportsService,
		Outreach:    outreachService,
		Files:       filesService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		timeout, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(timeout); err != nil {
			logg.Error(ctx, "server shutdown error", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "api server stopped")
}
