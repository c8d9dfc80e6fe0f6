package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authcontrollers "github.com/cocotrade/ops-backend/api/controllers/auth"
	batchcontrollers "github.com/cocotrade/ops-backend/api/controllers/batches"
	customercontrollers "github.com/cocotrade/ops-backend/api/controllers/customers"
	filecontrollers "github.com/cocotrade/ops-backend/api/controllers/files"
	healthcontrollers "github.com/cocotrade/ops-backend/api/controllers/health"
	invoicecontrollers "github.com/cocotrade/ops-backend/api/controllers/invoices"
	ordercontrollers "github.com/cocotrade/ops-backend/api/controllers/orders"
	outreachcontrollers "github.com/cocotrade/ops-backend/api/controllers/outreach"
	productcontrollers "github.com/cocotrade/ops-backend/api/controllers/products"
	reportcontrollers "github.com/cocotrade/ops-backend/api/controllers/reports"
	usercontrollers "github.com/cocotrade/ops-backend/api/controllers/users"
	"github.com/cocotrade/ops-backend/api/middleware"
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
	"github.com/cocotrade/ops-backend/pkg/logger"
	"github.com/cocotrade/ops-backend/pkg/metrics"
	pkgredis "github.com/cocotrade/ops-backend/pkg/redis"
)

// Deps bundles everything the router needs. All services are required; the
// redis client doubles as the idempotency store and the readiness target.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       healthcontrollers.Pinger
	Redis    *pkgredis.Client
	Sessions session.AccessSessionChecker
	Metrics  *metrics.HTTPMetrics

	AuthService auth.Service
	UsersRepo   *users.Repository
	Customers   customers.Service
	Products    products.Service
	Batches     batches.Service
	Orders      orders.Service
	Invoices    invoices.Service
	Reports     reports.Service
	Outreach    outreach.Service
	Files       files.Service
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(d.Metrics),
		middleware.Recoverer(logg),
		middleware.CORS(),
	)

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", healthcontrollers.Live(cfg))
		r.Get("/ready", healthcontrollers.Ready(cfg, d.DB, d.Redis, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/login", authcontrollers.Login(d.AuthService, logg))
		r.Post("/refresh", authcontrollers.Refresh(d.AuthService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
		r.Use(middleware.Idempotency(d.Redis, logg))

		r.Post("/auth/logout", authcontrollers.Logout(d.AuthService, cfg.JWT, logg))
		r.Get("/users/me", usercontrollers.Me(d.UsersRepo, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(logg))
			r.Post("/auth/register", authcontrollers.Register(d.AuthService, logg))
			r.Get("/users", usercontrollers.List(d.UsersRepo, logg))
		})

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", customercontrollers.List(d.Customers, logg))
			r.Post("/", customercontrollers.Create(d.Customers, logg))
			r.Get("/{customerId}", customercontrollers.Detail(d.Customers, logg))
			r.Put("/{customerId}", customercontrollers.Update(d.Customers, logg))
			r.Delete("/{customerId}", customercontrollers.Delete(d.Customers, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", productcontrollers.List(d.Products, logg))
			r.Post("/", productcontrollers.Create(d.Products, logg))
			r.Get("/{productId}", productcontrollers.Detail(d.Products, logg))
			r.Put("/{productId}", productcontrollers.Update(d.Products, logg))
			r.Delete("/{productId}", productcontrollers.Delete(d.Products, logg))
		})

		r.Route("/batches", func(r chi.Router) {
			r.Get("/", batchcontrollers.List(d.Batches, logg))
			r.Post("/", batchcontrollers.Create(d.Batches, logg))
			r.Get("/{batchId}", batchcontrollers.Detail(d.Batches, logg))
			r.Put("/{batchId}", batchcontrollers.Update(d.Batches, logg))
			r.Delete("/{batchId}", batchcontrollers.Delete(d.Batches, logg))
			r.Post("/{batchId}/allocations", batchcontrollers.AddAllocation(d.Batches, logg))
			r.Put("/{batchId}/allocations/{productId}", batchcontrollers.UpdateAllocation(d.Batches, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(d.Orders, logg))
			r.Post("/", ordercontrollers.Create(d.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(d.Orders, logg))
			r.Put("/{orderId}", ordercontrollers.Update(d.Orders, logg))
			r.Delete("/{orderId}", ordercontrollers.Delete(d.Orders, logg))
			r.Put("/{orderId}/status", ordercontrollers.UpdateStatus(d.Orders, logg))
			r.Post("/{orderId}/cancel", ordercontrollers.Cancel(d.Orders, logg))
			r.Post("/{orderId}/reinstate", ordercontrollers.Reinstate(d.Orders, logg))
			r.Put("/{orderId}/shipment", ordercontrollers.UpdateShipment(d.Orders, logg))
		})

		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", invoicecontrollers.List(d.Invoices, logg))
			r.Post("/", invoicecontrollers.Create(d.Invoices, logg))
			r.Get("/{invoiceId}", invoicecontrollers.Detail(d.Invoices, logg))
			r.Post("/{invoiceId}/payments", invoicecontrollers.RecordPayment(d.Invoices, logg))
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/sales/products", reportcontrollers.SalesByProduct(d.Reports, logg))
			r.Get("/sales/customers", reportcontrollers.SalesByCustomer(d.Reports, logg))
			r.Get("/sales/monthly", reportcontrollers.SalesByMonth(d.Reports, logg))
			r.Get("/stock", reportcontrollers.StockLevels(d.Reports, logg))
			r.With(middleware.RequireAdmin(logg)).Post("/invalidate", reportcontrollers.Invalidate(d.Reports, logg))
		})

		r.Route("/outreach", func(r chi.Router) {
			r.Get("/sessions", outreachcontrollers.Sessions(d.Outreach, logg))
			r.Post("/sessions", outreachcontrollers.CreateSession(d.Outreach, logg))
			r.Get("/sessions/{sessionId}", outreachcontrollers.Status(d.Outreach, logg))
			r.Post("/sessions/{sessionId}/start", outreachcontrollers.StartSession(d.Outreach, logg))
			r.Get("/sessions/{sessionId}/qr", outreachcontrollers.QR(d.Outreach, logg))
			r.Delete("/sessions/{sessionId}", outreachcontrollers.DeleteSession(d.Outreach, logg))
			r.Post("/broadcast", outreachcontrollers.Broadcast(d.Outreach, logg))
		})

		r.Route("/files", func(r chi.Router) {
			r.Get("/", filecontrollers.List(d.Files, logg))
			r.Post("/", filecontrollers.Upload(d.Files, logg))
			r.Get("/download", filecontrollers.Download(d.Files, logg))
			r.Get("/preview", filecontrollers.Preview(d.Files, logg))
			r.Delete("/", filecontrollers.Delete(d.Files, logg))
			r.Post("/rename", filecontrollers.Rename(d.Files, logg))
			r.Post("/mkdir", filecontrollers.Mkdir(d.Files, logg))
		})
	})

	return r
}
