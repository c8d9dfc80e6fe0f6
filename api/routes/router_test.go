package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cocotrade/ops-backend/internal/auth"
	"github.com/cocotrade/ops-backend/internal/batches"
	"github.com/cocotrade/ops-backend/internal/customers"
	"github.com/cocotrade/ops-backend/internal/invoices"
	"github.com/cocotrade/ops-backend/internal/orders"
	"github.com/cocotrade/ops-backend/internal/outreach"
	"github.com/cocotrade/ops-backend/internal/products"
	"github.com/cocotrade/ops-backend/internal/reports"
	"github.com/cocotrade/ops-backend/internal/users"
	pkgauth "github.com/cocotrade/ops-backend/pkg/auth"
	"github.com/cocotrade/ops-backend/pkg/auth/session"
	"github.com/cocotrade/ops-backend/pkg/config"
	"github.com/cocotrade/ops-backend/pkg/db/models"
	"github.com/cocotrade/ops-backend/pkg/enums"
	"github.com/cocotrade/ops-backend/pkg/filestore"
	"github.com/cocotrade/ops-backend/pkg/logger"
	"github.com/cocotrade/ops-backend/pkg/pagination"
	pkgredis "github.com/cocotrade/ops-backend/pkg/redis"
	"github.com/cocotrade/ops-backend/pkg/whatsapp"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessionChecker struct{}

func (stubSessionChecker) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubAuthService struct{}

func (stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	panic("unimplemented")
}

func (stubAuthService) Refresh(ctx context.Context, req auth.RefreshRequest) (*auth.RefreshResponse, error) {
	panic("unimplemented")
}

func (stubAuthService) Logout(ctx context.Context, accessID string) error {
	return nil
}

func (stubAuthService) Register(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error) {
	return &users.UserDTO{}, nil
}

type stubCustomersService struct{}

func (stubCustomersService) Create(ctx context.Context, input customers.CreateInput) (*models.Customer, error) {
	panic("unimplemented")
}

func (stubCustomersService) Update(ctx context.Context, id uuid.UUID, input customers.UpdateInput) (*models.Customer, error) {
	panic("unimplemented")
}

func (stubCustomersService) Delete(ctx context.Context, id uuid.UUID) error {
	panic("unimplemented")
}

func (stubCustomersService) Get(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	panic("unimplemented")
}

func (stubCustomersService) List(ctx context.Context, params pagination.Params, filters customers.Filters) (*customers.List, error) {
	return &customers.List{}, nil
}

type stubProductsService struct{}

func (stubProductsService) Create(ctx context.Context, input products.CreateInput) (*models.Product, error) {
	panic("unimplemented")
}

func (stubProductsService) Update(ctx context.Context, id uuid.UUID, input products.UpdateInput) (*models.Product, error) {
	panic("unimplemented")
}

func (stubProductsService) Delete(ctx context.Context, id uuid.UUID) error {
	panic("unimplemented")
}

func (stubProductsService) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	panic("unimplemented")
}

func (stubProductsService) List(ctx context.Context, params pagination.Params, filters products.Filters) (*products.List, error) {
	return &products.List{}, nil
}

type stubBatchesService struct{}

func (stubBatchesService) Create(ctx context.Context, input batches.CreateInput) (*models.Batch, error) {
	panic("unimplemented")
}

func (stubBatchesService) Update(ctx context.Context, id uuid.UUID, input batches.UpdateInput) (*models.Batch, error) {
	panic("unimplemented")
}

func (stubBatchesService) UpdateAllocation(ctx context.Context, batchID, productID uuid.UUID, input batches.AllocationUpdate) (*models.BatchProduct, error) {
	panic("unimplemented")
}

func (stubBatchesService) AddAllocation(ctx context.Context, batchID uuid.UUID, input batches.AllocationInput) (*models.BatchProduct, error) {
	panic("unimplemented")
}

func (stubBatchesService) Delete(ctx context.Context, id uuid.UUID) error {
	panic("unimplemented")
}

func (stubBatchesService) Get(ctx context.Context, id uuid.UUID) (*models.Batch, error) {
	panic("unimplemented")
}

func (stubBatchesService) List(ctx context.Context, params pagination.Params, filters batches.Filters) (*batches.List, error) {
	return &batches.List{}, nil
}

type stubOrdersService struct{}

func (stubOrdersService) Create(ctx context.Context, input orders.CreateInput) (*models.Order, error) {
	panic("unimplemented")
}

func (stubOrdersService) Update(ctx context.Context, input orders.UpdateInput) (*models.Order, error) {
	panic("unimplemented")
}

func (stubOrdersService) Delete(ctx context.Context, input orders.DeleteInput) error {
	panic("unimplemented")
}

func (stubOrdersService) UpdateStatus(ctx context.Context, input orders.StatusInput) error {
	return nil
}

func (stubOrdersService) UpdateShipment(ctx context.Context, input orders.ShipmentInput) error {
	panic("unimplemented")
}

func (stubOrdersService) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	panic("unimplemented")
}

func (stubOrdersService) List(ctx context.Context, params pagination.Params, filters orders.Filters) (*orders.List, error) {
	return &orders.List{}, nil
}

type stubInvoicesService struct{}

func (stubInvoicesService) CreateFromOrder(ctx context.Context, input invoices.CreateInput) (*models.Invoice, error) {
	panic("unimplemented")
}

func (stubInvoicesService) RecordPayment(ctx context.Context, input invoices.PaymentInput) (*models.Invoice, error) {
	panic("unimplemented")
}

func (stubInvoicesService) Get(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	panic("unimplemented")
}

func (stubInvoicesService) List(ctx context.Context, params pagination.Params, filters invoices.Filters) (*invoices.List, error) {
	return &invoices.List{}, nil
}

type stubReportsService struct{}

func (stubReportsService) SalesByProduct(ctx context.Context, rng reports.Range) ([]reports.ProductSales, error) {
	return nil, nil
}

func (stubReportsService) SalesByCustomer(ctx context.Context, rng reports.Range) ([]reports.CustomerSales, error) {
	return nil, nil
}

func (stubReportsService) SalesByMonth(ctx context.Context, rng reports.Range) ([]reports.MonthlySales, error) {
	return nil, nil
}

func (stubReportsService) StockLevels(ctx context.Context) ([]reports.StockLevel, error) {
	return nil, nil
}

func (stubReportsService) Invalidate(ctx context.Context) error {
	return nil
}

type stubOutreachService struct{}

func (stubOutreachService) Sessions(ctx context.Context) ([]whatsapp.Session, error) {
	return nil, nil
}

func (stubOutreachService) CreateSession(ctx context.Context, id string) error {
	panic("unimplemented")
}

func (stubOutreachService) StartSession(ctx context.Context, id string) error {
	panic("unimplemented")
}

func (stubOutreachService) QRString(ctx context.Context, id string) (string, error) {
	panic("unimplemented")
}

func (stubOutreachService) Status(ctx context.Context, id string) (*whatsapp.Session, error) {
	panic("unimplemented")
}

func (stubOutreachService) DeleteSession(ctx context.Context, id string) error {
	panic("unimplemented")
}

func (stubOutreachService) Broadcast(ctx context.Context, input outreach.BroadcastInput) (*outreach.BroadcastResult, error) {
	panic("unimplemented")
}

type stubFilesService struct{}

func (stubFilesService) List(ctx context.Context, dir string) ([]filestore.Entry, error) {
	return nil, nil
}

func (stubFilesService) Upload(ctx context.Context, dir, filename string, content io.Reader) error {
	panic("unimplemented")
}

func (stubFilesService) Download(ctx context.Context, filePath string) (io.ReadCloser, string, error) {
	panic("unimplemented")
}

func (stubFilesService) Preview(ctx context.Context, filePath string) (io.ReadCloser, string, error) {
	panic("unimplemented")
}

func (stubFilesService) Delete(ctx context.Context, filePath string) error {
	panic("unimplemented")
}

func (stubFilesService) Rename(ctx context.Context, from, to string) error {
	panic("unimplemented")
}

func (stubFilesService) Mkdir(ctx context.Context, dir string) error {
	panic("unimplemented")
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(Deps{
		Config:      cfg,
		Logger:      logg,
		DB:          stubPinger{},
		Redis:       (*pkgredis.Client)(nil),
		Sessions:    stubSessionChecker{},
		AuthService: stubAuthService{},
		UsersRepo:   users.NewRepository(nil),
		Customers:   stubCustomersService{},
		Products:    stubProductsService{},
		Batches:     stubBatchesService{},
		Orders:      stubOrdersService{},
		Invoices:    stubInvoicesService{},
		Reports:     stubReportsService{},
		Outreach:    stubOutreachService{},
		Files:       stubFilesService{},
	})
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for liveness got %d", resp.Code)
	}
}

func TestMetricsEndpointIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for metrics got %d", resp.Code)
	}
}

func TestProtectedGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestProtectedGroupAcceptsValidJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleStaff))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with token got %d", resp.Code)
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	staff := httptest.NewRequest(http.MethodPost, "/api/v1/reports/invalidate", nil)
	staff.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleStaff))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, staff)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for staff got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodPost, "/api/v1/reports/invalidate", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestOrdersListWithValidJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleStaff))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for orders list got %d", resp.Code)
	}
}
