package v1

import (
	"time"

	"github.com/gin-gonic/gin"

	"inventra/internal/core/numerator"
	"inventra/internal/core/tenant"
	"inventra/internal/domain/auth"
	"inventra/internal/domain/catalogs/customer"
	"inventra/internal/domain/catalogs/product"
	"inventra/internal/domain/catalogs/warehouse"
	"inventra/internal/domain/documents/adjustment"
	"inventra/internal/domain/documents/invoice"
	"inventra/internal/domain/documents/purchaseorder"
	"inventra/internal/domain/documents/salesorder"
	"inventra/internal/domain/ledger"
	"inventra/internal/domain/notify"
	"inventra/internal/domain/reports"
	"inventra/internal/domain/transfers"
	"inventra/internal/infrastructure/http/v1/handlers"
	"inventra/internal/infrastructure/http/v1/middleware"
	"inventra/internal/infrastructure/storage/postgres"
	"inventra/internal/infrastructure/storage/postgres/catalog_repo"
	"inventra/internal/infrastructure/storage/postgres/document_repo"
	"inventra/internal/infrastructure/storage/postgres/ledger_repo"
	"inventra/internal/infrastructure/storage/postgres/report_repo"
	"inventra/internal/infrastructure/storage/postgres/transfer_repo"
	"inventra/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Pool is the shared connection pool; all tenants live in one database
	Pool *postgres.Pool

	// TxManager runs request-scoped transactions on the shared pool
	TxManager *postgres.TxManager

	// TenantStore resolves tenants from the X-Tenant-ID header
	TenantStore tenant.Store

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// AuthService for authentication endpoints
	AuthService *auth.Service

	// Numerator for document number generation
	Numerator numerator.Generator

	// Auditor records the adjustment audit trail (optional)
	Auditor adjustment.ChangeLogger

	// Notifier delivers transfer workflow notifications (optional)
	Notifier notify.Notifier

	// IdempotencyEnabled enables idempotency middleware
	IdempotencyEnabled bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth, no tenant required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	tenantDB := middleware.TenantDB(cfg.TenantStore, cfg.Pool.Unwrap(), cfg.TxManager)

	// API v1
	v1 := router.Group("/api/v1")
	{
		// Auth routes - need TenantDB middleware BEFORE auth
		registerAuthRoutes(v1, cfg, tenantDB)

		// Protected endpoints - TenantDB runs first, then Auth
		protected := v1.Group("")
		protected.Use(tenantDB)                          // 1. Resolve tenant, scope the context
		protected.Use(middleware.Auth(cfg.JWTValidator)) // 2. Validate JWT
		protected.Use(middleware.UserContext())          // 3. Add UserID to context for domain layer

		// Apply idempotency middleware for mutating operations
		if cfg.IdempotencyEnabled {
			protected.Use(idempotencyMiddleware(10 * time.Minute))
		}

		deps := buildDomain(cfg)

		registerCatalogRoutes(protected, deps)
		registerDocumentRoutes(protected, deps)
		registerInventoryRoutes(protected, deps)
		registerRegisterRoutes(protected, deps)
		registerReportRoutes(protected, deps)
	}

	return router
}

// idempotencyMiddleware creates idempotency middleware over the
// TxManager from request context.
func idempotencyMiddleware(ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		txm := postgres.MustGetTxManager(c.Request.Context())
		store := postgres.NewIdempotencyStore(txm, ttl)
		middleware.Idempotency(store)(c)
	}
}

// domainDeps is the wired domain layer shared by the route groups.
// Repos and services are created once; the transaction manager and tenant
// are picked up from request context.
type domainDeps struct {
	products   *product.Service
	customers  *customer.Service
	warehouses *warehouse.Service

	ledgerSvc  *ledger.Service
	ledgerRepo ledger.Repository
	numbers    *ledger.BatchNumberGenerator

	salesOrders    *salesorder.Service
	purchaseOrders *purchaseorder.Service
	invoices       *invoice.Service
	adjustments    *adjustment.Service
	transfersSvc   *transfers.Service

	reportsSvc *reports.Service
}

func buildDomain(cfg RouterConfig) *domainDeps {
	deps := &domainDeps{}

	deps.products = product.NewService(catalog_repo.NewProductRepo(), cfg.Numerator)
	deps.customers = customer.NewService(catalog_repo.NewCustomerRepo(), cfg.Numerator)
	deps.warehouses = warehouse.NewService(catalog_repo.NewWarehouseRepo(), cfg.Numerator)

	deps.ledgerRepo = ledger_repo.NewRepo()
	deps.ledgerSvc = ledger.NewService(deps.ledgerRepo, deps.products, nil)
	deps.numbers = ledger.NewBatchNumberGenerator(cfg.Numerator, deps.warehouses, deps.ledgerRepo)

	deps.salesOrders = salesorder.NewService(
		document_repo.NewSalesOrderRepo(), deps.ledgerSvc, cfg.Numerator, nil)
	deps.purchaseOrders = purchaseorder.NewService(
		document_repo.NewPurchaseOrderRepo(), deps.ledgerSvc, deps.numbers, cfg.Numerator, nil)
	deps.invoices = invoice.NewService(
		document_repo.NewInvoiceRepo(), deps.salesOrders, deps.ledgerSvc, deps.products, cfg.Numerator, nil)
	deps.adjustments = adjustment.NewService(
		document_repo.NewAdjustmentRepo(), deps.ledgerSvc, cfg.Auditor, cfg.Numerator, nil)
	deps.transfersSvc = transfers.NewService(transfers.Config{
		Repo:      transfer_repo.NewRepo(),
		Ledger:    deps.ledgerSvc,
		Numbers:   deps.numbers,
		Numerator: cfg.Numerator,
		Notifier:  cfg.Notifier,
	})

	deps.reportsSvc = reports.NewService(report_repo.NewReportRepo())

	return deps
}

// registerAuthRoutes registers authentication endpoints.
func registerAuthRoutes(rg *gin.RouterGroup, cfg RouterConfig, tenantDB gin.HandlerFunc) {
	if cfg.AuthService == nil {
		return
	}

	baseHandler := handlers.NewBaseHandler()
	authHandler := handlers.NewAuthHandler(baseHandler, cfg.AuthService)

	// Public auth endpoints (no JWT required, but need tenant for DB access)
	publicAuth := rg.Group("/auth")
	publicAuth.Use(tenantDB)

	// Protected auth endpoints (JWT required)
	protectedAuth := rg.Group("/auth")
	protectedAuth.Use(tenantDB)
	protectedAuth.Use(middleware.Auth(cfg.JWTValidator))
	protectedAuth.Use(middleware.UserContext())

	authHandler.RegisterRoutes(publicAuth, protectedAuth)
}

// registerCatalogRoutes registers catalog endpoints.
func registerCatalogRoutes(rg *gin.RouterGroup, deps *domainDeps) {
	catalogs := rg.Group("/catalog")
	baseHandler := handlers.NewBaseHandler()

	// --- PRODUCTS ---
	{
		handler := handlers.NewProductHandler(baseHandler, deps.products)
		group := catalogs.Group("/products")
		group.GET("/low-stock", middleware.RequirePermission("catalog:product:read"), handler.LowStock)
		group.GET("/by-sku/:sku", middleware.RequirePermission("catalog:product:read"), handler.BySKU)
		group.GET("/by-barcode/:barcode", middleware.RequirePermission("catalog:product:read"), handler.ByBarcode)
		RegisterCatalogRoutes(group, handler, "catalog:product")
	}

	// --- CUSTOMERS ---
	{
		handler := handlers.NewCustomerHandler(baseHandler, deps.customers)
		RegisterCatalogRoutes(catalogs.Group("/customers"), handler, "catalog:customer")
	}

	// --- WAREHOUSES ---
	{
		handler := handlers.NewWarehouseHandler(baseHandler, deps.warehouses)
		RegisterCatalogRoutes(catalogs.Group("/warehouses"), handler, "catalog:warehouse")
	}
}

// registerDocumentRoutes registers document endpoints.
func registerDocumentRoutes(rg *gin.RouterGroup, deps *domainDeps) {
	docsGroup := rg.Group("/document")
	baseHandler := handlers.NewBaseHandler()

	// --- SALES ORDERS ---
	{
		handler := handlers.NewSalesOrderHandler(baseHandler, deps.salesOrders)
		group := docsGroup.Group("/sales-orders")
		RegisterDocumentRoutes(group, handler, "document:sales_order")
		handler.RegisterTransitions(group, middleware.RequirePermission("document:sales_order:update"))
	}

	// --- PURCHASE ORDERS ---
	{
		handler := handlers.NewPurchaseOrderHandler(baseHandler, deps.purchaseOrders)
		group := docsGroup.Group("/purchase-orders")
		RegisterDocumentRoutes(group, handler, "document:purchase_order")
		handler.RegisterTransitions(group, middleware.RequirePermission("document:purchase_order:update"))
	}

	// --- INVOICES ---
	{
		handler := handlers.NewInvoiceHandler(baseHandler, deps.invoices)
		group := docsGroup.Group("/invoices")
		group.GET("", middleware.RequirePermission("document:invoice:read"), handler.List)
		group.POST("", middleware.RequirePermission("document:invoice:create"), handler.Create)
		group.GET("/:id", middleware.RequirePermission("document:invoice:read"), handler.Get)
		group.POST("/:id/cancel", middleware.RequirePermission("document:invoice:cancel"), handler.Cancel)
		group.POST("/:id/payments", middleware.RequirePermission("document:invoice:pay"), handler.AddPayment)
		group.GET("/:id/payments", middleware.RequirePermission("document:invoice:read"), handler.GetPayments)
	}
}

// registerInventoryRoutes registers adjustment and transfer endpoints.
func registerInventoryRoutes(rg *gin.RouterGroup, deps *domainDeps) {
	inventory := rg.Group("/inventory")
	baseHandler := handlers.NewBaseHandler()

	// --- ADJUSTMENTS (append-only) ---
	{
		handler := handlers.NewAdjustmentHandler(baseHandler, deps.adjustments)
		group := inventory.Group("/adjustments")
		group.GET("", middleware.RequirePermission("inventory:adjustment:read"), handler.List)
		group.POST("", middleware.RequirePermission("inventory:adjustment:create"), handler.Create)
		group.GET("/:id", middleware.RequirePermission("inventory:adjustment:read"), handler.Get)
		group.GET("/:id/history", middleware.RequirePermission("inventory:adjustment:read"), handler.History)
	}

	// --- TRANSFERS ---
	{
		handler := handlers.NewTransferHandler(baseHandler, deps.transfersSvc)
		group := inventory.Group("/transfers")
		group.GET("", middleware.RequirePermission("inventory:transfer:read"), handler.List)
		group.POST("", middleware.RequirePermission("inventory:transfer:create"), handler.Create)
		group.GET("/:id", middleware.RequirePermission("inventory:transfer:read"), handler.Get)
		group.DELETE("/:id", middleware.RequirePermission("inventory:transfer:delete"), handler.Delete)
		handler.RegisterTransitions(group, middleware.RequirePermission("inventory:transfer:approve"))
	}
}

// registerRegisterRoutes registers stock ledger read endpoints.
func registerRegisterRoutes(rg *gin.RouterGroup, deps *domainDeps) {
	registers := rg.Group("/registers")
	baseHandler := handlers.NewBaseHandler()

	stockHandler := handlers.NewStockHandler(baseHandler, deps.ledgerSvc, deps.ledgerRepo)

	stockGroup := registers.Group("/stock")
	read := middleware.RequirePermission("register:stock:read")
	stockGroup.GET("/batches", read, stockHandler.ListBatches)
	stockGroup.GET("/batches/:id", read, stockHandler.GetBatch)
	stockGroup.GET("/availability", read, stockHandler.GetAvailability)
	stockGroup.GET("/balances/:warehouseId", read, stockHandler.GetWarehouseBalances)
	stockGroup.GET("/movements/:productId", read, stockHandler.GetMovements)
}

// registerReportRoutes registers report endpoints.
func registerReportRoutes(rg *gin.RouterGroup, deps *domainDeps) {
	reportsGroup := rg.Group("/reports")
	baseHandler := handlers.NewBaseHandler()

	reportHandler := handlers.NewReportsHandler(baseHandler, deps.reportsSvc)

	reportsGroup.GET("/inventory-metrics", middleware.RequirePermission("report:inventory:read"), reportHandler.GetInventoryMetrics)
	reportsGroup.GET("/debtors", middleware.RequirePermission("report:debtors:read"), reportHandler.GetDebtors)
}
