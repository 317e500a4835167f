// Package main provides a CLI tool for seeding the database with initial data.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"inventra/internal/core/id"
	"inventra/internal/core/tenant"
	"inventra/internal/core/types"
	"inventra/internal/infrastructure/storage/postgres"
	"inventra/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	// All seeded rows belong to one tenant.
	seededTenant, err := ensureTenant(ctx, pool, log)
	if err != nil {
		log.Fatalw("failed to seed tenant", "error", err)
	}

	adminUserID, err := seedAdminUser(ctx, pool, log, seededTenant.ID)
	if err != nil {
		log.Fatalw("failed to seed admin user", "error", err)
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedDemoData(ctx, pool, log, seededTenant.ID); err != nil {
			log.Fatalw("failed to seed demo data", "error", err)
		}
	}

	log.Infow("seeding completed successfully",
		"tenant_id", seededTenant.ID,
		"admin_user_id", adminUserID,
	)
}

func ensureTenant(ctx context.Context, pool *postgres.Pool, log *logger.Logger) (*tenant.Tenant, error) {
	slug := os.Getenv("TENANT_SLUG")
	if slug == "" {
		slug = "demo"
	}

	name := os.Getenv("TENANT_NAME")
	if name == "" {
		name = "Demo Tenant"
	}

	store := tenant.NewPostgresStore(pool.Unwrap())

	existing, err := store.GetBySlug(ctx, slug)
	if err == nil {
		log.Infow("tenant already exists", "slug", slug, "tenant_id", existing.ID)
		return existing, nil
	}
	if !errors.Is(err, tenant.ErrTenantNotFound) {
		return nil, fmt.Errorf("check tenant exists: %w", err)
	}

	created, err := store.Create(ctx, &tenant.CreateTenantInput{
		Slug:        slug,
		DisplayName: name,
		Plan:        tenant.Plan(os.Getenv("TENANT_PLAN")),
	})
	if err != nil {
		return nil, fmt.Errorf("create tenant: %w", err)
	}

	log.Infow("tenant created", "slug", slug, "tenant_id", created.ID)
	return created, nil
}

func seedAdminUser(ctx context.Context, pool *postgres.Pool, log *logger.Logger, tenantID string) (id.ID, error) {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	if adminEmail == "" {
		adminEmail = "admin@inventra.local"
	}

	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "Admin123!"
	}

	// Check if admin already exists
	var existingID id.ID
	err := pool.Pool.QueryRow(ctx,
		`SELECT id FROM users WHERE email = $1 AND tenant_id = $2 AND NOT deletion_mark`,
		adminEmail, tenantID,
	).Scan(&existingID)
	if err == nil {
		log.Infow("admin user already exists", "email", adminEmail, "user_id", existingID)
		return existingID, nil
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return id.Nil(), fmt.Errorf("check admin exists: %w", err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return id.Nil(), fmt.Errorf("hash password: %w", err)
	}

	userID := id.New()
	now := time.Now()

	_, err = pool.Pool.Exec(ctx, `
		INSERT INTO users (
			id, tenant_id, email, password_hash, first_name, last_name,
			is_active, is_admin, email_verified, email_verified_at, version
		)
		VALUES ($1, $2, $3, $4, 'System', 'Admin', true, true, true, $5, 1)
	`, userID, tenantID, adminEmail, string(passwordHash), now)
	if err != nil {
		return id.Nil(), fmt.Errorf("insert admin user: %w", err)
	}

	// Assign admin role
	var adminRoleID id.ID
	err = pool.Pool.QueryRow(ctx,
		`SELECT id FROM roles WHERE code = 'admin' AND tenant_id = $1`, tenantID,
	).Scan(&adminRoleID)
	if err != nil {
		log.Warnw("admin role not found, skipping role assignment", "error", err)
	} else {
		_, err = pool.Pool.Exec(ctx, `
			INSERT INTO user_roles (user_id, role_id, granted_by)
			VALUES ($1, $2, NULL)
			ON CONFLICT (user_id, role_id) DO NOTHING
		`, userID, adminRoleID)
		if err != nil {
			log.Warnw("failed to assign admin role", "error", err)
		}
	}

	log.Infow("admin user created",
		"email", adminEmail,
		"user_id", userID,
	)

	return userID, nil
}

func seedDemoData(ctx context.Context, pool *postgres.Pool, log *logger.Logger, tenantID string) error {
	log.Info("seeding demo data...")

	// 1. Warehouses
	warehouses := []struct {
		name      string
		address   string
		wType     string
		isDefault bool
	}{
		{"Main Warehouse", "12 Industrial Rd", "main", true},
		{"Retail Store", "5 High Street", "retail", false},
		{"Transit Warehouse", "virtual", "transit", false},
	}

	for i, w := range warehouses {
		whID := id.New()
		code := fmt.Sprintf("WH-%03d", i+1)
		_, err := pool.Pool.Exec(ctx, `
			INSERT INTO cat_warehouses (
				id, tenant_id, code, name, type, address, is_active, is_default,
				version, deletion_mark, attributes
			)
			VALUES ($1, $2, $3, $4, $5, $6, true, $7, 1, false, '{}')
			ON CONFLICT (tenant_id, code) WHERE deletion_mark = FALSE DO NOTHING
		`, whID, tenantID, code, w.name, w.wType, w.address, w.isDefault)
		if err != nil {
			log.Warnw("failed to seed warehouse", "name", w.name, "error", err)
		}
	}

	// 2. Customers
	customers := []struct {
		name    string
		company string
		taxID   string
		email   string
	}{
		{"Acme Retail Ltd", "Acme Retail Ltd", "GB123456789", "orders@acme-retail.example"},
		{"Northside Grocers", "Northside Grocers LLC", "GB987654321", "purchasing@northside.example"},
		{"J. Okafor", "", "", "j.okafor@example.com"},
	}

	for i, c := range customers {
		custID := id.New()
		code := fmt.Sprintf("CU-%03d", i+1)
		_, err := pool.Pool.Exec(ctx, `
			INSERT INTO cat_customers (
				id, tenant_id, code, name, company_name, tax_id, email,
				version, deletion_mark, attributes
			)
			VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), 1, false, '{}')
			ON CONFLICT (tenant_id, code) WHERE deletion_mark = FALSE DO NOTHING
		`, custID, tenantID, code, c.name, c.company, c.taxID, c.email)
		if err != nil {
			log.Warnw("failed to seed customer", "name", c.name, "error", err)
		}
	}

	// 3. Products
	products := []struct {
		name      string
		sku       string
		barcode   string
		unit      string
		salePrice float64
		minStock  float64
	}{
		{"Copy Paper A4 (500 sheets)", "PAP-A4", "4600000000001", "box", 6.50, 20},
		{"Ballpoint Pen Blue", "PEN-BLU", "4600000000002", "pcs", 0.80, 100},
		{"Desktop Stapler", "STP-001", "4600000000003", "pcs", 4.20, 10},
		{"Paper Clips 28mm (100 pack)", "CLP-028", "4600000000004", "box", 1.10, 50},
		{"Lever Arch Folder", "FOL-REG", "4600000000005", "pcs", 2.30, 25},
	}

	for i, p := range products {
		prodID := id.New()
		code := fmt.Sprintf("PR-%05d", i+1)
		_, err := pool.Pool.Exec(ctx, `
			INSERT INTO cat_products (
				id, tenant_id, code, name, sku, barcode, unit, sale_price,
				total_stock, min_stock, active, version, deletion_mark, attributes
			)
			VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, 0, $9, true, 1, false, '{}')
			ON CONFLICT (tenant_id, code) WHERE deletion_mark = FALSE DO NOTHING
		`, prodID, tenantID, code, p.name, p.sku, p.barcode, p.unit,
			types.NewMoney(p.salePrice), types.NewQuantityFromFloat64(p.minStock))
		if err != nil {
			log.Warnw("failed to seed product", "name", p.name, "error", err)
		}
	}

	log.Info("demo data seeded successfully")
	return nil
}
