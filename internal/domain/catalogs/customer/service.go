package customer

import (
	"context"
	"fmt"
	"time"

	"inventra/internal/core/apperror"
	"inventra/internal/core/numerator"
	"inventra/internal/domain"
)

// Service provides business logic for the Customer catalog.
// Uses composition with domain.CatalogService for common CRUD operations.
type Service struct {
	*domain.CatalogService[*Customer]
	repo      Repository
	numerator numerator.Generator
}

// NewService creates a new Customer service.
func NewService(
	repo Repository,
	numerator numerator.Generator,
) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Customer]{
		Repo:       repo,
		TxManager:  nil,
		EntityName: "customer",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		numerator:      numerator,
	}

	base.Hooks().OnBeforeCreate(svc.prepareForCreate)
	base.Hooks().OnBeforeUpdate(svc.prepareForUpdate)

	return svc
}

// prepareForCreate handles code generation and email uniqueness.
func (s *Service) prepareForCreate(ctx context.Context, c *Customer) error {
	// Generate code if not provided
	if c.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("CU"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		c.Code = code
	}

	return s.checkEmailUnique(ctx, c)
}

// prepareForUpdate handles email uniqueness.
func (s *Service) prepareForUpdate(ctx context.Context, c *Customer) error {
	return s.checkEmailUnique(ctx, c)
}

// --- Entity-specific methods ---

// FindByEmail retrieves a customer by email.
func (s *Service) FindByEmail(ctx context.Context, email string) (*Customer, error) {
	return s.repo.FindByEmail(ctx, email)
}

func (s *Service) checkEmailUnique(ctx context.Context, c *Customer) error {
	if c.Email == nil || *c.Email == "" {
		return nil
	}
	existing, err := s.repo.FindByEmail(ctx, *c.Email)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil
		}
		return err
	}
	if existing.ID != c.ID {
		return apperror.NewDuplicate("customer", "email", *c.Email)
	}
	return nil
}
