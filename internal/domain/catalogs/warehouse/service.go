package warehouse

import (
	"context"
	"fmt"
	"time"

	"inventra/internal/core/apperror"
	"inventra/internal/core/id"
	"inventra/internal/core/numerator"
	"inventra/internal/domain"
)

// Service provides business logic for the Warehouse catalog.
// Uses composition with domain.CatalogService for common CRUD operations.
type Service struct {
	*domain.CatalogService[*Warehouse]
	repo      Repository
	numerator numerator.Generator
}

// NewService creates a new Warehouse service.
func NewService(
	repo Repository,
	numerator numerator.Generator,
) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Warehouse]{
		Repo:       repo,
		TxManager:  nil,
		EntityName: "warehouse",
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

// prepareForCreate handles code generation, name uniqueness and default flag.
func (s *Service) prepareForCreate(ctx context.Context, wh *Warehouse) error {
	// Generate code if not provided
	if wh.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("WH"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		wh.Code = code
	}

	if err := s.checkNameUnique(ctx, wh); err != nil {
		return err
	}

	// If setting as default, clear other defaults
	if wh.IsDefault {
		if err := s.repo.ClearDefault(ctx); err != nil {
			return err
		}
	}

	return nil
}

// prepareForUpdate handles name uniqueness and default flag.
func (s *Service) prepareForUpdate(ctx context.Context, wh *Warehouse) error {
	if err := s.checkNameUnique(ctx, wh); err != nil {
		return err
	}

	if wh.IsDefault {
		if err := s.repo.ClearDefault(ctx); err != nil {
			return err
		}
	}

	return nil
}

// --- Entity-specific methods ---

// GetCode returns the warehouse code. Satisfies the batch number
// generator's warehouse resolver.
func (s *Service) GetCode(ctx context.Context, warehouseID id.ID) (string, error) {
	wh, err := s.GetByID(ctx, warehouseID)
	if err != nil {
		return "", err
	}
	return wh.Code, nil
}

// checkNameUnique rejects a second warehouse whose name differs only
// in casing.
func (s *Service) checkNameUnique(ctx context.Context, wh *Warehouse) error {
	existing, err := s.repo.FindByName(ctx, wh.Name)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil
		}
		return err
	}
	if existing.ID != wh.ID {
		return apperror.NewDuplicate("warehouse", "name", wh.Name)
	}
	return nil
}
