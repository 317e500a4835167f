// Package domain defines the shared catalog service contracts: list
// filtering, repositories and lifecycle hooks.
package domain

import (
	"context"

	"inventra/internal/core/entity"
	"inventra/internal/core/id"
	"inventra/internal/domain/filter"
)

// ListFilter is the common query shape for catalog lists.
type ListFilter struct {
	// Search matches against the entity's searchable columns.
	Search string

	IDs []id.ID

	// IncludeDeleted also returns rows with the deletion mark set.
	IncludeDeleted bool

	// ParentID and IsFolder narrow hierarchical catalogs.
	ParentID *string
	IsFolder *bool

	// AdvancedFilters are client-supplied field conditions.
	AdvancedFilters []filter.Item

	// OrderBy names a column, "-" prefix for descending.
	OrderBy string

	Limit  int
	Offset int
}

// DefaultListFilter sorts by name with a page of 50.
func DefaultListFilter() ListFilter {
	return ListFilter{
		Limit:   50,
		OrderBy: "name",
	}
}

// ListResult is one page of a list query.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// CatalogRepository is the persistence contract for catalog entities.
type CatalogRepository[T entity.Validatable] interface {
	Create(ctx context.Context, entity T) error

	GetByID(ctx context.Context, id id.ID) (T, error)

	// GetByCode looks up by code, unique within the tenant.
	GetByCode(ctx context.Context, code string) (T, error)

	// Update applies optimistic locking on the version column.
	Update(ctx context.Context, entity T) error

	// Delete is a soft delete; physical removal is not exposed.
	Delete(ctx context.Context, id id.ID) error

	SetDeletionMark(ctx context.Context, id id.ID, marked bool) error

	List(ctx context.Context, filter ListFilter) (ListResult[T], error)

	Exists(ctx context.Context, id id.ID) (bool, error)

	ExistsByCode(ctx context.Context, code string) (bool, error)

	// GetTree returns the hierarchy under rootID, or the whole
	// catalog when rootID is nil.
	GetTree(ctx context.Context, rootID *id.ID) ([]T, error)

	// GetPath returns the chain of ancestors from the root down to
	// the entity itself.
	GetPath(ctx context.Context, id id.ID) ([]T, error)
}

// Hook runs at a lifecycle point of the generic catalog service. An
// error from a before-hook aborts the operation.
type Hook[T any] func(ctx context.Context, entity T) error

// HookRegistry collects hooks per lifecycle event.
type HookRegistry[T any] struct {
	beforeCreate []Hook[T]
	afterCreate  []Hook[T]
	beforeUpdate []Hook[T]
	afterUpdate  []Hook[T]
	beforeDelete []Hook[T]
	afterDelete  []Hook[T]
}

// NewHookRegistry creates an empty registry.
func NewHookRegistry[T any]() *HookRegistry[T] {
	return &HookRegistry[T]{}
}

func (r *HookRegistry[T]) OnBeforeCreate(hook Hook[T]) {
	r.beforeCreate = append(r.beforeCreate, hook)
}

func (r *HookRegistry[T]) OnAfterCreate(hook Hook[T]) {
	r.afterCreate = append(r.afterCreate, hook)
}

func (r *HookRegistry[T]) OnBeforeUpdate(hook Hook[T]) {
	r.beforeUpdate = append(r.beforeUpdate, hook)
}

func (r *HookRegistry[T]) OnAfterUpdate(hook Hook[T]) {
	r.afterUpdate = append(r.afterUpdate, hook)
}

func (r *HookRegistry[T]) OnBeforeDelete(hook Hook[T]) {
	r.beforeDelete = append(r.beforeDelete, hook)
}

func (r *HookRegistry[T]) OnAfterDelete(hook Hook[T]) {
	r.afterDelete = append(r.afterDelete, hook)
}

func (r *HookRegistry[T]) RunBeforeCreate(ctx context.Context, entity T) error {
	return runHooks(ctx, r.beforeCreate, entity)
}

func (r *HookRegistry[T]) RunAfterCreate(ctx context.Context, entity T) error {
	return runHooks(ctx, r.afterCreate, entity)
}

func (r *HookRegistry[T]) RunBeforeUpdate(ctx context.Context, entity T) error {
	return runHooks(ctx, r.beforeUpdate, entity)
}

func (r *HookRegistry[T]) RunAfterUpdate(ctx context.Context, entity T) error {
	return runHooks(ctx, r.afterUpdate, entity)
}

func (r *HookRegistry[T]) RunBeforeDelete(ctx context.Context, entity T) error {
	return runHooks(ctx, r.beforeDelete, entity)
}

func (r *HookRegistry[T]) RunAfterDelete(ctx context.Context, entity T) error {
	return runHooks(ctx, r.afterDelete, entity)
}

func runHooks[T any](ctx context.Context, hooks []Hook[T], entity T) error {
	for _, hook := range hooks {
		if err := hook(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}
