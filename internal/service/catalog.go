package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/PDPyeh/AeroCatalog-103-C/internal/model"
	"github.com/PDPyeh/AeroCatalog-103-C/internal/store"
)

// CatalogService is the thin create/read/update/delete layer over the
// aircraft catalog. It applies required-field checks and translates store
// errors; it carries no access policy of its own.
type CatalogService struct {
	store  *store.Store
	logger *slog.Logger
}

func NewCatalogService(st *store.Store, logger *slog.Logger) *CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogService{store: st, logger: logger}
}

// ---------------------------------------------------------------------------
// Manufacturers
// ---------------------------------------------------------------------------

func (s *CatalogService) ListManufacturers(ctx context.Context) ([]model.Manufacturer, error) {
	return s.store.ListManufacturers(ctx)
}

func (s *CatalogService) GetManufacturer(ctx context.Context, id int64) (*model.Manufacturer, error) {
	m, err := s.store.GetManufacturer(ctx, id)
	return m, catalogError(err)
}

func (s *CatalogService) CreateManufacturer(ctx context.Context, m *model.Manufacturer) error {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return invalid("name", "Manufacturer name is required")
	}
	return catalogError(s.store.CreateManufacturer(ctx, m))
}

func (s *CatalogService) UpdateManufacturer(ctx context.Context, m *model.Manufacturer) error {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return invalid("name", "Manufacturer name is required")
	}
	return catalogError(s.store.UpdateManufacturer(ctx, m))
}

func (s *CatalogService) DeleteManufacturer(ctx context.Context, id int64) error {
	return catalogError(s.store.DeleteManufacturer(ctx, id))
}

// ---------------------------------------------------------------------------
// Categories
// ---------------------------------------------------------------------------

func (s *CatalogService) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.store.ListCategories(ctx)
}

func (s *CatalogService) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	c, err := s.store.GetCategory(ctx, id)
	return c, catalogError(err)
}

func (s *CatalogService) CreateCategory(ctx context.Context, c *model.Category) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return invalid("name", "Category name is required")
	}
	return catalogError(s.store.CreateCategory(ctx, c))
}

func (s *CatalogService) UpdateCategory(ctx context.Context, c *model.Category) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return invalid("name", "Category name is required")
	}
	return catalogError(s.store.UpdateCategory(ctx, c))
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) error {
	return catalogError(s.store.DeleteCategory(ctx, id))
}

// ---------------------------------------------------------------------------
// Aircraft
// ---------------------------------------------------------------------------

func (s *CatalogService) ListAircraft(ctx context.Context, f model.AircraftFilter) ([]model.Aircraft, error) {
	return s.store.ListAircraft(ctx, f)
}

func (s *CatalogService) GetAircraft(ctx context.Context, id int64) (*model.Aircraft, error) {
	a, err := s.store.GetAircraft(ctx, id)
	return a, catalogError(err)
}

func (s *CatalogService) CreateAircraft(ctx context.Context, a *model.Aircraft) error {
	if err := validateAircraft(a); err != nil {
		return err
	}
	return aircraftError(s.store.CreateAircraft(ctx, a))
}

func (s *CatalogService) UpdateAircraft(ctx context.Context, a *model.Aircraft) error {
	if err := validateAircraft(a); err != nil {
		return err
	}
	return aircraftError(s.store.UpdateAircraft(ctx, a))
}

func (s *CatalogService) DeleteAircraft(ctx context.Context, id int64) error {
	return catalogError(s.store.DeleteAircraft(ctx, id))
}

func validateAircraft(a *model.Aircraft) error {
	a.ModelName = strings.TrimSpace(a.ModelName)
	if a.ModelName == "" || a.ManufacturerID <= 0 || a.CategoryID <= 0 {
		return invalid("modelName", "modelName, manufacturerId, and categoryId are required")
	}
	return nil
}

// aircraftError reports a dangling manufacturer or category reference as a
// validation failure rather than a conflict.
func aircraftError(err error) error {
	if errors.Is(err, store.ErrInUse) {
		return invalid("manufacturerId", "Referenced manufacturer or category does not exist")
	}
	return catalogError(err)
}

func catalogError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrDuplicate):
		return ErrConflict
	case errors.Is(err, store.ErrInUse):
		return ErrInUse
	}
	return err
}
