package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/PDPyeh/AeroCatalog-103-C/internal/model"
)

// ---------------------------------------------------------------------------
// Manufacturers
// ---------------------------------------------------------------------------

const manufacturerColumns = `id, name, country, description, founded_year, is_active, created_at, updated_at`

// ListManufacturers returns active manufacturers ordered by name.
func (s *Store) ListManufacturers(ctx context.Context) ([]model.Manufacturer, error) {
	out := []model.Manufacturer{}
	err := s.db.SelectContext(ctx, &out,
		s.db.Rebind(`SELECT `+manufacturerColumns+` FROM manufacturers WHERE is_active = ? ORDER BY name`), true)
	if err != nil {
		return nil, fmt.Errorf("list manufacturers: %w", err)
	}
	return out, nil
}

// GetManufacturer returns the manufacturer with the given id.
func (s *Store) GetManufacturer(ctx context.Context, id int64) (*model.Manufacturer, error) {
	var m model.Manufacturer
	err := s.db.GetContext(ctx, &m, s.db.Rebind(`SELECT `+manufacturerColumns+` FROM manufacturers WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get manufacturer: %w", err)
	}
	return &m, nil
}

// CreateManufacturer inserts m. Names are unique.
func (s *Store) CreateManufacturer(ctx context.Context, m *model.Manufacturer) error {
	ts := now()
	m.CreatedAt, m.UpdatedAt = ts, ts
	id, err := s.insert(ctx, s.db,
		`INSERT INTO manufacturers (name, country, description, founded_year, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.Name, m.Country, m.Description, m.FoundedYear, m.IsActive, ts, ts,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert manufacturer: %w", err)
	}
	m.ID = id
	return nil
}

// UpdateManufacturer overwrites every mutable column of m.
func (s *Store) UpdateManufacturer(ctx context.Context, m *model.Manufacturer) error {
	m.UpdatedAt = now()
	err := s.execAffecting(ctx, s.db,
		`UPDATE manufacturers SET name = ?, country = ?, description = ?, founded_year = ?, is_active = ?, updated_at = ?
		 WHERE id = ?`,
		m.Name, m.Country, m.Description, m.FoundedYear, m.IsActive, m.UpdatedAt, m.ID,
	)
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// DeleteManufacturer removes a manufacturer. Returns ErrInUse while aircraft
// still reference it.
func (s *Store) DeleteManufacturer(ctx context.Context, id int64) error {
	return s.deleteCatalogRow(ctx, "manufacturers", id)
}

// ---------------------------------------------------------------------------
// Categories
// ---------------------------------------------------------------------------

const categoryColumns = `id, name, description, is_active, created_at, updated_at`

// ListCategories returns active categories ordered by name.
func (s *Store) ListCategories(ctx context.Context) ([]model.Category, error) {
	out := []model.Category{}
	err := s.db.SelectContext(ctx, &out,
		s.db.Rebind(`SELECT `+categoryColumns+` FROM categories WHERE is_active = ? ORDER BY name`), true)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

// GetCategory returns the category with the given id.
func (s *Store) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	var c model.Category
	err := s.db.GetContext(ctx, &c, s.db.Rebind(`SELECT `+categoryColumns+` FROM categories WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &c, nil
}

// CreateCategory inserts c. Names are unique.
func (s *Store) CreateCategory(ctx context.Context, c *model.Category) error {
	ts := now()
	c.CreatedAt, c.UpdatedAt = ts, ts
	id, err := s.insert(ctx, s.db,
		`INSERT INTO categories (name, description, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		c.Name, c.Description, c.IsActive, ts, ts,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert category: %w", err)
	}
	c.ID = id
	return nil
}

// UpdateCategory overwrites every mutable column of c.
func (s *Store) UpdateCategory(ctx context.Context, c *model.Category) error {
	c.UpdatedAt = now()
	err := s.execAffecting(ctx, s.db,
		`UPDATE categories SET name = ?, description = ?, is_active = ?, updated_at = ? WHERE id = ?`,
		c.Name, c.Description, c.IsActive, c.UpdatedAt, c.ID,
	)
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// DeleteCategory removes a category. Returns ErrInUse while aircraft still
// reference it.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	return s.deleteCatalogRow(ctx, "categories", id)
}

// ---------------------------------------------------------------------------
// Aircraft
// ---------------------------------------------------------------------------

const aircraftColumns = `id, manufacturer_id, category_id, model_name, description, year_introduced,
	max_passengers, cruise_speed, max_altitude, range_km, engines, engine_type, image_url,
	is_active, created_at, updated_at`

// ListAircraft returns active aircraft matching f, ordered by model name.
func (s *Store) ListAircraft(ctx context.Context, f model.AircraftFilter) ([]model.Aircraft, error) {
	where := []string{"is_active = ?"}
	args := []interface{}{true}
	if f.ManufacturerID > 0 {
		where = append(where, "manufacturer_id = ?")
		args = append(args, f.ManufacturerID)
	}
	if f.CategoryID > 0 {
		where = append(where, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		where = append(where, "(LOWER(model_name) LIKE ? OR LOWER(description) LIKE ?)")
		pattern := "%" + strings.ToLower(q) + "%"
		args = append(args, pattern, pattern)
	}

	query := `SELECT ` + aircraftColumns + ` FROM aircraft WHERE ` + strings.Join(where, " AND ") + ` ORDER BY model_name, id`
	out := []model.Aircraft{}
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list aircraft: %w", err)
	}
	return out, nil
}

// GetAircraft returns the aircraft with the given id.
func (s *Store) GetAircraft(ctx context.Context, id int64) (*model.Aircraft, error) {
	var a model.Aircraft
	err := s.db.GetContext(ctx, &a, s.db.Rebind(`SELECT `+aircraftColumns+` FROM aircraft WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get aircraft: %w", err)
	}
	return &a, nil
}

// CreateAircraft inserts a. Returns ErrInUse when the referenced
// manufacturer or category does not exist.
func (s *Store) CreateAircraft(ctx context.Context, a *model.Aircraft) error {
	ts := now()
	a.CreatedAt, a.UpdatedAt = ts, ts
	id, err := s.insert(ctx, s.db,
		`INSERT INTO aircraft (manufacturer_id, category_id, model_name, description, year_introduced,
			max_passengers, cruise_speed, max_altitude, range_km, engines, engine_type, image_url,
			is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ManufacturerID, a.CategoryID, a.ModelName, a.Description, a.YearIntroduced,
		a.MaxPassengers, a.CruiseSpeed, a.MaxAltitude, a.RangeKm, a.Engines, a.EngineType, a.ImageURL,
		a.IsActive, ts, ts,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrInUse
		}
		return fmt.Errorf("insert aircraft: %w", err)
	}
	a.ID = id
	return nil
}

// UpdateAircraft overwrites every mutable column of a.
func (s *Store) UpdateAircraft(ctx context.Context, a *model.Aircraft) error {
	a.UpdatedAt = now()
	err := s.execAffecting(ctx, s.db,
		`UPDATE aircraft SET manufacturer_id = ?, category_id = ?, model_name = ?, description = ?,
			year_introduced = ?, max_passengers = ?, cruise_speed = ?, max_altitude = ?, range_km = ?,
			engines = ?, engine_type = ?, image_url = ?, is_active = ?, updated_at = ?
		 WHERE id = ?`,
		a.ManufacturerID, a.CategoryID, a.ModelName, a.Description,
		a.YearIntroduced, a.MaxPassengers, a.CruiseSpeed, a.MaxAltitude, a.RangeKm,
		a.Engines, a.EngineType, a.ImageURL, a.IsActive, a.UpdatedAt, a.ID,
	)
	if err != nil && isForeignKeyViolation(err) {
		return ErrInUse
	}
	return err
}

// DeleteAircraft removes an aircraft entry.
func (s *Store) DeleteAircraft(ctx context.Context, id int64) error {
	return s.deleteCatalogRow(ctx, "aircraft", id)
}

// deleteCatalogRow deletes by id from one of the fixed catalog tables.
func (s *Store) deleteCatalogRow(ctx context.Context, table string, id int64) error {
	err := s.execAffecting(ctx, s.db, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil && isForeignKeyViolation(err) {
		return ErrInUse
	}
	return err
}
