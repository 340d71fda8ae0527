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
// Admin accounts
// ---------------------------------------------------------------------------

const adminColumns = `id, email, password_hash, name, is_active, last_login_at, created_at, updated_at`

// CreateAdmin inserts a new admin. Email addresses are stored lower-cased.
func (s *Store) CreateAdmin(ctx context.Context, admin *model.Admin) error {
	ts := now()
	admin.Email = normalizeEmail(admin.Email)
	admin.CreatedAt, admin.UpdatedAt = ts, ts
	admin.IsActive = true

	id, err := s.insert(ctx, s.db,
		`INSERT INTO admins (email, password_hash, name, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		admin.Email, admin.PasswordHash, admin.Name, true, ts, ts,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert admin: %w", err)
	}
	admin.ID = id
	return nil
}

// GetAdmin returns the admin with the given id.
func (s *Store) GetAdmin(ctx context.Context, id int64) (*model.Admin, error) {
	var a model.Admin
	err := s.db.GetContext(ctx, &a, s.db.Rebind(`SELECT `+adminColumns+` FROM admins WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get admin: %w", err)
	}
	return &a, nil
}

// GetAdminByEmail returns the admin with the given email, active or not.
func (s *Store) GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error) {
	var a model.Admin
	err := s.db.GetContext(ctx, &a, s.db.Rebind(`SELECT `+adminColumns+` FROM admins WHERE email = ?`), normalizeEmail(email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get admin by email: %w", err)
	}
	return &a, nil
}

// ListAdmins returns every admin ordered by id.
func (s *Store) ListAdmins(ctx context.Context) ([]model.Admin, error) {
	admins := []model.Admin{}
	if err := s.db.SelectContext(ctx, &admins, `SELECT `+adminColumns+` FROM admins ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return admins, nil
}

// SetAdminActive activates or deactivates the admin with the given email.
func (s *Store) SetAdminActive(ctx context.Context, email string, active bool) error {
	return s.execAffecting(ctx, s.db,
		`UPDATE admins SET is_active = ?, updated_at = ? WHERE email = ?`,
		active, now(), normalizeEmail(email),
	)
}

// UpdateAdminLastLogin records a successful login.
func (s *Store) UpdateAdminLastLogin(ctx context.Context, id int64) error {
	return s.execAffecting(ctx, s.db, `UPDATE admins SET last_login_at = ? WHERE id = ?`, now(), id)
}

// ---------------------------------------------------------------------------
// Developer accounts
// ---------------------------------------------------------------------------

const developerColumns = `id, name, email, password_hash, company, website, created_at, updated_at`

// CreateDeveloper inserts a new developer. Returns ErrDuplicate when the
// email is already registered.
func (s *Store) CreateDeveloper(ctx context.Context, dev *model.Developer) error {
	ts := now()
	dev.Email = normalizeEmail(dev.Email)
	dev.CreatedAt, dev.UpdatedAt = ts, ts

	id, err := s.insert(ctx, s.db,
		`INSERT INTO developers (name, email, password_hash, company, website, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		dev.Name, dev.Email, dev.PasswordHash, dev.Company, dev.Website, ts, ts,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert developer: %w", err)
	}
	dev.ID = id
	return nil
}

// GetDeveloper returns the developer with the given id.
func (s *Store) GetDeveloper(ctx context.Context, id int64) (*model.Developer, error) {
	var d model.Developer
	err := s.db.GetContext(ctx, &d, s.db.Rebind(`SELECT `+developerColumns+` FROM developers WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get developer: %w", err)
	}
	return &d, nil
}

// GetDeveloperByEmail returns the developer registered under email.
func (s *Store) GetDeveloperByEmail(ctx context.Context, email string) (*model.Developer, error) {
	var d model.Developer
	err := s.db.GetContext(ctx, &d, s.db.Rebind(`SELECT `+developerColumns+` FROM developers WHERE email = ?`), normalizeEmail(email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get developer by email: %w", err)
	}
	return &d, nil
}

// UpdateDeveloperProfile overwrites the editable profile fields.
func (s *Store) UpdateDeveloperProfile(ctx context.Context, id int64, p model.DeveloperProfile) error {
	return s.execAffecting(ctx, s.db,
		`UPDATE developers SET name = ?, company = ?, website = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.Company, p.Website, now(), id,
	)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
