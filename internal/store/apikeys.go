package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/PDPyeh/AeroCatalog-103-C/internal/model"
)

const apiKeyColumns = `id, developer_id, key_hash, key_prefix, label, is_active, last_used, created_at`

// CreateAPIKeyWithinLimit inserts key for its developer unless the developer
// already holds limit active keys, in which case a *LimitError is returned.
// The count and the insert happen in one transaction under a lock on the
// developer row, so concurrent issuance can never exceed limit.
func (s *Store) CreateAPIKeyWithinLimit(ctx context.Context, key *model.APIKey, limit int) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.lockDeveloper(ctx, tx, key.DeveloperID); err != nil {
			return err
		}

		var active int
		if err := tx.GetContext(ctx, &active,
			tx.Rebind(`SELECT COUNT(*) FROM api_keys WHERE developer_id = ? AND is_active = ?`),
			key.DeveloperID, true,
		); err != nil {
			return fmt.Errorf("count api keys: %w", err)
		}
		if active >= limit {
			return &LimitError{Current: active, Limit: limit}
		}

		key.CreatedAt = now()
		key.IsActive = true
		id, err := s.insert(ctx, tx,
			`INSERT INTO api_keys (developer_id, key_hash, key_prefix, label, is_active, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			key.DeveloperID, key.KeyHash, key.KeyPrefix, key.Label, true, key.CreatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return fmt.Errorf("insert api key: %w", err)
		}
		key.ID = id
		return nil
	})
}

// GetActiveAPIKeyByHash looks up an active key by the SHA-256 hash of its
// plaintext.
func (s *Store) GetActiveAPIKeyByHash(ctx context.Context, hash string) (*model.APIKey, error) {
	var k model.APIKey
	err := s.db.GetContext(ctx, &k,
		s.db.Rebind(`SELECT `+apiKeyColumns+` FROM api_keys WHERE key_hash = ? AND is_active = ?`),
		hash, true,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get api key: %w", err)
	}
	return &k, nil
}

// ListAPIKeysByDeveloper returns every key the developer owns, newest first.
func (s *Store) ListAPIKeysByDeveloper(ctx context.Context, developerID int64) ([]model.APIKey, error) {
	keys := []model.APIKey{}
	err := s.db.SelectContext(ctx, &keys,
		s.db.Rebind(`SELECT `+apiKeyColumns+` FROM api_keys WHERE developer_id = ? ORDER BY created_at DESC, id DESC`),
		developerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	return keys, nil
}

// CountActiveAPIKeys returns how many active keys the developer holds.
func (s *Store) CountActiveAPIKeys(ctx context.Context, developerID int64) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		s.db.Rebind(`SELECT COUNT(*) FROM api_keys WHERE developer_id = ? AND is_active = ?`),
		developerID, true,
	)
	if err != nil {
		return 0, fmt.Errorf("count api keys: %w", err)
	}
	return n, nil
}

// DeleteAPIKey removes a key owned by developerID. A key owned by someone
// else is reported as ErrNotFound, exactly like a key that does not exist.
func (s *Store) DeleteAPIKey(ctx context.Context, developerID, keyID int64) error {
	return s.execAffecting(ctx, s.db,
		`DELETE FROM api_keys WHERE id = ? AND developer_id = ?`,
		keyID, developerID,
	)
}

// UpdateAPIKeyLastUsed records that the key authenticated a request at t.
func (s *Store) UpdateAPIKeyLastUsed(ctx context.Context, keyID int64, t time.Time) error {
	return s.execAffecting(ctx, s.db,
		`UPDATE api_keys SET last_used = ? WHERE id = ?`,
		t.UTC(), keyID,
	)
}

// HashAPIKey returns the hex-encoded SHA-256 of a plaintext key.
func HashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}
