package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PDPyeh/AeroCatalog-103-C/internal/model"
	"github.com/PDPyeh/AeroCatalog-103-C/internal/store"
)

// DefaultKeyLabel is used when a key is issued without a name.
const DefaultKeyLabel = "API Key"

// keyPrefixLen is how much of the plaintext is kept for display.
const keyPrefixLen = 17

// APIKeyService issues, lists and revokes developer API keys.
type APIKeyService struct {
	store     *store.Store
	maxActive int
	prefix    string
	logger    *slog.Logger
}

func NewAPIKeyService(st *store.Store, maxActive int, prefix string, logger *slog.Logger) *APIKeyService {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIKeyService{store: st, maxActive: maxActive, prefix: prefix, logger: logger}
}

// MaxActive returns the per-developer active key limit.
func (s *APIKeyService) MaxActive() int {
	return s.maxActive
}

// Issue creates a new key for ownerID. The returned value is the only place
// the plaintext secret ever appears.
func (s *APIKeyService) Issue(ctx context.Context, ownerID int64, label string) (*model.IssuedAPIKey, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		label = DefaultKeyLabel
	}

	rawKey, err := s.generateKey()
	if err != nil {
		return nil, err
	}

	key := &model.APIKey{
		DeveloperID: ownerID,
		KeyHash:     store.HashAPIKey(rawKey),
		KeyPrefix:   rawKey[:keyPrefixLen],
		Label:       label,
	}
	if err := s.store.CreateAPIKeyWithinLimit(ctx, key, s.maxActive); err != nil {
		var limitErr *store.LimitError
		switch {
		case errors.As(err, &limitErr):
			return nil, &QuotaError{Resource: "api_keys", Current: limitErr.Current, Limit: limitErr.Limit}
		case errors.Is(err, store.ErrNotFound):
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("create api key: %w", err)
	}

	s.logger.Info("api key issued", "user_id", ownerID, "key_id", key.ID, "key_prefix", key.KeyPrefix)
	return &model.IssuedAPIKey{
		ID:        key.ID,
		Label:     key.Label,
		Key:       rawKey,
		KeyPrefix: key.KeyPrefix,
		CreatedAt: key.CreatedAt,
	}, nil
}

// List returns every key ownerID holds, newest first, without secrets.
func (s *APIKeyService) List(ctx context.Context, ownerID int64) (*model.APIKeyList, error) {
	keys, err := s.store.ListAPIKeysByDeveloper(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	active := 0
	for _, k := range keys {
		if k.IsActive {
			active++
		}
	}
	return &model.APIKeyList{
		Keys:        keys,
		Count:       len(keys),
		ActiveCount: active,
		MaxLimit:    s.maxActive,
	}, nil
}

// Revoke permanently deletes one of ownerID's keys. Keys owned by another
// developer are reported as not found.
func (s *APIKeyService) Revoke(ctx context.Context, ownerID, keyID int64) error {
	if err := s.store.DeleteAPIKey(ctx, ownerID, keyID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.logger.Info("api key revoked", "user_id", ownerID, "key_id", keyID)
	return nil
}

// generateKey returns prefix followed by 32 random bytes hex-encoded.
func (s *APIKeyService) generateKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return s.prefix + hex.EncodeToString(b), nil
}
