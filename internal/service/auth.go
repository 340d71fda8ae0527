package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/PDPyeh/AeroCatalog-103-C/internal/model"
	"github.com/PDPyeh/AeroCatalog-103-C/internal/store"
)

const tokenIssuer = "aerocatalog"

// dummyHash is compared against when no account matches, so that unknown
// emails take as long to reject as wrong passwords.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("aerocatalog-dummy-password"), bcrypt.DefaultCost)

// AuthService resolves credentials (passwords, bearer tokens and API keys)
// into identities.
type AuthService struct {
	store     *store.Store
	jwtSecret []byte
	tokenTTL  time.Duration
	logger    *slog.Logger
}

func NewAuthService(st *store.Store, jwtSecret string, tokenTTL time.Duration, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		store:     st,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// LoginAdmin verifies admin credentials and issues a token. Unknown email,
// wrong password and a deactivated account are indistinguishable to the
// caller.
func (s *AuthService) LoginAdmin(ctx context.Context, email, password string) (string, *model.Admin, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return "", nil, invalid("email", "Please provide email and password")
	}

	admin, err := s.store.GetAdminByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		bcrypt.CompareHashAndPassword(dummyHash, []byte(password)) //nolint:errcheck
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}
	if !admin.IsActive {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.IssueToken(admin.ID, model.KindAdmin)
	if err != nil {
		return "", nil, err
	}
	if err := s.store.UpdateAdminLastLogin(ctx, admin.ID); err != nil {
		s.logger.Warn("failed to record admin login", "admin_id", admin.ID, "error", err)
	}
	return token, admin, nil
}

// RegisterDeveloper creates a developer account and returns a token for it.
func (s *AuthService) RegisterDeveloper(ctx context.Context, dev *model.Developer, password string) (string, error) {
	dev.Name = strings.TrimSpace(dev.Name)
	dev.Email = strings.TrimSpace(dev.Email)
	if dev.Name == "" || dev.Email == "" || password == "" {
		return "", invalid("email", "Please provide name, email and password")
	}
	if !strings.Contains(dev.Email, "@") {
		return "", invalid("email", "Please provide a valid email")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return "", err
	}
	dev.PasswordHash = hash

	if err := s.store.CreateDeveloper(ctx, dev); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return "", ErrDuplicateEmail
		}
		return "", err
	}
	s.logger.Info("developer registered", "user_id", dev.ID)
	return s.IssueToken(dev.ID, model.KindDeveloper)
}

// LoginDeveloper verifies developer credentials and issues a token.
func (s *AuthService) LoginDeveloper(ctx context.Context, email, password string) (string, *model.Developer, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return "", nil, invalid("email", "Please provide email and password")
	}

	dev, err := s.store.GetDeveloperByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		bcrypt.CompareHashAndPassword(dummyHash, []byte(password)) //nolint:errcheck
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(dev.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.IssueToken(dev.ID, model.KindDeveloper)
	if err != nil {
		return "", nil, err
	}
	return token, dev, nil
}

// GetAdmin returns the admin behind an identity.
func (s *AuthService) GetAdmin(ctx context.Context, id int64) (*model.Admin, error) {
	admin, err := s.store.GetAdmin(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return admin, err
}

// GetDeveloper returns the developer behind an identity.
func (s *AuthService) GetDeveloper(ctx context.Context, id int64) (*model.Developer, error) {
	dev, err := s.store.GetDeveloper(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return dev, err
}

// UpdateProfile overwrites a developer's editable profile fields.
func (s *AuthService) UpdateProfile(ctx context.Context, id int64, p model.DeveloperProfile) (*model.Developer, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return nil, invalid("name", "Name is required")
	}
	if err := s.store.UpdateDeveloperProfile(ctx, id, p); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.GetDeveloper(ctx, id)
}

// ValidateAPIKey resolves a plaintext API key to the developer that owns it
// and records the use. A failure to record the use is logged and otherwise
// ignored.
func (s *AuthService) ValidateAPIKey(ctx context.Context, rawKey string) (*model.Identity, error) {
	if rawKey == "" {
		return nil, ErrInvalidKey
	}
	key, err := s.store.GetActiveAPIKeyByHash(ctx, store.HashAPIKey(rawKey))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidKey
	}
	if err != nil {
		return nil, err
	}

	// The bump is synchronous but must survive the client going away.
	if err := s.store.UpdateAPIKeyLastUsed(context.WithoutCancel(ctx), key.ID, time.Now()); err != nil {
		s.logger.Warn("failed to record api key use", "key_id", key.ID, "key_prefix", key.KeyPrefix, "error", err)
	}

	return &model.Identity{
		ID:     key.DeveloperID,
		Kind:   model.KindDeveloper,
		Method: "api_key",
		KeyID:  key.ID,
	}, nil
}

// IssueToken creates a signed HS256 token for the given principal. A zero
// TTL yields a token without expiry.
func (s *AuthService) IssueToken(id int64, kind model.IdentityKind) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		PrincipalID: id,
		Kind:        kind,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
			Issuer:   tokenIssuer,
		},
	}
	if s.tokenTTL != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.tokenTTL))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies a bearer token and returns the identity it names.
func (s *AuthService) ValidateToken(tokenStr string) (*model.Identity, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil || !token.Valid {
		return nil, ErrInvalidCredentials
	}
	if claims.PrincipalID <= 0 || !claims.Kind.Valid() {
		return nil, ErrInvalidCredentials
	}

	return &model.Identity{
		ID:     claims.PrincipalID,
		Kind:   claims.Kind,
		Method: "token",
	}, nil
}

// ResolveToken validates a bearer token for a request. Admin tokens are also
// checked against the admin's current state, so deactivating an admin ends
// the sessions it already holds.
func (s *AuthService) ResolveToken(ctx context.Context, tokenStr string) (*model.Identity, error) {
	id, err := s.ValidateToken(tokenStr)
	if err != nil {
		return nil, err
	}
	if id.Kind != model.KindAdmin {
		return id, nil
	}

	admin, err := s.store.GetAdmin(ctx, id.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("get admin: %w", err)
	}
	if !admin.IsActive {
		return nil, ErrInvalidCredentials
	}
	return id, nil
}

type tokenClaims struct {
	PrincipalID int64              `json:"id"`
	Kind        model.IdentityKind `json:"type"`
	jwt.RegisteredClaims
}
