package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/PDPyeh/AeroCatalog-103-C/internal/model"
	"github.com/PDPyeh/AeroCatalog-103-C/internal/service"
)

// ErrRejected marks a credential that was presented but is not acceptable.
// Resolver errors that do not wrap it are treated as internal failures.
var ErrRejected = errors.New("credential rejected")

// Resolver turns one kind of request credential into an identity. Resolve
// follows a three-way contract:
//
//	(identity, nil)  the credential was present and valid
//	(nil, nil)       the credential is absent; another resolver may apply
//	(nil, err)       the credential was present but invalid, or lookup failed
type Resolver interface {
	Name() string
	Resolve(ctx context.Context, r *http.Request) (*model.Identity, error)
}

// TokenValidator verifies bearer tokens.
type TokenValidator interface {
	ResolveToken(ctx context.Context, token string) (*model.Identity, error)
}

// KeyValidator verifies API keys.
type KeyValidator interface {
	ValidateAPIKey(ctx context.Context, key string) (*model.Identity, error)
}

// BearerResolver reads "Authorization: Bearer <token>" and accepts only the
// listed identity kinds.
type BearerResolver struct {
	Tokens TokenValidator
	Kinds  []model.IdentityKind
}

func (b BearerResolver) Name() string { return "bearer" }

func (b BearerResolver) Resolve(ctx context.Context, r *http.Request) (*model.Identity, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, nil
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return nil, nil
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: empty bearer token", ErrRejected)
	}

	id, err := b.Tokens.ResolveToken(ctx, token)
	if err != nil {
		if isCredentialError(err) {
			return nil, fmt.Errorf("%w: %v", ErrRejected, err)
		}
		return nil, fmt.Errorf("validate token: %w", err)
	}
	for _, k := range b.Kinds {
		if id.Kind == k {
			return id, nil
		}
	}
	return nil, fmt.Errorf("%w: token kind %q not accepted here", ErrRejected, id.Kind)
}

// KeyResolver reads an API key from Header.
type KeyResolver struct {
	Keys   KeyValidator
	Header string
}

func (k KeyResolver) Name() string { return "api_key" }

func (k KeyResolver) Resolve(ctx context.Context, r *http.Request) (*model.Identity, error) {
	key := strings.TrimSpace(r.Header.Get(k.Header))
	if key == "" {
		return nil, nil
	}
	id, err := k.Keys.ValidateAPIKey(ctx, key)
	if err != nil {
		if isCredentialError(err) {
			return nil, fmt.Errorf("%w: %v", ErrRejected, err)
		}
		return nil, fmt.Errorf("validate api key: %w", err)
	}
	return id, nil
}

func isCredentialError(err error) bool {
	return errors.Is(err, service.ErrInvalidKey) || errors.Is(err, service.ErrInvalidCredentials)
}

// Chain tries resolvers in order.
type Chain []Resolver

// Resolve returns the first identity any resolver produces. A rejection is
// final only when it comes from the last resolver; earlier rejections fall
// through so a later credential can still authorize the request. The
// returned error wraps ErrRejected for bad credentials.
func (c Chain) Resolve(ctx context.Context, r *http.Request) (*model.Identity, error) {
	var rejected error
	for i, res := range c {
		id, err := res.Resolve(ctx, r)
		switch {
		case err == nil && id != nil:
			return id, nil
		case err == nil:
			continue
		case !errors.Is(err, ErrRejected):
			return nil, fmt.Errorf("%s resolver: %w", res.Name(), err)
		case i == len(c)-1:
			return nil, err
		default:
			rejected = err
		}
	}
	if rejected != nil {
		return nil, rejected
	}
	return nil, fmt.Errorf("%w: no credentials", ErrRejected)
}

// KeyOnly accepts only an API key.
func KeyOnly(keys KeyValidator, header string) Chain {
	return Chain{KeyResolver{Keys: keys, Header: header}}
}

// AdminOrKey accepts an admin bearer token or an API key.
func AdminOrKey(tokens TokenValidator, keys KeyValidator, header string) Chain {
	return Chain{
		BearerResolver{Tokens: tokens, Kinds: []model.IdentityKind{model.KindAdmin}},
		KeyResolver{Keys: keys, Header: header},
	}
}

// TokenOnly accepts a bearer token of either kind.
func TokenOnly(tokens TokenValidator) Chain {
	return Chain{
		BearerResolver{Tokens: tokens, Kinds: []model.IdentityKind{model.KindAdmin, model.KindDeveloper}},
	}
}
