package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrKeyNotFound is returned when no active API key matches the presented
// credential.
var ErrKeyNotFound = errors.New("api key not found")

// ScopeAdmin allows order status administration.
const ScopeAdmin = "admin"

// APIKeyInfo holds the identity and permission data for a validated API key.
// UserRef is the opaque customer reference the key acts as.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	UserRef string
	Scopes  []string
}

// HasScope reports whether the key carries the given scope.
func (k *APIKeyInfo) HasScope(scope string) bool {
	for _, s := range k.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
