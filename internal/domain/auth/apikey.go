// Package auth holds staff API key identities.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"slices"

	"github.com/go-faster/errors"
)

// ErrUnauthorized is returned for a missing, unknown or insufficient key.
var ErrUnauthorized = errors.New("unauthorized")

// ScopeOrders allows reading orders with customer details and changing
// their status.
const ScopeOrders = "orders:admin"

// APIKeyInfo holds the identity and permission data for a validated API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// Allows reports whether the key grants scope.
func (k *APIKeyInfo) Allows(scope string) bool {
	return slices.Contains(k.Scopes, scope) || slices.Contains(k.Scopes, "*")
}

// Repository stores API keys by their HMAC hash. Raw keys are never stored.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
	Create(ctx context.Context, info APIKeyInfo) error
}

// Hash returns the hex HMAC-SHA256 of key under pepper.
func Hash(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

type ctxKey struct{}

// WithKey returns ctx carrying the authenticated key.
func WithKey(ctx context.Context, k *APIKeyInfo) context.Context {
	return context.WithValue(ctx, ctxKey{}, k)
}

// KeyFrom returns the authenticated key, if any.
func KeyFrom(ctx context.Context) (*APIKeyInfo, bool) {
	k, ok := ctx.Value(ctxKey{}).(*APIKeyInfo)
	return k, ok
}
