package handler

import (
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// APIKeyHeader carries the staff API key.
const APIKeyHeader = "api_key"

// SecurityHandler authenticates staff requests via HMAC-SHA256 hashed API
// keys.
type SecurityHandler struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewSecurityHandler creates a SecurityHandler with the given API key
// repository and HMAC pepper.
func NewSecurityHandler(apikeys auth.Repository, pepper []byte) *SecurityHandler {
	return &SecurityHandler{
		apikeys: apikeys,
		pepper:  pepper,
	}
}

// Authenticate resolves a raw key to its stored identity. The lookup is by
// hash, and the hash is compared again in constant time in case the
// repository returned a different row.
func (s *SecurityHandler) Authenticate(r *http.Request, key string) (*auth.APIKeyInfo, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, auth.ErrUnauthorized
	}
	hexHash := auth.Hash(s.pepper, key)

	info, err := s.apikeys.FindByHash(r.Context(), hexHash)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			return nil, err
		}
		return nil, errors.Wrap(err, "find api key")
	}

	want, err := hex.DecodeString(hexHash)
	if err != nil {
		return nil, auth.ErrUnauthorized
	}
	stored, err := hex.DecodeString(info.KeyHash)
	if err != nil || subtle.ConstantTimeCompare(want, stored) != 1 {
		return nil, auth.ErrUnauthorized
	}
	return info, nil
}

// Require returns middleware admitting only keys that grant scope.
func (s *SecurityHandler) Require(scope string) httpmiddleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info, err := s.Authenticate(r, r.Header.Get(APIKeyHeader))
			switch {
			case errors.Is(err, auth.ErrUnauthorized):
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			case err != nil:
				writeInternal(w, r, err)
				return
			}
			if !info.Allows(scope) {
				zctx.From(r.Context()).Info("API key lacks scope",
					zap.String("key", info.Name),
					zap.String("scope", scope),
				)
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}

			ctx := auth.WithKey(r.Context(), info)
			ctx = zctx.Base(ctx, zctx.From(ctx).With(zap.String("api_key", info.Name)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
