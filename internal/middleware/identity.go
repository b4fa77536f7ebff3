// Package middleware provides HTTP middleware for the ledger API.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/R3E-Network/data_ledger/pkg/logger"
)

type contextKey string

const callerKey contextKey = "caller"

// Identity resolves the caller identity for each request. With a secret
// configured it validates a bearer JWT (HS256) and takes the subject claim;
// otherwise it trusts the X-User-ID header, which is only acceptable behind
// a gateway that sets it.
type Identity struct {
	secret    []byte
	log       *logger.Logger
	skipPaths map[string]bool
}

// NewIdentity creates the middleware. A nil or empty secret disables JWT
// validation and enables the header fallback.
func NewIdentity(secret []byte, log *logger.Logger, skipPaths []string) *Identity {
	skip := make(map[string]bool)
	for _, path := range skipPaths {
		skip[path] = true
	}
	if log == nil {
		log = logger.NewDefault("identity")
	}
	return &Identity{secret: secret, log: log, skipPaths: skip}
}

// Handler returns the middleware handler.
func (m *Identity) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		caller, err := m.resolve(r)
		if err != nil {
			m.log.WithError(err).WithFields(map[string]any{
				"path":   r.URL.Path,
				"method": r.Method,
			}).Warn("caller resolution failed")
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		if caller != "" {
			r = r.WithContext(context.WithValue(r.Context(), callerKey, caller))
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Identity) resolve(r *http.Request) (string, error) {
	if len(m.secret) == 0 {
		return strings.TrimSpace(r.Header.Get("X-User-ID")), nil
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		// Reads stay anonymous; mutating handlers reject missing callers.
		return "", nil
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", jwt.ErrTokenMalformed
	}

	token, err := jwt.ParseWithClaims(parts[1], &jwt.RegisteredClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return m.secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", jwt.ErrTokenInvalidSubject
	}
	return claims.Subject, nil
}

// Caller extracts the resolved caller identity from the request context.
func Caller(ctx context.Context) string {
	caller, _ := ctx.Value(callerKey).(string)
	return caller
}
