package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"motorline-auction-service/internal/domain/shared"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// contextKey is private so nothing outside the package can inject identity
type contextKey string

const identityKey contextKey = "identity"

// TokenVerifier verifies bearer tokens the external identity service issued
// and extracts the caller identity. The engine never issues tokens.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify parses and validates a token, yielding {userId, role}
func (v *TokenVerifier) Verify(tokenString string) (shared.Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return shared.Identity{}, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return shared.Identity{}, errors.New("invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return shared.Identity{}, errors.New("token has no subject")
	}

	userID, err := uuid.Parse(sub)
	if err != nil {
		return shared.Identity{}, fmt.Errorf("token subject is not a user id: %w", err)
	}

	role := shared.RoleUser
	if r, ok := claims["role"].(string); ok && shared.Role(r) == shared.RoleAdmin {
		role = shared.RoleAdmin
	}

	return shared.Identity{UserID: userID, Role: role}, nil
}

// IdentityFromContext returns the caller identity stored by the middleware,
// or nil for unauthenticated requests
func IdentityFromContext(ctx context.Context) *shared.Identity {
	if id, ok := ctx.Value(identityKey).(shared.Identity); ok {
		return &id
	}
	return nil
}

// RequireAuth rejects requests without a valid bearer token
func (v *TokenVerifier) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := v.identityFromRequest(r)
		if err != nil {
			WriteError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, *identity)))
	})
}

// OptionalAuth attaches the identity when a valid token is present and lets
// the request through either way; read endpoints use it so anonymous viewers
// still get snapshots, just without contact details
func (v *TokenVerifier) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identity, err := v.identityFromRequest(r); err == nil {
			r = r.WithContext(context.WithValue(r.Context(), identityKey, *identity))
		}
		next.ServeHTTP(w, r)
	})
}

func (v *TokenVerifier) identityFromRequest(r *http.Request) (*shared.Identity, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, errors.New("missing authorization header")
	}

	tokenString, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return nil, errors.New("authorization header is not a bearer token")
	}

	identity, err := v.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	return &identity, nil
}
