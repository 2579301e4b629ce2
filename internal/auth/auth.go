// Package auth resolves the authenticated user from a bearer JWT.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role constants carried in the "role" claim
const (
	RoleClient     = "CLIENT"
	RoleEmployee   = "EMPLOYEE"
	RoleSupervisor = "SUPERVISOR"
	RoleAdmin      = "ADMIN"
)

var (
	// ErrUnauthenticated means the request carries no valid identity
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden means the identity lacks the required role
	ErrForbidden = errors.New("forbidden")
)

// Principal is the authenticated caller
type Principal struct {
	UserID uuid.UUID
	Role   string
}

type contextKey int

const principalKey contextKey = iota

// WithPrincipal stores the principal in the context
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the principal, or nil when absent
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}

// UserIDFromContext returns the authenticated user's ID
func UserIDFromContext(ctx context.Context) (uuid.UUID, error) {
	p := PrincipalFromContext(ctx)
	if p == nil || p.UserID == uuid.Nil {
		return uuid.Nil, ErrUnauthenticated
	}
	return p.UserID, nil
}

// RequireRole checks that the caller holds one of the roles
func RequireRole(ctx context.Context, roles ...string) error {
	p := PrincipalFromContext(ctx)
	if p == nil {
		return ErrUnauthenticated
	}
	for _, role := range roles {
		if p.Role == role {
			return nil
		}
	}
	return fmt.Errorf("%w: role %q", ErrForbidden, p.Role)
}

// Verifier validates HS256 access tokens
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier creates a verifier. An empty issuer skips the iss check.
func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

// Parse validates the token and extracts the principal from its claims
func (v *Verifier) Parse(tokenString string) (*Principal, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid sub claim", ErrUnauthenticated)
	}
	role, _ := claims["role"].(string)
	return &Principal{UserID: userID, Role: role}, nil
}

// Sign issues a token for the principal. Used by tests and local tooling.
func (v *Verifier) Sign(p *Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  p.UserID.String(),
		"role": p.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	if v.issuer != "" {
		claims["iss"] = v.issuer
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// Middleware rejects requests without a valid bearer token and stores the
// principal in the request context
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_request"`)
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		principal, err := v.Parse(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			http.Error(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}
