// Package middleware provides HTTP middleware for the admin API.
package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey is a type for context keys.
type ContextKey string

const (
	// AdminIDKey is the context key for the authenticated admin.
	AdminIDKey ContextKey = "admin_id"
	// AuthMethodKey is the context key for how the request authenticated.
	AuthMethodKey ContextKey = "auth_method"
)

// AdminKeyHeader carries the static admin API key.
const AdminKeyHeader = "x-admin-api-key"

// adminRoles are accepted from either the top-level role claim or app_metadata.role.
var adminRoles = []string{"admin", "service_role"}

// Claims represents the claims of a BaaS-issued JWT.
type Claims struct {
	jwt.RegisteredClaims
	Email       string `json:"email,omitempty"`
	Role        string `json:"role"`
	AppMetadata struct {
		Role string `json:"role"`
	} `json:"app_metadata"`
}

// IsAdmin reports whether the token grants admin access.
func (c *Claims) IsAdmin() bool {
	return slices.Contains(adminRoles, c.Role) || slices.Contains(adminRoles, c.AppMetadata.Role)
}

// AuthConfig holds the credentials accepted by Auth. Empty values disable that method.
type AuthConfig struct {
	APIKey    string
	JWTSecret string
}

// Auth accepts either the static admin API key or a bearer JWT with an admin role.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key := r.Header.Get(AdminKeyHeader); key != "" {
				if cfg.APIKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(cfg.APIKey)) != 1 {
					http.Error(w, `{"error":"invalid admin API key"}`, http.StatusUnauthorized)
					return
				}
				ctx := context.WithValue(r.Context(), AdminIDKey, "api-key")
				ctx = context.WithValue(ctx, AuthMethodKey, "api_key")
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				http.Error(w, `{"error":"invalid authorization header format"}`, http.StatusUnauthorized)
				return
			}
			if cfg.JWTSecret == "" {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(cfg.JWTSecret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}
			if !claims.IsAdmin() {
				http.Error(w, `{"error":"admin role required"}`, http.StatusForbidden)
				return
			}

			adminID := claims.Subject
			if adminID == "" {
				adminID = claims.Email
			}
			ctx := context.WithValue(r.Context(), AdminIDKey, adminID)
			ctx = context.WithValue(ctx, AuthMethodKey, "jwt")

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAdminID gets the authenticated admin from context.
func GetAdminID(ctx context.Context) string {
	if v, ok := ctx.Value(AdminIDKey).(string); ok {
		return v
	}
	return ""
}

// GetAuthMethod returns "api_key", "jwt" or "".
func GetAuthMethod(ctx context.Context) string {
	if v, ok := ctx.Value(AuthMethodKey).(string); ok {
		return v
	}
	return ""
}
