package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// AdminScope is the scope claim carried by admin access tokens
const AdminScope = "admin"

// AdminTokenTTL is how long an admin access token stays valid
const AdminTokenTTL = 24 * time.Hour

var errNotAdminToken = errors.New("token is not an admin access token")

// AdminClaims are the claims of an admin access token
type AdminClaims struct {
	Email string   `json:"email"`
	Roles []string `json:"roles"`
	Scope string   `json:"scope"`
	jwt.RegisteredClaims
}

// NewAdminToken signs an HS256 admin access token for adminID
func NewAdminToken(secret []byte, adminID, email string, roles []string, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("admin token secret not configured")
	}
	claims := AdminClaims{
		Email: email,
		Roles: roles,
		Scope: AdminScope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   adminID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(AdminTokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseAdminToken validates tokenString and returns its claims
func ParseAdminToken(secret []byte, tokenString string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Scope != AdminScope || claims.Subject == "" {
		return nil, errNotAdminToken
	}
	return claims, nil
}

// AdminMiddleware only lets requests carrying a valid admin bearer token through
func AdminMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			tokenString, ok := bearerToken(r)
			if !ok {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error": "unauthorized"}`))
				return
			}

			claims, err := ParseAdminToken(secret, tokenString)
			if errors.Is(err, errNotAdminToken) {
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"error": "forbidden"}`))
				return
			}
			if err != nil {
				zap.S().Warnw("rejected admin token", "url", r.URL, "error", err)
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error": "unauthorized"}`))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAdminID(r.Context(), claims.Subject)))
		})
	}
}
