package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"staking-ledger-go/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Claims carried by access tokens
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func (c *Claims) IsAdmin() bool {
	return c.Role == models.RoleAdmin
}

var ErrInvalidToken = errors.New("invalid or expired token")

// GenerateToken signs an HS256 access token
func GenerateToken(cfg models.AuthConfig, userId, email, role string, ttl time.Duration) (string, error) {
	if cfg.JWTSecret == "" {
		return "", errors.New("jwt secret is not configured")
	}
	now := time.Now()
	claims := Claims{
		UserID: userId,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userId,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    cfg.JWTIssuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// ParseToken verifies an access token and returns its claims
func ParseToken(cfg models.AuthConfig, tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.JWTIssuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	}, opts...)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	if claims.Role == "" {
		claims.Role = models.RoleUser
	}
	return claims, nil
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", Unauthorized(errors.New("missing authorization header"))
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", Unauthorized(errors.New("invalid authorization format"))
	}
	return strings.TrimSpace(token), nil
}

type contextKey int

const claimsKey contextKey = iota

func withClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFrom returns the claims of the authenticated caller, if any
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok
}

// authenticate validates the bearer token and makes sure the caller has a
// profile row before any handler runs.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		claims, err := ParseToken(s.auth, token)
		if err != nil {
			writeError(w, r, Unauthorized(err))
			return
		}
		if err := s.ledger.EnsureUser(r.Context(), claims.UserID, claims.Email); err != nil {
			writeError(w, r, fmt.Errorf("unable to load profile: %w", err))
			return
		}
		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFrom(r.Context())
		if !ok {
			writeError(w, r, Unauthorized(errors.New("unauthorized")))
			return
		}
		if !claims.IsAdmin() {
			zap.L().Warn("Non-admin caller rejected",
				zap.String("user_id", claims.UserID),
				zap.String("path", r.URL.Path))
			writeError(w, r, Forbidden(errors.New("admin access required")))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// isAdminSecret compares the bearer token with the shared job secret in
// constant time. An unset secret never matches.
func (s *Server) isAdminSecret(token string) bool {
	if s.auth.AdminSecretKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.auth.AdminSecretKey)) == 1
}

// requireAdminSecret guards job endpoints meant for an external scheduler
func (s *Server) requireAdminSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !s.isAdminSecret(token) {
			writeError(w, r, Unauthorized(errors.New("invalid admin secret")))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireSecretOrToken accepts either the job secret or any valid access token
func (s *Server) requireSecretOrToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if s.isAdminSecret(token) {
			next.ServeHTTP(w, r)
			return
		}
		if _, err := ParseToken(s.auth, token); err != nil {
			writeError(w, r, Unauthorized(err))
			return
		}
		next.ServeHTTP(w, r)
	})
}
