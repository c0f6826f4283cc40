// Package auth implements the bearer-token authentication collaborator:
// it resolves an incoming request's Authorization header to a role
// string, which domain/useraccess.Masker then uses to narrow a compiled
// schema's visible properties. Out of scope per spec.md §1 beyond that
// narrow interface — no user directory, no session store.
package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/autumndb/autumndb/internal/config"
	"github.com/autumndb/autumndb/pkg/apperror"
	"github.com/autumndb/autumndb/pkg/logger"
)

// AuthUser is the authenticated principal attached to the Echo context.
type AuthUser struct {
	Sub  string `json:"sub"`
	Role string `json:"role"`
}

type contextKey string

// UserContextKey is the Echo context key under which the AuthUser is stored.
const UserContextKey contextKey = "auth_user"

// GetUser retrieves the authenticated user from the Echo context.
func GetUser(c echo.Context) *AuthUser {
	if user, ok := c.Get(string(UserContextKey)).(*AuthUser); ok {
		return user
	}
	return nil
}

// devTokens maps a handful of fixed bearer tokens to roles, for local
// development and tests. Keep in sync with the token constants in
// internal/testutil/auth.go.
var devTokens = map[string]AuthUser{
	"admin-token":    {Sub: "test-admin", Role: "admin"},
	"read-only":      {Sub: "test-reader", Role: "read-only"},
	"no-role":        {Sub: "test-no-role", Role: ""},
	"e2e-test-admin": {Sub: "e2e-admin", Role: "admin"},
}

// roleClaims is the HS256 JWT claim shape issued to callers: a subject
// and a single role string, used verbatim by useraccess.Masker.
type roleClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Middleware handles bearer-token authentication for routes.
type Middleware struct {
	cfg *config.Config
	log *slog.Logger
}

// NewMiddleware creates a new auth middleware.
func NewMiddleware(cfg *config.Config, log *slog.Logger) *Middleware {
	return &Middleware{cfg: cfg, log: log.With(logger.Scope("auth"))}
}

// RequireAuth returns middleware that requires a valid bearer token.
func (m *Middleware) RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := m.authenticate(c.Request())
			if err != nil {
				m.log.Warn("authentication failed", logger.Error(err))
				status, body := apperror.ToHTTPError(err)
				return c.JSON(status, body)
			}
			c.Set(string(UserContextKey), user)
			return next(c)
		}
	}
}

// RequireRole returns middleware that requires the authenticated user's
// role to be one of the given roles.
func (m *Middleware) RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := GetUser(c)
			if user == nil {
				return apperror.ErrUnauthorized
			}
			if !allowed[user.Role] {
				return apperror.ErrForbidden
			}
			return next(c)
		}
	}
}

func (m *Middleware) authenticate(r *http.Request) (*AuthUser, error) {
	token := m.extractToken(r)
	if token == "" {
		return nil, apperror.ErrMissingToken
	}

	if m.cfg.Auth.DevTokensEnabled {
		if user, ok := devTokens[token]; ok {
			u := user
			return &u, nil
		}
	}

	return m.verifyJWT(token)
}

// extractToken extracts the bearer token from the request, falling back
// to a ?token= query parameter for transports (e.g. SSE, LISTEN/NOTIFY
// subscriber streams) that can't set an Authorization header.
func (m *Middleware) extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		if tok := strings.TrimPrefix(header, "Bearer "); tok != "" {
			return tok
		}
		return ""
	}

	if header != "" {
		return ""
	}

	return r.URL.Query().Get("token")
}

// verifyJWT verifies an HS256 token signed with cfg.Auth.JWTSecret and
// returns the principal carried in its "role" claim.
func (m *Middleware) verifyJWT(token string) (*AuthUser, error) {
	claims := &roleClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(m.cfg.Auth.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, apperror.ErrInvalidToken.WithInternal(err)
	}

	return &AuthUser{Sub: claims.Subject, Role: claims.Role}, nil
}

// IssueToken signs an HS256 token carrying the given subject and role,
// valid for ttl. Used by tests and any trusted caller that mints tokens
// on AutumnDB's behalf (AutumnDB itself has no login flow — out of
// scope per spec.md §1).
func IssueToken(secret, sub, role string, ttl time.Duration) (string, error) {
	claims := &roleClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
