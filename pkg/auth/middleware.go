package auth

import (
	"strings"

	"github.com/bookabooks/booka/pkg/errcodes"
	"github.com/labstack/echo/v4"
)

const ContextKeyAccountID = "account_id"

// Middleware provides bearer-token authentication middleware.
type Middleware struct {
	authService *Service
}

func NewMiddleware(authService *Service) *Middleware {
	return &Middleware{
		authService: authService,
	}
}

// Authenticate requires a valid bearer token and stores the account ID in
// the echo context. Requests without one get a 401.
func (m *Middleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := bearerToken(c)
		if !ok {
			return errcodes.Unauthorized("Authentication required")
		}

		claims, err := m.authService.ValidateToken(token)
		if err != nil {
			return errcodes.Unauthorized("Invalid or expired token")
		}

		c.Set(ContextKeyAccountID, claims.AccountID)

		return next(c)
	}
}

// AuthenticateOptional stores the account ID when a valid bearer token is
// present but lets the request through either way.
func (m *Middleware) AuthenticateOptional(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if token, ok := bearerToken(c); ok {
			if claims, err := m.authService.ValidateToken(token); err == nil {
				c.Set(ContextKeyAccountID, claims.AccountID)
			}
		}
		return next(c)
	}
}

func bearerToken(c echo.Context) (string, bool) {
	header := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[len("Bearer "):])
	return token, token != ""
}

// AccountIDFromContext retrieves the authenticated account ID, if any.
func AccountIDFromContext(c echo.Context) (string, bool) {
	accountID, ok := c.Get(ContextKeyAccountID).(string)
	return accountID, ok && accountID != ""
}
