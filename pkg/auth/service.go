// Package auth validates bearer tokens on requests that need an account.
// Accounts themselves live elsewhere; this layer only verifies the token
// signature and exposes the account ID to handlers.
package auth

import (
	"github.com/bookabooks/booka/pkg/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

type Claims struct {
	AccountID string `json:"accountId"`
	jwt.RegisteredClaims
}

type Service struct {
	secret []byte
}

func NewService(cfg *config.Config) *Service {
	return &Service{
		secret: []byte(cfg.JWTSecret),
	}
}

// ValidateToken parses and verifies a bearer token, returning its claims.
func (s *Service) ValidateToken(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !parsed.Valid || claims.AccountID == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// SignToken issues a token for an account. Used by tests and tooling; the
// production issuer is the separate auth frontend.
func (s *Service) SignToken(accountID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{AccountID: accountID})
	signed, err := token.SignedString(s.secret)
	return signed, errors.WithStack(err)
}
