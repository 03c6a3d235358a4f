package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrUnauthorized = errors.New("unauthorized")

type Identity struct {
	Subject string
	Role    string
}

type IdentityProvider struct {
	cfg *AuthConfig
}

func NewIdentityProvider(cfg *AuthConfig) *IdentityProvider {
	return &IdentityProvider{cfg: cfg}
}

func (p *IdentityProvider) Enabled() bool {
	return p.cfg.JWTSecret != ""
}

// GetIdentity verifies an HS256 bearer token from the Authorization header value.
func (p *IdentityProvider) GetIdentity(header string) (*Identity, error) {
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenString == "" {
		return nil, fmt.Errorf("%w: missing bearer token", ErrUnauthorized)
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithLeeway(time.Minute)}
	if p.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.cfg.Issuer))
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(p.cfg.JWTSecret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	sub, _ := claims.GetSubject()
	role, _ := claims["role"].(string)
	return &Identity{Subject: sub, Role: role}, nil
}
