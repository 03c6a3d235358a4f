package auth

import "github.com/Builder-Lawyers/certify-backend/pkg/env"

type AuthConfig struct {
	// JWTSecret signs the tokens of callers allowed to invoke the pipeline. Empty disables the check.
	JWTSecret string
	Issuer    string
}

func NewAuthConfig() *AuthConfig {
	return &AuthConfig{
		JWTSecret: env.GetEnv("JWT_SECRET", ""),
		Issuer:    env.GetEnv("JWT_ISSUER", ""),
	}
}
