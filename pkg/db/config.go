package db

import (
	"fmt"
	"net/url"

	"github.com/Builder-Lawyers/certify-backend/pkg/env"
)

type Config struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

func NewConfig() Config {
	return Config{
		URL:      env.GetEnv("DATABASE_URL", ""),
		Host:     env.GetEnv("DB_HOST", "localhost"),
		Port:     env.GetEnv("DB_PORT", "5432"),
		User:     env.GetEnv("DB_USER", "postgres"),
		Password: env.GetEnv("DB_PASSWORD", ""),
		Name:     env.GetEnv("DB_NAME", "postgres"),
		SSLMode:  env.GetEnv("DB_SSLMODE", "disable"),
	}
}

// GetDSN prefers the full connection URL, the password is the service-role credential.
func (c Config) GetDSN() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%s", c.Host, c.Port),
		Path:     c.Name,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}
