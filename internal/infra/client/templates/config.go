package templates

import (
	"time"

	"github.com/Builder-Lawyers/certify-backend/pkg/env"
)

type TemplatesConfig struct {
	Timeout  time.Duration
	MaxBytes int64
}

func NewTemplatesConfig() *TemplatesConfig {
	return &TemplatesConfig{
		Timeout:  env.GetEnvDuration("TEMPLATE_FETCH_TIMEOUT", 15*time.Second),
		MaxBytes: int64(env.GetEnvInt("TEMPLATE_MAX_BYTES", 20<<20)),
	}
}
