package config

import (
	"time"

	"github.com/Builder-Lawyers/certify-backend/pkg/env"
)

// FieldStyle is how a template form field is printed.
type FieldStyle struct {
	Font string
	Size int
}

type IssuanceConfig struct {
	// Fonts are file names in the fonts bucket, all of them are downloaded for every render.
	Fonts         []string
	NameStyle     FieldStyle
	CourseStyle   FieldStyle
	DateStyle     FieldStyle
	PDFKeyPrefix  string
	ClaimStaleAge time.Duration
	CodeAttempts  int
}

func NewIssuanceConfig() *IssuanceConfig {
	nameFont := env.GetEnv("CERT_NAME_FONT", "GreatVibes-Regular")
	courseFont := env.GetEnv("CERT_COURSE_FONT", "Montserrat-Bold")
	dateFont := env.GetEnv("CERT_DATE_FONT", "Montserrat-Regular")
	return &IssuanceConfig{
		Fonts:         []string{nameFont + ".ttf", courseFont + ".ttf", dateFont + ".ttf"},
		NameStyle:     FieldStyle{Font: nameFont, Size: env.GetEnvInt("CERT_NAME_SIZE", 36)},
		CourseStyle:   FieldStyle{Font: courseFont, Size: env.GetEnvInt("CERT_COURSE_SIZE", 20)},
		DateStyle:     FieldStyle{Font: dateFont, Size: env.GetEnvInt("CERT_DATE_SIZE", 12)},
		PDFKeyPrefix:  env.GetEnv("CERT_PDF_PREFIX", "certificate_"),
		ClaimStaleAge: env.GetEnvDuration("CERT_CLAIM_STALE_AGE", 10*time.Minute),
		CodeAttempts:  env.GetEnvInt("CERT_CODE_ATTEMPTS", 5),
	}
}

type DispatchConfig struct {
	// QueueLimit caps the rows claimed by one queue run.
	QueueLimit  int
	QueueLease  time.Duration
	SendTimeout time.Duration
}

func NewDispatchConfig(sendTimeout time.Duration) *DispatchConfig {
	return &DispatchConfig{
		QueueLimit:  env.GetEnvInt("QUEUE_LIMIT", 50),
		QueueLease:  env.GetEnvDuration("QUEUE_LEASE", 5*time.Minute),
		SendTimeout: sendTimeout,
	}
}
