package application

import (
	"github.com/Builder-Lawyers/certify-backend/internal/application/commands"
	"github.com/Builder-Lawyers/certify-backend/internal/application/query"
)

type Collection struct {
	*commands.IssueCertificate
	*commands.ProcessNotifications
	*commands.ProcessDigests
	*query.VerifyCertificate
}
