package query

import (
	"context"
	"errors"
	"strings"

	"github.com/Builder-Lawyers/certify-backend/internal/application/dto"
	"github.com/Builder-Lawyers/certify-backend/internal/application/errs"
	"github.com/Builder-Lawyers/certify-backend/internal/domain/certificate"
	"github.com/Builder-Lawyers/certify-backend/internal/domain/consts"
	"github.com/Builder-Lawyers/certify-backend/internal/infra/db/repo"
	dbs "github.com/Builder-Lawyers/certify-backend/pkg/db"
)

type VerifyCertificate struct {
	uowFactory *dbs.UOWFactory
}

func NewVerifyCertificate(uowFactory *dbs.UOWFactory) *VerifyCertificate {
	return &VerifyCertificate{uowFactory: uowFactory}
}

func (c *VerifyCertificate) Query(ctx context.Context, code string) (*dto.VerifyCertificateResponse, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != certificate.CodeLength {
		return nil, errs.ValidationError{Err: errors.New("verification code must be 10 characters")}
	}

	cert, err := repo.NewCertificateRepo(c.uowFactory.Pool).GetCertificateByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errs.NotFoundError{What: "certificate", Err: err}
		}
		return nil, err
	}

	resp := &dto.VerifyCertificateResponse{
		Valid: cert.Status == consts.CertificateStatusActive,
		Certificate: dto.VerifiedCertificate{
			ID:               cert.ID.String(),
			RecipientName:    cert.RecipientName,
			CourseName:       cert.CourseName,
			IssueDate:        cert.IssueDate,
			ExpiryDate:       cert.ExpiryDate,
			VerificationCode: cert.VerificationCode,
			Status:           string(cert.Status),
		},
	}
	if cert.CertificateURL != nil {
		resp.Certificate.PDFURL = *cert.CertificateURL
	}
	return resp, nil
}
