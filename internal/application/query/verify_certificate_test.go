package query

import (
	"context"
	"testing"
	"time"

	"github.com/Builder-Lawyers/certify-backend/internal/application/errs"
	"github.com/Builder-Lawyers/certify-backend/internal/domain/consts"
	"github.com/Builder-Lawyers/certify-backend/internal/infra/db"
	"github.com/Builder-Lawyers/certify-backend/internal/infra/db/repo"
	"github.com/Builder-Lawyers/certify-backend/internal/testinfra"
	dbs "github.com/Builder-Lawyers/certify-backend/pkg/db"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestVerifyCertificate(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testinfra.Reset(ctx, testinfra.Pool))

	requestID := uuid.New()
	userID := uuid.New()
	_, err := testinfra.Pool.Exec(ctx, `INSERT INTO certify.certificate_requests
		(id, recipient_name, course_name, issue_date, expiry_date, user_id, status)
		VALUES ($1, 'Jane Doe', 'CPR', '2025-03-01', '2027-03-01', $2, $3)`, requestID, userID, consts.RequestStatusArchived)
	require.NoError(t, err)

	url := "https://files.test/certificate.pdf"
	inserted, err := repo.NewCertificateRepo(testinfra.Pool).InsertCertificate(ctx, db.Certificate{
		ID:                   uuid.New(),
		RecipientName:        "Jane Doe",
		CourseName:           "CPR",
		IssueDate:            "March 1, 2025",
		ExpiryDate:           "March 1, 2027",
		VerificationCode:     "ABC12345XY",
		IssuedBy:             "admin1",
		CertificateRequestID: requestID,
		Status:               consts.CertificateStatusActive,
		UserID:               userID,
		CertificateURL:       &url,
		CreatedAt:            time.Now(),
		UpdatedAt:            time.Now(),
	})
	require.NoError(t, err)
	require.True(t, inserted)

	verify := NewVerifyCertificate(dbs.NewUoWFactory(testinfra.Pool))

	resp, err := verify.Query(ctx, " abc12345xy ")
	require.NoError(t, err)
	require.True(t, resp.Valid)
	require.Equal(t, "Jane Doe", resp.Certificate.RecipientName)
	require.Equal(t, url, resp.Certificate.PDFURL)

	_, err = verify.Query(ctx, "ZZZ99999ZZ")
	var notFound errs.NotFoundError
	require.ErrorAs(t, err, &notFound)

	_, err = verify.Query(ctx, "short")
	var invalid errs.ValidationError
	require.ErrorAs(t, err, &invalid)
}
