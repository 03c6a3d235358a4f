package commands

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/Builder-Lawyers/certify-backend/internal/application/errs"
	"github.com/Builder-Lawyers/certify-backend/internal/domain/consts"
	"github.com/Builder-Lawyers/certify-backend/internal/infra/db/repo"
	"github.com/Builder-Lawyers/certify-backend/internal/testinfra"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var codePattern = regexp.MustCompile(`^[A-Z]{3}[0-9]{5}[A-Z]{2}$`)

func TestIssueCertificate_Archives_Request(t *testing.T) {
	reset(t)
	ctx := context.Background()
	f := newIssuanceFixture()
	userID := seedUser(t, "jane@example.com", "Jane Doe")
	seedTemplate(t, "https://templates.test/default.pdf", true, time.Now())
	requestID := seedRequest(t, userID, consts.RequestStatusPending)

	issued, err := f.cmd.Execute(ctx, requestID, "admin1")
	require.NoError(t, err)
	require.Equal(t, "Jane Doe", issued.RecipientName)
	require.Equal(t, "CPR", issued.CourseName)
	require.Regexp(t, codePattern, issued.VerificationCode)
	require.Equal(t, "https://files.test/certificates/certificate_"+issued.ID+".pdf", issued.PDFURL)

	certs := repo.NewCertificateRepo(testinfra.Pool)
	cert, err := certs.GetCertificateByRequestID(ctx, requestID)
	require.NoError(t, err)
	require.Equal(t, "March 1, 2025", cert.IssueDate)
	require.Equal(t, "March 1, 2027", cert.ExpiryDate)
	require.Equal(t, consts.CertificateStatusActive, cert.Status)
	require.Equal(t, userID, cert.UserID)
	require.Equal(t, "admin1", cert.IssuedBy)
	require.NotNil(t, cert.CertificateURL)
	require.Equal(t, issued.PDFURL, *cert.CertificateURL)

	request, err := certs.GetRequestByID(ctx, requestID)
	require.NoError(t, err)
	require.Equal(t, consts.RequestStatusArchived, request.Status)

	var audits int
	require.NoError(t, testinfra.Pool.QueryRow(ctx,
		"SELECT count(*) FROM certify.certificate_audit_logs WHERE certificate_id = $1 AND performed_by = 'admin1'", cert.ID).Scan(&audits))
	require.Equal(t, 1, audits)

	require.Equal(t, []string{"https://templates.test/default.pdf"}, f.fetcher.urls)
	require.Len(t, f.renderer.docs, 1)
	doc := f.renderer.docs[0]
	require.Len(t, doc.Fonts, 3)
	values := make(map[string]string)
	for _, field := range doc.Fields {
		values[field.Name] = field.Value
	}
	require.Equal(t, map[string]string{
		FieldName:   "Jane Doe",
		FieldCourse: "CPR",
		FieldIssue:  "March 1, 2025",
		FieldExpiry: "March 1, 2027",
	}, values)
	require.Contains(t, f.certificates.files, "certificate_"+issued.ID+".pdf")
}

func TestIssueCertificate_Archived_Request_Returns_Existing(t *testing.T) {
	reset(t)
	ctx := context.Background()
	f := newIssuanceFixture()
	userID := seedUser(t, "jane@example.com", "Jane Doe")
	seedTemplate(t, "https://templates.test/default.pdf", true, time.Now())
	requestID := seedRequest(t, userID, consts.RequestStatusPending)

	first, err := f.cmd.Execute(ctx, requestID, "admin1")
	require.NoError(t, err)
	second, err := f.cmd.Execute(ctx, requestID, "admin2")
	require.NoError(t, err)
	require.Equal(t, first, second)

	var count int
	require.NoError(t, testinfra.Pool.QueryRow(ctx,
		"SELECT count(*) FROM certify.certificates WHERE certificate_request_id = $1", requestID).Scan(&count))
	require.Equal(t, 1, count)
	require.Len(t, f.renderer.docs, 1)
}

func TestIssueCertificate_Resumes_After_Failed_Render(t *testing.T) {
	reset(t)
	ctx := context.Background()
	f := newIssuanceFixture()
	userID := seedUser(t, "jane@example.com", "Jane Doe")
	seedTemplate(t, "https://templates.test/default.pdf", true, time.Now())
	requestID := seedRequest(t, userID, consts.RequestStatusPending)

	f.renderer.err = errors.New("broken form")
	_, err := f.cmd.Execute(ctx, requestID, "admin1")
	var stepErr errs.StepError
	require.ErrorAs(t, err, &stepErr)
	require.Equal(t, StepRender, stepErr.Step)
	require.Equal(t, "Failed to generate PDF", stepErr.Message)

	certs := repo.NewCertificateRepo(testinfra.Pool)
	request, err := certs.GetRequestByID(ctx, requestID)
	require.NoError(t, err)
	require.Equal(t, consts.RequestStatusIssuanceFailed, request.Status)
	require.NotNil(t, request.FailureReason)
	partial, err := certs.GetCertificateByRequestID(ctx, requestID)
	require.NoError(t, err)
	require.Nil(t, partial.CertificateURL)

	f.renderer.err = nil
	issued, err := f.cmd.Execute(ctx, requestID, "admin1")
	require.NoError(t, err)
	require.Equal(t, partial.ID.String(), issued.ID)
	require.Equal(t, partial.VerificationCode, issued.VerificationCode)

	request, err = certs.GetRequestByID(ctx, requestID)
	require.NoError(t, err)
	require.Equal(t, consts.RequestStatusArchived, request.Status)
}

func TestIssueCertificate_Unknown_Request(t *testing.T) {
	reset(t)
	f := newIssuanceFixture()

	_, err := f.cmd.Execute(context.Background(), uuid.New(), "admin1")
	var notFound errs.NotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Empty(t, f.renderer.docs)
}

func TestIssueCertificate_Rejects_Request_Being_Issued(t *testing.T) {
	reset(t)
	ctx := context.Background()
	f := newIssuanceFixture()
	userID := seedUser(t, "jane@example.com", "Jane Doe")
	seedTemplate(t, "https://templates.test/default.pdf", true, time.Now())
	requestID := seedRequest(t, userID, consts.RequestStatusPending)
	_, err := testinfra.Pool.Exec(ctx,
		"UPDATE certify.certificate_requests SET status = $2, issuing_started_at = now() WHERE id = $1",
		requestID, consts.RequestStatusIssuing)
	require.NoError(t, err)

	_, err = f.cmd.Execute(ctx, requestID, "admin1")
	var conflict errs.ConflictError
	require.ErrorAs(t, err, &conflict)
	require.ErrorIs(t, err, ErrRequestInProgress)

	// a stale claim is taken over
	_, err = testinfra.Pool.Exec(ctx,
		"UPDATE certify.certificate_requests SET issuing_started_at = now() - interval '1 hour' WHERE id = $1", requestID)
	require.NoError(t, err)
	_, err = f.cmd.Execute(ctx, requestID, "admin1")
	require.NoError(t, err)
}

func TestIssueCertificate_Fails_Without_Template(t *testing.T) {
	reset(t)
	ctx := context.Background()
	f := newIssuanceFixture()
	userID := seedUser(t, "jane@example.com", "Jane Doe")
	requestID := seedRequest(t, userID, consts.RequestStatusPending)

	_, err := f.cmd.Execute(ctx, requestID, "admin1")
	var stepErr errs.StepError
	require.ErrorAs(t, err, &stepErr)
	require.Equal(t, StepTemplate, stepErr.Step)
	require.ErrorIs(t, err, errs.ErrNoTemplate)
}

func TestIssueCertificate_Fails_On_Missing_Font(t *testing.T) {
	reset(t)
	ctx := context.Background()
	f := newIssuanceFixture()
	delete(f.fonts.files, "Montserrat-Bold.ttf")
	userID := seedUser(t, "jane@example.com", "Jane Doe")
	seedTemplate(t, "https://templates.test/default.pdf", true, time.Now())
	requestID := seedRequest(t, userID, consts.RequestStatusPending)

	_, err := f.cmd.Execute(ctx, requestID, "admin1")
	var stepErr errs.StepError
	require.ErrorAs(t, err, &stepErr)
	require.Equal(t, StepFonts, stepErr.Step)
	require.Equal(t, "Failed to download fonts", stepErr.Message)
}

func TestIssueCertificate_Reissue_Invalidates_Published_PDF(t *testing.T) {
	reset(t)
	ctx := context.Background()
	f := newIssuanceFixture()
	userID := seedUser(t, "jane@example.com", "Jane Doe")
	seedTemplate(t, "https://templates.test/default.pdf", true, time.Now())
	requestID := seedRequest(t, userID, consts.RequestStatusPending)

	first, err := f.cmd.Execute(ctx, requestID, "admin1")
	require.NoError(t, err)
	require.Empty(t, f.cache.keys)

	_, err = testinfra.Pool.Exec(ctx,
		"UPDATE certify.certificate_requests SET status = $2 WHERE id = $1", requestID, consts.RequestStatusIssuanceFailed)
	require.NoError(t, err)

	second, err := f.cmd.Execute(ctx, requestID, "admin1")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, []string{"certificate_" + first.ID + ".pdf"}, f.cache.keys)
}

func TestIssueCertificate_Stores_Key_Without_Public_URL(t *testing.T) {
	reset(t)
	ctx := context.Background()
	f := newIssuanceFixture()
	f.certificates.urlErr = errors.New("no public endpoint")
	userID := seedUser(t, "jane@example.com", "Jane Doe")
	seedTemplate(t, "https://templates.test/default.pdf", true, time.Now())
	requestID := seedRequest(t, userID, consts.RequestStatusPending)

	issued, err := f.cmd.Execute(ctx, requestID, "admin1")
	require.NoError(t, err)
	key := "certificate_" + issued.ID + ".pdf"
	require.Equal(t, key, issued.PDFURL)

	certs := repo.NewCertificateRepo(testinfra.Pool)
	cert, err := certs.GetCertificateByRequestID(ctx, requestID)
	require.NoError(t, err)
	require.NotNil(t, cert.CertificateURL)
	require.Equal(t, key, *cert.CertificateURL)

	request, err := certs.GetRequestByID(ctx, requestID)
	require.NoError(t, err)
	require.Equal(t, consts.RequestStatusArchived, request.Status)
}

func TestIssueCertificate_Audit_Log_Failure_Is_Not_Fatal(t *testing.T) {
	reset(t)
	ctx := context.Background()
	f := newIssuanceFixture()
	userID := seedUser(t, "jane@example.com", "Jane Doe")
	seedTemplate(t, "https://templates.test/default.pdf", true, time.Now())
	requestID := seedRequest(t, userID, consts.RequestStatusPending)
	rejectWrites(t, "certify.certificate_audit_logs", "INSERT", "true")

	issued, err := f.cmd.Execute(ctx, requestID, "admin1")
	require.NoError(t, err)
	require.NotEmpty(t, issued.PDFURL)

	var audits int
	require.NoError(t, testinfra.Pool.QueryRow(ctx, "SELECT count(*) FROM certify.certificate_audit_logs").Scan(&audits))
	require.Zero(t, audits)

	request, err := repo.NewCertificateRepo(testinfra.Pool).GetRequestByID(ctx, requestID)
	require.NoError(t, err)
	require.Equal(t, consts.RequestStatusArchived, request.Status)
}

func TestIssueCertificate_Archive_Failure_Is_Not_Fatal(t *testing.T) {
	reset(t)
	ctx := context.Background()
	f := newIssuanceFixture()
	userID := seedUser(t, "jane@example.com", "Jane Doe")
	seedTemplate(t, "https://templates.test/default.pdf", true, time.Now())
	requestID := seedRequest(t, userID, consts.RequestStatusPending)
	rejectWrites(t, "certify.certificate_requests", "UPDATE", "NEW.status = 'ARCHIVED'")

	issued, err := f.cmd.Execute(ctx, requestID, "admin1")
	require.NoError(t, err)

	certs := repo.NewCertificateRepo(testinfra.Pool)
	cert, err := certs.GetCertificateByRequestID(ctx, requestID)
	require.NoError(t, err)
	require.NotNil(t, cert.CertificateURL)
	require.Equal(t, issued.PDFURL, *cert.CertificateURL)

	request, err := certs.GetRequestByID(ctx, requestID)
	require.NoError(t, err)
	require.Equal(t, consts.RequestStatusIssuing, request.Status)
}

func TestIssueCertificate_Rejects_Unissuable_Status(t *testing.T) {
	reset(t)
	ctx := context.Background()
	f := newIssuanceFixture()
	userID := seedUser(t, "jane@example.com", "Jane Doe")
	seedTemplate(t, "https://templates.test/default.pdf", true, time.Now())
	requestID := seedRequest(t, userID, consts.RequestStatus("REVOKED"))

	_, err := f.cmd.Execute(ctx, requestID, "admin1")
	var conflict errs.ConflictError
	require.ErrorAs(t, err, &conflict)
	require.ErrorContains(t, err, "REVOKED")
	require.NotErrorIs(t, err, ErrRequestInProgress)
	require.Empty(t, f.renderer.docs)

	request, err := repo.NewCertificateRepo(testinfra.Pool).GetRequestByID(ctx, requestID)
	require.NoError(t, err)
	require.Equal(t, consts.RequestStatus("REVOKED"), request.Status)
}
