package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Builder-Lawyers/certify-backend/internal/application/query"
	"github.com/Builder-Lawyers/certify-backend/internal/domain/consts"
	"github.com/Builder-Lawyers/certify-backend/internal/infra/config"
	"github.com/Builder-Lawyers/certify-backend/internal/infra/mail"
	"github.com/Builder-Lawyers/certify-backend/internal/infra/pdf"
	"github.com/Builder-Lawyers/certify-backend/internal/testinfra"
	dbs "github.com/Builder-Lawyers/certify-backend/pkg/db"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memStorage struct {
	mu     sync.Mutex
	files  map[string][]byte
	urlErr error
}

func newMemStorage() *memStorage {
	return &memStorage{files: make(map[string][]byte)}
}

func (s *memStorage) UploadFile(_ context.Context, key string, _ *string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[key] = data
	return nil
}

func (s *memStorage) GetFile(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[key]
	if !ok {
		return nil, fmt.Errorf("no such key %s", key)
	}
	return data, nil
}

func (s *memStorage) PublicURL(key string) (string, error) {
	if s.urlErr != nil {
		return "", s.urlErr
	}
	return "https://files.test/certificates/" + key, nil
}

type stubFetcher struct {
	urls []string
}

func (f *stubFetcher) FetchTemplate(_ context.Context, url string) ([]byte, error) {
	f.urls = append(f.urls, url)
	return []byte("%PDF-1.7 template"), nil
}

type stubRenderer struct {
	err  error
	docs []pdf.Document
}

func (r *stubRenderer) Render(_ context.Context, doc pdf.Document) ([]byte, error) {
	r.docs = append(r.docs, doc)
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-1.7 filled"), nil
}

type recordingCache struct {
	keys []string
}

func (c *recordingCache) Invalidate(_ context.Context, keys ...string) error {
	c.keys = append(c.keys, keys...)
	return nil
}

type recordingSender struct {
	mu   sync.Mutex
	err  error
	sent []mail.Message
}

func (s *recordingSender) Send(_ context.Context, msg mail.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.sent = append(s.sent, msg)
	return fmt.Sprintf("msg-%d", len(s.sent)), nil
}

func (s *recordingSender) messages() []mail.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]mail.Message(nil), s.sent...)
}

var errProvider = errors.New("provider unavailable")

func factory() *dbs.UOWFactory {
	return dbs.NewUoWFactory(testinfra.Pool)
}

func reset(t *testing.T) {
	t.Helper()
	require.NoError(t, testinfra.Reset(context.Background(), testinfra.Pool))
}

func issuanceConfig() *config.IssuanceConfig {
	return &config.IssuanceConfig{
		Fonts:         []string{"GreatVibes-Regular.ttf", "Montserrat-Bold.ttf", "Montserrat-Regular.ttf"},
		NameStyle:     config.FieldStyle{Font: "GreatVibes-Regular", Size: 36},
		CourseStyle:   config.FieldStyle{Font: "Montserrat-Bold", Size: 20},
		DateStyle:     config.FieldStyle{Font: "Montserrat-Regular", Size: 12},
		PDFKeyPrefix:  "certificate_",
		ClaimStaleAge: 10 * time.Minute,
		CodeAttempts:  5,
	}
}

func dispatchConfig() *config.DispatchConfig {
	return &config.DispatchConfig{QueueLimit: 50, QueueLease: time.Minute, SendTimeout: time.Second}
}

func brand() mail.Branding {
	return mail.Branding{AppName: "Certify", AppURL: "https://certify.test"}
}

type issuanceFixture struct {
	cmd          *IssueCertificate
	fonts        *memStorage
	certificates *memStorage
	fetcher      *stubFetcher
	renderer     *stubRenderer
	cache        *recordingCache
}

func newIssuanceFixture() *issuanceFixture {
	f := &issuanceFixture{
		fonts:        newMemStorage(),
		certificates: newMemStorage(),
		fetcher:      &stubFetcher{},
		renderer:     &stubRenderer{},
		cache:        &recordingCache{},
	}
	cfg := issuanceConfig()
	for _, name := range cfg.Fonts {
		f.fonts.files[name] = []byte("ttf " + name)
	}
	uow := factory()
	f.cmd = NewIssueCertificate(cfg, uow, query.NewResolveTemplate(uow), f.fonts, f.certificates, f.fetcher, f.renderer, f.cache)
	return f
}

func seedUser(t *testing.T, email, displayName string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	var emailArg *string
	if email != "" {
		emailArg = &email
	}
	_, err := testinfra.Pool.Exec(context.Background(), "INSERT INTO certify.users(id, email) VALUES ($1, $2)", id, emailArg)
	require.NoError(t, err)
	_, err = testinfra.Pool.Exec(context.Background(),
		"INSERT INTO certify.profiles(user_id, display_name) VALUES ($1, $2)", id, displayName)
	require.NoError(t, err)
	return id
}

func seedTemplate(t *testing.T, url string, isDefault bool, createdAt time.Time) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := testinfra.Pool.Exec(context.Background(),
		"INSERT INTO certify.certificate_templates(id, url, is_default, created_at) VALUES ($1, $2, $3, $4)",
		id, url, isDefault, createdAt)
	require.NoError(t, err)
	return id
}

func seedRequest(t *testing.T, userID uuid.UUID, status consts.RequestStatus) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := testinfra.Pool.Exec(context.Background(), `INSERT INTO certify.certificate_requests
		(id, recipient_name, course_name, issue_date, expiry_date, location_id, user_id, status)
		VALUES ($1, 'Jane Doe', 'CPR', '2025-03-01', '2027-03-01', NULL, $2, $3)`, id, userID, status)
	require.NoError(t, err)
	return id
}

func seedNotification(t *testing.T, userID uuid.UUID, title, category string, createdAt time.Time) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := testinfra.Pool.Exec(context.Background(), `INSERT INTO certify.notifications
		(id, user_id, title, message, type, priority, category, created_at)
		VALUES ($1, $2, $3, $4, 'INFO', 'NORMAL', $5, $6)`, id, userID, title, title+" message", category, createdAt)
	require.NoError(t, err)
	return id
}

func seedQueueItem(t *testing.T, notificationID uuid.UUID, priority consts.NotificationPriority, category string, createdAt time.Time) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := testinfra.Pool.Exec(context.Background(), `INSERT INTO certify.notification_queue
		(id, notification_id, status, priority, category, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`, id, notificationID, consts.QueueStatusPending, priority.Rank(), category, createdAt)
	require.NoError(t, err)
	return id
}

func seedPreference(t *testing.T, userID uuid.UUID, category string, enabled bool) {
	t.Helper()
	_, err := testinfra.Pool.Exec(context.Background(),
		"INSERT INTO certify.notification_preferences(user_id, category, email_enabled) VALUES ($1, $2, $3)",
		userID, category, enabled)
	require.NoError(t, err)
}

func seedDigest(t *testing.T, userID uuid.UUID, digestType consts.DigestType, next time.Time) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := testinfra.Pool.Exec(context.Background(), `INSERT INTO certify.notification_digests
		(id, user_id, digest_type, is_enabled, next_scheduled_at) VALUES ($1, $2, $3, true, $4)`,
		id, userID, digestType, next)
	require.NoError(t, err)
	return id
}

// rejectWrites installs a trigger that makes matching writes to table fail until the test ends.
func rejectWrites(t *testing.T, table, event, when string) {
	t.Helper()
	ctx := context.Background()
	name := "reject_" + strings.ReplaceAll(table, ".", "_")
	_, err := testinfra.Pool.Exec(ctx, fmt.Sprintf(`
		CREATE OR REPLACE FUNCTION certify.%[1]s() RETURNS trigger AS $$
		BEGIN
			RAISE EXCEPTION 'writes to %[2]s are rejected';
		END;
		$$ LANGUAGE plpgsql;
		CREATE TRIGGER %[1]s BEFORE %[3]s ON %[2]s FOR EACH ROW WHEN (%[4]s) EXECUTE FUNCTION certify.%[1]s();`,
		name, table, event, when))
	require.NoError(t, err)
	t.Cleanup(func() {
		_, err := testinfra.Pool.Exec(ctx, fmt.Sprintf("DROP TRIGGER IF EXISTS %s ON %s", name, table))
		require.NoError(t, err)
	})
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
