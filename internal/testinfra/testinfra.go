package testinfra

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var Pool *pgxpool.Pool

func init() {
	Pool = SetupDB()
}

func SetupDB() *pgxpool.Pool {

	ctx := context.Background()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:17.2-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_PASSWORD": "password",
			"POSTGRES_USER":     "postgres",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections"),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	if err != nil {
		log.Panicf("start postgres: %v", err)
	}

	pgHostPort, err := pgC.Endpoint(ctx, "")
	if err != nil {
		log.Panicf("postgres endpoint: %v", err)
	}
	pgDSN := fmt.Sprintf("postgres://postgres:password@%s/testdb?sslmode=disable", pgHostPort)

	pool, err := pgxpool.New(ctx, pgDSN)
	if err != nil {
		log.Panicf("pgxpool connect: %v", err)
	}

	ok := false
	for i := 0; i < 20; i++ {
		slog.Info("ping db", "try", i)
		ctxPing, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		err = pool.Ping(ctxPing)
		cancel()
		if err == nil {
			ok = true
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if !ok {
		log.Panic("db did not respond after 20 attempts")
	}

	if _, err = pool.Exec(ctx, Schema); err != nil {
		log.Panicf("create tables: %v", err)
	}

	return pool
}

// Reset empties every table, tests call it before seeding.
func Reset(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `TRUNCATE certify.certificate_audit_logs, certify.certificates, certify.certificate_requests,
		certify.location_templates, certify.certificate_templates, certify.notification_queue, certify.notifications,
		certify.notification_digests, certify.notification_preferences, certify.profiles, certify.users CASCADE`)
	return err
}

const Schema = `
	CREATE SCHEMA IF NOT EXISTS certify;
	CREATE TABLE IF NOT EXISTS certify.users (
		id UUID PRIMARY KEY,
		email TEXT
	);
	CREATE TABLE IF NOT EXISTS certify.profiles (
		user_id UUID PRIMARY KEY REFERENCES certify.users(id),
		display_name TEXT,
		first_name TEXT,
		last_name TEXT
	);
	CREATE TABLE IF NOT EXISTS certify.certificate_requests (
		id UUID PRIMARY KEY,
		recipient_name TEXT NOT NULL,
		course_name TEXT NOT NULL,
		issue_date TEXT NOT NULL,
		expiry_date TEXT NOT NULL,
		location_id UUID,
		user_id UUID NOT NULL,
		status VARCHAR(40) NOT NULL,
		issuing_started_at TIMESTAMPTZ,
		failure_reason TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE TABLE IF NOT EXISTS certify.certificates (
		id UUID PRIMARY KEY,
		recipient_name TEXT NOT NULL,
		course_name TEXT NOT NULL,
		issue_date TEXT NOT NULL,
		expiry_date TEXT NOT NULL,
		verification_code VARCHAR(10) NOT NULL UNIQUE,
		issued_by TEXT NOT NULL,
		certificate_request_id UUID NOT NULL UNIQUE REFERENCES certify.certificate_requests(id),
		location_id UUID,
		status VARCHAR(40) NOT NULL,
		user_id UUID NOT NULL,
		certificate_url TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS certify.certificate_audit_logs (
		id BIGSERIAL PRIMARY KEY,
		certificate_id UUID NOT NULL REFERENCES certify.certificates(id),
		action VARCHAR(40) NOT NULL,
		performed_by TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS certify.certificate_templates (
		id UUID PRIMARY KEY,
		url TEXT,
		is_default BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE TABLE IF NOT EXISTS certify.location_templates (
		location_id UUID NOT NULL,
		template_id UUID NOT NULL REFERENCES certify.certificate_templates(id),
		is_primary BOOLEAN NOT NULL DEFAULT false,
		PRIMARY KEY (location_id, template_id)
	);
	CREATE TABLE IF NOT EXISTS certify.notifications (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		type VARCHAR(20) NOT NULL,
		priority VARCHAR(20) NOT NULL,
		category VARCHAR(64) NOT NULL,
		action_url TEXT,
		read BOOLEAN NOT NULL DEFAULT false,
		is_dismissed BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE TABLE IF NOT EXISTS certify.notification_queue (
		id UUID PRIMARY KEY,
		notification_id UUID NOT NULL,
		status VARCHAR(20) NOT NULL,
		priority INT NOT NULL,
		category VARCHAR(64) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		processed_at TIMESTAMPTZ,
		error TEXT,
		message_id TEXT,
		claim_token UUID,
		claim_expires_at TIMESTAMPTZ
	);
	CREATE INDEX IF NOT EXISTS notification_queue_pending_idx ON certify.notification_queue (status, priority DESC, created_at);
	CREATE TABLE IF NOT EXISTS certify.notification_digests (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		digest_type VARCHAR(10) NOT NULL,
		is_enabled BOOLEAN NOT NULL DEFAULT true,
		next_scheduled_at TIMESTAMPTZ NOT NULL,
		last_sent_at TIMESTAMPTZ
	);
	CREATE TABLE IF NOT EXISTS certify.notification_preferences (
		user_id UUID NOT NULL,
		category VARCHAR(64) NOT NULL,
		email_enabled BOOLEAN NOT NULL DEFAULT true,
		PRIMARY KEY (user_id, category)
	);
`
