package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Builder-Lawyers/certify-backend/internal/application/dto"
	"github.com/Builder-Lawyers/certify-backend/internal/domain/consts"
	"github.com/Builder-Lawyers/certify-backend/pkg/env"
	"github.com/robfig/cron/v3"
)

type DigestsProcessor interface {
	Execute(ctx context.Context, req dto.ProcessDigestsRequest) (*dto.ProcessDigestsResponse, error)
}

type DigestConfig struct {
	Enabled    bool
	DailySpec  string
	WeeklySpec string
}

func NewDigestConfig() *DigestConfig {
	return &DigestConfig{
		Enabled:    env.GetEnv("DIGEST_CRON_ENABLED", "false") == "true",
		DailySpec:  env.GetEnv("DIGEST_DAILY_CRON", "0 8 * * *"),
		WeeklySpec: env.GetEnv("DIGEST_WEEKLY_CRON", "0 8 * * 1"),
	}
}

// DigestScheduler runs the digest batcher for each digest type on its cron spec.
type DigestScheduler struct {
	cron      *cron.Cron
	processor DigestsProcessor
}

func NewDigestScheduler(processor DigestsProcessor, cfg *DigestConfig) (*DigestScheduler, error) {
	s := &DigestScheduler{cron: cron.New(), processor: processor}
	specs := map[consts.DigestType]string{
		consts.DigestDaily:  cfg.DailySpec,
		consts.DigestWeekly: cfg.WeeklySpec,
	}
	for digestType, spec := range specs {
		if spec == "" {
			continue
		}
		if _, err := s.cron.AddFunc(spec, s.job(digestType)); err != nil {
			return nil, fmt.Errorf("invalid %s digest schedule %q: %w", digestType, spec, err)
		}
	}
	return s, nil
}

func (s *DigestScheduler) job(digestType consts.DigestType) func() {
	return func() {
		resp, err := s.processor.Execute(context.Background(), dto.ProcessDigestsRequest{DigestType: string(digestType)})
		if err != nil {
			slog.Error("scheduled digest run failed", "type", digestType, "err", err)
			return
		}
		slog.Info("scheduled digest run finished", "type", digestType,
			"processed", resp.Processed, "successful", resp.Successful, "failed", resp.Failed)
	}
}

func (s *DigestScheduler) Start() {
	slog.Info("Starting digest scheduler", "jobs", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *DigestScheduler) Stop() {
	<-s.cron.Stop().Done()
}
