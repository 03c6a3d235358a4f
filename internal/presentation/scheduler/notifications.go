package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/Builder-Lawyers/certify-backend/internal/application/dto"
	"github.com/Builder-Lawyers/certify-backend/pkg/env"
)

type NotificationsProcessor interface {
	Execute(ctx context.Context, req dto.ProcessNotificationsRequest) (*dto.ProcessNotificationsResponse, error)
}

// QueuePoller drains the notification queue on an interval, the same way the endpoint does.
type QueuePoller struct {
	processor NotificationsProcessor
	cfg       *QueueConfig
	stop      chan struct{}
	done      chan struct{}
}

type QueueConfig struct {
	Enabled  bool
	Interval time.Duration
}

func NewQueueConfig() *QueueConfig {
	return &QueueConfig{
		Enabled:  env.GetEnv("QUEUE_POLL_ENABLED", "false") == "true",
		Interval: env.GetEnvDuration("QUEUE_POLL_INTERVAL", 30*time.Second),
	}
}

func NewQueuePoller(processor NotificationsProcessor, cfg *QueueConfig) *QueuePoller {
	return &QueuePoller{processor: processor, cfg: cfg, stop: make(chan struct{}), done: make(chan struct{})}
}

func (o *QueuePoller) Start() {
	ticker := time.NewTicker(o.cfg.Interval)
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		ticker.Stop()
		cancel()
		close(o.done)
	}()

	slog.Info("Starting notification queue poller...", "interval", o.cfg.Interval)
	for {
		select {
		case <-ticker.C:
			// wait after poll finishes
			o.poll(ctx)
		case <-o.stop:
			slog.Info("Cancelling current execution")
			return
		}
	}
}

func (o *QueuePoller) poll(ctx context.Context) {
	resp, err := o.processor.Execute(ctx, dto.ProcessNotificationsRequest{})
	if err != nil {
		slog.Error("error in queue poller", "err", err)
		return
	}
	if resp.Processed == 0 {
		slog.Debug("no notifications to process")
		return
	}
	failed := 0
	for _, r := range resp.Results {
		if !r.Success {
			failed++
		}
	}
	slog.Info("queue poll finished", "processed", resp.Processed, "failed", failed)
}

func (o *QueuePoller) Stop() {
	slog.Info("Stopping queue poller")
	o.stop <- struct{}{}
	<-o.done
}
