package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Builder-Lawyers/certify-backend/internal/application/dto"
	"github.com/stretchr/testify/require"
)

type countingNotifications struct{ calls atomic.Int32 }

func (c *countingNotifications) Execute(context.Context, dto.ProcessNotificationsRequest) (*dto.ProcessNotificationsResponse, error) {
	c.calls.Add(1)
	return &dto.ProcessNotificationsResponse{Success: true, Results: []dto.ProcessResult{}}, nil
}

type recordingDigests struct{ types chan string }

func (r *recordingDigests) Execute(_ context.Context, req dto.ProcessDigestsRequest) (*dto.ProcessDigestsResponse, error) {
	r.types <- req.DigestType
	return &dto.ProcessDigestsResponse{Success: true}, nil
}

func TestQueuePoller_Polls_Until_Stopped(t *testing.T) {
	processor := &countingNotifications{}
	poller := NewQueuePoller(processor, &QueueConfig{Enabled: true, Interval: 10 * time.Millisecond})
	go poller.Start()

	require.Eventually(t, func() bool { return processor.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	poller.Stop()

	calls := processor.calls.Load()
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, calls, processor.calls.Load())
}

func TestDigestScheduler_Rejects_Bad_Spec(t *testing.T) {
	_, err := NewDigestScheduler(&recordingDigests{}, &DigestConfig{DailySpec: "every day", WeeklySpec: "0 8 * * 1"})
	require.Error(t, err)
}

func TestDigestScheduler_Job_Uses_Digest_Type(t *testing.T) {
	digests := &recordingDigests{types: make(chan string, 1)}
	s, err := NewDigestScheduler(digests, &DigestConfig{DailySpec: "0 8 * * *", WeeklySpec: "0 8 * * 1"})
	require.NoError(t, err)
	require.Len(t, s.cron.Entries(), 2)

	s.job("weekly")()
	require.Equal(t, "weekly", <-digests.types)
}
