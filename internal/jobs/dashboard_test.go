package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingBroadcaster struct {
	calls atomic.Int32
}

func (b *countingBroadcaster) BroadcastDashboard(ctx context.Context) {
	if _, ok := ctx.Deadline(); ok {
		b.calls.Add(1)
	}
}

func TestScheduler_RunsOnSchedule(t *testing.T) {
	b := &countingBroadcaster{}
	s, err := NewScheduler("@every 1s", b, zap.NewNop())
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool { return b.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestScheduler_RefreshDashboard(t *testing.T) {
	b := &countingBroadcaster{}
	s, err := NewScheduler("*/5 * * * *", b, zap.NewNop())
	require.NoError(t, err)

	s.RefreshDashboard()
	require.EqualValues(t, 1, b.calls.Load())
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	_, err := NewScheduler("every minute", &countingBroadcaster{}, zap.NewNop())
	require.Error(t, err)
}
