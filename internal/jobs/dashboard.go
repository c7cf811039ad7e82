package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const broadcastTimeout = 10 * time.Second

// Broadcaster pushes a fresh dashboard snapshot to every connection.
type Broadcaster interface {
	BroadcastDashboard(ctx context.Context)
}

// Scheduler runs the periodic dashboard refresh.
type Scheduler struct {
	cron        *cron.Cron
	broadcaster Broadcaster
	logger      *zap.Logger
}

// NewScheduler registers the dashboard job on schedule (standard five-field
// cron spec or a descriptor such as "@every 30s").
func NewScheduler(schedule string, broadcaster Broadcaster, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:        cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger))),
		broadcaster: broadcaster,
		logger:      logger,
	}

	if _, err := s.cron.AddFunc(schedule, s.RefreshDashboard); err != nil {
		return nil, fmt.Errorf("invalid dashboard schedule %q: %w", schedule, err)
	}
	return s, nil
}

// RefreshDashboard is the job body.
func (s *Scheduler) RefreshDashboard() {
	ctx, cancel := context.WithTimeout(context.Background(), broadcastTimeout)
	defer cancel()

	s.broadcaster.BroadcastDashboard(ctx)
	s.logger.Debug("dashboard refreshed")
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("dashboard refresh scheduled")
}

// Stop halts scheduling and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
