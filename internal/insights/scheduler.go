package insights

import (
	"context"
	"sync"
	"time"

	"moneta/internal/log"
)

// Scheduler drives the engine's periodic checks. Each check runs on its own
// ticker so a slow family brief cannot delay budget alerts.
type Scheduler struct {
	engine *Engine
	logger *log.Logger

	briefInterval time.Duration
	alertInterval time.Duration
	duesInterval  time.Duration

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewScheduler(engine *Engine, logger *log.Logger, briefInterval, alertInterval, duesInterval time.Duration) *Scheduler {
	return &Scheduler{
		engine:        engine,
		logger:        logger.WithComponent(log.ComponentScheduler),
		briefInterval: briefInterval,
		alertInterval: alertInterval,
		duesInterval:  duesInterval,
		stopCh:        make(chan struct{}),
	}
}

// Start launches the check loops. It returns immediately; call Stop to shut
// the loops down and wait for in-flight checks to finish.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.InfoContext(ctx, "Starting insight scheduler",
		"brief_interval", s.briefInterval.String(),
		"alert_interval", s.alertInterval.String(),
		"dues_interval", s.duesInterval.String())

	s.wg.Add(3)
	go s.runLoop(ctx, "daily_brief", s.briefInterval, s.engine.RunBriefCheck)
	go s.runLoop(ctx, "budget_alerts", s.alertInterval, s.engine.RunBudgetAlertCheck)
	go s.runLoop(ctx, "dues_reminders", s.duesInterval, s.engine.RunDuesReminderCheck)
}

// Stop signals the loops to exit and blocks until they have.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("Insight scheduler stopped")
}

func (s *Scheduler) runLoop(ctx context.Context, name string, interval time.Duration, check func(context.Context, time.Time) (int, error)) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Check loop context cancelled", "check", name)
			return
		case <-s.stopCh:
			return
		case now := <-ticker.C:
			dispatched, err := check(ctx, now)
			if err != nil {
				s.logger.ErrorContext(ctx, "Scheduled check failed",
					"check", name, log.FieldError, err)
				continue
			}
			s.logger.InfoContext(ctx, "Scheduled check complete",
				"check", name, log.FieldDispatched, dispatched)
		}
	}
}
