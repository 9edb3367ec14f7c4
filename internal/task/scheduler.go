package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/services"
)

// Reassigner runs a full catalog reassignment.
type Reassigner interface {
	ReassignAll(ctx context.Context) (services.BatchSummary, error)
}

// Warmer keeps the category snapshot populated.
type Warmer interface {
	GetCategories(ctx context.Context, major domain.MajorCategory, force bool) ([]domain.Category, error)
	Wait()
}

type Config struct {
	ReassignSchedule string
	WarmSchedule     string

	// RunOnStart reassigns the whole catalog once when the scheduler starts.
	RunOnStart      bool
	ReassignTimeout time.Duration
}

// Scheduler runs the nightly reassignment and the category warm-up.
type Scheduler struct {
	assign Reassigner
	warm   Warmer
	cfg    Config
	cron   *cron.Cron

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

func NewScheduler(assign Reassigner, warm Warmer, cfg Config) *Scheduler {
	if cfg.ReassignTimeout <= 0 {
		cfg.ReassignTimeout = time.Hour
	}
	return &Scheduler{
		assign: assign,
		warm:   warm,
		cfg:    cfg,
		cron:   cron.New(cron.WithSeconds()),
	}
}

// Start registers the jobs and starts the cron loop. Invalid schedules are
// returned and nothing is started.
func (s *Scheduler) Start() error {
	if s.cfg.ReassignSchedule != "" {
		if _, err := s.cron.AddFunc(s.cfg.ReassignSchedule, s.ReassignNow); err != nil {
			return fmt.Errorf("reassign schedule %q: %w", s.cfg.ReassignSchedule, err)
		}
	}
	if s.cfg.WarmSchedule != "" && s.warm != nil {
		if _, err := s.cron.AddFunc(s.cfg.WarmSchedule, s.warmNow); err != nil {
			return fmt.Errorf("warm schedule %q: %w", s.cfg.WarmSchedule, err)
		}
	}
	if s.cfg.RunOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.ReassignNow()
		}()
	}
	s.cron.Start()
	applog.Info(nil, "task.started", map[string]any{
		"reassign_schedule": s.cfg.ReassignSchedule,
		"warm_schedule":     s.cfg.WarmSchedule,
	})
	return nil
}

// ReassignNow runs a full reassignment unless one is already running.
func (s *Scheduler) ReassignNow() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		applog.Info(nil, "task.reassign.skip", map[string]any{"reason": "already running"})
		return
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ReassignTimeout)
	defer cancel()
	if _, err := s.assign.ReassignAll(ctx); err != nil {
		applog.Error(nil, "task.reassign.fail", err, nil)
	}
}

func (s *Scheduler) warmNow() {
	// served stale is fine; a stale read starts the refresh
	if _, err := s.warm.GetCategories(context.Background(), "", false); err != nil {
		applog.Error(nil, "task.warm.fail", err, nil)
	}
}

// Stop waits for running jobs and any background category refresh.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.wg.Wait()
	if s.warm != nil {
		s.warm.Wait()
	}
	applog.Info(nil, "task.stopped", nil)
}
