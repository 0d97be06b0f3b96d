package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"sand/api/internal/tasks"
)

// Enqueuer is implemented by queue.Producer.
type Enqueuer interface {
	Enqueue(ctx context.Context, task tasks.Task) error
}

type Scheduler struct {
	cron         *cron.Cron
	queue        Enqueuer
	reapSchedule string
	log          zerolog.Logger
}

// NewScheduler uses six-field cron specs (seconds first).
func NewScheduler(queue Enqueuer, reapSchedule string, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:         cron.New(cron.WithSeconds()),
		queue:        queue,
		reapSchedule: reapSchedule,
		log:          log,
	}
}

func (s *Scheduler) Start() error {
	if s.queue == nil {
		return nil
	}

	if _, err := s.cron.AddFunc(s.reapSchedule, s.enqueueReap); err != nil {
		return fmt.Errorf("schedule session reap %q: %w", s.reapSchedule, err)
	}

	s.cron.Start()
	s.log.Info().Str("schedule", s.reapSchedule).Msg("session reaper scheduled")
	return nil
}

// Stop halts scheduling. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) enqueueReap() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.EnqueueReap(ctx); err != nil {
		s.log.Error().Err(err).Msg("enqueue session reap failed")
	}
}

func (s *Scheduler) EnqueueReap(ctx context.Context) error {
	task := tasks.NewTask(tasks.TypeSessionReap)
	if err := s.queue.Enqueue(ctx, task); err != nil {
		return err
	}
	s.log.Debug().Str("task_id", task.ID).Msg("session reap enqueued")
	return nil
}
