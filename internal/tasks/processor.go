package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"sand/api/internal/metrics"
)

// Reaper is implemented by repository.SessionRepository.
type Reaper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type Processor struct {
	reaper  Reaper
	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

func NewProcessor(reaper Reaper, m *metrics.Metrics, logger zerolog.Logger) *Processor {
	return &Processor{
		reaper:  reaper,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Handle runs one stream message. A nil return acknowledges it; malformed
// and unknown tasks are dropped since retrying cannot fix them.
func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	task, err := DecodeTask(msg.Values)
	if err != nil {
		p.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("dropping malformed task")
		return nil
	}

	switch task.Type {
	case TypeSessionReap:
		return p.handleSessionReap(ctx, task)
	default:
		p.logger.Warn().Str("type", task.Type).Str("task_id", task.ID).Msg("unknown task type")
		return nil
	}
}

func (p *Processor) handleSessionReap(ctx context.Context, task Task) error {
	n, err := p.reaper.DeleteExpired(ctx, p.now())
	if err != nil {
		return fmt.Errorf("reap sessions: %w", err)
	}

	p.metrics.RecordReaped(n)
	p.logger.Info().
		Str("task_id", task.ID).
		Int64("deleted", n).
		Msg("expired sessions reaped")
	return nil
}
