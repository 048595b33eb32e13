package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-admin/internal/jobs"
)

// Warmer loads one whole collection into the cache and reports its size.
type Warmer interface {
	Warm(ctx context.Context) (int, error)
}

// ListWarmupJob warms the list caches so the first free-text search of a
// list does not pay for the whole-collection walk.
type ListWarmupJob struct {
	Warmers map[string]Warmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	// Timeout bounds each list. Zero means two minutes.
	Timeout time.Duration
}

// NewListWarmupJob wires the warmup handler.
func NewListWarmupJob(warmers map[string]Warmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *ListWarmupJob {
	return &ListWarmupJob{Warmers: warmers, Logger: logger, Metrics: metrics}
}

// Handle processes TaskListWarmup tasks. A failing list does not stop the
// others; the joined error makes asynq retry the task.
func (j *ListWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || len(j.Warmers) == 0 {
		return errors.New("list warmup: no lists configured")
	}
	var payload ListWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("list warmup: %v: %w", err, asynq.SkipRetry)
	}
	lists, err := j.resolve(payload.Lists)
	if err != nil {
		return fmt.Errorf("list warmup: %w: %w", err, asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(TaskListWarmup)
	logger := j.logger()
	start := time.Now()
	var errs []error
	for _, name := range lists {
		rows, err := j.warm(ctx, name)
		if err != nil {
			logger.Error("warm list", slog.String("list", name), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		j.Metrics.SetWarmedRows(name, rows)
		logger.Info("warmed list", slog.String("list", name), slog.Int("rows", rows))
	}
	err = tracker.End(errors.Join(errs...))
	logger.Info("completed list warmup", slog.Int("lists", len(lists)), slog.Int("failed", len(errs)), slog.Duration("duration", time.Since(start)))
	return err
}

func (j *ListWarmupJob) warm(ctx context.Context, name string) (int, error) {
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return j.Warmers[name].Warm(ctx)
}

func (j *ListWarmupJob) resolve(requested []string) ([]string, error) {
	if len(requested) == 0 {
		names := make([]string, 0, len(j.Warmers))
		for name := range j.Warmers {
			names = append(names, name)
		}
		sort.Strings(names)
		return names, nil
	}
	for _, name := range requested {
		if _, ok := j.Warmers[name]; !ok {
			return nil, fmt.Errorf("unknown list %q", name)
		}
	}
	return requested, nil
}

func (j *ListWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskListWarmup))
	}
	return slog.Default().With(slog.String("job", TaskListWarmup))
}
