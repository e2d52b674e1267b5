// Package fanout runs provider calls concurrently under a bounded
// limit and joins the results into typed envelopes.
package fanout

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mkhalili/arbiter/internal/domain/model"
	"github.com/mkhalili/arbiter/pkg/logger"
	"github.com/mkhalili/arbiter/pkg/metrics"
)

const defaultLimit = 3

// Task is one provider call to run under the concurrency cap.
type Task struct {
	Provider string
	Tier     int
	Weight   float64
	Run      func(ctx context.Context) (any, error)
}

// Option applies a configuration option to the Executor.
type Option func(*Executor)

// WithLimit caps the number of concurrently running tasks.
func WithLimit(limit int) Option {
	return func(e *Executor) {
		if limit > 0 {
			e.limit = limit
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// Executor fans provider tasks out and collects their envelopes.
type Executor struct {
	limit  int
	logger logger.Logger
}

// New creates an executor with configuration options.
func New(opts ...Option) *Executor {
	e := &Executor{
		limit:  defaultLimit,
		logger: logger.Get().Named("fanout"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Collect runs every task and returns one envelope per task, in task
// order. Join order does not matter downstream; reconciliation is
// order-independent. Task failures and panics become failed
// envelopes, never an error from Collect itself.
func (e *Executor) Collect(ctx context.Context, tasks []Task) []model.ProviderEnvelope {
	envelopes := make([]model.ProviderEnvelope, len(tasks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.limit)
	for i, task := range tasks {
		g.Go(func() error {
			envelopes[i] = e.runOne(ctx, task)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // tasks never return errors

	return envelopes
}

// runOne executes a single task with panic isolation.
func (e *Executor) runOne(ctx context.Context, task Task) (env model.ProviderEnvelope) {
	env = model.ProviderEnvelope{
		Provider: task.Provider,
		Tier:     task.Tier,
		Weight:   task.Weight,
	}

	defer func() {
		if r := recover(); r != nil {
			env.Status = model.EnvelopeFailed
			env.Reason = fmt.Sprintf("panic: %v", r)
			e.logger.Error(ctx, "provider task panicked",
				logger.String("provider", task.Provider),
				logger.Any("panic", r),
			)
		}
		env.CollectedAt = time.Now()
		metrics.RecordProviderRequest(task.Provider, string(env.Status))
	}()

	metrics.FetchStarted()
	payload, err := task.Run(ctx)
	metrics.FetchFinished()

	if err != nil {
		env.Status = model.EnvelopeFailed
		env.Reason = err.Error()
		e.logger.Debug(ctx, "provider task failed",
			logger.String("provider", task.Provider),
			logger.Error(err),
		)
		return env
	}

	env.Status = model.EnvelopeOK
	env.Payload = payload
	return env
}
