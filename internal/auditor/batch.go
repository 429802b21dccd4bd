package auditor

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/khanhnv2901/webaudit/internal/domain/audit"
	consts "github.com/khanhnv2901/webaudit/internal/shared/constants"
	apperrors "github.com/khanhnv2901/webaudit/internal/shared/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// CompleteFunc is called once per target when its result is ready.
type CompleteFunc func(index int, result audit.Result)

// StartFunc is called when a target has been admitted and its audit begins.
type StartFunc func(index int)

// Runner audits many targets with a bounded number in flight.
type Runner struct {
	Auditor     Service
	Concurrency int     // Maximum number of audits in flight
	RateLimit   float64 // Audits started per second; 0 means unlimited
	OnStart     StartFunc
	OnComplete  CompleteFunc
	Logger      *zap.Logger

	mu sync.Mutex
}

// NewRunner creates a runner with the default concurrency.
func NewRunner(service Service, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		Auditor:     service,
		Concurrency: consts.DefaultBatchConcurrency,
		Logger:      logger,
	}
}

// RunBatch audits every target and returns one result per target, in input
// order. Targets are admitted in submission order; a slot is held from the
// start of a target's fetch until its whole audit, cloaking fetches
// included, has finished. A failing or panicking audit only affects its own
// result. Cancelling ctx stops admission: targets not yet admitted get an
// error result.
func (r *Runner) RunBatch(ctx context.Context, targets []audit.Target) []audit.Result {
	results := make([]audit.Result, len(targets))
	if len(targets) == 0 {
		return results
	}

	concurrency := r.Concurrency
	if concurrency <= 0 {
		concurrency = consts.DefaultBatchConcurrency
	}

	var limiter *rate.Limiter
	if r.RateLimit > 0 {
		burst := int(math.Max(1, math.Ceil(r.RateLimit)))
		limiter = rate.NewLimiter(rate.Limit(r.RateLimit), burst)
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, target := range targets {
		if !r.admit(ctx, sem) {
			for j := i; j < len(targets); j++ {
				results[j] = r.cancelled(targets[j])
				r.complete(j, results[j])
			}
			break
		}
		r.logger().Debug("target admitted", zap.Int("index", i), zap.String("url", target.URL))

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					results[i] = r.cancelled(target)
					r.complete(i, results[i])
					return
				}
			}

			if r.OnStart != nil {
				r.OnStart(i)
			}
			results[i] = r.auditOne(ctx, target)
			r.complete(i, results[i])
		}()
	}

	wg.Wait()
	return results
}

// admit blocks until a slot is free or ctx is done.
func (r *Runner) admit(ctx context.Context, sem chan struct{}) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case sem <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

// auditOne runs one audit and converts a panic into an error result.
func (r *Runner) auditOne(ctx context.Context, target audit.Target) (result audit.Result) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			r.logger().Error("audit panicked", zap.String("url", target.URL), zap.Any("panic", rec))
			result = audit.NewErrorResult(target.URL, start, fmt.Sprintf("audit failed: %v", rec))
		}
	}()
	result = r.Auditor.Audit(ctx, target)
	r.logger().Debug("target completed",
		zap.String("url", target.URL),
		zap.Duration("duration", time.Since(start)),
		zap.Bool("failed", result.Failed()))
	return result
}

func (r *Runner) cancelled(target audit.Target) audit.Result {
	return audit.NewErrorResult(target.URL, time.Now(), apperrors.ErrBatchCancelled.Error())
}

// complete serializes OnComplete calls so callbacks need no locking.
func (r *Runner) complete(index int, result audit.Result) {
	if r.OnComplete == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.OnComplete(index, result)
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}
