// Package fallback runs a list of strategies in order until one succeeds.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"video-insight/config"
)

// ErrNoStrategies is matched by the ExhaustedError returned when nothing is enabled.
var ErrNoStrategies = errors.New("no enabled strategies")

// Strategy is one provider or vendor tried by Run.
type Strategy[T any] interface {
	ID() string
	Enabled() bool
	Attempt(ctx context.Context) (T, error)
}

// Func adapts a closure to Strategy.
type Func[T any] struct {
	Name      string
	IsEnabled bool
	Fn        func(ctx context.Context) (T, error)
}

func (f Func[T]) ID() string                             { return f.Name }
func (f Func[T]) Enabled() bool                          { return f.IsEnabled }
func (f Func[T]) Attempt(ctx context.Context) (T, error) { return f.Fn(ctx) }

type Options struct {
	// MaxRetries is the number of attempts per strategy. Defaults to 2.
	MaxRetries int
	// Shuffle randomizes the enabled strategies before running them.
	Shuffle bool
	Rand    *rand.Rand
	// AttemptTimeout bounds a single attempt when > 0.
	AttemptTimeout time.Duration
	// ShouldFailover skips the remaining attempts of a strategy when it returns true.
	ShouldFailover func(error) bool
	// Label prefixes log lines, e.g. "analysis" or "tts".
	Label string
}

type Attempt struct {
	StrategyID string
	Number     int
	Err        error
	Duration   time.Duration
}

type Result[T any] struct {
	Value      T
	StrategyID string
	Attempts   []Attempt
}

// ExhaustedError lists every failed attempt in order.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		return "all strategies failed: " + ErrNoStrategies.Error()
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("[%s#%d] %v", a.StrategyID, a.Number, a.Err))
	}
	return "all strategies failed: " + strings.Join(parts, "; ")
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrNoStrategies && len(e.Attempts) == 0
}

// Unwrap exposes the per-attempt errors to errors.Is / errors.As.
func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// Run tries each enabled strategy up to opts.MaxRetries times, sequentially,
// and returns the first success. Cancelling ctx stops it immediately.
func Run[T any](ctx context.Context, strategies []Strategy[T], opts Options) (Result[T], error) {
	var res Result[T]
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 2
	}

	enabled := make([]Strategy[T], 0, len(strategies))
	for _, s := range strategies {
		if s != nil && s.Enabled() {
			enabled = append(enabled, s)
		}
	}
	if len(enabled) == 0 {
		config.Logger.Warnf("[%s] 사용 가능한 전략이 없습니다", label(opts))
		return res, &ExhaustedError{}
	}

	if opts.Shuffle {
		r := opts.Rand
		if r == nil {
			r = rand.New(rand.NewSource(time.Now().UnixNano()))
		}
		r.Shuffle(len(enabled), func(i, j int) { enabled[i], enabled[j] = enabled[j], enabled[i] })
	}

	for _, s := range enabled {
		for n := 1; n <= opts.MaxRetries; n++ {
			if err := ctx.Err(); err != nil {
				return res, err
			}

			config.Logger.Infof("[%s] strategy=%s attempt=%d/%d", label(opts), s.ID(), n, opts.MaxRetries)
			start := time.Now()
			v, err := attempt(ctx, s, opts.AttemptTimeout)
			a := Attempt{StrategyID: s.ID(), Number: n, Err: err, Duration: time.Since(start)}
			res.Attempts = append(res.Attempts, a)

			if err == nil {
				res.Value = v
				res.StrategyID = s.ID()
				return res, nil
			}
			config.Logger.Warnf("[%s] strategy=%s attempt=%d failed: %v", label(opts), s.ID(), n, err)

			// 상위 컨텍스트가 끝났다면 더 시도하지 않는다.
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			if opts.ShouldFailover != nil && opts.ShouldFailover(err) {
				break
			}
		}
	}

	return res, &ExhaustedError{Attempts: res.Attempts}
}

func attempt[T any](ctx context.Context, s Strategy[T], timeout time.Duration) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.Attempt(ctx)
}

func label(opts Options) string {
	if opts.Label == "" {
		return "fallback"
	}
	return opts.Label
}
