package transcript

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// DefaultTimeout bounds each strategy when the caller passes no timeout.
const DefaultTimeout = 30 * time.Second

// Orchestrator tries strategies one at a time until one returns segments.
type Orchestrator struct {
	strategies []Strategy
	prefs      PreferenceProvider
	onAttempt  func(Attempt)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPreferences sets the settings collaborator consulted on every call.
func WithPreferences(p PreferenceProvider) Option {
	return func(o *Orchestrator) { o.prefs = p }
}

// WithAttemptHook registers fn to observe every finished attempt.
func WithAttemptHook(fn func(Attempt)) Option {
	return func(o *Orchestrator) { o.onAttempt = fn }
}

// New builds an orchestrator. Strategies are ordered by ascending
// priority; ties keep the order they were passed in.
func New(strategies []Strategy, opts ...Option) *Orchestrator {
	ordered := make([]Strategy, 0, len(strategies))
	for _, s := range strategies {
		if s != nil {
			ordered = append(ordered, s)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority() < ordered[j].Priority()
	})
	o := &Orchestrator{
		strategies: ordered,
		prefs:      StaticPreference{Method: MethodAuto, Language: DefaultLanguage},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Methods returns the strategy methods in default order.
func (o *Orchestrator) Methods() []Method {
	out := make([]Method, len(o.strategies))
	for i, s := range o.strategies {
		out[i] = s.Method()
	}
	return out
}

// Order returns the attempt order for the given preferred method: the
// matching strategy first, everything else in default order. MethodAuto
// or an unknown method leaves the default order untouched.
func (o *Orchestrator) Order(preferred Method) []Strategy {
	idx := -1
	if preferred != MethodAuto {
		for i, s := range o.strategies {
			if s.Method() == preferred {
				idx = i
				break
			}
		}
	}
	out := make([]Strategy, 0, len(o.strategies))
	if idx < 0 {
		return append(out, o.strategies...)
	}
	out = append(out, o.strategies[idx])
	out = append(out, o.strategies[:idx]...)
	return append(out, o.strategies[idx+1:]...)
}

// FetchTranscript runs the strategies sequentially, each raced against
// timeout, and returns the first non-empty result. An empty lang falls
// back to the preference language, then DefaultLanguage.
func (o *Orchestrator) FetchTranscript(ctx context.Context, videoID, lang string, timeout time.Duration) ([]Segment, error) {
	pref := o.prefs.Preference(ctx)
	if lang == "" {
		lang = pref.Language
	}
	if lang == "" {
		lang = DefaultLanguage
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var (
		attempts []Attempt
		lastErr  error
	)
	for _, s := range o.Order(pref.Method) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fetch transcript %s: %w", videoID, err)
		}

		started := time.Now()
		segs, err := race(ctx, s, videoID, lang, timeout)
		a := Attempt{Method: s.Method(), Elapsed: time.Since(started)}

		switch {
		case err == nil && len(segs) > 0:
			a.Outcome = OutcomeOK
			o.record(a)
			slog.Info("transcript: strategy succeeded",
				slog.String("id", videoID),
				slog.String("method", string(s.Method())),
				slog.Int("segments", len(segs)),
				slog.Duration("elapsed", a.Elapsed))
			return segs, nil
		case err == nil:
			a.Outcome = OutcomeEmpty
			slog.Debug("transcript: strategy returned no segments",
				slog.String("id", videoID), slog.String("method", string(s.Method())))
		case errors.Is(err, ErrTimeout):
			a.Outcome, a.Err = OutcomeTimeout, err
			lastErr = err
		default:
			if ctx.Err() != nil {
				return nil, fmt.Errorf("fetch transcript %s: %w", videoID, ctx.Err())
			}
			a.Outcome, a.Err = OutcomeError, err
			lastErr = err
		}
		if a.Err != nil {
			slog.Warn("transcript: strategy failed",
				slog.String("id", videoID),
				slog.String("method", string(s.Method())),
				slog.String("outcome", string(a.Outcome)),
				slog.Any("error", a.Err))
		}
		attempts = append(attempts, a)
		o.record(a)
	}

	ex := &ExhaustedError{Attempts: attempts, last: lastErr}
	slog.Warn("transcript: all strategies exhausted",
		slog.String("id", videoID), slog.String("lang", lang), slog.String("attempts", ex.Summary()))
	return nil, ex
}

func (o *Orchestrator) record(a Attempt) {
	if o.onAttempt != nil {
		o.onAttempt(a)
	}
}

type raceResult struct {
	segs []Segment
	err  error
}

// race runs one strategy under a deadline. A strategy that ignores its
// context is abandoned when the timer fires; its late result is dropped
// into the buffered channel and discarded.
func race(ctx context.Context, s Strategy, videoID, lang string, timeout time.Duration) ([]Segment, error) {
	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := make(chan raceResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- raceResult{err: fmt.Errorf("%s: panic: %v", s.Method(), r)}
			}
		}()
		segs, err := s.Fetch(rctx, videoID, lang)
		ch <- raceResult{segs: segs, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	timedOut := fmt.Errorf("%w: %s after %s", ErrTimeout, s.Method(), timeout)
	select {
	case r := <-ch:
		// Only our own deadline counts as a timeout; a strategy's internal
		// sub-deadline is an ordinary error.
		if r.err != nil && errors.Is(rctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, timedOut
		}
		return r.segs, r.err
	case <-timer.C:
		return nil, timedOut
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
