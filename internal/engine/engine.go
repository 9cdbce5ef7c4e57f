package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/golem/internal/content"
	"github.com/roach88/golem/internal/sandbox"
	"github.com/roach88/golem/internal/store"
)

// Chunk names passed to the interpreter; they show up in backtraces.
const (
	LearnerChunk   = "<learner>"
	ValidatorChunk = "<validator>"
)

// DefaultEntryPoint is the function every validator defines.
const DefaultEntryPoint = "validate"

// Verdict line prefixes.
const (
	SuccessPrefix = "✨ SYSTEM: "
	FailurePrefix = "❌ SYSTEM: "
)

// Interpreter is the part of *sandbox.Host the engine drives.
type Interpreter interface {
	State() sandbox.State
	Execute(ctx context.Context, name, src string) error
	Evaluate(ctx context.Context, expr string) (any, error)
	ClearOutput()
	Emit(kind sandbox.LineKind, text string)
}

// CompletionMarker records a completed chapter. Implemented by
// *progress.Machine.
type CompletionMarker interface {
	MarkComplete(ctx context.Context, id string) bool
}

// Journal persists finished attempts. Implemented by *store.Store.
type Journal interface {
	RecordAttempt(ctx context.Context, rec store.AttemptRecord) error
}

// Engine orchestrates attempts against one interpreter.
//
// Thread-safety model:
//   - Attempt(): safe from any goroutine; concurrent calls get ErrBusy
//   - Busy(): safe from any goroutine
type Engine struct {
	host    Interpreter
	marker  CompletionMarker
	journal Journal
	clock   *Clock
	ids     IDGenerator
	metrics *Metrics
	logger  *slog.Logger
	entry   string
	now     func() time.Time

	busy atomic.Bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithJournal records every finished attempt in j. Journal failures are
// logged and otherwise ignored.
func WithJournal(j Journal) Option {
	return func(e *Engine) {
		e.journal = j
	}
}

// WithMetrics registers the engine's collectors on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(e *Engine) {
		e.metrics = NewMetrics(reg)
	}
}

// WithClock sets the logical clock. Used to resume seqs after a restart.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithIDGenerator sets the attempt ID generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithEntryPoint changes the validator function name.
//
// Default: "validate"
func WithEntryPoint(name string) Option {
	return func(e *Engine) {
		if name != "" {
			e.entry = name
		}
	}
}

// WithNow overrides the wall clock used for durations.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an Engine. marker may be nil when completion is tracked
// elsewhere.
func New(host Interpreter, marker CompletionMarker, opts ...Option) *Engine {
	e := &Engine{
		host:   host,
		marker: marker,
		clock:  NewClock(),
		ids:    UUIDv7Generator{},
		logger: slog.Default(),
		entry:  DefaultEntryPoint,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Busy reports whether an attempt is in flight.
func (e *Engine) Busy() bool {
	return e.busy.Load()
}

// EntryPoint returns the validator function name.
func (e *Engine) EntryPoint() string {
	return e.entry
}

// Attempt runs src and then ch's validator. The returned error is non-nil
// only when the attempt was refused (ErrBusy, sandbox.ErrNotReady); every
// attempt that starts produces exactly one Result.
//
// Attempts are never cancelled by the engine. ctx is passed to the
// interpreter, so cancelling it stops runaway learner code.
func (e *Engine) Attempt(ctx context.Context, ch content.Resolved, src string) (Result, error) {
	if !e.busy.CompareAndSwap(false, true) {
		e.metrics.reject()
		e.logger.Debug("attempt rejected: busy", "chapter", ch.ID)
		return Result{}, ErrBusy
	}
	defer e.busy.Store(false)

	if e.host.State() != sandbox.StateReady {
		return Result{}, sandbox.ErrNotReady
	}

	start := e.now()
	res := Result{
		ID:        e.ids.Generate(),
		ChapterID: ch.ID,
		Seq:       e.clock.Next(),
	}

	e.host.ClearOutput()
	e.run(ctx, ch, src, &res)
	res.Duration = e.now().Sub(start)

	e.metrics.observe(res)
	e.record(ctx, res)

	e.logger.Info("attempt finished",
		"chapter", res.ChapterID,
		"outcome", res.Outcome.String(),
		"seq", res.Seq,
		"duration", res.Duration,
	)
	return res, nil
}

func (e *Engine) run(ctx context.Context, ch content.Resolved, src string, res *Result) {
	if err := e.host.Execute(ctx, LearnerChunk, src); err != nil {
		var ee *sandbox.ExecutionError
		if errors.As(err, &ee) {
			res.Outcome = OutcomeFailure
			res.Message = ee.Message
			res.Cause = err
			return
		}
		e.fault(res, err)
		return
	}

	if err := e.host.Execute(ctx, ValidatorChunk, ch.ValidationCode); err != nil {
		e.fault(res, &ValidationFault{ChapterID: ch.ID, Stage: StageDefine, Err: err})
		return
	}

	value, err := e.host.Evaluate(ctx, e.entry+"("+sandbox.GlobalsFunc+"())")
	if err != nil {
		e.fault(res, &ValidationFault{ChapterID: ch.ID, Stage: StageEvaluate, Err: err})
		return
	}

	verdict, err := DecodeVerdict(value)
	if err != nil {
		fault := &ValidationFault{ChapterID: ch.ID, Stage: StageDecode, Err: err}
		e.host.Emit(sandbox.LineError, err.Error())
		e.fault(res, fault)
		return
	}

	res.Message = verdict.Message
	if !verdict.Passed {
		res.Outcome = OutcomeFailure
		e.host.Emit(sandbox.LineSystem, FailurePrefix+verdict.Message)
		return
	}

	res.Outcome = OutcomeSuccess
	e.host.Emit(sandbox.LineSystem, SuccessPrefix+verdict.Message)
	if e.marker != nil {
		e.marker.MarkComplete(ctx, ch.ID)
	}
}

func (e *Engine) fault(res *Result, err error) {
	res.Outcome = OutcomeEngineError
	res.Message = err.Error()
	res.Cause = err
	e.logger.Error("attempt could not be graded", "chapter", res.ChapterID, "error", err)
}

func (e *Engine) record(ctx context.Context, res Result) {
	if e.journal == nil {
		return
	}
	rec := store.AttemptRecord{
		ID:        res.ID,
		ChapterID: res.ChapterID,
		Outcome:   res.Outcome.String(),
		Message:   res.Message,
		Seq:       res.Seq,
		Duration:  res.Duration,
		CreatedAt: e.now(),
	}
	if err := e.journal.RecordAttempt(ctx, rec); err != nil {
		e.logger.Warn("attempt not journaled", "id", res.ID, "error", err)
	}
}
