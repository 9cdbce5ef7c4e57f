package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
	"golang.org/x/sync/singleflight"
)

// State is the lifecycle state of a Host.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// GlobalsFunc is the name of the host builtin that returns the learner's
// globals as a dict.
const GlobalsFunc = "globals"

const flightKey = "init"

// fileOptions enables the Python-like conveniences lessons rely on: top
// level loops and ifs, while, sets, rebinding globals and recursion.
var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

// Host owns one Starlark global namespace and its output log.
type Host struct {
	mu       sync.Mutex
	state    State
	cause    error
	globals  starlark.StringDict
	builtins map[string]starlark.Value
	gen      uint64

	// execMu serializes Execute and Evaluate against the namespace.
	execMu sync.Mutex

	flight   singleflight.Group
	inits    atomic.Int64
	log      *Log
	preludes []Prelude
	logger   *slog.Logger
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the host's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) {
		h.logger = logger
	}
}

// WithSink streams every appended output line to sink.
func WithSink(sink func(Line)) Option {
	return func(h *Host) {
		h.log = NewLog(sink)
	}
}

// WithPrelude appends a prelude run on every initialization.
func WithPrelude(p Prelude) Option {
	return func(h *Host) {
		h.preludes = append(h.preludes, p)
	}
}

// WithoutDefaultPreludes drops the mock modules. Preludes added with
// WithPrelude after this option are kept.
func WithoutDefaultPreludes() Option {
	return func(h *Host) {
		h.preludes = nil
	}
}

// New returns an uninitialized host.
func New(opts ...Option) *Host {
	h := &Host{
		log:      NewLog(nil),
		preludes: DefaultPreludes(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// State returns the current lifecycle state.
func (h *Host) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Err returns the sticky initialization error, or nil.
func (h *Host) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cause
}

// Output returns the host's output log.
func (h *Host) Output() *Log {
	return h.log
}

// Initializations returns how many bootstraps have actually run.
func (h *Host) Initializations() int64 {
	return h.inits.Load()
}

// Initialize brings the host to Ready. It is idempotent and safe for
// concurrent use: simultaneous callers share one bootstrap. A failure is
// sticky and returned to every later caller until Retry.
//
// Cancelling ctx abandons the wait, not the bootstrap.
func (h *Host) Initialize(ctx context.Context) error {
	h.mu.Lock()
	switch h.state {
	case StateReady:
		h.mu.Unlock()
		return nil
	case StateFailed:
		err := h.cause
		h.mu.Unlock()
		return err
	}
	h.state = StateInitializing
	h.mu.Unlock()

	bootCtx := context.WithoutCancel(ctx)
	ch := h.flight.DoChan(flightKey, func() (any, error) {
		return nil, h.bootstrap(bootCtx)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Retry clears a failure (or a ready namespace) and initializes from scratch.
func (h *Host) Retry(ctx context.Context) error {
	h.reset()
	return h.Initialize(ctx)
}

// Teardown drops the global namespace and returns the host to
// Uninitialized. The output log is kept.
func (h *Host) Teardown() {
	h.reset()
}

func (h *Host) reset() {
	h.execMu.Lock()
	defer h.execMu.Unlock()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.flight.Forget(flightKey)
	h.gen++
	h.state = StateUninitialized
	h.cause = nil
	h.globals = nil
	h.builtins = nil
}

func (h *Host) bootstrap(ctx context.Context) error {
	h.mu.Lock()
	switch h.state {
	case StateReady:
		h.mu.Unlock()
		return nil
	case StateFailed:
		err := h.cause
		h.mu.Unlock()
		return err
	}
	gen := h.gen
	h.mu.Unlock()

	h.inits.Add(1)
	globals, builtins, err := h.build(ctx)

	h.mu.Lock()
	defer h.mu.Unlock()
	if gen != h.gen {
		// Torn down while building; the result belongs to nobody.
		return ErrNotReady
	}
	if err != nil {
		h.state = StateFailed
		h.cause = err
		h.logger.Error("sandbox initialization failed", "error", err)
		return err
	}
	h.state = StateReady
	h.globals = globals
	h.builtins = builtins
	h.logger.Debug("sandbox ready", "builtins", len(builtins))
	return nil
}

func (h *Host) build(ctx context.Context) (starlark.StringDict, map[string]starlark.Value, error) {
	globals := starlark.StringDict{}
	builtins := map[string]starlark.Value{}
	globals[GlobalsFunc] = globalsBuiltin(globals, builtins)
	builtins[GlobalsFunc] = globals[GlobalsFunc]

	for _, p := range h.preludes {
		for name, v := range p.Modules {
			globals[name] = v
			builtins[name] = v
		}
		if p.Load != nil {
			loaded, err := p.Load(ctx)
			if err != nil {
				return nil, nil, &InitializationError{Prelude: p.Name, Err: err}
			}
			for name, v := range loaded {
				globals[name] = v
				builtins[name] = v
			}
		}
		if p.Script != "" {
			if err := h.exec(ctx, globals, "<prelude "+p.Name+">", p.Script); err != nil {
				return nil, nil, &InitializationError{Prelude: p.Name, Err: err}
			}
			for name, v := range globals {
				if prev, ok := builtins[name]; !ok || !sameValue(prev, v) {
					builtins[name] = v
				}
			}
		}
	}
	return globals, builtins, nil
}

// globalsBuiltin returns the globals() function: a fresh dict of every
// global in name order. A name installed by a prelude is left out only
// while it still holds the installed value; once learner code rebinds it,
// it is an ordinary global.
func globalsBuiltin(globals starlark.StringDict, builtins map[string]starlark.Value) *starlark.Builtin {
	return starlark.NewBuiltin(GlobalsFunc, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
			return nil, err
		}
		names := make([]string, 0, len(globals))
		for name, v := range globals {
			if installed, ok := builtins[name]; ok && sameValue(installed, v) {
				continue
			}
			names = append(names, name)
		}
		sort.Strings(names)
		d := starlark.NewDict(len(names))
		for _, name := range names {
			if err := d.SetKey(starlark.String(name), globals[name]); err != nil {
				return nil, err
			}
		}
		return d, nil
	})
}

// sameValue reports whether a and b are the same value, not merely equal
// ones. Slice-backed values such as tuples compare by backing array.
func sameValue(a, b starlark.Value) bool {
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Kind() == reflect.Slice {
		return va.Len() == vb.Len() && (va.Len() == 0 || va.Pointer() == vb.Pointer())
	}
	return false
}

func (h *Host) ready() (starlark.StringDict, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != StateReady {
		return nil, ErrNotReady
	}
	return h.globals, nil
}

// Execute runs src in the shared namespace. Printed output is appended to
// the log as it is produced. If src fails to parse or raises, the message
// is appended as error lines and an *ExecutionError is returned.
func (h *Host) Execute(ctx context.Context, name, src string) error {
	h.execMu.Lock()
	defer h.execMu.Unlock()

	globals, err := h.ready()
	if err != nil {
		return err
	}
	return h.exec(ctx, globals, name, src)
}

func (h *Host) exec(ctx context.Context, globals starlark.StringDict, name, src string) error {
	thread, stop := h.thread(ctx, name)
	defer stop()

	f, err := fileOptions.Parse(name, src, 0)
	if err == nil {
		err = starlark.ExecREPLChunk(f, thread, globals)
	}
	if err != nil {
		return h.fail(name, err)
	}
	return nil
}

// Evaluate evaluates expr against the shared namespace and converts the
// result with ToGo.
func (h *Host) Evaluate(ctx context.Context, expr string) (any, error) {
	h.execMu.Lock()
	defer h.execMu.Unlock()

	globals, err := h.ready()
	if err != nil {
		return nil, err
	}

	const name = "<eval>"
	thread, stop := h.thread(ctx, name)
	defer stop()

	v, err := starlark.EvalOptions(fileOptions, thread, name, expr, globals)
	if err != nil {
		return nil, h.fail(name, err)
	}
	return ToGo(v), nil
}

// ClearOutput empties the log. Globals are untouched.
func (h *Host) ClearOutput() {
	h.log.Clear()
}

// Emit appends a host-authored line to the log.
func (h *Host) Emit(kind LineKind, text string) {
	h.log.Append(kind, text)
}

func (h *Host) thread(ctx context.Context, name string) (*starlark.Thread, func() bool) {
	thread := &starlark.Thread{
		Name: name,
		// print terminates every message with a newline, so a message
		// that already ends in one leaves an empty line behind it.
		Print: func(_ *starlark.Thread, msg string) {
			h.log.Append(LineStdout, msg+"\n")
		},
	}
	stop := context.AfterFunc(ctx, func() {
		thread.Cancel(context.Cause(ctx).Error())
	})
	return thread, stop
}

func (h *Host) fail(name string, err error) error {
	ee := &ExecutionError{Name: name, Message: err.Error(), Err: err}
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		ee.Message = evalErr.Msg
		ee.Backtrace = evalErr.Backtrace()
	}
	h.log.Append(LineError, ee.Message)
	h.logger.Debug("sandbox execution failed", "chunk", name, "error", ee.Message)
	return ee
}
