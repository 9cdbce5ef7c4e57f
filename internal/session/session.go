package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"

	"golang.org/x/text/language"

	"github.com/roach88/golem/internal/content"
	"github.com/roach88/golem/internal/engine"
	"github.com/roach88/golem/internal/progress"
	"github.com/roach88/golem/internal/sandbox"
	"github.com/roach88/golem/internal/store"
)

// SeedLength is the number of digits in an avatar seed.
const SeedLength = 16

// ErrNoSuccessPending is returned by Continue when there is nothing to
// acknowledge.
var ErrNoSuccessPending = errors.New("session: no success to acknowledge")

// ErrNoMoreHints is returned by RevealHint when every hint is shown.
var ErrNoMoreHints = errors.New("session: no more hints")

// Status is the result banner shown for the current chapter.
type Status string

const (
	StatusNone    Status = ""
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Options configures Open.
type Options struct {
	// Curriculum is required.
	Curriculum *content.Curriculum

	// Prefs is required.
	Prefs *store.Preferences

	// Host defaults to sandbox.Shared().
	Host *sandbox.Host

	// EngineOptions are passed to engine.New.
	EngineOptions []engine.Option

	Logger *slog.Logger
}

// Session is one learner's view of the tutorial: the chapter on screen,
// the editor buffer, revealed hints and the transient result flags. It
// drives the engine and the progress machine on the learner's behalf.
type Session struct {
	cur     *content.Curriculum
	prefs   *store.Preferences
	host    *sandbox.Host
	machine *progress.Machine
	engine  *engine.Engine
	logger  *slog.Logger

	// attempt is held shared by Run and exclusively by navigation, so a
	// chapter change never overlaps an attempt started through the session.
	attempt sync.RWMutex

	mu             sync.Mutex
	locale         language.Tag
	buffer         string
	hints          int
	successPending bool
	status         Status

	unsubscribe func()
}

// Open hydrates progress, resolves the locale, loads the starter code and
// initializes the host. A host that fails to start does not fail Open; it
// is reported by HostState and HostError and can be retried with
// RetryHost.
func Open(ctx context.Context, opts Options) (*Session, error) {
	if opts.Curriculum == nil {
		return nil, errors.New("session: curriculum is required")
	}
	if opts.Prefs == nil {
		return nil, errors.New("session: preferences are required")
	}
	if opts.Host == nil {
		opts.Host = sandbox.Shared()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Session{
		cur:    opts.Curriculum,
		prefs:  opts.Prefs,
		host:   opts.Host,
		logger: opts.Logger,
		locale: content.MatchLocale(opts.Prefs.Locale(ctx)),
	}
	s.machine = progress.New(ctx, s.cur, s.prefs, progress.WithLogger(s.logger))
	engineOpts := append([]engine.Option{engine.WithLogger(s.logger)}, opts.EngineOptions...)
	s.engine = engine.New(s.host, s.machine, engineOpts...)

	s.mu.Lock()
	s.resetChapterLocked()
	s.mu.Unlock()
	s.unsubscribe = s.machine.Subscribe(s.onChange)

	if err := s.host.Initialize(ctx); err != nil {
		if !sandbox.IsInitializationError(err) {
			s.unsubscribe()
			return nil, fmt.Errorf("initialize sandbox: %w", err)
		}
		s.logger.Warn("sandbox unavailable", "error", err)
	}
	return s, nil
}

// Close detaches the session from the progress machine.
func (s *Session) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// Machine exposes the progress state machine.
func (s *Session) Machine() *progress.Machine { return s.machine }

// Engine exposes the attempt engine.
func (s *Session) Engine() *engine.Engine { return s.engine }

// Host exposes the interpreter host.
func (s *Session) Host() *sandbox.Host { return s.host }

// Curriculum returns the loaded curriculum.
func (s *Session) Curriculum() *content.Curriculum { return s.cur }

// HostState returns the interpreter lifecycle state.
func (s *Session) HostState() sandbox.State { return s.host.State() }

// HostError returns the sticky initialization failure, or nil.
func (s *Session) HostError() error { return s.host.Err() }

// Output returns the interpreter output log.
func (s *Session) Output() []sandbox.Line { return s.host.Output().Lines() }

// Chapter returns the current chapter resolved for the session locale.
func (s *Session) Chapter() content.Resolved {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chapterLocked()
}

func (s *Session) chapterLocked() content.Resolved {
	return s.cur.Chapter(s.machine.Index()).Resolve(s.locale)
}

// Buffer returns the editor contents.
func (s *Session) Buffer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer
}

// SetBuffer replaces the editor contents.
func (s *Session) SetBuffer(src string) {
	s.mu.Lock()
	s.buffer = src
	s.mu.Unlock()
}

// Run submits the buffer as an attempt at the current chapter.
func (s *Session) Run(ctx context.Context) (engine.Result, error) {
	s.attempt.RLock()
	defer s.attempt.RUnlock()

	s.mu.Lock()
	ch := s.chapterLocked()
	src := s.buffer
	s.successPending = false
	s.status = StatusNone
	s.mu.Unlock()

	res, err := s.engine.Attempt(ctx, ch, src)
	if err != nil {
		return res, err
	}

	s.mu.Lock()
	if res.Passed() {
		s.successPending = true
	} else {
		s.status = StatusError
	}
	s.mu.Unlock()
	return res, nil
}

// SuccessPending reports whether the last attempt passed and has not been
// acknowledged with Continue.
func (s *Session) SuccessPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.successPending
}

// Status returns the result banner for the current chapter.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Snapshot is a serializable view of the session.
type Snapshot struct {
	Progress       progress.State `json:"progress"`
	ChapterID      string         `json:"chapter"`
	Title          string         `json:"title"`
	Book           int            `json:"book"`
	Locale         string         `json:"locale"`
	Status         Status         `json:"status,omitempty"`
	SuccessPending bool           `json:"success_pending"`
	HintsShown     int            `json:"hints_shown"`
	HintsTotal     int            `json:"hints_total"`
	Host           string         `json:"host"`
	HostError      string         `json:"host_error,omitempty"`
}

// Snapshot returns the current session state.
func (s *Session) Snapshot() Snapshot {
	p := s.machine.Snapshot()
	s.mu.Lock()
	ch := s.chapterLocked()
	snap := Snapshot{
		Progress:       p,
		ChapterID:      ch.ID,
		Title:          ch.Title,
		Book:           ch.Book,
		Locale:         s.locale.String(),
		Status:         s.status,
		SuccessPending: s.successPending,
		HintsShown:     s.hints,
		HintsTotal:     len(ch.Hints),
	}
	s.mu.Unlock()
	snap.Host = s.host.State().String()
	if err := s.host.Err(); err != nil {
		snap.HostError = err.Error()
	}
	return snap
}

// Continue acknowledges a successful attempt and shows the success banner.
func (s *Session) Continue() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.successPending {
		return ErrNoSuccessPending
	}
	s.successPending = false
	s.status = StatusSuccess
	return nil
}

// Next advances to the next chapter, or starts a book transition.
func (s *Session) Next(ctx context.Context) (progress.AdvanceOutcome, error) {
	outcome := progress.AdvanceMoved
	err := s.navigate(func() (err error) {
		outcome, err = s.machine.Advance(ctx)
		return err
	})
	return outcome, err
}

// ConfirmBook completes a pending book transition.
func (s *Session) ConfirmBook(ctx context.Context) error {
	return s.navigate(func() error { return s.machine.ConfirmTransition(ctx) })
}

// Prev goes back one chapter.
func (s *Session) Prev(ctx context.Context) error {
	return s.navigate(func() error { return s.machine.Retreat(ctx) })
}

// Select jumps to chapter i if it is navigable.
func (s *Session) Select(ctx context.Context, i int) error {
	return s.navigate(func() error { return s.machine.JumpTo(ctx, i) })
}

// navigate runs fn unless an attempt is in flight. Attempts made through
// the session are excluded for the whole of fn; attempts made on the
// engine directly are only seen through Busy.
func (s *Session) navigate(fn func() error) error {
	if !s.attempt.TryLock() {
		return engine.ErrBusy
	}
	defer s.attempt.Unlock()
	if s.engine.Busy() {
		return engine.ErrBusy
	}
	return fn()
}

// RevealHint reveals the next hint and returns it.
func (s *Session) RevealHint() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hints := s.chapterLocked().Hints
	if s.hints >= len(hints) {
		return "", ErrNoMoreHints
	}
	hint := hints[s.hints]
	s.hints++
	return hint, nil
}

// Hints returns the hints revealed so far.
func (s *Session) Hints() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.chapterLocked().Hints[:s.hints]...)
}

// Solve loads the chapter's solution into the buffer.
func (s *Session) Solve() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer = s.chapterLocked().SolutionCode
	return s.buffer
}

// Locale returns the session locale.
func (s *Session) Locale() language.Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locale
}

// SetLocale switches the locale, persists it and reloads the starter code.
func (s *Session) SetLocale(ctx context.Context, raw string) (language.Tag, error) {
	tag := content.MatchLocale(raw)
	if err := s.prefs.SetLocale(ctx, tag.String()); err != nil {
		return tag, fmt.Errorf("persist locale: %w", err)
	}
	s.mu.Lock()
	s.locale = tag
	s.resetChapterLocked()
	s.mu.Unlock()
	s.host.ClearOutput()
	return tag, nil
}

// NeedsIntro reports whether the onboarding screen should be shown: never
// acknowledged and still on the first chapter.
func (s *Session) NeedsIntro(ctx context.Context) bool {
	return !s.prefs.IntroSeen(ctx) && s.machine.Index() == 0
}

// MarkIntroSeen records that onboarding was acknowledged.
func (s *Session) MarkIntroSeen(ctx context.Context) error {
	return s.prefs.SetIntroSeen(ctx)
}

// AvatarSeed returns the stored avatar seed.
func (s *Session) AvatarSeed(ctx context.Context) (string, bool) {
	return s.prefs.AvatarSeed(ctx)
}

// ForgeAvatar stores seed, or a fresh random one when seed is empty.
func (s *Session) ForgeAvatar(ctx context.Context, seed string) (string, error) {
	if seed == "" {
		seed = NewSeed()
	}
	if err := ValidateSeed(seed); err != nil {
		return "", err
	}
	if err := s.prefs.SetAvatarSeed(ctx, seed); err != nil {
		return "", fmt.Errorf("persist avatar seed: %w", err)
	}
	return seed, nil
}

// AbandonAvatar forgets the avatar seed. Progress is kept.
func (s *Session) AbandonAvatar(ctx context.Context) error {
	return s.prefs.RemoveAvatarSeed(ctx)
}

// HardReset clears all progress and preferences, tears the interpreter down
// and initializes it again.
func (s *Session) HardReset(ctx context.Context) error {
	return s.navigate(func() error {
		if err := s.machine.HardReset(ctx); err != nil {
			return err
		}
		s.mu.Lock()
		s.locale = content.MatchLocale(s.prefs.Locale(ctx))
		s.resetChapterLocked()
		s.mu.Unlock()

		s.host.Teardown()
		s.host.ClearOutput()
		if err := s.host.Initialize(ctx); err != nil && !sandbox.IsInitializationError(err) {
			return fmt.Errorf("initialize sandbox: %w", err)
		}
		return nil
	})
}

// RetryHost clears an initialization failure and tries again.
func (s *Session) RetryHost(ctx context.Context) error {
	return s.host.Retry(ctx)
}

func (s *Session) onChange(c progress.Change) {
	switch c.Kind {
	case progress.ChangeIndex, progress.ChangeReset:
		s.mu.Lock()
		s.resetChapterLocked()
		s.mu.Unlock()
		s.host.ClearOutput()
	}
}

// resetChapterLocked loads the starter code and clears per-chapter state.
func (s *Session) resetChapterLocked() {
	s.buffer = s.chapterLocked().InitialCode
	s.hints = 0
	s.successPending = false
	s.status = StatusNone
}

// NewSeed returns a random avatar seed of SeedLength digits.
func NewSeed() string {
	var b strings.Builder
	for i := 0; i < SeedLength; i++ {
		b.WriteByte(byte('0' + rand.IntN(10)))
	}
	return b.String()
}

// ValidateSeed checks that seed is exactly SeedLength decimal digits.
func ValidateSeed(seed string) error {
	if len(seed) != SeedLength {
		return fmt.Errorf("avatar seed must have %d digits, got %d", SeedLength, len(seed))
	}
	for _, r := range seed {
		if r < '0' || r > '9' {
			return fmt.Errorf("avatar seed must be digits only, got %q", seed)
		}
	}
	return nil
}
