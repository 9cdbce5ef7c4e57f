package progress

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/golem/internal/store"
)

// Curriculum is what the machine needs to know about the chapter sequence.
// Implemented by *content.Curriculum.
type Curriculum interface {
	Len() int
	IDAt(i int) string
	GroupOf(i int) int
}

// Phase is the machine's mode.
type Phase int

const (
	// PhaseChapter: the learner is on a chapter.
	PhaseChapter Phase = iota
	// PhaseBookTransition: Advance crossed a book boundary and waits for
	// ConfirmTransition.
	PhaseBookTransition
)

func (p Phase) String() string {
	switch p {
	case PhaseChapter:
		return "chapter"
	case PhaseBookTransition:
		return "book_transition"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Transition is a pending move across a book boundary.
type Transition struct {
	From     int `json:"from"`
	To       int `json:"to"`
	FromBook int `json:"from_book"`
	ToBook   int `json:"to_book"`
}

// AdvanceOutcome says what Advance did.
type AdvanceOutcome int

const (
	// AdvanceMoved: the index changed.
	AdvanceMoved AdvanceOutcome = iota
	// AdvancePending: a book transition is waiting for confirmation.
	AdvancePending
)

func (o AdvanceOutcome) String() string {
	if o == AdvancePending {
		return "pending"
	}
	return "moved"
}

// ChangeKind classifies a Change.
type ChangeKind int

const (
	// ChangeIndex: the current chapter index changed.
	ChangeIndex ChangeKind = iota
	// ChangeCompleted: a chapter was newly completed.
	ChangeCompleted
	// ChangeTransition: a book transition started.
	ChangeTransition
	// ChangeReset: everything returned to the initial state.
	ChangeReset
)

// Change is delivered to subscribers after every mutation.
type Change struct {
	Kind      ChangeKind
	From      int
	To        int
	ChapterID string
}

// State is a point-in-time copy of the machine.
type State struct {
	Index           int         `json:"index"`
	Phase           Phase       `json:"-"`
	PhaseName       string      `json:"phase"`
	Pending         *Transition `json:"pending,omitempty"`
	Completed       []string    `json:"completed"`
	Stage           int         `json:"stage"`
	JourneyComplete bool        `json:"journey_complete"`
}

// Machine is the progress state machine. Safe for concurrent use.
// Subscribers run after the lock is released, in subscription order.
type Machine struct {
	mu        sync.Mutex
	cur       Curriculum
	prefs     *store.Preferences
	logger    *slog.Logger
	index     int
	completed map[string]struct{}
	order     []string
	phase     Phase
	pending   *Transition
	subs      map[int]func(Change)
	nextSub   int
}

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// New hydrates a machine from prefs. A stored index outside the curriculum
// degrades to 0.
func New(ctx context.Context, cur Curriculum, prefs *store.Preferences, opts ...Option) *Machine {
	m := &Machine{
		cur:       cur,
		prefs:     prefs,
		logger:    slog.Default(),
		completed: map[string]struct{}{},
		subs:      map[int]func(Change){},
	}
	for _, opt := range opts {
		opt(m)
	}

	m.index = prefs.ChapterIndex(ctx)
	if m.index >= cur.Len() {
		m.logger.Debug("stored chapter index out of range", "index", m.index, "chapters", cur.Len())
		m.index = 0
	}
	for _, id := range prefs.Completed(ctx) {
		m.completed[id] = struct{}{}
		m.order = append(m.order, id)
	}
	return m
}

// Subscribe registers fn for every Change. The returned func unsubscribes.
func (m *Machine) Subscribe(fn func(Change)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Index returns the current chapter index.
func (m *Machine) Index() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Pending returns the pending book transition, if any.
func (m *Machine) Pending() (Transition, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return Transition{}, false
	}
	return *m.pending, true
}

// Completed returns the completed ids in completion order.
func (m *Machine) Completed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.order...)
}

// IsCompleted reports whether id is completed.
func (m *Machine) IsCompleted(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.completed[id]
	return ok
}

// Stage is the number of completed chapters.
func (m *Machine) Stage() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.completed)
}

// JourneyComplete reports whether the last chapter is completed.
func (m *Machine) JourneyComplete() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.journeyCompleteLocked()
}

func (m *Machine) journeyCompleteLocked() bool {
	_, ok := m.completed[m.cur.IDAt(m.cur.Len()-1)]
	return ok
}

// Snapshot returns a copy of the whole state.
func (m *Machine) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := State{
		Index:           m.index,
		Phase:           m.phase,
		PhaseName:       m.phase.String(),
		Completed:       append([]string{}, m.order...),
		Stage:           len(m.completed),
		JourneyComplete: m.journeyCompleteLocked(),
	}
	if m.pending != nil {
		p := *m.pending
		s.Pending = &p
	}
	return s
}

// Navigable reports whether chapter i may be selected directly.
func (m *Machine) Navigable(i int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.navigableLocked(i)
}

func (m *Machine) navigableLocked(i int) bool {
	if i < 0 || i >= m.cur.Len() {
		return false
	}
	if i == 0 {
		return true
	}
	if _, ok := m.completed[m.cur.IDAt(i)]; ok {
		return true
	}
	_, ok := m.completed[m.cur.IDAt(i-1)]
	return ok
}

// Advance moves to the next chapter. Crossing into another book starts a
// transition instead and returns AdvancePending.
func (m *Machine) Advance(ctx context.Context) (AdvanceOutcome, error) {
	m.mu.Lock()
	if m.phase == PhaseBookTransition {
		m.mu.Unlock()
		return AdvancePending, ErrTransitionPending
	}
	next := m.index + 1
	if next >= m.cur.Len() {
		m.mu.Unlock()
		return AdvanceMoved, ErrNoNextChapter
	}
	if !m.navigableLocked(next) {
		m.mu.Unlock()
		return AdvanceMoved, ErrChapterLocked
	}

	from, to := m.cur.GroupOf(m.index), m.cur.GroupOf(next)
	if from != to {
		m.phase = PhaseBookTransition
		m.pending = &Transition{From: m.index, To: next, FromBook: from, ToBook: to}
		change := Change{Kind: ChangeTransition, From: m.index, To: next}
		subs := m.subscribersLocked()
		m.mu.Unlock()
		notify(subs, change)
		return AdvancePending, nil
	}

	change := m.moveLocked(ctx, next)
	subs := m.subscribersLocked()
	m.mu.Unlock()
	notify(subs, change)
	return AdvanceMoved, nil
}

// ConfirmTransition completes a pending book transition.
func (m *Machine) ConfirmTransition(ctx context.Context) error {
	m.mu.Lock()
	if m.phase != PhaseBookTransition || m.pending == nil {
		m.mu.Unlock()
		return ErrNoPendingTransition
	}
	change := m.moveLocked(ctx, m.pending.To)
	subs := m.subscribersLocked()
	m.mu.Unlock()
	notify(subs, change)
	return nil
}

// Retreat moves to the previous chapter immediately, discarding any
// pending transition.
func (m *Machine) Retreat(ctx context.Context) error {
	m.mu.Lock()
	if m.index == 0 {
		m.mu.Unlock()
		return ErrNoPreviousChapter
	}
	change := m.moveLocked(ctx, m.index-1)
	subs := m.subscribersLocked()
	m.mu.Unlock()
	notify(subs, change)
	return nil
}

// JumpTo selects chapter i directly. Selecting the current chapter only
// discards a pending transition.
func (m *Machine) JumpTo(ctx context.Context, i int) error {
	m.mu.Lock()
	if i < 0 || i >= m.cur.Len() {
		m.mu.Unlock()
		return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, m.cur.Len())
	}
	if !m.navigableLocked(i) {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrChapterLocked, m.cur.IDAt(i))
	}
	if i == m.index {
		m.phase = PhaseChapter
		m.pending = nil
		m.mu.Unlock()
		return nil
	}
	change := m.moveLocked(ctx, i)
	subs := m.subscribersLocked()
	m.mu.Unlock()
	notify(subs, change)
	return nil
}

// MarkComplete records id as completed. It returns false if id was already
// completed, in which case nothing is written.
func (m *Machine) MarkComplete(ctx context.Context, id string) bool {
	m.mu.Lock()
	if _, ok := m.completed[id]; ok {
		m.mu.Unlock()
		return false
	}
	m.completed[id] = struct{}{}
	m.order = append(m.order, id)
	if err := m.prefs.SetCompleted(ctx, m.order); err != nil {
		m.logger.Warn("completed chapters not persisted", "chapter", id, "error", err)
	}
	change := Change{Kind: ChangeCompleted, From: m.index, To: m.index, ChapterID: id}
	subs := m.subscribersLocked()
	m.mu.Unlock()
	notify(subs, change)
	return true
}

// HardReset clears every persisted key and returns to chapter 0 with
// nothing completed. If the store cannot be cleared the in-memory state is
// left untouched.
func (m *Machine) HardReset(ctx context.Context) error {
	m.mu.Lock()
	if err := m.prefs.Reset(ctx); err != nil {
		m.mu.Unlock()
		return err
	}
	change := Change{Kind: ChangeReset, From: m.index, To: 0}
	m.index = 0
	m.completed = map[string]struct{}{}
	m.order = nil
	m.phase = PhaseChapter
	m.pending = nil
	subs := m.subscribersLocked()
	m.mu.Unlock()

	m.logger.Info("progress reset")
	notify(subs, change)
	return nil
}

func (m *Machine) moveLocked(ctx context.Context, to int) Change {
	from := m.index
	m.index = to
	m.phase = PhaseChapter
	m.pending = nil
	if err := m.prefs.SetChapterIndex(ctx, to); err != nil {
		m.logger.Warn("chapter index not persisted", "index", to, "error", err)
	}
	m.logger.Debug("chapter changed", "from", from, "to", to)
	return Change{Kind: ChangeIndex, From: from, To: to, ChapterID: m.cur.IDAt(to)}
}

func (m *Machine) subscribersLocked() []func(Change) {
	ids := make([]int, 0, len(m.subs))
	for id := range m.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]func(Change), len(ids))
	for i, id := range ids {
		out[i] = m.subs[id]
	}
	return out
}

func notify(subs []func(Change), c Change) {
	for _, fn := range subs {
		fn(c)
	}
}
