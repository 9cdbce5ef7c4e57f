package progress

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/golem/internal/store"
	"github.com/roach88/golem/internal/testutil"
)

func newMachine(t *testing.T, cur Curriculum) (*Machine, *store.Preferences) {
	t.Helper()
	prefs := store.NewPreferences(store.NewMemory(), nil)
	return New(context.Background(), cur, prefs), prefs
}

func TestNew_Defaults(t *testing.T) {
	m, _ := newMachine(t, testutil.Books(t, 3))
	s := m.Snapshot()
	assert.Equal(t, 0, s.Index)
	assert.Empty(t, s.Completed)
	assert.Equal(t, PhaseChapter, s.Phase)
	assert.Equal(t, "chapter", s.PhaseName)
	assert.Equal(t, 0, m.Stage())
	assert.False(t, m.JourneyComplete())
}

func TestNew_HydratesFromStore(t *testing.T) {
	ctx := context.Background()
	prefs := store.NewPreferences(store.NewMemory(), nil)
	require.NoError(t, prefs.SetChapterIndex(ctx, 2))
	require.NoError(t, prefs.SetCompleted(ctx, []string{"b1-c0", "b1-c1"}))

	m := New(ctx, testutil.Books(t, 3), prefs)
	assert.Equal(t, 2, m.Index())
	assert.Equal(t, []string{"b1-c0", "b1-c1"}, m.Completed())
	assert.Equal(t, 2, m.Stage())
}

func TestNew_OutOfRangeIndexDegradesToZero(t *testing.T) {
	ctx := context.Background()
	prefs := store.NewPreferences(store.NewMemory(), nil)
	require.NoError(t, prefs.SetChapterIndex(ctx, 99))

	m := New(ctx, testutil.Books(t, 3), prefs)
	assert.Equal(t, 0, m.Index())
}

func TestMarkComplete_Idempotent(t *testing.T) {
	ctx := context.Background()
	m, prefs := newMachine(t, testutil.Books(t, 3))

	assert.True(t, m.MarkComplete(ctx, "b1-c0"))
	assert.False(t, m.MarkComplete(ctx, "b1-c0"))
	assert.False(t, m.MarkComplete(ctx, "b1-c0"))

	assert.Equal(t, []string{"b1-c0"}, m.Completed())
	assert.Equal(t, []string{"b1-c0"}, prefs.Completed(ctx), "flushed once, no duplicates")
}

func TestNavigable_Invariant(t *testing.T) {
	ctx := context.Background()
	cur := testutil.Books(t, 3, 3)

	// Every subset of completed chapters over a six-chapter curriculum.
	for mask := 0; mask < 1<<cur.Len(); mask++ {
		m, _ := newMachine(t, cur)
		completed := map[string]bool{}
		for i := 0; i < cur.Len(); i++ {
			if mask&(1<<i) != 0 {
				m.MarkComplete(ctx, cur.IDAt(i))
				completed[cur.IDAt(i)] = true
			}
		}
		for i := 0; i < cur.Len(); i++ {
			want := i == 0 || completed[cur.IDAt(i)] || completed[cur.IDAt(i-1)]
			assert.Equal(t, want, m.Navigable(i), "mask=%b i=%d", mask, i)

			err := m.JumpTo(ctx, i)
			if want {
				assert.NoError(t, err, "mask=%b i=%d", mask, i)
				assert.Equal(t, i, m.Index())
			} else {
				assert.ErrorIs(t, err, ErrChapterLocked, "mask=%b i=%d", mask, i)
			}
		}
	}
}

func TestNavigable_OutOfRange(t *testing.T) {
	m, _ := newMachine(t, testutil.Books(t, 2))
	assert.False(t, m.Navigable(-1))
	assert.False(t, m.Navigable(2))

	assert.ErrorIs(t, m.JumpTo(context.Background(), 5), ErrIndexOutOfRange)
	assert.ErrorIs(t, m.JumpTo(context.Background(), -1), ErrIndexOutOfRange)
}

func TestAdvance_WithinBook(t *testing.T) {
	ctx := context.Background()
	m, prefs := newMachine(t, testutil.Books(t, 3))

	_, err := m.Advance(ctx)
	assert.ErrorIs(t, err, ErrChapterLocked)

	m.MarkComplete(ctx, "b1-c0")
	outcome, err := m.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, AdvanceMoved, outcome)
	assert.Equal(t, 1, m.Index())
	assert.Equal(t, 1, prefs.ChapterIndex(ctx))
}

func TestAdvance_LastChapter(t *testing.T) {
	ctx := context.Background()
	m, _ := newMachine(t, testutil.Books(t, 1))
	m.MarkComplete(ctx, "b1-c0")

	_, err := m.Advance(ctx)
	assert.ErrorIs(t, err, ErrNoNextChapter)
	assert.True(t, m.JourneyComplete())
}

func TestAdvance_BookTransitionRequiresConfirmation(t *testing.T) {
	ctx := context.Background()
	m, prefs := newMachine(t, testutil.Books(t, 1, 2))
	m.MarkComplete(ctx, "b1-c0")

	outcome, err := m.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, AdvancePending, outcome)
	assert.Equal(t, 0, m.Index(), "index does not move until confirmed")
	assert.Equal(t, PhaseBookTransition, m.Phase())
	assert.Equal(t, 0, prefs.ChapterIndex(ctx))

	tr, ok := m.Pending()
	require.True(t, ok)
	assert.Equal(t, Transition{From: 0, To: 1, FromBook: 1, ToBook: 2}, tr)

	_, err = m.Advance(ctx)
	assert.ErrorIs(t, err, ErrTransitionPending)

	require.NoError(t, m.ConfirmTransition(ctx))
	assert.Equal(t, 1, m.Index())
	assert.Equal(t, PhaseChapter, m.Phase())
	assert.Equal(t, 1, prefs.ChapterIndex(ctx))

	assert.ErrorIs(t, m.ConfirmTransition(ctx), ErrNoPendingTransition)
}

func TestRetreat(t *testing.T) {
	ctx := context.Background()
	m, _ := newMachine(t, testutil.Books(t, 1, 2))

	assert.ErrorIs(t, m.Retreat(ctx), ErrNoPreviousChapter)

	m.MarkComplete(ctx, "b1-c0")
	m.MarkComplete(ctx, "b2-c0")
	require.NoError(t, m.JumpTo(ctx, 2))
	require.NoError(t, m.Retreat(ctx))
	assert.Equal(t, 1, m.Index())
}

func TestRetreat_DiscardsPendingTransition(t *testing.T) {
	ctx := context.Background()
	m, _ := newMachine(t, testutil.Books(t, 2, 1))
	m.MarkComplete(ctx, "b1-c0")
	m.MarkComplete(ctx, "b1-c1")
	require.NoError(t, m.JumpTo(ctx, 1))

	outcome, err := m.Advance(ctx)
	require.NoError(t, err)
	require.Equal(t, AdvancePending, outcome)

	require.NoError(t, m.Retreat(ctx))
	assert.Equal(t, 0, m.Index())
	_, pending := m.Pending()
	assert.False(t, pending)
}

func TestJumpTo_CurrentChapterIsNoop(t *testing.T) {
	ctx := context.Background()
	m, _ := newMachine(t, testutil.Books(t, 1, 1))
	m.MarkComplete(ctx, "b1-c0")
	_, err := m.Advance(ctx)
	require.NoError(t, err)

	var changes []Change
	m.Subscribe(func(c Change) { changes = append(changes, c) })

	require.NoError(t, m.JumpTo(ctx, 0))
	assert.Empty(t, changes)
	assert.Equal(t, PhaseChapter, m.Phase())
}

func TestSubscribe_IndexChangesAndUnsubscribe(t *testing.T) {
	ctx := context.Background()
	m, _ := newMachine(t, testutil.Books(t, 3))

	var changes []Change
	unsubscribe := m.Subscribe(func(c Change) {
		// Reading state from a subscriber must not deadlock.
		_ = m.Index()
		changes = append(changes, c)
	})

	m.MarkComplete(ctx, "b1-c0")
	_, err := m.Advance(ctx)
	require.NoError(t, err)
	require.NoError(t, m.Retreat(ctx))

	assert.Equal(t, []Change{
		{Kind: ChangeCompleted, From: 0, To: 0, ChapterID: "b1-c0"},
		{Kind: ChangeIndex, From: 0, To: 1, ChapterID: "b1-c1"},
		{Kind: ChangeIndex, From: 1, To: 0, ChapterID: "b1-c0"},
	}, changes)

	unsubscribe()
	_, err = m.Advance(ctx)
	require.NoError(t, err)
	assert.Len(t, changes, 3)
}

func TestHardReset_Completeness(t *testing.T) {
	ctx := context.Background()
	m, prefs := newMachine(t, testutil.Books(t, 2, 1))
	require.NoError(t, prefs.SetAvatarSeed(ctx, "1234567890123456"))
	require.NoError(t, prefs.SetLocale(ctx, "en"))
	require.NoError(t, prefs.SetIntroSeen(ctx))
	m.MarkComplete(ctx, "b1-c0")
	m.MarkComplete(ctx, "b1-c1")
	_, err := m.Advance(ctx)
	require.NoError(t, err)
	_, err = m.Advance(ctx)
	require.NoError(t, err)
	require.Equal(t, PhaseBookTransition, m.Phase())

	var reset []Change
	m.Subscribe(func(c Change) { reset = append(reset, c) })

	require.NoError(t, m.HardReset(ctx))

	assert.Equal(t, 0, m.Index())
	assert.Empty(t, m.Completed())
	assert.Equal(t, PhaseChapter, m.Phase())
	assert.Equal(t, []Change{{Kind: ChangeReset, From: 1, To: 0}}, reset)

	assert.Equal(t, 0, prefs.ChapterIndex(ctx))
	assert.Equal(t, []string{}, prefs.Completed(ctx))
	_, hasSeed := prefs.AvatarSeed(ctx)
	assert.False(t, hasSeed)
	assert.Equal(t, store.DefaultLocale, prefs.Locale(ctx))
	assert.False(t, prefs.IntroSeen(ctx))
	for _, key := range store.CoreKeys {
		_, ok, err := prefs.KV().Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok, "key %s survived reset", key)
	}
}

// brokenKV fails every operation.
type brokenKV struct{ store.KV }

func (brokenKV) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("io")
}
func (brokenKV) Set(context.Context, string, string) error { return errors.New("io") }
func (brokenKV) Remove(context.Context, string) error      { return errors.New("io") }
func (brokenKV) Clear(context.Context) error               { return errors.New("io") }

func TestMachine_SurvivesBrokenStore(t *testing.T) {
	ctx := context.Background()
	m := New(ctx, testutil.Books(t, 2), store.NewPreferences(brokenKV{}, nil))

	assert.Equal(t, 0, m.Index())
	assert.True(t, m.MarkComplete(ctx, "b1-c0"))
	_, err := m.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Index(), "in-memory state stays authoritative")

	assert.Error(t, m.HardReset(ctx))
	assert.Equal(t, 1, m.Index(), "failed reset leaves state untouched")
}
