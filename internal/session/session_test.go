package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"

	"github.com/roach88/golem/internal/content"
	"github.com/roach88/golem/internal/engine"
	"github.com/roach88/golem/internal/progress"
	"github.com/roach88/golem/internal/sandbox"
	"github.com/roach88/golem/internal/store"
	"github.com/roach88/golem/internal/testutil"
)

func open(t *testing.T, prefs *store.Preferences, hostOpts ...sandbox.Option) *Session {
	t.Helper()
	return openCurriculum(t, content.MustBuiltin(), prefs, hostOpts...)
}

func openCurriculum(t *testing.T, cur *content.Curriculum, prefs *store.Preferences, hostOpts ...sandbox.Option) *Session {
	t.Helper()
	if prefs == nil {
		prefs = store.NewPreferences(store.NewMemory(), nil)
	}
	s, err := Open(context.Background(), Options{
		Curriculum: cur,
		Prefs:      prefs,
		Host:       sandbox.New(hostOpts...),
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestOpen_LoadsStarterCode(t *testing.T) {
	s := open(t, nil)

	assert.Equal(t, sandbox.StateReady, s.HostState())
	assert.NoError(t, s.HostError())
	assert.Equal(t, "es", s.Locale().String())
	assert.Equal(t, "despertar", s.Chapter().ID)
	assert.Equal(t, s.Chapter().InitialCode, s.Buffer())
	assert.True(t, s.NeedsIntro(context.Background()))
}

func TestOpen_RequiresCurriculumAndPrefs(t *testing.T) {
	_, err := Open(context.Background(), Options{Prefs: store.NewPreferences(store.NewMemory(), nil)})
	assert.Error(t, err)
	_, err = Open(context.Background(), Options{Curriculum: content.MustBuiltin()})
	assert.Error(t, err)
}

func TestOpen_HydratesLocaleAndIndex(t *testing.T) {
	ctx := context.Background()
	prefs := store.NewPreferences(store.NewMemory(), nil)
	require.NoError(t, prefs.SetLocale(ctx, "en-GB"))
	require.NoError(t, prefs.SetChapterIndex(ctx, 1))
	require.NoError(t, prefs.SetCompleted(ctx, []string{"despertar"}))

	s := open(t, prefs)
	assert.Equal(t, "en", s.Locale().String())
	assert.Equal(t, "energia", s.Chapter().ID)
	assert.Equal(t, "Vital Energy", s.Chapter().Title)
	assert.False(t, s.NeedsIntro(ctx), "not on the first chapter")
}

func TestOpen_HostFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	calls := 0
	s := open(t, nil, sandbox.WithPrelude(sandbox.Prelude{
		Name: "flaky",
		Load: func(context.Context) (starlark.StringDict, error) {
			calls++
			if calls == 1 {
				return nil, errors.New("network down")
			}
			return starlark.StringDict{}, nil
		},
	}))

	assert.Equal(t, sandbox.StateFailed, s.HostState())
	assert.True(t, sandbox.IsInitializationError(s.HostError()))
	assert.NotEmpty(t, s.Snapshot().HostError)

	_, err := s.Run(ctx)
	assert.ErrorIs(t, err, sandbox.ErrNotReady)

	require.NoError(t, s.RetryHost(ctx))
	assert.Equal(t, sandbox.StateReady, s.HostState())
}

func TestRun_FailureThenSuccessThenContinue(t *testing.T) {
	ctx := context.Background()
	s := open(t, nil)

	res, err := s.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.OutcomeFailure, res.Outcome)
	assert.Equal(t, StatusError, s.Status())
	assert.False(t, s.SuccessPending())
	assert.ErrorIs(t, s.Continue(), ErrNoSuccessPending)

	s.SetBuffer(`nombre = "Barro"`)
	res, err = s.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.OutcomeSuccess, res.Outcome)
	assert.True(t, s.SuccessPending())
	assert.Equal(t, StatusNone, s.Status(), "banner waits for Continue")
	assert.True(t, s.Machine().IsCompleted("despertar"))

	out := s.Output()
	require.NotEmpty(t, out)
	assert.Equal(t, engine.SuccessPrefix+"El golem abre los ojos. Se llama Barro.", out[len(out)-1].Text)

	require.NoError(t, s.Continue())
	assert.Equal(t, StatusSuccess, s.Status())
	assert.False(t, s.SuccessPending())
}

func TestNavigation_ResetsChapterState(t *testing.T) {
	ctx := context.Background()
	s := open(t, nil)

	_, err := s.Next(ctx)
	assert.ErrorIs(t, err, progress.ErrChapterLocked)

	s.Solve()
	_, err = s.Run(ctx)
	require.NoError(t, err)
	_, err = s.RevealHint()
	require.NoError(t, err)

	outcome, err := s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, progress.AdvanceMoved, outcome)
	assert.Equal(t, "energia", s.Chapter().ID)
	assert.Equal(t, s.Chapter().InitialCode, s.Buffer())
	assert.Empty(t, s.Hints())
	assert.False(t, s.SuccessPending())
	assert.Empty(t, s.Output())

	require.NoError(t, s.Prev(ctx))
	assert.Equal(t, "despertar", s.Chapter().ID)

	require.NoError(t, s.Select(ctx, 1))
	assert.Equal(t, "energia", s.Chapter().ID)
	assert.ErrorIs(t, s.Select(ctx, 3), progress.ErrChapterLocked)
}

func TestNavigation_BookTransition(t *testing.T) {
	ctx := context.Background()
	prefs := store.NewPreferences(store.NewMemory(), nil)
	require.NoError(t, prefs.SetChapterIndex(ctx, 2))
	require.NoError(t, prefs.SetCompleted(ctx, []string{"despertar", "energia", "runas"}))
	s := open(t, prefs)

	outcome, err := s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, progress.AdvancePending, outcome)
	assert.Equal(t, "runas", s.Chapter().ID)
	assert.Equal(t, "book_transition", s.Snapshot().Progress.PhaseName)

	require.NoError(t, s.ConfirmBook(ctx))
	assert.Equal(t, "amplificar", s.Chapter().ID)
	assert.Equal(t, 2, s.Snapshot().Book)
}

func TestNavigation_RefusedWhileAttemptRuns(t *testing.T) {
	ctx := context.Background()
	started, release := make(chan struct{}), make(chan struct{})
	wait := starlark.NewBuiltin("wait", func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
		close(started)
		<-release
		return starlark.None, nil
	})
	s := openCurriculum(t, testutil.Books(t, 1, 1), nil, sandbox.WithPrelude(sandbox.Prelude{
		Name:    "gate",
		Modules: starlark.StringDict{"wait": wait},
	}))

	s.SetBuffer("wait()\nx = 42\n")
	done := make(chan engine.Result, 1)
	go func() {
		res, err := s.Run(ctx)
		assert.NoError(t, err)
		done <- res
	}()
	<-started

	_, err := s.Next(ctx)
	assert.ErrorIs(t, err, engine.ErrBusy)
	assert.ErrorIs(t, s.Prev(ctx), engine.ErrBusy)
	assert.ErrorIs(t, s.Select(ctx, 0), engine.ErrBusy)
	assert.ErrorIs(t, s.ConfirmBook(ctx), engine.ErrBusy)
	assert.ErrorIs(t, s.HardReset(ctx), engine.ErrBusy)

	close(release)
	res := <-done
	assert.Equal(t, engine.OutcomeSuccess, res.Outcome)
	assert.True(t, s.Machine().IsCompleted("b1-c0"))

	outcome, err := s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, progress.AdvancePending, outcome)
	require.NoError(t, s.ConfirmBook(ctx))
	assert.Equal(t, "b2-c0", s.Chapter().ID)
	assert.Equal(t, "x = 41\n", s.Buffer())
}

func TestRevealHint(t *testing.T) {
	s := open(t, nil)
	total := len(s.Chapter().Hints)
	require.NotZero(t, total)

	for i := 0; i < total; i++ {
		hint, err := s.RevealHint()
		require.NoError(t, err)
		assert.Equal(t, s.Chapter().Hints[i], hint)
	}
	_, err := s.RevealHint()
	assert.ErrorIs(t, err, ErrNoMoreHints)
	assert.Equal(t, s.Chapter().Hints, s.Hints())

	snap := s.Snapshot()
	assert.Equal(t, total, snap.HintsShown)
	assert.Equal(t, total, snap.HintsTotal)
}

func TestSetLocale_ReloadsStarterCode(t *testing.T) {
	ctx := context.Background()
	prefs := store.NewPreferences(store.NewMemory(), nil)
	s := open(t, prefs)
	s.SetBuffer("nombre = 1")
	_, err := s.RevealHint()
	require.NoError(t, err)

	tag, err := s.SetLocale(ctx, "en-US")
	require.NoError(t, err)
	assert.Equal(t, "en", tag.String())
	assert.Equal(t, "en", prefs.Locale(ctx))
	assert.Equal(t, "The Awakening", s.Chapter().Title)
	assert.Contains(t, s.Buffer(), "Give your golem a name")
	assert.Empty(t, s.Hints())

	tag, err = s.SetLocale(ctx, "xx")
	require.NoError(t, err)
	assert.Equal(t, "es", tag.String(), "unsupported locales fall back")
}

func TestIntro(t *testing.T) {
	ctx := context.Background()
	s := open(t, nil)
	assert.True(t, s.NeedsIntro(ctx))
	require.NoError(t, s.MarkIntroSeen(ctx))
	assert.False(t, s.NeedsIntro(ctx))
}

func TestAvatar(t *testing.T) {
	ctx := context.Background()
	s := open(t, nil)

	_, ok := s.AvatarSeed(ctx)
	assert.False(t, ok)

	seed, err := s.ForgeAvatar(ctx, "")
	require.NoError(t, err)
	assert.NoError(t, ValidateSeed(seed))
	stored, ok := s.AvatarSeed(ctx)
	require.True(t, ok)
	assert.Equal(t, seed, stored)

	_, err = s.ForgeAvatar(ctx, "12ab")
	assert.Error(t, err)

	seed, err = s.ForgeAvatar(ctx, "0000111122223333")
	require.NoError(t, err)
	assert.Equal(t, "0000111122223333", seed)

	require.NoError(t, s.AbandonAvatar(ctx))
	_, ok = s.AvatarSeed(ctx)
	assert.False(t, ok)
}

func TestValidateSeed(t *testing.T) {
	assert.NoError(t, ValidateSeed("1234567890123456"))
	assert.Error(t, ValidateSeed("123"))
	assert.Error(t, ValidateSeed("12345678901234567"))
	assert.Error(t, ValidateSeed("123456789012345x"))
	assert.Len(t, NewSeed(), SeedLength)
}

func TestHardReset(t *testing.T) {
	ctx := context.Background()
	prefs := store.NewPreferences(store.NewMemory(), nil)
	s := open(t, prefs)
	_, err := s.SetLocale(ctx, "en")
	require.NoError(t, err)
	require.NoError(t, s.MarkIntroSeen(ctx))
	s.Solve()
	_, err = s.Run(ctx)
	require.NoError(t, err)
	_, err = s.Next(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Host().Execute(ctx, "<learner>", "leftover = 1"))
	before := s.Host().Initializations()

	require.NoError(t, s.HardReset(ctx))

	assert.Equal(t, 0, s.Machine().Index())
	assert.Empty(t, s.Machine().Completed())
	assert.Equal(t, "es", s.Locale().String())
	assert.Equal(t, s.Chapter().InitialCode, s.Buffer())
	assert.True(t, s.NeedsIntro(ctx))
	assert.Empty(t, s.Output())
	assert.Equal(t, sandbox.StateReady, s.HostState())
	assert.Equal(t, before+1, s.Host().Initializations())

	_, err = s.Host().Evaluate(ctx, "leftover")
	assert.Error(t, err, "namespace discarded")
}
