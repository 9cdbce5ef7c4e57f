package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAttempt_ListNewestFirst(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i, outcome := range []string{"failure", "failure", "success"} {
		require.NoError(t, s.RecordAttempt(ctx, AttemptRecord{
			ID:        "att-" + string(rune('a'+i)),
			ChapterID: "1-0",
			Outcome:   outcome,
			Message:   "m",
			Seq:       int64(i + 1),
			Duration:  1500 * time.Millisecond,
		}))
	}

	records, err := s.ListAttempts(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, int64(3), records[0].Seq)
	assert.Equal(t, "success", records[0].Outcome)
	assert.Equal(t, 1500*time.Millisecond, records[0].Duration)
	assert.False(t, records[0].CreatedAt.IsZero())
}

func TestRecordAttempt_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := AttemptRecord{ID: "att-1", ChapterID: "1-0", Outcome: "success", Seq: 1}
	require.NoError(t, s.RecordAttempt(ctx, rec))
	require.NoError(t, s.RecordAttempt(ctx, rec))

	records, err := s.ListAttempts(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestListAttempts_FilterAndLimit(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordAttempt(ctx, AttemptRecord{ID: "a", ChapterID: "1-0", Outcome: "failure", Seq: 1}))
	require.NoError(t, s.RecordAttempt(ctx, AttemptRecord{ID: "b", ChapterID: "1-1", Outcome: "failure", Seq: 2}))
	require.NoError(t, s.RecordAttempt(ctx, AttemptRecord{ID: "c", ChapterID: "1-1", Outcome: "success", Seq: 3}))

	only, err := s.ListAttempts(ctx, "1-1", 0)
	require.NoError(t, err)
	require.Len(t, only, 2)
	assert.Equal(t, "c", only[0].ID)

	limited, err := s.ListAttempts(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "c", limited[0].ID)
}

func TestLastAttemptSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seq, err := s.LastAttemptSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)

	require.NoError(t, s.RecordAttempt(ctx, AttemptRecord{ID: "a", ChapterID: "1-0", Outcome: "failure", Seq: 7}))
	seq, err = s.LastAttemptSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), seq)
}
