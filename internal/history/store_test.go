package history

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// TestRecordAndGetBuild round-trips one build summary.
func TestRecordAndGetBuild(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	started := time.Now().Add(-time.Minute).Truncate(time.Millisecond)
	rec := BuildRecord{
		ID:       "b-1",
		Project:  "docs",
		Ref:      "main",
		Commit:   "abc123",
		Outcome:  "success",
		Started:  started,
		Duration: 42 * time.Second,
	}
	require.NoError(t, store.RecordBuild(ctx, rec))

	got, err := store.GetBuild(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.Project, got.Project)
	assert.Equal(t, rec.Ref, got.Ref)
	assert.Equal(t, rec.Commit, got.Commit)
	assert.Equal(t, "success", got.Outcome)
	assert.Equal(t, started.UnixMilli(), got.Started.UnixMilli())
	assert.Equal(t, 42*time.Second, got.Duration)
}

// TestGetBuildNotFound returns the sentinel error.
func TestGetBuildNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetBuild(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrBuildNotFound)
}

// TestListBuildsNewestFirst orders by start time and honors the limit.
func TestListBuildsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"b-old", "b-mid", "b-new"} {
		require.NoError(t, store.RecordBuild(ctx, BuildRecord{
			ID:      id,
			Project: "docs",
			Outcome: "success",
			Started: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := store.ListBuilds(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "b-new", all[0].ID)
	assert.Equal(t, "b-old", all[2].ID)

	limited, err := store.ListBuilds(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "b-new", limited[0].ID)
}

// TestAppendAndReadEvents preserves order, payloads and metadata.
func TestAppendAndReadEvents(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendEvent(ctx, "b-1", EventBuildStarted, nil, map[string]string{"project": "docs"}))
	payload, _ := json.Marshal(stageCompletedPayload{Stage: "checkout", Outcome: "success"})
	require.NoError(t, store.AppendEvent(ctx, "b-1", EventStageCompleted, payload, nil))
	require.NoError(t, store.AppendEvent(ctx, "b-2", EventBuildStarted, nil, nil))

	events, err := store.Events(ctx, "b-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventBuildStarted, events[0].Type)
	assert.Equal(t, "docs", events[0].Metadata["project"])
	assert.Equal(t, EventStageCompleted, events[1].Type)
	assert.JSONEq(t, string(payload), string(events[1].Payload))
}

// TestPrune removes old builds and their events.
func TestPrune(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, store.RecordBuild(ctx, BuildRecord{ID: "b-old", Project: "p", Outcome: "failed", Started: old}))
	require.NoError(t, store.RecordBuild(ctx, BuildRecord{ID: "b-new", Project: "p", Outcome: "success", Started: time.Now()}))
	require.NoError(t, store.AppendEvent(ctx, "b-old", EventBuildStarted, nil, nil))

	n, err := store.Prune(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = store.GetBuild(ctx, "b-old")
	assert.ErrorIs(t, err, ErrBuildNotFound)
	events, err := store.Events(ctx, "b-old")
	require.NoError(t, err)
	assert.Empty(t, events)

	_, err = store.GetBuild(ctx, "b-new")
	assert.NoError(t, err)
}

// TestSummarize reduces an event stream to its summary.
func TestSummarize(t *testing.T) {
	started := time.Now().Add(-time.Minute)
	finished := time.Now()

	stagePayload, _ := json.Marshal(stageCompletedPayload{Stage: "checkout", Outcome: "success"})
	failPayload, _ := json.Marshal(stageCompletedPayload{Stage: "build", Outcome: "failed", Error: "exit 2"})
	donePayload, _ := json.Marshal(buildFinishedPayload{Outcome: "failed", Error: "exit 2"})

	events := []Event{
		{Type: EventBuildStarted, Timestamp: started, Metadata: map[string]string{"project": "docs"}},
		{Type: EventStageCompleted, Payload: stagePayload},
		{Type: EventStageCompleted, Payload: failPayload},
		{Type: EventBuildFinished, Timestamp: finished, Payload: donePayload},
	}

	sum := Summarize("b-1", events)
	assert.Equal(t, StatusDone, sum.Status)
	assert.Equal(t, "failed", sum.Outcome)
	assert.Equal(t, "docs", sum.Project)
	assert.Equal(t, []string{"checkout", "build"}, sum.StagesDone)
	assert.Equal(t, "build", sum.ErrorStage)
	assert.Equal(t, "exit 2", sum.ErrorMessage)
	require.NotNil(t, sum.CompletedAt)
}

// TestSummarizeEmpty is pending.
func TestSummarizeEmpty(t *testing.T) {
	sum := Summarize("b-x", nil)
	assert.Equal(t, StatusPending, sum.Status)
}
