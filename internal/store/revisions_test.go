package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/mermaidsync/internal/diagram"
	"github.com/rendis/mermaidsync/pkg/schema"
)

func newTestRevisionLog(t *testing.T) (*RevisionLog, *LibSQLStore) {
	t.Helper()
	s := newTestStore(t)
	return NewRevisionLog(s), s
}

func TestRevisionLog_MonotonicSequence(t *testing.T) {
	rl, s := newTestRevisionLog(t)
	ctx := context.Background()
	rec := seedDocument(t, s, "seq")

	for i := 0; i < 5; i++ {
		wrote, err := rl.Record(ctx, rec.ID, diagram.TypeFlowchart, fmt.Sprintf("flowchart TD\n    N%d", i), "edit")
		require.NoError(t, err)
		assert.True(t, wrote)
	}

	revs, err := rl.History(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, revs, 5)
	for i, r := range revs {
		assert.Equal(t, int64(i+1), r.Sequence, "sequence should be monotonic")
	}
}

func TestRevisionLog_SkipsUnchangedSource(t *testing.T) {
	rl, s := newTestRevisionLog(t)
	ctx := context.Background()
	rec := seedDocument(t, s, "dedupe")

	wrote, err := rl.Record(ctx, rec.ID, diagram.TypeFlowchart, "flowchart TD", "save")
	require.NoError(t, err)
	assert.True(t, wrote)

	wrote, err = rl.Record(ctx, rec.ID, diagram.TypeFlowchart, "flowchart TD", "autosave")
	require.NoError(t, err)
	assert.False(t, wrote)

	wrote, err = rl.Record(ctx, rec.ID, diagram.TypeSequence, "flowchart TD", "switch")
	require.NoError(t, err)
	assert.True(t, wrote, "a type change is a new revision")
}

func TestRevisionLog_LatestAndAt(t *testing.T) {
	rl, s := newTestRevisionLog(t)
	ctx := context.Background()
	rec := seedDocument(t, s, "latest")

	_, err := rl.Latest(ctx, rec.ID)
	assert.True(t, schema.HasCode(err, schema.ErrCodeNotFound))

	for _, src := range []string{"one", "two", "three"} {
		_, err := rl.Record(ctx, rec.ID, diagram.TypeFlowchart, src, "")
		require.NoError(t, err)
	}

	latest, err := rl.Latest(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "three", latest.Source)

	second, err := rl.At(ctx, rec.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, "two", second.Source)

	_, err = rl.At(ctx, rec.ID, 9)
	assert.True(t, schema.HasCode(err, schema.ErrCodeNotFound))
}

func TestRevisionLog_DetectsGap(t *testing.T) {
	rl, s := newTestRevisionLog(t)
	ctx := context.Background()
	rec := seedDocument(t, s, "gap")

	for _, src := range []string{"a", "b", "c"} {
		_, err := rl.Record(ctx, rec.ID, diagram.TypeFlowchart, src, "")
		require.NoError(t, err)
	}
	_, err := s.DB().ExecContext(ctx, `DELETE FROM revisions WHERE document_id = ? AND sequence = 2`, rec.ID)
	require.NoError(t, err)

	_, err = rl.History(ctx, rec.ID)
	require.Error(t, err)
	assert.True(t, schema.HasCode(err, schema.ErrCodeStore))
	assert.Contains(t, err.Error(), "expected 2, got 3")
}

func TestRevisionLog_ConcurrentAppends(t *testing.T) {
	rl, s := newTestRevisionLog(t)
	ctx := context.Background()
	rec := seedDocument(t, s, "concurrent")

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.AppendRevision(ctx, &Revision{DocumentID: rec.ID, DiagramType: diagram.TypeFlowchart, Source: fmt.Sprintf("v%d", i)})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	revs, err := rl.History(ctx, rec.ID)
	require.NoError(t, err)
	assert.Len(t, revs, 10)
}
