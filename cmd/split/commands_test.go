package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-split-must-flow/internal/engine"
	"github.com/Veraticus/the-split-must-flow/internal/model"
	"github.com/Veraticus/the-split-must-flow/internal/report"
	"github.com/Veraticus/the-split-must-flow/internal/service"
	"github.com/Veraticus/the-split-must-flow/internal/storage"
	"github.com/Veraticus/the-split-must-flow/internal/testutil"
	"github.com/Veraticus/the-split-must-flow/internal/testutil/corpus"
	"github.com/Veraticus/the-split-must-flow/internal/tui"
)

func cafeDB(t *testing.T) (*testutil.TestDB, *engine.Engine) {
	t.Helper()
	db := testutil.SetupTestDBWithBuilder(t, func(b *corpus.Builder) *corpus.Builder {
		return b.WithFixture(corpus.FixtureCafe)
	})
	eng := engine.New(engine.DefaultConfig())
	require.NoError(t, eng.Fit(db.MustCorpus()))
	return db, eng
}

func TestImportTransactions(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t, nil)
	txns := corpus.NewBuilder(t).WithFixture(corpus.FixturePyeongchon).Transactions()

	inserted, err := importTransactions(ctx, db.Storage, txns, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, len(txns), inserted)

	inserted, err = importTransactions(ctx, db.Storage, txns, io.Discard)
	require.NoError(t, err)
	assert.Zero(t, inserted, "second import only finds known rows")

	count, err := db.Storage.CountTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(txns), count)

	inserted, err = importTransactions(ctx, db.Storage, nil, io.Discard)
	require.NoError(t, err)
	assert.Zero(t, inserted)
}

func TestRecommendAndRender(t *testing.T) {
	ctx := context.Background()
	db, eng := cafeDB(t)
	q := model.Query{Place: "Cafe X", Hour: 18, Amount: 10200, K: 2}

	t.Run("json", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, recommendAndRender(ctx, db.Storage, eng, q, recommendOptions{asJSON: true}, &out))

		var rec model.Recommendation
		require.NoError(t, json.Unmarshal(out.Bytes(), &rec))
		assert.NotContains(t, out.String(), report.ScenarioKey(q), "single result is not keyed")
		assert.NotEmpty(t, rec.Explanation)
		require.NotEmpty(t, rec.RecommendedParticipants)
		assert.Equal(t, "Alice", rec.RecommendedParticipants[0])
		assert.Len(t, rec.SimilarTransactions, 2)
	})

	t.Run("rendered and saved", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, recommendAndRender(ctx, db.Storage, eng, q, recommendOptions{save: true}, &out))
		assert.Contains(t, out.String(), "Alice")
		assert.Contains(t, out.String(), "Saved as")

		runs, err := db.Storage.ListRecommendations(ctx, 10)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, q.Place, runs[0].Query.Place)
	})

	t.Run("invalid query", func(t *testing.T) {
		bad := model.Query{Place: "Cafe X", Hour: 24, Amount: 100}
		err := recommendAndRender(ctx, db.Storage, eng, bad, recommendOptions{}, io.Discard)
		require.Error(t, err)
	})
}

func TestRunBatch(t *testing.T) {
	ctx := context.Background()
	db, eng := cafeDB(t)

	queries := []model.Query{
		{Place: "Cafe X", Hour: 18, Amount: 10200},
		{Place: "Pizza Place", Hour: 20, Amount: 30000},
		{Place: "Cafe X", Hour: 18, Amount: 10200},
	}

	results, err := runBatch(ctx, db.Storage, eng, queries, true, io.Discard)
	require.NoError(t, err)
	assert.Len(t, results, 2, "duplicate queries share a key")

	runs, err := db.Storage.ListRecommendations(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 3, "every query is recorded")

	empty, err := runBatch(ctx, db.Storage, eng, nil, false, io.Discard)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = runBatch(cancelled, db.Storage, eng, queries, false, io.Discard)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunBatch_NeighbourCountKeys(t *testing.T) {
	ctx := context.Background()
	db, eng := cafeDB(t)

	narrow := model.Query{Place: "Cafe X", Hour: 18, Amount: 10200, K: 1}
	wide := model.Query{Place: "Cafe X", Hour: 18, Amount: 10200, K: 2}

	results, err := runBatch(ctx, db.Storage, eng, []model.Query{narrow, wide}, false, io.Discard)
	require.NoError(t, err)
	require.Len(t, results, 2, "queries differing only in k keep both answers")

	assert.Len(t, results[report.ScenarioKey(narrow)].SimilarTransactions, 1)
	assert.Len(t, results[report.ScenarioKey(wide)].SimilarTransactions, 2)
}

func TestRunBatch_DefaultScenarios(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDBWithBuilder(t, func(b *corpus.Builder) *corpus.Builder {
		return b.WithFixture(corpus.FixturePyeongchon)
	})
	eng := engine.New(engine.DefaultConfig())
	require.NoError(t, eng.Fit(db.MustCorpus()))

	results, err := runBatch(ctx, db.Storage, eng, report.DefaultScenarios, false, io.Discard)
	require.NoError(t, err)
	assert.Len(t, results, len(report.DefaultScenarios))

	galbi := results[report.ScenarioKey(report.DefaultScenarios[0])]
	require.NotNil(t, galbi)
	assert.Contains(t, galbi.RecommendedParticipants, "조세현")
}

func TestSuggestPayments(t *testing.T) {
	ctx := context.Background()
	db, eng := cafeDB(t)

	payments := []model.Payment{
		{ID: "p1", Name: "CAFE X #12", Place: "Cafe X", Date: corpus.BaseDate.Add(18 * time.Hour), Amount: 9800},
		{ID: "p2", Name: "PIZZA", Place: "Pizza Place", Date: corpus.BaseDate.Add(20 * time.Hour), Amount: 30000},
	}

	t.Run("print only", func(t *testing.T) {
		var out bytes.Buffer
		recorded, err := suggestPayments(ctx, db.Storage, eng, payments, 2, nil, &out)
		require.NoError(t, err)
		assert.Zero(t, recorded)
		assert.Contains(t, out.String(), "CAFE X #12")
		assert.Contains(t, out.String(), "PIZZA")
	})

	t.Run("interactive", func(t *testing.T) {
		var titles []string
		pick := func(_ context.Context, title string, rec *model.Recommendation, known []string) ([]string, error) {
			titles = append(titles, title)
			if len(titles) == 2 {
				return nil, tui.ErrCancelled
			}
			assert.Contains(t, known, "Carol")
			return rec.RecommendedParticipants[:1], nil
		}

		recorded, err := suggestPayments(ctx, db.Storage, eng, payments, 2, pick, io.Discard)
		require.NoError(t, err)
		assert.Equal(t, 1, recorded)
		assert.Equal(t, []string{"Who shared Cafe X?", "Who shared Pizza Place?"}, titles)

		stored, err := db.Storage.GetTransactions(ctx, service.TransactionFilter{Place: "Cafe X"})
		require.NoError(t, err)
		require.Len(t, stored, 3)
		assert.Equal(t, []string{"Alice"}, stored[2].Participants)
		assert.Equal(t, int64(9800), stored[2].Amount)
	})

	t.Run("pick failure", func(t *testing.T) {
		boom := errors.New("terminal gone")
		pick := func(context.Context, string, *model.Recommendation, []string) ([]string, error) {
			return nil, boom
		}
		_, err := suggestPayments(ctx, db.Storage, eng, payments[:1], 2, pick, io.Discard)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("no payments", func(t *testing.T) {
		var out bytes.Buffer
		recorded, err := suggestPayments(ctx, db.Storage, eng, nil, 0, nil, &out)
		require.NoError(t, err)
		assert.Zero(t, recorded)
		assert.Contains(t, out.String(), "No payments found")
	})
}

func TestSettlementTime(t *testing.T) {
	now := time.Date(2024, 8, 1, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		want    time.Time
		name    string
		date    string
		hour    int
		wantErr bool
	}{
		{name: "today", hour: 19, want: time.Date(2024, 8, 1, 19, 0, 0, 0, time.UTC)},
		{name: "given date", date: "2024-07-12", hour: 18, want: time.Date(2024, 7, 12, 18, 0, 0, 0, time.UTC)},
		{name: "bad date", date: "12/07/2024", hour: 18, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := settlementTime(tt.date, tt.hour, now)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestRecordSettlement(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t, nil)
	when := corpus.BaseDate.Add(19 * time.Hour)

	added, err := recordSettlement(ctx, db.Storage, "평촌쪽갈비", when, 70000, []string{"조세현", "김채희"})
	require.NoError(t, err)
	assert.True(t, added)

	added, err = recordSettlement(ctx, db.Storage, "평촌쪽갈비", when, 70000, []string{"조세현", "김채희"})
	require.NoError(t, err)
	assert.False(t, added, "identical settlement is not stored twice")

	_, err = recordSettlement(ctx, db.Storage, "평촌쪽갈비", when, 70000, nil)
	require.Error(t, err)
}

func TestListSettlementsAndShowRun(t *testing.T) {
	ctx := context.Background()
	db, eng := cafeDB(t)

	var out bytes.Buffer
	require.NoError(t, listSettlements(ctx, db.Storage, service.TransactionFilter{Participant: "Carol"}, &out))
	assert.Contains(t, out.String(), "Carol")

	out.Reset()
	require.NoError(t, listSettlements(ctx, db.Storage, service.TransactionFilter{Place: "Nowhere"}, &out))
	assert.Contains(t, out.String(), "No settlements found")

	q := model.Query{Place: "Cafe X", Hour: 18, Amount: 10200}
	rec, err := eng.Recommend(q)
	require.NoError(t, err)
	id, err := db.Storage.SaveRecommendation(ctx, report.ScenarioKey(q), q, rec)
	require.NoError(t, err)

	out.Reset()
	require.NoError(t, showRun(ctx, db.Storage, id, &out))
	results, err := report.ReadRecommendations(&out)
	require.NoError(t, err)
	assert.Equal(t, rec.RecommendedParticipants, results[report.ScenarioKey(q)].RecommendedParticipants)

	assert.Error(t, showRun(ctx, db.Storage, "missing", io.Discard))
}

func TestMigrate(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	var out bytes.Buffer
	require.NoError(t, migrate(ctx, store, true, &out))
	assert.Contains(t, out.String(), "Current version: 0")

	out.Reset()
	require.NoError(t, migrate(ctx, store, false, &out))
	assert.Contains(t, out.String(), "from version 0 to")

	out.Reset()
	require.NoError(t, migrate(ctx, store, false, &out))
	assert.Contains(t, out.String(), "already at version")
}
