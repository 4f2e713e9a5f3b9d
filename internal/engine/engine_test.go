package engine

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-split-must-flow/internal/common"
	"github.com/Veraticus/the-split-must-flow/internal/features"
	"github.com/Veraticus/the-split-must-flow/internal/model"
	"github.com/Veraticus/the-split-must-flow/internal/recommend"
)

func settlement(place string, hour int, amount int64, participants ...string) model.Transaction {
	return model.Transaction{
		Place:        place,
		DateTime:     time.Date(2024, 7, 12, hour, 0, 0, 0, time.UTC),
		Amount:       amount,
		Participants: participants,
	}
}

func cafeCorpus() []model.Transaction {
	return []model.Transaction{
		settlement("Cafe X", 18, 10000, "Alice", "Bob"),
		settlement("Cafe X", 18, 10500, "Alice", "Carol"),
	}
}

func TestRecommend_CafeScenario(t *testing.T) {
	eng := New(DefaultConfig())
	require.NoError(t, eng.Fit(cafeCorpus()))

	rec, err := eng.Recommend(model.Query{Place: "Cafe X", Hour: 18, Amount: 10200, K: 2})
	require.NoError(t, err)

	require.Len(t, rec.SimilarTransactions, 2)
	first, second := rec.SimilarTransactions[0], rec.SimilarTransactions[1]
	assert.Equal(t, int64(10000), first.Amount, "smaller amount delta ranks first")
	assert.Equal(t, int64(10500), second.Amount)
	assert.Less(t, first.Distance, second.Distance)
	assert.InDelta(t, 0.64, first.Distance, 1e-9)
	assert.InDelta(t, 1.44, second.Distance, 1e-9)

	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, rec.RecommendedParticipants)
	alice := rec.ConfidenceScores["Alice"]
	assert.InDelta(t, first.Similarity+second.Similarity, alice, 1e-12)
	assert.Greater(t, alice, rec.ConfidenceScores["Bob"])
	assert.Greater(t, alice, rec.ConfidenceScores["Carol"])
	assert.Equal(t, "Recommended from past settlements at 'Cafe X'.", rec.Explanation)
}

func TestRecommend_TieBreakKeepsCorpusOrder(t *testing.T) {
	corpus := []model.Transaction{
		settlement("Noodle Bar", 12, 8000, "Dana"),
		settlement("Noodle Bar", 12, 8000, "Eli"),
		settlement("Steak House", 21, 90000, "Finn"),
	}
	eng := New(DefaultConfig())
	require.NoError(t, eng.Fit(corpus))

	neighbors, err := eng.Neighbors(model.Query{Place: "Noodle Bar", Hour: 12, Amount: 8000, K: 3})
	require.NoError(t, err)
	require.Len(t, neighbors, 3)
	assert.Equal(t, neighbors[0].SquaredDistance, neighbors[1].SquaredDistance)
	assert.Equal(t, 0, neighbors[0].Position)
	assert.Equal(t, 1, neighbors[1].Position)

	rec, err := eng.Recommend(model.Query{Place: "Noodle Bar", Hour: 12, Amount: 8000, K: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"Dana", "Eli"}, rec.RecommendedParticipants)
}

func TestRecommend_EmptyCorpus(t *testing.T) {
	eng := New(DefaultConfig())
	require.NoError(t, eng.Fit(nil))
	assert.Equal(t, StateQueryable, eng.State())

	for _, q := range []model.Query{
		{Place: "A", Hour: 0, Amount: 0, K: 3},
		{Place: "Z", Hour: 23, Amount: 99999, K: 1},
	} {
		rec, err := eng.Recommend(q)
		require.NoError(t, err)
		assert.Empty(t, rec.RecommendedParticipants)
		assert.Empty(t, rec.SimilarTransactions)
		assert.Empty(t, rec.ConfidenceScores)
		assert.Equal(t, recommend.DefaultNoHistory, rec.Explanation)
	}
}

func TestRecommend_KBound(t *testing.T) {
	corpus := []model.Transaction{
		settlement("Pyeongchon Galbi", 19, 70000, "Sehyun", "Chaehee"),
		settlement("McDonalds Pyeongchon", 20, 30000, "Minsu"),
		settlement("Starbucks Beomgye", 18, 15000, "Jihyun", "Minsu"),
		settlement("Kyochon Chicken", 19, 40000, "Sehyun"),
	}
	eng := New(DefaultConfig())
	require.NoError(t, eng.Fit(corpus))

	for k := 1; k <= 6; k++ {
		neighbors, err := eng.Neighbors(model.Query{Place: "Pyeongchon", Hour: 19, Amount: 50000, K: k})
		require.NoError(t, err)
		assert.Len(t, neighbors, min(k, len(corpus)))
		for i := 1; i < len(neighbors); i++ {
			assert.LessOrEqual(t, neighbors[i-1].SquaredDistance, neighbors[i].SquaredDistance)
		}
	}
}

func TestRecommend_DefaultK(t *testing.T) {
	corpus := []model.Transaction{
		settlement("A Place", 1, 1, "a"),
		settlement("B Place", 2, 2, "b"),
		settlement("C Place", 3, 3, "c"),
		settlement("D Place", 4, 4, "d"),
	}

	eng := New(DefaultConfig())
	require.NoError(t, eng.Fit(corpus))
	neighbors, err := eng.Neighbors(model.Query{Place: "A Place", Hour: 1, Amount: 1})
	require.NoError(t, err)
	assert.Len(t, neighbors, DefaultK)

	cfg := DefaultConfig()
	cfg.DefaultK = 1
	eng = New(cfg)
	require.NoError(t, eng.Fit(corpus))
	neighbors, err = eng.Neighbors(model.Query{Place: "A Place", Hour: 1, Amount: 1})
	require.NoError(t, err)
	assert.Len(t, neighbors, 1)
}

func TestRecommend_InvalidQuery(t *testing.T) {
	eng := New(DefaultConfig())
	require.NoError(t, eng.Fit(cafeCorpus()))

	tests := []struct {
		name  string
		query model.Query
	}{
		{name: "hour too large", query: model.Query{Place: "Cafe X", Hour: 24}},
		{name: "negative hour", query: model.Query{Place: "Cafe X", Hour: -1}},
		{name: "negative k", query: model.Query{Place: "Cafe X", Hour: 1, K: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := eng.Recommend(tt.query)
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrInvalidQuery))
		})
	}
}

func TestRecommend_UnusualButValidQueries(t *testing.T) {
	eng := New(DefaultConfig())
	require.NoError(t, eng.Fit(cafeCorpus()))

	tests := []struct {
		name  string
		query model.Query
	}{
		{name: "empty place", query: model.Query{Place: "", Hour: 18, Amount: 10000}},
		{name: "unknown place", query: model.Query{Place: "Nowhere", Hour: 18, Amount: 10000}},
		{name: "negative amount", query: model.Query{Place: "Cafe X", Hour: 18, Amount: -500}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := eng.Recommend(tt.query)
			require.NoError(t, err)
			require.NotEmpty(t, rec.RecommendedParticipants)
			assert.Equal(t, "Alice", rec.RecommendedParticipants[0])
			assert.Len(t, rec.SimilarTransactions, 2)
		})
	}
}

func TestEngine_Lifecycle(t *testing.T) {
	eng := New(DefaultConfig())
	assert.Equal(t, StateUnfitted, eng.State())

	_, err := eng.Recommend(model.Query{Place: "Cafe X", Hour: 18, Amount: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrUnfitted))

	_, err = eng.Model()
	assert.True(t, errors.Is(err, common.ErrUnfitted))

	require.NoError(t, eng.Fit(cafeCorpus()))
	assert.Equal(t, StateQueryable, eng.State())

	t.Run("refit replaces the model", func(t *testing.T) {
		before, err := eng.Model()
		require.NoError(t, err)

		require.NoError(t, eng.Fit([]model.Transaction{
			settlement("Pizza Place", 20, 30000, "Gina"),
			settlement("Pizza Place", 21, 32000, "Hank"),
			settlement("Cafe X", 18, 10000, "Ivy"),
		}))
		after, err := eng.Model()
		require.NoError(t, err)
		assert.NotSame(t, before, after)
		assert.Equal(t, 3, after.Size())
		assert.Equal(t, 2, before.Size(), "old model is untouched")
	})

	t.Run("failed refit leaves engine unfitted", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Features.Degenerate = features.DegenerateReject
		strict := New(cfg)
		require.NoError(t, strict.Fit([]model.Transaction{
			settlement("A Place", 1, 10, "a"),
			settlement("B Place", 2, 20, "b"),
		}))

		err := strict.Fit(cafeCorpus())
		require.Error(t, err)
		assert.True(t, errors.Is(err, common.ErrDegenerateInput))
		assert.Equal(t, StateUnfitted, strict.State())

		_, err = strict.Recommend(model.Query{Place: "A Place", Hour: 1})
		assert.True(t, errors.Is(err, common.ErrUnfitted))
	})
}

func TestTrain_Deterministic(t *testing.T) {
	corpus := []model.Transaction{
		settlement("Pyeongchon Galbi", 19, 70000, "Sehyun", "Chaehee"),
		settlement("McDonalds Pyeongchon", 20, 30000, "Minsu"),
		settlement("Starbucks Beomgye", 18, 15000, "Jihyun", "Minsu"),
	}
	q := model.Query{Place: "Starbucks Pyeongchon", Hour: 18, Amount: 20000, K: 3}

	first, err := Train(DefaultConfig(), corpus)
	require.NoError(t, err)
	second, err := Train(DefaultConfig(), corpus)
	require.NoError(t, err)

	a, err := first.Recommend(q)
	require.NoError(t, err)
	b, err := second.Recommend(q)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	assert.Equal(t, first.Space().VocabularySize()+2, first.Dimension())
}

func TestModel_Tally(t *testing.T) {
	m, err := Train(DefaultConfig(), []model.Transaction{
		settlement("Party Hall", 20, 100000, "A1", "A2", "A3", "A4", "A5"),
		settlement("Party Hall", 22, 120000, "A1", "A6"),
	})
	require.NoError(t, err)

	q := model.Query{Place: "Party Hall", Hour: 21, Amount: 110000, K: 2}
	tally, err := m.Tally(q)
	require.NoError(t, err)
	assert.Len(t, tally, 6)
	assert.Equal(t, "A1", tally[0].Participant)

	rec, err := m.Recommend(q)
	require.NoError(t, err)
	assert.Len(t, rec.RecommendedParticipants, recommend.DefaultTopParticipants)
}

func TestModel_ConcurrentQueries(t *testing.T) {
	m, err := Train(DefaultConfig(), cafeCorpus())
	require.NoError(t, err)

	want, err := m.Recommend(model.Query{Place: "Cafe X", Hour: 18, Amount: 10200, K: 2})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*model.Recommendation, 16)
	errs := make([]error, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = m.Recommend(model.Query{Place: "Cafe X", Hour: 18, Amount: 10200, K: 2})
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, want, results[i])
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "unfitted", StateUnfitted.String())
	assert.Equal(t, "fitted", StateFitted.String())
	assert.Equal(t, "queryable", StateQueryable.String())
	assert.Equal(t, "unknown", State(42).String())
}
