package recommend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-split-must-flow/internal/index"
	"github.com/Veraticus/the-split-must-flow/internal/model"
)

func txn(place string, participants ...string) model.Transaction {
	return model.Transaction{
		Place:        place,
		DateTime:     time.Date(2024, 6, 1, 19, 0, 0, 0, time.UTC),
		Amount:       10000,
		Participants: participants,
	}
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity(0))
	assert.Equal(t, 0.5, Similarity(1))

	prev := Similarity(0)
	for _, d := range []float64{1e-9, 0.5, 1, 10, 1e6, 1e300} {
		s := Similarity(d)
		assert.Less(t, s, prev, "distance %g", d)
		assert.Greater(t, s, 0.0, "distance %g", d)
		prev = s
	}
}

func TestAggregate_WeightedVotes(t *testing.T) {
	corpus := []model.Transaction{
		txn("Cafe X", "Alice", "Bob"),
		txn("Cafe X", "Alice", "Carol"),
	}
	neighbors := []index.Neighbor{
		{Position: 0, SquaredDistance: 0.64},
		{Position: 1, SquaredDistance: 1.44},
	}

	rec := New(DefaultOptions()).Aggregate(neighbors, corpus)

	s0, s1 := Similarity(0.64), Similarity(1.44)
	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, rec.RecommendedParticipants)
	assert.InDelta(t, s0+s1, rec.ConfidenceScores["Alice"], 1e-12)
	assert.InDelta(t, s0, rec.ConfidenceScores["Bob"], 1e-12)
	assert.InDelta(t, s1, rec.ConfidenceScores["Carol"], 1e-12)

	require.Len(t, rec.SimilarTransactions, 2)
	assert.Equal(t, "Cafe X", rec.SimilarTransactions[0].Place)
	assert.Equal(t, "2024-06-01 19:00:00", rec.SimilarTransactions[0].DateTime)
	assert.Equal(t, []string{"Alice", "Bob"}, rec.SimilarTransactions[0].Participants)
	assert.InDelta(t, 0.64, rec.SimilarTransactions[0].Distance, 1e-12)
	assert.InDelta(t, s0, rec.SimilarTransactions[0].Similarity, 1e-12)
	assert.Equal(t, "Recommended from past settlements at 'Cafe X'.", rec.Explanation)
}

func TestTally_VoteConservation(t *testing.T) {
	corpus := []model.Transaction{
		txn("A", "Ann", "Ben", "Cy", "Dee", "Eve"),
		txn("B", "Ann"),
		txn("C", "Fay", "Gus", "Ben"),
	}
	neighbors := []index.Neighbor{
		{Position: 2, SquaredDistance: 0.1},
		{Position: 0, SquaredDistance: 0.7},
		{Position: 1, SquaredDistance: 3.2},
	}

	tally := New(DefaultOptions()).Tally(neighbors, corpus)

	var want float64
	for _, n := range neighbors {
		want += Similarity(n.SquaredDistance) * float64(len(corpus[n.Position].Participants))
	}
	assert.InDelta(t, want, tally.Total(), 1e-12)
	assert.Len(t, tally, 7)

	for i := 1; i < len(tally); i++ {
		assert.GreaterOrEqual(t, tally[i-1].Score, tally[i].Score)
	}
}

func TestTally_TiesKeepFirstEncounterOrder(t *testing.T) {
	corpus := []model.Transaction{
		txn("A", "Zed", "Amy"),
		txn("B", "Moe"),
	}
	neighbors := []index.Neighbor{
		{Position: 0, SquaredDistance: 1},
		{Position: 1, SquaredDistance: 1},
	}

	tally := New(DefaultOptions()).Tally(neighbors, corpus)

	names := make([]string, len(tally))
	for i, s := range tally {
		names[i] = s.Participant
	}
	assert.Equal(t, []string{"Zed", "Amy", "Moe"}, names)
}

func TestAggregate_TopParticipants(t *testing.T) {
	corpus := []model.Transaction{txn("Party", "A1", "A2", "A3", "A4", "A5", "A6")}
	neighbors := []index.Neighbor{{Position: 0, SquaredDistance: 0}}

	rec := New(DefaultOptions()).Aggregate(neighbors, corpus)
	assert.Equal(t, []string{"A1", "A2", "A3", "A4"}, rec.RecommendedParticipants)
	assert.Len(t, rec.ConfidenceScores, 4)

	rec = New(Options{TopParticipants: 2}).Aggregate(neighbors, corpus)
	assert.Equal(t, []string{"A1", "A2"}, rec.RecommendedParticipants)
}

func TestAggregate_NoNeighbors(t *testing.T) {
	rec := New(DefaultOptions()).Aggregate(nil, nil)

	assert.Empty(t, rec.RecommendedParticipants)
	assert.Empty(t, rec.ConfidenceScores)
	assert.Empty(t, rec.SimilarTransactions)
	assert.Equal(t, DefaultNoHistory, rec.Explanation)
	assert.True(t, rec.IsEmpty())
}

func TestAggregate_CustomTemplates(t *testing.T) {
	agg := New(Options{
		Explanation: "과거 '%s' 정산 기록을 기반으로 생성되었습니다.",
		NoHistory:   "유사한 정산 기록이 없습니다.",
	})
	corpus := []model.Transaction{txn("평촌쪽갈비", "조세현")}

	rec := agg.Aggregate([]index.Neighbor{{Position: 0}}, corpus)
	assert.Equal(t, "과거 '평촌쪽갈비' 정산 기록을 기반으로 생성되었습니다.", rec.Explanation)

	rec = agg.Aggregate(nil, corpus)
	assert.Equal(t, "유사한 정산 기록이 없습니다.", rec.Explanation)
}

func TestTally_TopN(t *testing.T) {
	tally := Tally{{Participant: "A", Score: 2}, {Participant: "B", Score: 1}}
	assert.Len(t, tally.TopN(5), 2)
	assert.Len(t, tally.TopN(1), 1)
	assert.Empty(t, tally.TopN(0))
}
