// Package recommend turns nearest-neighbour hits into ranked participant suggestions.
package recommend

import (
	"fmt"
	"sort"

	"github.com/Veraticus/the-split-must-flow/internal/index"
	"github.com/Veraticus/the-split-must-flow/internal/model"
)

// DefaultTopParticipants is how many participants a recommendation lists.
const DefaultTopParticipants = 4

// Explanation templates.
const (
	DefaultExplanation = "Recommended from past settlements at '%s'."
	DefaultNoHistory   = "No similar settlement history found."
)

// Options configures an Aggregator.
type Options struct {
	// Explanation is a fmt template receiving the nearest neighbour's place.
	Explanation     string
	NoHistory       string
	TopParticipants int
}

// DefaultOptions returns the default aggregator options.
func DefaultOptions() Options {
	return Options{
		TopParticipants: DefaultTopParticipants,
		Explanation:     DefaultExplanation,
		NoHistory:       DefaultNoHistory,
	}
}

// Aggregator converts neighbours into a Recommendation.
type Aggregator struct {
	opts Options
}

// New creates an Aggregator. Zero-valued options fall back to defaults.
func New(opts Options) *Aggregator {
	defaults := DefaultOptions()
	if opts.TopParticipants <= 0 {
		opts.TopParticipants = defaults.TopParticipants
	}
	if opts.Explanation == "" {
		opts.Explanation = defaults.Explanation
	}
	if opts.NoHistory == "" {
		opts.NoHistory = defaults.NoHistory
	}
	return &Aggregator{opts: opts}
}

// Similarity maps a squared distance to a score in (0, 1].
// It is 1 at distance 0 and strictly decreasing.
func Similarity(squaredDistance float64) float64 {
	return 1 / (1 + squaredDistance)
}

// Tally is every participant's accumulated vote, best first.
type Tally []model.ParticipantScore

// Total returns the sum of all votes.
func (t Tally) Total() float64 {
	var total float64
	for _, s := range t {
		total += s.Score
	}
	return total
}

// TopN returns the first n entries.
func (t Tally) TopN(n int) Tally {
	if n <= 0 {
		return Tally{}
	}
	if n > len(t) {
		n = len(t)
	}
	out := make(Tally, n)
	copy(out, t[:n])
	return out
}

// Tally lets every neighbour vote for all participants of its source
// transaction with its full similarity score. Participants are ranked by
// total score; equal totals keep the order in which participants were
// first seen walking the neighbours.
func (a *Aggregator) Tally(neighbors []index.Neighbor, corpus []model.Transaction) Tally {
	scores := make(map[string]float64)
	var order []string

	for _, n := range neighbors {
		sim := Similarity(n.SquaredDistance)
		for _, p := range corpus[n.Position].Participants {
			if _, seen := scores[p]; !seen {
				order = append(order, p)
			}
			scores[p] += sim
		}
	}

	tally := make(Tally, len(order))
	for i, p := range order {
		tally[i] = model.ParticipantScore{Participant: p, Score: scores[p]}
	}
	sort.SliceStable(tally, func(i, j int) bool {
		return tally[i].Score > tally[j].Score
	})
	return tally
}

// Aggregate builds the recommendation for the given neighbours, which must
// be in ascending distance order. Positions index into corpus.
// No neighbours yields an empty recommendation, never an error.
func (a *Aggregator) Aggregate(neighbors []index.Neighbor, corpus []model.Transaction) *model.Recommendation {
	top := a.Tally(neighbors, corpus).TopN(a.opts.TopParticipants)

	rec := &model.Recommendation{
		RecommendedParticipants: make([]string, len(top)),
		ConfidenceScores:        make(map[string]float64, len(top)),
		SimilarTransactions:     make([]model.SimilarTransaction, len(neighbors)),
	}
	for i, s := range top {
		rec.RecommendedParticipants[i] = s.Participant
		rec.ConfidenceScores[s.Participant] = s.Score
	}
	for i, n := range neighbors {
		rec.SimilarTransactions[i] = evidence(&corpus[n.Position], n.SquaredDistance)
	}

	if len(neighbors) == 0 {
		rec.Explanation = a.opts.NoHistory
	} else {
		rec.Explanation = fmt.Sprintf(a.opts.Explanation, corpus[neighbors[0].Position].Place)
	}
	return rec
}

func evidence(txn *model.Transaction, squaredDistance float64) model.SimilarTransaction {
	participants := make([]string, len(txn.Participants))
	copy(participants, txn.Participants)

	return model.SimilarTransaction{
		Place:        txn.Place,
		DateTime:     txn.DateTime.Format(model.DateTimeLayout),
		Amount:       txn.Amount,
		Participants: participants,
		Similarity:   Similarity(squaredDistance),
		Distance:     squaredDistance,
	}
}
