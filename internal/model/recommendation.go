package model

import "time"

// Query describes a new settlement to find participants for.
type Query struct {
	// Place may be empty; it then contributes nothing to the text columns.
	Place  string `json:"place" yaml:"place"`
	Hour   int    `json:"hour" yaml:"hour" validate:"gte=0,lte=23"`
	Amount int64  `json:"amount" yaml:"amount"` // negative for refunds
	// K is the neighbour count. Zero means the configured default.
	K int `json:"k,omitempty" yaml:"k,omitempty" validate:"gte=0"`
}

// SimilarTransaction is one piece of evidence behind a recommendation.
type SimilarTransaction struct {
	Place        string   `json:"place"`
	DateTime     string   `json:"datetime"`
	Participants []string `json:"participants"`
	Amount       int64    `json:"amount"`
	Similarity   float64  `json:"similarity"`
	Distance     float64  `json:"distance"`
}

// Recommendation is the answer to a Query.
// The JSON field names are consumed by downstream tools and must not change.
type Recommendation struct {
	ConfidenceScores        map[string]float64   `json:"confidence_scores"`
	Explanation             string               `json:"explanation"`
	RecommendedParticipants []string             `json:"recommended_participants"`
	SimilarTransactions     []SimilarTransaction `json:"similar_transactions"`
}

// ParticipantScore is a participant with its accumulated confidence.
type ParticipantScore struct {
	Participant string  `json:"participant"`
	Score       float64 `json:"score"`
}

// Scores returns the recommended participants paired with their confidence, in rank order.
func (r *Recommendation) Scores() []ParticipantScore {
	scores := make([]ParticipantScore, 0, len(r.RecommendedParticipants))
	for _, p := range r.RecommendedParticipants {
		scores = append(scores, ParticipantScore{Participant: p, Score: r.ConfidenceScores[p]})
	}
	return scores
}

// IsEmpty reports whether no similar history backed the recommendation.
func (r *Recommendation) IsEmpty() bool {
	return len(r.SimilarTransactions) == 0
}

// RecommendationRun is a stored recommendation together with the query that produced it.
type RecommendationRun struct {
	CreatedAt      time.Time       `json:"created_at"`
	Recommendation *Recommendation `json:"recommendation"`
	ID             string          `json:"id"`
	Key            string          `json:"key"`
	Query          Query           `json:"query"`
}
