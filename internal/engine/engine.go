// Package engine ties feature encoding, nearest-neighbour search and vote
// aggregation together into the participant recommendation lifecycle.
package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/the-split-must-flow/internal/common"
	"github.com/Veraticus/the-split-must-flow/internal/features"
	"github.com/Veraticus/the-split-must-flow/internal/index"
	"github.com/Veraticus/the-split-must-flow/internal/model"
	"github.com/Veraticus/the-split-must-flow/internal/recommend"
	"github.com/Veraticus/the-split-must-flow/internal/validation"
)

// DefaultK is the neighbour count used when a query leaves K at zero.
const DefaultK = 3

// State is the lifecycle stage of an Engine.
type State int

const (
	// StateUnfitted means no corpus has been fitted yet.
	StateUnfitted State = iota
	// StateFitted means the feature space is fitted but the index is not built.
	StateFitted
	// StateQueryable means the engine can answer queries.
	StateQueryable
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateUnfitted:
		return "unfitted"
	case StateFitted:
		return "fitted"
	case StateQueryable:
		return "queryable"
	default:
		return "unknown"
	}
}

// Config holds configuration options for the recommendation engine.
type Config struct {
	Features  features.Options
	Aggregate recommend.Options
	DefaultK  int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Features:  features.DefaultOptions(),
		Aggregate: recommend.DefaultOptions(),
		DefaultK:  DefaultK,
	}
}

// Model is a fitted engine: feature space, index and the corpus they were
// built from. It is immutable and safe for concurrent queries.
type Model struct {
	space      *features.Space
	index      *index.Index
	aggregator *recommend.Aggregator
	corpus     []model.Transaction
	defaultK   int
}

// Train fits the feature space over corpus and builds the index.
// The corpus is copied; position i of the index is corpus[i].
func Train(cfg Config, corpus []model.Transaction) (*Model, error) {
	space, err := fitSpace(cfg, corpus)
	if err != nil {
		return nil, err
	}
	return buildModel(cfg, space, corpus)
}

func fitSpace(cfg Config, corpus []model.Transaction) (*features.Space, error) {
	samples := make([]features.Sample, len(corpus))
	for i := range corpus {
		samples[i] = features.SampleOf(&corpus[i])
	}

	space, err := features.Fit(samples, cfg.Features)
	if err != nil {
		return nil, fmt.Errorf("failed to fit feature space: %w", err)
	}
	return space, nil
}

func buildModel(cfg Config, space *features.Space, corpus []model.Transaction) (*Model, error) {
	samples := make([]features.Sample, len(corpus))
	for i := range corpus {
		samples[i] = features.SampleOf(&corpus[i])
	}

	vectors, err := space.TransformAll(samples)
	if err != nil {
		return nil, fmt.Errorf("failed to encode corpus: %w", err)
	}

	idx, err := index.Build(vectors)
	if err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}

	defaultK := cfg.DefaultK
	if defaultK <= 0 {
		defaultK = DefaultK
	}

	owned := make([]model.Transaction, len(corpus))
	copy(owned, corpus)

	return &Model{
		space:      space,
		index:      idx,
		aggregator: recommend.New(cfg.Aggregate),
		corpus:     owned,
		defaultK:   defaultK,
	}, nil
}

// Size returns the number of indexed transactions.
func (m *Model) Size() int {
	return m.index.Len()
}

// Dimension returns the feature vector dimension.
func (m *Model) Dimension() int {
	return m.space.Dimension()
}

// Space returns the fitted feature space.
func (m *Model) Space() *features.Space {
	return m.space
}

// Transaction returns the corpus entry at position.
func (m *Model) Transaction(position int) model.Transaction {
	return m.corpus[position]
}

// Neighbors returns the nearest corpus transactions to the query.
func (m *Model) Neighbors(q model.Query) ([]index.Neighbor, error) {
	if verr := validation.ValidateStruct(&q); verr != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidQuery, verr)
	}

	vec, err := m.space.Transform(features.QuerySample(q))
	if err != nil {
		return nil, err
	}

	k := q.K
	if k == 0 {
		k = m.defaultK
	}
	return m.index.Search(vec, k)
}

// Tally returns the full participant vote tally for a query, before truncation.
func (m *Model) Tally(q model.Query) (recommend.Tally, error) {
	neighbors, err := m.Neighbors(q)
	if err != nil {
		return nil, err
	}
	return m.aggregator.Tally(neighbors, m.corpus), nil
}

// Recommend returns ranked participants and supporting evidence for the query.
func (m *Model) Recommend(q model.Query) (*model.Recommendation, error) {
	neighbors, err := m.Neighbors(q)
	if err != nil {
		return nil, err
	}
	return m.aggregator.Aggregate(neighbors, m.corpus), nil
}

// Engine holds the current fitted model and its lifecycle state.
// Fit may be called again to replace the model; queries issued while a
// refit runs see either the old or the new model, never a mix.
type Engine struct {
	space *features.Space
	model *Model
	cfg   Config
	mu    sync.RWMutex
}

// New creates an unfitted engine.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()

	switch {
	case e.model != nil:
		return StateQueryable
	case e.space != nil:
		return StateFitted
	default:
		return StateUnfitted
	}
}

// Fit fits the feature space over corpus and builds the index.
// Any previous model is discarded first, so a failed fit leaves the engine
// unfitted rather than serving stale state.
func (e *Engine) Fit(corpus []model.Transaction) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.space, e.model = nil, nil
	start := time.Now()

	space, err := fitSpace(e.cfg, corpus)
	if err != nil {
		return err
	}
	e.space = space

	m, err := buildModel(e.cfg, space, corpus)
	if err != nil {
		return err
	}
	e.model = m

	slog.Debug("Engine ready",
		"corpus_size", m.Size(),
		"dimension", m.Dimension(),
		"duration", time.Since(start))
	return nil
}

// Model returns the fitted model, or common.ErrUnfitted.
func (e *Engine) Model() (*Model, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.model == nil {
		return nil, fmt.Errorf("engine is %s: %w", e.stateLocked(), common.ErrUnfitted)
	}
	return e.model, nil
}

func (e *Engine) stateLocked() State {
	if e.space != nil {
		return StateFitted
	}
	return StateUnfitted
}

// Neighbors returns the nearest corpus transactions to the query.
func (e *Engine) Neighbors(q model.Query) ([]index.Neighbor, error) {
	m, err := e.Model()
	if err != nil {
		return nil, err
	}
	return m.Neighbors(q)
}

// Recommend returns ranked participants and supporting evidence for the query.
func (e *Engine) Recommend(q model.Query) (*model.Recommendation, error) {
	m, err := e.Model()
	if err != nil {
		return nil, err
	}
	return m.Recommend(q)
}
