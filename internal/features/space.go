// Package features turns settlements into points of a fixed vector space.
//
// A vector is the TF-IDF encoding of the place name followed by the
// standardised hour of day and amount. The space is fitted once over the
// whole corpus and is immutable afterwards.
package features

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/the-split-must-flow/internal/common"
	"github.com/Veraticus/the-split-must-flow/internal/model"
)

// numericColumns is the number of trailing numeric columns (hour, amount).
const numericColumns = 2

// Sample is the part of a settlement that is encoded.
type Sample struct {
	Place  string
	Hour   int
	Amount int64
}

// SampleOf extracts the encoded fields of a stored transaction.
func SampleOf(txn *model.Transaction) Sample {
	return Sample{
		Place:  txn.Place,
		Hour:   txn.Hour(),
		Amount: txn.Amount,
	}
}

// QuerySample extracts the encoded fields of a query.
func QuerySample(q model.Query) Sample {
	return Sample{
		Place:  q.Place,
		Hour:   q.Hour,
		Amount: q.Amount,
	}
}

// DegeneratePolicy decides what Fit does with a zero-variance numeric feature.
type DegeneratePolicy string

const (
	// DegenerateUnitScale substitutes a standard deviation of 1 and logs a warning.
	DegenerateUnitScale DegeneratePolicy = "unit"
	// DegenerateReject fails the fit with a *DegenerateInputError.
	DegenerateReject DegeneratePolicy = "reject"
)

// Options configures Fit.
type Options struct {
	Degenerate  DegeneratePolicy
	MaxFeatures int
}

// DefaultOptions returns the default fit options.
func DefaultOptions() Options {
	return Options{
		MaxFeatures: DefaultMaxFeatures,
		Degenerate:  DegenerateUnitScale,
	}
}

// Space is a fitted feature space. The zero value is unfitted and
// every Transform on it fails with common.ErrUnfitted.
type Space struct {
	vocab   *Vocabulary
	numeric NumericStats
}

// Fit learns the vocabulary and numeric statistics of the corpus.
func Fit(corpus []Sample, opts Options) (*Space, error) {
	places := make([]string, len(corpus))
	for i, s := range corpus {
		places[i] = s.Place
	}
	vocab := FitVocabulary(places, opts.MaxFeatures)

	numeric, err := FitNumeric(corpus)
	if err != nil {
		var degenerate *DegenerateInputError
		if !errors.As(err, &degenerate) {
			return nil, err
		}

		switch opts.Degenerate {
		case DegenerateReject:
			return nil, fmt.Errorf("failed to fit numeric features: %w", err)
		case DegenerateUnitScale, "":
			slog.Warn("Numeric feature has no variance, using unit scale",
				"features", degenerate.Features,
				"corpus_size", len(corpus))
			numeric = numeric.WithUnitScale()
		default:
			return nil, fmt.Errorf("%w: unknown degenerate policy %q", common.ErrInvalidConfig, opts.Degenerate)
		}
	}

	slog.Debug("Fitted feature space",
		"corpus_size", len(corpus),
		"vocabulary_size", vocab.Size(),
		"mean_hour", numeric.MeanHour,
		"mean_amount", numeric.MeanAmount)

	return &Space{vocab: vocab, numeric: numeric}, nil
}

// Fitted reports whether the space can transform samples.
func (s *Space) Fitted() bool {
	return s != nil && s.vocab != nil
}

// Dimension returns the length of every vector this space produces.
func (s *Space) Dimension() int {
	if !s.Fitted() {
		return 0
	}
	return s.vocab.Size() + numericColumns
}

// VocabularySize returns the number of text columns.
func (s *Space) VocabularySize() int {
	if !s.Fitted() {
		return 0
	}
	return s.vocab.Size()
}

// Terms returns the text columns in order.
func (s *Space) Terms() []string {
	if !s.Fitted() {
		return nil
	}
	return s.vocab.Terms()
}

// Numeric returns the fitted numeric statistics.
func (s *Space) Numeric() NumericStats {
	if !s.Fitted() {
		return NumericStats{}
	}
	return s.numeric
}

// Transform encodes a sample: text columns first, then hour and amount.
func (s *Space) Transform(sample Sample) ([]float64, error) {
	if !s.Fitted() {
		return nil, fmt.Errorf("cannot transform sample: %w", common.ErrUnfitted)
	}

	textColumns := s.vocab.Size()
	vec := make([]float64, textColumns+numericColumns)
	s.vocab.Encode(vec[:textColumns], sample.Place)
	vec[textColumns], vec[textColumns+1] = s.numeric.Transform(sample.Hour, sample.Amount)
	return vec, nil
}

// TransformAll encodes every sample of a corpus, in order.
func (s *Space) TransformAll(samples []Sample) ([][]float64, error) {
	vectors := make([][]float64, len(samples))
	for i, sample := range samples {
		vec, err := s.Transform(sample)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		vectors[i] = vec
	}
	return vectors, nil
}
