// Package report reads batch scenarios and writes recommendation results.
package report

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"

	"github.com/Veraticus/the-split-must-flow/internal/model"
)

// WriteRecommendations writes results keyed by scenario as indented UTF-8
// JSON. Non-ASCII text is written as-is and keys are sorted.
func WriteRecommendations(w io.Writer, results map[string]*model.Recommendation) error {
	if results == nil {
		results = map[string]*model.Recommendation{}
	}
	if err := newEncoder(w).Encode(results); err != nil {
		return fmt.Errorf("failed to encode recommendations: %w", err)
	}
	return nil
}

// WriteRecommendation writes a single result as a bare JSON object.
func WriteRecommendation(w io.Writer, rec *model.Recommendation) error {
	if rec == nil {
		rec = &model.Recommendation{}
	}
	if err := newEncoder(w).Encode(rec); err != nil {
		return fmt.Errorf("failed to encode recommendation: %w", err)
	}
	return nil
}

func newEncoder(w io.Writer) *json.Encoder {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc
}

// WriteRecommendationsFile writes results to path, replacing any existing file.
func WriteRecommendationsFile(path string, results map[string]*model.Recommendation) error {
	var buf bytes.Buffer
	if err := WriteRecommendations(&buf, results); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ReadRecommendations decodes a file produced by WriteRecommendations.
func ReadRecommendations(r io.Reader) (map[string]*model.Recommendation, error) {
	results := map[string]*model.Recommendation{}
	if err := json.NewDecoder(r).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode recommendations: %w", err)
	}
	return results, nil
}
