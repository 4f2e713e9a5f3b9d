package features

import (
	"math"
	"regexp"
	"sort"

	"golang.org/x/text/cases"
	"gonum.org/v1/gonum/floats"
)

// DefaultMaxFeatures caps the place-name vocabulary.
const DefaultMaxFeatures = 100

// tokenPattern matches runs of two or more letters, digits or underscores.
// Single characters ("X", "1") carry no signal and are dropped.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Tokenize splits a place name into case-folded terms.
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(cases.Fold().String(text), -1)
}

// Vocabulary is the fitted state of the place-name encoder.
// Columns are ordered lexicographically by term.
type Vocabulary struct {
	columns map[string]int
	terms   []string
	idf     []float64
}

// FitVocabulary builds a TF-IDF vocabulary over the given place names.
//
// At most maxFeatures terms are kept: those with the highest term frequency
// across the whole corpus, ties broken lexicographically. A non-positive
// maxFeatures means DefaultMaxFeatures.
func FitVocabulary(places []string, maxFeatures int) *Vocabulary {
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}

	termFreq := make(map[string]int)
	docFreq := make(map[string]int)
	for _, place := range places {
		seen := make(map[string]bool)
		for _, term := range Tokenize(place) {
			termFreq[term]++
			if !seen[term] {
				docFreq[term]++
				seen[term] = true
			}
		}
	}

	terms := make([]string, 0, len(termFreq))
	for term := range termFreq {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if termFreq[terms[i]] != termFreq[terms[j]] {
			return termFreq[terms[i]] > termFreq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > maxFeatures {
		terms = terms[:maxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(places))
	vocab := &Vocabulary{
		columns: make(map[string]int, len(terms)),
		terms:   terms,
		idf:     make([]float64, len(terms)),
	}
	for i, term := range terms {
		vocab.columns[term] = i
		// Smoothed idf: as if one extra document contained every term.
		vocab.idf[i] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}
	return vocab
}

// Size returns the number of text columns.
func (v *Vocabulary) Size() int {
	return len(v.terms)
}

// Terms returns the vocabulary in column order.
func (v *Vocabulary) Terms() []string {
	out := make([]string, len(v.terms))
	copy(out, v.terms)
	return out
}

// IDF returns the inverse document frequency of term, and whether it is in the vocabulary.
func (v *Vocabulary) IDF(term string) (float64, bool) {
	col, ok := v.columns[term]
	if !ok {
		return 0, false
	}
	return v.idf[col], true
}

// Encode writes the L2-normalised TF-IDF vector of text into dst.
// dst must have length Size(). Out-of-vocabulary terms are ignored.
func (v *Vocabulary) Encode(dst []float64, text string) {
	for i := range dst {
		dst[i] = 0
	}

	for _, term := range Tokenize(text) {
		if col, ok := v.columns[term]; ok {
			dst[col] += v.idf[col]
		}
	}

	norm := floats.Norm(dst, 2)
	if norm == 0 {
		return
	}
	floats.Scale(1/norm, dst)
}
