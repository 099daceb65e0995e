package category

import (
	"github.com/cockroachdb/errors"
)

var (
	errInvalidCount = errors.New("count must be positive")
	errEmptyToken   = errors.New("token must not be empty")
)

// Category represents a single text category
type Category struct {
	name        string
	documents   int                // Documents trained into this category
	tokens      map[string]int     // Map of tokens to their count
	tally       int                // Total tokens in this category
	likelihoods map[string]float64 // Smoothed P(token|category), set by Finalize
	prior       float64            // P(category), set by Finalize
}

// Summary is a value snapshot of a category.
type Summary struct {
	Name          string
	DocumentCount int
	TokenTally    int
	TokenCount    int
	Prior         float64
}

// NewCategory returns a pointer to a instance of type Category
func NewCategory(name string) *Category {
	return &Category{
		name:        name,
		tokens:      make(map[string]int),
		likelihoods: make(map[string]float64),
	}
}

// Name returns the category name.
func (cat *Category) Name() string {
	return cat.name
}

// AddDocuments records count more documents for this category.
func (cat *Category) AddDocuments(count int) error {
	if count < 0 {
		return errors.Wrapf(errInvalidCount, "documents for %q: %d", cat.name, count)
	}
	cat.documents += count
	return nil
}

// TrainToken trains a specific token on this category
func (cat *Category) TrainToken(word string, count int) error {
	if word == "" {
		return errors.Wrapf(errEmptyToken, "category %q", cat.name)
	}
	if count <= 0 {
		return errors.Wrapf(errInvalidCount, "token %q in %q: %d", word, cat.name, count)
	}

	cat.tokens[word] += count
	cat.tally += count
	return nil
}

// GetTokenCount returns at tokens count from this category
func (cat *Category) GetTokenCount(word string) int {
	return cat.tokens[word]
}

// GetTally returns the total of all tokens for this category
func (cat *Category) GetTally() int {
	return cat.tally
}

// GetDocumentCount returns the number of documents trained into this category.
func (cat *Category) GetDocumentCount() int {
	return cat.documents
}

// Tokens calls fn for every counted token.
func (cat *Category) Tokens(fn func(word string, count int)) {
	for word, count := range cat.tokens {
		fn(word, count)
	}
}

// Finalize computes the prior and the smoothed likelihood of every counted token:
//
//	prior = documents / totalDocuments
//	P(token) = (count + alpha) / (tally + alpha*vocabulary)
func (cat *Category) Finalize(totalDocuments int, alpha float64, vocabulary int) {
	cat.prior = 0
	if totalDocuments > 0 {
		cat.prior = float64(cat.documents) / float64(totalDocuments)
	}

	denominator := cat.smoothingDenominator(alpha, vocabulary)
	cat.likelihoods = make(map[string]float64, len(cat.tokens))
	for word, count := range cat.tokens {
		cat.likelihoods[word] = (float64(count) + alpha) / denominator
	}
}

// Likelihood returns the finalized likelihood of word, if this category counted it.
func (cat *Category) Likelihood(word string) (float64, bool) {
	p, ok := cat.likelihoods[word]
	return p, ok
}

// UnseenLikelihood is the smoothing floor for a token this category never counted.
func (cat *Category) UnseenLikelihood(alpha float64, vocabulary int) float64 {
	return alpha / cat.smoothingDenominator(alpha, vocabulary)
}

// GetPrior returns the finalized prior probability.
func (cat *Category) GetPrior() float64 {
	return cat.prior
}

// Summary returns a value snapshot of the category.
func (cat *Category) Summary() Summary {
	return Summary{
		Name:          cat.name,
		DocumentCount: cat.documents,
		TokenTally:    cat.tally,
		TokenCount:    len(cat.tokens),
		Prior:         cat.prior,
	}
}

func (cat *Category) smoothingDenominator(alpha float64, vocabulary int) float64 {
	return float64(cat.tally) + alpha*float64(vocabulary)
}
