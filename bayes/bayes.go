// Package bayes implements a multinomial Naive Bayes text classifier over
// stemmed n-gram features with additive smoothing.
//
// Training accumulates per-category feature counts, either one document at a
// time with TrainText or from independent shards with TrainParallel.
// FinalizeTraining turns counts into priors and likelihoods; Classify is only
// available on a finalized model.
package bayes

import (
	"math"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/hickeroar/ngrambayes/bayes/category"
	"github.com/hickeroar/ngrambayes/bayes/parallel"
	"github.com/hickeroar/ngrambayes/bayes/stemmer"
	"github.com/hickeroar/ngrambayes/bayes/tokenizer"
)

// Classifier is responsible for classifying text samples
type Classifier struct {
	mu         sync.RWMutex
	categories *category.Categories
	vocabulary map[string]struct{}
	documents  int
	finalized  bool
	generation string

	alpha     float64
	tokenizer *tokenizer.Tokenizer
	executor  parallel.Executor
	logger    zerolog.Logger
}

// Stats is a read-only snapshot of the model.
type Stats struct {
	Categories     []category.Summary
	DocumentCount  int
	VocabularySize int
	Finalized      bool
	Generation     string
	NgramDepth     int
	Alpha          float64
}

// NewClassifier returns a pointer to a instance of type Classifier
func NewClassifier(opts ...Option) (*Classifier, error) {
	s := settings{
		depth:  DefaultNgramDepth,
		alpha:  DefaultAlpha,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&s)
	}

	if s.depth < 1 {
		return nil, newConfigurationError("ngram depth", "must be at least 1", s.depth)
	}
	if !(s.alpha > 0) || math.IsInf(s.alpha, 1) {
		return nil, newConfigurationError("alpha", "must be a positive finite number", s.alpha)
	}
	if s.workers < 0 {
		return nil, newConfigurationError("workers", "must not be negative", s.workers)
	}
	if s.stemmer == nil {
		st, err := stemmer.ByName(s.stemmerName)
		if err != nil {
			return nil, newConfigurationError("stemmer", err.Error(), s.stemmerName)
		}
		s.stemmer = st
	}
	if s.executor == nil {
		s.executor = parallel.Group{Limit: s.workers}
	}

	return &Classifier{
		categories: category.NewCategories(),
		vocabulary: make(map[string]struct{}),
		alpha:      s.alpha,
		tokenizer: tokenizer.New(tokenizer.Options{
			Stopwords:   s.stopwords,
			Depth:       s.depth,
			Stemmer:     s.stemmer,
			FoldAccents: s.foldAccents,
		}),
		executor: s.executor,
		logger:   s.logger,
	}, nil
}

// Tokenizer returns the tokenizer used for training and classification.
func (c *Classifier) Tokenizer() *tokenizer.Tokenizer {
	return c.tokenizer
}

// Alpha returns the smoothing constant.
func (c *Classifier) Alpha() float64 {
	return c.alpha
}

// NgramDepth returns the longest n-gram counted as a feature.
func (c *Classifier) NgramDepth() int {
	return c.tokenizer.Depth()
}

// TrainText counts the features of document into category. The model must
// be finalized again before it can classify.
func (c *Classifier) TrainText(document, categoryName string) error {
	if categoryName == "" {
		return errors.WithStack(errEmptyCategory)
	}
	features := c.tokenizer.FeatureList(document)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.finalized = false
	cat := c.categories.GetCategory(categoryName)
	if err := cat.AddDocuments(1); err != nil {
		return errors.Wrap(err, "train text")
	}
	c.documents++

	for _, feature := range features {
		if err := cat.TrainToken(feature, 1); err != nil {
			return errors.Wrap(err, "train text")
		}
		c.vocabulary[feature] = struct{}{}
	}

	return nil
}

// FinalizeTraining computes priors and likelihoods from the current counts.
// Calling it again without new training produces the same probabilities.
func (c *Classifier) FinalizeTraining() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.finalizeLocked()
}

func (c *Classifier) finalizeLocked() {
	vocabulary := len(c.vocabulary)
	for _, name := range c.categories.Names() {
		cat, _ := c.categories.LookupCategory(name)
		cat.Finalize(c.documents, c.alpha, vocabulary)
	}
	c.finalized = true
	c.generation = ulid.Make().String()

	c.logger.Debug().
		Str("generation", c.generation).
		Int("categories", c.categories.Len()).
		Int("documents", c.documents).
		Int("vocabulary", vocabulary).
		Msg("finalized training")
}

// IsFinalized reports whether the model may classify.
func (c *Classifier) IsFinalized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.finalized
}

// Flush empties the categories to remove all values
func (c *Classifier) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.categories = category.NewCategories()
	c.vocabulary = make(map[string]struct{})
	c.documents = 0
	c.finalized = false
	c.generation = ""
}

// Stats returns a snapshot of the model.
func (c *Classifier) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Stats{
		Categories:     c.categories.Summaries(),
		DocumentCount:  c.documents,
		VocabularySize: len(c.vocabulary),
		Finalized:      c.finalized,
		Generation:     c.generation,
		NgramDepth:     c.tokenizer.Depth(),
		Alpha:          c.alpha,
	}
}

// Categories returns category names in the order they were first trained.
func (c *Classifier) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.categories.Names()
}

// LookupCategory returns a snapshot of a category.
func (c *Classifier) LookupCategory(name string) (category.Summary, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cat, ok := c.categories.LookupCategory(name)
	if !ok {
		return category.Summary{}, false
	}
	return cat.Summary(), true
}

// TokenCount returns how often category counted feature.
func (c *Classifier) TokenCount(categoryName, feature string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cat, ok := c.categories.LookupCategory(categoryName)
	if !ok {
		return 0
	}
	return cat.GetTokenCount(feature)
}

// Likelihood returns the finalized P(feature|category) for a feature the
// category counted.
func (c *Classifier) Likelihood(categoryName, feature string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cat, ok := c.categories.LookupCategory(categoryName)
	if !ok {
		return 0, false
	}
	return cat.Likelihood(feature)
}
