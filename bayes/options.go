package bayes

import (
	"github.com/rs/zerolog"

	"github.com/hickeroar/ngrambayes/bayes/parallel"
	"github.com/hickeroar/ngrambayes/bayes/stemmer"
)

// Defaults applied by NewClassifier.
const (
	DefaultNgramDepth = 1
	DefaultAlpha      = 1.0
)

type settings struct {
	stopwords   []string
	depth       int
	alpha       float64
	stemmerName string
	stemmer     stemmer.Stemmer
	foldAccents bool
	workers     int
	executor    parallel.Executor
	logger      zerolog.Logger
}

// Option is a function that configures a Classifier
type Option func(*settings)

// WithStopwords sets the words removed before stemming.
func WithStopwords(words []string) Option {
	return func(s *settings) {
		s.stopwords = append([]string(nil), words...)
	}
}

// WithNgramDepth sets the longest n-gram counted as a feature.
func WithNgramDepth(depth int) Option {
	return func(s *settings) {
		s.depth = depth
	}
}

// WithAlpha sets the additive smoothing constant.
func WithAlpha(alpha float64) Option {
	return func(s *settings) {
		s.alpha = alpha
	}
}

// WithStemmerName selects a built-in stemmer: porter, snowball or none.
func WithStemmerName(name string) Option {
	return func(s *settings) {
		s.stemmerName = name
		s.stemmer = nil
	}
}

// WithStemmer sets a custom stemmer.
func WithStemmer(st stemmer.Stemmer) Option {
	return func(s *settings) {
		s.stemmer = st
	}
}

// WithFoldAccents strips combining marks from text before tokenizing.
func WithFoldAccents(fold bool) Option {
	return func(s *settings) {
		s.foldAccents = fold
	}
}

// WithWorkers caps concurrent shard computations. Zero means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(s *settings) {
		s.workers = n
	}
}

// WithExecutor replaces the executor used by TrainParallel. It overrides WithWorkers.
func WithExecutor(ex parallel.Executor) Option {
	return func(s *settings) {
		s.executor = ex
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}
