// Package tokenizer turns raw text into the ordered feature sequence the
// classifier counts: lower-cased, stopword-filtered, stemmed tokens expanded
// into n-gram windows.
package tokenizer

import (
	"iter"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/hickeroar/ngrambayes/bayes/stemmer"
)

var nonWordPattern = regexp.MustCompile(`\W+`)

// Options configures a Tokenizer.
type Options struct {
	Stopwords   []string        // Tokens dropped before stemming
	Depth       int             // Longest n-gram emitted; values below 1 mean unigrams only
	Stemmer     stemmer.Stemmer // Defaults to stemmer.Porter
	FoldAccents bool            // Strip combining marks before splitting
}

// Tokenizer extracts features. It holds no mutable state and is safe for concurrent use.
type Tokenizer struct {
	stopwords   map[string]struct{}
	depth       int
	stemmer     stemmer.Stemmer
	foldAccents bool
}

// New returns a pointer to a Tokenizer configured by opts.
func New(opts Options) *Tokenizer {
	t := &Tokenizer{
		stopwords:   make(map[string]struct{}, len(opts.Stopwords)),
		depth:       opts.Depth,
		stemmer:     opts.Stemmer,
		foldAccents: opts.FoldAccents,
	}
	if t.depth < 1 {
		t.depth = 1
	}
	if t.stemmer == nil {
		t.stemmer = stemmer.Porter{}
	}

	lower := cases.Lower(language.Und)
	for _, word := range opts.Stopwords {
		word = lower.String(strings.TrimSpace(word))
		if word != "" {
			t.stopwords[word] = struct{}{}
		}
	}

	return t
}

// Depth returns the longest n-gram this tokenizer emits.
func (t *Tokenizer) Depth() int {
	return t.depth
}

// IsStopword reports whether word is filtered out before stemming.
func (t *Tokenizer) IsStopword(word string) bool {
	_, ok := t.stopwords[word]
	return ok
}

// Tokens returns the stemmed word tokens of text, in order.
func (t *Tokenizer) Tokens(text string) []string {
	if t.foldAccents {
		text = foldAccents(text)
	}
	text = cases.Lower(language.Und).String(text)

	var tokens []string
	for _, word := range nonWordPattern.Split(text, -1) {
		if word == "" || t.IsStopword(word) {
			continue
		}
		if stem := t.stemmer.Stem(word); stem != "" {
			tokens = append(tokens, stem)
		}
	}
	return tokens
}

// Features returns every n-gram of text up to the configured depth: all
// unigrams first, then all bigrams, and so on. A window that would run past
// the last token is skipped. The sequence can be ranged over more than once.
func (t *Tokenizer) Features(text string) iter.Seq[string] {
	tokens := t.Tokens(text)
	return func(yield func(string) bool) {
		for order := 0; order < t.depth; order++ {
			for i := 0; i+order < len(tokens); i++ {
				feature := tokens[i]
				if order > 0 {
					feature = strings.Join(tokens[i:i+order+1], " ")
				}
				if !yield(feature) {
					return
				}
			}
		}
	}
}

// FeatureList collects Features into a slice.
func (t *Tokenizer) FeatureList(text string) []string {
	var features []string
	for feature := range t.Features(text) {
		features = append(features, feature)
	}
	return features
}

// ExtractFeatures tokenizes text with the default stemmer.
func ExtractFeatures(text string, stopwords []string, depth int) []string {
	return New(Options{Stopwords: stopwords, Depth: depth}).FeatureList(text)
}

func foldAccents(text string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, text)
	if err != nil {
		return text
	}
	return folded
}
