package stemmer

import (
	"github.com/cockroachdb/errors"
	"github.com/kljensen/snowball"
)

// Stemmer maps a lower-cased token to its root.
type Stemmer interface {
	Stem(word string) string
}

// Names of the built-in stemmers.
const (
	PorterName   = "porter"
	SnowballName = "snowball"
	NoneName     = "none"
)

// ErrUnknownStemmer is returned by ByName for names it does not recognize.
var ErrUnknownStemmer = errors.New("unknown stemmer")

// Snowball stems with the snowball algorithm for Language.
type Snowball struct {
	Language string
}

// Stem implements Stemmer. Tokens snowball rejects are returned unchanged.
func (s Snowball) Stem(word string) string {
	language := s.Language
	if language == "" {
		language = "english"
	}
	stemmed, err := snowball.Stem(word, language, false)
	if err != nil {
		return word
	}
	return stemmed
}

// None leaves tokens untouched.
type None struct{}

// Stem implements Stemmer.
func (None) Stem(word string) string {
	return word
}

// ByName resolves a stemmer by its configuration name. An empty name selects Porter.
func ByName(name string) (Stemmer, error) {
	switch name {
	case "", PorterName:
		return Porter{}, nil
	case SnowballName:
		return Snowball{Language: "english"}, nil
	case NoneName:
		return None{}, nil
	}
	return nil, errors.Wrapf(ErrUnknownStemmer, "%q", name)
}
