// Package stemmer reduces word tokens to their roots before they are counted.
package stemmer

import "strings"

// suffixRule replaces a suffix once the remaining stem is long enough.
type suffixRule struct {
	suffix      string
	replacement string
}

var derivationalRules = []suffixRule{
	{"ational", "ate"},
	{"tional", "tion"},
	{"enci", "ence"},
	{"anci", "ance"},
	{"izer", "ize"},
	{"abli", "able"},
	{"alli", "al"},
	{"entli", "ent"},
	{"eli", "e"},
	{"ousli", "ous"},
	{"ization", "ize"},
	{"ation", "ate"},
	{"ator", "ate"},
	{"alism", "al"},
	{"iveness", "ive"},
	{"fulness", "ful"},
	{"ousness", "ous"},
	{"aliti", "al"},
	{"iviti", "ive"},
	{"biliti", "ble"},
}

var secondDerivationalRules = []suffixRule{
	{"icate", "ic"},
	{"ative", ""},
	{"alize", "al"},
	{"iciti", "ic"},
	{"ical", "ic"},
	{"ful", ""},
	{"ness", ""},
}

var removableSuffixes = []string{
	"al", "ance", "ence", "er", "ic", "able", "ible", "ant",
	"ement", "ment", "ent", "ion", "ou", "ism", "ate",
	"iti", "ous", "ive", "ize",
}

// Porter is the default suffix-stripping stemmer.
type Porter struct{}

// Stem implements Stemmer.
func (Porter) Stem(word string) string {
	return Stem(word)
}

// Stem returns the root of word. It lower-cases its input and never fails;
// words the rules do not touch come back unchanged.
func Stem(word string) string {
	word = strings.ToLower(word)

	word = normalizePlural(word)
	word = stripInflection(word)
	word = replaceTerminalY(word)
	word = applyFirstRule(word, derivationalRules)
	word = applyFirstRule(word, secondDerivationalRules)
	word = removeSuffix(word)
	word = dropFinalE(word)
	word = reduceDoubleL(word)

	return word
}

func normalizePlural(word string) string {
	switch {
	case strings.HasSuffix(word, "sses"):
		return word[:len(word)-2]
	case strings.HasSuffix(word, "ies"):
		return word[:len(word)-2]
	case strings.HasSuffix(word, "ss"):
		return word
	case strings.HasSuffix(word, "s"):
		return word[:len(word)-1]
	}
	return word
}

func stripInflection(word string) string {
	if strings.HasSuffix(word, "eed") {
		stem := word[:len(word)-3]
		if measure(stem) > 0 {
			return stem + "ee"
		}
		return word
	}

	var stem string
	switch {
	case strings.HasSuffix(word, "ed") && containsVowel(word[:len(word)-2]):
		stem = word[:len(word)-2]
	case strings.HasSuffix(word, "ing") && containsVowel(word[:len(word)-3]):
		stem = word[:len(word)-3]
	default:
		return word
	}

	switch {
	case strings.HasSuffix(stem, "at"), strings.HasSuffix(stem, "bl"), strings.HasSuffix(stem, "iz"):
		return stem + "e"
	case endsWithDoubleConsonant(stem):
		return stem[:len(stem)-1]
	case measure(stem) == 1 && endsWithCVC(stem):
		return stem + "e"
	}
	return stem
}

func replaceTerminalY(word string) string {
	if strings.HasSuffix(word, "y") && containsVowel(word[:len(word)-1]) {
		return word[:len(word)-1] + "i"
	}
	return word
}

// applyFirstRule applies only the first rule whose suffix matches, whether
// or not the measure allows the replacement.
func applyFirstRule(word string, rules []suffixRule) string {
	for _, rule := range rules {
		if !strings.HasSuffix(word, rule.suffix) {
			continue
		}
		stem := word[:len(word)-len(rule.suffix)]
		if measure(stem) > 0 {
			return stem + rule.replacement
		}
		return word
	}
	return word
}

func removeSuffix(word string) string {
	for _, suffix := range removableSuffixes {
		if !strings.HasSuffix(word, suffix) {
			continue
		}
		stem := word[:len(word)-len(suffix)]
		if measure(stem) <= 1 {
			return word
		}
		if suffix == "ion" && !strings.HasSuffix(stem, "s") && !strings.HasSuffix(stem, "t") {
			return word
		}
		return stem
	}
	return word
}

func dropFinalE(word string) string {
	if !strings.HasSuffix(word, "e") {
		return word
	}
	stem := word[:len(word)-1]
	m := measure(stem)
	if m > 1 || (m == 1 && !endsWithCVC(stem)) {
		return stem
	}
	return word
}

func reduceDoubleL(word string) string {
	if !strings.HasSuffix(word, "l") || !endsWithDoubleConsonant(word) {
		return word
	}
	stem := word[:len(word)-1]
	if measure(stem) > 1 {
		return stem
	}
	return word
}
