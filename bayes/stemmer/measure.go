package stemmer

// consonants classifies every byte of word in a single left-to-right pass.
// A 'y' is a consonant at the start of the word and otherwise takes the
// opposite class of the letter before it.
func consonants(word string) []bool {
	classes := make([]bool, len(word))
	for i := 0; i < len(word); i++ {
		switch word[i] {
		case 'a', 'e', 'i', 'o', 'u':
			classes[i] = false
		case 'y':
			classes[i] = i == 0 || !classes[i-1]
		default:
			classes[i] = true
		}
	}
	return classes
}

// measure counts vowel-sequence to consonant-sequence transitions.
func measure(word string) int {
	m := 0
	inVowels := false
	for _, consonant := range consonants(word) {
		if !consonant {
			inVowels = true
			continue
		}
		if inVowels {
			m++
			inVowels = false
		}
	}
	return m
}

func containsVowel(word string) bool {
	for _, consonant := range consonants(word) {
		if !consonant {
			return true
		}
	}
	return false
}

// endsWithDoubleConsonant reports whether word ends in the same consonant twice.
func endsWithDoubleConsonant(word string) bool {
	n := len(word)
	if n < 2 || word[n-1] != word[n-2] {
		return false
	}
	classes := consonants(word)
	return classes[n-1] && classes[n-2]
}

// endsWithCVC reports a consonant-vowel-consonant ending whose last letter is not w, x or y.
func endsWithCVC(word string) bool {
	n := len(word)
	if n < 3 {
		return false
	}
	classes := consonants(word)
	if !classes[n-1] || classes[n-2] || !classes[n-3] {
		return false
	}
	switch word[n-1] {
	case 'w', 'x', 'y':
		return false
	}
	return true
}
