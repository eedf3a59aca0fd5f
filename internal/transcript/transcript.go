package transcript

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Token is one whitespace-delimited word of a transcript.
type Token struct {
	// Word is the token as it appeared in the transcript.
	Word string `json:"word"`
	// Parts are the lookup keys the token resolves to, in order. A numeric
	// token has one part per digit; any other token has its lower-cased form.
	Parts []string `json:"parts"`
	// Numeric is true when every rune of Word is a digit.
	Numeric bool `json:"numeric"`
}

var lower = cases.Lower(language.Und)

// Tokenize splits text on Unicode whitespace and expands numeric tokens into
// their digits. Order is preserved and repeated words are kept.
func Tokenize(text string) []Token {
	fields := strings.Fields(text)
	tokens := make([]Token, 0, len(fields))

	for _, word := range fields {
		if isNumeric(word) {
			parts := make([]string, 0, len(word))
			for _, r := range word {
				parts = append(parts, string(r))
			}
			tokens = append(tokens, Token{Word: word, Parts: parts, Numeric: true})
			continue
		}
		tokens = append(tokens, Token{Word: word, Parts: []string{lower.String(word)}})
	}

	return tokens
}

// PartCount returns the total number of parts across tokens, which is the
// number of segments a fully resolved transcript produces.
func PartCount(tokens []Token) int {
	n := 0
	for _, t := range tokens {
		n += len(t.Parts)
	}
	return n
}

func isNumeric(word string) bool {
	if word == "" {
		return false
	}
	for _, r := range word {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
