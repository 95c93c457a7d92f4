package domain

import (
	"strings"
	"unicode"
)

// stopwords are filler terms excluded from title token comparison. The set
// covers both the Hebrew and English phrasing users mix into requests.
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "with": {}, "is": {}, "are": {},
	"series": {}, "movie": {}, "film": {}, "show": {},
	"את": {}, "של": {}, "על": {}, "עם": {}, "זה": {}, "יש": {}, "לא": {},
	"הסדרה": {}, "הסרט": {}, "סדרה": {}, "סרט": {}, "בבקשה": {},
}

// NormalizeTitle prepares a title for storage and comparison: lowercase,
// punctuation replaced by spaces, runs of whitespace collapsed.
func NormalizeTitle(title string) string {
	title = strings.ToLower(strings.TrimSpace(title))
	if title == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(title))
	prevSpace := false
	for _, r := range title {
		if !unicode.IsLetter(r) && !unicode.IsNumber(r) {
			r = ' '
		}
		if r == ' ' {
			if prevSpace {
				continue
			}
			prevSpace = true
		} else {
			prevSpace = false
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// TitleTokens splits a normalized title into comparison tokens with
// stopwords removed. Returns nil for an empty or all-stopword title.
func TitleTokens(title string) []string {
	fields := strings.Fields(NormalizeTitle(title))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, skip := stopwords[f]; skip {
			continue
		}
		tokens = append(tokens, f)
	}
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}
