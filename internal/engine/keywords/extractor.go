package keywords

import (
	"regexp"
	"strings"
)

// wordPattern matches runs of letters (including Latin-1 accented ones) of at
// least two characters.  Digits and punctuation are token boundaries.
var wordPattern = regexp.MustCompile(`[a-zA-ZÀ-ÿ]{2,}`)

// Tokenize lower-cases text and returns every letter run of at least minLen
// characters, in order of appearance.  It is shared by the keyword extractor
// (minLen 3) and the term-frequency text similarity (minLen 2).
func Tokenize(text string, minLen int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	raw := wordPattern.FindAllString(strings.ToLower(text), -1)
	if minLen <= 2 {
		return raw
	}
	out := raw[:0]
	for _, w := range raw {
		if len([]rune(w)) >= minLen {
			out = append(out, w)
		}
	}
	return out
}

// Extractor produces ordered salient-keyword lists from listing text.
// It is a pure function of its lexicon: same text, same tables, same output.
type Extractor struct {
	store *Store
}

// NewExtractor creates an Extractor reading its tables from store, which may
// be hot-reloaded behind it.
func NewExtractor(store *Store) *Extractor {
	return &Extractor{store: store}
}

// Extract returns the salient tokens of text, de-duplicated, with tokens
// matching the brand lexicon first and all others following in first-seen
// order.  Empty or malformed input yields an empty slice, never an error.
func (e *Extractor) Extract(text string) []string {
	lex := e.store.Current()
	stop := lex.stopSet()

	var priority, normal []string
	seen := make(map[string]struct{})

	for _, word := range Tokenize(text, 3) {
		if _, isStop := stop[word]; isStop {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}

		if matchesBrand(word, lex.Brands) {
			priority = append(priority, word)
		} else {
			normal = append(normal, word)
		}
	}
	return append(priority, normal...)
}

// Top returns at most n extracted keywords.
func (e *Extractor) Top(text string, n int) []string {
	kw := e.Extract(text)
	if len(kw) > n {
		return kw[:n]
	}
	return kw
}

// matchesBrand reports whether token contains any brand entry as a substring,
// so compounds like "renaultclio" still rank as priority keywords.
func matchesBrand(token string, brands []string) bool {
	for _, b := range brands {
		if b != "" && strings.Contains(token, b) {
			return true
		}
	}
	return false
}
