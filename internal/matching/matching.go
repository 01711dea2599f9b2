// Package matching evaluates free-text patterns against document text and
// applies the match rules attached to tags, correspondents, document types,
// and storage paths.
package matching

import (
	"regexp"
	"strings"
	"sync"
)

// Algorithm selects how a pattern is compared with text.
type Algorithm string

const (
	None  Algorithm = "none"
	Any   Algorithm = "any"
	All   Algorithm = "all"
	Exact Algorithm = "exact"
	Regex Algorithm = "regex"
	Fuzzy Algorithm = "fuzzy"
	Auto  Algorithm = "auto"
)

// FuzzyThreshold is the minimum similarity ratio for a fuzzy match.
const FuzzyThreshold = 0.70

// ParseAlgorithm normalizes s to a known Algorithm. Unknown values parse to None.
func ParseAlgorithm(s string) Algorithm {
	switch a := Algorithm(strings.ToLower(strings.TrimSpace(s))); a {
	case Any, All, Exact, Regex, Fuzzy, Auto:
		return a
	default:
		return None
	}
}

var tokenPattern = regexp.MustCompile(`"([^"]*)"|(\S+)`)

var regexCache sync.Map

// Match reports whether text satisfies pattern under algorithm.
func Match(text string, algorithm Algorithm, pattern string) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return false
	}

	text = strings.ToLower(strings.TrimSpace(text))

	switch ParseAlgorithm(string(algorithm)) {
	case Any:
		for _, tok := range Tokenize(pattern) {
			if strings.Contains(text, tok) {
				return true
			}
		}
		return false
	case All:
		tokens := Tokenize(pattern)
		if len(tokens) == 0 {
			return false
		}
		for _, tok := range tokens {
			if !strings.Contains(text, tok) {
				return false
			}
		}
		return true
	case Exact:
		return strings.Contains(text, strings.ToLower(pattern))
	case Regex:
		re := compile(pattern)
		return re != nil && re.MatchString(text)
	case Fuzzy, Auto:
		return Similarity(text, strings.ToLower(pattern)) >= FuzzyThreshold
	default:
		return false
	}
}

// Tokenize splits pattern into lowercased quoted phrases and bare terms.
// Empty phrases are dropped.
func Tokenize(pattern string) []string {
	matches := tokenPattern.FindAllStringSubmatch(pattern, -1)
	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		tok := m[2]
		if m[1] != "" {
			tok = m[1]
		}
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok == "" || tok == `"` {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// compile returns the cached case-insensitive regexp for pattern,
// or nil when pattern does not compile.
func compile(pattern string) *regexp.Regexp {
	if v, ok := regexCache.Load(pattern); ok {
		return v.(*regexp.Regexp)
	}

	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		re = nil
	}
	regexCache.Store(pattern, re)
	return re
}
