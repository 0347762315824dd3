// Package skills scores the overlap between a candidate's skills and the
// skills a posting asks for.
package skills

import (
	"strings"
	"unicode/utf8"
)

const (
	exactWeight   = 1.0
	partialWeight = 0.6
	// Tokens of this length or shorter never take part in substring matching.
	minPartialLen = 2
)

// Match is the result of comparing two comma-separated skill lists.
type Match struct {
	Exact   int
	Partial int
	// Score is relative to the number of user tokens, so it is not symmetric.
	Score float64
}

// Tokens splits a comma-separated skill list into a set of lowercase tokens.
func Tokens(s string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, part := range strings.Split(s, ",") {
		token := strings.ToLower(strings.TrimSpace(part))
		if token == "" {
			continue
		}
		tokens[token] = struct{}{}
	}
	return tokens
}

// Relevance compares the user's skills against the posting's skills.
//
// A user token that is not an exact match counts as a partial match at most
// once, on the first posting token where one of them contains the other.
func Relevance(userSkills, postingSkills string) Match {
	user := Tokens(userSkills)
	posting := Tokens(postingSkills)

	if len(user) == 0 || len(posting) == 0 {
		return Match{}
	}

	exact := 0
	for token := range user {
		if _, ok := posting[token]; ok {
			exact++
		}
	}

	partial := 0
	for u := range user {
		if _, ok := posting[u]; ok {
			continue
		}
		if utf8.RuneCountInString(u) <= minPartialLen {
			continue
		}
		for p := range posting {
			if utf8.RuneCountInString(p) <= minPartialLen {
				continue
			}
			if strings.Contains(p, u) || strings.Contains(u, p) {
				partial++
				break
			}
		}
	}

	score := (float64(exact)*exactWeight + float64(partial)*partialWeight) / float64(len(user))

	return Match{Exact: exact, Partial: partial, Score: score}
}
