// Package parse ships the default implementations of the collaborator
// functions the engine treats as injected: price extraction and rejection
// classification over free-form agent text. Both are best-effort; callers
// with stronger parsers (structured output, an LLM classifier) should inject
// their own via the environment options.
package parse

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	currencyRe = regexp.MustCompile(`(?:\$|USD\s?)([0-9][0-9,]*(?:\.[0-9]+)?)`)
	numberRe   = regexp.MustCompile(`\b([0-9][0-9,]*(?:\.[0-9]+)?)\b`)
	rejectRe   = regexp.MustCompile(`(?i)\b(no deal|walk away|walking away|not interested|i reject|we reject|reject (?:this|your|the) offer|decline|withdraw)\b`)
)

// Price extracts the price an utterance commits to. Currency-marked numbers
// take precedence over bare ones; among candidates the last mention wins,
// since negotiators state their final figure at the end ("I was at 120, but
// I can do $110").
func Price(text string) (float64, bool) {
	matches := currencyRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		matches = numberRe.FindAllStringSubmatch(text, -1)
	}
	if len(matches) == 0 {
		return 0, false
	}
	raw := strings.ReplaceAll(matches[len(matches)-1][1], ",", "")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// IsRejection reports whether the utterance is an explicit walk-away.
func IsRejection(text string) bool { return rejectRe.MatchString(text) }
