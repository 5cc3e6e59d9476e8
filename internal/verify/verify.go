// Package verify grades a spoken answer against the expected one.
package verify

import (
	"fmt"
	"strings"
	"unicode"
)

// DefaultMinOverlap is the share of significant expected words an answer must contain.
const DefaultMinOverlap = 0.6

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "are": {}, "was": {}, "were": {}, "its": {}, "for": {},
	"that": {}, "this": {}, "with": {}, "from": {}, "called": {}, "right": {}, "you": {},
	"your": {}, "they": {}, "them": {}, "his": {}, "her": {}, "has": {}, "have": {}, "had": {},
	"but": {}, "not": {}, "all": {}, "any": {}, "can": {}, "will": {}, "what": {}, "which": {},
	"who": {}, "how": {}, "why": {}, "when": {}, "where": {}, "into": {}, "onto": {}, "than": {},
	"then": {}, "there": {}, "their": {}, "about": {}, "answer": {}, "think": {}, "thats": {},
}

// Result is the verdict for one answer.
type Result struct {
	Correct bool    `json:"correct"`
	Message string  `json:"message"`
	Score   float64 `json:"score"`
}

type Checker struct {
	MinOverlap float64
}

func NewChecker(minOverlap float64) Checker {
	if minOverlap <= 0 || minOverlap > 1 {
		minOverlap = DefaultMinOverlap
	}
	return Checker{MinOverlap: minOverlap}
}

// Check tries an exact match, then whole-phrase containment, then keyword overlap.
func (c Checker) Check(expected, answer string) Result {
	exp := Normalize(expected)
	got := Normalize(answer)

	score := 0.0
	correct := false
	switch {
	case got == "" || exp == "":
	case got == exp:
		correct, score = true, 1
	case strings.Contains(" "+got+" ", " "+exp+" "):
		correct, score = true, 1
	default:
		score = overlap(exp, got)
		correct = score >= c.threshold()
	}

	return Result{Correct: correct, Message: message(expected, correct), Score: score}
}

func (c Checker) threshold() float64 {
	if c.MinOverlap <= 0 || c.MinOverlap > 1 {
		return DefaultMinOverlap
	}
	return c.MinOverlap
}

// Normalize lower-cases, strips punctuation and collapses whitespace.
func Normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '/':
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func significant(s string) []string {
	var out []string
	seen := map[string]bool{}
	for _, w := range strings.Fields(s) {
		if len(w) < 3 || seen[w] {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

func overlap(expected, answer string) float64 {
	keys := significant(expected)
	if len(keys) == 0 {
		return 0
	}
	words := map[string]bool{}
	for _, w := range strings.Fields(answer) {
		words[w] = true
	}
	hit := 0
	for _, k := range keys {
		if words[k] {
			hit++
		}
	}
	return float64(hit) / float64(len(keys))
}

func message(expected string, correct bool) string {
	exp := strings.TrimRight(strings.TrimSpace(expected), ".!?")
	if correct {
		return fmt.Sprintf("Correct! The answer is %s.", exp)
	}
	return fmt.Sprintf("Not quite. The answer was %s.", exp)
}
