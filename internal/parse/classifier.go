package parse

import "regexp"

// Kind selects which remote parsing variant to invoke.
type Kind string

const (
	Single   Kind = "single"
	Multiple Kind = "multiple"
)

// moneyRe matches one monetary value: optional symbol, digits, optional
// 2-decimal fraction, optional currency word. Bare numbers count as matches,
// so text with incidental numbers (a date, "2 tickets") can be misclassified
// as multiple. That is a known limitation of the counting approach, kept
// deliberately instead of special-casing.
var moneyRe = regexp.MustCompile(`(?i)([€$£])?\s*([0-9]+(?:[.,][0-9]{1,2})?)(?:\s*(euros?|dollars?|pounds?|eur|usd|gbp|quid|bucks?))?`)

// CountMonetary returns the number of monetary-pattern matches in text.
func CountMonetary(text string) int {
	return len(moneyRe.FindAllString(text, -1))
}

// Classify returns Single for zero or one monetary match, Multiple for two
// or more. The count is the sole signal; no semantic analysis.
func Classify(text string) Kind {
	if CountMonetary(text) <= 1 {
		return Single
	}
	return Multiple
}
