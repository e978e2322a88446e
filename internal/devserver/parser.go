package devserver

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/lekos21/moneychat/internal/domain"
	"github.com/lekos21/moneychat/internal/heuristic"
)

// naive regex extraction standing in for the production parsing agents.
var moneyRe = regexp.MustCompile(`(?i)([€$£])?\s*([0-9]+(?:[.,][0-9]{1,2})?)\s*(euros?|dollars?|pounds?|eur|usd|gbp|quid|bucks?|[€$£])?`)

var splitRe = regexp.MustCompile(`(?i)\s*(?:,|;|\band\b|\bplus\b)\s*`)

var wordToCode = map[string]string{
	"euro": "EUR", "euros": "EUR", "eur": "EUR", "€": "EUR",
	"dollar": "USD", "dollars": "USD", "usd": "USD", "buck": "USD", "bucks": "USD", "$": "USD",
	"pound": "GBP", "pounds": "GBP", "gbp": "GBP", "quid": "GBP", "£": "GBP",
}

// parseOne extracts a single expense from free text, or nil when no
// positive amount is present.
func parseOne(text string) *domain.Expense {
	m := moneyRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	amount, err := decimal.NewFromString(strings.Replace(m[2], ",", ".", 1))
	if err != nil || !amount.IsPositive() {
		return nil
	}

	currency := "EUR"
	if code, ok := wordToCode[strings.ToLower(m[1])]; ok {
		currency = code
	} else if code, ok := wordToCode[strings.ToLower(m[3])]; ok {
		currency = code
	}

	short := shortText(text)
	guess := heuristic.Categorize(text)
	return &domain.Expense{
		Amount:    amount,
		Currency:  currency,
		ShortText: short,
		RawText:   text,
		AreaTags:  []string{guess.Category},
	}
}

// parseMany splits the text on list separators and extracts an expense
// from each segment, skipping segments without one.
func parseMany(text string) []domain.Expense {
	var out []domain.Expense
	for _, segment := range splitRe.Split(text, -1) {
		if strings.TrimSpace(segment) == "" {
			continue
		}
		if e := parseOne(segment); e != nil {
			out = append(out, *e)
		}
	}
	return out
}

var fillerWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "this": true,
	"that": true, "spent": true, "paid": true, "bought": true, "got": true,
	"from": true, "was": true, "today": true, "yesterday": true, "on": true,
	"a": true, "an": true, "at": true, "in": true, "some": true,
}

// shortText keeps up to three content words as the description.
func shortText(text string) string {
	var words []string
	for _, tok := range strings.Fields(text) {
		word := strings.ToLower(strings.Trim(tok, ".,!?;:"))
		if word == "" || fillerWords[word] {
			continue
		}
		if strings.ContainsAny(word, "0123456789€$£") {
			continue
		}
		if _, isCurrency := wordToCode[word]; isCurrency {
			continue
		}
		words = append(words, word)
		if len(words) == 3 {
			break
		}
	}
	if len(words) == 0 {
		return "expense"
	}
	return strings.Join(words, " ")
}
