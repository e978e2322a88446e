// Package parse extracts structured expense data from chat message text.
// It covers every announcement format the transcript has ever used: an
// embedded JSON block, the "Expense saved: <desc> - <sym><amount>" one-liner,
// and the line-oriented Amount:/Area:/ID: form. It also classifies raw user
// text as a single- or multi-expense utterance and dispatches it to the
// remote parser accordingly.
package parse

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lekos21/moneychat/internal/domain"
	"github.com/lekos21/moneychat/internal/heuristic"
)

var symbolToCode = map[string]string{"€": "EUR", "$": "USD", "£": "GBP"}

var codeToSymbol = map[string]string{"EUR": "€", "USD": "$", "GBP": "£"}

// Symbol returns the display symbol for an ISO currency code, falling back
// to the code itself.
func Symbol(code string) string {
	if s, ok := codeToSymbol[strings.ToUpper(code)]; ok {
		return s
	}
	return code
}

var (
	savedRe  = regexp.MustCompile(`(?i)expense saved:\s*(.+?)\s*-\s*([€$£])\s*([0-9]+(?:[.,][0-9]{1,2})?)`)
	amountRe = regexp.MustCompile(`(?im)^amount:\s*([0-9]+(?:[.,][0-9]{1,2})?)(?:\s*([A-Za-z]{3}))?\s*$`)
	areaRe   = regexp.MustCompile(`(?im)^area:\s*([\w-]+)`)
	idRe     = regexp.MustCompile(`(?im)^id:\s*([\w-]+)`)
	descRe   = regexp.MustCompile(`(?im)^description:\s*(.+)$`)
)

// jsonExpense is the loose shape accepted from embedded JSON blocks. Legacy
// announcements embedded the raw parser output, so field presence varies.
type jsonExpense struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	ShortText   string          `json:"short_text"`
	RawText     string          `json:"raw_text"`
	AreaTags    []string        `json:"area_tags"`
	ContextTags []string        `json:"context_tags"`
	TagID       string          `json:"tag_id"`
}

// Extract attempts each known announcement format in order and returns the
// first successful extraction, or nil when no amount can be found, meaning
// the message is just conversation. Pure; no caching, no styling.
func Extract(content string) *domain.Expense {
	if e := extractJSONBlock(content); e != nil {
		return e
	}
	if m := savedRe.FindStringSubmatch(content); m != nil {
		amount := parseAmount(m[3])
		if amount.IsPositive() {
			return &domain.Expense{
				Amount:    amount,
				Currency:  symbolToCode[m[2]],
				ShortText: strings.TrimSpace(m[1]),
				RawText:   content,
			}
		}
	}
	if m := amountRe.FindStringSubmatch(content); m != nil {
		amount := parseAmount(m[1])
		if !amount.IsPositive() {
			return nil
		}
		currency := "EUR"
		if m[2] != "" {
			currency = strings.ToUpper(m[2])
		}
		e := &domain.Expense{Amount: amount, Currency: currency, RawText: content}
		if dm := descRe.FindStringSubmatch(content); dm != nil {
			e.ShortText = strings.TrimSpace(dm[1])
		}
		if am := areaRe.FindStringSubmatch(content); am != nil {
			e.AreaTags = []string{strings.ToLower(am[1])}
		}
		if im := idRe.FindStringSubmatch(content); im != nil {
			e.ID = im[1]
		}
		return e
	}
	return nil
}

// extractJSONBlock finds a candidate block between the first '{' and the
// last '}' (index scan, not a brace matcher) and tries to decode it.
func extractJSONBlock(content string) *domain.Expense {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil
	}
	var je jsonExpense
	if err := json.Unmarshal([]byte(content[start:end+1]), &je); err != nil {
		return nil
	}
	if !je.Amount.IsPositive() {
		return nil
	}
	e := &domain.Expense{
		ID:          je.ID,
		Amount:      je.Amount,
		Currency:    strings.ToUpper(je.Currency),
		ShortText:   je.ShortText,
		RawText:     je.RawText,
		AreaTags:    je.AreaTags,
		ContextTags: je.ContextTags,
		TagID:       je.TagID,
	}
	if e.Currency == "" {
		e.Currency = "EUR"
	}
	if e.RawText == "" {
		e.RawText = content
	}
	return e
}

func parseAmount(s string) decimal.Decimal {
	s = strings.Replace(s, ",", ".", 1)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Parser is the local fallback parser: it extracts an expense from message
// text and immediately attaches category styling so the UI has something to
// show before any network round trip completes. Outcomes are memoized per
// message id in the injected cache.
type Parser struct {
	cache *Cache
	now   func() time.Time
}

func NewParser(cache *Cache) *Parser {
	return &Parser{cache: cache, now: time.Now}
}

// Parse returns the (possibly nil) locally extracted expense for a message.
// The same message id is never re-parsed.
func (p *Parser) Parse(messageID, content string) *domain.Expense {
	if e, ok := p.cache.Expense(messageID); ok {
		return e
	}
	e := Extract(content)
	if e != nil {
		if e.ID == "" {
			e.ID = domain.ParsedExpenseID(messageID)
		}
		if e.Timestamp.IsZero() {
			e.Timestamp = p.now().UTC()
		}
		if len(e.AreaTags) == 0 {
			guess := heuristic.Categorize(firstNonEmpty(e.ShortText, e.RawText))
			e.AreaTags = []string{guess.Category}
		}
	}
	p.cache.PutExpense(messageID, e)
	return e
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

var currencyWords = map[string]string{
	"euro": "€", "euros": "€", "eur": "€",
	"dollar": "$", "dollars": "$", "usd": "$", "buck": "$", "bucks": "$",
	"pound": "£", "pounds": "£", "gbp": "£", "quid": "£",
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "this": true,
	"that": true, "spent": true, "paid": true, "bought": true, "got": true,
	"from": true, "was": true, "today": true, "yesterday": true,
}

// Simplify strips user text down to "amount + currency symbol + one keyword",
// used as a second attempt when the remote parser returned a zero amount.
// Text without a detectable amount is returned unchanged.
func Simplify(text string) string {
	m := moneyRe.FindStringSubmatch(text)
	if m == nil {
		return strings.TrimSpace(text)
	}
	symbol := m[1]
	if symbol == "" {
		if s, ok := currencyWords[strings.ToLower(m[3])]; ok {
			symbol = s
		} else {
			symbol = "€"
		}
	}
	keyword := ""
	for _, tok := range strings.Fields(text) {
		word := strings.ToLower(strings.Trim(tok, ".,!?;:"))
		if len(word) < 3 || stopwords[word] {
			continue
		}
		if strings.ContainsAny(word, "0123456789€$£") {
			continue
		}
		if _, isCurrency := currencyWords[word]; isCurrency {
			continue
		}
		keyword = word
		break
	}
	out := m[2] + symbol
	if keyword != "" {
		out += " " + keyword
	}
	return out
}
