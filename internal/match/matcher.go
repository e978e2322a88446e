// Package match binds expense announcement messages to the authoritative
// expense records they describe. No stable shared identifier exists at
// message-creation time, so matching walks a priority chain from strongest
// evidence (explicit ids) down to a heuristic time-window correlation kept
// only for messages created before stronger identifiers existed.
package match

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lekos21/moneychat/internal/domain"
	"github.com/lekos21/moneychat/internal/parse"
)

// Window is the timestamp tolerance for heuristic correlation.
const Window = 10 * time.Second

// amountEpsilon absorbs representation drift between the announced amount
// and the stored one.
var amountEpsilon = decimal.NewFromFloat(0.01)

var statedCountRe = regexp.MustCompile(`(?i)\bsaved\s+(\d+)\s+expenses\b`)

// StatedCount extracts the expense count announced by multi-expense
// phrasing, or 0 when the text does not state one.
func StatedCount(content string) int {
	m := statedCountRe.FindStringSubmatch(content)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// Resolve returns the ordered expenses a system message refers to, or an
// empty slice when the message cannot be bound yet. An empty result is a
// no-render state, not an error; a later refetch may resolve it.
func Resolve(msg domain.Message, expenses []domain.Expense) []domain.Expense {
	if len(msg.ExpenseIDs) > 0 {
		return byIDs(msg.ExpenseIDs, expenses)
	}
	if msg.InlineBatch != nil && len(msg.InlineBatch.Expenses) > 0 {
		return msg.InlineBatch.Expenses
	}
	if msg.Inline != nil {
		return []domain.Expense{*msg.Inline}
	}
	if n := StatedCount(msg.Content); n > 1 {
		return byCount(msg, n, expenses)
	}
	return bySingleHeuristic(msg, expenses)
}

// byIDs maps explicit ids through the authoritative list in message order.
// Ids with no matching record are dropped without failing the rest; the
// expense may simply have been deleted since the message was written.
func byIDs(ids []string, expenses []domain.Expense) []domain.Expense {
	index := make(map[string]domain.Expense, len(expenses))
	for _, e := range expenses {
		index[e.ID] = e
	}
	out := make([]domain.Expense, 0, len(ids))
	for _, id := range ids {
		if e, ok := index[id]; ok {
			out = append(out, e)
		}
	}
	return out
}

// bySingleHeuristic correlates a single-expense announcement with one
// record: timestamp within the window, amount within epsilon, and the
// announced description contained case-insensitively in either stored text
// field. First record in list order satisfying all three wins; ties inside
// the window are not broken further.
func bySingleHeuristic(msg domain.Message, expenses []domain.Expense) []domain.Expense {
	parsed := parse.Extract(msg.Content)
	if parsed == nil {
		return nil
	}
	desc := strings.ToLower(strings.TrimSpace(parsed.ShortText))
	for _, e := range expenses {
		if !withinWindow(msg.Timestamp, e.Timestamp) {
			continue
		}
		if e.Amount.Sub(parsed.Amount).Abs().GreaterThan(amountEpsilon) {
			continue
		}
		if desc != "" && !containsFold(e.ShortText, desc) && !containsFold(e.RawText, desc) {
			continue
		}
		return []domain.Expense{e}
	}
	return nil
}

// byCount collects every record inside the window and accepts the set only
// when its size equals the stated count. All or nothing; a partial set
// stays unresolved until a refetch completes it.
func byCount(msg domain.Message, n int, expenses []domain.Expense) []domain.Expense {
	var out []domain.Expense
	for _, e := range expenses {
		if withinWindow(msg.Timestamp, e.Timestamp) {
			out = append(out, e)
		}
	}
	if len(out) != n {
		return nil
	}
	return out
}

func withinWindow(a, b time.Time) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d <= Window
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}
