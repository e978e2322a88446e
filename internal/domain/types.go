package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MessageType distinguishes user-authored chat entries from system replies.
type MessageType string

const (
	MessageUser   MessageType = "user"
	MessageSystem MessageType = "system"
)

// Message is one chat transcript entry. System messages announcing saved
// expenses may carry the expense binding three ways, reflecting the formats
// that have existed over time: an explicit id list (current), an inline
// single expense payload, or an inline batch payload. Older messages carry
// none and are re-bound heuristically at render time.
type Message struct {
	ID          string        `json:"id"`
	Content     string        `json:"content"`
	Type        MessageType   `json:"message_type"`
	Timestamp   time.Time     `json:"timestamp"`
	ExpenseIDs  []string      `json:"expense_ids,omitempty"`
	Inline      *Expense      `json:"expense_data,omitempty"`
	InlineBatch *ExpenseBatch `json:"expense_batch,omitempty"`
}

// Expense is a single structured spending record. The permanent id is always
// server-issued; locally parsed records use an ephemeral "parsed-" id until
// the authoritative copy arrives.
type Expense struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	ShortText   string          `json:"short_text"`
	RawText     string          `json:"raw_text"`
	Timestamp   time.Time       `json:"timestamp"`
	AreaTags    []string        `json:"area_tags"`
	ContextTags []string        `json:"context_tags"`
	TagID       string          `json:"tag_id,omitempty"`
	// Tag is an inline tag object attached to some legacy records.
	Tag *Tag `json:"tag,omitempty"`
}

// Valid reports whether the record counts as a successful parse.
// Zero and negative amounts signal parse failure, not a real expense.
func (e Expense) Valid() bool {
	return e.Amount.IsPositive()
}

// ExpenseBatch is the uniform multi-expense result shape.
type ExpenseBatch struct {
	Expenses   []Expense `json:"expenses"`
	TotalCount int       `json:"total_count"`
}

// Facet values for tags.
const (
	FacetArea    = "area"
	FacetContext = "context"
)

// TagColors holds the display colors for a tag chip.
type TagColors struct {
	Hex           string `json:"hex"`
	BackgroundHex string `json:"background_hex"`
	TextHex       string `json:"text_hex"`
}

// Tag is styling/grouping metadata for an expense category axis.
// Immutable from the client's point of view within a session.
type Tag struct {
	TagID    string    `json:"tag_id"`
	Facet    string    `json:"facet"`
	Name     string    `json:"name"`
	Icon     string    `json:"icon"`
	Colors   TagColors `json:"colors"`
	Synonyms []string  `json:"synonyms"`
	Active   bool      `json:"active"`
}

// TempMessageID and ParsedExpenseID build the ephemeral ids used for
// optimistic entries. These ids are never sent to the server.
func TempMessageID(id string) string      { return "tmp-" + id }
func ParsedExpenseID(msgID string) string { return "parsed-" + msgID }

// Ephemeral reports whether id is a locally generated placeholder.
func Ephemeral(id string) bool {
	return strings.HasPrefix(id, "tmp-") || strings.HasPrefix(id, "parsed-")
}
