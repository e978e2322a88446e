package match

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/lekos21/moneychat/internal/domain"
)

var baseTime = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func expense(id, short, amount string, offset time.Duration) domain.Expense {
	return domain.Expense{
		ID:        id,
		Amount:    decimal.RequireFromString(amount),
		Currency:  "EUR",
		ShortText: short,
		RawText:   short,
		Timestamp: baseTime.Add(offset),
	}
}

func TestResolveExplicitIDsInMessageOrder(t *testing.T) {
	t.Parallel()

	msg := domain.Message{Type: domain.MessageSystem, ExpenseIDs: []string{"a", "b"}}
	list := []domain.Expense{
		expense("b", "Beer", "5", 0),
		expense("a", "Taxi", "12", 0),
	}

	got := Resolve(msg, list)
	require.Len(t, got, 2)
	require.Equal(t, "a", got[0].ID)
	require.Equal(t, "b", got[1].ID)
}

func TestResolveExplicitIDsDropsMissingSilently(t *testing.T) {
	t.Parallel()

	msg := domain.Message{ExpenseIDs: []string{"a", "gone", "b"}}
	list := []domain.Expense{expense("a", "Taxi", "12", 0), expense("b", "Beer", "5", 0)}

	got := Resolve(msg, list)
	require.Len(t, got, 2)
	require.Equal(t, []string{"a", "b"}, []string{got[0].ID, got[1].ID})
}

func TestResolveInlinePayload(t *testing.T) {
	t.Parallel()

	inline := expense("parsed-m1", "Coffee", "4.50", 0)
	msg := domain.Message{Inline: &inline}

	got := Resolve(msg, nil)
	require.Len(t, got, 1)
	require.Equal(t, "parsed-m1", got[0].ID)

	batch := domain.Message{InlineBatch: &domain.ExpenseBatch{
		Expenses:   []domain.Expense{expense("x", "A", "1", 0), expense("y", "B", "2", 0)},
		TotalCount: 2,
	}}
	got = Resolve(batch, nil)
	require.Len(t, got, 2)
}

func TestResolveSingleHeuristicWithinWindow(t *testing.T) {
	t.Parallel()

	msg := domain.Message{
		Type:      domain.MessageSystem,
		Content:   "Expense saved: Coffee - $4.50",
		Timestamp: baseTime,
	}
	list := []domain.Expense{
		expense("e1", "Morning Coffee run", "4.50", 3*time.Second),
	}

	got := Resolve(msg, list)
	require.Len(t, got, 1)
	require.Equal(t, "e1", got[0].ID)
}

func TestResolveSingleHeuristicOutsideWindow(t *testing.T) {
	t.Parallel()

	msg := domain.Message{
		Content:   "Expense saved: Coffee - $4.50",
		Timestamp: baseTime,
	}
	list := []domain.Expense{
		expense("e1", "Coffee", "4.50", 15*time.Second),
	}

	require.Empty(t, Resolve(msg, list))
}

func TestResolveSingleHeuristicAmountEpsilon(t *testing.T) {
	t.Parallel()

	msg := domain.Message{Content: "Expense saved: Coffee - $4.50", Timestamp: baseTime}

	near := []domain.Expense{expense("e1", "Coffee", "4.51", 0)}
	require.Len(t, Resolve(msg, near), 1)

	far := []domain.Expense{expense("e1", "Coffee", "4.60", 0)}
	require.Empty(t, Resolve(msg, far))
}

func TestResolveSingleHeuristicFirstByListOrder(t *testing.T) {
	t.Parallel()

	msg := domain.Message{Content: "Expense saved: Coffee - $4.50", Timestamp: baseTime}
	list := []domain.Expense{
		expense("first", "coffee one", "4.50", 2*time.Second),
		expense("second", "coffee two", "4.50", 1*time.Second),
	}

	got := Resolve(msg, list)
	require.Len(t, got, 1)
	require.Equal(t, "first", got[0].ID)
}

func TestResolveMultiCountAllOrNothing(t *testing.T) {
	t.Parallel()

	msg := domain.Message{
		Content:   "Saved 2 expenses totaling €13.00",
		Timestamp: baseTime,
	}
	inWindow := []domain.Expense{
		expense("a", "Beer", "5", 2*time.Second),
		expense("b", "Burger", "8", 4*time.Second),
	}
	require.Len(t, Resolve(msg, inWindow), 2)

	// A third record inside the window breaks the count; nothing matches.
	extra := append(inWindow, expense("c", "Bus", "2", 5*time.Second))
	require.Empty(t, Resolve(msg, extra))

	// Only one found so far; stays unresolved until a refetch.
	require.Empty(t, Resolve(msg, inWindow[:1]))
}

func TestStatedCount(t *testing.T) {
	t.Parallel()

	require.Equal(t, 3, StatedCount("Saved 3 expenses totaling €20.00"))
	require.Equal(t, 0, StatedCount("Expense saved: Coffee - €4.50"))
	require.Equal(t, 0, StatedCount("hello"))
}
