package parse

import (
	"context"

	"github.com/lekos21/moneychat/internal/domain"
)

// RemoteParser is the remote expense-parsing service, in its two variants.
// Implemented by the HTTP API client and by the direct LLM provider.
type RemoteParser interface {
	ParseExpense(ctx context.Context, text string, persist bool) (domain.Expense, error)
	ParseExpenses(ctx context.Context, text string, persist bool) (domain.ExpenseBatch, error)
}

// Result is the uniform dispatch outcome regardless of which variant ran.
// A failed call is reported through Err with empty Expenses; callers treat
// that as "no expenses found" and keep the conversation going.
type Result struct {
	Expenses   []domain.Expense
	TotalCount int
	Err        string
}

// Failed reports whether the dispatch produced no usable expenses.
func (r Result) Failed() bool { return len(r.Expenses) == 0 }

// Dispatcher routes raw text to the right remote parsing variant based on
// the monetary-value count.
type Dispatcher struct {
	Remote RemoteParser
}

// Dispatch classifies text and invokes the matching variant. Errors never
// propagate: they are folded into the result. A single-variant parse whose
// amount comes back zero or negative is retried exactly once with a
// simplified restatement of the input before being reported as a failure.
func (d *Dispatcher) Dispatch(ctx context.Context, text string, persist bool) Result {
	if Classify(text) == Multiple {
		batch, err := d.Remote.ParseExpenses(ctx, text, persist)
		if err != nil {
			return Result{Err: err.Error()}
		}
		return Result{Expenses: batch.Expenses, TotalCount: batch.TotalCount}
	}

	e, err := d.Remote.ParseExpense(ctx, text, persist)
	if err != nil {
		return Result{Err: err.Error()}
	}
	if !e.Valid() {
		retry, rerr := d.Remote.ParseExpense(ctx, Simplify(text), persist)
		if rerr != nil || !retry.Valid() {
			return Result{Err: "could not extract a positive amount"}
		}
		e = retry
	}
	return Result{Expenses: []domain.Expense{e}, TotalCount: 1}
}
