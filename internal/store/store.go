// Package store owns the in-memory message and expense collections and the
// optimistic merge discipline between locally created entries and server
// truth. All mutation goes through these methods; nothing else writes to
// the collections directly.
package store

import (
	"sync"

	"github.com/lekos21/moneychat/internal/domain"
)

// EntryState tracks an entry through its reconciliation lifecycle.
type EntryState int

const (
	// Pending entries were created locally and not yet acknowledged by the
	// server. They carry a temporary id and survive revalidation.
	Pending EntryState = iota
	// Confirmed entries carry a server-issued id.
	Confirmed
)

type messageEntry struct {
	msg   domain.Message
	state EntryState
}

type expenseEntry struct {
	exp   domain.Expense
	state EntryState
}

// Store is the reactive cache. A zero value is not usable; construct with New.
type Store struct {
	mu         sync.Mutex
	messages   []messageEntry
	expenses   []expenseEntry
	processing int
	lastErr    error
}

func New() *Store {
	return &Store{}
}

// Messages returns the current transcript in order.
func (s *Store) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, len(s.messages))
	for i, e := range s.messages {
		out[i] = e.msg
	}
	return out
}

// Expenses returns the current expense list in order.
func (s *Store) Expenses() []domain.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Expense, len(s.expenses))
	for i, e := range s.expenses {
		out[i] = e.exp
	}
	return out
}

// AppendMessage inserts an optimistic message immediately, before any
// server confirmation.
func (s *Store) AppendMessage(m domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, messageEntry{msg: m, state: Pending})
}

// ReconcileMessage replaces the entry holding tempID with the server copy,
// preserving list position. When the entry was already superseded by a full
// refetch the server copy is appended instead; the merge never drops data.
func (s *Store) ReconcileMessage(tempID string, server domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.messages {
		if e.msg.ID == tempID {
			s.messages[i] = messageEntry{msg: server, state: Confirmed}
			return
		}
	}
	for _, e := range s.messages {
		if e.msg.ID == server.ID {
			return
		}
	}
	s.messages = append(s.messages, messageEntry{msg: server, state: Confirmed})
}

// RemoveMessage drops a message from the local view immediately. The remote
// delete runs independently of this call and its failure does not restore
// the entry.
func (s *Store) RemoveMessage(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.messages {
		if e.msg.ID == id {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return
		}
	}
}

// SetMessages replaces the transcript with a fresh authoritative list,
// re-merging still-pending optimistic entries on top so an in-flight send
// is never lost to a concurrent refetch.
func (s *Store) SetMessages(fresh []domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]messageEntry, 0, len(fresh))
	for _, m := range fresh {
		next = append(next, messageEntry{msg: m, state: Confirmed})
	}
	for _, e := range s.messages {
		if e.state == Pending {
			next = append(next, e)
		}
	}
	s.messages = next
	s.lastErr = nil
}

// ClearMessages empties the local transcript. Pending entries go too; a
// user-initiated clear means the whole conversation, confirmed or not.
func (s *Store) ClearMessages() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}

// AppendExpense inserts an optimistic expense immediately.
func (s *Store) AppendExpense(e domain.Expense) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses = append(s.expenses, expenseEntry{exp: e, state: Pending})
}

// ReconcileExpense replaces the entry holding tempID with the server copy,
// appending when the temporary entry is already gone.
func (s *Store) ReconcileExpense(tempID string, server domain.Expense) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.expenses {
		if e.exp.ID == tempID {
			s.expenses[i] = expenseEntry{exp: server, state: Confirmed}
			return
		}
	}
	for _, e := range s.expenses {
		if e.exp.ID == server.ID {
			return
		}
	}
	s.expenses = append(s.expenses, expenseEntry{exp: server, state: Confirmed})
}

// RemoveExpense drops an expense from the local view immediately.
func (s *Store) RemoveExpense(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.expenses {
		if e.exp.ID == id {
			s.expenses = append(s.expenses[:i], s.expenses[i+1:]...)
			return
		}
	}
}

// SetExpenses replaces the expense list wholesale, preserving pending
// entries the same way SetMessages does.
func (s *Store) SetExpenses(fresh []domain.Expense) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]expenseEntry, 0, len(fresh))
	for _, e := range fresh {
		next = append(next, expenseEntry{exp: e, state: Confirmed})
	}
	for _, e := range s.expenses {
		if e.state == Pending {
			next = append(next, e)
		}
	}
	s.expenses = next
	s.lastErr = nil
}

// Fail records a revalidation error without touching the cached state. The
// previous lists stay visible, stale but available.
func (s *Store) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
}

// LastErr returns the most recent revalidation error, cleared by the next
// successful Set call.
func (s *Store) LastErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// BeginWork and EndWork bracket in-flight network operations so the caller
// can render a waiting indicator.
func (s *Store) BeginWork() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processing++
}

func (s *Store) EndWork() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.processing > 0 {
		s.processing--
	}
}

// Processing reports whether any network operation is in flight.
func (s *Store) Processing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processing > 0
}
