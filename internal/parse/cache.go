package parse

import (
	"sync"

	"github.com/lekos21/moneychat/internal/domain"
)

// Cache memoizes parse outcomes per message id so a message is never parsed
// twice in a session. Entries are only ever superseded, never evicted. The
// cache is owned by whoever constructs it, not a package global.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	expense *domain.Expense
	batch   *domain.ExpenseBatch
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// Expense returns the cached single-expense outcome for a message id.
// The second return distinguishes "cached as not-an-expense" (nil, true)
// from "never parsed" (nil, false).
func (c *Cache) Expense(messageID string) (*domain.Expense, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[messageID]
	if !ok || e.batch != nil {
		return nil, ok && e.batch == nil
	}
	return e.expense, true
}

// Batch returns the cached batch outcome for a message id.
func (c *Cache) Batch(messageID string) (*domain.ExpenseBatch, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[messageID]
	if !ok || e.batch == nil {
		return nil, false
	}
	return e.batch, true
}

func (c *Cache) PutExpense(messageID string, e *domain.Expense) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[messageID] = cacheEntry{expense: e}
}

func (c *Cache) PutBatch(messageID string, b *domain.ExpenseBatch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[messageID] = cacheEntry{batch: b}
}
