package devserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/lekos21/moneychat/internal/domain"
)

// Store wraps the sqlite handle with typed queries for the three
// collections. All methods take a context.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ListMessages returns the newest limit messages in chronological order.
func (s *Store) ListMessages(ctx context.Context, limit int) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, message_type, timestamp, expense_ids, expense_data, expense_batch
		FROM (
			SELECT * FROM messages ORDER BY timestamp DESC LIMIT ?
		) ORDER BY timestamp ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	out := []domain.Message{}
	for rows.Next() {
		var (
			m       domain.Message
			ids     sql.NullString
			payload sql.NullString
			batch   sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.Content, &m.Type, &m.Timestamp, &ids, &payload, &batch); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if ids.Valid && ids.String != "" {
			if err := json.Unmarshal([]byte(ids.String), &m.ExpenseIDs); err != nil {
				return nil, fmt.Errorf("decode expense_ids: %w", err)
			}
		}
		if payload.Valid && payload.String != "" {
			if err := json.Unmarshal([]byte(payload.String), &m.Inline); err != nil {
				return nil, fmt.Errorf("decode expense_data: %w", err)
			}
		}
		if batch.Valid && batch.String != "" {
			if err := json.Unmarshal([]byte(batch.String), &m.InlineBatch); err != nil {
				return nil, fmt.Errorf("decode expense_batch: %w", err)
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) InsertMessage(ctx context.Context, m domain.Message) error {
	var ids, payload, batch any
	if len(m.ExpenseIDs) > 0 {
		buf, err := json.Marshal(m.ExpenseIDs)
		if err != nil {
			return err
		}
		ids = string(buf)
	}
	if m.Inline != nil {
		buf, err := json.Marshal(m.Inline)
		if err != nil {
			return err
		}
		payload = string(buf)
	}
	if m.InlineBatch != nil {
		buf, err := json.Marshal(m.InlineBatch)
		if err != nil {
			return err
		}
		batch = string(buf)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, content, message_type, timestamp, expense_ids, expense_data, expense_batch)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Content, m.Type, m.Timestamp, ids, payload, batch)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// DeleteMessage removes one message, reporting whether it existed.
func (s *Store) DeleteMessage(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete message: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *Store) ClearMessages(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM messages`)
	return err
}

func (s *Store) ListExpenses(ctx context.Context) ([]domain.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, amount, currency, short_text, raw_text, timestamp, area_tags, context_tags, tag_id
		FROM expenses ORDER BY timestamp DESC`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	out := []domain.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (domain.Expense, error) {
	var (
		e       domain.Expense
		amount  string
		area    sql.NullString
		ctxTags sql.NullString
		tagID   sql.NullString
	)
	err := row.Scan(&e.ID, &amount, &e.Currency, &e.ShortText, &e.RawText, &e.Timestamp, &area, &ctxTags, &tagID)
	if err != nil {
		return domain.Expense{}, fmt.Errorf("scan expense: %w", err)
	}
	e.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return domain.Expense{}, fmt.Errorf("decode amount %q: %w", amount, err)
	}
	if area.Valid && area.String != "" {
		if err := json.Unmarshal([]byte(area.String), &e.AreaTags); err != nil {
			return domain.Expense{}, fmt.Errorf("decode area_tags: %w", err)
		}
	}
	if ctxTags.Valid && ctxTags.String != "" {
		if err := json.Unmarshal([]byte(ctxTags.String), &e.ContextTags); err != nil {
			return domain.Expense{}, fmt.Errorf("decode context_tags: %w", err)
		}
	}
	e.TagID = tagID.String
	return e, nil
}

// GetExpense fetches one expense by id.
func (s *Store) GetExpense(ctx context.Context, id string) (domain.Expense, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, amount, currency, short_text, raw_text, timestamp, area_tags, context_tags, tag_id
		FROM expenses WHERE id = ?`, id)
	return scanExpense(row)
}

func (s *Store) InsertExpense(ctx context.Context, e domain.Expense) error {
	area, err := json.Marshal(e.AreaTags)
	if err != nil {
		return err
	}
	ctxTags, err := json.Marshal(e.ContextTags)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, amount, currency, short_text, raw_text, timestamp, area_tags, context_tags, tag_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Amount.String(), e.Currency, e.ShortText, e.RawText, e.Timestamp,
		string(area), string(ctxTags), e.TagID)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

func (s *Store) DeleteExpense(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete expense: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListTags returns the active tags across all facets.
func (s *Store) ListTags(ctx context.Context) ([]domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tag_id, facet, name, icon, hex, bg_hex, text_hex, synonyms, active
		FROM tags WHERE active = 1 ORDER BY facet, tag_id`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	out := []domain.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetTag fetches one tag by facet and id.
func (s *Store) GetTag(ctx context.Context, facet, tagID string) (domain.Tag, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT tag_id, facet, name, icon, hex, bg_hex, text_hex, synonyms, active
		FROM tags WHERE facet = ? AND tag_id = ?`, facet, tagID)
	return scanTag(row)
}

func scanTag(row rowScanner) (domain.Tag, error) {
	var (
		t        domain.Tag
		synonyms sql.NullString
	)
	err := row.Scan(&t.TagID, &t.Facet, &t.Name, &t.Icon,
		&t.Colors.Hex, &t.Colors.BackgroundHex, &t.Colors.TextHex, &synonyms, &t.Active)
	if err != nil {
		return domain.Tag{}, err
	}
	if synonyms.Valid && synonyms.String != "" {
		if err := json.Unmarshal([]byte(synonyms.String), &t.Synonyms); err != nil {
			return domain.Tag{}, fmt.Errorf("decode synonyms: %w", err)
		}
	}
	return t, nil
}
