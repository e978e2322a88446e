// Package api is the HTTP client for the remote persistence and parsing
// service. Every method takes a context, attaches the bearer credential
// from the injected TokenSource, and returns typed errors; callers never
// see raw status codes.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/lekos21/moneychat/internal/domain"
)

// ErrNotFound marks a delete against an already-gone record. Callers treat
// it as success at the UI layer.
var ErrNotFound = errors.New("api: not found")

// Client talks to one backend instance.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

func NewClient(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		tokens:  tokens,
	}
}

// ListMessages fetches the most recent messages in chronological order.
func (c *Client) ListMessages(ctx context.Context, limit int) ([]domain.Message, error) {
	var out []domain.Message
	path := fmt.Sprintf("/chat/messages?limit=%d", limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type createMessageRequest struct {
	Content     string               `json:"content"`
	Type        domain.MessageType   `json:"message_type"`
	ExpenseData *domain.Expense      `json:"expense_data,omitempty"`
	ExpenseIDs  []string             `json:"expense_ids,omitempty"`
	Batch       *domain.ExpenseBatch `json:"expense_batch,omitempty"`
}

// CreateMessage persists a message and returns the server copy with its
// issued id and timestamp. Ephemeral ids are never sent.
func (c *Client) CreateMessage(ctx context.Context, m domain.Message) (domain.Message, error) {
	req := createMessageRequest{
		Content:     m.Content,
		Type:        m.Type,
		ExpenseData: m.Inline,
		ExpenseIDs:  m.ExpenseIDs,
		Batch:       m.InlineBatch,
	}
	var out domain.Message
	if err := c.do(ctx, http.MethodPost, "/chat/messages", req, &out); err != nil {
		return domain.Message{}, err
	}
	return out, nil
}

// DeleteMessage removes one message. A 404 comes back as ErrNotFound.
func (c *Client) DeleteMessage(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/chat/messages/"+url.PathEscape(id), nil, nil)
}

// ClearMessages removes the whole transcript.
func (c *Client) ClearMessages(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/chat/messages", nil, nil)
}

func (c *Client) ListExpenses(ctx context.Context) ([]domain.Expense, error) {
	var out []domain.Expense
	if err := c.do(ctx, http.MethodGet, "/expenses/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetExpense fetches one expense by its server id.
func (c *Client) GetExpense(ctx context.Context, id string) (domain.Expense, error) {
	var out domain.Expense
	if err := c.do(ctx, http.MethodGet, "/expenses/"+url.PathEscape(id), nil, &out); err != nil {
		return domain.Expense{}, err
	}
	return out, nil
}

func (c *Client) CreateExpense(ctx context.Context, e domain.Expense) (domain.Expense, error) {
	e.ID = ""
	var out domain.Expense
	if err := c.do(ctx, http.MethodPost, "/expenses/", e, &out); err != nil {
		return domain.Expense{}, err
	}
	return out, nil
}

func (c *Client) DeleteExpense(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/expenses/"+url.PathEscape(id), nil, nil)
}

// ListTags returns the active tags across all facets.
func (c *Client) ListTags(ctx context.Context) ([]domain.Tag, error) {
	var out []domain.Tag
	if err := c.do(ctx, http.MethodGet, "/tags/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchTag fetches one tag by facet and id. Satisfies tags.Fetcher.
func (c *Client) FetchTag(ctx context.Context, facet, tagID string) (domain.Tag, error) {
	var out domain.Tag
	path := "/tags/" + url.PathEscape(facet) + "/" + url.PathEscape(tagID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return domain.Tag{}, err
	}
	return out, nil
}

type parseRequest struct {
	Text     string `json:"text"`
	SaveToDB bool   `json:"save_to_db"`
}

// ParseExpense invokes the single-expense remote parser.
func (c *Client) ParseExpense(ctx context.Context, text string, persist bool) (domain.Expense, error) {
	var out domain.Expense
	req := parseRequest{Text: text, SaveToDB: persist}
	if err := c.do(ctx, http.MethodPost, "/agents/expense_parser/", req, &out); err != nil {
		return domain.Expense{}, err
	}
	return out, nil
}

type batchResponse struct {
	Expenses   []domain.Expense `json:"expenses"`
	TotalCount int              `json:"total_count"`
	Error      string           `json:"error"`
}

// ParseExpenses invokes the multi-expense remote parser. A server-side
// parse error arrives in-band and is surfaced as a Go error here; the
// dispatcher folds it back into its uniform result.
func (c *Client) ParseExpenses(ctx context.Context, text string, persist bool) (domain.ExpenseBatch, error) {
	var out batchResponse
	req := parseRequest{Text: text, SaveToDB: persist}
	if err := c.do(ctx, http.MethodPost, "/agents/multi_expense_parser/", req, &out); err != nil {
		return domain.ExpenseBatch{}, err
	}
	if out.Error != "" && len(out.Expenses) == 0 {
		return domain.ExpenseBatch{}, errors.New(out.Error)
	}
	return domain.ExpenseBatch{Expenses: out.Expenses, TotalCount: out.TotalCount}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthenticated
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(msg))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
