// Package llm provides a direct Gemini-backed expense parser, usable in
// place of the backend parsing endpoints when the client is configured with
// its own API key. Unlike the backend, it never persists anything; callers
// that want the result saved must create the expense themselves.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/lekos21/moneychat/internal/domain"
)

const requestTimeout = 8 * time.Second

const singlePrompt = `You are an expense extraction engine. Extract ONE expense from the text below.
Return RAW JSON only, no markdown fences, with this exact shape:
{"amount": <number>, "currency": "<EUR|USD|GBP>", "short_text": "<2-4 word description>", "area_tags": ["<one of: food, transport, shopping, housing, entertainment, health, travel, other>"], "context_tags": []}
If no expense is present, return {"amount": 0}.
Text: %s`

const multiPrompt = `You are an expense extraction engine. Extract EVERY expense from the text below.
Return RAW JSON only, no markdown fences, with this exact shape:
{"expenses": [{"amount": <number>, "currency": "<EUR|USD|GBP>", "short_text": "<2-4 word description>", "area_tags": ["<one of: food, transport, shopping, housing, entertainment, health, travel, other>"], "context_tags": []}], "total_count": <int>}
Text: %s`

// GeminiParser parses expense text by calling Gemini directly.
type GeminiParser struct {
	client *genai.Client
	model  string
	now    func() time.Time
}

func NewGeminiParser(ctx context.Context, apiKey, model string) (*GeminiParser, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	return &GeminiParser{client: client, model: model, now: time.Now}, nil
}

// ParseExpense extracts a single expense. The persist flag is accepted for
// interface compatibility and ignored; this provider has no storage.
func (g *GeminiParser) ParseExpense(ctx context.Context, text string, persist bool) (domain.Expense, error) {
	raw, err := g.generate(ctx, fmt.Sprintf(singlePrompt, text))
	if err != nil {
		return domain.Expense{}, err
	}
	var e domain.Expense
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return domain.Expense{}, fmt.Errorf("parse model output: %w", err)
	}
	g.fill(&e, text)
	return e, nil
}

// ParseExpenses extracts every expense in the text.
func (g *GeminiParser) ParseExpenses(ctx context.Context, text string, persist bool) (domain.ExpenseBatch, error) {
	raw, err := g.generate(ctx, fmt.Sprintf(multiPrompt, text))
	if err != nil {
		return domain.ExpenseBatch{}, err
	}
	var batch domain.ExpenseBatch
	if err := json.Unmarshal([]byte(raw), &batch); err != nil {
		return domain.ExpenseBatch{}, fmt.Errorf("parse model output: %w", err)
	}
	// Drop records the model invented without a positive amount.
	valid := batch.Expenses[:0]
	for i := range batch.Expenses {
		if batch.Expenses[i].Valid() {
			g.fill(&batch.Expenses[i], text)
			valid = append(valid, batch.Expenses[i])
		}
	}
	batch.Expenses = valid
	batch.TotalCount = len(valid)
	return batch, nil
}

func (g *GeminiParser) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini generate: empty response")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return stripFences(sb.String()), nil
}

// stripFences removes the markdown code fences the model adds despite being
// told not to.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func (g *GeminiParser) fill(e *domain.Expense, rawText string) {
	if e.Currency == "" {
		e.Currency = "EUR"
	}
	if e.RawText == "" {
		e.RawText = rawText
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = g.now().UTC()
	}
}
