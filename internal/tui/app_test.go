package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/lekos21/moneychat/internal/config"
	"github.com/lekos21/moneychat/internal/domain"
	"github.com/lekos21/moneychat/internal/parse"
	"github.com/lekos21/moneychat/internal/tags"
)

type fakeBackend struct {
	messages  []domain.Message
	expenses  []domain.Expense
	nextID     int
	created    []domain.Message
	deletedID  string
	deletedExp []string
}

func (f *fakeBackend) ListMessages(ctx context.Context, limit int) ([]domain.Message, error) {
	return f.messages, nil
}

func (f *fakeBackend) CreateMessage(ctx context.Context, m domain.Message) (domain.Message, error) {
	f.nextID++
	m.ID = "srv-" + string(rune('0'+f.nextID))
	f.created = append(f.created, m)
	return m, nil
}

func (f *fakeBackend) DeleteMessage(ctx context.Context, id string) error {
	f.deletedID = id
	return nil
}

func (f *fakeBackend) ClearMessages(ctx context.Context) error { return nil }

func (f *fakeBackend) ListExpenses(ctx context.Context) ([]domain.Expense, error) {
	return f.expenses, nil
}

func (f *fakeBackend) CreateExpense(ctx context.Context, e domain.Expense) (domain.Expense, error) {
	f.nextID++
	e.ID = "exp-" + string(rune('0'+f.nextID))
	return e, nil
}

func (f *fakeBackend) DeleteExpense(ctx context.Context, id string) error {
	f.deletedExp = append(f.deletedExp, id)
	return nil
}

func (f *fakeBackend) ListTags(ctx context.Context) ([]domain.Tag, error) { return nil, nil }

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestApp(backend *fakeBackend) *App {
	cfg := config.Config{Parser: config.ParserConfig{Provider: "remote"}}
	return New(context.Background(), cfg, backend, &parse.Dispatcher{}, tags.NewResolver(nil))
}

func exp(amount, short string) domain.Expense {
	return domain.Expense{
		ID:        "e-" + short,
		Amount:    decimal.RequireFromString(amount),
		Currency:  "EUR",
		ShortText: short,
	}
}

func TestTimestampsRenderInConfiguredTimezone(t *testing.T) {
	t.Parallel()

	cfg := config.Config{Parser: config.ParserConfig{Provider: "remote"}}
	cfg.UI.Timezone = "UTC"
	app := New(context.Background(), cfg, &fakeBackend{}, &parse.Dispatcher{}, tags.NewResolver(nil))
	require.Equal(t, time.UTC, app.loc)

	m := domain.Message{
		ID:        "m1",
		Content:   "hi",
		Type:      domain.MessageUser,
		Timestamp: time.Date(2026, 8, 29, 9, 30, 0, 0, time.UTC),
	}
	require.Contains(t, app.renderMessage(m, nil), "09:30")
}

func TestAnnouncementText(t *testing.T) {
	t.Parallel()

	single := announcementText([]domain.Expense{exp("4.50", "coffee")})
	require.Equal(t, "Expense saved: coffee - €4.50", single)

	multi := announcementText([]domain.Expense{exp("5", "beer"), exp("8", "burger")})
	require.Equal(t, "Saved 2 expenses totaling €13.00", multi)
}

func TestParseFailureAppendsClarification(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{}
	app := newTestApp(backend)

	cmd := app.handleParseDone(parseDoneMsg{text: "hello", result: parse.Result{Err: "nope"}})
	require.NotNil(t, cmd)

	msgs := app.cache.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, domain.MessageSystem, msgs[0].Type)
	require.True(t, domain.Ephemeral(msgs[0].ID))
	require.Contains(t, msgs[0].Content, "couldn't find an expense")

	// Running the command persists it and the reply reconciles in place.
	saved, ok := cmd().(messageSavedMsg)
	require.True(t, ok)
	app.Update(saved)
	msgs = app.cache.Messages()
	require.Len(t, msgs, 1)
	require.False(t, domain.Ephemeral(msgs[0].ID))
}

func TestParseSuccessAppendsAnnouncementWithIDs(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{}
	app := newTestApp(backend)

	result := parse.Result{Expenses: []domain.Expense{exp("4.50", "coffee")}, TotalCount: 1}
	cmd := app.handleParseDone(parseDoneMsg{text: "4.50 coffee", result: result})
	require.NotNil(t, cmd)

	msgs := app.cache.Messages()
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].Inline, "optimistic announcement carries the inline payload")
	require.True(t, strings.HasPrefix(msgs[0].Content, "Expense saved:"))

	saved, ok := cmd().(announcementSavedMsg)
	require.True(t, ok)
	require.Equal(t, []string{"e-coffee"}, saved.server.ExpenseIDs)

	app.Update(saved)
	msgs = app.cache.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, []string{"e-coffee"}, msgs[0].ExpenseIDs)
}

func TestParseSuccessSavesExpensesWhenClientOwnsPersistence(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{}
	cfg := config.Config{Parser: config.ParserConfig{Provider: "gemini"}}
	app := New(context.Background(), cfg, backend, &parse.Dispatcher{}, tags.NewResolver(nil))

	result := parse.Result{Expenses: []domain.Expense{exp("5", "beer"), exp("8", "burger")}, TotalCount: 2}
	cmd := app.handleParseDone(parseDoneMsg{text: "5 beer and 8 burger", result: result})

	saved, ok := cmd().(announcementSavedMsg)
	require.True(t, ok)
	// Both expenses got server ids before the announcement referenced them.
	require.Len(t, saved.server.ExpenseIDs, 2)
	for _, id := range saved.server.ExpenseIDs {
		require.True(t, strings.HasPrefix(id, "exp-"))
	}
}

func TestDeleteReconciledMessage(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{}
	app := newTestApp(backend)
	app.cache.SetMessages([]domain.Message{{ID: "m1", Content: "hi", Type: domain.MessageUser}})
	app.state = viewBrowse
	app.modal = modalConfirmDelete

	_, cmd := app.handleModalKey(keyMsg("y"))
	require.Empty(t, app.cache.Messages(), "removed locally before the remote call")
	require.NotNil(t, cmd)
	cmd()
	require.Equal(t, "m1", backend.deletedID)
}

func TestDeleteAnnouncementRemovesBoundExpenses(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{}
	app := newTestApp(backend)
	app.cache.SetMessages([]domain.Message{{
		ID:         "m2",
		Content:    "Expense saved: coffee - €4.50",
		Type:       domain.MessageSystem,
		ExpenseIDs: []string{"e1"},
	}})
	app.cache.SetExpenses([]domain.Expense{{
		ID:     "e1",
		Amount: decimal.RequireFromString("4.50"),
	}})
	app.state = viewBrowse
	app.modal = modalConfirmDelete

	_, cmd := app.handleModalKey(keyMsg("y"))
	require.Empty(t, app.cache.Messages())
	require.Empty(t, app.cache.Expenses(), "bound expense dropped with the announcement")

	require.NotNil(t, cmd)
	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok)
	for _, c := range batch {
		c()
	}
	require.Equal(t, "m2", backend.deletedID)
	require.Equal(t, []string{"e1"}, backend.deletedExp)
}
