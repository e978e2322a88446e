// Package tui is the chat interface: a transcript viewport, an input line,
// and the send pipeline that fans out message persistence and expense
// parsing concurrently, then reconciles whatever comes back.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lekos21/moneychat/internal/api"
	"github.com/lekos21/moneychat/internal/config"
	"github.com/lekos21/moneychat/internal/domain"
	"github.com/lekos21/moneychat/internal/parse"
	"github.com/lekos21/moneychat/internal/store"
	"github.com/lekos21/moneychat/internal/tags"
)

// Backend is the remote persistence surface the chat needs.
type Backend interface {
	ListMessages(ctx context.Context, limit int) ([]domain.Message, error)
	CreateMessage(ctx context.Context, m domain.Message) (domain.Message, error)
	DeleteMessage(ctx context.Context, id string) error
	ClearMessages(ctx context.Context) error
	ListExpenses(ctx context.Context) ([]domain.Expense, error)
	CreateExpense(ctx context.Context, e domain.Expense) (domain.Expense, error)
	DeleteExpense(ctx context.Context, id string) error
	ListTags(ctx context.Context) ([]domain.Tag, error)
}

// App ties together the chat views.
type App struct {
	ctx        context.Context
	cfg        config.Config
	backend    Backend
	dispatcher *parse.Dispatcher
	parser     *parse.Parser
	resolver   *tags.Resolver
	cache      *store.Store

	input textinput.Model
	vp    viewport.Model
	spin  spinner.Model

	state  appState
	modal  modalState
	cursor int
	status string
	width  int
	height int
	ready  bool
	loc    *time.Location

	// remoteSaves is true when the parsing service persists expenses
	// itself; false when the direct provider is used and this client
	// must create them.
	remoteSaves bool
}

type appState string

const (
	viewCompose appState = "compose"
	viewBrowse  appState = "browse"
)

type modalState string

const (
	modalNone          modalState = ""
	modalConfirmDelete modalState = "confirmDelete"
	modalConfirmClear  modalState = "confirmClear"
)

func New(ctx context.Context, cfg config.Config, backend Backend, dispatcher *parse.Dispatcher, resolver *tags.Resolver) *App {
	symbol := cfg.UI.CurrencySymbol
	if symbol == "" {
		symbol = "€"
	}
	input := textinput.New()
	input.Placeholder = "12" + symbol + " lunch with friends..."
	input.Focus()
	input.CharLimit = 500

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	loc := time.Local
	if cfg.UI.Timezone != "" {
		if l, err := time.LoadLocation(cfg.UI.Timezone); err == nil {
			loc = l
		}
	}

	return &App{
		ctx:         ctx,
		cfg:         cfg,
		backend:     backend,
		dispatcher:  dispatcher,
		parser:      parse.NewParser(parse.NewCache()),
		resolver:    resolver,
		cache:       store.New(),
		input:       input,
		spin:        spin,
		loc:         loc,
		state:       viewCompose,
		remoteSaves: cfg.Parser.Provider == "remote",
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.loadMessages(), a.loadExpenses(), a.loadTags(), a.spin.Tick, textinput.Blink)
}

// commands

func (a *App) loadMessages() tea.Cmd {
	return func() tea.Msg {
		limit := a.cfg.UI.MessageLimit
		if limit <= 0 {
			limit = 30
		}
		list, err := a.backend.ListMessages(a.ctx, limit)
		if err != nil {
			return errMsg{err}
		}
		return messagesMsg(list)
	}
}

func (a *App) loadExpenses() tea.Cmd {
	return func() tea.Msg {
		list, err := a.backend.ListExpenses(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		return expensesMsg(list)
	}
}

func (a *App) loadTags() tea.Cmd {
	return func() tea.Msg {
		list, err := a.backend.ListTags(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		return tagListMsg(list)
	}
}

// sendCmd fans out the two halves of a send: persisting the raw user
// message and parsing it for expenses. Either may finish first; the cache
// merge tolerates both orderings.
func (a *App) sendCmd(tempID, content string) tea.Cmd {
	persist := func() tea.Msg {
		server, err := a.backend.CreateMessage(a.ctx, domain.Message{
			Content: content,
			Type:    domain.MessageUser,
		})
		if err != nil {
			return errMsg{err}
		}
		return messageSavedMsg{tempID: tempID, server: server}
	}
	dispatch := func() tea.Msg {
		a.cache.BeginWork()
		defer a.cache.EndWork()
		res := a.dispatcher.Dispatch(a.ctx, content, a.remoteSaves)
		return parseDoneMsg{text: content, result: res}
	}
	return tea.Batch(persist, dispatch)
}

// persistSystemCmd saves an already optimistically appended system message.
func (a *App) persistSystemCmd(temp domain.Message) tea.Cmd {
	return func() tea.Msg {
		m := temp
		m.ID = ""
		server, err := a.backend.CreateMessage(a.ctx, m)
		if err != nil {
			return errMsg{err}
		}
		return messageSavedMsg{tempID: temp.ID, server: server}
	}
}

// saveAnnouncementCmd persists the parsed expenses when this client is
// responsible for that, then saves the announcement carrying their ids.
func (a *App) saveAnnouncementCmd(temp domain.Message, expenses []domain.Expense) tea.Cmd {
	return func() tea.Msg {
		a.cache.BeginWork()
		defer a.cache.EndWork()

		ids := make([]string, 0, len(expenses))
		for _, e := range expenses {
			if !a.remoteSaves || domain.Ephemeral(e.ID) || e.ID == "" {
				saved, err := a.backend.CreateExpense(a.ctx, e)
				if err != nil {
					return errMsg{fmt.Errorf("save expense: %w", err)}
				}
				e = saved
			}
			ids = append(ids, e.ID)
		}

		m := temp
		m.ID = ""
		m.ExpenseIDs = ids
		server, err := a.backend.CreateMessage(a.ctx, m)
		if err != nil {
			return errMsg{err}
		}
		return announcementSavedMsg{tempID: temp.ID, server: server}
	}
}

func (a *App) deleteMessageCmd(id string) tea.Cmd {
	return func() tea.Msg {
		if domain.Ephemeral(id) {
			return statusMsg("message removed")
		}
		err := a.backend.DeleteMessage(a.ctx, id)
		if err != nil && !errors.Is(err, api.ErrNotFound) {
			// Local removal already happened; the remote failure is
			// surfaced but not rolled back.
			return statusMsg("remote delete failed: " + err.Error())
		}
		return statusMsg("message deleted")
	}
}

// deleteExpenseCmd mirrors deleteMessageCmd; an already-deleted expense is
// treated as success.
func (a *App) deleteExpenseCmd(id string) tea.Cmd {
	return func() tea.Msg {
		if domain.Ephemeral(id) {
			return statusMsg("expense removed")
		}
		err := a.backend.DeleteExpense(a.ctx, id)
		if err != nil && !errors.Is(err, api.ErrNotFound) {
			return statusMsg("remote delete failed: " + err.Error())
		}
		return statusMsg("expense deleted")
	}
}

func (a *App) clearMessagesCmd() tea.Cmd {
	return func() tea.Msg {
		if err := a.backend.ClearMessages(a.ctx); err != nil {
			return statusMsg("remote clear failed: " + err.Error())
		}
		return statusMsg("conversation cleared")
	}
}

// fetchTagCmd runs the memoized remote tag lookup off the render path.
func (a *App) fetchTagCmd(facet, tagID string) tea.Cmd {
	return func() tea.Msg {
		a.resolver.Fetch(a.ctx, facet, tagID)
		return tagFetchedMsg{}
	}
}

// messages

type messagesMsg []domain.Message

type expensesMsg []domain.Expense

type tagListMsg []domain.Tag

type messageSavedMsg struct {
	tempID string
	server domain.Message
}

type announcementSavedMsg struct {
	tempID string
	server domain.Message
}

type parseDoneMsg struct {
	text   string
	result parse.Result
}

type tagFetchedMsg struct{}

type statusMsg string

type errMsg struct{ error }

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = m.Width, m.Height
		a.input.Width = m.Width - 4
		vpHeight := m.Height - 5
		if vpHeight < 3 {
			vpHeight = 3
		}
		if !a.ready {
			a.vp = viewport.New(m.Width, vpHeight)
			a.ready = true
		} else {
			a.vp.Width = m.Width
			a.vp.Height = vpHeight
		}
		a.refresh()
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(m)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(m)
		return a, cmd

	case messagesMsg:
		a.cache.SetMessages(m)
		a.clampCursor()
		a.refresh()
		return a, nil

	case expensesMsg:
		a.cache.SetExpenses(m)
		a.refresh()
		return a, a.prefetchTags(m)

	case tagListMsg:
		a.resolver.Load(m)
		a.refresh()
		return a, nil

	case messageSavedMsg:
		a.cache.ReconcileMessage(m.tempID, m.server)
		a.refresh()
		return a, nil

	case announcementSavedMsg:
		a.cache.ReconcileMessage(m.tempID, m.server)
		a.refresh()
		return a, a.loadExpenses()

	case parseDoneMsg:
		return a, a.handleParseDone(m)

	case tagFetchedMsg:
		a.refresh()
		return a, nil

	case statusMsg:
		a.status = string(m)
		return a, nil

	case errMsg:
		a.cache.Fail(m.error)
		a.status = "error: " + m.Error()
		a.refresh()
		return a, nil
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) handleKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.modal != modalNone {
		return a.handleModalKey(m)
	}
	if a.state == viewBrowse {
		return a.handleBrowseKey(m)
	}

	switch m.String() {
	case "ctrl+c":
		return a, tea.Quit
	case "esc":
		a.state = viewBrowse
		a.input.Blur()
		a.clampCursor()
		a.refresh()
		return a, nil
	case "enter":
		content := strings.TrimSpace(a.input.Value())
		if content == "" {
			return a, nil
		}
		a.input.Reset()
		a.status = ""
		temp := domain.Message{
			ID:        domain.TempMessageID(uuid.NewString()),
			Content:   content,
			Type:      domain.MessageUser,
			Timestamp: time.Now().UTC(),
		}
		a.cache.AppendMessage(temp)
		a.refresh()
		return a, a.sendCmd(temp.ID, content)
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(m)
	return a, cmd
}

func (a *App) handleBrowseKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "q", "ctrl+c":
		return a, tea.Quit
	case "i", "enter", "esc":
		a.state = viewCompose
		a.input.Focus()
		a.refresh()
		return a, textinput.Blink
	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
		a.refresh()
	case "down", "j":
		if a.cursor < len(a.cache.Messages())-1 {
			a.cursor++
		}
		a.refresh()
	case "d":
		if len(a.cache.Messages()) > 0 {
			a.modal = modalConfirmDelete
		}
	case "x":
		if len(a.cache.Messages()) > 0 {
			a.modal = modalConfirmClear
		}
	case "r":
		a.status = "refreshing..."
		return a, tea.Batch(a.loadMessages(), a.loadExpenses())
	}
	return a, nil
}

func (a *App) handleModalKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "y", "enter":
		modal := a.modal
		a.modal = modalNone
		switch modal {
		case modalConfirmDelete:
			msgs := a.cache.Messages()
			if a.cursor >= len(msgs) {
				return a, nil
			}
			target := msgs[a.cursor]
			a.cache.RemoveMessage(target.ID)
			cmds := []tea.Cmd{a.deleteMessageCmd(target.ID)}
			// An announcement takes its bound expenses with it.
			for _, expID := range target.ExpenseIDs {
				a.cache.RemoveExpense(expID)
				cmds = append(cmds, a.deleteExpenseCmd(expID))
			}
			a.clampCursor()
			a.refresh()
			return a, tea.Batch(cmds...)
		case modalConfirmClear:
			a.cache.ClearMessages()
			a.cursor = 0
			a.refresh()
			return a, a.clearMessagesCmd()
		}
	case "n", "esc":
		a.modal = modalNone
	}
	return a, nil
}

// handleParseDone turns a parse result into the follow-up system message:
// an expense announcement on success, a conversational clarification on
// failure. Both are appended optimistically before the persist round trip.
func (a *App) handleParseDone(m parseDoneMsg) tea.Cmd {
	if m.result.Failed() {
		temp := domain.Message{
			ID:        domain.TempMessageID(uuid.NewString()),
			Content:   "I couldn't find an expense in that. Try something like \"12€ lunch\".",
			Type:      domain.MessageSystem,
			Timestamp: time.Now().UTC(),
		}
		a.cache.AppendMessage(temp)
		a.refresh()
		return a.persistSystemCmd(temp)
	}

	expenses := m.result.Expenses
	temp := domain.Message{
		ID:        domain.TempMessageID(uuid.NewString()),
		Content:   announcementText(expenses),
		Type:      domain.MessageSystem,
		Timestamp: time.Now().UTC(),
	}
	if len(expenses) == 1 {
		e := expenses[0]
		temp.Inline = &e
	} else {
		temp.InlineBatch = &domain.ExpenseBatch{Expenses: expenses, TotalCount: len(expenses)}
	}
	a.cache.AppendMessage(temp)
	a.refresh()
	return a.saveAnnouncementCmd(temp, expenses)
}

// prefetchTags queues one memoized fetch per unresolved area tag.
func (a *App) prefetchTags(expenses []domain.Expense) tea.Cmd {
	var cmds []tea.Cmd
	for i := range expenses {
		e := expenses[i]
		if a.resolver.Resolve(&e) != nil || len(e.AreaTags) == 0 {
			continue
		}
		if a.resolver.NeedsFetch(domain.FacetArea, e.AreaTags[0]) {
			cmds = append(cmds, a.fetchTagCmd(domain.FacetArea, e.AreaTags[0]))
		}
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

func (a *App) clampCursor() {
	if n := len(a.cache.Messages()); a.cursor >= n {
		a.cursor = n - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
}

func (a *App) refresh() {
	if !a.ready {
		return
	}
	atBottom := a.vp.AtBottom()
	a.vp.SetContent(a.renderTranscript())
	if atBottom || a.state == viewCompose {
		a.vp.GotoBottom()
	}
}

func announcementText(expenses []domain.Expense) string {
	if len(expenses) == 1 {
		e := expenses[0]
		return fmt.Sprintf("Expense saved: %s - %s%s",
			e.ShortText, parse.Symbol(e.Currency), e.Amount.StringFixed(2))
	}
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	symbol := parse.Symbol(expenses[0].Currency)
	return fmt.Sprintf("Saved %d expenses totaling %s%s", len(expenses), symbol, total.StringFixed(2))
}
