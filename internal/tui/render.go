package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lekos21/moneychat/internal/domain"
	"github.com/lekos21/moneychat/internal/match"
	"github.com/lekos21/moneychat/internal/parse"
)

func (a *App) View() string {
	if !a.ready {
		return "starting..."
	}

	var b strings.Builder
	b.WriteString(a.vp.View())
	b.WriteString("\n")
	b.WriteString(a.renderStatusLine())
	b.WriteString("\n")

	if a.state == viewCompose {
		b.WriteString("> " + a.input.View())
	} else {
		b.WriteString(styleHelp.Render("j/k move · d delete · x clear all · r refresh · i compose · q quit"))
	}

	if a.modal != modalNone {
		b.WriteString("\n\n" + a.renderModal())
	}
	return b.String()
}

func (a *App) renderStatusLine() string {
	if a.cache.Processing() {
		return a.spin.View() + styleStatus.Render(" working...")
	}
	if err := a.cache.LastErr(); err != nil {
		return styleErr.Render("offline, showing cached data: " + err.Error())
	}
	if a.status != "" {
		if strings.HasPrefix(a.status, "error") {
			return styleErr.Render(a.status)
		}
		return styleStatus.Render(a.status)
	}
	return ""
}

func (a *App) renderTranscript() string {
	msgs := a.cache.Messages()
	if len(msgs) == 0 {
		return styleSystemMsg.Render("No messages yet. Describe an expense to get started.")
	}
	expenses := a.cache.Expenses()

	var b strings.Builder
	for i, m := range msgs {
		line := a.renderMessage(m, expenses)
		if a.state == viewBrowse && i == a.cursor {
			line = styleSelected.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (a *App) renderMessage(m domain.Message, expenses []domain.Expense) string {
	sender := "moneychat"
	body := styleSystemMsg.Render(m.Content)
	if m.Type == domain.MessageUser {
		sender = "you"
		body = styleUserMsg.Render(m.Content)
	}

	header := styleSender.Render(sender) + " " + styleTimestamp.Render(m.Timestamp.In(a.loc).Format("15:04"))
	if domain.Ephemeral(m.ID) {
		header += " " + stylePending.Render("sending...")
	}

	out := header + "\n" + body
	if m.Type == domain.MessageSystem {
		if card := a.renderAnnouncement(m, expenses); card != "" {
			out += "\n" + card
		}
	}
	return out
}

// renderAnnouncement resolves the message to its expenses and renders the
// matching card. An unresolved confirmed message renders nothing; a still
// pending one falls back to the local parse so the user sees something
// before the server round trip completes.
func (a *App) renderAnnouncement(m domain.Message, expenses []domain.Expense) string {
	matched := match.Resolve(m, expenses)
	switch {
	case len(matched) == 1:
		return a.renderExpenseCard(matched[0])
	case len(matched) > 1:
		return a.renderBatchCard(matched, m)
	case domain.Ephemeral(m.ID):
		if e := a.parser.Parse(m.ID, m.Content); e != nil {
			return stylePending.Render(a.renderExpenseCard(*e))
		}
	}
	return ""
}

func (a *App) renderExpenseCard(e domain.Expense) string {
	chip := a.resolver.StyleFor(&e)
	amount := styleAmount.Render(parse.Symbol(e.Currency) + e.Amount.StringFixed(2))
	row := lipgloss.JoinHorizontal(lipgloss.Top,
		e.ShortText, "  ", amount, "  ", chip.Badge.Render(chip.Name))
	return styleCard.Render(row)
}

func (a *App) renderBatchCard(matched []domain.Expense, m domain.Message) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%d expenses", len(matched)))
	for _, e := range matched {
		chip := a.resolver.StyleFor(&e)
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%s  %s  %s",
			e.ShortText,
			styleAmount.Render(parse.Symbol(e.Currency)+e.Amount.StringFixed(2)),
			chip.Badge.Render(chip.Name)))
	}
	// The original user text, when carried inline, gives the batch context.
	if m.InlineBatch != nil && len(m.InlineBatch.Expenses) > 0 && m.InlineBatch.Expenses[0].RawText != "" {
		b.WriteString("\n")
		b.WriteString(styleTimestamp.Render("from: " + m.InlineBatch.Expenses[0].RawText))
	}
	return styleCard.Render(b.String())
}

func (a *App) renderModal() string {
	switch a.modal {
	case modalConfirmDelete:
		return styleModal.Render("Delete this message? (y/n)")
	case modalConfirmClear:
		return styleModal.Render("Clear the whole conversation? (y/n)")
	}
	return ""
}
