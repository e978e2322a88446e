package tags

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/lekos21/moneychat/internal/domain"
)

const (
	defaultIcon = "tag"
	defaultHex  = "#9399b2"
)

// Style is the render-ready projection of a tag: what the chip components
// need and nothing else.
type Style struct {
	Name  string
	Icon  string
	Badge lipgloss.Style
}

// StyleOf projects a tag into display styling. It never fails: a nil tag or
// a tag with missing color data yields the neutral gray chip with the
// generic icon. Rendering must not be able to break on bad tag data.
func StyleOf(t *domain.Tag) Style {
	s := Style{
		Name: "Tag",
		Icon: defaultIcon,
		Badge: lipgloss.NewStyle().
			Foreground(lipgloss.Color(defaultHex)).
			Bold(true),
	}
	if t == nil {
		return s
	}
	if t.Name != "" {
		s.Name = t.Name
	} else if t.TagID != "" {
		s.Name = titleCase(t.TagID)
	}
	if t.Icon != "" {
		s.Icon = t.Icon
	}
	hex := t.Colors.Hex
	if hex == "" {
		hex = defaultHex
	}
	s.Badge = lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Bold(true)
	if t.Colors.BackgroundHex != "" {
		s.Badge = s.Badge.Background(lipgloss.Color(t.Colors.BackgroundHex))
	}
	if t.Colors.TextHex != "" {
		s.Badge = s.Badge.Foreground(lipgloss.Color(t.Colors.TextHex))
	}
	return s
}

// StyleFor is the expense-level convenience: resolve then style, with the
// same no-fail guarantee.
func (r *Resolver) StyleFor(e *domain.Expense) Style {
	return StyleOf(r.Resolve(e))
}
