package review

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"sfh-go/internal/model"
	"sfh-go/internal/sfh"
)

type mode int

const (
	modeList mode = iota
	modeDetail
	modeComment
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("237"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))

	reviewStyles = map[model.ReviewResult]lipgloss.Style{
		model.ReviewTBD:        lipgloss.NewStyle().Foreground(lipgloss.Color("178")),
		model.ReviewRelevant:   lipgloss.NewStyle().Foreground(lipgloss.Color("82")),
		model.ReviewIrrelevant: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
)

type uiModel struct {
	db        sfh.Database
	workspace string
	records   []*sfh.FileRecord

	mode    mode
	cursor  int
	content viewport.Model
	input   textinput.Model
	width   int
	height  int
	status  string
	err     error
}

func newModel(db sfh.Database, workspace string, records []*sfh.FileRecord) uiModel {
	input := textinput.New()
	input.Placeholder = "comment"
	input.CharLimit = 512

	return uiModel{
		db:        db,
		workspace: workspace,
		records:   records,
		content:   viewport.New(80, 20),
		input:     input,
	}
}

func (m uiModel) Init() tea.Cmd { return nil }

func (m uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.content.Width = msg.Width
		m.content.Height = msg.Height - 6
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeComment:
			return m.updateComment(msg)
		case modeDetail:
			return m.updateDetail(msg)
		default:
			return m.updateList(msg)
		}
	}
	return m, nil
}

func (m uiModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.records)-1 {
			m.cursor++
		}
	case "enter":
		m.content.SetContent(m.detailText())
		m.content.GotoTop()
		m.mode = modeDetail
	case "r":
		m.setReview(model.ReviewRelevant)
	case "i":
		m.setReview(model.ReviewIrrelevant)
	case "t":
		m.setReview(model.ReviewTBD)
	case "c":
		m.input.SetValue(m.current().Comment)
		m.input.Focus()
		m.mode = modeComment
		return m, textinput.Blink
	}
	return m, nil
}

func (m uiModel) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		m.mode = modeList
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	case "r":
		m.setReview(model.ReviewRelevant)
		return m, nil
	case "i":
		m.setReview(model.ReviewIrrelevant)
		return m, nil
	case "t":
		m.setReview(model.ReviewTBD)
		return m, nil
	}
	var cmd tea.Cmd
	m.content, cmd = m.content.Update(msg)
	return m, cmd
}

func (m uiModel) updateComment(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.setComment(m.input.Value())
		m.input.Blur()
		m.mode = modeList
		return m, nil
	case "esc":
		m.input.Blur()
		m.mode = modeList
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *uiModel) current() *sfh.FileRecord { return m.records[m.cursor] }

// setReview persists the verdict and mirrors it onto every record
// sharing the same stored file, since review state is per file, not
// per path.
func (m *uiModel) setReview(review model.ReviewResult) {
	r := m.current()
	if err := m.db.UpdateReview(r.FileID, review, r.Comment); err != nil {
		m.status = fmt.Sprintf("update failed: %v", err)
		return
	}
	for _, rec := range m.records {
		if rec.FileID == r.FileID {
			rec.Review = review
		}
	}
	m.status = fmt.Sprintf("marked %s %s", r.FileName, review)
}

func (m *uiModel) setComment(comment string) {
	r := m.current()
	if err := m.db.UpdateReview(r.FileID, r.Review, comment); err != nil {
		m.status = fmt.Sprintf("update failed: %v", err)
		return
	}
	for _, rec := range m.records {
		if rec.FileID == r.FileID {
			rec.Comment = comment
		}
	}
	m.status = "comment saved"
}

func (m *uiModel) detailText() string {
	r := m.current()
	var b strings.Builder

	fmt.Fprintf(&b, "Location:  %s\n", recordLocation(r))
	fmt.Fprintf(&b, "Size:      %d bytes\n", r.SizeBytes)
	fmt.Fprintf(&b, "Type:      %s (%s)\n", r.FileType, r.MimeType)
	fmt.Fprintf(&b, "SHA-256:   %s\n", r.SHA256)
	for _, rule := range r.Rules {
		fmt.Fprintf(&b, "Rule:      %s/%s: %s\n", rule.Category, rule.Location, rule.Pattern)
	}
	b.WriteString("\n")

	content, err := m.db.FileContent(r.FileID)
	if err != nil {
		fmt.Fprintf(&b, "cannot load content: %v\n", err)
		return b.String()
	}
	b.WriteString(printable(content))
	return b.String()
}

// printable replaces control bytes so binary content does not wreck
// the terminal.
func printable(content []byte) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r == unicode.ReplacementChar || unicode.IsControl(r) {
			return '.'
		}
		return r
	}, string(content))
}

func recordLocation(r *sfh.FileRecord) string {
	t := sfh.Target{Address: r.Address, Port: r.Port, Kind: r.Kind}
	loc := t.String()
	if r.Share != "" {
		loc += "/" + r.Share
	}
	if !strings.HasPrefix(r.FullPath, "/") {
		loc += "/"
	}
	return loc + r.FullPath
}

func (m uiModel) View() string {
	switch m.mode {
	case modeDetail:
		return m.viewDetail()
	case modeComment:
		return m.viewComment()
	default:
		return m.viewList()
	}
}

func (m uiModel) viewList() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("review %s · %d flagged files", m.workspace, len(m.records))))
	b.WriteString("\n\n")

	visible := m.height - 6
	if visible < 1 {
		visible = len(m.records)
	}
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}

	for i := start; i < len(m.records) && i < start+visible; i++ {
		r := m.records[i]
		verdict := reviewStyles[r.Review].Render(fmt.Sprintf("%-10s", r.Review))
		line := fmt.Sprintf("%s %s", verdict, recordLocation(r))
		if i == m.cursor {
			line = selectedStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("enter view · r relevant · i irrelevant · t tbd · c comment · q quit"))
	return b.String()
}

func (m uiModel) viewDetail() string {
	r := m.current()
	var b strings.Builder
	b.WriteString(titleStyle.Render(r.FileName))
	b.WriteString("\n")
	b.WriteString(m.content.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ scroll · r/i/t verdict · esc back"))
	return b.String()
}

func (m uiModel) viewComment() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("comment " + m.current().FileName))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("enter save · esc cancel"))
	return b.String()
}
