package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/TheoremOne-Talent/skills-extractor/internal/domain"
	"github.com/TheoremOne-Talent/skills-extractor/internal/pipeline"
	"github.com/TheoremOne-Talent/skills-extractor/internal/taxonomy"
)

var ErrInterrupted = errors.New("interrupted before the last row")

// Stepper is the TUI-facing subset of the pipeline driver.
type Stepper interface {
	Step(ctx context.Context, st pipeline.State, row domain.SkillSetRow) (pipeline.State, pipeline.Published, error)
}

type stepMsg struct {
	state pipeline.State
	pub   pipeline.Published
}

type errMsg struct{ err error }

// Model runs one driver step per command and shows the table as it is
// re-canonicalized.
type Model struct {
	ctx     context.Context
	driver  Stepper
	rows    []domain.SkillSetRow
	next    int
	state   pipeline.State
	last    pipeline.Published
	err     error
	done    bool
	ready   bool
	table   table.Model
	spinner spinner.Model
	filter  textinput.Model
	detail  viewport.Model
	status  string
}

// New creates a model that will process rows in order once started.
func New(ctx context.Context, driver Stepper, rows []domain.SkillSetRow) Model {
	t := table.New(
		table.WithColumns(columns(80)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	fi := textinput.New()
	fi.Prompt = "/ "
	fi.Placeholder = "filter by name or skill"
	fi.CharLimit = 0
	m := Model{
		ctx:     ctx,
		driver:  driver,
		rows:    rows,
		table:   t,
		spinner: sp,
		filter:  fi,
		detail:  viewport.New(0, 0),
		status:  fmt.Sprintf("Extracting skills from %d rows...", len(rows)),
	}
	if len(rows) == 0 {
		m.done = true
		m.status = "No rows to process."
	}
	return m
}

// Init starts the spinner and the first step.
func (m Model) Init() tea.Cmd {
	if m.done {
		return nil
	}
	return tea.Batch(m.spinner.Tick, m.step())
}

func (m Model) step() tea.Cmd {
	if m.next >= len(m.rows) {
		return nil
	}
	ctx, driver, st, row := m.ctx, m.driver, m.state, m.rows[m.next]
	return func() tea.Msg {
		next, pub, err := driver.Step(ctx, st, row)
		if err != nil {
			return errMsg{err: fmt.Errorf("row %d (%s): %w", len(st.Entities), row.Name, err)}
		}
		return stepMsg{state: next, pub: pub}
	}
}

// Update handles step results, key and window events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.resize(msg.Width, msg.Height)
		return m, nil
	case stepMsg:
		m.state, m.last = msg.state, msg.pub
		m.next++
		m.refreshRows()
		if m.next == len(m.rows) {
			m.done = true
			m.status = fmt.Sprintf("Done: %d rows, %d canonical skills. Press q to save and quit.",
				len(m.rows), len(m.last.Taxonomy))
			m.detail.SetContent(m.renderTaxonomy())
			return m, nil
		}
		mode := "clustered"
		if !msg.pub.Clustered {
			mode = "too few skills to cluster"
		}
		m.status = fmt.Sprintf("Row %d/%d %s: %s (%s)", m.next, len(m.rows), msg.pub.Name, msg.pub.Skills, mode)
		return m, m.step()
	case errMsg:
		m.err = msg.err
		m.done = true
		m.status = "Error: " + msg.err.Error()
		return m, nil
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m.quit()
		}
		if m.filter.Focused() {
			switch msg.Type {
			case tea.KeyEnter, tea.KeyEsc:
				m.filter.Blur()
				m.table.Focus()
				return m, nil
			}
			var cmd tea.Cmd
			m.filter, cmd = m.filter.Update(msg)
			m.refreshRows()
			return m, cmd
		}
		switch msg.String() {
		case "q", "esc":
			return m.quit()
		case "/":
			m.table.Blur()
			return m, m.filter.Focus()
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.detail, cmd = m.detail.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if !m.done && m.err == nil {
		m.err = ErrInterrupted
	}
	return m, tea.Quit
}

// View renders progress, the entity table and, once done, the taxonomy.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Skills Extractor"))
	b.WriteString("\n")
	progress := fmt.Sprintf("%d/%d rows  %d raw skills  %d canonical",
		m.next, len(m.rows), len(m.state.Skills), len(m.last.Taxonomy))
	if !m.done {
		progress = m.spinner.View() + " " + progress
	}
	b.WriteString(mutedStyle.Render(progress))
	b.WriteString("\n")
	b.WriteString(boxStyle.Render(m.table.View()))
	b.WriteString("\n")
	if m.done && m.err == nil && len(m.last.Taxonomy) > 0 {
		b.WriteString(boxStyle.Render(m.detail.View()))
		b.WriteString("\n")
	}
	if m.filter.Focused() || m.filter.Value() != "" {
		b.WriteString(m.filter.View())
		b.WriteString("\n")
	}
	style := statusStyle
	if m.err != nil {
		style = errorStyle
	}
	b.WriteString(style.Render(m.status))
	return b.String()
}

// Err is the error that ended the run, if any.
func (m Model) Err() error { return m.err }

// Done reports whether every row was processed.
func (m Model) Done() bool { return m.done && m.err == nil }

// Outcome returns the final state and the output of the last step.
func (m Model) Outcome() (pipeline.State, pipeline.Published) { return m.state, m.last }

func (m *Model) resize(width, height int) {
	_, boxH := boxStyle.GetFrameSize()
	// title, progress, status and one spare line
	reserved := 4 + boxH
	tableH := max(3, (height-reserved)/2)
	detailH := max(3, height-reserved-tableH-boxH)
	m.table.SetColumns(columns(width))
	m.table.SetWidth(max(20, width-4))
	m.table.SetHeight(tableH)
	m.detail.Width = max(20, width-4)
	m.detail.Height = detailH
	m.detail.SetContent(m.renderTaxonomy())
}

func (m *Model) refreshRows() {
	q := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	rows := make([]table.Row, 0, len(m.last.Table))
	for i, e := range m.last.Table {
		skills := taxonomy.Join(e.Skills)
		if q != "" && !strings.Contains(strings.ToLower(e.Name+" "+skills), q) {
			continue
		}
		rows = append(rows, table.Row{strconv.Itoa(i + 1), e.Name, skills})
	}
	m.table.SetRows(rows)
}

func (m Model) renderTaxonomy() string {
	skills := taxonomy.Format(m.last.Taxonomy)
	if len(skills) == 0 {
		return "No skills yet."
	}
	return fmt.Sprintf("Taxonomy (%d)\n\n%s", len(skills), strings.Join(skills, "\n"))
}

func columns(width int) []table.Column {
	skillsW := max(20, width-4-6-22-4)
	return []table.Column{
		{Title: "#", Width: 4},
		{Title: "Name", Width: 20},
		{Title: "Canonical skills", Width: skillsW},
	}
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
