package ui

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rotisserie/eris"
	"golang.org/x/term"

	"github.com/cybre/beat-puppet/internal/utils"
)

var (
	ErrSelectionAborted = eris.New("selection aborted")
	ErrNoInteractiveTTY = eris.New("no interactive terminal available")
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("213")).
			Bold(true)
	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("246"))
	pointerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("213"))
	itemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
	selectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("219")).
				Bold(true)
	previewStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Foreground(lipgloss.Color("250")).
			Padding(0, 1)
	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// Choice is one row of a picker. Preview is shown beside the list while the row is
// highlighted.
type Choice struct {
	Label   string
	Detail  string
	Preview []string
}

// Picker is one page of the setup flow. Pages without Ask keep Initial.
type Picker struct {
	Title   string
	Name    string
	Choices []Choice
	Initial int
	Ask     bool
}

// RunSetup shows every picker that asks, in order, and returns the chosen index for
// each picker. When none asks it returns the clamped initial indexes without touching
// the terminal.
func RunSetup(pickers ...Picker) ([]int, error) {
	m := newSetupModel(pickers)
	if len(m.pages) == 0 {
		return m.cursors, nil
	}

	if !isInteractiveTerminal() {
		return nil, ErrNoInteractiveTTY
	}

	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return nil, eris.Wrap(err, "run setup")
	}

	result := final.(setupModel)
	if result.err != nil {
		return nil, result.err
	}
	return result.cursors, nil
}

type setupModel struct {
	pickers []Picker
	// pages holds the indexes of the pickers that are shown.
	pages   []int
	page    int
	cursors []int
	err     error
}

func newSetupModel(pickers []Picker) setupModel {
	m := setupModel{
		pickers: pickers,
		cursors: make([]int, len(pickers)),
	}
	for i, p := range pickers {
		m.cursors[i] = utils.ClampIndex(p.Initial, len(p.Choices))
		if p.Ask && len(p.Choices) > 0 {
			m.pages = append(m.pages, i)
		}
	}
	return m
}

func (m setupModel) Init() tea.Cmd {
	return nil
}

func (m setupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok || len(m.pages) == 0 {
		return m, nil
	}

	current := m.pages[m.page]
	count := len(m.pickers[current].Choices)

	switch key.String() {
	case "ctrl+c", "esc", "q":
		m.err = ErrSelectionAborted
		return m, tea.Quit
	case "up", "k":
		m.cursors[current] = wrapIndex(m.cursors[current]-1, count)
	case "down", "j":
		m.cursors[current] = wrapIndex(m.cursors[current]+1, count)
	case "enter", "tab", "right", "l":
		if m.page == len(m.pages)-1 {
			return m, tea.Quit
		}
		m.page++
	case "shift+tab", "left", "h", "backspace":
		if m.page > 0 {
			m.page--
		}
	}
	return m, nil
}

func (m setupModel) View() string {
	if len(m.pages) == 0 {
		return ""
	}
	current := m.pages[m.page]
	p := m.pickers[current]

	header := lipgloss.JoinHorizontal(lipgloss.Left,
		titleStyle.Render(p.Title),
		subtitleStyle.Render(fmt.Sprintf("  %d/%d", m.page+1, len(m.pages))),
	)

	lines := []string{"", header}
	for _, done := range m.pages[:m.page] {
		lines = append(lines, subtitleStyle.Render(fmt.Sprintf("%s: %s", m.pickers[done].Name, m.selectedLabel(done))))
	}

	cursor := m.cursors[current]
	body := renderChoices(p.Choices, cursor)
	if preview := p.Choices[cursor].Preview; len(preview) > 0 {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, "   ", previewStyle.Render(strings.Join(preview, "\n")))
	}

	next := "enter start"
	if m.page < len(m.pages)-1 {
		next = "enter next"
	}
	hints := []string{"↑/↓ move", next}
	if m.page > 0 {
		hints = append(hints, "← back")
	}
	hints = append(hints, "esc cancel")

	lines = append(lines, "", body, "", hintStyle.Render(strings.Join(hints, " · ")), "")
	return strings.Join(lines, "\n")
}

func (m setupModel) selectedLabel(picker int) string {
	choices := m.pickers[picker].Choices
	if len(choices) == 0 {
		return "not selected"
	}
	return choices[m.cursors[picker]].Label
}

func renderChoices(choices []Choice, cursor int) string {
	rows := make([]string, len(choices))
	for i, c := range choices {
		pointer, label := " ", itemStyle.Render(c.Label)
		if i == cursor {
			pointer, label = pointerStyle.Render("›"), selectedItemStyle.Render(c.Label)
		}
		row := pointer + " " + label
		if c.Detail != "" {
			row += subtitleStyle.Render("  " + c.Detail)
		}
		rows[i] = row
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func wrapIndex(idx, length int) int {
	if length <= 0 {
		return 0
	}
	idx = idx % length
	if idx < 0 {
		idx += length
	}
	return idx
}

func isInteractiveTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
