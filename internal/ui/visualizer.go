package ui

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/crazy3lf/colorconv"

	"github.com/cybre/beat-puppet/internal/pose"
	"github.com/cybre/beat-puppet/internal/utils"
)

// Toggler flips play/pause when the user presses space.
type Toggler interface {
	Toggle() bool
}

// Visualizer draws the live pose in the terminal.
type Visualizer struct {
	program   *tea.Program
	mu        sync.Mutex
	lastSend  time.Time
	throttle  time.Duration
	closeOnce sync.Once
}

type poseMsg struct {
	pose       pose.Pose
	receivedAt time.Time
}

type visualizerModel struct {
	stage       Stage
	pose        pose.Pose
	lastUpdated time.Time
	ready       bool
	width       int
	height      int
	onExit      func()
	toggle      Toggler
	exitOnce    sync.Once
}

var (
	vizContainerStyle    = lipgloss.NewStyle().Padding(0, 2)
	vizTimestampStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	vizMetricLabelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	vizMetricValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	vizPlayingStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	vizPausedStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	vizWaitingStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	vizHintStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	vizStageStyle        = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238"))
	vizTableHeaderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("246")).Underline(true)
	vizTableRowStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	vizBarFilledStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("204"))
	vizBarEmptyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	vizExpressionStyleOf = map[pose.Expression]lipgloss.Style{
		pose.ExpressionNeutral: lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		pose.ExpressionHappy:   lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true),
		pose.ExpressionAngry:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}
)

const (
	vizBarWidth   = 32
	renderLatency = 45 * time.Millisecond
)

// NewVisualizer starts the terminal program. onExit runs once when the user quits;
// toggle may be nil when the transport cannot be driven by hand.
func NewVisualizer(stage Stage, onExit func(), toggle Toggler) *Visualizer {
	model := &visualizerModel{stage: stage, onExit: onExit, toggle: toggle}
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithoutSignalHandler())

	v := &Visualizer{
		program:  program,
		throttle: renderLatency,
	}

	go program.Run()

	return v
}

// Render sends p to the terminal, dropping poses that arrive faster than the
// terminal refresh.
func (v *Visualizer) Render(p pose.Pose) error {
	v.mu.Lock()
	if time.Since(v.lastSend) < v.throttle {
		v.mu.Unlock()
		return nil
	}
	v.lastSend = time.Now()
	v.mu.Unlock()

	v.program.Send(poseMsg{
		pose:       p,
		receivedAt: time.Now(),
	})
	return nil
}

// Close stops the terminal program.
func (v *Visualizer) Close() {
	v.closeOnce.Do(func() {
		v.program.Quit()
	})
}

func (m *visualizerModel) Init() tea.Cmd {
	return nil
}

func (m *visualizerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case poseMsg:
		m.pose = msg.pose
		m.lastUpdated = msg.receivedAt
		m.ready = true
	case tea.KeyMsg:
		switch {
		case msg.Type == tea.KeyCtrlC:
			m.invokeExit()
			return m, tea.Quit
		case msg.String() == "q", msg.String() == "esc":
			m.invokeExit()
			return m, tea.Quit
		case msg.String() == " ", msg.String() == "p":
			if m.toggle != nil {
				m.toggle.Toggle()
			}
		}
	case tea.QuitMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m *visualizerModel) View() string {
	body := ""
	if !m.ready {
		header := titleStyle.Render("Beat Puppet")
		waiting := vizWaitingStyle.Render("Waiting for the first pose…")
		body = lipgloss.JoinVertical(lipgloss.Left, header, "", waiting)
	} else {
		body = renderVisualizerView(m.stage, m.pose, m.lastUpdated, m.toggle != nil)
	}
	return vizContainerStyle.Render(body)
}

func renderVisualizerView(stage Stage, p pose.Pose, updatedAt time.Time, canToggle bool) string {
	controls := "Press q / esc / ctrl+c to stop"
	if canToggle {
		controls = "Press space to play/pause · q / esc / ctrl+c to stop"
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		renderHeader(p, updatedAt),
		renderMetrics(p),
		"",
		lipgloss.JoinHorizontal(lipgloss.Top, vizStageStyle.Render(stage.Draw(p)), "  ", renderPartTable(p)),
		"",
		renderBars(p),
		"",
		vizHintStyle.Render(controls),
	)
}

func renderHeader(p pose.Pose, updatedAt time.Time) string {
	title := titleStyle.
		Foreground(lipgloss.Color(pulseColor(p.Pulse))).
		Render("Beat Puppet")
	timestamp := vizTimestampStyle.Render(updatedAt.Format("15:04:05.000"))

	return lipgloss.JoinHorizontal(lipgloss.Left, title, "  ", timestamp)
}

func renderMetrics(p pose.Pose) string {
	state := vizPausedStyle.Render("■ paused")
	if p.Playing {
		state = vizPlayingStyle.Render("▶ playing")
	}
	expression := vizExpressionStyleOf[p.Expression].Render(p.Expression.String())

	return lipgloss.JoinHorizontal(lipgloss.Left,
		state, "   ",
		renderMetric("Face", expression), "   ",
		renderMetric("Pulse", fmt.Sprintf("%4.2f", p.Pulse)), "   ",
		renderMetric("Jump", fmt.Sprintf("%5.1f", p.JumpHeight)), "   ",
		renderMetric("Scale", fmt.Sprintf("%4.2f", p.ScaleY)),
	)
}

func renderMetric(label, value string) string {
	return lipgloss.JoinHorizontal(
		lipgloss.Left,
		vizMetricLabelStyle.Render(label+":"),
		" ",
		vizMetricValueStyle.Render(value),
	)
}

func renderPartTable(p pose.Pose) string {
	rows := []string{vizTableHeaderStyle.Render(fmt.Sprintf("%-20s %-7s %7s %7s %7s", "part", "role", "x", "y", "angle°"))}
	for _, part := range p.Parts {
		rows = append(rows, vizTableRowStyle.Render(fmt.Sprintf("%-20s %-7s %7.1f %7.1f %7.1f",
			part.Name,
			part.Role,
			part.Position.X,
			part.Position.Y,
			part.Angle*180/math.Pi,
		)))
	}
	return strings.Join(rows, "\n")
}

func renderBars(p pose.Pose) string {
	return strings.Join([]string{
		renderBar("Pulse", p.Pulse/2),
		renderBar("Scale", (p.ScaleY-0.9)/0.1),
	}, "\n")
}

func renderBar(label string, value float64) string {
	clamped := utils.Clamp(value, 0.0, 1.0)
	filled := int(math.Round(clamped * vizBarWidth))
	if clamped > 0 && filled == 0 {
		filled = 1
	}

	return fmt.Sprintf("%s [%s%s] %3.0f%%",
		vizMetricLabelStyle.Render(fmt.Sprintf("%-8s", label)),
		vizBarFilledStyle.Render(strings.Repeat("█", filled)),
		vizBarEmptyStyle.Render(strings.Repeat("░", vizBarWidth-filled)),
		clamped*100,
	)
}

// pulseColor fades from calm blue to hot pink as the pulse climbs.
func pulseColor(pulse float64) string {
	norm := utils.Clamp(pulse/2, 0.0, 1.0)
	return hexColorFromHSV(210+120*norm, 0.6+0.3*norm, 0.9)
}

func hexColorFromHSV(h, s, v float64) string {
	h = math.Mod(h, 360)
	s = utils.Clamp(s, 0.0, 1.0)
	v = utils.Clamp(v, 0.0, 1.0)
	r, g, b, err := colorconv.HSVToRGB(h, s, v)
	if err != nil {
		return "#FFFFFF"
	}
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func (m *visualizerModel) invokeExit() {
	m.exitOnce.Do(func() {
		if m.onExit != nil {
			m.onExit()
		}
	})
}
