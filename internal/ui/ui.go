// Package ui is the terminal front end of the sound test scene.
package ui

import (
	"math"
	"strings"
	"time"

	"pakaudio/internal/log"
	"pakaudio/internal/soundtest"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// maxRadius is the disk radius, in rows, of a marker at full scale.
const maxRadius = 6

var (
	laneColors = [2]lipgloss.Color{"#10B981", "#F59E0B"}

	buttonStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(0, 2).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A1A1AA")).
			MarginLeft(2)

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717A")).
			Italic(true)
)

type tickMsg time.Time

// Model drives a soundtest.Driver from Bubble Tea ticks and keys.
type Model struct {
	driver   *soundtest.Driver
	interval time.Duration
	last     time.Time
	width    int
	height   int
	paused   bool
	done     bool
}

// New wraps an already started driver. interval is the frame period.
func New(d *soundtest.Driver, interval time.Duration) Model {
	return Model{driver: d, interval: interval}
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick(m.interval)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if m.done {
			return m, nil
		}
		now := time.Time(msg)
		dt := m.interval
		if !m.last.IsZero() {
			dt = now.Sub(m.last)
		}
		m.last = now
		m.driver.Update(dt.Seconds())
		m.driver.LateUpdate()
		return m, tick(m.interval)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.FocusMsg:
		m.paused = false
		m.driver.OnApplicationPause(false)

	case tea.BlurMsg:
		m.paused = true
		m.driver.OnApplicationPause(true)

	case tea.KeyMsg:
		switch msg.String() {
		case "t", " ", "enter":
			m.driver.ToggleBGM()
		case "q", "ctrl+c", "esc":
			return m.quit()
		}
	}
	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if !m.done {
		m.done = true
		m.driver.OnDestroy()
		log.Debug(log.CatUI, "Scene closed")
	}
	return m, tea.Quit
}

// Done reports whether the scene has been torn down.
func (m Model) Done() bool { return m.done }

func (m Model) View() string {
	if m.done {
		return ""
	}

	markers := m.driver.Markers()
	cells := make([]string, len(markers))
	for i, mk := range markers {
		cells[i] = lipgloss.Place(4*maxRadius+3, 2*maxRadius+1, lipgloss.Center, lipgloss.Center,
			lipgloss.NewStyle().Foreground(laneColors[i]).Render(disk(mk.Scale())))
	}
	stage := lipgloss.JoinHorizontal(lipgloss.Center, cells[0], "    ", cells[1])

	status := "lane " + string(rune('0'+m.driver.Lane()))
	if m.paused {
		status += "  (paused)"
	}

	controls := lipgloss.JoinHorizontal(lipgloss.Top,
		buttonStyle.Render(m.driver.ButtonLabel()),
		infoStyle.Render(m.driver.InfoText()))

	var b strings.Builder
	b.WriteString(stage)
	b.WriteString("\n\n")
	b.WriteString(controls)
	b.WriteString("\n\n")
	b.WriteString(hintStyle.Render(status + "  ·  t toggle BGM  ·  q quit"))

	if m.width == 0 || m.height == 0 {
		return b.String()
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, b.String())
}

// disk draws a filled circle for a marker scale in [0, MaxScale]. Cells are
// twice as wide as tall, hence the x/2.
func disk(scale float64) string {
	r := int(math.Round(scale / soundtest.MaxScale * maxRadius))
	if r <= 0 {
		return ""
	}
	var b strings.Builder
	for y := -r; y <= r; y++ {
		for x := -2 * r; x <= 2*r; x++ {
			fx := float64(x) / 2
			if fx*fx+float64(y*y) <= float64(r*r)+0.5 {
				b.WriteByte('#')
			} else {
				b.WriteByte(' ')
			}
		}
		if y < r {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
