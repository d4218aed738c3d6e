// Package termui renders the notification stack in a terminal with BubbleTea.
// It backs `toast demo`, which drives a real scheduler without a Wayland session.
package termui

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/toastd/internal/config"
	"github.com/jmylchreest/toastd/internal/stack"
)

// Controls is the part of the scheduler the demo drives.
type Controls interface {
	Admit(req stack.Request) (stack.ID, error)
	Activate(id stack.ID) bool
	Dismiss(id stack.ID) bool
	Pause(id stack.ID)
	Resume(id stack.ID)
	EvictAll()
}

const (
	maxHistory   = 6
	tickInterval = 100 * time.Millisecond
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type admitMsg struct{}

// event is one line of the outcome history.
type event struct {
	title string
	text  string
	err   bool
}

// session holds the state that functions on the loop mutate.
type session struct {
	cfg      *config.Config
	surface  *Surface
	controls Controls
	samples  []stack.Request
	next     int
	titles   map[stack.ID]string
	history  []event
}

func (s *session) push(e event) {
	s.history = append(s.history, e)
	if len(s.history) > maxHistory {
		s.history = s.history[len(s.history)-maxHistory:]
	}
}

// report is the scheduler's host.
func (s *session) report(o stack.Outcome) {
	text := fmt.Sprintf("%s by %s", o.Effect, o.Trigger)
	if o.ActionTaken {
		text += fmt.Sprintf(" (action %q)", o.ActionKey)
	}
	s.push(event{title: s.titles[o.ID], text: text})
	delete(s.titles, o.ID)
}

// evicted is the scheduler's evict observer.
func (s *session) evicted(id stack.ID) {
	s.push(event{title: s.titles[id], text: "evicted silently"})
	delete(s.titles, id)
}

func (s *session) admit() error {
	req := s.samples[s.next%len(s.samples)]
	s.next++
	s.cfg.ApplyPanelDefaults(&req)

	id, err := s.controls.Admit(req)
	if err != nil {
		s.push(event{title: req.Title, text: err.Error(), err: true})
		return err
	}
	s.titles[id] = req.Title
	return nil
}

// Model is the demo's BubbleTea model.
type Model struct {
	sess *session
	loop *Loop
	keys KeyMap
	help help.Model
	bar  progress.Model
	now  func() time.Time

	selected int
	width    int
	height   int
	ready    bool
	status   string
}

// New creates a demo model. Attach must be called before the program starts.
func New(cfg *config.Config, surface *Surface, loop *Loop) Model {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	bar := progress.New(progress.WithSolidFill("12"), progress.WithoutPercentage())
	bar.Width = 30

	return Model{
		sess: &session{
			cfg:     cfg,
			surface: surface,
			samples: demoRequests(),
			titles:  make(map[stack.ID]string),
		},
		loop: loop,
		keys: DefaultKeyMap(),
		help: help.New(),
		bar:  bar,
		now:  time.Now,
	}
}

// Attach sets the scheduler the model drives.
func (m Model) Attach(c Controls) {
	m.sess.controls = c
}

// Host returns the host that records outcomes in the history.
func (m Model) Host() stack.Host {
	return stack.HostFunc(m.sess.report)
}

// EvictObserver returns the callback that records silent evictions.
func (m Model) EvictObserver() func(id stack.ID) {
	return m.sess.evicted
}

// Init starts the loop, the countdown ticker and shows the first notification.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loop.wait(),
		tick(),
		func() tea.Msg { return admitMsg{} },
	)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case postMsg:
		msg()
		m.clampSelection()
		return m, m.loop.wait()

	case tickMsg:
		return m, tick()

	case admitMsg:
		m.admit(1)
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.bar.Width = max(min(msg.Width-24, 40), 10)
		m.ready = true
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.sess.controls.EvictAll()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}

	case key.Matches(msg, m.keys.Down):
		if m.selected < m.sess.surface.Len()-1 {
			m.selected++
		}

	case key.Matches(msg, m.keys.New):
		m.admit(1)

	case key.Matches(msg, m.keys.Burst):
		m.admit(m.sess.cfg.Stack.MaxVisible + 1)

	case key.Matches(msg, m.keys.Action):
		if c, ok := m.current(); ok {
			if c.Content.ActionLabel == "" {
				m.status = "This notification has no action"
			} else {
				m.sess.controls.Activate(c.Content.ID)
			}
		}

	case key.Matches(msg, m.keys.Dismiss):
		if c, ok := m.current(); ok {
			m.sess.controls.Dismiss(c.Content.ID)
		}

	case key.Matches(msg, m.keys.Pause):
		if c, ok := m.current(); ok {
			if c.Paused {
				m.sess.controls.Resume(c.Content.ID)
			} else {
				m.sess.controls.Pause(c.Content.ID)
			}
		}

	case key.Matches(msg, m.keys.Clear):
		m.sess.controls.EvictAll()
	}

	m.clampSelection()
	return m, nil
}

func (m *Model) admit(n int) {
	for range n {
		if err := m.sess.admit(); err != nil {
			m.status = "Failed to show notification: " + err.Error()
			return
		}
	}
	m.selected = 0
}

func (m Model) current() (Card, bool) {
	cards := m.sess.surface.Cards()
	if m.selected < 0 || m.selected >= len(cards) {
		return Card{}, false
	}
	return cards[m.selected], true
}

func (m *Model) clampSelection() {
	n := m.sess.surface.Len()
	if m.selected >= n {
		m.selected = n - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Padding(0, 1)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	titleStyle = lipgloss.NewStyle().Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	cardStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
	selectedCardStyle = cardStyle.BorderForeground(lipgloss.Color("12"))
)

// View renders the demo.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	opts := m.sess.cfg.StackOptions()
	b.WriteString(headerStyle.Render("toastd demo"))
	b.WriteString(dimStyle.Render(fmt.Sprintf("%d/%d visible, anchored %s",
		m.sess.surface.Len(), opts.MaxVisible, opts.Geometry.Anchor)))
	b.WriteString("\n\n")

	cards := m.sess.surface.Cards()
	if len(cards) == 0 {
		b.WriteString(dimStyle.Render("  No notifications. Press n to show one."))
		b.WriteString("\n")
	}
	now := m.now()
	for i, c := range cards {
		b.WriteString(m.renderCard(c, i == m.selected, now))
		b.WriteString("\n")
	}

	if len(m.sess.history) > 0 {
		b.WriteString("\n" + headerStyle.Render("Outcomes") + "\n")
		for _, e := range m.sess.history {
			line := fmt.Sprintf("  %s  %s", titleStyle.Render(e.title), e.text)
			if e.err {
				line = errorStyle.Render(line)
			}
			b.WriteString(line + "\n")
		}
	}

	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(errorStyle.Render(m.status) + "\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) renderCard(c Card, selected bool, now time.Time) string {
	var lines []string

	head := titleStyle.Render(c.Content.Title)
	if c.Content.AppName != "" {
		head += " " + dimStyle.Render(c.Content.AppName)
	}
	lines = append(lines, head)
	if c.Content.Subtitle != "" {
		lines = append(lines, c.Content.Subtitle)
	}
	if c.Content.SecondarySubtitle != "" {
		lines = append(lines, dimStyle.Render(c.Content.SecondarySubtitle))
	}
	if c.Content.ActionLabel != "" {
		lines = append(lines, keyStyle.Render("[enter] "+c.Content.ActionLabel))
	}

	remaining := c.Remaining(now)
	left := humanize.RelTime(now, now.Add(remaining), "ago", "left")
	if c.Paused {
		left = "paused, " + left
	}
	if c.Content.ShowCountdown {
		lines = append(lines, m.bar.ViewAs(fraction(remaining, c.Content.Duration))+" "+dimStyle.Render(left))
	} else {
		lines = append(lines, dimStyle.Render(left))
	}
	lines = append(lines, dimStyle.Render(fmt.Sprintf("%.0fx%.0f at %.0f,%.0f",
		c.Rect.Width, c.Rect.Height, c.Rect.X, c.Rect.Y)))

	style := cardStyle
	if selected {
		style = selectedCardStyle
	}
	return style.Render(strings.Join(lines, "\n"))
}

// fraction returns how much of total is left, clamped to [0, 1].
func fraction(remaining, total time.Duration) float64 {
	if total <= 0 {
		return 0
	}
	return min(max(float64(remaining)/float64(total), 0), 1)
}

func demoRequests() []stack.Request {
	return []stack.Request{
		{
			AppName:  "mail",
			Title:    "New message",
			Subtitle: "Lunch on Thursday?",
			Duration: 8 * time.Second,
		},
		{
			AppName:           "build",
			Title:             "Build finished",
			Subtitle:          "toastd passed all checks",
			SecondarySubtitle: "main @ 4f2c1e9",
			ActionLabel:       "Open log",
			ActionKey:         "open-log",
			ShowCountdown:     true,
			Duration:          12 * time.Second,
		},
		{
			AppName:  "calendar",
			Title:    "Standup in 5 minutes",
			Duration: 5 * time.Second,
		},
		{
			AppName:       "updates",
			Title:         "Updates available",
			Subtitle:      "3 packages can be upgraded",
			ActionLabel:   "Upgrade",
			ActionKey:     "upgrade",
			ActionEffect:  stack.EffectInvoke,
			TimeoutEffect: stack.EffectDismiss,
			ShowCountdown: true,
			Duration:      20 * time.Second,
		},
	}
}

// RunOptions configures the demo.
type RunOptions struct {
	Config *config.Config
	Screen stack.Rect   // virtual display, DefaultScreen when empty
	Logger *slog.Logger // scheduler logs, discarded when nil
}

// Run starts the demo and blocks until the user quits.
func Run(opts RunOptions) error {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	screen := opts.Screen
	if screen.Empty() {
		screen = DefaultScreen
	}
	// Logs on stderr would tear the alternate screen.
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	loop := NewLoop(0)
	surface := NewSurface(screen)
	m := New(cfg, surface, loop)
	sched := stack.New(surface, m.Host(), loop,
		stack.WithOptions(cfg.StackOptions()),
		stack.WithLogger(logger),
		stack.WithEvictObserver(m.EvictObserver()),
	)
	m.Attach(sched)

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
