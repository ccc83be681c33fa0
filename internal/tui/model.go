// Package tui provides the Bubble Tea split timer.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/roomtrack/internal/events"
	"github.com/verte-zerg/roomtrack/internal/export"
	"github.com/verte-zerg/roomtrack/internal/model"
	"github.com/verte-zerg/roomtrack/internal/session"
	"github.com/verte-zerg/roomtrack/internal/store"
)

const tickInterval = 50 * time.Millisecond

type tickMsg time.Time

// Options configures the split timer.
type Options struct {
	Name     string
	Rooms    int
	Store    *store.Store
	Overlay  *export.Overlay
	Recorder *events.Recorder
	Logger   *slog.Logger
}

// Model implements the Bubble Tea split timer UI.
type Model struct {
	opts    Options
	tracker *events.Tracker
	now     func() time.Time

	width  int
	height int

	running   bool
	startedAt time.Time
	splits    []model.TimeTicks

	lastAttempt string
	status      string
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F0F0F0"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	currentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// NewModel constructs a split timer model.
func NewModel(opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	m := &Model{
		opts:    opts,
		tracker: events.NewTracker(opts.Name, opts.Logger),
		now:     time.Now,
	}
	m.record(events.Event{Type: events.TypeSession, Name: opts.Name, At: m.tracker.Session().StartedAt()})
	return m
}

// Session returns the session being practiced.
func (m *Model) Session() *session.PracticeSession {
	return m.tracker.Session()
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		return m, tick()
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.save()
			return m, tea.Quit
		case tea.KeySpace:
			m.split(false)
			return m, nil
		case tea.KeyEnter:
			m.split(true)
			return m, nil
		}
		switch msg.String() {
		case "q":
			m.save()
			return m, tea.Quit
		case "r":
			m.reset()
		case "n":
			m.newSession()
		}
		return m, nil
	default:
		return m, nil
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	lines := []string{titleStyle.Render(m.title()), ""}
	lines = append(lines, m.renderRooms()...)
	lines = append(lines, "", m.renderTimer())
	if m.lastAttempt != "" {
		lines = append(lines, m.lastAttempt)
	}
	if m.status != "" {
		lines = append(lines, errorStyle.Render(m.status))
	}
	content := strings.Join(lines, "\n")

	footer := m.renderFooter()
	if m.width == 0 || m.height == 0 {
		if footer == "" {
			return content
		}
		return content + "\n\n" + footer
	}
	if footer == "" || m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	footerHeight := lipgloss.Height(footer)
	body := lipgloss.Place(m.width, m.height-footerHeight, lipgloss.Center, lipgloss.Center, content)
	footerBlock := lipgloss.PlaceHorizontal(m.width, lipgloss.Center, footer)
	return body + "\n" + footerBlock
}

func (m *Model) title() string {
	s := m.tracker.Session()
	name := s.Name()
	if name == "" {
		name = "practice"
	}
	return fmt.Sprintf("%s · attempt %d", name, s.NextIndex()+1)
}

func (m *Model) elapsed() model.TimeTicks {
	if !m.running {
		return 0
	}
	return model.TicksFromDuration(m.now().Sub(m.startedAt))
}

// split starts an attempt or completes the current room.
func (m *Model) split(final bool) {
	if !m.running {
		if final {
			return
		}
		m.running = true
		m.startedAt = m.now()
		m.tracker.Begin(m.startedAt)
		m.splits = nil
		m.status = ""
		return
	}
	room := model.RoomIndex(len(m.splits))
	cumulative := m.elapsed()
	if m.opts.Rooms > 0 && int(room)+1 >= m.opts.Rooms {
		final = true
	}
	at := m.startedAt
	if err := m.tracker.RoomCompleted(room, cumulative, final); err != nil {
		m.fail(err)
		return
	}
	m.record(events.Event{Type: events.TypeRoom, Room: room, Ticks: cumulative, Final: final, At: at})
	m.splits = append(m.splits, cumulative)
	if final {
		m.running = false
		m.lastAttempt = fmt.Sprintf("Completed in %s", cumulative)
		m.refreshOverlay()
	}
}

// reset abandons the attempt in the current room.
func (m *Model) reset() {
	if !m.running {
		return
	}
	room := model.RoomIndex(len(m.splits))
	cumulative := m.elapsed()
	at := m.startedAt
	m.running = false
	if err := m.tracker.Abandoned(room, cumulative); err != nil {
		m.fail(err)
		return
	}
	m.record(events.Event{Type: events.TypeDnf, Room: room, Ticks: cumulative, At: at})
	m.lastAttempt = fmt.Sprintf("Reset in %s after %s", room.Label(), cumulative)
	m.refreshOverlay()
}

func (m *Model) newSession() {
	m.save()
	m.running = false
	m.splits = nil
	m.lastAttempt = ""
	prev := m.tracker.StartSession(m.opts.Name)
	m.opts.Logger.Debug("session closed", "session", prev.ID(), "attempts", prev.TotalAttempts())
	m.record(events.Event{Type: events.TypeSession, Name: m.opts.Name, At: m.tracker.Session().StartedAt()})
	m.refreshOverlay()
}

func (m *Model) fail(err error) {
	m.running = false
	m.splits = nil
	m.status = fmt.Sprintf("attempt dropped: %v", err)
}

func (m *Model) refreshOverlay() {
	if m.opts.Overlay == nil {
		return
	}
	m.opts.Overlay.Update(m.tracker.Session())
}

func (m *Model) record(ev events.Event) {
	if m.opts.Recorder == nil {
		return
	}
	if err := m.opts.Recorder.Record(ev); err != nil {
		m.status = fmt.Sprintf("failed to record event: %v", err)
	}
}

func (m *Model) save() {
	s := m.tracker.Session()
	if m.opts.Store == nil || s.TotalAttempts() == 0 {
		return
	}
	if err := m.opts.Store.SaveSession(context.Background(), s); err != nil {
		m.status = fmt.Sprintf("failed to save session: %v", err)
		m.opts.Logger.Error("failed to save session", "session", s.ID(), "err", err)
	}
}

func (m *Model) roomCount() int {
	n := m.opts.Rooms
	if n <= 0 {
		n = m.tracker.Session().HistoryRoomCount()
	}
	if n < len(m.splits)+1 && m.running {
		n = len(m.splits) + 1
	}
	return n
}

func (m *Model) renderRooms() []string {
	s := m.tracker.Session()
	n := m.roomCount()
	lines := make([]string, 0, n)
	var prev model.TimeTicks
	for i := 0; i < n; i++ {
		room := model.RoomIndex(i)
		best := "-"
		if times := s.RoomTimes(room); len(times) > 0 {
			fastest := times[0]
			for _, t := range times[1:] {
				if t < fastest {
					fastest = t
				}
			}
			best = fastest.String()
		}
		split := "-"
		style := pendingStyle
		switch {
		case i < len(m.splits):
			split = (m.splits[i] - prev).String()
			prev = m.splits[i]
			style = doneStyle
		case m.running && i == len(m.splits):
			split = (m.elapsed() - prev).String()
			style = currentStyle
		}
		lines = append(lines, style.Render(fmt.Sprintf("%-4s %10s   best %s", room.Label(), split, best)))
	}
	return lines
}

func (m *Model) renderTimer() string {
	if !m.running {
		return pendingStyle.Render("space: start  enter: finish  r: reset  n: new session  q: quit")
	}
	return currentStyle.Render(m.elapsed().String())
}

func (m *Model) renderFooter() string {
	if m.opts.Overlay == nil {
		return ""
	}
	text := m.opts.Overlay.Text()
	if text == "" {
		return ""
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	return footerStyle.Render(strings.Join(wrapSegments(splitOverlay(text), width), "\n"))
}
