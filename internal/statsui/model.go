// Package statsui provides the Bubble Tea stats interface.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/roomtrack/internal/metrics"
	"github.com/verte-zerg/roomtrack/internal/model"
	"github.com/verte-zerg/roomtrack/internal/session"
	"github.com/verte-zerg/roomtrack/internal/stats"
	"github.com/verte-zerg/roomtrack/internal/store"
)

const (
	tabOverview = iota
	tabRooms
	tabAttempts
)

const (
	plotHeight     = 10
	histogramWidth = 40
	weakRoomCount  = 3
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Model implements the Bubble Tea stats UI.
type Model struct {
	store  *store.Store
	cfg    model.StatsConfig
	engine *metrics.Engine

	report stats.Report
	errMsg string

	tabs      []string
	activeTab int
	viewports []viewport.Model
	roomTable table.Model

	width  int
	height int
}

// NewModel constructs a stats UI model.
func NewModel(st *store.Store, cfg model.StatsConfig, engine *metrics.Engine) *Model {
	if cfg.CurveWindow <= 0 {
		cfg.CurveWindow = 5
	}
	m := &Model{
		store:  st,
		cfg:    cfg,
		engine: engine,
		tabs:   []string{"Overview", "Rooms", "Attempts"},
	}
	m.roomTable = buildRoomTable(nil, nil, 0, 1)
	m.initViewports()
	m.refreshReport()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			return m, tea.Quit
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "[":
			m.moveSession(-1)
			return m, nil
		case "]":
			m.moveSession(1)
			return m, nil
		case "=":
			m.cfg.CurveWindow = nextCurveWindow(m.cfg.CurveWindow)
			m.renderTabContents()
			return m, nil
		case "-":
			m.cfg.CurveWindow = prevCurveWindow(m.cfg.CurveWindow)
			m.renderTabContents()
			return m, nil
		case "g", "home":
			if m.activeTab == tabRooms {
				m.roomTable.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabRooms {
				m.roomTable.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			if m.activeTab == tabRooms {
				var cmd tea.Cmd
				m.roomTable, cmd = m.roomTable.Update(msg)
				return m, cmd
			}
			vp := m.viewports[m.activeTab]
			var cmd tea.Cmd
			vp, cmd = vp.Update(msg)
			m.viewports[m.activeTab] = vp
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, vpHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = vpHeight
	}
	m.roomTable.SetWidth(m.width)
	m.roomTable.SetHeight(maxInt(1, vpHeight-1))
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
	if m.activeTab == tabRooms {
		m.roomTable.Focus()
	} else {
		m.roomTable.Blur()
	}
}

// moveSession switches to the previous or next listed session.
func (m *Model) moveSession(delta int) {
	sessions := m.report.Sessions
	if len(sessions) == 0 {
		return
	}
	idx := m.sessionIndex()
	next := idx + delta
	if next < 0 || next >= len(sessions) {
		return
	}
	m.cfg.SessionID = sessions[next].ID
	m.refreshReport()
	m.updateLayout()
}

func (m *Model) sessionIndex() int {
	if m.report.Session == nil {
		return len(m.report.Sessions) - 1
	}
	for i, s := range m.report.Sessions {
		if s.ID == m.report.Session.ID() {
			return i
		}
	}
	return len(m.report.Sessions) - 1
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	summary := padLines(m.renderSessionSummary(), m.width)
	return tabs + "\n" + summary
}

func (m *Model) renderSessionSummary() string {
	s := m.report.Session
	if s == nil {
		return headerStyle.Render("Session: none")
	}
	name := s.Name()
	if name == "" {
		name = "unnamed"
	}
	summary := fmt.Sprintf("Session: %s  started=%s  %d/%d  window=%d",
		name,
		s.StartedAt().Local().Format("2006-01-02 15:04"),
		m.sessionIndex()+1,
		len(m.report.Sessions),
		m.cfg.CurveWindow,
	)
	return headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderHelp() string {
	return headerStyle.Render("Nav: left/right  Scroll: up/down/pgup/pgdn  Session: [/]  Window: -/=  Quit: q")
}

func (m *Model) renderFooter() string {
	if m.errMsg != "" {
		return m.renderHelp() + "\n" + errorStyle.Render(m.errMsg)
	}
	return m.renderHelp()
}

func (m *Model) renderBody(height int) string {
	if m.activeTab == tabRooms {
		s := m.report.Session
		switch {
		case s == nil:
			return fitLines("No sessions found.", m.width, height)
		case s.HistoryRoomCount() == 0:
			return fitLines("No room stats found.", m.width, height)
		default:
			view := tableMutedStyle.Render(m.roomTable.View())
			return fitLines(view, m.width, height)
		}
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) refreshReport() {
	report, err := stats.BuildReport(context.Background(), m.store, m.cfg)
	if err != nil {
		m.errMsg = err.Error()
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load stats.")
		}
		return
	}
	m.errMsg = ""
	m.report = report
	_, bodyHeight, _ := m.layoutHeights()
	width := m.width
	if width <= 0 {
		width = 80
	}
	cols, rows := buildRoomTableData(m.report.Session, m.engine)
	m.roomTable.SetRows(nil)
	m.roomTable.SetColumns(cols)
	m.roomTable.SetRows(rows)
	m.roomTable.SetWidth(width)
	m.roomTable.SetHeight(maxInt(1, bodyHeight-1))
	m.renderTabContents()
}

func (m *Model) renderTabContents() {
	if len(m.viewports) == 0 {
		return
	}
	if m.errMsg != "" {
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load stats.")
		}
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabOverview].SetContent(renderOverview(m.report.Session, m.cfg.CurveWindow, width))
	m.viewports[tabAttempts].SetContent(renderAttempts(m.report.Session, m.cfg.CurveWindow, width))
}

func renderOverview(s *session.PracticeSession, window, width int) string {
	if s == nil || s.TotalAttempts() == 0 {
		return "No sessions found."
	}
	parts := []string{renderSummaryCards(s, width)}
	if curves := renderCurves(s, window, width); curves != "" {
		parts = append(parts, curves)
	}
	if hist := renderHistogram(s); hist != "" {
		parts = append(parts, hist)
	}
	return strings.TrimRight(strings.Join(parts, "\n\n"), "\n")
}

func renderSummaryCards(s *session.PracticeSession, width int) string {
	times := stats.Floats(s.SegmentTimes())
	sorted := stats.Sorted(times)
	best, median, sob := "-", "-", "-"
	if len(sorted) > 0 {
		best = model.TicksFromFloat(sorted[0]).String()
		median = model.TicksFromFloat(stats.Median(sorted)).String()
		var sum float64
		for r := 0; r < s.RoomCount(); r++ {
			room := stats.Sorted(stats.Floats(s.RoomTimes(model.RoomIndex(r))))
			if len(room) > 0 {
				sum += room[0]
			}
		}
		sob = model.TicksFromFloat(sum).String()
	}
	resetRate := 0.0
	if s.TotalAttempts() > 0 {
		resetRate = float64(s.TotalDnfs()) / float64(s.TotalAttempts()) * 100
	}
	cards := []string{
		metricCard("Attempts", fmt.Sprintf("%d", s.TotalAttempts())),
		metricCard("Completed", fmt.Sprintf("%d", s.TotalCompleted())),
		metricCard("Reset Rate", fmt.Sprintf("%.1f%%", resetRate)),
		metricCard("Best", best),
		metricCard("Median", median),
		metricCard("Sum of Best", sob),
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
	row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4], cards[5])
	return lipgloss.JoinVertical(lipgloss.Left, row1, row2)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func renderCurves(s *session.PracticeSession, window, width int) string {
	var buf bytes.Buffer
	if err := stats.RenderCurvesWithSize(&buf, s, window, width, plotHeight, true); err != nil {
		return fmt.Sprintf("Failed to render curves: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func renderHistogram(s *session.PracticeSession) string {
	times := stats.Floats(s.SegmentTimes())
	if len(times) < 2 {
		return ""
	}
	var buf bytes.Buffer
	if err := stats.PlotHistogram(&buf, "Segment Distribution", times, 0, histogramWidth); err != nil {
		return fmt.Sprintf("Failed to render histogram: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func renderAttempts(s *session.PracticeSession, window, width int) string {
	if s == nil || s.TotalAttempts() == 0 {
		return "No attempts recorded."
	}
	rooms := s.HistoryRoomCount()
	headers := []string{"#", "Outcome"}
	for r := 0; r < rooms; r++ {
		headers = append(headers, model.RoomIndex(r).Label())
	}
	headers = append(headers, "Segment")

	rows := make([][]string, 0, s.TotalAttempts())
	for _, a := range s.Attempts() {
		row := []string{fmt.Sprintf("%d", a.Index()+1), a.Outcome().String()}
		dnf, hasDnf := a.Dnf()
		for r := 0; r < rooms; r++ {
			room := model.RoomIndex(r)
			cell := ""
			if t, ok := a.RoomTime(room); ok {
				cell = t.String()
			} else if hasDnf && dnf.Room == room {
				cell = "x " + dnf.TimeIntoRoom.String()
			}
			row = append(row, cell)
		}
		segment := ""
		if a.Completed() {
			segment = a.SegmentTime().String()
		}
		rows = append(rows, append(row, segment))
	}

	var b strings.Builder
	b.WriteString(renderPlainTable(headers, rows))
	if losses := stats.TopRoomsByTimeLoss(s, weakRoomCount); len(losses) > 0 {
		b.WriteString("\n\nTime lost vs best (median)\n")
		for _, l := range losses {
			fmt.Fprintf(&b, "  %s  +%s\n", l.Room.Label(), l.Loss)
		}
	}
	if weak := stats.SelectWeakRooms(s, weakRoomCount); len(weak) > 0 {
		var buf bytes.Buffer
		if err := stats.RenderRoomCurves(&buf, s, weak, window, width, plotHeight, true); err != nil {
			fmt.Fprintf(&b, "\nFailed to render room curves: %v\n", err)
		} else if buf.Len() > 0 {
			b.WriteString("\n")
			b.WriteString(buf.String())
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderPlainTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = maxInt(widths[i], lipgloss.Width(cell))
		}
	}
	line := func(cells []string) string {
		out := make([]string, len(cells))
		for i, cell := range cells {
			out[i] = cell + strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
		}
		return strings.TrimRight(strings.Join(out, "  "), " ")
	}
	lines := []string{line(headers)}
	for _, row := range rows {
		lines = append(lines, line(row))
	}
	return strings.Join(lines, "\n")
}

// buildRoomTableData lays out the per-room export metrics as table columns and rows.
func buildRoomTableData(s *session.PracticeSession, engine *metrics.Engine) ([]table.Column, []table.Row) {
	columns := []table.Column{{Title: "Room", Width: 6}}
	if s == nil || engine == nil || s.HistoryRoomCount() == 0 {
		return columns, nil
	}
	var entries []metrics.Entry
	for _, e := range engine.Compute(s, metrics.ChannelExport) {
		if len(e.Result.Rooms) > 0 {
			entries = append(entries, e)
		}
	}
	rows := make([]table.Row, s.HistoryRoomCount())
	for r := range rows {
		rows[r] = table.Row{model.RoomIndex(r).Label()}
	}
	for _, e := range entries {
		name := e.Descriptor.Name()
		width := lipgloss.Width(name)
		for r := range rows {
			value := ""
			if r < len(e.Result.Rooms) {
				value = e.Result.Rooms[r]
			}
			width = maxInt(width, lipgloss.Width(value))
			rows[r] = append(rows[r], value)
		}
		columns = append(columns, table.Column{Title: name, Width: width + 1})
	}
	return columns, rows
}

func buildRoomTable(s *session.PracticeSession, engine *metrics.Engine, width, height int) table.Model {
	cols, rows := buildRoomTableData(s, engine)
	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithHeight(maxInt(1, height-1)),
	)
	t.SetWidth(width)
	t.SetStyles(roomTableStyles())
	return t
}

func roomTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func nextCurveWindow(n int) int {
	if n < 5 {
		return 5
	}
	if n%5 == 0 {
		return n + 5
	}
	return ((n / 5) + 1) * 5
}

func prevCurveWindow(n int) int {
	if n <= 5 {
		return 1
	}
	if n%5 == 0 {
		return n - 5
	}
	return (n / 5) * 5
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
