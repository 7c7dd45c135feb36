// Package tui implements the operator dashboard: a single-screen
// bubbletea view over the engine's event stream (price, orders,
// position, errors). Adapted from the teacher's internal/tui/model.go —
// the KeyMap/tea.Model/Init-Update-View shape, the header/footer render
// pattern, and renderBox/truncate/formatDuration are kept; the
// multi-screen, multi-theme, signal/position-pane machinery the teacher
// built for a pump-signal bot (SignalsPane, ConfigModal, TradesHistoryView,
// the Classic/Cyberpunk/Neon render modes, animation.go's frame ticker) has
// no equivalent here, since this engine has one pair, one position, and no
// inbound signal feed to browse — it is replaced by a single dashboard
// rendering the engine's own event stream.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/shopspring/decimal"

	"solswap-engine/internal/engine"
	"solswap-engine/internal/model"
)

// KeyMap is the dashboard's global key bindings.
type KeyMap struct {
	Quit key.Binding
}

var keys = KeyMap{
	Quit: key.NewBinding(key.WithKeys("q", "ctrl+c")),
}

// Model is the dashboard's state: everything it needs is pushed in
// through the engine's event channel, never pulled.
type Model struct {
	Pair      string
	StartedAt time.Time

	LastPrice decimal.Decimal
	Position  *model.Position
	Balance   decimal.Decimal
	Healthy   bool
	LastErr   string

	Logs []string

	Width, Height int

	events <-chan engine.Event
}

// NewModel creates a dashboard bound to one pair's event stream. events
// may be nil, in which case the dashboard renders a static "no engine
// attached" state — useful for previewing the layout.
func NewModel(pair string, events <-chan engine.Event) Model {
	return Model{
		Pair:      pair,
		StartedAt: time.Now(),
		Healthy:   true,
		events:    events,
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.SetWindowTitle(fmt.Sprintf("solswap-engine — %s", m.Pair)),
		tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) }),
	}
	if m.events != nil {
		cmds = append(cmds, listenForEvent(m.events))
	}
	return tea.Batch(cmds...)
}

type tickMsg time.Time

// engineEventMsg wraps one engine.Event delivered over the bridge
// channel, so Update can apply it like any other bubbletea message.
type engineEventMsg engine.Event

func listenForEvent(ch <-chan engine.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return engineEventMsg(ev)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		return m, nil

	case tickMsg:
		return m, tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })

	case engineEventMsg:
		m.apply(engine.Event(msg))
		var next tea.Cmd
		if m.events != nil {
			next = listenForEvent(m.events)
		}
		return m, next
	}
	return m, nil
}

func (m *Model) apply(ev engine.Event) {
	switch ev.Kind {
	case engine.EventTick:
		if ev.Tick != nil {
			m.LastPrice = ev.Tick.Last
		}
	case engine.EventOrder:
		if ev.Order != nil {
			m.addLog(fmt.Sprintf("%s  %-4s  qty %s @ %s", ev.At.Format("15:04:05"),
				strings.ToUpper(ev.Order.Side.String()), ev.Order.Quantity.String(), ev.Order.Price.String()))
		}
	case engine.EventPosition:
		m.Position = ev.Position
	case engine.EventBalance:
		if ev.Balance != nil {
			m.Balance = *ev.Balance
		}
	case engine.EventError:
		if ev.Err != nil {
			m.LastErr = ev.Err.Error()
			m.addLog(fmt.Sprintf("%s  ERROR  %s", ev.At.Format("15:04:05"), ev.Err.Error()))
		}
	}
}

func (m *Model) addLog(line string) {
	m.Logs = append(m.Logs, line)
	if len(m.Logs) > 200 {
		m.Logs = m.Logs[len(m.Logs)-200:]
	}
}

func (m Model) View() string {
	w := m.Width
	if w <= 0 {
		w = 80
	}

	header := m.renderHeader(w)
	body := m.renderBody(w)
	footer := StyleFooter.Width(w).Render(RenderHotKey("Q", "uit"))

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m Model) renderHeader(w int) string {
	uptime := formatDuration(time.Since(m.StartedAt))
	statusColor := lipgloss.Color("#73daca")
	statusText := "RUNNING"
	if !m.Healthy {
		statusColor = ColorWarning
		statusText = "DEGRADED"
	}
	status := lipgloss.NewStyle().Foreground(statusColor).Render("● " + statusText)

	price := "—"
	if !m.LastPrice.IsZero() {
		price = m.LastPrice.String()
	}

	parts := []string{
		status,
		m.Pair,
		"price " + price,
		"bal " + m.Balance.String(),
		"up " + uptime,
	}
	return StyleHeader.Width(w).Render(strings.Join(parts, " │ "))
}

func (m Model) renderBody(w int) string {
	paneWidth := w/2 - 2
	if paneWidth < 20 {
		paneWidth = 20
	}
	height := m.Height - 4
	if height < 6 {
		height = 6
	}

	position := renderBox("POSITION", m.renderPosition(), paneWidth, height)
	logs := renderBox("LOG", m.renderLogs(height), paneWidth, height)
	return lipgloss.JoinHorizontal(lipgloss.Top, position, logs)
}

func (m Model) renderPosition() string {
	if m.Position == nil {
		return "no open position"
	}
	pnl := m.Position.UnrealizedPnL(m.LastPrice)
	pnlStyle := StyleProfit
	if pnl.IsNegative() {
		pnlStyle = StyleLoss
	}
	lines := []string{
		fmt.Sprintf("entry   %s", m.Position.EntryOrder.Price.String()),
		fmt.Sprintf("qty     %s", m.Position.EntryOrder.Quantity.String()),
		fmt.Sprintf("pnl     %s", pnlStyle.Render(pnl.String())),
	}
	if m.LastErr != "" {
		lines = append(lines, "", "last error: "+truncate(m.LastErr, 60))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderLogs(height int) string {
	show := m.Logs
	if max := height - 2; max > 0 && len(show) > max {
		show = show[len(show)-max:]
	}
	return strings.Join(show, "\n")
}

func truncate(s string, n int) string { return runewidth.Truncate(s, n, "") }

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

func renderBox(title, content string, w, h int) string {
	header := StyleHeader.Render(title)
	body := lipgloss.JoinVertical(lipgloss.Left, header, content)
	return StyleBox.Width(w).Height(h).Render(body)
}
