// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wingedpig/winnertrade/internal/apierr"
	"github.com/wingedpig/winnertrade/internal/app"
	"github.com/wingedpig/winnertrade/internal/dashboard"
	"github.com/wingedpig/winnertrade/internal/events"
	"github.com/wingedpig/winnertrade/internal/gateway"
)

const (
	redrawInterval = 500 * time.Millisecond
	logTail        = 5
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	upStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	downStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
)

// model is the terminal UI state. Everything it shows comes from the
// controller's View and the event history.
type model struct {
	app      *app.App
	ctrl     *app.Controller
	view     app.View
	activity []events.Event
	busy     string
	message  string
}

type tickMsg time.Time

// doneMsg reports a finished background action.
type doneMsg struct {
	message string
	err     error
}

func newModel(a *app.App) model {
	return model{
		app:  a,
		ctrl: a.Controller(),
		busy: "Starting backend...",
	}
}

func tick() tea.Cmd {
	return tea.Tick(redrawInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// run executes fn off the UI goroutine.
func run(fn func(ctx context.Context) (string, error)) tea.Cmd {
	return func() tea.Msg {
		msg, err := fn(context.Background())
		return doneMsg{message: msg, err: err}
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tick(), run(func(ctx context.Context) (string, error) {
		m.ctrl.Startup(ctx)
		return "", nil
	}))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.view = m.ctrl.View()
		m.activity, _ = m.app.RecentEvents(logTail)
		return m, tick()

	case doneMsg:
		m.busy = ""
		m.message = msg.message
		if msg.err != nil {
			m.message = errStyle.Render(apierr.Friendly(msg.err))
		}
		m.view = m.ctrl.View()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.busy = "Stopping backend..."
		return m, tea.Sequence(run(func(ctx context.Context) (string, error) {
			return "", m.app.Shutdown(ctx)
		}), tea.Quit)
	}

	if m.busy != "" {
		return m, nil
	}

	switch msg.String() {
	case "r":
		m.busy = "Retrying..."
		return m, run(func(ctx context.Context) (string, error) {
			state, err := m.ctrl.Retry(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Backend is %s", state), nil
		})
	case "d":
		if m.view.State != app.StateNeedsSetup {
			return m, nil
		}
		m.busy = "Saving default configuration..."
		return m, run(func(ctx context.Context) (string, error) {
			if _, err := m.ctrl.SaveConfig(ctx, gateway.Default()); err != nil {
				return "", err
			}
			return "Default paper-trading configuration saved", nil
		})
	case "s":
		m.busy = "Starting engine..."
		return m, run(func(ctx context.Context) (string, error) {
			res, err := m.ctrl.StartEngine(ctx, 0)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Engine started (every %ds)", res.IntervalSeconds), nil
		})
	case "x":
		m.busy = "Stopping engine..."
		return m, run(func(ctx context.Context) (string, error) {
			if _, err := m.ctrl.StopEngine(ctx); err != nil {
				return "", err
			}
			return "Engine stopped", nil
		})
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("WinnerTrade " + m.app.Version()))
	b.WriteString("  ")
	b.WriteString(dimStyle.Render(m.app.Client().BaseURL()))
	b.WriteString("\n\n")

	switch m.view.State {
	case app.StateUnknown:
		b.WriteString("Connecting...\n")
	case app.StateBackendUnreachable:
		b.WriteString(errStyle.Render(apierr.MsgBackendUnreachable))
		b.WriteString("\n")
		if lines := m.app.Supervisor().Output(logTail); len(lines) > 0 {
			b.WriteString(boxStyle.Render(dimStyle.Render(strings.Join(lines, "\n"))))
			b.WriteString("\n")
		}
	case app.StateNeedsSetup:
		b.WriteString("No configuration stored yet. Finish setup in the desktop app,\n")
		b.WriteString("or press d to save the default paper-trading configuration.\n")
	case app.StateReady:
		b.WriteString(m.renderDashboard())
	}

	if m.view.Error != nil && m.view.State != app.StateBackendUnreachable {
		b.WriteString(errStyle.Render(apierr.Friendly(m.view.Error)))
		b.WriteString("\n")
	}
	if m.busy != "" {
		b.WriteString(dimStyle.Render(m.busy))
		b.WriteString("\n")
	} else if m.message != "" {
		b.WriteString(m.message)
		b.WriteString("\n")
	}

	if len(m.activity) > 0 {
		b.WriteString("\n")
		b.WriteString(titleStyle.Render("Activity"))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(renderActivity(m.activity)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("r retry · d default config · s start engine · x stop engine · q quit"))
	return b.String()
}

func (m model) renderDashboard() string {
	snap := m.view.Snapshot
	if snap == nil {
		if err := m.app.Poller().LastError(); err != nil {
			return errStyle.Render(apierr.Friendly(err)) + "\n"
		}
		return "Loading...\n"
	}

	var b strings.Builder

	engine := downStyle.Render("stopped")
	if m.view.EngineRunning {
		engine = upStyle.Render("running")
		if snap.Engine.IntervalSeconds != nil {
			engine += dimStyle.Render(fmt.Sprintf(" every %ds", *snap.Engine.IntervalSeconds))
		}
	}
	fmt.Fprintf(&b, "%s %s    %s %s    %s %s\n\n",
		titleStyle.Render("Engine"), engine,
		titleStyle.Render(snap.Symbol), snap.Ticker.Last.String(),
		titleStyle.Render("Live PnL"), signed(snap.LivePnL().StringFixed(2)))

	s := snap.Stats
	stats := fmt.Sprintf("Trades %d (W %d / L %d, %.1f%%)\nPnL %s  today %s\nR %.2f  today %.2f\nFees %s",
		s.TotalTrades, s.Wins, s.Losses, s.WinRate,
		signed(s.TotalPnL.StringFixed(2)), signed(s.DayPnL.StringFixed(2)),
		s.TotalR, s.DayR, s.TotalFees.StringFixed(2))
	if s.TradingDisabledToday {
		stats += "\n" + errStyle.Render("Trading disabled today")
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		boxStyle.Render(titleStyle.Render("Stats")+"\n"+stats),
		boxStyle.Render(titleStyle.Render("Positions")+"\n"+renderPositions(snap)),
	))
	b.WriteString("\n")

	if snap.LastSignal.Raw != nil {
		fmt.Fprintf(&b, "%s %s\n", titleStyle.Render("Last signal"), *snap.LastSignal.Raw)
	}
	for _, l := range []struct {
		name  string
		lines []string
	}{
		{"Trades", snap.TradesLog},
		{"Signals", snap.SignalsLog},
		{"Trailing", snap.TrailingLog},
	} {
		fmt.Fprintf(&b, "%s\n%s\n", titleStyle.Render(l.name), dimStyle.Render(strings.Join(tail(l.lines, logTail), "\n")))
	}
	return b.String()
}

func renderPositions(snap *dashboard.Snapshot) string {
	if len(snap.Positions) == 0 {
		return dimStyle.Render("none")
	}
	rows := make([]string, 0, len(snap.Positions))
	for _, p := range snap.Positions {
		rows = append(rows, fmt.Sprintf("%-10s %-5s %8g @ %s  %s",
			p.Symbol, p.Side, p.Size, p.EntryPrice.String(), signed(p.UnrealizedPnL.StringFixed(2))))
	}
	return strings.Join(rows, "\n")
}

func renderActivity(list []events.Event) string {
	rows := make([]string, 0, len(list))
	for _, e := range list {
		row := e.Timestamp.Format("15:04:05") + " " + e.Type
		if to, ok := e.Payload["to"].(string); ok {
			row += " → " + to
		}
		rows = append(rows, row)
	}
	return strings.Join(rows, "\n")
}

func signed(v string) string {
	if strings.HasPrefix(v, "-") {
		return downStyle.Render(v)
	}
	return upStyle.Render(v)
}

func tail(lines []string, n int) []string {
	if len(lines) > n {
		return lines[len(lines)-n:]
	}
	return lines
}
