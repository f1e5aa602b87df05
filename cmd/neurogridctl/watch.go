package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"neurogrid/internal/grid"
	"neurogrid/internal/stream"
)

type tickMsg time.Time

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// watchModel renders a driver in the terminal. Space toggles run/pause, n
// steps one tick, q quits.
type watchModel struct {
	driver   *stream.Driver
	interval time.Duration
	err      error
}

func newWatchModel(driver *stream.Driver, interval time.Duration) watchModel {
	return watchModel{driver: driver, interval: interval}
}

func (m watchModel) Init() tea.Cmd {
	return tickCmd(m.interval)
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ", "p":
			cmd := stream.Command{Type: "pause"}
			if m.driver.Mode() != stream.ModeRunning {
				cmd.Type = "run"
			}
			_ = m.driver.Control(cmd)
		case "n":
			_ = m.driver.Control(stream.Command{Type: "step", Value: 1})
		}
	case tickMsg:
		if _, err := m.driver.Tick(); err != nil {
			m.err = err
			return m, tea.Quit
		}
		return m, tickCmd(m.interval)
	}
	return m, nil
}

func (m watchModel) View() string {
	state := m.driver.State()
	var b strings.Builder
	b.WriteString(renderBoard(state.Board))
	fmt.Fprintf(&b, "\ntick=%d mode=%s population=%d peak_lineage=%d\n", state.Tick, m.driver.Mode(), state.Population(), state.PeakLineage)
	if last, ok := state.History.Last(); ok {
		fmt.Fprintf(&b, "lineage=%d..%d complexity=%d..%d difficulty=%.2f killers_per_move=%.2f\n",
			last.LineageMin, last.LineageMax, last.ComplexityMin, last.ComplexityMax, last.Difficulty, last.KillersPerMove)
	}
	if m.err != nil {
		fmt.Fprintf(&b, "error: %v\n", m.err)
	}
	b.WriteString("\nspace: run/pause  n: step  q: quit\n")
	return b.String()
}

// renderBoard draws agents as '@', hazards as 'x' and cells holding both as
// '*'.
func renderBoard(board grid.Board) string {
	width, height := board.GridWidth(), board.GridHeight()
	if width == 0 || height == 0 {
		return ""
	}
	cells := make([][]byte, height)
	for y := range cells {
		cells[y] = []byte(strings.Repeat(".", width))
	}
	for _, marker := range board.Markers() {
		p := board.Wrap(marker.Position)
		cell := &cells[p.Y][p.X]
		switch marker.Type {
		case grid.MarkerAgent:
			if *cell == 'x' || *cell == '*' {
				*cell = '*'
			} else {
				*cell = '@'
			}
		case grid.MarkerKiller:
			if *cell == '@' || *cell == '*' {
				*cell = '*'
			} else {
				*cell = 'x'
			}
		}
	}
	var b strings.Builder
	for _, row := range cells {
		b.Write(row)
		b.WriteByte('\n')
	}
	return b.String()
}

func runWatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	intervalMS := fs.Int("interval-ms", 100, "delay between ticks while running")
	paused := fs.Bool("paused", false, "start paused")
	simFlags := bindSimulationFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	interval := time.Duration(*intervalMS) * time.Millisecond
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	// logs would corrupt the alt screen
	logger := slog.New(slog.DiscardHandler)
	driver, err := newDriver(simFlags, nil, stream.DriverOptions{
		Interval:    interval,
		StartPaused: *paused,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	p := tea.NewProgram(newWatchModel(driver, interval), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	if m, ok := final.(watchModel); ok && m.err != nil {
		return m.err
	}
	state := driver.State()
	fmt.Printf("tick=%d population=%d peak_lineage=%d\n", state.Tick, state.Population(), state.PeakLineage)
	return nil
}
