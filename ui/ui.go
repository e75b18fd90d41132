// Package ui is the terminal player: a transcript pager over a
// simulated playback clock, with the dubbing engine attached. It
// exists so the engine can be exercised end to end without a browser,
// but the keybindings make it a usable caption reader on its own.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/capvox/capvox/caption"
	"github.com/capvox/capvox/dub"
	"github.com/capvox/capvox/utils"
)

const (
	seekStepMS = 5000
	rateStep   = 0.25
	minRate    = 0.25
	maxRate    = 3.0
)

type tickMsg time.Time

type trackMsg []caption.Segment

type watchErrMsg struct{ err error }

type statusExpiredMsg struct{}

// Model is the bubbletea model for the player.
type Model struct {
	cfg        Config
	controller *dub.Controller
	clock      *dub.ManualClock
	store      *caption.Store

	viewport viewport.Model
	spinner  spinner.Model

	playing   bool
	subtitles bool
	ready     bool
	width     int
	height    int
	status    string

	lastTick   time.Time
	durationMS int64
}

// NewModel creates a player over the given engine and clock.
func NewModel(cfg Config, controller *dub.Controller, clock *dub.ManualClock, store *caption.Store) Model {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	return Model{
		cfg:        cfg,
		controller: controller,
		clock:      clock,
		store:      store,
		spinner:    sp,
		subtitles:  true,
		durationMS: trackDuration(store),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.tickCmd(), m.spinner.Tick)
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.cfg.TickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		chrome := 4 // header, overlay, status, help
		if !m.ready {
			m.viewport = viewport.New(msg.Width, max(1, msg.Height-chrome))
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = max(1, msg.Height-chrome)
		}
		m.controller.Renderer().SetWidth(msg.Width)
		m.viewport.SetContent(m.transcript())
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		if m.playing {
			now := time.Time(msg)
			if !m.lastTick.IsZero() {
				m.clock.Advance(now.Sub(m.lastTick))
			}
			m.lastTick = now
			m.controller.Tick(m.clock.PositionMS())
			m.viewport.SetContent(m.transcript())
		}
		return m, m.tickCmd()

	case trackMsg:
		m.controller.SwapSource(msg)
		m.durationMS = trackDuration(m.store)
		m.viewport.SetContent(m.transcript())
		cmd := m.note("captions reloaded")
		return m, cmd

	case watchErrMsg:
		cmd := m.note("watch error: " + msg.err.Error())
		return m, cmd

	case statusExpiredMsg:
		m.status = ""
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		m.controller.Stop()
		return m, tea.Quit

	case " ":
		m.playing = !m.playing
		m.lastTick = time.Time{}
		return m, nil

	case "d":
		var cmd tea.Cmd
		if m.controller.Active() {
			m.controller.Stop()
			cmd = m.note("dubbing off")
		} else if err := m.controller.Start(); err != nil {
			cmd = m.note(err.Error())
		} else {
			cmd = m.note("dubbing on")
		}
		return m, cmd

	case "s":
		m.subtitles = !m.subtitles
		m.controller.SetSubtitles(m.subtitles)
		note := "subtitles off"
		if m.subtitles {
			note = "subtitles on"
		}
		cmd := m.note(note)
		return m, cmd

	case "left", "h":
		m.seek(m.clock.PositionMS() - seekStepMS)
		return m, nil

	case "right", "l":
		m.seek(m.clock.PositionMS() + seekStepMS)
		return m, nil

	case "+", "=":
		cmd := m.setRate(m.clock.Rate() + rateStep)
		return m, cmd

	case "-":
		cmd := m.setRate(m.clock.Rate() - rateStep)
		return m, cmd

	case "c":
		if seg, ok := m.store.FindActive(m.clock.PositionMS()); ok {
			var cmd tea.Cmd
			if err := clipboard.WriteAll(seg.Text); err != nil {
				cmd = m.note("copy failed: " + err.Error())
			} else {
				cmd = m.note("copied")
			}
			return m, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) seek(positionMS int64) {
	if positionMS < 0 {
		positionMS = 0
	}
	m.clock.Seek(positionMS)
	// Feed the jump through immediately so the engine recovers on the
	// spot instead of at the next interval tick.
	m.controller.Tick(positionMS)
	m.viewport.SetContent(m.transcript())
}

func (m *Model) setRate(rate float64) tea.Cmd {
	if rate < minRate {
		rate = minRate
	}
	if rate > maxRate {
		rate = maxRate
	}
	if err := m.clock.SetRate(rate); err != nil {
		return m.note("rate change failed: " + err.Error())
	}
	return m.note(fmt.Sprintf("rate %.2fx", rate))
}

func (m *Model) note(s string) tea.Cmd {
	m.status = s
	return tea.Tick(2*time.Second, func(time.Time) tea.Msg {
		return statusExpiredMsg{}
	})
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(m.cfg.Title))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	overlay := m.controller.Overlay()
	if overlay == "" {
		overlay = " "
	}
	b.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Center, overlay))
	b.WriteString("\n")

	b.WriteString(m.statusBar())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(" space play · d dub · ←/→ seek · +/- rate · c copy · q quit"))
	return b.String()
}

func (m Model) statusBar() string {
	icon := "⏸"
	if m.playing {
		icon = "▶"
	}

	left := fmt.Sprintf("%s %s / %s · %.2fx",
		icon,
		utils.FormatTimestamp(m.clock.PositionMS()),
		utils.FormatTimestamp(m.durationMS),
		m.clock.Rate())

	var dubbing string
	if m.controller.Active() {
		session := m.controller.CurrentSession()
		dubbing = dubOnStyle.Render(fmt.Sprintf("%s dub on %s", m.spinner.View(),
			humanize.Time(session.StartedAt)))
	}

	parts := []string{left}
	if dubbing != "" {
		parts = append(parts, dubbing)
	}
	if m.status != "" {
		parts = append(parts, statusNoteStyle.Render(m.status))
	}
	return statusBarStyle.Width(m.width).Render(strings.Join(parts, "  "))
}

// transcript renders the caption list with the active segment
// highlighted.
func (m Model) transcript() string {
	position := m.clock.PositionMS()
	active, hasActive := m.store.FindActive(position)

	var b strings.Builder
	for _, seg := range m.store.Segments() {
		line := fmt.Sprintf("[%s] %s", utils.FormatTimestamp(seg.StartMS), seg.Text)
		if hasActive && seg == active {
			b.WriteString(activeLineStyle.Render("▌ " + line))
		} else {
			b.WriteString(dimLineStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func trackDuration(store *caption.Store) int64 {
	var end int64
	for _, seg := range store.Segments() {
		if seg.EndMS > end {
			end = seg.EndMS
		}
	}
	return end
}

// Run starts the player and blocks until the user quits. When the
// config names a watch path, caption file rewrites are hot-swapped
// into the session.
func Run(cfg Config, controller *dub.Controller, clock *dub.ManualClock, store *caption.Store) error {
	m := NewModel(cfg, controller, clock, store)

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	p := tea.NewProgram(m, opts...)

	if cfg.WatchPath != "" {
		watcher, err := caption.WatchFile(cfg.WatchPath)
		if err != nil {
			log.Warn("caption watch unavailable", "path", cfg.WatchPath, "err", err)
		} else {
			defer watcher.Close() //nolint:errcheck
			go func() {
				for {
					select {
					case segments, ok := <-watcher.Tracks:
						if !ok {
							return
						}
						p.Send(trackMsg(segments))
					case err, ok := <-watcher.Errors:
						if !ok {
							return
						}
						p.Send(watchErrMsg{err})
					}
				}
			}()
		}
	}

	_, err := p.Run()
	return err
}
