// Package tui is the terminal front end for a locally running game.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"leadrush/internal/game"
)

const refreshEvery = 200 * time.Millisecond

type pane int

const (
	paneBuildings pane = iota
	paneUpgrades
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	valueStyle    = lipgloss.NewStyle().Bold(true)
	boxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	boostStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
)

type refreshMsg time.Time

type savedMsg struct{ err error }

// Model renders a Game and forwards key presses to its mutators. The game
// loop runs elsewhere; the model only reads snapshots on each refresh.
type Model struct {
	game  *game.Game
	store game.KV
	log   *slog.Logger

	keys keyMap
	help help.Model

	pane   pane
	cursor int
	width  int

	snap      game.Snapshot
	buildings []game.BuildingView
	upgrades  []game.UpgradeView

	status    string
	statusErr bool
}

func New(g *game.Game, store game.KV, logger *slog.Logger) Model {
	if logger == nil {
		logger = slog.Default()
	}
	m := Model{
		game:  g,
		store: store,
		log:   logger,
		keys:  defaultKeys(),
		help:  help.New(),
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return scheduleRefresh()
}

func scheduleRefresh() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func (m *Model) refresh() {
	m.snap = m.game.Snapshot()
	m.buildings = m.game.Buildings()
	m.upgrades = m.game.Upgrades()
	if n := m.listLen(); m.cursor >= n {
		m.cursor = max(0, n-1)
	}
}

func (m Model) listLen() int {
	if m.pane == paneUpgrades {
		return len(m.upgrades)
	}
	return len(m.buildings)
}

func (m *Model) setStatus(msg string, err error) {
	if err != nil {
		m.status = err.Error()
		m.statusErr = true
		return
	}
	m.status = msg
	m.statusErr = false
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case refreshMsg:
		m.refresh()
		return m, scheduleRefresh()

	case savedMsg:
		if msg.err != nil {
			m.log.Error("save failed", "reason", "player", "err", msg.err)
		}
		m.setStatus("Game saved.", msg.err)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.ClickLeads):
		_, err := m.game.ClickLeads(1)
		m.setStatus("", err)

	case key.Matches(msg, m.keys.ClickOpps):
		_, err := m.game.ClickOpportunities(1)
		m.setStatus("", err)

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < m.listLen()-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Tab):
		if m.pane == paneBuildings {
			m.pane = paneUpgrades
		} else {
			m.pane = paneBuildings
		}
		m.cursor = 0

	case key.Matches(msg, m.keys.Buy):
		m.buySelected(false)

	case key.Matches(msg, m.keys.BulkBuy):
		m.buySelected(true)

	case key.Matches(msg, m.keys.Powerup):
		if len(m.snap.Pending) == 0 {
			m.setStatus("No power-up to grab.", nil)
			break
		}
		p := m.snap.Pending[0]
		if _, err := m.game.ClickPowerup(p.ID); err != nil {
			m.setStatus("", err)
		} else {
			m.setStatus(p.Name+" activated!", nil)
		}

	case key.Matches(msg, m.keys.Acquire):
		paused, err := m.game.ToggleAcquisitionPause()
		m.setStatus(onOff("Acquisition", !paused), err)

	case key.Matches(msg, m.keys.Workflow):
		active, err := m.game.ToggleFlexibleWorkflow()
		m.setStatus(onOff("Flexible workflow", active), err)

	case key.Matches(msg, m.keys.Pause):
		if m.game.Paused() {
			m.game.Resume()
			m.setStatus("Resumed.", nil)
		} else {
			m.game.Pause()
			m.setStatus("Paused.", nil)
		}

	case key.Matches(msg, m.keys.Save):
		if m.store == nil {
			m.setStatus("", errors.New("no save store configured"))
			break
		}
		return m, m.save()
	}
	m.refresh()
	return m, nil
}

func (m *Model) buySelected(bulk bool) {
	if m.pane == paneUpgrades {
		if m.cursor >= len(m.upgrades) {
			return
		}
		u := m.upgrades[m.cursor]
		err := m.game.BuyUpgrade(u.ID)
		m.setStatus("Bought "+u.Name+".", err)
		return
	}
	if m.cursor >= len(m.buildings) {
		return
	}
	b := m.buildings[m.cursor]
	res, err := m.game.BuyBuilding(b.ID, bulk)
	m.setStatus(fmt.Sprintf("Hired %d x %s.", res.Quantity, b.Name), err)
}

func (m Model) save() tea.Cmd {
	g, kv := m.game, m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return savedMsg{err: g.Save(ctx, kv)}
	}
}

func onOff(label string, on bool) string {
	if on {
		return label + " on."
	}
	return label + " off."
}

func (m Model) View() string {
	var b strings.Builder
	s := m.snap.State
	r := m.snap.Rates

	title := "LEADRUSH"
	if m.snap.Paused {
		title += "  " + mutedStyle.Render("[paused]")
	}
	if s.IsGameWon {
		title += "  " + boostStyle.Render("$1B reached. You won!")
	}
	b.WriteString(titleStyle.Render(title) + "\n")

	res := lipgloss.JoinHorizontal(lipgloss.Top,
		stat("Leads", FormatNumber(s.Leads), FormatRate(r.LeadsPerSecond)),
		"  ",
		stat("Opportunities", FormatNumber(s.Opportunities), FormatRate(r.OpportunitiesPerSecond)),
		"  ",
		stat("Customers", FormatNumber(float64(s.Customers)), "CAR "+FormatRate(r.CustomerAcquisitionRate)),
		"  ",
		stat("Money", "$"+FormatNumber(s.Money), FormatRate(r.MoneyPerSecond)),
	)
	b.WriteString(boxStyle.Render(res) + "\n")

	acq := "running"
	if s.IsAcquisitionPaused {
		acq = "paused"
	}
	fmt.Fprintf(&b, "%s %s  %s %s  %s %s\n",
		labelStyle.Render("Acquisition cost:"), valueStyle.Render(FormatNumber(r.AcquisitionCost)),
		labelStyle.Render("Acquisition:"), valueStyle.Render(acq),
		labelStyle.Render("CVR:"), valueStyle.Render("$"+FormatNumber(r.CustomerValueRate)),
	)

	if line := m.boostLine(); line != "" {
		b.WriteString(line + "\n")
	}
	for _, p := range m.snap.Pending {
		b.WriteString(boostStyle.Render("★ "+p.Name+" is here! press p") + "\n")
	}
	b.WriteString("\n")

	if m.pane == paneUpgrades {
		b.WriteString(mutedStyle.Render("Buildings") + " | " + titleStyle.Render("Upgrades") + "\n")
		b.WriteString(m.upgradeList())
	} else {
		b.WriteString(titleStyle.Render("Buildings") + " | " + mutedStyle.Render("Upgrades") + "\n")
		b.WriteString(m.buildingList())
	}

	if m.status != "" {
		style := okStyle
		if m.statusErr {
			style = errStyle
		}
		b.WriteString("\n" + style.Render(m.status) + "\n")
	}
	b.WriteString("\n" + m.help.View(m.keys))
	return b.String()
}

func stat(label, value, rate string) string {
	return labelStyle.Render(label) + "\n" + valueStyle.Render(value) + "\n" + mutedStyle.Render(rate)
}

func (m Model) boostLine() string {
	nowMS := time.Now().UnixMilli()
	var parts []string
	for _, id := range slices.Sorted(maps.Keys(m.snap.State.ActiveBoosts)) {
		bst := m.snap.State.ActiveBoosts[id]
		left := time.Duration(max(0, bst.EndTime-nowMS)) * time.Millisecond
		parts = append(parts, fmt.Sprintf("%s x%g (%s)", bst.Name, bst.Magnitude, left.Round(time.Second)))
	}
	if len(parts) == 0 {
		return ""
	}
	return boostStyle.Render("Boosts: " + strings.Join(parts, ", "))
}

// visibleWindow keeps the cursor on screen for long lists.
const visibleWindow = 12

func window(cursor, n int) (int, int) {
	start := max(0, cursor-visibleWindow/2)
	end := min(n, start+visibleWindow)
	start = max(0, end-visibleWindow)
	return start, end
}

func (m Model) buildingList() string {
	var b strings.Builder
	start, end := window(m.cursor, len(m.buildings))
	for i := start; i < end; i++ {
		bv := m.buildings[i]
		line := fmt.Sprintf("%-28s %4d  %s", bv.Name, bv.Count, costString(bv.Cost))
		b.WriteString(m.row(i, line, bv.Affordable) + "\n")
	}
	return b.String()
}

func (m Model) upgradeList() string {
	var b strings.Builder
	start, end := window(m.cursor, len(m.upgrades))
	for i := start; i < end; i++ {
		u := m.upgrades[i]
		state := costString(game.Cost{Leads: u.Cost.Leads, Opportunities: u.Cost.Opportunities, Money: u.Cost.Money, Customers: u.Cost.Customers})
		switch {
		case u.Purchased:
			state = "owned"
		case !u.Unlocked:
			state = "locked"
		}
		line := fmt.Sprintf("%-30s %s", u.Name, state)
		b.WriteString(m.row(i, line, u.Affordable && u.Unlocked && !u.Purchased) + "\n")
	}
	return b.String()
}

func (m Model) row(i int, line string, highlight bool) string {
	if i == m.cursor {
		return selectedStyle.Render("> " + line)
	}
	if !highlight {
		return mutedStyle.Render("  " + line)
	}
	return "  " + line
}

func costString(c game.Cost) string {
	var parts []string
	if c.Leads > 0 {
		parts = append(parts, FormatNumber(c.Leads)+" leads")
	}
	if c.Opportunities > 0 {
		parts = append(parts, FormatNumber(c.Opportunities)+" opps")
	}
	if c.Money > 0 {
		parts = append(parts, "$"+FormatNumber(c.Money))
	}
	if c.Customers > 0 {
		parts = append(parts, FormatNumber(float64(c.Customers))+" customers")
	}
	if len(parts) == 0 {
		return "free"
	}
	return strings.Join(parts, " + ")
}

// Run starts the program on the terminal and blocks until the player quits.
func Run(ctx context.Context, m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
