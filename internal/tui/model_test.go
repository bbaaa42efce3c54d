package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"leadrush/internal/game"
	"leadrush/internal/store"
)

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(keyPress(k))
		m = next.(Model)
	}
	return m, cmd
}

func newModel(t *testing.T) (Model, *game.Game, *store.FileStore) {
	t.Helper()
	fs, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	g := game.NewGame(game.DefaultCatalog(), nil)
	return New(g, fs, nil), g, fs
}

func TestClickKeys(t *testing.T) {
	m, g, _ := newModel(t)
	m, _ = press(t, m, "l", "l", "l", "o")
	if g.State().Leads != 3 || g.State().Opportunities != 1 {
		t.Fatalf("leads=%v opps=%v", g.State().Leads, g.State().Opportunities)
	}
	if !strings.Contains(m.View(), "Leads") {
		t.Fatalf("view missing resources:\n%s", m.View())
	}
}

func TestBuySelectedBuilding(t *testing.T) {
	m, g, _ := newModel(t)
	if _, err := g.ClickLeads(15); err != nil {
		t.Fatalf("click: %v", err)
	}
	m, _ = press(t, m, "enter")
	if m.statusErr {
		t.Fatalf("buy failed: %s", m.status)
	}
	first := m.buildings[0]
	if first.Count != 1 {
		t.Fatalf("first building count got=%d", first.Count)
	}

	m, _ = press(t, m, "enter")
	if !m.statusErr {
		t.Fatalf("unaffordable buy should report an error")
	}
}

func TestCursorAndPane(t *testing.T) {
	m, _, _ := newModel(t)
	m, _ = press(t, m, "down", "down")
	if m.cursor != 2 {
		t.Fatalf("cursor got=%d", m.cursor)
	}
	m, _ = press(t, m, "tab")
	if m.pane != paneUpgrades || m.cursor != 0 {
		t.Fatalf("pane=%v cursor=%d", m.pane, m.cursor)
	}
	if !strings.Contains(m.View(), m.upgrades[0].Name) {
		t.Fatalf("upgrade pane not rendered")
	}
	m, _ = press(t, m, "k")
	if m.cursor != 0 {
		t.Fatalf("cursor moved above top: %d", m.cursor)
	}
}

func TestPauseKey(t *testing.T) {
	m, g, _ := newModel(t)
	m, _ = press(t, m, " ")
	if !g.Paused() {
		t.Fatalf("space should pause")
	}
	m, _ = press(t, m, "l")
	if !m.statusErr || g.State().Leads != 0 {
		t.Fatalf("click while paused should fail, leads=%v", g.State().Leads)
	}
	press(t, m, " ")
	if g.Paused() {
		t.Fatalf("space should resume")
	}
}

func TestPowerupKey(t *testing.T) {
	m, _, _ := newModel(t)
	m, _ = press(t, m, "p")
	if m.status != "No power-up to grab." {
		t.Fatalf("status got=%q", m.status)
	}
}

func TestSaveKey(t *testing.T) {
	m, g, fs := newModel(t)
	if _, err := g.ClickLeads(9); err != nil {
		t.Fatalf("click: %v", err)
	}
	m, cmd := press(t, m, "s")
	if cmd == nil {
		t.Fatalf("save key returned no command")
	}
	next, _ := m.Update(cmd())
	m = next.(Model)
	if m.statusErr {
		t.Fatalf("save failed: %s", m.status)
	}

	fresh := game.NewGame(game.DefaultCatalog(), nil)
	if _, err := fresh.Load(context.Background(), fs); err != nil {
		t.Fatalf("load: %v", err)
	}
	if fresh.State().Leads != 9 {
		t.Fatalf("saved leads got=%v", fresh.State().Leads)
	}
}

func TestQuitKey(t *testing.T) {
	m, _, _ := newModel(t)
	_, cmd := press(t, m, "q")
	if cmd == nil {
		t.Fatalf("quit returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("quit key did not quit")
	}
}

func TestRefreshReschedules(t *testing.T) {
	m, g, _ := newModel(t)
	if _, err := g.ClickLeads(2); err != nil {
		t.Fatalf("click: %v", err)
	}
	next, cmd := m.Update(refreshMsg(time.Now()))
	if cmd == nil {
		t.Fatalf("refresh should schedule the next one")
	}
	if next.(Model).snap.State.Leads != 2 {
		t.Fatalf("refresh did not pick up new state")
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{in: 0, want: "0"},
		{in: 12, want: "12"},
		{in: 12.5, want: "12.5"},
		{in: 1500, want: "1.5K"},
		{in: 2000, want: "2K"},
		{in: 1_234_567, want: "1.23M"},
		{in: 1e9, want: "1B"},
		{in: -1500, want: "-1.5K"},
	}
	for _, tc := range tests {
		if got := FormatNumber(tc.in); got != tc.want {
			t.Fatalf("FormatNumber(%v) got=%q want=%q", tc.in, got, tc.want)
		}
	}
	if got := FormatRate(0.5); got != "0.50/s" {
		t.Fatalf("FormatRate got=%q", got)
	}
}
