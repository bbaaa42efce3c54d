package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"leadrush/internal/game"
	"leadrush/internal/tui"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
	muted       = color.New(color.FgHiBlack)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptChoice(label string, options []string, defaultValue string) (string, error) {
	normalized := make(map[string]struct{}, len(options))
	for _, opt := range options {
		normalized[strings.ToLower(strings.TrimSpace(opt))] = struct{}{}
	}
	for {
		fmt.Printf("%s (%s) [%s]: ", label, strings.Join(options, "/"), defaultValue)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.ToLower(strings.TrimSpace(text))
		if text == "" {
			text = strings.ToLower(strings.TrimSpace(defaultValue))
		}
		if _, ok := normalized[text]; ok {
			return text, nil
		}
		printWarn("Invalid option. Please pick one of the listed values.")
	}
}

func renderStatus(snap game.Snapshot) {
	s, r := snap.State, snap.Rates
	title := "\n== LEADRUSH =="
	if snap.Paused {
		title += " (paused)"
	}
	accent.Println(title)
	if s.IsGameWon {
		success.Println("You reached $1B. Game won!")
	}
	fmt.Printf("Leads:          %12s   %s\n", tui.FormatNumber(s.Leads), tui.FormatRate(r.LeadsPerSecond))
	fmt.Printf("Opportunities:  %12s   %s\n", tui.FormatNumber(s.Opportunities), tui.FormatRate(r.OpportunitiesPerSecond))
	fmt.Printf("Customers:      %12s   CAR %s\n", comma(s.Customers), tui.FormatRate(r.CustomerAcquisitionRate))
	fmt.Printf("Money:         $%12s   %s\n", tui.FormatNumber(s.Money), tui.FormatRate(r.MoneyPerSecond))
	fmt.Println()
	fmt.Printf("Acquisition cost: %s leads + %s opps per attempt\n", tui.FormatNumber(r.AcquisitionCost), tui.FormatNumber(r.AcquisitionCost))
	if s.IsAcquisitionPaused {
		warn.Println("Acquisition: paused")
	} else {
		fmt.Printf("Acquisition:      %.0f%% success\n", s.AcquisitionSuccessChance*100)
	}
	fmt.Printf("Customer value:   $%s/s each\n", tui.FormatNumber(r.CustomerValueRate))
	if s.FlexibleWorkflowActive {
		fmt.Println("Flexible workflow: on")
	}
	if r.PlaytimeMultiplier > 1 {
		fmt.Printf("Playtime bonus:   x%.2f\n", r.PlaytimeMultiplier)
	}

	if len(s.ActiveBoosts) > 0 {
		fmt.Println()
		accent.Println("Active boosts")
		for id, b := range s.ActiveBoosts {
			left := time.Until(time.UnixMilli(b.EndTime)).Round(time.Second)
			fmt.Printf("  %-16s x%-5g %s left\n", id, b.Magnitude, left)
		}
	}
	for _, p := range snap.Pending {
		warn.Printf("Power-up available: %s (leadrush boost %s --claim)\n", p.Name, p.ID)
	}
	fmt.Println()
}

func renderBuildings(list []game.BuildingView) {
	accent.Println("\n== BUILDINGS ==")
	fmt.Printf("%-16s %-28s %6s  %-28s %s\n", "ID", "NAME", "OWNED", "NEXT", "NEXT 10")
	for _, b := range list {
		line := fmt.Sprintf("%-16s %-28s %6d  %-28s %s", b.ID, truncate(b.Name, 28), b.Count, costString(b.Cost), costString(b.BulkCost))
		if b.Affordable {
			fmt.Println(line)
		} else {
			muted.Println(line)
		}
	}
	fmt.Println()
}

func renderUpgrades(list []game.UpgradeView, all bool) {
	accent.Println("\n== UPGRADES ==")
	fmt.Printf("%-26s %-30s %-10s %s\n", "ID", "NAME", "STATE", "COST")
	shown := 0
	for _, u := range list {
		if u.Purchased && !all {
			continue
		}
		state := "locked"
		switch {
		case u.Purchased:
			state = "owned"
		case u.Unlocked && u.Affordable:
			state = "buy"
		case u.Unlocked:
			state = "open"
		}
		line := fmt.Sprintf("%-26s %-30s %-10s %s", u.ID, truncate(u.Name, 30), state, upgradeCostString(u.Cost))
		switch state {
		case "buy":
			success.Println(line)
		case "open":
			fmt.Println(line)
		default:
			muted.Println(line)
		}
		shown++
	}
	if shown == 0 {
		printInfo("Every upgrade is owned.")
	}
	fmt.Println()
}

func renderPowerups(list []game.PowerupView, pending []game.PendingPowerup) {
	accent.Println("\n== POWER-UPS ==")
	fmt.Printf("%-12s %-20s %-8s %6s %8s  %s\n", "ID", "NAME", "BOOSTS", "MAG", "SECONDS", "STATUS")
	for _, p := range list {
		status := ""
		switch {
		case p.Active:
			status = fmt.Sprintf("active, %s left", (time.Duration(p.RemainingMS) * time.Millisecond).Round(time.Second))
		case p.Pending:
			status = "spawned, claim it"
		}
		fmt.Printf("%-12s %-20s %-8s %6g %8d  %s\n", p.ID, truncate(p.Name, 20), p.Category, p.Magnitude, p.DurationMS/1000, status)
	}
	for _, p := range pending {
		left := time.Until(time.UnixMilli(p.ExpiresAt)).Round(time.Second)
		warn.Printf("%s spawned; expires in %s\n", p.Name, left)
	}
	fmt.Println()
}

func renderLoadResult(res game.LoadResult) {
	switch {
	case !res.Found:
		printInfo("No save found; game unchanged.")
	case res.Corrupt:
		printWarn("Save was unreadable; the game restarted fresh.")
	default:
		printSuccess("Game loaded.")
	}
	if len(res.DroppedIDs) > 0 {
		printInfo("Retired content removed from save: " + strings.Join(res.DroppedIDs, ", "))
	}
}

func renderSimSummary(sum simSummary) {
	s, r := sum.State, sum.Rates
	accent.Printf("\n== SIMULATION (%s, %s ticks) ==\n", sum.Simulated, comma(int64(sum.Ticks)))
	if sum.Won {
		success.Printf("Won after %s\n", sum.WonAfter)
	}
	fmt.Printf("Leads:          %12s   %s\n", tui.FormatNumber(s.Leads), tui.FormatRate(r.LeadsPerSecond))
	fmt.Printf("Opportunities:  %12s   %s\n", tui.FormatNumber(s.Opportunities), tui.FormatRate(r.OpportunitiesPerSecond))
	fmt.Printf("Customers:      %12s\n", comma(s.Customers))
	fmt.Printf("Money:         $%12s   %s\n", tui.FormatNumber(s.Money), tui.FormatRate(r.MoneyPerSecond))
	fmt.Printf("Acquisitions:   %s attempts, %s won, %s lost\n", comma(sum.Attempts), comma(sum.Successes), comma(sum.Failures))
	fmt.Printf("Bought:         %d buildings, %d upgrades\n", sum.BuildingsBought, sum.UpgradesBought)
	fmt.Printf("Power-ups:      %d claimed\n", sum.PowerupsClaimed)
	fmt.Println()
}

func costString(c game.Cost) string {
	var parts []string
	if c.Leads > 0 {
		parts = append(parts, tui.FormatNumber(c.Leads)+" L")
	}
	if c.Opportunities > 0 {
		parts = append(parts, tui.FormatNumber(c.Opportunities)+" O")
	}
	if c.Money > 0 {
		parts = append(parts, "$"+tui.FormatNumber(c.Money))
	}
	if c.Customers > 0 {
		parts = append(parts, comma(c.Customers)+" C")
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " + ")
}

func upgradeCostString(c game.UpgradeCost) string {
	out := costString(game.Cost{Leads: c.Leads, Opportunities: c.Opportunities, Money: c.Money, Customers: c.Customers})
	if c.RequiresCustomers > 0 {
		out += fmt.Sprintf(" (needs %s customers)", comma(c.RequiresCustomers))
	}
	return out
}

func comma(v int64) string {
	s := strconv.FormatInt(v, 10)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	if len(s) <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
		b.WriteByte(',')
	}
	for i := pre; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte(',')
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
