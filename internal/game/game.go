package game

import (
	"errors"
	"fmt"
	"log/slog"
	mathrand "math/rand"
	"sync"
	"time"
)

// Game owns one State and every operation that reads or mutates it. All
// exported methods lock for their whole duration.
type Game struct {
	cat  *Catalog
	log  *slog.Logger
	mu   sync.Mutex
	rand *mathrand.Rand
	now  func() time.Time

	state  *State
	rates  Rates
	paused bool

	// acquisitionCarry is the fractional attempt count carried between ticks.
	acquisitionCarry float64
	pending          map[string]PendingPowerup

	tickInterval time.Duration
	spawnChance  float64
}

type Option func(*Game)

func WithClock(now func() time.Time) Option {
	return func(g *Game) {
		if now != nil {
			g.now = now
		}
	}
}

func WithRand(r *mathrand.Rand) Option {
	return func(g *Game) {
		if r != nil {
			g.rand = r
		}
	}
}

func WithTickInterval(d time.Duration) Option {
	return func(g *Game) {
		if d > 0 {
			g.tickInterval = d
		}
	}
}

func WithSpawnChance(p float64) Option {
	return func(g *Game) {
		g.spawnChance = clamp(p, 0, 1)
	}
}

func WithState(s *State) Option {
	return func(g *Game) {
		if s != nil {
			g.state = s.Clone()
		}
	}
}

func NewGame(cat *Catalog, logger *slog.Logger, opts ...Option) *Game {
	if cat == nil {
		cat = DefaultCatalog()
	}
	if logger == nil {
		logger = slog.Default()
	}
	g := &Game{
		cat:          cat,
		log:          logger,
		rand:         mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
		now:          time.Now,
		pending:      make(map[string]PendingPowerup),
		tickInterval: DefaultTickInterval,
		spawnChance:  DefaultSpawnChance,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.state == nil {
		g.state = DefaultState(cat, g.now())
	}
	g.recompute(g.now())
	return g
}

func (g *Game) Catalog() *Catalog {
	return g.cat
}

func (g *Game) TickInterval() time.Duration {
	return g.tickInterval
}

func (g *Game) recompute(now time.Time) {
	g.rates = Recompute(g.state, g.cat, now)
}

// mutate runs fn against the live state and recomputes afterwards. It rejects
// player actions once the game is won or while it is paused.
func (g *Game) mutate(fn func(s *State, now time.Time) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state.IsGameWon {
		return ErrGameWon
	}
	if g.paused {
		return ErrPaused
	}
	now := g.now()
	err := fn(g.state, now)
	g.recompute(now)
	return err
}

func (g *Game) State() *State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.Clone()
}

func (g *Game) Rates() Rates {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rates
}

func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Snapshot{
		State:   g.state.Clone(),
		Rates:   g.rates,
		Paused:  g.paused,
		Pending: g.pendingLocked(epochMillis(g.now())),
	}
}

func (g *Game) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

func (g *Game) Pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.paused {
		g.paused = true
		g.log.Info("game paused")
	}
}

func (g *Game) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused {
		g.paused = false
		g.log.Info("game resumed")
	}
}

// Reset discards all progress and starts a fresh game.
func (g *Game) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	g.state = DefaultState(g.cat, now)
	g.paused = false
	g.acquisitionCarry = 0
	g.pending = make(map[string]PendingPowerup)
	g.recompute(now)
	g.log.Info("game reset")
}

func (g *Game) BuildingCost(id string) (Cost, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return BuildingCost(g.state, g.cat, id)
}

func (g *Game) CumulativeBuildingCost(id string, n int) (Cost, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return CumulativeBuildingCost(g.state, g.cat, id, n)
}

func (g *Game) UpgradeCost(id string) (UpgradeCost, error) {
	return GetUpgradeCost(g.cat, id)
}

// BuyBuilding buys one unit, or BulkBuyQuantity units when bulk is set.
func (g *Game) BuyBuilding(id string, bulk bool) (BuyResult, error) {
	quantity := 1
	if bulk {
		quantity = BulkBuyQuantity
	}
	res := BuyResult{ID: id, Quantity: quantity}
	err := g.mutate(func(s *State, _ time.Time) error {
		spent, err := buyBuilding(s, g.cat, id, quantity)
		if err != nil {
			switch {
			case bulk && errors.Is(err, ErrInsufficientFunds):
				g.log.Debug("bulk purchase rejected", "building", id, "quantity", quantity)
			case errors.Is(err, ErrUnknownBuilding):
				g.log.Error("building purchase failed", "building", id, "err", err)
			}
			return err
		}
		res.Spent = spent
		res.Count = s.count(id)
		return nil
	})
	if err != nil {
		return BuyResult{}, err
	}
	return res, nil
}

func (g *Game) BuyUpgrade(id string) error {
	return g.mutate(func(s *State, _ time.Time) error {
		err := buyUpgrade(s, g.cat, id)
		if err != nil {
			if errors.Is(err, ErrUnknownUpgrade) {
				g.log.Error("upgrade purchase failed", "upgrade", id, "err", err)
			}
			return err
		}
		g.log.Debug("upgrade purchased", "upgrade", id)
		return nil
	})
}

// ClickLeads registers n manual lead clicks.
func (g *Game) ClickLeads(n int) (ClickResult, error) {
	return g.click("leads", n)
}

// ClickOpportunities registers n manual opportunity clicks.
func (g *Game) ClickOpportunities(n int) (ClickResult, error) {
	return g.click("opportunities", n)
}

func (g *Game) click(resource string, n int) (ClickResult, error) {
	if n < 1 {
		n = 1
	}
	res := ClickResult{Resource: resource, Clicks: n}
	err := g.mutate(func(s *State, now time.Time) error {
		boost := boostFactor(s, g.cat, BoostClicks, epochMillis(now))
		switch resource {
		case "leads":
			per := clickAmount(s.LeadsPerClick, s.LeadClickPercentBonus, g.rates.LeadsPerSecond, s.ClickMultiplier, boost)
			res.Gained = per * float64(n)
			s.Leads = nonNegative(s.Leads + res.Gained)
			s.Stats.TotalManualLeads += res.Gained
			s.Stats.LeadClicks += int64(n)
			res.Total = s.Leads
		case "opportunities":
			per := clickAmount(s.OpportunitiesPerClick, s.OpportunityClickPercentBonus, g.rates.OpportunitiesPerSecond, s.ClickMultiplier, boost)
			res.Gained = per * float64(n)
			s.Opportunities = nonNegative(s.Opportunities + res.Gained)
			s.Stats.TotalManualOpportunities += res.Gained
			s.Stats.OpportunityClicks += int64(n)
			res.Total = s.Opportunities
		default:
			return fmt.Errorf("unknown resource %q", resource)
		}
		return nil
	})
	return res, err
}

// ToggleAcquisitionPause flips acquisition and returns the new paused flag.
func (g *Game) ToggleAcquisitionPause() (bool, error) {
	var paused bool
	err := g.mutate(func(s *State, _ time.Time) error {
		s.IsAcquisitionPaused = !s.IsAcquisitionPaused
		paused = s.IsAcquisitionPaused
		return nil
	})
	return paused, err
}

// ToggleFlexibleWorkflow flips the workflow and returns the new active flag.
func (g *Game) ToggleFlexibleWorkflow() (bool, error) {
	var active bool
	err := g.mutate(func(s *State, _ time.Time) error {
		if !flexibleWorkflowUnlocked(s, g.cat) {
			return ErrFeatureLocked
		}
		s.FlexibleWorkflowActive = !s.FlexibleWorkflowActive
		active = s.FlexibleWorkflowActive
		return nil
	})
	if err != nil {
		return false, err
	}
	// Recompute may have cleared it straight away when the pools are already level.
	return active && g.State().FlexibleWorkflowActive, nil
}

func (g *Game) Buildings() []BuildingView {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]BuildingView, 0, len(g.cat.Buildings))
	for i := range g.cat.Buildings {
		b := &g.cat.Buildings[i]
		count := g.state.count(b.ID)
		cost := buildingUnitCost(g.state, b, count)
		bulk, _ := CumulativeBuildingCost(g.state, g.cat, b.ID, BulkBuyQuantity)
		out = append(out, BuildingView{
			ID:             b.ID,
			Name:           b.Name,
			Group:          b.Group,
			Currency:       b.Currency,
			Count:          count,
			Cost:           cost,
			BulkCost:       bulk,
			Affordable:     canAfford(g.state, cost),
			BulkAffordable: canAfford(g.state, bulk),
		})
	}
	return out
}

func (g *Game) Upgrades() []UpgradeView {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]UpgradeView, 0, len(g.cat.upgradeIDs))
	for _, id := range g.cat.upgradeIDs {
		u := g.cat.upgrades[id]
		cost := upgradeCost(u)
		out = append(out, UpgradeView{
			ID:          u.ID,
			Name:        u.Name,
			Description: u.Description,
			Category:    u.Category,
			Tier:        u.Tier,
			Purchased:   g.state.purchased(id),
			Unlocked:    upgradeUnlocked(g.state, g.cat, u),
			Affordable:  upgradeAffordable(g.state, cost),
			Cost:        cost,
		})
	}
	return out
}
