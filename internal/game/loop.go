package game

import (
	"context"
	"math"
	"time"
)

// Tick advances the simulation by one fixed interval. Boost expiry runs even
// while paused; everything else is skipped when paused or won.
func (g *Game) Tick() TickReport {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	nowMS := epochMillis(now)
	var rep TickReport
	rep.ExpiredBoosts = expireBoosts(g.state, nowMS)
	g.prunePendingLocked(nowMS)
	if g.paused || g.state.IsGameWon {
		if len(rep.ExpiredBoosts) > 0 {
			g.recompute(now)
		}
		rep.Skipped = true
		return rep
	}

	s := g.state
	dt := g.tickInterval.Seconds()
	r := Recompute(s, g.cat, now)
	rep.FlexibleWorkflowCleared = r.FlexibleWorkflowCleared

	if d := r.LeadsPerSecond * dt; d > 0 && !math.IsInf(d, 0) {
		s.Leads += d
		s.Stats.TotalAutoLeads += d
		rep.LeadsProduced = d
	}
	if d := r.OpportunitiesPerSecond * dt; d > 0 && !math.IsInf(d, 0) {
		s.Opportunities += d
		s.Stats.TotalAutoOpportunities += d
		rep.OpportunitiesProduced = d
	}

	if !s.IsAcquisitionPaused {
		g.acquireLocked(r, dt, &rep)
	}

	if d := r.MoneyPerSecond * dt; d > 0 && !math.IsInf(d, 0) {
		s.Money += d
		s.Stats.TotalMoneyEarned += d
		rep.MoneyEarned = d
	}

	// Leads and Opportunities moved this tick, so the workflow may have converged.
	if s.FlexibleWorkflowActive && flexibleWorkflowConverged(s) {
		s.FlexibleWorkflowActive = false
		rep.FlexibleWorkflowCleared = true
	}
	if rep.FlexibleWorkflowCleared {
		g.log.Debug("flexible workflow converged")
	}

	if s.Money >= WinMoneyThreshold && !s.IsGameWon {
		s.IsGameWon = true
		g.pending = make(map[string]PendingPowerup)
		rep.Won = true
		g.log.Info("game won", "money", s.Money, "customers", s.Customers)
	}

	g.recompute(now)
	return rep
}

// acquireLocked converts Leads and Opportunities into acquisition attempts.
// Attempts that cannot be paid for are carried into the next tick.
func (g *Game) acquireLocked(r Rates, dt float64, rep *TickReport) {
	s := g.state
	available := r.CustomerAcquisitionRate*dt + g.acquisitionCarry
	if math.IsNaN(available) || math.IsInf(available, 0) || available < 0 {
		available = 0
	}
	whole := math.Floor(available)
	g.acquisitionCarry = available - whole
	attempts := int64(min(whole, MaxAttemptsPerTick))
	g.acquisitionCarry += whole - float64(attempts)
	cost := r.AcquisitionCost

	for i := int64(0); i < attempts; i++ {
		if s.Leads < cost || s.Opportunities < cost {
			g.acquisitionCarry += float64(attempts - i)
			break
		}
		s.Leads -= cost
		s.Opportunities -= cost
		s.Stats.TotalAcquisitionAttempts++
		rep.Attempts++
		if g.rand.Float64() < s.AcquisitionSuccessChance {
			s.Customers++
			s.CustomerCountForCostIncrease++
			s.Stats.TotalSuccessfulAcquisitions++
			rep.Successes++
		} else {
			s.Stats.TotalFailedAcquisitions++
			rep.Failures++
		}
	}
	g.acquisitionCarry = min(g.acquisitionCarry, MaxAttemptsPerTick)
	s.Leads = nonNegative(s.Leads)
	s.Opportunities = nonNegative(s.Opportunities)
}

// Drivers configures the fixed-interval jobs Run hosts next to the tick.
// A zero interval or nil store disables the corresponding job.
type Drivers struct {
	SpawnEvery    time.Duration
	AutosaveEvery time.Duration
	Store         KV

	OnTick  func(TickReport)
	OnSpawn func(PendingPowerup)
	OnSave  func(error)
}

// Run drives ticks, power-up spawn rolls and autosaves until ctx is done. The
// final state is saved when the game is won and again on shutdown.
func (g *Game) Run(ctx context.Context, d Drivers) error {
	tick := time.NewTicker(g.tickInterval)
	defer tick.Stop()

	var spawnC, saveC <-chan time.Time
	if d.SpawnEvery > 0 {
		t := time.NewTicker(d.SpawnEvery)
		defer t.Stop()
		spawnC = t.C
	}
	if d.AutosaveEvery > 0 && d.Store != nil {
		t := time.NewTicker(d.AutosaveEvery)
		defer t.Stop()
		saveC = t.C
	}

	save := func(reason string) {
		if d.Store == nil {
			return
		}
		// Shutdown saves must outlive the cancelled run context.
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		err := g.Save(saveCtx, d.Store)
		if err != nil {
			g.log.Error("save failed", "reason", reason, "err", err)
		} else {
			g.log.Debug("game saved", "reason", reason)
		}
		if d.OnSave != nil {
			d.OnSave(err)
		}
	}

	g.log.Info("game loop started", "tick_every", g.tickInterval.String(), "spawn_every", d.SpawnEvery.String(), "autosave_every", d.AutosaveEvery.String())
	for {
		select {
		case <-ctx.Done():
			save("shutdown")
			g.log.Info("game loop stopped")
			return ctx.Err()
		case <-tick.C:
			rep := g.Tick()
			if d.OnTick != nil {
				d.OnTick(rep)
			}
			if rep.Won {
				save("won")
			}
		case <-spawnC:
			if p, ok := g.RollSpawn(); ok {
				g.log.Info("power-up spawned", "powerup", p.ID)
				if d.OnSpawn != nil {
					d.OnSpawn(p)
				}
			}
		case <-saveC:
			save("autosave")
		}
	}
}
