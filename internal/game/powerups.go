package game

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// activateBoost starts (or restarts) the boost for spec. Re-activation resets
// the timer and issues a new activation id instead of stacking.
func activateBoost(s *State, spec *PowerupSpec, now time.Time) ActiveBoost {
	b := ActiveBoost{
		EndTime:      epochMillis(now) + spec.DurationMS,
		Magnitude:    spec.Magnitude,
		Name:         spec.Name,
		Description:  spec.Description,
		ActivationID: uuid.NewString(),
	}
	s.ActiveBoosts[spec.ID] = b
	return b
}

// expireBoosts deletes every boost whose endTime has passed and returns their ids.
func expireBoosts(s *State, nowMS int64) []string {
	var expired []string
	for id, b := range s.ActiveBoosts {
		if b.EndTime <= nowMS {
			delete(s.ActiveBoosts, id)
			expired = append(expired, id)
		}
	}
	sort.Strings(expired)
	return expired
}

// RollSpawn draws once for a power-up spawn. On success a uniformly chosen
// power-up waits for a click for PendingPowerupLifetime.
func (g *Game) RollSpawn() (PendingPowerup, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused || g.state.IsGameWon || len(g.cat.Powerups) == 0 {
		return PendingPowerup{}, false
	}
	if g.rand.Float64() >= g.spawnChance {
		return PendingPowerup{}, false
	}
	spec := g.cat.Powerups[g.rand.Intn(len(g.cat.Powerups))]
	p := PendingPowerup{
		ID:        spec.ID,
		Name:      spec.Name,
		ExpiresAt: epochMillis(g.now().Add(PendingPowerupLifetime)),
	}
	g.pending[spec.ID] = p
	return p, true
}

func (g *Game) prunePendingLocked(nowMS int64) {
	for id, p := range g.pending {
		if p.ExpiresAt <= nowMS {
			delete(g.pending, id)
		}
	}
}

func (g *Game) pendingLocked(nowMS int64) []PendingPowerup {
	out := make([]PendingPowerup, 0, len(g.pending))
	for _, p := range g.pending {
		if p.ExpiresAt > nowMS {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ClickPowerup activates a spawned power-up that is still waiting to be clicked.
func (g *Game) ClickPowerup(id string) (ActiveBoost, error) {
	var b ActiveBoost
	err := g.mutate(func(s *State, now time.Time) error {
		spec, ok := g.cat.Powerup(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownPowerup, id)
		}
		p, ok := g.pending[id]
		if !ok || p.ExpiresAt <= epochMillis(now) {
			delete(g.pending, id)
			return ErrNoPendingPowerup
		}
		delete(g.pending, id)
		s.Stats.PowerupsClicked++
		b = activateBoost(s, spec, now)
		g.log.Info("power-up activated", "powerup", id, "activation_id", b.ActivationID, "end_time", b.EndTime)
		return nil
	})
	return b, err
}

// TriggerBoost activates a power-up directly, without a pending spawn.
func (g *Game) TriggerBoost(id string) (ActiveBoost, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state.IsGameWon {
		return ActiveBoost{}, ErrGameWon
	}
	spec, ok := g.cat.Powerup(id)
	if !ok {
		g.log.Error("trigger boost failed", "powerup", id)
		return ActiveBoost{}, fmt.Errorf("%w: %s", ErrUnknownPowerup, id)
	}
	now := g.now()
	b := activateBoost(g.state, spec, now)
	g.recompute(now)
	g.log.Info("power-up triggered", "powerup", id, "activation_id", b.ActivationID, "end_time", b.EndTime)
	return b, nil
}

// RemoveBoost ends the boost id. With a non-empty activationID only that
// activation is removed, so a stale removal after a re-activation is a no-op.
// Removing an absent boost is a no-op too.
func (g *Game) RemoveBoost(id, activationID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	b, ok := g.state.ActiveBoosts[id]
	if !ok || (activationID != "" && b.ActivationID != activationID) {
		return false
	}
	delete(g.state.ActiveBoosts, id)
	g.recompute(g.now())
	return true
}

func (g *Game) Powerups() []PowerupView {
	g.mu.Lock()
	defer g.mu.Unlock()
	nowMS := epochMillis(g.now())
	out := make([]PowerupView, 0, len(g.cat.Powerups))
	for _, p := range g.cat.Powerups {
		v := PowerupView{
			ID:          p.ID,
			Name:        p.Name,
			Category:    p.Category,
			Magnitude:   p.Magnitude,
			DurationMS:  p.DurationMS,
			Description: p.Description,
		}
		if b, ok := g.state.boost(p.ID, nowMS); ok {
			v.Active = true
			v.EndTime = b.EndTime
			v.RemainingMS = b.EndTime - nowMS
		}
		if pp, ok := g.pending[p.ID]; ok && pp.ExpiresAt > nowMS {
			v.Pending = true
		}
		out = append(out, v)
	}
	return out
}
