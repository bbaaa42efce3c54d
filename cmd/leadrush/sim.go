package main

import (
	"context"
	"errors"
	"log/slog"
	mathrand "math/rand"
	"time"

	"leadrush/internal/game"
)

type simOptions struct {
	Duration time.Duration
	Step     time.Duration
	AutoBuy  bool
	Seed     int64
	// Store, when set, seeds the run from the saved game. It is only read.
	Store game.KV
}

type simSummary struct {
	Simulated time.Duration
	Ticks     int
	WonAfter  time.Duration
	Won       bool

	State *game.State
	Rates game.Rates

	Attempts  int64
	Successes int64
	Failures  int64

	BuildingsBought int
	UpgradesBought  int
	PowerupsClaimed int
}

// simClock is advanced by the simulation instead of the wall clock.
type simClock struct {
	t time.Time
}

func (c *simClock) now() time.Time { return c.t }

func simulate(ctx context.Context, logger *slog.Logger, opts simOptions) (simSummary, error) {
	if opts.Step <= 0 {
		opts.Step = game.DefaultTickInterval
	}
	if opts.Seed == 0 {
		opts.Seed = 1
	}
	clock := &simClock{t: time.Now().UTC()}
	g := game.NewGame(game.DefaultCatalog(), logger,
		game.WithClock(clock.now),
		game.WithTickInterval(opts.Step),
		game.WithRand(mathrand.New(mathrand.NewSource(opts.Seed))),
	)
	if opts.Store != nil {
		if _, err := g.Load(ctx, opts.Store); err != nil {
			return simSummary{}, err
		}
	}

	var sum simSummary
	steps := int(opts.Duration / opts.Step)
	perSecond := max(1, int(time.Second/opts.Step))
	perSpawn := max(1, int(game.DefaultSpawnInterval/opts.Step))

	for i := 1; i <= steps; i++ {
		if i%1000 == 0 && ctx.Err() != nil {
			return sum, ctx.Err()
		}
		clock.t = clock.t.Add(opts.Step)
		rep := g.Tick()
		sum.Ticks++
		sum.Simulated += opts.Step
		sum.Attempts += rep.Attempts
		sum.Successes += rep.Successes
		sum.Failures += rep.Failures
		if rep.Won {
			sum.Won = true
			sum.WonAfter = sum.Simulated
			break
		}
		if i%perSpawn == 0 {
			if p, ok := g.RollSpawn(); ok {
				if _, err := g.ClickPowerup(p.ID); err == nil {
					sum.PowerupsClaimed++
				}
			}
		}
		if opts.AutoBuy && i%perSecond == 0 {
			b, u := autoBuy(g)
			sum.BuildingsBought += b
			sum.UpgradesBought += u
		}
	}

	sum.State = g.State()
	sum.Rates = g.Rates()
	sum.Won = sum.State.IsGameWon
	return sum, nil
}

// autoBuy buys the cheapest affordable building up to ten times, then every
// affordable upgrade with what is left.
func autoBuy(g *game.Game) (buildings, upgrades int) {
	for range game.BulkBuyQuantity {
		id := ""
		best := 0.0
		for _, b := range g.Buildings() {
			if !b.Affordable {
				continue
			}
			total := b.Cost.Leads + b.Cost.Opportunities + b.Cost.Money
			if id == "" || total < best {
				id, best = b.ID, total
			}
		}
		if id == "" {
			break
		}
		if _, err := g.BuyBuilding(id, false); err != nil {
			if !errors.Is(err, game.ErrInsufficientFunds) {
				break
			}
			continue
		}
		buildings++
	}
	for _, u := range g.Upgrades() {
		if u.Purchased || !u.Unlocked || !u.Affordable {
			continue
		}
		if err := g.BuyUpgrade(u.ID); err == nil {
			upgrades++
		}
	}
	return buildings, upgrades
}
