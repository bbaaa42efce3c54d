package game

import (
	"errors"
	"math"
	"testing"
)

func TestBuildingCostMonotonic(t *testing.T) {
	cat := DefaultCatalog()
	s := DefaultState(cat, testEpoch)
	for i := range cat.Buildings {
		b := &cat.Buildings[i]
		prev := buildingUnitCost(s, b, 0)
		for n := int64(1); n <= 300; n++ {
			next := buildingUnitCost(s, b, n)
			if next.Leads < prev.Leads || next.Opportunities < prev.Opportunities || next.Money < prev.Money {
				t.Fatalf("%s: cost(%d)=%+v < cost(%d)=%+v", b.ID, n, next, n-1, prev)
			}
			prev = next
		}
	}
}

func TestCumulativeBuildingCostSumsPerUnit(t *testing.T) {
	cat := DefaultCatalog()
	s := DefaultState(cat, testEpoch)
	s.Buildings["sdr"] = BuildingState{Count: 7}
	s.OtherBuildingCostReduction = 0.9

	got, err := CumulativeBuildingCost(s, cat, "sdr", 10)
	if err != nil {
		t.Fatalf("cumulative cost: %v", err)
	}
	var want float64
	probe := s.Clone()
	for n := int64(7); n < 17; n++ {
		probe.Buildings["sdr"] = BuildingState{Count: n}
		c, err := BuildingCost(probe, cat, "sdr")
		if err != nil {
			t.Fatalf("building cost: %v", err)
		}
		want += c.Leads
	}
	if got.Leads != want {
		t.Fatalf("cumulative got=%v want=%v", got.Leads, want)
	}
	single, _ := BuildingCost(s, cat, "sdr")
	if got.Leads == 10*single.Leads {
		t.Fatalf("cumulative cost must compound per unit, got flat %v", got.Leads)
	}
}

func TestSDRCostScenario(t *testing.T) {
	g, _ := newTestGame(t)
	c, err := g.BuildingCost("sdr")
	if err != nil {
		t.Fatalf("cost: %v", err)
	}
	if c.Leads != 15 {
		t.Fatalf("initial sdr cost got=%v want=15", c.Leads)
	}
	g.state.Leads = 100
	res, err := g.BuyBuilding("sdr", false)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if res.Count != 1 || g.state.count("sdr") != 1 {
		t.Fatalf("count got=%d want=1", res.Count)
	}
	if g.state.Leads != 85 {
		t.Fatalf("leads got=%v want=85", g.state.Leads)
	}
	c, _ = g.BuildingCost("sdr")
	if want := math.Ceil(15 * 1.10); c.Leads != want {
		t.Fatalf("next sdr cost got=%v want=%v", c.Leads, want)
	}
	if g.Rates().LeadsPerSecond != 0.5 {
		t.Fatalf("lps got=%v want=0.5", g.Rates().LeadsPerSecond)
	}
}

func TestBuyBuildingAtomic(t *testing.T) {
	g, _ := newTestGame(t)
	g.state.Leads = 100
	before := g.State()

	if _, err := g.BuyBuilding("sdr", true); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("bulk buy err got=%v want ErrInsufficientFunds", err)
	}
	after := g.State()
	if after.Leads != before.Leads || after.count("sdr") != 0 {
		t.Fatalf("rejected bulk purchase mutated state: leads=%v count=%d", after.Leads, after.count("sdr"))
	}

	if _, err := g.BuyBuilding("nope", false); !errors.Is(err, ErrUnknownBuilding) {
		t.Fatalf("unknown building err got=%v", err)
	}

	g.state.Leads = 1_000
	bulk, _ := g.CumulativeBuildingCost("sdr", BulkBuyQuantity)
	res, err := g.BuyBuilding("sdr", true)
	if err != nil {
		t.Fatalf("bulk buy: %v", err)
	}
	if res.Count != BulkBuyQuantity || res.Spent != bulk {
		t.Fatalf("bulk result got=%+v want count=%d spent=%+v", res, BulkBuyQuantity, bulk)
	}
}

func TestDualCurrencyBuilding(t *testing.T) {
	g, _ := newTestGame(t)
	g.state.Leads = 1e6
	if _, err := g.BuyBuilding("seoSquad", false); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient opportunities, got %v", err)
	}
	g.state.Opportunities = 1e6
	if _, err := g.BuyBuilding("seoSquad", false); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if g.state.Leads != 1e6-9000 || g.state.Opportunities != 1e6-9000 {
		t.Fatalf("both currencies should be spent: leads=%v opps=%v", g.state.Leads, g.state.Opportunities)
	}
}

func TestProcurementReducesOtherBuildingsOnly(t *testing.T) {
	cat := DefaultCatalog()
	s := DefaultState(cat, testEpoch)
	s.Buildings["procurementOptimizer"] = BuildingState{Count: 2}
	Recompute(s, cat, testEpoch)

	sdr, _ := BuildingCost(s, cat, "sdr")
	if want := math.Ceil(15 * 0.95 * 0.95); sdr.Leads != want {
		t.Fatalf("sdr cost got=%v want=%v", sdr.Leads, want)
	}
	own, _ := BuildingCost(s, cat, "procurementOptimizer")
	if want := math.Ceil(40000 * math.Pow(1.15, 2)); own.Money != want {
		t.Fatalf("procurement cost got=%v want=%v", own.Money, want)
	}
}

func TestTierGating(t *testing.T) {
	g, _ := newTestGame(t)
	g.state.Leads = 1e7
	g.state.Opportunities = 1e7

	if err := g.BuyUpgrade("sdrSynergy"); !errors.Is(err, ErrTierLocked) {
		t.Fatalf("tier 2 before tier 1: err got=%v want ErrTierLocked", err)
	}
	for _, id := range []string{"sdrTraining", "sdrScripts"} {
		if err := g.BuyUpgrade(id); err != nil {
			t.Fatalf("buy %s: %v", id, err)
		}
		if g.state.CategoryTiers["leadGeneration"] != 1 {
			t.Fatalf("tier advanced before tier 1 was complete")
		}
		if err := g.BuyUpgrade("sdrSynergy"); !errors.Is(err, ErrTierLocked) {
			t.Fatalf("tier 2 with partial tier 1: err got=%v", err)
		}
	}
	if err := g.BuyUpgrade("webinarFunnels"); err != nil {
		t.Fatalf("buy webinarFunnels: %v", err)
	}
	if g.state.CategoryTiers["leadGeneration"] != 2 {
		t.Fatalf("tier got=%d want=2", g.state.CategoryTiers["leadGeneration"])
	}
	if err := g.BuyUpgrade("sdrSynergy"); err != nil {
		t.Fatalf("buy sdrSynergy: %v", err)
	}
	if err := g.BuyUpgrade("sdrSynergy"); !errors.Is(err, ErrAlreadyPurchased) {
		t.Fatalf("repurchase err got=%v want ErrAlreadyPurchased", err)
	}
}

func TestUpgradeCostModes(t *testing.T) {
	cat := DefaultCatalog()
	completeTier1 := func(s *State, category string) {
		c, _ := cat.Category(category)
		for _, u := range c.Tier1 {
			s.Upgrades[u.ID] = UpgradeState{Purchased: true}
		}
		syncCategoryTiers(s, cat)
	}

	t.Run("requirement gates without spending", func(t *testing.T) {
		s := DefaultState(cat, testEpoch)
		s.Customers = 9
		if err := buyUpgrade(s, cat, "referralProgram"); !errors.Is(err, ErrInsufficientFunds) {
			t.Fatalf("err got=%v", err)
		}
		s.Customers = 10
		if err := buyUpgrade(s, cat, "referralProgram"); err != nil {
			t.Fatalf("buy: %v", err)
		}
		if s.Customers != 10 {
			t.Fatalf("requirement upgrade spent customers: %d", s.Customers)
		}
		if s.CustomerGrowthCARBonus != 0.1 {
			t.Fatalf("CAR bonus got=%v", s.CustomerGrowthCARBonus)
		}
	})

	t.Run("moneyCustomers spends both", func(t *testing.T) {
		s := DefaultState(cat, testEpoch)
		completeTier1(s, "customerGrowth")
		s.Money = 60000
		s.Customers = 25
		if err := buyUpgrade(s, cat, "customerAdvocacy"); err != nil {
			t.Fatalf("buy: %v", err)
		}
		if s.Money != 10000 || s.Customers != 5 {
			t.Fatalf("money=%v customers=%d", s.Money, s.Customers)
		}
		if s.CVRCustomerMultiplier != 1.5 {
			t.Fatalf("cvr multiplier got=%v", s.CVRCustomerMultiplier)
		}
	})

	t.Run("all spends three currencies", func(t *testing.T) {
		s := DefaultState(cat, testEpoch)
		completeTier1(s, "leadGeneration")
		s.Leads, s.Opportunities, s.Money = 50000, 50000, 4999
		if err := buyUpgrade(s, cat, "leadTeamBootcamp"); !errors.Is(err, ErrInsufficientFunds) {
			t.Fatalf("err got=%v", err)
		}
		s.Money = 5000
		if err := buyUpgrade(s, cat, "leadTeamBootcamp"); err != nil {
			t.Fatalf("buy: %v", err)
		}
		if s.Leads != 0 || s.Opportunities != 0 || s.Money != 0 {
			t.Fatalf("leftover leads=%v opps=%v money=%v", s.Leads, s.Opportunities, s.Money)
		}
	})

	c, err := GetUpgradeCost(cat, "referralProgram")
	if err != nil || c.RequiresCustomers != 10 || c.Money != 0 {
		t.Fatalf("upgrade cost got=%+v err=%v", c, err)
	}
	if _, err := GetUpgradeCost(cat, "nope"); !errors.Is(err, ErrUnknownUpgrade) {
		t.Fatalf("unknown upgrade err got=%v", err)
	}
}

func TestClicks(t *testing.T) {
	g, _ := newTestGame(t)
	res, err := g.ClickLeads(3)
	if err != nil {
		t.Fatalf("click: %v", err)
	}
	if res.Gained != 3 || g.state.Leads != 3 || g.state.Stats.LeadClicks != 3 {
		t.Fatalf("click result=%+v leads=%v", res, g.state.Leads)
	}

	g.state.ClickMultiplier = 2
	if _, err := g.TriggerBoost("clickBoost"); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	res, _ = g.ClickOpportunities(1)
	if res.Gained != 10 {
		t.Fatalf("boosted click got=%v want=10", res.Gained)
	}
	if g.state.Stats.TotalManualOpportunities != 10 {
		t.Fatalf("manual opportunities got=%v", g.state.Stats.TotalManualOpportunities)
	}
}

func TestClickPercentBonus(t *testing.T) {
	g, _ := newTestGame(t)
	g.state.Buildings["sdr"] = BuildingState{Count: 20}
	g.state.LeadClickPercentBonus = 0.05
	g.recompute(testEpoch)

	res, _ := g.ClickLeads(1)
	if want := 1 + 0.05*10; math.Abs(res.Gained-want) > 1e-9 {
		t.Fatalf("click got=%v want=%v", res.Gained, want)
	}
}

func TestToggles(t *testing.T) {
	g, _ := newTestGame(t)
	paused, err := g.ToggleAcquisitionPause()
	if err != nil || !paused {
		t.Fatalf("toggle acquisition got=%v err=%v", paused, err)
	}
	if _, err := g.ToggleFlexibleWorkflow(); !errors.Is(err, ErrFeatureLocked) {
		t.Fatalf("locked workflow err got=%v", err)
	}
	g.state.Upgrades["flexibleWorkflow"] = UpgradeState{Purchased: true}
	g.state.Leads = 500
	active, err := g.ToggleFlexibleWorkflow()
	if err != nil || !active {
		t.Fatalf("toggle workflow got=%v err=%v", active, err)
	}
}

func TestPausedRejectsActions(t *testing.T) {
	g, _ := newTestGame(t)
	g.Pause()
	if _, err := g.ClickLeads(1); !errors.Is(err, ErrPaused) {
		t.Fatalf("click while paused err got=%v", err)
	}
	g.Resume()
	if _, err := g.ClickLeads(1); err != nil {
		t.Fatalf("click after resume: %v", err)
	}
}
