package game

import (
	"math"
	mathrand "math/rand"
	"reflect"
	"testing"
	"time"
)

func assertRatesSane(t *testing.T, r Rates) {
	t.Helper()
	v := reflect.ValueOf(r)
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if f.Kind() != reflect.Float64 {
			continue
		}
		x := f.Float()
		if math.IsNaN(x) || math.IsInf(x, 0) || x < 0 {
			t.Fatalf("rates.%s = %v", v.Type().Field(i).Name, x)
		}
	}
}

func TestRecomputeDefaultState(t *testing.T) {
	cat := DefaultCatalog()
	s := DefaultState(cat, testEpoch)
	r := Recompute(s, cat, testEpoch)
	assertRatesSane(t, r)
	if r.LeadsPerSecond != 0 || r.OpportunitiesPerSecond != 0 || r.MoneyPerSecond != 0 {
		t.Fatalf("fresh game should produce nothing: %+v", r)
	}
	if r.CustomerAcquisitionRate != DefaultBaseCAR || r.CustomerValueRate != DefaultBaseCVR {
		t.Fatalf("car=%v cvr=%v", r.CustomerAcquisitionRate, r.CustomerValueRate)
	}
	if r.AcquisitionCost != LeadsPerCustomerBase {
		t.Fatalf("acquisition cost got=%v want=%v", r.AcquisitionCost, LeadsPerCustomerBase)
	}
}

func TestRatesNeverNegativeOrNonFinite(t *testing.T) {
	cat := DefaultCatalog()
	rng := mathrand.New(mathrand.NewSource(7))
	extremes := []float64{0, -1, 1e-300, 1e300, math.MaxFloat64, -math.MaxFloat64, math.NaN(), math.Inf(1), math.Inf(-1)}
	pick := func() float64 {
		if rng.Intn(3) == 0 {
			return extremes[rng.Intn(len(extremes))]
		}
		return rng.Float64() * 10
	}

	for i := 0; i < 500; i++ {
		s := DefaultState(cat, testEpoch)
		for _, b := range cat.Buildings {
			s.Buildings[b.ID] = BuildingState{Count: rng.Int63n(1 << uint(rng.Intn(62)+1))}
		}
		for _, id := range cat.upgradeIDs {
			s.Upgrades[id] = UpgradeState{Purchased: rng.Intn(2) == 0}
		}
		for _, field := range stateFields {
			*field(s) = pick()
		}
		s.Leads, s.Opportunities = pick(), pick()
		s.Customers = rng.Int63()
		s.FlexibleWorkflowActive = rng.Intn(2) == 0
		s.CustomerCountForCostIncrease = rng.Int63()
		s.Stats.GameStartTime = testEpoch.Add(-time.Duration(rng.Intn(100)) * time.Hour).UnixMilli()
		for _, p := range cat.Powerups {
			if rng.Intn(2) == 0 {
				s.ActiveBoosts[p.ID] = ActiveBoost{EndTime: testEpoch.UnixMilli() + 1000, Magnitude: pick()}
			}
		}
		assertRatesSane(t, Recompute(s, cat, testEpoch))
	}
}

func TestCustomerSuccessEffects(t *testing.T) {
	cat := DefaultCatalog()
	s := DefaultState(cat, testEpoch)
	s.Buildings["accountManager"] = BuildingState{Count: 2}
	s.Buildings["successArchitect"] = BuildingState{Count: 3}
	s.Buildings["successManager"] = BuildingState{Count: 1}
	s.Buildings["abmPod"] = BuildingState{Count: 15}
	s.Buildings["revOpsHub"] = BuildingState{Count: 9}

	r := Recompute(s, cat, testEpoch)
	if math.Abs(r.AccountManagerCostReduction-0.9025) > 1e-12 {
		t.Fatalf("account manager got=%v", r.AccountManagerCostReduction)
	}
	// 24 integrated buildings make two whole blocks.
	if math.Abs(r.SuccessArchitectCVRBonus-3*2*0.05) > 1e-12 {
		t.Fatalf("architect bonus got=%v", r.SuccessArchitectCVRBonus)
	}
	if r.SuccessManagerCVRMultiplier != 1.05 {
		t.Fatalf("success manager got=%v", r.SuccessManagerCVRMultiplier)
	}
	if want := 1 * 1.3 * 1.05; math.Abs(r.CustomerValueRate-want) > 1e-12 {
		t.Fatalf("cvr got=%v want=%v", r.CustomerValueRate, want)
	}
	if want := math.Ceil(100 * 0.9025); r.AcquisitionCost != want {
		t.Fatalf("acquisition cost got=%v want=%v", r.AcquisitionCost, want)
	}
}

func TestBuildingUpgradeStacking(t *testing.T) {
	cat := DefaultCatalog()
	s := DefaultState(cat, testEpoch)
	s.Buildings["sdr"] = BuildingState{Count: 4}
	s.Upgrades["sdrTraining"] = UpgradeState{Purchased: true}
	s.Upgrades["sdrScripts"] = UpgradeState{Purchased: true}
	s.BuildingEfficiencyMultiplier = 1.1
	s.LeadTeamMultiplier = 1.25

	r := Recompute(s, cat, testEpoch)
	want := (0.5 + 0.5) * 1.25 * 1.1 * 1.25 * 4
	if math.Abs(r.LeadsPerSecond-want) > 1e-9 {
		t.Fatalf("lps got=%v want=%v", r.LeadsPerSecond, want)
	}
	if r.OpportunitiesPerSecond != 0 {
		t.Fatalf("lead buildings must not produce opportunities: %v", r.OpportunitiesPerSecond)
	}
}

func TestTeamSynergy(t *testing.T) {
	cat := DefaultCatalog()
	s := DefaultState(cat, testEpoch)
	s.Buildings["sdr"] = BuildingState{Count: 25}
	s.Buildings["webinarHost"] = BuildingState{Count: 1}

	without := Recompute(s, cat, testEpoch)
	s.Upgrades["sdrSynergy"] = UpgradeState{Purchased: true}
	with := Recompute(s, cat, testEpoch)

	// Two whole blocks of ten SDRs give the webinar host +2%; SDRs themselves are unaffected.
	want := without.LeadsPerSecond + 4*0.02
	if math.Abs(with.LeadsPerSecond-want) > 1e-9 {
		t.Fatalf("lps with synergy got=%v want=%v", with.LeadsPerSecond, want)
	}
}

func TestFlexibleWorkflowTransfersHalfOfRawRate(t *testing.T) {
	cat := DefaultCatalog()
	s := DefaultState(cat, testEpoch)
	s.Buildings["sdr"] = BuildingState{Count: 100}
	s.Buildings["bdr"] = BuildingState{Count: 20}
	s.Leads = 1000
	s.FlexibleWorkflowActive = true

	r := Recompute(s, cat, testEpoch)
	if r.RawLeadsPerSecond != 50 || r.RawOpportunitiesPerSecond != 10 {
		t.Fatalf("raw lps=%v ops=%v", r.RawLeadsPerSecond, r.RawOpportunitiesPerSecond)
	}
	if r.LeadsPerSecond != 25 || r.OpportunitiesPerSecond != 35 {
		t.Fatalf("after transfer lps=%v ops=%v want 25/35", r.LeadsPerSecond, r.OpportunitiesPerSecond)
	}
	if !s.FlexibleWorkflowActive {
		t.Fatalf("workflow should stay active while the pools differ")
	}

	s.Opportunities = 995
	r = Recompute(s, cat, testEpoch)
	if s.FlexibleWorkflowActive || !r.FlexibleWorkflowCleared {
		t.Fatalf("workflow should clear within threshold")
	}
	if r.LeadsPerSecond != 50 || r.OpportunitiesPerSecond != 10 {
		t.Fatalf("cleared workflow must not transfer: lps=%v ops=%v", r.LeadsPerSecond, r.OpportunitiesPerSecond)
	}
}

func TestCVRBoostMultipliesBySix(t *testing.T) {
	g, clock := newTestGame(t)
	g.state.Customers = 12
	g.state.Buildings["successArchitect"] = BuildingState{Count: 2}
	g.state.Buildings["abmPod"] = BuildingState{Count: 10}
	g.state.CVRMultiplierBonus = 1.25
	g.recompute(clock.Now())
	before := g.Rates().CustomerValueRate

	b, err := g.TriggerBoost("cvrBoost")
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if got := g.Rates().CustomerValueRate; got != before*6 {
		t.Fatalf("boosted cvr got=%v want=%v", got, before*6)
	}

	spec, _ := DefaultCatalog().Powerup("cvrBoost")
	clock.Advance(time.Duration(spec.DurationMS) * time.Millisecond)
	rep := g.Tick()
	if len(rep.ExpiredBoosts) != 1 || rep.ExpiredBoosts[0] != "cvrBoost" {
		t.Fatalf("expired boosts got=%v", rep.ExpiredBoosts)
	}
	if g.RemoveBoost("cvrBoost", b.ActivationID) {
		t.Fatalf("removing an expired boost should be a no-op")
	}
	if got := g.Rates().CustomerValueRate; math.Abs(got-before) > 1e-12 {
		t.Fatalf("cvr after expiry got=%v want=%v", got, before)
	}
}

func TestPlaytimeBonus(t *testing.T) {
	start := testEpoch.UnixMilli()
	tests := []struct {
		elapsed time.Duration
		want    float64
	}{
		{elapsed: 0, want: 1},
		{elapsed: 12 * time.Hour, want: 1.5},
		{elapsed: 24 * time.Hour, want: 2},
		{elapsed: 72 * time.Hour, want: 2},
	}
	for _, tc := range tests {
		got := playtimeMultiplier(start, start+tc.elapsed.Milliseconds())
		if math.Abs(got-tc.want) > 1e-12 {
			t.Fatalf("elapsed=%s got=%v want=%v", tc.elapsed, got, tc.want)
		}
	}

	cat := DefaultCatalog()
	s := DefaultState(cat, testEpoch)
	s.Customers = 10
	later := testEpoch.Add(12 * time.Hour)
	if r := Recompute(s, cat, later); r.MoneyPerSecond != 10 {
		t.Fatalf("bonus without upgrade: mps=%v", r.MoneyPerSecond)
	}
	s.Upgrades["legacyBrand"] = UpgradeState{Purchased: true}
	if r := Recompute(s, cat, later); math.Abs(r.MoneyPerSecond-15) > 1e-9 {
		t.Fatalf("bonus with upgrade: mps=%v want=15", r.MoneyPerSecond)
	}
}
