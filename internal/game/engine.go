package game

import (
	"math"
	"time"
)

// Rates is everything derived from State on a recompute. All fields are finite and >= 0.
type Rates struct {
	LeadsPerSecond            float64 `json:"leadsPerSecond"`
	OpportunitiesPerSecond    float64 `json:"opportunitiesPerSecond"`
	RawLeadsPerSecond         float64 `json:"rawLeadsPerSecond"`
	RawOpportunitiesPerSecond float64 `json:"rawOpportunitiesPerSecond"`
	CustomerAcquisitionRate   float64 `json:"customerAcquisitionRate"`
	CustomerValueRate         float64 `json:"customerValueRate"`
	MoneyPerSecond            float64 `json:"moneyPerSecond"`
	AcquisitionCost           float64 `json:"acquisitionCost"`
	PlaytimeMultiplier        float64 `json:"playtimeMultiplier"`

	AccountManagerCostReduction float64 `json:"accountManagerCostReduction"`
	SuccessArchitectCVRBonus    float64 `json:"successArchitectCvrBonus"`
	ProcurementCostReduction    float64 `json:"procurementCostReduction"`
	SuccessManagerCVRMultiplier float64 `json:"successManagerCvrMultiplier"`

	// FlexibleWorkflowCleared is set when this pass switched the toggle off.
	FlexibleWorkflowCleared bool `json:"-"`
}

type buildingMods struct {
	flat    float64
	percent float64
	mult    float64
}

// Recompute derives every rate from s and cat. Besides the returned Rates it
// only writes the customer-success cost caches and, when Leads and
// Opportunities have converged, switches the flexible workflow off.
func Recompute(s *State, cat *Catalog, now time.Time) Rates {
	var r Rates
	nowMS := epochMillis(now)

	// Customer-success buildings.
	var integrated int64
	for _, b := range cat.Buildings {
		if b.Group == GroupIntegrated {
			integrated += s.count(b.ID)
		}
	}
	accountMgr, procurement, architect, successMgr := 1.0, 1.0, 0.0, 1.0
	for _, b := range cat.Buildings {
		if b.Effect == nil {
			continue
		}
		n := float64(s.count(b.ID))
		switch b.Effect.Kind {
		case BuildingEffectAcquisitionCost:
			accountMgr *= math.Pow(b.Effect.PerUnit, n)
		case BuildingEffectBuildingCost:
			procurement *= math.Pow(b.Effect.PerUnit, n)
		case BuildingEffectCVRBonus:
			blocks := math.Floor(float64(integrated) / ArchitectBlockSize)
			architect += n * blocks * b.Effect.PerUnit
		case BuildingEffectCVRMultiplier:
			successMgr *= math.Pow(b.Effect.PerUnit, n)
		}
	}
	s.AccountManagerCostMultiplier = clamp(accountMgr, MinCostReduction, 1)
	s.ProcurementCostMultiplier = clamp(procurement, MinCostReduction, 1)
	r.AccountManagerCostReduction = s.AccountManagerCostMultiplier
	r.ProcurementCostReduction = s.ProcurementCostMultiplier
	r.SuccessArchitectCVRBonus = nonNegative(architect)
	r.SuccessManagerCVRMultiplier = floorOne(successMgr)

	// Per-building production.
	mods := make(map[string]*buildingMods)
	synergy := map[BuildingGroup]bool{}
	playtime := false
	for _, id := range cat.upgradeIDs {
		if !s.purchased(id) {
			continue
		}
		u := cat.upgrades[id]
		for _, e := range u.Effects {
			switch e.Kind {
			case EffectFlat, EffectPercent, EffectMultiplier:
				m := mods[e.Target]
				if m == nil {
					m = &buildingMods{mult: 1}
					mods[e.Target] = m
				}
				switch e.Kind {
				case EffectFlat:
					m.flat += e.Amount
				case EffectPercent:
					m.percent += e.Amount
				case EffectMultiplier:
					m.mult *= e.Amount
				}
			case EffectTeamSynergy:
				synergy[e.Group] = true
			case EffectPlaytimeBonus:
				playtime = true
			}
		}
	}

	global := s.BuildingEfficiencyMultiplier * s.CustomerGlobalMultiplier
	var rawLPS, rawOPS float64
	for _, b := range cat.Buildings {
		n := s.count(b.ID)
		if !b.Producing() || n <= 0 {
			continue
		}
		lps, ops := b.BaseLPS, b.BaseOPS
		factor := 1.0
		if m := mods[b.ID]; m != nil {
			if lps > 0 {
				lps += m.flat
			}
			if ops > 0 {
				ops += m.flat
			}
			factor *= (1 + m.percent) * m.mult
		}
		if synergy[b.Group] {
			if lead, ok := cat.tierZero(b.Group); ok && lead.ID != b.ID {
				blocks := math.Floor(float64(s.count(lead.ID)) / TeamSynergyBlockSize)
				factor *= 1 + blocks*TeamSynergyBonusPerBlock
			}
		}
		factor *= global
		switch b.Group {
		case GroupLeadTeam:
			factor *= s.LeadTeamMultiplier
		case GroupOppTeam:
			factor *= s.OppTeamMultiplier
		case GroupIntegrated:
			factor *= s.IntegratedMultiplier
		}
		rawLPS += nonNegative(lps * factor * float64(n))
		rawOPS += nonNegative(ops * factor * float64(n))
	}
	r.RawLeadsPerSecond = nonNegative(rawLPS)
	r.RawOpportunitiesPerSecond = nonNegative(rawOPS)

	// Flexible workflow moves half of the larger raw rate into the smaller one.
	lps, ops := r.RawLeadsPerSecond, r.RawOpportunitiesPerSecond
	if s.FlexibleWorkflowActive {
		if flexibleWorkflowConverged(s) {
			s.FlexibleWorkflowActive = false
			r.FlexibleWorkflowCleared = true
		} else if ops < lps {
			moved := lps * FlexibleWorkflowTransfer
			lps -= moved
			ops += moved
		} else if lps < ops {
			moved := ops * FlexibleWorkflowTransfer
			ops -= moved
			lps += moved
		}
	}

	prod := boostFactor(s, cat, BoostProduction, nowMS)
	r.LeadsPerSecond = nonNegative(lps * prod)
	r.OpportunitiesPerSecond = nonNegative(ops * prod)

	r.CustomerAcquisitionRate = clamp(s.BaseCAR+s.CustomerGrowthCARBonus, 0, MaxCAR)

	cvr := s.BaseCVR * (1 + r.SuccessArchitectCVRBonus)
	cvr += s.CustomerGrowthCVRBonus
	cvr *= s.CVRMultiplierBonus
	cvr *= s.CVRCustomerMultiplier
	cvr *= r.SuccessManagerCVRMultiplier
	cvr *= boostFactor(s, cat, BoostCVR, nowMS)
	r.CustomerValueRate = nonNegative(cvr)

	r.PlaytimeMultiplier = 1
	if playtime {
		r.PlaytimeMultiplier = playtimeMultiplier(s.Stats.GameStartTime, nowMS)
	}
	mps := float64(s.Customers) * r.CustomerValueRate * r.PlaytimeMultiplier
	mps *= boostFactor(s, cat, BoostMoney, nowMS)
	r.MoneyPerSecond = nonNegative(mps)

	r.AcquisitionCost = AcquisitionCost(s)
	return r
}

// AcquisitionCost is the Leads and the Opportunities spent on one acquisition attempt.
func AcquisitionCost(s *State) float64 {
	reduction := reductionFactor(s.AcquisitionCostReduction) * reductionFactor(s.AccountManagerCostMultiplier)
	cost := LeadsPerCustomerBase * math.Pow(AcquisitionCostGrowth, float64(s.CustomerCountForCostIncrease)) * reduction
	cost = math.Ceil(math.Max(1, cost))
	if math.IsNaN(cost) || math.IsInf(cost, 0) {
		return math.MaxFloat64 / 2
	}
	return cost
}

// boostFactor multiplies (1 + magnitude) over every unexpired boost of the category.
func boostFactor(s *State, cat *Catalog, category BoostCategory, nowMS int64) float64 {
	f := 1.0
	for id, b := range s.ActiveBoosts {
		spec, ok := cat.Powerup(id)
		if !ok || spec.Category != category || b.EndTime <= nowMS {
			continue
		}
		f *= 1 + nonNegative(b.Magnitude)
	}
	return f
}

func playtimeMultiplier(startMS, nowMS int64) float64 {
	hours := float64(nowMS-startMS) / float64(time.Hour/time.Millisecond)
	if hours <= 0 {
		return 1
	}
	progress := math.Min(1, hours/PlaytimeBonusRampHours)
	return 1 + (PlaytimeBonusMaxMultiplier-1)*progress
}

func flexibleWorkflowConverged(s *State) bool {
	return math.Abs(math.Floor(s.Leads)-math.Floor(s.Opportunities)) <= FlexibleWorkflowThreshold
}
