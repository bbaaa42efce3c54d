package game

import (
	"encoding/json"
	"math"
	"time"
)

// DefaultState builds a catalog-consistent state with every counter at zero.
func DefaultState(cat *Catalog, now time.Time) *State {
	s := &State{
		LeadsPerClick:         1,
		OpportunitiesPerClick: 1,
		ClickMultiplier:       1,

		Buildings:     make(map[string]BuildingState, len(cat.Buildings)),
		Upgrades:      make(map[string]UpgradeState, len(cat.upgradeIDs)),
		CategoryTiers: make(map[string]int, len(cat.Categories)),

		BuildingEfficiencyMultiplier: 1,
		LeadTeamMultiplier:           1,
		OppTeamMultiplier:            1,
		IntegratedMultiplier:         1,
		CustomerGlobalMultiplier:     1,
		CVRMultiplierBonus:           1,
		CVRCustomerMultiplier:        1,
		AcquisitionCostReduction:     1,
		OtherBuildingCostReduction:   1,
		AccountManagerCostMultiplier: 1,
		ProcurementCostMultiplier:    1,

		BaseCAR:                  DefaultBaseCAR,
		BaseCVR:                  DefaultBaseCVR,
		AcquisitionSuccessChance: DefaultAcquisitionChance,

		ActiveBoosts: make(map[string]ActiveBoost),

		Volume:               0.5,
		MusicShouldBePlaying: true,
	}
	for _, b := range cat.Buildings {
		s.Buildings[b.ID] = BuildingState{}
	}
	for _, id := range cat.upgradeIDs {
		s.Upgrades[id] = UpgradeState{}
	}
	for _, c := range cat.Categories {
		s.CategoryTiers[c.ID] = 1
	}
	s.Stats.GameStartTime = epochMillis(now)
	return s
}

// Reconcile rebuilds a state from a persisted blob, field by field, against the
// current catalog. Anything unrecognised falls back to its default. An
// unparsable blob yields the default state together with ErrCorruptSave.
func Reconcile(raw []byte, cat *Catalog, now time.Time) (*State, error) {
	def := DefaultState(cat, now)
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return def, ErrCorruptSave
	}

	s := def.Clone()
	s.Leads = num(m, "leads", def.Leads)
	s.Opportunities = num(m, "opportunities", def.Opportunities)
	s.Customers = count(m, "customers", def.Customers)
	s.Money = num(m, "money", def.Money)

	s.LeadsPerClick = num(m, "leadsPerClick", def.LeadsPerClick)
	s.OpportunitiesPerClick = num(m, "opportunitiesPerClick", def.OpportunitiesPerClick)
	s.LeadClickPercentBonus = num(m, "leadClickPercentBonus", def.LeadClickPercentBonus)
	s.OpportunityClickPercentBonus = num(m, "opportunityClickPercentBonus", def.OpportunityClickPercentBonus)
	s.ClickMultiplier = num(m, "clickMultiplier", def.ClickMultiplier)

	s.BuildingEfficiencyMultiplier = num(m, "buildingEfficiencyMultiplier", 1)
	s.LeadTeamMultiplier = num(m, "leadTeamMultiplier", 1)
	s.OppTeamMultiplier = num(m, "oppTeamMultiplier", 1)
	s.IntegratedMultiplier = num(m, "integratedMultiplier", 1)
	s.CustomerGlobalMultiplier = num(m, "customerGlobalMultiplier", 1)
	s.CVRMultiplierBonus = num(m, "cvrMultiplierBonus", 1)
	s.CVRCustomerMultiplier = num(m, "cvrCustomerMultiplier", 1)
	s.AcquisitionCostReduction = num(m, "acquisitionCostReduction", 1)
	s.OtherBuildingCostReduction = num(m, "otherBuildingCostReduction", 1)
	s.AccountManagerCostMultiplier = num(m, "accountManagerCostMultiplier", 1)
	s.ProcurementCostMultiplier = num(m, "procurementCostMultiplier", 1)

	s.BaseCAR = num(m, "baseCAR", def.BaseCAR)
	s.BaseCVR = num(m, "baseCVR", def.BaseCVR)
	s.AcquisitionSuccessChance = num(m, "acquisitionSuccessChance", def.AcquisitionSuccessChance)
	s.CustomerCountForCostIncrease = count(m, "customerCountForCostIncrease", 0)
	s.CustomerGrowthCARBonus = num(m, "customerGrowthCARBonus", 0)
	s.CustomerGrowthCVRBonus = num(m, "customerGrowthCVRBonus", 0)
	s.IsAcquisitionPaused = boolean(m, "isAcquisitionPaused", false)
	s.FlexibleWorkflowActive = boolean(m, "flexibleWorkflowActive", false)
	s.IsGameWon = boolean(m, "isGameWon", false)

	s.CurrentTrackIndex = int(count(m, "currentTrackIndex", 0))
	s.IsMuted = boolean(m, "isMuted", def.IsMuted)
	s.Volume = clamp(num(m, "volume", def.Volume), 0, 1)
	s.MusicShouldBePlaying = boolean(m, "musicShouldBePlaying", def.MusicShouldBePlaying)

	if raw, ok := m["buildings"].(map[string]any); ok {
		for id := range s.Buildings {
			if entry, ok := raw[id].(map[string]any); ok {
				s.Buildings[id] = BuildingState{Count: count(entry, "count", 0)}
			}
		}
	}
	if raw, ok := m["upgrades"].(map[string]any); ok {
		for id := range s.Upgrades {
			if entry, ok := raw[id].(map[string]any); ok {
				s.Upgrades[id] = UpgradeState{Purchased: boolean(entry, "purchased", false)}
			}
		}
	}
	// Persisted tier pointers are not trusted; they are derived from tier 1 purchases.
	syncCategoryTiers(s, cat)

	nowMS := epochMillis(now)
	if raw, ok := m["activeBoosts"].(map[string]any); ok {
		for id, v := range raw {
			entry, ok := v.(map[string]any)
			if !ok {
				continue
			}
			spec, known := cat.Powerup(id)
			end, ok := entry["endTime"].(float64)
			if !known || !ok || math.IsNaN(end) || math.IsInf(end, 0) || int64(end) <= nowMS {
				continue
			}
			s.ActiveBoosts[id] = ActiveBoost{
				EndTime:      int64(end),
				Magnitude:    num(entry, "magnitude", spec.Magnitude),
				Name:         str(entry, "name", spec.Name),
				Description:  str(entry, "description", spec.Description),
				ActivationID: str(entry, "activationId", ""),
			}
		}
	}

	if st, ok := m["stats"].(map[string]any); ok {
		s.Stats = Stats{
			TotalManualLeads:            num(st, "totalManualLeads", 0),
			TotalManualOpportunities:    num(st, "totalManualOpportunities", 0),
			TotalAutoLeads:              num(st, "totalAutoLeads", 0),
			TotalAutoOpportunities:      num(st, "totalAutoOpportunities", 0),
			LeadClicks:                  count(st, "leadClicks", 0),
			OpportunityClicks:           count(st, "opportunityClicks", 0),
			TotalAcquisitionAttempts:    count(st, "totalAcquisitionAttempts", 0),
			TotalSuccessfulAcquisitions: count(st, "totalSuccessfulAcquisitions", 0),
			TotalFailedAcquisitions:     count(st, "totalFailedAcquisitions", 0),
			TotalMoneyEarned:            num(st, "totalMoneyEarned", 0),
			PowerupsClicked:             count(st, "powerupsClicked", 0),
			GameStartTime:               count(st, "gameStartTime", 0),
		}
	}
	if s.Stats.GameStartTime <= 0 || s.Stats.GameStartTime > nowMS {
		s.Stats.GameStartTime = nowMS
	}

	clampState(s)
	return s, nil
}

// clampState re-establishes every scalar bound of State. Maps are left to the
// callers that know the catalog.
func clampState(s *State) {
	s.Leads = nonNegative(s.Leads)
	s.Opportunities = nonNegative(s.Opportunities)
	if s.Customers < 0 {
		s.Customers = 0
	}
	s.Money = nonNegative(s.Money)

	s.LeadsPerClick = nonNegative(s.LeadsPerClick)
	s.OpportunitiesPerClick = nonNegative(s.OpportunitiesPerClick)
	s.LeadClickPercentBonus = nonNegative(s.LeadClickPercentBonus)
	s.OpportunityClickPercentBonus = nonNegative(s.OpportunityClickPercentBonus)
	s.ClickMultiplier = floorOne(s.ClickMultiplier)

	s.BuildingEfficiencyMultiplier = floorOne(s.BuildingEfficiencyMultiplier)
	s.LeadTeamMultiplier = floorOne(s.LeadTeamMultiplier)
	s.OppTeamMultiplier = floorOne(s.OppTeamMultiplier)
	s.IntegratedMultiplier = floorOne(s.IntegratedMultiplier)
	s.CustomerGlobalMultiplier = floorOne(s.CustomerGlobalMultiplier)
	s.CVRMultiplierBonus = floorOne(s.CVRMultiplierBonus)
	s.CVRCustomerMultiplier = floorOne(s.CVRCustomerMultiplier)
	s.AcquisitionCostReduction = reductionFactor(s.AcquisitionCostReduction)
	s.OtherBuildingCostReduction = reductionFactor(s.OtherBuildingCostReduction)
	s.AccountManagerCostMultiplier = reductionFactor(s.AccountManagerCostMultiplier)
	s.ProcurementCostMultiplier = reductionFactor(s.ProcurementCostMultiplier)

	s.BaseCAR = clamp(s.BaseCAR, 0, MaxCAR)
	s.BaseCVR = nonNegative(s.BaseCVR)
	s.AcquisitionSuccessChance = clamp(s.AcquisitionSuccessChance, 0, 1)
	if s.CustomerCountForCostIncrease < 0 {
		s.CustomerCountForCostIncrease = 0
	}
	s.CustomerGrowthCARBonus = clamp(s.CustomerGrowthCARBonus, 0, MaxCAR)
	s.CustomerGrowthCVRBonus = nonNegative(s.CustomerGrowthCVRBonus)
	if s.CurrentTrackIndex < 0 {
		s.CurrentTrackIndex = 0
	}
}

// syncCategoryTiers points each category at tier 2 exactly when its tier 1 is complete.
func syncCategoryTiers(s *State, cat *Catalog) {
	for _, c := range cat.Categories {
		tier := 2
		for _, u := range c.Tier1 {
			if !s.purchased(u.ID) {
				tier = 1
				break
			}
		}
		s.CategoryTiers[c.ID] = tier
	}
}

func num(m map[string]any, key string, fallback float64) float64 {
	v, ok := m[key].(float64)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

func count(m map[string]any, key string, fallback int64) int64 {
	v, ok := m[key].(float64)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fallback
	}
	if v > math.MaxInt64/2 {
		return math.MaxInt64 / 2
	}
	return int64(math.Floor(v))
}

func boolean(m map[string]any, key string, fallback bool) bool {
	v, ok := m[key].(bool)
	if !ok {
		return fallback
	}
	return v
}

func str(m map[string]any, key, fallback string) string {
	v, ok := m[key].(string)
	if !ok {
		return fallback
	}
	return v
}
