package game

type BuildingState struct {
	Count int64 `json:"count"`
}

type UpgradeState struct {
	Purchased bool `json:"purchased"`
}

type ActiveBoost struct {
	EndTime      int64   `json:"endTime"`
	Magnitude    float64 `json:"magnitude"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	ActivationID string  `json:"activationId,omitempty"`
}

// Stats are lifetime counters for display; nothing reads them back into the simulation.
type Stats struct {
	TotalManualLeads            float64 `json:"totalManualLeads"`
	TotalManualOpportunities    float64 `json:"totalManualOpportunities"`
	TotalAutoLeads              float64 `json:"totalAutoLeads"`
	TotalAutoOpportunities      float64 `json:"totalAutoOpportunities"`
	LeadClicks                  int64   `json:"leadClicks"`
	OpportunityClicks           int64   `json:"opportunityClicks"`
	TotalAcquisitionAttempts    int64   `json:"totalAcquisitionAttempts"`
	TotalSuccessfulAcquisitions int64   `json:"totalSuccessfulAcquisitions"`
	TotalFailedAcquisitions     int64   `json:"totalFailedAcquisitions"`
	TotalMoneyEarned            float64 `json:"totalMoneyEarned"`
	PowerupsClicked             int64   `json:"powerupsClicked"`
	GameStartTime               int64   `json:"gameStartTime"`
}

type State struct {
	Leads         float64 `json:"leads"`
	Opportunities float64 `json:"opportunities"`
	Customers     int64   `json:"customers"`
	Money         float64 `json:"money"`

	LeadsPerClick                float64 `json:"leadsPerClick"`
	OpportunitiesPerClick        float64 `json:"opportunitiesPerClick"`
	LeadClickPercentBonus        float64 `json:"leadClickPercentBonus"`
	OpportunityClickPercentBonus float64 `json:"opportunityClickPercentBonus"`
	ClickMultiplier              float64 `json:"clickMultiplier"`

	Buildings     map[string]BuildingState `json:"buildings"`
	Upgrades      map[string]UpgradeState  `json:"upgrades"`
	CategoryTiers map[string]int           `json:"categoryTiers"`

	BuildingEfficiencyMultiplier float64 `json:"buildingEfficiencyMultiplier"`
	LeadTeamMultiplier           float64 `json:"leadTeamMultiplier"`
	OppTeamMultiplier            float64 `json:"oppTeamMultiplier"`
	IntegratedMultiplier         float64 `json:"integratedMultiplier"`
	CustomerGlobalMultiplier     float64 `json:"customerGlobalMultiplier"`
	CVRMultiplierBonus           float64 `json:"cvrMultiplierBonus"`
	CVRCustomerMultiplier        float64 `json:"cvrCustomerMultiplier"`
	AcquisitionCostReduction     float64 `json:"acquisitionCostReduction"`
	OtherBuildingCostReduction   float64 `json:"otherBuildingCostReduction"`

	// Written by Recompute from building counts.
	AccountManagerCostMultiplier float64 `json:"accountManagerCostMultiplier"`
	ProcurementCostMultiplier    float64 `json:"procurementCostMultiplier"`

	BaseCAR                      float64 `json:"baseCAR"`
	BaseCVR                      float64 `json:"baseCVR"`
	AcquisitionSuccessChance     float64 `json:"acquisitionSuccessChance"`
	CustomerCountForCostIncrease int64   `json:"customerCountForCostIncrease"`
	CustomerGrowthCARBonus       float64 `json:"customerGrowthCARBonus"`
	CustomerGrowthCVRBonus       float64 `json:"customerGrowthCVRBonus"`
	IsAcquisitionPaused          bool    `json:"isAcquisitionPaused"`

	FlexibleWorkflowActive bool `json:"flexibleWorkflowActive"`

	ActiveBoosts map[string]ActiveBoost `json:"activeBoosts"`

	Stats     Stats `json:"stats"`
	IsGameWon bool  `json:"isGameWon"`

	CurrentTrackIndex    int     `json:"currentTrackIndex"`
	IsMuted              bool    `json:"isMuted"`
	Volume               float64 `json:"volume"`
	MusicShouldBePlaying bool    `json:"musicShouldBePlaying"`
}

// Clone returns a deep copy safe to hand to readers outside the game lock.
func (s *State) Clone() *State {
	out := *s
	out.Buildings = make(map[string]BuildingState, len(s.Buildings))
	for k, v := range s.Buildings {
		out.Buildings[k] = v
	}
	out.Upgrades = make(map[string]UpgradeState, len(s.Upgrades))
	for k, v := range s.Upgrades {
		out.Upgrades[k] = v
	}
	out.CategoryTiers = make(map[string]int, len(s.CategoryTiers))
	for k, v := range s.CategoryTiers {
		out.CategoryTiers[k] = v
	}
	out.ActiveBoosts = make(map[string]ActiveBoost, len(s.ActiveBoosts))
	for k, v := range s.ActiveBoosts {
		out.ActiveBoosts[k] = v
	}
	return &out
}

func (s *State) count(id string) int64 {
	return s.Buildings[id].Count
}

func (s *State) purchased(id string) bool {
	return s.Upgrades[id].Purchased
}

func (s *State) boost(id string, nowMS int64) (ActiveBoost, bool) {
	b, ok := s.ActiveBoosts[id]
	if !ok || b.EndTime <= nowMS {
		return ActiveBoost{}, false
	}
	return b, true
}

// stateFields maps the field names used by "state" upgrade effects onto State.
var stateFields = map[string]func(*State) *float64{
	"baseCAR":                      func(s *State) *float64 { return &s.BaseCAR },
	"baseCVR":                      func(s *State) *float64 { return &s.BaseCVR },
	"acquisitionSuccessChance":     func(s *State) *float64 { return &s.AcquisitionSuccessChance },
	"customerGrowthCARBonus":       func(s *State) *float64 { return &s.CustomerGrowthCARBonus },
	"customerGrowthCVRBonus":       func(s *State) *float64 { return &s.CustomerGrowthCVRBonus },
	"cvrMultiplierBonus":           func(s *State) *float64 { return &s.CVRMultiplierBonus },
	"cvrCustomerMultiplier":        func(s *State) *float64 { return &s.CVRCustomerMultiplier },
	"buildingEfficiencyMultiplier": func(s *State) *float64 { return &s.BuildingEfficiencyMultiplier },
	"leadTeamMultiplier":           func(s *State) *float64 { return &s.LeadTeamMultiplier },
	"oppTeamMultiplier":            func(s *State) *float64 { return &s.OppTeamMultiplier },
	"integratedMultiplier":         func(s *State) *float64 { return &s.IntegratedMultiplier },
	"customerGlobalMultiplier":     func(s *State) *float64 { return &s.CustomerGlobalMultiplier },
	"acquisitionCostReduction":     func(s *State) *float64 { return &s.AcquisitionCostReduction },
	"otherBuildingCostReduction":   func(s *State) *float64 { return &s.OtherBuildingCostReduction },
	"clickMultiplier":              func(s *State) *float64 { return &s.ClickMultiplier },
	"leadsPerClick":                func(s *State) *float64 { return &s.LeadsPerClick },
	"opportunitiesPerClick":        func(s *State) *float64 { return &s.OpportunitiesPerClick },
	"leadClickPercentBonus":        func(s *State) *float64 { return &s.LeadClickPercentBonus },
	"opportunityClickPercentBonus": func(s *State) *float64 { return &s.OpportunityClickPercentBonus },
}

// applyStateEffect runs one imperative upgrade effect and re-establishes field bounds.
func applyStateEffect(s *State, e Effect) {
	field, ok := stateFields[e.Field]
	if !ok {
		return
	}
	p := field(s)
	switch e.Op {
	case "add":
		*p += e.Amount
	case "multiply":
		*p *= e.Amount
	case "set":
		*p = e.Amount
	}
	clampState(s)
}
