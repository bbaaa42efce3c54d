package game

import (
	"fmt"
	"math"
)

// UpgradeCost carries whichever of its fields apply to the upgrade's cost mode.
type UpgradeCost struct {
	Mode              CostMode `json:"mode"`
	Leads             float64  `json:"leads,omitempty"`
	Opportunities     float64  `json:"opps,omitempty"`
	Money             float64  `json:"money,omitempty"`
	Customers         int64    `json:"customers,omitempty"`
	RequiresCustomers int64    `json:"requiresCustomers,omitempty"`
}

// buildingUnitCost prices the unit bought when count units are already owned.
func buildingUnitCost(s *State, b *BuildingSpec, count int64) Cost {
	reduction := 1.0
	if b.Effect == nil || b.Effect.Kind != BuildingEffectBuildingCost {
		reduction = reductionFactor(s.OtherBuildingCostReduction) * reductionFactor(s.ProcurementCostMultiplier)
	}
	g := b.growth()
	var c Cost
	switch b.Currency {
	case CurrencyLeads:
		c.Leads = scaledCost(b.BaseCost.Leads, g, count, reduction)
	case CurrencyOpportunities:
		c.Opportunities = scaledCost(b.BaseCost.Opportunities, g, count, reduction)
	case CurrencyMoney:
		c.Money = scaledCost(b.BaseCost.Money, g, count, reduction)
	case CurrencyBoth:
		c.Leads = scaledCost(b.BaseCost.Leads, g, count, reduction)
		c.Opportunities = scaledCost(b.BaseCost.Opportunities, g, count, reduction)
	}
	return c
}

// BuildingCost is the price of the next single unit of building id.
func BuildingCost(s *State, cat *Catalog, id string) (Cost, error) {
	b, ok := cat.Building(id)
	if !ok {
		return Cost{}, fmt.Errorf("%w: %s", ErrUnknownBuilding, id)
	}
	return buildingUnitCost(s, b, s.count(id)), nil
}

// CumulativeBuildingCost sums the per-unit prices of the next n units. Each
// unit is reduced and rounded before summing.
func CumulativeBuildingCost(s *State, cat *Catalog, id string, n int) (Cost, error) {
	b, ok := cat.Building(id)
	if !ok {
		return Cost{}, fmt.Errorf("%w: %s", ErrUnknownBuilding, id)
	}
	var total Cost
	owned := s.count(id)
	for i := int64(0); i < int64(n); i++ {
		c := buildingUnitCost(s, b, owned+i)
		total.Leads = capSum(total.Leads, c.Leads)
		total.Opportunities = capSum(total.Opportunities, c.Opportunities)
		total.Money = capSum(total.Money, c.Money)
	}
	return total, nil
}

func capSum(a, b float64) float64 {
	v := a + b
	if math.IsInf(v, 0) || v > math.MaxFloat64/2 {
		return math.MaxFloat64 / 2
	}
	return v
}

func canAfford(s *State, c Cost) bool {
	return s.Leads >= c.Leads &&
		s.Opportunities >= c.Opportunities &&
		s.Money >= c.Money &&
		s.Customers >= c.Customers
}

func spend(s *State, c Cost) {
	s.Leads = nonNegative(s.Leads - c.Leads)
	s.Opportunities = nonNegative(s.Opportunities - c.Opportunities)
	s.Money = nonNegative(s.Money - c.Money)
	s.Customers -= c.Customers
	if s.Customers < 0 {
		s.Customers = 0
	}
}

// buyBuilding buys quantity units of id or nothing at all.
func buyBuilding(s *State, cat *Catalog, id string, quantity int) (Cost, error) {
	if quantity < 1 {
		return Cost{}, fmt.Errorf("quantity must be >= 1")
	}
	total, err := CumulativeBuildingCost(s, cat, id, quantity)
	if err != nil {
		return Cost{}, err
	}
	if !canAfford(s, total) {
		return total, ErrInsufficientFunds
	}
	spend(s, total)
	s.Buildings[id] = BuildingState{Count: s.count(id) + int64(quantity)}
	return total, nil
}

// GetUpgradeCost resolves the upgrade's cost mode into an UpgradeCost.
func GetUpgradeCost(cat *Catalog, id string) (UpgradeCost, error) {
	u, ok := cat.Upgrade(id)
	if !ok {
		return UpgradeCost{}, fmt.Errorf("%w: %s", ErrUnknownUpgrade, id)
	}
	return upgradeCost(u), nil
}

func upgradeCost(u *UpgradeSpec) UpgradeCost {
	out := UpgradeCost{Mode: u.CostMode}
	switch u.CostMode {
	case CostRequirement:
		out.RequiresCustomers = u.RequiresCustomers
	case CostAll:
		out.Leads, out.Opportunities, out.Money = u.Cost.Leads, u.Cost.Opportunities, u.Cost.Money
	case CostMoneyCustomers:
		out.Money, out.Customers = u.Cost.Money, u.Cost.Customers
	default:
		out.Leads, out.Opportunities, out.Money = u.Cost.Leads, u.Cost.Opportunities, u.Cost.Money
	}
	return out
}

// upgradeUnlocked reports whether u's tier is open in its category.
func upgradeUnlocked(s *State, cat *Catalog, u *UpgradeSpec) bool {
	if u.Tier != 2 {
		return true
	}
	c, ok := cat.Category(u.Category)
	if !ok {
		return false
	}
	for _, t1 := range c.Tier1 {
		if !s.purchased(t1.ID) {
			return false
		}
	}
	return s.CategoryTiers[u.Category] == 2
}

func upgradeAffordable(s *State, c UpgradeCost) bool {
	switch c.Mode {
	case CostRequirement:
		return s.Customers >= c.RequiresCustomers
	case CostAll:
		return s.Leads >= c.Leads && s.Opportunities >= c.Opportunities && s.Money >= c.Money
	case CostMoneyCustomers:
		return s.Money >= c.Money && s.Customers >= c.Customers
	default:
		return canAfford(s, Cost{Leads: c.Leads, Opportunities: c.Opportunities, Money: c.Money})
	}
}

// buyUpgrade marks id purchased, runs its imperative effects and advances the
// category tier once tier 1 is complete.
func buyUpgrade(s *State, cat *Catalog, id string) error {
	u, ok := cat.Upgrade(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownUpgrade, id)
	}
	if s.purchased(id) {
		return ErrAlreadyPurchased
	}
	if !upgradeUnlocked(s, cat, u) {
		return ErrTierLocked
	}
	c := upgradeCost(u)
	if !upgradeAffordable(s, c) {
		return ErrInsufficientFunds
	}
	switch c.Mode {
	case CostRequirement:
	case CostMoneyCustomers:
		spend(s, Cost{Money: c.Money, Customers: c.Customers})
	default:
		spend(s, Cost{Leads: c.Leads, Opportunities: c.Opportunities, Money: c.Money})
	}
	s.Upgrades[id] = UpgradeState{Purchased: true}
	for _, e := range u.Effects {
		if e.Kind == EffectState {
			applyStateEffect(s, e)
		}
	}
	if u.Category != "" {
		syncCategoryTiers(s, cat)
	}
	return nil
}

// flexibleWorkflowUnlocked reports whether any purchased upgrade unlocks the toggle.
func flexibleWorkflowUnlocked(s *State, cat *Catalog) bool {
	for _, id := range cat.upgradeIDs {
		if s.purchased(id) && cat.upgrades[id].hasEffect(EffectFlexibleWorkflow) {
			return true
		}
	}
	return false
}

// clickAmount is what one manual click yields given the matching per-second rate.
func clickAmount(perClick, percentBonus, rate, clickMultiplier, boost float64) float64 {
	return nonNegative((perClick + percentBonus*rate) * clickMultiplier * boost)
}
