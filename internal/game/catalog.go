package game

import (
	_ "embed"
	"fmt"
	"math"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

type BuildingGroup string

const (
	GroupLeadTeam        BuildingGroup = "leadTeam"
	GroupOppTeam         BuildingGroup = "oppTeam"
	GroupIntegrated      BuildingGroup = "integrated"
	GroupCustomerSuccess BuildingGroup = "customerSuccess"
)

type Currency string

const (
	CurrencyLeads         Currency = "leads"
	CurrencyOpportunities Currency = "opportunities"
	CurrencyMoney         Currency = "money"
	CurrencyBoth          Currency = "both"
)

type CostMode string

const (
	CostStandard       CostMode = "standard"
	CostRequirement    CostMode = "requirement"
	CostAll            CostMode = "all"
	CostMoneyCustomers CostMode = "moneyCustomers"
)

type EffectKind string

const (
	EffectFlat             EffectKind = "flat"
	EffectPercent          EffectKind = "percent"
	EffectMultiplier       EffectKind = "multiplier"
	EffectTeamSynergy      EffectKind = "teamSynergy"
	EffectPlaytimeBonus    EffectKind = "playtimeBonus"
	EffectFlexibleWorkflow EffectKind = "flexibleWorkflow"
	EffectState            EffectKind = "state"
)

// Effect kinds carried by non-producing buildings.
const (
	BuildingEffectAcquisitionCost = "acquisitionCostReduction"
	BuildingEffectBuildingCost    = "buildingCostReduction"
	BuildingEffectCVRBonus        = "cvrBonus"
	BuildingEffectCVRMultiplier   = "cvrMultiplier"
)

type BoostCategory string

const (
	BoostProduction BoostCategory = "prod"
	BoostClicks     BoostCategory = "clicks"
	BoostMoney      BoostCategory = "mps"
	BoostCVR        BoostCategory = "cvr"
)

type Cost struct {
	Leads         float64 `yaml:"leads" json:"leads,omitempty"`
	Opportunities float64 `yaml:"opportunities" json:"opportunities,omitempty"`
	Money         float64 `yaml:"money" json:"money,omitempty"`
	Customers     int64   `yaml:"customers" json:"customers,omitempty"`
}

type BuildingEffect struct {
	Kind    string  `yaml:"kind" json:"kind"`
	PerUnit float64 `yaml:"perUnit" json:"per_unit"`
}

type BuildingSpec struct {
	ID             string          `yaml:"id"`
	Name           string          `yaml:"name"`
	Group          BuildingGroup   `yaml:"group"`
	Currency       Currency        `yaml:"currency"`
	BaseCost       Cost            `yaml:"baseCost"`
	BaseLPS        float64         `yaml:"baseLps"`
	BaseOPS        float64         `yaml:"baseOps"`
	CostMultiplier float64         `yaml:"costMultiplier"`
	Effect         *BuildingEffect `yaml:"effect"`
}

func (b BuildingSpec) Producing() bool {
	return b.BaseLPS > 0 || b.BaseOPS > 0
}

func (b BuildingSpec) growth() float64 {
	if b.CostMultiplier > 0 {
		return b.CostMultiplier
	}
	return DefaultCostMultiplier
}

type Effect struct {
	Kind   EffectKind    `yaml:"kind"`
	Target string        `yaml:"target"`
	Group  BuildingGroup `yaml:"group"`
	Field  string        `yaml:"field"`
	Op     string        `yaml:"op"`
	Amount float64       `yaml:"amount"`
}

type UpgradeSpec struct {
	ID                string   `yaml:"id"`
	Name              string   `yaml:"name"`
	Description       string   `yaml:"description"`
	CostMode          CostMode `yaml:"costMode"`
	Cost              Cost     `yaml:"cost"`
	RequiresCustomers int64    `yaml:"requiresCustomers"`
	Effects           []Effect `yaml:"effects"`

	// Category is empty for special upgrades; Tier is 0 for them.
	Category string `yaml:"-"`
	Tier     int    `yaml:"-"`
}

func (u UpgradeSpec) hasEffect(kind EffectKind) bool {
	for _, e := range u.Effects {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

type UpgradeCategory struct {
	ID    string        `yaml:"id"`
	Name  string        `yaml:"name"`
	Tier1 []UpgradeSpec `yaml:"tier1"`
	Tier2 []UpgradeSpec `yaml:"tier2"`
}

type PowerupSpec struct {
	ID          string        `yaml:"id"`
	Name        string        `yaml:"name"`
	DurationMS  int64         `yaml:"durationMs"`
	Magnitude   float64       `yaml:"magnitude"`
	Category    BoostCategory `yaml:"category"`
	Description string        `yaml:"description"`
}

// Catalog is immutable after LoadCatalog returns.
type Catalog struct {
	Buildings  []BuildingSpec    `yaml:"buildings"`
	Categories []UpgradeCategory `yaml:"categories"`
	Special    []UpgradeSpec     `yaml:"special"`
	Powerups   []PowerupSpec     `yaml:"powerups"`

	buildings  map[string]*BuildingSpec
	upgrades   map[string]*UpgradeSpec
	categories map[string]*UpgradeCategory
	powerups   map[string]*PowerupSpec
	upgradeIDs []string
}

var defaultCatalog = sync.OnceValue(func() *Catalog {
	cat, err := LoadCatalog(catalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return cat
})

// DefaultCatalog returns the catalog embedded in the binary.
func DefaultCatalog() *Catalog {
	return defaultCatalog()
}

func LoadCatalog(raw []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(raw, &cat); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := cat.index(); err != nil {
		return nil, err
	}
	return &cat, nil
}

func (c *Catalog) index() error {
	c.buildings = make(map[string]*BuildingSpec, len(c.Buildings))
	c.upgrades = make(map[string]*UpgradeSpec)
	c.categories = make(map[string]*UpgradeCategory, len(c.Categories))
	c.powerups = make(map[string]*PowerupSpec, len(c.Powerups))

	for i := range c.Buildings {
		b := &c.Buildings[i]
		if b.ID == "" {
			return fmt.Errorf("building #%d has no id", i)
		}
		if _, dup := c.buildings[b.ID]; dup {
			return fmt.Errorf("duplicate building id %q", b.ID)
		}
		switch b.Currency {
		case CurrencyLeads, CurrencyOpportunities, CurrencyMoney, CurrencyBoth:
		default:
			return fmt.Errorf("building %q: unknown currency %q", b.ID, b.Currency)
		}
		if !b.Producing() && b.Effect == nil {
			return fmt.Errorf("building %q neither produces nor has an effect", b.ID)
		}
		if e := b.Effect; e != nil {
			switch e.Kind {
			case BuildingEffectAcquisitionCost, BuildingEffectBuildingCost, BuildingEffectCVRBonus, BuildingEffectCVRMultiplier:
			default:
				return fmt.Errorf("building %q: unknown effect kind %q", b.ID, e.Kind)
			}
			if !(e.PerUnit > 0) || math.IsInf(e.PerUnit, 0) {
				return fmt.Errorf("building %q: effect perUnit must be positive", b.ID)
			}
		}
		c.buildings[b.ID] = b
	}

	addUpgrade := func(u *UpgradeSpec, category string, tier int) error {
		if u.ID == "" {
			return fmt.Errorf("upgrade in %q has no id", category)
		}
		if _, dup := c.upgrades[u.ID]; dup {
			return fmt.Errorf("duplicate upgrade id %q", u.ID)
		}
		if u.CostMode == "" {
			u.CostMode = CostStandard
		}
		u.Category = category
		u.Tier = tier
		for _, e := range u.Effects {
			if err := c.validateEffect(u.ID, e); err != nil {
				return err
			}
		}
		c.upgrades[u.ID] = u
		c.upgradeIDs = append(c.upgradeIDs, u.ID)
		return nil
	}

	for i := range c.Categories {
		cat := &c.Categories[i]
		if _, dup := c.categories[cat.ID]; dup {
			return fmt.Errorf("duplicate category id %q", cat.ID)
		}
		if len(cat.Tier1) == 0 {
			return fmt.Errorf("category %q has an empty tier1", cat.ID)
		}
		c.categories[cat.ID] = cat
		for j := range cat.Tier1 {
			if err := addUpgrade(&cat.Tier1[j], cat.ID, 1); err != nil {
				return err
			}
		}
		for j := range cat.Tier2 {
			if err := addUpgrade(&cat.Tier2[j], cat.ID, 2); err != nil {
				return err
			}
		}
	}
	for i := range c.Special {
		if err := addUpgrade(&c.Special[i], "", 0); err != nil {
			return err
		}
	}

	for i := range c.Powerups {
		p := &c.Powerups[i]
		if _, dup := c.powerups[p.ID]; dup {
			return fmt.Errorf("duplicate power-up id %q", p.ID)
		}
		if p.DurationMS <= 0 {
			return fmt.Errorf("power-up %q: duration must be > 0", p.ID)
		}
		c.powerups[p.ID] = p
	}
	return nil
}

func (c *Catalog) validateEffect(upgradeID string, e Effect) error {
	switch e.Kind {
	case EffectFlat, EffectPercent, EffectMultiplier:
		if _, ok := c.buildings[e.Target]; !ok {
			return fmt.Errorf("upgrade %q targets unknown building %q", upgradeID, e.Target)
		}
	case EffectTeamSynergy:
		if e.Group != GroupLeadTeam && e.Group != GroupOppTeam {
			return fmt.Errorf("upgrade %q: synergy group %q not supported", upgradeID, e.Group)
		}
	case EffectState:
		if _, ok := stateFields[e.Field]; !ok {
			return fmt.Errorf("upgrade %q: unknown state field %q", upgradeID, e.Field)
		}
		switch e.Op {
		case "add", "multiply", "set":
		default:
			return fmt.Errorf("upgrade %q: unknown op %q", upgradeID, e.Op)
		}
	case EffectPlaytimeBonus, EffectFlexibleWorkflow:
	default:
		return fmt.Errorf("upgrade %q: unknown effect kind %q", upgradeID, e.Kind)
	}
	return nil
}

func (c *Catalog) Building(id string) (*BuildingSpec, bool) {
	b, ok := c.buildings[id]
	return b, ok
}

func (c *Catalog) Upgrade(id string) (*UpgradeSpec, bool) {
	u, ok := c.upgrades[id]
	return u, ok
}

func (c *Catalog) Category(id string) (*UpgradeCategory, bool) {
	cat, ok := c.categories[id]
	return cat, ok
}

func (c *Catalog) Powerup(id string) (*PowerupSpec, bool) {
	p, ok := c.powerups[id]
	return p, ok
}

// UpgradeIDs lists every upgrade in catalog order: categories tier by tier, then specials.
func (c *Catalog) UpgradeIDs() []string {
	out := make([]string, len(c.upgradeIDs))
	copy(out, c.upgradeIDs)
	return out
}

// tierZero returns the first building of a team group, which drives team synergy.
func (c *Catalog) tierZero(group BuildingGroup) (*BuildingSpec, bool) {
	for i := range c.Buildings {
		if c.Buildings[i].Group == group {
			return &c.Buildings[i], true
		}
	}
	return nil, false
}
