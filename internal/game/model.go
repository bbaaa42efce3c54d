package game

import (
	"errors"
	"math"
	"time"
)

const (
	SaveKey = "leadrushSave_v3"

	DefaultTickInterval = 100 * time.Millisecond

	DefaultCostMultiplier = 1.10

	LeadsPerCustomerBase      = 100.0
	AcquisitionCostGrowth     = 1.01
	DefaultBaseCAR            = 0.1
	DefaultBaseCVR            = 1.0
	DefaultAcquisitionChance  = 0.25
	WinMoneyThreshold         = 1_000_000_000.0
	FlexibleWorkflowThreshold = 10.0
	FlexibleWorkflowTransfer  = 0.5

	// MaxCAR bounds the acquisition rate in attempts per second.
	MaxCAR             = 1000.0
	// MaxAttemptsPerTick bounds the acquisition loop and the carried attempts.
	MaxAttemptsPerTick = 1000

	BulkBuyQuantity = 10

	// MinCostReduction bounds stacked cost reductions so costs never reach zero.
	MinCostReduction = 0.01

	CustomerSuccessUnitReduction = 0.95
	ArchitectBonusPerBlock       = 0.05
	ArchitectBlockSize           = 10
	TeamSynergyBlockSize         = 10
	TeamSynergyBonusPerBlock     = 0.01

	PlaytimeBonusMaxMultiplier = 2.0
	PlaytimeBonusRampHours     = 24.0

	DefaultSpawnChance     = 0.3
	DefaultSpawnInterval   = 20 * time.Second
	PendingPowerupLifetime = 10 * time.Second
)

var (
	ErrUnknownBuilding   = errors.New("unknown building")
	ErrUnknownUpgrade    = errors.New("unknown upgrade")
	ErrUnknownPowerup    = errors.New("unknown power-up")
	ErrInsufficientFunds = errors.New("insufficient resources")
	ErrAlreadyPurchased  = errors.New("upgrade already purchased")
	ErrTierLocked        = errors.New("upgrade tier locked: finish tier 1 first")
	ErrFeatureLocked     = errors.New("feature locked: required upgrade not purchased")
	ErrGameWon           = errors.New("game already won")
	ErrPaused            = errors.New("game paused")
	ErrNoPendingPowerup  = errors.New("no pending power-up with that id")
	ErrCorruptSave       = errors.New("saved game could not be parsed; started fresh")
)

// finite returns v, or 0 when v is NaN or infinite.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// nonNegative clamps v to a finite value >= 0.
func nonNegative(v float64) float64 {
	v = finite(v)
	if v < 0 {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	v = finite(v)
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// floorOne keeps multipliers whose neutral value is 1.0 from dropping below it.
func floorOne(v float64) float64 {
	v = finite(v)
	if v < 1 {
		return 1
	}
	return v
}

// reductionFactor keeps cost-reduction multipliers inside [MinCostReduction, 1].
// Non-positive values are treated as corrupt and reset to 1.
func reductionFactor(v float64) float64 {
	v = finite(v)
	if v <= 0 || v > 1 {
		return 1
	}
	return math.Max(MinCostReduction, v)
}

// scaledCost is ceil(base × growth^n × reduction), capped to a finite value.
func scaledCost(base, growth float64, n int64, reduction float64) float64 {
	if base <= 0 {
		return 0
	}
	v := math.Ceil(base * math.Pow(growth, float64(n)) * reduction)
	if math.IsNaN(v) || math.IsInf(v, 0) || v > math.MaxFloat64/2 {
		return math.MaxFloat64 / 2
	}
	return v
}

func epochMillis(t time.Time) int64 {
	return t.UnixMilli()
}
