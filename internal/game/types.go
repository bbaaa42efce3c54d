package game

// Snapshot is a consistent read of the game taken under the lock.
type Snapshot struct {
	State   *State           `json:"state"`
	Rates   Rates            `json:"rates"`
	Paused  bool             `json:"paused"`
	Pending []PendingPowerup `json:"pending"`
}

type BuildingView struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Group          BuildingGroup `json:"group"`
	Currency       Currency      `json:"currency"`
	Count          int64         `json:"count"`
	Cost           Cost          `json:"cost"`
	BulkCost       Cost          `json:"bulkCost"`
	Affordable     bool          `json:"affordable"`
	BulkAffordable bool          `json:"bulkAffordable"`
}

type UpgradeView struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Category    string      `json:"category,omitempty"`
	Tier        int         `json:"tier,omitempty"`
	Purchased   bool        `json:"purchased"`
	Unlocked    bool        `json:"unlocked"`
	Affordable  bool        `json:"affordable"`
	Cost        UpgradeCost `json:"cost"`
}

type PowerupView struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Category    BoostCategory `json:"category"`
	Magnitude   float64       `json:"magnitude"`
	DurationMS  int64         `json:"durationMs"`
	Description string        `json:"description"`
	Active      bool          `json:"active"`
	EndTime     int64         `json:"endTime,omitempty"`
	RemainingMS int64         `json:"remainingMs,omitempty"`
	Pending     bool          `json:"pending"`
}

// PendingPowerup is a spawned power-up waiting to be clicked.
type PendingPowerup struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ExpiresAt int64  `json:"expiresAt"`
}

type BuyResult struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
	Spent    Cost   `json:"spent"`
	Count    int64  `json:"count"`
}

type ClickResult struct {
	Resource string  `json:"resource"`
	Clicks   int     `json:"clicks"`
	Gained   float64 `json:"gained"`
	Total    float64 `json:"total"`
}

// TickReport describes what one Tick changed.
type TickReport struct {
	Skipped bool `json:"skipped"`

	LeadsProduced         float64 `json:"leadsProduced"`
	OpportunitiesProduced float64 `json:"opportunitiesProduced"`
	MoneyEarned           float64 `json:"moneyEarned"`

	Attempts  int64 `json:"attempts"`
	Successes int64 `json:"successes"`
	Failures  int64 `json:"failures"`

	ExpiredBoosts           []string `json:"expiredBoosts,omitempty"`
	FlexibleWorkflowCleared bool     `json:"flexibleWorkflowCleared"`
	Won                     bool     `json:"won"`
}

// LoadResult tells the caller what Load found in the store.
type LoadResult struct {
	Found      bool     `json:"found"`
	Corrupt    bool     `json:"corrupt"`
	DroppedIDs []string `json:"droppedIds,omitempty"`
}
