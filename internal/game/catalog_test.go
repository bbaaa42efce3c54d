package game

import (
	"strings"
	"testing"
)

func TestDefaultCatalogLoads(t *testing.T) {
	cat := DefaultCatalog()
	if len(cat.Buildings) != 15 {
		t.Fatalf("buildings got=%d want=15", len(cat.Buildings))
	}
	for _, id := range []string{"prodBoost", "clickBoost", "moneyBoost", "cvrBoost"} {
		if _, ok := cat.Powerup(id); !ok {
			t.Fatalf("missing power-up %q", id)
		}
	}
	cvr, _ := cat.Powerup("cvrBoost")
	if cvr.Magnitude != 5 {
		t.Fatalf("cvrBoost magnitude got=%v want=5", cvr.Magnitude)
	}

	u, ok := cat.Upgrade("sdrSynergy")
	if !ok || u.Category != "leadGeneration" || u.Tier != 2 {
		t.Fatalf("sdrSynergy indexed as %+v", u)
	}
	s, ok := cat.Upgrade("flexibleWorkflow")
	if !ok || s.Category != "" || s.Tier != 0 {
		t.Fatalf("flexibleWorkflow indexed as %+v", s)
	}
	if len(cat.UpgradeIDs()) == 0 {
		t.Fatalf("expected upgrade ids")
	}
}

func TestLoadCatalogRejectsBadContent(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "duplicate building",
			raw: `
buildings:
  - {id: a, currency: leads, baseCost: {leads: 1}, baseLps: 1}
  - {id: a, currency: leads, baseCost: {leads: 1}, baseLps: 1}
`,
			want: "duplicate building",
		},
		{
			name: "unknown currency",
			raw: `
buildings:
  - {id: a, currency: gold, baseCost: {leads: 1}, baseLps: 1}
`,
			want: "unknown currency",
		},
		{
			name: "unknown building effect",
			raw: `
buildings:
  - {id: a, currency: leads, baseCost: {leads: 1}, effect: {kind: cvrMultipler, perUnit: 1.05}}
`,
			want: "unknown effect kind",
		},
		{
			name: "non-positive building effect",
			raw: `
buildings:
  - {id: a, currency: leads, baseCost: {leads: 1}, effect: {kind: cvrMultiplier, perUnit: 0}}
`,
			want: "perUnit must be positive",
		},
		{
			name: "unknown target",
			raw: `
buildings:
  - {id: a, currency: leads, baseCost: {leads: 1}, baseLps: 1}
categories:
  - id: c
    tier1:
      - {id: u, cost: {leads: 1}, effects: [{kind: flat, target: nope, amount: 1}]}
`,
			want: "unknown building",
		},
		{
			name: "unknown state field",
			raw: `
buildings:
  - {id: a, currency: leads, baseCost: {leads: 1}, baseLps: 1}
special:
  - {id: u, cost: {money: 1}, effects: [{kind: state, field: leads, op: add, amount: 1}]}
`,
			want: "unknown state field",
		},
		{
			name: "unknown op",
			raw: `
buildings:
  - {id: a, currency: leads, baseCost: {leads: 1}, baseLps: 1}
special:
  - {id: u, cost: {money: 1}, effects: [{kind: state, field: baseCAR, op: divide, amount: 1}]}
`,
			want: "unknown op",
		},
		{
			name: "zero duration power-up",
			raw: `
buildings:
  - {id: a, currency: leads, baseCost: {leads: 1}, baseLps: 1}
powerups:
  - {id: p, durationMs: 0, magnitude: 1, category: prod}
`,
			want: "duration",
		},
	}
	for _, tc := range tests {
		_, err := LoadCatalog([]byte(tc.raw))
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: got err=%v want containing %q", tc.name, err, tc.want)
		}
	}
}
