package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrNotFound is returned by a KV when the key has never been written.
var ErrNotFound = errors.New("save not found")

// KV is the single key-value store a game is persisted into.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// MarshalState encodes s in the save format.
func MarshalState(s *State) ([]byte, error) {
	return json.Marshal(s)
}

func (g *Game) Save(ctx context.Context, kv KV) error {
	g.mu.Lock()
	raw, err := MarshalState(g.state)
	g.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encode save: %w", err)
	}
	if err := kv.Put(ctx, SaveKey, raw); err != nil {
		return fmt.Errorf("write save: %w", err)
	}
	return nil
}

// Load replaces the live state with the saved one. A missing save leaves the
// current state untouched. A corrupt save resets to defaults and is reported
// through LoadResult.Corrupt rather than as an error.
func (g *Game) Load(ctx context.Context, kv KV) (LoadResult, error) {
	raw, err := kv.Get(ctx, SaveKey)
	if errors.Is(err, ErrNotFound) {
		return LoadResult{}, nil
	}
	if err != nil {
		return LoadResult{}, fmt.Errorf("read save: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	res := LoadResult{Found: true}
	s, err := Reconcile(raw, g.cat, now)
	if errors.Is(err, ErrCorruptSave) {
		res.Corrupt = true
		g.log.Warn("saved game unreadable, starting fresh", "key", SaveKey)
	} else {
		res.DroppedIDs = unknownIDs(raw, g.cat)
		if len(res.DroppedIDs) > 0 {
			g.log.Debug("dropped retired catalog ids from save", "ids", res.DroppedIDs)
		}
	}
	g.state = s
	g.acquisitionCarry = 0
	g.pending = make(map[string]PendingPowerup)
	g.recompute(now)
	return res, nil
}

// DeleteSave removes the save. Deleting a missing save is not an error.
func (g *Game) DeleteSave(ctx context.Context, kv KV) error {
	if err := kv.Delete(ctx, SaveKey); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete save: %w", err)
	}
	return nil
}

// unknownIDs lists building and upgrade ids in raw that the catalog no longer has.
func unknownIDs(raw []byte, cat *Catalog) []string {
	var blob struct {
		Buildings map[string]json.RawMessage `json:"buildings"`
		Upgrades  map[string]json.RawMessage `json:"upgrades"`
	}
	if err := json.Unmarshal(raw, &blob); err != nil {
		return nil
	}
	var out []string
	for id := range blob.Buildings {
		if _, ok := cat.Building(id); !ok {
			out = append(out, id)
		}
	}
	for id := range blob.Upgrades {
		if _, ok := cat.Upgrade(id); !ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
