package zones

import (
	"sort"
	"sync"

	"github.com/rickgao/parkwatch/internal/model"
)

// Cache holds the latest known state of every zone.
type Cache struct {
	mu         sync.RWMutex
	zones      map[string]model.ZoneState
	gates      map[string][]string // gate id -> ordered zone ids
	categories map[string]model.Category
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		zones:      make(map[string]model.ZoneState),
		gates:      make(map[string][]string),
		categories: make(map[string]model.Category),
	}
}

// Apply replaces the stored state of z.ZoneID wholesale.
func (c *Cache) Apply(z model.ZoneState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zones[z.ZoneID] = z.Clone()
}

// Zone returns the stored state of zoneID.
func (c *Cache) Zone(zoneID string) (model.ZoneState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	z, ok := c.zones[zoneID]
	if !ok {
		return model.ZoneState{}, false
	}
	return z.Clone(), true
}

// SetGateZones records the full zone list for gateID in the given order.
func (c *Cache) SetGateZones(gateID string, zones []model.ZoneState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(zones))
	for _, z := range zones {
		c.zones[z.ZoneID] = z.Clone()
		ids = append(ids, z.ZoneID)
	}
	c.gates[gateID] = ids
}

// MergeGate applies z and folds it into gateID's list. An unseeded gate
// list becomes [z]; a seeded list keeps its membership and order, so a zone
// it does not contain is stored but not appended. Returns true when z is in
// the gate's list afterwards.
func (c *Cache) MergeGate(gateID string, z model.ZoneState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.zones[z.ZoneID] = z.Clone()

	ids, seeded := c.gates[gateID]
	if !seeded {
		c.gates[gateID] = []string{z.ZoneID}
		return true
	}
	for _, id := range ids {
		if id == z.ZoneID {
			return true
		}
	}
	return false
}

// GateZones returns gateID's zones in list order. ok is false when the gate
// has never been seeded.
func (c *Cache) GateZones(gateID string) (zones []model.ZoneState, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids, ok := c.gates[gateID]
	if !ok {
		return nil, false
	}
	zones = make([]model.ZoneState, 0, len(ids))
	for _, id := range ids {
		if z, found := c.zones[id]; found {
			zones = append(zones, z.Clone())
		}
	}
	return zones, true
}

// Zones returns every stored zone sorted by id.
func (c *Cache) Zones() []model.ZoneState {
	c.mu.RLock()
	out := make([]model.ZoneState, 0, len(c.zones))
	for _, z := range c.zones {
		out = append(out, z.Clone())
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ZoneID < out[j].ZoneID })
	return out
}

// SetCategories replaces the category rate cards.
func (c *Cache) SetCategories(categories []model.Category) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.categories = make(map[string]model.Category, len(categories))
	for _, cat := range categories {
		c.categories[cat.ID] = cat
	}
}

// Category returns the rate card for id.
func (c *Cache) Category(id string) (model.Category, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cat, ok := c.categories[id]
	return cat, ok
}

// Categories returns every rate card sorted by id.
func (c *Cache) Categories() []model.Category {
	c.mu.RLock()
	out := make([]model.Category, 0, len(c.categories))
	for _, cat := range c.categories {
		out = append(out, cat)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of stored zones.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.zones)
}
