package zones

import (
	"testing"

	"github.com/rickgao/parkwatch/internal/model"
)

func zone(id string, occupied int) model.ZoneState {
	return model.ZoneState{ZoneID: id, Occupied: occupied, TotalSlots: 50, Free: 50 - occupied}
}

func ids(zones []model.ZoneState) []string {
	out := make([]string, len(zones))
	for i, z := range zones {
		out[i] = z.ZoneID
	}
	return out
}

func TestCache_LastWriteWins(t *testing.T) {
	c := NewCache()

	c.Apply(model.ZoneState{ZoneID: "zone_a", Occupied: 10, Name: "Zone A", GateIDs: []string{"gate_1"}})
	c.Apply(model.ZoneState{ZoneID: "zone_a", Occupied: 11})

	z, ok := c.Zone("zone_a")
	if !ok {
		t.Fatal("zone_a missing")
	}
	if z.Occupied != 11 {
		t.Errorf("Occupied = %d, want 11", z.Occupied)
	}
	// Replacement is wholesale: fields absent from the newer state are gone.
	if z.Name != "" || z.GateIDs != nil {
		t.Errorf("stale fields survived: %+v", z)
	}
}

func TestCache_MergeGate(t *testing.T) {
	tests := []struct {
		name    string
		seed    []model.ZoneState
		seeded  bool
		update  model.ZoneState
		inList  bool
		wantIDs []string
	}{
		{
			name:    "unseeded gate becomes single zone",
			update:  zone("zone_x", 1),
			inList:  true,
			wantIDs: []string{"zone_x"},
		},
		{
			name:    "known zone replaced in place",
			seed:    []model.ZoneState{zone("zone_a", 1), zone("zone_b", 2)},
			seeded:  true,
			update:  zone("zone_a", 9),
			inList:  true,
			wantIDs: []string{"zone_a", "zone_b"},
		},
		{
			name:    "unknown zone not appended",
			seed:    []model.ZoneState{zone("zone_a", 1)},
			seeded:  true,
			update:  zone("zone_z", 3),
			inList:  false,
			wantIDs: []string{"zone_a"},
		},
		{
			name:    "seeded empty list stays empty",
			seed:    []model.ZoneState{},
			seeded:  true,
			update:  zone("zone_a", 3),
			inList:  false,
			wantIDs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCache()
			if tt.seeded {
				c.SetGateZones("gate_1", tt.seed)
			}

			if got := c.MergeGate("gate_1", tt.update); got != tt.inList {
				t.Errorf("MergeGate = %v, want %v", got, tt.inList)
			}

			zones, ok := c.GateZones("gate_1")
			if !ok {
				t.Fatal("gate_1 should be seeded after merge")
			}
			got := ids(zones)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("ids = %v, want %v", got, tt.wantIDs)
			}
			for i := range got {
				if got[i] != tt.wantIDs[i] {
					t.Errorf("ids[%d] = %s, want %s", i, got[i], tt.wantIDs[i])
				}
			}

			// The zone itself is always stored.
			if z, ok := c.Zone(tt.update.ZoneID); !ok || z.Occupied != tt.update.Occupied {
				t.Errorf("Zone(%s) = %+v, %v", tt.update.ZoneID, z, ok)
			}
		})
	}
}

func TestCache_GateZonesReflectsLatest(t *testing.T) {
	c := NewCache()
	c.SetGateZones("gate_1", []model.ZoneState{zone("zone_a", 1), zone("zone_b", 2)})

	// A merge through another gate is visible in every gate listing the zone.
	c.MergeGate("gate_2", zone("zone_b", 7))

	zones, _ := c.GateZones("gate_1")
	if zones[1].Occupied != 7 {
		t.Errorf("zone_b Occupied = %d, want 7", zones[1].Occupied)
	}
}

func TestCache_GateZonesUnseeded(t *testing.T) {
	c := NewCache()
	if _, ok := c.GateZones("gate_1"); ok {
		t.Error("expected unseeded gate")
	}
}

func TestCache_ReturnsCopies(t *testing.T) {
	c := NewCache()
	c.Apply(model.ZoneState{ZoneID: "zone_a", GateIDs: []string{"gate_1"}})

	z, _ := c.Zone("zone_a")
	z.GateIDs[0] = "mutated"

	again, _ := c.Zone("zone_a")
	if again.GateIDs[0] != "gate_1" {
		t.Errorf("cache shares slices with callers: %v", again.GateIDs)
	}
}

func TestCache_Categories(t *testing.T) {
	c := NewCache()
	c.SetCategories([]model.Category{
		{ID: "cat_regular", RateNormal: 3},
		{ID: "cat_premium", RateNormal: 5, RateSpecial: 8},
	})

	cat, ok := c.Category("cat_premium")
	if !ok || cat.RateSpecial != 8 {
		t.Errorf("Category = %+v, %v", cat, ok)
	}

	all := c.Categories()
	if len(all) != 2 || all[0].ID != "cat_premium" {
		t.Errorf("Categories = %+v", all)
	}

	c.SetCategories(nil)
	if _, ok := c.Category("cat_premium"); ok {
		t.Error("SetCategories should replace the set")
	}
}

func TestCache_Zones(t *testing.T) {
	c := NewCache()
	c.Apply(zone("zone_b", 1))
	c.Apply(zone("zone_a", 1))

	if got := ids(c.Zones()); len(got) != 2 || got[0] != "zone_a" {
		t.Errorf("Zones = %v", got)
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}
