package model

import (
	"encoding/json"
	"time"
)

// -----------------------------------------------------------------------------
// Facility State
// -----------------------------------------------------------------------------

// ZoneState is the full pushed state of a parking zone. A newer ZoneState for the
// same ZoneID replaces the older one wholesale.
type ZoneState struct {
	ZoneID     string   `json:"id"`
	Name       string   `json:"name,omitempty"`
	CategoryID string   `json:"categoryId,omitempty"`
	GateIDs    []string `json:"gateIds,omitempty"`

	// Capacity counters
	TotalSlots              int `json:"totalSlots"`
	Occupied                int `json:"occupied"`
	Free                    int `json:"free"`
	Reserved                int `json:"reserved"`
	AvailableForVisitors    int `json:"availableForVisitors"`
	AvailableForSubscribers int `json:"availableForSubscribers"`

	// Pricing
	RateNormal  float64 `json:"rateNormal"`
	RateSpecial float64 `json:"rateSpecial"`

	Open bool `json:"open"`
}

// Clone returns a deep copy so cached entries never share slices with callers.
func (z ZoneState) Clone() ZoneState {
	if z.GateIDs != nil {
		z.GateIDs = append([]string(nil), z.GateIDs...)
	}
	return z
}

// ServesGate reports whether the zone lists gateID among its gates.
func (z ZoneState) ServesGate(gateID string) bool {
	for _, id := range z.GateIDs {
		if id == gateID {
			return true
		}
	}
	return false
}

// Gate is a physical check-in terminal and the unit of stream subscription.
type Gate struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	ZoneIDs  []string `json:"zoneIds"`
	Location string   `json:"location"`
}

// Category groups zones that share a rate card.
type Category struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	RateNormal  float64 `json:"rateNormal"`
	RateSpecial float64 `json:"rateSpecial"`
}

// ZoneReport is one row of the administrative parking-state report.
type ZoneReport struct {
	ZoneID                  string `json:"zoneId"`
	Name                    string `json:"name"`
	TotalSlots              int    `json:"totalSlots"`
	Occupied                int    `json:"occupied"`
	Free                    int    `json:"free"`
	Reserved                int    `json:"reserved"`
	AvailableForVisitors    int    `json:"availableForVisitors"`
	AvailableForSubscribers int    `json:"availableForSubscribers"`
	SubscriberCount         int    `json:"subscriberCount"`
	Open                    bool   `json:"open"`
}

// -----------------------------------------------------------------------------
// Administrative Events
// -----------------------------------------------------------------------------

// AuditEntry describes one administrative change pushed over the stream.
type AuditEntry struct {
	Timestamp  time.Time       `json:"timestamp"`
	AdminID    string          `json:"adminId"`
	Action     string          `json:"action"`
	TargetType string          `json:"targetType"`
	TargetID   string          `json:"targetId"`
	Details    json.RawMessage `json:"details,omitempty"`
}
