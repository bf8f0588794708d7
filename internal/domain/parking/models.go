package parking

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

type VehicleType string

const (
	VehicleBicycle   VehicleType = "Bicycle"
	VehicleMotorbike VehicleType = "Motorbike"
	VehicleScooter   VehicleType = "Scooter"
)

// VehicleTypes lists the tracked categories in dashboard order.
var VehicleTypes = []VehicleType{VehicleMotorbike, VehicleScooter, VehicleBicycle}

func (v VehicleType) Known() bool {
	switch v {
	case VehicleBicycle, VehicleMotorbike, VehicleScooter:
		return true
	}
	return false
}

// ParseVehicleType matches case-insensitively against the tracked categories.
func ParseVehicleType(s string) (VehicleType, bool) {
	s = strings.TrimSpace(s)
	for _, v := range VehicleTypes {
		if strings.EqualFold(s, string(v)) {
			return v, true
		}
	}
	return VehicleType(s), false
}

type TicketType string

const (
	TicketDaily   TicketType = "DAILY"
	TicketMonthly TicketType = "MONTHLY"
)

type EventType string

const (
	EventEntry EventType = "ENTRY"
	EventExit  EventType = "EXIT"
)

func ParseEventType(s string) (EventType, bool) {
	switch EventType(strings.ToUpper(strings.TrimSpace(s))) {
	case EventEntry:
		return EventEntry, true
	case EventExit:
		return EventExit, true
	}
	return EventType(s), false
}

// Timestamp accepts RFC 3339 as well as zone-less ISO 8601 values, which are
// read in time.Local. Values that match no layout decode to the zero time.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func ParseTimestamp(s string) (Timestamp, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return Timestamp{Time: t}, true
		}
	}
	return Timestamp{}, false
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*t = Timestamp{}
		return nil
	}
	*t, _ = ParseTimestamp(s)
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}

// VehicleEvent is one entry or exit recorded at the gate.
type VehicleEvent struct {
	LicensePlate string      `json:"licensePlate"`
	VehicleType  VehicleType `json:"vehicleType"`
	TicketType   TicketType  `json:"ticketType"`
	Timestamp    Timestamp   `json:"timestamp"`
	EventType    EventType   `json:"eventType"`
}

// VehicleStats counts vehicles currently in the lot.
type VehicleStats struct {
	Motorbike int `json:"motorbike"`
	Scooter   int `json:"scooter"`
	Bicycle   int `json:"bicycle"`
	Total     int `json:"total"`
}

// TrafficCount is the raw tally of today's events for one category.
type TrafficCount struct {
	VehicleType VehicleType `json:"vehicleType"`
	Entries     int         `json:"entries"`
	Exits       int         `json:"exits"`
}

// DirectionCount is the raw number of events of one category in one
// direction.
type DirectionCount struct {
	VehicleType VehicleType `json:"vehicleType"`
	Direction   EventType   `json:"direction"`
	Count       int         `json:"count"`
}

type ParkedVehicle struct {
	LicensePlate string      `json:"licensePlate"`
	VehicleType  VehicleType `json:"vehicleType"`
	TicketType   TicketType  `json:"ticketType"`
	EnteredAt    Timestamp   `json:"enteredAt"`
}

type Dashboard struct {
	Occupancy    VehicleStats   `json:"occupancy"`
	Traffic      []TrafficCount `json:"traffic"`
	TotalEntries int            `json:"totalEntries"`
	TotalExits   int            `json:"totalExits"`
	EventCount   int            `json:"eventCount"`
	GeneratedAt  time.Time      `json:"generatedAt"`
	Stale        bool           `json:"stale"`
	Error        string         `json:"error,omitempty"`
}

// SeriesPoint is one bar of an aggregated weekly chart.
type SeriesPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

type WeeklyRevenue struct {
	Currency string        `json:"currency"`
	Points   []SeriesPoint `json:"points"`
}

type WeeklyTraffic struct {
	Entries []SeriesPoint `json:"entries"`
	Exits   []SeriesPoint `json:"exits"`
}

type Statistics struct {
	Revenue WeeklyRevenue `json:"revenue"`
	Traffic WeeklyTraffic `json:"traffic"`
}
