package service

import (
	"sort"
	"time"

	"parking-dashboard/internal/domain/parking"
)

// replay returns the plates whose latest event is an ENTRY. Events are
// replayed in timestamp order; equal timestamps keep input order.
func replay(events []parking.VehicleEvent) map[string]parking.VehicleEvent {
	sorted := make([]parking.VehicleEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp.Time)
	})

	index := make(map[string]parking.VehicleEvent)
	for _, e := range sorted {
		switch e.EventType {
		case parking.EventEntry:
			index[e.LicensePlate] = e
		case parking.EventExit:
			delete(index, e.LicensePlate)
		}
	}
	return index
}

// ComputeCurrentOccupancy counts the vehicles still in the lot after
// replaying the day's events. It never fails: empty input gives zero stats.
func ComputeCurrentOccupancy(events []parking.VehicleEvent) parking.VehicleStats {
	var stats parking.VehicleStats
	for _, e := range replay(events) {
		switch e.VehicleType {
		case parking.VehicleMotorbike:
			stats.Motorbike++
		case parking.VehicleScooter:
			stats.Scooter++
		case parking.VehicleBicycle:
			stats.Bicycle++
		}
	}
	stats.Total = stats.Motorbike + stats.Scooter + stats.Bicycle
	return stats
}

// CountByCategoryAndDirection tallies raw events, independent of occupancy.
func CountByCategoryAndDirection(events []parking.VehicleEvent, category parking.VehicleType, direction parking.EventType) int {
	n := 0
	for _, e := range events {
		if e.VehicleType == category && e.EventType == direction {
			n++
		}
	}
	return n
}

// ParkedVehicles lists the vehicles currently in the lot, latest entry first.
func ParkedVehicles(events []parking.VehicleEvent) []parking.ParkedVehicle {
	index := replay(events)
	parked := make([]parking.ParkedVehicle, 0, len(index))
	for plate, e := range index {
		parked = append(parked, parking.ParkedVehicle{
			LicensePlate: plate,
			VehicleType:  e.VehicleType,
			TicketType:   e.TicketType,
			EnteredAt:    e.Timestamp,
		})
	}
	sort.Slice(parked, func(i, j int) bool {
		a, b := parked[i].EnteredAt.Time, parked[j].EnteredAt.Time
		if !a.Equal(b) {
			return a.After(b)
		}
		return parked[i].LicensePlate < parked[j].LicensePlate
	})
	return parked
}

// BuildDashboard derives occupancy and per-category traffic from one event list.
func BuildDashboard(events []parking.VehicleEvent, now time.Time) parking.Dashboard {
	d := parking.Dashboard{
		Occupancy:   ComputeCurrentOccupancy(events),
		Traffic:     make([]parking.TrafficCount, 0, len(parking.VehicleTypes)),
		EventCount:  len(events),
		GeneratedAt: now,
	}
	for _, vt := range parking.VehicleTypes {
		tc := parking.TrafficCount{
			VehicleType: vt,
			Entries:     CountByCategoryAndDirection(events, vt, parking.EventEntry),
			Exits:       CountByCategoryAndDirection(events, vt, parking.EventExit),
		}
		d.TotalEntries += tc.Entries
		d.TotalExits += tc.Exits
		d.Traffic = append(d.Traffic, tc)
	}
	return d
}
