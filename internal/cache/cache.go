// Package cache keeps the last fetched event list so repeated dashboard
// reads do not hit the parking API, and so a failed fetch can fall back to
// the last good snapshot.
package cache

import (
	"context"
	"time"

	"parking-dashboard/internal/domain/parking"
)

// Snapshot is one fetched event list.
type Snapshot struct {
	Events    []parking.VehicleEvent `json:"events"`
	FetchedAt time.Time              `json:"fetchedAt"`
}

// Fresh reports whether the snapshot is younger than ttl at now.
func (s Snapshot) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.FetchedAt) < ttl
}

type Store interface {
	Get(ctx context.Context, key string) (Snapshot, bool, error)
	Set(ctx context.Context, key string, snap Snapshot) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Key names the snapshot of the day containing t.
func Key(t time.Time) string {
	return "parking:events:" + t.Format("2006-01-02")
}
