package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"parking-dashboard/internal/cache"
	"parking-dashboard/internal/domain/parking"
	"parking-dashboard/internal/parkingapi"
	"parking-dashboard/internal/utils"
)

var (
	ErrInvalidInput = errors.New("invalid input")
)

// EventSource is the parking API as seen by the dashboard.
type EventSource interface {
	TodayEvents(ctx context.Context, s parkingapi.Session) ([]parking.VehicleEvent, error)
	WeeklyRevenue(ctx context.Context, s parkingapi.Session) ([]parking.SeriesPoint, error)
	WeeklyTraffic(ctx context.Context, s parkingapi.Session) (parking.WeeklyTraffic, error)
}

type Recorder interface {
	SetDashboard(d parking.Dashboard)
	ObserveCache(hit bool)
}

type Options struct {
	// FreshFor is how long a fetched snapshot is served without refetching.
	FreshFor time.Duration
	Currency string
	Now      func() time.Time
}

type DashboardService struct {
	source   EventSource
	store    cache.Store
	metrics  Recorder
	freshFor time.Duration
	currency string
	now      func() time.Time
	log      zerolog.Logger
}

// NewDashboardService wires the service. store and metrics may be nil.
func NewDashboardService(source EventSource, store cache.Store, metrics Recorder, opts Options, log zerolog.Logger) *DashboardService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Currency == "" {
		opts.Currency = "VND"
	}
	return &DashboardService{
		source:   source,
		store:    store,
		metrics:  metrics,
		freshFor: opts.FreshFor,
		currency: opts.Currency,
		now:      opts.Now,
		log:      log,
	}
}

// todayEvents returns today's events from the cache or the API. When the
// API fails but an older snapshot exists, the snapshot is returned with
// stale set and the fetch error alongside it.
func (s *DashboardService) todayEvents(ctx context.Context, session parkingapi.Session) (events []parking.VehicleEvent, stale bool, err error) {
	now := s.now()
	key := cache.Key(now)

	var (
		snap    cache.Snapshot
		haveOld bool
	)
	if s.store != nil {
		snap, haveOld, err = s.store.Get(ctx, key)
		if err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("failed to read event snapshot")
			haveOld = false
		}
		if haveOld && snap.Fresh(now, s.freshFor) {
			s.observeCache(true)
			return snap.Events, false, nil
		}
		s.observeCache(false)
	}

	fetched, err := s.source.TodayEvents(ctx, session)
	if err != nil {
		if haveOld && !errors.Is(err, parkingapi.ErrUnauthorized) {
			s.log.Warn().
				Err(err).
				Time("fetched_at", snap.FetchedAt).
				Msg("serving stale event snapshot")
			return snap.Events, true, err
		}
		return nil, false, fmt.Errorf("failed to fetch today's events: %w", err)
	}

	if s.store != nil {
		if err := s.store.Set(ctx, key, cache.Snapshot{Events: fetched, FetchedAt: now}); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("failed to store event snapshot")
		}
	}

	s.log.Debug().
		Int("events", len(fetched)).
		Str("key", key).
		Msg("fetched today's events")
	return fetched, false, nil
}

func (s *DashboardService) observeCache(hit bool) {
	if s.metrics != nil {
		s.metrics.ObserveCache(hit)
	}
}

// Occupancy builds today's dashboard. On a failed fetch with nothing cached
// it returns zero stats together with the error.
func (s *DashboardService) Occupancy(ctx context.Context, session parkingapi.Session) (parking.Dashboard, error) {
	events, stale, err := s.todayEvents(ctx, session)
	if err != nil && !stale {
		d := BuildDashboard(nil, s.now())
		d.Error = err.Error()
		return d, err
	}

	d := BuildDashboard(events, s.now())
	if stale {
		d.Stale = true
		d.Error = err.Error()
	}
	if s.metrics != nil {
		s.metrics.SetDashboard(d)
	}

	s.log.Info().
		Int("present", d.Occupancy.Total).
		Int("entries", d.TotalEntries).
		Int("exits", d.TotalExits).
		Bool("stale", d.Stale).
		Msg("computed occupancy")
	return d, nil
}

// Traffic counts today's raw events for one vehicle type and direction.
func (s *DashboardService) Traffic(ctx context.Context, session parkingapi.Session, vehicleType, direction string) (parking.DirectionCount, error) {
	vt, ok := parking.ParseVehicleType(vehicleType)
	if !ok {
		return parking.DirectionCount{}, fmt.Errorf("%w: unknown vehicle_type %q", ErrInvalidInput, vehicleType)
	}
	dir, ok := parking.ParseEventType(direction)
	if !ok {
		return parking.DirectionCount{}, fmt.Errorf("%w: unknown direction %q", ErrInvalidInput, direction)
	}

	out := parking.DirectionCount{VehicleType: vt, Direction: dir}
	events, stale, err := s.todayEvents(ctx, session)
	if err != nil && !stale {
		return out, err
	}
	out.Count = CountByCategoryAndDirection(events, vt, dir)
	return out, nil
}

// Parked returns one page of the vehicles currently in the lot, optionally
// filtered by a plate fragment.
func (s *DashboardService) Parked(ctx context.Context, session parkingapi.Session, plateQuery string, page, size int) ([]parking.ParkedVehicle, utils.PageMeta, error) {
	events, stale, err := s.todayEvents(ctx, session)
	if err != nil && !stale {
		_, meta := utils.Paginate([]parking.ParkedVehicle(nil), page, size)
		return []parking.ParkedVehicle{}, meta, err
	}

	parked := ParkedVehicles(events)
	if q := utils.NormalizePlate(plateQuery); q != "" {
		filtered := parked[:0]
		for _, p := range parked {
			if strings.Contains(utils.NormalizePlate(p.LicensePlate), q) {
				filtered = append(filtered, p)
			}
		}
		parked = filtered
	}

	items, meta := utils.Paginate(parked, page, size)
	return items, meta, nil
}

// Statistics fetches the admin weekly charts concurrently.
func (s *DashboardService) Statistics(ctx context.Context, session parkingapi.Session) (parking.Statistics, error) {
	var stats parking.Statistics
	stats.Revenue.Currency = s.currency

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		points, err := s.source.WeeklyRevenue(gctx, session)
		if err != nil {
			return fmt.Errorf("failed to fetch weekly revenue: %w", err)
		}
		stats.Revenue.Points = points
		return nil
	})
	g.Go(func() error {
		traffic, err := s.source.WeeklyTraffic(gctx, session)
		if err != nil {
			return fmt.Errorf("failed to fetch weekly traffic: %w", err)
		}
		stats.Traffic = traffic
		return nil
	})
	if err := g.Wait(); err != nil {
		return parking.Statistics{}, err
	}
	return stats, nil
}

// Refresh drops today's snapshot so the next read refetches.
func (s *DashboardService) Refresh(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	key := cache.Key(s.now())
	if err := s.store.Delete(ctx, key); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("failed to drop event snapshot")
		return err
	}
	s.log.Info().Str("key", key).Msg("dropped event snapshot")
	return nil
}
