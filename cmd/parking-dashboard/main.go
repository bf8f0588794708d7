package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"parking-dashboard/internal/cache"
	"parking-dashboard/internal/config"
	apphttp "parking-dashboard/internal/http"
	"parking-dashboard/internal/metrics"
	"parking-dashboard/internal/parkingapi"
	"parking-dashboard/internal/service"

	_ "time/tzdata"
)

func main() {
	app := &cli.App{
		Name:        "parking-dashboard",
		Description: "Occupancy and traffic dashboard backend for the parking API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML config file",
				EnvVars: []string{"PARKING_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the dashboard HTTP server",
				Action: serve,
			},
			{
				Name:  "occupancy",
				Usage: "fetch today's events once and print the dashboard as JSON",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "token",
						Usage:   "bearer token for the parking API",
						EnvVars: []string{"PARKING_API_TOKEN"},
					},
				},
				Action: occupancy,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Send()
	}
}

func setup(c *cli.Context) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	if loc, err := time.LoadLocation(cfg.App.Timezone); err == nil {
		time.Local = loc
	} else {
		return nil, zerolog.Nop(), fmt.Errorf("invalid timezone %q: %w", cfg.App.Timezone, err)
	}

	if strings.EqualFold(cfg.App.LogFormat, "json") {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	level, err := zerolog.ParseLevel(cfg.App.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	log.Logger = log.Logger.Level(level)

	return cfg, log.Logger.With().Str("service", "parking-dashboard").Logger(), nil
}

func newStore(ctx context.Context, cfg config.CacheConfig) (cache.Store, error) {
	switch cfg.Driver {
	case "redis":
		r, err := cache.NewRedis(ctx, cache.RedisOptions{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.RetainFor,
		})
		if err != nil {
			return nil, err
		}
		return r, nil
	case "memory":
		return cache.NewMemory(cfg.RetainFor), nil
	default:
		return nil, nil
	}
}

func newDashboardService(cfg *config.Config, store cache.Store, m *metrics.Metrics, logger zerolog.Logger) *service.DashboardService {
	var observer parkingapi.Observer
	var recorder service.Recorder
	if m != nil {
		observer = m
		recorder = m
	}

	client := parkingapi.NewClient(parkingapi.Options{
		BaseURL:        cfg.API.BaseURL,
		UserAgent:      cfg.API.UserAgent,
		Timeout:        cfg.API.Timeout,
		Retries:        cfg.API.Retries,
		InitialBackoff: cfg.API.InitialBackoff,
		MaxBackoff:     cfg.API.MaxBackoff,
		Paths: parkingapi.Paths{
			TodayEvents:   cfg.API.Paths.TodayEvents,
			WeeklyRevenue: cfg.API.Paths.WeeklyRevenue,
			WeeklyTraffic: cfg.API.Paths.WeeklyTraffic,
		},
	}, observer, logger.With().Str("component", "parkingapi").Logger())

	return service.NewDashboardService(client, store, recorder, service.Options{
		FreshFor: cfg.Cache.FreshFor,
	}, logger.With().Str("component", "dashboard").Logger())
}

func serve(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := newStore(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	m := metrics.New()
	svc := newDashboardService(cfg, store, m, logger)
	handler := apphttp.NewHandler(svc, cfg, logger)
	router := apphttp.NewRouter(cfg, handler, m.Handler(), logger)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.HTTP.Addr).
			Str("api", cfg.API.BaseURL).
			Str("cache", cfg.Cache.Driver).
			Msg("starting dashboard server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func occupancy(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}

	token := c.String("token")
	if token == "" {
		token = cfg.API.Token
	}

	svc := newDashboardService(cfg, nil, nil, logger)
	d, err := svc.Occupancy(c.Context, parkingapi.Session{Token: token})

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(d); encErr != nil {
		return encErr
	}
	return err
}
