package parkingapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"parking-dashboard/internal/domain/parking"
)

// Session carries the caller's credentials to the parking API.
type Session struct {
	Token string
}

type Paths struct {
	TodayEvents   string
	WeeklyRevenue string
	WeeklyTraffic string
}

// Observer receives the outcome of every upstream call.
type Observer interface {
	ObserveUpstream(endpoint, status string, elapsed time.Duration)
}

type Options struct {
	BaseURL        string
	UserAgent      string
	Timeout        time.Duration
	Retries        int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Paths          Paths
}

type Client struct {
	baseURL   string
	userAgent string
	paths     Paths
	retries   int
	initWait  time.Duration
	maxWait   time.Duration
	client    *http.Client
	observer  Observer
	log       zerolog.Logger
}

func NewClient(opts Options, observer Observer, log zerolog.Logger) *Client {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 60 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 200 * time.Millisecond
	}
	if opts.MaxBackoff < opts.InitialBackoff {
		opts.MaxBackoff = opts.InitialBackoff
	}
	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
		paths:     opts.Paths,
		retries:   opts.Retries,
		initWait:  opts.InitialBackoff,
		maxWait:   opts.MaxBackoff,
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: tr,
		},
		observer: observer,
		log:      log,
	}
}

// TodayEvents lists the entry and exit events of the current day. The date
// filter is applied server-side.
func (c *Client) TodayEvents(ctx context.Context, s Session) ([]parking.VehicleEvent, error) {
	return get[[]parking.VehicleEvent](ctx, c, s, "today_events", c.paths.TodayEvents)
}

func (c *Client) WeeklyRevenue(ctx context.Context, s Session) ([]parking.SeriesPoint, error) {
	return get[[]parking.SeriesPoint](ctx, c, s, "weekly_revenue", c.paths.WeeklyRevenue)
}

func (c *Client) WeeklyTraffic(ctx context.Context, s Session) (parking.WeeklyTraffic, error) {
	return get[parking.WeeklyTraffic](ctx, c, s, "weekly_traffic", c.paths.WeeklyTraffic)
}

func get[T any](ctx context.Context, c *Client, s Session, endpoint, path string) (T, error) {
	var out T
	start := time.Now()
	status := "ok"
	defer func() {
		if c.observer != nil {
			c.observer.ObserveUpstream(endpoint, status, time.Since(start))
		}
	}()

	err := backoff.Retry(func() error {
		var env Envelope[T]
		if err := c.do(ctx, s, path, &env); err != nil {
			return err
		}
		result, err := env.Unwrap()
		if err != nil {
			return backoff.Permanent(err)
		}
		out = result
		return nil
	}, c.backOff(ctx))
	if err != nil {
		status = statusLabel(err)
		c.log.Warn().
			Err(err).
			Str("endpoint", endpoint).
			Dur("elapsed", time.Since(start)).
			Msg("parking api request failed")
		var zero T
		return zero, err
	}

	c.log.Debug().
		Str("endpoint", endpoint).
		Dur("elapsed", time.Since(start)).
		Msg("parking api request succeeded")
	return out, nil
}

// do performs one GET and decodes the envelope into dst. Transport errors
// and 5xx responses are retryable, everything else is permanent.
func (c *Client) do(ctx context.Context, s Session, path string, dst any) error {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return backoff.Permanent(ErrUnauthorized)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: http %d", ErrUpstream, resp.StatusCode)
	case resp.StatusCode/100 != 2:
		var env Envelope[json.RawMessage]
		if err := json.NewDecoder(resp.Body).Decode(&env); err == nil && env.Code != 0 {
			return backoff.Permanent(&APIError{Code: env.Code, Message: env.Message})
		}
		return backoff.Permanent(fmt.Errorf("%w: http %d", ErrUpstream, resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return backoff.Permanent(fmt.Errorf("%w: decode response: %v", ErrUpstream, err))
	}
	return nil
}

func statusLabel(err error) string {
	var apiErr *APIError
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.As(err, &apiErr):
		return "api_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
