package parkingapi

import (
	"context"

	"github.com/cenkalti/backoff/v4"
)

// backOff is the retry schedule for one upstream call: exponential between
// the configured bounds, at most c.retries retries, abandoned with ctx.
func (c *Client) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initWait
	b.MaxInterval = c.maxWait
	b.Multiplier = 2
	b.MaxElapsedTime = 0

	retries := c.retries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}
