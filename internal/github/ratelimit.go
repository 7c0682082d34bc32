package github

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// RateLimitStatus is the client's view of the API rate limit,
// taken from the X-RateLimit response headers.
type RateLimitStatus struct {
	Limit     int
	Used      int
	Remaining int
	ResetAt   time.Time

	lastUpdate time.Time
}

// Exhausted reports whether the known rate limit budget is used up.
// An unknown status (no request made yet) is not exhausted.
func (s RateLimitStatus) Exhausted() bool {
	return !s.lastUpdate.IsZero() && s.Remaining <= 0
}

// RateLimit fetches the current rate limit status from the API.
// The /rate_limit endpoint itself does not count against the limit.
func (c *client) RateLimit(ctx context.Context) (RateLimitStatus, error) {
	var body struct {
		Rate struct {
			Limit     int   `json:"limit"`
			Used      int   `json:"used"`
			Remaining int   `json:"remaining"`
			Reset     int64 `json:"reset"`
		} `json:"rate"`
	}
	if err := c.apiRequest(ctx, fmt.Sprintf("%s/rate_limit", c.baseURL), &body); err != nil {
		return RateLimitStatus{}, fmt.Errorf("failed to fetch rate limit status: %w", err)
	}

	c.rateLimit = RateLimitStatus{
		Limit:      body.Rate.Limit,
		Used:       body.Rate.Used,
		Remaining:  body.Rate.Remaining,
		ResetAt:    time.Unix(body.Rate.Reset, 0).UTC(),
		lastUpdate: time.Now(),
	}
	return c.rateLimit, nil
}

// parseRateLimitHeaders extracts the rate limit status from response headers.
// Returns false if the headers are absent or unparsable.
func parseRateLimitHeaders(h http.Header) (RateLimitStatus, bool) {
	limit, err := strconv.Atoi(h.Get("X-RateLimit-Limit"))
	if err != nil {
		return RateLimitStatus{}, false
	}
	remaining, err := strconv.Atoi(h.Get("X-RateLimit-Remaining"))
	if err != nil {
		return RateLimitStatus{}, false
	}
	reset, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64)
	if err != nil {
		return RateLimitStatus{}, false
	}

	return RateLimitStatus{
		Limit:      limit,
		Used:       limit - remaining,
		Remaining:  remaining,
		ResetAt:    time.Unix(reset, 0).UTC(),
		lastUpdate: time.Now(),
	}, true
}
