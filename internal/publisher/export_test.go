package publisher

import "time"

// MockTimeProvider is a mock time provider that returns a fixed time.
type MockTimeProvider struct {
	CurrentTime int64
}

// Now returns the internal fixed time.
func (m MockTimeProvider) Now() time.Time {
	return time.Unix(m.CurrentTime, 0)
}

// WithTimeProvider overrides the time source used for commit timestamps.
func WithTimeProvider(tp timeProvider) Options {
	return func(o *options) {
		o.timeProvider = tp
	}
}
