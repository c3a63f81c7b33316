package sik

import (
	"time"

	"github.com/banshee-data/siklink/internal/params"
	"github.com/banshee-data/siklink/internal/serialmux"
	"github.com/banshee-data/siklink/internal/timeutil"
)

const (
	// CheckSettleDelay is the quiet interval after the "+" probe before the
	// echo is inspected.
	CheckSettleDelay = 100 * time.Millisecond
	// EnterSettleDelay is the guard interval the firmware needs after "+++"
	// before it answers.
	EnterSettleDelay = time.Second

	DefaultReadTimeout  = time.Second
	DefaultPollInterval = 100 * time.Millisecond
)

type options struct {
	clock        timeutil.Clock
	readTimeout  time.Duration
	pollInterval time.Duration
	lines        *serialmux.Broadcaster
	config       *params.Config
}

func defaultOptions() options {
	return options{
		clock:        timeutil.RealClock{},
		readTimeout:  DefaultReadTimeout,
		pollInterval: DefaultPollInterval,
	}
}

// Option configures a Client.
type Option func(*options)

// WithClock sets the clock used for settle delays.
func WithClock(clock timeutil.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithReadTimeout bounds every line read of a command exchange.
func WithReadTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.readTimeout = timeout
		}
	}
}

// WithPollInterval sets how long Stream holds the port per read attempt.
func WithPollInterval(interval time.Duration) Option {
	return func(o *options) {
		if interval > 0 {
			o.pollInterval = interval
		}
	}
}

// WithBroadcaster publishes every raw line read by Stream to lines.
func WithBroadcaster(lines *serialmux.Broadcaster) Option {
	return func(o *options) { o.lines = lines }
}

// WithConfig supplies the snapshot the client reads into and writes from.
func WithConfig(cfg *params.Config) Option {
	return func(o *options) { o.config = cfg }
}
