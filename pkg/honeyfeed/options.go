package honeyfeed

import (
	"time"

	"github.com/crimson-sun/honeyfeed/internal/engine/geo"
	"github.com/crimson-sun/honeyfeed/internal/engine/session"
)

type options struct {
	sessionCapacity int
	geoEndpoint     string
	geoTimeout      time.Duration
	geoCapacity     int
	negativeTTL     time.Duration
}

// Option configures a Classifier.
type Option func(*options)

// WithSessionCapacity bounds how many source addresses are remembered.
// Default: 10000.
func WithSessionCapacity(n int) Option {
	return func(o *options) {
		o.sessionCapacity = n
	}
}

// WithGeo enables geo enrichment against an ip-api compatible endpoint,
// e.g. "http://ip-api.com/json/". Disabled by default.
func WithGeo(endpoint string) Option {
	return func(o *options) {
		o.geoEndpoint = endpoint
	}
}

// WithGeoTimeout bounds a single geo lookup. Default: 2s.
func WithGeoTimeout(d time.Duration) Option {
	return func(o *options) {
		o.geoTimeout = d
	}
}

// WithGeoCapacity bounds the geo cache. Default: 10000.
func WithGeoCapacity(n int) Option {
	return func(o *options) {
		o.geoCapacity = n
	}
}

// WithNegativeTTL sets how long a failed lookup is remembered. Default: 5m.
func WithNegativeTTL(d time.Duration) Option {
	return func(o *options) {
		o.negativeTTL = d
	}
}

func defaultOptions() options {
	return options{
		sessionCapacity: session.DefaultCapacity,
		geoTimeout:      geo.DefaultTimeout,
		geoCapacity:     geo.DefaultCapacity,
		negativeTTL:     geo.DefaultNegativeTTL,
	}
}
