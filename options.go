package hugemap

import (
	"github.com/hupe1980/hugemap/internal/hugealloc"
	"github.com/hupe1980/hugemap/internal/policy"
)

type options struct {
	threshold          int64
	chunkSize          int
	logger             *Logger
	cpuGate            bool
	disableHuge        bool
	maxConcurrentLoads int64
	populateRateLimit  int64
}

func defaultOptions() options {
	return options{
		threshold: policy.DefaultThreshold,
		chunkSize: hugealloc.DefaultChunkSize,
		logger:    NewLogger(nil),
		cpuGate:   true,
	}
}

// Option configures a Mapper at construction. Configuration is fixed once
// Init or New returns; nothing here is runtime-mutable.
type Option func(*options)

// WithThreshold sets the minimum mapping length, in bytes, considered for
// the huge-page path. Default is 1 GiB. Values <= 0 keep the default.
func WithThreshold(bytes int64) Option {
	return func(o *options) {
		if bytes > 0 {
			o.threshold = bytes
		}
	}
}

// WithChunkSize sets the population read size in bytes. Default is 256 MiB.
// Values <= 0 keep the default.
func WithChunkSize(bytes int) Option {
	return func(o *options) {
		if bytes > 0 {
			o.chunkSize = bytes
		}
	}
}

// WithLogger sets the diagnostic sink. If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithoutCPUGate disables host processor validation. Intended for tests and
// for embedding on hardware outside the tuned target.
func WithoutCPUGate() Option {
	return func(o *options) {
		o.cpuGate = false
	}
}

// WithoutHugePages skips the huge-page reservation attempt; accepted
// requests still get populated anonymous memory, just ordinary pages.
// Useful on hosts without a configured huge-page pool.
func WithoutHugePages() Option {
	return func(o *options) {
		o.disableHuge = true
	}
}

// WithMaxConcurrentLoads caps how many populations may run at once.
// Zero (the default) means unlimited.
func WithMaxConcurrentLoads(n int64) Option {
	return func(o *options) {
		o.maxConcurrentLoads = n
	}
}

// WithPopulateRateLimit caps the aggregate population read throughput in
// bytes per second. Zero (the default) means unlimited.
func WithPopulateRateLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.populateRateLimit = bytesPerSec
	}
}
