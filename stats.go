package hugemap

import "sync/atomic"

type counters struct {
	intercepted     atomic.Uint64
	forwarded       atomic.Uint64
	hugeRegions     atomic.Uint64
	fallbackRegions atomic.Uint64
	bytesPopulated  atomic.Uint64
	trackedReleases atomic.Uint64
}

// Snapshot is a point-in-time view of mapper activity.
type Snapshot struct {
	// Intercepted counts requests redirected to the huge-page path.
	Intercepted uint64
	// Forwarded counts requests passed to the real primitive unchanged.
	Forwarded uint64
	// HugePageRegions counts redirected regions that got huge-page backing.
	HugePageRegions uint64
	// FallbackRegions counts redirected regions that fell back to ordinary
	// anonymous memory.
	FallbackRegions uint64
	// BytesPopulated is the total bytes copied from backing files.
	BytesPopulated uint64
	// TrackedReleases counts releases satisfied from the registry.
	TrackedReleases uint64
	// LiveRegions and LiveBytes describe regions currently tracked.
	LiveRegions int
	LiveBytes   int64
}

func (c *counters) snapshot() Snapshot {
	return Snapshot{
		Intercepted:     c.intercepted.Load(),
		Forwarded:       c.forwarded.Load(),
		HugePageRegions: c.hugeRegions.Load(),
		FallbackRegions: c.fallbackRegions.Load(),
		BytesPopulated:  c.bytesPopulated.Load(),
		TrackedReleases: c.trackedReleases.Load(),
	}
}
