package hugemap

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/cpu"
	"golang.org/x/sys/unix"

	"github.com/hupe1980/hugemap/internal/cpugate"
	"github.com/hupe1980/hugemap/internal/hugealloc"
	"github.com/hupe1980/hugemap/internal/policy"
	"github.com/hupe1980/hugemap/internal/resolver"
	"github.com/hupe1980/hugemap/internal/resource"
	"github.com/hupe1980/hugemap/internal/tracker"
)

// Mapper is the interception engine: it decides per request whether to
// redirect to huge-page-backed memory, performs the allocation with its
// fallback path, and tracks every region it produced so the matching release
// frees the true reserved extent.
//
// A Mapper is safe for concurrent use. Most programs use the package-level
// Init/Mmap/Munmap/Shutdown around a single process-wide Mapper.
type Mapper struct {
	opts   options
	engine *hugealloc.Engine
	trk    *tracker.Tracker
	stats  counters
}

// New creates a Mapper. Unless WithoutCPUGate is passed, the host processor
// is validated first and ErrUnsupportedCPU returned when it is not AMD Zen 5.
func New(opts ...Option) (*Mapper, error) {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}

	if o.cpuGate {
		if err := cpugate.Check(); err != nil {
			o.logger.Error("host cpu rejected", "error", err)
			return nil, fmt.Errorf("%w: %w", ErrUnsupportedCPU, err)
		}
		id := cpugate.HostIdentity()
		o.logger.Info("host cpu validated",
			"brand", id.Brand,
			"family", fmt.Sprintf("0x%X", id.Family),
			"model", fmt.Sprintf("0x%X", id.Model),
		)
	}
	o.logger.Debug("cpu capabilities",
		"avx2", cpu.X86.HasAVX2,
		"avx512", cpu.X86.HasAVX512F && cpu.X86.HasAVX512BW,
	)

	m := &Mapper{
		opts: o,
		trk:  tracker.New(),
	}
	m.engine = &hugealloc.Engine{
		ChunkSize:   o.chunkSize,
		DisableHuge: o.disableHuge,
		Controller: resource.NewController(resource.Config{
			MaxConcurrentLoads: o.maxConcurrentLoads,
			IOLimitBytesPerSec: o.populateRateLimit,
		}),
		Logger: o.logger.Logger,
	}
	return m, nil
}

// Mmap maps length bytes of fd at offset, with unix.Mmap parameter and
// result conventions. Accepted requests return a huge-page-backed anonymous
// region holding the file's bytes; everything else is the real primitive's
// result, unchanged.
func (m *Mapper) Mmap(fd int, offset int64, length int, prot, flags int) ([]byte, error) {
	p := resolver.Get()

	req := policy.Request{FD: fd, Offset: offset, Length: length}
	reason := policy.ReasonAnonymous
	if fd >= 0 {
		if size, ok := fileSize(p, fd); ok {
			var accept bool
			accept, reason = policy.Decide(req, size, m.opts.threshold)
			if accept {
				return m.redirect(fd, offset, length, prot)
			}
		} else {
			// Metadata query failed. Never fail the caller's request over
			// an internal error; forward instead.
			reason = "fstat failed"
		}
	}

	m.stats.forwarded.Add(1)
	m.opts.logger.LogForward(fd, length, string(reason))
	return p.Mmap(fd, offset, length, prot, flags)
}

func (m *Mapper) redirect(fd int, offset int64, length int, prot int) ([]byte, error) {
	region, huge, err := m.engine.Allocate(length, prot, fd, offset)
	if err != nil {
		if errors.Is(err, hugealloc.ErrPopulate) {
			// A corrupted or partial region must never look like success.
			return nil, fmt.Errorf("%w: %w", ErrPopulateFailed, err)
		}
		// Both reservations failed; the chain carries the primitive's errno.
		return nil, fmt.Errorf("%w: %w", ErrAllocationFailed, err)
	}

	m.trk.Record(uintptr(unsafe.Pointer(&region[0])), length)

	m.stats.intercepted.Add(1)
	m.stats.bytesPopulated.Add(uint64(length))
	if huge {
		m.stats.hugeRegions.Add(1)
	} else {
		m.stats.fallbackRegions.Add(1)
	}
	m.opts.logger.LogIntercept(fd, length, huge)

	return region, nil
}

// Munmap releases b. If b's base address is tracked, the recorded length is
// released rather than len(b), which the caller may have truncated or
// re-sliced. The entry is removed even when the underlying release fails, so
// a failed release can never be retried against a stale entry. Untracked
// addresses are forwarded unchanged.
func (m *Mapper) Munmap(b []byte) error {
	p := resolver.Get()
	if len(b) == 0 {
		return p.Munmap(b)
	}

	addr := uintptr(unsafe.Pointer(&b[0]))
	if length, ok := m.trk.Take(addr); ok {
		full := b
		if len(b) != length {
			full = unsafe.Slice((*byte)(unsafe.Pointer(addr)), length)
		}
		m.stats.trackedReleases.Add(1)
		m.opts.logger.LogRelease(true, length)
		return p.Munmap(full)
	}

	m.opts.logger.LogRelease(false, len(b))
	return p.Munmap(b)
}

// Close releases every region still tracked. It is the process-detach hook;
// after Close the Mapper forwards everything.
func (m *Mapper) Close() error {
	p := resolver.Get()
	regions := m.trk.Drain()

	var bytes int64
	for _, r := range regions {
		bytes += int64(r.Length)
	}
	m.opts.logger.LogDrain(len(regions), bytes)

	var firstErr error
	for _, r := range regions {
		b := unsafe.Slice((*byte)(unsafe.Pointer(r.Addr)), r.Length)
		if err := p.Munmap(b); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Stats returns a snapshot of mapper activity.
func (m *Mapper) Stats() Snapshot {
	s := m.stats.snapshot()
	s.LiveRegions = m.trk.Len()
	s.LiveBytes = m.trk.Bytes()
	return s
}

func fileSize(p *resolver.Primitives, fd int) (int64, bool) {
	var st unix.Stat_t
	if err := p.Fstat(fd, &st); err != nil {
		return 0, false
	}
	return st.Size, true
}

// Package-level default mapper.
var defaultMapper atomic.Pointer[Mapper]

// Init installs the process-wide Mapper. Until Init succeeds, the package
// functions forward every request to the real primitives.
func Init(opts ...Option) error {
	if defaultMapper.Load() != nil {
		return errors.New("hugemap: already initialized")
	}
	m, err := New(opts...)
	if err != nil {
		return err
	}
	if !defaultMapper.CompareAndSwap(nil, m) {
		return errors.New("hugemap: already initialized")
	}
	return nil
}

// MustInit is Init, but terminates the process with a diagnostic when the
// host is unsupported or initialization fails.
func MustInit(opts ...Option) {
	if err := Init(opts...); err != nil {
		fmt.Fprintf(os.Stderr, "hugemap: fatal: %v\n", err)
		os.Exit(1)
	}
}

// Shutdown drains and releases every tracked region of the process-wide
// Mapper and uninstalls it.
func Shutdown() error {
	m := defaultMapper.Swap(nil)
	if m == nil {
		return ErrNotInitialized
	}
	return m.Close()
}

// Mmap is the process-wide Map entry point. Drop-in for unix.Mmap.
func Mmap(fd int, offset int64, length int, prot, flags int) ([]byte, error) {
	if m := defaultMapper.Load(); m != nil {
		return m.Mmap(fd, offset, length, prot, flags)
	}
	return resolver.Get().Mmap(fd, offset, length, prot, flags)
}

// Munmap is the process-wide Unmap entry point. Drop-in for unix.Munmap.
func Munmap(b []byte) error {
	if m := defaultMapper.Load(); m != nil {
		return m.Munmap(b)
	}
	return resolver.Get().Munmap(b)
}

// Stats returns the process-wide Mapper's activity snapshot. The zero
// Snapshot is returned when hugemap is not initialized.
func Stats() Snapshot {
	if m := defaultMapper.Load(); m != nil {
		return m.Stats()
	}
	return Snapshot{}
}
