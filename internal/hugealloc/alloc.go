//go:build unix

package hugealloc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"github.com/hupe1980/hugemap/internal/resolver"
	"github.com/hupe1980/hugemap/internal/resource"
)

// DefaultChunkSize is the population read size. Large enough to keep the
// disk streaming, small enough to bound transient buffer pressure.
const DefaultChunkSize = 256 << 20 // 256 MiB

const progressInterval = 1 << 30 // log population progress per GiB

// ErrPopulate indicates the backing file could not be copied in full. The
// reservation has already been released when this error is returned.
var ErrPopulate = errors.New("hugealloc: populate failed")

// Engine owns the reserve, populate, narrow sequence for accepted requests.
type Engine struct {
	// ChunkSize overrides DefaultChunkSize when positive.
	ChunkSize int

	// DisableHuge skips the huge-page reservation attempt entirely;
	// every accepted request gets an ordinary anonymous reservation.
	DisableHuge bool

	// Controller limits population admission; nil means unlimited.
	Controller *resource.Controller

	// Logger receives decision-point diagnostics; nil disables them.
	Logger *slog.Logger

	// Prim overrides the process-wide primitive binding. Test use only.
	Prim *resolver.Primitives
}

func (e *Engine) prim() *resolver.Primitives {
	if e.Prim != nil {
		return e.Prim
	}
	return resolver.Get()
}

func (e *Engine) log() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Allocate reserves length bytes of anonymous memory, preferring huge-page
// backing, copies [offset, offset+length) of fd into it, and narrows the
// region's protection to prot when prot excludes write access. The returned
// huge flag reports whether the huge-page reservation succeeded.
//
// On a populate failure the reservation is released before returning; there
// is never anything for the caller to roll back.
func (e *Engine) Allocate(length int, prot int, fd int, offset int64) (region []byte, huge bool, err error) {
	p := e.prim()

	region, huge, err = e.reserve(p, length)
	if err != nil {
		return nil, false, err
	}

	if err := e.populate(p, region, fd, offset); err != nil {
		_ = p.Munmap(region)
		return nil, false, err
	}

	if prot&unix.PROT_WRITE == 0 {
		// Narrowing frequently fails with EINVAL on hugetlb regions.
		// Expected, and the region stays writable; not an error.
		if err := p.Mprotect(region, prot); err != nil {
			e.log().Debug("protection narrow rejected", "error", err)
		}
	}

	return region, huge, nil
}

func (e *Engine) reserve(p *resolver.Primitives, length int) ([]byte, bool, error) {
	prot := unix.PROT_READ | unix.PROT_WRITE
	flags := unix.MAP_PRIVATE | unix.MAP_ANON

	if !e.DisableHuge && mapHugeTLB != 0 {
		b, err := p.Mmap(-1, 0, length, prot, flags|mapHugeTLB)
		if err == nil {
			return b, true, nil
		}
		e.log().Debug("huge-page reserve failed, falling back to anonymous",
			"size", humanize.IBytes(uint64(length)),
			"error", err,
		)
	}

	b, err := p.Mmap(-1, 0, length, prot, flags)
	if err != nil {
		return nil, false, fmt.Errorf("hugealloc: anonymous reserve of %s: %w",
			humanize.IBytes(uint64(length)), err)
	}
	return b, false, nil
}

func (e *Engine) populate(p *resolver.Primitives, region []byte, fd int, offset int64) error {
	chunk := e.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}

	ctx := context.Background()
	if err := e.Controller.AcquireLoad(ctx); err != nil {
		return fmt.Errorf("%w: admission: %w", ErrPopulate, err)
	}
	defer e.Controller.ReleaseLoad()

	length := len(region)
	total := 0
	nextMark := progressInterval

	for total < length {
		n := min(chunk, length-total)
		if err := e.Controller.WaitIO(ctx, n); err != nil {
			return fmt.Errorf("%w: io budget: %w", ErrPopulate, err)
		}

		nr, err := p.Pread(fd, region[total:total+n], offset+int64(total))
		if err != nil {
			return fmt.Errorf("%w: read at %d: %w", ErrPopulate, total, err)
		}
		if nr == 0 {
			return fmt.Errorf("%w: unexpected EOF at %d of %d", ErrPopulate, total, length)
		}
		total += nr

		for total >= nextMark {
			e.log().Info("population progress",
				"loaded", humanize.IBytes(uint64(total)),
				"total", humanize.IBytes(uint64(length)),
			)
			nextMark += progressInterval
		}
	}

	return nil
}
