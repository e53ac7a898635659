//go:build unix

// Package resolver binds the platform's real memory primitives exactly once
// per process and hands them out as plain function values.
//
// Everything in this library reaches the kernel through the bound set, never
// through golang.org/x/sys/unix directly. That keeps the binding in one place
// and lets tests substitute failing primitives without touching real memory.
package resolver

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Primitives is an immutable set of the real mapping primitives.
// Once bound, the set never changes for the lifetime of the process.
type Primitives struct {
	Mmap     func(fd int, offset int64, length int, prot int, flags int) ([]byte, error)
	Munmap   func(b []byte) error
	Mprotect func(b []byte, prot int) error
	Pread    func(fd int, p []byte, offset int64) (int, error)
	Fstat    func(fd int, stat *unix.Stat_t) error
}

var (
	once    sync.Once
	current atomic.Pointer[Primitives]
)

func platform() *Primitives {
	return &Primitives{
		Mmap:     unix.Mmap,
		Munmap:   unix.Munmap,
		Mprotect: unix.Mprotect,
		Pread:    unix.Pread,
		Fstat:    unix.Fstat,
	}
}

// Get returns the bound primitive set, binding the platform defaults on first
// use. Concurrent first calls observe the same fully-bound set; no caller can
// see a partially-initialized value.
func Get() *Primitives {
	once.Do(func() {
		current.CompareAndSwap(nil, platform())
	})
	return current.Load()
}

// SetForTest installs p as the bound set and returns a func that restores the
// previous binding. Test use only.
func SetForTest(p *Primitives) (restore func()) {
	prev := Get()
	current.Store(p)
	return func() { current.Store(prev) }
}
