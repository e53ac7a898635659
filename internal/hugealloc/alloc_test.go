//go:build unix

package hugealloc

import (
	"crypto/rand"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/hupe1980/hugemap/internal/resolver"
)

// fakeKernel emulates the mapping primitives against an in-memory file, so
// reservation and read failures can be injected deterministically.
type fakeKernel struct {
	file    []byte
	hugeErr error // fail reservations requesting huge pages
	anonErr error // fail plain anonymous reservations
	shortAt int   // pread reports EOF at this offset; -1 disables
	readErr error // pread fails at shortAt instead of reporting EOF
	protErr error

	hugeAttempts int
	anonAttempts int
	released     [][]byte
	narrowed     bool
}

func newFakeKernel(file []byte) *fakeKernel {
	return &fakeKernel{file: file, shortAt: -1}
}

func (k *fakeKernel) prims() *resolver.Primitives {
	return &resolver.Primitives{
		Mmap: func(fd int, offset int64, length int, prot, flags int) ([]byte, error) {
			if mapHugeTLB != 0 && flags&mapHugeTLB != 0 {
				k.hugeAttempts++
				if k.hugeErr != nil {
					return nil, k.hugeErr
				}
			} else {
				k.anonAttempts++
				if k.anonErr != nil {
					return nil, k.anonErr
				}
			}
			return make([]byte, length), nil
		},
		Munmap: func(b []byte) error {
			k.released = append(k.released, b)
			return nil
		},
		Mprotect: func(b []byte, prot int) error {
			if k.protErr != nil {
				return k.protErr
			}
			k.narrowed = true
			return nil
		},
		Pread: func(fd int, p []byte, offset int64) (int, error) {
			if k.shortAt >= 0 && offset >= int64(k.shortAt) {
				if k.readErr != nil {
					return 0, k.readErr
				}
				return 0, nil
			}
			if offset >= int64(len(k.file)) {
				return 0, nil
			}
			return copy(p, k.file[offset:]), nil
		},
		Fstat: func(fd int, st *unix.Stat_t) error {
			st.Size = int64(len(k.file))
			return nil
		},
	}
}

func testFile(t *testing.T, size int) []byte {
	t.Helper()
	b := make([]byte, size)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

func TestEngine_PopulateFidelity(t *testing.T) {
	file := testFile(t, 1<<20)
	k := newFakeKernel(file)
	e := &Engine{ChunkSize: 64 << 10, Prim: k.prims()}

	region, huge, err := e.Allocate(len(file), unix.PROT_READ, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, file, region)
	assert.Equal(t, mapHugeTLB != 0, huge)
	assert.True(t, k.narrowed)
	assert.Empty(t, k.released)
}

func TestEngine_HugePageFallback(t *testing.T) {
	if mapHugeTLB == 0 {
		t.Skip("no huge-page flag on this platform")
	}

	file := testFile(t, 256 << 10)
	k := newFakeKernel(file)
	k.hugeErr = unix.ENOMEM
	e := &Engine{ChunkSize: 64 << 10, Prim: k.prims()}

	region, huge, err := e.Allocate(len(file), unix.PROT_READ, 3, 0)
	require.NoError(t, err)
	assert.False(t, huge)
	assert.Equal(t, 1, k.hugeAttempts)
	assert.Equal(t, 1, k.anonAttempts)
	assert.Equal(t, file, region)
}

func TestEngine_BothReservationsFail(t *testing.T) {
	k := newFakeKernel(testFile(t, 4096))
	k.hugeErr = unix.ENOMEM
	k.anonErr = unix.ENOMEM
	e := &Engine{Prim: k.prims()}

	_, _, err := e.Allocate(4096, unix.PROT_READ, 3, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, unix.ENOMEM)
	assert.NotErrorIs(t, err, ErrPopulate)
	// Nothing was reserved, nothing to roll back.
	assert.Empty(t, k.released)
}

func TestEngine_ShortReadReleasesRegion(t *testing.T) {
	file := testFile(t, 256 << 10)
	k := newFakeKernel(file)
	k.shortAt = 128 << 10
	e := &Engine{ChunkSize: 64 << 10, Prim: k.prims()}

	_, _, err := e.Allocate(len(file), unix.PROT_READ, 3, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPopulate)
	require.Len(t, k.released, 1)
	assert.Equal(t, len(file), len(k.released[0]))
}

func TestEngine_ReadErrorReleasesRegion(t *testing.T) {
	file := testFile(t, 128 << 10)
	k := newFakeKernel(file)
	k.shortAt = 64 << 10
	k.readErr = unix.EIO
	e := &Engine{ChunkSize: 32 << 10, Prim: k.prims()}

	_, _, err := e.Allocate(len(file), unix.PROT_READ, 3, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPopulate)
	assert.ErrorIs(t, err, unix.EIO)
	assert.Len(t, k.released, 1)
}

func TestEngine_NarrowFailureTolerated(t *testing.T) {
	file := testFile(t, 64 << 10)
	k := newFakeKernel(file)
	k.protErr = unix.EINVAL
	e := &Engine{ChunkSize: 16 << 10, Prim: k.prims()}

	region, _, err := e.Allocate(len(file), unix.PROT_READ, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, file, region)
	assert.False(t, k.narrowed)
}

func TestEngine_WritableSkipsNarrow(t *testing.T) {
	file := testFile(t, 16 << 10)
	k := newFakeKernel(file)
	e := &Engine{Prim: k.prims()}

	_, _, err := e.Allocate(len(file), unix.PROT_READ|unix.PROT_WRITE, 3, 0)
	require.NoError(t, err)
	assert.False(t, k.narrowed)
}

func TestEngine_RealKernelRoundTrip(t *testing.T) {
	content := testFile(t, 128<<10)
	f, err := os.CreateTemp(t.TempDir(), "weights")
	require.NoError(t, err)
	_, err = f.Write(content)
	require.NoError(t, err)
	defer f.Close()

	// DisableHuge keeps the region on ordinary pages so the exact-length
	// munmap below is valid even on hosts with a huge-page pool.
	e := &Engine{ChunkSize: 32 << 10, DisableHuge: true}
	region, _, err := e.Allocate(len(content), unix.PROT_READ, int(f.Fd()), 0)
	require.NoError(t, err)
	defer func() { require.NoError(t, unix.Munmap(region)) }()

	assert.Equal(t, content, region)
}
