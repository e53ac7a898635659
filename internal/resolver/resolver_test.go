//go:build unix

package resolver

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_Bound(t *testing.T) {
	p := Get()
	require.NotNil(t, p)
	assert.NotNil(t, p.Mmap)
	assert.NotNil(t, p.Munmap)
	assert.NotNil(t, p.Mprotect)
	assert.NotNil(t, p.Pread)
	assert.NotNil(t, p.Fstat)
}

func TestGet_ConcurrentFirstUse(t *testing.T) {
	const n = 32
	results := make([]*Primitives, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			results[i] = Get()
		}()
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NotNil(t, results[i])
		assert.Same(t, results[0], results[i])
	}
}

func TestSetForTest_Restore(t *testing.T) {
	orig := Get()

	fake := &Primitives{}
	restore := SetForTest(fake)
	assert.Same(t, fake, Get())

	restore()
	assert.Same(t, orig, Get())
}
