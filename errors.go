package hugemap

import "errors"

var (
	// ErrAllocationFailed is returned when both the huge-page and the
	// fallback anonymous reservation fail. The primitive's own errno is in
	// the chain and reachable via errors.Is.
	ErrAllocationFailed = errors.New("hugemap: allocation failed")

	// ErrPopulateFailed is returned when the backing file could not be
	// copied in full. The reservation has already been released; nothing
	// leaks and nothing partially populated is ever returned.
	ErrPopulateFailed = errors.New("hugemap: populate failed")

	// ErrUnsupportedCPU is returned by Init when the host processor is not
	// AMD Zen 5 and the CPU gate is enabled.
	ErrUnsupportedCPU = errors.New("hugemap: unsupported cpu")

	// ErrNotInitialized is returned by Shutdown without a prior Init.
	ErrNotInitialized = errors.New("hugemap: not initialized")
)
