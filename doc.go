// Package hugemap transparently upgrades large whole-file read mappings to
// huge-page-backed anonymous memory.
//
// Hugemap is a drop-in front end for the platform's memory-mapping
// primitives: call hugemap.Mmap and hugemap.Munmap with exactly the
// parameters and result conventions of unix.Mmap and unix.Munmap. Mappings
// that look like model-weight loads (file-backed, offset zero, spanning the
// whole file, at least 1 GiB) are redirected to an anonymous huge-page
// reservation that hugemap fills with the file's contents. Every other
// request is forwarded to the real primitive untouched, including failures.
//
// # Quick Start
//
//	if err := hugemap.Init(); err != nil {
//	    log.Fatal(err)
//	}
//	defer hugemap.Shutdown()
//
//	data, err := hugemap.Mmap(fd, 0, size, unix.PROT_READ, unix.MAP_PRIVATE)
//	if err != nil { ... }
//	defer hugemap.Munmap(data)
//
// Or at file level:
//
//	f, err := hugemap.Open("model.gguf")
//	if err != nil { ... }
//	defer f.Close()
//	weights := f.Bytes()
//
// # Release Semantics
//
// Huge-page reservations may not match the length the caller later passes to
// Munmap. Hugemap records every redirected region's true extent and releases
// exactly that, regardless of the slice the caller supplies. A release of an
// untracked region is forwarded unchanged.
//
// # CPU Gate
//
// Init validates the host processor (AMD Zen 5, family 0x1A) and refuses to
// run elsewhere. Pass WithoutCPUGate to disable the check.
//
// # Thread Safety
//
// Mmap and Munmap are safe for concurrent use from any number of goroutines.
// The region registry is guarded by a single mutex; a release issued after
// its allocation returned always observes the tracked entry.
package hugemap
