// Package hugealloc reserves huge-page-backed anonymous memory and populates
// it with a file's contents.
//
// # Why eager population
//
// A file-backed mapping is demand-paged and stuck with the default page size.
// Reserving anonymous memory with huge-page backing and copying the file in
// up front trades a single sequential read for far fewer TLB misses on every
// later access. For multi-gigabyte model weights under random access the
// trade wins decisively.
//
// # Fallback protocol
//
// Huge-page reservation can fail on any machine (no pool configured, pool
// exhausted). The engine retries once with an ordinary anonymous reservation
// of the same length; only when both fail does the caller see an error, and
// it is the primitive's own errno.
//
// A read error or short read during population releases the reservation
// before reporting failure, so no partially-populated region ever escapes.
package hugealloc
