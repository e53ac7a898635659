//go:build unix && !linux

package hugealloc

// No portable huge-page flag outside Linux; reservation degrades to a plain
// anonymous mapping.
const mapHugeTLB = 0
