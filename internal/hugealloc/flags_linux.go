//go:build linux

package hugealloc

import "golang.org/x/sys/unix"

const mapHugeTLB = unix.MAP_HUGETLB
