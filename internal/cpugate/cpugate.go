// Package cpugate validates the host processor at process attach.
//
// The library's population strategy is tuned for AMD Zen 5 (family 0x1A);
// the gate refuses to run anywhere else. All models of the family are
// accepted.
package cpugate

import (
	"fmt"

	"github.com/klauspost/cpuid/v2"
)

// SupportedFamily is the AMD display family the gate accepts (Zen 5).
const SupportedFamily = 0x1A

// Identity is the subset of processor identification the gate inspects.
type Identity struct {
	VendorAMD bool
	Family    int
	Model     int
	Brand     string
}

// HostIdentity reads the running processor's identification.
func HostIdentity() Identity {
	return Identity{
		VendorAMD: cpuid.CPU.VendorID == cpuid.AMD,
		Family:    cpuid.CPU.Family,
		Model:     cpuid.CPU.Model,
		Brand:     cpuid.CPU.BrandName,
	}
}

// Check validates the host processor. The returned error names what was
// found, suitable for a fatal diagnostic.
func Check() error {
	return check(HostIdentity())
}

func check(id Identity) error {
	if !id.VendorAMD {
		return fmt.Errorf("cpugate: CPU is not AMD (found %q)", id.Brand)
	}
	if id.Family != SupportedFamily {
		return fmt.Errorf("cpugate: AMD family 0x%X is not Zen 5 (family 0x%X); supported: Ryzen 9000 series, Ryzen AI 300 series",
			id.Family, SupportedFamily)
	}
	return nil
}
