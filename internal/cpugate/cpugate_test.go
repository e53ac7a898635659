package cpugate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheck_Identity(t *testing.T) {
	tests := []struct {
		name string
		id   Identity
		ok   bool
	}{
		{
			name: "granite ridge",
			id:   Identity{VendorAMD: true, Family: 0x1A, Model: 0x44},
			ok:   true,
		},
		{
			name: "strix point",
			id:   Identity{VendorAMD: true, Family: 0x1A, Model: 0x24},
			ok:   true,
		},
		{
			name: "unknown zen5 model accepted",
			id:   Identity{VendorAMD: true, Family: 0x1A, Model: 0x70},
			ok:   true,
		},
		{
			name: "zen4 rejected",
			id:   Identity{VendorAMD: true, Family: 0x19, Model: 0x61},
			ok:   false,
		},
		{
			name: "intel rejected",
			id:   Identity{VendorAMD: false, Family: 0x6, Model: 0x8E, Brand: "Intel(R) Core(TM)"},
			ok:   false,
		},
		{
			name: "zero identity rejected",
			id:   Identity{},
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := check(tt.id)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
