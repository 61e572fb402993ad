package engine

import "github.com/intel/compute-runtime-sub069/internal/ir"

// CapabilityTable is the set of mutation kinds a device supports. It is
// read once from the device and passed to Open; it never changes.
type CapabilityTable struct {
	Device    string
	Supported ir.MutationFlags
}

// Supports reports whether every kind in flags is supported.
func (c CapabilityTable) Supports(flags ir.MutationFlags) bool {
	return c.Supported.Has(flags)
}

// Grant resolves a requested mask against the device.
//
// A zero mask stands for every kind except KernelInstruction and is clamped
// to what the device supports. Any other mask must be fully supported.
func (c CapabilityTable) Grant(requested ir.MutationFlags) (ir.MutationFlags, error) {
	if requested == 0 {
		return ir.DefaultMutations & c.Supported, nil
	}
	if unknown := requested &^ ir.AllMutations; unknown != 0 {
		return 0, newError(ErrCodeUnsupportedMutation, 0, "unknown mutation bits %s", unknown)
	}
	if missing := c.Supported.Missing(requested); missing != 0 {
		return 0, newError(ErrCodeUnsupportedMutation, 0,
			"device %s does not support %s", c.deviceName(), missing).
			withDetail("supported", c.Supported.String())
	}
	return requested, nil
}

func (c CapabilityTable) deviceName() string {
	if c.Device == "" {
		return "<unnamed>"
	}
	return c.Device
}

// Payload describes the table as a journal payload.
func (c CapabilityTable) Payload() ir.Object {
	names := c.Supported.Names()
	arr := make(ir.Array, len(names))
	for i, n := range names {
		arr[i] = ir.String(n)
	}
	return ir.Object{"device": ir.String(c.Device), "supported": arr}
}
