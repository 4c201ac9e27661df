package cpu

// Fault classifies why a memory accessor could not complete a Load or
// Store. Which trap cause it maps to depends on whether the access was
// a load or a store (spec.md 4.1/4.2/7): Access -> 1/5/7, Misaligned -> 4/6.
type Fault uint8

const (
	FaultNone Fault = iota
	FaultAccess
	FaultMisaligned
)

// StoreResult is returned by every Bus store method. Exit signals that
// the step loop must end the current batch with ExitCode, matching the
// SYSCON contract (spec.md 4.1): a store to 0x11100000 ends the batch
// after the store (and the normal pc advance) completes.
type StoreResult struct {
	Fault    Fault
	Exit     bool
	ExitCode ExitCode
}

// Bus is the host contract the decoder executes loads, stores and
// instruction fetches through (spec.md Section 6). A Bus implementation
// owns the classification of an address into RAM vs. MMIO (C1/C7); the
// decoder only ever sees Fault/StoreResult outcomes.
type Bus interface {
	// InRAM reports whether addr lies in the guest RAM image. Used by
	// the atomic-op path to reject AMOs to non-RAM addresses outright
	// (spec.md 9, "AMO to MMIO" resolution) without risking a SYSCON
	// side effect from an AMO's read-modify-write.
	InRAM(addr uint32) bool

	Fetch(addr uint32) (word uint32, fault Fault)

	LoadByte(addr uint32) (v uint32, fault Fault)
	LoadHalf(addr uint32) (v uint32, fault Fault)
	LoadWord(addr uint32) (v uint32, fault Fault)

	StoreByte(addr, val uint32) StoreResult
	StoreHalf(addr, val uint32) StoreResult
	StoreWord(addr, val uint32) StoreResult

	// OtherCSRRead/OtherCSRWrite are the host-delegated CSR hooks for
	// any CSR number this core does not implement directly.
	OtherCSRRead(num uint32) uint32
	OtherCSRWrite(num uint32, val uint32)
}
