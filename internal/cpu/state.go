/*
Package cpu implements the RV32IMA hart: register file, privilege and
CSR state, the decode/execute loop, trap delivery and the CLINT-facing
timer fields. It mirrors the teacher emulator's cpu package shape (one
package owning fetch/execute/trap/timer) but for the RISC-V ISA
instead of S/370.

Copyright (c) 2024, Richard Cornwell

Permission is hereby granted, free of charge, to any person obtaining a
copy of this software and associated documentation files (the "Software"),
to deal in the Software without restriction, including without limitation
the rights to use, copy, modify, merge, publish, distribute, sublicense,
and/or sell copies of the Software, and to permit persons to whom the
Software is furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL
ROBERT M SUPNIK BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*/
package cpu

// NumRegs is the number of general purpose registers. x0 is hardwired zero.
const NumRegs = 32

// Priv is the current privilege level. This core only ever occupies
// user or machine mode; there is no supervisor mode.
type Priv uint8

const (
	PrivUser    Priv = 0
	PrivMachine Priv = 3
)

// Reservation is the LR/SC reservation set. Using a tagged {valid,addr}
// pair instead of an all-ones sentinel is the cleaner abstraction the
// source's design notes recommend for a rewrite.
type Reservation struct {
	Valid bool
	Addr  uint32
}

// ExitCode is the step loop's batch-completion signal, spec.md 4.6.
type ExitCode uint32

const (
	ExitOK    ExitCode = 0
	ExitIdle  ExitCode = 1
	ExitFault ExitCode = 3
)

// Trap causes actually raised by this core, spec.md Section 7.
const (
	CauseInstrMisaligned  = 0
	CauseInstrAccessFault = 1
	CauseIllegalInstr     = 2
	CauseBreakpoint       = 3
	CauseLoadMisaligned   = 4
	CauseLoadAccessFault  = 5
	CauseStoreMisaligned  = 6
	CauseStoreAccessFault = 7
	CauseUEcall           = 8
	CauseMEcall           = 11

	InterruptBit = uint32(1) << 31
	IntMSI       = 3 // machine software interrupt, mip/mie bit 3
	IntMTI       = 7 // machine timer interrupt, mip/mie bit 7
)

// mstatus bit positions this core interprets.
const (
	mstatusMIE  = 1 << 3
	mstatusMPIE = 1 << 7
	mstatusMPPShift = 11
	mstatusMPPMask  = 0b11 << mstatusMPPShift
)

// State is one hart's architectural state. A single instance models the
// single-hart machine this core supports.
type State struct {
	Regs [NumRegs]uint32
	PC   uint32

	MStatus  uint32
	MTvec    uint32
	MScratch uint32
	MEPC     uint32
	MCause   uint32
	MTval    uint32
	MIE      uint32
	MIP      uint32

	// CycleL/CycleH double as the retired-instruction counter and mtime,
	// matching the source's choice to treat cycle and time as one
	// monotonic counter (spec.md 9, "Cycle == time").
	CycleL uint32
	CycleH uint32

	// TimerMatchL/TimerMatchH is the CLINT mtimecmp register.
	TimerMatchL uint32
	TimerMatchH uint32

	Reservation Reservation
	WFI         bool
	Priv        Priv

	// Strict selects the step loop's fault policy: in strict mode an
	// internal fault that could not be locally recovered aborts the
	// batch (ExitFault); otherwise every trap redirects to mtvec.
	// This replaces the source's post-exec amendment hook, per the
	// recommended re-implementation in spec.md 9.
	Strict bool
}

// Reset restores power-on state: zero registers, pc at the RAM image
// base, hart id 0 in a0, the dtb address in a1, machine mode,
// interrupts disabled, no reservation, not waiting.
func (s *State) Reset(pc, dtbAddr uint32) {
	*s = State{Strict: s.Strict}
	s.PC = pc
	s.Regs[10] = 0 // a0: hart id
	s.Regs[11] = dtbAddr
	s.Priv = PrivMachine
}

// setReg writes rd, silently discarding writes to x0.
func (s *State) setReg(rd uint32, v uint32) {
	if rd != 0 {
		s.Regs[rd] = v
	}
	s.Regs[0] = 0
}

// Cycles returns the 64-bit cyclel:cycleh pair.
func (s *State) Cycles() uint64 {
	return uint64(s.CycleH)<<32 | uint64(s.CycleL)
}

func (s *State) setCycles(v uint64) {
	s.CycleL = uint32(v)
	s.CycleH = uint32(v >> 32)
}

func (s *State) bumpCycle() {
	s.setCycles(s.Cycles() + 1)
}
