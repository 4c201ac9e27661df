package cpu

// raiseTrap enters the trap handler, spec.md 4.3 steps 1-6. mepcVal is
// the pc to save: the faulting instruction's pc for synchronous
// exceptions, or the pc of the not-yet-executed instruction for
// interrupts (the step loop takes them at an iteration boundary before
// fetch, so it is simply the current pc).
func (s *State) raiseTrap(cause, tval uint32, isInterrupt bool, mepcVal uint32) {
	if isInterrupt {
		s.MCause = cause | InterruptBit
	} else {
		s.MCause = cause
	}
	s.MTval = tval
	s.MEPC = mepcVal

	mie := (s.MStatus & mstatusMIE) != 0
	s.MStatus &^= mstatusMPIE
	if mie {
		s.MStatus |= mstatusMPIE
	}
	s.MStatus &^= mstatusMIE
	s.MStatus = (s.MStatus &^ mstatusMPPMask) | (uint32(s.Priv) << mstatusMPPShift)

	s.Priv = PrivMachine
	s.Reservation = Reservation{}
	// Vectored mode is not implemented; direct mode only.
	s.PC = s.MTvec &^ 0b11
}

// mret is the inverse of raiseTrap: restore privilege from MPP, MIE
// from MPIE, set MPIE and clear MPP to U, and resume at mepc.
func (s *State) mret() {
	mpie := (s.MStatus & mstatusMPIE) != 0
	mpp := Priv((s.MStatus & mstatusMPPMask) >> mstatusMPPShift)

	s.MStatus &^= mstatusMIE
	if mpie {
		s.MStatus |= mstatusMIE
	}
	s.MStatus |= mstatusMPIE
	s.MStatus &^= mstatusMPPMask // MPP <- U

	s.Priv = mpp
	s.PC = s.MEPC
}

// pendingInterrupt reports whether an interrupt should be delivered
// right now and, if so, its cause bit index. Priority follows the
// standard RISC-V ordering restricted to the two interrupts this core
// models: software before timer (spec.md 4.3).
func (s *State) pendingInterrupt() (bool, uint32) {
	globallyEnabled := s.Priv != PrivMachine || (s.MStatus&mstatusMIE) != 0
	if !globallyEnabled {
		return false, 0
	}
	active := s.MIE & s.MIP
	if active&(1<<IntMSI) != 0 {
		return true, IntMSI
	}
	if active&(1<<IntMTI) != 0 {
		return true, IntMTI
	}
	return false, 0
}
