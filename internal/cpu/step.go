package cpu

import "github.com/daniilfigasystems/mini-rv32ima/internal/clint"

// Step performs at most maxInsns instruction retirements, per the
// step-loop contract in spec.md 4.6:
//
//  1. Advance mtime by elapsedUs.
//  2. Recompute the timer-interrupt bit.
//  3. If WFI and no interrupt is pending, return ExitIdle immediately.
//  4. Otherwise retire instructions, delivering any pending interrupt
//     at each iteration boundary (a delivered interrupt uses up one of
//     the maxInsns iterations), until maxInsns is reached or a trap
//     asks to give up (strict mode only), or an instruction requests a
//     batch exit (WFI, SYSCON).
//
// All traps during a batch are resolved inside the batch by redirecting
// to mtvec; only WFI, SYSCON exit codes and the strict-mode give-up
// ever leave the batch early.
func (s *State) Step(bus Bus, elapsedUs uint64, maxInsns int) ExitCode {
	s.setCycles(s.Cycles() + elapsedUs)
	s.updateTimerInterrupt()

	if s.WFI {
		if pending, _ := s.pendingInterrupt(); !pending {
			return ExitIdle
		}
	}

	insnsDone := 0
	for insnsDone < maxInsns {
		if pending, cause := s.pendingInterrupt(); pending {
			s.raiseTrap(cause, 0, true, s.PC)
			s.WFI = false
			insnsDone++
			continue
		}

		if s.PC&0b11 != 0 {
			s.raiseTrap(CauseInstrMisaligned, s.PC, false, s.PC)
			insnsDone++
			s.bumpCycle()
			continue
		}
		ir, fetchFault := bus.Fetch(s.PC)
		if fetchFault != FaultNone {
			if s.Strict {
				return ExitFault
			}
			s.raiseTrap(CauseInstrAccessFault, s.PC, false, s.PC)
			insnsDone++
			s.bumpCycle()
			continue
		}

		nextPC, out := s.execute(bus, ir)

		if out.trapped {
			if s.Strict {
				return ExitFault
			}
			s.raiseTrap(out.cause, out.tval, false, s.PC)
			insnsDone++
			s.bumpCycle()
			continue
		}

		s.PC = nextPC
		insnsDone++
		s.bumpCycle()

		if out.exit {
			return out.code
		}
	}
	return ExitOK
}

// updateTimerInterrupt asserts mip.MTIP when mtime >= mtimecmp and
// mtimecmp != 0, and clears it otherwise (spec.md 4.5). Reprogramming
// mtimecmp is the guest's job; taking the interrupt does not clear it.
func (s *State) updateTimerInterrupt() {
	cmpZero := s.TimerMatchL == 0 && s.TimerMatchH == 0
	if !cmpZero && clint.Ge64(s.CycleH, s.CycleL, s.TimerMatchH, s.TimerMatchL) {
		s.MIP |= 1 << IntMTI
	} else {
		s.MIP &^= 1 << IntMTI
	}
}
