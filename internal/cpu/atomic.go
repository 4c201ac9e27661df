package cpu

// AMO funct5 values (ir bits 31:27), word width only (funct3 must be 2).
const (
	amoADD    = 0x00
	amoSWAP   = 0x01
	amoLR     = 0x02
	amoSC     = 0x03
	amoXOR    = 0x04
	amoOR     = 0x08
	amoMIN    = 0x10
	amoMAX    = 0x14
	amoMINU   = 0x18
	amoMAXU   = 0x1C
	amoAND    = 0x0C
)

// execAMO implements LR.W/SC.W and the unconditional read-modify-write
// AMOs (spec.md 4.2). AMOs to a non-RAM address raise an access fault
// rather than attempting the MMIO side effect (spec.md 9, the "AMO to
// MMIO" open question resolved in favor of raising 5/7).
func (s *State) execAMO(bus Bus, ir uint32) (trapped bool, cause, tval uint32, exit bool, code ExitCode) {
	if funct3(ir) != 2 {
		return true, CauseIllegalInstr, ir, false, 0
	}
	addr := s.Regs[rs1(ir)]
	r := rd(ir)

	if addr&0b11 != 0 {
		return true, CauseStoreMisaligned, addr, false, 0
	}
	if !bus.InRAM(addr) {
		return true, CauseStoreAccessFault, addr, false, 0
	}

	f5 := funct5(ir)

	if f5 == amoLR {
		v, f := bus.LoadWord(addr)
		if f != FaultNone {
			return true, loadCause(f), addr, false, 0
		}
		s.Reservation = Reservation{Valid: true, Addr: addr}
		s.setReg(r, v)
		return false, 0, 0, false, 0
	}

	if f5 == amoSC {
		rs2v := s.Regs[rs2(ir)]
		if s.Reservation.Valid && s.Reservation.Addr == addr {
			res := bus.StoreWord(addr, rs2v)
			s.Reservation = Reservation{}
			if res.Fault != FaultNone {
				return true, storeCause(res.Fault), addr, false, 0
			}
			s.setReg(r, 0)
			return false, 0, 0, res.Exit, res.ExitCode
		}
		s.Reservation = Reservation{}
		s.setReg(r, 1)
		return false, 0, 0, false, 0
	}

	old, f := bus.LoadWord(addr)
	if f != FaultNone {
		return true, loadCause(f), addr, false, 0
	}
	rs2v := s.Regs[rs2(ir)]
	var newVal uint32
	switch f5 {
	case amoSWAP:
		newVal = rs2v
	case amoADD:
		newVal = old + rs2v
	case amoAND:
		newVal = old & rs2v
	case amoOR:
		newVal = old | rs2v
	case amoXOR:
		newVal = old ^ rs2v
	case amoMAX:
		newVal = uint32(maxI32(int32(old), int32(rs2v)))
	case amoMIN:
		newVal = uint32(minI32(int32(old), int32(rs2v)))
	case amoMAXU:
		newVal = maxU32(old, rs2v)
	case amoMINU:
		newVal = minU32(old, rs2v)
	default:
		return true, CauseIllegalInstr, ir, false, 0
	}

	res := bus.StoreWord(addr, newVal)
	if res.Fault != FaultNone {
		return true, storeCause(res.Fault), addr, false, 0
	}
	s.setReg(r, old)
	return false, 0, 0, res.Exit, res.ExitCode
}

func maxI32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

func minI32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
