package cpu_test

import (
	"testing"

	"github.com/daniilfigasystems/mini-rv32ima/internal/cpu"
	"github.com/daniilfigasystems/mini-rv32ima/internal/memory"
	"github.com/daniilfigasystems/mini-rv32ima/internal/mmio"
)

// --- tiny RV32 encoder helpers, just enough for the scenarios below ---

func rType(funct7, rs2, rs1, funct3, rd, opcode uint32) uint32 {
	return funct7<<25 | rs2<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func iType(imm, rs1, funct3, rd, opcode uint32) uint32 {
	return (imm&0xFFF)<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func sType(imm, rs2, rs1, funct3, opcode uint32) uint32 {
	return ((imm>>5)&0x7F)<<25 | rs2<<20 | rs1<<15 | funct3<<12 | (imm&0x1F)<<7 | opcode
}

func uType(imm20, rd, opcode uint32) uint32 {
	return (imm20&0xFFFFF)<<12 | rd<<7 | opcode
}

func addi(rd, rs1 uint32, imm int32) uint32 {
	return iType(uint32(imm), rs1, 0, rd, 0x13)
}

func lui(rd, imm20 uint32) uint32 { return uType(imm20, rd, 0x37) }

func ebreak() uint32 { return iType(1, 0, 0, 0, 0x73) }

func lrw(rd, rs1 uint32) uint32            { return rType(0x02<<2, 0, rs1, 2, rd, 0x2F) }
func scw(rd, rs1, rs2 uint32) uint32       { return rType(0x03<<2, rs2, rs1, 2, rd, 0x2F) }
func sw(rs1, rs2 uint32, imm int32) uint32 { return sType(uint32(imm), rs2, rs1, 2, 0x23) }

func newMachine(t *testing.T, ramSize uint32) (*cpu.State, *mmio.Dispatcher, *fakeConsole) {
	t.Helper()
	ram := memory.New(ramSize)
	con := &fakeConsole{}
	s := &cpu.State{}
	s.Reset(memory.RAMOffset, 0)
	d := &mmio.Dispatcher{
		RAM:     ram,
		Console: con,
		Clock: mmio.Clock{
			CycleL: &s.CycleL, CycleH: &s.CycleH,
			TimerMatchL: &s.TimerMatchL, TimerMatchH: &s.TimerMatchH,
		},
	}
	return s, d, con
}

type fakeConsole struct {
	written []byte
	in      []byte
}

func (f *fakeConsole) WriteByte(b byte) { f.written = append(f.written, b) }
func (f *fakeConsole) HasInput() bool   { return len(f.in) > 0 }
func (f *fakeConsole) ReadByte() (byte, bool) {
	if len(f.in) == 0 {
		return 0, false
	}
	b := f.in[0]
	f.in = f.in[1:]
	return b, true
}

func loadProgram(ram *memory.Image, base uint32, words []uint32) {
	for i, w := range words {
		ram.WriteWord(base+uint32(i*4), w)
	}
}

func TestADDIChainAndEbreak(t *testing.T) {
	s, d, _ := newMachine(t, 4096)
	loadProgram(d.RAM, memory.RAMOffset, []uint32{
		addi(1, 0, 1),
		addi(1, 1, 2),
		addi(1, 1, 3),
		ebreak(),
	})
	s.MTvec = memory.RAMOffset + 0x1000

	for i := 0; i < 4; i++ {
		s.Step(d, 0, 1)
	}

	if s.Regs[1] != 6 {
		t.Errorf("x1 = %d, want 6", s.Regs[1])
	}
	if s.MCause != cpu.CauseBreakpoint {
		t.Errorf("mcause = %d, want %d", s.MCause, cpu.CauseBreakpoint)
	}
	if s.MEPC != memory.RAMOffset+0x0C {
		t.Errorf("mepc = %#x, want %#x", s.MEPC, memory.RAMOffset+0x0C)
	}
	if s.PC != s.MTvec {
		t.Errorf("pc = %#x, want mtvec %#x", s.PC, s.MTvec)
	}
}

func TestRegisterZeroAlwaysZero(t *testing.T) {
	s, d, _ := newMachine(t, 4096)
	loadProgram(d.RAM, memory.RAMOffset, []uint32{addi(0, 0, 5)})
	s.Step(d, 0, 1)
	if s.Regs[0] != 0 {
		t.Errorf("x0 = %d, want 0", s.Regs[0])
	}
}

func TestUARTEchoViaStep(t *testing.T) {
	s, d, con := newMachine(t, 4096)
	loadProgram(d.RAM, memory.RAMOffset, []uint32{
		lui(2, 0x10000), // x2 = 0x10000000 (UART data register)
		addi(1, 0, 0x41),
		sw(2, 1, 0),
	})
	code := s.Step(d, 0, 3)
	if code != cpu.ExitOK {
		t.Fatalf("exit code = %d, want ExitOK", code)
	}
	if len(con.written) != 1 || con.written[0] != 0x41 {
		t.Fatalf("console did not see echoed byte: %+v", con.written)
	}
}

func TestTimerInterrupt(t *testing.T) {
	s, d, _ := newMachine(t, 4096)
	loadProgram(d.RAM, memory.RAMOffset, []uint32{addi(1, 0, 0)}) // NOP-ish filler
	s.MTvec = memory.RAMOffset + 0x1000
	s.MStatus |= 1 << 3 // MIE
	s.MIE |= 1 << cpu.IntMTI
	s.TimerMatchL = 10
	s.TimerMatchH = 0

	code := s.Step(d, 100, 1)
	if code != cpu.ExitOK {
		t.Fatalf("exit code = %v, want ExitOK", code)
	}
	if s.MCause != (cpu.InterruptBit | cpu.IntMTI) {
		t.Errorf("mcause = %#x, want %#x", s.MCause, cpu.InterruptBit|uint32(cpu.IntMTI))
	}
	if s.PC != s.MTvec {
		t.Errorf("pc = %#x, want mtvec %#x", s.PC, s.MTvec)
	}
	if s.MStatus&(1<<3) != 0 {
		t.Error("mstatus.MIE should be cleared after trap entry")
	}
	if s.MStatus&(1<<7) == 0 {
		t.Error("mstatus.MPIE should be set after trap entry")
	}
}

func TestWFIIdle(t *testing.T) {
	s, d, _ := newMachine(t, 4096)
	loadProgram(d.RAM, memory.RAMOffset, []uint32{0x10500073}) // WFI
	s.MStatus |= 1 << 3
	code := s.Step(d, 0, 1)
	if code != cpu.ExitIdle {
		t.Fatalf("exit code = %v, want ExitIdle", code)
	}
	if !s.WFI {
		t.Error("expected WFI flag set")
	}
	pcAfterWFI := s.PC
	cyclesAfterWFI := s.Cycles()

	code = s.Step(d, 0, 1)
	if code != cpu.ExitIdle {
		t.Fatalf("second step exit code = %v, want ExitIdle", code)
	}
	if s.PC != pcAfterWFI {
		t.Errorf("pc advanced during idle: %#x -> %#x", pcAfterWFI, s.PC)
	}
	if s.Cycles() != cyclesAfterWFI {
		t.Errorf("cycles advanced during idle: %d -> %d", cyclesAfterWFI, s.Cycles())
	}
}

func TestSysconPoweroff(t *testing.T) {
	s, d, _ := newMachine(t, 4096)
	loadProgram(d.RAM, memory.RAMOffset, []uint32{
		lui(2, 0x11100),   // x2 = 0x11100000 (SYSCON register)
		lui(1, 0x5),       // x1 = 0x5000
		addi(1, 1, 0x555), // x1 = 0x5555
		sw(2, 1, 0),
	})
	pcBeforeStore := uint32(memory.RAMOffset + 3*4)
	code := s.Step(d, 0, 4)
	if code != cpu.ExitCode(0x5555) {
		t.Fatalf("exit code = %#x, want 0x5555", uint32(code))
	}
	if s.PC != pcBeforeStore+4 {
		t.Errorf("pc = %#x, want %#x (pc advances past the store before exit)", s.PC, pcBeforeStore+4)
	}
}

func TestLRSCSuccess(t *testing.T) {
	s, d, _ := newMachine(t, 4096)
	loadProgram(d.RAM, memory.RAMOffset, []uint32{
		lrw(5, 10),
		scw(6, 10, 1),
	})
	s.Regs[10] = memory.RAMOffset + 0x100
	s.Regs[1] = 0xDEADBEEF
	d.RAM.WriteWord(memory.RAMOffset+0x100, 0)

	s.Step(d, 0, 2)

	if s.Regs[5] != 0 {
		t.Errorf("x5 (LR result) = %#x, want 0", s.Regs[5])
	}
	if s.Regs[6] != 0 {
		t.Errorf("x6 (SC result) = %#x, want 0 (success)", s.Regs[6])
	}
	if got := d.RAM.ReadWord(memory.RAMOffset + 0x100); got != 0xDEADBEEF {
		t.Errorf("memory = %#x, want 0xdeadbeef", got)
	}
	if s.Reservation.Valid {
		t.Error("reservation should be cleared after SC")
	}
}

func TestSCFailsAfterTrap(t *testing.T) {
	s, d, _ := newMachine(t, 0x4000)
	loadProgram(d.RAM, memory.RAMOffset, []uint32{
		lrw(5, 10),
		ebreak(),
		scw(6, 10, 1),
	})
	s.Regs[10] = memory.RAMOffset + 0x100
	s.Regs[1] = 0xCAFEBABE
	d.RAM.WriteWord(memory.RAMOffset+0x100, 0x1234)
	s.MTvec = memory.RAMOffset + 0x2000
	d.RAM.WriteWord(s.MTvec, scw(6, 10, 1))

	s.Step(d, 0, 1) // LR.W
	s.Step(d, 0, 1) // EBREAK -> trap, invalidates reservation
	s.Step(d, 0, 1) // SC.W at mtvec, should fail

	if s.Regs[6] != 1 {
		t.Errorf("x6 (SC result) = %d, want 1 (failure)", s.Regs[6])
	}
	if got := d.RAM.ReadWord(memory.RAMOffset + 0x100); got != 0x1234 {
		t.Errorf("memory changed after failed SC: %#x", got)
	}
}

func TestDivByZero(t *testing.T) {
	s, d, _ := newMachine(t, 4096)
	loadProgram(d.RAM, memory.RAMOffset, []uint32{
		rType(0x01, 2, 1, 5, 3, 0x33), // divu x3, x1, x2
		rType(0x01, 2, 1, 7, 4, 0x33), // remu x4, x1, x2
	})
	s.Regs[1] = 42
	s.Regs[2] = 0
	s.Step(d, 0, 2)
	if s.Regs[3] != 0xFFFFFFFF {
		t.Errorf("divu by zero = %#x, want 0xffffffff", s.Regs[3])
	}
	if s.Regs[4] != 42 {
		t.Errorf("remu by zero = %d, want 42", s.Regs[4])
	}
}

func TestDivOverflow(t *testing.T) {
	s, d, _ := newMachine(t, 4096)
	loadProgram(d.RAM, memory.RAMOffset, []uint32{
		rType(0x01, 2, 1, 4, 3, 0x33), // div x3, x1, x2
		rType(0x01, 2, 1, 6, 4, 0x33), // rem x4, x1, x2
	})
	s.Regs[1] = 0x80000000
	s.Regs[2] = 0xFFFFFFFF
	s.Step(d, 0, 2)
	if s.Regs[3] != 0x80000000 {
		t.Errorf("div overflow = %#x, want 0x80000000", s.Regs[3])
	}
	if s.Regs[4] != 0 {
		t.Errorf("rem overflow = %d, want 0", s.Regs[4])
	}
}

func TestIllegalInstruction(t *testing.T) {
	s, d, _ := newMachine(t, 4096)
	const junk = 0xFFFFFFFF // opcode bits 1111111, not a valid major opcode
	loadProgram(d.RAM, memory.RAMOffset, []uint32{junk})
	s.MTvec = memory.RAMOffset + 0x1000
	s.Step(d, 0, 1)
	if s.MCause != cpu.CauseIllegalInstr {
		t.Errorf("mcause = %d, want %d", s.MCause, cpu.CauseIllegalInstr)
	}
	if s.MTval != junk {
		t.Errorf("mtval = %#x, want %#x", s.MTval, uint32(junk))
	}
	if s.PC != s.MTvec {
		t.Errorf("pc = %#x, want mtvec", s.PC)
	}
}
