package cpu

// Opcode field values (ir bits 6:0).
const (
	opLUI    = 0x37
	opAUIPC  = 0x17
	opJAL    = 0x6F
	opJALR   = 0x67
	opBranch = 0x63
	opLoad   = 0x03
	opStore  = 0x23
	opImm    = 0x13
	opOp     = 0x33
	opFence  = 0x0F
	opSystem = 0x73
	opAMO    = 0x2F
)

func opcode(ir uint32) uint32 { return ir & 0x7F }
func rd(ir uint32) uint32     { return (ir >> 7) & 0x1F }
func funct3(ir uint32) uint32 { return (ir >> 12) & 0x7 }
func rs1(ir uint32) uint32    { return (ir >> 15) & 0x1F }
func rs2(ir uint32) uint32    { return (ir >> 20) & 0x1F }
func funct7(ir uint32) uint32 { return (ir >> 25) & 0x7F }
func funct5(ir uint32) uint32 { return (ir >> 27) & 0x1F }

// immI sign-extends the I-type immediate (ir bits 31:20).
func immI(ir uint32) uint32 {
	return signExtend(ir>>20, 12)
}

// immS sign-extends the S-type immediate.
func immS(ir uint32) uint32 {
	v := ((ir >> 25) << 5) | rd(ir)
	return signExtend(v, 12)
}

// immB sign-extends the B-type (branch) immediate.
func immB(ir uint32) uint32 {
	v := (((ir >> 31) & 1) << 12) |
		(((ir >> 7) & 1) << 11) |
		(((ir >> 25) & 0x3F) << 5) |
		(((ir >> 8) & 0xF) << 1)
	return signExtend(v, 13)
}

// immU returns the U-type immediate, already shifted into bits 31:12.
func immU(ir uint32) uint32 {
	return ir & 0xFFFFF000
}

// immJ sign-extends the J-type (JAL) immediate.
func immJ(ir uint32) uint32 {
	v := (((ir >> 31) & 1) << 20) |
		(((ir >> 12) & 0xFF) << 12) |
		(((ir >> 20) & 1) << 11) |
		(((ir >> 21) & 0x3FF) << 1)
	return signExtend(v, 21)
}

// csrNum returns the 12-bit CSR number (I-type imm field, unsigned).
func csrNum(ir uint32) uint32 {
	return ir >> 20
}

// signExtend sign-extends the low `bits` bits of v to a full uint32.
func signExtend(v uint32, bits uint) uint32 {
	shift := 32 - bits
	return uint32(int32(v<<shift) >> shift)
}
