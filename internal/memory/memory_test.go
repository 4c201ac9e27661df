package memory

import "testing"

func TestInRange(t *testing.T) {
	m := New(1024)
	if !m.InRange(RAMOffset) {
		t.Error("expected base address in range")
	}
	if !m.InRange(RAMOffset + 1023) {
		t.Error("expected last byte in range")
	}
	if m.InRange(RAMOffset + 1024) {
		t.Error("expected one past end to be out of range")
	}
	if m.InRange(RAMOffset - 1) {
		t.Error("expected address below offset to be out of range")
	}
}

func TestWordRoundTrip(t *testing.T) {
	m := New(16)
	m.WriteWord(RAMOffset+4, 0xDEADBEEF)
	if got := m.ReadWord(RAMOffset + 4); got != 0xDEADBEEF {
		t.Errorf("got %#x, want 0xdeadbeef", got)
	}
	// Verify little-endian byte order.
	if got := m.ReadByte(RAMOffset + 4); got != 0xEF {
		t.Errorf("low byte = %#x, want 0xef", got)
	}
	if got := m.ReadByte(RAMOffset + 7); got != 0xDE {
		t.Errorf("high byte = %#x, want 0xde", got)
	}
}

func TestHalfRoundTrip(t *testing.T) {
	m := New(16)
	m.WriteHalf(RAMOffset+2, 0xBEEF)
	if got := m.ReadHalf(RAMOffset + 2); got != 0xBEEF {
		t.Errorf("got %#x, want 0xbeef", got)
	}
}
