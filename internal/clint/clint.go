/*
Package clint holds the core-local interruptor's pure, stateless
logic: the MMIO register addresses (spec.md 4.1) and the 64-bit
mtime/mtimecmp comparison that drives the machine-timer interrupt
(spec.md 4.5). The mutable mtime/mtimecmp state itself lives in the
hart (internal/cpu.State), since the source keeps cycle and CLINT
compare tightly coupled to the hart; this package only supplies the
register addresses the MMIO dispatcher decodes and the comparison the
hart's step loop uses, grounded on the
teacher's cpu.timer.go update-then-compare shape.

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
package clint

// MMIO register addresses, spec.md 4.1.
const (
	MTimeCmpLo = 0x11004000
	MTimeCmpHi = 0x11004004
	MTimeLo    = 0x1100bff8
	MTimeHi    = 0x1100bffc
)

// Ge64 reports whether the 64-bit pair (ah:al) is >= (bh:bl).
func Ge64(ah, al, bh, bl uint32) bool {
	a := uint64(ah)<<32 | uint64(al)
	b := uint64(bh)<<32 | uint64(bl)
	return a >= b
}
