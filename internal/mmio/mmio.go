/*
Package mmio dispatches guest loads and stores below the RAM image to
the fixed device registers spec.md 4.1 defines (UART, CLINT, SYSCON),
accesses inside the RAM image straight through to RAM, and raises an
access fault for addresses above the image. It is this repo's
reference implementation of the host hooks spec.md 6 calls out as
external: control_store, control_load and the CSR delegation pair.
Grounded on the teacher's channel dispatch (emu/sys_channel) and device
interface (emu/device) shape: one place that classifies an address and
forwards to the owning device.

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
package mmio

import (
	"github.com/daniilfigasystems/mini-rv32ima/internal/clint"
	"github.com/daniilfigasystems/mini-rv32ima/internal/cpu"
	"github.com/daniilfigasystems/mini-rv32ima/internal/memory"
)

// MMIO register addresses, spec.md 4.1.
const (
	uartData = 0x10000000
	uartLSR  = 0x10000005
	syscon   = 0x11100000
)

// SYSCON request codes.
const (
	SysconPoweroff = 0x5555
	SysconRestart  = 0x7777
)

// Console is the host UART collaborator (spec.md 4.9): a byte sink/
// source the MMIO dispatcher forwards the 0x10000000 register to.
type Console interface {
	ReadByte() (b byte, ready bool)
	WriteByte(b byte)
	HasInput() bool
}

// Clock is the hart fields the CLINT MMIO registers read and write
// directly: mtime (CycleL/CycleH) and mtimecmp (TimerMatchL/TimerMatchH).
type Clock struct {
	CycleL, CycleH           *uint32
	TimerMatchL, TimerMatchH *uint32
}

// Dispatcher implements cpu.Bus: RAM for in-range addresses, the fixed
// device table below it, and an access fault above it.
type Dispatcher struct {
	RAM     *memory.Image
	Console Console
	Clock   Clock
}

var _ cpu.Bus = (*Dispatcher)(nil)

func (d *Dispatcher) InRAM(addr uint32) bool {
	return d.RAM.InRange(addr)
}

func (d *Dispatcher) Fetch(addr uint32) (uint32, cpu.Fault) {
	if !d.RAM.InRange(addr) {
		return 0, cpu.FaultAccess
	}
	return d.RAM.ReadWord(addr), cpu.FaultNone
}

func (d *Dispatcher) LoadByte(addr uint32) (uint32, cpu.Fault) {
	if d.RAM.InRange(addr) {
		return uint32(d.RAM.ReadByte(addr)), cpu.FaultNone
	}
	if addr >= memory.RAMOffset {
		return 0, cpu.FaultAccess
	}
	return d.controlLoad(addr), cpu.FaultNone
}

func (d *Dispatcher) LoadHalf(addr uint32) (uint32, cpu.Fault) {
	if d.RAM.InRange(addr) {
		if addr&1 != 0 {
			return 0, cpu.FaultMisaligned
		}
		return uint32(d.RAM.ReadHalf(addr)), cpu.FaultNone
	}
	if addr >= memory.RAMOffset {
		return 0, cpu.FaultAccess
	}
	return d.controlLoad(addr), cpu.FaultNone
}

func (d *Dispatcher) LoadWord(addr uint32) (uint32, cpu.Fault) {
	if d.RAM.InRange(addr) {
		if addr&0b11 != 0 {
			return 0, cpu.FaultMisaligned
		}
		return d.RAM.ReadWord(addr), cpu.FaultNone
	}
	if addr >= memory.RAMOffset {
		return 0, cpu.FaultAccess
	}
	return d.controlLoad(addr), cpu.FaultNone
}

func (d *Dispatcher) StoreByte(addr, val uint32) cpu.StoreResult {
	if d.RAM.InRange(addr) {
		d.RAM.WriteByte(addr, byte(val))
		return cpu.StoreResult{}
	}
	return d.store(addr, val)
}

func (d *Dispatcher) StoreHalf(addr, val uint32) cpu.StoreResult {
	if d.RAM.InRange(addr) {
		if addr&1 != 0 {
			return cpu.StoreResult{Fault: cpu.FaultMisaligned}
		}
		d.RAM.WriteHalf(addr, uint16(val))
		return cpu.StoreResult{}
	}
	return d.store(addr, val)
}

func (d *Dispatcher) StoreWord(addr, val uint32) cpu.StoreResult {
	if d.RAM.InRange(addr) {
		if addr&0b11 != 0 {
			return cpu.StoreResult{Fault: cpu.FaultMisaligned}
		}
		d.RAM.WriteWord(addr, val)
		return cpu.StoreResult{}
	}
	return d.store(addr, val)
}

func (d *Dispatcher) store(addr, val uint32) cpu.StoreResult {
	if addr >= memory.RAMOffset {
		return cpu.StoreResult{Fault: cpu.FaultAccess}
	}
	code := d.controlStore(addr, val)
	if code != 0 {
		return cpu.StoreResult{Exit: true, ExitCode: cpu.ExitCode(code)}
	}
	return cpu.StoreResult{}
}

// controlStore is this reference host's control_store hook (spec.md 6).
func (d *Dispatcher) controlStore(addr, val uint32) uint32 {
	switch addr {
	case uartData:
		d.Console.WriteByte(byte(val))
	case clint.MTimeCmpLo:
		*d.Clock.TimerMatchL = val
	case clint.MTimeCmpHi:
		*d.Clock.TimerMatchH = val
	case syscon:
		return val
	}
	return 0
}

// controlLoad is this reference host's control_load hook (spec.md 6).
func (d *Dispatcher) controlLoad(addr uint32) uint32 {
	switch addr {
	case uartData:
		if b, ready := d.Console.ReadByte(); ready {
			return uint32(b)
		}
		return 0
	case uartLSR:
		v := uint32(0x60)
		if d.Console.HasInput() {
			v |= 1
		}
		return v
	case clint.MTimeLo:
		return *d.Clock.CycleL
	case clint.MTimeHi:
		return *d.Clock.CycleH
	}
	return 0
}

func (d *Dispatcher) OtherCSRRead(uint32) uint32    { return 0 }
func (d *Dispatcher) OtherCSRWrite(uint32, uint32)  {}
