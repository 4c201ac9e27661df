/*
Package machine is the H6 host harness component: it owns one hart,
the RAM image and the MMIO dispatcher, loads a guest kernel (and
builds or loads its devicetree blob) before reset, and drives the step
loop from a single goroutine — the run loop shape is grounded on the
teacher's emu/core package (core.Start/core.Stop), adapted from a
channel-dispatched multi-device loop to this core's single step-call
contract (spec.md 4.6).

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
package machine

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/daniilfigasystems/mini-rv32ima/internal/cpu"
	"github.com/daniilfigasystems/mini-rv32ima/internal/memory"
	"github.com/daniilfigasystems/mini-rv32ima/internal/mmio"
)

// maxInsnsPerBatch bounds how many instructions one Step call retires
// before yielding back to the run loop (spec.md 4.6's maxInsns knob).
const maxInsnsPerBatch = 4096

// idleSleep is how long the run loop backs off after a WFI exit with
// nothing pending, standing in for the host idle policy spec.md 4.5
// leaves external.
const idleSleep = 2 * time.Millisecond

// Machine wires C1–C8 together: hart, RAM image and MMIO dispatcher,
// plus the H3 console collaborator, and drives them from a run goroutine.
type Machine struct {
	strict bool

	mu   sync.Mutex
	hart cpu.State
	ram  *memory.Image
	bus  *mmio.Dispatcher

	wg      sync.WaitGroup
	done    chan struct{}
	stopped bool
}

// New allocates a RAM image of ramSize bytes and wires it, a fresh
// hart and the given console into an MMIO dispatcher. strict selects
// the step loop's fault policy (spec.md 9's redesigned "--strict" flag).
func New(ramSize uint32, console mmio.Console, strict bool) *Machine {
	m := &Machine{
		strict: strict,
		ram:    memory.New(ramSize),
		done:   make(chan struct{}),
	}
	m.bus = &mmio.Dispatcher{
		RAM:     m.ram,
		Console: console,
		Clock: mmio.Clock{
			CycleL:      &m.hart.CycleL,
			CycleH:      &m.hart.CycleH,
			TimerMatchL: &m.hart.TimerMatchL,
			TimerMatchH: &m.hart.TimerMatchH,
		},
	}
	return m
}

// LoadImage copies the flat kernel image into RAM at offset 0 (spec.md
// 4.8) and places a devicetree blob near the top of RAM, word-aligned:
// dtb if non-nil, otherwise a minimal built-in one sized to this RAM
// image. It returns the guest physical address of the DTB, the value
// Reset should be given for a1.
func (m *Machine) LoadImage(kernel, dtb []byte) (uint32, error) {
	ramBytes := m.ram.Bytes()
	if len(kernel) > len(ramBytes) {
		return 0, fmt.Errorf("machine: kernel image (%d bytes) larger than ram (%d bytes)", len(kernel), len(ramBytes))
	}
	copy(ramBytes, kernel)

	if dtb == nil {
		dtb = buildDTB(memory.RAMOffset, m.ram.Size())
	}
	if len(dtb) > len(ramBytes) {
		return 0, fmt.Errorf("machine: dtb (%d bytes) larger than ram (%d bytes)", len(dtb), len(ramBytes))
	}
	dtbOff := (uint32(len(ramBytes)) - uint32(len(dtb))) &^ 0b11
	if int(dtbOff) < len(kernel) {
		return 0, fmt.Errorf("machine: ram too small to hold both kernel image and dtb")
	}
	copy(ramBytes[dtbOff:], dtb)

	return memory.RAMOffset + dtbOff, nil
}

// Reset restores the hart to power-on state: pc at the RAM base, a0
// the hart id (0), a1 the dtb address LoadImage returned.
func (m *Machine) Reset(dtbAddr uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hart.Strict = m.strict
	m.hart.Reset(memory.RAMOffset, dtbAddr)
}

// Start runs the hart from a background goroutine until Stop is
// called or the guest requests a SYSCON shutdown/restart.
func (m *Machine) Start() {
	m.wg.Add(1)
	go m.run()
}

func (m *Machine) run() {
	defer m.wg.Done()
	last := time.Now()

	for {
		select {
		case <-m.done:
			return
		default:
		}

		now := time.Now()
		elapsedUs := uint64(now.Sub(last) / time.Microsecond)
		last = now

		m.mu.Lock()
		code := m.hart.Step(m.bus, elapsedUs, maxInsnsPerBatch)
		m.mu.Unlock()

		switch code {
		case cpu.ExitOK:
		case cpu.ExitIdle:
			time.Sleep(idleSleep)
		case cpu.ExitFault:
			slog.Error("machine: unrecovered fault in strict mode, halting")
			return
		default:
			slog.Info("machine: guest requested shutdown", "code", uint32(code))
			return
		}
	}
}

// Stop signals the run goroutine to exit and waits (bounded) for it.
func (m *Machine) Stop() {
	if m.stopped {
		return
	}
	m.stopped = true
	close(m.done)

	finished := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		slog.Warn("machine: timed out waiting for run loop to stop")
	}
}

// Snapshot returns a copy of the current hart state for host
// inspection (e.g. an interactive debug console) without racing the
// run loop, matching spec.md 5's "host may read it between steps."
func (m *Machine) Snapshot() cpu.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hart
}

// RAMImage exposes the guest RAM image, e.g. for a debugger dump or
// for loader tests; callers must not mutate it while the machine is
// running.
func (m *Machine) RAMImage() *memory.Image {
	return m.ram
}
