/*
Package memory is the guest's flat RAM image, grounded on the
teacher's low-level memory package: a single backing array with plain
get/put word/byte accessors and an explicit range check, rather than a
host-mapped window.

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
package memory

// RAMOffset is the guest physical address MINIRV32_RAM_IMAGE_OFFSET
// maps byte 0 of the image to (spec.md 4.1).
const RAMOffset = 0x80000000

// Image is the guest's flat, byte-addressable RAM. The hart state is
// kept out of the image (spec.md 9 design note: separating them is an
// allowed re-implementation choice) so the image only ever holds guest
// data and the DTB.
type Image struct {
	bytes []byte
}

// New allocates a RAM image of the given size in bytes.
func New(size uint32) *Image {
	return &Image{bytes: make([]byte, size)}
}

// Size returns the RAM image size in bytes.
func (m *Image) Size() uint32 {
	return uint32(len(m.bytes))
}

// InRange reports whether the guest physical address addr maps into
// this RAM image.
func (m *Image) InRange(addr uint32) bool {
	if addr < RAMOffset {
		return false
	}
	off := addr - RAMOffset
	return off < uint32(len(m.bytes))
}

// Bytes exposes the backing array for the host loader to copy a kernel
// image and DTB into before reset.
func (m *Image) Bytes() []byte {
	return m.bytes
}

func (m *Image) off(addr uint32) uint32 {
	return addr - RAMOffset
}

// ReadByte/ReadHalf/ReadWord/WriteByte/WriteHalf/WriteWord perform raw,
// unchecked, little-endian accesses. Callers must have already
// verified InRange and alignment; the MMIO dispatcher (internal/mmio)
// owns that classification.

func (m *Image) ReadByte(addr uint32) uint8 {
	return m.bytes[m.off(addr)]
}

func (m *Image) ReadHalf(addr uint32) uint16 {
	o := m.off(addr)
	return uint16(m.bytes[o]) | uint16(m.bytes[o+1])<<8
}

func (m *Image) ReadWord(addr uint32) uint32 {
	o := m.off(addr)
	return uint32(m.bytes[o]) | uint32(m.bytes[o+1])<<8 |
		uint32(m.bytes[o+2])<<16 | uint32(m.bytes[o+3])<<24
}

func (m *Image) WriteByte(addr uint32, v uint8) {
	m.bytes[m.off(addr)] = v
}

func (m *Image) WriteHalf(addr uint32, v uint16) {
	o := m.off(addr)
	m.bytes[o] = byte(v)
	m.bytes[o+1] = byte(v >> 8)
}

func (m *Image) WriteWord(addr uint32, v uint32) {
	o := m.off(addr)
	m.bytes[o] = byte(v)
	m.bytes[o+1] = byte(v >> 8)
	m.bytes[o+2] = byte(v >> 16)
	m.bytes[o+3] = byte(v >> 24)
}
