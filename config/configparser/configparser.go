/*
Package configparser validates and normalizes the raw CLI flag values
the binary in cmd/mini-rv32ima collects with getopt into a Config the
machine package can consume directly. Kept separate from the getopt
wiring itself (spec.md 4.7), matching the teacher's own separation of
"parse the options" from "decide what they mean".

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
package configparser

import "errors"

// DefaultRAMSize is used when --ram is not given, spec.md 4.7.
const DefaultRAMSize uint32 = 64 * 1024 * 1024

// DefaultConsoleAddr picks a free loopback port when --port is not given.
const DefaultConsoleAddr = "127.0.0.1:0"

// Config is the normalized set of options the machine package needs
// to load and run a guest.
type Config struct {
	ImagePath   string
	DTBPath     string
	RAMSize     uint32
	ConsoleAddr string
	Strict      bool
	LogPath     string
}

// New validates the raw option values and applies defaults. ramBytes
// is rounded down to a 4-byte multiple (spec.md 4.7); a zero value
// after rounding falls back to DefaultRAMSize.
func New(imagePath, dtbPath string, ramBytes uint64, consoleAddr string, strict bool, logPath string) (*Config, error) {
	if imagePath == "" {
		return nil, errors.New("configparser: --image is required")
	}

	size := uint32(ramBytes) &^ 0b11
	if size == 0 {
		size = DefaultRAMSize
	}

	if consoleAddr == "" {
		consoleAddr = DefaultConsoleAddr
	}

	return &Config{
		ImagePath:   imagePath,
		DTBPath:     dtbPath,
		RAMSize:     size,
		ConsoleAddr: consoleAddr,
		Strict:      strict,
		LogPath:     logPath,
	}, nil
}
