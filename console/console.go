/*
Package console is the TCP-attached serial console standing in for the
out-of-scope framebuffer and keyboard (spec.md 6): one accepted client
connection, read into a buffered queue by a background goroutine and
drained a byte at a time by the MMIO dispatcher, so neither direction
ever blocks the hart's run loop. Grounded on the teacher's telnet
accept-loop shape (telnet/telnet.go) simplified to raw bytes, in the
style of a plain serial TTY rather than a negotiated terminal.

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
package console

import (
	"log/slog"
	"net"
	"sync"
)

// outboundDepth bounds how far the guest's output can run ahead of a
// slow or absent client before bytes start being dropped. The console
// must never block the hart waiting for a reader.
const outboundDepth = 4096

// Console listens on a TCP port and ferries bytes between one accepted
// client connection and the UART MMIO registers (spec.md 4.1).
type Console struct {
	ln       net.Listener
	outbound chan byte
	closed   chan struct{}
	closeOne sync.Once

	mu      sync.Mutex
	conn    net.Conn
	inbound []byte
}

// Listen starts accepting a single console client on addr (e.g.
// "127.0.0.1:0" to pick a free port).
func Listen(addr string) (*Console, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	c := &Console{
		ln:       ln,
		outbound: make(chan byte, outboundDepth),
		closed:   make(chan struct{}),
	}
	go c.acceptLoop()
	return c, nil
}

// Addr returns the address the console is listening on.
func (c *Console) Addr() net.Addr {
	return c.ln.Addr()
}

func (c *Console) acceptLoop() {
	for {
		conn, err := c.ln.Accept()
		if err != nil {
			return
		}
		c.mu.Lock()
		if c.conn != nil {
			// Only one console client at a time; reject the rest.
			c.mu.Unlock()
			conn.Close()
			continue
		}
		c.conn = conn
		c.mu.Unlock()

		slog.Info("console client attached", "remote", conn.RemoteAddr())
		go c.readLoop(conn)
		go c.writeLoop(conn)
	}
}

func (c *Console) readLoop(conn net.Conn) {
	buf := make([]byte, 256)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			c.mu.Lock()
			c.inbound = append(c.inbound, buf[:n]...)
			c.mu.Unlock()
		}
		if err != nil {
			c.detach(conn)
			return
		}
	}
}

func (c *Console) writeLoop(conn net.Conn) {
	for {
		select {
		case b, ok := <-c.outbound:
			if !ok {
				return
			}
			if _, err := conn.Write([]byte{b}); err != nil {
				c.detach(conn)
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *Console) detach(conn net.Conn) {
	conn.Close()
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
		c.inbound = nil
	}
	c.mu.Unlock()
}

// ReadByte implements mmio.Console: pops the oldest buffered input
// byte, or reports not-ready when the queue is empty.
func (c *Console) ReadByte() (byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.inbound) == 0 {
		return 0, false
	}
	b := c.inbound[0]
	c.inbound = c.inbound[1:]
	return b, true
}

// HasInput implements mmio.Console.
func (c *Console) HasInput() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inbound) > 0
}

// WriteByte implements mmio.Console. It never blocks: once the
// outbound queue is full, further bytes are dropped rather than
// stalling the hart.
func (c *Console) WriteByte(b byte) {
	select {
	case c.outbound <- b:
	default:
		slog.Warn("console output dropped, client not keeping up")
	}
}

// Close stops accepting new clients and disconnects the current one.
func (c *Console) Close() error {
	c.closeOne.Do(func() { close(c.closed) })
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
	return c.ln.Close()
}
