package main

import (
	"bufio"
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/perchirc/perch/irc"
)

// Conn is a wire connection to a client or peer. Reads and writes
// carry a deadline so a stalled connection cannot wedge its loop
// forever.
type Conn struct {
	conn    net.Conn
	r       *bufio.Reader
	w       *bufio.Writer
	timeout time.Duration

	// Remote IP. Doubles as the host part of user identifiers.
	IP net.IP
}

// NewConn wraps an accepted connection with buffering and deadlines.
func NewConn(conn net.Conn, timeout time.Duration) Conn {
	var ip net.IP
	if addr, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		ip = addr.IP
	}

	return Conn{
		conn:    conn,
		r:       bufio.NewReader(conn),
		w:       bufio.NewWriter(conn),
		timeout: timeout,
		IP:      ip,
	}
}

func (c Conn) Close() error {
	return c.conn.Close()
}

func (c Conn) RemoteAddr() net.Addr {
	if c.conn == nil {
		return nil
	}
	return c.conn.RemoteAddr()
}

// Read returns the next line from the connection. A partial line can
// come back alongside an error.
func (c Conn) Read() (string, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		// Not fatal. The buffer may still hold a line worth seeing.
		log.Warnf("Error setting read deadline: %s", err)
	}

	line, err := c.r.ReadString('\n')
	if err != nil {
		return line, errors.Wrap(err, "error reading")
	}

	return line, nil
}

// WriteMessage encodes and writes the message. A message too long for
// the protocol goes out truncated rather than not at all.
func (c Conn) WriteMessage(m irc.Message) error {
	line, err := m.Encode()
	if err != nil {
		if !errors.Is(err, irc.ErrTruncated) {
			return errors.Wrap(err, "unable to encode message")
		}
		log.Debugf("Truncated outgoing message: %s", line)
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return errors.Wrap(err, "error setting write deadline")
	}

	if _, err := c.w.WriteString(line); err != nil {
		return errors.Wrap(err, "error writing")
	}

	return errors.Wrap(c.w.Flush(), "error flushing")
}
