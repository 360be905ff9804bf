// Package irctest provides a scriptable IRC client for exercising a
// running server over a real TCP connection in tests.
package irctest

import (
	"bufio"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/horgh/irc"
)

// Client is a test client. Messages the server sends arrive on the
// receive channel; messages placed on the send channel go to the
// server. PINGs are answered automatically so liveness checks never
// interfere with a test.
type Client struct {
	nick string
	addr string

	writeTimeout time.Duration

	conn net.Conn
	rw   *bufio.ReadWriter

	// Guards writes. Both the writer goroutine and the reader (for
	// PONG) write to the connection.
	wmu sync.Mutex

	recv chan irc.Message
	send chan irc.Message
	errs chan error
	done chan struct{}
	wg   sync.WaitGroup
}

// NewClient creates a Client that will register with the given nick.
func NewClient(nick, serverHost string, serverPort uint16) *Client {
	return &Client{
		nick:         nick,
		addr:         fmt.Sprintf("%s:%d", serverHost, serverPort),
		writeTimeout: 30 * time.Second,
	}
}

// Start connects to the server, sends the registration commands, and
// begins relaying messages between the connection and the channels it
// returns.
//
// A message on the error channel means the client is broken and the
// test should stop it. Stop must be called exactly once to clean up.
func (c *Client) Start() (
	<-chan irc.Message,
	chan<- irc.Message,
	<-chan error,
	error,
) {
	conn, err := net.DialTimeout("tcp", c.addr, 30*time.Second)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error dialing: %s", err)
	}

	c.conn = conn
	c.rw = bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))

	for _, m := range []irc.Message{
		{Command: "NICK", Params: []string{c.nick}},
		{Command: "USER", Params: []string{c.nick, "0", "*", c.nick}},
	} {
		if err := c.writeMessage(m); err != nil {
			_ = c.conn.Close()
			return nil, nil, nil, err
		}
	}

	c.recv = make(chan irc.Message, 512)
	c.send = make(chan irc.Message, 512)
	c.errs = make(chan error, 8)
	c.done = make(chan struct{})

	c.wg.Add(2)
	go c.reader()
	go c.writer()

	return c.recv, c.send, c.errs, nil
}

// reader takes messages off the connection until Stop closes it. Reads
// block with no deadline; closing the socket is what unblocks us.
func (c *Client) reader() {
	defer c.wg.Done()
	defer close(c.recv)

	for {
		m, err := c.readMessage()
		if err != nil {
			select {
			case <-c.done:
				// Stop closed the connection under us. Not an error.
			default:
				c.errs <- fmt.Errorf("error reading message: %s", err)
			}
			return
		}

		if m.Command == "PING" {
			pong := irc.Message{Command: "PONG", Params: m.Params}
			if err := c.writeMessage(pong); err != nil {
				c.errs <- fmt.Errorf("error sending pong: %s", err)
				return
			}
		}

		select {
		case c.recv <- m:
		case <-c.done:
			return
		}
	}
}

// writer sends messages from the send channel to the server.
func (c *Client) writer() {
	defer c.wg.Done()

	for {
		select {
		case <-c.done:
			return
		case m := <-c.send:
			if err := c.writeMessage(m); err != nil {
				c.errs <- fmt.Errorf("error writing message: %s", err)
				return
			}
		}
	}
}

func (c *Client) writeMessage(m irc.Message) error {
	buf, err := m.Encode()
	if err != nil && err != irc.ErrTruncated {
		return fmt.Errorf("unable to encode message: %s", err)
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(
		c.writeTimeout)); err != nil {
		return fmt.Errorf("unable to set deadline: %s", err)
	}

	if _, err := c.rw.WriteString(buf); err != nil {
		return err
	}

	if err := c.rw.Flush(); err != nil {
		return fmt.Errorf("flush error: %s", err)
	}

	log.Printf("irctest %s: sent: %s", c.nick, strings.TrimRight(buf, "\r\n"))
	return nil
}

func (c *Client) readMessage() (irc.Message, error) {
	line, err := c.rw.ReadString('\n')
	if err != nil {
		return irc.Message{}, err
	}

	log.Printf("irctest %s: read: %s", c.nick, strings.TrimRight(line, "\r\n"))

	m, err := irc.ParseMessage(line)
	if err != nil && err != irc.ErrTruncated {
		return irc.Message{}, fmt.Errorf("unable to parse message: %s: %s",
			line, err)
	}

	return m, nil
}

// Stop tears the client down: it closes the connection, which unblocks
// the reader, and waits for both goroutines. The receive channel closes
// once the reader exits. Nothing may be sent to the client afterwards.
func (c *Client) Stop() {
	close(c.done)
	_ = c.conn.Close()

	c.wg.Wait()

	close(c.errs)
	for range c.recv {
	}
	for range c.errs {
	}
}
