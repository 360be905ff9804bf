package main

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/perchirc/perch/irc"
)

// Client holds state about a connection that has not yet registered.
// All connections are in this state until they register as either a
// user or a peer server.
type Client struct {
	// Conn is the TCP connection to the client.
	Conn Conn

	// A unique id. Internal to this server only. Survives promotion to
	// User or Peer.
	ID uint64

	// Messages headed to the client. The writer goroutine drains it.
	WriteChan chan irc.Message

	ConnectionStartTime time.Time

	// When we last heard anything from the client.
	LastActivityTime time.Time

	// When we last pinged the client.
	LastPingTime time.Time

	Server *Server

	// Track if we overflow our send queue. If we do, we'll kill the
	// client on the next liveness pass.
	SendQueueExceeded bool

	// Info the client may send us before we complete its registration
	// and promote it to User or Peer.

	// NICK and USER. Either may arrive first. Registration completes
	// once we have both.
	PreRegNick     string
	PreRegUsername string
	PreRegRealName string

	NickDone bool
	UserDone bool

	// PASS. Stashed, but only SERVER registration cares.
	PreRegPass string
}

// NewClient creates a Client.
func NewClient(s *Server, id uint64, conn net.Conn) *Client {
	now := time.Now()

	return &Client{
		Conn: NewConn(conn, deadTime),
		ID:   id,

		// Queueing to a stuck client must not block the server. The
		// buffer is big enough that only a connection in real trouble
		// fills it.
		WriteChan: make(chan irc.Message, 32768),

		ConnectionStartTime: now,
		LastActivityTime:    now,
		Server:              s,
	}
}

func (c *Client) String() string {
	return fmt.Sprintf("%d %s", c.ID, c.Conn.RemoteAddr())
}

// Send a message to the client. We send it to its write channel, which
// in turn leads to writing it to its TCP socket.
//
// This function won't block. If the client's queue is full, we flag it
// as having a full send queue.
//
// Not blocking is important because the server sends the client
// messages this way, and if we block on a problem client, everything
// would grind to a halt.
func (c *Client) maybeQueueMessage(m irc.Message) {
	if c.SendQueueExceeded {
		return
	}

	select {
	case c.WriteChan <- m:
	default:
		c.SendQueueExceeded = true
	}
}

// readLoop endlessly reads from the client's TCP connection. It parses
// each IRC protocol message and passes it to the server through the
// server's channel.
func (c *Client) readLoop() {
	for {
		if c.Server.isShuttingDown() {
			break
		}

		buf, err := c.Conn.Read()
		if err != nil {
			log.Debugf("Client %s: %s", c, err)
			c.Server.newEvent(Event{Type: DeadClientEvent, Client: c, Err: err})
			break
		}

		message, err := irc.ParseMessage(buf)
		if err != nil {
			// Malformed lines don't cut the client off.
			log.Debugf("Client %s: Invalid message: %q: %s", c, buf, err)
			continue
		}

		c.Server.newEvent(Event{
			Type:    MessageFromClientEvent,
			Client:  c,
			Message: message,
		})
	}

	log.Debugf("Client %s: Reader shutting down.", c)
}

// writeLoop drains the client's write channel onto its TCP connection.
// It owns closing the socket, so queued messages get a chance to go
// out before the connection drops.
func (c *Client) writeLoop() {
	// Watch ShutdownChan as well as the write channel. If the server
	// shuts down before it ever hears about this client, nobody closes
	// the write channel, and ranging over it alone would leak this
	// goroutine. The cost is that messages still queued at shutdown may
	// go undelivered.
Loop:
	for {
		select {
		case message, ok := <-c.WriteChan:
			if !ok {
				break Loop
			}

			if err := c.Conn.WriteMessage(message); err != nil {
				log.Debugf("Client %s: %s", c, err)
				c.Server.newEvent(Event{Type: DeadClientEvent, Client: c, Err: err})
				break Loop
			}
		case <-c.Server.ShutdownChan:
			break Loop
		}
	}

	if err := c.Conn.Close(); err != nil {
		log.Debugf("Client %s: Problem closing connection: %s", c, err)
	}

	log.Debugf("Client %s: Writer shutting down.", c)
}

// quit means the client is gone before finishing registration. Tell it
// why and clean up. There is nothing to announce to anyone else.
func (c *Client) quit(msg string) {
	// Quit can happen twice for one connection.
	_, exists := c.Server.Clients[c.ID]
	if !exists {
		return
	}

	c.messageFromServer("ERROR", []string{msg}, true)

	close(c.WriteChan)

	delete(c.Server.Clients, c.ID)
}

// sendNumeric queues a numeric reply for the client. Numerics address
// the recipient's nick. An unregistered client may not have told us
// one yet, in which case * stands in.
func (c *Client) sendNumeric(n irc.Numeric, args ...interface{}) {
	nick := "*"
	if len(c.PreRegNick) > 0 {
		nick = c.PreRegNick
	}

	m := n.Reply(nick, args...)
	m.Source = c.Server.Config.Hostname
	c.maybeQueueMessage(m)
}

// messageFromServer queues a non-numeric message that originates from
// the server.
func (c *Client) messageFromServer(command string, params []string,
	trailing bool) {
	c.maybeQueueMessage(irc.Message{
		Source:   c.Server.Config.Hostname,
		Command:  command,
		Params:   params,
		Trailing: trailing,
	})
}

// handleMessage deals with a message from an unregistered connection.
// Only the commands involved in registration mean anything here, plus
// PING, which we answer at all times. Everything else is silently
// dropped.
func (c *Client) handleMessage(m irc.Message) {
	c.LastActivityTime = time.Now()

	switch m.Command {
	case "PING":
		c.pingCommand(m)
	case "NICK":
		c.nickCommand(m)
	case "USER":
		c.userCommand(m)
	case "PASS":
		c.passCommand(m)
	case "SERVER":
		c.serverCommand(m)
	default:
		log.Debugf("Client %s: Dropping pre-registration command: %s", c,
			m.Command)
	}
}

func (c *Client) pingCommand(m irc.Message) {
	if len(m.Params) == 0 {
		return
	}
	c.messageFromServer("PONG", []string{m.Params[0]}, true)
}

// The NICK command stashes the nick the client wants. Uniqueness gets
// checked both now and again when registration completes, as another
// client can take the nick between the two.
func (c *Client) nickCommand(m irc.Message) {
	if len(m.Params) == 0 {
		return
	}
	nick := m.Params[0]

	if c.Server.nickInUse(nick) {
		c.sendNumeric(irc.ErrNicknameInUse, nick)
		return
	}

	c.PreRegNick = nick
	c.NickDone = true

	if c.UserDone {
		c.completeRegistration()
	}
}

func (c *Client) userCommand(m irc.Message) {
	// NICK is recommended to come before USER, but either order works.

	// 4 parameters: <user> <mode> <unused> <realname>
	if len(m.Params) != 4 {
		c.sendNumeric(irc.ErrNeedMoreParams, m.Command)
		return
	}

	c.PreRegUsername = m.Params[0]
	c.PreRegRealName = m.Params[3]
	c.UserDone = true

	if c.NickDone {
		c.completeRegistration()
	}
}

func (c *Client) passCommand(m irc.Message) {
	if len(m.Params) == 0 {
		c.sendNumeric(irc.ErrNeedMoreParams, m.Command)
		return
	}

	c.PreRegPass = m.Params[0]
}

// The SERVER command registers the connection as a peer server link.
// We accept it only from server names we are configured to link with.
func (c *Client) serverCommand(m irc.Message) {
	// SERVER <name> <hopcount> <info>
	if len(m.Params) != 3 {
		c.quit("Malformed SERVER")
		return
	}

	name := m.Params[0]

	if !c.Server.isAllowedLink(name) {
		c.quit("I don't know you")
		return
	}

	if c.Server.isLinkedToPeer(name) {
		c.quit("I'm already linked to you")
		return
	}

	c.Server.registerPeer(c, name, m.Params[2])
}

// completeRegistration promotes the client to a user once we have both
// NICK and USER.
func (c *Client) completeRegistration() {
	u, err := c.Server.registerUser(c)
	if err != nil {
		var inUse NickInUseError
		if errors.As(err, &inUse) {
			c.sendNumeric(irc.ErrNicknameInUse, inUse.Nick)
			return
		}
		log.Errorf("Client %s: Unable to register: %s", c, err)
		return
	}

	log.WithField("client", c.ID).Infof("Registered user %s", u.Nick)
}
