// perch is an IRC server: a single node speaking the RFC 1459 client
// protocol. All server state lives in one Server struct owned by one
// goroutine; per-connection goroutines only read and write sockets and
// talk to the owner over channels.
package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"

	"github.com/perchirc/perch/irc"
)

const serverVersion = "perch-0.1.0"

// Mode letters we report in RPL_MYINFO.
const (
	userModes    = "Oov"
	channelModes = "kl"
)

const (
	// How often the alarm goroutine wakes the server for bookkeeping.
	wakeupTime = 30 * time.Second

	// How long a registered client can be idle before we ping it.
	pingTime = 10 * time.Minute

	// How long a connection can be silent before we consider it dead.
	// This is enforced as the read deadline.
	deadTime = 15 * time.Minute

	// How long a connection gets to finish registering.
	preRegDeadTime = 2 * time.Minute
)

var log = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&nested.Formatter{
		TimestampFormat: time.RFC3339,
		HideKeys:        true,
	})
	return l
}

// Server holds the state for a server. Everything global to the
// server lives here rather than in package level variables.
type Server struct {
	Config *Config

	// When the server started, in presentable form. Reported by
	// RPL_CREATED.
	Created string

	// Connections that have not finished registration. Client id to
	// Client.
	Clients map[uint64]*Client

	// Registered users. Client id to User.
	Users map[uint64]*User

	// Canonicalized nickname to client id.
	Nicks map[string]uint64

	// Channel name (canonicalized) to Channel.
	Channels map[string]*Channel

	// Linked servers. Canonicalized server name to Peer.
	Peers map[string]*Peer

	// When we close this channel, this indicates that we're shutting
	// down. Other goroutines can check if this channel is closed.
	ShutdownChan chan struct{}

	// Everything funnels to the event loop through this channel.
	ToServerChan chan Event

	// TCP listener.
	Listener net.Listener

	// The next connection's unique id. Only the accept goroutine
	// touches this.
	NextID uint64

	// Tracks helper goroutines so shutdown can wait for them.
	WG conc.WaitGroup
}

// Event carries something for the server goroutine to act on.
type Event struct {
	Type EventType

	Client *Client

	Message irc.Message

	// The I/O error that killed the connection, for DeadClientEvent.
	Err error
}

// EventType identifies what an Event carries.
type EventType int

const (
	// NullEvent is a default event. This means the event was not
	// populated.
	NullEvent EventType = iota

	// NewClientEvent means a new client connected.
	NewClientEvent

	// DeadClientEvent means a client's connection died. Clean it up.
	DeadClientEvent

	// MessageFromClientEvent means a client sent a message.
	MessageFromClientEvent

	// WakeUpEvent means the server should wake up and do bookkeeping.
	WakeUpEvent

	// ShutdownEvent means the server should shut down gracefully.
	ShutdownEvent
)

func main() {
	configPath, err := getConfigPath()
	if err != nil {
		log.Fatal(err)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatalf("Configuration problem: %s", err)
	}

	server := newServer(cfg)

	if err := server.start(); err != nil {
		log.Fatal(err)
	}

	log.Info("Server shutdown cleanly.")
}

func newServer(cfg *Config) *Server {
	return &Server{
		Config:  cfg,
		Created: time.Now().Format(time.UnixDate),

		Clients:  make(map[uint64]*Client),
		Users:    make(map[uint64]*User),
		Nicks:    make(map[string]uint64),
		Channels: make(map[string]*Channel),
		Peers:    make(map[string]*Peer),

		// shutdown() closes this channel.
		ShutdownChan: make(chan struct{}),

		// We never manually close this channel.
		ToServerChan: make(chan Event),
	}
}

// start opens the TCP port and runs the server until shutdown.
func (s *Server) start() error {
	ln, err := net.Listen("tcp", net.JoinHostPort(s.Config.Hostname,
		strconv.Itoa(s.Config.Port)))
	if err != nil {
		return fmt.Errorf("unable to listen: %s", err)
	}

	return s.serve(ln)
}

// serve runs the server on the given listener: start the helper
// goroutines and then receive messages on our channels until shutdown.
func (s *Server) serve(ln net.Listener) error {
	s.Listener = ln

	log.Infof("%s (%s) listening on %s", s.Config.Hostname, serverVersion,
		ln.Addr())

	// acceptConnections accepts connections on the TCP listener.
	s.WG.Go(s.acceptConnections)

	// Alarm is a goroutine to wake up this one periodically so we can
	// do things like ping clients.
	s.WG.Go(s.alarm)

	// Turn SIGINT/SIGTERM into graceful shutdown.
	s.WG.Go(s.watchSignals)

	s.eventLoop()

	// We don't need to drain any channels. None close that will have
	// any goroutines blocked on them.

	s.WG.Wait()

	return nil
}

// eventLoop processes events on the server's channel until the
// shutdown channel closes.
func (s *Server) eventLoop() {
	for {
		select {
		case evt := <-s.ToServerChan:
			s.handleEvent(evt)

		case <-s.ShutdownChan:
			return
		}
	}
}

func (s *Server) handleEvent(evt Event) {
	switch evt.Type {
	case NewClientEvent:
		log.Debugf("New client connection: %s", evt.Client)
		s.Clients[evt.Client.ID] = evt.Client

	case DeadClientEvent:
		id := evt.Client.ID
		if client, exists := s.Clients[id]; exists {
			log.Debugf("Client %s died: %s", client, evt.Err)
			client.quit(errorToQuitMessage(evt.Err))
		}
		if u, exists := s.Users[id]; exists {
			log.Debugf("Client %s died: %s", u, evt.Err)
			s.quitUser(u, errorToQuitMessage(evt.Err))
		}
		if p := s.peerByID(id); p != nil {
			log.Debugf("Peer %s died: %s", p.Name, evt.Err)
			s.quitPeer(p, errorToQuitMessage(evt.Err))
		}

	case MessageFromClientEvent:
		id := evt.Client.ID
		if client, exists := s.Clients[id]; exists {
			log.Debugf("Client %s: Message: %s", client, evt.Message)
			client.handleMessage(evt.Message)
			return
		}
		if u, exists := s.Users[id]; exists {
			log.Debugf("Client %s: Message: %s", u, evt.Message)
			u.handleMessage(evt.Message)
			return
		}
		if p := s.peerByID(id); p != nil {
			log.Debugf("Peer %s: Message: %s", p.Name, evt.Message)
			p.handleMessage(evt.Message)
			return
		}
		// The client went away before we got to its message.
		log.Debugf("Message from unknown client %d: %s", id, evt.Message)

	case WakeUpEvent:
		s.checkAndPingClients()

	case ShutdownEvent:
		s.shutdown()

	default:
		log.Fatalf("Unexpected event: %d", evt.Type)
	}
}

// shutdown starts server shutdown: all connections get told and
// closed, and the helper goroutines stop.
func (s *Server) shutdown() {
	if s.isShuttingDown() {
		return
	}

	log.Info("Server shutdown initiated.")

	// Closing ShutdownChan indicates to other goroutines that we're
	// shutting down.
	close(s.ShutdownChan)

	if err := s.Listener.Close(); err != nil {
		log.Warnf("Problem closing TCP listener: %s", err)
	}

	// All clients need to be told. This also closes their write
	// channels.
	for _, client := range s.Clients {
		client.quit("Server shutting down")
	}
	for _, u := range s.Users {
		s.quitUser(u, "Server shutting down")
	}
	for _, p := range s.Peers {
		s.quitPeer(p, "Server shutting down")
	}
}

// acceptConnections accepts TCP connections and tells the main server
// loop through a channel. It sets up separate goroutines for reading
// and writing to and from the client.
func (s *Server) acceptConnections() {
	for {
		if s.isShuttingDown() {
			break
		}

		conn, err := s.Listener.Accept()
		if err != nil {
			if s.isShuttingDown() {
				break
			}
			log.Errorf("Failed to accept connection: %s", err)
			s.newEvent(Event{Type: ShutdownEvent})
			break
		}

		client := NewClient(s, s.NextID, conn)

		// Ids must never repeat. Wrapping the counter takes deliberate
		// abuse, but check anyway.
		if s.NextID+1 == 0 {
			log.Fatalf("Unique ids rolled over!")
		}
		s.NextID++

		// ToServerChan is unbuffered, so once this returns the server
		// knows the client. Nothing from the client's read goroutine can
		// arrive first.
		s.newEvent(Event{Type: NewClientEvent, Client: client})

		s.WG.Go(client.readLoop)
		s.WG.Go(client.writeLoop)
	}

	log.Debug("Connection accepter shutting down.")
}

// Return true if the server is shutting down.
func (s *Server) isShuttingDown() bool {
	// Nothing ever sends on ShutdownChan. A receive can only mean the
	// channel was closed.
	select {
	case <-s.ShutdownChan:
		return true
	default:
		return false
	}
}

// alarm wakes the server goroutine periodically for bookkeeping.
func (s *Server) alarm() {
	for {
		select {
		case <-time.After(wakeupTime):
			s.newEvent(Event{Type: WakeUpEvent})
		case <-s.ShutdownChan:
			log.Debug("Alarm shutting down.")
			return
		}
	}
}

// watchSignals turns SIGINT and SIGTERM into a graceful shutdown.
func (s *Server) watchSignals() {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	select {
	case sig := <-signals:
		log.Infof("Received signal: %s", sig)
		s.newEvent(Event{Type: ShutdownEvent})
	case <-s.ShutdownChan:
	}
}

// checkAndPingClients looks at each connection.
//
// Unregistered connections that take too long to register get cut off.
//
// Registered users idle past the threshold get a PING. The read
// deadline reaps connections that are dead outright.
//
// Anything that overflowed its send queue gets killed too: it is not
// consuming what we send it.
func (s *Server) checkAndPingClients() {
	now := time.Now()

	for _, client := range s.Clients {
		if client.SendQueueExceeded {
			client.quit("SendQ exceeded")
			continue
		}

		if now.Sub(client.ConnectionStartTime) > preRegDeadTime {
			client.quit("Registration timeout")
		}
	}

	for _, u := range s.Users {
		if u.SendQueueExceeded {
			s.quitUser(u, "SendQ exceeded")
			continue
		}

		timeIdle := now.Sub(u.LastActivityTime)
		if timeIdle < pingTime {
			continue
		}

		// It's been idle a while. Ping it, unless we recently have.
		if now.Sub(u.LastPingTime) < pingTime {
			continue
		}

		u.messageFromServer("PING", []string{s.Config.Hostname}, true)
		u.LastPingTime = now
	}

	for _, p := range s.Peers {
		if p.SendQueueExceeded {
			s.quitPeer(p, "SendQ exceeded")
		}
	}
}

// newEvent tells the server something happened. Safe to call from any
// goroutine. During shutdown the send would block forever, so we also
// select on the closed shutdown channel.
func (s *Server) newEvent(evt Event) {
	select {
	case s.ToServerChan <- evt:
	case <-s.ShutdownChan:
	}
}

// errorToQuitMessage turns the I/O error that killed a connection into
// the quit reason everyone sees. A silent death is a lost connection;
// hitting the read deadline is a ping timeout; anything else was our
// side failing.
func errorToQuitMessage(err error) string {
	if err == nil {
		return "Connection Lost"
	}

	msg := err.Error()

	if strings.Contains(msg, "i/o timeout") {
		return fmt.Sprintf("Ping timeout: %d seconds", int(deadTime.Seconds()))
	}

	if strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "use of closed network connection") {
		return "Connection Lost"
	}

	return "Internet Server Error"
}
