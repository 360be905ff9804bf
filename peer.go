package main

import (
	"time"

	"github.com/perchirc/perch/irc"
)

// Peer is a connection registered as a server link with the SERVER
// command. We accept the link and answer its PINGs, but we don't relay
// anything over it: state stays local to this server.
type Peer struct {
	*Client

	// Server name it registered with, as given.
	Name string

	Info string
}

func newPeer(c *Client, name, info string) *Peer {
	return &Peer{
		Client: c,
		Name:   name,
		Info:   info,
	}
}

// canonicalizeServer converts a server name to the form we key the
// peer map with. Server names compare case insensitively like nicks.
func canonicalizeServer(name string) string {
	return canonicalizeNick(name)
}

// isAllowedLink says whether we are configured to accept a link from
// the named server.
func (s *Server) isAllowedLink(name string) bool {
	for _, link := range s.Config.AllowedLinks {
		if canonicalizeServer(link) == canonicalizeServer(name) {
			return true
		}
	}
	return false
}

func (s *Server) isLinkedToPeer(name string) bool {
	_, exists := s.Peers[canonicalizeServer(name)]
	return exists
}

// registerPeer promotes a client connection to a peer link.
func (s *Server) registerPeer(c *Client, name, info string) {
	p := newPeer(c, name, info)

	delete(s.Clients, c.ID)
	s.Peers[canonicalizeServer(name)] = p

	log.Infof("Established link to %s.", name)
}

// peerByID finds the peer a connection id belongs to, if any.
func (s *Server) peerByID(id uint64) *Peer {
	for _, p := range s.Peers {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// quitPeer drops a peer link. Safe to call more than once.
func (s *Server) quitPeer(p *Peer, msg string) {
	_, exists := s.Peers[canonicalizeServer(p.Name)]
	if !exists {
		return
	}

	p.messageFromServer("ERROR", []string{msg}, true)

	close(p.WriteChan)

	delete(s.Peers, canonicalizeServer(p.Name))

	log.Infof("Lost link to %s: %s", p.Name, msg)
}

// handleMessage deals with a message from a peer link. We answer PING
// to keep the link alive and drop everything else on the floor.
func (p *Peer) handleMessage(m irc.Message) {
	p.LastActivityTime = time.Now()

	switch m.Command {
	case "PING":
		if len(m.Params) == 0 {
			return
		}
		p.messageFromServer("PONG", []string{m.Params[0]}, true)
	case "PONG":
	default:
		log.Debugf("Peer %s: Dropping command: %s", p.Name, m.Command)
	}
}
