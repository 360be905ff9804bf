package main

import (
	"strings"
	"time"

	"github.com/perchirc/perch/irc"
)

// Registry operations: everything that creates, finds, and destroys
// users and channels. Only the event loop goroutine calls these.

// nickInUse says whether a nick is registered, compared canonically.
func (s *Server) nickInUse(nick string) bool {
	_, exists := s.Nicks[canonicalizeNick(nick)]
	return exists
}

// getUser resolves a nick to its user.
func (s *Server) getUser(nick string) (*User, error) {
	id, exists := s.Nicks[canonicalizeNick(nick)]
	if !exists {
		return nil, NoSuchUserError{Target: nick}
	}

	u, exists := s.Users[id]
	if !exists {
		// The nick map pointing at a missing user means we corrupted our
		// own state somewhere.
		log.Errorf("Nick %s maps to unknown user %d", nick, id)
		return nil, NoSuchUserError{Target: nick}
	}

	return u, nil
}

// getChannel resolves a channel name to its channel.
func (s *Server) getChannel(name string) (*Channel, error) {
	ch, exists := s.Channels[canonicalizeChannel(name)]
	if !exists {
		return nil, NoSuchChannelError{Name: name}
	}
	return ch, nil
}

// registerUser promotes a client that has sent both NICK and USER. We
// check the nick is still free: another client may have registered it
// since the NICK command came in.
func (s *Server) registerUser(c *Client) (*User, error) {
	if s.nickInUse(c.PreRegNick) {
		return nil, NickInUseError{Nick: c.PreRegNick}
	}

	u := newUser(c)

	delete(s.Clients, c.ID)
	s.Users[u.ID] = u
	s.Nicks[canonicalizeNick(u.Nick)] = u.ID

	u.sendNumeric(irc.RplWelcome, u.Nick, u.Username, u.Host)
	u.sendNumeric(irc.RplYourHost, s.Config.Hostname, serverVersion)
	u.sendNumeric(irc.RplCreated, s.Created)
	u.sendNumeric(irc.RplMyInfo, s.Config.Hostname, serverVersion, userModes,
		channelModes)
	s.sendISupport(u)
	s.sendMOTD(u)

	return u, nil
}

// quitUser removes a user: part every channel with the reason, drop
// the registry entries, and close the connection down. Safe to call
// more than once; only the first does anything.
func (s *Server) quitUser(u *User, reason string) {
	// May already be cleaning up.
	_, exists := s.Users[u.ID]
	if !exists {
		return
	}

	delete(s.Users, u.ID)
	delete(s.Nicks, canonicalizeNick(u.Nick))

	for _, name := range u.channelSnapshot() {
		if ch, exists := s.Channels[name]; exists {
			ch.part(s, u, reason)
		}
	}

	u.messageFromServer("ERROR", []string{reason}, true)

	close(u.WriteChan)

	log.WithField("user", u.Nick).Infof("User quit: %s", reason)
}

// joinUserToChannel joins the user to the named channel, creating the
// channel when it doesn't exist yet. The first joiner gets ops. After
// joining, the user hears the topic and who is in the channel.
func (s *Server) joinUserToChannel(u *User, name, key string) error {
	canonical := canonicalizeChannel(name)

	ch, exists := s.Channels[canonical]
	if !exists {
		if !isValidChannel(canonical) {
			return InvalidChannelError{Name: name}
		}
		ch = newChannel(canonical)
		s.Channels[canonical] = ch
	}

	if err := ch.join(s, u, key); err != nil {
		return err
	}

	if !exists {
		// Channel founder gets ops, granted by the server.
		ch.addUserMode(u.ID, 'o')
		u.maybeQueueMessage(irc.Message{
			Source:  s.Config.Hostname,
			Command: "MODE",
			Params:  []string{ch.Name, "+o", u.Nick},
		})
	}

	ch.sendTopic(s, u)
	ch.sendNames(s, u)

	return nil
}

// removeChannel reaps a channel. Channels exist only while they have
// members.
func (s *Server) removeChannel(ch *Channel) {
	delete(s.Channels, ch.Name)
}

// tryMakeOper grants operator status when the name and password match
// a configured operator credential.
func (s *Server) tryMakeOper(u *User, name, pw string) {
	for _, oper := range s.Config.Opers {
		if oper.Name != name || oper.Pw != pw {
			continue
		}

		u.Modes['O'] = struct{}{}
		u.sendNumeric(irc.RplYoureOper)
		log.WithField("user", u.Nick).Infof("User became an operator as %s", name)
		return
	}

	u.sendNumeric(irc.ErrPasswdMismatch)
	log.WithField("user", u.Nick).Warnf("Failed OPER as %s", name)
}

// sendMOTD sends the message of the day block.
func (s *Server) sendMOTD(u *User) {
	u.sendNumeric(irc.RplMotdStart, s.Config.Hostname)
	for _, line := range strings.Split(s.Config.MOTD, "\n") {
		u.sendNumeric(irc.RplMotd, line)
	}
	u.sendNumeric(irc.RplEndOfMotd)
}

// sendISupport tells the user which protocol features we offer.
func (s *Server) sendISupport(u *User) {
	u.sendNumeric(irc.RplISupport, s.Config.Netname)
}

// sendWhois answers WHOIS about one target: who they are, where they
// are connected, how long they've been quiet, and which channels they
// are in, in join order.
func (s *Server) sendWhois(asker *User, target string) error {
	t, err := s.getUser(target)
	if err != nil {
		return err
	}

	asker.sendNumeric(irc.RplWhoisUser, t.Nick, t.Username, t.Host, t.RealName)
	asker.sendNumeric(irc.RplWhoisServer, t.Nick, s.Config.Netname,
		s.Config.Info)
	asker.sendNumeric(irc.RplWhoisIdle, t.Nick,
		int(time.Since(t.LastMessageTime).Seconds()))
	asker.sendNumeric(irc.RplWhoisChannels, t.Nick,
		strings.Join(t.Channels, " "))
	asker.sendNumeric(irc.RplEndOfWhois, t.Nick)

	return nil
}
