package main

import (
	"strconv"
	"strings"

	"github.com/btnmasher/util"

	"github.com/perchirc/perch/irc"
)

// Simple channel modes hold no parameter. The order here is the order
// they show up in a mode query.
var simpleChannelModes = []byte{'m', 's', 'i', 't', 'n'}

// Channel holds all the state for one channel.
type Channel struct {
	// Canonicalized name.
	Name string

	// Members in join order. We iterate this for names, who, and
	// broadcasts, so the order users see is the order people joined.
	// Empty membership means the registry reaps us.
	Members []uint64

	// Single letter modes each member holds (o, v). Users with no modes
	// have no entry.
	UserModes map[uint64]map[byte]struct{}

	// Simple modes set on the channel.
	Modes map[byte]struct{}

	// Current topic. May be blank.
	Topic string

	// Join limit. Zero means no limit.
	Limit int

	// Join key. Blank means no key.
	Key string

	BanMasks    []string
	ExceptMasks []string
}

func newChannel(name string) *Channel {
	return &Channel{
		Name:      name,
		UserModes: make(map[uint64]map[byte]struct{}),
		Modes:     make(map[byte]struct{}),
	}
}

// isMember says whether the user is in the channel.
func (ch *Channel) isMember(id uint64) bool {
	for _, member := range ch.Members {
		if member == id {
			return true
		}
	}
	return false
}

func (ch *Channel) hasMode(mode byte) bool {
	_, exists := ch.Modes[mode]
	return exists
}

// userHasMode says whether a member holds the given channel privilege.
func (ch *Channel) userHasMode(id uint64, mode byte) bool {
	modes, exists := ch.UserModes[id]
	if !exists {
		return false
	}
	_, exists = modes[mode]
	return exists
}

func (ch *Channel) addUserMode(id uint64, mode byte) {
	modes, exists := ch.UserModes[id]
	if !exists {
		modes = make(map[byte]struct{})
		ch.UserModes[id] = modes
	}
	modes[mode] = struct{}{}
}

func (ch *Channel) removeUserMode(id uint64, mode byte) {
	modes, exists := ch.UserModes[id]
	if !exists {
		return
	}
	delete(modes, mode)
	if len(modes) == 0 {
		delete(ch.UserModes, id)
	}
}

// modePrefix gives the prefix character shown before a member's nick:
// @ for ops, + for voiced users, nothing otherwise. Ops win when a
// member holds both.
func (ch *Channel) modePrefix(id uint64) string {
	if ch.userHasMode(id, 'o') {
		return "@"
	}
	if ch.userHasMode(id, 'v') {
		return "+"
	}
	return ""
}

// broadcast sends a message to every member. We snapshot membership
// first so a handler that alters the channel mid-iteration sees a
// consistent view. except, if non-nil, names a member to skip.
func (ch *Channel) broadcast(s *Server, m irc.Message, except *User) {
	members := make([]uint64, len(ch.Members))
	copy(members, ch.Members)

	for _, id := range members {
		if except != nil && id == except.ID {
			continue
		}
		member, exists := s.Users[id]
		if !exists {
			continue
		}
		member.maybeQueueMessage(m)
	}
}

// join adds the user to the channel and tells every member, the joiner
// included. Joining a channel you are in is a no-op.
func (ch *Channel) join(s *Server, u *User, key string) error {
	if ch.isMember(u.ID) {
		return nil
	}

	if ch.Key != "" && key != ch.Key {
		return BadKeyError{Channel: ch.Name}
	}

	if ch.Limit > 0 && len(ch.Members) >= ch.Limit {
		return ChannelFullError{Channel: ch.Name}
	}

	ch.Members = append(ch.Members, u.ID)
	u.addChannel(ch.Name)

	ch.broadcast(s, irc.Message{
		Source:  u.identifier(),
		Command: "JOIN",
		Params:  []string{ch.Name},
	}, nil)

	return nil
}

// part removes the user from the channel and tells the remaining
// members. The parted user hears nothing. An empty channel gets
// reaped.
func (ch *Channel) part(s *Server, u *User, reason string) {
	if !ch.isMember(u.ID) {
		u.sendNumeric(irc.ErrNotOnChannel, ch.Name)
		return
	}

	for i, member := range ch.Members {
		if member == u.ID {
			ch.Members = append(ch.Members[:i], ch.Members[i+1:]...)
			break
		}
	}
	delete(ch.UserModes, u.ID)
	u.removeChannel(ch.Name)

	m := irc.Message{
		Source:  u.identifier(),
		Command: "PART",
		Params:  []string{ch.Name},
	}
	if reason != "" {
		m.Params = append(m.Params, reason)
		m.Trailing = true
	}
	ch.broadcast(s, m, nil)

	if len(ch.Members) == 0 {
		s.removeChannel(ch)
	}
}

// msg delivers a PRIVMSG to every member except the sender.
func (ch *Channel) msg(s *Server, from *User, text string) {
	ch.broadcast(s, irc.Message{
		Source:   from.identifier(),
		Command:  "PRIVMSG",
		Params:   []string{ch.Name, text},
		Trailing: true,
	}, from)
}

// tryModeChanges applies a MODE change to the channel. The
// modestring's leading sign says whether we add or remove; params
// holds the arguments parameterized modes consume, in order. A
// modestring with no sign is a query form we reserve and ignore.
//
// Each change requires ops. The check runs per change because a setter
// can deop themselves partway through.
func (ch *Channel) tryModeChanges(s *Server, setter *User, modestring string,
	params []string) error {

	var adding bool
	switch {
	case strings.HasPrefix(modestring, "+"):
		adding = true
	case strings.HasPrefix(modestring, "-"):
		adding = false
	default:
		return nil
	}

	sign := modestring[:1]

	next := 0
	takeParam := func() (string, bool) {
		if next >= len(params) {
			return "", false
		}
		p := params[next]
		next++
		return p, true
	}

	for i := 1; i < len(modestring); i++ {
		mode := modestring[i]

		if !ch.userHasMode(setter.ID, 'o') {
			return NeedChanOpError{Channel: ch.Name}
		}

		switch mode {
		case 'm', 's', 'i', 't', 'n':
			if adding {
				ch.Modes[mode] = struct{}{}
			} else {
				delete(ch.Modes, mode)
			}
			ch.broadcast(s, irc.Message{
				Source:  setter.identifier(),
				Command: "MODE",
				Params:  []string{ch.Name, sign + string(mode)},
			}, nil)

		case 'l':
			if !adding {
				ch.Limit = 0
				continue
			}
			arg, ok := takeParam()
			if !ok {
				return InsufficientParamsError{Command: "MODE"}
			}
			limit, err := strconv.Atoi(arg)
			if err != nil || limit < 0 {
				// Not a count. Drop the change.
				continue
			}
			ch.Limit = limit

		case 'k':
			if !adding {
				// Clients may echo the key back when unsetting. Eat it.
				_, _ = takeParam()
				ch.Key = ""
				continue
			}
			key, ok := takeParam()
			if !ok {
				return InsufficientParamsError{Command: "MODE"}
			}
			ch.Key = key

		case 'b', 'e':
			mask, ok := takeParam()
			if !ok {
				return InsufficientParamsError{Command: "MODE"}
			}
			masks := &ch.BanMasks
			if mode == 'e' {
				masks = &ch.ExceptMasks
			}
			if adding {
				*masks = append(*masks, mask)
			} else if !removeString(masks, mask) {
				// Mask wasn't listed. Nothing changed.
				continue
			}
			ch.broadcast(s, irc.Message{
				Source:  setter.identifier(),
				Command: "MODE",
				Params:  []string{ch.Name, sign + string(mode), mask},
			}, nil)

		case 'o', 'v':
			nick, ok := takeParam()
			if !ok {
				return InsufficientParamsError{Command: "MODE"}
			}
			target, err := s.getUser(nick)
			if err != nil || !ch.isMember(target.ID) {
				setter.sendNumeric(irc.ErrUserNotInChannel, nick, ch.Name)
				continue
			}
			if adding {
				ch.addUserMode(target.ID, mode)
			} else {
				ch.removeUserMode(target.ID, mode)
			}
			ch.broadcast(s, irc.Message{
				Source:  setter.identifier(),
				Command: "MODE",
				Params:  []string{ch.Name, sign + string(mode), target.Nick},
			}, nil)

		default:
			// Unknown mode letter. Skip it.
		}
	}

	return nil
}

// sendModes replies to a mode query with RPL_CHANNELMODEIS. Everyone
// sees which modes are set; the limit and key values go only to ops.
func (ch *Channel) sendModes(s *Server, to *User) {
	letters := ""
	for _, mode := range simpleChannelModes {
		if ch.hasMode(mode) {
			letters += string(mode)
		}
	}

	var args []string
	if ch.Limit > 0 {
		letters += "l"
		args = append(args, strconv.Itoa(ch.Limit))
	}
	if ch.Key != "" {
		letters += "k"
		args = append(args, ch.Key)
	}

	m := irc.RplChannelModeIs.Reply(to.Nick, ch.Name, letters)
	if ch.userHasMode(to.ID, 'o') {
		m.Params = append(m.Params, args...)
	}
	m.Source = s.Config.Hostname
	to.maybeQueueMessage(m)
}

// trySetTopic sets (or, given a blank topic, clears) the channel topic
// and tells every member.
func (ch *Channel) trySetTopic(s *Server, setter *User, topic string) error {
	if !ch.userHasMode(setter.ID, 'o') {
		return NeedChanOpError{Channel: ch.Name}
	}

	ch.Topic = topic

	ch.broadcast(s, irc.Message{
		Source:   setter.identifier(),
		Command:  "TOPIC",
		Params:   []string{ch.Name, topic},
		Trailing: true,
	}, nil)

	return nil
}

// sendTopic tells one user the channel topic: RPL_TOPIC, or
// RPL_NOTOPIC when none is set.
func (ch *Channel) sendTopic(s *Server, to *User) {
	if ch.Topic == "" {
		to.sendNumeric(irc.RplNoTopic, ch.Name)
		return
	}
	to.sendNumeric(irc.RplTopic, ch.Name, ch.Topic)
}

// sendNames tells one user who is in the channel: RPL_NAMREPLY lines
// then RPL_ENDOFNAMES. Nicks carry their privilege prefix and appear
// in join order, split over as many replies as the line length needs.
func (ch *Channel) sendNames(s *Server, to *User) {
	nicks := make([]string, 0, len(ch.Members))
	for _, id := range ch.Members {
		member, exists := s.Users[id]
		if !exists {
			continue
		}
		nicks = append(nicks, ch.modePrefix(id)+member.Nick)
	}

	// Measure the fixed portion of the reply so each chunk of nicks
	// fills what remains of the line.
	probe := irc.RplNamReply.Reply(to.Nick, ch.Name, "")
	probe.Source = s.Config.Hostname
	line, err := probe.Encode()
	if err != nil {
		line = ""
	}

	for _, chunk := range util.ChunkJoinStrings(nicks, irc.MaxLineLength-len(line), " ") {
		to.sendNumeric(irc.RplNamReply, ch.Name, chunk)
	}
	to.sendNumeric(irc.RplEndOfNames, ch.Name)
}

// sendWho answers WHO for the channel: one RPL_WHOREPLY per member in
// join order, then RPL_ENDOFWHO.
func (ch *Channel) sendWho(s *Server, to *User) {
	for _, id := range ch.Members {
		member, exists := s.Users[id]
		if !exists {
			continue
		}
		to.sendNumeric(irc.RplWhoReply, ch.Name, member.Username, member.Host,
			s.Config.Hostname, member.Nick, ch.modePrefix(id), member.RealName)
	}
	to.sendNumeric(irc.RplEndOfWho, ch.Name)
}
