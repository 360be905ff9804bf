package main

import (
	"errors"
	"strings"
	"time"

	"github.com/perchirc/perch/irc"
)

// commandHandler is one entry in the verb table: the least number of
// parameters the command makes sense with, and the method that runs
// it. The dispatcher checks the parameter count so handlers don't have
// to.
type commandHandler struct {
	minParams int
	fn        func(*User, irc.Message) error
}

var userCommands = map[string]commandHandler{
	"PRIVMSG": {2, (*User).privmsgCommand},
	"JOIN":    {1, (*User).joinCommand},
	"PART":    {1, (*User).partCommand},
	"QUIT":    {0, (*User).quitCommand},
	"NAMES":   {0, (*User).namesCommand},
	"TOPIC":   {1, (*User).topicCommand},
	"WHO":     {1, (*User).whoCommand},
	"WHOIS":   {1, (*User).whoisCommand},
	"MODE":    {1, (*User).modeCommand},
	"OPER":    {2, (*User).operCommand},
	"MOTD":    {0, (*User).motdCommand},
	"PING":    {1, (*User).pingCommand},
}

// handleMessage deals with one message from a registered user: look
// the verb up, check parameters, run the handler, and turn whatever
// failure it reports into the numeric the client expects.
func (u *User) handleMessage(m irc.Message) {
	u.LastActivityTime = time.Now()

	// PONG needs no reply. It already did its job by updating the
	// activity time.
	if m.Command == "PONG" {
		return
	}

	handler, exists := userCommands[m.Command]
	if !exists {
		u.sendNumeric(irc.ErrUnknownCommand, m.Command)
		return
	}

	if len(m.Params) < handler.minParams {
		u.replyCommandError(InsufficientParamsError{Command: m.Command})
		return
	}

	if err := handler.fn(u, m); err != nil {
		u.replyCommandError(err)
	}
}

// replyCommandError translates a failure from a handler into its
// numeric reply. Anything we don't recognize gets logged and dropped;
// inventing a numeric would confuse clients more than silence.
func (u *User) replyCommandError(err error) {
	var (
		noUser       NoSuchUserError
		noChannel    NoSuchChannelError
		invalidChan  InvalidChannelError
		fewParams    InsufficientParamsError
		badKey       BadKeyError
		chanFull     ChannelFullError
		needChanOp   NeedChanOpError
		nickInUse    NickInUseError
		usersNoMatch UsersDontMatchError
	)

	switch {
	case errors.As(err, &noUser):
		u.sendNumeric(irc.ErrNoSuchNick, noUser.Target)
	case errors.As(err, &noChannel):
		u.sendNumeric(irc.ErrNoSuchChannel, noChannel.Name)
	case errors.As(err, &invalidChan):
		u.sendNumeric(irc.ErrBadChanMask, invalidChan.Name)
	case errors.As(err, &fewParams):
		u.sendNumeric(irc.ErrNeedMoreParams, fewParams.Command)
	case errors.As(err, &badKey):
		u.sendNumeric(irc.ErrBadChannelKey, badKey.Channel)
	case errors.As(err, &chanFull):
		u.sendNumeric(irc.ErrChannelIsFull, chanFull.Channel)
	case errors.As(err, &needChanOp):
		u.sendNumeric(irc.ErrChanOPrivsNeeded, needChanOp.Channel)
	case errors.As(err, &nickInUse):
		u.sendNumeric(irc.ErrNicknameInUse, nickInUse.Nick)
	case errors.As(err, &usersNoMatch):
		u.sendNumeric(irc.ErrUsersDontMatch)
	default:
		log.Errorf("User %s: Unhandled command error: %s", u, err)
	}
}

// privmsgCommand delivers a message to each comma separated target.
// Targets fail independently: a bad one draws its numeric without
// stopping the rest.
func (u *User) privmsgCommand(m irc.Message) error {
	targets := strings.Split(m.Params[0], ",")
	text := m.Params[1]

	u.LastMessageTime = time.Now()

	for _, target := range targets {
		if isChannelLike(target) {
			ch, err := u.Server.getChannel(target)
			if err != nil {
				u.replyCommandError(err)
				continue
			}
			ch.msg(u.Server, u, text)
			continue
		}

		to, err := u.Server.getUser(target)
		if err != nil {
			u.replyCommandError(err)
			continue
		}
		to.maybeQueueMessage(irc.Message{
			Source:   u.identifier(),
			Command:  "PRIVMSG",
			Params:   []string{to.Nick, text},
			Trailing: true,
		})
	}

	return nil
}

// joinCommand joins each comma separated channel, creating those that
// don't exist. Keys, if given, line up with the channels by position.
func (u *User) joinCommand(m irc.Message) error {
	// JOIN 0 is a special case. Leave all channels.
	if m.Params[0] == "0" {
		for _, name := range u.channelSnapshot() {
			if ch, exists := u.Server.Channels[name]; exists {
				ch.part(u.Server, u, "")
			}
		}
		return nil
	}

	names := strings.Split(m.Params[0], ",")

	var keys []string
	if len(m.Params) >= 2 {
		keys = strings.Split(m.Params[1], ",")
	}

	for i, name := range names {
		key := ""
		if i < len(keys) {
			key = keys[i]
		}

		if err := u.Server.joinUserToChannel(u, name, key); err != nil {
			u.replyCommandError(err)
		}
	}

	return nil
}

func (u *User) partCommand(m irc.Message) error {
	ch, err := u.Server.getChannel(m.Params[0])
	if err != nil {
		// Parting a channel that isn't there is not worth a reply.
		return nil
	}

	reason := ""
	if len(m.Params) >= 2 {
		reason = m.Params[1]
	}

	ch.part(u.Server, u, reason)
	return nil
}

func (u *User) quitCommand(m irc.Message) error {
	reason := "Client Quit"
	if len(m.Params) > 0 {
		reason = m.Params[0]
	}

	u.Server.quitUser(u, reason)
	return nil
}

// namesCommand lists members of each named channel, or of every
// channel the user is in when none are named.
func (u *User) namesCommand(m irc.Message) error {
	names := u.channelSnapshot()
	if len(m.Params) > 0 {
		names = strings.Split(m.Params[0], ",")
	}

	for _, name := range names {
		ch, err := u.Server.getChannel(name)
		if err != nil {
			u.replyCommandError(err)
			continue
		}
		ch.sendNames(u.Server, u)
	}

	return nil
}

// topicCommand queries the topic with one parameter, sets it with two.
// Setting a blank topic clears it.
func (u *User) topicCommand(m irc.Message) error {
	ch, err := u.Server.getChannel(m.Params[0])
	if err != nil {
		return err
	}

	if len(m.Params) == 1 {
		ch.sendTopic(u.Server, u)
		return nil
	}

	return ch.trySetTopic(u.Server, u, m.Params[1])
}

func (u *User) whoCommand(m irc.Message) error {
	ch, err := u.Server.getChannel(m.Params[0])
	if err != nil {
		return err
	}

	ch.sendWho(u.Server, u)
	return nil
}

func (u *User) whoisCommand(m irc.Message) error {
	for _, target := range strings.Split(m.Params[0], ",") {
		if err := u.Server.sendWhois(u, target); err != nil {
			u.replyCommandError(err)
		}
	}

	return nil
}

// modeCommand covers both channel and user modes. A channel-like
// target picks the channel path; anything else must be the user's own
// nick.
func (u *User) modeCommand(m irc.Message) error {
	target := m.Params[0]

	if isChannelLike(target) {
		ch, err := u.Server.getChannel(target)
		if err != nil {
			return err
		}

		if len(m.Params) == 1 {
			ch.sendModes(u.Server, u)
			return nil
		}

		return ch.tryModeChanges(u.Server, u, m.Params[1], m.Params[2:])
	}

	if canonicalizeNick(target) != canonicalizeNick(u.Nick) {
		return UsersDontMatchError{}
	}

	if len(m.Params) == 1 {
		u.sendNumeric(irc.RplUmodeIs, u.modeLetters())
		return nil
	}

	u.applyUserModes(m.Params[1])
	return nil
}

// applyUserModes applies a user mode change to the user themselves.
// Operator status is never self-granted: o and O are silently skipped.
// Changes that took effect are echoed back as a MODE message.
func (u *User) applyUserModes(modestring string) {
	var adding bool
	switch {
	case strings.HasPrefix(modestring, "+"):
		adding = true
	case strings.HasPrefix(modestring, "-"):
		adding = false
	default:
		return
	}

	applied := ""
	for i := 1; i < len(modestring); i++ {
		mode := modestring[i]

		if mode == 'o' || mode == 'O' {
			continue
		}

		if adding {
			u.Modes[mode] = struct{}{}
		} else {
			delete(u.Modes, mode)
		}
		applied += string(mode)
	}

	if applied == "" {
		return
	}

	u.maybeQueueMessage(irc.Message{
		Source:  u.identifier(),
		Command: "MODE",
		Params:  []string{u.Nick, modestring[:1] + applied},
	})
}

func (u *User) operCommand(m irc.Message) error {
	u.Server.tryMakeOper(u, m.Params[0], m.Params[1])
	return nil
}

func (u *User) motdCommand(m irc.Message) error {
	u.Server.sendMOTD(u)
	return nil
}

func (u *User) pingCommand(m irc.Message) error {
	u.messageFromServer("PONG", []string{m.Params[0]}, true)
	return nil
}

// channelSnapshot copies the user's channel list so callers can part
// channels while ranging over it.
func (u *User) channelSnapshot() []string {
	names := make([]string, len(u.Channels))
	copy(names, u.Channels)
	return names
}
