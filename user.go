package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/perchirc/perch/irc"
)

// User is a client that finished registration. It keeps the Client for
// the connection plumbing and adds the user's identity and session
// state.
type User struct {
	*Client

	// Nick as the user gave it. Lookups go through the canonical form.
	Nick string

	Username string
	RealName string

	// Host the user connected from. We use the literal IP.
	Host string

	// Single letter user modes.
	Modes map[byte]struct{}

	// Canonical names of the channels the user is in, in join order.
	Channels []string

	// Time of the user's last PRIVMSG. Reported as idle time in WHOIS.
	LastMessageTime time.Time
}

// newUser promotes a registered client. The caller adds it to the
// registry.
func newUser(c *Client) *User {
	return &User{
		Client:          c,
		Nick:            c.PreRegNick,
		Username:        c.PreRegUsername,
		RealName:        c.PreRegRealName,
		Host:            c.Conn.IP.String(),
		Modes:           make(map[byte]struct{}),
		LastMessageTime: time.Now(),
	}
}

func (u *User) String() string {
	return fmt.Sprintf("%d: %s", u.ID, u.identifier())
}

// identifier is the nick!user@host form that prefixes messages the
// user originates.
func (u *User) identifier() string {
	return fmt.Sprintf("%s!%s@%s", u.Nick, u.Username, u.Host)
}

func (u *User) isOperator() bool {
	_, exists := u.Modes['O']
	return exists
}

// onChannel says whether the user is in the channel (canonical name).
func (u *User) onChannel(name string) bool {
	for _, channel := range u.Channels {
		if channel == name {
			return true
		}
	}
	return false
}

func (u *User) addChannel(name string) {
	if !u.onChannel(name) {
		u.Channels = append(u.Channels, name)
	}
}

func (u *User) removeChannel(name string) {
	_ = removeString(&u.Channels, name)
}

// modeLetters renders the user's modes as a string of letters in a
// stable order.
func (u *User) modeLetters() string {
	letters := make([]byte, 0, len(u.Modes))
	for mode := range u.Modes {
		letters = append(letters, mode)
	}
	sort.Slice(letters, func(i, j int) bool { return letters[i] < letters[j] })
	return string(letters)
}

// sendNumeric queues a numeric reply addressed to the user.
func (u *User) sendNumeric(n irc.Numeric, args ...interface{}) {
	m := n.Reply(u.Nick, args...)
	m.Source = u.Server.Config.Hostname
	u.maybeQueueMessage(m)
}
