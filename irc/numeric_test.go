package irc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericCommand(t *testing.T) {
	assert.Equal(t, "001", RplWelcome.Command())
	assert.Equal(t, "221", RplUmodeIs.Command())
	assert.Equal(t, "502", ErrUsersDontMatch.Command())
}

func TestNumericReply(t *testing.T) {
	tests := []struct {
		name    string
		message Message
		want    Message
	}{
		{
			"welcome",
			RplWelcome.Reply("alice", "alice", "alice", "127.0.0.1"),
			Message{
				Command:  "001",
				Params:   []string{"alice", "Welcome to the Internet Relay Network alice!alice@127.0.0.1"},
				Trailing: true,
			},
		},
		{
			"myinfo stays tokenized",
			RplMyInfo.Reply("alice", "example.com", "test-1", "Oov", "kl"),
			Message{
				Command: "004",
				Params:  []string{"alice", "example.com", "test-1", "Oov", "kl"},
			},
		},
		{
			"umodeis",
			RplUmodeIs.Reply("alice", "iw"),
			Message{
				Command: "221",
				Params:  []string{"alice", "+iw"},
			},
		},
		{
			"motd start keeps its trailing text as one parameter",
			RplMotdStart.Reply("alice", "example.com"),
			Message{
				Command:  "375",
				Params:   []string{"alice", "- example.com Message of the day - "},
				Trailing: true,
			},
		},
		{
			"whois idle takes a number",
			RplWhoisIdle.Reply("alice", "bob", 42),
			Message{
				Command:  "317",
				Params:   []string{"alice", "bob", "42", "seconds idle"},
				Trailing: true,
			},
		},
		{
			"usernotinchannel carries nick and channel",
			ErrUserNotInChannel.Reply("alice", "bob", "#lobby"),
			Message{
				Command:  "441",
				Params:   []string{"alice", "bob", "#lobby", "They aren't on that channel"},
				Trailing: true,
			},
		},
		{
			"isupport",
			RplISupport.Reply("alice", "perchnet"),
			Message{
				Command: "005",
				Params: []string{
					"alice", "PREFIX=(ov)@+", "CHANTYPES=#&", "NETWORK=perchnet",
					"CASEMAPPING=ascii", "CHANMODES=beI,k,l,imnst", "EXCEPTS=e",
					"CHANNELLEN=32", "are supported by this server",
				},
				Trailing: true,
			},
		},
	}

	for _, test := range tests {
		assert.Equal(t, test.want, test.message, test.name)
	}
}

// Rendered numerics encode to the exact wire lines clients see.
func TestNumericWireLines(t *testing.T) {
	tests := []struct {
		message Message
		want    string
	}{
		{
			RplWelcome.Reply("alice", "alice", "alice", "127.0.0.1"),
			":example.com 001 alice :Welcome to the Internet Relay Network alice!alice@127.0.0.1\r\n",
		},
		{
			ErrNicknameInUse.Reply("*", "alice"),
			":example.com 433 * alice :Nickname already in use\r\n",
		},
		{
			ErrBadChannelKey.Reply("bob", "#vault"),
			":example.com 475 bob #vault :Cannot join channel (+k)\r\n",
		},
		{
			ErrChannelIsFull.Reply("bob", "#small"),
			":example.com 471 bob #small :Cannot join channel (+l)\r\n",
		},
		{
			RplYoureOper.Reply("alice"),
			":example.com 381 alice :You are now an IRC operator\r\n",
		},
		{
			ErrPasswdMismatch.Reply("alice"),
			":example.com 464 alice :Password incorrect\r\n",
		},
		{
			ErrUsersDontMatch.Reply("alice"),
			":example.com 502 alice :Cannot change mode for other users\r\n",
		},
	}

	for _, test := range tests {
		m := test.message
		m.Source = "example.com"

		line, err := m.Encode()
		require.NoError(t, err)
		assert.Equal(t, test.want, line)
	}
}
