package main

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perchirc/perch/irc"
)

func TestChannelJoinCreatesAndAnnounces(t *testing.T) {
	s := newTestServer()
	alice := registerTestUser(t, s, "alice")

	require.NoError(t, s.joinUserToChannel(alice, "#Lobby", ""))

	// The channel exists under its canonical name and the founder has
	// ops.
	ch, exists := s.Channels["#lobby"]
	require.True(t, exists)
	assert.Equal(t, "#lobby", ch.Name)
	assert.True(t, ch.isMember(alice.ID))
	assert.True(t, ch.userHasMode(alice.ID, 'o'))
	assert.Equal(t, []string{"#lobby"}, alice.Channels)

	msgs := drainMessages(alice.WriteChan)
	require.Len(t, msgs, 5)

	assert.Equal(t, irc.Message{
		Source:  "alice!alice@127.0.0.1",
		Command: "JOIN",
		Params:  []string{"#lobby"},
	}, msgs[0])

	assert.Equal(t, irc.Message{
		Source:  "irc.example.com",
		Command: "MODE",
		Params:  []string{"#lobby", "+o", "alice"},
	}, msgs[1])

	assert.Equal(t, irc.Message{
		Source:   "irc.example.com",
		Command:  "331",
		Params:   []string{"alice", "#lobby", "No topic is set"},
		Trailing: true,
	}, msgs[2])

	assert.Equal(t, irc.Message{
		Source:   "irc.example.com",
		Command:  "353",
		Params:   []string{"alice", "=", "#lobby", "@alice"},
		Trailing: true,
	}, msgs[3])

	assert.Equal(t, irc.Message{
		Source:   "irc.example.com",
		Command:  "366",
		Params:   []string{"alice", "#lobby", "End of NAMES List"},
		Trailing: true,
	}, msgs[4])
}

func TestChannelJoinExisting(t *testing.T) {
	s := newTestServer()
	alice := registerTestUser(t, s, "alice")
	bob := registerTestUser(t, s, "bob")

	require.NoError(t, s.joinUserToChannel(alice, "#lobby", ""))
	drainMessages(alice.WriteChan)

	require.NoError(t, s.joinUserToChannel(bob, "#lobby", ""))

	// The existing member hears about the join. Nothing more.
	aliceMsgs := drainMessages(alice.WriteChan)
	require.Len(t, aliceMsgs, 1)
	assert.Equal(t, irc.Message{
		Source:  "bob!bob@127.0.0.1",
		Command: "JOIN",
		Params:  []string{"#lobby"},
	}, aliceMsgs[0])

	// The joiner hears the join, the topic, and the names, with nicks in
	// join order carrying their privilege prefixes. No founder ops this
	// time.
	bobMsgs := drainMessages(bob.WriteChan)
	require.Len(t, bobMsgs, 4)
	assert.Equal(t, "JOIN", bobMsgs[0].Command)
	assert.Equal(t, "331", bobMsgs[1].Command)
	assert.Equal(t, irc.Message{
		Source:   "irc.example.com",
		Command:  "353",
		Params:   []string{"bob", "=", "#lobby", "@alice bob"},
		Trailing: true,
	}, bobMsgs[2])
	assert.Equal(t, "366", bobMsgs[3].Command)

	ch := s.Channels["#lobby"]
	assert.False(t, ch.userHasMode(bob.ID, 'o'))
	assert.Equal(t, []uint64{alice.ID, bob.ID}, ch.Members)
}

func TestChannelJoinWhileMember(t *testing.T) {
	s := newTestServer()
	alice := registerTestUser(t, s, "alice")

	require.NoError(t, s.joinUserToChannel(alice, "#lobby", ""))
	drainMessages(alice.WriteChan)

	// Joining again doesn't announce anything, but the topic and names
	// go out again.
	require.NoError(t, s.joinUserToChannel(alice, "#lobby", ""))

	msgs := drainMessages(alice.WriteChan)
	require.Len(t, msgs, 3)
	assert.Equal(t, "331", msgs[0].Command)
	assert.Equal(t, "353", msgs[1].Command)
	assert.Equal(t, "366", msgs[2].Command)

	assert.Equal(t, []uint64{alice.ID}, s.Channels["#lobby"].Members)
	assert.Equal(t, []string{"#lobby"}, alice.Channels)
}

func TestChannelKey(t *testing.T) {
	s := newTestServer()
	alice := registerTestUser(t, s, "alice")
	bob := registerTestUser(t, s, "bob")

	require.NoError(t, s.joinUserToChannel(alice, "#vault", ""))
	ch := s.Channels["#vault"]
	drainMessages(alice.WriteChan)

	require.NoError(t, ch.tryModeChanges(s, alice, "+k", []string{"sesame"}))
	assert.Equal(t, "sesame", ch.Key)

	// Key changes aren't announced.
	assert.Empty(t, drainMessages(alice.WriteChan))

	var badKey BadKeyError
	err := s.joinUserToChannel(bob, "#vault", "")
	require.ErrorAs(t, err, &badKey)
	assert.Equal(t, "#vault", badKey.Channel)
	assert.False(t, ch.isMember(bob.ID))

	err = s.joinUserToChannel(bob, "#vault", "wrong")
	require.ErrorAs(t, err, &badKey)

	require.NoError(t, s.joinUserToChannel(bob, "#vault", "sesame"))
	assert.True(t, ch.isMember(bob.ID))

	// Removing the key opens the channel again.
	require.NoError(t, ch.tryModeChanges(s, alice, "-k", nil))
	assert.Equal(t, "", ch.Key)

	carol := registerTestUser(t, s, "carol")
	require.NoError(t, s.joinUserToChannel(carol, "#vault", ""))
}

func TestChannelLimit(t *testing.T) {
	s := newTestServer()
	alice := registerTestUser(t, s, "alice")
	bob := registerTestUser(t, s, "bob")

	require.NoError(t, s.joinUserToChannel(alice, "#small", ""))
	ch := s.Channels["#small"]

	require.NoError(t, ch.tryModeChanges(s, alice, "+l", []string{"1"}))
	assert.Equal(t, 1, ch.Limit)

	var full ChannelFullError
	err := s.joinUserToChannel(bob, "#small", "")
	require.ErrorAs(t, err, &full)
	assert.Equal(t, "#small", full.Channel)
	assert.False(t, ch.isMember(bob.ID))

	require.NoError(t, ch.tryModeChanges(s, alice, "-l", nil))
	assert.Equal(t, 0, ch.Limit)

	require.NoError(t, s.joinUserToChannel(bob, "#small", ""))
}

func TestChannelPart(t *testing.T) {
	s := newTestServer()
	alice := registerTestUser(t, s, "alice")
	bob := registerTestUser(t, s, "bob")

	require.NoError(t, s.joinUserToChannel(alice, "#lobby", ""))
	require.NoError(t, s.joinUserToChannel(bob, "#lobby", ""))
	ch := s.Channels["#lobby"]
	drainMessages(alice.WriteChan)
	drainMessages(bob.WriteChan)

	ch.part(s, bob, "bye")

	// The parted user hears nothing. The rest hear the part with its
	// reason.
	assert.Empty(t, drainMessages(bob.WriteChan))

	aliceMsgs := drainMessages(alice.WriteChan)
	require.Len(t, aliceMsgs, 1)
	assert.Equal(t, irc.Message{
		Source:   "bob!bob@127.0.0.1",
		Command:  "PART",
		Params:   []string{"#lobby", "bye"},
		Trailing: true,
	}, aliceMsgs[0])

	assert.Equal(t, []uint64{alice.ID}, ch.Members)
	assert.Empty(t, bob.Channels)

	// Parting a channel you're not in draws a numeric directly.
	ch.part(s, bob, "")
	bobMsgs := drainMessages(bob.WriteChan)
	require.Len(t, bobMsgs, 1)
	assert.Equal(t, irc.Message{
		Source:   "irc.example.com",
		Command:  "442",
		Params:   []string{"bob", "#lobby", "You're not on that channel"},
		Trailing: true,
	}, bobMsgs[0])

	// The last member leaving reaps the channel. A part without a reason
	// carries none.
	ch.part(s, alice, "")
	_, exists := s.Channels["#lobby"]
	assert.False(t, exists)
	assert.Empty(t, alice.Channels)
}

func TestChannelPartReapsUserModes(t *testing.T) {
	s := newTestServer()
	alice := registerTestUser(t, s, "alice")
	bob := registerTestUser(t, s, "bob")

	require.NoError(t, s.joinUserToChannel(alice, "#lobby", ""))
	require.NoError(t, s.joinUserToChannel(bob, "#lobby", ""))
	ch := s.Channels["#lobby"]

	require.NoError(t, ch.tryModeChanges(s, alice, "+o", []string{"bob"}))
	require.True(t, ch.userHasMode(bob.ID, 'o'))

	ch.part(s, bob, "")

	// Rejoining starts from scratch.
	require.NoError(t, s.joinUserToChannel(bob, "#lobby", ""))
	assert.False(t, ch.userHasMode(bob.ID, 'o'))
}

func TestChannelMsgExcludesSender(t *testing.T) {
	s := newTestServer()
	alice := registerTestUser(t, s, "alice")
	bob := registerTestUser(t, s, "bob")
	carol := registerTestUser(t, s, "carol")

	require.NoError(t, s.joinUserToChannel(alice, "#lobby", ""))
	require.NoError(t, s.joinUserToChannel(bob, "#lobby", ""))
	require.NoError(t, s.joinUserToChannel(carol, "#lobby", ""))
	ch := s.Channels["#lobby"]
	drainMessages(alice.WriteChan)
	drainMessages(bob.WriteChan)
	drainMessages(carol.WriteChan)

	ch.msg(s, alice, "hello all")

	want := irc.Message{
		Source:   "alice!alice@127.0.0.1",
		Command:  "PRIVMSG",
		Params:   []string{"#lobby", "hello all"},
		Trailing: true,
	}

	assert.Empty(t, drainMessages(alice.WriteChan))

	bobMsgs := drainMessages(bob.WriteChan)
	require.Len(t, bobMsgs, 1)
	assert.Equal(t, want, bobMsgs[0])

	carolMsgs := drainMessages(carol.WriteChan)
	require.Len(t, carolMsgs, 1)
	assert.Equal(t, want, carolMsgs[0])
}

func TestTryModeChangesRequiresOps(t *testing.T) {
	s := newTestServer()
	alice := registerTestUser(t, s, "alice")
	bob := registerTestUser(t, s, "bob")

	require.NoError(t, s.joinUserToChannel(alice, "#lobby", ""))
	require.NoError(t, s.joinUserToChannel(bob, "#lobby", ""))
	ch := s.Channels["#lobby"]

	var needOp NeedChanOpError
	err := ch.tryModeChanges(s, bob, "+t", nil)
	require.ErrorAs(t, err, &needOp)
	assert.Equal(t, "#lobby", needOp.Channel)
	assert.False(t, ch.hasMode('t'))
}

func TestTryModeChangesSimple(t *testing.T) {
	s := newTestServer()
	alice := registerTestUser(t, s, "alice")
	bob := registerTestUser(t, s, "bob")

	require.NoError(t, s.joinUserToChannel(alice, "#lobby", ""))
	require.NoError(t, s.joinUserToChannel(bob, "#lobby", ""))
	ch := s.Channels["#lobby"]
	drainMessages(alice.WriteChan)
	drainMessages(bob.WriteChan)

	require.NoError(t, ch.tryModeChanges(s, alice, "+tn", nil))
	assert.True(t, ch.hasMode('t'))
	assert.True(t, ch.hasMode('n'))

	// One announcement per letter, to every member, from the setter.
	for _, u := range []*User{alice, bob} {
		msgs := drainMessages(u.WriteChan)
		require.Len(t, msgs, 2)
		assert.Equal(t, irc.Message{
			Source:  "alice!alice@127.0.0.1",
			Command: "MODE",
			Params:  []string{"#lobby", "+t"},
		}, msgs[0])
		assert.Equal(t, irc.Message{
			Source:  "alice!alice@127.0.0.1",
			Command: "MODE",
			Params:  []string{"#lobby", "+n"},
		}, msgs[1])
	}

	require.NoError(t, ch.tryModeChanges(s, alice, "-t", nil))
	assert.False(t, ch.hasMode('t'))
	assert.True(t, ch.hasMode('n'))

	msgs := drainMessages(bob.WriteChan)
	require.Len(t, msgs, 1)
	assert.Equal(t, []string{"#lobby", "-t"}, msgs[0].Params)
}

func TestTryModeChangesDeopSelf(t *testing.T) {
	s := newTestServer()
	alice := registerTestUser(t, s, "alice")

	require.NoError(t, s.joinUserToChannel(alice, "#lobby", ""))
	ch := s.Channels["#lobby"]
	drainMessages(alice.WriteChan)

	// Ops are checked per change, so dropping your own ops cuts the
	// rest of the modestring off.
	var needOp NeedChanOpError
	err := ch.tryModeChanges(s, alice, "-ot", []string{"alice"})
	require.ErrorAs(t, err, &needOp)

	assert.False(t, ch.userHasMode(alice.ID, 'o'))
	assert.False(t, ch.hasMode('t'))

	msgs := drainMessages(alice.WriteChan)
	require.Len(t, msgs, 1)
	assert.Equal(t, irc.Message{
		Source:  "alice!alice@127.0.0.1",
		Command: "MODE",
		Params:  []string{"#lobby", "-o", "alice"},
	}, msgs[0])
}

func TestTryModeChangesOpAndVoice(t *testing.T) {
	s := newTestServer()
	alice := registerTestUser(t, s, "alice")
	bob := registerTestUser(t, s, "bob")

	require.NoError(t, s.joinUserToChannel(alice, "#lobby", ""))
	require.NoError(t, s.joinUserToChannel(bob, "#lobby", ""))
	ch := s.Channels["#lobby"]
	drainMessages(alice.WriteChan)
	drainMessages(bob.WriteChan)

	require.NoError(t, ch.tryModeChanges(s, alice, "+v", []string{"bob"}))
	assert.True(t, ch.userHasMode(bob.ID, 'v'))
	assert.Equal(t, "+", ch.modePrefix(bob.ID))

	msgs := drainMessages(bob.WriteChan)
	require.Len(t, msgs, 1)
	assert.Equal(t, irc.Message{
		Source:  "alice!alice@127.0.0.1",
		Command: "MODE",
		Params:  []string{"#lobby", "+v", "bob"},
	}, msgs[0])

	// Ops trump voice in the prefix.
	require.NoError(t, ch.tryModeChanges(s, alice, "+o", []string{"bob"}))
	assert.Equal(t, "@", ch.modePrefix(bob.ID))

	require.NoError(t, ch.tryModeChanges(s, alice, "-o", []string{"bob"}))
	assert.Equal(t, "+", ch.modePrefix(bob.ID))

	require.NoError(t, ch.tryModeChanges(s, alice, "-v", []string{"bob"}))
	assert.Equal(t, "", ch.modePrefix(bob.ID))
}

func TestTryModeChangesTargetNotInChannel(t *testing.T) {
	s := newTestServer()
	alice := registerTestUser(t, s, "alice")
	// Registered, but not a member.
	registerTestUser(t, s, "carol")

	require.NoError(t, s.joinUserToChannel(alice, "#lobby", ""))
	ch := s.Channels["#lobby"]
	drainMessages(alice.WriteChan)

	want := func(nick string) irc.Message {
		return irc.Message{
			Source:   "irc.example.com",
			Command:  "441",
			Params:   []string{"alice", nick, "#lobby", "They aren't on that channel"},
			Trailing: true,
		}
	}

	require.NoError(t, ch.tryModeChanges(s, alice, "+o", []string{"ghost"}))
	msgs := drainMessages(alice.WriteChan)
	require.Len(t, msgs, 1)
	assert.Equal(t, want("ghost"), msgs[0])

	require.NoError(t, ch.tryModeChanges(s, alice, "+v", []string{"carol"}))
	msgs = drainMessages(alice.WriteChan)
	require.Len(t, msgs, 1)
	assert.Equal(t, want("carol"), msgs[0])
}

func TestTryModeChangesLimitValidation(t *testing.T) {
	s := newTestServer()
	alice := registerTestUser(t, s, "alice")

	require.NoError(t, s.joinUserToChannel(alice, "#lobby", ""))
	ch := s.Channels["#lobby"]
	drainMessages(alice.WriteChan)

	var fewParams InsufficientParamsError
	err := ch.tryModeChanges(s, alice, "+l", nil)
	require.ErrorAs(t, err, &fewParams)
	assert.Equal(t, "MODE", fewParams.Command)

	// A limit that isn't a non-negative count is dropped silently.
	require.NoError(t, ch.tryModeChanges(s, alice, "+l", []string{"abc"}))
	assert.Equal(t, 0, ch.Limit)

	require.NoError(t, ch.tryModeChanges(s, alice, "+l", []string{"-3"}))
	assert.Equal(t, 0, ch.Limit)

	require.NoError(t, ch.tryModeChanges(s, alice, "+l", []string{"5"}))
	assert.Equal(t, 5, ch.Limit)

	// Limit changes aren't announced.
	assert.Empty(t, drainMessages(alice.WriteChan))
}

func TestTryModeChangesMasks(t *testing.T) {
	s := newTestServer()
	alice := registerTestUser(t, s, "alice")
	bob := registerTestUser(t, s, "bob")

	require.NoError(t, s.joinUserToChannel(alice, "#lobby", ""))
	require.NoError(t, s.joinUserToChannel(bob, "#lobby", ""))
	ch := s.Channels["#lobby"]
	drainMessages(alice.WriteChan)
	drainMessages(bob.WriteChan)

	var fewParams InsufficientParamsError
	err := ch.tryModeChanges(s, alice, "+b", nil)
	require.ErrorAs(t, err, &fewParams)

	require.NoError(t, ch.tryModeChanges(s, alice, "+b",
		[]string{"*!*@spam.example.com"}))
	assert.Equal(t, []string{"*!*@spam.example.com"}, ch.BanMasks)

	msgs := drainMessages(bob.WriteChan)
	require.Len(t, msgs, 1)
	assert.Equal(t, irc.Message{
		Source:  "alice!alice@127.0.0.1",
		Command: "MODE",
		Params:  []string{"#lobby", "+b", "*!*@spam.example.com"},
	}, msgs[0])

	// Removing a mask that isn't listed changes nothing and stays
	// quiet.
	require.NoError(t, ch.tryModeChanges(s, alice, "-b", []string{"*!*@absent"}))
	assert.Equal(t, []string{"*!*@spam.example.com"}, ch.BanMasks)
	assert.Empty(t, drainMessages(bob.WriteChan))

	require.NoError(t, ch.tryModeChanges(s, alice, "-b",
		[]string{"*!*@spam.example.com"}))
	assert.Empty(t, ch.BanMasks)
	msgs = drainMessages(bob.WriteChan)
	require.Len(t, msgs, 1)
	assert.Equal(t, []string{"#lobby", "-b", "*!*@spam.example.com"},
		msgs[0].Params)

	require.NoError(t, ch.tryModeChanges(s, alice, "+e", []string{"*!*@ok.example.com"}))
	assert.Equal(t, []string{"*!*@ok.example.com"}, ch.ExceptMasks)
}

func TestTryModeChangesIgnoresOddInput(t *testing.T) {
	s := newTestServer()
	alice := registerTestUser(t, s, "alice")

	require.NoError(t, s.joinUserToChannel(alice, "#lobby", ""))
	ch := s.Channels["#lobby"]
	drainMessages(alice.WriteChan)

	// No sign means the query form, which we don't support. Ignore it.
	require.NoError(t, ch.tryModeChanges(s, alice, "t", nil))
	assert.False(t, ch.hasMode('t'))

	// Unknown letters are skipped.
	require.NoError(t, ch.tryModeChanges(s, alice, "+x", nil))

	assert.Empty(t, drainMessages(alice.WriteChan))
}

func TestSendModes(t *testing.T) {
	s := newTestServer()
	alice := registerTestUser(t, s, "alice")
	bob := registerTestUser(t, s, "bob")

	require.NoError(t, s.joinUserToChannel(alice, "#lobby", ""))
	require.NoError(t, s.joinUserToChannel(bob, "#lobby", ""))
	ch := s.Channels["#lobby"]
	drainMessages(alice.WriteChan)
	drainMessages(bob.WriteChan)

	ch.sendModes(s, alice)
	msgs := drainMessages(alice.WriteChan)
	require.Len(t, msgs, 1)
	assert.Equal(t, irc.Message{
		Source:  "irc.example.com",
		Command: "324",
		Params:  []string{"alice", "#lobby", "+"},
	}, msgs[0])

	require.NoError(t, ch.tryModeChanges(s, alice, "+t", nil))
	require.NoError(t, ch.tryModeChanges(s, alice, "+l", []string{"5"}))
	require.NoError(t, ch.tryModeChanges(s, alice, "+k", []string{"sesame"}))
	drainMessages(alice.WriteChan)
	drainMessages(bob.WriteChan)

	// Ops see the limit and key values.
	ch.sendModes(s, alice)
	msgs = drainMessages(alice.WriteChan)
	require.Len(t, msgs, 1)
	assert.Equal(t, []string{"alice", "#lobby", "+tlk", "5", "sesame"},
		msgs[0].Params)

	// Everyone else sees only the letters.
	ch.sendModes(s, bob)
	msgs = drainMessages(bob.WriteChan)
	require.Len(t, msgs, 1)
	assert.Equal(t, []string{"bob", "#lobby", "+tlk"}, msgs[0].Params)
}

func TestTopic(t *testing.T) {
	s := newTestServer()
	alice := registerTestUser(t, s, "alice")
	bob := registerTestUser(t, s, "bob")

	require.NoError(t, s.joinUserToChannel(alice, "#lobby", ""))
	require.NoError(t, s.joinUserToChannel(bob, "#lobby", ""))
	ch := s.Channels["#lobby"]
	drainMessages(alice.WriteChan)
	drainMessages(bob.WriteChan)

	var needOp NeedChanOpError
	err := ch.trySetTopic(s, bob, "bob's topic")
	require.ErrorAs(t, err, &needOp)
	assert.Equal(t, "", ch.Topic)

	require.NoError(t, ch.trySetTopic(s, alice, "perch time"))
	assert.Equal(t, "perch time", ch.Topic)

	// Everyone hears the change, the setter included.
	want := irc.Message{
		Source:   "alice!alice@127.0.0.1",
		Command:  "TOPIC",
		Params:   []string{"#lobby", "perch time"},
		Trailing: true,
	}
	msgs := drainMessages(alice.WriteChan)
	require.Len(t, msgs, 1)
	assert.Equal(t, want, msgs[0])
	msgs = drainMessages(bob.WriteChan)
	require.Len(t, msgs, 1)
	assert.Equal(t, want, msgs[0])

	ch.sendTopic(s, bob)
	msgs = drainMessages(bob.WriteChan)
	require.Len(t, msgs, 1)
	assert.Equal(t, irc.Message{
		Source:   "irc.example.com",
		Command:  "332",
		Params:   []string{"bob", "#lobby", "perch time"},
		Trailing: true,
	}, msgs[0])

	// A blank topic clears it.
	require.NoError(t, ch.trySetTopic(s, alice, ""))
	assert.Equal(t, "", ch.Topic)
	drainMessages(alice.WriteChan)
	drainMessages(bob.WriteChan)

	ch.sendTopic(s, bob)
	msgs = drainMessages(bob.WriteChan)
	require.Len(t, msgs, 1)
	assert.Equal(t, "331", msgs[0].Command)
}

func TestSendNamesChunks(t *testing.T) {
	s := newTestServer()
	watcher := registerTestUser(t, s, "watcher")

	require.NoError(t, s.joinUserToChannel(watcher, "#big", ""))

	// Enough long nicks that the list cannot fit one reply.
	var nicks []string
	for i := 0; i < 20; i++ {
		nick := fmt.Sprintf("longnickname%02d%s", i, strings.Repeat("x", 16))
		nicks = append(nicks, nick)

		u := registerTestUser(t, s, nick)
		require.NoError(t, s.joinUserToChannel(u, "#big", ""))
	}

	drainMessages(watcher.WriteChan)

	ch := s.Channels["#big"]
	ch.sendNames(s, watcher)

	msgs := drainMessages(watcher.WriteChan)
	require.GreaterOrEqual(t, len(msgs), 3, "expected several name replies")

	var got []string
	for _, m := range msgs[:len(msgs)-1] {
		require.Equal(t, "353", m.Command)
		require.Equal(t, []string{"watcher", "=", "#big"}, m.Params[:3])

		// Every reply must fit on the wire whole.
		line, err := m.Encode()
		require.NoError(t, err)
		require.LessOrEqual(t, len(line), irc.MaxLineLength)

		got = append(got, strings.Split(m.Params[3], " ")...)
	}

	end := msgs[len(msgs)-1]
	assert.Equal(t, "366", end.Command)
	assert.Equal(t, []string{"watcher", "#big", "End of NAMES List"}, end.Params)

	// Join order survives the chunking, prefixes intact.
	want := append([]string{"@watcher"}, nicks...)
	assert.Equal(t, want, got)
}

func TestSendWho(t *testing.T) {
	s := newTestServer()
	alice := registerTestUser(t, s, "alice")
	bob := registerTestUser(t, s, "bob")

	require.NoError(t, s.joinUserToChannel(alice, "#lobby", ""))
	require.NoError(t, s.joinUserToChannel(bob, "#lobby", ""))
	ch := s.Channels["#lobby"]
	drainMessages(bob.WriteChan)

	ch.sendWho(s, bob)

	msgs := drainMessages(bob.WriteChan)
	require.Len(t, msgs, 3)

	assert.Equal(t, irc.Message{
		Source:   "irc.example.com",
		Command:  "352",
		Params:   []string{"bob", "#lobby", "alice", "127.0.0.1", "irc.example.com", "alice", "H@", "0 alice tester"},
		Trailing: true,
	}, msgs[0])

	assert.Equal(t, irc.Message{
		Source:   "irc.example.com",
		Command:  "352",
		Params:   []string{"bob", "#lobby", "bob", "127.0.0.1", "irc.example.com", "bob", "H", "0 bob tester"},
		Trailing: true,
	}, msgs[1])

	assert.Equal(t, irc.Message{
		Source:   "irc.example.com",
		Command:  "315",
		Params:   []string{"bob", "#lobby", "End of WHO List"},
		Trailing: true,
	}, msgs[2])
}
