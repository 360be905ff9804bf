package irc

import "fmt"

// Numeric is one entry in the reply catalog: a numbered reply with a
// templated body. The template is rendered with fmt verbs and then
// split like the parameter section of an inbound line, so a token with
// a leading colon becomes the trailing parameter.
type Numeric struct {
	Number   int
	Template string

	// Trailing marks replies whose final parameter is sent with a
	// leading colon.
	Trailing bool
}

// Command returns the command string for the numeric: three digits,
// zero padded.
func (n Numeric) Command() string {
	return fmt.Sprintf("%03d", n.Number)
}

// Reply builds the message for this numeric addressed to the given
// nick. The recipient's nick is always the first parameter. The caller
// stamps the server name as source before sending.
func (n Numeric) Reply(nick string, args ...interface{}) Message {
	body := fmt.Sprintf(n.Template, args...)
	params, _ := parseParams(body, 0)

	return Message{
		Command:  n.Command(),
		Params:   append([]string{nick}, params...),
		Trailing: n.Trailing,
	}
}

// The numeric catalog (RFC 1459/2812 subset). Comments name the
// template arguments.
var (
	// nick, user, host
	RplWelcome = Numeric{1, ":Welcome to the Internet Relay Network %s!%s@%s", true}

	// server name, version
	RplYourHost = Numeric{2, ":Your host is %s, running version %s", true}

	// creation time
	RplCreated = Numeric{3, ":This server was created %s", true}

	// server name, version, user modes, channel modes
	RplMyInfo = Numeric{4, "%s %s %s %s", false}

	// network name
	RplISupport = Numeric{5, "PREFIX=(ov)@+ CHANTYPES=#& NETWORK=%s CASEMAPPING=ascii CHANMODES=beI,k,l,imnst EXCEPTS=e CHANNELLEN=32 :are supported by this server", true}

	// modes
	RplUmodeIs = Numeric{221, "+%s", false}

	// nick, user, host, real name
	RplWhoisUser = Numeric{311, "%s %s %s * :%s", true}

	// nick, network name, server info
	RplWhoisServer = Numeric{312, "%s %s :%s", true}

	// WHO target
	RplEndOfWho = Numeric{315, "%s :End of WHO List", true}

	// nick, seconds idle
	RplWhoisIdle = Numeric{317, "%s %d :seconds idle", true}

	// nick
	RplEndOfWhois = Numeric{318, "%s :End of WHOIS list", true}

	// nick, space separated channel list
	RplWhoisChannels = Numeric{319, "%s :%s", true}

	// channel, modes
	RplChannelModeIs = Numeric{324, "%s +%s", false}

	// channel
	RplNoTopic = Numeric{331, "%s :No topic is set", true}

	// channel, topic
	RplTopic = Numeric{332, "%s :%s", true}

	// channel, user, host, server, nick, mode prefix, real name
	RplWhoReply = Numeric{352, "%s %s %s %s %s H%s :0 %s", true}

	// channel, space separated list of prefixed nicks
	RplNamReply = Numeric{353, "= %s :%s", true}

	// channel
	RplEndOfNames = Numeric{366, "%s :End of NAMES List", true}

	// MOTD line
	RplMotd = Numeric{372, ":- %s", true}

	// server name
	RplMotdStart = Numeric{375, ":- %s Message of the day - ", true}

	RplEndOfMotd = Numeric{376, ":End of MOTD", true}

	RplYoureOper = Numeric{381, ":You are now an IRC operator", true}

	// nick or channel
	ErrNoSuchNick = Numeric{401, "%s :No such nick/channel", true}

	// channel
	ErrNoSuchChannel = Numeric{403, "%s :No such channel", true}

	// command
	ErrUnknownCommand = Numeric{421, "%s :Unknown command", true}

	// nick
	ErrNicknameInUse = Numeric{433, "%s :Nickname already in use", true}

	// nick, channel
	ErrUserNotInChannel = Numeric{441, "%s %s :They aren't on that channel", true}

	// channel
	ErrNotOnChannel = Numeric{442, "%s :You're not on that channel", true}

	// command
	ErrNeedMoreParams = Numeric{461, "%s :Not enough parameters", true}

	ErrPasswdMismatch = Numeric{464, ":Password incorrect", true}

	// channel
	ErrChannelIsFull = Numeric{471, "%s :Cannot join channel (+l)", true}

	// channel
	ErrBadChannelKey = Numeric{475, "%s :Cannot join channel (+k)", true}

	// channel
	ErrBadChanMask = Numeric{476, "%s :Bad Channel Mask", true}

	// channel
	ErrChanOPrivsNeeded = Numeric{482, "%s :You're not channel operator", true}

	ErrUsersDontMatch = Numeric{502, ":Cannot change mode for other users", true}
)
