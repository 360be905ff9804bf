// Package irc implements the wire protocol spoken by the server: CRLF
// delimited messages parsed to and encoded from a structured form, plus
// the catalog of numeric replies.
package irc

import (
	"errors"
	"fmt"
	"strings"
)

// MaxLineLength is the maximum length of one protocol line, including
// the trailing CRLF.
const MaxLineLength = 512

var (
	// ErrInvalidMessage means a line (or a message being encoded) does
	// not conform to the protocol grammar. Inbound, such lines are
	// dropped without closing the connection.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrTruncated means an encoded message exceeded MaxLineLength and
	// was cut to fit. The returned line is still sendable.
	ErrTruncated = errors.New("message truncated")
)

// Message is one IRC protocol message.
//
// The grammar for a line is:
//
//	[":" source SP] command (SP param)* [SP ":" trailing] CRLF
type Message struct {
	// Source is the optional prefix: the originating server's name or a
	// user identifier (nick!user@host). Empty means no prefix.
	Source string

	// Command is an uppercase verb or a three digit numeric.
	Command string

	// Params holds the command's parameters in order.
	Params []string

	// Trailing records that the final parameter is a trailing
	// parameter: it was introduced by a colon when parsed, and it is
	// re-emitted with one when encoded. Parameters containing spaces
	// require it.
	Trailing bool
}

// String renders the message as its wire form without the CRLF. It is
// intended for logging.
func (m Message) String() string {
	line, err := m.Encode()
	if err != nil && !errors.Is(err, ErrTruncated) {
		return fmt.Sprintf("%s %v", m.Command, m.Params)
	}
	return strings.TrimRight(line, "\r\n")
}
