package irc

import "strings"

// Encode serializes the message as one protocol line terminated by
// CRLF. The trailing colon is emitted when the Trailing flag is set,
// and also whenever the last parameter would not survive a round trip
// without it (empty, containing a space, or starting with a colon).
// A non-final parameter with any of those properties cannot be encoded.
//
// Lines longer than MaxLineLength are cut to fit, keeping the CRLF, and
// returned together with ErrTruncated. The truncated line is sendable.
func (m Message) Encode() (string, error) {
	if m.Command == "" {
		return "", ErrInvalidMessage
	}

	var sb strings.Builder

	if m.Source != "" {
		if strings.ContainsAny(m.Source, " \r\n\x00") {
			return "", ErrInvalidMessage
		}
		sb.WriteByte(':')
		sb.WriteString(m.Source)
		sb.WriteByte(' ')
	}

	sb.WriteString(m.Command)

	for i, param := range m.Params {
		if strings.ContainsAny(param, "\r\n\x00") {
			return "", ErrInvalidMessage
		}

		last := i == len(m.Params)-1
		if last && (m.Trailing || needsTrailing(param)) {
			sb.WriteString(" :")
			sb.WriteString(param)
			continue
		}

		if needsTrailing(param) {
			// A middle parameter would change meaning on reparse.
			return "", ErrInvalidMessage
		}
		sb.WriteByte(' ')
		sb.WriteString(param)
	}

	sb.WriteString("\r\n")

	line := sb.String()
	if len(line) > MaxLineLength {
		return line[:MaxLineLength-2] + "\r\n", ErrTruncated
	}

	return line, nil
}

// needsTrailing reports whether a parameter must be sent as the
// trailing parameter to parse back unchanged.
func needsTrailing(param string) bool {
	return param == "" || strings.HasPrefix(param, ":") ||
		strings.ContainsRune(param, ' ')
}
