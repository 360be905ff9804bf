package irc

import (
	"strings"
	"unicode/utf8"
)

// ParseMessage parses one protocol line. The line may include its
// terminating CRLF (or bare LF); everything else must conform to the
// message grammar. The command is uppercased. Stray whitespace after
// the last middle parameter is tolerated, but a trailing parameter
// keeps its content verbatim, spaces included.
func ParseMessage(line string) (Message, error) {
	if len(line) > MaxLineLength {
		return Message{}, ErrInvalidMessage
	}

	line = strings.TrimRight(line, "\r\n")
	if line == "" || !utf8.ValidString(line) {
		return Message{}, ErrInvalidMessage
	}

	m := Message{}

	index := 0

	if line[index] == ':' {
		source, newIndex, err := parseSource(line)
		if err != nil {
			return Message{}, err
		}
		m.Source = source
		index = newIndex
	}

	command, newIndex, err := parseCommand(line, index)
	if err != nil {
		return Message{}, err
	}
	m.Command = command

	m.Params, m.Trailing = parseParams(line, newIndex)

	return m, nil
}

// parseSource parses the leading ":source " prefix. The caller ensures
// the line starts with a colon. Returns the source and the index of
// the first byte after the separating space(s).
func parseSource(line string) (string, int, error) {
	sp := strings.IndexByte(line, ' ')
	if sp == -1 || sp == 1 {
		return "", 0, ErrInvalidMessage
	}

	index := sp
	for index < len(line) && line[index] == ' ' {
		index++
	}

	return line[1:sp], index, nil
}

// parseCommand parses the command beginning at index: either letters
// (uppercased) or exactly three digits.
func parseCommand(line string, index int) (string, int, error) {
	if index >= len(line) {
		return "", 0, ErrInvalidMessage
	}

	end := strings.IndexByte(line[index:], ' ')
	if end == -1 {
		end = len(line)
	} else {
		end += index
	}

	command := line[index:end]

	digits := 0
	letters := 0
	for i := 0; i < len(command); i++ {
		c := command[i]
		switch {
		case c >= '0' && c <= '9':
			digits++
		case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
			letters++
		default:
			return "", 0, ErrInvalidMessage
		}
	}

	if letters > 0 && digits > 0 {
		return "", 0, ErrInvalidMessage
	}
	if digits > 0 && digits != 3 {
		return "", 0, ErrInvalidMessage
	}
	if letters == 0 && digits == 0 {
		return "", 0, ErrInvalidMessage
	}

	return strings.ToUpper(command), end, nil
}

// parseParams splits the parameter section beginning at index. A
// parameter with a leading colon starts the trailing parameter, which
// takes the rest of the line verbatim. The numeric catalog also renders
// reply templates through this so trailing text stays one parameter.
func parseParams(line string, index int) ([]string, bool) {
	var params []string

	for index < len(line) {
		for index < len(line) && line[index] == ' ' {
			index++
		}
		if index == len(line) {
			// Stray trailing whitespace.
			break
		}

		if line[index] == ':' {
			params = append(params, line[index+1:])
			return params, true
		}

		end := strings.IndexByte(line[index:], ' ')
		if end == -1 {
			end = len(line)
		} else {
			end += index
		}
		params = append(params, line[index:end])
		index = end
	}

	return params, false
}
