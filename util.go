package main

import "strings"

// 32 per CHANNELLEN advertised in RPL_ISUPPORT.
const maxChannelLength = 32

// canonicalizeNick maps a nick to the form we key maps by. Nick
// comparison is ASCII case insensitive.
//
// No validity check or whitespace stripping happens here.
func canonicalizeNick(n string) string {
	return strings.ToLower(n)
}

// canonicalizeChannel maps a channel name to the form we key maps by.
// Channel comparison is ASCII case insensitive too.
func canonicalizeChannel(c string) string {
	return strings.ToLower(c)
}

// isChannelLike says whether a message target names a channel rather
// than a user. It does not check validity.
func isChannelLike(target string) bool {
	return strings.HasPrefix(target, "#") || strings.HasPrefix(target, "&")
}

// removeString removes the first occurrence of s from the list. It
// reports whether anything was removed.
func removeString(list *[]string, s string) bool {
	for i, v := range *list {
		if v == s {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return true
		}
	}
	return false
}

// isValidChannel checks a channel name for validity: a # or & prefix,
// at least one more character, at most maxChannelLength in total, and
// no spaces, commas, colons, or control characters.
//
// Callers canonicalize the name first.
func isValidChannel(c string) bool {
	if len(c) < 2 || len(c) > maxChannelLength {
		return false
	}

	if c[0] != '#' && c[0] != '&' {
		return false
	}

	for i := 1; i < len(c); i++ {
		char := c[i]
		if char <= ' ' || char > '~' {
			return false
		}
		if char == ',' || char == ':' {
			return false
		}
	}

	return true
}
