package command

import (
	"strconv"
	"strings"
	"unicode"
)

// Parse parses a coordination-channel line. It returns false for lines that
// do not start with prefix and for anything that is not a recognised command;
// such lines are chit-chat and must be ignored without a reply.
func Parse(prefix, text string) (Command, bool) {
	if prefix == "" || !strings.HasPrefix(text, prefix) {
		return nil, false
	}
	word, rest := splitFirst(text[len(prefix):])
	if word == "" {
		return nil, false
	}

	if id, ok := parseID(word); ok {
		return Reply{Raw: word, UserID: id, Text: rest}, true
	}
	if isDigits(word) {
		return UnknownTarget{Raw: word}, true
	}

	switch word {
	case "ignore", "qignore":
		if rest == "" {
			return MissingID{Raw: word}, true
		}
		arg, reason := splitFirst(rest)
		id, ok := parseID(arg)
		if !ok {
			return BadID{Raw: word, Arg: arg}, true
		}
		cmd := Ignore{Raw: word, UserID: id, Quiet: word == "qignore"}
		if reason != "" {
			cmd.Reason = &reason
		}
		return cmd, true
	case "unignore":
		if rest == "" {
			return MissingID{Raw: word}, true
		}
		arg, _ := splitFirst(rest)
		id, ok := parseID(arg)
		if !ok {
			return BadID{Raw: word, Arg: arg}, true
		}
		return Unignore{Raw: word, UserID: id}, true
	case "r":
		return ReplyLast{Text: rest}, true
	case "m":
		return ShowLast{}, true
	case "fixgame":
		return FixPresence{}, true
	}
	return nil, false
}

// splitFirst splits s into its first whitespace-delimited word and the
// remainder with leading whitespace removed. Trailing whitespace of the
// remainder is kept, as is internal whitespace.
func splitFirst(s string) (string, string) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	rest := strings.TrimLeftFunc(s[i:], unicode.IsSpace)
	return s[:i], rest
}

// parseID accepts a non-negative decimal integer made of ASCII digits only.
func parseID(s string) (uint64, bool) {
	if !isDigits(s) {
		return 0, false
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
