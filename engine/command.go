package engine

import "strings"

// Verb identifies a moderator command embedded in chat text.
type Verb string

const (
	VerbBan    Verb = "%ban"
	VerbUnban  Verb = "%unban"
	VerbRemove Verb = "%remove"
)

// Command is a recognized in-band moderator command. Target is the
// whitespace-delimited username argument; empty Target means the command was
// malformed and must be ignored without falling through to extraction.
type Command struct {
	Verb   Verb
	Target string
}

// ParseCommand recognizes a command verb anchored at the very start of the
// message text. It does not check sender privilege; callers gate on
// IsModerator before applying the result.
func ParseCommand(text string) (Command, bool) {
	if !strings.HasPrefix(text, "%") {
		return Command{}, false
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Command{}, false
	}
	verb := Verb(fields[0])
	switch verb {
	case VerbBan, VerbUnban, VerbRemove:
	default:
		return Command{}, false
	}
	cmd := Command{Verb: verb}
	if len(fields) > 1 {
		cmd.Target = fields[1]
	}
	return cmd, true
}
