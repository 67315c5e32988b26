package tui

import "strings"

// Command names accepted at the ':' prompt.
const (
	CmdChat = "chat"
	CmdNew  = "new"
	CmdAway = "away"
	CmdBack = "back"
	CmdHelp = "help"
	CmdQuit = "quit"
)

var commandAliases = map[string]string{
	"c":    CmdChat,
	"open": CmdChat,
	"n":    CmdNew,
	"h":    CmdHelp,
	"?":    CmdHelp,
	"q":    CmdQuit,
	"q!":   CmdQuit,
	"exit": CmdQuit,
}

// Command represents a parsed command.
type Command struct {
	Name string
	Args string
}

// ParseCommand parses a command string (without the leading ':'). Aliases
// resolve to their full name.
func ParseCommand(input string) Command {
	input = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(input), ":"))
	name, args, _ := strings.Cut(input, " ")
	cmd := Command{Name: strings.ToLower(name), Args: strings.TrimSpace(args)}
	if full, ok := commandAliases[cmd.Name]; ok {
		cmd.Name = full
	}
	return cmd
}
