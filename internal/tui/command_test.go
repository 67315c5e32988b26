package tui

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input string
		want  Command
	}{
		{"chat bob", Command{Name: CmdChat, Args: "bob"}},
		{":open  Bob Smith ", Command{Name: CmdChat, Args: "Bob Smith"}},
		{"NEW carol", Command{Name: CmdNew, Args: "carol"}},
		{"new", Command{Name: CmdNew}},
		{"away", Command{Name: CmdAway}},
		{"back", Command{Name: CmdBack}},
		{"h", Command{Name: CmdHelp}},
		{"q", Command{Name: CmdQuit}},
		{"  ", Command{}},
		{"frobnicate now", Command{Name: "frobnicate", Args: "now"}},
	}
	for _, tt := range tests {
		if got := ParseCommand(tt.input); got != tt.want {
			t.Errorf("ParseCommand(%q) = %+v, want %+v", tt.input, got, tt.want)
		}
	}
}
