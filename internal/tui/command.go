package tui

import (
	"fmt"
	"sort"
	"strings"
)

// Command represents a parsed command.
type Command struct {
	Name string
	Args string
}

// ParseCommand parses a command string (without the leading ':').
func ParseCommand(input string) Command {
	input = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(input), ":"))
	parts := strings.SplitN(input, " ", 2)
	cmd := Command{Name: strings.ToLower(parts[0])}
	if len(parts) > 1 {
		cmd.Args = strings.TrimSpace(parts[1])
	}
	if canonical, ok := commandAliases[cmd.Name]; ok {
		cmd.Name = canonical
	}
	return cmd
}

var commandAliases = map[string]string{
	"q":    "quit",
	"exit": "quit",
	"h":    "help",
	"o":    "open",
	"r":    "refresh",
}

var commandNames = []string{"audio", "help", "logout", "open", "quit", "refresh", "video"}

// Complete returns prompt completions for input. Command names complete
// until the first space; after "open " the contact names from names do.
func Complete(input string, names func(query string) []string) []string {
	input = strings.TrimLeft(input, " :")
	if input == "" {
		return nil
	}
	head, rest, spaced := strings.Cut(input, " ")
	if !spaced {
		var out []string
		for _, name := range commandNames {
			if strings.HasPrefix(name, strings.ToLower(head)) && name != head {
				out = append(out, name)
			}
		}
		return out
	}
	if ParseCommand(head).Name != "open" || names == nil {
		return nil
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return nil
	}
	matches := names(rest)
	sort.Strings(matches)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if m != rest {
			out = append(out, "open "+m)
		}
	}
	return out
}

// Validate checks that the command exists and has the arguments it needs.
func (c Command) Validate() error {
	switch c.Name {
	case "quit", "help", "refresh", "logout":
		return nil
	case "open":
		if c.Args == "" {
			return fmt.Errorf("usage: :open <name>")
		}
	case "audio", "video":
		if c.Args == "" {
			return fmt.Errorf("usage: :%s <path>", c.Name)
		}
	case "":
		return fmt.Errorf("empty command")
	default:
		return fmt.Errorf("unknown command %q", c.Name)
	}
	return nil
}
