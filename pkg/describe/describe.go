// Package describe turns tool invocations into human-friendly sentences. Tool
// names are never exposed to the user, only natural language descriptions.
package describe

import (
	"fmt"
	"regexp"
	"strings"
)

// Namer converts tool names and arguments to spoken action descriptions.
type Namer struct{}

// NewNamer creates a new namer.
func NewNamer() *Namer {
	return &Namer{}
}

// actionWords map name fragments to spoken verbs, checked in order.
var actionWords = []struct {
	key  string
	verb string
}{
	{"create", "create"},
	{"add", "add"},
	{"delete", "remove"},
	{"remove", "remove"},
	{"update", "update"},
	{"modify", "modify"},
	{"get", "check"},
	{"list", "list"},
	{"read", "read"},
	{"write", "write"},
	{"send", "send"},
	{"search", "search for"},
	{"find", "find"},
	{"exec", "execute"},
	{"run", "run"},
}

// targetKeys are common argument names holding the object of the action.
var targetKeys = []string{"title", "name", "file", "path", "query", "recipient", "to", "target", "object"}

// Describe converts a tool name and its arguments into a human-friendly
// description of the action.
func (n *Namer) Describe(toolName string, args map[string]interface{}) string {
	// Strip a server prefix if present.
	name := toolName
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[idx+1:]
	}
	lower := strings.ToLower(name)

	if desc := describeSpecific(lower, args); desc != "" {
		return desc
	}

	for _, aw := range actionWords {
		if strings.Contains(lower, aw.key) {
			if target := extractTarget(args); target != "" {
				return aw.verb + " " + target
			}
			return aw.verb + " that"
		}
	}

	return "perform that action"
}

// describeSpecific handles the well-known tool families.
func describeSpecific(name string, args map[string]interface{}) string {
	switch {
	case strings.Contains(name, "reminder"):
		return describeReminder(name, args)
	case strings.Contains(name, "calendar"), strings.Contains(name, "event"):
		return describeCalendar(name, args)
	case strings.Contains(name, "message"):
		return describeMessage(name, args)
	case strings.Contains(name, "screenshot"):
		return "take a screenshot"
	case strings.Contains(name, "battery"):
		return "check your battery level"
	case strings.Contains(name, "spotlight"), strings.Contains(name, "search"):
		return describeSearch(args)
	case strings.Contains(name, "shell"), strings.Contains(name, "exec"):
		return describeShell(args)
	case strings.Contains(name, "file"):
		return describeFile(name, args)
	}
	return ""
}

func describeReminder(name string, args map[string]interface{}) string {
	switch {
	case strings.Contains(name, "create"), strings.Contains(name, "add"):
		title := stringArg(args, "title", "name")
		if title == "" {
			title = "a reminder"
		}
		return "create a reminder for " + title
	case strings.Contains(name, "complete"), strings.Contains(name, "done"):
		return "mark that reminder as done"
	case strings.Contains(name, "delete"), strings.Contains(name, "remove"):
		return "remove that reminder"
	case strings.Contains(name, "list"), strings.Contains(name, "get"):
		return "check your reminders"
	}
	return "manage your reminders"
}

func describeCalendar(name string, args map[string]interface{}) string {
	switch {
	case strings.Contains(name, "create"), strings.Contains(name, "add"):
		title := stringArg(args, "title", "event")
		if title == "" {
			title = "an event"
		}
		return fmt.Sprintf("add '%s' to your calendar", title)
	case strings.Contains(name, "delete"), strings.Contains(name, "remove"):
		return "remove that calendar event"
	case strings.Contains(name, "update"), strings.Contains(name, "modify"):
		return "update that calendar event"
	case strings.Contains(name, "list"), strings.Contains(name, "get"):
		return "check your calendar"
	}
	return "manage your calendar"
}

func describeMessage(name string, args map[string]interface{}) string {
	switch {
	case strings.Contains(name, "send"):
		recipient := stringArg(args, "recipient", "to")
		if recipient == "" {
			recipient = "someone"
		}
		if msg := truncate(stringArg(args, "message", "text"), 30); msg != "" {
			return fmt.Sprintf("send '%s' to %s", msg, recipient)
		}
		return "send a message to " + recipient
	case strings.Contains(name, "read"), strings.Contains(name, "get"):
		return "check your messages"
	case strings.Contains(name, "search"):
		if query := stringArg(args, "query"); query != "" {
			return fmt.Sprintf("search messages for '%s'", query)
		}
		return "search your messages"
	}
	return "manage messages"
}

func describeSearch(args map[string]interface{}) string {
	if query := stringArg(args, "query", "q", "search"); query != "" {
		return fmt.Sprintf("search for '%s'", query)
	}
	return "perform a search"
}

func describeShell(args map[string]interface{}) string {
	command := strings.ToLower(stringArg(args, "command", "cmd"))
	switch {
	case strings.Contains(command, "battery"), strings.Contains(command, "pmset"):
		return "check your battery level"
	case strings.Contains(command, "wifi"), strings.Contains(command, "airport"):
		return "check WiFi status"
	case strings.Contains(command, "volume"):
		return "adjust the volume"
	case strings.Contains(command, "df"), strings.Contains(command, "disk"):
		return "check disk space"
	case strings.Contains(command, "ls"):
		return "list files"
	}
	return "run a system command"
}

func describeFile(name string, args map[string]interface{}) string {
	path := stringArg(args, "path", "file", "filename")
	base := path
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		base = path[idx+1:]
	}

	switch {
	case strings.Contains(name, "read"):
		if base != "" {
			return "read " + base
		}
		return "read a file"
	case strings.Contains(name, "write"), strings.Contains(name, "save"):
		if base != "" {
			return "save content to " + base
		}
		return "save content to a file"
	case strings.Contains(name, "create"):
		return "create a new file"
	case strings.Contains(name, "delete"), strings.Contains(name, "remove"):
		if base != "" {
			return "delete " + base
		}
		return "delete a file"
	case strings.Contains(name, "move"):
		return "move a file"
	case strings.Contains(name, "copy"):
		return "copy a file"
	case strings.Contains(name, "list"):
		if path != "" {
			return "list files in " + path
		}
		return "list files"
	}
	return "manage files"
}

func extractTarget(args map[string]interface{}) string {
	for _, key := range targetKeys {
		if value, ok := args[key]; ok && value != nil {
			if s := truncate(fmt.Sprintf("%v", value), 30); s != "" {
				return s
			}
		}
	}
	return ""
}

func stringArg(args map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if value, ok := args[key].(string); ok && value != "" {
			return value
		}
	}
	return ""
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

var percentPattern = regexp.MustCompile(`(\d+)%`)
