package describe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNamer_Describe(t *testing.T) {
	namer := NewNamer()

	tests := []struct {
		name string
		tool string
		args map[string]interface{}
		want string
	}{
		{
			name: "create reminder with title",
			tool: "create_reminder",
			args: map[string]interface{}{"title": "buy milk"},
			want: "create a reminder for buy milk",
		},
		{
			name: "create reminder without title",
			tool: "create_reminder",
			want: "create a reminder for a reminder",
		},
		{
			name: "complete reminder",
			tool: "complete_reminder",
			want: "mark that reminder as done",
		},
		{
			name: "list reminders",
			tool: "list_reminders",
			want: "check your reminders",
		},
		{
			name: "calendar event with title",
			tool: "calendar_create_event",
			args: map[string]interface{}{"title": "standup"},
			want: "add 'standup' to your calendar",
		},
		{
			name: "check calendar",
			tool: "calendar_list",
			want: "check your calendar",
		},
		{
			name: "send message with text and recipient",
			tool: "send_message",
			args: map[string]interface{}{"recipient": "Alex", "message": "running late"},
			want: "send 'running late' to Alex",
		},
		{
			name: "send message without text",
			tool: "send_message",
			args: map[string]interface{}{"to": "Alex"},
			want: "send a message to Alex",
		},
		{
			name: "screenshot",
			tool: "take_screenshot",
			want: "take a screenshot",
		},
		{
			name: "battery",
			tool: "get_battery",
			want: "check your battery level",
		},
		{
			name: "spotlight search with query",
			tool: "spotlight_search",
			args: map[string]interface{}{"query": "tax documents"},
			want: "search for 'tax documents'",
		},
		{
			name: "search without query",
			tool: "search",
			want: "perform a search",
		},
		{
			name: "shell battery command",
			tool: "run_shell",
			args: map[string]interface{}{"command": "pmset -g batt"},
			want: "check your battery level",
		},
		{
			name: "shell generic command",
			tool: "exec_command",
			args: map[string]interface{}{"command": "uname -a"},
			want: "run a system command",
		},
		{
			name: "read file uses basename",
			tool: "read_file",
			args: map[string]interface{}{"path": "/home/user/notes.txt"},
			want: "read notes.txt",
		},
		{
			name: "delete file",
			tool: "delete_file",
			args: map[string]interface{}{"path": "old.log"},
			want: "delete old.log",
		},
		{
			name: "server prefix is stripped",
			tool: "files.read_file",
			args: map[string]interface{}{"path": "a.txt"},
			want: "read a.txt",
		},
		{
			name: "generic action verb with target",
			tool: "update_contact",
			args: map[string]interface{}{"name": "Jamie"},
			want: "update Jamie",
		},
		{
			name: "generic action verb without target",
			tool: "send_ping",
			want: "send that",
		},
		{
			name: "unknown tool",
			tool: "frobnicate",
			want: "perform that action",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, namer.Describe(tt.tool, tt.args))
		})
	}
}

func TestNamer_Describe_TruncatesLongTargets(t *testing.T) {
	namer := NewNamer()
	long := "a very long message body that keeps going well past the limit"
	got := namer.Describe("send_message", map[string]interface{}{"recipient": "Alex", "message": long})
	assert.Contains(t, got, "...")
	assert.Contains(t, got, "to Alex")
}

func TestSummarizer_Summarize(t *testing.T) {
	summarizer := NewSummarizer()

	tests := []struct {
		name   string
		action string
		result interface{}
		want   string
	}{
		{
			name:   "success map with create action",
			action: "create a reminder for buy milk",
			result: map[string]interface{}{"success": true},
			want:   "Created successfully.",
		},
		{
			name:   "success map with remove action",
			action: "remove that reminder",
			result: map[string]interface{}{"ok": true},
			want:   "Removed successfully.",
		},
		{
			name:   "error map with permission",
			action: "read notes.txt",
			result: map[string]interface{}{"error": "permission denied"},
			want:   "I don't have permission to do that.",
		},
		{
			name:   "canceled map",
			action: "delete old.log",
			result: map[string]interface{}{"canceled": true},
			want:   "Okay, I won't do that.",
		},
		{
			name:   "reminder action fallback",
			action: "create a reminder for buy milk",
			result: "anything",
			want:   "Your reminder is set.",
		},
		{
			name:   "search results list",
			action: "search for 'tax documents'",
			result: map[string]interface{}{"results": []interface{}{1, 2, 3}},
			want:   "Found 3 results.",
		},
		{
			name:   "search no results",
			action: "search for 'tax documents'",
			result: []interface{}{},
			want:   "No results found.",
		},
		{
			name:   "battery level map",
			action: "check your battery level",
			result: map[string]interface{}{"level": 82},
			want:   "Battery is at 82%.",
		},
		{
			name:   "battery percent in text",
			action: "check your battery level",
			result: "Now drawing from 'Battery Power' 64%; discharging",
			want:   "Battery is at 64%.",
		},
		{
			name:   "generic fallback",
			action: "perform that action",
			result: nil,
			want:   "Done.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, summarizer.Summarize(tt.action, tt.result))
		})
	}
}

func TestErrorSummary(t *testing.T) {
	assert.Equal(t, "I don't have permission to do that.", ErrorSummary("EPERM: permission denied"))
	assert.Equal(t, "I couldn't find what you're looking for.", ErrorSummary("file not found"))
	assert.Equal(t, "That took too long to complete.", ErrorSummary("Tool timeout"))
	assert.Equal(t, "Something went wrong with that.", ErrorSummary("boom"))
}

func TestService(t *testing.T) {
	svc := New()
	assert.Equal(t, "check your battery level", svc.Describe("get_battery", nil))
	assert.Equal(t, "Done.", svc.Summarize("perform that action", nil))
}
