package describe

import (
	"fmt"
	"strings"
)

// Summarizer turns action results into brief spoken summaries.
type Summarizer struct{}

// NewSummarizer creates a new summarizer.
func NewSummarizer() *Summarizer {
	return &Summarizer{}
}

// Summarize creates a human-friendly summary of what an action produced.
func (s *Summarizer) Summarize(action string, result interface{}) string {
	if m, ok := result.(map[string]interface{}); ok {
		if truthy(m["success"]) || truthy(m["ok"]) {
			return successSummary(action)
		}
		if errText, ok := m["error"].(string); ok && errText != "" {
			return ErrorSummary(errText)
		}
		if truthy(m["canceled"]) {
			return "Okay, I won't do that."
		}
	}

	lower := strings.ToLower(action)
	switch {
	case strings.Contains(lower, "reminder"):
		return "Your reminder is set."
	case strings.Contains(lower, "calendar"), strings.Contains(lower, "event"):
		return "Your calendar event is added."
	case strings.Contains(lower, "send") && strings.Contains(lower, "message"):
		return "Message sent."
	case strings.Contains(lower, "search"):
		return searchSummary(result)
	case strings.Contains(lower, "battery"):
		return batterySummary(result)
	case strings.Contains(lower, "read") && strings.Contains(lower, "file"):
		return "Read the file."
	case strings.Contains(lower, "save"), strings.Contains(lower, "write"):
		return "File saved."
	}

	return "Done."
}

func successSummary(action string) string {
	switch {
	case strings.Contains(action, "create"), strings.Contains(action, "add"):
		return "Created successfully."
	case strings.Contains(action, "delete"), strings.Contains(action, "remove"):
		return "Removed successfully."
	case strings.Contains(action, "update"), strings.Contains(action, "modify"):
		return "Updated successfully."
	case strings.Contains(action, "send"):
		return "Sent successfully."
	}
	return "Done."
}

// ErrorSummary words an apology appropriate to the error text. Shared with
// the execution coordinator so spoken failures stay consistent.
func ErrorSummary(errText string) string {
	lower := strings.ToLower(errText)
	switch {
	case strings.Contains(lower, "permission"):
		return "I don't have permission to do that."
	case strings.Contains(lower, "not found"):
		return "I couldn't find what you're looking for."
	case strings.Contains(lower, "timeout"):
		return "That took too long to complete."
	}
	return "Something went wrong with that."
}

func searchSummary(result interface{}) string {
	if m, ok := result.(map[string]interface{}); ok {
		if nested, ok := m["results"]; ok {
			return searchSummary(nested)
		}
	}
	if list, ok := result.([]interface{}); ok {
		switch len(list) {
		case 0:
			return "No results found."
		case 1:
			return "Found one result."
		default:
			return fmt.Sprintf("Found %d results.", len(list))
		}
	}
	return "Search completed."
}

func batterySummary(result interface{}) string {
	if m, ok := result.(map[string]interface{}); ok {
		if level, ok := m["level"]; ok {
			return fmt.Sprintf("Battery is at %v%%.", level)
		}
		if truthy(m["charging"]) {
			return "Battery is charging."
		}
	}
	if s, ok := result.(string); ok {
		if match := percentPattern.FindStringSubmatch(s); match != nil {
			return fmt.Sprintf("Battery is at %s%%.", match[1])
		}
	}
	return "Checked battery status."
}

func truthy(v interface{}) bool {
	b, ok := v.(bool)
	return ok && b
}
