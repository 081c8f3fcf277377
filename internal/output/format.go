// Package output provides formatters for CLI output.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"taskman/internal/config"
	"taskman/internal/service"
)

const (
	// descriptionIndent aligns descriptions under the title column.
	descriptionIndent = "          "

	markCompleted = "[x]"
	markPending   = "[ ]"
)

// FormatTask formats a task card for the list.
// Format: "{N:>4}  {MARK} {TITLE}\n" followed by the description indented
// under the title, one line per description line.
func FormatTask(w io.Writer, num int, task service.Task) {
	fmt.Fprintf(w, "%4d  %s %s\n", num, statusMark(task.Status), normalizeTitle(task.Title))
	for _, line := range descriptionLines(task.Description) {
		fmt.Fprintf(w, "%s%s\n", descriptionIndent, line)
	}
}

// FormatTaskDetail formats a single task for the show command.
func FormatTaskDetail(w io.Writer, task service.Task) {
	fmt.Fprintf(w, "id:          %s\n", task.ID)
	fmt.Fprintf(w, "title:       %s\n", normalizeTitle(task.Title))
	fmt.Fprintf(w, "status:      %s\n", StatusLabel(task.Status))
	fmt.Fprintln(w, "description:")
	for _, line := range descriptionLines(task.Description) {
		fmt.Fprintf(w, "  %s\n", line)
	}
}

// WriteTasks writes a task list in the given format.
func WriteTasks(w io.Writer, format string, tasks []service.Task) error {
	if tasks == nil {
		tasks = []service.Task{}
	}
	switch format {
	case config.OutputJSON:
		return writeJSON(w, tasks)
	case config.OutputYAML:
		return writeYAML(w, tasks)
	default:
		for i, t := range tasks {
			FormatTask(w, i+1, t)
		}
		return nil
	}
}

// WriteTask writes a single task in the given format.
func WriteTask(w io.Writer, format string, task service.Task) error {
	switch format {
	case config.OutputJSON:
		return writeJSON(w, task)
	case config.OutputYAML:
		return writeYAML(w, task)
	default:
		FormatTaskDetail(w, task)
		return nil
	}
}

// WriteYAML writes any value as YAML.
func WriteYAML(w io.Writer, v any) error {
	return writeYAML(w, v)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// StatusLabel returns the display label for a status.
func StatusLabel(s service.Status) string {
	if s == service.StatusCompleted {
		return "Completed"
	}
	return "Pending"
}

func statusMark(s service.Status) string {
	if s == service.StatusCompleted {
		return markCompleted
	}
	return markPending
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}

// descriptionLines splits a description into trimmed, non-empty lines.
func descriptionLines(desc string) []string {
	desc = strings.ReplaceAll(desc, "\r\n", "\n")
	var lines []string
	for _, line := range strings.Split(desc, "\n") {
		if line = strings.TrimRight(line, " \t"); strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
