package output_test

import (
	"bytes"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"taskman/internal/config"
	"taskman/internal/output"
	"taskman/internal/service"
	"taskman/internal/testutil"
)

func sampleTasks() []service.Task {
	return []service.Task{
		{ID: "a1", Title: "Buy milk", Description: "2 liters\nsemi-skimmed", Status: service.StatusPending},
		{ID: "a2", Title: "Call mom", Description: "Sunday", Status: service.StatusCompleted},
		{ID: "a3", Title: "", Description: "x", Status: service.StatusPending},
	}
}

func TestWriteTasks_Text(t *testing.T) {
	tasks := sampleTasks()
	tasks[2].Description = "  "

	var buf bytes.Buffer
	if err := output.WriteTasks(&buf, config.OutputText, tasks); err != nil {
		t.Fatalf("WriteTasks() error: %v", err)
	}
	testutil.Golden(t, "list_text", buf.Bytes())
}

func TestWriteTasks_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := output.WriteTasks(&buf, config.OutputJSON, sampleTasks()); err != nil {
		t.Fatalf("WriteTasks() error: %v", err)
	}
	testutil.Golden(t, "list_json", buf.Bytes())
}

func TestWriteTasks_EmptyJSONIsArray(t *testing.T) {
	var buf bytes.Buffer
	if err := output.WriteTasks(&buf, config.OutputJSON, nil); err != nil {
		t.Fatalf("WriteTasks() error: %v", err)
	}
	if buf.String() != "[]\n" {
		t.Errorf("expected [], got %q", buf.String())
	}
}

func TestWriteTasks_YAML(t *testing.T) {
	var buf bytes.Buffer
	if err := output.WriteTasks(&buf, config.OutputYAML, sampleTasks()); err != nil {
		t.Fatalf("WriteTasks() error: %v", err)
	}

	var got []service.Task
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid yaml: %v\n%s", err, buf.String())
	}
	if len(got) != 3 || got[0] != sampleTasks()[0] || got[1].Status != service.StatusCompleted {
		t.Errorf("unexpected yaml round trip: %+v", got)
	}
	if !strings.HasPrefix(buf.String(), "- id: a1\n") {
		t.Errorf("unexpected yaml layout:\n%s", buf.String())
	}
}

func TestWriteTask_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := output.WriteTask(&buf, config.OutputText, sampleTasks()[1]); err != nil {
		t.Fatalf("WriteTask() error: %v", err)
	}
	testutil.Golden(t, "show_text", buf.Bytes())
}

func TestFormatTask_NormalizesTitle(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Buy milk", "   7  [ ] Buy milk\n"},
		{"line one\nline two", "   7  [ ] line one line two\n"},
		{" \t", "   7  [ ] (untitled)\n"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		output.FormatTask(&buf, 7, service.Task{Title: tt.title, Status: service.StatusPending})
		if buf.String() != tt.want {
			t.Errorf("FormatTask(%q) = %q, want %q", tt.title, buf.String(), tt.want)
		}
	}
}

func TestStatusLabel(t *testing.T) {
	if got := output.StatusLabel(service.StatusPending); got != "Pending" {
		t.Errorf("pending label = %q", got)
	}
	if got := output.StatusLabel(service.StatusCompleted); got != "Completed" {
		t.Errorf("completed label = %q", got)
	}
}
