package agent

import (
	"encoding/json"
	"reflect"
	"testing"
)

func toolNames(mode Mode) []string {
	var names []string
	for _, tool := range ToolsForMode(mode) {
		names = append(names, tool.Name)
	}
	return names
}

func TestToolsForMode(t *testing.T) {
	if got, want := toolNames(ModeAsk), []string{"get_terminal_output"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ask tools = %#v, want %#v", got, want)
	}
	want := []string{"get_terminal_output", "run_in_terminal", "send_interrupt", "send_terminal_input"}
	if got := toolNames(ModeAgent); !reflect.DeepEqual(got, want) {
		t.Fatalf("agent tools = %#v, want %#v", got, want)
	}
}

func TestToolParametersAreJSONSchemas(t *testing.T) {
	for _, tool := range ToolRegistry {
		var schema map[string]any
		if err := json.Unmarshal([]byte(tool.Parameters), &schema); err != nil {
			t.Fatalf("%s parameters: %v", tool.Name, err)
		}
		if schema["type"] != "object" {
			t.Fatalf("%s schema type = %v", tool.Name, schema["type"])
		}
	}

	input, _ := LookupTool("send_terminal_input")
	var schema struct {
		Properties map[string]struct {
			Description string `json:"description"`
		} `json:"properties"`
	}
	if err := json.Unmarshal([]byte(input.Parameters), &schema); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := "The characters or escape sequence to send. IMPORTANT: use '\\n' (newline) to send Enter; do not send literal '\\\\n' text. Example: ':wq\\n'."
	if got := schema.Properties["input"].Description; got != want {
		t.Fatalf("input description = %q, want %q", got, want)
	}
}

func TestLookupTool(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		wantOK bool
		mut    bool
	}{
		{name: "read", input: "get_terminal_output", wantOK: true},
		{name: "padded", input: " run_in_terminal ", wantOK: true, mut: true},
		{name: "interrupt", input: "send_interrupt", wantOK: true, mut: true},
		{name: "not offered", input: "run_in_background", wantOK: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := LookupTool(tc.input)
			if ok != tc.wantOK {
				t.Fatalf("LookupTool(%q) ok = %v, want %v", tc.input, ok, tc.wantOK)
			}
			if ok && got.Mutating != tc.mut {
				t.Fatalf("LookupTool(%q) mutating = %v, want %v", tc.input, got.Mutating, tc.mut)
			}
		})
	}
}

func TestAllowed(t *testing.T) {
	if Allowed(ModeAsk, "run_in_terminal") {
		t.Fatalf("run_in_terminal allowed in ask mode")
	}
	if !Allowed(ModeAsk, "get_terminal_output") {
		t.Fatalf("get_terminal_output denied in ask mode")
	}
	if !Allowed(ModeAgent, "send_terminal_input") {
		t.Fatalf("send_terminal_input denied in agent mode")
	}
	if !Allowed(ModeAsk, "made_up") {
		t.Fatalf("unknown tools should reach the executor")
	}
}
