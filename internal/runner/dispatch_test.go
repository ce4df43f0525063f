package runner_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/petasbytes/expense-agent/internal/fsops"
	"github.com/petasbytes/expense-agent/internal/runner"
	"github.com/petasbytes/expense-agent/internal/telemetry"
	"github.com/petasbytes/expense-agent/tools"
)

type setup struct {
	disp      *runner.Dispatcher
	outDir    string
	eventsDir string
	rec       *telemetry.Recorder
}

func newSetup(t *testing.T, extra ...tools.ToolDefinition) setup {
	t.Helper()
	root, err := fsops.NewRoot(t.TempDir())
	if err != nil {
		t.Fatalf("NewRoot: %v", err)
	}
	eventsDir := t.TempDir()
	rec, err := telemetry.New(telemetry.Options{Enabled: true, Dir: eventsDir})
	if err != nil {
		t.Fatalf("telemetry: %v", err)
	}
	t.Cleanup(func() { _ = rec.Close() })

	defs := append(tools.Registry(tools.NewEnv(root)), extra...)
	d, err := runner.NewDispatcher(defs, rec)
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	return setup{disp: d, outDir: root.Dir(), eventsDir: eventsDir, rec: rec}
}

func lastToolExec(t *testing.T, dir string) map[string]any {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, "events.jsonl"))
	if err != nil {
		t.Fatalf("open events: %v", err)
	}
	defer f.Close()
	var exec map[string]any
	s := bufio.NewScanner(f)
	for s.Scan() {
		var m map[string]any
		if err := json.Unmarshal(s.Bytes(), &m); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if m["event"] == "tool_exec" {
			exec = m
		}
	}
	if exec == nil {
		t.Fatal("no tool_exec event found")
	}
	return exec
}

func TestExec_Success_WritesArtifactAndEvent(t *testing.T) {
	s := newSetup(t)
	ctx := telemetry.WithTurnID(context.Background(), "turn-xyz")
	in := json.RawMessage(`{"category":"travel","budgeted_amount":1000,"actual_amount":1250,"reason":"visits"}`)

	res := s.disp.Exec(ctx, "call_1", "flag_budget_overrun", in)
	if res.IsError {
		t.Fatalf("unexpected error result: %s", res.Output)
	}
	if res.CallID != "call_1" || res.Name != "flag_budget_overrun" {
		t.Fatalf("result not correlated with call: %+v", res)
	}
	if !strings.Contains(res.Output, "25.0%") {
		t.Fatalf("unexpected output: %s", res.Output)
	}
	matches, _ := filepath.Glob(filepath.Join(s.outDir, "budget-alert-*.txt"))
	if len(matches) != 1 {
		t.Fatalf("expected one alert file, got %v", matches)
	}

	exec := lastToolExec(t, s.eventsDir)
	if exec["tool_name"] != "flag_budget_overrun" {
		t.Errorf("tool_name: got %v", exec["tool_name"])
	}
	if exec["turn_id"] != "turn-xyz" {
		t.Errorf("turn_id: got %v", exec["turn_id"])
	}
	if v, ok := exec["input_size"].(float64); !ok || int(v) != len(in) {
		t.Errorf("input_size: got %v want %d", exec["input_size"], len(in))
	}
	if v, ok := exec["output_size"].(float64); !ok || int(v) != len(res.Output) {
		t.Errorf("output_size: got %v want %d", exec["output_size"], len(res.Output))
	}
	if exec["error"] != nil {
		t.Errorf("error should be null on success, got %v", exec["error"])
	}
}

func TestExec_ToolNotFound(t *testing.T) {
	s := newSetup(t)
	res := s.disp.Exec(context.Background(), "nf1", "does_not_exist", json.RawMessage(`{}`))
	if !res.IsError || !strings.Contains(res.Output, "ERR_TOOL_NOT_FOUND") {
		t.Fatalf("expected not-found error result, got %+v", res)
	}
	exec := lastToolExec(t, s.eventsDir)
	if exec["error"] != "tool not found" {
		t.Errorf("error: got %v", exec["error"])
	}
	if v, _ := exec["output_size"].(float64); v != 0 {
		t.Errorf("output_size should be 0, got %v", exec["output_size"])
	}
}

func TestExec_InvalidArguments(t *testing.T) {
	cases := map[string]string{
		"missing field":   `{"email_address":"a@b.c","project_name":"p","description":"d"}`,
		"wrong type":      `{"email_address":"a@b.c","project_name":"p","description":"d","total_amount":"lots"}`,
		"negative amount": `{"email_address":"a@b.c","project_name":"p","description":"d","total_amount":-5}`,
		"extra field":     `{"email_address":"a@b.c","project_name":"p","description":"d","total_amount":5,"x":1}`,
		"empty input":     ``,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			s := newSetup(t)
			res := s.disp.Exec(context.Background(), "c1", "submit_expense_report", json.RawMessage(in))
			if !res.IsError || !strings.Contains(res.Output, "ERR_INVALID_INPUT") {
				t.Fatalf("expected invalid input result, got %+v", res)
			}
			matches, _ := filepath.Glob(filepath.Join(s.outDir, "expense-report-*.txt"))
			if len(matches) != 0 {
				t.Fatalf("handler should not run on invalid input; files: %v", matches)
			}
		})
	}
}

func TestExec_HandlerErrorIsReturnedAsErrorOutput(t *testing.T) {
	errTool := tools.ToolDefinition{
		Name:        "err_tool",
		Description: "always errors",
		Schema:      tools.GenerateSchema[struct{}](),
		Function: func(json.RawMessage) (string, error) {
			return "", errors.New("disk full")
		},
	}
	s := newSetup(t, errTool)
	res := s.disp.Exec(context.Background(), "e1", "err_tool", json.RawMessage(`{}`))
	if !res.IsError || res.Output != "disk full" {
		t.Fatalf("expected handler error surfaced, got %+v", res)
	}
	exec := lastToolExec(t, s.eventsDir)
	if exec["error"] != "tool error" {
		t.Errorf("telemetry should carry the category only, got %v", exec["error"])
	}
}

func TestExec_NoRawPayloadInTelemetry(t *testing.T) {
	s := newSetup(t)
	secret := "__SECRET_NEVER_APPEAR__"
	in, _ := json.Marshal(map[string]any{
		"email_address": secret, "project_name": "p", "description": "d", "total_amount": 1,
	})
	res := s.disp.Exec(context.Background(), "c1", "submit_expense_report", in)
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.Output)
	}
	raw, err := os.ReadFile(filepath.Join(s.eventsDir, "events.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), secret) {
		t.Fatalf("raw payload leaked into telemetry: %s", raw)
	}
}

func TestNewDispatcher_NilRecorder(t *testing.T) {
	root, err := fsops.NewRoot(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	d, err := runner.NewDispatcher(tools.Registry(tools.NewEnv(root)), nil)
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	if got := len(d.Definitions()); got != 2 {
		t.Fatalf("expected 2 definitions, got %d", got)
	}
	res := d.Exec(context.Background(), "c", "nope", nil)
	if !res.IsError {
		t.Fatal("expected error result")
	}
}
