package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestApp_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"version"})
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "plumestore version") {
		t.Errorf("version output missing 'plumestore version', got: %s", output)
	}
}

func TestApp_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"--help"})
	if err != nil {
		t.Fatalf("help command failed: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "client-side store") {
		t.Errorf("help output missing description, got: %s", output)
	}
	for _, name := range []string{"init", "stats", "get", "save", "delete", "wipe", "validate", "schema"} {
		if !strings.Contains(output, name) {
			t.Errorf("help output missing %q command, got: %s", name, output)
		}
	}
}

func TestApp_Init_MemoryBackend(t *testing.T) {
	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"init", "--backend", "memory"})
	if err != nil {
		t.Fatalf("init command failed: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "Store initialized") {
		t.Errorf("init output missing 'Store initialized', got: %s", output)
	}
	if !strings.Contains(output, "Backend: memory") {
		t.Errorf("init output missing backend, got: %s", output)
	}
	if !strings.Contains(output, "State: ready") {
		t.Errorf("init output missing state, got: %s", output)
	}
}

func TestApp_Init_JSON(t *testing.T) {
	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"init", "--backend", "memory", "--json"})
	if err != nil {
		t.Fatalf("init --json failed: %v", err)
	}

	var report map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &report); err != nil {
		t.Fatalf("init --json output is not valid JSON: %v\noutput: %s", err, stdout.String())
	}
	if report["backend"] != "memory" {
		t.Errorf("backend = %v, want memory", report["backend"])
	}
	if report["state"] != "ready" {
		t.Errorf("state = %v, want ready", report["state"])
	}
	if report["schema"] != "full" {
		t.Errorf("schema = %v, want full", report["schema"])
	}
}

func TestApp_Init_ConfigFile(t *testing.T) {
	content := `
name: test-store
version: "1.0"
storage:
  backend: memory
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "store.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"init", "-c", configPath})
	if err != nil {
		t.Fatalf("init command failed: %v", err)
	}

	if !strings.Contains(stdout.String(), "Backend: memory") {
		t.Errorf("init output missing backend, got: %s", stdout.String())
	}
}

func TestApp_Init_UnknownBackend(t *testing.T) {
	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"init", "--backend", "leveldb"})
	if err == nil {
		t.Fatal("init should fail for an unknown backend")
	}
}

func TestApp_SaveGetDeleteRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	dataDir := filepath.Join(tmpDir, "data")
	eventPath := filepath.Join(tmpDir, "event.json")

	eventJSON := `{
  "id": "roundtrip1",
  "pubkey": "pub1",
  "created_at": 100,
  "kind": 1,
  "tags": [],
  "content": "hello from the cli",
  "sig": "sig1"
}`
	if err := os.WriteFile(eventPath, []byte(eventJSON), 0644); err != nil {
		t.Fatalf("failed to write event file: %v", err)
	}

	storeArgs := []string{"--backend", "badger", "--dir", dataDir}

	// Save from file.
	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)
	err := app.ExecuteWithArgs(context.Background(), append([]string{"save", eventPath}, storeArgs...))
	if err != nil {
		t.Fatalf("save command failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "Outcome: stored") {
		t.Errorf("save output missing outcome, got: %s", stdout.String())
	}

	// Get it back from a fresh process.
	stdout.Reset()
	app = New().WithOutput(&stdout, &stderr)
	err = app.ExecuteWithArgs(context.Background(), append([]string{"get", "roundtrip1"}, storeArgs...))
	if err != nil {
		t.Fatalf("get command failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "hello from the cli") {
		t.Errorf("get output missing event content, got: %s", stdout.String())
	}

	// Stats should count the stored event.
	stdout.Reset()
	app = New().WithOutput(&stdout, &stderr)
	err = app.ExecuteWithArgs(context.Background(), append([]string{"stats"}, storeArgs...))
	if err != nil {
		t.Fatalf("stats command failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "events") {
		t.Errorf("stats output missing events table, got: %s", stdout.String())
	}
	if !strings.Contains(stdout.String(), "total") {
		t.Errorf("stats output missing total row, got: %s", stdout.String())
	}

	// Delete and confirm the id is gone.
	stdout.Reset()
	app = New().WithOutput(&stdout, &stderr)
	err = app.ExecuteWithArgs(context.Background(), append([]string{"delete", "roundtrip1"}, storeArgs...))
	if err != nil {
		t.Fatalf("delete command failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "Deleted roundtrip1") {
		t.Errorf("delete output missing confirmation, got: %s", stdout.String())
	}

	stdout.Reset()
	app = New().WithOutput(&stdout, &stderr)
	err = app.ExecuteWithArgs(context.Background(), append([]string{"get", "roundtrip1"}, storeArgs...))
	if err == nil {
		t.Fatal("get should fail after delete")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("get error = %v, want not found", err)
	}
}

func TestApp_Save_Stdin(t *testing.T) {
	eventJSON := `{"id": "stdin1", "pubkey": "pub1", "created_at": 50, "kind": 1, "tags": [], "content": "from stdin", "sig": "s"}`

	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr).WithInput(strings.NewReader(eventJSON))

	err := app.ExecuteWithArgs(context.Background(), []string{"save", "--backend", "memory"})
	if err != nil {
		t.Fatalf("save from stdin failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "ID: stdin1") {
		t.Errorf("save output missing id, got: %s", stdout.String())
	}
}

func TestApp_Save_JSONOutput(t *testing.T) {
	eventJSON := `{"id": "json1", "pubkey": "pub1", "created_at": 50, "kind": 0, "tags": [], "content": "{}", "sig": "s"}`

	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr).WithInput(strings.NewReader(eventJSON))

	err := app.ExecuteWithArgs(context.Background(), []string{"save", "--backend", "memory", "--json"})
	if err != nil {
		t.Fatalf("save --json failed: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		t.Fatalf("save --json output is not valid JSON: %v\noutput: %s", err, stdout.String())
	}
	if result["outcome"] != "stored" {
		t.Errorf("outcome = %v, want stored", result["outcome"])
	}
	if result["class"] != "replaceable" {
		t.Errorf("class = %v, want replaceable", result["class"])
	}
}

func TestApp_Save_InvalidJSON(t *testing.T) {
	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr).WithInput(strings.NewReader("not json"))

	err := app.ExecuteWithArgs(context.Background(), []string{"save", "--backend", "memory"})
	if err == nil {
		t.Fatal("save should fail for malformed JSON")
	}
	if !strings.Contains(err.Error(), "parse") {
		t.Errorf("save error = %v, want parse failure", err)
	}
}

func TestApp_Save_InvalidEvent(t *testing.T) {
	eventJSON := `{"id": "", "pubkey": "pub1", "created_at": 50, "kind": 1, "tags": [], "content": "", "sig": "s"}`

	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr).WithInput(strings.NewReader(eventJSON))

	err := app.ExecuteWithArgs(context.Background(), []string{"save", "--backend", "memory"})
	if err == nil {
		t.Fatal("save should fail for an event without an id")
	}
}

func TestApp_Get_NotFound(t *testing.T) {
	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"get", "missing", "--backend", "memory"})
	if err == nil {
		t.Fatal("get should fail for a missing id")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("get error = %v, want not found", err)
	}
}

func TestApp_Stats_JSON(t *testing.T) {
	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"stats", "--backend", "memory", "--json"})
	if err != nil {
		t.Fatalf("stats --json failed: %v", err)
	}

	var snapshot struct {
		Tables map[string]struct {
			Count int64 `json:"count"`
			Bytes int64 `json:"bytes"`
		} `json:"tables"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &snapshot); err != nil {
		t.Fatalf("stats --json output is not valid JSON: %v\noutput: %s", err, stdout.String())
	}
	if _, ok := snapshot.Tables["events"]; !ok {
		t.Errorf("stats JSON missing events table, got: %s", stdout.String())
	}
}

func TestApp_Wipe_RequiresConfirmation(t *testing.T) {
	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"wipe", "--backend", "memory"})
	if err == nil {
		t.Fatal("wipe should refuse to run without --yes")
	}
	if !strings.Contains(err.Error(), "--yes") {
		t.Errorf("wipe error = %v, want confirmation hint", err)
	}
}

func TestApp_Wipe(t *testing.T) {
	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"wipe", "--backend", "memory", "--yes"})
	if err != nil {
		t.Fatalf("wipe command failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "Store wiped") {
		t.Errorf("wipe output missing confirmation, got: %s", stdout.String())
	}
}

func TestApp_Validate(t *testing.T) {
	content := `
name: test-store
version: "1.0"
storage:
  backend: memory
logging:
  level: debug
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "store.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"validate", "-c", configPath})
	if err != nil {
		t.Fatalf("validate command failed: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "valid") {
		t.Errorf("validate output missing 'valid', got: %s", output)
	}
	if !strings.Contains(output, "Backend: memory") {
		t.Errorf("validate output missing backend, got: %s", output)
	}
	if !strings.Contains(output, "Log level: debug") {
		t.Errorf("validate output missing log level, got: %s", output)
	}
}

func TestApp_ValidateInvalid(t *testing.T) {
	content := `
name: ""
version: ""
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "store.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"validate", "-c", configPath})
	if err == nil {
		t.Fatal("validate should fail for an invalid config")
	}
}

func TestApp_ValidateMissingPath(t *testing.T) {
	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"validate"})
	if err == nil {
		t.Fatal("validate should fail without a config path")
	}
}

func TestApp_Schema(t *testing.T) {
	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"schema"})
	if err != nil {
		t.Fatalf("schema command failed: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "$schema") {
		t.Errorf("schema output missing '$schema', got: %s", output)
	}
	if !strings.Contains(output, "Event Store Configuration") {
		t.Errorf("schema output missing title, got: %s", output)
	}
}

func TestApp_SchemaToFile(t *testing.T) {
	tmpDir := t.TempDir()
	schemaPath := filepath.Join(tmpDir, "schema.json")

	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"schema", "-o", schemaPath})
	if err != nil {
		t.Fatalf("schema -o failed: %v", err)
	}

	data, err := os.ReadFile(schemaPath)
	if err != nil {
		t.Fatalf("failed to read exported schema: %v", err)
	}
	if !strings.Contains(string(data), "$schema") {
		t.Errorf("exported schema missing '$schema', got: %s", data)
	}
}
