package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ferro-labs/llm-orchestration-gateway/internal/configstore"
)

func TestDecodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	want := configstore.ModelConfig{ModelID: "gpt-4", ProviderKind: "openai", Active: true, Priority: 1}
	data, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	var got configstore.ModelConfig
	if err := decodeFile(path, &got); err != nil {
		t.Fatalf("decodeFile: %v", err)
	}
	if got != want {
		t.Errorf("decodeFile = %+v, want %+v", got, want)
	}
}

func TestDecodeFile_MissingFile(t *testing.T) {
	var cfg configstore.ModelConfig
	if err := decodeFile(filepath.Join(t.TempDir(), "missing.json"), &cfg); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestDecodeFile_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	var cfg configstore.ModelConfig
	if err := decodeFile(path, &cfg); err == nil {
		t.Fatal("expected a JSON parse error")
	}
}

func TestParseTimeOrDuration(t *testing.T) {
	if _, err := parseTimeOrDuration("2026-01-01T00:00:00Z"); err != nil {
		t.Errorf("expected RFC3339 timestamp to parse, got %v", err)
	}
	if _, err := parseTimeOrDuration("24h"); err != nil {
		t.Errorf("expected duration to parse, got %v", err)
	}
	if _, err := parseTimeOrDuration("not-a-time"); err == nil {
		t.Error("expected an error for an unparseable value")
	}
}

func TestRootCmd_HasAllOperations(t *testing.T) {
	root := newRootCmd()
	want := []string{
		"add-model", "toggle-model", "list-models", "add-routing-rule",
		"create-ab-test", "create-budget", "export-config",
		"get-usage-report", "get-system-status",
	}
	for _, name := range want {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("expected subcommand %q to be registered", name)
		}
	}
}
