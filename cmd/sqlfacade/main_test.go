package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeConfig writes a config with events and metrics disabled and returns its path.
func writeConfig(t *testing.T, dbPath, migrationsDir string) string {
	t.Helper()

	configContent := `
database:
  driver: sqlite3
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5
  foreign_keys: true

migrations:
  dir: "` + migrationsDir + `"

logging:
  level: error
  format: text
  output: stderr

events:
  enabled: false

metrics:
  enabled: false
`
	configPath := filepath.Join(t.TempDir(), "test-config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, []string{"-config", "/nonexistent/path/config.yaml"}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("run() error = %v, want loading config failure", err)
	}
}

// TestRun_MissingDatabasePath verifies run fails when the database path is empty.
func TestRun_MissingDatabasePath(t *testing.T) {
	configPath := writeConfig(t, "", "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx, []string{"-config", configPath}, &bytes.Buffer{}); err == nil {
		t.Fatal("run() should fail with empty database path")
	}
}

// TestRun_ExecAndQuery applies migrations, runs a statement file in a
// transaction and prints the query result as JSON lines.
func TestRun_ExecAndQuery(t *testing.T) {
	dir := t.TempDir()
	migrationsDir := filepath.Join(dir, "migrations")
	if err := os.Mkdir(migrationsDir, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, migrationsDir, "20260118_120000_create_friends.up.sql",
		"CREATE TABLE friends (id TEXT, name TEXT, PRIMARY KEY (id));")
	writeFile(t, migrationsDir, "20260118_120000_create_friends.down.sql",
		"DROP TABLE friends;")

	stmt := writeFile(t, dir, "insert.sql", "INSERT INTO friends (id, name) VALUES (?, ?)\n")
	params := writeFile(t, dir, "rows.json", `[["1","John"],["2","Jane"]]`)

	configPath := writeConfig(t, filepath.Join(dir, "data", "test.db"), migrationsDir)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out bytes.Buffer
	err := run(ctx, []string{
		"-config", configPath,
		"-exec", stmt,
		"-params", params,
		"-query", "SELECT id, name FROM friends WHERE id = ?",
		"2",
	}, &out)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d output lines, want 1: %q", len(lines), out.String())
	}

	var row map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &row); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if row["id"] != "2" || row["name"] != "Jane" {
		t.Errorf("row = %v, want id=2 name=Jane", row)
	}
}

// TestRun_ExecRollsBack verifies a failing batch leaves no rows behind.
func TestRun_ExecRollsBack(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, filepath.Join(dir, "test.db"), "")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	create := writeFile(t, dir, "create.sql", "CREATE TABLE friends (id TEXT, name TEXT, PRIMARY KEY (id))")
	if err := run(ctx, []string{"-config", configPath, "-exec", create}, &bytes.Buffer{}); err != nil {
		t.Fatalf("run(create) error = %v", err)
	}

	stmt := writeFile(t, dir, "insert.sql", "INSERT INTO friends (id, name) VALUES (?, ?)")
	params := writeFile(t, dir, "rows.json", `[["1","John"],["1","Duplicate"]]`)
	if err := run(ctx, []string{"-config", configPath, "-exec", stmt, "-params", params}, &bytes.Buffer{}); err == nil {
		t.Fatal("run() should fail on duplicate key")
	}

	var out bytes.Buffer
	if err := run(ctx, []string{"-config", configPath, "-query", "SELECT COUNT(*) AS n FROM friends"}, &out); err != nil {
		t.Fatalf("run(query) error = %v", err)
	}
	if strings.TrimSpace(out.String()) != `{"n":0}` {
		t.Errorf("output = %q, want {\"n\":0}", out.String())
	}
}

// TestRun_WaitsForShutdown verifies run holds the connection until cancelled.
func TestRun_WaitsForShutdown(t *testing.T) {
	configPath := writeConfig(t, filepath.Join(t.TempDir(), "test.db"), "")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := run(ctx, []string{"-config", configPath}, &bytes.Buffer{}); err != nil {
		t.Errorf("run() error = %v, want nil on shutdown", err)
	}
}

func TestParseFlags(t *testing.T) {
	t.Setenv("SQLFACADE_CONFIG", "")

	opts, err := parseFlags([]string{"-query", "SELECT ?", "a", "b"})
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	if opts.configPath != defaultConfigPath {
		t.Errorf("configPath = %q, want %q", opts.configPath, defaultConfigPath)
	}
	if opts.query != "SELECT ?" || len(opts.queryArgs) != 2 {
		t.Errorf("query = %q args = %v", opts.query, opts.queryArgs)
	}

	invalid := [][]string{
		{"-params", "rows.json"},
		{"stray"},
		{"-unknown"},
	}
	for _, args := range invalid {
		if _, err := parseFlags(args); err == nil {
			t.Errorf("parseFlags(%q) should fail", args)
		}
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("SQLFACADE_CONFIG", "")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("SQLFACADE_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

func TestLoadParamSets(t *testing.T) {
	dir := t.TempDir()

	sets, err := loadParamSets(writeFile(t, dir, "ok.json", `[["1","John"],[]]`))
	if err != nil {
		t.Fatalf("loadParamSets() error = %v", err)
	}
	if len(sets) != 2 || len(sets[0]) != 2 || len(sets[1]) != 0 {
		t.Errorf("sets = %v", sets)
	}

	if _, err := loadParamSets(writeFile(t, dir, "bad.json", `[[1, 2]]`)); err == nil {
		t.Error("loadParamSets() should reject non-string parameters")
	}

	for _, content := range []string{`[]`, `null`} {
		if _, err := loadParamSets(writeFile(t, dir, "empty.json", content)); err == nil {
			t.Errorf("loadParamSets(%s) should reject a file with no parameter sets", content)
		}
	}
}

// TestRun_ExecRejectsEmptyParams verifies an empty parameter file fails
// before anything is executed.
func TestRun_ExecRejectsEmptyParams(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, filepath.Join(dir, "test.db"), "")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmt := writeFile(t, dir, "create.sql", "CREATE TABLE friends (id TEXT, name TEXT, PRIMARY KEY (id))")
	params := writeFile(t, dir, "rows.json", `[]`)
	err := run(ctx, []string{"-config", configPath, "-exec", stmt, "-params", params}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "no parameter sets") {
		t.Fatalf("run() error = %v, want empty parameter file failure", err)
	}

	var out bytes.Buffer
	if err := run(ctx, []string{"-config", configPath, "-query", "SELECT name FROM sqlite_master WHERE name = 'friends'"}, &out); err != nil {
		t.Fatalf("run(query) error = %v", err)
	}
	if strings.TrimSpace(out.String()) != "" {
		t.Errorf("output = %q, want no table", out.String())
	}
}
