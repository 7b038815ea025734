package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"annotation-review/internal/identity"
)

func TestHashCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eval.csv")
	content := []byte("question,answer\nq,a\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	fileHash, _ := identity.FileHash(bytes.NewReader(content))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"hash", path, "--dimension", "tone"})
	t.Cleanup(func() { hashFlags.dimension = "" })

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("hash: %v", err)
	}

	want := "file_hash: " + fileHash + "\ntask_hash: " + identity.TaskHash(fileHash, "tone") + "\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestMigrateCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "annotations.db")
	t.Setenv("DATABASE_PATH", dbPath)
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"migrate", "--config", filepath.Join(t.TempDir(), "missing.yml")})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !strings.Contains(out.String(), "up to date") {
		t.Errorf("output = %q", out.String())
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database not created: %v", err)
	}
}
