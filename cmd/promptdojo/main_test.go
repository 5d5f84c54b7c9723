package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestLevelsListsCatalog(t *testing.T) {
	out, err := run(t, "levels")
	if err != nil {
		t.Fatalf("levels: %v", err)
	}
	if !strings.Contains(out, " 1. ") || !strings.Contains(out, " 5. ") {
		t.Fatalf("expected five levels, got:\n%s", out)
	}
}

func TestResetAndProgressRoundTrip(t *testing.T) {
	dir := t.TempDir()
	env := filepath.Join(dir, "none.env")
	if _, err := run(t, "reset", "--yes", "--data-dir", dir, "--env-file", env); err != nil {
		t.Fatalf("reset: %v", err)
	}
	out, err := run(t, "progress", "--json", "--data-dir", dir, "--env-file", env)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if !strings.Contains(out, `"unlockedLevel": 1`) {
		t.Fatalf("unexpected progress output:\n%s", out)
	}
}

func TestReportWritesPDF(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out", "recap.pdf")
	out, err := run(t, "report", "--data-dir", dir, "--env-file", filepath.Join(dir, "none.env"), "--out", target)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("expected output path in %q", out)
	}
}

func TestEphemeralProgressIsRejected(t *testing.T) {
	if _, err := run(t, "progress", "--ephemeral", "--env-file", filepath.Join(t.TempDir(), "none.env")); err == nil {
		t.Fatalf("expected an error for ephemeral progress")
	}
}

func TestManPageRenders(t *testing.T) {
	out, err := run(t, "man")
	if err != nil {
		t.Fatalf("man: %v", err)
	}
	if !strings.Contains(out, "promptdojo") {
		t.Fatalf("man page missing command name")
	}
}
