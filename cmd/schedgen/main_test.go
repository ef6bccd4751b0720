package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/danfeder/classroom-scheduler/pkg/driver"
)

func writeRequestFixture(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "request.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestSolveCmdWritesAssignmentsForEveryClass(t *testing.T) {
	path := writeRequestFixture(t, `
classes:
  - id: A
  - id: B
startDate: "2026-09-07"
endDate: "2026-09-11"
solver:
  strategy: cp
  seed: 1
`)
	outPath := filepath.Join(t.TempDir(), "result.json")

	root := newRootCmd()
	root.SetArgs([]string{"solve", path, "-o", outPath})
	if err := root.Execute(); err != nil {
		t.Fatalf("solve command failed: %v", err)
	}

	raw, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	var result driver.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("unmarshalling output: %v", err)
	}
	if len(result.Assignments) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(result.Assignments))
	}
	if !result.Metadata.Feasible {
		t.Fatalf("expected a feasible result, got metadata %+v", result.Metadata)
	}
}

func TestSolveCmdRejectsMissingFile(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"solve", filepath.Join(t.TempDir(), "missing.yaml")})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	if err := root.Execute(); err == nil {
		t.Fatal("expected an error for a missing request file")
	}
}

func TestDashboardChartCmdWritesHTML(t *testing.T) {
	path := writeRequestFixture(t, `
classes:
  - id: A
startDate: "2026-09-07"
endDate: "2026-09-11"
solver:
  strategy: cp
  seed: 1
`)
	outPath := filepath.Join(t.TempDir(), "chart.html")

	root := newRootCmd()
	root.SetArgs([]string{"dashboard", "chart", path, "--type", "daily", "-o", outPath})
	if err := root.Execute(); err != nil {
		t.Fatalf("dashboard chart command failed: %v", err)
	}
	if info, err := os.Stat(outPath); err != nil || info.Size() == 0 {
		t.Fatalf("expected a non-empty chart file, stat err=%v", err)
	}
}
