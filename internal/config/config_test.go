package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/danfeder/classroom-scheduler/pkg/driver"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "request.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestLoadFlattensWeeklyRequiredPeriods(t *testing.T) {
	path := writeFile(t, `
classes:
  - id: A
    requiredPeriods:
      - dayOfWeek: 1
        period: 2
startDate: "2026-09-07"
endDate: "2026-09-18"
`)
	req, _, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if len(req.Classes) != 1 {
		t.Fatalf("expected 1 class, got %d", len(req.Classes))
	}
	// Two Mondays fall in range: 2026-09-07 and 2026-09-14.
	if got := len(req.Classes[0].RequiredPeriods); got != 2 {
		t.Fatalf("expected 2 flattened required periods, got %d", got)
	}
}

func TestLoadAppliesDefaultWeights(t *testing.T) {
	path := writeFile(t, `
classes:
  - id: A
startDate: "2026-09-07"
endDate: "2026-09-11"
`)
	req, cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if req.Weights.AvoidPeriods >= 0 {
		t.Fatalf("expected a negative default avoidPeriods weight, got %d", req.Weights.AvoidPeriods)
	}
	if cfg.Strategy != driver.StrategyAuto {
		t.Fatalf("expected default strategy auto, got %s", cfg.Strategy)
	}
	if cfg.TimeLimit.Seconds() != defaultTimeLimitSeconds {
		t.Fatalf("expected default time limit %ds, got %v", defaultTimeLimitSeconds, cfg.TimeLimit)
	}
}

func TestLoadRejectsEmptyClasses(t *testing.T) {
	path := writeFile(t, `
classes: []
startDate: "2026-09-07"
endDate: "2026-09-11"
`)
	if _, _, err := Load(path); err == nil {
		t.Fatal("expected a ConfigError for an empty class list")
	}
}

func TestLoadRejectsInvertedWeeklyBounds(t *testing.T) {
	path := writeFile(t, `
classes:
  - id: A
startDate: "2026-09-07"
endDate: "2026-09-11"
constraints:
  minClassesPerWeek: 5
  maxClassesPerWeek: 2
`)
	if _, _, err := Load(path); err == nil {
		t.Fatal("expected a ConfigError when minClassesPerWeek exceeds maxClassesPerWeek")
	}
}

func TestLoadRejectsPositiveAvoidPeriodsWeight(t *testing.T) {
	path := writeFile(t, `
classes:
  - id: A
startDate: "2026-09-07"
endDate: "2026-09-11"
weights:
  avoidPeriods: 5
`)
	if _, _, err := Load(path); err == nil {
		t.Fatal("expected a ConfigError for a positive avoidPeriods weight")
	}
}

func TestLoadRejectsDuplicateClassIDs(t *testing.T) {
	path := writeFile(t, `
classes:
  - id: A
  - id: A
startDate: "2026-09-07"
endDate: "2026-09-11"
`)
	if _, _, err := Load(path); err == nil {
		t.Fatal("expected a ConfigError for duplicate class ids")
	}
}

func TestLoadAcceptsJSON(t *testing.T) {
	path := writeFile(t, `{"classes":[{"id":"A"}],"startDate":"2026-09-07","endDate":"2026-09-11"}`)
	req, _, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected load error for a JSON fixture: %v", err)
	}
	if len(req.Classes) != 1 {
		t.Fatalf("expected 1 class, got %d", len(req.Classes))
	}
}
