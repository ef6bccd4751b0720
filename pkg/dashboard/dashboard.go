package dashboard

import (
	"fmt"
	"time"

	"github.com/danfeder/classroom-scheduler/pkg/domain"
	"github.com/go-echarts/go-echarts/v2/charts"
)

// DashboardData bundles an analyzed run's assignments and metrics, the
// Dashboard API's `analyze` return value per spec §6.
type DashboardData struct {
	Assignments []domain.Assignment
	Metrics     QualityMetrics
}

// Dashboard holds run history and realizes the §6 Dashboard API
// (analyze/compare/chart/metrics/history) over it.
type Dashboard struct {
	req     *domain.ScheduleRequest
	history *History
}

// New returns a Dashboard scoped to req, with an empty run history.
func New(req *domain.ScheduleRequest) *Dashboard {
	return &Dashboard{req: req, history: NewHistory()}
}

// Analyze computes DashboardData for assignments and records it in
// history under id.
func (d *Dashboard) Analyze(id string, assignments []domain.Assignment) DashboardData {
	metrics := Analyze(d.req, assignments)
	d.history.Record(RunRecord{ID: id, Timestamp: time.Now(), Metrics: metrics, Assignments: assignments})
	return DashboardData{Assignments: assignments, Metrics: metrics}
}

// Chart renders a bar chart for a previously analyzed run.
func (d *Dashboard) Chart(id string, kind ChartType) (*charts.Bar, error) {
	rec, ok := d.history.Find(id)
	if !ok {
		return nil, fmt.Errorf("dashboard: unknown run id %q", id)
	}
	return Chart(d.req, rec.Assignments, kind)
}

// Compare diffs two previously analyzed runs by id.
func (d *Dashboard) Compare(baselineID, comparisonID string) ([]ComparisonResult, error) {
	baseline, ok := d.history.Find(baselineID)
	if !ok {
		return nil, fmt.Errorf("dashboard: unknown run id %q", baselineID)
	}
	comparison, ok := d.history.Find(comparisonID)
	if !ok {
		return nil, fmt.Errorf("dashboard: unknown run id %q", comparisonID)
	}
	return Compare(baseline.Metrics, comparison.Metrics), nil
}

// Metrics returns the QualityMetrics recorded for id.
func (d *Dashboard) Metrics(id string) (QualityMetrics, error) {
	rec, ok := d.history.Find(id)
	if !ok {
		return QualityMetrics{}, fmt.Errorf("dashboard: unknown run id %q", id)
	}
	return rec.Metrics, nil
}

// History returns every retained RunRecord, oldest first.
func (d *Dashboard) History() []RunRecord {
	return d.history.All()
}
