package adapter

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
	m "retest.dev/pkg/retest/internal/model"
)

// latestReportName is the file the most recent run report is written to.
const latestReportName = "latest-run.yaml"

// ReportStore persists the most recent run's report so it can be
// inspected after the fact (`retest report`). Only the latest snapshot
// is kept; run history across restarts is deliberately not recorded.
type ReportStore interface {
	SaveLatest(dir m.Path, report m.RunReport) error
	LoadLatest(dir m.Path) (m.RunReport, error)
}

// LocalReportStore is the yaml-on-disk ReportStore implementation.
type LocalReportStore struct{}

// NewLocalReportStore constructs a LocalReportStore.
func NewLocalReportStore() *LocalReportStore {
	return &LocalReportStore{}
}

// SaveLatest writes the report to dir, replacing any previous snapshot.
func (s *LocalReportStore) SaveLatest(dir m.Path, report m.RunReport) error {
	if err := os.MkdirAll(string(dir), 0o750); err != nil {
		return fmt.Errorf("create reports dir %s: %w", dir, err)
	}

	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal run report: %w", err)
	}

	path := filepath.Join(string(dir), latestReportName)

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write run report %s: %w", path, err)
	}

	return nil
}

// LoadLatest reads the most recent snapshot from dir.
func (s *LocalReportStore) LoadLatest(dir m.Path) (m.RunReport, error) {
	path := filepath.Join(string(dir), latestReportName)

	data, err := os.ReadFile(path) //nolint:gosec // path comes from trusted configuration
	if err != nil {
		return m.RunReport{}, fmt.Errorf("read run report %s: %w", path, err)
	}

	var report m.RunReport
	if err := yaml.Unmarshal(data, &report); err != nil {
		return m.RunReport{}, fmt.Errorf("unmarshal run report %s: %w", path, err)
	}

	return report, nil
}
