package trace

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cwbudde/esmax/internal/es"
)

// Summary describes a finished run: what was optimized, with which
// hyperparameters, and the outcome.
type Summary struct {
	RunID     string    `json:"runId"`
	Objective string    `json:"objective"`
	Target    float64   `json:"target"`
	Config    es.Config `json:"config"`
	Result    es.Result `json:"result"`
	Timestamp time.Time `json:"timestamp"`
}

func summaryPath(baseDir, runID string) string {
	return filepath.Join(runDir(baseDir, runID), "summary.json")
}

// SaveSummary atomically writes the summary for s.RunID.
func SaveSummary(baseDir string, s *Summary) error {
	if s == nil {
		return fmt.Errorf("summary cannot be nil")
	}
	if s.RunID == "" {
		return fmt.Errorf("runID cannot be empty")
	}

	if err := os.MkdirAll(runDir(baseDir, s.RunID), 0755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize summary: %w", err)
	}

	finalPath := summaryPath(baseDir, s.RunID)
	tempPath := finalPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp summary file: %w", err)
	}
	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename summary file: %w", err)
	}

	slog.Debug("Summary saved", "run_id", s.RunID, "path", finalPath)
	return nil
}

// LoadSummary reads the summary for runID.
func LoadSummary(baseDir, runID string) (*Summary, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}

	data, err := os.ReadFile(summaryPath(baseDir, runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{RunID: runID}
		}
		return nil, fmt.Errorf("failed to read summary file: %w", err)
	}

	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to deserialize summary: %w", err)
	}
	return &s, nil
}

// ListRuns returns the summaries of all stored runs, newest first.
// Directories without a readable summary are skipped.
func ListRuns(baseDir string) ([]Summary, error) {
	entries, err := os.ReadDir(filepath.Join(baseDir, "runs"))
	if os.IsNotExist(err) {
		return []Summary{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read runs directory: %w", err)
	}

	summaries := []Summary{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		s, err := LoadSummary(baseDir, entry.Name())
		if err != nil {
			slog.Warn("Failed to load summary for listing", "run_id", entry.Name(), "error", err)
			continue
		}
		summaries = append(summaries, *s)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Timestamp.After(summaries[j].Timestamp)
	})

	slog.Debug("Listed runs", "count", len(summaries))
	return summaries, nil
}

// DeleteRun removes a run directory with its trace and summary.
func DeleteRun(baseDir, runID string) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}

	dir := runDir(baseDir, runID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return &NotFoundError{RunID: runID}
	} else if err != nil {
		return fmt.Errorf("failed to stat run directory: %w", err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove run directory: %w", err)
	}

	slog.Debug("Run deleted", "run_id", runID, "path", dir)
	return nil
}
