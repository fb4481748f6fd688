// Package artifact lays out and writes the flat result files of a run.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File names inside a phase directory.
const (
	EventsFile    = "events.csv"
	SummaryFile   = "summary.json"
	JudgementFile = "judgement.json"
	VerdictFile   = "verdict.json"
	SweepFile     = "sweep.json"
	filesDir      = "files"
)

// RunDir is the directory holding everything a run produced.
func RunDir(root, runID string) string {
	return filepath.Join(root, runID)
}

// PhaseDir is the directory of one phase within a run.
func PhaseDir(root, runID, phase string) string {
	return filepath.Join(root, runID, phase)
}

// FileTable is the per-input labeled table path: files/<n>_<basename>.csv,
// n counting from 1 in file-list order.
func FileTable(phaseDir string, n int, input string) string {
	base := filepath.Base(input)
	for ext := filepath.Ext(base); ext != ""; ext = filepath.Ext(base) {
		base = strings.TrimSuffix(base, ext)
	}
	return filepath.Join(phaseDir, filesDir, fmt.Sprintf("%d_%s.csv", n, base))
}

// WriteJSON writes v indented to path, creating parent directories.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
