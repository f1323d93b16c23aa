package services

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ema-tidy/models"
	"ema-tidy/utils"
)

// SummaryService aggregates participant results into a BatchReport.
type SummaryService struct {
	logger *utils.Logger
}

func NewSummaryService(logger *utils.Logger) *SummaryService {
	return &SummaryService{logger: logger}
}

// Generate builds the report. total is the number of participants selected;
// any not present in results are counted as skipped.
func (s *SummaryService) Generate(runID, inputDir, outputDir string, total int, results []*models.ParticipantResult, elapsed time.Duration) *models.BatchReport {
	report := &models.BatchReport{
		RunID:        runID,
		InputDir:     inputDir,
		OutputDir:    outputDir,
		Total:        total,
		FailureKinds: make(map[string]int),
		Elapsed:      elapsed,
	}

	for _, r := range results {
		if r.OK() {
			report.Succeeded++
			report.DailyRows += r.DailyRows
			report.EveningRows += r.EveningRows
			if r.OutputPath != "" {
				report.Outputs = append(report.Outputs, r.OutputPath)
			}
			continue
		}
		report.Failed++
		kind := models.Kind(r.Err)
		report.FailureKinds[kind]++
		report.Failures = append(report.Failures, models.FailureEntry{
			PersonID: r.PersonID,
			File:     r.DailyFile,
			Kind:     kind,
			Reason:   r.Err.Error(),
		})
	}
	report.Skipped = total - report.Succeeded - report.Failed

	sort.Strings(report.Outputs)
	sort.Slice(report.Failures, func(i, j int) bool {
		if report.Failures[i].PersonID != report.Failures[j].PersonID {
			return report.Failures[i].PersonID < report.Failures[j].PersonID
		}
		return report.Failures[i].File < report.Failures[j].File
	})

	return report
}

// Print writes a human-readable summary to w.
func (s *SummaryService) Print(w io.Writer, r *models.BatchReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n%s\n", sep)
	fmt.Fprintf(w, "  EMA TIDY SUMMARY  (run %s)\n", r.RunID)
	fmt.Fprintf(w, "%s\n\n", sep)

	fmt.Fprintf(w, "  Participants\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Selected   : %d\n", r.Total)
	fmt.Fprintf(w, "  Succeeded  : %d\n", r.Succeeded)
	fmt.Fprintf(w, "  Failed     : %d\n", r.Failed)
	if r.Skipped > 0 {
		fmt.Fprintf(w, "  Skipped    : %d\n", r.Skipped)
	}
	fmt.Fprintf(w, "  Rows       : %d daily + %d evening\n", r.DailyRows, r.EveningRows)
	if r.Elapsed > 0 {
		fmt.Fprintf(w, "  Elapsed    : %s\n", r.Elapsed.Round(time.Millisecond))
	}
	fmt.Fprintln(w)

	if len(r.Failures) == 0 {
		return
	}
	fmt.Fprintf(w, "  Failures\n")
	fmt.Fprintf(w, "  %s\n", thin)
	for _, f := range r.Failures {
		fmt.Fprintf(w, "  %-6s %-22s %s\n", f.PersonID, f.Kind, f.File)
	}
	fmt.Fprintln(w)
}

// WriteYAML stores the report at path, creating parent directories.
func (s *SummaryService) WriteYAML(path string, r *models.BatchReport) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("summary: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("summary: create dir: %w: %w", models.ErrIO, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("summary: write %s: %w: %w", path, models.ErrIO, err)
	}
	s.logger.Info("[summary] written to %s", path)
	return nil
}
