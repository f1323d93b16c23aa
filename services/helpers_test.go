package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"ema-tidy/config"
	"ema-tidy/models"
	"ema-tidy/storage"
	"ema-tidy/utils"
)

// cell is the sentinel value at (group, row-in-group, column) of an export
// whose cells are all prefixed with tag.
func cell(tag string, group, row, col int) string {
	return fmt.Sprintf("%s-g%d-r%d-c%d", tag, group, row, col)
}

// exportLines renders 4 header lines plus groups*3 data rows of 8 columns.
func exportLines(tag string, groups int) []string {
	lines := []string{
		"Survey export",
		"Participant,xxxx",
		"Generated,2024-01-01",
		"",
	}
	for g := 0; g < groups; g++ {
		for r := 0; r < models.GroupSize; r++ {
			cells := make([]string, models.RawColumns)
			for c := range cells {
				cells[c] = cell(tag, g, r, c)
			}
			lines = append(lines, strings.Join(cells, ","))
		}
	}
	return lines
}

func writeExport(t *testing.T, dir, name string, lines []string) {
	t.Helper()
	data := strings.Join(lines, "\n") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644))
}

// expectedRow is the FullDayTable row produced from group g of an export.
func expectedRow(personID, tag string, g int) []string {
	row := []string{personID}
	for c := 0; c < models.RawColumns; c++ {
		row = append(row, cell(tag, g, 1, c))
	}
	for c := 2; c < models.RawColumns; c++ {
		row = append(row, cell(tag, g, 2, c))
	}
	return row
}

func testConfig(in, out string) *config.Config {
	return &config.Config{
		InputDir:       in,
		OutputDir:      out,
		HeaderRows:     4,
		DailyMarker:    "Daily",
		EveningMarker:  "Evening",
		IDLength:       4,
		MaxConcurrency: 1,
	}
}

func newTestPipeline(t *testing.T, cfg *config.Config) *Pipeline {
	t.Helper()
	w, err := storage.NewTSVWriter(cfg.OutputDir)
	require.NoError(t, err)
	logger := utils.NewNopLogger()
	return NewPipeline(cfg, storage.ExportReader{}, NewTidier(logger, cfg.DropPartialGroups), logger, w)
}
