package services

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ema-tidy/models"
)

func TestEveningName(t *testing.T) {
	tests := []struct {
		daily string
		want  string
	}{
		{"0001_Daily.csv", "0001_Evening.csv"},
		{"0001_Daily_Daily.csv", "0001_Evening_Daily.csv"},
		{"0001_daily.csv", "0001_daily.csv"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EveningName(tt.daily, "Daily", "Evening"), tt.daily)
	}
}

func TestParticipantID(t *testing.T) {
	id, err := ParticipantID("Ab1x_Daily.csv", 4)
	require.NoError(t, err)
	assert.Equal(t, "Ab1x", id, "prefix must be kept verbatim")

	id, err = ParticipantID("Zoë9_Daily.csv", 4)
	require.NoError(t, err)
	assert.Equal(t, "Zoë9", id)

	_, err = ParticipantID("abc", 4)
	assert.ErrorIs(t, err, models.ErrInvalidFilename)
}

func readTSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	records, err := r.ReadAll()
	require.NoError(t, err)
	return records
}

func TestPipelineRoundTrip(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeExport(t, in, "P007_Daily.csv", exportLines("d", 3))
	writeExport(t, in, "P007_Evening.csv", exportLines("e", 2))

	p := newTestPipeline(t, testConfig(in, out))
	res := p.Process(context.Background(), "P007_Daily.csv")
	require.NoError(t, res.Err)

	assert.Equal(t, "P007", res.PersonID)
	assert.Equal(t, 3, res.DailyRows)
	assert.Equal(t, 2, res.EveningRows)
	assert.Equal(t, filepath.Join(out, "P007_ema.tsv"), res.OutputPath)

	want := [][]string{{
		"personID", "start_time", "end_time",
		"q_entry", "q_cheerful", "q_worried", "q_relaxed", "q_sad", "q_frustrated",
		"time_entry", "time_cheerful", "time_worried", "time_relaxed", "time_sad", "time_frustrated",
	}}
	for g := 0; g < 3; g++ {
		want = append(want, expectedRow("P007", "d", g))
	}
	for g := 0; g < 2; g++ {
		want = append(want, expectedRow("P007", "e", g))
	}

	if diff := cmp.Diff(want, readTSV(t, res.OutputPath)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestPipelineIdempotent(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeExport(t, in, "0001_Daily.csv", exportLines("d", 4))
	writeExport(t, in, "0001_Evening.csv", exportLines("e", 1))

	p := newTestPipeline(t, testConfig(in, out))

	first := p.Process(context.Background(), "0001_Daily.csv")
	require.NoError(t, first.Err)
	a, err := os.ReadFile(first.OutputPath)
	require.NoError(t, err)

	second := p.Process(context.Background(), "0001_Daily.csv")
	require.NoError(t, second.Err)
	b, err := os.ReadFile(second.OutputPath)
	require.NoError(t, err)

	assert.Equal(t, a, b)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestPipelineMissingEvening(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeExport(t, in, "0002_Daily.csv", exportLines("d", 1))

	p := newTestPipeline(t, testConfig(in, out))
	res := p.Process(context.Background(), "0002_Daily.csv")

	require.ErrorIs(t, res.Err, models.ErrMissingCounterpart)
	var pe *models.ParticipantError
	require.True(t, errors.As(res.Err, &pe))
	assert.Equal(t, "0002", pe.PersonID)
	assert.Equal(t, StageRead, pe.Stage)
	assert.NoFileExists(t, filepath.Join(out, "0002_ema.tsv"))
}

func TestPipelineSchemaMismatch(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeExport(t, in, "0003_Daily.csv", exportLines("d", 2))
	writeExport(t, in, "0003_Evening.csv", append(exportLines("e", 1), "a,b,c,d,e,f,g,h"))

	p := newTestPipeline(t, testConfig(in, out))
	res := p.Process(context.Background(), "0003_Daily.csv")

	require.ErrorIs(t, res.Err, models.ErrSchemaMismatch)
	var pe *models.ParticipantError
	require.True(t, errors.As(res.Err, &pe))
	assert.Equal(t, StageTidy, pe.Stage)
}

func TestPipelineWrongWidth(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	lines := []string{"h1", "h2", "h3", "h4", "a,b,c,d,e,f,g,h,i", "1,2,3,4,5,6,7,8,9", "j,k,l,m,n,o,p,q,r"}
	writeExport(t, in, "0004_Daily.csv", lines)
	writeExport(t, in, "0004_Evening.csv", lines)

	p := newTestPipeline(t, testConfig(in, out))
	res := p.Process(context.Background(), "0004_Daily.csv")
	assert.ErrorIs(t, res.Err, models.ErrSchemaMismatch)
}

func TestPipelineInvalidFilename(t *testing.T) {
	p := newTestPipeline(t, testConfig(t.TempDir(), t.TempDir()))

	res := p.Process(context.Background(), "abc")
	assert.ErrorIs(t, res.Err, models.ErrInvalidFilename)

	res = p.Process(context.Background(), "0005_notes.csv")
	assert.ErrorIs(t, res.Err, models.ErrInvalidFilename)
}
