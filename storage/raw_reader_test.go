package storage

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ema-tidy/models"
)

func TestReadRawExportCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "0001_Daily.csv")
	content := "title\n\nmeta,1\nmeta,2\n" +
		"a,b,c\n" +
		"\n" +
		"d,e\n" +
		"\"f,1\",g,h\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	raw, err := ReadRawExport(path, 4)
	require.NoError(t, err)

	assert.Equal(t, path, raw.Path)
	assert.Equal(t, []string{"0", "1", "2", "3", "4", "5", "6", "7"}, raw.Columns)
	assert.Equal(t, [][]string{
		{"a", "b", "c", "", "", "", "", ""},
		{"d", "e", "", "", "", "", "", ""},
		{"f,1", "g", "h", "", "", "", "", ""},
	}, raw.Rows)
}

func TestReadRawExportHeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "0001_Evening.csv")
	require.NoError(t, os.WriteFile(path, []byte("h1\nh2\nh3"), 0o644))

	raw, err := ReadRawExport(path, 4)
	require.NoError(t, err)
	assert.Empty(t, raw.Rows)
	assert.Equal(t, models.RawColumns, raw.Width())
}

func TestReadRawExportMissing(t *testing.T) {
	for _, name := range []string{"nope.csv", "nope.xlsx"} {
		_, err := ReadRawExport(filepath.Join(t.TempDir(), name), 4)
		assert.ErrorIs(t, err, fs.ErrNotExist, name)
		assert.ErrorIs(t, err, models.ErrIO, name)
	}
}

func TestReadRawExportWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "0001_Daily.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"Survey export"},
		{"Participant", "0001"},
		{"Generated"},
		{"Notes"},
		{"label", "x", "y"},
		{"1", "2", "3"},
		{},
		{"t1", "t2", "t3"},
	}
	for i, r := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cellRef, &r))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	raw, err := ReadRawExport(path, 4)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"label", "x", "y", "", "", "", "", ""},
		{"1", "2", "3", "", "", "", "", ""},
		{"t1", "t2", "t3", "", "", "", "", ""},
	}, raw.Rows)
}

func TestReadRawExportWorkbookBlankLastColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "0001_Daily.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"h1"}, {"h2"}, {"h3"}, {"h4"},
		{"", "", "entry", "cheerful", "worried", "relaxed", "sad", ""},
		{"08:00", "08:05", "1", "2", "3", "4", "5", ""},
		{"", "", "t1", "t2", "t3", "t4", "t5", ""},
	}
	for i, r := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cellRef, &r))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	raw, err := ReadRawExport(path, 4)
	require.NoError(t, err)
	assert.Equal(t, models.RawColumns, raw.Width(), "blank trailing column must not shrink the export")
	require.Len(t, raw.Rows, 3)
	assert.Equal(t, []string{"08:00", "08:05", "1", "2", "3", "4", "5", ""}, raw.Rows[1])
}

func TestReadRawExportKeepsOverflow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "0001_Daily.csv")
	require.NoError(t, os.WriteFile(path, []byte("h1\nh2\nh3\nh4\n1,2,3,4,5,6,7,8,9\n"), 0o644))

	raw, err := ReadRawExport(path, 4)
	require.NoError(t, err)
	assert.Equal(t, 9, raw.Width())
}

func TestDirListerSkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0001_Daily.csv"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "Daily"), 0o755))

	names, err := DirLister{}.List(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"0001_Daily.csv", "readme.txt"}, names)
}
