package models

// Column names of the tidy EMA schema.
const (
	ColPersonID = "personID"

	ColStartTime = "start_time"
	ColEndTime   = "end_time"

	ColQEntry      = "q_entry"
	ColQCheerful   = "q_cheerful"
	ColQWorried    = "q_worried"
	ColQRelaxed    = "q_relaxed"
	ColQSad        = "q_sad"
	ColQFrustrated = "q_frustrated"

	ColTimeEntry      = "time_entry"
	ColTimeCheerful   = "time_cheerful"
	ColTimeWorried    = "time_worried"
	ColTimeRelaxed    = "time_relaxed"
	ColTimeSad        = "time_sad"
	ColTimeFrustrated = "time_frustrated"
)

// RawColumns is the width of every row in a raw export.
const RawColumns = 8

// GroupSize is the number of raw rows (label, value, timestamp) per survey instance.
const GroupSize = 3

// WideColumns are the positional names given to a reshaped row. Null1 and
// Null2 are placeholder cells carried over from the timestamp row.
var WideColumns = []string{
	"Null1", "Null2",
	ColTimeEntry, ColTimeCheerful, ColTimeWorried, ColTimeRelaxed, ColTimeSad, ColTimeFrustrated,
	ColStartTime, ColEndTime,
	ColQEntry, ColQCheerful, ColQWorried, ColQRelaxed, ColQSad, ColQFrustrated,
}

// TidyColumns is the column order of a TidyEmaTable.
var TidyColumns = WideColumns[2:]

// FullDayColumns is the column order of a FullDayTable body: scores before
// response timestamps.
var FullDayColumns = []string{
	ColStartTime, ColEndTime,
	ColQEntry, ColQCheerful, ColQWorried, ColQRelaxed, ColQSad, ColQFrustrated,
	ColTimeEntry, ColTimeCheerful, ColTimeWorried, ColTimeRelaxed, ColTimeSad, ColTimeFrustrated,
}

// Table is a rectangular grid of untyped cells. Values are kept verbatim.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Width returns the number of columns.
func (t *Table) Width() int {
	return len(t.Columns)
}

// Index returns the position of the named column, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns a copy of the named column's values.
func (t *Table) Column(name string) ([]string, bool) {
	idx := t.Index(name)
	if idx < 0 {
		return nil, false
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, true
}

// RawExportTable is an export file's body after the header block is skipped.
// Columns are positional ("0".."7") since the export has no usable header.
type RawExportTable struct {
	Table
	Path string
}

// TidyEmaTable holds one row per completed survey instance in TidyColumns order.
type TidyEmaTable struct {
	Table
}

// FullDayTable is a participant's daily and evening observations, tagged with
// the participant ID as its first column.
type FullDayTable struct {
	Table
	PersonID    string
	DailyRows   int
	EveningRows int
}

// Source reports whether row i came from the daily or evening export.
func (f *FullDayTable) Source(i int) string {
	if i < f.DailyRows {
		return "daily"
	}
	return "evening"
}
