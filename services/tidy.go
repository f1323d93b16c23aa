package services

import (
	"fmt"
	"strconv"

	"ema-tidy/models"
	"ema-tidy/utils"
)

// Tidier turns raw EMA exports into tidy tables.
type Tidier struct {
	logger            *utils.Logger
	dropPartialGroups bool
}

// NewTidier creates a Tidier. With dropPartialGroups set, a trailing group of
// fewer than three rows is discarded with a warning instead of failing.
func NewTidier(logger *utils.Logger, dropPartialGroups bool) *Tidier {
	return &Tidier{logger: logger, dropPartialGroups: dropPartialGroups}
}

// Tidy reshapes and names a raw export in one step.
func (t *Tidier) Tidy(raw *models.RawExportTable) (*models.TidyEmaTable, error) {
	wide, err := t.ReshapeRows(raw)
	if err != nil {
		return nil, err
	}
	return MapSchema(wide)
}

// ReshapeRows folds each (label, value, timestamp) group of raw rows into one
// row of twice the raw width: the timestamp row's cells followed by the value
// row's cells. Label rows are discarded.
func (t *Tidier) ReshapeRows(raw *models.RawExportTable) (*models.Table, error) {
	n := len(raw.Rows)
	if rem := n % models.GroupSize; rem != 0 {
		if !t.dropPartialGroups {
			return nil, fmt.Errorf("reshape %s: %d rows leave a trailing group of %d: %w",
				raw.Path, n, rem, models.ErrSchemaMismatch)
		}
		t.logger.Warn("[tidy] %s: dropping trailing partial group of %d rows", raw.Path, rem)
	}

	width := raw.Width()
	if n == 0 && width == 0 {
		// A header-only export still has the fixed layout.
		width = models.RawColumns
	}

	cols := make([]string, 2*width)
	for i := range cols {
		cols[i] = strconv.Itoa(i)
	}

	groups := n / models.GroupSize
	rows := make([][]string, 0, groups)
	for g := 0; g < groups; g++ {
		base := g * models.GroupSize
		value := raw.Rows[base+1]
		stamp := raw.Rows[base+2]

		row := make([]string, 0, 2*width)
		row = append(row, stamp...)
		row = append(row, value...)
		rows = append(rows, row)
	}

	t.logger.Debug("[tidy] %s: %d raw rows -> %d observations", raw.Path, n, groups)
	return &models.Table{Columns: cols, Rows: rows}, nil
}

// MapSchema names the reshaped columns positionally and drops the two
// placeholder columns. The input must have exactly 16 columns.
func MapSchema(wide *models.Table) (*models.TidyEmaTable, error) {
	if wide.Width() != len(models.WideColumns) {
		return nil, fmt.Errorf("map schema: got %d columns, want %d: %w",
			wide.Width(), len(models.WideColumns), models.ErrSchemaMismatch)
	}

	const dropped = 2
	cols := make([]string, len(models.TidyColumns))
	copy(cols, models.TidyColumns)

	rows := make([][]string, len(wide.Rows))
	for i, r := range wide.Rows {
		if len(r) != len(models.WideColumns) {
			return nil, fmt.Errorf("map schema: row %d has %d cells: %w", i, len(r), models.ErrSchemaMismatch)
		}
		row := make([]string, len(cols))
		copy(row, r[dropped:])
		rows[i] = row
	}

	return &models.TidyEmaTable{Table: models.Table{Columns: cols, Rows: rows}}, nil
}

// MergeDays appends the evening rows after the daily rows and reorders the
// columns so scores precede response timestamps. Rows are not sorted.
func MergeDays(daily, evening *models.TidyEmaTable) (*models.Table, error) {
	dailyIdx, err := columnIndexes(&daily.Table, models.FullDayColumns)
	if err != nil {
		return nil, fmt.Errorf("merge daily: %w", err)
	}
	eveningIdx, err := columnIndexes(&evening.Table, models.FullDayColumns)
	if err != nil {
		return nil, fmt.Errorf("merge evening: %w", err)
	}

	cols := make([]string, len(models.FullDayColumns))
	copy(cols, models.FullDayColumns)

	rows := make([][]string, 0, len(daily.Rows)+len(evening.Rows))
	rows = appendSelected(rows, daily.Rows, dailyIdx)
	rows = appendSelected(rows, evening.Rows, eveningIdx)

	return &models.Table{Columns: cols, Rows: rows}, nil
}

// TagParticipant prepends a personID column holding personID on every row.
func TagParticipant(body *models.Table, personID string, dailyRows int) *models.FullDayTable {
	cols := make([]string, 0, body.Width()+1)
	cols = append(cols, models.ColPersonID)
	cols = append(cols, body.Columns...)

	rows := make([][]string, len(body.Rows))
	for i, r := range body.Rows {
		row := make([]string, 0, len(r)+1)
		row = append(row, personID)
		row = append(row, r...)
		rows[i] = row
	}

	return &models.FullDayTable{
		Table:       models.Table{Columns: cols, Rows: rows},
		PersonID:    personID,
		DailyRows:   dailyRows,
		EveningRows: len(rows) - dailyRows,
	}
}

func columnIndexes(t *models.Table, names []string) ([]int, error) {
	idx := make([]int, len(names))
	for i, name := range names {
		idx[i] = t.Index(name)
		if idx[i] < 0 {
			return nil, fmt.Errorf("missing column %s: %w", name, models.ErrSchemaMismatch)
		}
	}
	return idx, nil
}

func appendSelected(dst, src [][]string, idx []int) [][]string {
	for _, r := range src {
		row := make([]string, len(idx))
		for i, j := range idx {
			row[i] = r[j]
		}
		dst = append(dst, row)
	}
	return dst
}
