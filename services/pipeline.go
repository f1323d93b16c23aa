package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"ema-tidy/config"
	"ema-tidy/models"
	"ema-tidy/storage"
	"ema-tidy/utils"
)

// Pipeline stage names, reported in ParticipantError.Stage.
const (
	StageIdentify = "identify"
	StageRead     = "read"
	StageTidy     = "tidy"
	StageMerge    = "merge"
	StageWrite    = "write"
)

// Pipeline converts one participant's daily/evening pair into a FullDayTable
// and hands it to every configured writer.
type Pipeline struct {
	cfg     *config.Config
	reader  storage.RawReader
	tidier  *Tidier
	writers []storage.TableWriter
	logger  *utils.Logger
}

// NewPipeline creates a Pipeline. The first writer's location is reported as
// the participant's output path.
func NewPipeline(cfg *config.Config, reader storage.RawReader, tidier *Tidier, logger *utils.Logger, writers ...storage.TableWriter) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		reader:  reader,
		tidier:  tidier,
		writers: writers,
		logger:  logger,
	}
}

// EveningName derives the evening export name by replacing the first
// occurrence of dailyMarker.
func EveningName(dailyName, dailyMarker, eveningMarker string) string {
	return strings.Replace(dailyName, dailyMarker, eveningMarker, 1)
}

// ParticipantID returns the first n characters of filename, verbatim.
func ParticipantID(filename string, n int) (string, error) {
	r := []rune(filename)
	if n < 1 || len(r) < n {
		return "", fmt.Errorf("%q is shorter than the %d-character participant prefix: %w",
			filename, n, models.ErrInvalidFilename)
	}
	return string(r[:n]), nil
}

// Process runs the full pipeline for one daily export. Failures are returned
// in the result as a *models.ParticipantError rather than aborting.
func (p *Pipeline) Process(ctx context.Context, dailyName string) *models.ParticipantResult {
	res := &models.ParticipantResult{DailyFile: dailyName}
	fail := func(stage string, err error) *models.ParticipantResult {
		res.Err = &models.ParticipantError{PersonID: res.PersonID, File: dailyName, Stage: stage, Err: err}
		return res
	}

	personID, err := ParticipantID(dailyName, p.cfg.IDLength)
	if err != nil {
		return fail(StageIdentify, err)
	}
	res.PersonID = personID

	eveningName := EveningName(dailyName, p.cfg.DailyMarker, p.cfg.EveningMarker)
	if eveningName == dailyName {
		return fail(StageIdentify, fmt.Errorf("%q does not contain %q: %w",
			dailyName, p.cfg.DailyMarker, models.ErrInvalidFilename))
	}

	eveningPath := filepath.Join(p.cfg.InputDir, eveningName)
	if _, err := os.Stat(eveningPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fail(StageRead, fmt.Errorf("%s: %w", eveningName, models.ErrMissingCounterpart))
		}
		return fail(StageRead, fmt.Errorf("stat %s: %w: %w", eveningName, models.ErrIO, err))
	}

	rawDaily, err := p.reader.Read(filepath.Join(p.cfg.InputDir, dailyName), p.cfg.HeaderRows)
	if err != nil {
		return fail(StageRead, err)
	}
	rawEvening, err := p.reader.Read(eveningPath, p.cfg.HeaderRows)
	if err != nil {
		return fail(StageRead, err)
	}

	tidyDaily, err := p.tidier.Tidy(rawDaily)
	if err != nil {
		return fail(StageTidy, err)
	}
	tidyEvening, err := p.tidier.Tidy(rawEvening)
	if err != nil {
		return fail(StageTidy, err)
	}

	body, err := MergeDays(tidyDaily, tidyEvening)
	if err != nil {
		return fail(StageMerge, err)
	}
	table := TagParticipant(body, personID, len(tidyDaily.Rows))
	res.DailyRows = table.DailyRows
	res.EveningRows = table.EveningRows

	for i, w := range p.writers {
		if err := ctx.Err(); err != nil {
			return fail(StageWrite, err)
		}
		loc, err := w.Write(ctx, table)
		if err != nil {
			return fail(StageWrite, err)
		}
		if i == 0 {
			res.OutputPath = loc
		}
		p.logger.Debug("[pipeline] %s: wrote %d rows to %s", personID, len(table.Rows), loc)
	}

	return res
}
