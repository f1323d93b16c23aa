package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"ema-tidy/config"
	"ema-tidy/models"
	"ema-tidy/storage"
	"ema-tidy/utils"
)

// ProgressFunc is called after each participant finishes, with the number
// processed so far and the total.
type ProgressFunc func(done, total int, r *models.ParticipantResult)

// Batch drives the pipeline over every daily export in the input directory.
type Batch struct {
	cfg      *config.Config
	lister   storage.FileLister
	pipeline *Pipeline
	logger   *utils.Logger
	progress ProgressFunc
}

// NewBatch creates a Batch reporting progress through the logger.
func NewBatch(cfg *config.Config, lister storage.FileLister, pipeline *Pipeline, logger *utils.Logger) *Batch {
	b := &Batch{cfg: cfg, lister: lister, pipeline: pipeline, logger: logger}
	b.progress = b.logProgress
	return b
}

// OnProgress replaces the progress callback.
func (b *Batch) OnProgress(fn ProgressFunc) {
	b.progress = fn
}

// SelectDailyFiles keeps the names containing marker, preserving order. Each
// kept name stands for one participant's daily/evening pair.
func SelectDailyFiles(names []string, marker string) []string {
	var out []string
	for _, n := range names {
		if strings.Contains(n, marker) {
			out = append(out, n)
		}
	}
	return out
}

// Run processes every selected participant and returns their results in
// listing order. Participants that never ran (cancellation or fail-fast) are
// absent from the results. The error is non-nil only when listing fails, the
// context is cancelled, or FailFast stopped the batch.
func (b *Batch) Run(ctx context.Context) ([]*models.ParticipantResult, int, error) {
	names, err := b.lister.List(b.cfg.InputDir)
	if err != nil {
		return nil, 0, fmt.Errorf("batch: %w", err)
	}
	daily := SelectDailyFiles(names, b.cfg.DailyMarker)
	total := len(daily)
	b.logger.Info("[batch] %d participants found in %s", total, b.cfg.InputDir)

	results := make([]*models.ParticipantResult, total)
	var (
		mu   sync.Mutex
		done int
	)
	record := func(i int, r *models.ParticipantResult) {
		mu.Lock()
		defer mu.Unlock()
		results[i] = r
		done++
		if b.progress != nil {
			b.progress(done, total, r)
		}
	}

	pool, _ := utils.NewWorkerPool(ctx, b.cfg.MaxConcurrency)
	claimed := utils.NewIDSet()

	for i, name := range daily {
		if id, err := ParticipantID(name, b.cfg.IDLength); err == nil && !claimed.Add(id) {
			record(i, &models.ParticipantResult{
				PersonID:  id,
				DailyFile: name,
				Err: &models.ParticipantError{
					PersonID: id, File: name, Stage: StageIdentify,
					Err: fmt.Errorf("another daily file already maps to %s: %w", id, models.ErrDuplicateParticipant),
				},
			})
			if b.cfg.FailFast {
				break
			}
			continue
		}

		ok := pool.Submit(func(ctx context.Context) error {
			r := b.pipeline.Process(ctx, name)
			record(i, r)
			if r.Err != nil {
				b.logger.Error("[batch] %v", r.Err)
				if b.cfg.FailFast {
					return r.Err
				}
			}
			return nil
		})
		if !ok {
			break
		}
	}

	runErr := pool.Wait()
	b.logger.Info("[batch] %d distinct participant IDs among %d daily files", claimed.Size(), total)

	out := make([]*models.ParticipantResult, 0, total)
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}

	if runErr == nil {
		runErr = ctx.Err()
	}
	if runErr == nil && b.cfg.FailFast {
		for _, r := range out {
			if r.Err != nil {
				runErr = r.Err
				break
			}
		}
	}
	if runErr != nil {
		return out, total, fmt.Errorf("batch stopped after %d/%d participants: %w", len(out), total, runErr)
	}
	return out, total, nil
}

func (b *Batch) logProgress(done, total int, r *models.ParticipantResult) {
	status := "ok"
	if r.Err != nil {
		status = "failed"
	}
	b.logger.Info("[batch] %d/%d processed (%s %s)", done, total, r.PersonID, status)
}
