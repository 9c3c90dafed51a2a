package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/campus/internal/canonical"
	"horse.fit/campus/internal/globaltime"
)

var (
	// ErrRunInProgress rejects a start while another run is active. No state
	// is mutated by the rejected call.
	ErrRunInProgress = errors.New("pipeline run already in progress")
	// ErrRunActive rejects a reset while a run is active.
	ErrRunActive = errors.New("pipeline run is active; stop it before resetting")
	// ErrNotRunning rejects pause/stop when no run is active.
	ErrNotRunning = errors.New("pipeline is not running")
	// ErrNotPaused rejects resume when the run is not paused.
	ErrNotPaused = errors.New("pipeline is not paused")
	// ErrCatalogEmpty aborts a run before any source kind is touched.
	ErrCatalogEmpty = errors.New("canonical catalog is empty")
)

// Run outcome labels reported by Result.Status.
const (
	RunCompleted = "completed"
	RunStopped   = "stopped"
	RunFailed    = "failed"
)

// defaultPauseWait bounds how long a paused worker sleeps between wake-up
// checks when no resume/stop broadcast arrives.
const defaultPauseWait = 500 * time.Millisecond

// ListOptions filters a source listing. Results are always ordered by
// ascending id.
type ListOptions struct {
	UnmatchedOnly bool
	AfterID       *int64
}

// Record is the uniform projection of one source row. Requirements is only
// populated for the primary (programs) kind.
type Record struct {
	ID           int64
	RawName      string
	Requirements string
}

// Update is a partial write-back for one source row. Nil fields are left
// untouched.
type Update struct {
	CanonicalID *int64
	Category    *string
}

// CatalogStore reads the canonical catalog. The catalog is loaded fresh at
// the start of every run and never cached across runs.
type CatalogStore interface {
	LoadCatalog(ctx context.Context) ([]canonical.Entry, error)
}

// SourceStore reads and writes the three source record collections.
type SourceStore interface {
	List(ctx context.Context, kind Kind, opts ListOptions) ([]Record, error)
	Update(ctx context.Context, kind Kind, id int64, update Update) error
	ClearCanonicalIDs(ctx context.Context, kind Kind) error
	LastMatchedID(ctx context.Context, kind Kind) (*int64, error)
}

// Options controls one pipeline run.
type Options struct {
	ClearExisting  bool
	ResumeFromID   *int64
	ResumeFromKind Kind
	OnlyUnmatched  bool
}

// DefaultOptions matches the control surface defaults: unmatched-only, no
// clearing, no resume point.
func DefaultOptions() Options {
	return Options{OnlyUnmatched: true}
}

// Result is the structured outcome of a run. Counts are per-kind successful
// write-backs; on early exit the last-processed pointer identifies the exact
// resume position.
type Result struct {
	Status              string         `json:"status"`
	Message             string         `json:"message,omitempty"`
	ProgramsUpdated     int            `json:"programs_updated"`
	StatsUpdated        int            `json:"stats_updated"`
	CasesUpdated        int            `json:"cases_updated"`
	LastProcessedKind   Kind           `json:"last_processed_kind,omitempty"`
	LastProcessedID     *int64         `json:"last_processed_id,omitempty"`
	UnmatchedByLanguage map[string]int `json:"unmatched_by_language,omitempty"`
}

func (r *Result) bumpUpdated(kind Kind) {
	switch kind {
	case KindPrograms:
		r.ProgramsUpdated++
	case KindProgramStats:
		r.StatsUpdated++
	case KindCases:
		r.CasesUpdated++
	}
}

// Runner owns the resolution pipeline: it walks the three source kinds in
// fixed order, applies the cascading matcher (and, for the primary kind, the
// category classifier) to each eligible record, and persists results. Exactly
// one run is active per Runner; control operations are safe to call from
// concurrent goroutines and communicate with the worker through flags guarded
// by one mutex, held only for flag/counter access and never across a store or
// oracle call.
type Runner struct {
	catalog CatalogStore
	sources SourceStore
	matcher *canonical.Matcher
	logger  zerolog.Logger

	// detectLanguage buckets unmatched names for the run summary; nil
	// disables the breakdown.
	detectLanguage func(string) string

	mu              sync.Mutex
	wake            *sync.Cond
	status          Status
	paused          bool
	stopRequested   bool
	currentKind     Kind
	lastProcessedID *int64
	progress        Progress
	pauseWait       time.Duration
}

func NewRunner(catalog CatalogStore, sources SourceStore, matcher *canonical.Matcher, logger zerolog.Logger) *Runner {
	r := &Runner{
		catalog:   catalog,
		sources:   sources,
		matcher:   matcher,
		logger:    logger,
		status:    StatusIdle,
		pauseWait: defaultPauseWait,
	}
	r.wake = sync.NewCond(&r.mu)
	return r
}

// WithLanguageDetector sets the detector used for the unmatched-name language
// breakdown. The detector returns an ISO 639-1 code or "" for unknown.
func (r *Runner) WithLanguageDetector(detect func(string) string) *Runner {
	r.detectLanguage = detect
	return r
}

// Run executes the full pipeline synchronously and returns its structured
// result. A second call while a run is active fails with ErrRunInProgress and
// leaves all counters untouched. Catalog failures are fatal and produce a
// Failed state with zero updates; per-kind read failures degrade that kind to
// an empty set; per-record write failures are logged and skipped.
func (r *Runner) Run(ctx context.Context, opts Options) (Result, error) {
	r.mu.Lock()
	if r.status == StatusRunning || r.status == StatusPaused {
		r.mu.Unlock()
		return Result{Status: RunFailed, Message: "pipeline run already in progress"}, ErrRunInProgress
	}
	r.status = StatusRunning
	r.paused = false
	r.stopRequested = false
	r.currentKind = ""
	r.lastProcessedID = nil
	r.mu.Unlock()

	// A cancelled caller context behaves like a stop request so a paused
	// worker cannot outlive its caller.
	stopWatch := context.AfterFunc(ctx, func() {
		r.mu.Lock()
		if r.status == StatusRunning || r.status == StatusPaused {
			r.stopRequested = true
			r.paused = false
			r.wake.Broadcast()
		}
		r.mu.Unlock()
	})
	defer stopWatch()

	if opts.ClearExisting {
		r.clearAllKinds(ctx)
	}

	startedAt := globaltime.Now()
	r.logger.Info().
		Bool("only_unmatched", opts.OnlyUnmatched).
		Bool("clear_existing", opts.ClearExisting).
		Msg("canonical pipeline starting")

	catalog, err := r.catalog.LoadCatalog(ctx)
	if err != nil {
		r.finish(StatusFailed)
		r.logger.Error().Err(err).Msg("catalog load failed, aborting run")
		return Result{
			Status:  RunFailed,
			Message: "canonical catalog is unreachable",
		}, fmt.Errorf("load canonical catalog: %w", err)
	}
	if len(catalog) == 0 {
		r.finish(StatusFailed)
		r.logger.Error().Msg("canonical catalog is empty, aborting run")
		return Result{
			Status:  RunFailed,
			Message: "canonical catalog is empty",
		}, ErrCatalogEmpty
	}
	r.logger.Info().Int("catalog_entries", len(catalog)).Msg("canonical catalog loaded")

	result := Result{Status: RunCompleted}
	unmatchedByLanguage := map[string]int{}

	for _, kind := range KindOrder() {
		// beginKind resets the position pointer; keep the previous kind's
		// last completed record so a stop landing before the first record of
		// this kind still reports an exact resume position.
		prevKind, prevID := r.lastProcessed()
		r.beginKind(kind)

		listOpts := ListOptions{UnmatchedOnly: opts.OnlyUnmatched}
		if opts.ResumeFromKind == kind && opts.ResumeFromID != nil {
			listOpts.AfterID = opts.ResumeFromID
		}

		records, err := r.sources.List(ctx, kind, listOpts)
		if err != nil {
			r.logger.Error().Err(err).Str("kind", string(kind)).Msg("source read failed, degrading kind to empty set")
			records = nil
		}
		r.setKindTotal(kind, len(records))

		for _, record := range records {
			if stopped := r.waitIfPaused(); stopped {
				stopKind, lastID := r.lastProcessed()
				if lastID == nil && prevID != nil {
					stopKind, lastID = prevKind, prevID
				}
				r.finish(StatusStopped)
				result.Status = RunStopped
				result.Message = "pipeline stopped"
				result.LastProcessedKind = stopKind
				result.LastProcessedID = lastID
				result.UnmatchedByLanguage = compactLanguageCounts(unmatchedByLanguage)
				event := r.logger.Info().Str("kind", string(stopKind))
				if lastID != nil {
					event = event.Int64("last_processed_id", *lastID)
				}
				event.Msg("canonical pipeline stopped")
				return result, nil
			}
			r.advance(kind, record.ID)

			if !EligibleName(record.RawName) {
				if record.RawName != "" {
					r.logger.Debug().
						Str("kind", string(kind)).
						Int64("id", record.ID).
						Str("raw_name", record.RawName).
						Msg("skipping administrative label")
				}
				continue
			}

			canonicalID, matched := r.matcher.Match(ctx, record.RawName, catalog)

			var update Update
			if matched {
				id := canonicalID
				update.CanonicalID = &id
			} else {
				r.countUnmatched(unmatchedByLanguage, record.RawName)
			}
			if kind == KindPrograms {
				category := canonical.Classify(record.RawName, record.Requirements)
				update.Category = &category
			}
			if update.CanonicalID == nil && update.Category == nil {
				continue
			}

			if err := r.sources.Update(ctx, kind, record.ID, update); err != nil {
				r.logger.Error().
					Err(err).
					Str("kind", string(kind)).
					Int64("id", record.ID).
					Msg("record update failed, leaving unresolved")
				continue
			}
			result.bumpUpdated(kind)
		}
	}

	r.finish(StatusIdle)
	result.UnmatchedByLanguage = compactLanguageCounts(unmatchedByLanguage)
	result.Message = "pipeline completed"
	r.logger.Info().
		Int("programs_updated", result.ProgramsUpdated).
		Int("stats_updated", result.StatsUpdated).
		Int("cases_updated", result.CasesUpdated).
		Dur("elapsed", globaltime.Now().Sub(startedAt)).
		Msg("canonical pipeline completed")
	return result, nil
}

// Pause flips the shared pause flag; the worker observes it before the next
// record. Valid only while Running.
func (r *Runner) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != StatusRunning {
		return ErrNotRunning
	}
	r.paused = true
	r.status = StatusPaused
	r.logger.Info().Msg("pipeline paused")
	return nil
}

// Resume wakes a paused worker. Valid only while Paused.
func (r *Runner) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != StatusPaused {
		return ErrNotPaused
	}
	r.paused = false
	r.status = StatusRunning
	r.wake.Broadcast()
	r.logger.Info().Msg("pipeline resumed")
	return nil
}

// Stop requests an early exit; the worker observes the flag before the next
// record and reports partial counts plus the exact last-processed position.
func (r *Runner) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != StatusRunning && r.status != StatusPaused {
		return ErrNotRunning
	}
	r.stopRequested = true
	r.paused = false
	r.wake.Broadcast()
	r.logger.Info().Msg("pipeline stop requested")
	return nil
}

// Reset returns the state machine to its initial Idle snapshot. Rejected
// while a run is active.
func (r *Runner) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == StatusRunning || r.status == StatusPaused {
		return ErrRunActive
	}
	r.status = StatusIdle
	r.paused = false
	r.stopRequested = false
	r.currentKind = ""
	r.lastProcessedID = nil
	r.progress = Progress{}
	r.logger.Info().Msg("pipeline state reset")
	return nil
}

// Status returns a point-in-time snapshot of the run state.
func (r *Runner) Status() StatusSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := StatusSnapshot{
		Running:     r.status == StatusRunning || r.status == StatusPaused,
		Paused:      r.status == StatusPaused,
		Status:      r.status,
		CurrentKind: r.currentKind,
		Progress:    r.progress,
	}
	if r.lastProcessedID != nil {
		id := *r.lastProcessedID
		snapshot.LastProcessedID = &id
	}
	return snapshot
}

// ClearCanonicalIDs nulls canonical ids across all kinds, outside of a run.
// A failure on one kind is logged and does not block the others.
func (r *Runner) ClearCanonicalIDs(ctx context.Context) {
	r.clearAllKinds(ctx)
}

func (r *Runner) clearAllKinds(ctx context.Context) {
	for _, kind := range KindOrder() {
		if err := r.sources.ClearCanonicalIDs(ctx, kind); err != nil {
			r.logger.Warn().Err(err).Str("kind", string(kind)).Msg("clearing canonical ids failed")
			continue
		}
		r.logger.Info().Str("kind", string(kind)).Msg("cleared canonical ids")
	}
}

// waitIfPaused blocks while the pause flag is set and reports whether a stop
// was requested. Pause and stop are cooperative: they are only observed here,
// once per record.
func (r *Runner) waitIfPaused() (stopped bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for {
		if r.stopRequested {
			return true
		}
		if !r.paused {
			return false
		}
		r.condWaitWithTimeout()
	}
}

// condWaitWithTimeout waits for a resume/stop broadcast with a bounded
// fallback wake-up, so a missed broadcast can never park the worker forever.
func (r *Runner) condWaitWithTimeout() {
	timer := time.AfterFunc(r.pauseWait, func() {
		r.mu.Lock()
		r.wake.Broadcast()
		r.mu.Unlock()
	})
	r.wake.Wait()
	timer.Stop()
}

// lastProcessed returns the kind and id of the most recently completed
// record, with the id copied out from under the mutex.
func (r *Runner) lastProcessed() (Kind, *int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastProcessedID == nil {
		return r.currentKind, nil
	}
	id := *r.lastProcessedID
	return r.currentKind, &id
}

func (r *Runner) beginKind(kind Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentKind = kind
	r.lastProcessedID = nil
}

func (r *Runner) setKindTotal(kind Kind, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	progress := r.progress.forKind(kind)
	progress.Total = total
	progress.Processed = 0
}

func (r *Runner) advance(kind Kind, id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastProcessedID = &id
	r.progress.forKind(kind).Processed++
}

func (r *Runner) finish(status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = status
	r.paused = false
	r.stopRequested = false
	if status == StatusIdle {
		r.currentKind = ""
		r.lastProcessedID = nil
	}
}

func (r *Runner) countUnmatched(counts map[string]int, rawName string) {
	if r.detectLanguage == nil {
		return
	}
	code := r.detectLanguage(rawName)
	if code == "" {
		code = "und"
	}
	counts[code]++
}

func compactLanguageCounts(counts map[string]int) map[string]int {
	if len(counts) == 0 {
		return nil
	}
	return counts
}
