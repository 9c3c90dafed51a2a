package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/campus/internal/canonical"
)

type fakeCatalog struct {
	entries []canonical.Entry
	err     error

	mu    sync.Mutex
	loads int
}

func (f *fakeCatalog) LoadCatalog(context.Context) ([]canonical.Entry, error) {
	f.mu.Lock()
	f.loads++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.entries, nil
}

type fakeSources struct {
	mu         sync.Mutex
	records    map[Kind][]Record
	canonical  map[Kind]map[int64]int64
	categories map[Kind]map[int64]string
	listErr    map[Kind]error
	updateErr  map[int64]error

	// onUpdate runs on the worker goroutine after a successful write.
	onUpdate func(kind Kind, id int64)
}

func newFakeSources() *fakeSources {
	return &fakeSources{
		records:    map[Kind][]Record{},
		canonical:  map[Kind]map[int64]int64{},
		categories: map[Kind]map[int64]string{},
		listErr:    map[Kind]error{},
		updateErr:  map[int64]error{},
	}
}

func (f *fakeSources) List(_ context.Context, kind Kind, opts ListOptions) ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.listErr[kind]; err != nil {
		return nil, err
	}
	var out []Record
	for _, record := range f.records[kind] {
		if opts.AfterID != nil && record.ID <= *opts.AfterID {
			continue
		}
		if opts.UnmatchedOnly {
			if _, ok := f.canonical[kind][record.ID]; ok {
				continue
			}
		}
		out = append(out, record)
	}
	return out, nil
}

func (f *fakeSources) Update(_ context.Context, kind Kind, id int64, update Update) error {
	f.mu.Lock()
	if err := f.updateErr[id]; err != nil {
		f.mu.Unlock()
		return err
	}
	if update.CanonicalID != nil {
		if f.canonical[kind] == nil {
			f.canonical[kind] = map[int64]int64{}
		}
		f.canonical[kind][id] = *update.CanonicalID
	}
	if update.Category != nil {
		if f.categories[kind] == nil {
			f.categories[kind] = map[int64]string{}
		}
		f.categories[kind][id] = *update.Category
	}
	hook := f.onUpdate
	f.mu.Unlock()
	if hook != nil {
		hook(kind, id)
	}
	return nil
}

func (f *fakeSources) ClearCanonicalIDs(_ context.Context, kind Kind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.canonical, kind)
	return nil
}

func (f *fakeSources) LastMatchedID(_ context.Context, kind Kind) (*int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var last *int64
	for id := range f.canonical[kind] {
		if last == nil || id > *last {
			id := id
			last = &id
		}
	}
	return last, nil
}

func (f *fakeSources) canonicalFor(kind Kind, id int64) (int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	got, ok := f.canonical[kind][id]
	return got, ok
}

func (f *fakeSources) categoryFor(kind Kind, id int64) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	got, ok := f.categories[kind][id]
	return got, ok
}

func testCatalog() *fakeCatalog {
	return &fakeCatalog{entries: []canonical.Entry{
		{ID: 101, Name: "Computer Science", Keywords: []string{"computer", "computing", "software"}},
		{ID: 102, Name: "Finance", Keywords: []string{"finance", "financial"}},
	}}
}

func newTestRunner(catalog CatalogStore, sources SourceStore) *Runner {
	matcher := canonical.NewMatcher(nil, zerolog.Nop())
	r := NewRunner(catalog, sources, matcher, zerolog.Nop())
	r.pauseWait = 10 * time.Millisecond
	return r
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestRunMatchesAndClassifiesAcrossKinds(t *testing.T) {
	t.Parallel()

	sources := newFakeSources()
	sources.records[KindPrograms] = []Record{
		{ID: 1, RawName: "MSc Computer Science", Requirements: "Strong programming background"},
		{ID: 2, RawName: "Faculty of Engineering"},
		{ID: 3, RawName: "Underwater Basket Weaving"},
	}
	sources.records[KindProgramStats] = []Record{
		{ID: 10, RawName: "Computer Science (MSc)"},
	}
	sources.records[KindCases] = []Record{
		{ID: 20, RawName: "computer science"},
		{ID: 21, RawName: "Medieval Tapestry Studies"},
	}

	r := newTestRunner(testCatalog(), sources)
	result, err := r.Run(context.Background(), DefaultOptions())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Status != RunCompleted {
		t.Fatalf("status = %q, want %q", result.Status, RunCompleted)
	}
	// Record 2 is an administrative label and is skipped entirely; record 3
	// is unmatched but still gets a category write.
	if result.ProgramsUpdated != 2 {
		t.Errorf("ProgramsUpdated = %d, want 2", result.ProgramsUpdated)
	}
	if result.StatsUpdated != 1 {
		t.Errorf("StatsUpdated = %d, want 1", result.StatsUpdated)
	}
	if result.CasesUpdated != 1 {
		t.Errorf("CasesUpdated = %d, want 1", result.CasesUpdated)
	}

	if got, ok := sources.canonicalFor(KindPrograms, 1); !ok || got != 101 {
		t.Errorf("program 1 canonical id = %d (%v), want 101", got, ok)
	}
	if got, ok := sources.categoryFor(KindPrograms, 1); !ok || got != "computer_science" {
		t.Errorf("program 1 category = %q (%v), want computer_science", got, ok)
	}
	if _, ok := sources.canonicalFor(KindPrograms, 3); ok {
		t.Error("program 3 must stay unmatched")
	}
	if got, ok := sources.categoryFor(KindPrograms, 3); !ok || got != canonical.CategoryOther {
		t.Errorf("program 3 category = %q (%v), want other", got, ok)
	}
	if _, ok := sources.categoryFor(KindPrograms, 2); ok {
		t.Error("administrative label must not be written back")
	}
	// Degree token and punctuation are normalized away before matching.
	if got, ok := sources.canonicalFor(KindProgramStats, 10); !ok || got != 101 {
		t.Errorf("stat 10 canonical id = %d (%v), want 101", got, ok)
	}
	if got, ok := sources.canonicalFor(KindCases, 20); !ok || got != 101 {
		t.Errorf("case 20 canonical id = %d (%v), want 101", got, ok)
	}
	if _, ok := sources.canonicalFor(KindCases, 21); ok {
		t.Error("unrelated case must stay unmatched")
	}

	snapshot := r.Status()
	if snapshot.Running || snapshot.Status != StatusIdle {
		t.Errorf("post-run status = %+v, want idle", snapshot)
	}
}

func TestRunRejectsConcurrentStart(t *testing.T) {
	t.Parallel()

	sources := newFakeSources()
	sources.records[KindPrograms] = []Record{{ID: 1, RawName: "MSc Computer Science"}}

	release := make(chan struct{})
	sources.onUpdate = func(Kind, int64) { <-release }

	r := newTestRunner(testCatalog(), sources)

	done := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background(), DefaultOptions())
		done <- err
	}()
	waitFor(t, "first run to start", func() bool { return r.Status().Running })

	before := r.Status()
	if _, err := r.Run(context.Background(), DefaultOptions()); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("second Run error = %v, want ErrRunInProgress", err)
	}
	after := r.Status()
	if after.Progress != before.Progress {
		t.Fatalf("rejected start changed progress: before %+v, after %+v", before.Progress, after.Progress)
	}
	if after.CurrentKind != before.CurrentKind {
		t.Fatalf("rejected start changed current kind: before %q, after %q", before.CurrentKind, after.CurrentKind)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first Run: %v", err)
	}
}

func TestPauseResumePreservesPosition(t *testing.T) {
	t.Parallel()

	sources := newFakeSources()
	sources.records[KindPrograms] = []Record{
		{ID: 1, RawName: "MSc Computer Science"},
		{ID: 2, RawName: "MSc Finance"},
	}

	r := newTestRunner(testCatalog(), sources)
	sources.onUpdate = func(_ Kind, id int64) {
		if id == 1 {
			if err := r.Pause(); err != nil {
				t.Errorf("Pause: %v", err)
			}
		}
	}

	done := make(chan Result, 1)
	go func() {
		result, _ := r.Run(context.Background(), DefaultOptions())
		done <- result
	}()

	waitFor(t, "pause to take effect", func() bool { return r.Status().Paused })

	snapshot := r.Status()
	if !snapshot.Running || snapshot.Status != StatusPaused {
		t.Fatalf("paused snapshot = %+v", snapshot)
	}
	if snapshot.LastProcessedID == nil || *snapshot.LastProcessedID != 1 {
		t.Fatalf("paused LastProcessedID = %v, want 1", snapshot.LastProcessedID)
	}
	if err := r.Reset(); !errors.Is(err, ErrRunActive) {
		t.Fatalf("Reset while paused = %v, want ErrRunActive", err)
	}

	if err := r.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	result := <-done
	if result.Status != RunCompleted {
		t.Fatalf("result status = %q, want completed", result.Status)
	}
	if result.ProgramsUpdated != 2 {
		t.Fatalf("ProgramsUpdated = %d, want 2", result.ProgramsUpdated)
	}
}

func TestStopReportsPartialProgress(t *testing.T) {
	t.Parallel()

	sources := newFakeSources()
	sources.records[KindPrograms] = []Record{
		{ID: 1, RawName: "MSc Computer Science"},
		{ID: 2, RawName: "MSc Finance"},
		{ID: 3, RawName: "MSc Software Engineering"},
	}
	sources.records[KindCases] = []Record{{ID: 30, RawName: "computer science"}}

	r := newTestRunner(testCatalog(), sources)
	sources.onUpdate = func(_ Kind, id int64) {
		if id == 2 {
			if err := r.Stop(); err != nil {
				t.Errorf("Stop: %v", err)
			}
		}
	}

	result, err := r.Run(context.Background(), DefaultOptions())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != RunStopped {
		t.Fatalf("status = %q, want stopped", result.Status)
	}
	if result.ProgramsUpdated != 2 {
		t.Errorf("ProgramsUpdated = %d, want 2", result.ProgramsUpdated)
	}
	if result.CasesUpdated != 0 {
		t.Errorf("CasesUpdated = %d, want 0", result.CasesUpdated)
	}
	if result.LastProcessedKind != KindPrograms {
		t.Errorf("LastProcessedKind = %q, want programs", result.LastProcessedKind)
	}
	if result.LastProcessedID == nil || *result.LastProcessedID != 2 {
		t.Errorf("LastProcessedID = %v, want 2", result.LastProcessedID)
	}
	if got := r.Status(); got.Status != StatusStopped {
		t.Errorf("post-stop status = %q, want stopped", got.Status)
	}

	// The state machine needs a reset before the next run starts clean.
	if err := r.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if got := r.Status(); got.Status != StatusIdle || got.LastProcessedID != nil {
		t.Errorf("post-reset status = %+v, want idle", got)
	}
}

func TestStopAtKindBoundaryReportsPriorKind(t *testing.T) {
	t.Parallel()

	sources := newFakeSources()
	sources.records[KindPrograms] = []Record{{ID: 5, RawName: "MSc Computer Science"}}
	sources.records[KindProgramStats] = []Record{{ID: 11, RawName: "finance"}}

	r := newTestRunner(testCatalog(), sources)
	sources.onUpdate = func(kind Kind, id int64) {
		if kind == KindPrograms && id == 5 {
			if err := r.Stop(); err != nil {
				t.Errorf("Stop: %v", err)
			}
		}
	}

	result, err := r.Run(context.Background(), DefaultOptions())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != RunStopped {
		t.Fatalf("status = %q, want stopped", result.Status)
	}
	// The stop lands before the first stats record; the reply still names the
	// last record that actually completed.
	if result.LastProcessedKind != KindPrograms {
		t.Errorf("LastProcessedKind = %q, want programs", result.LastProcessedKind)
	}
	if result.LastProcessedID == nil || *result.LastProcessedID != 5 {
		t.Errorf("LastProcessedID = %v, want 5", result.LastProcessedID)
	}
	if result.StatsUpdated != 0 {
		t.Errorf("StatsUpdated = %d, want 0", result.StatsUpdated)
	}
}

func TestRunContextCancelBehavesLikeStop(t *testing.T) {
	t.Parallel()

	sources := newFakeSources()
	sources.records[KindPrograms] = []Record{
		{ID: 1, RawName: "MSc Computer Science"},
		{ID: 2, RawName: "MSc Finance"},
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := newTestRunner(testCatalog(), sources)
	sources.onUpdate = func(_ Kind, id int64) {
		if id == 1 {
			cancel()
			// The stop flag is set by an AfterFunc on another goroutine.
			waitFor(t, "cancel to propagate", func() bool {
				r.mu.Lock()
				defer r.mu.Unlock()
				return r.stopRequested
			})
		}
	}

	result, err := r.Run(ctx, DefaultOptions())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != RunStopped {
		t.Fatalf("status = %q, want stopped", result.Status)
	}
	if result.ProgramsUpdated != 1 {
		t.Fatalf("ProgramsUpdated = %d, want 1", result.ProgramsUpdated)
	}
}

func TestRunCatalogFailureAborts(t *testing.T) {
	t.Parallel()

	sources := newFakeSources()
	sources.records[KindPrograms] = []Record{{ID: 1, RawName: "MSc Computer Science"}}

	r := newTestRunner(&fakeCatalog{err: errors.New("connection refused")}, sources)
	result, err := r.Run(context.Background(), DefaultOptions())
	if err == nil {
		t.Fatal("expected catalog error")
	}
	if result.Status != RunFailed {
		t.Fatalf("status = %q, want failed", result.Status)
	}
	if result.ProgramsUpdated != 0 || result.StatsUpdated != 0 || result.CasesUpdated != 0 {
		t.Fatalf("failed run must report zero updates, got %+v", result)
	}
	if _, ok := sources.canonicalFor(KindPrograms, 1); ok {
		t.Fatal("failed run must not touch source records")
	}
	if got := r.Status(); got.Status != StatusFailed {
		t.Fatalf("post-failure status = %q, want failed", got.Status)
	}
}

func TestRunEmptyCatalogAborts(t *testing.T) {
	t.Parallel()

	r := newTestRunner(&fakeCatalog{}, newFakeSources())
	result, err := r.Run(context.Background(), DefaultOptions())
	if !errors.Is(err, ErrCatalogEmpty) {
		t.Fatalf("err = %v, want ErrCatalogEmpty", err)
	}
	if result.Status != RunFailed {
		t.Fatalf("status = %q, want failed", result.Status)
	}
}

func TestRunDegradesUnreadableKind(t *testing.T) {
	t.Parallel()

	sources := newFakeSources()
	sources.records[KindPrograms] = []Record{{ID: 1, RawName: "MSc Computer Science"}}
	sources.records[KindCases] = []Record{{ID: 30, RawName: "finance"}}
	sources.listErr[KindProgramStats] = errors.New("relation does not exist")

	r := newTestRunner(testCatalog(), sources)
	result, err := r.Run(context.Background(), DefaultOptions())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != RunCompleted {
		t.Fatalf("status = %q, want completed", result.Status)
	}
	if result.ProgramsUpdated != 1 || result.StatsUpdated != 0 || result.CasesUpdated != 1 {
		t.Fatalf("updates = %+v, want programs 1 / stats 0 / cases 1", result)
	}
}

func TestRunSkipsFailedWrites(t *testing.T) {
	t.Parallel()

	sources := newFakeSources()
	sources.records[KindPrograms] = []Record{
		{ID: 1, RawName: "MSc Computer Science"},
		{ID: 2, RawName: "MSc Finance"},
	}
	sources.updateErr[1] = errors.New("deadlock detected")

	r := newTestRunner(testCatalog(), sources)
	result, err := r.Run(context.Background(), DefaultOptions())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != RunCompleted {
		t.Fatalf("status = %q, want completed", result.Status)
	}
	if result.ProgramsUpdated != 1 {
		t.Fatalf("ProgramsUpdated = %d, want 1", result.ProgramsUpdated)
	}
	if got, ok := sources.canonicalFor(KindPrograms, 2); !ok || got != 102 {
		t.Fatalf("program 2 canonical id = %d (%v), want 102", got, ok)
	}
}

func TestRunOnlyUnmatchedSkipsResolvedRecords(t *testing.T) {
	t.Parallel()

	sources := newFakeSources()
	sources.records[KindPrograms] = []Record{
		{ID: 1, RawName: "MSc Computer Science"},
		{ID: 2, RawName: "Underwater Basket Weaving"},
	}

	r := newTestRunner(testCatalog(), sources)
	first, err := r.Run(context.Background(), DefaultOptions())
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if first.ProgramsUpdated != 2 {
		t.Fatalf("first ProgramsUpdated = %d, want 2", first.ProgramsUpdated)
	}

	// The matched record is skipped on a second unmatched-only pass; the
	// stubborn one is re-attempted.
	second, err := r.Run(context.Background(), DefaultOptions())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if second.ProgramsUpdated != 1 {
		t.Fatalf("second ProgramsUpdated = %d, want 1", second.ProgramsUpdated)
	}
}

func TestRunClearExistingReprocessesEverything(t *testing.T) {
	t.Parallel()

	sources := newFakeSources()
	sources.records[KindPrograms] = []Record{{ID: 1, RawName: "MSc Computer Science"}}
	sources.canonical[KindPrograms] = map[int64]int64{1: 999}

	r := newTestRunner(testCatalog(), sources)
	result, err := r.Run(context.Background(), Options{ClearExisting: true, OnlyUnmatched: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.ProgramsUpdated != 1 {
		t.Fatalf("ProgramsUpdated = %d, want 1", result.ProgramsUpdated)
	}
	if got, _ := sources.canonicalFor(KindPrograms, 1); got != 101 {
		t.Fatalf("canonical id = %d, want fresh match 101", got)
	}
}

func TestRunResumeFromSkipsEarlierRecords(t *testing.T) {
	t.Parallel()

	sources := newFakeSources()
	sources.records[KindPrograms] = []Record{
		{ID: 1, RawName: "MSc Computer Science"},
		{ID: 2, RawName: "MSc Finance"},
	}

	resumeFrom := int64(1)
	r := newTestRunner(testCatalog(), sources)
	result, err := r.Run(context.Background(), Options{
		OnlyUnmatched:  true,
		ResumeFromKind: KindPrograms,
		ResumeFromID:   &resumeFrom,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.ProgramsUpdated != 1 {
		t.Fatalf("ProgramsUpdated = %d, want 1", result.ProgramsUpdated)
	}
	if _, ok := sources.canonicalFor(KindPrograms, 1); ok {
		t.Fatal("record before the resume point must not be touched")
	}
	if got, _ := sources.canonicalFor(KindPrograms, 2); got != 102 {
		t.Fatalf("record 2 canonical id = %d, want 102", got)
	}
}

func TestRunCountsUnmatchedByLanguage(t *testing.T) {
	t.Parallel()

	sources := newFakeSources()
	sources.records[KindPrograms] = []Record{
		{ID: 1, RawName: "Underwater Basket Weaving"},
		{ID: 2, RawName: "中世纪挂毯研究"},
	}

	r := newTestRunner(testCatalog(), sources).WithLanguageDetector(func(name string) string {
		for _, r := range name {
			if r > 0x2E80 {
				return "zh"
			}
		}
		return "en"
	})

	result, err := r.Run(context.Background(), DefaultOptions())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := result.UnmatchedByLanguage["en"]; got != 1 {
		t.Errorf("unmatched en = %d, want 1", got)
	}
	if got := result.UnmatchedByLanguage["zh"]; got != 1 {
		t.Errorf("unmatched zh = %d, want 1", got)
	}
}

func TestControlOperationsOutsideRun(t *testing.T) {
	t.Parallel()

	r := newTestRunner(testCatalog(), newFakeSources())
	if err := r.Pause(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Pause when idle = %v, want ErrNotRunning", err)
	}
	if err := r.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Stop when idle = %v, want ErrNotRunning", err)
	}
	if err := r.Resume(); !errors.Is(err, ErrNotPaused) {
		t.Errorf("Resume when idle = %v, want ErrNotPaused", err)
	}
	if err := r.Reset(); err != nil {
		t.Errorf("Reset when idle = %v, want nil", err)
	}
}
