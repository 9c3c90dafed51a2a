package pipeline

import (
	"context"
	"errors"
	"testing"
)

func TestCheckpointCountsEligibleUnmatchedOnly(t *testing.T) {
	t.Parallel()

	sources := newFakeSources()
	sources.records[KindPrograms] = []Record{
		{ID: 1, RawName: "MSc Computer Science"},
		{ID: 2, RawName: "Faculty of Engineering"},
		{ID: 3, RawName: "Underwater Basket Weaving"},
		{ID: 4, RawName: "Medieval Tapestry Studies"},
	}
	sources.canonical[KindPrograms] = map[int64]int64{1: 101}
	sources.records[KindCases] = []Record{
		{ID: 30, RawName: "computer science"},
	}
	sources.canonical[KindCases] = map[int64]int64{30: 101}

	r := newTestRunner(testCatalog(), sources)
	view, err := r.Checkpoint(context.Background())
	if err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}

	if view.Programs.Total != 4 {
		t.Errorf("programs total = %d, want 4", view.Programs.Total)
	}
	if view.Programs.Matched != 1 {
		t.Errorf("programs matched = %d, want 1", view.Programs.Matched)
	}
	// Record 2 is unresolved but administrative, so it does not count.
	if view.Programs.Unmatched != 2 {
		t.Errorf("programs unmatched = %d, want 2", view.Programs.Unmatched)
	}
	if view.Programs.FirstUnmatchedID == nil || *view.Programs.FirstUnmatchedID != 3 {
		t.Errorf("programs first unmatched = %v, want 3", view.Programs.FirstUnmatchedID)
	}
	if view.Programs.LastMatchedID == nil || *view.Programs.LastMatchedID != 1 {
		t.Errorf("programs last matched = %v, want 1", view.Programs.LastMatchedID)
	}

	if view.ProgramStats.Total != 0 || view.ProgramStats.Unmatched != 0 {
		t.Errorf("program stats checkpoint = %+v, want empty", view.ProgramStats)
	}
	if view.Cases.Total != 1 || view.Cases.Matched != 1 || view.Cases.Unmatched != 0 {
		t.Errorf("cases checkpoint = %+v, want fully matched", view.Cases)
	}

	if view.Resume == nil {
		t.Fatal("expected a resume recommendation")
	}
	if view.Resume.Kind != KindPrograms {
		t.Errorf("resume kind = %q, want programs", view.Resume.Kind)
	}
	if view.Resume.ResumeFromID == nil || *view.Resume.ResumeFromID != 1 {
		t.Errorf("resume from id = %v, want 1", view.Resume.ResumeFromID)
	}
}

func TestCheckpointNoResumeWhenFullyResolved(t *testing.T) {
	t.Parallel()

	sources := newFakeSources()
	sources.records[KindPrograms] = []Record{
		{ID: 1, RawName: "MSc Computer Science"},
		{ID: 2, RawName: "Faculty of Engineering"},
	}
	sources.canonical[KindPrograms] = map[int64]int64{1: 101}

	r := newTestRunner(testCatalog(), sources)
	view, err := r.Checkpoint(context.Background())
	if err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}
	if view.Resume != nil {
		t.Fatalf("resume = %+v, want nil when only administrative records remain", view.Resume)
	}
	if view.Programs.FirstUnmatchedID != nil {
		t.Fatalf("first unmatched = %v, want nil", view.Programs.FirstUnmatchedID)
	}
}

func TestCheckpointRecommendsLaterKind(t *testing.T) {
	t.Parallel()

	sources := newFakeSources()
	sources.records[KindPrograms] = []Record{{ID: 1, RawName: "MSc Computer Science"}}
	sources.canonical[KindPrograms] = map[int64]int64{1: 101}
	sources.records[KindCases] = []Record{
		{ID: 30, RawName: "computer science"},
		{ID: 31, RawName: "Medieval Tapestry Studies"},
	}
	sources.canonical[KindCases] = map[int64]int64{30: 101}

	r := newTestRunner(testCatalog(), sources)
	view, err := r.Checkpoint(context.Background())
	if err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}
	if view.Resume == nil || view.Resume.Kind != KindCases {
		t.Fatalf("resume = %+v, want cases", view.Resume)
	}
	if view.Resume.ResumeFromID == nil || *view.Resume.ResumeFromID != 30 {
		t.Fatalf("resume from id = %v, want 30", view.Resume.ResumeFromID)
	}
}

func TestCheckpointPropagatesStoreErrors(t *testing.T) {
	t.Parallel()

	sources := newFakeSources()
	sources.listErr[KindPrograms] = errors.New("connection refused")

	r := newTestRunner(testCatalog(), sources)
	if _, err := r.Checkpoint(context.Background()); err == nil {
		t.Fatal("expected store error to propagate")
	}
}
