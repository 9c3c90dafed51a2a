package pipeline

import (
	"context"
	"fmt"
)

// KindCheckpoint summarizes resolution progress for one source kind.
// Unmatched counts only records whose name survives the eligibility filter;
// administrative labels are invisible to the checkpoint.
type KindCheckpoint struct {
	Total            int    `json:"total"`
	Matched          int    `json:"matched"`
	Unmatched        int    `json:"unmatched"`
	FirstUnmatchedID *int64 `json:"first_unmatched_id,omitempty"`
	LastMatchedID    *int64 `json:"last_matched_id,omitempty"`
}

// ResumeRecommendation names the kind and position a follow-up run should
// resume from: the first kind in processing order that still has eligible
// unmatched records, paired with its highest matched id.
type ResumeRecommendation struct {
	Kind         Kind   `json:"kind"`
	ResumeFromID *int64 `json:"resume_from_id,omitempty"`
}

// CheckpointView is derived on demand from stored data; it carries no state
// of its own and is valid whether or not a run is active.
type CheckpointView struct {
	Programs     KindCheckpoint        `json:"programs"`
	ProgramStats KindCheckpoint        `json:"program_stats"`
	Cases        KindCheckpoint        `json:"cases"`
	Resume       *ResumeRecommendation `json:"resume,omitempty"`
}

func (v *CheckpointView) forKind(kind Kind) *KindCheckpoint {
	switch kind {
	case KindPrograms:
		return &v.Programs
	case KindProgramStats:
		return &v.ProgramStats
	default:
		return &v.Cases
	}
}

// Checkpoint computes the current resolution checkpoint across all kinds.
func (r *Runner) Checkpoint(ctx context.Context) (CheckpointView, error) {
	var view CheckpointView

	for _, kind := range KindOrder() {
		records, err := r.sources.List(ctx, kind, ListOptions{})
		if err != nil {
			return CheckpointView{}, fmt.Errorf("list %s: %w", kind, err)
		}

		checkpoint := view.forKind(kind)
		checkpoint.Total = len(records)

		unmatched, err := r.sources.List(ctx, kind, ListOptions{UnmatchedOnly: true})
		if err != nil {
			return CheckpointView{}, fmt.Errorf("list unmatched %s: %w", kind, err)
		}
		for _, record := range unmatched {
			if !EligibleName(record.RawName) {
				continue
			}
			checkpoint.Unmatched++
			if checkpoint.FirstUnmatchedID == nil {
				id := record.ID
				checkpoint.FirstUnmatchedID = &id
			}
		}
		checkpoint.Matched = checkpoint.Total - len(unmatched)

		lastMatched, err := r.sources.LastMatchedID(ctx, kind)
		if err != nil {
			return CheckpointView{}, fmt.Errorf("last matched id %s: %w", kind, err)
		}
		checkpoint.LastMatchedID = lastMatched

		if view.Resume == nil && checkpoint.Unmatched > 0 {
			view.Resume = &ResumeRecommendation{Kind: kind, ResumeFromID: lastMatched}
		}
	}

	return view, nil
}
