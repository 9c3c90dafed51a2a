package pipeline

import (
	"fmt"
	"strings"
)

// Kind identifies one of the three source record collections. Runs always
// visit kinds in the order returned by KindOrder.
type Kind string

const (
	KindPrograms     Kind = "programs"
	KindProgramStats Kind = "program_stats"
	KindCases        Kind = "cases"
)

// KindOrder returns the fixed processing (and checkpoint priority) order.
func KindOrder() []Kind {
	return []Kind{KindPrograms, KindProgramStats, KindCases}
}

// ParseKind validates a kind label from external input.
func ParseKind(raw string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindPrograms:
		return KindPrograms, nil
	case KindProgramStats:
		return KindProgramStats, nil
	case KindCases:
		return KindCases, nil
	default:
		return "", fmt.Errorf("unknown source kind %q", raw)
	}
}

// Status is the pipeline run-state machine state.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusPaused  Status = "paused"
	StatusStopped Status = "stopped"
	StatusFailed  Status = "failed"
)

// KindProgress counts records within one kind for the current run.
type KindProgress struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
}

// Progress tracks per-kind counters, reset kind by kind as a run advances.
type Progress struct {
	Programs     KindProgress `json:"programs"`
	ProgramStats KindProgress `json:"program_stats"`
	Cases        KindProgress `json:"cases"`
}

func (p *Progress) forKind(kind Kind) *KindProgress {
	switch kind {
	case KindPrograms:
		return &p.Programs
	case KindProgramStats:
		return &p.ProgramStats
	default:
		return &p.Cases
	}
}

// StatusSnapshot is the read-only view served by the status operation.
type StatusSnapshot struct {
	Running         bool     `json:"running"`
	Paused          bool     `json:"paused"`
	Status          Status   `json:"status"`
	CurrentKind     Kind     `json:"current_kind,omitempty"`
	LastProcessedID *int64   `json:"last_processed_id,omitempty"`
	Progress        Progress `json:"progress"`
}
