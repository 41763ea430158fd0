package models

import "time"

// SweepResult summarizes one janitor pass.
type SweepResult struct {
	KeysScanned    int           `json:"keys_scanned"`
	OrphanKeys     int           `json:"orphan_keys"`
	ClosedSessions int           `json:"closed_sessions"`
	FoldersRemoved int           `json:"folders_removed"`
	FolderFailures int           `json:"folder_failures"`
	Duration       time.Duration `json:"duration"`
}

// Changed reports whether the sweep removed anything.
func (r *SweepResult) Changed() bool {
	return r.OrphanKeys > 0 || r.ClosedSessions > 0 || r.FoldersRemoved > 0
}
