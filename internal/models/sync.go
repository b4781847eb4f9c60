package models

import (
	"fmt"
	"time"
)

const (
	SyncStatusRunning = "running"
	SyncStatusSuccess = "success"
)

// SyncErrorStatus formats the terminal status recorded for a failed run.
func SyncErrorStatus(err error) string {
	return fmt.Sprintf("error: %s", err.Error())
}

// SyncState is the per-feed run state consumed by the dashboard and by the
// scheduler. A "running" state older than the configured grace period must
// be treated as stale by consumers.
type SyncState struct {
	IcalURLID      string     `json:"icalUrlId"`
	LastSyncAt     *time.Time `json:"lastSyncAt"`
	LastSyncStatus string     `json:"lastSyncStatus"`
}

func (state SyncState) IsStaleRunning(now time.Time, grace time.Duration) bool {
	if state.LastSyncStatus != SyncStatusRunning {
		return false
	}

	if state.LastSyncAt == nil {
		return true
	}

	return now.Sub(*state.LastSyncAt) > grace
}
