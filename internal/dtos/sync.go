package dtos

import (
	"calsync.casaflow.app/internal/enrich"
)

// SyncTriggerDto selects the feed to sync, preferring ical_url_id. The
// legacy account_id alias resolves through the accounts table instead.
type SyncTriggerDto struct {
	IcalURLID string `json:"ical_url_id"`
	AccountID string `json:"account_id"`
}

func (dto *SyncTriggerDto) Validate() (bool, map[string]string) {
	errs := make(map[string]string)

	if dto.IcalURLID == "" && dto.AccountID == "" {
		errs["ical_url_id"] = "provide ical_url_id or account_id"
	}

	return len(errs) == 0, errs
}

// SyncReport accumulates per-event outcomes of one reconciliation run.
type SyncReport struct {
	RunID       string         `json:"runId"`
	Processed   int            `json:"processed"`
	Created     int            `json:"created"`
	Updated     int            `json:"updated"`
	Skipped     int            `json:"skipped"`
	SkipReasons map[string]int `json:"skipReasons"`
}

func NewSyncReport() SyncReport {
	return SyncReport{
		RunID:       "",
		Processed:   0,
		Created:     0,
		Updated:     0,
		Skipped:     0,
		SkipReasons: make(map[string]int),
	}
}

func (report *SyncReport) Skip(reason string) {
	report.Skipped++
	report.SkipReasons[reason]++
}

type SyncResponseDto struct {
	Success     bool           `json:"success"`
	Processed   int            `json:"processed"`
	Created     int            `json:"created"`
	Updated     int            `json:"updated"`
	Skipped     int            `json:"skipped"`
	SkipReasons map[string]int `json:"skipReasons"`
	Message     string         `json:"message"`
	RunID       string         `json:"runId"`
}

type SyncErrorDto struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Debug   string `json:"debug,omitempty"`
}

type PreviewResponseDto struct {
	URL    string         `json:"url"`
	Events []enrich.Event `json:"events"`
}
