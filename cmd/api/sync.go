package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	httptools "github.com/xdoubleu/essentia/v2/pkg/communication/httptools"
	"github.com/xdoubleu/essentia/v2/pkg/database"
	"github.com/xdoubleu/essentia/v2/pkg/logging"
	"github.com/xdoubleu/essentia/v2/pkg/parse"
	"calsync.casaflow.app/internal/dtos"
	"calsync.casaflow.app/internal/enrich"
	"calsync.casaflow.app/internal/ical"
	"calsync.casaflow.app/internal/models"
	"calsync.casaflow.app/internal/services"
)

// syncHandler triggers one reconciliation run for the selected feed.
// Per-event failures surface in skipReasons; only feed-level failures
// (cannot resolve, cannot fetch) produce a non-2xx response.
func (app *Application) syncHandler(w http.ResponseWriter, r *http.Request) {
	var triggerDto dtos.SyncTriggerDto

	err := json.NewDecoder(r.Body).Decode(&triggerDto)
	if err != nil {
		httptools.HandleError(w, r, err)
		return
	}

	if ok, errs := triggerDto.Validate(); !ok {
		httptools.FailedValidationResponse(w, r, errs)
		return
	}

	reg, err := app.resolveRegistration(r, triggerDto)
	if errors.Is(err, database.ErrResourceNotFound) {
		app.writeSyncError(w, http.StatusNotFound, "feed_not_found", err)
		return
	}

	if err != nil {
		httptools.HandleError(w, r, err)
		return
	}

	report, err := app.Services.Sync.SyncFeed(r.Context(), *reg)
	if err != nil {
		status := http.StatusInternalServerError
		if isFeedError(err) {
			status = http.StatusBadGateway
		}
		app.writeSyncError(w, status, "sync_failed", err)
		return
	}

	app.writeJSON(w, http.StatusOK, dtos.SyncResponseDto{
		Success:     true,
		Processed:   report.Processed,
		Created:     report.Created,
		Updated:     report.Updated,
		Skipped:     report.Skipped,
		SkipReasons: report.SkipReasons,
		Message:     fmt.Sprintf("synced feed %s", reg.ID),
		RunID:       report.RunID,
	})
}

func (app *Application) resolveRegistration(
	r *http.Request,
	triggerDto dtos.SyncTriggerDto,
) (*models.FeedRegistration, error) {
	if triggerDto.IcalURLID != "" {
		return app.Services.Feeds.GetRegistration(r.Context(), triggerDto.IcalURLID)
	}

	return app.Services.Feeds.GetRegistrationByAccount(r.Context(), triggerDto.AccountID)
}

// previewHandler fetches and parses a feed without touching the block
// store, returning enriched events for the dashboard's preview pane. This
// is the only path the metadata enricher runs on.
func (app *Application) previewHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parse.URLParam[string](r, "id", nil)
	if err != nil {
		panic(err)
	}

	reg, err := app.Services.Feeds.GetRegistration(r.Context(), id)
	if errors.Is(err, database.ErrResourceNotFound) {
		app.writeSyncError(w, http.StatusNotFound, "feed_not_found", err)
		return
	}

	if err != nil {
		httptools.HandleError(w, r, err)
		return
	}

	raw, err := app.Services.Feeds.Fetch(r.Context(), reg.URL)
	if err != nil {
		app.writeSyncError(w, http.StatusBadGateway, "fetch_failed", err)
		return
	}

	events := []enrich.Event{}
	for _, event := range ical.Parse(raw) {
		events = append(events, enrich.Enrich(event))
	}

	app.writeJSON(w, http.StatusOK, dtos.PreviewResponseDto{
		URL:    reg.URL,
		Events: events,
	})
}

func (app *Application) syncStateHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parse.URLParam[string](r, "id", nil)
	if err != nil {
		panic(err)
	}

	state, err := app.Repositories.SyncState.Get(r.Context(), id)
	if err != nil {
		httptools.HandleError(w, r, err)
		return
	}

	app.writeJSON(w, http.StatusOK, state)
}

func isFeedError(err error) bool {
	return errors.Is(err, services.ErrFeedUnreachable) ||
		errors.Is(err, services.ErrFeedStatus) ||
		errors.Is(err, services.ErrFeedTooShort)
}

func (app *Application) writeSyncError(
	w http.ResponseWriter,
	status int,
	code string,
	err error,
) {
	app.writeJSON(w, status, dtos.SyncErrorDto{
		Success: false,
		Error:   code,
		Message: err.Error(),
		Debug:   fmt.Sprintf("%T\n%s", err, debug.Stack()),
	})
}

func (app *Application) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		app.logger.Error("failed to write response", logging.ErrAttr(err))
	}
}
