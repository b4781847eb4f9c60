package services

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/xdoubleu/essentia/v2/pkg/database"
	"github.com/xdoubleu/essentia/v2/pkg/logging"
	"calsync.casaflow.app/internal/dtos"
	"calsync.casaflow.app/internal/ical"
	"calsync.casaflow.app/internal/models"
)

// Skip reason codes, one per event-level validation or persistence
// failure. A skipped event never aborts the batch.
const (
	SkipMissingStartDate  = "missing_start_date"
	SkipInvalidDateFormat = "invalid_date_format"
	SkipEndBeforeStart    = "end_before_start"
	SkipPastEvent         = "past_event"
)

var strictDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// BlockStore is the persistence surface the engine reconciles against.
// Upsert must be atomic on (property_id, source, external_id) and report
// whether it inserted; the remaining methods carry the fallback path for
// stores where that uniqueness constraint is not deployed.
type BlockStore interface {
	Upsert(ctx context.Context, block *models.CalendarBlock) (bool, error)
	GetByExternalKey(
		ctx context.Context,
		propertyID string,
		source string,
		externalID string,
	) (*models.CalendarBlock, error)
	Insert(ctx context.Context, block *models.CalendarBlock) error
	Update(ctx context.Context, block *models.CalendarBlock) error
}

// StateStore records per-feed run state.
type StateStore interface {
	SetStatus(ctx context.Context, icalURLID string, status string) error
	Get(ctx context.Context, icalURLID string) (*models.SyncState, error)
}

// SyncService reconciles one feed's events against the block store.
type SyncService struct {
	logger *slog.Logger
	feeds  *FeedService
	blocks BlockStore
	states StateStore
	now    func() time.Time
}

// NewSyncService wires the engine against explicit store interfaces so it
// is testable without a live backend; nowFunc pins "today" in tests.
func NewSyncService(
	logger *slog.Logger,
	feeds *FeedService,
	blocks BlockStore,
	states StateStore,
	nowFunc func() time.Time,
) *SyncService {
	return &SyncService{
		logger: logger,
		feeds:  feeds,
		blocks: blocks,
		states: states,
		now:    nowFunc,
	}
}

type persistOutcome int

const (
	outcomeInserted persistOutcome = iota
	outcomeUpdated
	outcomeFailed
)

// SyncFeed runs one full fetch-parse-reconcile cycle for a registration.
// The terminal run state is recorded even when the run errors or panics,
// so a crashed run never stays stuck at "running".
func (service *SyncService) SyncFeed(
	ctx context.Context,
	reg models.FeedRegistration,
) (report dtos.SyncReport, err error) {
	if serr := service.states.SetStatus(ctx, reg.ID, models.SyncStatusRunning); serr != nil {
		service.logger.Error("failed to mark sync running", logging.ErrAttr(serr))
	}

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("sync panicked: %v", p)
		}

		status := models.SyncStatusSuccess
		if err != nil {
			status = models.SyncErrorStatus(err)
		}

		// Record the terminal state even when ctx was cancelled mid-run.
		stateCtx, cancel := context.WithTimeout(
			context.WithoutCancel(ctx), 5*time.Second) //nolint:mnd //no magic number
		defer cancel()

		if serr := service.states.SetStatus(stateCtx, reg.ID, status); serr != nil {
			service.logger.Error("failed to record sync state", logging.ErrAttr(serr))
		}
	}()

	report = dtos.NewSyncReport()
	report.RunID = uuid.NewString()

	raw, err := service.feeds.Fetch(ctx, reg.URL)
	if err != nil {
		return report, err
	}

	// Zero valid events is a normal state: an OTA calendar with nothing
	// booked parses to an empty list and the run still succeeds.
	events := ical.Parse(raw)

	service.reconcile(ctx, reg, events, &report)

	service.logger.Info("feed synced",
		slog.String("runId", report.RunID),
		slog.String("icalUrlId", reg.ID),
		slog.String("source", models.BlockSource(reg.Channel)),
		slog.Int("processed", report.Processed),
		slog.Int("created", report.Created),
		slog.Int("updated", report.Updated),
		slog.Int("skipped", report.Skipped),
	)

	return report, nil
}

// reconcile upserts each event strictly sequentially; every event does its
// own persistence round-trip so failures stay isolated per event.
func (service *SyncService) reconcile(
	ctx context.Context,
	reg models.FeedRegistration,
	events []ical.Event,
	report *dtos.SyncReport,
) {
	today := service.todayUTC()

	for _, event := range events {
		report.Processed++

		block, skipReason := service.buildBlock(reg, event, today)
		if skipReason != "" {
			report.Skip(skipReason)
			continue
		}

		outcome, failReason := service.persist(ctx, block)
		switch outcome {
		case outcomeInserted:
			report.Created++
		case outcomeUpdated:
			report.Updated++
		case outcomeFailed:
			service.logger.Warn("failed to persist block",
				slog.String("externalId", block.ExternalID),
				slog.String("reason", failReason),
			)
			report.Skip(failReason)
		}
	}
}

// buildBlock derives and validates a calendar block from one event,
// returning a skip reason instead of a block when the event is unusable.
func (service *SyncService) buildBlock(
	reg models.FeedRegistration,
	event ical.Event,
	today time.Time,
) (*models.CalendarBlock, string) {
	if strings.TrimSpace(event.Start) == "" {
		return nil, SkipMissingStartDate
	}

	startDate := ical.DatePortion(event.Start)
	endDate := deriveEndDate(event, startDate)

	if !strictDateRe.MatchString(startDate) || !strictDateRe.MatchString(endDate) {
		return nil, SkipInvalidDateFormat
	}

	start, err := time.ParseInLocation(models.DateFormat, startDate, time.UTC)
	if err != nil {
		return nil, SkipInvalidDateFormat
	}

	end, err := time.ParseInLocation(models.DateFormat, endDate, time.UTC)
	if err != nil {
		return nil, SkipInvalidDateFormat
	}

	if end.Before(start) {
		return nil, SkipEndBeforeStart
	}

	// Forward-looking blocks only; historical feed noise is ignored.
	if end.Before(today) {
		return nil, SkipPastEvent
	}

	reason := strings.TrimSpace(event.Summary)
	if reason == "" {
		reason = "Blocked"
	}

	//nolint:exhaustruct //id and timestamps are set by the store
	return &models.CalendarBlock{
		PropertyID: reg.PropertyID,
		HostID:     reg.HostID,
		StartDate:  start,
		EndDate:    end,
		Reason:     reason,
		Source:     models.BlockSource(reg.Channel),
		ExternalID: externalID(event, startDate, endDate),
		IsActive:   !strings.EqualFold(strings.TrimSpace(event.Status), "CANCELLED"),
		CreatedBy:  nil,
	}, ""
}

// deriveEndDate applies the end-date precedence: explicit DTEND, then
// DTSTART + DURATION in whole days, then the one-day default many feeds
// imply by omitting DTEND on all-day blocks.
func deriveEndDate(event ical.Event, startDate string) string {
	if event.End != "" {
		return ical.DatePortion(event.End)
	}

	start, err := time.ParseInLocation(models.DateFormat, startDate, time.UTC)
	if err != nil {
		// Let validation reject the malformed start.
		return startDate
	}

	days := 1
	if event.Duration != "" {
		if d, ok := ical.ParseDurationDays(event.Duration); ok {
			days = d
		}
	}

	return start.AddDate(0, 0, days).Format(models.DateFormat)
}

// externalID prefers the feed's UID; without one it derives a stable key
// from the event content so re-parsing reproduces the same identifier.
func externalID(event ical.Event, startDate, endDate string) string {
	if uid := strings.TrimSpace(event.UID); uid != "" {
		return uid
	}

	sum := sha256.Sum256([]byte(startDate + endDate + event.Summary))
	return fmt.Sprintf("%x", sum[:16])
}

// persist drives the upsert-with-fallback state machine. The atomic
// upsert handles the common case; a missing composite constraint or a
// unique-violation race falls back to an explicit lookup followed by a
// targeted update or insert. Anything else fails just this event.
func (service *SyncService) persist(
	ctx context.Context,
	block *models.CalendarBlock,
) (persistOutcome, string) {
	inserted, err := service.blocks.Upsert(ctx, block)
	if err == nil {
		if inserted {
			return outcomeInserted, ""
		}
		return outcomeUpdated, ""
	}

	if !isMissingConstraint(err) && !isUniqueViolation(err) {
		return outcomeFailed, dbSkipReason(err)
	}

	existing, getErr := service.blocks.GetByExternalKey(
		ctx, block.PropertyID, block.Source, block.ExternalID)

	switch {
	case getErr == nil:
		block.ID = existing.ID
		if updateErr := service.blocks.Update(ctx, block); updateErr != nil {
			return outcomeFailed, dbSkipReason(updateErr)
		}
		return outcomeUpdated, ""
	case errors.Is(getErr, database.ErrResourceNotFound):
		if insertErr := service.blocks.Insert(ctx, block); insertErr != nil {
			return outcomeFailed, dbSkipReason(insertErr)
		}
		return outcomeInserted, ""
	default:
		return outcomeFailed, dbSkipReason(getErr)
	}
}

func (service *SyncService) todayUTC() time.Time {
	now := service.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// isMissingConstraint matches Postgres complaining that ON CONFLICT has no
// unique or exclusion constraint to latch onto, which happens while the
// composite index migration is not deployed yet.
func isMissingConstraint(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.InvalidColumnReference
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// dbSkipReason embeds the SQLSTATE so operators can tell persistence
// failures apart in the report.
func dbSkipReason(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Sprintf("db_error_%s", pgErr.Code)
	}

	return "db_error_unknown"
}
