package services_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xdoubleu/essentia/v2/pkg/logging"
	"calsync.casaflow.app/internal/mocks"
	"calsync.casaflow.app/internal/models"
	"calsync.casaflow.app/internal/services"
)

// The clock is pinned so past-event classification is deterministic.
var testNow = time.Date(2025, 9, 1, 10, 30, 0, 0, time.UTC)

var testReg = models.FeedRegistration{
	ID:         "feed-1",
	PropertyID: "prop-1",
	HostID:     "host-1",
	Channel:    "Airbnb",
	URL:        "",
}

func feedBody(events ...[]string) string {
	lines := []string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//test//EN"}
	for _, event := range events {
		lines = append(lines, "BEGIN:VEVENT")
		lines = append(lines, event...)
		lines = append(lines, "END:VEVENT")
	}
	lines = append(lines, "END:VCALENDAR")
	return strings.Join(lines, "\r\n")
}

func feedServer(t *testing.T, body string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/calendar")
			//nolint:errcheck //test server
			w.Write([]byte(body))
		}),
	)
	t.Cleanup(server.Close)

	return server
}

func newTestSync(
	blocks *mocks.MockedBlockStore,
	states *mocks.MockedStateStore,
) *services.SyncService {
	feeds := services.NewFeedService(nil, &http.Client{}, 5*time.Second)
	return services.NewSyncService(
		logging.NewNopLogger(),
		feeds,
		blocks,
		states,
		func() time.Time { return testNow },
	)
}

func TestSyncFeedCreatesBlock(t *testing.T) {
	server := feedServer(t, feedBody([]string{
		"UID:stay-1@airbnb.example",
		"DTSTART;VALUE=DATE:20250910",
		"DTEND;VALUE=DATE:20250915",
		"SUMMARY:Reservation confirmed – Jane Doe",
	}))

	blocks := mocks.NewMockedBlockStore()
	states := mocks.NewMockedStateStore()
	service := newTestSync(blocks, states)

	reg := testReg
	reg.URL = server.URL

	report, err := service.SyncFeed(context.Background(), reg)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 0, report.Updated)
	assert.Equal(t, 0, report.Skipped)

	stored := blocks.Blocks()
	require.Len(t, stored, 1)
	assert.Equal(t, "prop-1", stored[0].PropertyID)
	assert.Equal(t, "host-1", stored[0].HostID)
	assert.Equal(t, "ical_airbnb", stored[0].Source)
	assert.Equal(t, "stay-1@airbnb.example", stored[0].ExternalID)
	assert.Equal(t, "2025-09-10", stored[0].StartDate.Format(models.DateFormat))
	assert.Equal(t, "2025-09-15", stored[0].EndDate.Format(models.DateFormat))
	assert.Equal(t, "Reservation confirmed – Jane Doe", stored[0].Reason)
	assert.True(t, stored[0].IsActive)
	assert.Nil(t, stored[0].CreatedBy)

	assert.Equal(t,
		[]string{models.SyncStatusRunning, models.SyncStatusSuccess},
		states.Transitions["feed-1"],
	)
}

func TestSyncFeedIdempotent(t *testing.T) {
	server := feedServer(t, feedBody(
		[]string{
			"UID:stay-1@airbnb.example",
			"DTSTART;VALUE=DATE:20250910",
			"DTEND;VALUE=DATE:20250915",
			"SUMMARY:Jane Doe (2)",
		},
		[]string{
			"UID:stay-2@airbnb.example",
			"DTSTART;VALUE=DATE:20251001",
			"DTEND;VALUE=DATE:20251004",
			"SUMMARY:John Smith (4)",
		},
	))

	blocks := mocks.NewMockedBlockStore()
	service := newTestSync(blocks, mocks.NewMockedStateStore())

	reg := testReg
	reg.URL = server.URL

	first, err := service.SyncFeed(context.Background(), reg)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Created)

	second, err := service.SyncFeed(context.Background(), reg)
	require.NoError(t, err)

	assert.Equal(t, 0, second.Created)
	assert.Equal(t, second.Processed, second.Updated)
	assert.Len(t, blocks.Blocks(), 2)
}

func TestSyncFeedCancelledEventDeactivates(t *testing.T) {
	server := feedServer(t, feedBody([]string{
		"UID:stay-1@airbnb.example",
		"DTSTART;VALUE=DATE:20250910",
		"DTEND;VALUE=DATE:20250915",
		"SUMMARY:Jane Doe",
		"STATUS:CANCELLED",
	}))

	blocks := mocks.NewMockedBlockStore()
	service := newTestSync(blocks, mocks.NewMockedStateStore())

	reg := testReg
	reg.URL = server.URL

	report, err := service.SyncFeed(context.Background(), reg)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)

	stored := blocks.Blocks()
	require.Len(t, stored, 1)
	assert.False(t, stored[0].IsActive)
}

func TestSyncFeedDerivesEndFromDuration(t *testing.T) {
	server := feedServer(t, feedBody([]string{
		"UID:stay-1@airbnb.example",
		"DTSTART;VALUE=DATE:20250910",
		"DURATION:P5D",
		"SUMMARY:Jane Doe",
	}))

	blocks := mocks.NewMockedBlockStore()
	service := newTestSync(blocks, mocks.NewMockedStateStore())

	reg := testReg
	reg.URL = server.URL

	_, err := service.SyncFeed(context.Background(), reg)
	require.NoError(t, err)

	stored := blocks.Blocks()
	require.Len(t, stored, 1)
	assert.Equal(t, "2025-09-15", stored[0].EndDate.Format(models.DateFormat))
}

func TestSyncFeedDefaultsEndToOneDay(t *testing.T) {
	server := feedServer(t, feedBody([]string{
		"UID:stay-1@airbnb.example",
		"DTSTART;VALUE=DATE:20250910",
		"SUMMARY:Jane Doe",
	}))

	blocks := mocks.NewMockedBlockStore()
	service := newTestSync(blocks, mocks.NewMockedStateStore())

	reg := testReg
	reg.URL = server.URL

	_, err := service.SyncFeed(context.Background(), reg)
	require.NoError(t, err)

	stored := blocks.Blocks()
	require.Len(t, stored, 1)
	assert.Equal(t, "2025-09-11", stored[0].EndDate.Format(models.DateFormat))
}

func TestSyncFeedSkipReasons(t *testing.T) {
	server := feedServer(t, feedBody(
		[]string{
			"UID:backwards@ota.example",
			"DTSTART;VALUE=DATE:20250915",
			"DTEND;VALUE=DATE:20250910",
		},
		[]string{
			"UID:ancient@ota.example",
			"DTSTART;VALUE=DATE:20250801",
			"DTEND;VALUE=DATE:20250805",
		},
		[]string{
			"UID:mangled@ota.example",
			"DTSTART:whenever",
		},
		[]string{
			"UID:fine@ota.example",
			"DTSTART;VALUE=DATE:20250910",
			"DTEND;VALUE=DATE:20250915",
		},
	))

	blocks := mocks.NewMockedBlockStore()
	service := newTestSync(blocks, mocks.NewMockedStateStore())

	reg := testReg
	reg.URL = server.URL

	report, err := service.SyncFeed(context.Background(), reg)
	require.NoError(t, err)

	assert.Equal(t, 4, report.Processed)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 3, report.Skipped)
	assert.Equal(t, 1, report.SkipReasons[services.SkipEndBeforeStart])
	assert.Equal(t, 1, report.SkipReasons[services.SkipPastEvent])
	assert.Equal(t, 1, report.SkipReasons[services.SkipInvalidDateFormat])

	require.Len(t, blocks.Blocks(), 1)
	assert.Equal(t, "fine@ota.example", blocks.Blocks()[0].ExternalID)
}

func TestSyncFeedEmptyCalendarIsSuccess(t *testing.T) {
	server := feedServer(t, feedBody())

	states := mocks.NewMockedStateStore()
	service := newTestSync(mocks.NewMockedBlockStore(), states)

	reg := testReg
	reg.URL = server.URL

	report, err := service.SyncFeed(context.Background(), reg)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Processed)
	assert.Equal(t, 0, report.Created)
	assert.Equal(t, 0, report.Updated)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t,
		[]string{models.SyncStatusRunning, models.SyncStatusSuccess},
		states.Transitions["feed-1"],
	)
}

func TestSyncFeedFallbackWithoutConstraint(t *testing.T) {
	server := feedServer(t, feedBody([]string{
		"UID:stay-1@airbnb.example",
		"DTSTART;VALUE=DATE:20250910",
		"DTEND;VALUE=DATE:20250915",
		"SUMMARY:Jane Doe",
	}))

	blocks := mocks.NewMockedBlockStore()
	blocks.ConstraintMissing = true
	service := newTestSync(blocks, mocks.NewMockedStateStore())

	reg := testReg
	reg.URL = server.URL

	first, err := service.SyncFeed(context.Background(), reg)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Created)
	assert.Equal(t, 0, first.Skipped)

	second, err := service.SyncFeed(context.Background(), reg)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 1, second.Updated)

	require.Len(t, blocks.Blocks(), 1)
}

func TestSyncFeedUnclassifiedDBErrorSkipsEvent(t *testing.T) {
	server := feedServer(t, feedBody([]string{
		"UID:stay-1@airbnb.example",
		"DTSTART;VALUE=DATE:20250910",
		"DTEND;VALUE=DATE:20250915",
	}))

	blocks := mocks.NewMockedBlockStore()
	//nolint:exhaustruct //only the code matters
	blocks.UpsertErr = &pgconn.PgError{Code: "57014"}
	states := mocks.NewMockedStateStore()
	service := newTestSync(blocks, states)

	reg := testReg
	reg.URL = server.URL

	report, err := service.SyncFeed(context.Background(), reg)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.SkipReasons["db_error_57014"])
	assert.Equal(t,
		[]string{models.SyncStatusRunning, models.SyncStatusSuccess},
		states.Transitions["feed-1"],
	)
}

func TestSyncFeedFetchFailureMarksError(t *testing.T) {
	server := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}),
	)
	t.Cleanup(server.Close)

	states := mocks.NewMockedStateStore()
	service := newTestSync(mocks.NewMockedBlockStore(), states)

	reg := testReg
	reg.URL = server.URL

	_, err := service.SyncFeed(context.Background(), reg)
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrFeedStatus)

	transitions := states.Transitions["feed-1"]
	require.Len(t, transitions, 2)
	assert.Equal(t, models.SyncStatusRunning, transitions[0])
	assert.True(t, strings.HasPrefix(transitions[1], "error: "))
}

func TestSyncFeedImplausiblyShortBodyMarksError(t *testing.T) {
	server := feedServer(t, "BEGIN:VCALENDAR")

	states := mocks.NewMockedStateStore()
	service := newTestSync(mocks.NewMockedBlockStore(), states)

	reg := testReg
	reg.URL = server.URL

	_, err := service.SyncFeed(context.Background(), reg)
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrFeedTooShort)
}

func TestSyncFeedDerivesStableIDWithoutUID(t *testing.T) {
	body := feedBody([]string{
		"DTSTART;VALUE=DATE:20250910",
		"DTEND;VALUE=DATE:20250915",
		"SUMMARY:Blocked",
	})
	server := feedServer(t, body)

	blocks := mocks.NewMockedBlockStore()
	service := newTestSync(blocks, mocks.NewMockedStateStore())

	reg := testReg
	reg.URL = server.URL

	first, err := service.SyncFeed(context.Background(), reg)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Created)

	// Same content, same derived key: the second run updates, never
	// duplicates.
	second, err := service.SyncFeed(context.Background(), reg)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 1, second.Updated)
	require.Len(t, blocks.Blocks(), 1)
	assert.NotEmpty(t, blocks.Blocks()[0].ExternalID)
}
