package services_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"calsync.casaflow.app/internal/services"
)

func TestFetchReturnsBody(t *testing.T) {
	body := feedBody([]string{
		"UID:stay-1@ota.example",
		"DTSTART;VALUE=DATE:20250910",
	})

	var gotUserAgent string
	server := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUserAgent = r.Header.Get("User-Agent")
			//nolint:errcheck //test server
			w.Write([]byte(body))
		}),
	)
	t.Cleanup(server.Close)

	feeds := services.NewFeedService(nil, &http.Client{}, 5*time.Second)

	raw, err := feeds.Fetch(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, body, raw)
	assert.Contains(t, gotUserAgent, "calsync.casaflow.app")
}

func TestFetchRejectsNonHTTPScheme(t *testing.T) {
	feeds := services.NewFeedService(nil, &http.Client{}, 5*time.Second)

	_, err := feeds.Fetch(context.Background(), "ftp://ota.example/feed.ics")
	assert.ErrorIs(t, err, services.ErrFeedUnreachable)
}

func TestFetchRejectsInternalHost(t *testing.T) {
	feeds := services.NewFeedService(nil, &http.Client{}, 5*time.Second)

	_, err := feeds.Fetch(context.Background(), "http://10.0.0.5/feed.ics")
	assert.ErrorIs(t, err, services.ErrFeedUnreachable)
}

func TestFetchBadStatus(t *testing.T) {
	server := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}),
	)
	t.Cleanup(server.Close)

	feeds := services.NewFeedService(nil, &http.Client{}, 5*time.Second)

	_, err := feeds.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrFeedStatus)
	assert.Contains(t, err.Error(), "403")
}

func TestFetchImplausiblyShortBody(t *testing.T) {
	server := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			//nolint:errcheck //test server
			w.Write([]byte("nope"))
		}),
	)
	t.Cleanup(server.Close)

	feeds := services.NewFeedService(nil, &http.Client{}, 5*time.Second)

	_, err := feeds.Fetch(context.Background(), server.URL)
	assert.ErrorIs(t, err, services.ErrFeedTooShort)
}

func TestFetchTimesOut(t *testing.T) {
	server := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(200 * time.Millisecond)
			//nolint:errcheck //test server
			w.Write([]byte(strings.Repeat("X", 100)))
		}),
	)
	t.Cleanup(server.Close)

	feeds := services.NewFeedService(nil, &http.Client{}, 50*time.Millisecond)

	_, err := feeds.Fetch(context.Background(), server.URL)
	assert.ErrorIs(t, err, services.ErrFeedUnreachable)
}
