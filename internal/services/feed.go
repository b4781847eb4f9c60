package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"calsync.casaflow.app/internal/models"
	"calsync.casaflow.app/internal/repositories"
)

// A syntactically valid ICS payload cannot be shorter than this; anything
// smaller is a broken feed (truncated body, HTML error page, ...), not a
// parse problem.
const minPlausibleICSLength = 50

var (
	ErrFeedUnreachable = errors.New("feed unreachable")
	ErrFeedStatus      = errors.New("feed returned non-success status")
	ErrFeedTooShort    = errors.New("feed body implausibly short")
)

// FeedService resolves feed registrations and fetches raw calendar text.
type FeedService struct {
	feeds   *repositories.FeedRepository
	client  *http.Client
	timeout time.Duration
}

func NewFeedService(
	feeds *repositories.FeedRepository,
	client *http.Client,
	timeout time.Duration,
) *FeedService {
	return &FeedService{
		feeds:   feeds,
		client:  client,
		timeout: timeout,
	}
}

func (service *FeedService) GetRegistration(
	ctx context.Context,
	id string,
) (*models.FeedRegistration, error) {
	return service.feeds.GetByID(ctx, id)
}

func (service *FeedService) GetRegistrationByAccount(
	ctx context.Context,
	accountID string,
) (*models.FeedRegistration, error) {
	return service.feeds.GetByAccountID(ctx, accountID)
}

func (service *FeedService) GetAllRegistrations(
	ctx context.Context,
) ([]models.FeedRegistration, error) {
	return service.feeds.GetAll(ctx)
}

// Fetch retrieves raw calendar text. The transfer is aborted at the
// configured timeout instead of blocking the run.
func (service *FeedService) Fetch(ctx context.Context, url string) (string, error) {
	parsed, err := neturl.Parse(url)
	if err != nil {
		return "", fmt.Errorf("%w: invalid url: %v", ErrFeedUnreachable, err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %s", ErrFeedUnreachable, parsed.Scheme)
	}

	// Basic SSRF protection
	host := parsed.Hostname()
	if host == "localhost" ||
		strings.HasPrefix(host, "10.") ||
		strings.HasPrefix(host, "192.168.") ||
		strings.HasPrefix(host, "172.") {
		return "", fmt.Errorf("%w: private host %s", ErrFeedUnreachable, host)
	}

	ctx, cancel := context.WithTimeout(ctx, service.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFeedUnreachable, err)
	}

	req.Header.Set("User-Agent", "calsync.casaflow.app/1.0")
	req.Header.Set("Accept", "text/calendar")

	resp, err := service.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFeedUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("%w: %d", ErrFeedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFeedUnreachable, err)
	}

	if len(body) < minPlausibleICSLength {
		return "", fmt.Errorf("%w: %d bytes", ErrFeedTooShort, len(body))
	}

	return string(body), nil
}
