package services

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/xdoubleu/essentia/v2/pkg/threading"
	"github.com/xhit/go-str2duration/v2"
	"calsync.casaflow.app/internal/auth"
	"calsync.casaflow.app/internal/config"
	"calsync.casaflow.app/internal/repositories"
)

type Services struct {
	Auth      auth.Service
	Feeds     *FeedService
	Sync      *SyncService
	WebSocket *WebSocketService
}

func New(
	logger *slog.Logger,
	cfg config.Config,
	jobQueue *threading.JobQueue,
	repos *repositories.Repositories,
	authService auth.Service,
) *Services {
	timeout, err := str2duration.ParseDuration(cfg.FetchTimeout)
	if err != nil {
		panic(err)
	}

	//nolint:exhaustruct //timeout is set per request
	feeds := NewFeedService(repos.Feeds, &http.Client{}, timeout)

	sync := NewSyncService(logger, feeds, repos.Blocks, repos.SyncState, time.Now)

	return &Services{
		Auth:      authService,
		Feeds:     feeds,
		Sync:      sync,
		WebSocket: NewWebSocketService(logger, []string{cfg.WebURL}, jobQueue),
	}
}
