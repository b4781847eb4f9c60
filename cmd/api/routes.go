package main

import (
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/justinas/alice"
	"github.com/xdoubleu/essentia/v2/pkg/middleware"
)

func (app *Application) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(
		"POST /api/sync",
		app.Services.Auth.Access(app.syncHandler),
	)

	mux.HandleFunc(
		"GET /api/feeds/{id}/preview",
		app.Services.Auth.Access(app.previewHandler),
	)

	mux.HandleFunc(
		"GET /api/feeds/{id}/state",
		app.Services.Auth.Access(app.syncStateHandler),
	)

	mux.HandleFunc(
		"GET /api/properties/{id}/blocks",
		app.Services.Auth.Access(app.blocksHandler),
	)

	mux.HandleFunc("GET /ws", app.Services.WebSocket.Handler())

	var sentryClientOptions sentry.ClientOptions
	if len(app.Config.SentryDsn) > 0 {
		//nolint:exhaustruct //other fields are optional
		sentryClientOptions = sentry.ClientOptions{
			Dsn:              app.Config.SentryDsn,
			Environment:      app.Config.Env,
			Release:          app.Config.Release,
			EnableTracing:    true,
			TracesSampleRate: app.Config.SampleRate,
			SampleRate:       app.Config.SampleRate,
		}
	}

	allowedOrigins := []string{app.Config.WebURL}
	handlers, err := middleware.DefaultWithSentry(
		app.logger,
		allowedOrigins,
		app.Config.Env,
		sentryClientOptions,
	)

	if err != nil {
		panic(err)
	}

	standard := alice.New(handlers...)
	return standard.Then(mux)
}
