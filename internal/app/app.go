package app

import (
	"crypto/rand"
	"log/slog"
	"time"

	httpapp "sessiond/internal/app/http"
	authhttp "sessiond/internal/http/auth"
	"sessiond/internal/services/auth"
)

type App struct {
	HTTPServer *httpapp.App
	StorageApp *StorageApp
}

func New(
	log *slog.Logger,
	httpPort int,
	httpTimeout time.Duration,
	storageApp *StorageApp,
	sessionTTL time.Duration,
	rememberTTL time.Duration,
) *App {

	authService := auth.New(log, rand.Reader, storageApp.Storage(), storageApp.Storage(), storageApp.Storage(), storageApp.Storage(), sessionTTL, rememberTTL)

	authServer := authhttp.New(log, authService)

	httpApp := httpapp.New(log, authServer, httpPort, httpTimeout)

	return &App{
		HTTPServer: httpApp,
		StorageApp: storageApp,
	}
}
