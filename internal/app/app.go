package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"xfeed/internal/config"
)

type App struct {
	httpServer  *http.Server
	infra       *Infra
	stopJanitor context.CancelFunc
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: cfg.UpstreamTimeout}

	router, err := setupHTTP(ctx, cfg, infra, client)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}

	server := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	janitorCtx, stop := context.WithCancel(context.Background())
	go infra.runJanitor(janitorCtx)

	return &App{
		httpServer:  server,
		infra:       infra,
		stopJanitor: stop,
	}, nil
}

// Run blocks serving HTTP until Shutdown is called.
func (a *App) Run() error {
	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	a.stopJanitor()
	if err := a.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	return a.infra.Close()
}
