package main

import (
	"context"
	"fmt"

	"monitor-precos/internal/database"
	"monitor-precos/internal/monitor"
	"monitor-precos/internal/scraper"
)

// app reúne os componentes usados pelos comandos
type app struct {
	store   database.Store
	router  *scraper.Router
	scraper *scraper.Scraper
	monitor *monitor.Monitor
}

func newApp(ctx context.Context, opts ...monitor.Option) (*app, error) {
	// Inicializar banco de dados
	store, err := database.Open(ctx, cfg.DatabaseURL, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("erro ao inicializar banco de dados: %w", err)
	}

	registry := scraper.NewDefaultRegistry()
	router := &scraper.Router{
		Plain:    scraper.NewHTTPFetcher(cfg.HTTPTimeout, log),
		Rendered: scraper.NewBrowserFetcher(scraper.BrowserOptions{Bin: cfg.BrowserBin}, registry, log),
		Registry: registry,
		Mode:     cfg.FetchMode,
	}
	s := scraper.New(router, scraper.NewExtractor(registry, log), log)

	opts = append([]monitor.Option{
		monitor.WithDelay(cfg.RequestDelay),
		monitor.WithLogger(log),
	}, opts...)

	return &app{
		store:   store,
		router:  router,
		scraper: s,
		monitor: monitor.New(store, s, opts...),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		log.Error("erro ao fechar banco de dados", "err", err)
	}
}
