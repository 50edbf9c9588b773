package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"cinetrail/config"
)

type apiKeyUpdater interface {
	UpdateAPIKey(apiKey, language string)
}

// metadataReloader re-reads the config file and hands changed TMDB settings to
// the metadata service, which drops its cache when they change.
type metadataReloader struct {
	path     string
	svc      apiKeyUpdater
	apiKey   string
	language string
}

func (m *metadataReloader) reload() (bool, error) {
	cfg, err := config.Load(m.path)
	if err != nil {
		return false, err
	}
	if cfg.TMDB.APIKey == m.apiKey && cfg.TMDB.Language == m.language {
		return false, nil
	}
	m.apiKey, m.language = cfg.TMDB.APIKey, cfg.TMDB.Language
	m.svc.UpdateAPIKey(m.apiKey, m.language)
	return true, nil
}

// watch reloads on SIGHUP until ctx is done.
func (m *metadataReloader) watch(ctx context.Context) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			changed, err := m.reload()
			switch {
			case err != nil:
				log.Printf("[main] config reload failed: %v", err)
			case changed:
				log.Printf("[main] applied new TMDB settings")
			default:
				log.Printf("[main] config reloaded, TMDB settings unchanged")
			}
		}
	}
}
