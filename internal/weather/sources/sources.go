// Package sources provides the observation sources an import can read from.
package sources

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/i474232898/wxarchive/internal/config"
	"github.com/i474232898/wxarchive/internal/importer"
	"github.com/i474232898/wxarchive/internal/weather"
)

// Deps are the shared clients handed to every source.
type Deps struct {
	HTTPClient *http.Client
	Opener     Opener
	Geocoder   Geocoder
	// WUAPIKey is used when the wu section has no api_key.
	WUAPIKey string
}

// New builds the named source from the import configuration.
func New(cfg *config.ImportConfig, name string, deps Deps) (weather.Source, error) {
	if deps.HTTPClient == nil {
		deps.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if _, ok := cfg.SourceOptions(name); !ok {
		return nil, fmt.Errorf("no %q section in import config", name)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	switch name {
	case config.SourceCSV:
		return NewCSVSource(deps.Opener, cfg.CSV.File, cfg.CSV.Delimiter, cfg.CSV.FieldMap)

	case config.SourceWU:
		key := cfg.WU.APIKey
		if key == "" {
			key = deps.WUAPIKey
		}
		src := NewWUSource(deps.HTTPClient, cfg.WU.StationID, key, loc)
		if cfg.WU.BaseURL != "" {
			src.baseURL = cfg.WU.BaseURL
		}
		return src, nil

	case config.SourceCumulus:
		return NewCumulusSource(deps.Opener, cfg.Cumulus.Directory, cfg.Cumulus.Separator, cfg.Cumulus.Units, loc)

	case config.SourceOpenMeteo:
		src := NewOpenMeteoSource(deps.HTTPClient, cfg.Station, deps.Geocoder)
		if cfg.OpenMeteo.BaseURL != "" {
			src.baseURL = cfg.OpenMeteo.BaseURL
		}
		if cfg.OpenMeteo.ChunkDays > 0 {
			src.chunkDays = cfg.OpenMeteo.ChunkDays
		}
		return src, nil
	}
	return nil, fmt.Errorf("unknown source %q", name)
}

// Factory adapts New to the importer's source factory.
func Factory(cfg *config.ImportConfig, deps Deps) importer.SourceFactory {
	return func(_ context.Context, name string) (weather.Source, importer.Options, error) {
		src, err := New(cfg, name, deps)
		if err != nil {
			return nil, importer.Options{}, &importer.ConfigError{Err: err}
		}
		opts, err := importer.OptionsFrom(cfg, name)
		if err != nil {
			return nil, importer.Options{}, err
		}
		return src, opts, nil
	}
}
