// Package cli implements the wxarchive command line.
package cli

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/i474232898/wxarchive/internal/config"
	"github.com/i474232898/wxarchive/internal/fetch"
	"github.com/i474232898/wxarchive/internal/importer"
	"github.com/i474232898/wxarchive/internal/store"
	"github.com/i474232898/wxarchive/internal/weather"
	"github.com/i474232898/wxarchive/internal/weather/sources"
)

const appName = "wxarchive"

// globalFlags override the environment configuration.
type globalFlags struct {
	importConfig string
	archive      string
	logLevel     string
}

// NewRootCmd builds the wxarchive command tree.
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   appName,
		Short: "Import weather station observations into an archive",
		Long: `wxarchive imports observations from CSV files, Weather Underground,
Cumulus monthly logs and Open-Meteo into a weather archive, and serves the
archive over HTTP.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flags.importConfig, "config", "", "import configuration YAML (default $IMPORT_CONFIG or import.yaml)")
	root.PersistentFlags().StringVar(&flags.archive, "archive", "", "JSON-lines archive file (default $ARCHIVE_PATH)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (default $LOG_LEVEL or info)")

	root.AddCommand(
		newImportCmd(flags),
		newServeCmd(flags),
		newSummaryCmd(flags),
	)
	return root
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// env is what every command works with.
type env struct {
	app      *config.AppConfig
	imports  *config.ImportConfig
	location *time.Location
	store    weather.Store
	service  *importer.Service
}

func setup(flags *globalFlags) (*env, error) {
	app, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if flags.importConfig != "" {
		app.ImportConfigPath = flags.importConfig
	}
	if flags.archive != "" {
		app.ArchivePath = flags.archive
	}
	if flags.logLevel != "" {
		app.LogLevel = flags.logLevel
	}
	if err := app.SetupLogging(); err != nil {
		return nil, err
	}

	imports, err := config.LoadImport(app.ImportConfigPath)
	if err != nil {
		return nil, err
	}
	loc, err := imports.Location()
	if err != nil {
		return nil, err
	}

	var st weather.Store
	if app.ArchivePath == "" {
		logrus.Warn("no archive path configured; archive is kept in memory only")
		st = store.NewMemoryStore()
	} else {
		fs, err := store.OpenFileStore(app.ArchivePath)
		if err != nil {
			return nil, err
		}
		st = fs
	}

	// Without a default every import has to name its source.
	defaultSource, err := imports.DefaultSource()
	if err != nil {
		logrus.WithError(err).Debug("no default import source")
	}

	deps := sources.Deps{
		HTTPClient: &http.Client{Timeout: app.HTTPTimeout},
		Geocoder:   sources.GoogleGeocoder{APIKey: app.GeocoderAPIKey},
		WUAPIKey:   app.WUAPIKey,
	}
	deps.Opener = &fetch.Opener{HTTPClient: deps.HTTPClient}

	svc := importer.NewService(st, sources.Factory(imports, deps), defaultSource, app.JobHistory)

	return &env{
		app:      app,
		imports:  imports,
		location: loc,
		store:    st,
		service:  svc,
	}, nil
}

// parseWhen reads a command line time: RFC3339, "YYYY-MM-DD HH:MM" or a
// date, the latter two in loc.
func parseWhen(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q; use RFC3339, YYYY-MM-DD HH:MM or YYYY-MM-DD", s)
}
