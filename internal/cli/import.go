package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/i474232898/wxarchive/internal/importer"
)

type importFlags struct {
	source string
	date   string
	from   string
	to     string
	dryRun bool
	update bool
}

func newImportCmd(global *globalFlags) *cobra.Command {
	flags := &importFlags{}
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import observations from a configured source",
		Long: `Import observations from a configured source into the archive.

Records already in the archive are skipped unless --update is given. With
--dry-run the whole pipeline runs but nothing is saved.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := setup(global)
			if err != nil {
				return err
			}
			defer e.service.Close()

			req, err := flags.request(e)
			if err != nil {
				return err
			}
			summary, err := e.service.Run(cmd.Context(), req)
			printSummary(cmd.OutOrStdout(), summary)
			return err
		},
	}

	cmd.Flags().StringVar(&flags.source, "source", "", "source to import from (csv, wu, cumulus, openmeteo)")
	cmd.Flags().StringVar(&flags.date, "date", "", "import a single day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&flags.from, "from", "", "import records after this time")
	cmd.Flags().StringVar(&flags.to, "to", "", "import records up to and including this time")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "run the import without saving")
	cmd.Flags().BoolVar(&flags.update, "update", false, "overwrite records already in the archive")
	cmd.MarkFlagsMutuallyExclusive("date", "from")
	cmd.MarkFlagsMutuallyExclusive("date", "to")
	return cmd
}

func (f *importFlags) request(e *env) (importer.Request, error) {
	req := importer.Request{Source: f.source, DryRun: f.dryRun, Update: f.update}
	if f.date != "" {
		day, err := time.ParseInLocation("2006-01-02", f.date, e.location)
		if err != nil {
			return req, errors.New("invalid --date; use YYYY-MM-DD")
		}
		req.From, req.To = importer.DayRange(day, e.location)
		return req, nil
	}
	var err error
	if f.from != "" {
		if req.From, err = parseWhen(f.from, e.location); err != nil {
			return req, err
		}
	}
	if f.to != "" {
		if req.To, err = parseWhen(f.to, e.location); err != nil {
			return req, err
		}
	}
	return req, nil
}

func printSummary(w io.Writer, s importer.Summary) {
	mode := "imported"
	if s.DryRun {
		mode = "would import"
	}
	fmt.Fprintf(w, "source %s (%s units): %d periods, %d raw records\n", s.Source, s.UnitSystem, s.Periods, s.RawRecords)
	fmt.Fprintf(w, "%s %d records", mode, s.Imported)
	if s.Imported > 0 {
		fmt.Fprintf(w, " from %s to %s", s.First.Format(time.RFC3339), s.Last.Format(time.RFC3339))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "skipped: %d already archived, %d duplicates in source, %d outside range\n",
		s.Existing, s.SourceDuplicates, s.OutsideRange)
	fmt.Fprintf(w, "values: %d rejected by qc, %d invalid ignored\n", s.QCRejected, s.InvalidIgnored)
}
