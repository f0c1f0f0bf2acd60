package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/i474232898/wxarchive/internal/store"
	"github.com/i474232898/wxarchive/internal/units"
)

func newSummaryCmd(global *globalFlags) *cobra.Command {
	var date, unitSystem string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the min/max/average summary of one archive day as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := setup(global)
			if err != nil {
				return err
			}
			defer e.service.Close()

			day := time.Now().In(e.location)
			if date != "" {
				if day, err = time.ParseInLocation("2006-01-02", date, e.location); err != nil {
					return errors.New("invalid --date; use YYYY-MM-DD")
				}
			}
			var system units.System
			if unitSystem != "" {
				if system, err = units.ParseSystem(unitSystem); err != nil {
					return err
				}
			}

			summary, err := e.service.GetDaySummary(day, system)
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no archive records on %s", day.Format("2006-01-02"))
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to summarise (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&unitSystem, "units", "", "unit system of the output (US, METRIC, METRICWX)")
	return cmd
}
