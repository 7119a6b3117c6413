package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"go-cloud-etl/internal/app"
)

func newRunCommand(o *options) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one batch for a reference date",
		Example: `  pipeline run
  pipeline run --date 2014-07-01
  ETL_SOURCE_BACKEND=local ETL_SOURCE_ROOT=./data pipeline run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if date == "" {
				date = o.cfg.Run.ReferenceDate
			}
			a, err := o.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Pipeline.Run(cmd.Context(), date)
			fmt.Fprintln(cmd.OutOrStdout(), app.Summary(res, err))
			return err
		},
	}
	cmd.Flags().StringVarP(&date, "date", "d", "", "reference date in run.date_format (default run.reference_date)")
	return cmd
}
