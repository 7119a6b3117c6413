package cli

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"go-cloud-etl/internal/model"
	"go-cloud-etl/pkg/utils"
)

func newRunsCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect tracked pipeline runs",
	}
	cmd.AddCommand(newRunsListCommand(o), newRunsShowCommand(o))
	return cmd
}

func newRunsListCommand(o *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			runs, err := a.RequireRuns()
			if err != nil {
				return err
			}

			records, err := runs.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			renderRuns(cmd.OutOrStdout(), records)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs")
	return cmd
}

func newRunsShowCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run and its stage log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			runs, err := a.RequireRuns()
			if err != nil {
				return err
			}

			run, err := runs.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			logs, err := runs.GetRunLogs(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			renderRun(cmd.OutOrStdout(), run, logs)
			return nil
		},
	}
}

func renderRuns(w io.Writer, records []model.RunRecord) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Date", "Status", "Selected", "Groups", "Format", "Output", "Updated"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, r := range records {
		format := ""
		if r.OutputPath != "" {
			format = utils.GetFileType(r.OutputPath)
		}
		table.Append([]string{
			r.ID,
			r.ReferenceDate,
			r.Status,
			strconv.Itoa(r.Selected),
			strconv.Itoa(r.Groups),
			format,
			r.OutputPath,
			r.UpdatedAt.Format(time.DateTime),
		})
	}
	table.Render()
}

func renderRun(w io.Writer, run *model.RunRecord, logs []model.RunLog) {
	fmt.Fprintf(w, "Run:       %s\n", run.ID)
	fmt.Fprintf(w, "Date:      %s\n", run.ReferenceDate)
	fmt.Fprintf(w, "Status:    %s\n", run.Status)
	fmt.Fprintf(w, "Selected:  %d\n", run.Selected)
	fmt.Fprintf(w, "Groups:    %d\n", run.Groups)
	if run.OutputPath != "" {
		fmt.Fprintf(w, "Output:    %s\n", run.OutputPath)
	}
	if run.Error != "" {
		fmt.Fprintf(w, "Error:     %s\n", run.Error)
	}
	fmt.Fprintln(w)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Stage", "Level", "Details", "At"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, l := range logs {
		table.Append([]string{
			strconv.FormatInt(l.ID, 10),
			l.Stage,
			l.Level,
			formatDetails(l.Details),
			l.CreatedAt.Format(time.DateTime),
		})
	}
	table.Render()
}

func formatDetails(details map[string]any) string {
	if len(details) == 0 {
		return ""
	}
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s=%v", k, details[k])
	}
	return out
}
