package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/veilscan/veilscan/internal/probe"
	"github.com/veilscan/veilscan/internal/scan"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a one-shot scan and print the results as JSON",
	Long: `Run a scan in-process without starting the API server.

The command blocks until every probe has finished, then prints the findings
and the threat report to stdout.

Examples:
  veilscan scan --query alice@example.com --type email
  veilscan scan --query alice_doe --type username`,
	RunE: func(cmd *cobra.Command, args []string) error {
		query, _ := cmd.Flags().GetString("query")
		queryType, _ := cmd.Flags().GetString("type")

		logger := newLogger("veilscan")
		comps, err := buildComponents(logger)
		if err != nil {
			return err
		}
		defer comps.close()

		task, err := comps.orchestrator.StartScan(cmd.Context(), query, probe.QueryType(queryType))
		if err != nil {
			return err
		}

		events := comps.orchestrator.Events(task.ID)
		if events != nil {
			for ev := range events {
				if verbose && ev.Type == scan.ScanEventProgress {
					fmt.Fprintf(os.Stderr, "progress: %d/%d probes\n", ev.Completed, ev.Total)
				}
			}
		}

		view, err := comps.orchestrator.GetScan(cmd.Context(), task.ID)
		if err != nil {
			return err
		}

		out := map[string]any{
			"task_id":       task.ID,
			"status":        view.Task.Status,
			"query":         view.Task.Query,
			"query_type":    view.Task.QueryType,
			"findings":      view.Findings,
			"threat_report": view.Report,
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	scanCmd.Flags().StringP("query", "q", "", "email address or username to scan (required)")
	scanCmd.Flags().StringP("type", "t", "email", "query type: email or username")
	_ = scanCmd.MarkFlagRequired("query")

	rootCmd.AddCommand(scanCmd)
}
