package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newTracesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "traces",
		Short: "Inspect captured request traces",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List trace records newest first",
		Args:  cobra.NoArgs,
		RunE:  runTracesList,
	}
	list.Flags().String("domain", "", "Filter by request domain")
	list.Flags().String("trace-id", "", "Filter by trace ID")
	list.Flags().Int("limit", 50, "Maximum number of records (0 for all)")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every trace record",
		Args:  cobra.NoArgs,
		RunE:  runTracesClear,
	}

	prune := &cobra.Command{
		Use:   "prune",
		Short: "Remove records older than the retention window",
		Args:  cobra.NoArgs,
		RunE:  runTracesPrune,
	}
	prune.Flags().Bool("force", false, "Prune even if a prune ran within the last hour")

	cmd.AddCommand(list, clearCmd, prune)
	return cmd
}

func runTracesList(cmd *cobra.Command, _ []string) error {
	domain, _ := cmd.Flags().GetString("domain")
	traceID, _ := cmd.Flags().GetString("trace-id")
	limit, _ := cmd.Flags().GetInt("limit")

	traces, err := getClient(cmd).Traces(cmd.Context(), domain, traceID, limit)
	if err != nil {
		return err
	}
	if len(traces) == 0 {
		pterm.Info.Println("No traces captured")
		return nil
	}

	rows := pterm.TableData{{"Start", "Method", "Status", "Duration", "Domain", "Trace ID"}}
	for _, t := range traces {
		status := fmt.Sprintf("%d", t.Status)
		if t.Error != "" {
			status = t.Error
		}
		rows = append(rows, []string{
			t.StartTime,
			t.Method,
			status,
			fmt.Sprintf("%.1fms", t.DurationMS),
			t.Domain,
			t.TraceID,
		})
	}

	printTable(rows)
	return nil
}

func runTracesClear(cmd *cobra.Command, _ []string) error {
	if err := getClient(cmd).ClearTraces(cmd.Context()); err != nil {
		return err
	}
	pterm.Success.Println("Traces cleared")
	return nil
}

func runTracesPrune(cmd *cobra.Command, _ []string) error {
	force, _ := cmd.Flags().GetBool("force")

	resp, err := getClient(cmd).PruneTraces(cmd.Context(), force)
	if err != nil {
		return err
	}
	pterm.Success.Printf("Pruned %d trace records\n", resp.Removed)
	return nil
}
