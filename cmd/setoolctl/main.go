// Command setoolctl administers a running setoolkit service over its local API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

const defaultAddr = "127.0.0.1:8484"

type clientKey struct{}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	addr := os.Getenv("SETOOLKIT_LISTEN_ADDR")
	if addr == "" {
		addr = defaultAddr
	}

	root := &cobra.Command{
		Use:           "setoolctl",
		Short:         "Administer a running setoolkit service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			addr, _ := cmd.Flags().GetString("addr")
			timeout, _ := cmd.Flags().GetDuration("timeout")
			cmd.SetContext(context.WithValue(cmd.Context(), clientKey{}, NewClient(addr, timeout)))
		},
	}
	root.PersistentFlags().String("addr", addr, "Address of the setoolkit service (host:port)")
	root.PersistentFlags().Duration("timeout", 2*time.Minute, "Request timeout")

	root.AddCommand(newValidateCmd(), newRegionsCmd(), newPluginsCmd(), newTracesCmd(), newLinksCmd())
	return root
}

// getClient returns the API client installed by the root command.
func getClient(cmd *cobra.Command) *Client {
	return cmd.Context().Value(clientKey{}).(*Client)
}

// printTable renders rows with the first row as header.
func printTable(rows pterm.TableData) {
	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}
