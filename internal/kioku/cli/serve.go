package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the memory service",
		Long:  "Run the memory service with background TTL sweeps, session cleanup, and the optional health server.",
		Run:   runServe,
	}
	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	a, err := openApp()
	if err != nil {
		exitErr("serve", err)
	}
	defer a.Stop()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		exitErr("serve", err)
	}
}
