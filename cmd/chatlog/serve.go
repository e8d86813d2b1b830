package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/chatlog/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the last dataset and run report over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&cfg.Port, "port", "p", cfg.Port, "HTTP port")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return api.NewServer(cfg.Port, cfg.Output, cfg.ReportPath).Run(ctx)
}
