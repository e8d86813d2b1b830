// Package main implements the chatlog CLI: ingest chat-export archives into
// one CSV dataset and serve the result over HTTP.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/chatlog/internal/config"
)

// cfg is loaded before any init so flag defaults reflect the environment.
// envErr is reported once logging is set up.
var cfg, envErr = config.Load()

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "chatlog",
	Short: "Turn exported chat archives into one message dataset",
	Long: `chatlog extracts every chat-export zip archive in a directory, asks for a
name per conversation, parses the transcripts and writes all messages into a
single CSV file with the columns Conversation, Date, Time, Sender, Message.`,
	Version:      version,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
		}
		setupLogging(cfg.LogLevel)
		if envErr != nil {
			slog.Warn("could not load .env file", "error", envErr)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "dataset CSV path")
	rootCmd.PersistentFlags().StringVar(&cfg.ReportPath, "report", cfg.ReportPath, "run report path (default <output>.report.json)")
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(serveCmd)
}

// setupLogging writes JSON logs to stderr so stdout stays free for the summary.
func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
