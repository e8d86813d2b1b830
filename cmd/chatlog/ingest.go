package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/chatlog/internal/archive"
	"github.com/MikeSquared-Agency/chatlog/internal/chat"
	"github.com/MikeSquared-Agency/chatlog/internal/labeler"
	"github.com/MikeSquared-Agency/chatlog/internal/pipeline"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [input-dir]",
	Short: "Ingest every archive in the input directory",
	Long: `Ingest every chat-export zip archive in the input directory.

Examples:
  # Ask for a name per chat, write ./all_chats.csv
  chatlog ingest ./chat_data

  # Name chats after the archive and tag the owner's messages
  chatlog ingest --labels derived --owner Martin --workers 4 ./chat_data`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	f := ingestCmd.Flags()
	f.StringVar(&cfg.Owner, "owner", cfg.Owner, "sender name of the dataset owner")
	f.StringSliceVar(&cfg.Labels, "labels", cfg.Labels, "label providers in order (prompt, static, derived, counterpart)")
	f.StringVar(&cfg.LabelFile, "label-file", cfg.LabelFile, "YAML file mapping archive names to labels")
	f.StringVar(&cfg.Dialect, "dialect", cfg.Dialect, "transcript header dialect")
	f.StringVar(&cfg.WorkDir, "work-dir", cfg.WorkDir, "directory for temporary extraction dirs")
	f.IntVarP(&cfg.Workers, "workers", "w", cfg.Workers, "archives processed in parallel")
}

func runIngest(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		if !cmd.Flags().Changed("work-dir") && cfg.WorkDir == cfg.InputDir {
			cfg.WorkDir = args[0]
		}
		cfg.InputDir = args[0]
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dialect, err := chat.ParseDialect(cfg.Dialect)
	if err != nil {
		return err
	}
	cls, err := chat.NewClassifier(dialect)
	if err != nil {
		return err
	}

	labels, err := labeler.Build(cfg.Labels, labeler.Options{
		In:         os.Stdin,
		Out:        os.Stderr,
		LabelFile:  cfg.LabelFile,
		Classifier: cls,
	})
	if err != nil {
		return err
	}

	sinks, closeSinks, err := buildSinks(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer closeSinks()

	runner := pipeline.NewRunner(pipeline.Config{
		InputDir:   cfg.InputDir,
		Output:     cfg.Output,
		ReportPath: cfg.ReportPath,
		Owner:      cfg.Owner,
		Workers:    cfg.Workers,
	}, archive.New(cfg.WorkDir, slog.Default()), labels, cls, cmd.OutOrStdout(), slog.Default(), sinks...)

	slog.Info("chatlog ingest starting", "input_dir", cfg.InputDir, "output", cfg.Output, "workers", cfg.Workers)
	if _, err := runner.Run(ctx); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("interrupted: %w", err)
		}
		return err
	}
	return nil
}
