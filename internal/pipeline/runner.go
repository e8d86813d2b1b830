// Package pipeline runs one ingestion: extract every archive, label and
// assemble its transcript, merge all conversations and write the dataset.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/chatlog/internal/archive"
	"github.com/MikeSquared-Agency/chatlog/internal/chat"
	"github.com/MikeSquared-Agency/chatlog/internal/dataset"
	"github.com/MikeSquared-Agency/chatlog/internal/labeler"
)

// Config holds the settings of one run.
type Config struct {
	InputDir   string
	Output     string
	ReportPath string // defaults to Output + ".report.json"
	Owner      string // sender name of the dataset owner
	Workers    int
}

// Sink receives the dataset after it has been written to Output.
type Sink interface {
	Name() string
	Publish(ctx context.Context, ds *dataset.Dataset, rep *Report) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc struct {
	SinkName string
	Fn       func(ctx context.Context, ds *dataset.Dataset, rep *Report) error
}

func (s SinkFunc) Name() string { return s.SinkName }

func (s SinkFunc) Publish(ctx context.Context, ds *dataset.Dataset, rep *Report) error {
	return s.Fn(ctx, ds, rep)
}

// Runner orchestrates the ingestion.
type Runner struct {
	cfg        Config
	extractor  *archive.Extractor
	labels     labeler.Provider
	classifier chat.Classifier
	sinks      []Sink
	stdout     io.Writer
	logger     *slog.Logger
}

// NewRunner creates a runner. stdout receives the human-readable summary.
func NewRunner(cfg Config, x *archive.Extractor, labels labeler.Provider, cls chat.Classifier, stdout io.Writer, logger *slog.Logger, sinks ...Sink) *Runner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.ReportPath == "" && cfg.Output != "" {
		cfg.ReportPath = cfg.Output + ".report.json"
	}
	return &Runner{
		cfg:        cfg,
		extractor:  x,
		labels:     labels,
		classifier: cls,
		sinks:      sinks,
		stdout:     stdout,
		logger:     logger,
	}
}

type outcome struct {
	table chat.ConversationTable
	err   error
}

// Run executes the pipeline. Per-archive failures are recorded in the report
// and skipped; a schema mismatch, an output write failure or cancellation
// aborts the run without touching the previous output.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	rep := newReport(uuid.New(), r.cfg)

	entries, err := r.extractor.Discover(r.cfg.InputDir)
	if err != nil {
		return nil, fmt.Errorf("discover archives: %w", err)
	}
	r.logger.Info("archives discovered", "run_id", rep.RunID, "archives", len(entries), "workers", r.cfg.Workers)

	// Results are indexed by discovery position so the merge order never
	// depends on which worker finishes first.
	results := make([]outcome, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i, e := range entries {
		i, e := i, e
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			table, err := r.processArchive(gctx, e)
			results[i] = outcome{table: table, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		r.logger.Info("run interrupted, output not written")
		return nil, err
	}

	var tables []chat.ConversationTable
	for i, e := range entries {
		res := results[i]
		if res.err != nil {
			if errors.Is(res.err, context.Canceled) || errors.Is(res.err, context.DeadlineExceeded) {
				return nil, res.err
			}
			r.logger.Warn("skipping archive", "archive", e.Identity, "error", res.err)
			rep.addSkipped(e.Identity, res.err)
			continue
		}
		r.logger.Info("archive processed",
			"archive", e.Identity,
			"label", res.table.Label,
			"records", len(res.table.Records),
			"orphaned_lines", res.table.Stats.Orphaned,
		)
		rep.addProcessed(e.Identity, res.table)
		tables = append(tables, res.table)
	}

	ds, err := dataset.Merge(r.cfg.Owner, tables)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	if err := dataset.WriteFile(r.cfg.Output, ds); err != nil {
		return nil, fmt.Errorf("write dataset: %w", err)
	}
	rep.finish(ds)

	if r.cfg.ReportPath != "" {
		if err := rep.Save(r.cfg.ReportPath); err != nil {
			r.logger.Warn("failed to save run report", "path", r.cfg.ReportPath, "error", err)
		}
	}

	for _, s := range r.sinks {
		if err := s.Publish(ctx, ds, rep); err != nil {
			r.logger.Warn("sink failed", "sink", s.Name(), "error", err)
			continue
		}
		r.logger.Info("sink published", "sink", s.Name())
	}

	r.logger.Info("run complete",
		"run_id", rep.RunID,
		"archives_processed", rep.Processed,
		"archives_skipped", rep.Skipped,
		"records", rep.Records,
		"output", r.cfg.Output,
	)
	if r.stdout != nil {
		fmt.Fprint(r.stdout, FormatSummary(rep))
	}

	return rep, nil
}

// processArchive extracts, labels and assembles one archive. The work
// directory is removed on every return path.
func (r *Runner) processArchive(ctx context.Context, e archive.Entry) (chat.ConversationTable, error) {
	started := time.Now()

	ws, err := r.extractor.Extract(e)
	if err != nil {
		return chat.ConversationTable{}, err
	}
	defer ws.Close()

	label, err := labeler.Resolve(ctx, r.labels, labeler.Request{
		Identity:       e.Identity,
		TranscriptPath: ws.Transcript,
		Owner:          r.cfg.Owner,
	})
	if err != nil {
		return chat.ConversationTable{}, err
	}

	table, err := chat.ParseTranscript(label, ws.Transcript, r.classifier)
	if err != nil {
		return chat.ConversationTable{}, err
	}
	table.Source = e.Identity

	r.logger.Debug("transcript assembled",
		"archive", e.Identity,
		"lines", table.Stats.Lines,
		"headers", table.Stats.Headers,
		"elapsed", time.Since(started),
	)
	return table, nil
}
