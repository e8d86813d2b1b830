package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MikeSquared-Agency/chatlog/internal/config"
	"github.com/MikeSquared-Agency/chatlog/internal/dataset"
	"github.com/MikeSquared-Agency/chatlog/internal/hermes"
	"github.com/MikeSquared-Agency/chatlog/internal/pipeline"
	"github.com/MikeSquared-Agency/chatlog/internal/slack"
	"github.com/MikeSquared-Agency/chatlog/internal/store"
)

// buildSinks connects the optional outputs that are configured. The returned
// func closes every connection that was opened.
func buildSinks(ctx context.Context, cfg config.Config, logger *slog.Logger) ([]pipeline.Sink, func(), error) {
	var (
		sinks   []pipeline.Sink
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// Database (optional)
	if cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		closers = append(closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("migrate database: %w", err)
		}
		logger.Info("database connected")
		sinks = append(sinks, storeSink(db))
	}

	// NATS/Hermes (optional)
	if cfg.NatsURL != "" {
		hc, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, logger)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("connect nats: %w", err)
		}
		closers = append(closers, hc.Close)
		logger.Info("NATS connected", "url", cfg.NatsURL)
		sinks = append(sinks, hermesSink(hc))
	}

	// Slack (optional)
	if cfg.SlackToken != "" && cfg.SlackChannel != "" {
		sinks = append(sinks, slackSink(slack.NewPoster(cfg.SlackToken, cfg.SlackChannel, logger)))
		logger.Info("slack poster ready", "channel", cfg.SlackChannel)
	}

	return sinks, closeAll, nil
}

func storeSink(db *store.Store) pipeline.Sink {
	return pipeline.SinkFunc{SinkName: "postgres", Fn: func(ctx context.Context, ds *dataset.Dataset, rep *pipeline.Report) error {
		return db.ReplaceDataset(ctx, store.RunSummary{
			RunID:      rep.RunID,
			StartedAt:  rep.StartedAt,
			FinishedAt: rep.FinishedAt,
			Processed:  rep.Processed,
			Skipped:    rep.Skipped,
		}, ds)
	}}
}

func hermesSink(hc *hermes.Client) pipeline.Sink {
	return pipeline.SinkFunc{SinkName: "nats", Fn: func(ctx context.Context, ds *dataset.Dataset, rep *pipeline.Report) error {
		return hc.PublishDatasetReady(ctx, datasetReadyEvent(rep))
	}}
}

func slackSink(p *slack.Poster) pipeline.Sink {
	return pipeline.SinkFunc{SinkName: "slack", Fn: func(ctx context.Context, ds *dataset.Dataset, rep *pipeline.Report) error {
		_, err := p.PostRunSummary(ctx, runSummary(rep))
		return err
	}}
}

func datasetReadyEvent(rep *pipeline.Report) hermes.DatasetReady {
	convs := make(map[string]int, len(rep.Conversations))
	for _, c := range rep.Conversations {
		convs[c.Conversation] = c.Messages
	}
	return hermes.DatasetReady{
		RunID:         rep.RunID.String(),
		Output:        rep.Output,
		Owner:         rep.Owner,
		Records:       rep.Records,
		Processed:     rep.Processed,
		Skipped:       rep.Skipped,
		Conversations: convs,
		FinishedAt:    rep.FinishedAt,
	}
}

func runSummary(rep *pipeline.Report) slack.RunSummary {
	s := slack.RunSummary{
		RunID:     rep.RunID.String(),
		Processed: rep.Processed,
		Skipped:   rep.Skipped,
		Records:   rep.Records,
		Output:    rep.Output,
	}
	for _, c := range rep.Conversations {
		s.Conversations = append(s.Conversations, slack.Conversation{Label: c.Conversation, Messages: c.Messages})
	}
	for _, a := range rep.Archives {
		if a.Status == pipeline.StatusSkipped {
			s.Failures = append(s.Failures, slack.Failure{Archive: a.Archive, Kind: a.ErrorKind, Error: a.Error})
		}
	}
	return s
}
