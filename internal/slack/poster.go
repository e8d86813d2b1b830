package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

// RunSummary is what gets reported after an ingestion run.
type RunSummary struct {
	RunID         string
	Processed     int
	Skipped       int
	Records       int
	Output        string
	Conversations []Conversation
	Failures      []Failure
}

type Conversation struct {
	Label    string
	Messages int
}

type Failure struct {
	Archive string
	Kind    string
	Error   string
}

type Poster struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string
}

func NewPoster(token, channel string, logger *slog.Logger) *Poster {
	return &Poster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// PostRunSummary posts the outcome of a run to the channel.
// Returns the message timestamp (ts).
func (p *Poster) PostRunSummary(ctx context.Context, s RunSummary) (string, error) {
	text := formatRunMessage(s)

	body, err := json.Marshal(map[string]any{
		"channel": p.channel,
		"text":    text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": text,
				},
			},
			{
				"type": "context",
				"elements": []map[string]any{
					{
						"type": "mrkdwn",
						"text": "Output: `" + s.Output + "`",
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return "", fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return "", fmt.Errorf("slack error: %s", slackResp.Error)
	}

	p.logger.Info("posted run summary to slack", "ts", slackResp.TS, "run_id", s.RunID)
	return slackResp.TS, nil
}

func formatRunMessage(s RunSummary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*Chat export ingested* (run `%s`)\n", s.RunID)
	fmt.Fprintf(&sb, "Archives: %d processed, %d skipped | Messages: %d\n", s.Processed, s.Skipped, s.Records)

	if len(s.Conversations) > 0 {
		sb.WriteString("\n*Conversations*\n")
		for _, c := range s.Conversations {
			fmt.Fprintf(&sb, "  - %s: %d\n", c.Label, c.Messages)
		}
	}

	if len(s.Failures) > 0 {
		sb.WriteString("\n*Skipped archives*\n")
		for _, f := range s.Failures {
			fmt.Fprintf(&sb, "  - %s [%s]: %s\n", f.Archive, f.Kind, f.Error)
		}
	}

	if len(s.Conversations) == 0 && len(s.Failures) == 0 {
		sb.WriteString("_No archives found._\n")
	}
	return sb.String()
}
