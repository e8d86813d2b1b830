package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-runewidth"

	"github.com/MikeSquared-Agency/chatlog/internal/archive"
	"github.com/MikeSquared-Agency/chatlog/internal/chat"
	"github.com/MikeSquared-Agency/chatlog/internal/dataset"
	"github.com/MikeSquared-Agency/chatlog/internal/labeler"
)

// Archive outcome statuses.
const (
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
)

// Report summarizes one run.
type Report struct {
	RunID         uuid.UUID                   `json:"run_id"`
	StartedAt     time.Time                   `json:"started_at"`
	FinishedAt    time.Time                   `json:"finished_at"`
	InputDir      string                      `json:"input_dir"`
	Output        string                      `json:"output"`
	Owner         string                      `json:"owner,omitempty"`
	Processed     int                         `json:"archives_processed"`
	Skipped       int                         `json:"archives_skipped"`
	Records       int                         `json:"records"`
	Archives      []ArchiveOutcome            `json:"archives"`
	Conversations []dataset.ConversationCount `json:"conversations"`
}

// ArchiveOutcome is the result of one archive.
type ArchiveOutcome struct {
	Archive   string `json:"archive"`
	Status    string `json:"status"`
	Label     string `json:"label,omitempty"`
	Records   int    `json:"records"`
	ErrorKind string `json:"error_kind,omitempty"`
	Error     string `json:"error,omitempty"`
}

func newReport(runID uuid.UUID, cfg Config) *Report {
	return &Report{
		RunID:     runID,
		StartedAt: time.Now().UTC(),
		InputDir:  cfg.InputDir,
		Output:    cfg.Output,
		Owner:     cfg.Owner,
	}
}

func (r *Report) addProcessed(archiveID string, t chat.ConversationTable) {
	r.Processed++
	r.Archives = append(r.Archives, ArchiveOutcome{
		Archive: archiveID,
		Status:  StatusProcessed,
		Label:   t.Label,
		Records: len(t.Records),
	})
}

func (r *Report) addSkipped(archiveID string, err error) {
	r.Skipped++
	r.Archives = append(r.Archives, ArchiveOutcome{
		Archive:   archiveID,
		Status:    StatusSkipped,
		ErrorKind: ErrorKind(err),
		Error:     err.Error(),
	})
}

func (r *Report) finish(ds *dataset.Dataset) {
	r.FinishedAt = time.Now().UTC()
	r.Records = len(ds.Records)
	r.Conversations = ds.Counts()
}

// ErrorKind classifies a per-archive failure.
func ErrorKind(err error) string {
	var (
		decodeErr *chat.DecodeError
		structErr *archive.StructuralError
		ioErr     *archive.IOError
	)
	switch {
	case errors.As(err, &decodeErr):
		return "decode"
	case errors.As(err, &structErr):
		return "structural"
	case errors.As(err, &ioErr):
		return "io"
	case errors.Is(err, labeler.ErrEmptyLabel):
		return "label"
	default:
		return "error"
	}
}

// Save writes the report as indented JSON.
func (r *Report) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// LoadReport reads a report written by Save.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	return &r, nil
}

// FormatSummary renders the report as a plain-text table for the terminal.
func FormatSummary(r *Report) string {
	var sb strings.Builder
	sb.WriteString("\n=== Ingestion Summary ===\n")
	fmt.Fprintf(&sb, "Run: %s\n", r.RunID)
	fmt.Fprintf(&sb, "Archives processed: %d\n", r.Processed)
	fmt.Fprintf(&sb, "Archives skipped: %d\n", r.Skipped)
	fmt.Fprintf(&sb, "Messages: %d\n", r.Records)
	fmt.Fprintf(&sb, "Output: %s\n", r.Output)

	if len(r.Archives) > 0 {
		rows := [][]string{{"Archive", "Status", "Label", "Messages"}}
		for _, a := range r.Archives {
			label := a.Label
			if a.Status == StatusSkipped {
				label = a.ErrorKind
			}
			rows = append(rows, []string{a.Archive, a.Status, label, fmt.Sprint(a.Records)})
		}
		sb.WriteString("\n")
		writeTable(&sb, rows)
	}

	for _, a := range r.Archives {
		if a.Error != "" {
			fmt.Fprintf(&sb, "  ! %s: %s\n", a.Archive, a.Error)
		}
	}
	return sb.String()
}

// writeTable pads columns by display width so labels with emoji or CJK
// characters still line up.
func writeTable(sb *strings.Builder, rows [][]string) {
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for _, row := range rows {
		for i, cell := range row {
			if i == len(row)-1 {
				sb.WriteString(cell)
				break
			}
			sb.WriteString(runewidth.FillRight(cell, widths[i]))
			sb.WriteString("  ")
		}
		sb.WriteString("\n")
	}
}
