package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/chatlog/internal/archive"
	"github.com/MikeSquared-Agency/chatlog/internal/chat"
	"github.com/MikeSquared-Agency/chatlog/internal/labeler"
)

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&chat.DecodeError{Path: "a.txt", Line: 3}, "decode"},
		{fmt.Errorf("wrapped: %w", &archive.StructuralError{Archive: "a"}), "structural"},
		{&archive.IOError{Archive: "a", Op: "extract", Err: errors.New("disk full")}, "io"},
		{fmt.Errorf("label x: %w", labeler.ErrEmptyLabel), "label"},
		{errors.New("other"), "error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorKind(tt.err), tt.err.Error())
	}
}

func TestFormatSummary_AlignsWideLabels(t *testing.T) {
	rep := &Report{RunID: uuid.New(), Output: "all_chats.csv"}
	rep.addProcessed("chat-1", chat.ConversationTable{Label: "家族", Records: make([]chat.MessageRecord, 12)})
	rep.addProcessed("chat-2", chat.ConversationTable{Label: "Work", Records: make([]chat.MessageRecord, 3)})
	rep.addSkipped("broken", &archive.StructuralError{Archive: "broken"})

	out := FormatSummary(rep)

	assert.Contains(t, out, "Archives processed: 2")
	assert.Contains(t, out, "Archives skipped: 1")
	assert.Contains(t, out, "! broken: archive broken: expected exactly one .txt transcript, found 0")

	var rows []string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "chat-") {
			rows = append(rows, line)
		}
	}
	require.Len(t, rows, 2)
	// "家族" is four columns wide, so both Messages cells start at the same column.
	assert.Equal(t, strings.Index(rows[1], "3"), strings.Index(strings.Replace(rows[0], "家族", "xxxx", 1), "12"))
}

func TestReport_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "report.json")
	rep := newReport(uuid.New(), Config{InputDir: "in", Output: "out.csv", Owner: "Martin"})
	rep.addProcessed("a", chat.ConversationTable{Label: "A"})

	require.NoError(t, rep.Save(path))

	loaded, err := LoadReport(path)
	require.NoError(t, err)
	assert.Equal(t, rep.RunID, loaded.RunID)
	assert.Equal(t, "Martin", loaded.Owner)
	require.Len(t, loaded.Archives, 1)
	assert.Equal(t, StatusProcessed, loaded.Archives[0].Status)

	_, err = LoadReport(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
