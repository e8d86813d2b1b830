// Package dataset merges per-conversation tables into the unified message
// dataset and reads and writes it as CSV.
package dataset

import (
	"fmt"
	"slices"

	"github.com/MikeSquared-Agency/chatlog/internal/chat"
)

// SchemaError reports a conversation table whose columns differ from the unified schema.
type SchemaError struct {
	Conversation string
	Columns      []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("conversation %q: columns %v do not match schema %v", e.Conversation, e.Columns, chat.Columns)
}

// Dataset is the ordered concatenation of every conversation of one run.
type Dataset struct {
	Owner   string
	Columns []string
	Records []chat.MessageRecord
}

// Merge concatenates tables in the given order, keeping the row order of each.
// A table with a foreign schema aborts the merge.
func Merge(owner string, tables []chat.ConversationTable) (*Dataset, error) {
	total := 0
	for _, t := range tables {
		if !slices.Equal(t.Columns, chat.Columns) {
			return nil, &SchemaError{Conversation: t.Label, Columns: t.Columns}
		}
		total += len(t.Records)
	}

	ds := &Dataset{
		Owner:   owner,
		Columns: slices.Clone(chat.Columns),
		Records: make([]chat.MessageRecord, 0, total),
	}
	for _, t := range tables {
		ds.Records = append(ds.Records, t.Records...)
	}
	return ds, nil
}

// ConversationCount is the number of messages in one conversation, split by
// whether the owner sent them.
type ConversationCount struct {
	Conversation string `json:"conversation"`
	Messages     int    `json:"messages"`
	Owner        int    `json:"owner"`
	Other        int    `json:"other"`
}

// Counts returns per-conversation totals in order of first appearance.
func (d *Dataset) Counts() []ConversationCount {
	index := make(map[string]int)
	var counts []ConversationCount
	for _, r := range d.Records {
		i, ok := index[r.Conversation]
		if !ok {
			i = len(counts)
			index[r.Conversation] = i
			counts = append(counts, ConversationCount{Conversation: r.Conversation})
		}
		counts[i].Messages++
		if d.Owner != "" && r.Sender == d.Owner {
			counts[i].Owner++
		} else {
			counts[i].Other++
		}
	}
	return counts
}
