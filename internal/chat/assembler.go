package chat

import (
	"strings"
)

// Assemble folds the lines of one transcript into a conversation table.
// lines must already exclude the preamble. Continuation lines are appended to
// the open message with no separator; a message is emitted when the next
// header or the end of input is reached.
func Assemble(label string, lines []RawLine, cls Classifier) ConversationTable {
	table := ConversationTable{
		Label:   label,
		Columns: append([]string(nil), Columns...),
	}

	var (
		open      bool
		current   ParsedHeader
		fragments []string
	)

	flush := func() {
		if !open || len(fragments) == 0 {
			return
		}
		table.Records = append(table.Records, MessageRecord{
			Conversation: label,
			Date:         current.Date,
			Time:         current.Time,
			Sender:       current.Sender,
			Body:         strings.Join(fragments, ""),
		})
	}

	for _, line := range lines {
		table.Stats.Lines++
		text := strings.TrimSpace(line.Text)

		if hdr, ok := cls.Classify(text); ok {
			flush()
			table.Stats.Headers++
			open = true
			current = hdr
			fragments = []string{hdr.Fragment}
			continue
		}

		if !open {
			// Nothing to attach to yet.
			table.Stats.Orphaned++
			continue
		}
		table.Stats.Continuation++
		fragments = append(fragments, text)
	}

	flush()
	return table
}
