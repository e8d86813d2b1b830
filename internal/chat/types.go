package chat

import (
	"fmt"
	"time"
)

// Layout of Date and Time joined by a single space, as written in exports.
const timestampLayout = "02.01.06 15:04"

// RawLine is a single transcript line with its 1-based position in the file.
type RawLine struct {
	Number int
	Text   string
}

// ParsedHeader holds the fields of a line that starts a new message.
type ParsedHeader struct {
	Date     string // DD.MM.YY
	Time     string // HH:MM, 24h
	Sender   string
	Fragment string // message text on the header line itself
}

// MessageRecord is one normalized message.
type MessageRecord struct {
	Conversation string
	Date         string
	Time         string
	Sender       string
	Body         string
}

// Timestamp parses Date and Time. Exports carry no zone, so the result is UTC.
func (m MessageRecord) Timestamp() (time.Time, error) {
	ts, err := time.Parse(timestampLayout, m.Date+" "+m.Time)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q %q: %w", m.Date, m.Time, err)
	}
	return ts, nil
}

// Row returns the record in column order.
func (m MessageRecord) Row() []string {
	return []string{m.Conversation, m.Date, m.Time, m.Sender, m.Body}
}

// Columns is the fixed schema of every conversation table and of the unified dataset.
var Columns = []string{"Conversation", "Date", "Time", "Sender", "Message"}

// ConversationTable is the ordered set of records from one transcript.
type ConversationTable struct {
	Label   string
	Source  string // archive identity or transcript path
	Columns []string
	Records []MessageRecord
	Stats   Stats
}

// Stats counts what the assembler saw while folding a transcript.
type Stats struct {
	Lines        int // lines after the preamble
	Headers      int
	Continuation int
	Orphaned     int // continuation lines before the first header
}
