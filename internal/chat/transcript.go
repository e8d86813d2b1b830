package chat

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

const maxLineSize = 10 * 1024 * 1024

// DecodeError reports a transcript that is not valid UTF-8.
type DecodeError struct {
	Path string
	Line int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: invalid UTF-8 on line %d", e.Path, e.Line)
}

// ReadTranscript reads every line of a transcript file.
func ReadTranscript(path string) ([]RawLine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	var lines []RawLine
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	scanner.Split(scanLines)
	n := 0
	for scanner.Scan() {
		n++
		b := scanner.Bytes()
		if !utf8.Valid(b) {
			return nil, &DecodeError{Path: path, Line: n}
		}
		text := string(b)
		if n == 1 {
			text = strings.TrimPrefix(text, "\ufeff")
		}
		lines = append(lines, RawLine{Number: n, Text: text})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return lines, nil
}

// scanLines is bufio.ScanLines that also ends a line at a lone \r.
// The terminator is not part of the token.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if !atEOF {
			// Wait to see whether a \n follows.
			return 0, nil, nil
		}
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// SkipPreamble drops the classifier's leading metadata lines.
func SkipPreamble(lines []RawLine, cls Classifier) []RawLine {
	n := cls.PreambleLines()
	if n >= len(lines) {
		return nil
	}
	return lines[n:]
}

// ParseTranscript reads a transcript file and assembles it into a table tagged with label.
func ParseTranscript(label, path string, cls Classifier) (ConversationTable, error) {
	lines, err := ReadTranscript(path)
	if err != nil {
		return ConversationTable{}, err
	}
	table := Assemble(label, SkipPreamble(lines, cls), cls)
	table.Source = path
	return table, nil
}
