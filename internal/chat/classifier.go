package chat

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnknownDialect is returned for a dialect name no classifier implements.
var ErrUnknownDialect = errors.New("unknown export dialect")

// Dialect names an export format variant.
type Dialect string

const (
	// DialectDotted is "DD.MM.YY, HH:MM - Sender: Message" with two lines of
	// export metadata at the top of the file.
	DialectDotted Dialect = "dotted"
)

// Classifier decides whether a line begins a new message.
type Classifier interface {
	// Classify returns the decoded header and true, or false for a continuation line.
	// The line must already be trimmed.
	Classify(line string) (ParsedHeader, bool)
	// PreambleLines is the number of leading lines skipped unconditionally.
	PreambleLines() int
}

// NewClassifier returns the classifier for a dialect.
func NewClassifier(d Dialect) (Classifier, error) {
	switch d {
	case DialectDotted, "":
		return dottedClassifier{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDialect, d)
	}
}

// ParseDialect normalizes a configured dialect name.
func ParseDialect(s string) (Dialect, error) {
	d := Dialect(strings.ToLower(strings.TrimSpace(s)))
	if _, err := NewClassifier(d); err != nil {
		return "", err
	}
	if d == "" {
		d = DialectDotted
	}
	return d, nil
}

var dottedHeader = regexp.MustCompile(`^(\d{2}\.\d{2}\.\d{2}), (\d{2}:\d{2}) - (.+?): (.+)`)

type dottedClassifier struct{}

func (dottedClassifier) Classify(line string) (ParsedHeader, bool) {
	m := dottedHeader.FindStringSubmatch(line)
	if m == nil {
		return ParsedHeader{}, false
	}
	return ParsedHeader{
		Date:     m[1],
		Time:     m[2],
		Sender:   m[3],
		Fragment: m[4],
	}, true
}

func (dottedClassifier) PreambleLines() int { return 2 }
