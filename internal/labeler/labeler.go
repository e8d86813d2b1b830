// Package labeler decides the conversation label attached to every message of
// an extracted transcript.
package labeler

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/chatlog/internal/chat"
)

// ErrEmptyLabel is returned when no provider produced a label.
var ErrEmptyLabel = errors.New("empty conversation label")

// Request describes the transcript that needs a label.
type Request struct {
	Identity       string // archive name without extension
	TranscriptPath string
	Owner          string // sender name of the dataset owner, may be empty
}

// Provider returns a label for a transcript. An empty label with a nil error
// means the provider has no opinion.
type Provider interface {
	Label(ctx context.Context, req Request) (string, error)
}

// Resolve asks p for a label and enforces that it is non-empty.
func Resolve(ctx context.Context, p Provider, req Request) (string, error) {
	label, err := p.Label(ctx, req)
	if err != nil {
		return "", fmt.Errorf("label %s: %w", req.Identity, err)
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return "", fmt.Errorf("label %s: %w", req.Identity, ErrEmptyLabel)
	}
	return label, nil
}

// Chain returns the first non-empty label of its providers.
type Chain []Provider

func (c Chain) Label(ctx context.Context, req Request) (string, error) {
	for _, p := range c {
		label, err := p.Label(ctx, req)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(label) != "" {
			return label, nil
		}
	}
	return "", nil
}

// Prompt asks a human for each label.
type Prompt struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

// NewPrompt reads answers from in and writes questions to out.
func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{in: bufio.NewReader(in), out: out}
}

func (p *Prompt) Label(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// Prompts from concurrent workers must not interleave.
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := fmt.Fprintf(p.out, "Enter the name of the chat - %s: ", req.Identity); err != nil {
		return "", fmt.Errorf("write prompt: %w", err)
	}
	answer, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

// Static maps archive identities to labels.
type Static map[string]string

func (s Static) Label(_ context.Context, req Request) (string, error) {
	return s[req.Identity], nil
}

// LoadStatic reads a YAML document mapping archive identity to label:
//
//	labels:
//	  "WhatsApp Chat with Ann": Ann
func LoadStatic(path string) (Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read label file: %w", err)
	}
	var doc struct {
		Labels map[string]string `yaml:"labels"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse label file: %w", err)
	}
	if doc.Labels == nil {
		return Static{}, nil
	}
	return Static(doc.Labels), nil
}

var exportPrefixes = []string{
	"WhatsApp Chat with ",
	"WhatsApp Chat mit ",
	"WhatsApp-Chat mit ",
	"WhatsApp-Chat with ",
}

// Derived strips the export tool's file name prefix from the identity.
type Derived struct{}

func (Derived) Label(_ context.Context, req Request) (string, error) {
	for _, prefix := range exportPrefixes {
		if strings.HasPrefix(req.Identity, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(req.Identity, prefix)), nil
		}
	}
	return "", nil
}

// Counterpart labels a transcript with its first sender that is not the owner.
type Counterpart struct {
	Classifier chat.Classifier
}

func (c Counterpart) Label(_ context.Context, req Request) (string, error) {
	if req.TranscriptPath == "" {
		return "", nil
	}
	lines, err := chat.ReadTranscript(req.TranscriptPath)
	if err != nil {
		return "", err
	}
	for _, line := range chat.SkipPreamble(lines, c.Classifier) {
		hdr, ok := c.Classifier.Classify(strings.TrimSpace(line.Text))
		if !ok {
			continue
		}
		if req.Owner == "" || hdr.Sender != req.Owner {
			return hdr.Sender, nil
		}
	}
	return "", nil
}
