package labeler

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/MikeSquared-Agency/chatlog/internal/chat"
)

// ErrUnknownProvider is returned by Build for an unrecognized provider name.
var ErrUnknownProvider = errors.New("unknown label provider")

// Options carries what the named providers need.
type Options struct {
	In         io.Reader
	Out        io.Writer
	LabelFile  string
	Classifier chat.Classifier
}

// Build chains the providers named in names, in order.
// Known names: prompt, static, derived, counterpart.
func Build(names []string, opts Options) (Provider, error) {
	var chain Chain
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		switch name {
		case "":
			continue
		case "prompt":
			chain = append(chain, NewPrompt(opts.In, opts.Out))
		case "static":
			if opts.LabelFile == "" {
				return nil, fmt.Errorf("static label provider needs a label file")
			}
			s, err := LoadStatic(opts.LabelFile)
			if err != nil {
				return nil, err
			}
			chain = append(chain, s)
		case "derived":
			chain = append(chain, Derived{})
		case "counterpart":
			chain = append(chain, Counterpart{Classifier: opts.Classifier})
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, raw)
		}
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("%w: none configured", ErrUnknownProvider)
	}
	return chain, nil
}
