package archive

import (
	"log/slog"
	"os"
	"sync"
)

// Workspace is the extracted contents of one archive.
type Workspace struct {
	Entry      Entry
	Dir        string
	Transcript string

	logger *slog.Logger
	once   sync.Once
}

// Close removes every extracted file and the work directory. Failures are
// logged and never returned. Safe to call more than once.
func (w *Workspace) Close() {
	if w == nil {
		return
	}
	w.once.Do(func() {
		if err := os.RemoveAll(w.Dir); err != nil {
			w.logger.Warn("failed to clean up work dir", "archive", w.Entry.Identity, "dir", w.Dir, "error", err)
		}
	})
}
