// Package archive discovers chat-export zip archives, unpacks each into its own
// work directory and locates the transcript inside.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

const (
	containerExt  = ".zip"
	transcriptExt = ".txt"
)

// StructuralError reports an archive that does not contain exactly one transcript.
type StructuralError struct {
	Archive string
	Found   []string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("archive %s: expected exactly one %s transcript, found %d", e.Archive, transcriptExt, len(e.Found))
}

// IOError wraps a filesystem failure while extracting an archive.
type IOError struct {
	Archive string
	Op      string
	Err     error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("archive %s: %s: %v", e.Archive, e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Entry is a discovered archive.
type Entry struct {
	Path     string
	Identity string // file name without the container extension
}

// Extractor unpacks archives below a work root.
type Extractor struct {
	workRoot string
	logger   *slog.Logger
}

// New creates an Extractor. Work directories are created below workRoot.
func New(workRoot string, logger *slog.Logger) *Extractor {
	return &Extractor{workRoot: workRoot, logger: logger}
}

// Discover lists the valid archives in dir, ordered by file name.
// Entries that are not readable zip containers are skipped.
func (x *Extractor) Discover(dir string) ([]Entry, error) {
	infos, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}

	var entries []Entry
	for _, info := range infos {
		if !info.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, info.Name())
		if !isZip(path) {
			x.logger.Debug("skipping non-archive entry", "path", path)
			continue
		}
		entries = append(entries, Entry{
			Path:     path,
			Identity: identity(info.Name()),
		})
	}

	// os.ReadDir already sorts, keep the order explicit.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
	return entries, nil
}

func isZip(path string) bool {
	r, err := zip.OpenReader(path)
	if err != nil {
		return false
	}
	r.Close()
	return true
}

func identity(name string) string {
	if strings.EqualFold(filepath.Ext(name), containerExt) {
		return name[:len(name)-len(containerExt)]
	}
	return name
}

// Extract unpacks an archive into a fresh work directory and locates its
// transcript. The caller must Close the returned workspace. On error no
// work directory is left behind.
func (x *Extractor) Extract(e Entry) (*Workspace, error) {
	dir := filepath.Join(x.workRoot, fmt.Sprintf("%s_%s", sanitize(e.Identity), uuid.NewString()))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &IOError{Archive: e.Identity, Op: "create work dir", Err: err}
	}

	ws := &Workspace{Entry: e, Dir: dir, logger: x.logger}
	fail := func(err error) (*Workspace, error) {
		ws.Close()
		return nil, err
	}

	if err := unzip(e.Path, dir); err != nil {
		return fail(&IOError{Archive: e.Identity, Op: "extract", Err: err})
	}

	found, err := findTranscripts(dir)
	if err != nil {
		return fail(&IOError{Archive: e.Identity, Op: "scan", Err: err})
	}
	if len(found) != 1 {
		return fail(&StructuralError{Archive: e.Identity, Found: found})
	}
	ws.Transcript = found[0]

	x.logger.Debug("archive extracted", "archive", e.Identity, "dir", dir, "transcript", ws.Transcript)
	return ws, nil
}

func unzip(src, dest string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer r.Close()

	base := filepath.Clean(dest)
	root := base + string(os.PathSeparator)
	for _, f := range r.File {
		target := filepath.Join(dest, f.Name)
		if target == base {
			continue
		}
		if !strings.HasPrefix(target, root) {
			return fmt.Errorf("entry %q escapes the work dir", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := writeEntry(f, target); err != nil {
			return fmt.Errorf("entry %q: %w", f.Name, err)
		}
	}
	return nil
}

func writeEntry(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func findTranscripts(dir string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(d.Name()), transcriptExt) {
			found = append(found, path)
		}
		return nil
	})
	sort.Strings(found)
	return found, err
}

// sanitize keeps work dir names to a single path element.
func sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, s)
	if s == "" || s == "." || s == ".." {
		return "archive"
	}
	return s
}
