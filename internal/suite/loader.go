package suite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/posgridgo/internal/ctxlog"
	"github.com/specialistvlad/posgridgo/internal/fsutil"
)

// Loader reads suites from files or directories.
type Loader interface {
	Load(ctx context.Context, paths ...string) (*Suite, error)
}

// Decoder turns the content of one file into a suite. The result is merged
// and validated by the caller.
type Decoder interface {
	// Extensions lists the file extensions handled, including the dot.
	Extensions() []string
	Decode(ctx context.Context, filename string, data []byte) (*Suite, error)
}

// MultiLoader dispatches files to decoders by extension.
type MultiLoader struct {
	decoders map[string]Decoder
	exts     []string
}

// NewMultiLoader creates a loader for every extension of the decoders. A
// later decoder wins when two claim the same extension.
func NewMultiLoader(decoders ...Decoder) *MultiLoader {
	l := &MultiLoader{decoders: make(map[string]Decoder)}
	for _, d := range decoders {
		for _, ext := range d.Extensions() {
			if _, ok := l.decoders[ext]; !ok {
				l.exts = append(l.exts, ext)
			}
			l.decoders[ext] = d
		}
	}
	return l
}

// Load decodes every suite file found under paths, merges them in path order
// and validates the result. Directories are searched recursively. A path
// that does not exist is an error.
func (l *MultiLoader) Load(ctx context.Context, paths ...string) (*Suite, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Suite loader started.", "path_count", len(paths))

	files, err := l.findFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no suite files (%s) found in %s", strings.Join(l.exts, ", "), strings.Join(paths, ", "))
	}
	logger.Debug("Discovered suite files.", "count", len(files))

	merged := &Suite{}
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read suite file %s: %w", file, err)
		}
		decoder := l.decoderFor(file)
		s, err := decoder.Decode(ctx, file, data)
		if err != nil {
			return nil, err
		}
		if err := merged.Merge(s); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
	}

	if err := Validate(merged); err != nil {
		return nil, err
	}
	logger.Debug("Suite loading complete.", "programs", len(merged.Programs))
	return merged, nil
}

// findFiles returns the suite files under paths, deduplicated. Files inside
// one directory are sorted so programs load in a stable order.
func (l *MultiLoader) findFiles(paths []string) ([]string, error) {
	var all []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			all = append(all, p)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		if !info.IsDir() {
			if !fsutil.HasExtension(path, l.exts...) {
				return nil, fmt.Errorf("unsupported suite file %s: expected one of %s", path, strings.Join(l.exts, ", "))
			}
			add(path)
			continue
		}

		found, err := fsutil.FindFilesByExtension(path, l.exts...)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			add(f)
		}
	}
	return all, nil
}

func (l *MultiLoader) decoderFor(file string) Decoder {
	ext := filepath.Ext(file)
	if d, ok := l.decoders[ext]; ok {
		return d
	}
	for _, e := range l.exts {
		if strings.HasSuffix(file, e) {
			return l.decoders[e]
		}
	}
	return nil
}
