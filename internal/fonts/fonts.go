// Package fonts locates a TrueType family able to render Cyrillic text for charts and the PDF.
package fonts

import (
	"github.com/golang/freetype/truetype"
	"github.com/myrjola/portrait/internal/errors"
	"log/slog"
	"os"
	"path/filepath"
)

// ErrNotFound is returned when no candidate face exists on disk.
var ErrNotFound = errors.NewSentinel("no unicode font found")

// Set is a regular and bold face pair. The paths are empty when nothing was found.
type Set struct {
	Regular string
	Bold    string
}

type family struct {
	regular string
	bold    string
}

var families = []family{ //nolint:gochecknoglobals // probe order
	{regular: "DejaVuSans.ttf", bold: "DejaVuSans-Bold.ttf"},
	{regular: "LiberationSans-Regular.ttf", bold: "LiberationSans-Bold.ttf"},
	{regular: "NotoSans-Regular.ttf", bold: "NotoSans-Bold.ttf"},
	{regular: "FreeSans.ttf", bold: "FreeSansBold.ttf"},
}

// SystemDirs lists the usual font locations on Linux hosts and containers.
var SystemDirs = []string{ //nolint:gochecknoglobals // probe order
	"/usr/share/fonts/truetype/dejavu",
	"/usr/share/fonts/dejavu",
	"/usr/share/fonts/TTF",
	"/usr/share/fonts/truetype/liberation",
	"/usr/share/fonts/liberation",
	"/usr/share/fonts/noto",
	"/usr/share/fonts/truetype/freefont",
}

// Probe returns the first family found in dirs. A missing bold face falls back to the regular one.
func Probe(dirs ...string) Set {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		for _, f := range families {
			regular := filepath.Join(dir, f.regular)
			if !exists(regular) {
				continue
			}
			set := Set{Regular: regular, Bold: regular}
			if bold := filepath.Join(dir, f.bold); exists(bold) {
				set.Bold = bold
			}
			return set
		}
	}
	return Set{}
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Available reports whether a face was found.
func (s Set) Available() bool {
	return s.Regular != ""
}

func (s Set) LogValue() slog.Value {
	return slog.GroupValue(slog.String("regular", s.Regular), slog.String("bold", s.Bold))
}

// Parse loads a TrueType face from disk.
func Parse(path string) (*truetype.Font, error) {
	if path == "" {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read font", slog.String("path", path))
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, errors.Wrap(err, "parse font", slog.String("path", path))
	}
	return f, nil
}
