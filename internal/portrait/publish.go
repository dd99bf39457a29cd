package portrait

import (
	"context"
	"fmt"
	"github.com/myrjola/portrait/internal/errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	reportPerm      = 0o640
	maxNameVariants = 1000
)

// Publish composes the report into dir and returns its path and page count. The report is written to a
// private temporary file first and appears under its final name only when complete. An existing report is
// never replaced: a taken [FileName] gets a numeric suffix.
func (c *Composer) Publish(ctx context.Context, doc Document, dir string) (string, int, error) {
	tmp, err := os.CreateTemp(dir, ".report-*.pdf")
	if err != nil {
		return "", 0, errors.Wrap(errors.Join(errors.ErrPDFBuildFailed, err), "create draft", slog.String("dir", dir))
	}
	draft := tmp.Name()
	published := false
	defer func() {
		if !published {
			_ = os.Remove(draft)
		}
	}()
	if err = tmp.Close(); err != nil {
		return "", 0, errors.Wrap(errors.Join(errors.ErrPDFBuildFailed, err), "close draft")
	}

	pages, err := c.Compose(ctx, doc, draft)
	if err != nil {
		return "", 0, err
	}
	if err = os.Chmod(draft, reportPerm); err != nil {
		return "", 0, errors.Wrap(errors.Join(errors.ErrPDFBuildFailed, err), "chmod draft")
	}
	path, err := claim(dir, FileName(doc.Date, doc.Respondent))
	if err != nil {
		return "", 0, errors.Wrap(errors.Join(errors.ErrPDFBuildFailed, err), "claim report name")
	}
	// The claimed placeholder is ours alone, so replacing it cannot clobber another report.
	if err = os.Rename(draft, path); err != nil {
		_ = os.Remove(path)
		return "", 0, errors.Wrap(errors.Join(errors.ErrPDFBuildFailed, err), "publish report",
			slog.String("path", path))
	}
	published = true
	c.logger.LogAttrs(ctx, slog.LevelDebug, "report published", slog.String("path", path))
	return path, pages, nil
}

// claim creates an empty placeholder under the first free variant of name: name, name_2, name_3 and so on.
func claim(dir, name string) (string, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for n := 1; n <= maxNameVariants; n++ {
		candidate := name
		if n > 1 {
			candidate = fmt.Sprintf("%s_%d%s", base, n, ext)
		}
		path := filepath.Join(dir, candidate)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, reportPerm)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", errors.Wrap(err, "create placeholder", slog.String("path", path))
		}
		if err = f.Close(); err != nil {
			return "", errors.Wrap(err, "close placeholder", slog.String("path", path))
		}
		return path, nil
	}
	return "", errors.New("no free report name", slog.String("name", name))
}
