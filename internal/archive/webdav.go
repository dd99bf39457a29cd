// Package archive stores a copy of every report on a WebDAV share.
package archive

import (
	"context"
	"github.com/myrjola/portrait/internal/errors"
	"github.com/studio-b12/gowebdav"
	"log/slog"
	"os"
	"path"
	"time"
)

// Uploader copies a local file to the archive under name.
type Uploader interface {
	Upload(ctx context.Context, localPath, name string) error
}

type WebDAV struct {
	client *gowebdav.Client
	folder string
	logger *slog.Logger
}

// NewWebDAV creates an uploader for the share at url. Files go into folder, which is created on demand.
func NewWebDAV(logger *slog.Logger, url, user, password, folder string, timeout time.Duration) *WebDAV {
	client := gowebdav.NewClient(url, user, password)
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &WebDAV{client: client, folder: path.Join("/", folder), logger: logger}
}

// Upload returns an error wrapping errors.ErrUploadFailed on failure.
func (w *WebDAV) Upload(ctx context.Context, localPath, name string) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(errors.Join(errors.ErrUploadFailed, err), "upload cancelled")
	}
	f, err := os.Open(localPath)
	if err != nil {
		return errors.Wrap(errors.Join(errors.ErrUploadFailed, err), "open report", slog.String("path", localPath))
	}
	defer f.Close()

	if err = w.client.MkdirAll(w.folder, 0o755); err != nil { //nolint:mnd // remote collection
		return errors.Wrap(errors.Join(errors.ErrUploadFailed, err), "create archive folder",
			slog.String("folder", w.folder))
	}
	remote := path.Join(w.folder, name)
	if err = w.client.WriteStream(remote, f, 0o644); err != nil { //nolint:mnd // remote file
		return errors.Wrap(errors.Join(errors.ErrUploadFailed, err), "write report", slog.String("remote", remote))
	}
	w.logger.LogAttrs(ctx, slog.LevelInfo, "report archived", slog.String("remote", remote))
	return nil
}
