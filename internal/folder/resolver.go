// Package folder resolves a Drive folder by name, creating it when absent.
package folder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/vocos/attendance-go/internal/drive"
)

// ErrFolderNotFound is returned by Lookup when no folder has the given name.
var ErrFolderNotFound = errors.New("folder: not found")

// API is the subset of the Drive client the resolver needs.
type API interface {
	List(ctx context.Context, query, fields string) ([]drive.File, error)
	Create(ctx context.Context, meta drive.FileMetadata, fields string) (*drive.File, error)
}

// Resolver maps folder names to IDs. It keeps no cache: every call asks
// the provider, so a folder deleted or renamed remotely is noticed on the
// next save. Concurrent calls for the same name inside one process share a
// single lookup, which keeps a double-submitted form from creating two
// folders.
type Resolver struct {
	api    API
	logger *slog.Logger
	group  singleflight.Group
}

// NewResolver returns a Resolver backed by api.
func NewResolver(api API, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}

	return &Resolver{api: api, logger: logger}
}

// Resolve returns the ID of the non-trashed folder named name, creating it
// if none exists. With several matches the first one returned by the
// provider wins.
//
// The shared lookup runs detached from any one caller's cancellation, so a
// caller that gives up does not fail the others waiting on it. Each caller
// still returns as soon as its own ctx is done.
func (r *Resolver) Resolve(ctx context.Context, name string) (string, error) {
	ch := r.group.DoChan(name, func() (any, error) {
		return r.resolve(context.WithoutCancel(ctx), name)
	})

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("folder: resolving %q: %w", name, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}

		if res.Shared {
			r.logger.Debug("folder resolution shared with concurrent caller", slog.String("name", name))
		}

		return res.Val.(string), nil //nolint:forcetypeassert // resolve only returns strings
	}
}

func (r *Resolver) resolve(ctx context.Context, name string) (string, error) {
	id, err := r.Lookup(ctx, name)
	if err == nil {
		return id, nil
	}

	if !errors.Is(err, ErrFolderNotFound) {
		return "", err
	}

	r.logger.Info("folder not found, creating", slog.String("name", name))

	created, err := r.api.Create(ctx, drive.FileMetadata{
		Name:     name,
		MimeType: drive.FolderMimeType,
	}, "id")
	if err != nil {
		return "", fmt.Errorf("folder: creating %q: %w", name, err)
	}

	r.logger.Info("folder created",
		slog.String("name", name),
		slog.String("folder_id", created.ID),
	)

	return created.ID, nil
}

// Lookup returns the ID of the first non-trashed folder named name without
// creating anything.
func (r *Resolver) Lookup(ctx context.Context, name string) (string, error) {
	matches, err := r.api.List(ctx, Query(name), "id,name")
	if err != nil {
		return "", fmt.Errorf("folder: looking up %q: %w", name, err)
	}

	if len(matches) == 0 {
		return "", ErrFolderNotFound
	}

	if len(matches) > 1 {
		r.logger.Warn("multiple folders share the name, using the first",
			slog.String("name", name),
			slog.Int("matches", len(matches)),
		)
	}

	r.logger.Debug("folder found",
		slog.String("name", name),
		slog.String("folder_id", matches[0].ID),
	)

	return matches[0].ID, nil
}

// Query is the Drive search expression for a non-trashed folder named name.
func Query(name string) string {
	return "name = " + drive.QuoteQueryValue(name) +
		" and mimeType = " + drive.QuoteQueryValue(drive.FolderMimeType) +
		" and trashed = false"
}

// ChildrenQuery is the Drive search expression for non-trashed files inside
// the folder with the given ID.
func ChildrenQuery(folderID string) string {
	return drive.QuoteQueryValue(folderID) + " in parents and trashed = false"
}
