// Package app runs downloads: fetch every entity of one kind from a
// directory source and save them as JSON files.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/emanuelebuldrini/msgraph-fetcher/pkg/directory"
	"github.com/emanuelebuldrini/msgraph-fetcher/pkg/logging"
	"github.com/emanuelebuldrini/msgraph-fetcher/pkg/store"
)

// ErrSaveAborted is returned when the store could not prepare its target
// directory and nothing was written.
var ErrSaveAborted = errors.New("save aborted")

// ErrUnknownKind is returned for an unsupported entity kind.
var ErrUnknownKind = errors.New("unknown entity kind")

// Source lists directory entities. *graph.Client and *ldapdir.Source
// implement it.
type Source interface {
	Groups(ctx context.Context) ([]*directory.Group, error)
	Users(ctx context.Context) ([]*directory.User, error)
}

// Kind selects which entities to download.
type Kind string

const (
	KindGroups Kind = "groups"
	KindUsers  Kind = "users"
)

// ParseKind accepts "groups" and "users" in any case.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindGroups, KindUsers:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Subfolder is the folder below the store's base directory.
func (k Kind) Subfolder() string {
	switch k {
	case KindGroups:
		return "Groups"
	case KindUsers:
		return "Users"
	}
	return ""
}

func (k Kind) label() string {
	switch k {
	case KindGroups:
		return "group(s)"
	case KindUsers:
		return "user(s)"
	}
	return string(k)
}

// Outcome describes a finished download.
type Outcome struct {
	Kind Kind
	// Fetched is the number of entities returned by the source.
	Fetched int
	Result  store.Result
}

// App downloads entities into one base directory.
type App struct {
	baseDir string
	opts    []store.Option
	logger  zerolog.Logger
}

// New creates an App writing below baseDir. A blank baseDir selects
// store.DefaultBaseDir().
func New(baseDir string, opts ...store.Option) *App {
	return &App{
		baseDir: baseDir,
		opts:    opts,
		logger:  logging.NewLogger("app"),
	}
}

// Download fetches every entity of kind from source and saves them under
// the kind's subfolder, replacing an earlier download. A failed fetch
// saves nothing. Entities the store skips are logged and counted in the
// outcome but do not fail the download; an aborted save does.
func (a *App) Download(ctx context.Context, source Source, kind Kind) (Outcome, error) {
	if source == nil {
		return Outcome{Kind: kind}, errors.New("source is required")
	}

	switch kind {
	case KindGroups:
		return download(ctx, a, kind, source.Groups, directory.GroupName)
	case KindUsers:
		return download(ctx, a, kind, source.Users, directory.UserName)
	}
	return Outcome{Kind: kind}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

func download[T directory.Object](
	ctx context.Context,
	a *App,
	kind Kind,
	fetch func(context.Context) ([]T, error),
	nameOf directory.NameFunc[T],
) (Outcome, error) {
	out := Outcome{Kind: kind}
	logger := a.logger.With().Str("kind", string(kind)).Logger()

	logger.Info().Msgf("Fetching %s...", kind)
	entities, err := fetch(ctx)
	if err != nil {
		logger.Error().Err(err).Msgf("An error occurred while fetching %s", kind)
		return out, fmt.Errorf("fetch %s: %w", kind, err)
	}
	out.Fetched = len(entities)
	logger.Info().Int("count", out.Fetched).Msgf("%d %s fetched", out.Fetched, kind.label())

	logger.Info().Msgf("Saving %s...", kind)
	out.Result = store.New[T](a.baseDir).Save(entities, nameOf, kind.Subfolder(), a.opts...)

	for _, saveErr := range out.Result.Errors {
		logger.Warn().Err(saveErr).Msg("Error occurred while saving JSON files")
	}

	if out.Result.Aborted() {
		return out, fmt.Errorf("%w: %w", ErrSaveAborted, out.Result.Err())
	}

	logger.Info().
		Int("saved", out.Result.SavedCount).
		Int("skipped", len(out.Result.Errors)).
		Str("location", out.Result.Location).
		Msgf("JSON file for %d %s saved at location: %q", out.Result.SavedCount, kind.label(), out.Result.Location)

	return out, nil
}
