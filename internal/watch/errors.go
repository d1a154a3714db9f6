package watch

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a pipeline failure by the stage that produced it
type ErrorKind string

const (
	CatalogFetchError  ErrorKind = "catalog_fetch"
	NoEpisodesError    ErrorKind = "no_episodes"
	ServerListError    ErrorKind = "server_list"
	ManifestFetchError ErrorKind = "manifest_fetch"
)

// Sentinels for errors.Is
var (
	ErrCatalogFetch  = &Error{Kind: CatalogFetchError}
	ErrNoEpisodes    = &Error{Kind: NoEpisodesError}
	ErrServerList    = &Error{Kind: ServerListError}
	ErrManifestFetch = &Error{Kind: ManifestFetchError}
)

var (
	// ErrUnknownMirror is returned when a selection names a mirror not in the list
	ErrUnknownMirror = errors.New("no server found with that mirror id")
	// ErrUnknownEpisode is returned when an episode selector is not in the catalog
	ErrUnknownEpisode = errors.New("episode not in catalog")
	// ErrNoMirrors wraps a ServerListError for a list with no supported mirrors
	ErrNoMirrors = errors.New("no supported mirrors")
	// ErrNotReady is returned for user actions whose upstream stage is unresolved
	ErrNotReady = errors.New("session is not ready for this action")
)

// Error is a stage failure
type Error struct {
	Kind ErrorKind
	Err  error
}

func newError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the sentinels work with errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}
