// Package provider defines the contract a storage backend must implement to
// participate in a sync run. The engine only ever talks to this interface;
// it never inspects a concrete backend's type.
package provider

import (
	"context"
	"io"

	"github.com/syncpair/syncpair/internal/syncstate"
)

// Provider is a backend adapter. All paths passed to and returned from a
// Provider are relative and use "/" as the separator; the provider is
// responsible for translating to and from its own native form.
type Provider interface {
	// Handle returns a stable identifier encoding the provider's identity
	// and root, used to name the on-disk snapshot for a pair.
	Handle() string
	// Label returns a human-readable identifier for logging.
	Label() string
	// IsCaseSensitive reports whether the backend distinguishes paths that
	// differ only in case.
	IsCaseSensitive() bool

	// Enumerate walks the tree to the given depth (0 means unlimited) and
	// returns a StorageState covering every regular file found.
	Enumerate(ctx context.Context, depth int) (*syncstate.StorageState, error)
	// Stat returns the FileState of a single path. Returns a NotFound error
	// (syncerr.NotFound) if it does not exist.
	Stat(ctx context.Context, path string) (syncstate.FileState, error)
	// OpenRead returns a stream for path; the caller must close it.
	OpenRead(ctx context.Context, path string) (io.ReadCloser, error)
	// Write atomically replaces path with the contents of r, creating parent
	// directories as needed.
	Write(ctx context.Context, path string, r io.Reader) error
	// Update performs an atomic compare-and-swap write, succeeding only if
	// the path's current revision matches expectedRevision. Returns
	// ErrUpdateUnsupported if the provider does not support CAS.
	Update(ctx context.Context, path string, r io.Reader, expectedRevision string) error
	// SupportsUpdate reports whether Update is meaningful for this provider.
	SupportsUpdate() bool
	// RemoveFile deletes path. Returns NotFound if it does not exist.
	RemoveFile(ctx context.Context, path string) error
	// Move relocates src to dst. Returns NotFound if src is absent, or
	// AlreadyExists if dst is occupied.
	Move(ctx context.Context, src, dst string) error
	// SupportedHashes returns the set of hash type tags this provider can
	// produce without downloading the whole file.
	SupportedHashes() []string
	// ComputeHash returns the hex digest of path under the given hash type,
	// which must be one SupportedHashes returned.
	ComputeHash(ctx context.Context, path string, hashType string) (string, error)
	// Clone returns an independent instance with identical configuration and
	// no shared mutable connection state, for use by a single worker.
	Clone() (Provider, error)
}

// ErrUpdateUnsupported is returned by Update on providers where
// SupportsUpdate is false.
var ErrUpdateUnsupported = errUpdateUnsupported{}

type errUpdateUnsupported struct{}

func (errUpdateUnsupported) Error() string { return "provider: update (CAS) not supported" }

// Hash type tags recognized by the core. Concrete providers may advertise
// additional backend-native tags via SupportedHashes.
const (
	HashSHA256         = "sha256"
	HashBackendNative4M = "backend-native-sha256-4m"
)

// Config is the parsed form of a provider-address argument: a type tag and
// its key=value options, as produced by package provideraddr.
type Config struct {
	Type    string
	Options map[string]string
}
