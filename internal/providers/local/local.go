// Package local implements the provider contract over a local filesystem
// directory tree.
package local

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/syncpair/syncpair/internal/hashing"
	"github.com/syncpair/syncpair/internal/provider"
	"github.com/syncpair/syncpair/internal/syncerr"
	"github.com/syncpair/syncpair/internal/syncstate"
)

// Provider is a local filesystem backend rooted at Root.
type Provider struct {
	Root            string
	CacheDir        string
	caseSensitive   bool
	cache           *hashCache
}

// New constructs a local Provider, probing the filesystem's case sensitivity
// and opening its hash cache. root must already exist.
func New(root, cacheDir string) (*Provider, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, syncerr.WrapProvider("stat root", root, err)
	}
	if !info.IsDir() {
		return nil, syncerr.WrapSync("local provider root is not a directory: %s", root)
	}
	if cacheDir == "" {
		cacheDir = ".cache"
	}

	p := &Provider{
		Root:          root,
		CacheDir:      cacheDir,
		caseSensitive: probeCaseSensitive(root),
	}
	p.cache = openHashCache(filepath.Join(cacheDir, p.Handle()))
	return p, nil
}

// probeCaseSensitive creates a temp probe file and checks whether its
// upper-cased name can be stat'ed, defaulting to case-sensitive if the probe
// file cannot be created.
func probeCaseSensitive(root string) bool {
	probe := filepath.Join(root, ".syncpair-case-probe")
	if err := os.WriteFile(probe, []byte{}, 0o644); err != nil {
		return true
	}
	defer os.Remove(probe)

	upper := filepath.Join(root, ".SYNCPAIR-CASE-PROBE")
	_, err := os.Stat(upper)
	return err != nil // if the upper-case name is NOT found, the fs is case-sensitive
}

func (p *Provider) Handle() string {
	h, err := hashing.HashDict(struct {
		Root    string
		Version int
	}{p.Root, 2})
	if err != nil {
		return "fs-" + p.Root
	}
	return "fs-" + h
}

func (p *Provider) Label() string            { return "FS:" + p.Root }
func (p *Provider) IsCaseSensitive() bool    { return p.caseSensitive }
func (p *Provider) SupportsUpdate() bool     { return true }

func (p *Provider) SupportedHashes() []string {
	return []string{provider.HashSHA256, provider.HashBackendNative4M}
}

func (p *Provider) Clone() (provider.Provider, error) {
	return New(p.Root, p.CacheDir)
}

func (p *Provider) abs(relPath string) (string, error) {
	clean := filepath.Clean("/" + relPath)
	full := filepath.Join(p.Root, clean)
	if !strings.HasPrefix(full, filepath.Clean(p.Root)+string(filepath.Separator)) && full != filepath.Clean(p.Root) {
		return "", syncerr.WrapSync("path escapes provider root: %s", relPath)
	}
	return full, nil
}

func (p *Provider) Enumerate(ctx context.Context, depth int) (*syncstate.StorageState, error) {
	out := syncstate.NewStorageState()
	rootDepth := strings.Count(filepath.Clean(p.Root), string(filepath.Separator))

	err := filepath.WalkDir(p.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if path == p.Root {
			return nil
		}
		rel, relErr := filepath.Rel(p.Root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if depth > 0 && strings.Count(path, string(filepath.Separator))-rootDepth >= depth {
				return filepath.SkipDir
			}
			return nil
		}
		if depth > 0 && strings.Count(path, string(filepath.Separator))-rootDepth > depth {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".syncpair-") {
			return nil
		}

		fstate, statErr := p.statPath(rel, path)
		if statErr != nil {
			return statErr
		}
		out.Files[rel] = fstate
		return nil
	})
	if err != nil {
		return nil, syncerr.WrapProvider("enumerate", p.Root, err)
	}
	return out, nil
}

func (p *Provider) statPath(rel, full string) (syncstate.FileState, error) {
	info, err := os.Stat(full)
	if err != nil {
		return syncstate.FileState{}, err
	}

	if cached, ok := p.cache.lookup(rel, info.Size(), info.ModTime()); ok {
		return syncstate.FileState{
			Path:        rel,
			ContentHash: cached,
			HashType:    provider.HashSHA256,
			Revision:    revisionFor(info.ModTime()),
		}, nil
	}

	digest, err := p.hashFile(full, provider.HashSHA256)
	if err != nil {
		return syncstate.FileState{}, err
	}
	p.cache.store(rel, info.Size(), info.ModTime(), digest)

	return syncstate.FileState{
		Path:        rel,
		ContentHash: digest,
		HashType:    provider.HashSHA256,
		Revision:    revisionFor(info.ModTime()),
	}, nil
}

func revisionFor(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func (p *Provider) hashFile(full, hashType string) (string, error) {
	f, err := os.Open(full)
	if err != nil {
		return "", err
	}
	defer f.Close()

	switch hashType {
	case provider.HashBackendNative4M:
		return hashing.BackendNativeStream(f)
	default:
		return hashing.SHA256Stream(f)
	}
}

func (p *Provider) Stat(ctx context.Context, path string) (syncstate.FileState, error) {
	full, err := p.abs(path)
	if err != nil {
		return syncstate.FileState{}, err
	}
	info, err := os.Stat(full)
	if os.IsNotExist(err) {
		return syncstate.FileState{}, syncerr.WrapNotFound(path)
	}
	if err != nil {
		return syncstate.FileState{}, syncerr.WrapProvider("stat", path, err)
	}
	digest, err := p.hashFile(full, provider.HashSHA256)
	if err != nil {
		return syncstate.FileState{}, syncerr.WrapProvider("hash", path, err)
	}
	return syncstate.FileState{
		Path:        path,
		ContentHash: digest,
		HashType:    provider.HashSHA256,
		Revision:    revisionFor(info.ModTime()),
	}, nil
}

func (p *Provider) OpenRead(ctx context.Context, path string) (io.ReadCloser, error) {
	full, err := p.abs(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if os.IsNotExist(err) {
		return nil, syncerr.WrapNotFound(path)
	}
	if err != nil {
		return nil, syncerr.WrapProvider("open", path, err)
	}
	return f, nil
}

// Write atomically replaces path with r's contents via a temp file in the
// same directory followed by rename, creating parent directories first.
func (p *Provider) Write(ctx context.Context, path string, r io.Reader) error {
	full, err := p.abs(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return syncerr.WrapProvider("mkdir", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".syncpair-*.tmp")
	if err != nil {
		return syncerr.WrapProvider("create temp", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return syncerr.WrapProvider("write temp", path, err)
	}
	if err := tmp.Close(); err != nil {
		return syncerr.WrapProvider("close temp", path, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		return syncerr.WrapProvider("rename into place", path, err)
	}
	p.cache.invalidate(path)
	return nil
}

// Update performs the same atomic write as Write, but first verifies the
// file's modification time still matches expectedRevision, failing with
// Conflict if it has advanced since the caller last observed it.
func (p *Provider) Update(ctx context.Context, path string, r io.Reader, expectedRevision string) error {
	full, err := p.abs(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(full)
	if os.IsNotExist(err) {
		return syncerr.WrapNotFound(path)
	}
	if err != nil {
		return syncerr.WrapProvider("stat before update", path, err)
	}
	if revisionFor(info.ModTime()) != expectedRevision {
		return syncerr.WrapConflict(path)
	}
	return p.Write(ctx, path, r)
}

func (p *Provider) RemoveFile(ctx context.Context, path string) error {
	full, err := p.abs(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		if os.IsNotExist(err) {
			return syncerr.WrapNotFound(path)
		}
		return syncerr.WrapProvider("remove", path, err)
	}
	p.cache.invalidate(path)
	return nil
}

func (p *Provider) Move(ctx context.Context, src, dst string) error {
	fullSrc, err := p.abs(src)
	if err != nil {
		return err
	}
	fullDst, err := p.abs(dst)
	if err != nil {
		return err
	}
	if _, err := os.Stat(fullSrc); os.IsNotExist(err) {
		return syncerr.WrapNotFound(src)
	}
	if _, err := os.Stat(fullDst); err == nil {
		return syncerr.WrapAlreadyExists(dst)
	}
	if err := os.MkdirAll(filepath.Dir(fullDst), 0o755); err != nil {
		return syncerr.WrapProvider("mkdir for move", dst, err)
	}
	if err := os.Rename(fullSrc, fullDst); err != nil {
		return syncerr.WrapProvider("move", src, err)
	}
	p.cache.invalidate(src)
	p.cache.invalidate(dst)
	return nil
}

func (p *Provider) ComputeHash(ctx context.Context, path string, hashType string) (string, error) {
	full, err := p.abs(path)
	if err != nil {
		return "", err
	}
	digest, err := p.hashFile(full, hashType)
	if os.IsNotExist(err) {
		return "", syncerr.WrapNotFound(path)
	}
	if err != nil {
		return "", syncerr.WrapProvider("compute hash", path, err)
	}
	return digest, nil
}
