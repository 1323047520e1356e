// Package providertest implements an in-memory provider.Provider used by
// the core engine's tests, so the diff, planning, and execution logic can
// be exercised without touching a real filesystem, network, or SSH
// connection.
package providertest

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/syncpair/syncpair/internal/hashing"
	"github.com/syncpair/syncpair/internal/provider"
	"github.com/syncpair/syncpair/internal/syncerr"
	"github.com/syncpair/syncpair/internal/syncstate"
)

type entry struct {
	data     []byte
	revision int
}

// Memory is a shared in-memory backend. Clone() returns the same *Memory, so
// every clone reads and writes the same underlying store under one mutex.
type Memory struct {
	mu            sync.Mutex
	files         map[string]*entry
	label         string
	caseSensitive bool
	supportUpdate bool
	hashTypes     []string
}

// New builds a Memory provider with the given label and capabilities.
func New(label string, caseSensitive, supportUpdate bool) *Memory {
	return &Memory{
		files:         make(map[string]*entry),
		label:         label,
		caseSensitive: caseSensitive,
		supportUpdate: supportUpdate,
		hashTypes:     []string{provider.HashSHA256},
	}
}

// Put seeds path with content directly, bypassing Write, for test setup.
func (m *Memory) Put(path string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = &entry{data: append([]byte(nil), content...), revision: 1}
}

func (m *Memory) Handle() string         { return "mem-" + m.label }
func (m *Memory) Label() string          { return m.label }
func (m *Memory) IsCaseSensitive() bool  { return m.caseSensitive }
func (m *Memory) SupportsUpdate() bool   { return m.supportUpdate }
func (m *Memory) SupportedHashes() []string {
	return append([]string(nil), m.hashTypes...)
}

// Clone returns m itself: all workers share the same store, and there is no
// per-clone session state.
func (m *Memory) Clone() (provider.Provider, error) {
	return m, nil
}

// Enumerate returns every stored file; depth is ignored.
func (m *Memory) Enumerate(ctx context.Context, depth int) (*syncstate.StorageState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := syncstate.NewStorageState()
	for path, e := range m.files {
		digest, _ := hashing.SHA256Stream(bytes.NewReader(e.data))
		out.Files[path] = syncstate.FileState{
			Path:        path,
			ContentHash: digest,
			HashType:    provider.HashSHA256,
			Revision:    revisionString(e.revision),
		}
	}
	return out, nil
}

func revisionString(n int) string {
	if n == 0 {
		return ""
	}
	return "rev" + itoa(n)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func (m *Memory) Stat(ctx context.Context, path string) (syncstate.FileState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.files[path]
	if !ok {
		return syncstate.FileState{}, syncerr.WrapNotFound(path)
	}
	digest, _ := hashing.SHA256Stream(bytes.NewReader(e.data))
	return syncstate.FileState{Path: path, ContentHash: digest, HashType: provider.HashSHA256, Revision: revisionString(e.revision)}, nil
}

func (m *Memory) OpenRead(ctx context.Context, path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.files[path]
	if !ok {
		return nil, syncerr.WrapNotFound(path)
	}
	return io.NopCloser(bytes.NewReader(e.data)), nil
}

func (m *Memory) Write(ctx context.Context, path string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.files[path]; ok {
		existing.data = data
		existing.revision++
		return nil
	}
	m.files[path] = &entry{data: data, revision: 1}
	return nil
}

func (m *Memory) Update(ctx context.Context, path string, r io.Reader, expectedRevision string) error {
	if !m.supportUpdate {
		return provider.ErrUpdateUnsupported
	}
	m.mu.Lock()
	e, ok := m.files[path]
	if ok && revisionString(e.revision) != expectedRevision {
		m.mu.Unlock()
		return syncerr.WrapConflict(path)
	}
	m.mu.Unlock()
	return m.Write(ctx, path, r)
}

func (m *Memory) RemoveFile(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[path]; !ok {
		return syncerr.WrapNotFound(path)
	}
	delete(m.files, path)
	return nil
}

func (m *Memory) Move(ctx context.Context, src, dst string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.files[src]
	if !ok {
		return syncerr.WrapNotFound(src)
	}
	if _, exists := m.files[dst]; exists {
		return syncerr.WrapAlreadyExists(dst)
	}
	delete(m.files, src)
	m.files[dst] = e
	return nil
}

func (m *Memory) ComputeHash(ctx context.Context, path string, hashType string) (string, error) {
	m.mu.Lock()
	e, ok := m.files[path]
	m.mu.Unlock()
	if !ok {
		return "", syncerr.WrapNotFound(path)
	}
	switch hashType {
	case provider.HashBackendNative4M:
		return hashing.BackendNativeStream(bytes.NewReader(e.data))
	default:
		return hashing.SHA256Stream(bytes.NewReader(e.data))
	}
}
