package objectstore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncpair/syncpair/internal/provider"
)

func newTestServer(t *testing.T) (*httptest.Server, map[string][]byte) {
	t.Helper()
	files := map[string][]byte{
		"/a.txt": []byte("hello"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/list_folder", func(w http.ResponseWriter, r *http.Request) {
		entries := []listEntry{{Path: "a.txt", Hash: "h1", Rev: "rev1"}}
		json.NewEncoder(w).Encode(entries)
	})
	mux.HandleFunc("/get_metadata", func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Query().Get("path")
		if _, ok := files[p]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(listEntry{Path: p, Hash: "h1", Rev: "rev1"})
	})
	mux.HandleFunc("/download", func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Query().Get("path")
		data, ok := files[p]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(data)
	})
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Query().Get("path")
		body, _ := io.ReadAll(r.Body)
		files[p] = body
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/delete", func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Query().Get("path")
		if _, ok := files[p]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		delete(files, p)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/move", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			FromPath string `json:"from_path"`
			ToPath   string `json:"to_path"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		data, ok := files[body.FromPath]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		delete(files, body.FromPath)
		files[body.ToPath] = data
		w.WriteHeader(http.StatusOK)
	})

	return httptest.NewServer(mux), files
}

func newTestProvider(t *testing.T, endpoint string) *Provider {
	t.Helper()
	p, err := New(Config{Endpoint: endpoint, Root: "/", AccessToken: "test-token"})
	require.NoError(t, err)
	return p
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(Config{Root: "/"})
	assert.Error(t, err)
}

func TestEnumerate_ListsEntries(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.Close()
	p := newTestProvider(t, srv.URL)

	state, err := p.Enumerate(context.Background(), 0)
	require.NoError(t, err)
	assert.Contains(t, state.Files, "a.txt")
}

func TestStat_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.Close()
	p := newTestProvider(t, srv.URL)

	_, err := p.Stat(context.Background(), "/missing.txt")
	assert.Error(t, err)
}

func TestWriteThenOpenRead_RoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.Close()
	p := newTestProvider(t, srv.URL)

	require.NoError(t, p.Write(context.Background(), "/new.txt", strings.NewReader("payload")))

	r, err := p.OpenRead(context.Background(), "/new.txt")
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestUpdate_AlwaysUnsupported(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.Close()
	p := newTestProvider(t, srv.URL)

	err := p.Update(context.Background(), "/a.txt", strings.NewReader("x"), "rev1")
	assert.ErrorIs(t, err, provider.ErrUpdateUnsupported)
}

func TestRemoveFile_DeletesAndReportsNotFoundAfterward(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.Close()
	p := newTestProvider(t, srv.URL)

	require.NoError(t, p.RemoveFile(context.Background(), "/a.txt"))
	_, err := p.Stat(context.Background(), "/a.txt")
	assert.Error(t, err)
}

func TestMove_RejectsWhenDestinationExists(t *testing.T) {
	srv, files := newTestServer(t)
	defer srv.Close()
	files["/b.txt"] = []byte("already here")
	p := newTestProvider(t, srv.URL)

	err := p.Move(context.Background(), "/a.txt", "/b.txt")
	assert.Error(t, err)
}

func TestComputeHash_NativeReturnsStoredHash(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.Close()
	p := newTestProvider(t, srv.URL)

	h, err := p.ComputeHash(context.Background(), "/a.txt", hashNative)
	require.NoError(t, err)
	assert.Equal(t, "h1", h)
}

func TestComputeHash_NonNativeDownloadsAndHashes(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.Close()
	p := newTestProvider(t, srv.URL)

	h, err := p.ComputeHash(context.Background(), "/a.txt", "sha256")
	require.NoError(t, err)
	assert.NotEmpty(t, h)
}
