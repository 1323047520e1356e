// Package objectstore implements the provider contract over a generic
// OAuth2-authenticated REST object-store API — the "D" backend of the
// provider-address grammar.
package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"golang.org/x/oauth2"

	"github.com/syncpair/syncpair/internal/hashing"
	"github.com/syncpair/syncpair/internal/provider"
	"github.com/syncpair/syncpair/internal/syncerr"
	"github.com/syncpair/syncpair/internal/syncstate"
)

// hashNative is the provider's own content-hash tag; it is never SHA-256, so
// the content comparator falls back to download-and-hash when pairing this
// provider with one that does not also expose hashNative.
const hashNative = "objectstore-native"

// Config holds the options the "D" grammar accepts.
type Config struct {
	Endpoint     string // base API URL; defaults to a fixed production endpoint if empty
	Root         string
	ID           string
	AccessToken  string
	RefreshToken string
	AppKey       string
	AppSecret    string
}

// Provider is an object-store backend rooted at Config.Root.
type Provider struct {
	cfg    Config
	client *http.Client
}

// New constructs a Provider, building an OAuth2 client either from a static
// access token or from a refresh token plus app credentials.
func New(cfg Config) (*Provider, error) {
	if cfg.AccessToken == "" && (cfg.RefreshToken == "" || cfg.AppKey == "" || cfg.AppSecret == "") {
		return nil, syncerr.WrapSync("objectstore: need access_token, or refresh_token+app_key+app_secret")
	}

	var ts oauth2.TokenSource
	if cfg.AccessToken != "" {
		ts = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken})
	} else {
		conf := &oauth2.Config{
			ClientID:     cfg.AppKey,
			ClientSecret: cfg.AppSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: cfg.endpoint() + "/oauth2/token"},
		}
		ts = conf.TokenSource(context.Background(), &oauth2.Token{RefreshToken: cfg.RefreshToken})
	}

	return &Provider{
		cfg:    cfg,
		client: oauth2.NewClient(context.Background(), ts),
	}, nil
}

func (c Config) endpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return "https://api.objectstore.example"
}

func (p *Provider) Handle() string {
	h, err := hashing.HashDict(struct {
		Endpoint, Root, ID string
	}{p.cfg.endpoint(), p.cfg.Root, p.cfg.ID})
	if err != nil {
		return "d-" + p.cfg.Root
	}
	return "d-" + h
}

func (p *Provider) Label() string         { return "D:" + p.cfg.Root }
func (p *Provider) IsCaseSensitive() bool { return true }
func (p *Provider) SupportsUpdate() bool  { return false }

func (p *Provider) SupportedHashes() []string {
	return []string{hashNative}
}

func (p *Provider) Clone() (provider.Provider, error) {
	return New(p.cfg)
}

type listEntry struct {
	Path string `json:"path"`
	Hash string `json:"content_hash"`
	Rev  string `json:"rev"`
}

func (p *Provider) apiURL(segment string, query url.Values) string {
	u := p.cfg.endpoint() + segment
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (p *Provider) Enumerate(ctx context.Context, depth int) (*syncstate.StorageState, error) {
	q := url.Values{"root": {p.cfg.Root}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL("/list_folder", q), nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, syncerr.WrapProvider("enumerate", p.Label(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, syncerr.WrapProvider("enumerate", p.Label(), fmt.Errorf("http %d", resp.StatusCode))
	}

	var entries []listEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, syncerr.WrapProvider("enumerate: decode response", p.Label(), err)
	}

	out := syncstate.NewStorageState()
	for _, e := range entries {
		if depth > 0 && strings.Count(strings.Trim(e.Path, "/"), "/") >= depth {
			continue
		}
		out.Files[e.Path] = syncstate.FileState{
			Path:        e.Path,
			ContentHash: e.Hash,
			HashType:    hashNative,
			Revision:    e.Rev,
		}
	}
	return out, nil
}

func (p *Provider) Stat(ctx context.Context, relPath string) (syncstate.FileState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL("/get_metadata", url.Values{"path": {p.fullPath(relPath)}}), nil)
	if err != nil {
		return syncstate.FileState{}, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return syncstate.FileState{}, syncerr.WrapProvider("stat", relPath, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return syncstate.FileState{}, syncerr.WrapNotFound(relPath)
	}
	if resp.StatusCode != http.StatusOK {
		return syncstate.FileState{}, syncerr.WrapProvider("stat", relPath, fmt.Errorf("http %d", resp.StatusCode))
	}
	var e listEntry
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
		return syncstate.FileState{}, syncerr.WrapProvider("stat: decode response", relPath, err)
	}
	return syncstate.FileState{Path: relPath, ContentHash: e.Hash, HashType: hashNative, Revision: e.Rev}, nil
}

func (p *Provider) OpenRead(ctx context.Context, relPath string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL("/download", url.Values{"path": {p.fullPath(relPath)}}), nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, syncerr.WrapProvider("open", relPath, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, syncerr.WrapNotFound(relPath)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, syncerr.WrapProvider("open", relPath, fmt.Errorf("http %d", resp.StatusCode))
	}
	return resp.Body, nil
}

func (p *Provider) Write(ctx context.Context, relPath string, r io.Reader) error {
	body, err := io.ReadAll(r)
	if err != nil {
		return syncerr.WrapProvider("write: read body", relPath, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL("/upload", url.Values{"path": {p.fullPath(relPath)}, "mode": {"overwrite"}}), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	resp, err := p.client.Do(req)
	if err != nil {
		return syncerr.WrapProvider("write", relPath, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return syncerr.WrapProvider("write", relPath, fmt.Errorf("http %d", resp.StatusCode))
	}
	return nil
}

// Update always fails: this API does not expose a revisioned CAS endpoint,
// so the executor always falls back to plain Write for this provider.
func (p *Provider) Update(ctx context.Context, relPath string, r io.Reader, expectedRevision string) error {
	return provider.ErrUpdateUnsupported
}

func (p *Provider) RemoveFile(ctx context.Context, relPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL("/delete", url.Values{"path": {p.fullPath(relPath)}}), nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return syncerr.WrapProvider("remove", relPath, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return syncerr.WrapNotFound(relPath)
	}
	if resp.StatusCode != http.StatusOK {
		return syncerr.WrapProvider("remove", relPath, fmt.Errorf("http %d", resp.StatusCode))
	}
	return nil
}

func (p *Provider) Move(ctx context.Context, src, dst string) error {
	if _, err := p.Stat(ctx, dst); err == nil {
		return syncerr.WrapAlreadyExists(dst)
	}
	body, _ := json.Marshal(map[string]string{
		"from_path": p.fullPath(src),
		"to_path":   p.fullPath(dst),
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL("/move", nil), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return syncerr.WrapProvider("move", src, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return syncerr.WrapNotFound(src)
	}
	if resp.StatusCode != http.StatusOK {
		return syncerr.WrapProvider("move", src, fmt.Errorf("http %d", resp.StatusCode))
	}
	return nil
}

func (p *Provider) ComputeHash(ctx context.Context, relPath string, hashType string) (string, error) {
	if hashType == hashNative {
		fs, err := p.Stat(ctx, relPath)
		if err != nil {
			return "", err
		}
		return fs.ContentHash, nil
	}
	// Any other hash type requires downloading and hashing locally.
	stream, err := p.OpenRead(ctx, relPath)
	if err != nil {
		return "", err
	}
	defer stream.Close()
	return hashing.SHA256Stream(stream)
}

func (p *Provider) fullPath(relPath string) string {
	return path.Join("/", p.cfg.Root, relPath)
}
