// Package sftp implements the provider contract over an SSH/SFTP
// connection.
package sftp

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/syncpair/syncpair/internal/hashing"
	"github.com/syncpair/syncpair/internal/provider"
	"github.com/syncpair/syncpair/internal/syncerr"
	"github.com/syncpair/syncpair/internal/syncstate"
)

// Config holds the options the SFTP grammar accepts.
type Config struct {
	Host string
	Port int // defaults to 22
	User string
	Root string
	Key  string // private key path
	Pass string
}

// Provider is an SFTP backend rooted at Config.Root.
type Provider struct {
	cfg    Config
	client *ssh.Client
	sftp   *sftp.Client
}

// New dials the SSH server and opens an SFTP session.
func New(cfg Config) (*Provider, error) {
	if cfg.Port == 0 {
		cfg.Port = 22
	}

	auth, err := authMethod(cfg)
	if err != nil {
		return nil, err
	}

	sshClient, err := ssh.Dial("tcp", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{auth},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint: gosec -- host key pinning is a CLI/config concern, not core provider logic
		Timeout:         30 * time.Second,
	})
	if err != nil {
		return nil, syncerr.WrapProvider("dial", cfg.Host, err)
	}

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, syncerr.WrapProvider("open sftp session", cfg.Host, err)
	}

	return &Provider{cfg: cfg, client: sshClient, sftp: sftpClient}, nil
}

func authMethod(cfg Config) (ssh.AuthMethod, error) {
	if cfg.Key != "" {
		keyBytes, err := os.ReadFile(cfg.Key)
		if err != nil {
			return nil, syncerr.WrapProvider("read private key", cfg.Key, err)
		}
		signer, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			return nil, syncerr.WrapProvider("parse private key", cfg.Key, err)
		}
		return ssh.PublicKeys(signer), nil
	}
	return ssh.Password(cfg.Pass), nil
}

func (p *Provider) Handle() string {
	h, err := hashing.HashDict(struct {
		Host, User, Root string
		Port             int
	}{p.cfg.Host, p.cfg.User, p.cfg.Root, p.cfg.Port})
	if err != nil {
		return "sftp-" + p.cfg.Host + p.cfg.Root
	}
	return "sftp-" + h
}

func (p *Provider) Label() string         { return "SFTP:" + p.cfg.User + "@" + p.cfg.Host + p.cfg.Root }
func (p *Provider) IsCaseSensitive() bool { return true }
func (p *Provider) SupportsUpdate() bool  { return false }

func (p *Provider) SupportedHashes() []string {
	return []string{provider.HashSHA256}
}

func (p *Provider) Clone() (provider.Provider, error) {
	return New(p.cfg)
}

func (p *Provider) abs(relPath string) string {
	return path.Join(p.cfg.Root, relPath)
}

func (p *Provider) Enumerate(ctx context.Context, depth int) (*syncstate.StorageState, error) {
	out := syncstate.NewStorageState()
	walker := p.sftp.Walk(p.cfg.Root)
	for walker.Step() {
		if walker.Err() != nil {
			continue
		}
		info := walker.Stat()
		if info.IsDir() {
			continue
		}
		rel, err := path.Rel(p.cfg.Root, walker.Path())
		if err != nil {
			continue
		}
		if depth > 0 && strings.Count(strings.Trim(rel, "/"), "/")+1 > depth {
			continue
		}
		digest, err := p.hashRemote(walker.Path())
		if err != nil {
			return nil, syncerr.WrapProvider("hash during enumerate", rel, err)
		}
		out.Files[rel] = syncstate.FileState{
			Path:        rel,
			ContentHash: digest,
			HashType:    provider.HashSHA256,
			Revision:    strconv.FormatInt(info.ModTime().UnixNano(), 10),
		}
	}
	return out, nil
}

func (p *Provider) hashRemote(fullPath string) (string, error) {
	f, err := p.sftp.Open(fullPath)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return hashing.SHA256Stream(f)
}

func (p *Provider) Stat(ctx context.Context, relPath string) (syncstate.FileState, error) {
	full := p.abs(relPath)
	info, err := p.sftp.Stat(full)
	if os.IsNotExist(err) {
		return syncstate.FileState{}, syncerr.WrapNotFound(relPath)
	}
	if err != nil {
		return syncstate.FileState{}, syncerr.WrapProvider("stat", relPath, err)
	}
	digest, err := p.hashRemote(full)
	if err != nil {
		return syncstate.FileState{}, syncerr.WrapProvider("hash", relPath, err)
	}
	return syncstate.FileState{
		Path:        relPath,
		ContentHash: digest,
		HashType:    provider.HashSHA256,
		Revision:    strconv.FormatInt(info.ModTime().UnixNano(), 10),
	}, nil
}

func (p *Provider) OpenRead(ctx context.Context, relPath string) (io.ReadCloser, error) {
	f, err := p.sftp.Open(p.abs(relPath))
	if os.IsNotExist(err) {
		return nil, syncerr.WrapNotFound(relPath)
	}
	if err != nil {
		return nil, syncerr.WrapProvider("open", relPath, err)
	}
	return f, nil
}

// Write uploads to a temp name in the same directory, then renames into
// place, since the SFTP protocol's rename is the closest available atomic
// primitive (no server-side CAS exists over plain SFTP).
func (p *Provider) Write(ctx context.Context, relPath string, r io.Reader) error {
	full := p.abs(relPath)
	if err := p.sftp.MkdirAll(path.Dir(full)); err != nil {
		return syncerr.WrapProvider("mkdir", relPath, err)
	}
	tmp := full + ".syncpair-tmp"
	w, err := p.sftp.Create(tmp)
	if err != nil {
		return syncerr.WrapProvider("create temp", relPath, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		p.sftp.Remove(tmp)
		return syncerr.WrapProvider("write temp", relPath, err)
	}
	if err := w.Close(); err != nil {
		return syncerr.WrapProvider("close temp", relPath, err)
	}
	if err := p.renameWithRetry(tmp, full); err != nil {
		p.sftp.Remove(tmp)
		return syncerr.WrapProvider("rename into place", relPath, err)
	}
	return nil
}

// Update is unsupported: plain SFTP has no revision concept, so the
// executor always takes the plain-write path when this provider is the
// destination.
func (p *Provider) Update(ctx context.Context, relPath string, r io.Reader, expectedRevision string) error {
	return provider.ErrUpdateUnsupported
}

func (p *Provider) RemoveFile(ctx context.Context, relPath string) error {
	full := p.abs(relPath)
	if err := p.sftp.Remove(full); err != nil {
		if os.IsNotExist(err) {
			return syncerr.WrapNotFound(relPath)
		}
		return syncerr.WrapProvider("remove", relPath, err)
	}
	return nil
}

func (p *Provider) Move(ctx context.Context, src, dst string) error {
	fullSrc, fullDst := p.abs(src), p.abs(dst)
	if _, err := p.sftp.Stat(fullSrc); os.IsNotExist(err) {
		return syncerr.WrapNotFound(src)
	}
	if _, err := p.sftp.Stat(fullDst); err == nil {
		return syncerr.WrapAlreadyExists(dst)
	}
	if err := p.sftp.MkdirAll(path.Dir(fullDst)); err != nil {
		return syncerr.WrapProvider("mkdir for move", dst, err)
	}
	return p.renameWithRetry(fullSrc, fullDst)
}

// renameWithRetry applies the core's one prescribed retry policy (spec
// section 5): SFTP servers occasionally reject a rename during contention
// with a transient error, so retry a small, capped number of times with
// exponential backoff before giving up.
func (p *Provider) renameWithRetry(src, dst string) error {
	const maxAttempts = 4
	backoff := 100 * time.Millisecond
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := p.sftp.Rename(src, dst)
		if err == nil {
			return nil
		}
		lastErr = err
		time.Sleep(backoff)
		backoff *= 2
	}
	return lastErr
}

func (p *Provider) ComputeHash(ctx context.Context, relPath string, hashType string) (string, error) {
	digest, err := p.hashRemote(p.abs(relPath))
	if os.IsNotExist(err) {
		return "", syncerr.WrapNotFound(relPath)
	}
	if err != nil {
		return "", syncerr.WrapProvider("compute hash", relPath, err)
	}
	return digest, nil
}

// Close releases the SFTP session and the underlying SSH connection.
func (p *Provider) Close() error {
	p.sftp.Close()
	return p.client.Close()
}
