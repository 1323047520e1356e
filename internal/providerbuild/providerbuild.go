// Package providerbuild constructs a concrete provider.Provider from a
// parsed provider.Config, as produced by package provideraddr.
package providerbuild

import (
	"fmt"
	"strconv"

	"github.com/syncpair/syncpair/internal/provider"
	"github.com/syncpair/syncpair/internal/providers/local"
	"github.com/syncpair/syncpair/internal/providers/objectstore"
	"github.com/syncpair/syncpair/internal/providers/sftp"
)

// Build dispatches on cfg.Type and constructs the matching provider.
func Build(cfg provider.Config) (provider.Provider, error) {
	switch cfg.Type {
	case "FS":
		root, ok := cfg.Options["root"]
		if !ok {
			return nil, fmt.Errorf("providerbuild: FS requires root=")
		}
		return local.New(root, cfg.Options["cache_dir"])

	case "D":
		return objectstore.New(objectstore.Config{
			Root:         cfg.Options["root"],
			ID:           cfg.Options["id"],
			AccessToken:  cfg.Options["access_token"],
			RefreshToken: cfg.Options["refresh_token"],
			AppKey:       cfg.Options["app_key"],
			AppSecret:    cfg.Options["app_secret"],
		})

	case "SFTP":
		host, ok := cfg.Options["host"]
		if !ok {
			return nil, fmt.Errorf("providerbuild: SFTP requires host=")
		}
		user, ok := cfg.Options["user"]
		if !ok {
			return nil, fmt.Errorf("providerbuild: SFTP requires user=")
		}
		port := 22
		if raw, ok := cfg.Options["port"]; ok {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("providerbuild: invalid port %q: %w", raw, err)
			}
			port = parsed
		}
		return sftp.New(sftp.Config{
			Host: host,
			Port: port,
			User: user,
			Root: cfg.Options["root"],
			Key:  cfg.Options["key"],
			Pass: cfg.Options["pass"],
		})

	default:
		return nil, fmt.Errorf("providerbuild: unknown provider type %q", cfg.Type)
	}
}
