// Package provideraddr parses the provider-address command-line grammar
// (`<type> key=value ...`) into a provider.Config.
package provideraddr

import (
	"fmt"
	"strings"

	"github.com/syncpair/syncpair/internal/provider"
)

// recognizedOptions lists the option keys each provider type accepts, used
// to reject a typo'd key at startup rather than silently ignoring it.
var recognizedOptions = map[string]map[string]bool{
	"FS": set("root", "cache_dir"),
	"D": set("root", "id", "access_token", "refresh_token", "app_key",
		"app_secret"),
	"SFTP": set("host", "user", "root", "key", "pass", "port"),
}

func set(keys ...string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

// Parse parses one --source/--destination argument of the form
// "<type> key=value [key=value ...]". The type tag is matched
// case-insensitively against FS, D, and SFTP.
func Parse(addr string) (provider.Config, error) {
	fields := strings.Fields(addr)
	if len(fields) == 0 {
		return provider.Config{}, fmt.Errorf("provideraddr: empty provider address")
	}

	typeTag := strings.ToUpper(fields[0])
	allowed, ok := recognizedOptions[typeTag]
	if !ok {
		return provider.Config{}, fmt.Errorf("provideraddr: unrecognized provider type %q", fields[0])
	}

	opts := make(map[string]string, len(fields)-1)
	for _, kv := range fields[1:] {
		key, value, found := strings.Cut(kv, "=")
		if !found {
			return provider.Config{}, fmt.Errorf("provideraddr: option %q is not key=value", kv)
		}
		if !allowed[key] {
			return provider.Config{}, fmt.Errorf("provideraddr: %s does not recognize option %q", typeTag, key)
		}
		opts[key] = value
	}

	return provider.Config{Type: typeTag, Options: opts}, nil
}
