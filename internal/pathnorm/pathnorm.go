// Package pathnorm normalizes relative paths so that two providers with
// different Unicode forms or case sensitivity agree on what "the same file"
// means.
//
// Dropbox-like backends, macOS, and Windows all tend to coerce path bytes
// into a particular Unicode normalization form (and sometimes fold case) on
// the way in; Linux filesystems do neither. Without a normalization pass two
// providers can report byte-for-byte different paths for what a user
// considers the same file.
package pathnorm

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var caseFolder = cases.Fold()

// Separator is the canonical path separator used for all normalized keys.
const Separator = "/"

// Normalize applies Unicode NFC to path, and additionally case-folds it when
// caseInsensitive is true. The result is suitable as a StorageState map key;
// it is not necessarily suitable to send back to a provider, which may
// require the original, un-normalized path to preserve its own casing.
func Normalize(path string, caseInsensitive bool) string {
	p := unixify(path)
	p = norm.NFC.String(p)
	if caseInsensitive {
		p = caseFolder.String(p)
	}
	return p
}

// unixify rewrites backend-specific separators to the canonical "/" and
// strips a leading separator, so "root/a" and "/root/a" normalize to the
// same key.
func unixify(path string) string {
	p := strings.ReplaceAll(path, "\\", Separator)
	return strings.TrimPrefix(p, Separator)
}
