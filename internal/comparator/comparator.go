// Package comparator decides cross-provider content equality by negotiating
// a shared hash type, or falling back to a downloaded SHA-256 comparison
// when the two providers share none.
package comparator

import (
	"context"
	"sort"

	"github.com/syncpair/syncpair/internal/hashing"
	"github.com/syncpair/syncpair/internal/provider"
	"github.com/syncpair/syncpair/internal/syncstate"
)

// Equal decides whether srcFile on srcProv and dstFile on dstProv refer to
// identical content.
func Equal(ctx context.Context, srcProv, dstProv provider.Provider, srcFile, dstFile syncstate.FileState) (bool, error) {
	chosen, ok := negotiate(srcProv, dstProv, srcFile, dstFile)
	if !ok {
		return equalByDownload(ctx, srcProv, dstProv, srcFile.Path, dstFile.Path)
	}

	srcHash, err := hashFor(ctx, srcProv, srcFile, chosen)
	if err != nil {
		return false, err
	}
	dstHash, err := hashFor(ctx, dstProv, dstFile, chosen)
	if err != nil {
		return false, err
	}
	return srcHash == dstHash, nil
}

// negotiate intersects the two providers' supported hash types and picks the
// one with the highest preference score: +1 for matching the source
// FileState's recorded hash type, +1 for matching the destination's, ties
// broken by deterministic (sorted) enumeration order.
func negotiate(srcProv, dstProv provider.Provider, srcFile, dstFile syncstate.FileState) (string, bool) {
	dstSet := make(map[string]bool)
	for _, h := range dstProv.SupportedHashes() {
		dstSet[h] = true
	}

	var shared []string
	for _, h := range srcProv.SupportedHashes() {
		if dstSet[h] {
			shared = append(shared, h)
		}
	}
	if len(shared) == 0 {
		return "", false
	}
	sort.Strings(shared)

	best := shared[0]
	bestScore := -1
	for _, h := range shared {
		score := 0
		if h == srcFile.HashType {
			score++
		}
		if h == dstFile.HashType {
			score++
		}
		if score > bestScore {
			best, bestScore = h, score
		}
	}
	return best, true
}

func hashFor(ctx context.Context, prov provider.Provider, fs syncstate.FileState, hashType string) (string, error) {
	if fs.HashType == hashType && fs.ContentHash != "" {
		return fs.ContentHash, nil
	}
	return prov.ComputeHash(ctx, fs.Path, hashType)
}

// equalByDownload is the fallback used when the two providers share no hash
// type: both files are streamed down and hashed locally with SHA-256.
func equalByDownload(ctx context.Context, srcProv, dstProv provider.Provider, srcPath, dstPath string) (bool, error) {
	srcStream, err := srcProv.OpenRead(ctx, srcPath)
	if err != nil {
		return false, err
	}
	defer srcStream.Close()
	srcHash, err := hashing.SHA256Stream(srcStream)
	if err != nil {
		return false, err
	}

	dstStream, err := dstProv.OpenRead(ctx, dstPath)
	if err != nil {
		return false, err
	}
	defer dstStream.Close()
	dstHash, err := hashing.SHA256Stream(dstStream)
	if err != nil {
		return false, err
	}

	return srcHash == dstHash, nil
}
