// Command syncpair synchronizes a file tree between two pluggable storage
// providers.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/syncpair/syncpair/internal/syncerr"
)

func main() {
	err := newRootCmd().Execute()
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, err)

	var kindErr *syncerr.Error
	if errors.As(err, &kindErr) && errors.Is(kindErr, syncerr.Cancelled) {
		os.Exit(130)
	}
	os.Exit(1)
}
