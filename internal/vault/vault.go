// Package vault stores exported backup files in memory, in a local
// directory, or in an S3 bucket.
package vault

import (
	"fmt"
	"path"
	"strings"

	"seswi-go/internal/seswi"
)

// checkName rejects backup names that could escape the vault root.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("%w: invalid backup name %q", seswi.ErrInvalidInput, name)
	}
	if strings.ContainsAny(name, `/\`) || path.Clean(name) != name || strings.HasPrefix(name, ".tmp-") {
		return fmt.Errorf("%w: invalid backup name %q", seswi.ErrInvalidInput, name)
	}
	return nil
}

func notFound(name string) error {
	return fmt.Errorf("%w: backup %s", seswi.ErrNotFound, name)
}

func sizeMismatch(expected, got int64) error {
	return fmt.Errorf("size mismatch: expected %d bytes, got %d", expected, got)
}
