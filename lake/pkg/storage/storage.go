// Package storage implements the overwrite half of the table write contract:
// before a table is rewritten, everything under its location is removed.
package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/malbeclabs/sparkify-lake/lake/pkg/duck"
)

// Local resets directories on the local filesystem.
type Local struct{}

// Reset removes the directory tree at loc and recreates it empty.
func (Local) Reset(ctx context.Context, loc duck.Location) error {
	if loc.IsS3() {
		return fmt.Errorf("local store cannot reset %s", loc)
	}
	if err := os.RemoveAll(loc.Path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", loc.Path, err)
	}
	if err := os.MkdirAll(loc.Path, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", loc.Path, err)
	}
	return nil
}

// Router dispatches to the local or S3 store by location scheme.
type Router struct {
	Local Local
	// S3 is nil when no S3 credentials were configured.
	S3 *S3
}

func (r *Router) Reset(ctx context.Context, loc duck.Location) error {
	if loc.IsS3() {
		if r.S3 == nil {
			return fmt.Errorf("no S3 client configured for %s", loc)
		}
		return r.S3.Reset(ctx, loc)
	}
	return r.Local.Reset(ctx, loc)
}
