// Package archive persists run artifacts (trade exports, reports,
// optimized weights) to a storage backend.
package archive

import (
	"context"
	"fmt"
)

// Storage is a flat key/value artifact store
type Storage interface {
	// Write stores data at the given path
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths matching the prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the data at the given path
	Delete(ctx context.Context, path string) error

	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)
}

// Runs groups artifacts by backtest run ID
type Runs struct {
	store Storage
}

// NewRuns creates a run artifact archiver on top of a storage backend
func NewRuns(store Storage) *Runs {
	return &Runs{store: store}
}

func runPath(runID, name string) string {
	return fmt.Sprintf("%s/%s", runID, name)
}

// Save stores one named artifact for a run
func (r *Runs) Save(ctx context.Context, runID, name string, data []byte) error {
	return r.store.Write(ctx, runPath(runID, name), data)
}

// Load retrieves one named artifact for a run
func (r *Runs) Load(ctx context.Context, runID, name string) ([]byte, error) {
	return r.store.Read(ctx, runPath(runID, name))
}

// Artifacts lists the artifact paths recorded for a run
func (r *Runs) Artifacts(ctx context.Context, runID string) ([]string, error) {
	return r.store.List(ctx, runID)
}
