package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/fetchq/internal/metadata"
)

// snapshotExts are the file extensions opened as SQLite snapshots; anything
// else is read as a YAML fixture.
var snapshotExts = []string{".db", ".sqlite", ".sqlite3"}

func isSnapshotPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range snapshotExts {
		if ext == e {
			return true
		}
	}
	return false
}

// openProvider opens the configured metadata source behind a cache. The
// returned close function releases the snapshot database, if any.
func openProvider(opts *RootOptions) (*metadata.Cache, func() error, error) {
	path := opts.Metadata
	if path == "" {
		return nil, nil, NewExitError(ExitCommandError,
			"no metadata source: pass --metadata or set fixture/snapshot in the config")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, nil, WrapExitError(ExitCommandError, fmt.Sprintf("metadata not found: %s", path), err)
	}

	var (
		src     metadata.Provider
		closeFn = func() error { return nil }
	)
	if isSnapshotPath(path) {
		snap, err := metadata.OpenSnapshot(path)
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "failed to open metadata snapshot", err)
		}
		src, closeFn = snap, snap.Close
	} else {
		fixture, err := metadata.LoadFixture(path)
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "failed to load metadata fixture", err)
		}
		src = metadata.NewStatic(fixture)
	}

	return metadata.NewCache(src, opts.settings().CacheOptions()...), closeFn, nil
}
