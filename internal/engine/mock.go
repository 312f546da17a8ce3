package engine

import (
	"context"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"tubefetch/internal/entity"
)

// Mock is a scriptable engine for tests and local runs without yt-dlp.
type Mock struct {
	// ProbeEntries are returned by Probe after filtering.
	ProbeEntries []entity.CapabilityEntry
	// ProbeErr, when set, fails Probe.
	ProbeErr error
	// Files maps filename to content; Fetch writes them into the output
	// directory with a small mtime spread so discovery tie-breaks are
	// deterministic.
	Files map[string]string
	// FetchErr, when set, fails Fetch after writing Files.
	FetchErr error

	mu         sync.Mutex
	fetchCalls []FetchOptions
}

var _ Engine = (*Mock)(nil)

// Probe returns the scripted capability entries.
func (m *Mock) Probe(_ context.Context, _ string) ([]entity.CapabilityEntry, error) {
	if m.ProbeErr != nil {
		return nil, m.ProbeErr
	}

	return FilterCapabilities(m.ProbeEntries), nil
}

// Fetch writes the scripted files into the workspace directory derived from
// the output template, then returns FetchErr.
func (m *Mock) Fetch(_ context.Context, _ string, opts FetchOptions) error {
	m.mu.Lock()
	m.fetchCalls = append(m.fetchCalls, opts)
	m.mu.Unlock()

	dir := filepath.Dir(opts.OutputTemplate)
	now := time.Now()

	names := slices.Sorted(maps.Keys(m.Files))

	for i, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(m.Files[name]), 0o644); err != nil {
			return err
		}

		// Spread modification times one second apart, in filename order,
		// so the lexically last file is the newest.
		mtime := now.Add(time.Duration(i-len(names)) * time.Second)
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			return err
		}
	}

	return m.FetchErr
}

// FetchCalls returns the options of every Fetch invocation so far.
func (m *Mock) FetchCalls() []FetchOptions {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]FetchOptions, len(m.fetchCalls))
	copy(calls, m.fetchCalls)

	return calls
}
