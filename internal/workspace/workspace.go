// Package workspace manages per-request isolated download directories and
// their retention sweep.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"tubefetch/internal/errs"
	"tubefetch/pkg/logger"

	"github.com/google/uuid"
)

// Manager allocates workspaces under a single root directory.
type Manager struct {
	log  *slog.Logger
	root string
}

// Handle is one allocated workspace. It is owned exclusively by the request
// that created it; its identifier is never reused.
type Handle struct {
	ID   string
	Path string

	log *slog.Logger
}

// New creates a workspace manager rooted at root, creating the directory
// if needed.
func New(log *slog.Logger, root string) (*Manager, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrWorkspaceRoot, err)
	}

	return &Manager{
		log:  logger.Pkg(log, "workspace"),
		root: root,
	}, nil
}

// Root returns the workspace root directory.
func (m *Manager) Root() string {
	return m.root
}

// Allocate creates a fresh workspace directory named by a random 128-bit
// token.
func (m *Manager) Allocate() (*Handle, error) {
	id := uuid.NewString()
	path := filepath.Join(m.root, id)

	if err := os.Mkdir(path, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrWorkspaceAllocate, err)
	}

	m.log.Debug("workspace allocated", slog.String("workspace_id", id))

	return &Handle{
		ID:   id,
		Path: path,
		log:  m.log,
	}, nil
}

// Release recursively deletes the workspace. It is idempotent: releasing an
// already-removed workspace is a no-op. Deletion errors are logged and
// swallowed, never surfaced to the caller.
func (h *Handle) Release() {
	if err := os.RemoveAll(h.Path); err != nil {
		h.log.Error("workspace release",
			slog.String("workspace_id", h.ID),
			slog.Any("error", err))

		return
	}

	h.log.Debug("workspace released", slog.String("workspace_id", h.ID))
}
