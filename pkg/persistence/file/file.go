// Package file provides file-based persistence for development and tests.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/vigilhq/vigil/pkg/persistence"
)

// Persistence implements persistence.Persistence on top of a directory
// of JSON documents. One process at a time; a single mutex serializes
// writers across targets, which is plenty for the sweep sizes this
// backend is meant for.
type Persistence struct {
	root string
	mu   sync.RWMutex

	targets   *TargetRepository
	snapshots *SnapshotRepository
	changes   *ChangeRepository
	users     *UserRepository
}

// NewPersistence creates a file persistence layer rooted at the given
// directory. Accepts a plain path or a file:// URL.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	p := &Persistence{root: cleanRoot}
	p.targets = &TargetRepository{store: p}
	p.snapshots = &SnapshotRepository{store: p}
	p.changes = &ChangeRepository{store: p}
	p.users = &UserRepository{store: p}

	return p
}

func (p *Persistence) Targets() persistence.TargetRepository { return p.targets }

func (p *Persistence) Snapshots() persistence.SnapshotRepository { return p.snapshots }

func (p *Persistence) Changes() persistence.ChangeRepository { return p.changes }

func (p *Persistence) Users() persistence.UserRepository { return p.users }

// Close performs any necessary cleanup. Nothing to do for files.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory is usable.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if err := os.MkdirAll(p.root, 0o755); err != nil {
		return fmt.Errorf("persistence root not writable: %w", err)
	}

	return nil
}

// readJSON loads one JSON document. Returns os.ErrNotExist when the
// document is absent; callers translate to their domain error.
func (p *Persistence) readJSON(path string, out any) error {
	data, err := os.ReadFile(filepath.Join(p.root, path))
	if err != nil {
		return err
	}

	return json.Unmarshal(data, out)
}

// writeJSON stores one JSON document, creating parent directories as
// needed. Writes to a temp file and renames so readers never observe a
// partial document.
func (p *Persistence) writeJSON(path string, in any) error {
	full := filepath.Join(p.root, path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return err
	}

	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}

	return os.Rename(tmp, full)
}

func (p *Persistence) writeRaw(path string, data []byte) error {
	full := filepath.Join(p.root, path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}

	return os.WriteFile(full, data, 0o644)
}

func (p *Persistence) readRaw(path string) ([]byte, error) {
	return os.ReadFile(filepath.Join(p.root, path))
}

func (p *Persistence) listDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(p.root, dir))
	if os.IsNotExist(err) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}

	return names, nil
}
