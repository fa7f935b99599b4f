// Package filesystem reads reference documents from a local directory tree
// and reports changes to it.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/apeko/appraisal-rag/internal/logger"
)

// ChangeType is the kind of change seen on a file.
type ChangeType int

const (
	ChangeCreated ChangeType = iota
	ChangeUpdated
	ChangeDeleted
)

func (t ChangeType) String() string {
	switch t {
	case ChangeCreated:
		return "created"
	case ChangeUpdated:
		return "updated"
	case ChangeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Change is a file event under the connector root.
type Change struct {
	Type ChangeType
	Path string
}

// Connector lists and watches the regular files under a root directory.
// Hidden files and directories are skipped.
type Connector struct {
	rootPath string

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// New creates a connector rooted at rootPath.
func New(rootPath string) *Connector {
	return &Connector{rootPath: rootPath}
}

// Root returns the directory the connector reads.
func (c *Connector) Root() string {
	return c.rootPath
}

// Validate checks that the root exists and is a directory.
func (c *Connector) Validate() error {
	info, err := os.Stat(c.rootPath)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", c.rootPath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", c.rootPath)
	}
	return nil
}

// Files returns the paths of all visible regular files, in lexical order.
func (c *Connector) Files(ctx context.Context) ([]string, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var files []string
	err := filepath.WalkDir(c.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("Skipping %s: %v", path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path != c.rootPath && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// Watch reports file changes until ctx is cancelled or Close is called.
// Directories created while watching are watched too.
func (c *Connector) Watch(ctx context.Context) (<-chan Change, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.watcher != nil {
		return nil, errors.New("already watching")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := addTree(watcher, c.rootPath); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	c.watcher = watcher

	changes := make(chan Change)
	go c.run(ctx, watcher, changes)
	return changes, nil
}

func (c *Connector) run(ctx context.Context, watcher *fsnotify.Watcher, changes chan<- Change) {
	defer close(changes)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !isHidden(info.Name()) {
					if err := addTree(watcher, event.Name); err != nil {
						logger.Warn("Watching %s: %v", event.Name, err)
					}
				}
			}
			change := c.handleFsEvent(event)
			if change == nil {
				continue
			}
			select {
			case changes <- *change:
			case <-ctx.Done():
				return
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}

// handleFsEvent maps an fsnotify event to a change, or nil when the event
// does not concern a visible regular file.
func (c *Connector) handleFsEvent(event fsnotify.Event) *Change {
	if c.hidden(event.Name) {
		return nil
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return &Change{Type: ChangeDeleted, Path: event.Name}
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}
		changeType := ChangeUpdated
		if event.Has(fsnotify.Create) {
			changeType = ChangeCreated
		}
		return &Change{Type: changeType, Path: event.Name}
	default:
		return nil
	}
}

// Close stops watching.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.watcher == nil {
		return nil
	}
	err := c.watcher.Close()
	c.watcher = nil
	return err
}

func addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// hidden checks path relative to the root, so a root inside a dot
// directory still has visible files.
func (c *Connector) hidden(path string) bool {
	if rel, err := filepath.Rel(c.rootPath, path); err == nil {
		path = rel
	}
	return isHidden(path)
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part != "" && part != "." && part != ".." && strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
