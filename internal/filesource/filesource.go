// Package filesource loads function definitions from YAML files in a
// directory and keeps the registry in step with edits on disk. A file may
// hold a single FunctionSpec or a list of them; the source tracks which
// registry entries each file contributed, so rewriting a file unregisters
// the specs it no longer defines and deleting a file unregisters
// everything it defined.
package filesource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"sigs.k8s.io/yaml"

	"switchboard/internal/gateway"
	"switchboard/pkg/logging"
)

// DefaultDebounce is how long the watcher waits for further events on the
// same file before acting. Editors typically produce several filesystem
// events per save.
const DefaultDebounce = 500 * time.Millisecond

// SpecStore is the registry surface the source feeds.
type SpecStore interface {
	Update(spec *gateway.FunctionSpec) error
	Delete(service, requestType string)
}

// fileOp is what a debounced filesystem event resolves to.
type fileOp int

const (
	opReload fileOp = iota
	opRemove
)

// pendingEntry tracks a debounced event for one file.
type pendingEntry struct {
	timer *time.Timer
	op    fileOp
}

// specKey identifies one registry entry contributed by a file.
type specKey struct {
	service     string
	requestType string
}

// Source reads FunctionSpec definitions from <dir>/*.yaml and watches the
// directory for changes.
type Source struct {
	dir      string
	store    SpecStore
	debounce time.Duration

	mu      sync.Mutex
	loaded  map[string][]specKey // file path -> keys the file contributed
	pending map[string]*pendingEntry
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	running bool
}

// New creates a source reading function definitions from dir. A
// non-positive debounce selects the default.
func New(dir string, store SpecStore, debounce time.Duration) *Source {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Source{
		dir:      dir,
		store:    store,
		debounce: debounce,
		loaded:   make(map[string][]specKey),
		pending:  make(map[string]*pendingEntry),
		stopCh:   make(chan struct{}),
	}
}

// Load reads every YAML file in the directory once. A missing directory is
// treated as empty. Files that fail to parse are logged and skipped; Load
// errors only when the directory itself cannot be read.
func (s *Source) Load() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Debug("FileSource", "Functions directory %s does not exist, starting empty", s.dir)
			return nil
		}
		return fmt.Errorf("failed to read functions directory %s: %w", s.dir, err)
	}

	files, specs := 0, 0
	for _, entry := range entries {
		if entry.IsDir() || !isYAMLFile(entry.Name()) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		keys, err := s.loadFile(path)
		if err != nil {
			logging.Warn("FileSource", "Skipping %s: %v", path, err)
			continue
		}
		s.mu.Lock()
		s.loaded[path] = keys
		s.mu.Unlock()
		files++
		specs += len(keys)
	}

	logging.Info("FileSource", "Loaded %d functions from %d files in %s", specs, files, s.dir)
	return nil
}

// Start begins watching the directory for changes. The directory is
// created if it does not exist so definitions can be dropped in later.
func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to create functions directory %s: %w", s.dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		s.mu.Unlock()
		return fmt.Errorf("failed to watch %s: %w", s.dir, err)
	}

	s.watcher = watcher
	s.stopCh = make(chan struct{})
	s.running = true
	s.mu.Unlock()

	go s.processEvents(ctx, watcher)

	logging.Info("FileSource", "Watching %s for function definition changes", s.dir)
	return nil
}

// Stop stops watching. Definitions already loaded stay registered.
func (s *Source) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	watcher := s.watcher
	s.watcher = nil
	s.mu.Unlock()

	if watcher != nil {
		if err := watcher.Close(); err != nil {
			logging.Error("FileSource", err, "Error closing filesystem watcher")
		}
	}

	logging.Info("FileSource", "Stopped watching %s", s.dir)
}

// processEvents handles filesystem events until the watcher closes or the
// source stops.
func (s *Source) processEvents(ctx context.Context, watcher *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			s.cleanupPending()
			return

		case <-s.stopCh:
			s.cleanupPending()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.Error("FileSource", err, "Filesystem watcher error")
		}
	}
}

// handleEvent classifies a single filesystem event and queues it for the
// debounced apply.
func (s *Source) handleEvent(event fsnotify.Event) {
	if !isYAMLFile(event.Name) {
		return
	}

	var op fileOp
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		op = opReload
	case event.Op&fsnotify.Write == fsnotify.Write:
		op = opReload
	case event.Op&fsnotify.Remove == fsnotify.Remove:
		op = opRemove
	case event.Op&fsnotify.Rename == fsnotify.Rename:
		// The old name is gone; the new name arrives as its own Create.
		op = opRemove
	default:
		return
	}

	s.debounceChange(event.Name, op)
}

// debounceChange coalesces rapid successive events on the same file. With
// only reload and remove as outcomes, the latest event decides what runs:
// a remove after writes means the file is gone, a create after a remove
// means it is back.
func (s *Source) debounceChange(path string, op fileOp) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.pending[path]; ok {
		entry.timer.Stop()
	}

	timer := time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		entry, ok := s.pending[path]
		if ok {
			delete(s.pending, path)
		}
		s.mu.Unlock()

		if ok {
			s.apply(path, entry.op)
		}
	})

	s.pending[path] = &pendingEntry{timer: timer, op: op}
}

// apply carries out a debounced change.
func (s *Source) apply(path string, op fileOp) {
	switch op {
	case opReload:
		s.applyFile(path)
	case opRemove:
		s.removeFile(path)
	}
}

// applyFile reloads one file and unregisters entries the file no longer
// defines. A file that fails to parse keeps its previous entries; a
// half-saved edit must not unregister working functions.
func (s *Source) applyFile(path string) {
	keys, err := s.loadFile(path)
	if err != nil {
		logging.Warn("FileSource", "Keeping previous definitions, failed to reload %s: %v", path, err)
		return
	}

	s.mu.Lock()
	previous := s.loaded[path]
	s.loaded[path] = keys
	s.mu.Unlock()

	current := make(map[specKey]bool, len(keys))
	for _, k := range keys {
		current[k] = true
	}
	for _, k := range previous {
		if !current[k] {
			s.store.Delete(k.service, k.requestType)
		}
	}

	logging.Debug("FileSource", "Reloaded %s (%d functions)", path, len(keys))
}

// removeFile unregisters everything a deleted file contributed.
func (s *Source) removeFile(path string) {
	s.mu.Lock()
	keys, ok := s.loaded[path]
	delete(s.loaded, path)
	s.mu.Unlock()

	if !ok {
		return
	}
	for _, k := range keys {
		s.store.Delete(k.service, k.requestType)
	}
	logging.Info("FileSource", "Removed %d functions after %s was deleted", len(keys), path)
}

// loadFile parses one YAML file and upserts every spec it defines,
// returning the keys that were stored. Specs that fail validation are
// logged and skipped.
func (s *Source) loadFile(path string) ([]specKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	specs, err := parseSpecs(data)
	if err != nil {
		return nil, err
	}

	keys := make([]specKey, 0, len(specs))
	for _, spec := range specs {
		if spec == nil {
			continue
		}
		if err := s.store.Update(spec); err != nil {
			logging.Warn("FileSource", "Skipping invalid spec %s/%s in %s: %v", spec.Service, spec.RequestType, path, err)
			continue
		}
		keys = append(keys, specKey{spec.Service, spec.RequestType})
	}
	return keys, nil
}

// parseSpecs decodes file content as either a list of specs or a single
// spec.
func parseSpecs(data []byte) ([]*gateway.FunctionSpec, error) {
	var list []*gateway.FunctionSpec
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var single gateway.FunctionSpec
	if err := yaml.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("file is neither a spec list nor a single spec: %w", err)
	}
	return []*gateway.FunctionSpec{&single}, nil
}

// cleanupPending cancels all pending debounce timers.
func (s *Source) cleanupPending() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range s.pending {
		entry.timer.Stop()
	}
	s.pending = make(map[string]*pendingEntry)
}

// isYAMLFile reports whether a path names a YAML file.
func isYAMLFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
