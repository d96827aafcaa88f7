package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var _ Backend = (*FileBackend)(nil)

// FileBackend persists the shared state as a JSON file. Every process
// ("tab") pointing at the same file sees the same data: local mutations are
// written atomically (temp file + rename) and published on the in-process
// bus; mutations from other processes are picked up by a filesystem watcher,
// diffed against the cached snapshot and published with an empty origin.
//
// A reload that matches the cached snapshot publishes nothing, which is what
// suppresses the watcher notification caused by this process's own writes.
type FileBackend struct {
	path string
	log  zerolog.Logger

	mu    sync.Mutex
	cache map[string]string

	bus       changeBus
	watcher   *fsnotify.Watcher
	done      chan struct{}
	closeOnce sync.Once
}

// NewFileBackend opens (or creates) the shared state file and starts
// watching it for external changes. Close must be called to release the
// watcher.
func NewFileBackend(path string, log zerolog.Logger) (*FileBackend, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "[NewFileBackend] os.MkdirAll")
	}

	fb := &FileBackend{
		path:  path,
		log:   log,
		cache: make(map[string]string),
		done:  make(chan struct{}),
	}
	if err := fb.loadLocked(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "[NewFileBackend] fsnotify.NewWatcher")
	}
	// Watch the directory: atomic renames replace the file inode, which
	// breaks a watch placed on the file itself.
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, errors.Wrap(err, "[NewFileBackend] watcher.Add")
	}
	fb.watcher = watcher
	go fb.watchLoop()

	return fb, nil
}

// Close stops the filesystem watcher. Safe to call more than once.
func (fb *FileBackend) Close() error {
	var err error
	fb.closeOnce.Do(func() {
		close(fb.done)
		err = fb.watcher.Close()
	})
	return err
}

func (fb *FileBackend) Get(key string) (string, bool) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	v, ok := fb.cache[key]
	return v, ok
}

func (fb *FileBackend) Apply(origin string, muts []Mutation) error {
	fb.mu.Lock()
	events := applyToMap(fb.cache, origin, muts)
	if len(events) > 0 {
		if err := fb.writeLocked(); err != nil {
			fb.mu.Unlock()
			return errors.Wrap(err, "[FileBackend.Apply] write")
		}
	}
	fb.mu.Unlock()

	fb.bus.publish(events)
	return nil
}

func (fb *FileBackend) Subscribe(origin string, keys []string, fn func(Event)) func() {
	return fb.bus.subscribe(origin, keys, fn)
}

// loadLocked reads the state file into the cache. A missing file is an empty
// store; a corrupt file is treated the same and reported.
func (fb *FileBackend) loadLocked() error {
	raw, err := os.ReadFile(fb.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "[FileBackend.load] os.ReadFile")
	}
	data := make(map[string]string)
	if err := json.Unmarshal(raw, &data); err != nil {
		fb.log.Warn().Err(err).Str("path", fb.path).Msg("Discarding corrupt state file")
		return nil
	}
	fb.cache = data
	return nil
}

func (fb *FileBackend) writeLocked() error {
	raw, err := json.MarshalIndent(fb.cache, "", "  ")
	if err != nil {
		return errors.Wrap(err, "json.Marshal")
	}
	tmp := fb.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return errors.Wrap(err, "os.WriteFile")
	}
	if err := os.Rename(tmp, fb.path); err != nil {
		return errors.Wrap(err, "os.Rename")
	}
	return nil
}

func (fb *FileBackend) watchLoop() {
	for {
		select {
		case <-fb.done:
			return
		case ev, ok := <-fb.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(fb.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			fb.reload()
		case err, ok := <-fb.watcher.Errors:
			if !ok {
				return
			}
			fb.log.Warn().Err(err).Msg("State file watcher error")
		}
	}
}

// reload re-reads the file and publishes the difference against the cached
// snapshot as external events (empty origin).
func (fb *FileBackend) reload() {
	fb.mu.Lock()
	previous := fb.cache
	fb.cache = make(map[string]string)
	if err := fb.loadLocked(); err != nil {
		fb.cache = previous
		fb.mu.Unlock()
		fb.log.Warn().Err(err).Msg("Failed to reload state file")
		return
	}
	events := diffSnapshots(previous, fb.cache)
	fb.mu.Unlock()

	fb.bus.publish(events)
}

func diffSnapshots(before, after map[string]string) []Event {
	var events []Event
	for key, oldVal := range before {
		newVal, ok := after[key]
		if !ok {
			oldCopy := oldVal
			events = append(events, Event{Key: key, OldValue: &oldCopy})
			continue
		}
		if newVal != oldVal {
			oldCopy, newCopy := oldVal, newVal
			events = append(events, Event{Key: key, OldValue: &oldCopy, NewValue: &newCopy})
		}
	}
	for key, newVal := range after {
		if _, ok := before[key]; !ok {
			newCopy := newVal
			events = append(events, Event{Key: key, NewValue: &newCopy})
		}
	}
	return events
}
