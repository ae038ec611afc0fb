// Package configfile persists the CLI's named session endpoints to a
// YAML file and hot-reloads it on change via a debounced fsnotify
// watch.
package configfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/drake/tn5250/config"
)

// document is the on-disk shape of the sessions file: a name keyed map
// of already-parsed config.SessionConfig records.
type document struct {
	Sessions map[string]config.SessionConfig `yaml:"sessions"`
}

// Store holds the named session list loaded from path and keeps it in
// sync with the file on disk.
type Store struct {
	mu   sync.RWMutex
	path string
	doc  document

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Load reads path if it exists (an absent file starts empty) and
// returns a Store over its contents.
func Load(path string) (*Store, error) {
	s := &Store{path: path, doc: document{Sessions: map[string]config.SessionConfig{}}}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("configfile: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &s.doc); err != nil {
		return nil, fmt.Errorf("configfile: parse %s: %w", path, err)
	}
	if s.doc.Sessions == nil {
		s.doc.Sessions = map[string]config.SessionConfig{}
	}
	return s, nil
}

// Names lists the saved session names in no particular order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.doc.Sessions))
	for name := range s.doc.Sessions {
		names = append(names, name)
	}
	return names
}

// Get returns the saved config for name, if any.
func (s *Store) Get(name string) (config.SessionConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.doc.Sessions[name]
	return cfg, ok
}

// Set records cfg under name and rewrites the file.
func (s *Store) Set(name string, cfg config.SessionConfig) error {
	s.mu.Lock()
	s.doc.Sessions[name] = cfg
	s.mu.Unlock()
	return s.save()
}

// Delete removes name and rewrites the file.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	delete(s.doc.Sessions, name)
	s.mu.Unlock()
	return s.save()
}

func (s *Store) save() error {
	s.mu.RLock()
	data, err := yaml.Marshal(s.doc)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("configfile: marshal: %w", err)
	}
	return os.WriteFile(s.path, data, 0o600)
}

// Watch starts an fsnotify watcher over the sessions file's directory
// and calls onChange (with no arguments; the reloaded entries are read
// back from the Store) after a debounce period following any write,
// the same debounce-timer shape
// the pack's vision3 config watcher uses to coalesce rapid successive
// writes into a single reload.
func (s *Store) Watch(onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("configfile: new watcher: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("configfile: watch %s: %w", dir, err)
	}

	s.watcher = w
	s.done = make(chan struct{})
	go s.watchLoop(w, onChange)
	return nil
}

func (s *Store) watchLoop(w *fsnotify.Watcher, onChange func()) {
	var debounce *time.Timer
	const debounceDelay = 300 * time.Millisecond

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Name != s.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, func() {
				s.reload()
				if onChange != nil {
					onChange()
				}
			})

		case _, ok := <-w.Errors:
			if !ok {
				return
			}

		case <-s.done:
			return
		}
	}
}

func (s *Store) reload() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return
	}
	if doc.Sessions == nil {
		doc.Sessions = map[string]config.SessionConfig{}
	}
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
}

// Close stops the watcher, if one was started.
func (s *Store) Close() {
	if s.watcher == nil {
		return
	}
	close(s.done)
	s.watcher.Close()
	s.watcher = nil
}
