package evaluator

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/chervil-lang/chervil/pkg/chervil/errors"
	"github.com/chervil-lang/chervil/pkg/chervil/module"
)

// Extension is the source-file suffix the FileResolver appends to import
// paths.
const Extension = ".chv"

// FileResolver compiles source files below a root directory into modules
// on demand. Compiled modules are cached by file path; a write, rename or
// removal seen by the directory watcher drops the cache entry so the next
// import recompiles. Imports within one evaluation still observe a single
// module instance through the cache.
type FileResolver struct {
	engine  *Engine
	root    string
	mu      sync.Mutex
	cache   map[string]*module.Module
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewFileResolver creates a resolver rooted at dir and starts watching it
// for changes. Close releases the watcher.
func NewFileResolver(engine *Engine, dir string) (*FileResolver, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.New("IO-0001", map[string]any{
			"Operation": "watch", "Path": dir, "GoError": err.Error(),
		})
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, errors.New("IO-0001", map[string]any{
			"Operation": "watch", "Path": dir, "GoError": err.Error(),
		})
	}

	r := &FileResolver{
		engine:  engine,
		root:    dir,
		cache:   make(map[string]*module.Module),
		watcher: watcher,
		done:    make(chan struct{}),
	}
	go r.watch()
	return r, nil
}

func (r *FileResolver) watch() {
	for {
		select {
		case ev, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename|fsnotify.Create) != 0 {
				r.mu.Lock()
				delete(r.cache, filepath.Clean(ev.Name))
				r.mu.Unlock()
			}
		case _, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
		case <-r.done:
			return
		}
	}
}

// Resolve implements module.Resolver.
func (r *FileResolver) Resolve(path string) (*module.Module, error) {
	file := path
	if filepath.Ext(file) == "" {
		file += Extension
	}
	file = filepath.Clean(filepath.Join(r.root, file))

	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.cache[file]; ok {
		return m, nil
	}

	src, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.New("MOD-0001", map[string]any{"Path": path})
	}
	m, err := r.engine.EvalModule(string(src))
	if err != nil {
		if ce, ok := err.(*errors.ChervilError); ok {
			return nil, ce.WithFile(file)
		}
		return nil, err
	}
	r.cache[file] = m
	return m, nil
}

// Close stops the watcher.
func (r *FileResolver) Close() error {
	close(r.done)
	return r.watcher.Close()
}
