package trigger

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nerrad567/gray-logic-automator/internal/automation"
)

// File change event names.
const (
	FileModify = "modify"
	FileAdd    = "add"
	FileDelete = "delete"
)

// DefaultIgnore excludes dependency and VCS directories.
const DefaultIgnore = `(^|/)(node_modules|\.git|vendor)(/|$)`

// FileChange fires when files under a path change.
//
// Spec: {"type":"file_change","path":"./docs","events":["modify","add"],"ignore":"\\.tmp$"}
//
// Directories are watched recursively; directories created after binding
// are added as they appear.
type FileChange struct {
	Logger automation.Logger
}

// Bind starts an fsnotify watcher for a.
func (f *FileChange) Bind(ctx context.Context, a *automation.Automation, fire automation.FireFunc) (automation.Binding, error) {
	root := a.Trigger.String("path")
	if root == "" {
		return nil, fmt.Errorf("%w: path is required", ErrInvalidWatch)
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWatch, err)
	}
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWatch, err)
	}

	ignore, err := regexp.Compile(a.Trigger.StringOr("ignore", DefaultIgnore))
	if err != nil {
		return nil, fmt.Errorf("%w: ignore pattern: %w", ErrInvalidWatch, err)
	}

	events := map[string]bool{FileModify: true, FileAdd: true, FileDelete: true}
	if want := a.Trigger.Strings("events"); len(want) > 0 {
		events = make(map[string]bool, len(want))
		for _, e := range want {
			events[e] = true
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	w := &fileWatch{
		id:      a.ID,
		root:    root,
		ignore:  ignore,
		events:  events,
		watcher: watcher,
		fire:    fire,
		logger:  loggerOr(f.Logger),
	}
	if err := w.addTree(root); err != nil {
		watcher.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("watching %s: %w", root, err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go w.loop(loopCtx, done)

	return automation.BindingFunc(func() error {
		cancel()
		err := watcher.Close()
		<-done
		return err
	}), nil
}

type fileWatch struct {
	id      string
	root    string
	ignore  *regexp.Regexp
	events  map[string]bool
	watcher *fsnotify.Watcher
	fire    automation.FireFunc
	logger  automation.Logger
}

// addTree watches dir and every directory below it that is not ignored.
func (w *fileWatch) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.ignored(path) {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

func (w *fileWatch) ignored(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		rel = path
	}
	return w.ignore.MatchString(filepath.ToSlash(rel))
}

func (w *fileWatch) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if !errors.Is(err, fsnotify.ErrEventOverflow) {
				w.logger.Warn("file watcher error", "automation_id", w.id, "error", err)
				continue
			}
			w.logger.Warn("file watcher overflow, events dropped", "automation_id", w.id)
		}
	}
}

func (w *fileWatch) handle(ev fsnotify.Event) {
	if w.ignored(ev.Name) {
		return
	}

	kind := classify(ev.Op)
	if kind == "" {
		return
	}

	if kind == FileAdd {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				w.logger.Warn("watching new directory failed", "automation_id", w.id, "path", ev.Name, "error", err)
			}
		}
	}

	if !w.events[kind] {
		return
	}

	dispatch(w.fire, automation.ExecutionContext{
		Trigger:   "file_change",
		Timestamp: time.Now().UTC(),
		Data: map[string]any{
			"filePath": ev.Name,
			"event":    kind,
		},
	}, w.logger, w.id)
}

func classify(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return FileAdd
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return FileDelete
	case op.Has(fsnotify.Write):
		return FileModify
	}
	return ""
}
