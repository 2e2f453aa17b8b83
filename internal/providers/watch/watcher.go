package watch

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/playground/internal/infrastructure/logging"
)

// Watcher reports the contents of one file whenever it changes
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func(text *string)
	logger   *logging.Logger
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWatcher watches path. The parent directory is watched so editors
// that replace the file on save keep working.
func NewWatcher(path string, onChange func(text *string), logger *logging.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatcher.Add(filepath.Dir(abs)); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	return &Watcher{
		watcher:  fsWatcher,
		path:     abs,
		onChange: onChange,
		logger:   logger.Component("watch"),
		done:     make(chan struct{}),
	}, nil
}

// Read returns the current file text. A read failure yields nil, which
// the driver treats as no change.
func (w *Watcher) Read() *string {
	data, err := os.ReadFile(w.path)
	if err != nil {
		w.logger.Warn("Failed to read watched file", zap.String("path", w.path), zap.Error(err))
		return nil
	}
	text := string(data)
	return &text
}

// Start begins watching for file changes
func (w *Watcher) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != w.path {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				w.logger.Debug("Watched file changed", zap.String("op", event.Op.String()))
				w.onChange(w.Read())

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("Watcher error", zap.Error(err))

			case <-w.done:
				return
			}
		}
	}()
}

// Stop stops the watcher and waits for the loop to exit
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}
