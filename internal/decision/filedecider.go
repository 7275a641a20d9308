package decision

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// FileDecider evaluates the rule set loaded from a JSON file and reloads it
// when the file changes, so operators can edit risk behavior without a
// redeploy. A broken edit keeps the previous rules in effect.
type FileDecider struct {
	path   string
	logger *slog.Logger
	rules  atomic.Pointer[Rules]
}

// NewFileDecider loads the rules file once. The initial load must succeed;
// later reload failures only log.
func NewFileDecider(path string, logger *slog.Logger) (*FileDecider, error) {
	rules, err := loadRulesFile(path)
	if err != nil {
		return nil, err
	}
	d := &FileDecider{path: path, logger: logger}
	d.rules.Store(&rules)
	return d, nil
}

func (d *FileDecider) Decide(_ context.Context, p Params) (Outcome, error) {
	return d.rules.Load().Evaluate(p), nil
}

// Reload re-reads the rules file, swapping the active rule set atomically
// on success.
func (d *FileDecider) Reload() error {
	rules, err := loadRulesFile(d.path)
	if err != nil {
		return err
	}
	d.rules.Store(&rules)
	return nil
}

// Watch reloads the rules file on filesystem change events until ctx is
// done. Call in a goroutine. The parent directory is watched rather than
// the file itself so editors that replace the file (rename-over) still
// trigger a reload.
func (d *FileDecider) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(d.path)); err != nil {
		return err
	}
	d.logger.Info("watching decision rules file", "path", d.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(d.path) {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			if err := d.Reload(); err != nil {
				d.logger.Error("decision rules reload failed, keeping previous rules",
					"path", d.path, "error", err)
				continue
			}
			d.logger.Info("decision rules reloaded", "path", d.path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			d.logger.Error("decision rules watcher error", "error", err)
		}
	}
}
