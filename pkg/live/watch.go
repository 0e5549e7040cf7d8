package live

import (
	"context"
	"os"
	"sync"
	"time"
)

// Watcher polls a fixed set of files and reports the ones whose
// modification time moved forward.
type Watcher struct {
	paths    []string
	interval time.Duration

	mu       sync.Mutex
	stamps   map[string]time.Time
	primed   bool
	onChange func(changed []string)
}

// NewWatcher creates a watcher over paths. Their current modification times
// are the baseline.
func NewWatcher(interval time.Duration, paths ...string) *Watcher {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	w := &Watcher{
		paths:    paths,
		interval: interval,
		stamps:   make(map[string]time.Time),
	}
	w.Check()
	return w
}

// OnChange sets the callback Run invokes with the changed paths.
func (w *Watcher) OnChange(fn func(changed []string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Check scans once and returns the paths modified or created since the
// last scan. Missing files are skipped until they appear.
func (w *Watcher) Check() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var changed []string
	for _, p := range w.paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		last, seen := w.stamps[p]
		if mod := info.ModTime(); !seen || mod.After(last) {
			w.stamps[p] = mod
			if seen || w.primed {
				changed = append(changed, p)
			}
		}
	}
	w.primed = true
	return changed
}

// Run polls until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			changed := w.Check()
			if len(changed) == 0 {
				continue
			}
			w.mu.Lock()
			fn := w.onChange
			w.mu.Unlock()
			if fn != nil {
				fn(changed)
			}
		}
	}
}
