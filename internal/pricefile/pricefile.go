// Package pricefile applies prices from a YAML file to the mock server and
// reloads them whenever the file changes.
//
//	prices:
//	  BTC: 15000
//	  USDT: 0.9991
//	include_usdt: true
package pricefile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"quotestub/internal/mockquote"
)

const reloadDebounce = 150 * time.Millisecond

// File is the on-disk shape.
type File struct {
	Prices      map[string]float64 `yaml:"prices"`
	IncludeUSDT *bool              `yaml:"include_usdt"`
}

func Load(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read price file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse price file: %w", err)
	}
	return &f, nil
}

// Apply validates every entry before touching state, so a bad file never
// leaves the mock half updated.
func (f *File) Apply(state *mockquote.State) error {
	syms := make([]string, 0, len(f.Prices))
	for sym := range f.Prices {
		syms = append(syms, sym)
	}
	sort.Strings(syms)
	for _, sym := range syms {
		if err := mockquote.Validate(sym, f.Prices[sym]); err != nil {
			return err
		}
	}
	for _, sym := range syms {
		_ = state.SetPrice(sym, f.Prices[sym])
	}
	if f.IncludeUSDT != nil {
		state.SetIncludeUSDT(*f.IncludeUSDT)
	}
	return nil
}

// Watcher reloads the price file on change.
type Watcher struct {
	path  string
	state *mockquote.State
	log   *zap.Logger

	watcher *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer
}

func NewWatcher(path string, state *mockquote.State, log *zap.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve price file: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory so editors that replace the file by rename are
	// still picked up.
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	return &Watcher{path: abs, state: state, log: log, watcher: fw}, nil
}

// Reload reads the file and applies it. Errors keep the previous prices.
func (w *Watcher) Reload() error {
	f, err := Load(w.path)
	if err != nil {
		return err
	}
	if err := f.Apply(w.state); err != nil {
		return fmt.Errorf("apply price file: %w", err)
	}
	snap := w.state.Snapshot()
	w.log.Info("price file applied",
		zap.String("path", w.path),
		zap.Float64("btc", snap.BTC),
		zap.Float64("usdt", snap.USDT),
		zap.Bool("include_usdt", snap.IncludeUSDT))
	return nil
}

// Run processes events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) {
	defer w.stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				w.schedule()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("price file watcher", zap.Error(err))
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(reloadDebounce, func() {
		if err := w.Reload(); err != nil {
			w.log.Warn("price file reload failed", zap.String("path", w.path), zap.Error(err))
		}
	})
}

func (w *Watcher) stop() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	_ = w.watcher.Close()
}
