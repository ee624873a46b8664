package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/psi-alpha/genesis-dm/ingest"
)

// DropFolder feeds files from a watched directory through the same
// pipeline as HTTP uploads. Re-ingesting an unchanged file is caught by
// the duplicate detector, so no bookkeeping is kept here.
type DropFolder struct {
	log              *slog.Logger
	root             string
	mergeEventsDelay time.Duration
	supports         func(filename string) bool
	process          func(ctx context.Context, filename string, data []byte) (ingest.Result, error)

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewDropFolder(log *slog.Logger, root string, debounce time.Duration, srv *Server) *DropFolder {
	return &DropFolder{
		log:              log,
		root:             root,
		mergeEventsDelay: debounce,
		supports:         srv.pipeline.Supports,
		process:          srv.process,
		timers:           make(map[string]*time.Timer),
	}
}

// Sync walks the folder once and ingests every supported file.
func (d *DropFolder) Sync(ctx context.Context) error {
	return filepath.Walk(d.root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		d.ingestFile(ctx, path)
		return nil
	})
}

// Watch ingests files as they appear or change. Write events for the
// same file are merged within the debounce window.
func (d *DropFolder) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := watcher.Add(d.root); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", d.root, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write) {
					d.scheduleIngest(ctx, event.Name)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				d.log.Error("watcher error", "error", err)
			}
		}
	}()

	return nil
}

func (d *DropFolder) scheduleIngest(ctx context.Context, path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if timer, ok := d.timers[path]; ok {
		timer.Stop()
	}

	d.timers[path] = time.AfterFunc(d.mergeEventsDelay, func() {
		d.mu.Lock()
		delete(d.timers, path)
		d.mu.Unlock()

		d.ingestFile(ctx, path)
	})
}

func (d *DropFolder) ingestFile(ctx context.Context, path string) {
	if !d.supports(path) {
		d.log.Warn("unsupported file", "path", path)
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		d.log.Error("failed to read file", "path", path, "error", err)
		return
	}

	res, err := d.process(ctx, filepath.Base(path), data)
	if err != nil {
		if errors.Is(err, ingest.ErrEmptyInput) {
			d.log.Warn("skipping empty file", "path", path)
			return
		}
		d.log.Error("failed to ingest file", "path", path, "error", err)
		return
	}

	if res.Duplicates > 0 {
		d.log.Info("file rejected as duplicate", "path", path, "duplicate_chunks", res.Duplicates)
		return
	}

	d.log.Info("file ingested", "path", path, "inserted", res.Inserted)
}
