// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// =============================================================================
// FILE PROVIDER
// =============================================================================

// FileProvider reads the bearer token from a file and reloads it whenever the
// file changes, so an external process can rotate credentials without a
// restart.
type FileProvider struct {
	path   string
	tenant string
	log    *zap.Logger

	mu    sync.RWMutex
	token string

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewFileProvider loads the token at path and starts watching it. Close must
// be called to stop the watcher.
func NewFileProvider(path, tenant string, log *zap.Logger) (*FileProvider, error) {
	if log == nil {
		log = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve token file: %w", err)
	}

	p := &FileProvider{
		path:   abs,
		tenant: tenant,
		log:    log,
		done:   make(chan struct{}),
	}
	if err := p.reload(); err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create token watcher: %w", err)
	}
	// Watch the directory: editors and secret managers replace the file
	// rather than writing it in place.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch token dir: %w", err)
	}
	p.watcher = w

	p.wg.Add(1)
	go p.processEvents()
	return p, nil
}

// Headers implements Provider.
func (p *FileProvider) Headers(ctx context.Context) (http.Header, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	token := p.token
	p.mu.RUnlock()

	if token == "" {
		return nil, ErrNoToken
	}
	return build(token, p.tenant), nil
}

// Token returns the currently loaded token.
func (p *FileProvider) Token() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.token
}

// Close stops watching the token file.
func (p *FileProvider) Close() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	close(p.done)
	err := p.watcher.Close()
	p.wg.Wait()
	return err
}

func (p *FileProvider) reload() error {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("read token file: %w", err)
	}
	token := strings.TrimSpace(string(data))

	p.mu.Lock()
	p.token = token
	p.mu.Unlock()
	return nil
}

func (p *FileProvider) processEvents() {
	defer p.wg.Done()

	for {
		select {
		case <-p.done:
			return

		case ev, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != p.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if err := p.reload(); err != nil {
				p.log.Warn("token reload failed", zap.String("path", p.path), zap.Error(err))
				continue
			}
			p.log.Info("token reloaded", zap.String("path", p.path))

		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.log.Warn("token watcher error", zap.Error(err))
		}
	}
}
