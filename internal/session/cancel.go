// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"sync"
)

// =============================================================================
// CANCEL FUNCTION MANAGEMENT (THREAD-SAFE)
// =============================================================================

// cancelManager owns the cancel function of one running turn. done is
// closed when the turn has fully finished, including persistence.
type cancelManager struct {
	mu         sync.Mutex
	cancelFunc context.CancelFunc
	done       chan struct{}
	state      State
}

func newCancelManager(fn context.CancelFunc) *cancelManager {
	return &cancelManager{cancelFunc: fn, done: make(chan struct{}), state: StateIdle}
}

// cancel invokes the stored cancel function and clears it.
// Safe to call multiple times.
func (cm *cancelManager) cancel() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancelFunc != nil {
		cm.cancelFunc()
		cm.cancelFunc = nil
	}
}

// finish releases the context and marks the turn done.
func (cm *cancelManager) finish() {
	cm.cancel()
	close(cm.done)
}

func (cm *cancelManager) setState(s State) {
	cm.mu.Lock()
	cm.state = s
	cm.mu.Unlock()
}

func (cm *cancelManager) getState() State {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.state
}

// =============================================================================
// ACTIVE TURN REGISTRY
// =============================================================================

// registry tracks running turns by conversation id. A turn for a
// conversation the backend has not created yet is keyed by its turn id
// until the backend assigns a conversation id, after which it is reachable
// under both keys.
type registry struct {
	mu     sync.Mutex
	active map[string]*cancelManager
	last   map[string]State
}

func newRegistry() *registry {
	return &registry{
		active: make(map[string]*cancelManager),
		last:   make(map[string]State),
	}
}

// lookup returns the running turn for key.
func (r *registry) lookup(key string) (*cancelManager, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cm, ok := r.active[key]
	return cm, ok
}

// claim registers cm under key unless another turn holds it.
func (r *registry) claim(key string, cm *cancelManager) (*cancelManager, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if other, ok := r.active[key]; ok {
		return other, false
	}
	r.active[key] = cm
	return cm, true
}

// alias makes cm reachable under an additional key.
func (r *registry) alias(key string, cm *cancelManager) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[key]; !ok {
		r.active[key] = cm
	}
}

// release removes every key pointing at cm and remembers its final state.
func (r *registry) release(cm *cancelManager) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state := cm.getState()
	for k, v := range r.active {
		if v == cm {
			delete(r.active, k)
			r.last[k] = state
		}
	}
}

// state returns the state of the running or most recent turn for key.
func (r *registry) state(key string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cm, ok := r.active[key]; ok {
		return cm.getState()
	}
	if s, ok := r.last[key]; ok {
		return s
	}
	return StateIdle
}
