// Package session keeps the per-device "has an active session" flag and the
// long-lived controllers of every app session.
package session

import (
	"context"
	"sync"
)

// FlagStore persists the session flag consulted at cold start. The flag is
// a routing hint only, never a credential.
type FlagStore interface {
	Has(ctx context.Context, device string) (bool, error)
	Set(ctx context.Context, device string) error
	Clear(ctx context.Context, device string) error
}

// MemoryFlags is a FlagStore that lives as long as the process.
type MemoryFlags struct {
	mu    sync.RWMutex
	flags map[string]struct{}
}

var _ FlagStore = (*MemoryFlags)(nil)

// NewMemoryFlags creates an empty MemoryFlags.
func NewMemoryFlags() *MemoryFlags {
	return &MemoryFlags{flags: make(map[string]struct{})}
}

func (m *MemoryFlags) Has(_ context.Context, device string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.flags[device]
	return ok, nil
}

func (m *MemoryFlags) Set(_ context.Context, device string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flags[device] = struct{}{}
	return nil
}

func (m *MemoryFlags) Clear(_ context.Context, device string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.flags, device)
	return nil
}
