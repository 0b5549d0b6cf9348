// Package registry keeps a short list of named sessions the user saved for
// reuse. The list is stored as plain JSON so titles and paths stay
// browsable; it is separate from the encrypted current session.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bgdnvk/wpdeploy/internal/kvstore"
	"github.com/bgdnvk/wpdeploy/internal/session"
)

const (
	DefaultKey   = "wp_deploy_gen_history"
	DefaultLimit = 10
)

// ErrCorrupt means the stored list could not be decoded. The list is then
// treated as empty.
var ErrCorrupt = errors.New("registry list is corrupt")

// ErrNotFound is returned by Find when no entry has the requested name.
var ErrNotFound = errors.New("registry entry not found")

type Manager struct {
	kv    kvstore.Store
	key   string
	limit int
}

func New(kv kvstore.Store, key string, limit int) *Manager {
	if key == "" {
		key = DefaultKey
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Manager{kv: kv, key: key, limit: limit}
}

// List returns saved sessions, most recent first.
func (m *Manager) List(ctx context.Context) ([]session.Session, error) {
	raw, ok, err := m.kv.Get(ctx, m.key)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	if !ok || raw == "" {
		return []session.Session{}, nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return []session.Session{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	// Entries saved by older versions lack newer fields.
	list := make([]session.Session, 0, len(entries))
	for i, e := range entries {
		s, err := session.MergeOverDefaults(e)
		if err != nil {
			return []session.Session{}, fmt.Errorf("%w: entry %d: %v", ErrCorrupt, i, err)
		}
		list = append(list, s)
	}
	return list, nil
}

// Save puts s at the front, dropping any older entry with the same target
// name and anything beyond the limit. It returns the new list.
func (m *Manager) Save(ctx context.Context, s session.Session) ([]session.Session, error) {
	list, err := m.List(ctx)
	if err != nil && !errors.Is(err, ErrCorrupt) {
		return nil, err
	}

	next := make([]session.Session, 0, len(list)+1)
	next = append(next, s.Clone())
	for _, e := range list {
		if e.TargetName != s.TargetName {
			next = append(next, e)
		}
	}
	if len(next) > m.limit {
		next = next[:m.limit]
	}

	buf, err := json.Marshal(next)
	if err != nil {
		return nil, fmt.Errorf("encode registry: %w", err)
	}
	if err := m.kv.Set(ctx, m.key, string(buf)); err != nil {
		return nil, fmt.Errorf("write registry: %w", err)
	}
	return next, nil
}

// Find returns the entry saved under a target name.
func (m *Manager) Find(ctx context.Context, targetName string) (session.Session, error) {
	list, err := m.List(ctx)
	if err != nil {
		return session.Session{}, err
	}
	for _, e := range list {
		if e.TargetName == targetName {
			return e, nil
		}
	}
	return session.Session{}, fmt.Errorf("%w: %s", ErrNotFound, targetName)
}

// Clear removes every entry.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.kv.Remove(ctx, m.key); err != nil {
		return fmt.Errorf("clear registry: %w", err)
	}
	return nil
}
