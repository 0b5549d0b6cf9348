// Package persist keeps the current session in the durable store as one
// encrypted token.
package persist

import (
	"context"
	"fmt"

	"github.com/bgdnvk/wpdeploy/internal/envelope"
	"github.com/bgdnvk/wpdeploy/internal/kvstore"
	"github.com/bgdnvk/wpdeploy/internal/session"
)

// DefaultKey is the slot holding the encrypted current session.
const DefaultKey = "wp_deploy_gen_secure_v1"

// Store loads and saves the single current session.
type Store struct {
	kv  kvstore.Store
	env *envelope.Envelope
	key string
}

func NewStore(kv kvstore.Store, env *envelope.Envelope, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{kv: kv, env: env, key: key}
}

// Load always returns a usable session. The error explains why defaults
// were used instead of the stored value; a missing slot is not an error.
func (s *Store) Load(ctx context.Context) (session.Session, error) {
	token, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return session.Default(), fmt.Errorf("read saved session: %w", err)
	}
	if !ok || token == "" {
		return session.Default(), nil
	}
	raw, err := s.env.Unseal(token)
	if err != nil {
		return session.Default(), fmt.Errorf("open saved session: %w", err)
	}
	sess, err := session.MergeOverDefaults(raw)
	if err != nil {
		return session.Default(), fmt.Errorf("restore saved session: %w", err)
	}
	return sess, nil
}

// Save seals and writes the session unconditionally.
func (s *Store) Save(ctx context.Context, sess session.Session) error {
	token, err := s.env.Seal(sess)
	if err != nil {
		return fmt.Errorf("seal session: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, token); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

