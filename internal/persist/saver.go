package persist

import (
	"context"
	"log"
	"sync"

	"github.com/bgdnvk/wpdeploy/internal/session"
)

// Saver writes sessions in the background through a queue of depth one: a
// snapshot scheduled while another is still queued replaces it, so under a
// burst of edits only the newest state is guaranteed to reach the store.
// Every write is a complete snapshot.
type Saver struct {
	store *Store

	mu        sync.Mutex
	pending   *session.Session
	scheduled uint64
	written   uint64
	changed   chan struct{}
	lastErr   error

	wake     chan struct{}
	quit     chan struct{}
	finished chan struct{}
	once     sync.Once
}

// NewSaver starts the background writer. Call Close to stop it.
func NewSaver(store *Store) *Saver {
	sv := &Saver{
		store:    store,
		changed:  make(chan struct{}),
		wake:     make(chan struct{}, 1),
		quit:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	go sv.run()
	return sv
}

// Schedule queues a copy of s for writing and returns immediately.
func (sv *Saver) Schedule(s session.Session) {
	c := s.Clone()
	sv.mu.Lock()
	sv.pending = &c
	sv.scheduled++
	sv.mu.Unlock()

	select {
	case sv.wake <- struct{}{}:
	default:
	}
}

// Flush blocks until everything scheduled before the call is written or
// superseded by a later write.
func (sv *Saver) Flush(ctx context.Context) error {
	sv.mu.Lock()
	target := sv.scheduled
	sv.mu.Unlock()

	for {
		sv.mu.Lock()
		if sv.written >= target {
			err := sv.lastErr
			sv.mu.Unlock()
			return err
		}
		ch := sv.changed
		sv.mu.Unlock()

		select {
		case <-ch:
		case <-sv.finished:
			sv.mu.Lock()
			err := sv.lastErr
			sv.mu.Unlock()
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Err returns the result of the most recent write.
func (sv *Saver) Err() error {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	return sv.lastErr
}

// Close writes whatever is still queued and stops the writer.
func (sv *Saver) Close() error {
	sv.once.Do(func() { close(sv.quit) })
	<-sv.finished
	return sv.Err()
}

func (sv *Saver) run() {
	defer close(sv.finished)
	for {
		select {
		case <-sv.wake:
			sv.writePending()
		case <-sv.quit:
			sv.writePending()
			return
		}
	}
}

func (sv *Saver) writePending() {
	sv.mu.Lock()
	next := sv.pending
	seq := sv.scheduled
	sv.pending = nil
	sv.mu.Unlock()

	if next == nil {
		return
	}

	err := sv.store.Save(context.Background(), *next)
	if err != nil {
		log.Printf("[persist] session save failed: %v", err)
	}

	sv.mu.Lock()
	sv.written = seq
	sv.lastErr = err
	close(sv.changed)
	sv.changed = make(chan struct{})
	sv.mu.Unlock()
}
