package cart

import (
	"container/list"
	"context"
	"runtime"
	"sync"
	"weak"

	"go.uber.org/zap"
)

// SessionKey returns the Store key of the cart owned by session.
func SessionKey(session string) string {
	return DefaultKey + ":" + session
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	Renderer Renderer
	Logger   *zap.Logger
	// MaxSessions bounds the number of managers the Registry keeps alive.
	// The least recently used one is released first; its snapshot stays in
	// the Store. Zero means unbounded.
	MaxSessions int
}

// Registry hands out one Manager per session, loading it from the Store on
// first use.
//
// A released Manager may still be in use by a caller that fetched it before
// eviction. Until it is garbage collected, Get returns that same Manager, so a
// session never has two live owners in one process.
type Registry struct {
	store Store
	opts  RegistryOptions

	mu       sync.Mutex
	managers map[string]*list.Element
	lru      *list.List
	released map[string]weak.Pointer[Manager]
}

type registryEntry struct {
	session string
	manager *Manager
}

// releasedEntry identifies a released Manager for its cleanup.
type releasedEntry struct {
	session string
	ptr     weak.Pointer[Manager]
}

// NewRegistry creates a Registry over store.
func NewRegistry(store Store, opts RegistryOptions) *Registry {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Registry{
		store:    store,
		opts:     opts,
		managers: make(map[string]*list.Element),
		lru:      list.New(),
		released: make(map[string]weak.Pointer[Manager]),
	}
}

// Get returns the Manager of session, loading it if needed.
func (r *Registry) Get(ctx context.Context, session string) (*Manager, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if el, ok := r.managers[session]; ok {
		r.lru.MoveToFront(el)
		return el.Value.(*registryEntry).manager, nil
	}

	m := r.reclaim(session)
	if m == nil {
		var err error
		m, err = Load(ctx, r.store, Options{
			Key:      SessionKey(session),
			Renderer: r.opts.Renderer,
			Logger:   r.opts.Logger.With(zap.String("session", session)),
		})
		if err != nil {
			return nil, err
		}
		runtime.AddCleanup(m, r.dropReleased, releasedEntry{session: session, ptr: weak.Make(m)})
	}
	r.managers[session] = r.lru.PushFront(&registryEntry{session: session, manager: m})
	r.evict()
	return m, nil
}

// reclaim returns the released Manager of session if it is still reachable.
// Must be called with mu held.
func (r *Registry) reclaim(session string) *Manager {
	ptr, ok := r.released[session]
	if !ok {
		return nil
	}
	delete(r.released, session)
	return ptr.Value()
}

// evict releases managers beyond MaxSessions. Must be called with mu held.
func (r *Registry) evict() {
	if r.opts.MaxSessions <= 0 {
		return
	}
	for r.lru.Len() > r.opts.MaxSessions {
		oldest := r.lru.Back()
		r.lru.Remove(oldest)
		e := oldest.Value.(*registryEntry)
		delete(r.managers, e.session)
		r.released[e.session] = weak.Make(e.manager)
	}
}

func (r *Registry) dropReleased(e releasedEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released[e.session] == e.ptr {
		delete(r.released, e.session)
	}
}

// Len returns the number of managers held by the Registry.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lru.Len()
}
