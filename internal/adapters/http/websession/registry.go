// Package websession maps browser cookies to server-side session contexts.
//
// Each browser gets a random session id cookie. The id selects its
// session.Context, its own auth client and its local storage namespace, so
// the cached role survives restarts just as it would in the browser. The ID
// token is mirrored into a second cookie so a sign-in also survives eviction
// or a restart, as long as the token is still valid.
package websession

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/vivaran/internal/adapters/auth"
	"github.com/okian/vivaran/internal/domain/session"
	"github.com/okian/vivaran/pkg/logger"
	"github.com/okian/vivaran/pkg/metrics"
)

// Cookie names.
const (
	CookieSession = "vivaran_sid"
	CookieToken   = "vivaran_token"
)

const defaultIdleTimeout = 30 * time.Minute

// ClientFactory hands out auth clients, one per browser.
type ClientFactory interface {
	NewClient() *auth.Client
}

// StorageFactory opens the local storage namespace of a browser.
type StorageFactory func(sid string) (session.LocalStorage, error)

// ReleaseFunc is told when a browser session leaves the registry.
type ReleaseFunc func(sid string)

// Entry is one browser's server-side state.
type Entry struct {
	ID      string
	Session *session.Context
	Auth    *auth.Client

	lastSeen atomic.Int64
}

// Registry owns every live browser session.
type Registry struct {
	clients ClientFactory
	db      session.Database
	storage StorageFactory
	release ReleaseFunc
	idle    time.Duration
	secure  bool
	now     func() time.Time
	log     logger.Logger

	mu      sync.Mutex
	entries map[string]*Entry
}

// New creates an empty registry.
func New(clients ClientFactory, db session.Database, storage StorageFactory, opts ...Option) *Registry {
	r := &Registry{
		clients: clients,
		db:      db,
		storage: storage,
		idle:    defaultIdleTimeout,
		now:     time.Now,
		log:     logger.Nop(),
		entries: make(map[string]*Entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type ctxKey struct{}

// FromContext returns the entry Middleware stored in ctx.
func FromContext(ctx context.Context) (*Entry, bool) {
	e, ok := ctx.Value(ctxKey{}).(*Entry)
	return e, ok && e != nil
}

// WithEntry returns a copy of ctx carrying e.
func WithEntry(ctx context.Context, e *Entry) context.Context {
	return context.WithValue(ctx, ctxKey{}, e)
}

// Middleware resolves the browser session and stores it in the request context.
func (r *Registry) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		e, err := r.Resolve(w, req)
		if err != nil {
			r.log.Error(req.Context(), "browser session unavailable", logger.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, req.WithContext(WithEntry(req.Context(), e)))
	})
}

// Resolve returns the entry for the request's session cookie, creating one
// (and setting the cookie) when needed.
func (r *Registry) Resolve(w http.ResponseWriter, req *http.Request) (*Entry, error) {
	sid := ""
	if c, err := req.Cookie(CookieSession); err == nil {
		if id, perr := uuid.Parse(c.Value); perr == nil {
			sid = id.String()
		}
	}

	if sid != "" {
		r.mu.Lock()
		e, ok := r.entries[sid]
		r.mu.Unlock()
		if ok {
			e.lastSeen.Store(r.now().UnixNano())
			if c, cerr := req.Cookie(CookieToken); cerr == nil && c.Value != "" {
				if _, live := e.Auth.CurrentUser(); !live {
					http.SetCookie(w, r.expired(CookieToken))
				}
			}
			return e, nil
		}
	} else {
		sid = uuid.NewString()
		http.SetCookie(w, r.cookie(CookieSession, sid))
	}

	e, err := r.open(req.Context(), sid)
	if err != nil {
		return nil, err
	}
	if c, cerr := req.Cookie(CookieToken); cerr == nil && c.Value != "" {
		if _, rerr := e.Auth.Restore(req.Context(), c.Value); rerr != nil {
			r.log.Debug(req.Context(), "stale id token dropped", logger.String("sid", sid), logger.Error(rerr))
			http.SetCookie(w, r.expired(CookieToken))
		}
	}

	r.mu.Lock()
	if existing, ok := r.entries[sid]; ok {
		r.mu.Unlock()
		e.Session.Close(req.Context())
		existing.lastSeen.Store(r.now().UnixNano())
		return existing, nil
	}
	r.entries[sid] = e
	count := len(r.entries)
	r.mu.Unlock()
	metrics.UpdateActiveSessions(count)
	return e, nil
}

// SyncToken mirrors the entry's current ID token into the token cookie.
// Call it after every sign-in or sign-out.
func (r *Registry) SyncToken(w http.ResponseWriter, e *Entry) {
	if token := e.Auth.Token(); token != "" {
		http.SetCookie(w, r.cookie(CookieToken, token))
		return
	}
	http.SetCookie(w, r.expired(CookieToken))
}

// Sweep closes sessions idle for longer than the idle timeout. Local storage
// is kept unless a release hook drops it, so a returning browser gets its
// cached role back.
func (r *Registry) Sweep(ctx context.Context) int {
	cutoff := r.now().Add(-r.idle).UnixNano()
	var stale []*Entry
	r.mu.Lock()
	for id, e := range r.entries {
		if e.lastSeen.Load() < cutoff {
			stale = append(stale, e)
			delete(r.entries, id)
		}
	}
	count := len(r.entries)
	r.mu.Unlock()

	for _, e := range stale {
		r.drop(ctx, e)
	}
	metrics.UpdateActiveSessions(count)
	if len(stale) > 0 {
		r.log.Info(ctx, "idle browser sessions evicted", logger.Int("count", len(stale)))
	}
	return len(stale)
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close ends every session.
func (r *Registry) Close(ctx context.Context) {
	r.mu.Lock()
	all := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		all = append(all, e)
	}
	r.entries = make(map[string]*Entry)
	r.mu.Unlock()

	for _, e := range all {
		r.drop(ctx, e)
	}
	metrics.UpdateActiveSessions(0)
}

func (r *Registry) drop(ctx context.Context, e *Entry) {
	e.Session.Close(ctx)
	if r.release != nil {
		r.release(e.ID)
	}
}

func (r *Registry) open(_ context.Context, sid string) (*Entry, error) {
	store, err := r.storage(sid)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	client := r.clients.NewClient()
	e := &Entry{
		ID:      sid,
		Auth:    client,
		Session: session.New(client, r.db, store, session.WithLogger(r.log.Named("session"))),
	}
	e.lastSeen.Store(r.now().UnixNano())
	return e, nil
}

func (r *Registry) cookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (r *Registry) expired(name string) *http.Cookie {
	c := r.cookie(name, "")
	c.MaxAge = -1
	return c
}
