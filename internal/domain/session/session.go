// Package session holds one browser's authenticated identity and role.
//
// A Context is passed explicitly to whatever needs it. Identity changes
// reported by the auth provider are fanned out to callbacks registered with
// Subscribe; each registration returns its own unregister handle.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/okian/vivaran/internal/domain/model"
	"github.com/okian/vivaran/pkg/logger"
	"github.com/okian/vivaran/pkg/metrics"
)

// StorageKeyRole is the local storage key that caches the role.
const StorageKeyRole = "userType"

// AuthClient is one browser's view of the auth provider.
type AuthClient interface {
	CreateIdentity(ctx context.Context, email, password string) (model.Identity, error)
	SignIn(ctx context.Context, email, password string) (model.Identity, error)
	SignOut(ctx context.Context) error
	// OnSessionChange calls fn with the new identity, or nil when signed out.
	OnSessionChange(fn func(*model.Identity)) (unsubscribe func())
}

// Database is the record store used for user, startup and investor records.
type Database interface {
	WriteRecord(ctx context.Context, path string, value any) error
	ReadRecord(ctx context.Context, path string, out any) (bool, error)
}

// LocalStorage is a small persistent string map scoped to one browser.
type LocalStorage interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(key string) error
}

// Context is the session state for one browser.
type Context struct {
	auth    AuthClient
	db      Database
	storage LocalStorage
	log     logger.Logger
	now     func() time.Time

	mu          sync.Mutex
	current     *model.Identity
	role        model.Role
	listeners   map[uint64]func(*model.Identity)
	nextID      uint64
	unsubscribe func()
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the session logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Context) {
		if l != nil {
			c.log = l
		}
	}
}

// WithClock overrides the time source used for createdAt stamps.
func WithClock(now func() time.Time) Option {
	return func(c *Context) {
		if now != nil {
			c.now = now
		}
	}
}

// New wires a Context to the provider. The cached role, if any, is restored
// from local storage.
func New(auth AuthClient, db Database, storage LocalStorage, opts ...Option) *Context {
	c := &Context{
		auth:      auth,
		db:        db,
		storage:   storage,
		log:       logger.Nop(),
		now:       time.Now,
		listeners: make(map[uint64]func(*model.Identity)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if v, ok := storage.Get(StorageKeyRole); ok {
		if r, err := model.ParseRole(v); err == nil {
			c.role = r
		}
	}
	c.unsubscribe = auth.OnSessionChange(c.onIdentity)
	return c
}

// Current returns the signed-in identity, if any.
func (c *Context) Current() (model.Identity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return model.Identity{}, false
	}
	return *c.current, true
}

// Role returns the cached role, if any.
func (c *Context) Role() (model.Role, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.role, c.role != ""
}

// Subscribe registers fn for identity changes. Call the returned func to unregister.
func (c *Context) Subscribe(fn func(*model.Identity)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// SelectRole caches the role picked before signup.
func (c *Context) SelectRole(ctx context.Context, role model.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", model.ErrInvalidRole, role)
	}
	c.cacheRole(ctx, role)
	return nil
}

// Register creates an identity, writes users/{uid} with fields plus the role
// and caches the role. Investors also get an investors/{uid} record built from
// the "name" and "interestedDomains" fields.
func (c *Context) Register(ctx context.Context, email, password string, role model.Role, fields map[string]any) (model.Identity, error) {
	if !role.Valid() {
		metrics.RecordAuthAttempt("register", "invalid")
		return model.Identity{}, &RegistrationError{Email: email, Err: fmt.Errorf("%w: %q", model.ErrInvalidRole, role)}
	}

	identity, err := c.auth.CreateIdentity(ctx, email, password)
	if err != nil {
		metrics.RecordAuthAttempt("register", "failure")
		c.log.Error(ctx, "error during signup", logger.String("email", email), logger.Error(err))
		return model.Identity{}, &RegistrationError{Email: email, Err: err}
	}

	record := model.UserRecord{Fields: fields, UserType: role, Email: identity.Email, CreatedAt: c.now().UTC()}
	if err := c.db.WriteRecord(ctx, model.Path(model.CollectionUsers, identity.ID), record.Flatten()); err != nil {
		metrics.RecordAuthAttempt("register", "failure")
		c.log.Error(ctx, "error storing user record", logger.String("uid", identity.ID), logger.Error(err))
		return identity, &RegistrationError{Email: email, Err: err}
	}

	if role == model.RoleInvestor {
		inv := model.InvestorProfile{
			Name:              stringField(fields, "name"),
			Email:             identity.Email,
			InterestedDomains: stringList(fields["interestedDomains"]),
		}
		if err := c.db.WriteRecord(ctx, model.Path(model.CollectionInvestors, identity.ID), inv); err != nil {
			metrics.RecordAuthAttempt("register", "failure")
			c.log.Error(ctx, "error storing investor record", logger.String("uid", identity.ID), logger.Error(err))
			return identity, &RegistrationError{Email: email, Err: err}
		}
	}

	c.cacheRole(ctx, role)
	metrics.RecordAuthAttempt("register", "success")
	c.log.Info(ctx, "user registered", logger.String("uid", identity.ID), logger.String("role", string(role)))
	return identity, nil
}

// Authenticate signs in with email and password. The role stored in
// users/{uid} wins over a cached one; the cache is only used when that
// record cannot be read.
func (c *Context) Authenticate(ctx context.Context, email, password string) (model.Identity, error) {
	identity, err := c.auth.SignIn(ctx, email, password)
	if err != nil {
		metrics.RecordAuthAttempt("login", "failure")
		c.log.Error(ctx, "error during login", logger.String("email", email), logger.Error(err))
		return model.Identity{}, &AuthenticationError{Email: email, Err: err}
	}
	metrics.RecordAuthAttempt("login", "success")

	var rec struct {
		UserType string `json:"userType"`
	}
	found, err := c.db.ReadRecord(ctx, model.Path(model.CollectionUsers, identity.ID), &rec)
	if err == nil && found {
		if role, perr := model.ParseRole(rec.UserType); perr == nil {
			cached, _ := c.Role()
			stored, _ := c.storage.Get(StorageKeyRole)
			if cached != role || stored != string(role) {
				c.cacheRole(ctx, role)
			}
			return identity, nil
		}
	}
	if err != nil {
		c.log.Warn(ctx, "could not read user record", logger.String("uid", identity.ID), logger.Error(err))
	}

	if _, ok := c.Role(); !ok {
		if v, ok := c.storage.Get(StorageKeyRole); ok {
			if role, perr := model.ParseRole(v); perr == nil {
				c.mu.Lock()
				c.role = role
				c.mu.Unlock()
			}
		}
	}
	return identity, nil
}

// EndSession clears the cached role locally and in storage, then ends the
// provider session.
func (c *Context) EndSession(ctx context.Context) error {
	if err := c.storage.Remove(StorageKeyRole); err != nil {
		c.log.Warn(ctx, "could not clear cached role", logger.Error(err))
	}
	c.mu.Lock()
	c.role = ""
	c.mu.Unlock()

	if err := c.auth.SignOut(ctx); err != nil {
		metrics.RecordAuthAttempt("logout", "failure")
		return fmt.Errorf("sign out: %w", err)
	}
	metrics.RecordAuthAttempt("logout", "success")
	return nil
}

// Close detaches from the provider and drops the provider session without
// touching local storage. Used when a browser session is evicted.
func (c *Context) Close(ctx context.Context) {
	c.mu.Lock()
	unsub := c.unsubscribe
	c.unsubscribe = nil
	c.listeners = make(map[uint64]func(*model.Identity))
	c.mu.Unlock()
	if unsub != nil {
		unsub()
	}
	if err := c.auth.SignOut(ctx); err != nil {
		c.log.Warn(ctx, "sign out on close failed", logger.Error(err))
	}
}

func (c *Context) cacheRole(ctx context.Context, role model.Role) {
	c.mu.Lock()
	c.role = role
	c.mu.Unlock()
	if err := c.storage.Set(StorageKeyRole, string(role)); err != nil {
		c.log.Warn(ctx, "could not cache role", logger.Error(err))
	}
}

// onIdentity is the provider callback. A nil identity also drops the
// in-memory role; the stored copy stays for the next reload.
func (c *Context) onIdentity(id *model.Identity) {
	c.mu.Lock()
	if id == nil {
		c.current = nil
		c.role = ""
	} else {
		cp := *id
		c.current = &cp
	}
	fns := make([]func(*model.Identity), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(id)
	}
}

func stringField(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// stringList accepts []string, []any of strings or a comma separated string.
func stringList(v any) []string {
	var out []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	switch t := v.(type) {
	case []string:
		for _, s := range t {
			add(s)
		}
	case []any:
		for _, e := range t {
			if s, ok := e.(string); ok {
				add(s)
			}
		}
	case string:
		for _, s := range strings.Split(t, ",") {
			add(s)
		}
	}
	if out == nil {
		out = []string{}
	}
	return out
}
