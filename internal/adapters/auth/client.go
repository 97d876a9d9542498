package auth

import (
	"context"
	"sync"
	"time"

	"github.com/okian/vivaran/internal/domain/model"
)

// Client is one browser's connection to the directory.
type Client struct {
	dir *Directory

	mu        sync.Mutex
	identity  *model.Identity
	token     string
	timer     *time.Timer
	listeners map[uint64]func(*model.Identity)
	next      uint64
}

// CreateIdentity registers an account and signs it in.
func (c *Client) CreateIdentity(ctx context.Context, email, password string) (model.Identity, error) {
	id, err := c.dir.Register(ctx, email, password)
	if err != nil {
		return model.Identity{}, err
	}
	if err := c.begin(id); err != nil {
		return model.Identity{}, err
	}
	return id, nil
}

// SignIn verifies the credentials and starts a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (model.Identity, error) {
	id, err := c.dir.Verify(ctx, email, password)
	if err != nil {
		return model.Identity{}, err
	}
	if err := c.begin(id); err != nil {
		return model.Identity{}, err
	}
	return id, nil
}

// Restore resumes a session from a previously issued ID token.
func (c *Client) Restore(_ context.Context, token string) (model.Identity, error) {
	id, exp, err := c.dir.parse(token)
	if err != nil {
		return model.Identity{}, err
	}
	c.start(id, token, exp)
	return id, nil
}

// SignOut ends the session. Signing out while signed out is a no-op.
func (c *Client) SignOut(context.Context) error {
	c.end()
	return nil
}

// Token returns the current ID token, or "" when signed out.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// SignOutEverywhere ends every session of the signed-in account, this one
// included, and returns how many were ended.
func (c *Client) SignOutEverywhere(ctx context.Context) int {
	c.mu.Lock()
	var uid string
	if c.identity != nil {
		uid = c.identity.ID
	}
	c.mu.Unlock()
	if uid == "" {
		return 0
	}
	return c.dir.Revoke(ctx, uid)
}

// CurrentUser returns the signed-in identity after re-validating its token.
func (c *Client) CurrentUser() (model.Identity, bool) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token == "" {
		return model.Identity{}, false
	}
	id, _, err := c.dir.parse(token)
	if err != nil {
		c.end()
		return model.Identity{}, false
	}
	return id, true
}

// OnSessionChange registers fn for sign-in and sign-out events.
func (c *Client) OnSessionChange(fn func(*model.Identity)) func() {
	c.mu.Lock()
	id := c.next
	c.next++
	c.listeners[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Client) begin(id model.Identity) error {
	token, exp, err := c.dir.issue(id)
	if err != nil {
		return err
	}
	c.start(id, token, exp)
	return nil
}

func (c *Client) start(id model.Identity, token string, exp time.Time) {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
	}
	if c.identity != nil && c.identity.ID != id.ID {
		c.dir.detach(c.identity.ID, c)
	}
	cp := id
	c.identity = &cp
	c.token = token
	c.timer = time.AfterFunc(exp.Sub(c.dir.now()), c.end)
	c.dir.attach(id.ID, c)
	fns := c.snapshotListeners()
	c.mu.Unlock()

	for _, fn := range fns {
		fn(&cp)
	}
}

// end clears the session and notifies listeners. Used by sign-out, token
// expiry and revocation alike.
func (c *Client) end() {
	c.mu.Lock()
	if c.identity == nil {
		c.mu.Unlock()
		return
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.dir.detach(c.identity.ID, c)
	c.identity = nil
	c.token = ""
	fns := c.snapshotListeners()
	c.mu.Unlock()

	for _, fn := range fns {
		fn(nil)
	}
}

func (c *Client) snapshotListeners() []func(*model.Identity) {
	fns := make([]func(*model.Identity), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	return fns
}
