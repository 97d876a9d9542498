// Package auth is the identity provider behind the session context.
//
// A Directory owns accounts (bcrypt hashes) and signs ID tokens. Each browser
// talks to it through its own Client, which tracks the signed-in identity and
// reports every change to its listeners.
package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/okian/vivaran/internal/domain/model"
	"github.com/okian/vivaran/pkg/logger"
)

const (
	minPasswordLength = 6
	defaultTokenTTL   = time.Hour
	secretSize        = 32
)

type account struct {
	identity model.Identity
	hash     []byte
}

// claims carried by an ID token.
type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Directory stores accounts and issues ID tokens.
type Directory struct {
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
	log    logger.Logger
	saved  Accounts

	mu      sync.RWMutex
	byEmail map[string]*account
	byID    map[string]*account
	clients map[string]map[*Client]struct{}
}

// Option configures a Directory.
type Option func(*Directory)

// WithSecret sets the HMAC key for ID tokens.
func WithSecret(secret []byte) Option {
	return func(d *Directory) {
		if len(secret) > 0 {
			d.secret = secret
		}
	}
}

// WithTokenTTL sets how long a sign-in stays valid.
func WithTokenTTL(ttl time.Duration) Option {
	return func(d *Directory) {
		if ttl > 0 {
			d.ttl = ttl
		}
	}
}

// WithBcryptCost sets the bcrypt cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(d *Directory) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			d.cost = cost
		}
	}
}

// WithClock overrides the time source for token issue and validation.
func WithClock(now func() time.Time) Option {
	return func(d *Directory) {
		if now != nil {
			d.now = now
		}
	}
}

// WithLogger sets the directory logger.
func WithLogger(l logger.Logger) Option {
	return func(d *Directory) {
		if l != nil {
			d.log = l
		}
	}
}

// WithAccounts persists accounts through a. Call Load to read them back.
func WithAccounts(a Accounts) Option {
	return func(d *Directory) {
		d.saved = a
	}
}

// NewDirectory creates an empty directory. Without WithSecret a random key
// is generated, so tokens do not survive a restart.
func NewDirectory(opts ...Option) (*Directory, error) {
	d := &Directory{
		ttl:     defaultTokenTTL,
		cost:    bcrypt.DefaultCost,
		now:     time.Now,
		log:     logger.Nop(),
		byEmail: make(map[string]*account),
		byID:    make(map[string]*account),
		clients: make(map[string]map[*Client]struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	if len(d.secret) == 0 {
		d.secret = make([]byte, secretSize)
		if _, err := rand.Read(d.secret); err != nil {
			return nil, fmt.Errorf("generate token secret: %w", err)
		}
	}
	return d, nil
}

// NewClient returns a signed-out client bound to this directory.
func (d *Directory) NewClient() *Client {
	return &Client{dir: d, listeners: make(map[uint64]func(*model.Identity))}
}

// Register creates an account.
func (d *Directory) Register(ctx context.Context, email, password string) (model.Identity, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return model.Identity{}, err
	}
	if len(password) < minPasswordLength {
		return model.Identity{}, ErrWeakPassword
	}

	d.mu.RLock()
	_, exists := d.byEmail[email]
	d.mu.RUnlock()
	if exists {
		return model.Identity{}, ErrEmailInUse
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.cost)
	if err != nil {
		return model.Identity{}, fmt.Errorf("%w: hash password: %w", ErrAuthentication, err)
	}

	d.mu.Lock()
	if _, exists := d.byEmail[email]; exists {
		d.mu.Unlock()
		return model.Identity{}, ErrEmailInUse
	}
	acc := &account{identity: model.Identity{ID: uuid.NewString(), Email: email}, hash: hash}
	d.byEmail[email] = acc
	d.byID[acc.identity.ID] = acc
	d.mu.Unlock()

	if d.saved != nil {
		if err := d.saved.SaveAccount(ctx, AccountRecord{ID: acc.identity.ID, Email: email, Hash: hash}); err != nil {
			d.mu.Lock()
			delete(d.byEmail, email)
			delete(d.byID, acc.identity.ID)
			d.mu.Unlock()
			return model.Identity{}, fmt.Errorf("%w: store account: %w", ErrAuthentication, err)
		}
	}
	d.log.Info(ctx, "identity created", logger.String("uid", acc.identity.ID))
	return acc.identity, nil
}

// Load reads persisted accounts into the directory and returns how many
// were added. Accounts already known by email are skipped.
func (d *Directory) Load(ctx context.Context) (int, error) {
	if d.saved == nil {
		return 0, nil
	}
	records, err := d.saved.LoadAccounts(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: load accounts: %w", ErrAuthentication, err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	added := 0
	for _, r := range records {
		if _, exists := d.byEmail[r.Email]; exists {
			continue
		}
		acc := &account{identity: model.Identity{ID: r.ID, Email: r.Email}, hash: r.Hash}
		d.byEmail[r.Email] = acc
		d.byID[r.ID] = acc
		added++
	}
	return added, nil
}

// Verify checks email and password.
func (d *Directory) Verify(_ context.Context, email, password string) (model.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	d.mu.RLock()
	acc, ok := d.byEmail[email]
	d.mu.RUnlock()
	if !ok {
		return model.Identity{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return model.Identity{}, ErrInvalidCredentials
	}
	return acc.identity, nil
}

// Revoke signs out every client currently holding a session for uid.
func (d *Directory) Revoke(ctx context.Context, uid string) int {
	d.mu.RLock()
	targets := make([]*Client, 0, len(d.clients[uid]))
	for c := range d.clients[uid] {
		targets = append(targets, c)
	}
	d.mu.RUnlock()

	for _, c := range targets {
		c.end()
	}
	if len(targets) > 0 {
		d.log.Info(ctx, "sessions revoked", logger.String("uid", uid), logger.Int("count", len(targets)))
	}
	return len(targets)
}

// Count returns the number of accounts.
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byID)
}

func (d *Directory) issue(id model.Identity) (string, time.Time, error) {
	now := d.now()
	exp := now.Add(d.ttl)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := tok.SignedString(d.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: sign token: %w", ErrAuthentication, err)
	}
	return signed, exp, nil
}

// parse validates a token and returns the identity it was issued for.
func (d *Directory) parse(token string) (model.Identity, time.Time, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return d.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(d.now), jwt.WithExpirationRequired())
	if err != nil {
		return model.Identity{}, time.Time{}, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	d.mu.RLock()
	acc, ok := d.byID[c.Subject]
	d.mu.RUnlock()
	if !ok {
		return model.Identity{}, time.Time{}, ErrTokenInvalid
	}
	return acc.identity, c.ExpiresAt.Time, nil
}

func (d *Directory) attach(uid string, c *Client) {
	d.mu.Lock()
	defer d.mu.Unlock()
	set, ok := d.clients[uid]
	if !ok {
		set = make(map[*Client]struct{})
		d.clients[uid] = set
	}
	set[c] = struct{}{}
}

func (d *Directory) detach(uid string, c *Client) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if set, ok := d.clients[uid]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(d.clients, uid)
		}
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
