package matching

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/okian/vivaran/internal/domain/model"
	"github.com/okian/vivaran/pkg/logger"
	"github.com/okian/vivaran/pkg/metrics"
)

// Source delivers a full snapshot of a collection on every change.
type Source interface {
	Subscribe(ctx context.Context, collection string, fn func(model.Snapshot)) (unsubscribe func(), err error)
}

// Listener receives the recomputed match list.
type Listener func([]model.InvestorProfile)

// Matcher keeps the latest investor snapshot and recomputes the match list
// whenever the snapshot or the startup's domain changes.
//
// The listener is called after the lock is released. Callers that need
// lists in order must drive onSnapshot and SetDomain from one goroutine;
// Follow does that by taking domain changes from the same source, whose
// callbacks run on a single dispatcher.
type Matcher struct {
	src      Source
	listener Listener
	log      logger.Logger

	mu          sync.Mutex
	domain      model.Domain
	investors   []model.InvestorProfile
	matches     []model.InvestorProfile
	hasSnapshot bool
	unsubscribe []func()
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithLogger sets the logger used for decode failures.
func WithLogger(l logger.Logger) Option {
	return func(m *Matcher) {
		if l != nil {
			m.log = l
		}
	}
}

// NewMatcher creates a matcher for domain. listener may be nil.
func NewMatcher(src Source, domain model.Domain, listener Listener, opts ...Option) *Matcher {
	m := &Matcher{
		src:      src,
		domain:   domain,
		listener: listener,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start subscribes to the investors collection.
func (m *Matcher) Start(ctx context.Context) error {
	unsub, err := m.src.Subscribe(ctx, model.CollectionInvestors, m.onSnapshot)
	if err != nil {
		return fmt.Errorf("subscribe to investors: %w", err)
	}
	m.mu.Lock()
	m.unsubscribe = append(m.unsubscribe, unsub)
	m.mu.Unlock()
	return nil
}

// Follow watches the startups collection and switches to the domain stored
// at startups/{uid} whenever it changes.
func (m *Matcher) Follow(ctx context.Context, uid string) error {
	unsub, err := m.src.Subscribe(ctx, model.CollectionStartups, func(snap model.Snapshot) {
		m.onStartups(uid, snap)
	})
	if err != nil {
		return fmt.Errorf("subscribe to startups: %w", err)
	}
	m.mu.Lock()
	m.unsubscribe = append(m.unsubscribe, unsub)
	m.mu.Unlock()
	return nil
}

// Close drops the subscription. Results arriving afterwards are discarded.
func (m *Matcher) Close() {
	m.mu.Lock()
	unsubs := m.unsubscribe
	m.unsubscribe = nil
	m.listener = nil
	m.mu.Unlock()
	for _, unsub := range unsubs {
		unsub()
	}
}

// SetDomain changes the startup's domain and recomputes against the last snapshot.
func (m *Matcher) SetDomain(d model.Domain) {
	m.mu.Lock()
	m.domain = d
	if !m.hasSnapshot {
		m.mu.Unlock()
		return
	}
	m.recomputeLocked()
	notify, out := m.listener, m.matches
	m.mu.Unlock()
	if notify != nil {
		notify(out)
	}
}

// Matches returns the last computed list and whether a snapshot has arrived yet.
func (m *Matcher) Matches() ([]model.InvestorProfile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matches, m.hasSnapshot
}

func (m *Matcher) onSnapshot(snap model.Snapshot) {
	investors, errs := DecodeInvestors(snap)
	for _, err := range errs {
		m.log.Warn(context.Background(), "skipping undecodable investor", logger.Error(err))
	}

	m.mu.Lock()
	m.investors = investors
	m.hasSnapshot = true
	m.recomputeLocked()
	notify, out := m.listener, m.matches
	m.mu.Unlock()
	if notify != nil {
		notify(out)
	}
}

func (m *Matcher) onStartups(uid string, snap model.Snapshot) {
	for _, rec := range snap {
		if rec.Key != uid {
			continue
		}
		var p model.StartupProfile
		if err := json.Unmarshal(rec.Value, &p); err != nil {
			m.log.Warn(context.Background(), "skipping undecodable startup", logger.String("uid", uid), logger.Error(err))
			return
		}
		m.mu.Lock()
		same := p.Domain == m.domain
		m.mu.Unlock()
		if !same {
			m.SetDomain(p.Domain)
		}
		return
	}
}

func (m *Matcher) recomputeLocked() {
	m.matches = ComputeMatches(m.domain, m.investors)
	metrics.RecordMatchComputation(len(m.matches))
}
