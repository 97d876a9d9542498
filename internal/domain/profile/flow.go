// Package profile implements the startup profile submission flow.
//
// A flow starts Unsubmitted, moves to Submitted once a validated record has
// been written (or an existing one was found on Load) and never moves back.
package profile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/vivaran/internal/domain/model"
	"github.com/okian/vivaran/pkg/logger"
	"github.com/okian/vivaran/pkg/metrics"
)

// State of a profile flow.
type State int

// Flow states.
const (
	Unsubmitted State = iota
	Submitted
)

func (s State) String() string {
	if s == Submitted {
		return "submitted"
	}
	return "unsubmitted"
}

// ErrNoIdentity is returned when the flow is used without a signed-in user.
var ErrNoIdentity = errors.New("profile: no authenticated identity")

// Store is the slice of the realtime database the flow needs.
type Store interface {
	WriteRecord(ctx context.Context, path string, value any) error
	ReadRecord(ctx context.Context, path string, out any) (bool, error)
}

// Flow holds one identity's profile form state.
type Flow struct {
	store    Store
	identity model.Identity
	log      logger.Logger
	now      func() time.Time

	mu      sync.Mutex
	state   State
	profile model.StartupProfile
}

// Option configures a Flow.
type Option func(*Flow)

// WithLogger sets the flow logger.
func WithLogger(l logger.Logger) Option {
	return func(f *Flow) {
		if l != nil {
			f.log = l
		}
	}
}

// WithClock overrides the time source used for createdAt.
func WithClock(now func() time.Time) Option {
	return func(f *Flow) {
		if now != nil {
			f.now = now
		}
	}
}

// New creates a flow for identity in the Unsubmitted state.
func New(store Store, identity model.Identity, opts ...Option) *Flow {
	f := &Flow{
		store:    store,
		identity: identity,
		log:      logger.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Load reads an existing profile. A missing record is not an error.
func (f *Flow) Load(ctx context.Context) error {
	if f.identity.ID == "" {
		return ErrNoIdentity
	}
	var stored model.StartupProfile
	found, err := f.store.ReadRecord(ctx, model.Path(model.CollectionStartups, f.identity.ID), &stored)
	if err != nil {
		return fmt.Errorf("load startup profile: %w", err)
	}
	if !found {
		return nil
	}
	f.mu.Lock()
	f.state = Submitted
	f.profile = stored
	f.mu.Unlock()
	return nil
}

// Submit validates form and writes it keyed by the identity. An invalid form
// produces no write. A failed write is logged and leaves the state unchanged.
// Submitting again after success overwrites the same record.
func (f *Flow) Submit(ctx context.Context, form model.StartupProfile) error {
	if f.identity.ID == "" {
		return ErrNoIdentity
	}
	if err := form.Validate(); err != nil {
		metrics.RecordProfileSubmission("invalid")
		return err
	}

	record := form
	record.UserID = f.identity.ID
	record.Email = f.identity.Email
	record.CreatedAt = f.now().UTC()

	if err := f.store.WriteRecord(ctx, model.Path(model.CollectionStartups, f.identity.ID), record); err != nil {
		metrics.RecordProfileSubmission("write_failed")
		f.log.Error(ctx, "error saving startup data",
			logger.String("uid", f.identity.ID),
			logger.Error(err),
		)
		return err
	}

	f.mu.Lock()
	f.state = Submitted
	f.profile = record
	f.mu.Unlock()
	metrics.RecordProfileSubmission("submitted")
	return nil
}

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Profile returns the stored profile. It is the zero value while Unsubmitted.
func (f *Flow) Profile() model.StartupProfile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profile
}
