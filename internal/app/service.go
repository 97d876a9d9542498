// Package service wires the site together: record store, realtime database,
// identity provider, browser sessions and the HTTP surface.
package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/okian/vivaran/internal/adapters/auth"
	"github.com/okian/vivaran/internal/adapters/http/api"
	"github.com/okian/vivaran/internal/adapters/http/site"
	"github.com/okian/vivaran/internal/adapters/http/swagger"
	"github.com/okian/vivaran/internal/adapters/http/websession"
	"github.com/okian/vivaran/internal/adapters/realtime"
	"github.com/okian/vivaran/internal/adapters/repository"
	"github.com/okian/vivaran/internal/adapters/storage"
	"github.com/okian/vivaran/internal/domain/model"
	"github.com/okian/vivaran/internal/domain/session"
	"github.com/okian/vivaran/internal/seed"
	"github.com/okian/vivaran/pkg/logger"
)

const (
	stopTimeout          = 10 * time.Second
	defaultSweepInterval = time.Minute
)

// Service owns every long-lived component of the site.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     *repository.SQLiteStore
	db        *realtime.Database
	directory *auth.Directory
	sessions  *websession.Registry
	memory    *memorySpaces
	handler   http.Handler
	cancel    context.CancelFunc

	// Configuration
	databasePath  string
	storageDir    string
	tokenSecret   []byte
	tokenTTL      time.Duration
	sessionIdle   time.Duration
	sweepInterval time.Duration
	queueSize     int
	enforceRoles  bool
	secureCookies bool
	seedFile      string

	// State
	started   bool
	startedAt time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDatabasePath sets the SQLite file. repository.MemoryPath keeps it in memory.
func WithDatabasePath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.databasePath = path
		}
	}
}

// WithStorageDir keeps browser local storage under dir. Empty keeps it in memory.
func WithStorageDir(dir string) Option {
	return func(s *Service) {
		s.storageDir = dir
	}
}

// WithTokenSecret sets the ID token signing key.
func WithTokenSecret(secret string) Option {
	return func(s *Service) {
		if secret != "" {
			s.tokenSecret = []byte(secret)
		}
	}
}

// WithTokenTTL sets how long a sign-in stays valid.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// WithSessionIdle sets how long an idle browser session is kept in memory.
func WithSessionIdle(idle time.Duration) Option {
	return func(s *Service) {
		if idle > 0 {
			s.sessionIdle = idle
		}
	}
}

// WithSweepInterval sets how often idle browser sessions are looked for.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}

// WithChangeQueueSize bounds pending change notifications.
func WithChangeQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithEnforcedRoles keeps each dashboard to its own role.
func WithEnforcedRoles(enforce bool) Option {
	return func(s *Service) {
		s.enforceRoles = enforce
	}
}

// WithSecureCookies marks session cookies Secure.
func WithSecureCookies(secure bool) Option {
	return func(s *Service) {
		s.secureCookies = secure
	}
}

// WithSeedFile loads investors from a YAML file on start.
func WithSeedFile(path string) Option {
	return func(s *Service) {
		s.seedFile = path
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		databasePath:  repository.MemoryPath,
		tokenTTL:      time.Hour,
		sessionIdle:   30 * time.Minute,
		sweepInterval: defaultSweepInterval,
		queueSize:     1024,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the stores, starts the dispatcher, seeds investors and builds
// the HTTP handler. Calling Start on a started service does nothing.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting vivaran site...")

	// Background work outlives the Start call and ends in Stop.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	started := false
	defer func() {
		if !started {
			cancel()
		}
	}()

	store, err := repository.Open(runCtx, s.databasePath, repository.WithLogger(s.logger.Named("repository")))
	if err != nil {
		return fmt.Errorf("open record store: %w", err)
	}

	directory, err := auth.NewDirectory(
		auth.WithSecret(s.tokenSecret),
		auth.WithTokenTTL(s.tokenTTL),
		auth.WithAccounts(auth.NewStoreAccounts(store)),
		auth.WithLogger(s.logger.Named("auth")),
	)
	if err != nil {
		_ = store.Close()
		return err
	}
	loaded, err := directory.Load(ctx)
	if err != nil {
		_ = store.Close()
		return err
	}

	localStorage, release, err := s.storageFactory()
	if err != nil {
		_ = store.Close()
		return err
	}

	db := realtime.New(store,
		realtime.WithQueueCapacity(s.queueSize),
		realtime.WithLogger(s.logger.Named("realtime")),
	)
	db.Start(runCtx)

	if s.seedFile != "" {
		investors, err := seed.LoadFile(s.seedFile)
		if err == nil {
			_, err = seed.Apply(ctx, db, investors, s.logger.Named("seed"))
		}
		if err != nil {
			_ = db.Close(ctx)
			_ = store.Close()
			return err
		}
	}

	sessions := websession.New(directory, db, localStorage,
		websession.WithIdleTimeout(s.sessionIdle),
		websession.WithSecureCookies(s.secureCookies),
		websession.WithLogger(s.logger.Named("websession")),
		websession.WithRelease(release),
	)

	pages, err := site.New(db, sessions,
		site.WithEnforcedRoles(s.enforceRoles),
		site.WithLogger(s.logger.Named("site")),
	)
	if err != nil {
		_ = db.Close(ctx)
		_ = store.Close()
		return err
	}

	mux := http.NewServeMux()
	swagger.Register(mux)
	api.NewServer(db, sessions, s,
		api.WithEnforcedRoles(s.enforceRoles),
		api.WithLogger(s.logger.Named("api")),
	).Register(mux)
	pages.Register(mux)

	s.store, s.db, s.directory, s.sessions, s.handler = store, db, directory, sessions, mux
	s.cancel = cancel
	started = true
	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "vivaran site started",
		logger.String("database", s.databasePath),
		logger.Int("accounts", loaded),
		logger.Int("queueSize", s.queueSize),
		logger.Bool("enforceRoles", s.enforceRoles),
	)
	return nil
}

// memorySpaces holds in-memory local storage per browser. A space lives as
// long as its browser session, so cached roles do not outlive eviction.
type memorySpaces struct {
	mu     sync.Mutex
	spaces map[string]*storage.Memory
}

func (m *memorySpaces) open(sid string) (session.LocalStorage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sp, ok := m.spaces[sid]
	if !ok {
		sp = storage.NewMemory()
		m.spaces[sid] = sp
	}
	return sp, nil
}

func (m *memorySpaces) release(sid string) {
	m.mu.Lock()
	delete(m.spaces, sid)
	m.mu.Unlock()
}

func (m *memorySpaces) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.spaces)
}

// storageFactory picks file-backed or in-memory local storage. The release
// hook is nil for file-backed storage, which persists across sessions.
func (s *Service) storageFactory() (websession.StorageFactory, websession.ReleaseFunc, error) {
	if s.storageDir == "" {
		s.memory = &memorySpaces{spaces: make(map[string]*storage.Memory)}
		return s.memory.open, s.memory.release, nil
	}
	root, err := storage.NewRoot(s.storageDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open local storage: %w", err)
	}
	return func(sid string) (session.LocalStorage, error) {
		ns, err := root.Namespace(sid)
		if err != nil {
			return nil, err
		}
		return ns, nil
	}, nil, nil
}

// Handler returns the HTTP handler. It is nil until Start succeeds.
func (s *Service) Handler() http.Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handler
}

// RunSessionSweeper evicts idle browser sessions until ctx is done.
func (s *Service) RunSessionSweeper(ctx context.Context) error {
	s.mu.RLock()
	sessions := s.sessions
	s.mu.RUnlock()
	if sessions == nil {
		return nil
	}
	return sessions.Run(ctx, s.sweepInterval)
}

// Stop ends every browser session, drains pending notifications and closes
// the record store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	s.logger.Info(ctx, "stopping vivaran site...")

	s.sessions.Close(ctx)
	if err := s.db.Close(ctx); err != nil {
		s.logger.Warn(ctx, "realtime database close failed", logger.Error(err))
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "record store close failed", logger.Error(err))
	}
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "vivaran site stopped")
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":      s.started,
		"queueSize":    s.queueSize,
		"enforceRoles": s.enforceRoles,
	}
	if !s.started {
		return stats
	}

	ctx := context.Background()
	stats["uptimeSeconds"] = int(time.Since(s.startedAt).Seconds())
	stats["sessions"] = s.sessions.Len()
	if s.memory != nil {
		stats["localSpaces"] = s.memory.len()
	}
	stats["subscribers"] = s.db.Subscribers()
	stats["accounts"] = s.directory.Count()
	records := map[string]int{}
	for _, c := range []string{model.CollectionUsers, model.CollectionStartups, model.CollectionInvestors, model.CollectionMessages} {
		n, err := s.store.Count(ctx, c)
		if err != nil {
			s.logger.Warn(ctx, "count failed", logger.String("collection", c), logger.Error(err))
			continue
		}
		records[c] = n
	}
	stats["records"] = records
	return stats
}
