package auth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/okian/vivaran/internal/adapters/repository"
)

// AccountsCollection holds persisted accounts. It is written straight to the
// record store, never through the realtime database, so nobody can
// subscribe to it.
const AccountsCollection = "accounts"

// AccountRecord is the stored form of an account.
type AccountRecord struct {
	ID    string `json:"uid"`
	Email string `json:"email"`
	Hash  []byte `json:"hash"`
}

// Accounts persists accounts.
type Accounts interface {
	SaveAccount(ctx context.Context, rec AccountRecord) error
	LoadAccounts(ctx context.Context) ([]AccountRecord, error)
}

// StoreAccounts keeps accounts in a repository.Store.
type StoreAccounts struct {
	store repository.Store
}

// NewStoreAccounts returns Accounts backed by store.
func NewStoreAccounts(store repository.Store) *StoreAccounts {
	return &StoreAccounts{store: store}
}

// SaveAccount implements Accounts.
func (s *StoreAccounts) SaveAccount(ctx context.Context, rec AccountRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode account: %w", err)
	}
	return s.store.Put(ctx, AccountsCollection, rec.ID, raw)
}

// LoadAccounts implements Accounts.
func (s *StoreAccounts) LoadAccounts(ctx context.Context) ([]AccountRecord, error) {
	snap, err := s.store.List(ctx, AccountsCollection)
	if err != nil {
		return nil, err
	}
	out := make([]AccountRecord, 0, len(snap))
	for _, r := range snap {
		var rec AccountRecord
		if err := json.Unmarshal(r.Value, &rec); err != nil {
			return nil, fmt.Errorf("decode account %s: %w", r.Key, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
