package stores

import (
	"context"
	"sync"
	"time"

	oa "github.com/ayursutra/ayurauth"
)

// MemoryAccountStore keeps demo accounts in a map, keyed by email.
type MemoryAccountStore struct {
	mu       sync.Mutex
	accounts map[string]*oa.Account
}

func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{accounts: make(map[string]*oa.Account)}
}

func (s *MemoryAccountStore) Create(_ context.Context, account *oa.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[account.Email]; exists {
		return oa.ErrAccountExists
	}
	copied := *account
	s.accounts[account.Email] = &copied
	return nil
}

func (s *MemoryAccountStore) GetByEmail(_ context.Context, email string) (*oa.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[email]
	if !ok {
		return nil, oa.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (s *MemoryAccountStore) MarkVerified(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[email]
	if !ok {
		return oa.ErrAccountNotFound
	}
	account.Verified = true
	account.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryAccountStore) SetRole(_ context.Context, email string, role oa.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[email]
	if !ok {
		return oa.ErrAccountNotFound
	}
	account.Role = role
	account.UpdatedAt = time.Now().UTC()
	return nil
}
