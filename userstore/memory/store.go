// Package memory is an in-process authgate.UserProvider for tests, demos and
// single-instance deployments. Users are lost on restart.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/MrEthical07/authgate"
)

type Store struct {
	mu           sync.RWMutex
	byIdentifier map[string]authgate.UserRecord
}

var _ authgate.UserProvider = (*Store)(nil)

func New() *Store {
	return &Store{
		byIdentifier: map[string]authgate.UserRecord{},
	}
}

func (s *Store) GetUserByIdentifier(ctx context.Context, identifier string) (authgate.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return authgate.UserRecord{}, err
	}

	s.mu.RLock()
	user, ok := s.byIdentifier[identifier]
	s.mu.RUnlock()
	if !ok {
		return authgate.UserRecord{}, authgate.ErrProviderUserNotFound
	}
	return cloneRecord(user), nil
}

func (s *Store) IdentifierExists(ctx context.Context, identifier string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	_, ok := s.byIdentifier[identifier]
	s.mu.RUnlock()
	return ok, nil
}

// CreateUser assigns a random UUID. The uniqueness check and the insert
// happen under one lock, so concurrent registrations of the same identifier
// yield exactly one user.
func (s *Store) CreateUser(ctx context.Context, input authgate.CreateUserInput) (authgate.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return authgate.UserRecord{}, err
	}

	user := authgate.UserRecord{
		UserID:       uuid.NewString(),
		Identifier:   input.Identifier,
		PasswordHash: input.PasswordHash,
		Status:       input.Status,
		Profile:      cloneProfile(input.Profile),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byIdentifier[input.Identifier]; ok {
		return authgate.UserRecord{}, fmt.Errorf("identifier %q: %w", input.Identifier, authgate.ErrProviderDuplicateIdentifier)
	}
	s.byIdentifier[input.Identifier] = user
	return cloneRecord(user), nil
}

// SetStatus changes an account's status, e.g. to disable it.
func (s *Store) SetStatus(identifier string, status authgate.AccountStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byIdentifier[identifier]
	if !ok {
		return authgate.ErrProviderUserNotFound
	}
	user.Status = status
	s.byIdentifier[identifier] = user
	return nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byIdentifier)
}

func cloneRecord(u authgate.UserRecord) authgate.UserRecord {
	u.Profile = cloneProfile(u.Profile)
	return u
}

func cloneProfile(p map[string]string) map[string]string {
	out := make(map[string]string, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
