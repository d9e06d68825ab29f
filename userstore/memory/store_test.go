package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/MrEthical07/authgate"
)

func TestCreateAndLookup(t *testing.T) {
	s := New()
	ctx := context.Background()

	created, err := s.CreateUser(ctx, authgate.CreateUserInput{
		Identifier:   "alice",
		PasswordHash: "h",
		Profile:      map[string]string{"name": "Alice"},
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if created.UserID == "" {
		t.Fatal("expected generated user id")
	}

	got, err := s.GetUserByIdentifier(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserByIdentifier: %v", err)
	}
	if got.UserID != created.UserID || got.Profile["name"] != "Alice" {
		t.Fatalf("unexpected record: %+v", got)
	}

	got.Profile["name"] = "mutated"
	again, _ := s.GetUserByIdentifier(ctx, "alice")
	if again.Profile["name"] != "Alice" {
		t.Fatal("returned profile must be a copy")
	}

	if _, err := s.GetUserByIdentifier(ctx, "bob"); !errors.Is(err, authgate.ErrProviderUserNotFound) {
		t.Fatalf("expected ErrProviderUserNotFound, got %v", err)
	}
}

func TestConcurrentCreateSingleWinner(t *testing.T) {
	s := New()
	ctx := context.Background()

	const workers = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateUser(ctx, authgate.CreateUserInput{Identifier: "dup", PasswordHash: "h"})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			if !errors.Is(err, authgate.ErrProviderDuplicateIdentifier) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 || s.Len() != 1 {
		t.Fatalf("expected exactly one user, wins=%d len=%d", wins, s.Len())
	}
}

func TestSetStatus(t *testing.T) {
	s := New()
	ctx := context.Background()
	if _, err := s.CreateUser(ctx, authgate.CreateUserInput{Identifier: "carol", PasswordHash: "h"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := s.SetStatus("carol", authgate.AccountDisabled); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	got, _ := s.GetUserByIdentifier(ctx, "carol")
	if got.Status != authgate.AccountDisabled {
		t.Fatalf("expected disabled, got %v", got.Status)
	}
	if err := s.SetStatus("nobody", authgate.AccountActive); !errors.Is(err, authgate.ErrProviderUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
