package flows

import (
	"context"
	"errors"
	"fmt"
)

// RegisterFailureKind classifies registration failures.
type RegisterFailureKind int

const (
	RegisterFailureNone RegisterFailureKind = iota
	RegisterFailureInvalid
	RegisterFailureDuplicate
	RegisterFailureUnavailable
)

type RegisterRequest struct {
	Identifier string
	Secret     string
	Profile    map[string]string
}

type CreateUserInput struct {
	Identifier   string
	PasswordHash string
	Profile      map[string]string
}

// RegisterDeps captures registration dependencies.
type RegisterDeps struct {
	// NormalizeIdentifier returns the canonical identifier or a validation error.
	NormalizeIdentifier func(string) (string, error)
	CheckSecret         func(string) error
	CheckProfile        func(map[string]string) error
	IdentifierExists    func(ctx context.Context, identifier string) (bool, error)
	HashSecret          func(string) (string, error)
	CreateUser          func(ctx context.Context, in CreateUserInput) (UserRecord, error)
	// ErrDuplicate is the provider's uniqueness-race error, if it has one.
	ErrDuplicate error
}

type RegisterResult struct {
	Failure RegisterFailureKind
	Err     error
	User    UserRecord
}

// RunRegister validates the request, checks uniqueness and creates the
// user. CreateUser is the only external write.
func RunRegister(ctx context.Context, req RegisterRequest, deps RegisterDeps) RegisterResult {
	identifier, err := deps.NormalizeIdentifier(req.Identifier)
	if err != nil {
		return RegisterResult{Failure: RegisterFailureInvalid, Err: err}
	}
	if err := deps.CheckSecret(req.Secret); err != nil {
		return RegisterResult{Failure: RegisterFailureInvalid, Err: err}
	}
	if deps.CheckProfile != nil {
		if err := deps.CheckProfile(req.Profile); err != nil {
			return RegisterResult{Failure: RegisterFailureInvalid, Err: err}
		}
	}

	exists, err := deps.IdentifierExists(ctx, identifier)
	if err != nil {
		return RegisterResult{Failure: RegisterFailureUnavailable, Err: err}
	}
	if exists {
		return RegisterResult{Failure: RegisterFailureDuplicate}
	}

	hash, err := deps.HashSecret(req.Secret)
	if err != nil {
		return RegisterResult{Failure: RegisterFailureInvalid, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return RegisterResult{Failure: RegisterFailureUnavailable, Err: err}
	}

	profile := make(map[string]string, len(req.Profile))
	for k, v := range req.Profile {
		profile[k] = v
	}

	user, err := deps.CreateUser(ctx, CreateUserInput{
		Identifier:   identifier,
		PasswordHash: hash,
		Profile:      profile,
	})
	if err != nil {
		if deps.ErrDuplicate != nil && errors.Is(err, deps.ErrDuplicate) {
			return RegisterResult{Failure: RegisterFailureDuplicate, Err: err}
		}
		return RegisterResult{Failure: RegisterFailureUnavailable, Err: fmt.Errorf("create user: %w", err)}
	}

	return RegisterResult{User: user}
}
