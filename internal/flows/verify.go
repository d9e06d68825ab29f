package flows

import "context"

// VerifyFailureKind classifies credential verification failures.
type VerifyFailureKind int

const (
	VerifyFailureNone VerifyFailureKind = iota
	VerifyFailureNotFound
	VerifyFailureBadCredential
	VerifyFailureInactive
	VerifyFailureUnavailable
)

func (k VerifyFailureKind) String() string {
	switch k {
	case VerifyFailureNone:
		return "none"
	case VerifyFailureNotFound:
		return "user_not_found"
	case VerifyFailureBadCredential:
		return "bad_credential"
	case VerifyFailureInactive:
		return "account_inactive"
	case VerifyFailureUnavailable:
		return "backend_unavailable"
	default:
		return "unknown"
	}
}

// VerifyDeps captures credential verification dependencies.
type VerifyDeps struct {
	// LookupUser reports found=false for unknown identifiers; any error is
	// an infrastructure failure.
	LookupUser     func(ctx context.Context, identifier string) (UserRecord, bool, error)
	VerifyPassword func(secret, encodedHash string) (bool, error)
	// VerifyDummy runs a throwaway hash comparison for unknown identifiers.
	VerifyDummy func(secret string)
}

type VerifyResult struct {
	Failure VerifyFailureKind
	Err     error
	User    UserRecord
}

// RunVerify checks identifier and secret against the user store. It has no
// side effects. The password comparison always runs, against a dummy hash
// when the identifier is unknown, and account status is checked only after
// the secret matched.
func RunVerify(ctx context.Context, identifier, secret string, deps VerifyDeps) VerifyResult {
	user, found, err := deps.LookupUser(ctx, identifier)
	if err != nil {
		return VerifyResult{Failure: VerifyFailureUnavailable, Err: err}
	}
	if !found {
		if deps.VerifyDummy != nil {
			deps.VerifyDummy(secret)
		}
		return VerifyResult{Failure: VerifyFailureNotFound}
	}

	ok, err := deps.VerifyPassword(secret, user.PasswordHash)
	if err != nil {
		return VerifyResult{Failure: VerifyFailureBadCredential, Err: err, User: user}
	}
	if !ok {
		return VerifyResult{Failure: VerifyFailureBadCredential, User: user}
	}

	if !user.Active {
		return VerifyResult{Failure: VerifyFailureInactive, User: user}
	}

	return VerifyResult{User: user}
}
