package flows

import "context"

// LoginFailureKind classifies login failures.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	// LoginFailureCredentials covers not-found, bad-credential and inactive;
	// LoginResult.Verify carries which.
	LoginFailureCredentials
	LoginFailureUnavailable
	LoginFailureIssue
)

// LoginDeps captures login dependencies.
type LoginDeps struct {
	Verify VerifyDeps
	Issue  IssueDeps
}

type LoginResult struct {
	Failure LoginFailureKind
	Verify  VerifyFailureKind
	Err     error
	User    UserRecord
	Session IssuedSession
}

// RunLogin verifies credentials and, on success, issues a fresh session.
func RunLogin(ctx context.Context, identifier, secret string, deps LoginDeps) LoginResult {
	verified := RunVerify(ctx, identifier, secret, deps.Verify)
	switch verified.Failure {
	case VerifyFailureNone:
	case VerifyFailureUnavailable:
		return LoginResult{Failure: LoginFailureUnavailable, Verify: verified.Failure, Err: verified.Err}
	default:
		return LoginResult{
			Failure: LoginFailureCredentials,
			Verify:  verified.Failure,
			Err:     verified.Err,
			User:    verified.User,
		}
	}

	sess, err := RunIssue(verified.User.UserID, deps.Issue)
	if err != nil {
		return LoginResult{Failure: LoginFailureIssue, Err: err, User: verified.User}
	}

	return LoginResult{User: verified.User, Session: sess}
}
