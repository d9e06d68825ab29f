package flows

import (
	"context"

	"github.com/MrEthical07/authgate/jwt"
)

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Validate.Parse != nil && s.deps.Validate.IsRevoked != nil
}

func (s Service) Register(ctx context.Context, req RegisterRequest) RegisterResult {
	return RunRegister(ctx, req, s.deps.Register)
}

func (s Service) Login(ctx context.Context, identifier, secret string) LoginResult {
	return RunLogin(ctx, identifier, secret, s.deps.Login)
}

func (s Service) Validate(ctx context.Context, token string) ValidateResult {
	return RunValidate(ctx, token, jwt.TokenAccess, s.deps.Validate)
}

func (s Service) Refresh(ctx context.Context, refreshToken string) RefreshResult {
	return RunRefresh(ctx, refreshToken, s.deps.Refresh)
}

func (s Service) Logout(ctx context.Context, refreshToken string) LogoutResult {
	return RunLogout(ctx, refreshToken, s.deps.Logout)
}
