package flows

import (
	"context"

	"github.com/MrEthical07/authgate/jwt"
)

// Service is the flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired.
func (s Service) Initialized() bool {
	return s.deps.Validate.Decode != nil && s.deps.Validate.Revocations != nil
}

func (s Service) Validate(ctx context.Context, tokenStr string, expected jwt.TokenType) ValidateResult {
	return RunValidate(ctx, tokenStr, expected, s.deps.Validate)
}

func (s Service) Revoke(ctx context.Context, tokenStr string) RevokeResult {
	return RunRevoke(ctx, tokenStr, s.deps.Revoke)
}

func (s Service) Refresh(ctx context.Context, refreshToken string) RefreshResult {
	return RunRefresh(ctx, refreshToken, s.deps.Refresh)
}

func (s Service) Logout(ctx context.Context, tokenStr string) LogoutResult {
	return RunLogout(ctx, tokenStr, s.deps.Revoke)
}
