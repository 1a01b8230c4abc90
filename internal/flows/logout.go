package flows

import "context"

// LogoutResult reports whether a marker was written.
type LogoutResult struct {
	Skipped bool
	Revoke  RevokeResult
}

// RunLogout revokes the presented access token. A missing token is a successful no-op.
func RunLogout(ctx context.Context, tokenStr string, deps RevokeDeps) LogoutResult {
	if tokenStr == "" {
		return LogoutResult{Skipped: true}
	}
	return LogoutResult{Revoke: RunRevoke(ctx, tokenStr, deps)}
}
