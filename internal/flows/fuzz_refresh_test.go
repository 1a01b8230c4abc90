package flows

import (
	"context"
	"testing"
	"time"

	"github.com/MrEthical07/authgate/jwt"
)

// FuzzRunRefresh feeds arbitrary strings to the refresh flow. Nothing may panic, and any
// input that rotates successfully must be rejected when presented again.
func FuzzRunRefresh(f *testing.F) {
	h := newHarness(f)
	f.Add("")
	f.Add("not.a.token")
	f.Add("a.b.c.d")
	f.Add("eyJhbGciOiJub25lIn0.eyJzdWIiOiIxIn0.")
	f.Add(h.issue(f, jwt.TypeRefresh, time.Hour))
	f.Add(h.issue(f, jwt.TypeAccess, time.Hour))

	f.Fuzz(func(t *testing.T, input string) {
		ctx := context.Background()
		res := RunRefresh(ctx, input, h.deps.Refresh)
		if res.Failure != RefreshFailureNone {
			return
		}
		if res.AccessToken == "" || res.RefreshToken == "" {
			t.Fatal("successful refresh returned an empty token")
		}
		again := RunRefresh(ctx, input, h.deps.Refresh)
		if again.Failure == RefreshFailureNone {
			t.Fatal("refresh token rotated twice")
		}
	})
}
