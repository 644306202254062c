package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/adminauth/internal/auth/domain"
	"github.com/aussiebroadwan/adminauth/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestRotate(t *testing.T) {
	h := newHarness(t)
	a := h.seedAccount(t, "a@x.com", domain.RoleAdmin)
	first := h.login(t, a.Email)
	ctx := context.Background()

	h.clock.Advance(time.Minute)
	next, err := h.svc.Rotate(ctx, first.RefreshToken, first.CSRFToken, testOrigin)
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, next.RefreshToken)
	require.NotEqual(t, first.CSRFToken, next.CSRFToken, "anti-forgery token rotates with the session")
	require.Equal(t, first.ChainID, next.ChainID)

	claims, err := h.verifier.Verify(next.AccessToken)
	require.NoError(t, err)
	require.Equal(t, a.ID, claims.Subject)
	require.Equal(t, []string{jwtx.AMRPassword}, claims.AMR, "amr carries over")

	old, err := h.store.RefreshTokens().GetByHash(ctx, h.svc.tokens.RefreshHash(first.RefreshToken))
	require.NoError(t, err)
	require.True(t, old.Revoked)
	require.Equal(t, domain.RevokeRotated, old.RevokedReason)
	require.Equal(t, next.RecordID, old.ReplacedBy)
	require.Empty(t, old.CSRFHash, "binding is cleared with the session")

	events := h.events.find(domain.ActionRefresh, domain.StatusSuccess)
	require.Len(t, events, 1)
	require.Equal(t, first.RecordID, events[0].Metadata["old_record_id"])
	require.Equal(t, next.RecordID, events[0].Metadata["new_record_id"])
}

func TestRotateRejectsResubmission(t *testing.T) {
	h := newHarness(t)
	a := h.seedAccount(t, "a@x.com", domain.RoleAdmin)
	first := h.login(t, a.Email)
	ctx := context.Background()

	next, err := h.svc.Rotate(ctx, first.RefreshToken, first.CSRFToken, testOrigin)
	require.NoError(t, err)

	// Inside the grace period: rejected, chain untouched.
	_, err = h.svc.Rotate(ctx, first.RefreshToken, first.CSRFToken, testOrigin)
	require.ErrorIs(t, err, ErrInvalidSession)
	require.Empty(t, h.events.find(domain.ActionRefreshReuseDetected, domain.StatusFailure))

	_, err = h.svc.Rotate(ctx, next.RefreshToken, next.CSRFToken, testOrigin)
	require.NoError(t, err)
}

func TestRotateReuseRevokesChain(t *testing.T) {
	h := newHarness(t)
	a := h.seedAccount(t, "a@x.com", domain.RoleAdmin)
	first := h.login(t, a.Email)
	other := h.login(t, a.Email)
	ctx := context.Background()

	next, err := h.svc.Rotate(ctx, first.RefreshToken, first.CSRFToken, testOrigin)
	require.NoError(t, err)

	h.clock.Advance(DefaultReuseGracePeriod + time.Second)
	_, err = h.svc.Rotate(ctx, first.RefreshToken, first.CSRFToken, testOrigin)
	require.ErrorIs(t, err, ErrInvalidSession)

	_, err = h.svc.Rotate(ctx, next.RefreshToken, next.CSRFToken, testOrigin)
	require.ErrorIs(t, err, ErrInvalidSession, "the live successor is revoked too")

	reuse := h.events.find(domain.ActionRefreshReuseDetected, domain.StatusFailure)
	require.Len(t, reuse, 1)
	require.Equal(t, first.ChainID, reuse[0].Metadata["chain_id"])
	require.Equal(t, "1", reuse[0].Metadata["revoked"])

	_, err = h.svc.Rotate(ctx, other.RefreshToken, other.CSRFToken, testOrigin)
	require.NoError(t, err, "other chains of the account are unaffected")
}

func TestRotateConcurrentSameToken(t *testing.T) {
	h := newHarness(t)
	a := h.seedAccount(t, "a@x.com", domain.RoleAdmin)
	sess := h.login(t, a.Email)

	const callers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     []*domain.Session
		rejected int
	)
	start := make(chan struct{})
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			next, err := h.svc.Rotate(context.Background(), sess.RefreshToken, sess.CSRFToken, testOrigin)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins = append(wins, next)
				return
			}
			if err == ErrInvalidSession {
				rejected++
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Len(t, wins, 1, "exactly one rotation may succeed")
	require.Equal(t, callers-1, rejected)

	_, err := h.svc.Rotate(context.Background(), wins[0].RefreshToken, wins[0].CSRFToken, testOrigin)
	require.NoError(t, err, "the winner's session stays usable")
}

func TestRotateRejections(t *testing.T) {
	h := newHarness(t)
	a := h.seedAccount(t, "a@x.com", domain.RoleAdmin)
	ctx := context.Background()

	t.Run("unknown token", func(t *testing.T) {
		_, err := h.svc.Rotate(ctx, "not-a-real-token", "x", testOrigin)
		require.ErrorIs(t, err, ErrInvalidSession)
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := h.svc.Rotate(ctx, "", "", testOrigin)
		require.ErrorIs(t, err, ErrInvalidSession)
	})

	t.Run("missing or wrong anti-forgery token", func(t *testing.T) {
		sess := h.login(t, a.Email)
		_, err := h.svc.Rotate(ctx, sess.RefreshToken, "", testOrigin)
		require.ErrorIs(t, err, ErrCSRFMismatch)
		_, err = h.svc.Rotate(ctx, sess.RefreshToken, "forged", testOrigin)
		require.ErrorIs(t, err, ErrCSRFMismatch)

		_, err = h.svc.Rotate(ctx, sess.RefreshToken, sess.CSRFToken, testOrigin)
		require.NoError(t, err, "a forged attempt does not burn the session")
	})

	t.Run("expired token", func(t *testing.T) {
		sess := h.login(t, a.Email)
		h.clock.Advance(jwtx.DefaultRefreshTokenTTL + time.Second)
		_, err := h.svc.Rotate(ctx, sess.RefreshToken, sess.CSRFToken, testOrigin)
		require.ErrorIs(t, err, ErrInvalidSession)
	})
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	a := h.seedAccount(t, "a@x.com", domain.RoleAdmin)
	sess := h.login(t, a.Email)
	ctx := context.Background()

	require.NoError(t, h.svc.Logout(ctx, sess.RefreshToken, testOrigin))

	_, err := h.svc.Rotate(ctx, sess.RefreshToken, sess.CSRFToken, testOrigin)
	require.ErrorIs(t, err, ErrInvalidSession)

	record, err := h.store.RefreshTokens().GetByHash(ctx, h.svc.tokens.RefreshHash(sess.RefreshToken))
	require.NoError(t, err)
	require.Equal(t, domain.RevokeLogout, record.RevokedReason)
	require.Empty(t, record.CSRFHash)

	// Idempotent.
	require.NoError(t, h.svc.Logout(ctx, sess.RefreshToken, testOrigin))
	require.NoError(t, h.svc.Logout(ctx, "unknown", testOrigin))
	require.NoError(t, h.svc.Logout(ctx, "", testOrigin))

	events := h.events.find(domain.ActionLogout, domain.StatusSuccess)
	require.Len(t, events, 3)
	require.Equal(t, "true", events[0].Metadata["revoked"])
	require.Equal(t, "false", events[1].Metadata["revoked"])
	require.Equal(t, a.ID, events[0].AccountID)

	// The access token is stateless and remains valid until it expires.
	_, _, err = h.svc.VerifyAccess(ctx, sess.AccessToken)
	require.NoError(t, err)
}

func TestRevokeAllSessions(t *testing.T) {
	h := newHarness(t)
	a := h.seedAccount(t, "a@x.com", domain.RoleAdmin)
	b := h.seedAccount(t, "b@x.com", domain.RoleAdmin)
	s1 := h.login(t, a.Email)
	s2 := h.login(t, a.Email)
	sb := h.login(t, b.Email)
	ctx := context.Background()

	n, err := h.svc.RevokeAllSessions(ctx, a.ID, testOrigin)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	for _, s := range []*domain.Session{s1, s2} {
		_, err := h.svc.Rotate(ctx, s.RefreshToken, s.CSRFToken, testOrigin)
		require.ErrorIs(t, err, ErrInvalidSession)
	}
	_, err = h.svc.Rotate(ctx, sb.RefreshToken, sb.CSRFToken, testOrigin)
	require.NoError(t, err)
}
