package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/mindnote/internal/client/client"
	"github.com/dmitrijs2005/mindnote/internal/client/models"
	"github.com/dmitrijs2005/mindnote/internal/client/repositories/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin_Success_StartsSession(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.client.LoginResp = &client.LoginResponse{Success: true, User: ana, Token: "tok-1"}
	require.NoError(t, kv.SetInt(ctx, e.repo, kv.KeyLoginAttempts, 2))

	res, err := e.auth(AuthConfig{}).Login(ctx, " ANA@x.com ", "p1")
	require.NoError(t, err)

	assert.Equal(t, RouteNotes, res.Route)
	assert.Equal(t, ana, res.User)
	assert.Equal(t, "ana@x.com", e.client.LastEmail)

	sess, ok := e.sessions.Current()
	require.True(t, ok)
	assert.Equal(t, ana, sess.User)
	assert.Equal(t, "tok-1", sess.Token)

	assert.False(t, e.has(t, kv.KeyLoginAttempts))
	assert.False(t, e.has(t, kv.KeyLoginLock))

	var roster []models.Account
	found, err := kv.GetJSON(ctx, e.repo, kv.KeyRegisteredUsers, &roster)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, roster, 1)
	assert.Equal(t, "ana@x.com", roster[0].Email)
	assert.NotEmpty(t, roster[0].PasswordHash)
	assert.NotContains(t, roster[0].PasswordHash, "p1")
}

func TestLogin_Administrator_RoutesToAdmin(t *testing.T) {
	e := newEnv(t)
	e.client.LoginResp = &client.LoginResponse{Success: true, User: boss}

	res, err := e.auth(AuthConfig{}).Login(context.Background(), boss.Email, "pw")
	require.NoError(t, err)
	assert.Equal(t, RouteAdmin, res.Route)

	sess, ok := e.sessions.Current()
	require.True(t, ok)
	assert.Empty(t, sess.Token)
}

func TestLogin_AlreadyAuthenticated(t *testing.T) {
	e := newEnv(t)
	e.login(t, boss)

	_, err := e.auth(AuthConfig{}).Login(context.Background(), ana.Email, "p1")

	require.ErrorIs(t, err, ErrAlreadyAuthenticated)
	var already *AlreadyAuthenticatedError
	require.ErrorAs(t, err, &already)
	assert.Equal(t, RouteAdmin, already.Route())
	assert.Zero(t, e.client.loginCalls())
}

func TestLogin_FailuresLockAfterThree(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.client.LoginErr = client.ErrUnauthorized
	svc := e.auth(AuthConfig{MaxAttempts: 3, LockDuration: 5 * time.Minute})

	for attempt := 1; attempt <= 2; attempt++ {
		_, err := svc.Login(ctx, ana.Email, "wrong")
		var cred *CredentialsError
		require.ErrorAs(t, err, &cred)
		assert.Equal(t, attempt, cred.Attempt)
		assert.Equal(t, 3, cred.Max)
		assert.Equal(t, attempt, e.getInt(t, kv.KeyLoginAttempts))
	}

	_, err := svc.Login(ctx, ana.Email, "wrong")
	var locked *LockedError
	require.ErrorAs(t, err, &locked)
	assert.True(t, locked.Created)
	assert.Equal(t, 5*time.Minute, locked.Remaining)
	assert.Equal(t, 5, locked.Minutes())

	var lock models.LoginLock
	found, err := kv.GetJSON(ctx, e.repo, kv.KeyLoginLock, &lock)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, lock.Expiry.Equal(start.Add(300*time.Second)))
	assert.Equal(t, 0, e.getInt(t, kv.KeyLoginAttempts))

	_, pending := e.sched.Deadline(lockTimerKey)
	assert.True(t, pending)
}

func TestLogin_WhileLocked_DoesNotCallBackend(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.client.LoginErr = client.ErrUnauthorized
	svc := e.auth(AuthConfig{})

	for i := 0; i < 3; i++ {
		_, _ = svc.Login(ctx, ana.Email, "wrong")
	}
	require.Equal(t, 3, e.client.loginCalls())

	e.clock.Advance(time.Minute)
	e.client.LoginErr = nil
	e.client.LoginResp = &client.LoginResponse{Success: true, User: ana}

	_, err := svc.Login(ctx, ana.Email, "p1")
	var locked *LockedError
	require.ErrorAs(t, err, &locked)
	assert.False(t, locked.Created)
	assert.Equal(t, 4*time.Minute, locked.Remaining)
	assert.Equal(t, 3, e.client.loginCalls())

	_, ok := e.sessions.Current()
	assert.False(t, ok)
}

func TestLogin_Unavailable_LeavesCounter(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, kv.SetInt(ctx, e.repo, kv.KeyLoginAttempts, 1))
	e.client.LoginErr = client.ErrUnavailable

	_, err := e.auth(AuthConfig{}).Login(ctx, ana.Email, "p1")
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 1, e.getInt(t, kv.KeyLoginAttempts))
}

func TestLogin_OtherErrorsAreWrapped(t *testing.T) {
	e := newEnv(t)
	e.client.LoginErr = context.Canceled

	_, err := e.auth(AuthConfig{}).Login(context.Background(), ana.Email, "p1")
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, e.getInt(t, kv.KeyLoginAttempts))
}

func TestLockTimer_ClearsLockAndAlerts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.client.LoginErr = client.ErrUnauthorized
	svc := e.auth(AuthConfig{})

	for i := 0; i < 3; i++ {
		_, _ = svc.Login(ctx, ana.Email, "wrong")
	}

	e.clock.Advance(5 * time.Minute)

	assert.Eventually(t, func() bool {
		return len(e.alertTitles()) == 1
	}, waitFor, 5*time.Millisecond)
	assert.Equal(t, []string{"login.unlocked"}, e.alertTitles())
	assert.False(t, e.has(t, kv.KeyLoginLock))

	_, locked, err := svc.LockStatus(ctx)
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestInit_ResumesActiveLock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	expiry := start.Add(2 * time.Minute)
	require.NoError(t, kv.SetJSON(ctx, e.repo, kv.KeyLoginLock, models.LoginLock{Expiry: expiry}))

	svc := e.auth(AuthConfig{})
	require.NoError(t, svc.Init(ctx))

	deadline, ok := e.sched.Deadline(lockTimerKey)
	require.True(t, ok)
	assert.True(t, deadline.Equal(expiry))

	remaining, locked, err := svc.LockStatus(ctx)
	require.NoError(t, err)
	assert.True(t, locked)
	assert.Equal(t, 2*time.Minute, remaining)
}

func TestInit_DropsExpiredLock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, kv.SetJSON(ctx, e.repo, kv.KeyLoginLock, models.LoginLock{Expiry: start.Add(-time.Second)}))

	require.NoError(t, e.auth(AuthConfig{}).Init(ctx))

	assert.False(t, e.has(t, kv.KeyLoginLock))
	assert.Zero(t, e.sched.Len())
}

func TestCountdown_StrictlyDecreasingUntilExpiry(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.client.LoginErr = client.ErrUnauthorized
	svc := e.auth(AuthConfig{MaxAttempts: 1, LockDuration: 5 * time.Second})

	_, err := svc.Login(ctx, ana.Email, "wrong")
	var locked *LockedError
	require.ErrorAs(t, err, &locked)

	vals := make(chan time.Duration)
	done := make(chan error, 1)
	go func() {
		done <- svc.Countdown(ctx, func(d time.Duration) { vals <- d })
	}()

	got := []time.Duration{<-vals}
	for i := 0; i < 4; i++ {
		e.clock.Advance(time.Second)
		got = append(got, <-vals)
	}
	e.clock.Advance(time.Second)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("countdown did not finish")
	}

	assert.Equal(t, []time.Duration{5 * time.Second, 4 * time.Second, 3 * time.Second, 2 * time.Second, time.Second}, got)
	assert.False(t, e.has(t, kv.KeyLoginLock))
}

func TestCountdown_NotLockedReturnsImmediately(t *testing.T) {
	e := newEnv(t)

	calls := 0
	err := e.auth(AuthConfig{}).Countdown(context.Background(), func(time.Duration) { calls++ })
	require.NoError(t, err)
	assert.Zero(t, calls)
}

func TestCountdown_StopsOnContextCancel(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.client.LoginErr = client.ErrUnauthorized
	svc := e.auth(AuthConfig{MaxAttempts: 1})
	_, _ = svc.Login(ctx, ana.Email, "wrong")

	cctx, cancel := context.WithCancel(ctx)
	err := svc.Countdown(cctx, func(time.Duration) { cancel() })
	require.True(t, errors.Is(err, context.Canceled))
	assert.True(t, e.has(t, kv.KeyLoginLock))
}

func TestLogout(t *testing.T) {
	e := newEnv(t)
	svc := e.auth(AuthConfig{})

	require.ErrorIs(t, svc.Logout(context.Background()), ErrNotAuthenticated)

	e.login(t, ana)
	require.NoError(t, svc.Logout(context.Background()))

	_, ok := e.sessions.Current()
	assert.False(t, ok)
	assert.False(t, e.has(t, kv.KeyUser))
	assert.False(t, e.has(t, kv.KeyToken))
}
