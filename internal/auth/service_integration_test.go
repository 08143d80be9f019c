//go:build integration_test || all_tests

package auth

import (
	"testing"
	"time"

	"github.com/2beens/gymrotation/internal/fitness"
	testingpkg "github.com/2beens/gymrotation/pkg/testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_RealRedis(t *testing.T) {
	ctx, rdb := testingpkg.GetRedisClientAndCtx(t)

	authService := NewAuthService(time.Hour, rdb)
	loginChecker := NewLoginChecker(time.Hour, rdb, DefaultCacheSize)

	user := &fitness.User{ID: fitness.NewID(), Role: fitness.RoleUser}
	token, err := authService.Login(ctx, user, time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	actor, ok, err := loginChecker.Check(ctx, token)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, user.ID, actor.UserID)

	loggedOut, err := authService.Logout(ctx, token)
	require.NoError(t, err)
	assert.True(t, loggedOut)
	loginChecker.Forget(token)

	_, ok, err = loginChecker.Check(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok)

	// an old session is swept, a fresh one stays
	oldToken, err := authService.Login(ctx, user, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	freshToken, err := authService.Login(ctx, user, time.Now())
	require.NoError(t, err)

	authService.ScanAndClean(ctx, time.Now())

	exists, err := rdb.Exists(ctx, sessionKeyPrefix+oldToken).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
	exists, err = rdb.Exists(ctx, sessionKeyPrefix+freshToken).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)

	_, err = authService.Logout(ctx, freshToken)
	require.NoError(t, err)
}
