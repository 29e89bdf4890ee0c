package users_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/2beens/fitnesstracker/internal/telemetry/metrics"
	"github.com/2beens/fitnesstracker/internal/users"
)

func TestCachedRepo_Get_MissThenStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	repoMock := NewMockusersRepo(ctrl)
	db, redisMock := redismock.NewClientMock()
	metricsManager := metrics.NewTestManager()
	cached := users.NewCachedRepo(repoMock, db, time.Minute, metricsManager)

	user := map[string]any{"id": "u1", "firstName": "Ana"}
	userJSON, err := json.Marshal(user)
	require.NoError(t, err)

	redisMock.ExpectGet("user::u1").RedisNil()
	repoMock.EXPECT().Get(gomock.Any(), "u1").Return(user, nil)
	redisMock.ExpectSet("user::u1", string(userJSON), time.Minute).SetVal("OK")

	got, err := cached.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, user, got)
	assert.NoError(t, redisMock.ExpectationsWereMet())
	assert.Equal(t, 1.0, testutil.ToFloat64(metricsManager.CounterCacheLookups.WithLabelValues("users", metrics.CacheMiss)))
}

func TestCachedRepo_Get_Hit(t *testing.T) {
	ctrl := gomock.NewController(t)
	repoMock := NewMockusersRepo(ctrl)
	db, redisMock := redismock.NewClientMock()
	metricsManager := metrics.NewTestManager()
	cached := users.NewCachedRepo(repoMock, db, time.Minute, metricsManager)

	redisMock.ExpectGet("user::u1").SetVal(`{"id":"u1","firstName":"Ana"}`)
	repoMock.EXPECT().Get(gomock.Any(), gomock.Any()).Times(0)

	got, err := cached.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": "u1", "firstName": "Ana"}, got)
	assert.NoError(t, redisMock.ExpectationsWereMet())
	assert.Equal(t, 1.0, testutil.ToFloat64(metricsManager.CounterCacheLookups.WithLabelValues("users", metrics.CacheHit)))
}

func TestCachedRepo_Get_RedisDown(t *testing.T) {
	ctrl := gomock.NewController(t)
	repoMock := NewMockusersRepo(ctrl)
	db, redisMock := redismock.NewClientMock()
	metricsManager := metrics.NewTestManager()
	cached := users.NewCachedRepo(repoMock, db, time.Minute, metricsManager)

	redisMock.ExpectGet("user::u1").SetErr(errors.New("connection refused"))
	repoMock.EXPECT().Get(gomock.Any(), "u1").Return(map[string]any{"id": "u1"}, nil)
	redisMock.ExpectSet("user::u1", `{"id":"u1"}`, time.Minute).SetErr(errors.New("connection refused"))

	got, err := cached.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got["id"])
	assert.Equal(t, 1.0, testutil.ToFloat64(metricsManager.CounterCacheLookups.WithLabelValues("users", metrics.CacheError)))
}

func TestCachedRepo_Get_NotFoundIsNotCached(t *testing.T) {
	ctrl := gomock.NewController(t)
	repoMock := NewMockusersRepo(ctrl)
	db, redisMock := redismock.NewClientMock()
	cached := users.NewCachedRepo(repoMock, db, time.Minute, nil)

	redisMock.ExpectGet("user::ghost").RedisNil()
	repoMock.EXPECT().Get(gomock.Any(), "ghost").Return(nil, users.ErrUserNotFound)

	_, err := cached.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, users.ErrUserNotFound)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestCachedRepo_WritesInvalidate(t *testing.T) {
	ctrl := gomock.NewController(t)
	repoMock := NewMockusersRepo(ctrl)
	db, redisMock := redismock.NewClientMock()
	cached := users.NewCachedRepo(repoMock, db, time.Minute, nil)
	ctx := context.Background()

	repoMock.EXPECT().Update(gomock.Any(), "u1", gomock.Any()).Return(nil)
	redisMock.ExpectDel("user::u1").SetVal(1)
	require.NoError(t, cached.Update(ctx, "u1", map[string]any{"bio": "x"}))

	repoMock.EXPECT().Delete(gomock.Any(), "u1").Return(nil)
	redisMock.ExpectDel("user::u1").SetVal(1)
	require.NoError(t, cached.Delete(ctx, "u1"))

	repoMock.EXPECT().Create(gomock.Any(), "u2", gomock.Any()).Return(nil)
	redisMock.ExpectDel("user::u2").SetVal(0)
	require.NoError(t, cached.Create(ctx, "u2", map[string]any{"id": "u2"}))

	// a failed write keeps the cache as is
	repoMock.EXPECT().Update(gomock.Any(), "u3", gomock.Any()).Return(users.ErrUserNotFound)
	assert.ErrorIs(t, cached.Update(ctx, "u3", map[string]any{"bio": "x"}), users.ErrUserNotFound)

	repoMock.EXPECT().List(gomock.Any()).Return(nil, nil)
	_, err := cached.List(ctx)
	require.NoError(t, err)

	repoMock.EXPECT().ExistsByPhone(gomock.Any(), "1").Return(true, nil)
	exists, err := cached.ExistsByPhone(ctx, "1")
	require.NoError(t, err)
	assert.True(t, exists)

	assert.NoError(t, redisMock.ExpectationsWereMet())
}
