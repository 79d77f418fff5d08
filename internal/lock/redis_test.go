package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTTL = 5 * time.Second

func TestRedisLockAcquiresInOrderAndReleases(t *testing.T) {
	db, mock := redismock.NewClientMock()
	r := NewRedis(db, testTTL, 10*time.Millisecond)

	mock.Regexp().ExpectSetNX(keyPrefix+"a", `.*`, testTTL).SetVal(true)
	mock.Regexp().ExpectSetNX(keyPrefix+"b", `.*`, testTTL).SetVal(true)
	mock.Regexp().ExpectEvalSha(releaseScript.Hash(), []string{keyPrefix + "b"}, `.*`).SetVal(int64(1))
	mock.Regexp().ExpectEvalSha(releaseScript.Hash(), []string{keyPrefix + "a"}, `.*`).SetVal(int64(1))

	unlock, err := r.Lock(context.Background(), []string{"b", "a", "b"})
	require.NoError(t, err)
	unlock()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLockRetriesWhileHeld(t *testing.T) {
	db, mock := redismock.NewClientMock()
	r := NewRedis(db, testTTL, time.Millisecond)

	mock.Regexp().ExpectSetNX(keyPrefix+"a", `.*`, testTTL).SetVal(false)
	mock.Regexp().ExpectSetNX(keyPrefix+"a", `.*`, testTTL).SetVal(true)
	mock.Regexp().ExpectEvalSha(releaseScript.Hash(), []string{keyPrefix + "a"}, `.*`).SetVal(int64(1))

	unlock, err := r.Lock(context.Background(), []string{"a"})
	require.NoError(t, err)
	unlock()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLockHonoursContext(t *testing.T) {
	db, mock := redismock.NewClientMock()
	r := NewRedis(db, testTTL, time.Second)

	mock.Regexp().ExpectSetNX(keyPrefix+"a", `.*`, testTTL).SetVal(false)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.Lock(ctx, []string{"a"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLockBackendErrorReleasesHeldKeys(t *testing.T) {
	db, mock := redismock.NewClientMock()
	r := NewRedis(db, testTTL, time.Millisecond)

	mock.Regexp().ExpectSetNX(keyPrefix+"a", `.*`, testTTL).SetVal(true)
	mock.Regexp().ExpectSetNX(keyPrefix+"b", `.*`, testTTL).SetErr(errors.New("connection refused"))
	mock.Regexp().ExpectEvalSha(releaseScript.Hash(), []string{keyPrefix + "a"}, `.*`).SetVal(int64(1))

	_, err := r.Lock(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}
