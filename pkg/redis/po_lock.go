package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	rd "github.com/redis/go-redis/v9"
)

// ErrLockHeld means another request is creating a PO for the same pair.
var ErrLockHeld = errors.New("purchase order lock held")

// luaReleaseIfMatch deletes the lock only while it still holds our token, so
// a request whose lock expired cannot release a newer holder's lock.
const luaReleaseIfMatch = `
local lockKey = KEYS[1]
local token = ARGV[1]
if redis.call('GET', lockKey) == token then
  return redis.call('DEL', lockKey)
end
return 0
`

// POLock is a held lock; Release it when done.
type POLock struct {
	rdb   *rd.Client
	key   string
	token string
}

// AcquirePOLock takes the (vendor, ingredient) lock with SET NX and a TTL.
// It returns ErrLockHeld when someone else holds it.
func AcquirePOLock(ctx context.Context, rdb *rd.Client, vendorID, ingredientID string, ttl time.Duration) (*POLock, error) {
	l := &POLock{rdb: rdb, key: POLockKey(vendorID, ingredientID), token: uuid.NewString()}
	ok, err := rdb.SetNX(ctx, l.key, l.token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return l, nil
}

// Release drops the lock if this holder still owns it.
func (l *POLock) Release(ctx context.Context) error {
	_, err := l.rdb.Eval(ctx, luaReleaseIfMatch, []string{l.key}, l.token).Int()
	return err
}
