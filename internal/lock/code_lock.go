package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	rd "github.com/redis/go-redis/v9"
)

// Per-access-code advisory lock. The authoritative mutual exclusion is the
// conditional UPDATE in the license repository; this lock keeps concurrent
// refund requests for the same code from both reaching the payment gateway.

const lockTTL = 30 * time.Second

// luaReleaseIfMatch deletes the lock only when the value matches the holder's
// token, so a slow holder cannot release a lock re-acquired by someone else.
const luaReleaseIfMatch = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`

type CodeLocker struct {
	rdb *rd.Client
}

// NewCodeLocker wraps a redis client. A nil client disables locking: every
// Acquire succeeds and Release is a no-op.
func NewCodeLocker(rdb *rd.Client) *CodeLocker {
	return &CodeLocker{rdb: rdb}
}

func lockKey(code string) string {
	return "license_ledger:refund_lock:" + code
}

// Acquire takes the lock for code, returning a release token. ok = false
// means another request currently holds the lock.
func (l *CodeLocker) Acquire(ctx context.Context, code string) (token string, ok bool, err error) {
	if l.rdb == nil {
		return "", true, nil
	}
	token = uuid.NewString()
	ok, err = l.rdb.SetNX(ctx, lockKey(code), token, lockTTL).Result()
	return token, ok, err
}

// Release frees the lock if this holder still owns it.
func (l *CodeLocker) Release(ctx context.Context, code, token string) error {
	if l.rdb == nil {
		return nil
	}
	_, err := l.rdb.Eval(ctx, luaReleaseIfMatch, []string{lockKey(code)}, token).Int()
	return err
}
