package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

var ErrLockHeld = errors.New("lock_held")

// Deletes the key only while it still carries the caller's token.
const leaseReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// Locker hands out named, expiring leases backed by redis SET NX PX. A nil
// *Locker grants every lease, so a single instance runs without redis.
type Locker struct {
	client  *redis.Client
	release *redis.Script
}

// Lease is one holder's claim on a named lock.
type Lease struct {
	locker     *Locker
	key        string
	token      string
	acquiredAt time.Time
	ttl        time.Duration
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client:  client,
		release: redis.NewScript(leaseReleaseScript),
	}
}

func lockKey(name string) string {
	return "homescore:lock:" + name
}

// Acquire claims the lock called name for ttl. ErrLockHeld means another
// instance owns it.
func (l *Locker) Acquire(ctx context.Context, name string, ttl time.Duration) (*Lease, error) {
	if name == "" {
		return nil, errors.New("lock name is empty")
	}
	if ttl <= 0 {
		return nil, errors.New("lock ttl must be positive")
	}

	lease := &Lease{key: lockKey(name), acquiredAt: time.Now(), ttl: ttl}
	if l == nil {
		return lease, nil
	}

	lease.locker = l
	lease.token = uuid.NewString()
	ok, err := l.client.SetNX(ctx, lease.key, lease.token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLockHeld, name)
	}
	return lease, nil
}

func (l *Lease) Key() string {
	if l == nil {
		return ""
	}
	return l.key
}

// Expired reports whether the redis key has outlived its ttl as seen from now;
// a batch still running past that point may overlap another instance.
func (l *Lease) Expired(now time.Time) bool {
	if l == nil || l.locker == nil {
		return false
	}
	return now.Sub(l.acquiredAt) >= l.ttl
}

// Release gives the lock back. Releasing a lease that expired and was taken
// by someone else leaves their claim intact.
func (l *Lease) Release(ctx context.Context) error {
	if l == nil || l.locker == nil {
		return nil
	}
	return l.locker.release.Run(ctx, l.locker.client, []string{l.key}, l.token).Err()
}
