package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const dayLayout = "2006-01-02"

// SlotLock serializes admissions per (vendor, slot label, day). The
// count-then-insert sequence in the admission path runs only while the
// caller holds this lock, which is what keeps the capacity invariant true
// under concurrent checkouts.
type SlotLock struct {
	Client *redis.Client
	// TTL is a safety valve: a crashed holder frees the slot after this
	// long. Normal holders release explicitly well before expiry.
	TTL time.Duration
}

func NewSlotLock(client *redis.Client, ttl time.Duration) *SlotLock {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &SlotLock{Client: client, TTL: ttl}
}

func slotKey(vendorID, slot string, day time.Time) string {
	return fmt.Sprintf("slot_admit:%s:%s:%s", vendorID, slot, day.Format(dayLayout))
}

// Acquire takes the admission lock for one (vendor, slot, day). token
// identifies the holder so Release cannot free someone else's lock.
func (l *SlotLock) Acquire(ctx context.Context, vendorID, slot string, day time.Time, token string) (bool, error) {
	return l.Client.SetNX(ctx, slotKey(vendorID, slot, day), token, l.TTL).Result()
}

// Release frees the lock if it is still held by token. A missing key means
// the TTL already expired, which is not an error.
func (l *SlotLock) Release(ctx context.Context, vendorID, slot string, day time.Time, token string) error {
	key := slotKey(vendorID, slot, day)
	val, err := l.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	if val == token {
		_, err = l.Client.Del(ctx, key).Result()
		return err
	}
	return nil
}
