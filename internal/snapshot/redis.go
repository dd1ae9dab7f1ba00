// internal/snapshot/redis.go
//
// Redis mirror for the content snapshot.
//
// Context
// -------
// A cold process normally pays for one full bulk fetch before it can
// answer anything.  With a mirror configured, every successful refresh is
// also written to Redis, and a cold start adopts the stored copy when it
// is still within TTL.  The stored write time travels with the payload,
// so an adopted snapshot expires exactly when the original would have.
//
// Payloads are versioned JSON.  A payload with an unknown version is
// ignored rather than half-decoded.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yanizio/tenantcms/internal/model"
)

// DefaultKey is the Redis key used when none is configured.
const DefaultKey = "tenantcms:snapshot"

const payloadVersion = 1

type payload struct {
	Version   int             `json:"version"`
	WrittenAt time.Time       `json:"written_at"`
	Snapshot  *model.Snapshot `json:"snapshot"`
}

// Mirror implements content.Mirror on Redis.
type Mirror struct {
	rdb redis.Cmdable
	key string
	ttl time.Duration
}

// NewMirror returns a Mirror.  Stored payloads expire after ttl, so Redis
// never holds a snapshot the cache would refuse anyway.
func NewMirror(rdb redis.Cmdable, key string, ttl time.Duration) *Mirror {
	if key == "" {
		key = DefaultKey
	}
	return &Mirror{rdb: rdb, key: key, ttl: ttl}
}

// Save stores snap with its write time.
func (m *Mirror) Save(ctx context.Context, snap *model.Snapshot, writtenAt time.Time) error {
	raw, err := json.Marshal(payload{Version: payloadVersion, WrittenAt: writtenAt, Snapshot: snap})
	if err != nil {
		return fmt.Errorf("snapshot: encode: %w", err)
	}
	expiry := m.ttl - time.Since(writtenAt)
	if m.ttl > 0 && expiry <= 0 {
		return nil
	}
	if m.ttl <= 0 {
		expiry = 0
	}
	if err := m.rdb.Set(ctx, m.key, raw, expiry).Err(); err != nil {
		return fmt.Errorf("snapshot: set %s: %w", m.key, err)
	}
	return nil
}

// Load returns the stored snapshot, or a nil snapshot when none is stored.
func (m *Mirror) Load(ctx context.Context) (*model.Snapshot, time.Time, error) {
	raw, err := m.rdb.Get(ctx, m.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("snapshot: get %s: %w", m.key, err)
	}

	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, time.Time{}, fmt.Errorf("snapshot: decode: %w", err)
	}
	if p.Version != payloadVersion || p.Snapshot == nil {
		zap.L().Warn("snapshot mirror payload ignored", zap.Int("version", p.Version))
		return nil, time.Time{}, nil
	}
	return p.Snapshot, p.WrittenAt, nil
}

// Clear removes the stored snapshot.
func (m *Mirror) Clear(ctx context.Context) error {
	return m.rdb.Del(ctx, m.key).Err()
}

// Connect opens a client and pings it once.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("snapshot: redis %s: %w", addr, err)
	}
	return rdb, nil
}
