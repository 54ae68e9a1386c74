package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/varaamo/reservable/services/reservation-service/internal/model"
)

// Commands is the subset of the Redis client the cache uses.
type Commands interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// SnapshotCache stores unit calendars in Redis. Entries are keyed by a
// per-unit version; bumping the version orphans every cached window of the
// unit, and the orphans expire on their TTL.
//
// Callers read the version once with Version and pass it to both Get and Set,
// so a calendar loaded before an invalidation is written under the orphaned
// version and never served.
type SnapshotCache struct {
	rdb    Commands
	ttl    time.Duration
	prefix string
}

func NewSnapshotCache(rdb Commands, ttl time.Duration, prefix string) *SnapshotCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "snap"
	}
	return &SnapshotCache{rdb: rdb, ttl: ttl, prefix: prefix}
}

func (c *SnapshotCache) versionKey(unitID string) string {
	return c.prefix + ":unit:" + unitID + ":v"
}

// Version returns the unit's current cache version; 0 before the first
// invalidation.
func (c *SnapshotCache) Version(ctx context.Context, unitID string) (int64, error) {
	v, err := c.rdb.Get(ctx, c.versionKey(unitID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (c *SnapshotCache) entryKey(unitID string, version int64, window string) string {
	return fmt.Sprintf("%s:unit:%s:v%d:%s", c.prefix, unitID, version, window)
}

// Get returns the calendar cached for the window under version. A miss is
// (zero, false, nil).
func (c *SnapshotCache) Get(ctx context.Context, unitID string, version int64, window string) (model.UnitCalendar, bool, error) {
	raw, err := c.rdb.Get(ctx, c.entryKey(unitID, version, window)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.UnitCalendar{}, false, nil
	}
	if err != nil {
		return model.UnitCalendar{}, false, err
	}
	var cal model.UnitCalendar
	if err := json.Unmarshal(raw, &cal); err != nil {
		return model.UnitCalendar{}, false, fmt.Errorf("decode cached calendar: %w", err)
	}
	return cal, true, nil
}

// Set stores cal for the window under version, the one read before cal was
// loaded.
func (c *SnapshotCache) Set(ctx context.Context, unitID string, version int64, window string, cal model.UnitCalendar) error {
	raw, err := json.Marshal(cal)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.entryKey(unitID, version, window), raw, c.ttl).Err()
}

// Invalidate drops every cached window of the unit.
func (c *SnapshotCache) Invalidate(ctx context.Context, unitID string) error {
	return c.rdb.Incr(ctx, c.versionKey(unitID)).Err()
}

func ReadyCheck(rdb *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if rdb == nil {
			return errors.New("redis not configured")
		}
		return rdb.Ping(ctx).Err()
	}
}
