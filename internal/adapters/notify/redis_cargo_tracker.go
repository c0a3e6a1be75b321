package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/platform/obs"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCargoTracker publishes cargo state changes on a per-request
// Redis Pub/Sub channel ("cargo:<request id>").
type RedisCargoTracker struct {
	rdb     *redis.Client
	timeout time.Duration
}

func NewRedisCargoTracker(rdb *redis.Client) *RedisCargoTracker {
	return &RedisCargoTracker{rdb: rdb, timeout: 2 * time.Second}
}

func ChannelName(requestID int64) string { return "cargo:" + strconv.FormatInt(requestID, 10) }

func (t *RedisCargoTracker) SetCargoState(ctx context.Context, requestID int64, state string) (err error) {
	defer obs.Time(ctx, "cargo.redis.Publish")(&err)
	defer countNotification("cargo.state", &err)

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	data, err := json.Marshal(newCargoEvent(requestID, state))
	if err != nil {
		return fmt.Errorf("%w: encode cargo event: %v", domain.ErrIntegration, err)
	}

	if err := t.rdb.Publish(ctx, ChannelName(requestID), data).Err(); err != nil {
		return fmt.Errorf("%w: publish cargo event: %v", domain.ErrIntegration, err)
	}
	return nil
}
