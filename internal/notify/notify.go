// internal/notify/notify.go
//
// Page-changed signals.
//
// Context
// -------
// After a committed mutation the site tells interested frontends which
// page family changed ("team", "home", "dynamic", "research", …).  The
// signal is fire-and-forget: delivery failures are logged and counted but
// never surface to the admin who made the change.
//
// Two implementations exist:
//
//   • Redis  – publishes a JSON envelope on a pub/sub channel, consumed by
//              whatever push layer fronts the browsers.
//   • Log    – writes the signal to the structured log only.  Selected when
//              no Redis address is configured.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/acmlab/labsite/internal/metrics"
	"github.com/acmlab/labsite/internal/ordered"
)

// Notifier delivers one page-changed signal.
type Notifier interface {
	Notify(ctx context.Context, topic string, payload any) error
}

// Message is the envelope published for every signal.
type Message struct {
	Topic   string    `json:"topic"`
	Payload any       `json:"payload"`
	TS      time.Time `json:"ts"`
}

/*──────────────────────────── redis ────────────────────────────────────────*/

// Redis publishes messages on one channel.
type Redis struct {
	rdb     *redis.Client
	channel string
}

// NewRedis dials addr and pings it with a five-second budget.
func NewRedis(ctx context.Context, addr, channel string) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{rdb: rdb, channel: channel}, nil
}

// NewRedisClient wraps an existing client.  Used by tests.
func NewRedisClient(rdb *redis.Client, channel string) *Redis {
	return &Redis{rdb: rdb, channel: channel}
}

// Notify publishes topic and payload as JSON.
func (r *Redis) Notify(ctx context.Context, topic string, payload any) error {
	raw, err := json.Marshal(Message{Topic: topic, Payload: payload, TS: time.Now().UTC()})
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, r.channel, raw).Err()
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	if r == nil || r.rdb == nil {
		return nil
	}
	return r.rdb.Close()
}

/*──────────────────────────── log ──────────────────────────────────────────*/

// Log writes signals to the global zap logger.
type Log struct{}

// Notify never fails.
func (Log) Notify(_ context.Context, topic string, payload any) error {
	zap.S().Infow("page changed", "topic", topic, "payload", payload)
	return nil
}

/*──────────────────────────── store hook ───────────────────────────────────*/

// Hook adapts n into a post-commit hook: one signal per schema topic,
// delivered on a detached goroutine bounded by timeout.
func Hook(n Notifier, timeout time.Duration) ordered.Hook {
	return func(_ context.Context, ev ordered.Event) {
		if len(ev.Topics) == 0 {
			return
		}
		payload := map[string]any{
			"resource": ev.Resource,
			"action":   string(ev.Op),
		}
		if ev.ID != 0 {
			payload["id"] = ev.ID
		}
		if len(ev.IDs) > 0 {
			payload["ids"] = ev.IDs
		}
		go deliver(n, timeout, ev.Topics, payload)
	}
}

func deliver(n Notifier, timeout time.Duration, topics []string, payload map[string]any) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for _, topic := range topics {
		if err := n.Notify(ctx, topic, payload); err != nil {
			metrics.NotifyFailuresTotal.WithLabelValues(topic).Inc()
			zap.S().Warnw("page-changed signal failed", "topic", topic, "err", err)
		}
	}
}
