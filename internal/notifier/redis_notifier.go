package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joblink/chat-service/internal/config"
	"github.com/joblink/chat-service/internal/domain"
	"github.com/joblink/chat-service/pkg/log"
)

// RedisNotifier implements Notifier over Redis pub/sub. Each identity has a
// channel "<prefix>:<identity id>"; every service instance subscribes to the
// prefix pattern and delivers payloads to the identity's local connections,
// so notifications reach clients regardless of which instance they are
// connected to.
type RedisNotifier struct {
	client *redis.Client
	prefix string
	pubsub *redis.PubSub
}

// NewRedisNotifier connects to Redis and verifies the connection.
func NewRedisNotifier(cfg config.RedisConfig) (*RedisNotifier, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisNotifier{
		client: client,
		prefix: cfg.NotifyChannel,
	}, nil
}

func (n *RedisNotifier) channelFor(identityID string) string {
	return fmt.Sprintf("%s:%s", n.prefix, identityID)
}

// NotifyNewMessage publishes the notification on the identity's personal
// channel.
func (n *RedisNotifier) NotifyNewMessage(ctx context.Context, identityID string, event *domain.NewMessageNotificationEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	if err := n.client.Publish(ctx, n.channelFor(identityID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// Run subscribes to every personal channel under the prefix and delivers
// incoming payloads until ctx is cancelled.
func (n *RedisNotifier) Run(ctx context.Context, deliver DeliverFunc) error {
	n.pubsub = n.client.PSubscribe(ctx, n.prefix+":*")

	// Confirm the subscription before consuming.
	if _, err := n.pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to personal channels: %w", err)
	}

	ch := n.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			identityID := strings.TrimPrefix(msg.Channel, n.prefix+":")
			deliver(identityID, []byte(msg.Payload))
			l := log.L()
			l.Debug().Str(log.FieldUserID, identityID).Msg("personal notification delivered")
		}
	}
}

// Close shuts down the subscription and the client.
func (n *RedisNotifier) Close() error {
	if n.pubsub != nil {
		if err := n.pubsub.Close(); err != nil {
			return err
		}
	}
	return n.client.Close()
}
