package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// PubSub Redis 发布/订阅能力，由 pkg/redis.Client 实现
type PubSub interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Redis 多实例部署时经 Redis 频道广播
type Redis struct {
	client  PubSub
	channel string
	logger  *zap.Logger
}

// NewRedis 创建 Redis 推送
func NewRedis(client PubSub, channel string, logger *zap.Logger) *Redis {
	return &Redis{client: client, channel: channel, logger: logger}
}

// Publish 发布事件
func (r *Redis) Publish(ctx context.Context, ev Event) error {
	payload, err := encode(ev)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel, payload); err != nil {
		return fmt.Errorf("发布变更事件失败: %w", err)
	}
	return nil
}

// Subscribe 订阅频道并解码事件
func (r *Redis) Subscribe(ctx context.Context) (<-chan Event, error) {
	raw, err := r.client.Subscribe(ctx, r.channel)
	if err != nil {
		return nil, err
	}

	out := make(chan Event, subscriberBuffer)
	go func() {
		defer close(out)
		for payload := range raw {
			ev, err := decode(payload)
			if err != nil {
				r.logger.Warn("忽略无法解析的变更事件", zap.ByteString("payload", payload), zap.Error(err))
				continue
			}
			select {
			case out <- ev:
			default:
			}
		}
	}()
	return out, nil
}

// Close 关闭 Redis 连接
func (r *Redis) Close() error {
	return r.client.Close()
}
