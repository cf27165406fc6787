package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// PubSub Redis 发布订阅的最小接口，由 pkg/redis.Client 实现
type PubSub interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func() error)
}

// RedisBroker 多实例部署时经 Redis 频道广播变更
type RedisBroker struct {
	ps      PubSub
	channel string
	hub     *hub
	logger  *zap.Logger
}

// NewRedisBroker 创建 Redis Broker，需调用 Run 开始接收
func NewRedisBroker(ps PubSub, channel string, logger *zap.Logger) *RedisBroker {
	return &RedisBroker{ps: ps, channel: channel, hub: newHub(logger), logger: logger}
}

// Publish 发布到 Redis 频道，本实例的订阅者同样经频道收到
func (b *RedisBroker) Publish(ctx context.Context, ev Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}
	return b.ps.Publish(ctx, b.channel, payload)
}

// Subscribe 订阅
func (b *RedisBroker) Subscribe(ctx context.Context, tables ...string) (<-chan Event, error) {
	return b.hub.subscribe(ctx, tables), nil
}

// Run 阻塞接收 Redis 消息直到 ctx 结束
func (b *RedisBroker) Run(ctx context.Context) error {
	msgs, closeFn := b.ps.Subscribe(ctx, b.channel)
	defer func() {
		if err := closeFn(); err != nil {
			b.logger.Warn("关闭 Redis 订阅失败", zap.Error(err))
		}
	}()

	b.logger.Info("变更订阅已启动", zap.String("driver", "redis"), zap.String("channel", b.channel))
	for {
		select {
		case <-ctx.Done():
			return nil
		case payload, ok := <-msgs:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal(payload, &ev); err != nil {
				b.logger.Warn("无法解析变更事件", zap.Error(err))
				continue
			}
			b.hub.broadcast(ev)
		}
	}
}

// Close 关闭全部订阅
func (b *RedisBroker) Close() error {
	b.hub.close()
	return nil
}
