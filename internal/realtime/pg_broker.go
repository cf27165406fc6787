package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// PostgresBroker 通过 LISTEN/NOTIFY 接收数据库触发器推送的变更
type PostgresBroker struct {
	dsn     string
	channel string
	hub     *hub
	logger  *zap.Logger
	backoff time.Duration
}

// NewPostgresBroker 创建 PostgreSQL Broker，需调用 Run 开始接收
func NewPostgresBroker(dsn, channel string, logger *zap.Logger) *PostgresBroker {
	return &PostgresBroker{
		dsn:     dsn,
		channel: channel,
		hub:     newHub(logger),
		logger:  logger,
		backoff: 2 * time.Second,
	}
}

// Publish 变更由触发器 notify_table_change 发出，此处仅校验。
// 触发器的频道取自 change_feed_settings，启动时由 database.SetChangeFeedChannel 写入同一 channel；
// 行数据不含 note、message，较大的行只有 id 与 student_id
func (b *PostgresBroker) Publish(_ context.Context, ev Event) error {
	return ev.Validate()
}

// Subscribe 订阅
func (b *PostgresBroker) Subscribe(ctx context.Context, tables ...string) (<-chan Event, error) {
	return b.hub.subscribe(ctx, tables), nil
}

// Run 阻塞监听直到 ctx 结束，连接断开后按固定间隔重连
func (b *PostgresBroker) Run(ctx context.Context) error {
	for {
		err := b.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		b.logger.Warn("LISTEN 连接中断，稍后重连", zap.Error(err), zap.Duration("backoff", b.backoff))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(b.backoff):
		}
	}
}

func (b *PostgresBroker) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, b.dsn)
	if err != nil {
		return fmt.Errorf("连接数据库失败: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{b.channel}.Sanitize()); err != nil {
		return fmt.Errorf("LISTEN 失败: %w", err)
	}
	b.logger.Info("变更订阅已启动", zap.String("driver", "postgres"), zap.String("channel", b.channel))

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		var ev Event
		if err := json.Unmarshal([]byte(n.Payload), &ev); err != nil {
			b.logger.Warn("无法解析变更通知", zap.Error(err))
			continue
		}
		b.hub.broadcast(ev)
	}
}

// Close 关闭全部订阅
func (b *PostgresBroker) Close() error {
	b.hub.close()
	return nil
}
