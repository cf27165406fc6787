package realtime

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Broker 表变更的发布订阅
type Broker interface {
	// Publish 发布事件；由数据库触发器推送的实现为空操作
	Publish(ctx context.Context, ev Event) error
	// Subscribe 订阅指定表（为空时订阅全部），ctx 结束后通道关闭
	Subscribe(ctx context.Context, tables ...string) (<-chan Event, error)
	Close() error
}

const subscriberBuffer = 64

// hub 进程内扇出，供各 Broker 实现复用
type hub struct {
	mu     sync.RWMutex
	subs   map[*subscriber]struct{}
	logger *zap.Logger
	closed bool
}

type subscriber struct {
	ch     chan Event
	tables map[string]bool
}

func newHub(logger *zap.Logger) *hub {
	return &hub{subs: make(map[*subscriber]struct{}), logger: logger}
}

func (h *hub) subscribe(ctx context.Context, tables []string) <-chan Event {
	s := &subscriber{ch: make(chan Event, subscriberBuffer)}
	if len(tables) > 0 {
		s.tables = make(map[string]bool, len(tables))
		for _, t := range tables {
			s.tables[t] = true
		}
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(s.ch)
		return s.ch
	}
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.remove(s)
	}()
	return s.ch
}

func (h *hub) remove(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.ch)
	}
}

// broadcast 按到达顺序投递；订阅者积压时丢弃并记录
func (h *hub) broadcast(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs {
		if s.tables != nil && !s.tables[ev.Table] {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			h.logger.Warn("订阅者积压，丢弃变更事件",
				zap.String("table", ev.Table),
				zap.String("type", string(ev.Type)),
			)
		}
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for s := range h.subs {
		delete(h.subs, s)
		close(s.ch)
	}
}

// ── 进程内实现 ──

// MemoryBroker 单实例部署使用的进程内 Broker
type MemoryBroker struct {
	hub *hub
}

// NewMemoryBroker 创建进程内 Broker
func NewMemoryBroker(logger *zap.Logger) *MemoryBroker {
	return &MemoryBroker{hub: newHub(logger)}
}

// Publish 投递给本进程的订阅者
func (b *MemoryBroker) Publish(_ context.Context, ev Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	b.hub.broadcast(ev)
	return nil
}

// Subscribe 订阅
func (b *MemoryBroker) Subscribe(ctx context.Context, tables ...string) (<-chan Event, error) {
	return b.hub.subscribe(ctx, tables), nil
}

// Close 关闭全部订阅
func (b *MemoryBroker) Close() error {
	b.hub.close()
	return nil
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
