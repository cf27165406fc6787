package realtime

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Applier 能应用变更事件的本地集合
type Applier interface {
	Apply(ctx context.Context, ev Event) (bool, error)
}

// Runner 需要后台运行的 Broker
type Runner interface {
	Run(ctx context.Context) error
}

// Reconciler 把订阅到的事件分发给各表的本地集合
type Reconciler struct {
	broker Broker
	stores map[string][]Applier
	logger *zap.Logger
}

// NewReconciler 创建 Reconciler
func NewReconciler(broker Broker, logger *zap.Logger) *Reconciler {
	return &Reconciler{broker: broker, stores: make(map[string][]Applier), logger: logger}
}

// Register 为表注册本地集合，需在 Run 之前调用
func (r *Reconciler) Register(table string, a Applier) {
	r.stores[table] = append(r.stores[table], a)
}

// Run 订阅已注册的表并按到达顺序应用事件，ctx 结束时退订返回
func (r *Reconciler) Run(ctx context.Context) error {
	tables := make([]string, 0, len(r.stores))
	for t := range r.stores {
		tables = append(tables, t)
	}
	if len(tables) == 0 {
		return fmt.Errorf("没有注册任何本地集合")
	}

	events, err := r.broker.Subscribe(ctx, tables...)
	if err != nil {
		return fmt.Errorf("订阅变更失败: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			for _, a := range r.stores[ev.Table] {
				if _, err := a.Apply(ctx, ev); err != nil {
					r.logger.Warn("应用变更事件失败",
						zap.String("table", ev.Table),
						zap.String("type", string(ev.Type)),
						zap.Error(err),
					)
				}
			}
		}
	}
}
