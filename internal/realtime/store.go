package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
)

// Store 以主键索引的本地集合，按变更事件收敛
// INSERT 追加（或前插），UPDATE 整行替换，DELETE 按旧行主键删除。
// 设置 admit 后集合只保留满足条件的行：UPDATE 命中未持有的行时插入，不再满足的行被移除
type Store[T any] struct {
	mu        sync.RWMutex
	key       func(T) uint
	items     []T
	prepend   bool
	enrich    func(ctx context.Context, item *T) error
	admit     func(T) bool
	listeners map[int]func([]T)
	nextID    int
}

// StoreOption Store 选项
type StoreOption[T any] func(*Store[T])

// WithPrepend 新插入的行放在最前（最新在前的列表）
func WithPrepend[T any]() StoreOption[T] {
	return func(s *Store[T]) { s.prepend = true }
}

// WithEnrich 插入或更新前补全行数据，例如用户表补充邮箱
func WithEnrich[T any](fn func(ctx context.Context, item *T) error) StoreOption[T] {
	return func(s *Store[T]) { s.enrich = fn }
}

// WithAdmit 集合成员条件，例如“今天的预约”。行可能经 UPDATE 进入或离开集合
func WithAdmit[T any](fn func(T) bool) StoreOption[T] {
	return func(s *Store[T]) { s.admit = fn }
}

// NewStore 创建 Store
func NewStore[T any](key func(T) uint, opts ...StoreOption[T]) *Store[T] {
	s := &Store[T]{key: key, listeners: make(map[int]func([]T))}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load 以初始查询结果替换集合
func (s *Store[T]) Load(items []T) {
	s.mu.Lock()
	s.items = slices.Clone(items)
	snapshot := slices.Clone(s.items)
	listeners := s.snapshotListeners()
	s.mu.Unlock()
	notify(listeners, snapshot)
}

// Apply 应用一条事件，返回集合是否发生变化
func (s *Store[T]) Apply(ctx context.Context, ev Event) (bool, error) {
	switch ev.Type {
	case EventInsert:
		item, err := s.decode(ev.New)
		if err != nil {
			return false, err
		}
		if err := s.runEnrich(ctx, &item); err != nil {
			return false, err
		}
		// 订阅建立前已拉取到的行按更新处理，避免重复
		return s.mutate(func() bool { return s.upsert(item, true) }), nil

	case EventUpdate:
		item, err := s.decode(ev.New)
		if err != nil {
			return false, err
		}
		if err := s.runEnrich(ctx, &item); err != nil {
			return false, err
		}
		return s.mutate(func() bool { return s.upsert(item, s.admit != nil) }), nil

	case EventDelete:
		old, err := s.decode(ev.Old)
		if err != nil {
			return false, err
		}
		return s.mutate(func() bool { return s.remove(s.key(old)) }), nil
	}
	return false, fmt.Errorf("未知事件类型 %q", ev.Type)
}

// upsert 替换已有行；不存在时 insert 为真才插入。不满足 admit 的行被移除
func (s *Store[T]) upsert(item T, insert bool) bool {
	id := s.key(item)
	if s.admit != nil && !s.admit(item) {
		return s.remove(id)
	}
	if i := s.indexOf(id); i >= 0 {
		s.items[i] = item
		return true
	}
	if !insert {
		return false
	}
	if s.prepend {
		s.items = slices.Insert(s.items, 0, item)
	} else {
		s.items = append(s.items, item)
	}
	return true
}

func (s *Store[T]) remove(id uint) bool {
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.items = slices.Delete(s.items, i, i+1)
	return true
}

func (s *Store[T]) decode(raw json.RawMessage) (T, error) {
	var item T
	if len(raw) == 0 {
		return item, fmt.Errorf("事件缺少行数据")
	}
	if err := json.Unmarshal(raw, &item); err != nil {
		return item, fmt.Errorf("解析行数据失败: %w", err)
	}
	return item, nil
}

func (s *Store[T]) runEnrich(ctx context.Context, item *T) error {
	if s.enrich == nil {
		return nil
	}
	return s.enrich(ctx, item)
}

// mutate 在写锁内修改，变化后通知监听者
func (s *Store[T]) mutate(fn func() bool) bool {
	s.mu.Lock()
	changed := fn()
	var snapshot []T
	var listeners []func([]T)
	if changed {
		snapshot = slices.Clone(s.items)
		listeners = s.snapshotListeners()
	}
	s.mu.Unlock()
	if changed {
		notify(listeners, snapshot)
	}
	return changed
}

func (s *Store[T]) indexOf(id uint) int {
	for i, it := range s.items {
		if s.key(it) == id {
			return i
		}
	}
	return -1
}

func (s *Store[T]) snapshotListeners() []func([]T) {
	out := make([]func([]T), 0, len(s.listeners))
	for _, fn := range s.listeners {
		out = append(out, fn)
	}
	return out
}

func notify[T any](listeners []func([]T), items []T) {
	for _, fn := range listeners {
		fn(items)
	}
}

// Items 返回集合快照
func (s *Store[T]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// Len 行数
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Get 按主键取行
func (s *Store[T]) Get(id uint) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.items[i], true
	}
	var zero T
	return zero, false
}

// View 过滤后的派生视图，保持集合顺序
func (s *Store[T]) View(keep func(T) bool) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, 0, len(s.items))
	for _, it := range s.items {
		if keep == nil || keep(it) {
			out = append(out, it)
		}
	}
	return out
}

// OnChange 注册变化回调，返回注销函数
func (s *Store[T]) OnChange(fn func([]T)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}
