package table

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrUnsupportedKey 只支持上下方向键
var ErrUnsupportedKey = errors.New("unsupported key")

// Key 导航按键
type Key int

const (
	KeyUp Key = iota + 1
	KeyDown
)

// ParseKey 解析按键名（ArrowUp/up/ArrowDown/down，大小写无关）
func ParseKey(s string) (Key, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "arrowup", "up":
		return KeyUp, nil
	case "arrowdown", "down":
		return KeyDown, nil
	}
	return 0, fmt.Errorf("%w %q", ErrUnsupportedKey, s)
}

// Navigator 在过滤结果上移动单个选中下标，不自动翻页
type Navigator struct {
	mu       sync.Mutex
	source   func() []Row
	onSelect func(index int, r Row)
	index    int
}

// NewNavigator 创建导航器，source 每次按键时取一次当前可导航的行
func NewNavigator(source func() []Row, onSelect func(index int, r Row)) *Navigator {
	return &Navigator{source: source, onSelect: onSelect, index: -1}
}

// Navigator 以表格当前过滤排序结果为导航范围
func (t *Table) Navigator(onSelect func(index int, r Row)) *Navigator {
	return NewNavigator(t.Sorted, onSelect)
}

// Press 处理一次按键，返回选中行
// 无选中时 Down 选第一行、Up 选最后一行；下标夹在 [0, n-1]
func (n *Navigator) Press(k Key) (Row, bool) {
	n.mu.Lock()
	rows := n.source()
	if len(rows) == 0 {
		n.index = -1
		n.mu.Unlock()
		return nil, false
	}

	next := n.index
	switch {
	case next < 0 && k == KeyDown:
		next = 0
	case next < 0 && k == KeyUp:
		next = len(rows) - 1
	case k == KeyDown:
		next++
	case k == KeyUp:
		next--
	}
	next = max(0, min(next, len(rows)-1))

	changed := next != n.index
	n.index = next
	row := rows[next]
	cb := n.onSelect
	n.mu.Unlock()

	if changed && cb != nil {
		cb(next, row)
	}
	return row, true
}

// Selected 返回当前选中行；选中下标超出当前行数时视为无选中
func (n *Navigator) Selected() (int, Row, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	rows := n.source()
	if n.index < 0 || n.index >= len(rows) {
		return -1, nil, false
	}
	return n.index, rows[n.index], true
}

// Reset 清除选中
func (n *Navigator) Reset() {
	n.mu.Lock()
	n.index = -1
	n.mu.Unlock()
}

// Dispatcher 按会话 id 分发按键，同一 id 只保留一个监听者
type Dispatcher struct {
	mu        sync.RWMutex
	listeners map[string]*Navigator
}

// NewDispatcher 创建分发器
func NewDispatcher() *Dispatcher {
	return &Dispatcher{listeners: make(map[string]*Navigator)}
}

// Attach 注册监听者，重复注册同一 id 时替换而不叠加
func (d *Dispatcher) Attach(id string, n *Navigator) {
	d.mu.Lock()
	d.listeners[id] = n
	d.mu.Unlock()
}

// Detach 注销监听者
func (d *Dispatcher) Detach(id string) {
	d.mu.Lock()
	delete(d.listeners, id)
	d.mu.Unlock()
}

// Get 返回已注册的监听者
func (d *Dispatcher) Get(id string) (*Navigator, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n, ok := d.listeners[id]
	return n, ok
}

// Len 已注册的监听者数量
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners)
}

// Dispatch 将按键交给 id 对应的监听者，未注册时返回 false
func (d *Dispatcher) Dispatch(id string, k Key) (Row, bool) {
	d.mu.RLock()
	n, ok := d.listeners[id]
	d.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return n.Press(k)
}
