// Package realtime 表变更事件的发布订阅与本地状态收敛
package realtime

import (
	"encoding/json"
	"fmt"
)

// EventType 变更类型
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// 订阅的表
const (
	TableAppointments  = "appointments"
	TableSections      = "sections"
	TableReasons       = "reasons"
	TableUsers         = "users"
	TableDisabledDates = "disabled_dates"
)

// Tables 全部可订阅的表
var Tables = []string{TableAppointments, TableSections, TableReasons, TableUsers, TableDisabledDates}

// KnownTable 是否为可订阅的表
func KnownTable(name string) bool {
	for _, t := range Tables {
		if t == name {
			return true
		}
	}
	return false
}

// Event 单行变更；INSERT 只有 New，DELETE 只有 Old
type Event struct {
	Table string          `json:"table"`
	Type  EventType       `json:"type"`
	New   json.RawMessage `json:"new,omitempty"`
	Old   json.RawMessage `json:"old,omitempty"`
}

// NewEvent 序列化行数据构造事件，nil 行不写入
func NewEvent(table string, typ EventType, newRow, oldRow any) (Event, error) {
	ev := Event{Table: table, Type: typ}
	if newRow != nil {
		b, err := json.Marshal(newRow)
		if err != nil {
			return Event{}, fmt.Errorf("序列化 new 失败: %w", err)
		}
		ev.New = b
	}
	if oldRow != nil {
		b, err := json.Marshal(oldRow)
		if err != nil {
			return Event{}, fmt.Errorf("序列化 old 失败: %w", err)
		}
		ev.Old = b
	}
	return ev, nil
}

// Validate 检查事件是否完整
func (e Event) Validate() error {
	switch e.Type {
	case EventInsert, EventUpdate:
		if len(e.New) == 0 || string(e.New) == "null" {
			return fmt.Errorf("%s 事件缺少 new", e.Type)
		}
	case EventDelete:
		if len(e.Old) == 0 || string(e.Old) == "null" {
			return fmt.Errorf("DELETE 事件缺少 old")
		}
	default:
		return fmt.Errorf("未知事件类型 %q", e.Type)
	}
	return nil
}
