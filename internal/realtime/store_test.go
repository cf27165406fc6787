package realtime

import (
	"context"
	"errors"
	"testing"
)

type row struct {
	ID     uint   `json:"id"`
	Status string `json:"status"`
	Email  string `json:"email,omitempty"`
}

func rowKey(r row) uint { return r.ID }

func mustEvent(t *testing.T, typ EventType, newRow, oldRow any) Event {
	t.Helper()
	ev, err := NewEvent(TableAppointments, typ, newRow, oldRow)
	if err != nil {
		t.Fatalf("NewEvent 失败: %v", err)
	}
	return ev
}

func TestStore_InsertAppendAndPrepend(t *testing.T) {
	ctx := context.Background()

	appendStore := NewStore(rowKey)
	appendStore.Load([]row{{ID: 1}})
	appendStore.Apply(ctx, mustEvent(t, EventInsert, row{ID: 2}, nil))
	if items := appendStore.Items(); items[1].ID != 2 {
		t.Errorf("默认应追加到末尾，实际=%v", items)
	}

	prependStore := NewStore(rowKey, WithPrepend[row]())
	prependStore.Load([]row{{ID: 1}})
	prependStore.Apply(ctx, mustEvent(t, EventInsert, row{ID: 2}, nil))
	if items := prependStore.Items(); items[0].ID != 2 {
		t.Errorf("WithPrepend 应插到最前，实际=%v", items)
	}
}

func TestStore_InsertExistingKeyReplaces(t *testing.T) {
	s := NewStore(rowKey)
	s.Load([]row{{ID: 1, Status: "Pending"}})
	s.Apply(context.Background(), mustEvent(t, EventInsert, row{ID: 1, Status: "completed"}, nil))

	if s.Len() != 1 {
		t.Fatalf("重复主键不应产生重复行，实际=%d", s.Len())
	}
	if r, _ := s.Get(1); r.Status != "completed" {
		t.Errorf("应以事件数据为准，实际=%v", r)
	}
}

func TestStore_UpdateReplacesWholeRow(t *testing.T) {
	s := NewStore(rowKey)
	s.Load([]row{{ID: 1, Status: "Pending", Email: "a@x.com"}, {ID: 2}})

	changed, err := s.Apply(context.Background(), mustEvent(t, EventUpdate, row{ID: 1, Status: "return"}, nil))
	if err != nil || !changed {
		t.Fatalf("Update 应生效: changed=%v err=%v", changed, err)
	}
	r, _ := s.Get(1)
	if r.Status != "return" || r.Email != "" {
		t.Errorf("UPDATE 应整行替换而非合并，实际=%v", r)
	}

	changed, _ = s.Apply(context.Background(), mustEvent(t, EventUpdate, row{ID: 99}, nil))
	if changed {
		t.Error("不存在的行更新应被忽略")
	}
}

func TestStore_AdmitMovesRowsInAndOut(t *testing.T) {
	ctx := context.Background()
	pendingOnly := func(r row) bool { return r.Status == "Pending" }

	tests := []struct {
		name    string
		typ     EventType
		ev      row
		changed bool
		want    []uint
	}{
		{"UPDATE 未持有且满足条件时插入", EventUpdate, row{ID: 2, Status: "Pending"}, true, []uint{1, 2}},
		{"UPDATE 未持有且不满足条件时忽略", EventUpdate, row{ID: 3, Status: "completed"}, false, []uint{1}},
		{"UPDATE 不再满足条件时移除", EventUpdate, row{ID: 1, Status: "completed"}, true, []uint{}},
		{"INSERT 不满足条件时不插入", EventInsert, row{ID: 4, Status: "completed"}, false, []uint{1}},
		{"INSERT 满足条件时插入", EventInsert, row{ID: 5, Status: "Pending"}, true, []uint{1, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(rowKey, WithAdmit(pendingOnly))
			s.Load([]row{{ID: 1, Status: "Pending"}})

			changed, err := s.Apply(ctx, mustEvent(t, tt.typ, tt.ev, nil))
			if err != nil {
				t.Fatalf("Apply 失败: %v", err)
			}
			if changed != tt.changed {
				t.Errorf("changed 期望 %v，实际 %v", tt.changed, changed)
			}
			items := s.Items()
			if len(items) != len(tt.want) {
				t.Fatalf("期望 %d 行，实际 %v", len(tt.want), items)
			}
			for i, id := range tt.want {
				if items[i].ID != id {
					t.Errorf("第 %d 行期望 ID=%d，实际 %v", i, id, items)
				}
			}
		})
	}
}

func TestStore_DeleteByOldKey(t *testing.T) {
	s := NewStore(rowKey)
	s.Load([]row{{ID: 1}, {ID: 2}, {ID: 3}})

	changed, err := s.Apply(context.Background(), mustEvent(t, EventDelete, nil, row{ID: 2}))
	if err != nil || !changed {
		t.Fatalf("Delete 应生效: changed=%v err=%v", changed, err)
	}
	items := s.Items()
	if len(items) != 2 || items[0].ID != 1 || items[1].ID != 3 {
		t.Errorf("删除后顺序应保持，实际=%v", items)
	}
}

func TestStore_EnrichOnInsert(t *testing.T) {
	s := NewStore(rowKey, WithEnrich(func(_ context.Context, r *row) error {
		r.Email = "resolved@x.com"
		return nil
	}))
	s.Apply(context.Background(), mustEvent(t, EventInsert, row{ID: 5}, nil))

	if r, _ := s.Get(5); r.Email != "resolved@x.com" {
		t.Errorf("插入前应补全邮箱，实际=%v", r)
	}
}

func TestStore_EnrichErrorLeavesStoreUnchanged(t *testing.T) {
	s := NewStore(rowKey, WithEnrich(func(context.Context, *row) error {
		return errors.New("lookup failed")
	}))
	if _, err := s.Apply(context.Background(), mustEvent(t, EventInsert, row{ID: 5}, nil)); err == nil {
		t.Fatal("补全失败应返回错误")
	}
	if s.Len() != 0 {
		t.Error("补全失败时不应写入")
	}
}

func TestStore_ViewAndOnChange(t *testing.T) {
	s := NewStore(rowKey)
	calls := 0
	unsubscribe := s.OnChange(func([]row) { calls++ })

	s.Load([]row{{ID: 1, Status: "Pending"}, {ID: 2, Status: "completed"}})
	s.Apply(context.Background(), mustEvent(t, EventInsert, row{ID: 3, Status: "pending"}, nil))

	pending := s.View(func(r row) bool { return r.Status == "Pending" || r.Status == "pending" })
	if len(pending) != 2 {
		t.Errorf("派生视图期望 2 行，实际=%d", len(pending))
	}
	if calls != 2 {
		t.Errorf("期望回调 2 次，实际=%d", calls)
	}

	unsubscribe()
	s.Apply(context.Background(), mustEvent(t, EventDelete, nil, row{ID: 1}))
	if calls != 2 {
		t.Error("注销后不应再回调")
	}
}

func TestStore_RejectsMalformedEvent(t *testing.T) {
	s := NewStore(rowKey)
	if _, err := s.Apply(context.Background(), Event{Type: EventInsert}); err == nil {
		t.Error("缺少 new 的 INSERT 应返回错误")
	}
	if _, err := s.Apply(context.Background(), Event{Type: "TRUNCATE", New: []byte(`{}`)}); err == nil {
		t.Error("未知类型应返回错误")
	}
}
