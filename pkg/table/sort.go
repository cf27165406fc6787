package table

import (
	"cmp"
	"fmt"
	"slices"
	"time"
)

// SortState 当前排序列与方向
type SortState struct {
	Field string `json:"field,omitempty"`
	Desc  bool   `json:"desc"`
}

// ToggleSort 同一列切换升降序，换列时从升序开始
// 列不存在或不可排序时返回 false
func (t *Table) ToggleSort(field string) bool {
	if !t.sortable(field) {
		return false
	}
	if t.sort.Field == field {
		t.sort.Desc = !t.sort.Desc
	} else {
		t.sort = SortState{Field: field}
	}
	return true
}

// SetSort 直接指定排序，field 为空时取消排序
func (t *Table) SetSort(field string, desc bool) bool {
	if field == "" {
		t.sort = SortState{}
		return true
	}
	if !t.sortable(field) {
		return false
	}
	t.sort = SortState{Field: field, Desc: desc}
	return true
}

func (t *Table) sortable(field string) bool {
	for _, c := range t.columns {
		if c.Field == field {
			return c.Sortable
		}
	}
	return false
}

// Sorted 返回过滤并排序后的行（稳定排序，不修改源顺序）
func (t *Table) Sorted() []Row {
	filtered := t.Filtered()
	if t.sort.Field == "" {
		return filtered
	}
	out := slices.Clone(filtered)
	field := t.sort.Field
	slices.SortStableFunc(out, func(a, b Row) int {
		c := Compare(a[field], b[field])
		if t.sort.Desc {
			return -c
		}
		return c
	})
	return out
}

// Compare 按值的自然顺序比较；nil 最小，类型不同时按文本比较
func Compare(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	if fa, ok := number(a); ok {
		if fb, ok := number(b); ok {
			return cmp.Compare(fa, fb)
		}
	}
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return cmp.Compare(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			default:
				return 1
			}
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
