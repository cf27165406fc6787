// Package table 通用行数据视图：搜索、排序、分页、勾选与键盘导航
package table

import (
	"fmt"
)

// DefaultPageSize 默认每页行数
const DefaultPageSize = 50

// Row 一行数据，键为字段名
type Row = map[string]any

// Column 列描述
type Column struct {
	Field       string
	Label       string
	Format      func(Row) string // 展示文本，未设置时使用原始字段值
	SearchExact bool             // 仅做前缀匹配
	NoSearch    bool             // 不参与搜索
	Sortable    bool
}

// Text 返回列在该行上的可比较文本
func (c Column) Text(r Row) string {
	if c.Format != nil {
		return c.Format(r)
	}
	v, ok := r[c.Field]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// Options 表格选项
type Options struct {
	PageSize  int
	Numbered  bool             // 输出绝对行号
	Checkable bool             // 行带 checked 字段
	OnChange  func(rows []Row) // 源数据或勾选变化后回调
}

// State 视图状态
type State string

const (
	StateRows    State = "rows"
	StateEmpty   State = "empty"    // 源数据为空
	StateNoMatch State = "no_match" // 有数据但搜索无结果
)

// Item 视图中的一行
type Item struct {
	No  int `json:"no,omitempty"`
	Row Row `json:"row"`
}

// View 当前页的渲染结果
type View struct {
	Items      []Item    `json:"items"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalPages int       `json:"total_pages"`
	Total      int       `json:"total"`  // 过滤后行数
	Source     int       `json:"source"` // 源数据行数
	State      State     `json:"state"`
	Loading    bool      `json:"loading"`
	Sort       SortState `json:"sort"`
}

// Table 行数据视图，非并发安全
type Table struct {
	columns []Column
	opts    Options
	rows    []Row
	terms   []string
	sort    SortState
	page    int
	loading bool
}

// New 创建表格
func New(columns []Column, opts Options) *Table {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	return &Table{columns: columns, opts: opts, page: 1}
}

// Columns 返回列描述
func (t *Table) Columns() []Column {
	return t.columns
}

// SetRows 替换源数据
// 首行缺少 id 时为每行分配 1 起始的合成 id；可勾选表格的 checked 全部重置为 false
func (t *Table) SetRows(rows []Row) {
	synthetic := len(rows) > 0 && !hasID(rows[0])

	t.rows = make([]Row, len(rows))
	for i, src := range rows {
		r := make(Row, len(src)+2)
		for k, v := range src {
			r[k] = v
		}
		if synthetic {
			r["id"] = i + 1
		}
		if t.opts.Checkable {
			r["checked"] = false
		}
		t.rows[i] = r
	}
	t.page = 1
	t.notify()
}

func hasID(r Row) bool {
	v, ok := r["id"]
	return ok && v != nil
}

// Rows 返回当前源数据（含勾选状态）
func (t *Table) Rows() []Row {
	return t.rows
}

// SetLoading 设置加载遮罩，已有数据照常返回
func (t *Table) SetLoading(loading bool) {
	t.loading = loading
}

// SetPage 切换页码，越界时在 View 中收敛
func (t *Table) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	t.page = page
}

// ── 勾选 ──

// SetChecked 设置指定 id 行的勾选状态，未找到返回 false
func (t *Table) SetChecked(id any, checked bool) bool {
	if !t.opts.Checkable {
		return false
	}
	key := fmt.Sprint(id)
	for _, r := range t.rows {
		if fmt.Sprint(r["id"]) == key {
			r["checked"] = checked
			t.notify()
			return true
		}
	}
	return false
}

// CheckAll 勾选或取消当前过滤结果中的全部行
func (t *Table) CheckAll(checked bool) {
	if !t.opts.Checkable {
		return
	}
	for _, r := range t.Filtered() {
		r["checked"] = checked
	}
	t.notify()
}

// Checked 返回已勾选的行
func (t *Table) Checked() []Row {
	var out []Row
	for _, r := range t.rows {
		if c, _ := r["checked"].(bool); c {
			out = append(out, r)
		}
	}
	return out
}

func (t *Table) notify() {
	if t.opts.OnChange != nil {
		t.opts.OnChange(t.rows)
	}
}

// ── 视图 ──

// View 计算当前页
func (t *Table) View() View {
	sorted := t.Sorted()
	pages := Chunk(sorted, t.opts.PageSize)

	v := View{
		Page:       t.page,
		PageSize:   t.opts.PageSize,
		TotalPages: len(pages),
		Total:      len(sorted),
		Source:     len(t.rows),
		Loading:    t.loading,
		Sort:       t.sort,
		Items:      []Item{},
	}

	switch {
	case len(t.rows) == 0:
		v.State = StateEmpty
	case len(sorted) == 0:
		v.State = StateNoMatch
	default:
		v.State = StateRows
	}

	if len(pages) == 0 {
		v.Page = 1
		return v
	}
	if v.Page > len(pages) {
		v.Page = len(pages)
	}

	offset := (v.Page - 1) * t.opts.PageSize
	for i, r := range pages[v.Page-1] {
		item := Item{Row: r}
		if t.opts.Numbered {
			item.No = offset + i + 1
		}
		v.Items = append(v.Items, item)
	}
	return v
}
