package dto

import "strings"

// ── 表格查询 ──

// TableQuery 列表的搜索、排序与分页参数
type TableQuery struct {
	Search   []string `form:"search"`    // 多个词需全部命中
	Sort     string   `form:"sort"`      // 排序字段
	Desc     bool     `form:"desc"`      // 降序
	Page     int      `form:"page"      binding:"omitempty,min=1"`
	PageSize int      `form:"page_size" binding:"omitempty,min=1,max=500"`
}

// GetPage 获取页码（含默认值）
func (q *TableQuery) GetPage() int {
	if q.Page <= 0 {
		return 1
	}
	return q.Page
}

// GetPageSize 获取每页数量，未指定时使用 fallback
func (q *TableQuery) GetPageSize(fallback int) int {
	if q.PageSize <= 0 {
		return fallback
	}
	return q.PageSize
}

// Terms 去除空白后的搜索词，逗号分隔的单个参数会被拆开
func (q *TableQuery) Terms() []string {
	var out []string
	for _, s := range q.Search {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
