package table

import "strings"

// matchAll 与任何行都匹配的特殊搜索词，仅限小写原文
const matchAll = "all"

// SetSearch 设置搜索词，多个词之间为"且"关系；空词被忽略
func (t *Table) SetSearch(terms ...string) {
	kept := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term != "" {
			kept = append(kept, term)
		}
	}
	t.terms = kept
	t.page = 1
}

// Search 返回当前搜索词
func (t *Table) Search() []string {
	return t.terms
}

// Filtered 返回满足全部搜索词的行，保持源顺序
func (t *Table) Filtered() []Row {
	if len(t.terms) == 0 {
		return t.rows
	}
	out := make([]Row, 0, len(t.rows))
	for _, r := range t.rows {
		if MatchAll(t.columns, r, t.terms) {
			out = append(out, r)
		}
	}
	return out
}

// MatchAll 行需逐个满足每个搜索词
func MatchAll(columns []Column, r Row, terms []string) bool {
	for _, term := range terms {
		if !Match(columns, r, term) {
			return false
		}
	}
	return true
}

// Match 任一可搜索列匹配即命中
// 普通列为大小写无关的包含匹配，SearchExact 列为大小写无关的前缀匹配
func Match(columns []Column, r Row, term string) bool {
	if term == matchAll {
		return true
	}
	needle := strings.ToLower(term)
	for _, c := range columns {
		if c.NoSearch {
			continue
		}
		text := strings.ToLower(c.Text(r))
		if c.SearchExact {
			if len(needle) <= len(text) && text[:len(needle)] == needle {
				return true
			}
			continue
		}
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}
