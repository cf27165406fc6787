package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/leonard05717/appointment/pkg/format"
)

// DefaultWindowMonths 可预约的月数
const DefaultWindowMonths = 3

// Exclusion 日期不可选的原因
type Exclusion string

const (
	ExcludedNone       Exclusion = ""
	ExcludedSunday     Exclusion = "sunday"
	ExcludedDisabled   Exclusion = "disabled"
	ExcludedPending    Exclusion = "pending"
	ExcludedOutOfRange Exclusion = "out_of_range"
)

// Calendar 计算某个学生可选的日期
type Calendar struct {
	Today        time.Time         // 当地零点
	WindowMonths int
	Disabled     map[string]string // 日期 -> 说明
	Pending      map[string]bool   // 该学生已有待处理预约的日期
}

// Range 可选日期范围 [今天, 今天+N 个月]
func (c Calendar) Range() (time.Time, time.Time) {
	months := c.WindowMonths
	if months <= 0 {
		months = DefaultWindowMonths
	}
	return c.Today, c.Today.AddDate(0, months, 0)
}

// Check 判断日期是否可选；ownerRule 为 false 时不考虑学生自己的待处理预约（改约使用）
func (c Calendar) Check(day time.Time, ownerRule bool) Exclusion {
	first, last := c.Range()
	if day.Before(first) || day.After(last) {
		return ExcludedOutOfRange
	}
	if day.Weekday() == time.Sunday {
		return ExcludedSunday
	}
	key := format.Date(day)
	if _, ok := c.Disabled[key]; ok {
		return ExcludedDisabled
	}
	if ownerRule && c.Pending[key] {
		return ExcludedPending
	}
	return ExcludedNone
}

// CheckString 同 Check，输入为 YYYY-MM-DD
func (c Calendar) CheckString(date string, ownerRule bool) (Exclusion, error) {
	day, err := format.ParseDate(date, c.Today.Location())
	if err != nil {
		return ExcludedNone, err
	}
	return c.Check(day, ownerRule), nil
}

// ExcludedDay 范围内的不可选日期
type ExcludedDay struct {
	Date        string    `json:"date"`
	Reason      Exclusion `json:"reason"`
	Description string    `json:"description,omitempty"`
}

// Excluded 列出范围内全部不可选日期
func (c Calendar) Excluded(ownerRule bool) []ExcludedDay {
	first, last := c.Range()
	var out []ExcludedDay
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		reason := c.Check(d, ownerRule)
		if reason == ExcludedNone {
			continue
		}
		key := format.Date(d)
		out = append(out, ExcludedDay{Date: key, Reason: reason, Description: c.Disabled[key]})
	}
	return out
}

// ── 时间段余量 ──

// Slot 时间段定义
type Slot struct {
	ID   uint
	Time string
	Max  int
}

// SlotOption 某日某时间段的可选项
type SlotOption struct {
	ID        uint   `json:"id"`
	Time      string `json:"time"`
	Max       int    `json:"max"`
	Booked    int    `json:"booked"`
	Remaining int    `json:"remaining"`
	Disabled  bool   `json:"disabled"`
	Label     string `json:"label"`
}

// SlotOptions 余量 = max - 当日该时间段已有预约数（不分学生与状态），余量为 0 时不可选
func SlotOptions(slots []Slot, booked map[string]int) []SlotOption {
	out := make([]SlotOption, 0, len(slots))
	for _, s := range slots {
		n := booked[s.Time]
		remaining := max(s.Max-n, 0)
		out = append(out, SlotOption{
			ID:        s.ID,
			Time:      s.Time,
			Max:       s.Max,
			Booked:    n,
			Remaining: remaining,
			Disabled:  remaining == 0,
			Label:     fmt.Sprintf("%s (%d)", s.Time, remaining),
		})
	}
	return out
}

// FindOption 按时间段文本查找，大小写无关
func FindOption(options []SlotOption, label string) (SlotOption, bool) {
	for _, o := range options {
		if strings.EqualFold(o.Time, label) {
			return o, true
		}
	}
	return SlotOption{}, false
}
