package service

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/leonard05717/appointment/pkg/format"
)

// ── 节假日日历解析 ──────────────────────────────────────────
//
// 将 iCalendar (RFC 5545) 中的 VEVENT 转为停约日期：
//   - DTSTART 为 VALUE=DATE 的全天事件按 [DTSTART, DTEND) 展开为多天
//   - 带时间的事件只取开始当天
//   - SUMMARY 作为说明，同一天多个事件只保留第一个
// ─────────────────────────────────────────────────────────────

const (
	icsMaxFileSize  = 5 * 1024 * 1024 // 5MB
	icsFetchTimeout = 30 * time.Second
	icsMaxEventDays = 31 // 单个事件最多展开的天数
)

// holidayEntry 解析出的单个停约日期
type holidayEntry struct {
	Date        string
	Description string
}

// FetchICSContent 从 URL 获取 ICS 内容
func FetchICSContent(rawURL string) (io.ReadCloser, error) {
	// webcal:// → https://
	u := rawURL
	if strings.HasPrefix(u, "webcal://") {
		u = "https://" + strings.TrimPrefix(u, "webcal://")
	}

	client := &http.Client{Timeout: icsFetchTimeout}
	resp, err := client.Get(u)
	if err != nil {
		return nil, fmt.Errorf("获取 ICS 失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("获取 ICS 失败: HTTP %d", resp.StatusCode)
	}
	// 限制响应体大小
	return struct {
		io.Reader
		io.Closer
	}{
		Reader: io.LimitReader(resp.Body, icsMaxFileSize),
		Closer: resp.Body,
	}, nil
}

// parseHolidayCalendar 解析 ICS 内容，结果按日期升序
func parseHolidayCalendar(reader io.Reader, loc *time.Location) ([]holidayEntry, error) {
	cal, err := ics.ParseCalendar(io.LimitReader(reader, icsMaxFileSize))
	if err != nil {
		return nil, fmt.Errorf("ICS 格式解析失败: %w", err)
	}

	seen := make(map[string]bool)
	var out []holidayEntry
	for _, evt := range cal.Events() {
		summary := ""
		if p := evt.GetProperty(ics.ComponentPropertySummary); p != nil {
			summary = strings.TrimSpace(p.Value)
		}
		for _, day := range eventDays(evt, loc) {
			key := format.Date(day)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, holidayEntry{Date: key, Description: summary})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// eventDays 事件覆盖的日期（当地零点）
func eventDays(evt *ics.VEvent, loc *time.Location) []time.Time {
	start, allDay, err := parseICSDateTime(evt, ics.ComponentPropertyDtStart, loc)
	if err != nil {
		return nil
	}
	first := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	if !allDay {
		return []time.Time{first}
	}

	// 全天事件的 DTEND 不含当天，缺省为一天
	end, _, err := parseICSDateTime(evt, ics.ComponentPropertyDtEnd, loc)
	if err != nil || !end.After(first) {
		return []time.Time{first}
	}
	var days []time.Time
	for d := first; d.Before(end) && len(days) < icsMaxEventDays; d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// parseICSDateTime 解析日期时间属性，第二个返回值表示是否为纯日期
func parseICSDateTime(evt *ics.VEvent, propName ics.ComponentProperty, loc *time.Location) (time.Time, bool, error) {
	prop := evt.GetProperty(propName)
	if prop == nil {
		return time.Time{}, false, fmt.Errorf("missing property %s", propName)
	}
	val := strings.TrimSpace(prop.Value)

	// 检查 TZID 参数
	tzLoc := loc
	for k, v := range prop.ICalParameters {
		if strings.ToUpper(k) == "TZID" && len(v) > 0 {
			if l, err := time.LoadLocation(v[0]); err == nil {
				tzLoc = l
			}
		}
	}

	if t, err := time.ParseInLocation("20060102", val, loc); err == nil {
		return t, true, nil
	}
	if t, err := time.Parse("20060102T150405Z", val); err == nil {
		return t.In(loc), false, nil
	}
	if t, err := time.ParseInLocation("20060102T150405", val, tzLoc); err == nil {
		return t.In(loc), false, nil
	}
	return time.Time{}, false, fmt.Errorf("无法解析日期: %s", val)
}
