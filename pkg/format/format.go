// Package format 展示文本与日期的通用格式化
package format

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// DateLayout 预约日期的存储格式
const DateLayout = "2006-01-02"

// 首字母保持小写的虚词
var minorWords = map[string]bool{"of": true, "in": true, "and": true, "the": true, "on": true}

// ToProper 按空格分词，每词首字母大写其余小写；虚词整词小写
func ToProper(s string) string {
	words := strings.Split(s, " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		first, size := utf8.DecodeRuneInString(w)
		rest := strings.ToLower(w[size:])
		if minorWords[strings.ToLower(w)] {
			words[i] = string(unicode.ToLower(first)) + rest
		} else {
			words[i] = string(unicode.ToUpper(first)) + rest
		}
	}
	return strings.Join(words, " ")
}

// Acronym 取非虚词的首字母组成缩写
func Acronym(phrase string) string {
	var b strings.Builder
	for _, w := range strings.Fields(phrase) {
		if minorWords[strings.ToLower(w)] {
			continue
		}
		first, _ := utf8.DecodeRuneInString(w)
		b.WriteRune(unicode.ToUpper(first))
	}
	return b.String()
}

// FullName 名 + 姓，按 ToProper 规则
func FullName(firstname, lastname string) string {
	return ToProper(strings.TrimSpace(firstname + " " + lastname))
}

// SectionCode course + 年级首字母 + section，例如 BSIT1A
func SectionCode(course, yearLevel, section string) string {
	first := ""
	if r, _ := utf8.DecodeRuneInString(yearLevel); r != utf8.RuneError {
		first = string(r)
	}
	return course + first + section
}

var studentIDPattern = regexp.MustCompile(`^GC-\d{6}$`)

// GenerateStudentID 生成 GC- 加 6 位数字的学号
func GenerateStudentID() string {
	return fmt.Sprintf("GC-%d", 100000+rand.IntN(900000))
}

// ValidStudentID 学号格式校验
func ValidStudentID(id string) bool {
	return studentIDPattern.MatchString(id)
}

// ── 日期 ──

// ParseDate 解析 YYYY-MM-DD，结果位于 loc 的零点
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// Date 格式化为 YYYY-MM-DD
func Date(t time.Time) string {
	return t.Format(DateLayout)
}

// Today loc 时区下今天零点
func Today(now time.Time, loc *time.Location) time.Time {
	n := now.In(loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc)
}

// LongDate 格式化为 "January 2, 2006"
func LongDate(s string) string {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return s
	}
	return t.Format("January 2, 2006")
}

// DateTime 格式化为 "January 02, 2006 at 03:04:05 PM"
func DateTime(t time.Time, sep string) string {
	return t.Format("January 02, 2006 ") + sep + t.Format(" 03:04:05 PM")
}
