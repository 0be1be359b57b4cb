package field

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"udtkit/errors"
)

// Sentinel 日期/时间无法解析时的零值哨兵
var Sentinel = time.Time{}

const dateLayout = "20060102"

// 1899-12-30，OLE 自动化日期的零点
var oleEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// 宽松日期格式，按顺序尝试
var looseDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"02.01.2006",
	"01/02/2006",
	"2 Jan 2006",
	"Jan 2, 2006",
}

var clockLayouts = []string{"15:04:05", "15:04", "3:04PM", "3:04 PM"}

func decodeError(kind Kind, raw any) error {
	return errors.Errorf(errors.ErrCodeDecode, "无法将 %T(%v) 解析为 %s", raw, raw, kind)
}

func asText(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	case *string:
		if v == nil {
			return "", false
		}
		return *v, true
	case fmt.Stringer:
		return v.String(), true
	}
	return "", false
}

// ParseText 文本解析：raw 的字符串形式，raw 为 nil 时使用默认值，否则为空串
func ParseText(raw, def any) string {
	if raw == nil {
		if def == nil {
			return ""
		}
		raw = def
	}
	if s, ok := asText(raw); ok {
		return s
	}
	return fmt.Sprint(raw)
}

// ParseBool 布尔解析：nil、"Y"/"N"、bool、整数，其余按字符串解析，失败返回 nil
func ParseBool(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case bool:
		return v, nil
	case *bool:
		if v == nil {
			return nil, nil
		}
		return *v, nil
	}
	if n, ok := asInt(raw); ok {
		return n != 0, nil
	}
	s, ok := asText(raw)
	if !ok {
		return nil, decodeError(Boolean, raw)
	}
	switch s {
	case "Y":
		return true, nil
	case "N":
		return false, nil
	case "":
		return nil, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return nil, decodeError(Boolean, raw)
	}
	return b, nil
}

func asInt(raw any) (int64, bool) {
	switch v := raw.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), true
	case *int64:
		if v != nil {
			return *v, true
		}
	}
	return 0, false
}

func asFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case *float64:
		if v != nil {
			return *v, true
		}
	}
	if n, ok := asInt(raw); ok {
		return float64(n), true
	}
	return 0, false
}

// ParseInt 整数解析，无法解析时返回 0
func ParseInt(raw any) (int64, error) {
	if raw == nil {
		return 0, nil
	}
	if n, ok := asInt(raw); ok {
		return n, nil
	}
	if f, ok := asFloat(raw); ok {
		return int64(f), nil
	}
	if b, ok := raw.(bool); ok {
		if b {
			return 1, nil
		}
		return 0, nil
	}
	s, ok := asText(raw)
	if !ok {
		return 0, decodeError(Integer, raw)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return int64(f), nil
	}
	return 0, decodeError(Integer, raw)
}

// ParseFloat 浮点解析（与区域设置无关，小数点为 '.'），无法解析时返回 0
func ParseFloat(raw any) (float64, error) {
	if raw == nil {
		return 0, nil
	}
	if f, ok := asFloat(raw); ok {
		return f, nil
	}
	s, ok := asText(raw)
	if !ok {
		return 0, decodeError(Float, raw)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, decodeError(Float, raw)
	}
	return f, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FromOADate 将 OLE 自动化日期（自 1899-12-30 起的天数）转换为时间
func FromOADate(d float64) time.Time {
	days := math.Trunc(d)
	frac := math.Abs(d - days)
	ms := math.Round(frac * 86400000)
	return oleEpoch.AddDate(0, 0, int(days)).Add(time.Duration(ms) * time.Millisecond)
}

// ParseDate 日期解析：time.Time、OLE 浮点、"yyyyMMdd"、宽松日期字符串；失败返回 Sentinel
func ParseDate(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case nil:
		return Sentinel, nil
	case time.Time:
		if v.IsZero() {
			return Sentinel, nil
		}
		return dateOnly(v), nil
	case *time.Time:
		if v == nil || v.IsZero() {
			return Sentinel, nil
		}
		return dateOnly(*v), nil
	case float64, float32:
		f, _ := asFloat(v)
		return dateOnly(FromOADate(f)), nil
	}
	if n, ok := asInt(raw); ok {
		if n >= 10000101 && n <= 99991231 {
			return ParseDate(strconv.FormatInt(n, 10))
		}
		return dateOnly(FromOADate(float64(n))), nil
	}
	s, ok := asText(raw)
	if !ok {
		return Sentinel, decodeError(Date, raw)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return Sentinel, nil
	}
	if len(s) == len(dateLayout) {
		if t, err := time.ParseInLocation(dateLayout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	for _, layout := range looseDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOnly(t), nil
		}
	}
	return Sentinel, decodeError(Date, raw)
}

func clock(h, m int) time.Time {
	return time.Date(1, time.January, 1, h, m, 0, 0, time.UTC)
}

func clockFromHHmm(n int64) (time.Time, bool) {
	if n < 0 {
		return Sentinel, false
	}
	h, m := n/100, n%100
	if h > 23 || m > 59 {
		return Sentinel, false
	}
	return clock(int(h), int(m)), true
}

// ParseTime 时间解析：time.Time、HHmm 整数或字符串（可带分隔符）；越界返回 Sentinel
func ParseTime(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case nil:
		return Sentinel, nil
	case time.Time:
		return clock(v.Hour(), v.Minute()), nil
	case *time.Time:
		if v == nil {
			return Sentinel, nil
		}
		return clock(v.Hour(), v.Minute()), nil
	}
	if n, ok := asInt(raw); ok {
		if t, ok := clockFromHHmm(n); ok {
			return t, nil
		}
		return Sentinel, decodeError(Time, raw)
	}
	if f, ok := asFloat(raw); ok && f == math.Trunc(f) {
		return ParseTime(int64(f))
	}
	s, ok := asText(raw)
	if !ok {
		return Sentinel, decodeError(Time, raw)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return Sentinel, nil
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return clock(t.Hour(), t.Minute()), nil
		}
	}
	digits := strings.NewReplacer(":", "", ".", "", " ", "").Replace(s)
	if len(digits) == 0 || len(digits) > 4 {
		return Sentinel, decodeError(Time, raw)
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return Sentinel, decodeError(Time, raw)
	}
	if t, ok := clockFromHHmm(n); ok {
		return t, nil
	}
	return Sentinel, decodeError(Time, raw)
}

// Combine 合并日期部分与时间部分；日期未设置时返回 Sentinel
func Combine(date, clock time.Time) time.Time {
	if IsUnsetDate(date) {
		return Sentinel
	}
	return time.Date(date.Year(), date.Month(), date.Day(), clock.Hour(), clock.Minute(), 0, 0, time.UTC)
}

// IsUnsetDate 年份早于 1900 的日期视为未设置
func IsUnsetDate(t time.Time) bool {
	return t.Year() < 1900
}
