package field

import (
	"strconv"
	"time"
)

// BoolToWire 布尔 -> "Y"/"N"，nil 为 "N"
func BoolToWire(v any) string {
	b, _ := ParseBool(v)
	if yes, ok := b.(bool); ok && yes {
		return "Y"
	}
	return "N"
}

// IntToWire 整数 -> 十进制文本，nil 为 "0"
func IntToWire(v any) string {
	n, _ := ParseInt(v)
	return strconv.FormatInt(n, 10)
}

// FloatToWire 浮点 -> 与区域设置无关的十进制文本，nil 为 "0"
func FloatToWire(v any) string {
	f, _ := ParseFloat(v)
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// DateToWire 日期 -> "yyyyMMdd"，未设置（年份 < 1900）为 ""
func DateToWire(t time.Time) string {
	if IsUnsetDate(t) {
		return ""
	}
	return t.Format(dateLayout)
}

// TimeToWire 时间 -> "HHmm"
func TimeToWire(t time.Time) string {
	return t.Format("1504")
}

func toTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case *time.Time:
		if t != nil {
			return *t
		}
	}
	return Sentinel
}
