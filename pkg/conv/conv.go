// Package conv 提供标量类型转换、字面量解析与比较等工具，
// 供 dataset / dsl / eval 各模块复用。
package conv

import (
	"fmt"
	"strconv"
	"strings"
)

// ToFloat64 将 any 转为 float64。
// 支持 float64、float32、int、int64、int32；bool 视为 1.0/0.0。
func ToFloat64(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case bool:
		if val {
			return 1.0, true
		}
		return 0.0, true
	default:
		return 0, false
	}
}

// ToInt 将 any 转为 int。
// 支持 int、int64、int32、float64、float32。
func ToInt(v any) (int, bool) {
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case int32:
		return int(val), true
	case float64:
		return int(val), true
	case float32:
		return int(val), true
	default:
		return 0, false
	}
}

// ToString 将 any 转为 string。
// 仅支持 string 类型，否则返回 ("", false)。
func ToString(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// IsNumeric 返回 v 是否为数值类型（int/int32/int64/float32/float64）。
func IsNumeric(v any) bool {
	switch v.(type) {
	case int, int32, int64, float32, float64:
		return true
	}
	return false
}

// ParseScalar 按字面量形态解析字符串为标量：
// 整数 -> int，小数 -> float64，true/false -> bool，其余保持 string。
// 用于查询 DSL 的值字面量与外部表格来源的单元格。
func ParseScalar(s string) any {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch s {
	case "true", "True":
		return true
	case "false", "False":
		return false
	}
	return s
}

// FormatScalar 将标量格式化为持久化文本。
// float64 使用最短往返表示，避免无意义的尾随零。
func FormatScalar(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Compare 比较两个标量值：数值之间按数值序跨类型比较，字符串之间按字典序。
// 不可比较（类型不兼容或任一为 nil）时返回 (0, false)。
// 返回值约定与 strings.Compare 一致：-1 / 0 / 1。
func Compare(a, b any) (int, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	if fa, ok := ToFloat64(a); ok {
		if _, isBool := a.(bool); isBool {
			return 0, false
		}
		fb, ok := ToFloat64(b)
		if !ok {
			return 0, false
		}
		if _, isBool := b.(bool); isBool {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		default:
			return 0, true
		}
	}
	if sa, ok := a.(string); ok {
		sb, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(sa, sb), true
	}
	return 0, false
}

// TupleKey 把一组标量值编码为带类型信息的去重键。
// 类型参与编码，避免 1 与 "1" 在 unique/count_unique 中被误判为同值。
func TupleKey(vals []any) string {
	var sb strings.Builder
	for i, v := range vals {
		if i > 0 {
			sb.WriteByte(0x1f)
		}
		fmt.Fprintf(&sb, "%T=%v", v, v)
	}
	return sb.String()
}
