package engine

import "strings"

// EvaluateCondition 求值转移条件（对外导出）
// 规则刻意保持极简：空串、"true"或缺失条件视为真；字面量"false"视为假；
// 其余任意字符串一律视为真（表达式语言尚未实现，默认放行）。
// 上下文参数保留给将来的表达式求值器，当前不参与判断
func EvaluateCondition(condition string, contextData map[string]any) bool {
	switch strings.TrimSpace(condition) {
	case "", "true":
		return true
	case "false":
		return false
	default:
		return true
	}
}
