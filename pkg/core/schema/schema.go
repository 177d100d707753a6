// Package schema 提供类JSON-Schema的任务输入/输出契约与校验
package schema

import (
	"fmt"
	"strings"
)

// ObjectSchema 任务输入/输出的对象契约
// 形如 {type, properties: {field: {type, enum?, minimum?, maximum?, format?}}, required: [...]}
type ObjectSchema struct {
	Type       string                     `json:"type"`
	Properties map[string]*PropertySchema `json:"properties,omitempty"`
	Required   []string                   `json:"required,omitempty"`
}

// PropertySchema 单个字段的契约
// Format仅透传给下游表单渲染，引擎不做解释
type PropertySchema struct {
	Type    string   `json:"type"`
	Enum    []string `json:"enum,omitempty"`
	Minimum *float64 `json:"minimum,omitempty"`
	Maximum *float64 `json:"maximum,omitempty"`
	Format  string   `json:"format,omitempty"`
}

// FieldError 字段级校验错误
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError 输出数据不满足契约时返回的错误（对外导出）
type ValidationError struct {
	Errors []FieldError
}

// Error 实现error接口
func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return fmt.Sprintf("输出数据校验失败: %s", strings.Join(msgs, "; "))
}

// Validate 校验数据是否满足对象契约（对外导出）
// 逐字段收集错误：必填字段缺失、类型不匹配、枚举越界、数值越界
// 全部通过时返回nil，否则返回*ValidationError
func (s *ObjectSchema) Validate(data map[string]any) error {
	if s == nil {
		// 未声明契约时不做校验
		return nil
	}

	fieldErrors := make([]FieldError, 0)

	for _, required := range s.Required {
		if _, exists := data[required]; !exists {
			fieldErrors = append(fieldErrors, FieldError{
				Field:   required,
				Message: "必填字段缺失",
			})
		}
	}

	for field, value := range data {
		prop, declared := s.Properties[field]
		if !declared {
			// 未声明的字段直接透传，不视为错误
			continue
		}
		if value == nil {
			continue
		}
		fieldErrors = append(fieldErrors, validateProperty(field, prop, value)...)
	}

	if len(fieldErrors) > 0 {
		return &ValidationError{Errors: fieldErrors}
	}
	return nil
}

// validateProperty 校验单个字段
func validateProperty(field string, prop *PropertySchema, value any) []FieldError {
	fieldErrors := make([]FieldError, 0)

	switch prop.Type {
	case "string":
		str, ok := value.(string)
		if !ok {
			return append(fieldErrors, FieldError{Field: field, Message: fmt.Sprintf("期望string类型，实际: %T", value)})
		}
		if len(prop.Enum) > 0 && !containsString(prop.Enum, str) {
			fieldErrors = append(fieldErrors, FieldError{
				Field:   field,
				Message: fmt.Sprintf("取值 %q 不在枚举范围 [%s] 内", str, strings.Join(prop.Enum, ", ")),
			})
		}
	case "number", "integer":
		num, ok := toFloat64(value)
		if !ok {
			return append(fieldErrors, FieldError{Field: field, Message: fmt.Sprintf("期望%s类型，实际: %T", prop.Type, value)})
		}
		if prop.Minimum != nil && num < *prop.Minimum {
			fieldErrors = append(fieldErrors, FieldError{
				Field:   field,
				Message: fmt.Sprintf("取值 %v 小于最小值 %v", num, *prop.Minimum),
			})
		}
		if prop.Maximum != nil && num > *prop.Maximum {
			fieldErrors = append(fieldErrors, FieldError{
				Field:   field,
				Message: fmt.Sprintf("取值 %v 大于最大值 %v", num, *prop.Maximum),
			})
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			fieldErrors = append(fieldErrors, FieldError{Field: field, Message: fmt.Sprintf("期望boolean类型，实际: %T", value)})
		}
	case "object":
		if _, ok := value.(map[string]any); !ok {
			fieldErrors = append(fieldErrors, FieldError{Field: field, Message: fmt.Sprintf("期望object类型，实际: %T", value)})
		}
	case "array":
		if _, ok := value.([]any); !ok {
			fieldErrors = append(fieldErrors, FieldError{Field: field, Message: fmt.Sprintf("期望array类型，实际: %T", value)})
		}
	default:
		// 未知类型不校验，保持向前兼容
	}

	return fieldErrors
}

// toFloat64 将JSON反序列化出的数值类型统一为float64
func toFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func containsString(arr []string, target string) bool {
	for _, s := range arr {
		if s == target {
			return true
		}
	}
	return false
}
