package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func approvalOutputSchema() *ObjectSchema {
	min := 0.5
	max := 30.0
	return &ObjectSchema{
		Type: "object",
		Properties: map[string]*PropertySchema{
			"decision": {Type: "string", Enum: []string{"APPROVED", "REJECTED"}},
			"days":     {Type: "number", Minimum: &min, Maximum: &max},
			"urgent":   {Type: "boolean"},
			"comment":  {Type: "string"},
		},
		Required: []string{"decision"},
	}
}

// TestObjectSchema_Validate_OK 测试合法数据通过校验
func TestObjectSchema_Validate_OK(t *testing.T) {
	s := approvalOutputSchema()
	err := s.Validate(map[string]any{
		"decision": "APPROVED",
		"days":     3.0,
		"urgent":   false,
		"comment":  "同意",
	})
	assert.NoError(t, err)
}

// TestObjectSchema_Validate_RequiredMissing 测试必填字段缺失
func TestObjectSchema_Validate_RequiredMissing(t *testing.T) {
	s := approvalOutputSchema()
	err := s.Validate(map[string]any{"days": 3.0})

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Errors, 1)
	assert.Equal(t, "decision", ve.Errors[0].Field)
}

// TestObjectSchema_Validate_EnumViolation 测试枚举越界
func TestObjectSchema_Validate_EnumViolation(t *testing.T) {
	s := approvalOutputSchema()
	err := s.Validate(map[string]any{"decision": "MAYBE"})

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "decision", ve.Errors[0].Field)
}

// TestObjectSchema_Validate_NumberRange 测试数值边界
func TestObjectSchema_Validate_NumberRange(t *testing.T) {
	s := approvalOutputSchema()

	err := s.Validate(map[string]any{"decision": "APPROVED", "days": 31.0})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "days", ve.Errors[0].Field)

	err = s.Validate(map[string]any{"decision": "APPROVED", "days": 0.1})
	require.ErrorAs(t, err, &ve)

	// 整数也按数值处理
	assert.NoError(t, s.Validate(map[string]any{"decision": "APPROVED", "days": 7}))
}

// TestObjectSchema_Validate_TypeMismatch 测试类型不匹配
func TestObjectSchema_Validate_TypeMismatch(t *testing.T) {
	s := approvalOutputSchema()
	err := s.Validate(map[string]any{
		"decision": 42,
		"urgent":   "yes",
	})

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 2)
}

// TestObjectSchema_Validate_CollectsAllErrors 测试逐字段收集全部错误
func TestObjectSchema_Validate_CollectsAllErrors(t *testing.T) {
	s := approvalOutputSchema()
	err := s.Validate(map[string]any{
		"days":   99.0,
		"urgent": "yes",
	})

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	// 必填缺失 + 数值越界 + 类型不匹配
	assert.Len(t, ve.Errors, 3)
}

// TestObjectSchema_Validate_UndeclaredFieldsPass 测试未声明字段直接透传
func TestObjectSchema_Validate_UndeclaredFieldsPass(t *testing.T) {
	s := approvalOutputSchema()
	err := s.Validate(map[string]any{
		"decision": "REJECTED",
		"extra":    []int{1, 2, 3},
	})
	assert.NoError(t, err)
}

// TestObjectSchema_Validate_NilSchema 测试未声明契约时不校验
func TestObjectSchema_Validate_NilSchema(t *testing.T) {
	var s *ObjectSchema
	assert.NoError(t, s.Validate(map[string]any{"anything": "goes"}))
}

// TestObjectSchema_Validate_NilValueSkipped 测试显式null值跳过类型校验
func TestObjectSchema_Validate_NilValueSkipped(t *testing.T) {
	s := approvalOutputSchema()
	err := s.Validate(map[string]any{
		"decision": "APPROVED",
		"comment":  nil,
	})
	assert.NoError(t, err)
}
