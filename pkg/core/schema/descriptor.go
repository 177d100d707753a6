package schema

// FieldKind 表单字段描述符的类别（按支持的基础类型划分）
type FieldKind string

const (
	// FieldKindString 文本输入
	FieldKindString FieldKind = "string"
	// FieldKindEnum 下拉选择
	FieldKindEnum FieldKind = "enum"
	// FieldKindNumber 数值输入
	FieldKindNumber FieldKind = "number"
	// FieldKindBoolean 布尔开关
	FieldKindBoolean FieldKind = "boolean"
)

// FieldDescriptor 供核心外部的渲染器消费的字段描述符（对外导出）
// 每个支持的基础类型对应一种Kind，渲染器按Kind分派
type FieldDescriptor struct {
	Name     string    `json:"name"`
	Kind     FieldKind `json:"kind"`
	Required bool      `json:"required"`
	Options  []string  `json:"options,omitempty"` // Kind为enum时的候选值
	Minimum  *float64  `json:"minimum,omitempty"` // Kind为number时的下界
	Maximum  *float64  `json:"maximum,omitempty"` // Kind为number时的上界
	Format   string    `json:"format,omitempty"`  // 原样透传，如 "date"、"email"
}

// FieldDescriptors 将对象契约展开为字段描述符列表（对外导出）
// 未识别的类型按string处理，保证渲染器总能给出可输入的控件
func (s *ObjectSchema) FieldDescriptors() []FieldDescriptor {
	if s == nil {
		return nil
	}

	requiredSet := make(map[string]struct{}, len(s.Required))
	for _, r := range s.Required {
		requiredSet[r] = struct{}{}
	}

	descriptors := make([]FieldDescriptor, 0, len(s.Properties))
	for name, prop := range s.Properties {
		_, required := requiredSet[name]

		fd := FieldDescriptor{
			Name:     name,
			Required: required,
			Format:   prop.Format,
		}

		switch {
		case len(prop.Enum) > 0:
			fd.Kind = FieldKindEnum
			fd.Options = prop.Enum
		case prop.Type == "number" || prop.Type == "integer":
			fd.Kind = FieldKindNumber
			fd.Minimum = prop.Minimum
			fd.Maximum = prop.Maximum
		case prop.Type == "boolean":
			fd.Kind = FieldKindBoolean
		default:
			fd.Kind = FieldKindString
		}

		descriptors = append(descriptors, fd)
	}
	return descriptors
}
