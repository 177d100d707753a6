package config

import (
	"fmt"
	"os"

	"github.com/LENAX/process-engine/pkg/core/definition"
	"github.com/LENAX/process-engine/pkg/storage"
	"gopkg.in/yaml.v3"
)

// TemplateFile 模板YAML文件结构（对外导出）
type TemplateFile struct {
	Code         string `yaml:"code"`
	Name         string `yaml:"name"`
	WorkflowType string `yaml:"workflow_type"`
	MaturityGate string `yaml:"maturity_gate"`
	Nodes        []struct {
		ID           string `yaml:"id"`
		Type         string `yaml:"type"`
		Label        string `yaml:"label"`
		FunctionCode string `yaml:"function_code"`
		Position     struct {
			X float64 `yaml:"x"`
			Y float64 `yaml:"y"`
		} `yaml:"position"`
	} `yaml:"nodes"`
	Transitions []struct {
		ID        string `yaml:"id"`
		From      string `yaml:"from"`
		To        string `yaml:"to"`
		Condition string `yaml:"condition"`
	} `yaml:"transitions"`
}

// LoadTemplate 从YAML文件加载工作流模板（对外导出）
func LoadTemplate(path string) (*storage.WorkflowTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取模板文件失败: %w", err)
	}
	return ParseTemplate(data)
}

// ParseTemplate 解析YAML内容为工作流模板（对外导出）
// 只做结构转换，图的完整性校验由模板管理器在入库时执行
func ParseTemplate(data []byte) (*storage.WorkflowTemplate, error) {
	var tf TemplateFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("解析模板文件失败: %w", err)
	}

	def := &definition.Definition{
		Nodes:       make([]definition.Node, 0, len(tf.Nodes)),
		Transitions: make([]definition.Transition, 0, len(tf.Transitions)),
	}
	for _, n := range tf.Nodes {
		def.Nodes = append(def.Nodes, definition.Node{
			ID:           n.ID,
			Type:         definition.NodeType(n.Type),
			Label:        n.Label,
			FunctionCode: n.FunctionCode,
			Position:     definition.Position{X: n.Position.X, Y: n.Position.Y},
		})
	}
	for _, t := range tf.Transitions {
		def.Transitions = append(def.Transitions, definition.Transition{
			ID:         t.ID,
			FromNodeID: t.From,
			ToNodeID:   t.To,
			Condition:  t.Condition,
		})
	}

	return &storage.WorkflowTemplate{
		Code:         tf.Code,
		Name:         tf.Name,
		WorkflowType: tf.WorkflowType,
		MaturityGate: tf.MaturityGate,
		Active:       true,
		Definition:   def,
	}, nil
}
