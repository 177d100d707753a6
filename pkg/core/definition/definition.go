// Package definition 提供工作流模板的图结构定义（节点+转移）
package definition

import (
	"fmt"
	"log"
)

// NodeType 节点类型
type NodeType string

const (
	// NodeTypeStart 开始节点（入口）
	NodeTypeStart NodeType = "START"
	// NodeTypeTask 任务节点（绑定函数）
	NodeTypeTask NodeType = "TASK"
	// NodeTypeEnd 结束节点（终点）
	NodeTypeEnd NodeType = "END"
)

// Position 节点在设计器画布中的坐标（仅透传，引擎不使用）
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node 模板图中的一个节点
// FunctionCode 仅在Type为TASK时必填
type Node struct {
	ID           string   `json:"id"`
	Type         NodeType `json:"type"`
	Label        string   `json:"label"`
	FunctionCode string   `json:"function_code,omitempty"`
	Position     Position `json:"position"`
}

// Transition 节点间的有向转移，Condition为可选的守卫条件
type Transition struct {
	ID         string `json:"id"`
	FromNodeID string `json:"from_node_id"`
	ToNodeID   string `json:"to_node_id"`
	Condition  string `json:"condition,omitempty"`
}

// Definition 模板图定义（值对象，创建后不可变）
// Nodes和Transitions的顺序即定义顺序，转移评估按此顺序进行
type Definition struct {
	Nodes       []Node       `json:"nodes"`
	Transitions []Transition `json:"transitions"`
}

// ResolveNode 根据节点ID查找节点（对外导出）
// 未找到时返回 nil, false
func (d *Definition) ResolveNode(nodeID string) (*Node, bool) {
	for i := range d.Nodes {
		if d.Nodes[i].ID == nodeID {
			return &d.Nodes[i], true
		}
	}
	return nil, false
}

// OutgoingTransitions 获取指定节点的所有出边（对外导出）
// 返回顺序与定义顺序一致，转移评估依赖该顺序
func (d *Definition) OutgoingTransitions(nodeID string) []Transition {
	outgoing := make([]Transition, 0)
	for _, t := range d.Transitions {
		if t.FromNodeID == nodeID {
			outgoing = append(outgoing, t)
		}
	}
	return outgoing
}

// IncomingTransitions 获取指定节点的所有入边（对外导出）
func (d *Definition) IncomingTransitions(nodeID string) []Transition {
	incoming := make([]Transition, 0)
	for _, t := range d.Transitions {
		if t.ToNodeID == nodeID {
			incoming = append(incoming, t)
		}
	}
	return incoming
}

// StartNode 获取模板的入口节点（对外导出）
// 入口节点为唯一一个没有入边的START节点
func (d *Definition) StartNode() (*Node, bool) {
	for i := range d.Nodes {
		n := &d.Nodes[i]
		if n.Type == NodeTypeStart && len(d.IncomingTransitions(n.ID)) == 0 {
			return n, true
		}
	}
	return nil, false
}

// TaskNodes 获取所有TASK节点（对外导出）
func (d *Definition) TaskNodes() []Node {
	tasks := make([]Node, 0)
	for _, n := range d.Nodes {
		if n.Type == NodeTypeTask {
			tasks = append(tasks, n)
		}
	}
	return tasks
}

// FunctionResolver 函数解析接口
// 校验时用于确认TASK节点的function_code可解析且处于启用状态
type FunctionResolver interface {
	IsActive(code string) bool
}

// Validate 校验模板定义的合法性（对外导出）
// 仅在模板创建时执行一次，运行期不再重复校验：
//   - 所有转移的端点必须指向已存在的节点
//   - 必须恰好存在一个无入边的START节点
//   - 每个TASK节点的function_code必须在函数注册中心注册且启用
//
// 图允许存在环；非END节点没有出边时仅告警（运行期按隐式结束处理）
func Validate(d *Definition, resolver FunctionResolver) error {
	if len(d.Nodes) == 0 {
		return fmt.Errorf("模板定义不包含任何节点")
	}

	nodeIDs := make(map[string]struct{}, len(d.Nodes))
	for _, n := range d.Nodes {
		if n.ID == "" {
			return fmt.Errorf("存在ID为空的节点")
		}
		if _, exists := nodeIDs[n.ID]; exists {
			return fmt.Errorf("节点ID重复: %s", n.ID)
		}
		nodeIDs[n.ID] = struct{}{}

		switch n.Type {
		case NodeTypeStart, NodeTypeTask, NodeTypeEnd:
		default:
			return fmt.Errorf("节点 %s 的类型非法: %s", n.ID, n.Type)
		}

		if n.Type == NodeTypeTask && n.FunctionCode == "" {
			return fmt.Errorf("TASK节点 %s 缺少function_code", n.ID)
		}
	}

	for _, t := range d.Transitions {
		if _, ok := nodeIDs[t.FromNodeID]; !ok {
			return fmt.Errorf("转移 %s 的from_node_id不存在: %s", t.ID, t.FromNodeID)
		}
		if _, ok := nodeIDs[t.ToNodeID]; !ok {
			return fmt.Errorf("转移 %s 的to_node_id不存在: %s", t.ID, t.ToNodeID)
		}
	}

	// 入口节点校验：恰好一个无入边的START节点
	entryCount := 0
	for _, n := range d.Nodes {
		if n.Type == NodeTypeStart && len(d.IncomingTransitions(n.ID)) == 0 {
			entryCount++
		}
	}
	if entryCount == 0 {
		return fmt.Errorf("模板缺少入口START节点")
	}
	if entryCount > 1 {
		return fmt.Errorf("模板存在多个入口START节点")
	}

	// TASK节点的函数必须可解析且启用
	if resolver != nil {
		for _, n := range d.Nodes {
			if n.Type == NodeTypeTask && !resolver.IsActive(n.FunctionCode) {
				return fmt.Errorf("TASK节点 %s 的函数 %s 未注册或未启用", n.ID, n.FunctionCode)
			}
		}
	}

	// 非END节点没有出边时，运行期会按隐式结束处理，这里仅提示设计者
	for _, n := range d.Nodes {
		if n.Type != NodeTypeEnd && len(d.OutgoingTransitions(n.ID)) == 0 {
			log.Printf("⚠️ [模板校验] 非END节点 %s 没有出边，实例到达后将按隐式结束处理", n.ID)
		}
	}

	return nil
}
