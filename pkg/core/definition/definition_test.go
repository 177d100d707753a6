package definition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// activeSetResolver 测试用函数解析器，集合内的编码视为已注册且启用
type activeSetResolver map[string]bool

func (r activeSetResolver) IsActive(code string) bool {
	return r[code]
}

func approvalDefinition() *Definition {
	return &Definition{
		Nodes: []Node{
			{ID: "start", Type: NodeTypeStart, Label: "开始"},
			{ID: "approve", Type: NodeTypeTask, Label: "审批", FunctionCode: "approve_leave"},
			{ID: "end", Type: NodeTypeEnd, Label: "结束"},
		},
		Transitions: []Transition{
			{ID: "t1", FromNodeID: "start", ToNodeID: "approve"},
			{ID: "t2", FromNodeID: "approve", ToNodeID: "end"},
		},
	}
}

// TestDefinition_ResolveNode 测试节点查找
func TestDefinition_ResolveNode(t *testing.T) {
	def := approvalDefinition()

	node, ok := def.ResolveNode("approve")
	require.True(t, ok)
	assert.Equal(t, NodeTypeTask, node.Type)
	assert.Equal(t, "approve_leave", node.FunctionCode)

	_, ok = def.ResolveNode("ghost")
	assert.False(t, ok)
}

// TestDefinition_OutgoingTransitions_Order 测试出边按定义顺序返回
func TestDefinition_OutgoingTransitions_Order(t *testing.T) {
	def := &Definition{
		Nodes: []Node{
			{ID: "start", Type: NodeTypeStart},
			{ID: "a", Type: NodeTypeEnd},
			{ID: "b", Type: NodeTypeEnd},
			{ID: "c", Type: NodeTypeEnd},
		},
		Transitions: []Transition{
			{ID: "t1", FromNodeID: "start", ToNodeID: "b", Condition: "false"},
			{ID: "t2", FromNodeID: "start", ToNodeID: "a"},
			{ID: "t3", FromNodeID: "start", ToNodeID: "c"},
		},
	}

	outgoing := def.OutgoingTransitions("start")
	require.Len(t, outgoing, 3)
	assert.Equal(t, "t1", outgoing[0].ID)
	assert.Equal(t, "t2", outgoing[1].ID)
	assert.Equal(t, "t3", outgoing[2].ID)

	assert.Empty(t, def.OutgoingTransitions("a"))
}

// TestDefinition_StartNode 测试入口节点识别
func TestDefinition_StartNode(t *testing.T) {
	def := approvalDefinition()

	start, ok := def.StartNode()
	require.True(t, ok)
	assert.Equal(t, "start", start.ID)

	// 有入边的START节点不是入口
	def.Transitions = append(def.Transitions, Transition{ID: "t3", FromNodeID: "end", ToNodeID: "start"})
	_, ok = def.StartNode()
	assert.False(t, ok)
}

// TestDefinition_TaskNodes 测试TASK节点筛选
func TestDefinition_TaskNodes(t *testing.T) {
	def := approvalDefinition()
	tasks := def.TaskNodes()
	require.Len(t, tasks, 1)
	assert.Equal(t, "approve", tasks[0].ID)
}

// TestValidate 测试模板定义校验
func TestValidate(t *testing.T) {
	resolver := activeSetResolver{"approve_leave": true}

	t.Run("合法定义", func(t *testing.T) {
		assert.NoError(t, Validate(approvalDefinition(), resolver))
	})

	t.Run("空定义", func(t *testing.T) {
		err := Validate(&Definition{}, resolver)
		assert.Error(t, err)
	})

	t.Run("节点ID重复", func(t *testing.T) {
		def := approvalDefinition()
		def.Nodes = append(def.Nodes, Node{ID: "approve", Type: NodeTypeTask, FunctionCode: "approve_leave"})
		err := Validate(def, resolver)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "approve")
	})

	t.Run("非法节点类型", func(t *testing.T) {
		def := approvalDefinition()
		def.Nodes[1].Type = "GATEWAY"
		assert.Error(t, Validate(def, resolver))
	})

	t.Run("TASK节点缺少function_code", func(t *testing.T) {
		def := approvalDefinition()
		def.Nodes[1].FunctionCode = ""
		assert.Error(t, Validate(def, resolver))
	})

	t.Run("转移端点不存在", func(t *testing.T) {
		def := approvalDefinition()
		def.Transitions = append(def.Transitions, Transition{ID: "t9", FromNodeID: "approve", ToNodeID: "ghost"})
		assert.Error(t, Validate(def, resolver))
	})

	t.Run("缺少入口START节点", func(t *testing.T) {
		def := &Definition{
			Nodes: []Node{
				{ID: "a", Type: NodeTypeTask, FunctionCode: "approve_leave"},
				{ID: "end", Type: NodeTypeEnd},
			},
			Transitions: []Transition{{ID: "t1", FromNodeID: "a", ToNodeID: "end"}},
		}
		assert.Error(t, Validate(def, resolver))
	})

	t.Run("多个入口START节点", func(t *testing.T) {
		def := approvalDefinition()
		def.Nodes = append(def.Nodes, Node{ID: "start2", Type: NodeTypeStart})
		assert.Error(t, Validate(def, resolver))
	})

	t.Run("函数未注册", func(t *testing.T) {
		err := Validate(approvalDefinition(), activeSetResolver{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "approve_leave")
	})

	t.Run("存在环的定义合法", func(t *testing.T) {
		def := approvalDefinition()
		// 审批驳回后回到自身重审
		def.Transitions = append(def.Transitions, Transition{ID: "t9", FromNodeID: "approve", ToNodeID: "approve", Condition: "false"})
		assert.NoError(t, Validate(def, resolver))
	})

	t.Run("resolver为空时跳过函数校验", func(t *testing.T) {
		assert.NoError(t, Validate(approvalDefinition(), nil))
	})
}
