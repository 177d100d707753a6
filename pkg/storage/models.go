package storage

import (
	"time"

	"github.com/LENAX/process-engine/pkg/core/definition"
	"github.com/LENAX/process-engine/pkg/core/schema"
)

// ========== 实例状态 ==========

const (
	// InstanceStatusRunning 实例运行中
	InstanceStatusRunning = "RUNNING"
	// InstanceStatusCompleted 实例已完成
	InstanceStatusCompleted = "COMPLETED"
	// InstanceStatusFailed 实例失败
	InstanceStatusFailed = "FAILED"
	// InstanceStatusError 实例异常
	InstanceStatusError = "ERROR"
)

// ========== 任务状态 ==========

const (
	// TaskStatusPending 任务待处理
	TaskStatusPending = "PENDING"
	// TaskStatusCompleted 任务已完成
	TaskStatusCompleted = "COMPLETED"
	// TaskStatusFailed 任务失败
	TaskStatusFailed = "FAILED"
)

// ========== 队列项状态 ==========

const (
	// QueueStatusPending 队列项待处理
	QueueStatusPending = "PENDING"
	// QueueStatusProcessing 队列项处理中
	QueueStatusProcessing = "PROCESSING"
	// QueueStatusCompleted 队列项已完成
	QueueStatusCompleted = "COMPLETED"
	// QueueStatusFailed 队列项失败
	QueueStatusFailed = "FAILED"
)

// ========== 函数实现类型 ==========

const (
	// TaskTypeUser 人工任务（需要指派处理人）
	TaskTypeUser = "USER_TASK"
	// TaskTypeService 远程服务任务
	TaskTypeService = "SERVICE_TASK"
	// TaskTypeAgent AI Agent任务
	TaskTypeAgent = "AGENT_TASK"
)

// ========== 历史事件类型 ==========

const (
	// HistoryEventTransition 发生了一次节点转移
	HistoryEventTransition = "TRANSITION"
	// HistoryEventCompleted 实例到达END节点完成
	HistoryEventCompleted = "COMPLETED"
)

// AssignmentsKey input_data中存放任务指派表的固定key
const AssignmentsKey = "_task_assignments"

// WorkflowTemplate 工作流模板（对外导出）
// 模板创建后整体不可变，仅active标记可切换；有实例引用时不做物理删除
type WorkflowTemplate struct {
	ID           string
	Code         string
	Name         string
	WorkflowType string
	MaturityGate string
	Active       bool
	Definition   *definition.Definition
	CreateTime   time.Time
	UpdateTime   time.Time
}

// WorkflowInstance 工作流实例（对外导出）
// CurrentNodeID必须始终指向模板定义中的节点；仅由Processor推进
type WorkflowInstance struct {
	ID            string
	TemplateID    string
	Name          string
	Status        string
	CurrentNodeID string
	InputData     map[string]any
	ErrorMessage  string
	CreateTime    time.Time
	UpdateTime    time.Time
}

// Assignments 从input_data中取出任务指派表（node_id -> 处理人）
func (i *WorkflowInstance) Assignments() map[string]string {
	assignments := make(map[string]string)
	raw, ok := i.InputData[AssignmentsKey]
	if !ok {
		return assignments
	}
	switch m := raw.(type) {
	case map[string]string:
		return m
	case map[string]any:
		for k, v := range m {
			if s, ok := v.(string); ok {
				assignments[k] = s
			}
		}
	}
	return assignments
}

// InstanceContext 实例上下文的一个版本快照（对外导出）
// 版本号按实例单调递增，只追加不覆盖
type InstanceContext struct {
	ID          string
	InstanceID  string
	Version     int
	ContextData map[string]any
	CreateTime  time.Time
}

// InstanceTask 实例访问TASK节点时创建的任务记录（对外导出）
// 每次TASK节点访问恰好创建一次；COMPLETED后不可变
type InstanceTask struct {
	ID                 string
	WorkflowInstanceID string
	NodeID             string
	FunctionCode       string
	TaskType           string
	Status             string
	AssignedTo         string
	InputData          map[string]any
	OutputData         map[string]any
	ErrorMessage       string
	CreateTime         time.Time
	CompleteTime       *time.Time
}

// ExecutionQueueItem 推进请求队列项（对外导出）
// 实例创建和任务完成时各入队一条；被Processor消费后不再复用
type ExecutionQueueItem struct {
	ID                 string
	WorkflowInstanceID string
	Status             string
	ErrorMessage       string
	CreateTime         time.Time
	ProcessedAt        *time.Time
}

// InstanceHistory 实例推进历史记录（对外导出）
type InstanceHistory struct {
	ID                 string
	WorkflowInstanceID string
	EventType          string
	FromNodeID         string
	ToNodeID           string
	Detail             string
	CreateTime         time.Time
}

// FunctionMeta 函数注册中心的函数元数据（对外导出）
// Code为全局唯一标识，TASK节点通过function_code引用
type FunctionMeta struct {
	Code         string
	Name         string
	TaskType     string
	Description  string
	InputSchema  *schema.ObjectSchema
	OutputSchema *schema.ObjectSchema
	Active       bool
	CreateTime   time.Time
	UpdateTime   time.Time
}
