package dto

import "github.com/LENAX/process-engine/pkg/core/schema"

// CreateInstanceRequest 创建实例请求
type CreateInstanceRequest struct {
	TemplateID      string            `json:"template_id" binding:"required"`
	InstanceName    string            `json:"instance_name" binding:"omitempty"`
	TaskAssignments map[string]string `json:"task_assignments" binding:"omitempty"`
	InitialContext  map[string]any    `json:"initial_context" binding:"omitempty"`
}

// CompleteTaskRequest 完成任务请求
type CompleteTaskRequest struct {
	Output map[string]any `json:"output" binding:"required"`
}

// CreateTemplateRequest 创建模板请求（YAML内容）
type CreateTemplateRequest struct {
	Content string `json:"content" binding:"required"`
}

// PendingTasksQuery 待办任务查询请求
type PendingTasksQuery struct {
	Assignee string `form:"assignee" binding:"required"`
}

// ProcessQueueQuery 队列排空请求
type ProcessQueueQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=1000"`
}

// GetDefaultLimit 获取默认limit
func (r *ProcessQueueQuery) GetDefaultLimit() int {
	if r.Limit <= 0 {
		return 100
	}
	return r.Limit
}

// RegisterFunctionRequest 注册函数请求
type RegisterFunctionRequest struct {
	Code         string               `json:"code" binding:"required"`
	Name         string               `json:"name" binding:"required"`
	TaskType     string               `json:"task_type" binding:"required,oneof=USER_TASK SERVICE_TASK AGENT_TASK"`
	Description  string               `json:"description" binding:"omitempty"`
	InputSchema  *schema.ObjectSchema `json:"input_schema" binding:"omitempty"`
	OutputSchema *schema.ObjectSchema `json:"output_schema" binding:"omitempty"`
}

// AppendContextRequest 追加实例上下文请求
type AppendContextRequest struct {
	ContextData map[string]any `json:"context_data" binding:"required"`
}
