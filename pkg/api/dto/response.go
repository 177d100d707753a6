package dto

import (
	"time"

	"github.com/LENAX/process-engine/pkg/core/schema"
)

// APIResponse 通用API响应结构
type APIResponse[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse[T any](data T) APIResponse[T] {
	return APIResponse[T]{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string) APIResponse[any] {
	return APIResponse[any]{
		Code:    code,
		Message: message,
	}
}

// ValidationErrorResponse 字段级校验错误响应
type ValidationErrorResponse struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors"`
}

// FieldError 单个字段的校验错误
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// CreateInstanceResponse 实例创建响应
type CreateInstanceResponse struct {
	InstanceID string `json:"instance_id"`
}

// InstanceStatusResponse 实例状态读模型
type InstanceStatusResponse struct {
	InstanceID         string       `json:"instance_id"`
	Name               string       `json:"name"`
	Status             string       `json:"status"`
	CurrentNodeID      string       `json:"current_node_id"`
	CurrentNodeName    string       `json:"current_node_name"`
	Tasks              []TaskDetail `json:"tasks"`
	ProgressPercentage float64      `json:"progress_percentage"`
	ErrorMessage       string       `json:"error_message,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// TaskDetail 任务明细
type TaskDetail struct {
	TaskID       string     `json:"task_id"`
	NodeID       string     `json:"node_id"`
	FunctionCode string     `json:"function_code"`
	TaskType     string     `json:"task_type"`
	Status       string     `json:"status"`
	AssignedTo   string     `json:"assigned_to,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// PendingTaskResponse 待办任务（携带Schema供表单渲染）
type PendingTaskResponse struct {
	TaskDetail
	InstanceID   string               `json:"instance_id"`
	InputData    map[string]any       `json:"input_data,omitempty"`
	InputSchema  *schema.ObjectSchema `json:"input_schema,omitempty"`
	OutputSchema *schema.ObjectSchema `json:"output_schema,omitempty"`
}

// ProcessQueueResponse 队列排空计数
type ProcessQueueResponse struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// TemplateSummary 模板摘要信息
type TemplateSummary struct {
	ID           string    `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	WorkflowType string    `json:"workflow_type,omitempty"`
	MaturityGate string    `json:"maturity_gate,omitempty"`
	Active       bool      `json:"active"`
	NodeCount    int       `json:"node_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// HistoryItem 实例推进历史项
type HistoryItem struct {
	EventType  string    `json:"event_type"`
	FromNodeID string    `json:"from_node_id,omitempty"`
	ToNodeID   string    `json:"to_node_id,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ContextResponse 实例上下文快照
type ContextResponse struct {
	InstanceID  string         `json:"instance_id"`
	Version     int            `json:"version"`
	ContextData map[string]any `json:"context_data"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime"`
	Timestamp string `json:"timestamp"`
}

// ListResponse 列表响应
type ListResponse[T any] struct {
	Total int `json:"total"`
	Items []T `json:"items"`
}
