package storage

import "context"

// EngineRepository 引擎聚合仓储接口（对外导出）
// 统一封装模板、实例、上下文、任务、队列、历史和函数元数据的持久化，
// 由sqlite/mysql/postgres三种实现提供
type EngineRepository interface {
	// ---------- 模板 ----------

	// SaveTemplate 保存工作流模板（定义序列化为JSON存储）
	SaveTemplate(ctx context.Context, tpl *WorkflowTemplate) error
	// GetTemplate 按ID获取模板
	GetTemplate(ctx context.Context, id string) (*WorkflowTemplate, error)
	// GetTemplateByCode 按业务编码获取模板
	GetTemplateByCode(ctx context.Context, code string) (*WorkflowTemplate, error)
	// ListTemplates 列出全部模板
	ListTemplates(ctx context.Context) ([]*WorkflowTemplate, error)
	// SetTemplateActive 切换模板启用状态（软删除语义）
	SetTemplateActive(ctx context.Context, id string, active bool) error

	// ---------- 函数注册 ----------

	// SaveFunction 注册或更新函数元数据
	SaveFunction(ctx context.Context, fn *FunctionMeta) error
	// GetFunction 按编码获取函数元数据
	GetFunction(ctx context.Context, code string) (*FunctionMeta, error)
	// ListFunctions 列出全部函数元数据
	ListFunctions(ctx context.Context) ([]*FunctionMeta, error)

	// ---------- 实例 ----------

	// SaveInstance 保存新建实例
	SaveInstance(ctx context.Context, inst *WorkflowInstance) error
	// GetInstance 按ID获取实例
	GetInstance(ctx context.Context, id string) (*WorkflowInstance, error)
	// ListInstancesByStatus 按状态列出实例
	ListInstancesByStatus(ctx context.Context, status string) ([]*WorkflowInstance, error)
	// UpdateInstancePosition 更新实例当前节点与状态（推进时调用）
	UpdateInstancePosition(ctx context.Context, id, currentNodeID, status string) error
	// UpdateInstanceError 将实例置为失败/异常态并记录原因
	UpdateInstanceError(ctx context.Context, id, status, errMsg string) error

	// ---------- 实例上下文（只追加版本链） ----------

	// AppendContext 追加一个新的上下文版本，返回分配的版本号
	AppendContext(ctx context.Context, instanceID string, data map[string]any) (int, error)
	// GetLatestContext 获取实例最新版本的上下文
	GetLatestContext(ctx context.Context, instanceID string) (*InstanceContext, error)
	// ListContextVersions 按版本升序列出实例的全部上下文快照
	ListContextVersions(ctx context.Context, instanceID string) ([]*InstanceContext, error)

	// ---------- 任务 ----------

	// SaveTask 保存任务记录
	SaveTask(ctx context.Context, task *InstanceTask) error
	// GetTask 按ID获取任务
	GetTask(ctx context.Context, id string) (*InstanceTask, error)
	// ListTasksByInstance 列出实例的全部任务
	ListTasksByInstance(ctx context.Context, instanceID string) ([]*InstanceTask, error)
	// ListPendingTasksByAssignee 列出指派给某处理人的待办任务
	ListPendingTasksByAssignee(ctx context.Context, assignee string) ([]*InstanceTask, error)
	// CompleteTask 将任务置为完成并写入输出数据
	CompleteTask(ctx context.Context, id string, output map[string]any) error
	// FailTask 将任务置为失败并记录原因
	FailTask(ctx context.Context, id, errMsg string) error

	// ---------- 推进队列 ----------

	// EnqueueAdvance 为实例入队一条推进请求，返回队列项ID
	EnqueueAdvance(ctx context.Context, instanceID string) (string, error)
	// GetQueueItem 按ID获取队列项
	GetQueueItem(ctx context.Context, id string) (*ExecutionQueueItem, error)
	// ClaimQueueItem 原子认领队列项（PENDING -> PROCESSING）
	// 返回false表示该项已被其他消费者认领或不存在
	ClaimQueueItem(ctx context.Context, id string) (bool, error)
	// MarkQueueItemCompleted 队列项处理成功
	MarkQueueItemCompleted(ctx context.Context, id string) error
	// MarkQueueItemFailed 队列项处理失败并记录原因
	MarkQueueItemFailed(ctx context.Context, id, errMsg string) error
	// ListPendingQueueItems 按入队顺序列出待处理队列项（limit<=0表示不限）
	ListPendingQueueItems(ctx context.Context, limit int) ([]*ExecutionQueueItem, error)

	// ---------- 推进历史 ----------

	// AppendHistory 追加一条实例历史记录
	AppendHistory(ctx context.Context, h *InstanceHistory) error
	// ListHistory 按时间升序列出实例历史
	ListHistory(ctx context.Context, instanceID string) ([]*InstanceHistory, error)

	// Close 释放底层数据库连接
	Close() error
}
