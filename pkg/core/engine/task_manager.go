package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/LENAX/process-engine/pkg/core/definition"
	"github.com/LENAX/process-engine/pkg/core/function"
	"github.com/LENAX/process-engine/pkg/core/schema"
	"github.com/LENAX/process-engine/pkg/storage"
	"github.com/google/uuid"
)

// TaskManager 任务管理器（对外导出）
// 负责实例访问TASK节点时创建任务，以及处理人提交任务结果
type TaskManager struct {
	repo     storage.EngineRepository
	registry *function.Registry
	bus      *EventBus
}

// NewTaskManager 创建任务管理器（对外导出）
func NewTaskManager(repo storage.EngineRepository, registry *function.Registry, bus *EventBus) *TaskManager {
	return &TaskManager{
		repo:     repo,
		registry: registry,
		bus:      bus,
	}
}

// CreateTask 为实例在指定TASK节点创建一条PENDING任务（对外导出）
// 函数未注册属于软失败：记录日志并返回错误，调用方不应因此中断推进。
// 任务输入快照取实例的最新上下文
func (m *TaskManager) CreateTask(ctx context.Context, inst *storage.WorkflowInstance, node *definition.Node) (*storage.InstanceTask, error) {
	meta, err := m.registry.Get(ctx, node.FunctionCode)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.Printf("⚠️ [任务管理] 节点 %s 的函数 %s 未注册，跳过任务创建", node.ID, node.FunctionCode)
			return nil, fmt.Errorf("%w: %s", ErrFunctionNotFound, node.FunctionCode)
		}
		return nil, fmt.Errorf("查询函数元数据失败: %w", err)
	}

	inputData := map[string]any{}
	if latest, err := m.repo.GetLatestContext(ctx, inst.ID); err == nil {
		inputData = latest.ContextData
	}

	task := &storage.InstanceTask{
		ID:                 uuid.NewString(),
		WorkflowInstanceID: inst.ID,
		NodeID:             node.ID,
		FunctionCode:       node.FunctionCode,
		TaskType:           meta.TaskType,
		Status:             storage.TaskStatusPending,
		AssignedTo:         inst.Assignments()[node.ID],
		InputData:          inputData,
		CreateTime:         time.Now(),
	}
	if err := m.repo.SaveTask(ctx, task); err != nil {
		return nil, fmt.Errorf("保存任务失败: %w", err)
	}

	log.Printf("✅ [任务管理] 任务创建成功: %s (实例=%s, 节点=%s, 函数=%s, 处理人=%s)",
		task.ID, inst.ID, node.ID, node.FunctionCode, task.AssignedTo)
	return task, nil
}

// CompleteTask 提交任务结果（对外导出）
// 输出数据先按函数声明的输出Schema校验；通过后任务置为COMPLETED、
// 输出合并进新的上下文版本，并为所属实例入队一条推进请求。
// 这是人工/服务/Agent处理结果回流引擎的唯一入口
func (m *TaskManager) CompleteTask(ctx context.Context, taskID string, output map[string]any) error {
	task, err := m.repo.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
		}
		return fmt.Errorf("查询任务失败: %w", err)
	}
	if task.Status != storage.TaskStatusPending {
		return fmt.Errorf("%w: %s (当前状态=%s)", ErrTaskAlreadyResolved, taskID, task.Status)
	}

	// 按函数输出Schema做字段级校验
	outputSchema, err := m.registry.OutputSchema(ctx, task.FunctionCode)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("查询函数输出Schema失败: %w", err)
	}
	if outputSchema != nil {
		if err := outputSchema.Validate(output); err != nil {
			return err
		}
	}

	if err := m.repo.CompleteTask(ctx, taskID, output); err != nil {
		return fmt.Errorf("更新任务状态失败: %w", err)
	}

	// 任务输出合并进新的上下文版本，供后续转移条件求值
	merged := map[string]any{}
	if latest, err := m.repo.GetLatestContext(ctx, task.WorkflowInstanceID); err == nil {
		for k, v := range latest.ContextData {
			merged[k] = v
		}
	}
	for k, v := range output {
		merged[k] = v
	}
	if _, err := m.repo.AppendContext(ctx, task.WorkflowInstanceID, merged); err != nil {
		return fmt.Errorf("追加上下文版本失败: %w", err)
	}

	queueID, err := m.repo.EnqueueAdvance(ctx, task.WorkflowInstanceID)
	if err != nil {
		return fmt.Errorf("入队推进请求失败: %w", err)
	}
	if m.bus != nil {
		m.bus.PublishAdvance(queueID)
	}

	log.Printf("✅ [任务管理] 任务完成: %s (实例=%s, 节点=%s)", taskID, task.WorkflowInstanceID, task.NodeID)
	return nil
}

// PendingTask 携带Schema的待办任务（对外导出）
// Schema供下游表单渲染使用
type PendingTask struct {
	Task         *storage.InstanceTask
	InputSchema  *schema.ObjectSchema
	OutputSchema *schema.ObjectSchema
}

// ListPendingTasks 列出指派给某处理人的待办任务（对外导出）
func (m *TaskManager) ListPendingTasks(ctx context.Context, assignee string) ([]*PendingTask, error) {
	tasks, err := m.repo.ListPendingTasksByAssignee(ctx, assignee)
	if err != nil {
		return nil, err
	}

	result := make([]*PendingTask, 0, len(tasks))
	for _, t := range tasks {
		pt := &PendingTask{Task: t}
		if meta, err := m.registry.Get(ctx, t.FunctionCode); err == nil {
			pt.InputSchema = meta.InputSchema
			pt.OutputSchema = meta.OutputSchema
		}
		result = append(result, pt)
	}
	return result, nil
}

// GetTask 按ID获取任务（对外导出）
func (m *TaskManager) GetTask(ctx context.Context, taskID string) (*storage.InstanceTask, error) {
	task, err := m.repo.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
		}
		return nil, err
	}
	return task, nil
}
