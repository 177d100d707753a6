package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/LENAX/process-engine/pkg/core/function"
	"github.com/LENAX/process-engine/pkg/storage"
	"github.com/google/uuid"
)

// InstanceManager 实例管理器（对外导出）
// 负责从模板创建运行实例，并触发首次推进
type InstanceManager struct {
	repo     storage.EngineRepository
	registry *function.Registry
	bus      *EventBus
}

// NewInstanceManager 创建实例管理器（对外导出）
func NewInstanceManager(repo storage.EngineRepository, registry *function.Registry, bus *EventBus) *InstanceManager {
	return &InstanceManager{
		repo:     repo,
		registry: registry,
		bus:      bus,
	}
}

// CreateInstance 从模板创建运行实例（对外导出）
// assignments: 节点ID -> 处理人，人工任务节点必须全部覆盖
// initialContext: 版本1上下文数据
// 成功时实例落在START节点、状态RUNNING，并恰好入队一条推进请求
func (m *InstanceManager) CreateInstance(ctx context.Context, templateID, name string, assignments map[string]string, initialContext map[string]any) (*storage.WorkflowInstance, error) {
	tpl, err := m.repo.GetTemplate(ctx, templateID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, templateID)
		}
		return nil, fmt.Errorf("加载模板失败: %w", err)
	}
	if !tpl.Active {
		return nil, fmt.Errorf("%w: %s", ErrTemplateInactive, tpl.Code)
	}

	startNode, ok := tpl.Definition.StartNode()
	if !ok {
		return nil, fmt.Errorf("%w: 模板 %s 没有唯一的START入口节点", ErrDefinitionMissing, tpl.Code)
	}

	// 校验人工任务节点的指派是否齐全
	if err := m.checkAssignments(ctx, tpl, assignments); err != nil {
		return nil, err
	}

	if name == "" {
		name = fmt.Sprintf("%s-%s", tpl.Name, time.Now().Format("20060102150405"))
	}

	inputData := map[string]any{
		storage.AssignmentsKey: assignments,
	}

	now := time.Now()
	inst := &storage.WorkflowInstance{
		ID:            uuid.NewString(),
		TemplateID:    tpl.ID,
		Name:          name,
		Status:        storage.InstanceStatusRunning,
		CurrentNodeID: startNode.ID,
		InputData:     inputData,
		CreateTime:    now,
		UpdateTime:    now,
	}
	if err := m.repo.SaveInstance(ctx, inst); err != nil {
		return nil, fmt.Errorf("保存实例失败: %w", err)
	}

	// 写入版本1上下文
	if initialContext == nil {
		initialContext = map[string]any{}
	}
	if _, err := m.repo.AppendContext(ctx, inst.ID, initialContext); err != nil {
		return nil, fmt.Errorf("写入初始上下文失败: %w", err)
	}

	// 入队首次推进请求
	queueID, err := m.repo.EnqueueAdvance(ctx, inst.ID)
	if err != nil {
		return nil, fmt.Errorf("入队推进请求失败: %w", err)
	}
	if m.bus != nil {
		m.bus.PublishAdvance(queueID)
	}

	log.Printf("🚀 [实例管理] 实例创建成功: %s (模板=%s, 入口节点=%s)", inst.ID, tpl.Code, startNode.ID)
	return inst, nil
}

// checkAssignments 校验USER_TASK类型节点是否都有处理人指派
// 仅人工任务强制指派，服务/Agent任务允许为空
func (m *InstanceManager) checkAssignments(ctx context.Context, tpl *storage.WorkflowTemplate, assignments map[string]string) error {
	var missing []string
	for _, node := range tpl.Definition.TaskNodes() {
		meta, err := m.registry.Get(ctx, node.FunctionCode)
		if err != nil {
			// 函数缺失属于软失败，推进时由任务创建环节记录
			continue
		}
		if meta.TaskType != storage.TaskTypeUser {
			continue
		}
		if assignee, ok := assignments[node.ID]; !ok || assignee == "" {
			missing = append(missing, node.ID)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingAssignment, strings.Join(missing, ", "))
	}
	return nil
}

// GetInstance 按ID获取实例（对外导出）
func (m *InstanceManager) GetInstance(ctx context.Context, id string) (*storage.WorkflowInstance, error) {
	inst, err := m.repo.GetInstance(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrInstanceNotFound, id)
		}
		return nil, err
	}
	return inst, nil
}

// InstanceStatus 实例状态读模型（对外导出）
type InstanceStatus struct {
	InstanceID         string
	Name               string
	Status             string
	CurrentNodeID      string
	CurrentNodeName    string
	Tasks              []*storage.InstanceTask
	ProgressPercentage float64
	ErrorMessage       string
	CreateTime         time.Time
	UpdateTime         time.Time
}

// GetInstanceStatus 汇总实例的状态读模型（对外导出）
// 进度 = 已完成任务数 / 模板TASK节点总数 * 100
func (m *InstanceManager) GetInstanceStatus(ctx context.Context, id string) (*InstanceStatus, error) {
	inst, err := m.GetInstance(ctx, id)
	if err != nil {
		return nil, err
	}

	tpl, err := m.repo.GetTemplate(ctx, inst.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("加载模板失败: %w", err)
	}

	tasks, err := m.repo.ListTasksByInstance(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("加载实例任务失败: %w", err)
	}

	currentNodeName := inst.CurrentNodeID
	if node, ok := tpl.Definition.ResolveNode(inst.CurrentNodeID); ok {
		currentNodeName = node.Label
	}

	totalTaskNodes := len(tpl.Definition.TaskNodes())
	completed := 0
	for _, t := range tasks {
		if t.Status == storage.TaskStatusCompleted {
			completed++
		}
	}
	progress := 0.0
	if totalTaskNodes > 0 {
		progress = float64(completed) / float64(totalTaskNodes) * 100
	}

	return &InstanceStatus{
		InstanceID:         inst.ID,
		Name:               inst.Name,
		Status:             inst.Status,
		CurrentNodeID:      inst.CurrentNodeID,
		CurrentNodeName:    currentNodeName,
		Tasks:              tasks,
		ProgressPercentage: progress,
		ErrorMessage:       inst.ErrorMessage,
		CreateTime:         inst.CreateTime,
		UpdateTime:         inst.UpdateTime,
	}, nil
}

// GetLatestContext 获取实例最新上下文（对外导出）
func (m *InstanceManager) GetLatestContext(ctx context.Context, instanceID string) (*storage.InstanceContext, error) {
	c, err := m.repo.GetLatestContext(ctx, instanceID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &storage.InstanceContext{InstanceID: instanceID, Version: 0, ContextData: map[string]any{}}, nil
		}
		return nil, err
	}
	return c, nil
}

// AppendContext 为实例追加一个上下文版本（对外导出）
func (m *InstanceManager) AppendContext(ctx context.Context, instanceID string, data map[string]any) (int, error) {
	if _, err := m.GetInstance(ctx, instanceID); err != nil {
		return 0, err
	}
	return m.repo.AppendContext(ctx, instanceID, data)
}

// ListHistory 列出实例推进历史（对外导出）
func (m *InstanceManager) ListHistory(ctx context.Context, instanceID string) ([]*storage.InstanceHistory, error) {
	if _, err := m.GetInstance(ctx, instanceID); err != nil {
		return nil, err
	}
	return m.repo.ListHistory(ctx, instanceID)
}
