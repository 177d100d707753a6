package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/LENAX/process-engine/pkg/core/definition"
	"github.com/LENAX/process-engine/pkg/storage"
	"github.com/google/uuid"
)

// Processor 队列与转移处理器（对外导出）
// 消费推进队列，按定义顺序求值出边条件，一次推进一个转移
type Processor struct {
	repo        storage.EngineRepository
	taskManager *TaskManager
}

// NewProcessor 创建处理器（对外导出）
func NewProcessor(repo storage.EngineRepository, taskManager *TaskManager) *Processor {
	return &Processor{
		repo:        repo,
		taskManager: taskManager,
	}
}

// DrainResult 一次排空的处理计数（对外导出）
type DrainResult struct {
	Processed int
	Succeeded int
	Failed    int
}

// ProcessQueueItem 处理单个队列项（对外导出）
// 非PENDING项和认领竞争失败一律no-op，保证重复触发安全。
// 致命错误（定义缺失、当前节点缺失）把队列项置为FAILED，实例状态保持不动
func (p *Processor) ProcessQueueItem(ctx context.Context, queueID string) error {
	item, err := p.repo.GetQueueItem(ctx, queueID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.Printf("⚠️ [处理器] 队列项不存在: %s", queueID)
			return nil
		}
		return fmt.Errorf("查询队列项失败: %w", err)
	}
	if item.Status != storage.QueueStatusPending {
		return nil
	}

	// 原子认领，两个并发触发只会有一个胜出
	claimed, err := p.repo.ClaimQueueItem(ctx, queueID)
	if err != nil {
		return fmt.Errorf("认领队列项失败: %w", err)
	}
	if !claimed {
		return nil
	}

	if err := p.advance(ctx, item); err != nil {
		if markErr := p.repo.MarkQueueItemFailed(ctx, queueID, err.Error()); markErr != nil {
			log.Printf("❌ [处理器] 记录队列项失败状态出错: queue_id=%s, err=%v", queueID, markErr)
		}
		log.Printf("❌ [处理器] 推进失败: queue_id=%s, instance_id=%s, err=%v", queueID, item.WorkflowInstanceID, err)
		return err
	}

	if err := p.repo.MarkQueueItemCompleted(ctx, queueID); err != nil {
		return fmt.Errorf("更新队列项状态失败: %w", err)
	}
	return nil
}

// advance 将实例推进一个转移
func (p *Processor) advance(ctx context.Context, item *storage.ExecutionQueueItem) error {
	inst, err := p.repo.GetInstance(ctx, item.WorkflowInstanceID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: 实例 %s 不存在", ErrDefinitionMissing, item.WorkflowInstanceID)
		}
		return fmt.Errorf("加载实例失败: %w", err)
	}

	tpl, err := p.repo.GetTemplate(ctx, inst.TemplateID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: 模板 %s 不存在", ErrDefinitionMissing, inst.TemplateID)
		}
		return fmt.Errorf("加载模板失败: %w", err)
	}
	def := tpl.Definition
	if def == nil || len(def.Nodes) == 0 {
		return fmt.Errorf("%w: 模板 %s 定义为空", ErrDefinitionMissing, tpl.Code)
	}

	currentNode, ok := def.ResolveNode(inst.CurrentNodeID)
	if !ok {
		// 不应出现，按数据损坏处理，不做重试
		return fmt.Errorf("%w: %s", ErrCurrentNodeMissing, inst.CurrentNodeID)
	}

	outgoing := def.OutgoingTransitions(currentNode.ID)

	// 零出边节点视为隐式终点，无论节点类型
	if len(outgoing) == 0 {
		if err := p.repo.UpdateInstancePosition(ctx, inst.ID, currentNode.ID, storage.InstanceStatusCompleted); err != nil {
			return fmt.Errorf("更新实例状态失败: %w", err)
		}
		p.recordHistory(ctx, inst.ID, storage.HistoryEventCompleted, currentNode.ID, currentNode.ID,
			fmt.Sprintf("节点 %s 无出边，实例完成", currentNode.ID))
		log.Printf("✅ [处理器] 实例完成（无出边终点）: %s (节点=%s)", inst.ID, currentNode.ID)
		return nil
	}

	contextData := map[string]any{}
	if latest, err := p.repo.GetLatestContext(ctx, inst.ID); err == nil {
		contextData = latest.ContextData
	}

	// 按定义顺序求值，取第一条为真的转移；目标节点无法解析时软跳过
	for _, tr := range outgoing {
		if !EvaluateCondition(tr.Condition, contextData) {
			continue
		}

		dest, ok := def.ResolveNode(tr.ToNodeID)
		if !ok {
			log.Printf("⚠️ [处理器] 转移 %s 的目标节点 %s 无法解析，尝试下一候选", tr.ID, tr.ToNodeID)
			continue
		}

		return p.applyTransition(ctx, inst, currentNode, dest, tr)
	}

	// 没有任何转移条件成立：实例停在当前节点，仅记录日志，不视为失败
	log.Printf("🕐 [处理器] 实例 %s 停滞在节点 %s：无转移条件成立", inst.ID, currentNode.ID)
	return nil
}

// applyTransition 执行一次节点转移
func (p *Processor) applyTransition(ctx context.Context, inst *storage.WorkflowInstance, from, dest *definition.Node, tr definition.Transition) error {
	status := storage.InstanceStatusRunning
	if dest.Type == definition.NodeTypeEnd {
		status = storage.InstanceStatusCompleted
	}

	if err := p.repo.UpdateInstancePosition(ctx, inst.ID, dest.ID, status); err != nil {
		return fmt.Errorf("更新实例位置失败: %w", err)
	}
	p.recordHistory(ctx, inst.ID, storage.HistoryEventTransition, from.ID, dest.ID,
		fmt.Sprintf("条件: %q", tr.Condition))

	log.Printf("✅ [处理器] 实例转移: %s (%s -> %s, 状态=%s)", inst.ID, from.ID, dest.ID, status)

	switch dest.Type {
	case definition.NodeTypeTask:
		// 函数缺失属于软失败：任务不创建，推进本身视为成功
		if _, err := p.taskManager.CreateTask(ctx, inst, dest); err != nil {
			log.Printf("⚠️ [处理器] 任务创建失败（不中断推进）: 实例=%s, 节点=%s, err=%v", inst.ID, dest.ID, err)
		}
	case definition.NodeTypeEnd:
		p.recordHistory(ctx, inst.ID, storage.HistoryEventCompleted, from.ID, dest.ID, "实例到达END节点")
		log.Printf("✅ [处理器] 实例完成: %s", inst.ID)
	}

	return nil
}

// recordHistory 追加历史记录，失败只记录日志
func (p *Processor) recordHistory(ctx context.Context, instanceID, eventType, fromNodeID, toNodeID, detail string) {
	h := &storage.InstanceHistory{
		ID:                 uuid.NewString(),
		WorkflowInstanceID: instanceID,
		EventType:          eventType,
		FromNodeID:         fromNodeID,
		ToNodeID:           toNodeID,
		Detail:             detail,
		CreateTime:         time.Now(),
	}
	if err := p.repo.AppendHistory(ctx, h); err != nil {
		log.Printf("⚠️ [处理器] 写入历史记录失败: 实例=%s, err=%v", instanceID, err)
	}
}

// DrainQueue 排空待处理队列（对外导出）
// 按入队顺序最多取limit条PENDING项逐条处理；已处于PROCESSING/终态的项不受影响。
// 幂等，可安全地被定时器或外部调用方重复触发
func (p *Processor) DrainQueue(ctx context.Context, limit int) (*DrainResult, error) {
	items, err := p.repo.ListPendingQueueItems(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("查询待处理队列失败: %w", err)
	}

	result := &DrainResult{}
	for _, item := range items {
		result.Processed++
		if err := p.ProcessQueueItem(ctx, item.ID); err != nil {
			result.Failed++
			continue
		}
		result.Succeeded++
	}

	if result.Processed > 0 {
		log.Printf("✅ [处理器] 队列排空完成: 处理=%d, 成功=%d, 失败=%d",
			result.Processed, result.Succeeded, result.Failed)
	}
	return result, nil
}
