package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/LENAX/process-engine/pkg/core/definition"
	"github.com/LENAX/process-engine/pkg/core/function"
	"github.com/LENAX/process-engine/pkg/storage"
	"github.com/google/uuid"
)

// TemplateManager 模板管理器（对外导出）
// 模板在创建时整体校验，此后只通过active标记启停，不做局部修改
type TemplateManager struct {
	repo     storage.EngineRepository
	registry *function.Registry
}

// NewTemplateManager 创建模板管理器（对外导出）
func NewTemplateManager(repo storage.EngineRepository, registry *function.Registry) *TemplateManager {
	return &TemplateManager{
		repo:     repo,
		registry: registry,
	}
}

// CreateTemplate 创建工作流模板（对外导出）
// 定义在入库前整体校验：节点ID唯一、唯一START入口、转移端点存在、
// TASK节点函数已注册且启用。运行期不再重复校验
func (m *TemplateManager) CreateTemplate(ctx context.Context, tpl *storage.WorkflowTemplate) error {
	if tpl.Code == "" {
		return errors.New("模板编码不能为空")
	}
	if tpl.Definition == nil {
		return errors.New("模板定义不能为空")
	}
	if err := definition.Validate(tpl.Definition, m.registry); err != nil {
		return fmt.Errorf("模板定义校验失败: %w", err)
	}

	if tpl.ID == "" {
		tpl.ID = uuid.NewString()
	}
	now := time.Now()
	if tpl.CreateTime.IsZero() {
		tpl.CreateTime = now
		tpl.Active = true
	}
	tpl.UpdateTime = now

	if err := m.repo.SaveTemplate(ctx, tpl); err != nil {
		return fmt.Errorf("保存模板失败: %w", err)
	}

	log.Printf("✅ [模板管理] 模板保存成功: %s (code=%s, 节点数=%d)", tpl.ID, tpl.Code, len(tpl.Definition.Nodes))
	return nil
}

// GetTemplate 按ID获取模板（对外导出）
func (m *TemplateManager) GetTemplate(ctx context.Context, id string) (*storage.WorkflowTemplate, error) {
	tpl, err := m.repo.GetTemplate(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
		}
		return nil, err
	}
	return tpl, nil
}

// GetTemplateByCode 按业务编码获取模板（对外导出）
func (m *TemplateManager) GetTemplateByCode(ctx context.Context, code string) (*storage.WorkflowTemplate, error) {
	tpl, err := m.repo.GetTemplateByCode(ctx, code)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, code)
		}
		return nil, err
	}
	return tpl, nil
}

// ListTemplates 列出全部模板（对外导出）
func (m *TemplateManager) ListTemplates(ctx context.Context) ([]*storage.WorkflowTemplate, error) {
	return m.repo.ListTemplates(ctx)
}

// SetActive 切换模板启用状态（对外导出）
// 软删除语义：有实例引用的模板永不做物理删除
func (m *TemplateManager) SetActive(ctx context.Context, id string, active bool) error {
	if err := m.repo.SetTemplateActive(ctx, id, active); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
		}
		return err
	}
	log.Printf("✅ [模板管理] 模板状态切换: %s (active=%v)", id, active)
	return nil
}
