package function

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/LENAX/process-engine/pkg/core/schema"
	"github.com/LENAX/process-engine/pkg/storage"
)

// Registry 函数注册中心（对外导出）
// 持久化元数据到数据库，同时在内存中维护一份缓存用于快速查找
type Registry struct {
	mu      sync.RWMutex
	metaMap map[string]*storage.FunctionMeta // 函数编码 -> 元数据
	repo    storage.EngineRepository
}

// NewRegistry 创建函数注册中心（对外导出）
func NewRegistry(repo storage.EngineRepository) *Registry {
	return &Registry{
		metaMap: make(map[string]*storage.FunctionMeta),
		repo:    repo,
	}
}

// Load 从数据库加载全部函数元数据到内存缓存（对外导出）
// 引擎启动时调用一次
func (r *Registry) Load(ctx context.Context) error {
	if r.repo == nil {
		return nil
	}

	functions, err := r.repo.ListFunctions(ctx)
	if err != nil {
		return fmt.Errorf("加载函数元数据失败: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.metaMap = make(map[string]*storage.FunctionMeta, len(functions))
	for _, fn := range functions {
		r.metaMap[fn.Code] = fn
	}
	return nil
}

// Register 注册函数元数据（对外导出）
// code: 函数编码（全局唯一标识）
// taskType: 实现类型（USER_TASK/SERVICE_TASK/AGENT_TASK）
func (r *Registry) Register(ctx context.Context, fn *storage.FunctionMeta) error {
	if fn.Code == "" {
		return errors.New("函数编码不能为空")
	}
	switch fn.TaskType {
	case storage.TaskTypeUser, storage.TaskTypeService, storage.TaskTypeAgent:
	default:
		return fmt.Errorf("无效的函数实现类型: %s", fn.TaskType)
	}

	now := time.Now()
	if fn.CreateTime.IsZero() {
		fn.CreateTime = now
	}
	fn.UpdateTime = now

	// 持久化元数据到数据库
	if r.repo != nil {
		if err := r.repo.SaveFunction(ctx, fn); err != nil {
			return fmt.Errorf("保存函数元数据失败: %w", err)
		}
	}

	r.mu.Lock()
	r.metaMap[fn.Code] = fn
	r.mu.Unlock()

	return nil
}

// Get 根据函数编码获取元数据（对外导出）
// 缓存未命中时回源数据库
func (r *Registry) Get(ctx context.Context, code string) (*storage.FunctionMeta, error) {
	r.mu.RLock()
	meta, ok := r.metaMap[code]
	r.mu.RUnlock()
	if ok {
		return meta, nil
	}

	if r.repo == nil {
		return nil, storage.ErrNotFound
	}

	meta, err := r.repo.GetFunction(ctx, code)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.metaMap[code] = meta
	r.mu.Unlock()
	return meta, nil
}

// List 列出全部函数元数据（对外导出）
func (r *Registry) List(ctx context.Context) ([]*storage.FunctionMeta, error) {
	if r.repo != nil {
		return r.repo.ListFunctions(ctx)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	functions := make([]*storage.FunctionMeta, 0, len(r.metaMap))
	for _, fn := range r.metaMap {
		functions = append(functions, fn)
	}
	return functions, nil
}

// IsActive 检查函数是否已注册且处于启用状态（对外导出）
// 供模板校验使用
func (r *Registry) IsActive(code string) bool {
	r.mu.RLock()
	meta, ok := r.metaMap[code]
	r.mu.RUnlock()
	if ok {
		return meta.Active
	}

	if r.repo == nil {
		return false
	}
	meta, err := r.repo.GetFunction(context.Background(), code)
	if err != nil {
		return false
	}

	r.mu.Lock()
	r.metaMap[code] = meta
	r.mu.Unlock()
	return meta.Active
}

// SetActive 切换函数启用状态（对外导出）
func (r *Registry) SetActive(ctx context.Context, code string, active bool) error {
	meta, err := r.Get(ctx, code)
	if err != nil {
		return err
	}
	meta.Active = active
	return r.Register(ctx, meta)
}

// OutputSchema 获取函数的输出Schema（对外导出）
// 任务完成时用于校验提交的输出数据，未注册Schema时返回nil
func (r *Registry) OutputSchema(ctx context.Context, code string) (*schema.ObjectSchema, error) {
	meta, err := r.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	return meta.OutputSchema, nil
}
