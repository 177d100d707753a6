package engine

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/LENAX/process-engine/pkg/core/function"
	"github.com/LENAX/process-engine/pkg/storage"
)

// Options 引擎运行参数（对外导出）
type Options struct {
	// DrainCron 兜底排空的调度表达式（秒级精度）
	DrainCron string
	// DrainLimit 单次排空处理上限，<=0表示不限
	DrainLimit int
	// Debug 打开事件总线调试日志
	Debug bool
}

// Engine 工作流编排引擎（对外导出）
// 组合模板、实例、任务、队列处理四个管理器，
// 仓储通过构造函数显式注入，便于用内存或文件库做隔离测试
type Engine struct {
	repo storage.EngineRepository
	bus  *EventBus

	Templates *TemplateManager
	Instances *InstanceManager
	Tasks     *TaskManager
	Processor *Processor
	Registry  *function.Registry

	drainScheduler *DrainScheduler

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex
}

// NewEngine 创建引擎实例（对外导出）
func NewEngine(repo storage.EngineRepository, opts Options) (*Engine, error) {
	if repo == nil {
		return nil, fmt.Errorf("仓储不能为空")
	}
	if opts.DrainCron == "" {
		opts.DrainCron = "*/30 * * * * *"
	}

	registry := function.NewRegistry(repo)

	bus, err := NewEventBus(opts.Debug)
	if err != nil {
		return nil, fmt.Errorf("创建事件总线失败: %w", err)
	}

	taskManager := NewTaskManager(repo, registry, bus)
	processor := NewProcessor(repo, taskManager)

	drainScheduler, err := NewDrainScheduler(processor, opts.DrainCron, opts.DrainLimit)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("创建排空调度器失败: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	eng := &Engine{
		repo:           repo,
		bus:            bus,
		Templates:      NewTemplateManager(repo, registry),
		Instances:      NewInstanceManager(repo, registry, bus),
		Tasks:          taskManager,
		Processor:      processor,
		Registry:       registry,
		drainScheduler: drainScheduler,
		ctx:            ctx,
		cancel:         cancel,
	}

	// 推进事件触发即时处理，与兜底排空共用同一条处理路径
	bus.OnAdvance("queue_processor", processor.ProcessQueueItem)

	return eng, nil
}

// Start 启动引擎（对外导出）
// 加载函数缓存、启动事件路由和兜底排空调度
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return fmt.Errorf("引擎已启动")
	}

	if err := e.Registry.Load(e.ctx); err != nil {
		return fmt.Errorf("加载函数注册中心失败: %w", err)
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.bus.Run(e.ctx); err != nil {
			log.Printf("❌ [引擎] 事件路由退出: %v", err)
		}
	}()

	e.drainScheduler.Start()
	e.started = true
	log.Println("🚀 [引擎] 工作流编排引擎已启动")
	return nil
}

// Stop 停止引擎（对外导出）
// 停止调度与事件路由，不关闭仓储连接（由创建方负责）
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return nil
	}

	e.drainScheduler.Stop()
	e.cancel()
	if err := e.bus.Close(); err != nil {
		log.Printf("⚠️ [引擎] 关闭事件总线失败: %v", err)
	}
	e.wg.Wait()
	e.started = false
	log.Println("🛑 [引擎] 工作流编排引擎已停止")
	return nil
}
