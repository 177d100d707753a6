package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// DrainScheduler 队列排空定时器（对外导出）
// 事件总线是主触发路径，定时排空作为漏触发的兜底：
// 周期性调用DrainQueue，把遗留的PENDING队列项捞起来处理
type DrainScheduler struct {
	cron      *cron.Cron
	processor *Processor
	limit     int
}

// NewDrainScheduler 创建队列排空定时器（对外导出）
// cronExpr: 调度表达式（支持秒级精度），limit: 单次排空上限
func NewDrainScheduler(processor *Processor, cronExpr string, limit int) (*DrainScheduler, error) {
	s := &DrainScheduler{
		cron:      cron.New(cron.WithSeconds()), // 支持秒级精度
		processor: processor,
		limit:     limit,
	}

	// 验证Cron表达式（使用Parser支持秒级精度）
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(cronExpr); err != nil {
		return nil, fmt.Errorf("排空调度的Cron表达式无效: %w", err)
	}

	if _, err := s.cron.AddFunc(cronExpr, s.drain); err != nil {
		return nil, fmt.Errorf("添加Cron任务失败: %w", err)
	}

	return s, nil
}

// drain 执行一次兜底排空（内部方法）
func (s *DrainScheduler) drain() {
	result, err := s.processor.DrainQueue(context.Background(), s.limit)
	if err != nil {
		log.Printf("❌ [排空调度器] 队列排空失败: %v", err)
		return
	}
	if result.Processed > 0 {
		log.Printf("🕐 [排空调度器] 兜底排空: 处理=%d, 成功=%d, 失败=%d",
			result.Processed, result.Succeeded, result.Failed)
	}
}

// Start 启动定时器（对外导出）
func (s *DrainScheduler) Start() {
	s.cron.Start()
	log.Println("✅ [排空调度器] 已启动")
}

// Stop 停止定时器（对外导出）
func (s *DrainScheduler) Stop() {
	s.cron.Stop()
	log.Println("✅ [排空调度器] 已停止")
}
