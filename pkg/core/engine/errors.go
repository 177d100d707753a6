package engine

import "errors"

// ========== 引擎错误定义 ==========

var (
	// ErrTemplateNotFound 模板不存在
	ErrTemplateNotFound = errors.New("工作流模板不存在")
	// ErrInstanceNotFound 实例不存在
	ErrInstanceNotFound = errors.New("工作流实例不存在")
	// ErrMissingAssignment 人工任务节点缺少处理人指派
	ErrMissingAssignment = errors.New("人工任务节点缺少处理人指派")
	// ErrTaskNotFound 任务不存在
	ErrTaskNotFound = errors.New("任务不存在")
	// ErrTaskAlreadyResolved 任务已被处理，不能重复完成
	ErrTaskAlreadyResolved = errors.New("任务已被处理")
	// ErrFunctionNotFound 函数未在注册中心登记
	ErrFunctionNotFound = errors.New("函数未注册")
	// ErrDefinitionMissing 实例引用的模板定义缺失（致命）
	ErrDefinitionMissing = errors.New("模板定义缺失")
	// ErrCurrentNodeMissing 实例当前节点在定义中不存在（视为数据损坏，致命）
	ErrCurrentNodeMissing = errors.New("当前节点在模板定义中不存在")
	// ErrTemplateInactive 模板已停用，不能创建实例
	ErrTemplateInactive = errors.New("工作流模板已停用")
)
