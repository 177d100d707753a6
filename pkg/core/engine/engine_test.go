package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LENAX/process-engine/pkg/core/definition"
	"github.com/LENAX/process-engine/pkg/core/function"
	"github.com/LENAX/process-engine/pkg/core/schema"
	"github.com/LENAX/process-engine/pkg/storage"
	"github.com/LENAX/process-engine/pkg/storage/sqlite"
)

// engineFixture 引擎各管理器的测试装配
// 事件总线置空，推进全部走显式的DrainQueue路径，便于逐步断言
type engineFixture struct {
	repo      storage.EngineRepository
	registry  *function.Registry
	templates *TemplateManager
	instances *InstanceManager
	tasks     *TaskManager
	processor *Processor
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "engine_test.db")
	repo, err := sqlite.NewEngineRepoFromDSN(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	registry := function.NewRegistry(repo)
	tasks := NewTaskManager(repo, registry, nil)
	return &engineFixture{
		repo:      repo,
		registry:  registry,
		templates: NewTemplateManager(repo, registry),
		instances: NewInstanceManager(repo, registry, nil),
		tasks:     tasks,
		processor: NewProcessor(repo, tasks),
	}
}

func (f *engineFixture) registerApproveFunction(t *testing.T) {
	t.Helper()
	err := f.registry.Register(context.Background(), &storage.FunctionMeta{
		Code:     "approve_leave",
		Name:     "请假审批",
		TaskType: storage.TaskTypeUser,
		OutputSchema: &schema.ObjectSchema{
			Type: "object",
			Properties: map[string]*schema.PropertySchema{
				"decision": {Type: "string", Enum: []string{"APPROVED", "REJECTED"}},
			},
			Required: []string{"decision"},
		},
		Active: true,
	})
	require.NoError(t, err)
}

func (f *engineFixture) registerServiceFunction(t *testing.T, code string) {
	t.Helper()
	err := f.registry.Register(context.Background(), &storage.FunctionMeta{
		Code:     code,
		Name:     code,
		TaskType: storage.TaskTypeService,
		Active:   true,
	})
	require.NoError(t, err)
}

func (f *engineFixture) createTemplate(t *testing.T, def *definition.Definition) *storage.WorkflowTemplate {
	t.Helper()
	tpl := &storage.WorkflowTemplate{
		Code:       "leave_approval",
		Name:       "请假审批",
		Definition: def,
	}
	require.NoError(t, f.templates.CreateTemplate(context.Background(), tpl))
	return tpl
}

func approvalFlow() *definition.Definition {
	return &definition.Definition{
		Nodes: []definition.Node{
			{ID: "start", Type: definition.NodeTypeStart, Label: "开始"},
			{ID: "approve", Type: definition.NodeTypeTask, Label: "审批", FunctionCode: "approve_leave"},
			{ID: "end", Type: definition.NodeTypeEnd, Label: "结束"},
		},
		Transitions: []definition.Transition{
			{ID: "t1", FromNodeID: "start", ToNodeID: "approve"},
			{ID: "t2", FromNodeID: "approve", ToNodeID: "end"},
		},
	}
}

// TestEngine_HappyPath 测试START->TASK->END的完整生命周期
func TestEngine_HappyPath(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.registerApproveFunction(t)
	tpl := f.createTemplate(t, approvalFlow())

	// 创建实例：落在START节点、RUNNING、恰好入队一条推进请求
	inst, err := f.instances.CreateInstance(ctx, tpl.ID, "", map[string]string{"approve": "alice"}, map[string]any{"days": 3.0})
	require.NoError(t, err)
	assert.Equal(t, "start", inst.CurrentNodeID)
	assert.Equal(t, storage.InstanceStatusRunning, inst.Status)

	pending, err := f.repo.ListPendingQueueItems(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	// 第一次排空：START -> approve，创建待办任务
	result, err := f.processor.DrainQueue(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Succeeded)

	got, err := f.instances.GetInstance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, "approve", got.CurrentNodeID)
	assert.Equal(t, storage.InstanceStatusRunning, got.Status)

	tasks, err := f.tasks.ListPendingTasks(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	task := tasks[0].Task
	assert.Equal(t, "approve", task.NodeID)
	assert.Equal(t, storage.TaskTypeUser, task.TaskType)
	// 任务输入快照取实例最新上下文
	assert.Equal(t, 3.0, task.InputData["days"])
	// Schema随待办任务下发，供表单渲染
	require.NotNil(t, tasks[0].OutputSchema)

	// 不符合输出Schema的提交被拒绝，任务保持PENDING
	err = f.tasks.CompleteTask(ctx, task.ID, map[string]any{"decision": "MAYBE"})
	var ve *schema.ValidationError
	require.ErrorAs(t, err, &ve)

	unchanged, err := f.tasks.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.TaskStatusPending, unchanged.Status)

	// 合法提交：任务完成、输出合并进新上下文版本、入队推进请求
	require.NoError(t, f.tasks.CompleteTask(ctx, task.ID, map[string]any{"decision": "APPROVED"}))

	latest, err := f.instances.GetLatestContext(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version)
	assert.Equal(t, "APPROVED", latest.ContextData["decision"])
	assert.Equal(t, 3.0, latest.ContextData["days"])

	// 第二次排空：approve -> end，实例完成
	result, err = f.processor.DrainQueue(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)

	got, err = f.instances.GetInstance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, "end", got.CurrentNodeID)
	assert.Equal(t, storage.InstanceStatusCompleted, got.Status)

	// 历史包含两次转移和完成事件
	history, err := f.instances.ListHistory(ctx, inst.ID)
	require.NoError(t, err)
	events := make([]string, 0, len(history))
	for _, h := range history {
		events = append(events, h.EventType)
	}
	assert.Contains(t, events, storage.HistoryEventTransition)
	assert.Contains(t, events, storage.HistoryEventCompleted)

	// 进度：1/1任务完成
	status, err := f.instances.GetInstanceStatus(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, status.ProgressPercentage)
	assert.Equal(t, "结束", status.CurrentNodeName)
}

// TestEngine_CreateInstance_MissingAssignment 测试人工任务节点缺少指派
func TestEngine_CreateInstance_MissingAssignment(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.registerApproveFunction(t)
	tpl := f.createTemplate(t, approvalFlow())

	_, err := f.instances.CreateInstance(ctx, tpl.ID, "", nil, nil)
	require.ErrorIs(t, err, ErrMissingAssignment)
	assert.Contains(t, err.Error(), "approve")

	// 失败的创建不留下实例和队列项
	pending, err := f.repo.ListPendingQueueItems(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

// TestEngine_CreateInstance_ServiceTaskNoAssignment 测试服务任务无需指派
func TestEngine_CreateInstance_ServiceTaskNoAssignment(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.registerServiceFunction(t, "notify_hr")

	def := approvalFlow()
	def.Nodes[1].FunctionCode = "notify_hr"
	tpl := f.createTemplate(t, def)

	inst, err := f.instances.CreateInstance(ctx, tpl.ID, "", nil, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, inst.ID)
}

// TestEngine_CreateInstance_TemplateErrors 测试模板不存在与已停用
func TestEngine_CreateInstance_TemplateErrors(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.registerApproveFunction(t)
	tpl := f.createTemplate(t, approvalFlow())

	_, err := f.instances.CreateInstance(ctx, "ghost", "", nil, nil)
	assert.ErrorIs(t, err, ErrTemplateNotFound)

	require.NoError(t, f.templates.SetActive(ctx, tpl.ID, false))
	_, err = f.instances.CreateInstance(ctx, tpl.ID, "", map[string]string{"approve": "alice"}, nil)
	assert.ErrorIs(t, err, ErrTemplateInactive)
}

// TestEngine_Branch_FirstTrueWins 测试按定义顺序取第一条为真的转移
func TestEngine_Branch_FirstTrueWins(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	def := &definition.Definition{
		Nodes: []definition.Node{
			{ID: "start", Type: definition.NodeTypeStart},
			{ID: "end_rejected", Type: definition.NodeTypeEnd, Label: "驳回"},
			{ID: "end_approved", Type: definition.NodeTypeEnd, Label: "通过"},
		},
		Transitions: []definition.Transition{
			{ID: "t1", FromNodeID: "start", ToNodeID: "end_rejected", Condition: "false"},
			{ID: "t2", FromNodeID: "start", ToNodeID: "end_approved", Condition: ""},
		},
	}
	tpl := f.createTemplate(t, def)

	inst, err := f.instances.CreateInstance(ctx, tpl.ID, "", nil, nil)
	require.NoError(t, err)

	_, err = f.processor.DrainQueue(ctx, 0)
	require.NoError(t, err)

	got, err := f.instances.GetInstance(ctx, inst.ID)
	require.NoError(t, err)
	// 第一条条件为false被跳过，第二条空条件成立
	assert.Equal(t, "end_approved", got.CurrentNodeID)
	assert.Equal(t, storage.InstanceStatusCompleted, got.Status)
}

// TestEngine_ImplicitEnd_ZeroOutgoing 测试零出边节点按隐式终点处理
func TestEngine_ImplicitEnd_ZeroOutgoing(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	def := &definition.Definition{
		Nodes: []definition.Node{
			{ID: "start", Type: definition.NodeTypeStart},
		},
	}
	tpl := f.createTemplate(t, def)

	inst, err := f.instances.CreateInstance(ctx, tpl.ID, "", nil, nil)
	require.NoError(t, err)

	_, err = f.processor.DrainQueue(ctx, 0)
	require.NoError(t, err)

	got, err := f.instances.GetInstance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.InstanceStatusCompleted, got.Status)
	assert.Equal(t, "start", got.CurrentNodeID)
}

// TestEngine_Stall_NoTrueCondition 测试无转移条件成立时实例停滞
func TestEngine_Stall_NoTrueCondition(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	def := &definition.Definition{
		Nodes: []definition.Node{
			{ID: "start", Type: definition.NodeTypeStart},
			{ID: "end", Type: definition.NodeTypeEnd},
		},
		Transitions: []definition.Transition{
			{ID: "t1", FromNodeID: "start", ToNodeID: "end", Condition: "false"},
		},
	}
	tpl := f.createTemplate(t, def)

	inst, err := f.instances.CreateInstance(ctx, tpl.ID, "", nil, nil)
	require.NoError(t, err)

	result, err := f.processor.DrainQueue(ctx, 0)
	require.NoError(t, err)
	// 停滞不视为处理失败
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 0, result.Failed)

	got, err := f.instances.GetInstance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, "start", got.CurrentNodeID)
	assert.Equal(t, storage.InstanceStatusRunning, got.Status)

	// 队列项已消费完毕
	pending, err := f.repo.ListPendingQueueItems(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

// TestEngine_UnresolvableDestination_SoftSkip 测试目标节点无法解析时跳到下一候选
func TestEngine_UnresolvableDestination_SoftSkip(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	// 绕过模板校验直接入库，模拟定义损坏的存量模板
	tpl := &storage.WorkflowTemplate{
		ID:     "tpl-broken",
		Code:   "broken",
		Name:   "损坏模板",
		Active: true,
		Definition: &definition.Definition{
			Nodes: []definition.Node{
				{ID: "start", Type: definition.NodeTypeStart},
				{ID: "end", Type: definition.NodeTypeEnd},
			},
			Transitions: []definition.Transition{
				{ID: "t1", FromNodeID: "start", ToNodeID: "ghost"},
				{ID: "t2", FromNodeID: "start", ToNodeID: "end"},
			},
		},
	}
	require.NoError(t, f.repo.SaveTemplate(ctx, tpl))

	inst, err := f.instances.CreateInstance(ctx, tpl.ID, "", nil, nil)
	require.NoError(t, err)

	result, err := f.processor.DrainQueue(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)

	got, err := f.instances.GetInstance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, "end", got.CurrentNodeID)
}

// TestEngine_FatalAdvance_MarksQueueItemFailed 测试致命错误把队列项置为FAILED
func TestEngine_FatalAdvance_MarksQueueItemFailed(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	// 实例不存在的队列项
	queueID, err := f.repo.EnqueueAdvance(ctx, "ghost-instance")
	require.NoError(t, err)

	err = f.processor.ProcessQueueItem(ctx, queueID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDefinitionMissing)

	item, err := f.repo.GetQueueItem(ctx, queueID)
	require.NoError(t, err)
	assert.Equal(t, storage.QueueStatusFailed, item.Status)
	assert.NotEmpty(t, item.ErrorMessage)
}

// TestEngine_ProcessQueueItem_Idempotent 测试重复触发同一队列项安全
func TestEngine_ProcessQueueItem_Idempotent(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.registerServiceFunction(t, "notify_hr")

	def := approvalFlow()
	def.Nodes[1].FunctionCode = "notify_hr"
	tpl := f.createTemplate(t, def)

	inst, err := f.instances.CreateInstance(ctx, tpl.ID, "", nil, nil)
	require.NoError(t, err)

	pending, err := f.repo.ListPendingQueueItems(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	queueID := pending[0].ID

	require.NoError(t, f.processor.ProcessQueueItem(ctx, queueID))
	// 第二次触发是no-op，不会再次推进
	require.NoError(t, f.processor.ProcessQueueItem(ctx, queueID))

	got, err := f.instances.GetInstance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, "approve", got.CurrentNodeID)

	tasks, err := f.repo.ListTasksByInstance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	// 不存在的队列项同样no-op
	assert.NoError(t, f.processor.ProcessQueueItem(ctx, "ghost-queue-item"))
}

// TestEngine_CompleteTask_Idempotent 测试任务重复完成被拒绝且不重复入队
func TestEngine_CompleteTask_Idempotent(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.registerApproveFunction(t)
	tpl := f.createTemplate(t, approvalFlow())

	_, err := f.instances.CreateInstance(ctx, tpl.ID, "", map[string]string{"approve": "alice"}, nil)
	require.NoError(t, err)

	_, err = f.processor.DrainQueue(ctx, 0)
	require.NoError(t, err)

	tasks, err := f.tasks.ListPendingTasks(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	taskID := tasks[0].Task.ID

	require.NoError(t, f.tasks.CompleteTask(ctx, taskID, map[string]any{"decision": "APPROVED"}))

	// 第二次提交被拒绝
	err = f.tasks.CompleteTask(ctx, taskID, map[string]any{"decision": "REJECTED"})
	assert.ErrorIs(t, err, ErrTaskAlreadyResolved)

	// 只入队了一条推进请求
	pending, err := f.repo.ListPendingQueueItems(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	// 首次提交的输出不被覆盖
	got, err := f.tasks.GetTask(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, "APPROVED", got.OutputData["decision"])
}

// TestEngine_DrainQueue_Limit 测试排空的limit约束
func TestEngine_DrainQueue_Limit(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.repo.EnqueueAdvance(ctx, "ghost-instance")
		require.NoError(t, err)
	}

	result, err := f.processor.DrainQueue(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 2, result.Failed)

	remaining, err := f.repo.ListPendingQueueItems(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

// TestEngine_GetLatestContext_NoVersions 测试无上下文版本时返回空版本0
func TestEngine_GetLatestContext_NoVersions(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	// 绕过CreateInstance直接落库，不写初始上下文
	require.NoError(t, f.repo.SaveInstance(ctx, &storage.WorkflowInstance{
		ID:            "inst-raw",
		TemplateID:    "tpl-001",
		Name:          "raw",
		Status:        storage.InstanceStatusRunning,
		CurrentNodeID: "start",
	}))

	c, err := f.instances.GetLatestContext(ctx, "inst-raw")
	require.NoError(t, err)
	assert.Equal(t, 0, c.Version)
	assert.Empty(t, c.ContextData)
}

// TestEngine_TemplateManager_Validation 测试模板创建时的整体校验
func TestEngine_TemplateManager_Validation(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	// 函数未注册的TASK节点被拒绝
	err := f.templates.CreateTemplate(ctx, &storage.WorkflowTemplate{
		Code:       "leave_approval",
		Name:       "请假审批",
		Definition: approvalFlow(),
	})
	require.Error(t, err)

	assert.Error(t, f.templates.CreateTemplate(ctx, &storage.WorkflowTemplate{Name: "无编码"}))
	assert.Error(t, f.templates.CreateTemplate(ctx, &storage.WorkflowTemplate{Code: "no_def"}))

	// 注册函数后同一定义可以通过
	f.registerApproveFunction(t)
	assert.NoError(t, f.templates.CreateTemplate(ctx, &storage.WorkflowTemplate{
		Code:       "leave_approval",
		Name:       "请假审批",
		Definition: approvalFlow(),
	}))
}
