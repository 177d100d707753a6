package function

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LENAX/process-engine/pkg/core/schema"
	"github.com/LENAX/process-engine/pkg/storage"
	"github.com/LENAX/process-engine/pkg/storage/sqlite"
)

func newTestRegistry(t *testing.T) (*Registry, storage.EngineRepository) {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "registry_test.db")
	repo, err := sqlite.NewEngineRepoFromDSN(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return NewRegistry(repo), repo
}

func userTaskMeta(code string) *storage.FunctionMeta {
	return &storage.FunctionMeta{
		Code:     code,
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
	}
}

// TestRegistry_RegisterAndGet 测试函数注册与查询
func TestRegistry_RegisterAndGet(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, registry.Register(ctx, userTaskMeta("approve_leave")))

	meta, err := registry.Get(ctx, "approve_leave")
	require.NoError(t, err)
	assert.Equal(t, storage.TaskTypeUser, meta.TaskType)
	assert.False(t, meta.CreateTime.IsZero())

	_, err = registry.Get(ctx, "ghost")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

// TestRegistry_Register_Invalid 测试非法注册参数
func TestRegistry_Register_Invalid(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	assert.Error(t, registry.Register(ctx, &storage.FunctionMeta{TaskType: storage.TaskTypeUser}))
	assert.Error(t, registry.Register(ctx, &storage.FunctionMeta{Code: "x", TaskType: "CRON_TASK"}))
}

// TestRegistry_Load 测试启动时批量加载缓存
func TestRegistry_Load(t *testing.T) {
	registry, repo := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, registry.Register(ctx, userTaskMeta("approve_leave")))

	// 新Registry实例从数据库加载
	fresh := NewRegistry(repo)
	require.NoError(t, fresh.Load(ctx))
	assert.True(t, fresh.IsActive("approve_leave"))
}

// TestRegistry_GetFallsBackToRepo 测试缓存未命中时回源数据库
func TestRegistry_GetFallsBackToRepo(t *testing.T) {
	registry, repo := newTestRegistry(t)
	ctx := context.Background()

	// 绕过Registry直接入库，模拟其他进程注册的函数
	fn := userTaskMeta("notify_hr")
	require.NoError(t, repo.SaveFunction(ctx, fn))

	meta, err := registry.Get(ctx, "notify_hr")
	require.NoError(t, err)
	assert.Equal(t, "notify_hr", meta.Code)
}

// TestRegistry_IsActive 测试启用状态检查
func TestRegistry_IsActive(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, registry.Register(ctx, userTaskMeta("approve_leave")))
	assert.True(t, registry.IsActive("approve_leave"))
	assert.False(t, registry.IsActive("ghost"))

	require.NoError(t, registry.SetActive(ctx, "approve_leave", false))
	assert.False(t, registry.IsActive("approve_leave"))
}

// TestRegistry_OutputSchema 测试输出Schema查询
func TestRegistry_OutputSchema(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, registry.Register(ctx, userTaskMeta("approve_leave")))

	s, err := registry.OutputSchema(ctx, "approve_leave")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Contains(t, s.Required, "decision")

	// 无Schema的函数返回nil
	plain := userTaskMeta("notify_hr")
	plain.TaskType = storage.TaskTypeService
	plain.OutputSchema = nil
	require.NoError(t, registry.Register(ctx, plain))

	s, err = registry.OutputSchema(ctx, "notify_hr")
	require.NoError(t, err)
	assert.Nil(t, s)
}
