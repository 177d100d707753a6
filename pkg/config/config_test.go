package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LENAX/process-engine/pkg/core/definition"
)

// TestLoad_MissingFileReturnsDefaults 测试配置文件不存在时回退默认配置
func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/engine.yaml")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.GetDatabaseType())
	assert.Equal(t, "process-engine.db", cfg.GetDatabaseDSN())
	assert.Equal(t, "*/30 * * * * *", cfg.ProcessEngine.Queue.DrainCron)
	assert.Equal(t, 100, cfg.ProcessEngine.Queue.DrainLimit)
	assert.Equal(t, "0.0.0.0", cfg.ProcessEngine.HTTP.Host)
	assert.Equal(t, 8080, cfg.ProcessEngine.HTTP.Port)
	assert.Equal(t, "release", cfg.ProcessEngine.HTTP.Mode)
}

// TestLoad_ParsesYAMLAndFillsDefaults 测试YAML解析与默认值补齐
func TestLoad_ParsesYAMLAndFillsDefaults(t *testing.T) {
	content := `
process-engine:
  general:
    instance_name: engine-01
    env: prod
  storage:
    database:
      type: mysql
      dsn: "user:pass@tcp(localhost:3306)/engine"
  queue:
    drain_cron: "*/5 * * * * *"
  http:
    port: 9090
`
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "engine-01", cfg.ProcessEngine.General.InstanceName)
	assert.Equal(t, "mysql", cfg.GetDatabaseType())
	assert.Equal(t, "*/5 * * * * *", cfg.ProcessEngine.Queue.DrainCron)
	assert.Equal(t, 9090, cfg.ProcessEngine.HTTP.Port)
	// 未配置的字段落默认值
	assert.Equal(t, "0.0.0.0", cfg.ProcessEngine.HTTP.Host)
	assert.Equal(t, 100, cfg.ProcessEngine.Queue.DrainLimit)
	assert.Equal(t, "info", cfg.ProcessEngine.General.LogLevel)
}

// TestLoad_InvalidYAML 测试非法YAML返回错误
func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("process-engine: [not: valid"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

// TestParseTemplate 测试YAML模板解析
func TestParseTemplate(t *testing.T) {
	content := `
code: leave_approval
name: 请假审批
workflow_type: approval
nodes:
  - id: start
    type: START
    label: 开始
    position: {x: 100, y: 200}
  - id: approve
    type: TASK
    label: 审批
    function_code: approve_leave
  - id: end
    type: END
    label: 结束
transitions:
  - id: t1
    from: start
    to: approve
  - id: t2
    from: approve
    to: end
    condition: "true"
`
	tpl, err := ParseTemplate([]byte(content))
	require.NoError(t, err)

	assert.Equal(t, "leave_approval", tpl.Code)
	assert.Equal(t, "请假审批", tpl.Name)
	assert.True(t, tpl.Active)

	require.NotNil(t, tpl.Definition)
	require.Len(t, tpl.Definition.Nodes, 3)
	assert.Equal(t, definition.NodeTypeStart, tpl.Definition.Nodes[0].Type)
	assert.Equal(t, 100.0, tpl.Definition.Nodes[0].Position.X)
	assert.Equal(t, "approve_leave", tpl.Definition.Nodes[1].FunctionCode)

	require.Len(t, tpl.Definition.Transitions, 2)
	assert.Equal(t, "start", tpl.Definition.Transitions[0].FromNodeID)
	assert.Equal(t, "approve", tpl.Definition.Transitions[0].ToNodeID)
	assert.Equal(t, "true", tpl.Definition.Transitions[1].Condition)
}

// TestParseTemplate_Invalid 测试非法模板YAML
func TestParseTemplate_Invalid(t *testing.T) {
	_, err := ParseTemplate([]byte("nodes: [broken"))
	assert.Error(t, err)
}
