package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LENAX/process-engine/pkg/api/dto"
	"github.com/LENAX/process-engine/pkg/core/engine"
	"github.com/LENAX/process-engine/pkg/storage/sqlite"
)

const templateYAML = `
code: leave_approval
name: 请假审批
nodes:
  - id: start
    type: START
    label: 开始
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
`

// setupTestServer 搭建基于文件SQLite的API测试服务
// 引擎不Start：推进统一通过 POST /queue/process 显式触发，便于逐步断言
func setupTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := filepath.Join(t.TempDir(), "api_test.db")
	repo, err := sqlite.NewEngineRepoFromDSN(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	eng, err := engine.NewEngine(repo, engine.Options{})
	require.NoError(t, err)

	return SetupRouter(eng, "test")
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse[T any](t *testing.T, w *httptest.ResponseRecorder) dto.APIResponse[T] {
	t.Helper()
	var resp dto.APIResponse[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func registerApproveFunction(t *testing.T, router *gin.Engine) {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/v1/functions", map[string]any{
		"code":      "approve_leave",
		"name":      "请假审批",
		"task_type": "USER_TASK",
		"output_schema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"decision": map[string]any{"type": "string", "enum": []string{"APPROVED", "REJECTED"}},
			},
			"required": []string{"decision"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func uploadTemplate(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/v1/templates", map[string]any{"content": templateYAML})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeResponse[dto.TemplateSummary](t, w)
	require.NotEmpty(t, resp.Data.ID)
	return resp.Data.ID
}

// TestAPI_Health 测试健康检查端点
func TestAPI_Health(t *testing.T) {
	router := setupTestServer(t)

	w := doJSON(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse[dto.HealthResponse](t, w)
	assert.Equal(t, "healthy", resp.Data.Status)
	assert.Equal(t, "test", resp.Data.Version)
}

// TestAPI_TemplateLifecycle 测试模板上传、查询与启停
func TestAPI_TemplateLifecycle(t *testing.T) {
	router := setupTestServer(t)
	registerApproveFunction(t, router)
	tplID := uploadTemplate(t, router)

	// 列表
	w := doJSON(t, router, http.MethodGet, "/api/v1/templates", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeResponse[dto.ListResponse[dto.TemplateSummary]](t, w)
	require.Equal(t, 1, list.Data.Total)
	assert.Equal(t, "leave_approval", list.Data.Items[0].Code)
	assert.Equal(t, 3, list.Data.Items[0].NodeCount)
	assert.True(t, list.Data.Items[0].Active)

	// 停用后创建实例被拒绝
	w = doJSON(t, router, http.MethodPost, "/api/v1/templates/"+tplID+"/deactivate", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/instances", map[string]any{
		"template_id":      tplID,
		"task_assignments": map[string]string{"approve": "alice"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 重新启用
	w = doJSON(t, router, http.MethodPost, "/api/v1/templates/"+tplID+"/activate", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// 非法YAML被拒绝
	w = doJSON(t, router, http.MethodPost, "/api/v1/templates", map[string]any{"content": "nodes: [broken"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestAPI_InstanceLifecycle 测试实例从创建到完成的API全流程
func TestAPI_InstanceLifecycle(t *testing.T) {
	router := setupTestServer(t)
	registerApproveFunction(t, router)
	tplID := uploadTemplate(t, router)

	// 创建实例
	w := doJSON(t, router, http.MethodPost, "/api/v1/instances", map[string]any{
		"template_id":      tplID,
		"task_assignments": map[string]string{"approve": "alice"},
		"initial_context":  map[string]any{"days": 3},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	created := decodeResponse[dto.CreateInstanceResponse](t, w)
	instanceID := created.Data.InstanceID
	require.NotEmpty(t, instanceID)

	// 触发队列处理：START -> approve
	w = doJSON(t, router, http.MethodPost, "/api/v1/queue/process", nil)
	require.Equal(t, http.StatusOK, w.Code)
	drained := decodeResponse[dto.ProcessQueueResponse](t, w)
	assert.Equal(t, 1, drained.Data.Processed)
	assert.Equal(t, 1, drained.Data.Succeeded)

	// alice的待办任务
	w = doJSON(t, router, http.MethodGet, "/api/v1/tasks/pending?assignee=alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	pending := decodeResponse[dto.ListResponse[dto.PendingTaskResponse]](t, w)
	require.Equal(t, 1, pending.Data.Total)
	task := pending.Data.Items[0]
	assert.Equal(t, instanceID, task.InstanceID)
	require.NotNil(t, task.OutputSchema)

	// 不符合输出Schema的提交返回422和字段明细
	w = doJSON(t, router, http.MethodPost, "/api/v1/tasks/"+task.TaskID+"/complete", map[string]any{
		"output": map[string]any{"decision": "MAYBE"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var ve dto.ValidationErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ve))
	require.Len(t, ve.Errors, 1)
	assert.Equal(t, "decision", ve.Errors[0].Field)

	// 合法提交
	w = doJSON(t, router, http.MethodPost, "/api/v1/tasks/"+task.TaskID+"/complete", map[string]any{
		"output": map[string]any{"decision": "APPROVED"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// 重复提交返回409
	w = doJSON(t, router, http.MethodPost, "/api/v1/tasks/"+task.TaskID+"/complete", map[string]any{
		"output": map[string]any{"decision": "REJECTED"},
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// 再次触发队列处理：approve -> end
	w = doJSON(t, router, http.MethodPost, "/api/v1/queue/process", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// 实例状态
	w = doJSON(t, router, http.MethodGet, "/api/v1/instances/"+instanceID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := decodeResponse[dto.InstanceStatusResponse](t, w)
	assert.Equal(t, "COMPLETED", status.Data.Status)
	assert.Equal(t, "end", status.Data.CurrentNodeID)
	assert.Equal(t, 100.0, status.Data.ProgressPercentage)

	// 上下文包含任务输出
	w = doJSON(t, router, http.MethodGet, "/api/v1/instances/"+instanceID+"/context", nil)
	require.Equal(t, http.StatusOK, w.Code)
	contextResp := decodeResponse[dto.ContextResponse](t, w)
	assert.Equal(t, 2, contextResp.Data.Version)
	assert.Equal(t, "APPROVED", contextResp.Data.ContextData["decision"])

	// 历史记录
	w = doJSON(t, router, http.MethodGet, "/api/v1/instances/"+instanceID+"/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decodeResponse[dto.ListResponse[dto.HistoryItem]](t, w)
	assert.GreaterOrEqual(t, history.Data.Total, 3)
}

// TestAPI_InstanceErrors 测试实例API的错误映射
func TestAPI_InstanceErrors(t *testing.T) {
	router := setupTestServer(t)
	registerApproveFunction(t, router)
	tplID := uploadTemplate(t, router)

	// 模板不存在 -> 404
	w := doJSON(t, router, http.MethodPost, "/api/v1/instances", map[string]any{"template_id": "ghost"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 人工任务缺少指派 -> 400
	w = doJSON(t, router, http.MethodPost, "/api/v1/instances", map[string]any{"template_id": tplID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 实例不存在 -> 404
	w = doJSON(t, router, http.MethodGet, "/api/v1/instances/ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 任务不存在 -> 404
	w = doJSON(t, router, http.MethodPost, "/api/v1/tasks/ghost/complete", map[string]any{
		"output": map[string]any{"decision": "APPROVED"},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 待办查询缺少assignee -> 400
	w = doJSON(t, router, http.MethodGet, "/api/v1/tasks/pending", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 请求体缺少必填字段 -> 400
	w = doJSON(t, router, http.MethodPost, "/api/v1/instances", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestAPI_FunctionRegistration 测试函数注册API
func TestAPI_FunctionRegistration(t *testing.T) {
	router := setupTestServer(t)

	// 非法task_type被绑定校验拒绝
	w := doJSON(t, router, http.MethodPost, "/api/v1/functions", map[string]any{
		"code":      "x",
		"name":      "x",
		"task_type": "CRON_TASK",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	registerApproveFunction(t, router)

	w = doJSON(t, router, http.MethodGet, "/api/v1/functions", nil)
	require.Equal(t, http.StatusOK, w.Code)
}
