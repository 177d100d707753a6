package handler

import (
	"net/http"

	"github.com/LENAX/process-engine/pkg/api/dto"
	"github.com/LENAX/process-engine/pkg/core/engine"
	"github.com/gin-gonic/gin"
)

// TaskHandler 任务API处理器
type TaskHandler struct {
	engine *engine.Engine
}

// NewTaskHandler 创建TaskHandler
func NewTaskHandler(eng *engine.Engine) *TaskHandler {
	return &TaskHandler{engine: eng}
}

// Pending 获取处理人的待办任务列表
// GET /api/v1/tasks/pending?assignee=xxx
func (h *TaskHandler) Pending(c *gin.Context) {
	var query dto.PendingTasksQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, "assignee参数必填"))
		return
	}

	pending, err := h.engine.Tasks.ListPendingTasks(c.Request.Context(), query.Assignee)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]dto.PendingTaskResponse, 0, len(pending))
	for _, pt := range pending {
		items = append(items, dto.PendingTaskResponse{
			TaskDetail:   toTaskDetail(pt.Task),
			InstanceID:   pt.Task.WorkflowInstanceID,
			InputData:    pt.Task.InputData,
			InputSchema:  pt.InputSchema,
			OutputSchema: pt.OutputSchema,
		})
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.ListResponse[dto.PendingTaskResponse]{
		Total: len(items),
		Items: items,
	}))
}

// Get 获取任务详情
// GET /api/v1/tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.engine.Tasks.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(toTaskDetail(task)))
}

// Complete 提交任务结果
// POST /api/v1/tasks/:id/complete
// 成功后附带触发所属实例的队列排空
func (h *TaskHandler) Complete(c *gin.Context) {
	var req dto.CompleteTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, "请求参数无效: "+err.Error()))
		return
	}

	if err := h.engine.Tasks.CompleteTask(c.Request.Context(), c.Param("id"), req.Output); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(map[string]string{
		"task_id": c.Param("id"),
		"status":  "COMPLETED",
	}))
}
