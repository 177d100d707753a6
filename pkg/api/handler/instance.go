package handler

import (
	"net/http"

	"github.com/LENAX/process-engine/pkg/api/dto"
	"github.com/LENAX/process-engine/pkg/core/engine"
	"github.com/LENAX/process-engine/pkg/storage"
	"github.com/gin-gonic/gin"
)

// InstanceHandler 实例API处理器
type InstanceHandler struct {
	engine *engine.Engine
}

// NewInstanceHandler 创建InstanceHandler
func NewInstanceHandler(eng *engine.Engine) *InstanceHandler {
	return &InstanceHandler{engine: eng}
}

// Create 创建工作流实例
// POST /api/v1/instances
func (h *InstanceHandler) Create(c *gin.Context) {
	var req dto.CreateInstanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, "请求参数无效: "+err.Error()))
		return
	}

	inst, err := h.engine.Instances.CreateInstance(
		c.Request.Context(), req.TemplateID, req.InstanceName, req.TaskAssignments, req.InitialContext)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.CreateInstanceResponse{
		InstanceID: inst.ID,
	}))
}

// Get 获取实例状态读模型
// GET /api/v1/instances/:id
func (h *InstanceHandler) Get(c *gin.Context) {
	status, err := h.engine.Instances.GetInstanceStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(toInstanceStatusResponse(status)))
}

// History 获取实例推进历史
// GET /api/v1/instances/:id/history
func (h *InstanceHandler) History(c *gin.Context) {
	records, err := h.engine.Instances.ListHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]dto.HistoryItem, 0, len(records))
	for _, r := range records {
		items = append(items, dto.HistoryItem{
			EventType:  r.EventType,
			FromNodeID: r.FromNodeID,
			ToNodeID:   r.ToNodeID,
			Detail:     r.Detail,
			CreatedAt:  r.CreateTime,
		})
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.ListResponse[dto.HistoryItem]{
		Total: len(items),
		Items: items,
	}))
}

// GetContext 获取实例最新上下文
// GET /api/v1/instances/:id/context
func (h *InstanceHandler) GetContext(c *gin.Context) {
	ctx, err := h.engine.Instances.GetLatestContext(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.ContextResponse{
		InstanceID:  c.Param("id"),
		Version:     ctx.Version,
		ContextData: ctx.ContextData,
	}))
}

// AppendContext 追加实例上下文版本
// POST /api/v1/instances/:id/context
func (h *InstanceHandler) AppendContext(c *gin.Context) {
	var req dto.AppendContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, "请求参数无效: "+err.Error()))
		return
	}

	version, err := h.engine.Instances.AppendContext(c.Request.Context(), c.Param("id"), req.ContextData)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.ContextResponse{
		InstanceID:  c.Param("id"),
		Version:     version,
		ContextData: req.ContextData,
	}))
}

// toInstanceStatusResponse 读模型转DTO
func toInstanceStatusResponse(status *engine.InstanceStatus) dto.InstanceStatusResponse {
	tasks := make([]dto.TaskDetail, 0, len(status.Tasks))
	for _, t := range status.Tasks {
		tasks = append(tasks, toTaskDetail(t))
	}

	return dto.InstanceStatusResponse{
		InstanceID:         status.InstanceID,
		Name:               status.Name,
		Status:             status.Status,
		CurrentNodeID:      status.CurrentNodeID,
		CurrentNodeName:    status.CurrentNodeName,
		Tasks:              tasks,
		ProgressPercentage: status.ProgressPercentage,
		ErrorMessage:       status.ErrorMessage,
		CreatedAt:          status.CreateTime,
		UpdatedAt:          status.UpdateTime,
	}
}

// toTaskDetail 任务模型转DTO
func toTaskDetail(t *storage.InstanceTask) dto.TaskDetail {
	return dto.TaskDetail{
		TaskID:       t.ID,
		NodeID:       t.NodeID,
		FunctionCode: t.FunctionCode,
		TaskType:     t.TaskType,
		Status:       t.Status,
		AssignedTo:   t.AssignedTo,
		CreatedAt:    t.CreateTime,
		CompletedAt:  t.CompleteTime,
		ErrorMessage: t.ErrorMessage,
	}
}
