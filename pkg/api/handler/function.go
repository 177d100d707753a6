package handler

import (
	"net/http"

	"github.com/LENAX/process-engine/pkg/api/dto"
	"github.com/LENAX/process-engine/pkg/core/engine"
	"github.com/LENAX/process-engine/pkg/storage"
	"github.com/gin-gonic/gin"
)

// FunctionHandler 函数注册API处理器
type FunctionHandler struct {
	engine *engine.Engine
}

// NewFunctionHandler 创建FunctionHandler
func NewFunctionHandler(eng *engine.Engine) *FunctionHandler {
	return &FunctionHandler{engine: eng}
}

// Register 注册函数元数据
// POST /api/v1/functions
func (h *FunctionHandler) Register(c *gin.Context) {
	var req dto.RegisterFunctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, "请求参数无效: "+err.Error()))
		return
	}

	fn := &storage.FunctionMeta{
		Code:         req.Code,
		Name:         req.Name,
		TaskType:     req.TaskType,
		Description:  req.Description,
		InputSchema:  req.InputSchema,
		OutputSchema: req.OutputSchema,
		Active:       true,
	}
	if err := h.engine.Registry.Register(c.Request.Context(), fn); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, err.Error()))
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(map[string]string{
		"code": fn.Code,
	}))
}

// List 列出全部函数元数据
// GET /api/v1/functions
func (h *FunctionHandler) List(c *gin.Context) {
	functions, err := h.engine.Registry.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.ListResponse[*storage.FunctionMeta]{
		Total: len(functions),
		Items: functions,
	}))
}
