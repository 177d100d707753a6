package handler

import (
	"net/http"

	"github.com/LENAX/process-engine/pkg/api/dto"
	"github.com/LENAX/process-engine/pkg/config"
	"github.com/LENAX/process-engine/pkg/core/engine"
	"github.com/LENAX/process-engine/pkg/storage"
	"github.com/gin-gonic/gin"
)

// TemplateHandler 模板API处理器
type TemplateHandler struct {
	engine *engine.Engine
}

// NewTemplateHandler 创建TemplateHandler
func NewTemplateHandler(eng *engine.Engine) *TemplateHandler {
	return &TemplateHandler{engine: eng}
}

// List 列出全部模板
// GET /api/v1/templates
func (h *TemplateHandler) List(c *gin.Context) {
	templates, err := h.engine.Templates.ListTemplates(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]dto.TemplateSummary, 0, len(templates))
	for _, tpl := range templates {
		items = append(items, toTemplateSummary(tpl))
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.ListResponse[dto.TemplateSummary]{
		Total: len(items),
		Items: items,
	}))
}

// Upload 上传模板（YAML内容）
// POST /api/v1/templates
func (h *TemplateHandler) Upload(c *gin.Context) {
	var req dto.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, "请求参数无效: "+err.Error()))
		return
	}

	tpl, err := config.ParseTemplate([]byte(req.Content))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, err.Error()))
		return
	}

	if err := h.engine.Templates.CreateTemplate(c.Request.Context(), tpl); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, err.Error()))
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(toTemplateSummary(tpl)))
}

// Get 获取模板详情（含完整定义）
// GET /api/v1/templates/:id
func (h *TemplateHandler) Get(c *gin.Context) {
	tpl, err := h.engine.Templates.GetTemplate(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(tpl))
}

// Activate 启用模板
// POST /api/v1/templates/:id/activate
func (h *TemplateHandler) Activate(c *gin.Context) {
	h.setActive(c, true)
}

// Deactivate 停用模板（软删除）
// POST /api/v1/templates/:id/deactivate
func (h *TemplateHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

func (h *TemplateHandler) setActive(c *gin.Context, active bool) {
	if err := h.engine.Templates.SetActive(c.Request.Context(), c.Param("id"), active); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(map[string]any{
		"id":     c.Param("id"),
		"active": active,
	}))
}

// toTemplateSummary 模板模型转DTO
func toTemplateSummary(tpl *storage.WorkflowTemplate) dto.TemplateSummary {
	nodeCount := 0
	if tpl.Definition != nil {
		nodeCount = len(tpl.Definition.Nodes)
	}
	return dto.TemplateSummary{
		ID:           tpl.ID,
		Code:         tpl.Code,
		Name:         tpl.Name,
		WorkflowType: tpl.WorkflowType,
		MaturityGate: tpl.MaturityGate,
		Active:       tpl.Active,
		NodeCount:    nodeCount,
		CreatedAt:    tpl.CreateTime,
	}
}
