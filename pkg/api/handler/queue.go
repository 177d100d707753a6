package handler

import (
	"net/http"

	"github.com/LENAX/process-engine/pkg/api/dto"
	"github.com/LENAX/process-engine/pkg/core/engine"
	"github.com/gin-gonic/gin"
)

// QueueHandler 队列API处理器
type QueueHandler struct {
	engine *engine.Engine
}

// NewQueueHandler 创建QueueHandler
func NewQueueHandler(eng *engine.Engine) *QueueHandler {
	return &QueueHandler{engine: eng}
}

// Process 排空待处理队列
// POST /api/v1/queue/process?limit=N
// 幂等，可被定时器或外部调用方重复触发
func (h *QueueHandler) Process(c *gin.Context) {
	var query dto.ProcessQueueQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, "limit参数无效: "+err.Error()))
		return
	}

	result, err := h.engine.Processor.DrainQueue(c.Request.Context(), query.GetDefaultLimit())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.ProcessQueueResponse{
		Processed: result.Processed,
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
	}))
}
