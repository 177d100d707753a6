package handler

import (
	"errors"
	"net/http"

	"github.com/LENAX/process-engine/pkg/api/dto"
	"github.com/LENAX/process-engine/pkg/core/engine"
	"github.com/LENAX/process-engine/pkg/core/schema"
	"github.com/gin-gonic/gin"
)

// respondError 把引擎错误映射为HTTP响应
// Schema校验错误带字段级明细，便于表单逐项提示
func respondError(c *gin.Context, err error) {
	var ve *schema.ValidationError
	if errors.As(err, &ve) {
		fieldErrors := make([]dto.FieldError, 0, len(ve.Errors))
		for _, fe := range ve.Errors {
			fieldErrors = append(fieldErrors, dto.FieldError{Field: fe.Field, Message: fe.Message})
		}
		c.JSON(http.StatusUnprocessableEntity, dto.ValidationErrorResponse{
			Code:    422,
			Message: "输出数据校验失败",
			Errors:  fieldErrors,
		})
		return
	}

	switch {
	case errors.Is(err, engine.ErrTemplateNotFound),
		errors.Is(err, engine.ErrInstanceNotFound),
		errors.Is(err, engine.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(404, err.Error()))
	case errors.Is(err, engine.ErrTaskAlreadyResolved):
		c.JSON(http.StatusConflict, dto.NewErrorResponse(409, err.Error()))
	case errors.Is(err, engine.ErrMissingAssignment),
		errors.Is(err, engine.ErrTemplateInactive):
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, err.Error()))
	}
}
