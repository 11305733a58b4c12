// Package http 敞口上下文 REST 接口
package http

import (
	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/commoditytrading/internal/exposure/application"
	"github.com/wyfcoding/pkg/response"
)

type Handler struct {
	exposure *application.ExposureService
}

func NewHandler(exposure *application.ExposureService) *Handler {
	return &Handler{exposure: exposure}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/exposure", h.Summary)
}

func (h *Handler) Summary(c *gin.Context) {
	summary, err := h.exposure.BuildSummary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, summary)
}
