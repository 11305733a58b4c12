// Package http 盈亏上下文 REST 接口
package http

import (
	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/commoditytrading/internal/pnl/application"
	"github.com/wyfcoding/pkg/response"
)

type Handler struct {
	pnl *application.PnlService
}

func NewHandler(pnl *application.PnlService) *Handler {
	return &Handler{pnl: pnl}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	p := r.Group("/pnl")
	{
		p.GET("/realized", h.Realized)
		p.GET("/unrealized", h.Unrealized)
		p.GET("/summary", h.Summary)
	}
}

func (h *Handler) Realized(c *gin.Context) {
	items, err := h.pnl.Realized(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, items)
}

func (h *Handler) Unrealized(c *gin.Context) {
	items, err := h.pnl.Unrealized(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, items)
}

func (h *Handler) Summary(c *gin.Context) {
	summary, err := h.pnl.BuildSummary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, summary)
}
