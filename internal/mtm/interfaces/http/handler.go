// Package http 盯市上下文 REST 接口
package http

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/commoditytrading/internal/mtm/application"
	datetime "github.com/wyfcoding/pkg/utils"
	"github.com/wyfcoding/pkg/response"
	"github.com/wyfcoding/pkg/xerrors"
)

type Handler struct {
	mtm *application.MtmService
}

func NewHandler(mtm *application.MtmService) *Handler {
	return &Handler{mtm: mtm}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	m := r.Group("/mtm")
	{
		m.POST("/run", h.RunPortfolio)
		m.POST("/contracts/:id/run", h.RunForContract)
		m.GET("/contracts/:id/history", h.History)
	}
}

type runReq struct {
	ValuationDate string `json:"valuation_date"`
	SnapshotDate  string `json:"snapshot_date"`
}

// parseRun 估值日缺省取当日。
func parseRun(c *gin.Context) (time.Time, *time.Time, bool) {
	var req runReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, xerrors.InvalidArg(err.Error()))
		return time.Time{}, nil, false
	}
	valuationDate := time.Now().UTC().Truncate(24 * time.Hour)
	if req.ValuationDate != "" {
		parsed, err := datetime.ParseDate(req.ValuationDate)
		if err != nil {
			response.Error(c, xerrors.InvalidArg("valuation_date must be an ISO date"))
			return time.Time{}, nil, false
		}
		valuationDate = parsed
	}
	var snapshot *time.Time
	if req.SnapshotDate != "" {
		parsed, err := datetime.ParseDate(req.SnapshotDate)
		if err != nil {
			response.Error(c, xerrors.InvalidArg("snapshot_date must be an ISO date"))
			return time.Time{}, nil, false
		}
		snapshot = &parsed
	}
	return valuationDate, snapshot, true
}

func (h *Handler) RunPortfolio(c *gin.Context) {
	valuationDate, snapshot, ok := parseRun(c)
	if !ok {
		return
	}
	result, err := h.mtm.RunPortfolio(c.Request.Context(), valuationDate, snapshot)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

func (h *Handler) RunForContract(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.Error(c, xerrors.InvalidArg("invalid id"))
		return
	}
	valuationDate, snapshot, ok := parseRun(c)
	if !ok {
		return
	}
	record, err := h.mtm.RunForContract(c.Request.Context(), uint(id), valuationDate, snapshot)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, record)
}

func (h *Handler) History(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.Error(c, xerrors.InvalidArg("invalid id"))
		return
	}
	records, err := h.mtm.History(c.Request.Context(), uint(id))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, records)
}
