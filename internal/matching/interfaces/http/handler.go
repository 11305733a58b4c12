// Package http 撮合上下文 REST 接口
package http

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/commoditytrading/internal/matching/application"
	datetime "github.com/wyfcoding/pkg/utils"
	"github.com/wyfcoding/pkg/response"
	"github.com/wyfcoding/pkg/xerrors"
)

type Handler struct {
	matching *application.MatchingService
}

func NewHandler(matching *application.MatchingService) *Handler {
	return &Handler{matching: matching}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	m := r.Group("/matching")
	{
		m.POST("/run", h.RunFIFO)
		m.POST("/manual", h.CreateManualMatch)
		m.POST("/unwind", h.UnwindAll)
		m.GET("/matches", h.ListMatches)
		m.DELETE("/matches/:id", h.DeleteMatch)
	}
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.Error(c, xerrors.InvalidArg("invalid id"))
		return 0, false
	}
	return uint(id), true
}

func (h *Handler) RunFIFO(c *gin.Context) {
	result, err := h.matching.RunFIFO(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

type ManualMatchReq struct {
	BuyContractID  uint            `json:"buy_contract_id" binding:"required"`
	SellContractID uint            `json:"sell_contract_id" binding:"required"`
	Quantity       decimal.Decimal `json:"quantity" binding:"required"`
	MatchDate      *string         `json:"match_date"`
}

func (h *Handler) CreateManualMatch(c *gin.Context) {
	var req ManualMatchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, xerrors.InvalidArg(err.Error()))
		return
	}
	cmd := application.ManualMatchCmd{
		BuyContractID:  req.BuyContractID,
		SellContractID: req.SellContractID,
		Quantity:       req.Quantity,
	}
	if req.MatchDate != nil {
		d, err := datetime.ParseDate(*req.MatchDate)
		if err != nil {
			response.Error(c, xerrors.InvalidArg("match_date must be an ISO date"))
			return
		}
		cmd.MatchDate = &d
	}
	match, err := h.matching.CreateManualMatch(c.Request.Context(), cmd)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, match)
}

func (h *Handler) UnwindAll(c *gin.Context) {
	count, err := h.matching.UnwindAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": count})
}

func (h *Handler) ListMatches(c *gin.Context) {
	if v := c.Query("contract_id"); v != "" {
		contractID, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			response.Error(c, xerrors.InvalidArg("invalid contract_id"))
			return
		}
		matches, err := h.matching.ListByContract(c.Request.Context(), uint(contractID))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, matches)
		return
	}
	matches, err := h.matching.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, matches)
}

func (h *Handler) DeleteMatch(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.matching.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": id})
}
