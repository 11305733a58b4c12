// Package http 定价上下文 REST 接口
package http

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/commoditytrading/internal/pricing/application"
	"github.com/wyfcoding/pkg/response"
	"github.com/wyfcoding/pkg/xerrors"
)

type Handler struct {
	formulas *application.FormulaService
	engine   *application.PricingEngine
}

func NewHandler(formulas *application.FormulaService, engine *application.PricingEngine) *Handler {
	return &Handler{formulas: formulas, engine: engine}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	f := r.Group("/formulas")
	{
		f.POST("", h.CreateFormula)
		f.GET("", h.ListFormulas)
		f.GET("/:id", h.GetFormula)
		f.PUT("/:id", h.UpdateFormula)
		f.DELETE("/:id", h.DeleteFormula)
		f.POST("/:id/evaluate", h.EvaluateFormula)
	}
	p := r.Group("/pricing")
	{
		p.POST("/shipments/:id/provisional", h.ComputeProvisional)
		p.POST("/shipments/:id/final", h.ComputeFinal)
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

func (h *Handler) CreateFormula(c *gin.Context) {
	var cmd application.CreateFormulaCmd
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.Error(c, xerrors.InvalidArg(err.Error()))
		return
	}
	formula, err := h.formulas.Create(c.Request.Context(), cmd)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, formula)
}

func (h *Handler) ListFormulas(c *gin.Context) {
	formulas, err := h.formulas.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, formulas)
}

func (h *Handler) GetFormula(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	formula, err := h.formulas.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, formula)
}

func (h *Handler) UpdateFormula(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var cmd application.UpdateFormulaCmd
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.Error(c, xerrors.InvalidArg(err.Error()))
		return
	}
	formula, err := h.formulas.Update(c.Request.Context(), id, cmd)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, formula)
}

func (h *Handler) DeleteFormula(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.formulas.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": id})
}

func (h *Handler) EvaluateFormula(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var cmd application.EvaluateCmd
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.Error(c, xerrors.InvalidArg(err.Error()))
		return
	}
	breakdown, err := h.formulas.Evaluate(c.Request.Context(), id, cmd)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, breakdown)
}

func (h *Handler) ComputeProvisional(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	result, err := h.engine.ComputeProvisional(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

func (h *Handler) ComputeFinal(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	result, err := h.engine.ComputeFinal(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
