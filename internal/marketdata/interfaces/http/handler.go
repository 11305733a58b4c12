// Package http 价格曲线 REST 接口
package http

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/commoditytrading/internal/marketdata/application"
	datetime "github.com/wyfcoding/pkg/utils"
	"github.com/wyfcoding/pkg/response"
	"github.com/wyfcoding/pkg/xerrors"
)

type Handler struct {
	curves *application.CurveService
}

func NewHandler(curves *application.CurveService) *Handler {
	return &Handler{curves: curves}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/curves")
	{
		g.POST("", h.CreateCurve)
		g.GET("", h.ListCurves)
		g.GET("/:id", h.GetCurve)
		g.PUT("/:id", h.UpdateCurve)
		g.DELETE("/:id", h.DeleteCurve)
		g.POST("/:id/data", h.UploadData)
		g.GET("/:id/data", h.QueryData)
		g.GET("/:id/average", h.GetAverage)
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

type CreateCurveReq struct {
	Code     string `json:"code" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Currency string `json:"currency"`
	UOM      string `json:"uom"`
}

func (h *Handler) CreateCurve(c *gin.Context) {
	var req CreateCurveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, xerrors.InvalidArg(err.Error()))
		return
	}
	curve, err := h.curves.Create(c.Request.Context(), application.CreateCurveCmd{
		Code:     req.Code,
		Name:     req.Name,
		Currency: req.Currency,
		UOM:      req.UOM,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, curve)
}

func (h *Handler) ListCurves(c *gin.Context) {
	curves, err := h.curves.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, curves)
}

func (h *Handler) GetCurve(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	curve, err := h.curves.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, curve)
}

type UpdateCurveReq struct {
	Name     *string `json:"name"`
	Currency *string `json:"currency"`
	UOM      *string `json:"uom"`
}

func (h *Handler) UpdateCurve(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateCurveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, xerrors.InvalidArg(err.Error()))
		return
	}
	curve, err := h.curves.Update(c.Request.Context(), id, application.UpdateCurveCmd{
		Name:     req.Name,
		Currency: req.Currency,
		UOM:      req.UOM,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, curve)
}

func (h *Handler) DeleteCurve(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.curves.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

type UploadPointReq struct {
	PriceDate    string          `json:"price_date" binding:"required"`
	SnapshotDate string          `json:"snapshot_date" binding:"required"`
	Price        decimal.Decimal `json:"price" binding:"required"`
}

func (h *Handler) UploadData(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req []UploadPointReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, xerrors.InvalidArg(err.Error()))
		return
	}
	inputs := make([]application.PointInput, 0, len(req))
	for _, p := range req {
		priceDate, err := datetime.ParseDate(p.PriceDate)
		if err != nil {
			response.Error(c, xerrors.InvalidArg("price_date must be an ISO date"))
			return
		}
		snapshotDate, err := datetime.ParseDate(p.SnapshotDate)
		if err != nil {
			response.Error(c, xerrors.InvalidArg("snapshot_date must be an ISO date"))
			return
		}
		inputs = append(inputs, application.PointInput{
			PriceDate:    priceDate,
			SnapshotDate: snapshotDate,
			Price:        p.Price,
		})
	}
	points, err := h.curves.UploadData(c.Request.Context(), id, inputs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, points)
}

func (h *Handler) QueryData(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	start, end, snapshot, ok := parseWindow(c)
	if !ok {
		return
	}
	points, err := h.curves.QueryData(c.Request.Context(), id, start, end, snapshot)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, points)
}

func (h *Handler) GetAverage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	start, end, snapshot, ok := parseWindow(c)
	if !ok {
		return
	}
	avg, err := h.curves.Average(c.Request.Context(), id, start, end, snapshot)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, avg)
}

func parseWindow(c *gin.Context) (start, end time.Time, snapshot *time.Time, ok bool) {
	var err error
	start, err = datetime.ParseDate(c.Query("start_date"))
	if err != nil {
		response.Error(c, xerrors.InvalidArg("start_date must be an ISO date"))
		return start, end, nil, false
	}
	end, err = datetime.ParseDate(c.Query("end_date"))
	if err != nil {
		response.Error(c, xerrors.InvalidArg("end_date must be an ISO date"))
		return start, end, nil, false
	}
	if v := c.Query("snapshot_date"); v != "" {
		s, err := datetime.ParseDate(v)
		if err != nil {
			response.Error(c, xerrors.InvalidArg("snapshot_date must be an ISO date"))
			return start, end, nil, false
		}
		snapshot = &s
	}
	return start, end, snapshot, true
}
