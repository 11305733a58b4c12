// Package http 合同上下文 REST 接口
package http

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/commoditytrading/internal/contract/application"
	"github.com/wyfcoding/commoditytrading/internal/contract/domain"
	datetime "github.com/wyfcoding/pkg/utils"
	"github.com/wyfcoding/pkg/response"
	"github.com/wyfcoding/pkg/xerrors"
)

type Handler struct {
	contracts *application.ContractService
	shipments *application.ShipmentService
}

func NewHandler(contracts *application.ContractService, shipments *application.ShipmentService) *Handler {
	return &Handler{contracts: contracts, shipments: shipments}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	c := r.Group("/contracts")
	{
		c.POST("", h.CreateContract)
		c.GET("", h.ListContracts)
		c.GET("/:id", h.GetContract)
		c.PUT("/:id", h.UpdateContract)
		c.PUT("/:id/status", h.UpdateContractStatus)
		c.DELETE("/:id", h.DeleteContract)
		c.GET("/:id/open-quantity", h.GetOpenQuantity)
		c.GET("/:id/shipments", h.ListShipments)
	}
	s := r.Group("/shipments")
	{
		s.POST("", h.CreateShipment)
		s.GET("/:id", h.GetShipment)
		s.PUT("/:id", h.UpdateShipment)
		s.DELETE("/:id", h.DeleteShipment)
		s.POST("/:id/assays", h.AddAssay)
		s.GET("/:id/assays", h.ListAssays)
	}
	r.DELETE("/assays/:id", h.DeleteAssay)
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.Error(c, xerrors.InvalidArg("invalid id"))
		return 0, false
	}
	return uint(id), true
}

type CreateContractReq struct {
	Reference        string          `json:"reference" binding:"required"`
	Direction        string          `json:"direction" binding:"required"`
	Counterparty     string          `json:"counterparty" binding:"required"`
	Commodity        string          `json:"commodity"`
	Quantity         decimal.Decimal `json:"quantity" binding:"required"`
	UOM              string          `json:"uom"`
	Incoterm         string          `json:"incoterm"`
	DeliveryStart    string          `json:"delivery_start" binding:"required"`
	DeliveryEnd      string          `json:"delivery_end" binding:"required"`
	QPConvention     string          `json:"qp_convention"`
	QPStartOffset    *int            `json:"qp_start_offset"`
	QPEndOffset      *int            `json:"qp_end_offset"`
	PricingFormulaID uint            `json:"pricing_formula_id" binding:"required"`
}

func (h *Handler) CreateContract(c *gin.Context) {
	var req CreateContractReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, xerrors.InvalidArg(err.Error()))
		return
	}
	start, err := datetime.ParseDate(req.DeliveryStart)
	if err != nil {
		response.Error(c, xerrors.InvalidArg("delivery_start must be an ISO date"))
		return
	}
	end, err := datetime.ParseDate(req.DeliveryEnd)
	if err != nil {
		response.Error(c, xerrors.InvalidArg("delivery_end must be an ISO date"))
		return
	}
	convention := domain.QPConvention(req.QPConvention)
	if req.QPConvention == "" {
		convention = domain.QPMonthOfBL
	}

	contract, err := h.contracts.Create(c.Request.Context(), application.CreateContractCmd{
		Reference:        req.Reference,
		Direction:        domain.Direction(req.Direction),
		Counterparty:     req.Counterparty,
		Commodity:        req.Commodity,
		Quantity:         req.Quantity,
		UOM:              req.UOM,
		Incoterm:         req.Incoterm,
		DeliveryStart:    start,
		DeliveryEnd:      end,
		QPConvention:     convention,
		QPStartOffset:    req.QPStartOffset,
		QPEndOffset:      req.QPEndOffset,
		PricingFormulaID: req.PricingFormulaID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, contract)
}

func (h *Handler) ListContracts(c *gin.Context) {
	var direction *domain.Direction
	var status *domain.ContractStatus
	if v := c.Query("direction"); v != "" {
		d := domain.Direction(v)
		direction = &d
	}
	if v := c.Query("status"); v != "" {
		s := domain.ContractStatus(v)
		status = &s
	}
	contracts, err := h.contracts.List(c.Request.Context(), direction, status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, contracts)
}

func (h *Handler) GetContract(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	contract, err := h.contracts.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, contract)
}

type UpdateContractReq struct {
	Counterparty  *string          `json:"counterparty"`
	Quantity      *decimal.Decimal `json:"quantity"`
	DeliveryStart *string          `json:"delivery_start"`
	DeliveryEnd   *string          `json:"delivery_end"`
	QPConvention  *string          `json:"qp_convention"`
	QPStartOffset *int             `json:"qp_start_offset"`
	QPEndOffset   *int             `json:"qp_end_offset"`
}

func (h *Handler) UpdateContract(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateContractReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, xerrors.InvalidArg(err.Error()))
		return
	}
	cmd := application.UpdateContractCmd{
		Counterparty:  req.Counterparty,
		Quantity:      req.Quantity,
		QPStartOffset: req.QPStartOffset,
		QPEndOffset:   req.QPEndOffset,
	}
	if req.DeliveryStart != nil {
		d, err := datetime.ParseDate(*req.DeliveryStart)
		if err != nil {
			response.Error(c, xerrors.InvalidArg("delivery_start must be an ISO date"))
			return
		}
		cmd.DeliveryStart = &d
	}
	if req.DeliveryEnd != nil {
		d, err := datetime.ParseDate(*req.DeliveryEnd)
		if err != nil {
			response.Error(c, xerrors.InvalidArg("delivery_end must be an ISO date"))
			return
		}
		cmd.DeliveryEnd = &d
	}
	if req.QPConvention != nil {
		conv := domain.QPConvention(*req.QPConvention)
		cmd.QPConvention = &conv
	}
	contract, err := h.contracts.Update(c.Request.Context(), id, cmd)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, contract)
}

type UpdateStatusReq struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) UpdateContractStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, xerrors.InvalidArg(err.Error()))
		return
	}
	contract, err := h.contracts.UpdateStatus(c.Request.Context(), id, domain.ContractStatus(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, contract)
}

func (h *Handler) DeleteContract(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.contracts.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (h *Handler) GetOpenQuantity(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	oq, err := h.contracts.OpenQuantity(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, oq)
}

func (h *Handler) ListShipments(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	shipments, err := h.shipments.ListByContract(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, shipments)
}

type CreateShipmentReq struct {
	Reference  string           `json:"reference" binding:"required"`
	ContractID uint             `json:"contract_id" binding:"required"`
	VesselName string           `json:"vessel_name"`
	BLDate     *string          `json:"bl_date"`
	BLQuantity *decimal.Decimal `json:"bl_quantity"`
}

func (h *Handler) CreateShipment(c *gin.Context) {
	var req CreateShipmentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, xerrors.InvalidArg(err.Error()))
		return
	}
	cmd := application.CreateShipmentCmd{
		Reference:  req.Reference,
		ContractID: req.ContractID,
		VesselName: req.VesselName,
		BLQuantity: req.BLQuantity,
	}
	if req.BLDate != nil {
		d, err := datetime.ParseDate(*req.BLDate)
		if err != nil {
			response.Error(c, xerrors.InvalidArg("bl_date must be an ISO date"))
			return
		}
		cmd.BLDate = &d
	}
	sh, err := h.shipments.Create(c.Request.Context(), cmd)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, sh)
}

func (h *Handler) GetShipment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	sh, err := h.shipments.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, sh)
}

type UpdateShipmentReq struct {
	VesselName *string          `json:"vessel_name"`
	BLDate     *string          `json:"bl_date"`
	BLQuantity *decimal.Decimal `json:"bl_quantity"`
	Status     *string          `json:"status"`
}

func (h *Handler) UpdateShipment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateShipmentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, xerrors.InvalidArg(err.Error()))
		return
	}
	cmd := application.UpdateShipmentCmd{
		VesselName: req.VesselName,
		BLQuantity: req.BLQuantity,
	}
	if req.BLDate != nil {
		d, err := datetime.ParseDate(*req.BLDate)
		if err != nil {
			response.Error(c, xerrors.InvalidArg("bl_date must be an ISO date"))
			return
		}
		cmd.BLDate = &d
	}
	if req.Status != nil {
		st := domain.ShipmentStatus(*req.Status)
		cmd.Status = &st
	}
	sh, err := h.shipments.Update(c.Request.Context(), id, cmd)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, sh)
}

func (h *Handler) DeleteShipment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.shipments.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

type AddAssayReq struct {
	AssayType string           `json:"assay_type" binding:"required"`
	Fe        *decimal.Decimal `json:"fe"`
	Moisture  *decimal.Decimal `json:"moisture"`
	SiO2      *decimal.Decimal `json:"sio2"`
	Al2O3     *decimal.Decimal `json:"al2o3"`
	P         *decimal.Decimal `json:"p"`
	S         *decimal.Decimal `json:"s"`
}

func (h *Handler) AddAssay(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req AddAssayReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, xerrors.InvalidArg(err.Error()))
		return
	}
	a, err := h.shipments.AddAssay(c.Request.Context(), application.AddAssayCmd{
		ShipmentID: id,
		AssayType:  domain.AssayType(req.AssayType),
		Fe:         req.Fe,
		Moisture:   req.Moisture,
		SiO2:       req.SiO2,
		Al2O3:      req.Al2O3,
		P:          req.P,
		S:          req.S,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, a)
}

func (h *Handler) ListAssays(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	assays, err := h.shipments.ListAssays(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, assays)
}

func (h *Handler) DeleteAssay(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.shipments.DeleteAssay(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
