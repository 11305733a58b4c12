package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/xerrors"

	contractdomain "github.com/wyfcoding/commoditytrading/internal/contract/domain"
	mddomain "github.com/wyfcoding/commoditytrading/internal/marketdata/domain"
	"github.com/wyfcoding/commoditytrading/internal/pricing/domain"
)

// CurveAverager 作价期均价计算入口，由行情上下文提供实现。
type CurveAverager interface {
	Average(ctx context.Context, curveID uint, start, end time.Time, snapshot *time.Time) (mddomain.WindowAverage, error)
}

// PricingEngine 定价引擎：作价期解析、曲线均价、公式求值三步编排，
// 结果写穿到船货缓存字段。
type PricingEngine struct {
	formulas  domain.FormulaRepository
	contracts contractdomain.ContractRepository
	shipments contractdomain.ShipmentRepository
	assays    contractdomain.AssayRepository
	curves    CurveAverager
	logger    *slog.Logger
}

func NewPricingEngine(
	formulas domain.FormulaRepository,
	contracts contractdomain.ContractRepository,
	shipments contractdomain.ShipmentRepository,
	assays contractdomain.AssayRepository,
	curves CurveAverager,
	logger *slog.Logger,
) *PricingEngine {
	return &PricingEngine{
		formulas:  formulas,
		contracts: contracts,
		shipments: shipments,
		assays:    assays,
		curves:    curves,
		logger:    logger,
	}
}

// PricingResult 一次定价运行的完整结果。
type PricingResult struct {
	ShipmentID uint                  `json:"shipment_id"`
	AssayType  contractdomain.AssayType `json:"assay_type"`
	QPStart    time.Time             `json:"qp_start"`
	QPEnd      time.Time             `json:"qp_end"`
	PointCount int                   `json:"point_count"`
	Price      decimal.Decimal       `json:"price"`
	Breakdown  domain.PriceBreakdown `json:"breakdown"`
	PnfAmount  *decimal.Decimal      `json:"pnf_amount,omitempty"`
}

// ComputeProvisional 按暂定化验单计算暂定价并写入船货。
func (e *PricingEngine) ComputeProvisional(ctx context.Context, shipmentID uint) (*PricingResult, error) {
	result, shipment, err := e.compute(ctx, shipmentID, contractdomain.AssayTypeProvisional)
	if err != nil {
		return nil, err
	}

	shipment.ProvisionalPrice = &result.Price
	if err := e.shipments.Update(ctx, shipment); err != nil {
		return nil, err
	}
	e.logger.InfoContext(ctx, "provisional price computed",
		"shipment_id", shipmentID, "price", result.Price, "qp_points", result.PointCount)
	return result, nil
}

// ComputeFinal 按终局化验单计算终价；暂定价与提单量齐备时
// 同步结算 P&F 金额（金额两位小数），否则 P&F 置空。
func (e *PricingEngine) ComputeFinal(ctx context.Context, shipmentID uint) (*PricingResult, error) {
	result, shipment, err := e.compute(ctx, shipmentID, contractdomain.AssayTypeFinal)
	if err != nil {
		return nil, err
	}

	shipment.FinalPrice = &result.Price
	shipment.PnfAmount = nil
	if shipment.ProvisionalPrice != nil && shipment.BLQuantity != nil {
		pnf := result.Price.Sub(*shipment.ProvisionalPrice).Mul(*shipment.BLQuantity).Round(2)
		shipment.PnfAmount = &pnf
	}
	if err := e.shipments.Update(ctx, shipment); err != nil {
		return nil, err
	}
	result.PnfAmount = shipment.PnfAmount

	e.logger.InfoContext(ctx, "final price computed",
		"shipment_id", shipmentID, "price", result.Price, "pnf_settled", shipment.PnfAmount != nil)
	return result, nil
}

func (e *PricingEngine) compute(ctx context.Context, shipmentID uint, assayType contractdomain.AssayType) (*PricingResult, *contractdomain.Shipment, error) {
	shipment, err := e.shipments.FindByID(ctx, shipmentID)
	if err != nil {
		return nil, nil, err
	}
	if shipment.BLDate == nil {
		return nil, nil, xerrors.InvalidArg("shipment has no BL date").
			WithContext("shipment_id", shipmentID)
	}

	contract, err := e.contracts.FindByID(ctx, shipment.ContractID)
	if err != nil {
		return nil, nil, err
	}
	formula, err := e.formulas.FindByID(ctx, contract.PricingFormulaID)
	if err != nil {
		return nil, nil, err
	}
	assay, err := e.assays.FindByShipmentAndType(ctx, shipmentID, assayType)
	if err != nil {
		return nil, nil, err
	}

	window, err := domain.ResolveQPWindow(contract.QPConvention, *shipment.BLDate, contract.QPStartOffset, contract.QPEndOffset)
	if err != nil {
		return nil, nil, err
	}
	avg, err := e.curves.Average(ctx, formula.CurveID, window.Start, window.End, nil)
	if err != nil {
		return nil, nil, err
	}

	breakdown := domain.Evaluate(formula, avg.Average, assay.Fe, assay.Moisture, assay.Elements())
	return &PricingResult{
		ShipmentID: shipmentID,
		AssayType:  assayType,
		QPStart:    window.Start,
		QPEnd:      window.End,
		PointCount: avg.Count,
		Price:      breakdown.TotalPrice,
		Breakdown:  breakdown,
	}, shipment, nil
}
