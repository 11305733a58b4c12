// Package application 盯市引擎：敞口估值与组合级汇总。
package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	contractdomain "github.com/wyfcoding/commoditytrading/internal/contract/domain"
	mddomain "github.com/wyfcoding/commoditytrading/internal/marketdata/domain"
	"github.com/wyfcoding/commoditytrading/internal/mtm/domain"
	pricingdomain "github.com/wyfcoding/commoditytrading/internal/pricing/domain"
)

// CurvePricer 盯市取价入口，由行情上下文提供实现。
type CurvePricer interface {
	Average(ctx context.Context, curveID uint, start, end time.Time, snapshot *time.Time) (mddomain.WindowAverage, error)
	LatestOnOrBefore(ctx context.Context, curveID uint, date time.Time) (*mddomain.CurveDataPoint, error)
	Latest(ctx context.Context, curveID uint) (*mddomain.CurveDataPoint, error)
}

// EventPublisher 估值事件发布出口，允许为空实现。
type EventPublisher interface {
	PublishValuationCompleted(ctx context.Context, valuationDate time.Time, recordCount int, totalMtm decimal.Decimal) error
}

// MtmService 盯市服务。
type MtmService struct {
	records   domain.MtmRepository
	contracts contractdomain.ContractRepository
	shipments contractdomain.ShipmentRepository
	formulas  pricingdomain.FormulaRepository
	curves    CurvePricer
	publisher EventPublisher
	logger    *slog.Logger
}

func NewMtmService(
	records domain.MtmRepository,
	contracts contractdomain.ContractRepository,
	shipments contractdomain.ShipmentRepository,
	formulas pricingdomain.FormulaRepository,
	curves CurvePricer,
	publisher EventPublisher,
	logger *slog.Logger,
) *MtmService {
	return &MtmService{
		records:   records,
		contracts: contracts,
		shipments: shipments,
		formulas:  formulas,
		curves:    curves,
		publisher: publisher,
		logger:    logger,
	}
}

// RunForContract 对单个合同做一次盯市估值并落一条记录。
// 敞口小于等于零时记录敞口与估值均为零，但市场价仍按回退链取得。
func (s *MtmService) RunForContract(ctx context.Context, contractID uint, valuationDate time.Time, snapshot *time.Time) (*domain.MtmRecord, error) {
	contract, err := s.contracts.FindByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	formula, err := s.formulas.FindByID(ctx, contract.PricingFormulaID)
	if err != nil {
		return nil, err
	}
	shipments, err := s.shipments.ListByContract(ctx, contractID)
	if err != nil {
		return nil, err
	}

	curvePrice, err := s.resolveCurvePrice(ctx, formula.CurveID, valuationDate, snapshot)
	if err != nil {
		return nil, err
	}

	open := contractdomain.ComputeOpenQuantity(contract, shipments).OpenQuantity

	record := &domain.MtmRecord{
		ContractID:    contractID,
		ValuationDate: valuationDate,
		SnapshotDate:  snapshot,
		Direction:     contract.Direction,
		CurvePrice:    curvePrice,
		OpenQuantity:  decimal.Zero,
		MtmValue:      decimal.Zero,
	}

	if open.IsPositive() {
		record.OpenQuantity = open
		record.ContractPrice = contractdomain.WeightedAveragePrice(shipments)
		if record.ContractPrice != nil {
			factor := contract.Direction.Factor()
			record.MtmValue = curvePrice.Sub(*record.ContractPrice).
				Mul(open).
				Mul(factor).
				Round(2)
		}
	}

	if err := s.records.Save(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// resolveCurvePrice 按四级回退取市场价：
// 指定快照的当日均价、不限快照的当日最新修正、估值日前最近一点、
// 整条曲线最新一点。只有曲线完全无数据时失败。
func (s *MtmService) resolveCurvePrice(ctx context.Context, curveID uint, valuationDate time.Time, snapshot *time.Time) (decimal.Decimal, error) {
	if snapshot != nil {
		avg, err := s.curves.Average(ctx, curveID, valuationDate, valuationDate, snapshot)
		if err == nil {
			return avg.Average, nil
		}
		if !mddomain.IsNoData(err) {
			return decimal.Zero, err
		}
	}

	avg, err := s.curves.Average(ctx, curveID, valuationDate, valuationDate, nil)
	if err == nil {
		return avg.Average, nil
	}
	if !mddomain.IsNoData(err) {
		return decimal.Zero, err
	}

	point, err := s.curves.LatestOnOrBefore(ctx, curveID, valuationDate)
	if err != nil {
		return decimal.Zero, err
	}
	if point != nil {
		return point.Price, nil
	}

	point, err = s.curves.Latest(ctx, curveID)
	if err != nil {
		return decimal.Zero, err
	}
	if point == nil {
		return decimal.Zero, mddomain.ErrNoData
	}
	return point.Price, nil
}

// PortfolioResult 组合盯市结果。
type PortfolioResult struct {
	ValuationDate time.Time          `json:"valuation_date"`
	Records       []domain.MtmRecord `json:"records"`
	TotalMtm      decimal.Decimal    `json:"total_mtm"`
}

// RunPortfolio 对全部 OPEN / EXECUTED 合同逐一盯市并汇总。
func (s *MtmService) RunPortfolio(ctx context.Context, valuationDate time.Time, snapshot *time.Time) (*PortfolioResult, error) {
	contracts, err := s.contracts.List(ctx, contractdomain.ContractFilter{
		Statuses: []contractdomain.ContractStatus{
			contractdomain.ContractStatusOpen,
			contractdomain.ContractStatusExecuted,
		},
	})
	if err != nil {
		return nil, err
	}

	result := &PortfolioResult{ValuationDate: valuationDate, TotalMtm: decimal.Zero}
	for i := range contracts {
		record, err := s.RunForContract(ctx, contracts[i].ID, valuationDate, snapshot)
		if err != nil {
			return nil, err
		}
		result.Records = append(result.Records, *record)
		result.TotalMtm = result.TotalMtm.Add(record.MtmValue)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishValuationCompleted(ctx, valuationDate, len(result.Records), result.TotalMtm); err != nil {
			// 事件发布失败不影响估值结果
			s.logger.WarnContext(ctx, "failed to publish valuation event", "error", err)
		}
	}
	s.logger.InfoContext(ctx, "portfolio valuation completed",
		"contracts", len(result.Records), "total_mtm", result.TotalMtm)
	return result, nil
}

// History 合同的估值历史，按估值日降序。
func (s *MtmService) History(ctx context.Context, contractID uint) ([]domain.MtmRecord, error) {
	if _, err := s.contracts.FindByID(ctx, contractID); err != nil {
		return nil, err
	}
	return s.records.ListByContract(ctx, contractID)
}
