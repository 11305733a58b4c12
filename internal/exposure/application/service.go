// Package application 敞口汇总：按交割月与方向聚合未执行数量。
package application

import (
	"context"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	contractdomain "github.com/wyfcoding/commoditytrading/internal/contract/domain"
	mddomain "github.com/wyfcoding/commoditytrading/internal/marketdata/domain"
	pricingdomain "github.com/wyfcoding/commoditytrading/internal/pricing/domain"
)

// LatestPricer 敞口估值的市场价探测入口。
type LatestPricer interface {
	Latest(ctx context.Context, curveID uint) (*mddomain.CurveDataPoint, error)
}

// ExposureService 敞口汇总服务，只读。
type ExposureService struct {
	contracts contractdomain.ContractRepository
	shipments contractdomain.ShipmentRepository
	formulas  pricingdomain.FormulaRepository
	curves    LatestPricer
	logger    *slog.Logger
}

func NewExposureService(
	contracts contractdomain.ContractRepository,
	shipments contractdomain.ShipmentRepository,
	formulas pricingdomain.FormulaRepository,
	curves LatestPricer,
	logger *slog.Logger,
) *ExposureService {
	return &ExposureService{
		contracts: contracts,
		shipments: shipments,
		formulas:  formulas,
		curves:    curves,
		logger:    logger,
	}
}

// MonthExposure 单个交割月的敞口行。
// EstimatedValue 按各合同公式曲线的最新价估算；缺价的合同计零并记日志。
type MonthExposure struct {
	Month          string          `json:"month"`
	LongQuantity   decimal.Decimal `json:"long_quantity"`
	ShortQuantity  decimal.Decimal `json:"short_quantity"`
	NetQuantity    decimal.Decimal `json:"net_quantity"`
	EstimatedValue decimal.Decimal `json:"estimated_value_usd"`
}

// DirectionExposure 单方向的敞口行。USD 估值不在此粒度计算。
type DirectionExposure struct {
	Direction    contractdomain.Direction `json:"direction"`
	OpenQuantity decimal.Decimal          `json:"open_quantity"`
	ValueUSD     decimal.Decimal          `json:"value_usd"`
}

// ExposureSummary 敞口总览。
type ExposureSummary struct {
	ByMonth     []MonthExposure     `json:"by_month"`
	ByDirection []DirectionExposure `json:"by_direction"`
	NetQuantity decimal.Decimal     `json:"net_quantity"`
}

// BuildSummary 对全部 OPEN / EXECUTED 合同按交割起始月与方向聚合敞口。
func (s *ExposureService) BuildSummary(ctx context.Context) (*ExposureSummary, error) {
	contracts, err := s.contracts.List(ctx, contractdomain.ContractFilter{
		Statuses: []contractdomain.ContractStatus{
			contractdomain.ContractStatusOpen,
			contractdomain.ContractStatusExecuted,
		},
	})
	if err != nil {
		return nil, err
	}

	months := map[string]*MonthExposure{}
	long := decimal.Zero
	short := decimal.Zero

	for i := range contracts {
		c := &contracts[i]
		shipments, err := s.shipments.ListByContract(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		open := contractdomain.ComputeOpenQuantity(c, shipments).OpenQuantity
		if !open.IsPositive() {
			continue
		}

		key := c.DeliveryStart.Format("2006-01")
		bucket, ok := months[key]
		if !ok {
			bucket = &MonthExposure{
				Month:          key,
				LongQuantity:   decimal.Zero,
				ShortQuantity:  decimal.Zero,
				NetQuantity:    decimal.Zero,
				EstimatedValue: decimal.Zero,
			}
			months[key] = bucket
		}

		signed := open.Mul(c.Direction.Factor())
		bucket.NetQuantity = bucket.NetQuantity.Add(signed)
		if c.Direction == contractdomain.DirectionBuy {
			bucket.LongQuantity = bucket.LongQuantity.Add(open)
			long = long.Add(open)
		} else {
			bucket.ShortQuantity = bucket.ShortQuantity.Add(open)
			short = short.Add(open)
		}

		// 缺价不终止汇总，但必须留痕，计零不是静默吞掉
		price, ok := s.probePrice(ctx, c)
		if !ok {
			continue
		}
		bucket.EstimatedValue = bucket.EstimatedValue.Add(signed.Mul(price).Round(2))
	}

	summary := &ExposureSummary{
		ByDirection: []DirectionExposure{
			{Direction: contractdomain.DirectionBuy, OpenQuantity: long, ValueUSD: decimal.Zero},
			{Direction: contractdomain.DirectionSell, OpenQuantity: short, ValueUSD: decimal.Zero},
		},
		NetQuantity: long.Sub(short),
	}
	for _, bucket := range months {
		summary.ByMonth = append(summary.ByMonth, *bucket)
	}
	sort.Slice(summary.ByMonth, func(i, j int) bool {
		return summary.ByMonth[i].Month < summary.ByMonth[j].Month
	})
	return summary, nil
}

func (s *ExposureService) probePrice(ctx context.Context, c *contractdomain.Contract) (decimal.Decimal, bool) {
	formula, err := s.formulas.FindByID(ctx, c.PricingFormulaID)
	if err != nil {
		s.logger.WarnContext(ctx, "exposure pricing skipped, formula unavailable",
			"contract_id", c.ID, "formula_id", c.PricingFormulaID, "error", err)
		return decimal.Zero, false
	}
	point, err := s.curves.Latest(ctx, formula.CurveID)
	if err != nil {
		s.logger.WarnContext(ctx, "exposure pricing skipped, curve lookup failed",
			"contract_id", c.ID, "curve_id", formula.CurveID, "error", err)
		return decimal.Zero, false
	}
	if point == nil {
		s.logger.WarnContext(ctx, "exposure pricing skipped, curve has no data",
			"contract_id", c.ID, "curve_id", formula.CurveID)
		return decimal.Zero, false
	}
	return point.Price, true
}
