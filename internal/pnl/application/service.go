// Package application 盈亏汇总：已实现、未实现与账册级总览。
package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	contractdomain "github.com/wyfcoding/commoditytrading/internal/contract/domain"
	matchingdomain "github.com/wyfcoding/commoditytrading/internal/matching/domain"
	mtmdomain "github.com/wyfcoding/commoditytrading/internal/mtm/domain"
)

// PnlService 盈亏汇总服务，只读聚合，不落库。
type PnlService struct {
	contracts contractdomain.ContractRepository
	shipments contractdomain.ShipmentRepository
	matches   matchingdomain.MatchRepository
	records   mtmdomain.MtmRepository
	logger    *slog.Logger
}

func NewPnlService(
	contracts contractdomain.ContractRepository,
	shipments contractdomain.ShipmentRepository,
	matches matchingdomain.MatchRepository,
	records mtmdomain.MtmRepository,
	logger *slog.Logger,
) *PnlService {
	return &PnlService{
		contracts: contracts,
		shipments: shipments,
		matches:   matches,
		records:   records,
		logger:    logger,
	}
}

// RealizedItem 一笔撮合的已实现盈亏明细。
type RealizedItem struct {
	MatchID         uint             `json:"match_id"`
	BuyContractID   uint             `json:"buy_contract_id"`
	SellContractID  uint             `json:"sell_contract_id"`
	MatchedQuantity decimal.Decimal  `json:"matched_quantity"`
	BuyPrice        *decimal.Decimal `json:"buy_price"`
	SellPrice       *decimal.Decimal `json:"sell_price"`
	RealizedPnl     *decimal.Decimal `json:"realized_pnl"`
	MatchDate       time.Time        `json:"match_date"`
}

// Realized 每笔撮合一条明细，透传撮合记录。
func (s *PnlService) Realized(ctx context.Context) ([]RealizedItem, error) {
	matches, err := s.matches.List(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]RealizedItem, 0, len(matches))
	for i := range matches {
		m := &matches[i]
		items = append(items, RealizedItem{
			MatchID:         m.ID,
			BuyContractID:   m.BuyContractID,
			SellContractID:  m.SellContractID,
			MatchedQuantity: m.MatchedQuantity,
			BuyPrice:        m.BuyPrice,
			SellPrice:       m.SellPrice,
			RealizedPnl:     m.RealizedPnl,
			MatchDate:       m.MatchDate,
		})
	}
	return items, nil
}

// UnrealizedItem 一个持仓合同的未实现盈亏明细。
type UnrealizedItem struct {
	ContractID    uint                     `json:"contract_id"`
	Reference     string                   `json:"reference"`
	Direction     contractdomain.Direction `json:"direction"`
	OpenQuantity  decimal.Decimal          `json:"open_quantity"`
	ContractPrice *decimal.Decimal         `json:"contract_price"`
	MarketPrice   decimal.Decimal          `json:"market_price"`
	UnrealizedPnl decimal.Decimal          `json:"unrealized_pnl"`
	ValuationDate time.Time                `json:"valuation_date"`
}

// Unrealized 对每个 OPEN / EXECUTED 合同，取其最新盯市记录；
// 记录敞口为正时输出一条明细，合同加权均价仅作展示。
func (s *PnlService) Unrealized(ctx context.Context) ([]UnrealizedItem, error) {
	contracts, err := s.contracts.List(ctx, contractdomain.ContractFilter{
		Statuses: []contractdomain.ContractStatus{
			contractdomain.ContractStatusOpen,
			contractdomain.ContractStatusExecuted,
		},
	})
	if err != nil {
		return nil, err
	}

	items := make([]UnrealizedItem, 0, len(contracts))
	for i := range contracts {
		c := &contracts[i]
		latest, err := s.records.LatestForContract(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		if latest == nil || !latest.OpenQuantity.IsPositive() {
			continue
		}
		shipments, err := s.shipments.ListByContract(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		items = append(items, UnrealizedItem{
			ContractID:    c.ID,
			Reference:     c.Reference,
			Direction:     c.Direction,
			OpenQuantity:  latest.OpenQuantity,
			ContractPrice: contractdomain.WeightedAveragePrice(shipments),
			MarketPrice:   latest.CurvePrice,
			UnrealizedPnl: latest.MtmValue,
			ValuationDate: latest.ValuationDate,
		})
	}
	return items, nil
}

// SummaryItem 单合同的盈亏汇总行。
type SummaryItem struct {
	ContractID uint                     `json:"contract_id"`
	Reference  string                   `json:"reference"`
	Direction  contractdomain.Direction `json:"direction"`
	Realized   decimal.Decimal          `json:"realized_pnl"`
	Unrealized decimal.Decimal          `json:"unrealized_pnl"`
	Total      decimal.Decimal          `json:"total_pnl"`
}

// Summary 账册级盈亏总览。
type Summary struct {
	Items           []SummaryItem   `json:"items"`
	TotalRealized   decimal.Decimal `json:"total_realized"`
	TotalUnrealized decimal.Decimal `json:"total_unrealized"`
	TotalPnl        decimal.Decimal `json:"total_pnl"`
}

// BuildSummary 对每个非取消合同汇总。
// 已实现部分只计合同作为买方的撮合记录，避免同一经济事件
// 在买卖双方重复入总；未实现部分取最新盯市记录的估值，无记录计零。
func (s *PnlService) BuildSummary(ctx context.Context) (*Summary, error) {
	contracts, err := s.contracts.List(ctx, contractdomain.ContractFilter{
		Statuses: []contractdomain.ContractStatus{
			contractdomain.ContractStatusOpen,
			contractdomain.ContractStatusExecuted,
			contractdomain.ContractStatusClosed,
		},
	})
	if err != nil {
		return nil, err
	}
	matches, err := s.matches.List(ctx)
	if err != nil {
		return nil, err
	}

	realizedByBuyer := make(map[uint]decimal.Decimal, len(contracts))
	for i := range matches {
		m := &matches[i]
		if m.RealizedPnl == nil {
			continue
		}
		realizedByBuyer[m.BuyContractID] = realizedByBuyer[m.BuyContractID].Add(*m.RealizedPnl)
	}

	summary := &Summary{
		TotalRealized:   decimal.Zero,
		TotalUnrealized: decimal.Zero,
		TotalPnl:        decimal.Zero,
	}
	for i := range contracts {
		c := &contracts[i]

		realized := realizedByBuyer[c.ID]
		unrealized := decimal.Zero
		latest, err := s.records.LatestForContract(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		if latest != nil {
			unrealized = latest.MtmValue
		}

		summary.Items = append(summary.Items, SummaryItem{
			ContractID: c.ID,
			Reference:  c.Reference,
			Direction:  c.Direction,
			Realized:   realized,
			Unrealized: unrealized,
			Total:      realized.Add(unrealized),
		})
		summary.TotalRealized = summary.TotalRealized.Add(realized)
		summary.TotalUnrealized = summary.TotalUnrealized.Add(unrealized)
	}
	summary.TotalPnl = summary.TotalRealized.Add(summary.TotalUnrealized)
	s.logger.InfoContext(ctx, "盈亏汇总完成",
		"contracts", len(summary.Items),
		"total_realized", summary.TotalRealized.String(),
		"total_unrealized", summary.TotalUnrealized.String(),
	)
	return summary, nil
}
