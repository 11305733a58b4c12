// Package application 撮合上下文应用服务：账本重建与手工撮合。
package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/xerrors"

	contractdomain "github.com/wyfcoding/commoditytrading/internal/contract/domain"
	"github.com/wyfcoding/commoditytrading/internal/matching/domain"
)

// EventPublisher 撮合事件发布出口，允许为空实现。
type EventPublisher interface {
	PublishMatchingCompleted(ctx context.Context, matchCount int, matchDate time.Time) error
}

// MatchingService 撮合服务。RunFIFO 全量重建撮合账本，
// 手工撮合只做方向校验，不限制数量。
type MatchingService struct {
	matches   domain.MatchRepository
	contracts contractdomain.ContractRepository
	shipments contractdomain.ShipmentRepository
	publisher EventPublisher
	logger    *slog.Logger
}

func NewMatchingService(
	matches domain.MatchRepository,
	contracts contractdomain.ContractRepository,
	shipments contractdomain.ShipmentRepository,
	publisher EventPublisher,
	logger *slog.Logger,
) *MatchingService {
	return &MatchingService{
		matches:   matches,
		contracts: contracts,
		shipments: shipments,
		publisher: publisher,
		logger:    logger,
	}
}

// RunResult 一次重建的汇总。
type RunResult struct {
	MatchCount int             `json:"match_count"`
	Matches    []domain.Match  `json:"matches"`
	MatchDate  time.Time       `json:"match_date"`
	TotalQty   decimal.Decimal `json:"total_matched_quantity"`
}

// RunFIFO 清空既有撮合记录并按先进先出重建。
// 两侧只取 OPEN / EXECUTED 合同，按交割起始日排序；
// 合同价格取其船货的加权均价。
func (s *MatchingService) RunFIFO(ctx context.Context) (*RunResult, error) {
	matchDate := time.Now().UTC().Truncate(24 * time.Hour)

	buys, err := s.bookEntries(ctx, contractdomain.DirectionBuy)
	if err != nil {
		return nil, err
	}
	sells, err := s.bookEntries(ctx, contractdomain.DirectionSell)
	if err != nil {
		return nil, err
	}

	matches := domain.AllocateFIFO(buys, sells, matchDate)
	if err := s.matches.ReplaceAll(ctx, matches); err != nil {
		return nil, err
	}

	totalQty := decimal.Zero
	for i := range matches {
		totalQty = totalQty.Add(matches[i].MatchedQuantity)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishMatchingCompleted(ctx, len(matches), matchDate); err != nil {
			// 事件发布失败不回滚撮合结果
			s.logger.WarnContext(ctx, "failed to publish matching event", "error", err)
		}
	}
	s.logger.InfoContext(ctx, "fifo matching completed",
		"matches", len(matches), "total_quantity", totalQty)

	return &RunResult{
		MatchCount: len(matches),
		Matches:    matches,
		MatchDate:  matchDate,
		TotalQty:   totalQty,
	}, nil
}

func (s *MatchingService) bookEntries(ctx context.Context, direction contractdomain.Direction) ([]domain.BookEntry, error) {
	statuses := []contractdomain.ContractStatus{
		contractdomain.ContractStatusOpen,
		contractdomain.ContractStatusExecuted,
	}
	contracts, err := s.contracts.List(ctx, contractdomain.ContractFilter{
		Direction: &direction,
		Statuses:  statuses,
	})
	if err != nil {
		return nil, err
	}

	entries := make([]domain.BookEntry, 0, len(contracts))
	for i := range contracts {
		c := &contracts[i]
		shipments, err := s.shipments.ListByContract(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, domain.BookEntry{
			ContractID: c.ID,
			Quantity:   c.Quantity,
			Price:      contractdomain.WeightedAveragePrice(shipments),
		})
	}
	return entries, nil
}

// ManualMatchCmd 手工撮合入参。
type ManualMatchCmd struct {
	BuyContractID  uint
	SellContractID uint
	Quantity       decimal.Decimal
	MatchDate      *time.Time
}

// CreateManualMatch 登记一笔手工撮合。只校验两侧方向，
// 不校验数量约束，超配责任在操作者。
func (s *MatchingService) CreateManualMatch(ctx context.Context, cmd ManualMatchCmd) (*domain.Match, error) {
	if !cmd.Quantity.IsPositive() {
		return nil, xerrors.InvalidArg("match quantity must be positive")
	}

	buy, err := s.contracts.FindByID(ctx, cmd.BuyContractID)
	if err != nil {
		return nil, err
	}
	if buy.Direction != contractdomain.DirectionBuy {
		return nil, xerrors.InvalidArg("buy_contract_id must reference a BUY contract").
			WithContext("contract_id", cmd.BuyContractID)
	}
	sell, err := s.contracts.FindByID(ctx, cmd.SellContractID)
	if err != nil {
		return nil, err
	}
	if sell.Direction != contractdomain.DirectionSell {
		return nil, xerrors.InvalidArg("sell_contract_id must reference a SELL contract").
			WithContext("contract_id", cmd.SellContractID)
	}

	buyShipments, err := s.shipments.ListByContract(ctx, buy.ID)
	if err != nil {
		return nil, err
	}
	sellShipments, err := s.shipments.ListByContract(ctx, sell.ID)
	if err != nil {
		return nil, err
	}

	matchDate := time.Now().UTC().Truncate(24 * time.Hour)
	if cmd.MatchDate != nil {
		matchDate = *cmd.MatchDate
	}

	m := &domain.Match{
		BuyContractID:   buy.ID,
		SellContractID:  sell.ID,
		MatchedQuantity: cmd.Quantity,
		BuyPrice:        contractdomain.WeightedAveragePrice(buyShipments),
		SellPrice:       contractdomain.WeightedAveragePrice(sellShipments),
		MatchDate:       matchDate,
		Manual:          true,
	}
	if m.BuyPrice != nil && m.SellPrice != nil {
		pnl := m.SellPrice.Sub(*m.BuyPrice).Mul(cmd.Quantity).Round(2)
		m.RealizedPnl = &pnl
	}

	if err := s.matches.Save(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// UnwindAll 清空全部撮合记录，返回删除条数。
func (s *MatchingService) UnwindAll(ctx context.Context) (int64, error) {
	count, err := s.matches.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "matches unwound", "count", count)
	return count, nil
}

func (s *MatchingService) List(ctx context.Context) ([]domain.Match, error) {
	return s.matches.List(ctx)
}

func (s *MatchingService) ListByContract(ctx context.Context, contractID uint) ([]domain.Match, error) {
	return s.matches.ListByContract(ctx, contractID)
}

func (s *MatchingService) Delete(ctx context.Context, id uint) error {
	if _, err := s.matches.FindByID(ctx, id); err != nil {
		return err
	}
	return s.matches.Delete(ctx, id)
}
