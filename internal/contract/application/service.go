// Package application 合同上下文应用服务：合同、船货与化验单的维护及敞口查询。
package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/commoditytrading/internal/contract/domain"
	"github.com/wyfcoding/pkg/xerrors"
)

// ContractService 合同维护与敞口查询
type ContractService struct {
	contracts domain.ContractRepository
	shipments domain.ShipmentRepository
}

func NewContractService(contracts domain.ContractRepository, shipments domain.ShipmentRepository) *ContractService {
	return &ContractService{contracts: contracts, shipments: shipments}
}

// CreateContractCmd 建合同命令
type CreateContractCmd struct {
	Reference        string
	Direction        domain.Direction
	Counterparty     string
	Commodity        string
	Quantity         decimal.Decimal
	UOM              string
	Incoterm         string
	DeliveryStart    time.Time
	DeliveryEnd      time.Time
	QPConvention     domain.QPConvention
	QPStartOffset    *int
	QPEndOffset      *int
	PricingFormulaID uint
}

func (s *ContractService) Create(ctx context.Context, cmd CreateContractCmd) (*domain.Contract, error) {
	if !cmd.Direction.Valid() {
		return nil, xerrors.InvalidArg("direction must be BUY or SELL")
	}
	if !cmd.QPConvention.Valid() {
		return nil, xerrors.InvalidArg("unknown QP convention").WithContext("qp_convention", string(cmd.QPConvention))
	}
	if cmd.QPConvention == domain.QPCustom && (cmd.QPStartOffset == nil || cmd.QPEndOffset == nil) {
		return nil, xerrors.InvalidArg("CUSTOM QP requires start and end offsets")
	}

	if existing, err := s.contracts.FindByReference(ctx, cmd.Reference); err == nil && existing != nil {
		return nil, xerrors.New(xerrors.ErrAlreadyExists, 409, "contract reference already exists", "", nil).
			WithContext("reference", cmd.Reference)
	} else if err != nil && !isNotFound(err) {
		return nil, err
	}

	c := &domain.Contract{
		Reference:        cmd.Reference,
		Direction:        cmd.Direction,
		Counterparty:     cmd.Counterparty,
		Commodity:        defaultStr(cmd.Commodity, "Iron Ore Fines"),
		Quantity:         cmd.Quantity,
		UOM:              defaultStr(cmd.UOM, "DMT"),
		Incoterm:         defaultStr(cmd.Incoterm, "CFR"),
		DeliveryStart:    cmd.DeliveryStart,
		DeliveryEnd:      cmd.DeliveryEnd,
		Status:           domain.ContractStatusOpen,
		QPConvention:     cmd.QPConvention,
		QPStartOffset:    cmd.QPStartOffset,
		QPEndOffset:      cmd.QPEndOffset,
		PricingFormulaID: cmd.PricingFormulaID,
	}
	if err := s.contracts.Save(ctx, c); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "contract created", "contract_id", c.ID, "reference", c.Reference)
	return c, nil
}

func (s *ContractService) Get(ctx context.Context, id uint) (*domain.Contract, error) {
	return s.contracts.FindByID(ctx, id)
}

func (s *ContractService) List(ctx context.Context, direction *domain.Direction, status *domain.ContractStatus) ([]domain.Contract, error) {
	return s.contracts.List(ctx, domain.ContractFilter{Direction: direction, Status: status})
}

// UpdateContractCmd 合同更新命令，nil 字段保持不变
type UpdateContractCmd struct {
	Counterparty  *string
	Quantity      *decimal.Decimal
	DeliveryStart *time.Time
	DeliveryEnd   *time.Time
	QPConvention  *domain.QPConvention
	QPStartOffset *int
	QPEndOffset   *int
}

func (s *ContractService) Update(ctx context.Context, id uint, cmd UpdateContractCmd) (*domain.Contract, error) {
	c, err := s.contracts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cmd.Counterparty != nil {
		c.Counterparty = *cmd.Counterparty
	}
	if cmd.Quantity != nil {
		c.Quantity = *cmd.Quantity
	}
	if cmd.DeliveryStart != nil {
		c.DeliveryStart = *cmd.DeliveryStart
	}
	if cmd.DeliveryEnd != nil {
		c.DeliveryEnd = *cmd.DeliveryEnd
	}
	if cmd.QPConvention != nil {
		if !cmd.QPConvention.Valid() {
			return nil, xerrors.InvalidArg("unknown QP convention").WithContext("qp_convention", string(*cmd.QPConvention))
		}
		c.QPConvention = *cmd.QPConvention
	}
	if cmd.QPStartOffset != nil {
		c.QPStartOffset = cmd.QPStartOffset
	}
	if cmd.QPEndOffset != nil {
		c.QPEndOffset = cmd.QPEndOffset
	}
	if err := s.contracts.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ContractService) UpdateStatus(ctx context.Context, id uint, status domain.ContractStatus) (*domain.Contract, error) {
	if !status.Valid() {
		return nil, xerrors.InvalidArg("unknown contract status").WithContext("status", string(status))
	}
	c, err := s.contracts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Status = status
	if err := s.contracts.Update(ctx, c); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "contract status updated", "contract_id", id, "status", string(status))
	return c, nil
}

func (s *ContractService) Delete(ctx context.Context, id uint) error {
	return s.contracts.Delete(ctx, id)
}

// OpenQuantity 合同敞口：合同量 − 未取消船货提单量，超发为负
func (s *ContractService) OpenQuantity(ctx context.Context, id uint) (*domain.OpenQuantity, error) {
	c, err := s.contracts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	shipments, err := s.shipments.ListByContract(ctx, id)
	if err != nil {
		return nil, err
	}
	oq := domain.ComputeOpenQuantity(c, shipments)
	return &oq, nil
}

// WeightedPrice 合同加权均价，总量为零返回 nil
func (s *ContractService) WeightedPrice(ctx context.Context, id uint) (*decimal.Decimal, error) {
	shipments, err := s.shipments.ListByContract(ctx, id)
	if err != nil {
		return nil, err
	}
	return domain.WeightedAveragePrice(shipments), nil
}

func defaultStr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func isNotFound(err error) bool {
	var xe *xerrors.Error
	return errors.As(err, &xe) && xe.Type == xerrors.ErrNotFound
}
