package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/commoditytrading/internal/contract/domain"
	"github.com/wyfcoding/pkg/xerrors"
)

// ShipmentService 船货与化验单维护
type ShipmentService struct {
	contracts domain.ContractRepository
	shipments domain.ShipmentRepository
	assays    domain.AssayRepository
}

func NewShipmentService(
	contracts domain.ContractRepository,
	shipments domain.ShipmentRepository,
	assays domain.AssayRepository,
) *ShipmentService {
	return &ShipmentService{contracts: contracts, shipments: shipments, assays: assays}
}

// CreateShipmentCmd 建船货命令
type CreateShipmentCmd struct {
	Reference  string
	ContractID uint
	VesselName string
	BLDate     *time.Time
	BLQuantity *decimal.Decimal
}

func (s *ShipmentService) Create(ctx context.Context, cmd CreateShipmentCmd) (*domain.Shipment, error) {
	if _, err := s.contracts.FindByID(ctx, cmd.ContractID); err != nil {
		return nil, err
	}
	if existing, err := s.shipments.FindByReference(ctx, cmd.Reference); err == nil && existing != nil {
		return nil, xerrors.New(xerrors.ErrAlreadyExists, 409, "shipment reference already exists", "", nil).
			WithContext("reference", cmd.Reference)
	} else if err != nil && !isNotFound(err) {
		return nil, err
	}

	sh := &domain.Shipment{
		Reference:  cmd.Reference,
		ContractID: cmd.ContractID,
		VesselName: cmd.VesselName,
		BLDate:     cmd.BLDate,
		BLQuantity: cmd.BLQuantity,
		Status:     domain.ShipmentStatusPlanned,
	}
	if err := s.shipments.Save(ctx, sh); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "shipment created", "shipment_id", sh.ID, "contract_id", sh.ContractID)
	return sh, nil
}

func (s *ShipmentService) Get(ctx context.Context, id uint) (*domain.Shipment, error) {
	return s.shipments.FindByID(ctx, id)
}

func (s *ShipmentService) ListByContract(ctx context.Context, contractID uint) ([]domain.Shipment, error) {
	return s.shipments.ListByContract(ctx, contractID)
}

// UpdateShipmentCmd 船货更新命令，不触及定价引擎专有的缓存价格字段
type UpdateShipmentCmd struct {
	VesselName *string
	BLDate     *time.Time
	BLQuantity *decimal.Decimal
	Status     *domain.ShipmentStatus
}

func (s *ShipmentService) Update(ctx context.Context, id uint, cmd UpdateShipmentCmd) (*domain.Shipment, error) {
	sh, err := s.shipments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cmd.VesselName != nil {
		sh.VesselName = *cmd.VesselName
	}
	if cmd.BLDate != nil {
		sh.BLDate = cmd.BLDate
	}
	if cmd.BLQuantity != nil {
		sh.BLQuantity = cmd.BLQuantity
	}
	if cmd.Status != nil {
		if !cmd.Status.Valid() {
			return nil, xerrors.InvalidArg("unknown shipment status").WithContext("status", string(*cmd.Status))
		}
		sh.Status = *cmd.Status
	}
	if err := s.shipments.Update(ctx, sh); err != nil {
		return nil, err
	}
	return sh, nil
}

func (s *ShipmentService) Delete(ctx context.Context, id uint) error {
	return s.shipments.Delete(ctx, id)
}

// AddAssayCmd 化验单录入命令
type AddAssayCmd struct {
	ShipmentID uint
	AssayType  domain.AssayType
	Fe         *decimal.Decimal
	Moisture   *decimal.Decimal
	SiO2       *decimal.Decimal
	Al2O3      *decimal.Decimal
	P          *decimal.Decimal
	S          *decimal.Decimal
}

// AddAssay 录入化验单，同一船货同一类型至多一张
func (s *ShipmentService) AddAssay(ctx context.Context, cmd AddAssayCmd) (*domain.Assay, error) {
	if !cmd.AssayType.Valid() {
		return nil, xerrors.InvalidArg("assay type must be PROVISIONAL or FINAL")
	}
	if _, err := s.shipments.FindByID(ctx, cmd.ShipmentID); err != nil {
		return nil, err
	}
	if existing, err := s.assays.FindByShipmentAndType(ctx, cmd.ShipmentID, cmd.AssayType); err == nil && existing != nil {
		return nil, xerrors.New(xerrors.ErrAlreadyExists, 409, "assay of this type already exists for shipment", "", nil).
			WithContext("shipment_id", cmd.ShipmentID).
			WithContext("assay_type", string(cmd.AssayType))
	} else if err != nil && !isNotFound(err) {
		return nil, err
	}

	a := &domain.Assay{
		ShipmentID: cmd.ShipmentID,
		AssayType:  cmd.AssayType,
		Fe:         cmd.Fe,
		Moisture:   cmd.Moisture,
		SiO2:       cmd.SiO2,
		Al2O3:      cmd.Al2O3,
		P:          cmd.P,
		S:          cmd.S,
	}
	if err := s.assays.Save(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *ShipmentService) ListAssays(ctx context.Context, shipmentID uint) ([]domain.Assay, error) {
	return s.assays.ListByShipment(ctx, shipmentID)
}

func (s *ShipmentService) DeleteAssay(ctx context.Context, id uint) error {
	return s.assays.Delete(ctx, id)
}
