// Package mysql 合同上下文的 gorm 仓储实现。
// ORM 层的级联删除在这里显式展开：合同 → 船货 → 化验单。
package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/commoditytrading/internal/contract/domain"
	"github.com/wyfcoding/pkg/xerrors"
	"gorm.io/gorm"
)

type ContractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

func (r *ContractRepository) Save(ctx context.Context, c *domain.Contract) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *ContractRepository) Update(ctx context.Context, c *domain.Contract) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *ContractRepository) FindByID(ctx context.Context, id uint) (*domain.Contract, error) {
	var c domain.Contract
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerrors.NotFound("contract not found").WithContext("contract_id", id)
		}
		return nil, err
	}
	return &c, nil
}

func (r *ContractRepository) FindByReference(ctx context.Context, reference string) (*domain.Contract, error) {
	var c domain.Contract
	if err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerrors.NotFound("contract not found").WithContext("reference", reference)
		}
		return nil, err
	}
	return &c, nil
}

func (r *ContractRepository) List(ctx context.Context, filter domain.ContractFilter) ([]domain.Contract, error) {
	q := r.db.WithContext(ctx).Model(&domain.Contract{})
	if filter.Direction != nil {
		q = q.Where("direction = ?", *filter.Direction)
	}
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	var contracts []domain.Contract
	if err := q.Order("delivery_start ASC, id ASC").Find(&contracts).Error; err != nil {
		return nil, err
	}
	return contracts, nil
}

func (r *ContractRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var shipmentIDs []uint
		if err := tx.Model(&domain.Shipment{}).Where("contract_id = ?", id).
			Pluck("id", &shipmentIDs).Error; err != nil {
			return err
		}
		if len(shipmentIDs) > 0 {
			if err := tx.Where("shipment_id IN ?", shipmentIDs).Delete(&domain.Assay{}).Error; err != nil {
				return err
			}
			if err := tx.Where("contract_id = ?", id).Delete(&domain.Shipment{}).Error; err != nil {
				return err
			}
		}
		res := tx.Delete(&domain.Contract{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return xerrors.NotFound("contract not found").WithContext("contract_id", id)
		}
		return nil
	})
}

type ShipmentRepository struct {
	db *gorm.DB
}

func NewShipmentRepository(db *gorm.DB) *ShipmentRepository {
	return &ShipmentRepository{db: db}
}

func (r *ShipmentRepository) Save(ctx context.Context, s *domain.Shipment) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *ShipmentRepository) Update(ctx context.Context, s *domain.Shipment) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *ShipmentRepository) FindByID(ctx context.Context, id uint) (*domain.Shipment, error) {
	var s domain.Shipment
	if err := r.db.WithContext(ctx).First(&s, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerrors.NotFound("shipment not found").WithContext("shipment_id", id)
		}
		return nil, err
	}
	return &s, nil
}

func (r *ShipmentRepository) FindByReference(ctx context.Context, reference string) (*domain.Shipment, error) {
	var s domain.Shipment
	if err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerrors.NotFound("shipment not found").WithContext("reference", reference)
		}
		return nil, err
	}
	return &s, nil
}

func (r *ShipmentRepository) ListByContract(ctx context.Context, contractID uint) ([]domain.Shipment, error) {
	var shipments []domain.Shipment
	if err := r.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("id ASC").
		Find(&shipments).Error; err != nil {
		return nil, err
	}
	return shipments, nil
}

func (r *ShipmentRepository) List(ctx context.Context) ([]domain.Shipment, error) {
	var shipments []domain.Shipment
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&shipments).Error; err != nil {
		return nil, err
	}
	return shipments, nil
}

func (r *ShipmentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("shipment_id = ?", id).Delete(&domain.Assay{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.Shipment{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return xerrors.NotFound("shipment not found").WithContext("shipment_id", id)
		}
		return nil
	})
}

type AssayRepository struct {
	db *gorm.DB
}

func NewAssayRepository(db *gorm.DB) *AssayRepository {
	return &AssayRepository{db: db}
}

func (r *AssayRepository) Save(ctx context.Context, a *domain.Assay) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *AssayRepository) Update(ctx context.Context, a *domain.Assay) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r *AssayRepository) FindByID(ctx context.Context, id uint) (*domain.Assay, error) {
	var a domain.Assay
	if err := r.db.WithContext(ctx).First(&a, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerrors.NotFound("assay not found").WithContext("assay_id", id)
		}
		return nil, err
	}
	return &a, nil
}

func (r *AssayRepository) FindByShipmentAndType(ctx context.Context, shipmentID uint, assayType domain.AssayType) (*domain.Assay, error) {
	var a domain.Assay
	err := r.db.WithContext(ctx).
		Where("shipment_id = ? AND assay_type = ?", shipmentID, assayType).
		First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerrors.NotFound("assay not found").
				WithContext("shipment_id", shipmentID).
				WithContext("assay_type", string(assayType))
		}
		return nil, err
	}
	return &a, nil
}

func (r *AssayRepository) ListByShipment(ctx context.Context, shipmentID uint) ([]domain.Assay, error) {
	var assays []domain.Assay
	if err := r.db.WithContext(ctx).
		Where("shipment_id = ?", shipmentID).
		Order("assay_type ASC").
		Find(&assays).Error; err != nil {
		return nil, err
	}
	return assays, nil
}

func (r *AssayRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&domain.Assay{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return xerrors.NotFound("assay not found").WithContext("assay_id", id)
	}
	return nil
}
