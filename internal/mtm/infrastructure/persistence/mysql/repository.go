// Package mysql 盯市记录仓储的 MySQL 实现。
package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/wyfcoding/commoditytrading/internal/mtm/domain"
)

type mtmRepository struct {
	db *gorm.DB
}

func NewMtmRepository(db *gorm.DB) domain.MtmRepository {
	return &mtmRepository{db: db}
}

func (r *mtmRepository) Save(ctx context.Context, record *domain.MtmRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *mtmRepository) ListByContract(ctx context.Context, contractID uint) ([]domain.MtmRecord, error) {
	var records []domain.MtmRecord
	err := r.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("valuation_date DESC, id DESC").
		Find(&records).Error
	return records, err
}

func (r *mtmRepository) LatestForContract(ctx context.Context, contractID uint) (*domain.MtmRecord, error) {
	var record domain.MtmRecord
	err := r.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("valuation_date DESC, id DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *mtmRepository) List(ctx context.Context) ([]domain.MtmRecord, error) {
	var records []domain.MtmRecord
	err := r.db.WithContext(ctx).Order("valuation_date DESC, id DESC").Find(&records).Error
	return records, err
}
