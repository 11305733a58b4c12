// Package mysql 定价公式仓储的 MySQL 实现。
package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/pkg/xerrors"
	"gorm.io/gorm"

	"github.com/wyfcoding/commoditytrading/internal/pricing/domain"
)

type formulaRepository struct {
	db *gorm.DB
}

func NewFormulaRepository(db *gorm.DB) domain.FormulaRepository {
	return &formulaRepository{db: db}
}

func (r *formulaRepository) Save(ctx context.Context, formula *domain.PricingFormula) error {
	return r.db.WithContext(ctx).Create(formula).Error
}

// Update 整组替换罚则明细后更新公式本体。
func (r *formulaRepository) Update(ctx context.Context, formula *domain.PricingFormula) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("formula_id = ?", formula.ID).Delete(&domain.FormulaAdjustment{}).Error; err != nil {
			return err
		}
		return tx.Save(formula).Error
	})
}

func (r *formulaRepository) FindByID(ctx context.Context, id uint) (*domain.PricingFormula, error) {
	var formula domain.PricingFormula
	err := r.db.WithContext(ctx).Preload("Adjustments").First(&formula, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, xerrors.NotFound("pricing formula not found").WithContext("formula_id", id)
	}
	if err != nil {
		return nil, err
	}
	return &formula, nil
}

func (r *formulaRepository) FindByName(ctx context.Context, name string) (*domain.PricingFormula, error) {
	var formula domain.PricingFormula
	err := r.db.WithContext(ctx).Preload("Adjustments").Where("name = ?", name).First(&formula).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, xerrors.NotFound("pricing formula not found").WithContext("name", name)
	}
	if err != nil {
		return nil, err
	}
	return &formula, nil
}

func (r *formulaRepository) List(ctx context.Context) ([]*domain.PricingFormula, error) {
	var formulas []*domain.PricingFormula
	err := r.db.WithContext(ctx).Preload("Adjustments").Order("name ASC").Find(&formulas).Error
	return formulas, err
}

func (r *formulaRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("formula_id = ?", id).Delete(&domain.FormulaAdjustment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.PricingFormula{}, id).Error
	})
}
