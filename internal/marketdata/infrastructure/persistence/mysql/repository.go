// Package mysql 行情上下文的 gorm 仓储实现
package mysql

import (
	"context"
	"errors"
	"time"

	"github.com/wyfcoding/commoditytrading/internal/marketdata/domain"
	"github.com/wyfcoding/pkg/xerrors"
	"gorm.io/gorm"
)

type CurveRepository struct {
	db *gorm.DB
}

func NewCurveRepository(db *gorm.DB) *CurveRepository {
	return &CurveRepository{db: db}
}

func (r *CurveRepository) Save(ctx context.Context, c *domain.PriceCurve) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *CurveRepository) Update(ctx context.Context, c *domain.PriceCurve) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *CurveRepository) FindByID(ctx context.Context, id uint) (*domain.PriceCurve, error) {
	var c domain.PriceCurve
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerrors.NotFound("price curve not found").WithContext("curve_id", id)
		}
		return nil, err
	}
	return &c, nil
}

func (r *CurveRepository) FindByCode(ctx context.Context, code string) (*domain.PriceCurve, error) {
	var c domain.PriceCurve
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerrors.NotFound("price curve not found").WithContext("code", code)
		}
		return nil, err
	}
	return &c, nil
}

func (r *CurveRepository) List(ctx context.Context) ([]domain.PriceCurve, error) {
	var curves []domain.PriceCurve
	if err := r.db.WithContext(ctx).Order("code ASC").Find(&curves).Error; err != nil {
		return nil, err
	}
	return curves, nil
}

func (r *CurveRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("curve_id = ?", id).Delete(&domain.CurveDataPoint{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.PriceCurve{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return xerrors.NotFound("price curve not found").WithContext("curve_id", id)
		}
		return nil
	})
}

type CurveDataRepository struct {
	db *gorm.DB
}

func NewCurveDataRepository(db *gorm.DB) *CurveDataRepository {
	return &CurveDataRepository{db: db}
}

func (r *CurveDataRepository) SaveBatch(ctx context.Context, points []domain.CurveDataPoint) error {
	if len(points) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&points).Error
}

func (r *CurveDataRepository) ListRange(ctx context.Context, curveID uint, start, end time.Time, snapshot *time.Time) ([]domain.CurveDataPoint, error) {
	q := r.db.WithContext(ctx).
		Where("curve_id = ? AND price_date >= ? AND price_date <= ?", curveID, start, end)
	if snapshot != nil {
		q = q.Where("snapshot_date = ?", *snapshot)
	}
	var points []domain.CurveDataPoint
	if err := q.Order("price_date ASC, snapshot_date ASC").Find(&points).Error; err != nil {
		return nil, err
	}
	return points, nil
}

func (r *CurveDataRepository) LatestOnOrBefore(ctx context.Context, curveID uint, date time.Time) (*domain.CurveDataPoint, error) {
	var p domain.CurveDataPoint
	err := r.db.WithContext(ctx).
		Where("curve_id = ? AND price_date <= ?", curveID, date).
		Order("price_date DESC, snapshot_date DESC").
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *CurveDataRepository) Latest(ctx context.Context, curveID uint) (*domain.CurveDataPoint, error) {
	var p domain.CurveDataPoint
	err := r.db.WithContext(ctx).
		Where("curve_id = ?", curveID).
		Order("price_date DESC, snapshot_date DESC").
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}
