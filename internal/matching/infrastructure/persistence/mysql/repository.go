// Package mysql 撮合记录仓储的 MySQL 实现。
package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/pkg/xerrors"
	"gorm.io/gorm"

	"github.com/wyfcoding/commoditytrading/internal/matching/domain"
)

type matchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(db *gorm.DB) domain.MatchRepository {
	return &matchRepository{db: db}
}

func (r *matchRepository) Save(ctx context.Context, m *domain.Match) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *matchRepository) ReplaceAll(ctx context.Context, matches []domain.Match) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&domain.Match{}).Error; err != nil {
			return err
		}
		if len(matches) == 0 {
			return nil
		}
		return tx.Create(&matches).Error
	})
}

func (r *matchRepository) FindByID(ctx context.Context, id uint) (*domain.Match, error) {
	var m domain.Match
	err := r.db.WithContext(ctx).First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, xerrors.NotFound("match not found").WithContext("match_id", id)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *matchRepository) List(ctx context.Context) ([]domain.Match, error) {
	var matches []domain.Match
	err := r.db.WithContext(ctx).Order("match_date ASC, id ASC").Find(&matches).Error
	return matches, err
}

func (r *matchRepository) ListByContract(ctx context.Context, contractID uint) ([]domain.Match, error) {
	var matches []domain.Match
	err := r.db.WithContext(ctx).
		Where("buy_contract_id = ? OR sell_contract_id = ?", contractID, contractID).
		Order("match_date ASC, id ASC").
		Find(&matches).Error
	return matches, err
}

func (r *matchRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&domain.Match{}, id).Error
}

func (r *matchRepository) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Where("1 = 1").Delete(&domain.Match{})
	return result.RowsAffected, result.Error
}
