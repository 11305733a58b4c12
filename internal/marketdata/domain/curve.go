// Package domain 行情上下文领域模型：价格曲线与带快照的数据点。
package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PriceCurve 市场价格曲线（如 TSI_62）
type PriceCurve struct {
	gorm.Model
	Code     string `gorm:"column:code;type:varchar(32);uniqueIndex;not null" json:"code"`
	Name     string `gorm:"column:name;type:varchar(128);not null" json:"name"`
	Currency string `gorm:"column:currency;type:varchar(3);not null;default:'USD'" json:"currency"`
	UOM      string `gorm:"column:uom;type:varchar(16);not null;default:'DMT'" json:"uom"`

	DataPoints []CurveDataPoint `gorm:"foreignKey:CurveID" json:"data_points,omitempty"`
}

func (PriceCurve) TableName() string { return "price_curves" }

// CurveDataPoint 曲线数据点。同一 price_date 可存在多个 snapshot_date，
// 代表该交易日价格的相继修正；唯一约束为 (curve, price_date, snapshot_date)。
// 数据只追加，修正以新快照行的形式进入。
type CurveDataPoint struct {
	gorm.Model
	CurveID      uint            `gorm:"column:curve_id;index;uniqueIndex:idx_curve_date_snapshot;not null" json:"curve_id"`
	PriceDate    time.Time       `gorm:"column:price_date;type:date;uniqueIndex:idx_curve_date_snapshot;not null" json:"price_date"`
	SnapshotDate time.Time       `gorm:"column:snapshot_date;type:date;uniqueIndex:idx_curve_date_snapshot;not null" json:"snapshot_date"`
	Price        decimal.Decimal `gorm:"column:price;type:decimal(20,4);not null" json:"price"`
}

func (CurveDataPoint) TableName() string { return "curve_data" }

// CurveRepository 曲线仓储
type CurveRepository interface {
	Save(ctx context.Context, c *PriceCurve) error
	Update(ctx context.Context, c *PriceCurve) error
	FindByID(ctx context.Context, id uint) (*PriceCurve, error)
	FindByCode(ctx context.Context, code string) (*PriceCurve, error)
	List(ctx context.Context) ([]PriceCurve, error)
	// Delete 级联删除曲线与其全部数据点
	Delete(ctx context.Context, id uint) error
}

// CurveDataRepository 曲线数据点仓储
type CurveDataRepository interface {
	SaveBatch(ctx context.Context, points []CurveDataPoint) error
	// ListRange 取 [start, end] 闭区间内的数据点（price_date 升序）；
	// snapshot 非 nil 时只取该快照。
	ListRange(ctx context.Context, curveID uint, start, end time.Time, snapshot *time.Time) ([]CurveDataPoint, error)
	// LatestOnOrBefore 取 price_date ≤ date 的最新数据点，无则返回 nil。
	LatestOnOrBefore(ctx context.Context, curveID uint, date time.Time) (*CurveDataPoint, error)
	// Latest 取整条曲线最新的数据点，无则返回 nil。
	Latest(ctx context.Context, curveID uint) (*CurveDataPoint, error)
}
