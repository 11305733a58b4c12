// Package domain 盯市估值记录。
package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	contractdomain "github.com/wyfcoding/commoditytrading/internal/contract/domain"
)

// MtmRecord 一次盯市运行对单个合同的估值快照。
// 只追加，不回改；同日重跑会产生新记录。
type MtmRecord struct {
	gorm.Model
	ContractID    uint                     `gorm:"column:contract_id;index;not null" json:"contract_id"`
	ValuationDate time.Time                `gorm:"column:valuation_date;type:date;index;not null" json:"valuation_date"`
	SnapshotDate  *time.Time               `gorm:"column:snapshot_date;type:date" json:"snapshot_date"`
	Direction     contractdomain.Direction `gorm:"column:direction;type:varchar(8);not null" json:"direction"`

	CurvePrice    decimal.Decimal  `gorm:"column:curve_price;type:decimal(20,4);not null" json:"curve_price"`
	ContractPrice *decimal.Decimal `gorm:"column:contract_price;type:decimal(20,4)" json:"contract_price"`
	OpenQuantity  decimal.Decimal  `gorm:"column:open_quantity;type:decimal(20,4);not null" json:"open_quantity"`
	MtmValue      decimal.Decimal  `gorm:"column:mtm_value;type:decimal(20,2);not null" json:"mtm_value"`
}

func (MtmRecord) TableName() string { return "mtm_records" }
