// Package domain 撮合上下文领域逻辑：买卖合同的 FIFO 数量分配。
package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Match 撮合记录：一笔买方数量对一笔卖方数量的分配结果。
// 任一侧价格未知时盈亏为空。
type Match struct {
	gorm.Model
	BuyContractID   uint            `gorm:"column:buy_contract_id;index;not null" json:"buy_contract_id"`
	SellContractID  uint            `gorm:"column:sell_contract_id;index;not null" json:"sell_contract_id"`
	MatchedQuantity decimal.Decimal `gorm:"column:matched_quantity;type:decimal(20,4);not null" json:"matched_quantity"`

	BuyPrice    *decimal.Decimal `gorm:"column:buy_price;type:decimal(20,4)" json:"buy_price"`
	SellPrice   *decimal.Decimal `gorm:"column:sell_price;type:decimal(20,4)" json:"sell_price"`
	RealizedPnl *decimal.Decimal `gorm:"column:realized_pnl;type:decimal(20,2)" json:"realized_pnl"`

	MatchDate time.Time `gorm:"column:match_date;type:date;not null" json:"match_date"`
	Manual    bool      `gorm:"column:manual;not null;default:false" json:"manual"`
}

func (Match) TableName() string { return "matches" }

// BookEntry 撮合账本中的一侧合同：数量与加权均价（可缺省）。
type BookEntry struct {
	ContractID uint
	Quantity   decimal.Decimal
	Price      *decimal.Decimal
}

// AllocateFIFO 对买卖两侧按先进先出分配数量。
// 两侧入参均须已按交割起始日升序排列；分配完全由输入决定，
// 相同输入必然产出相同的撮合集合。
// 双侧价格齐备时按 (卖价 - 买价) x 数量 计算已实现盈亏，金额两位小数。
func AllocateFIFO(buys, sells []BookEntry, matchDate time.Time) []Match {
	matches := make([]Match, 0)

	sellIdx := 0
	var sellRemaining decimal.Decimal
	if len(sells) > 0 {
		sellRemaining = sells[0].Quantity
	}

	for _, buy := range buys {
		buyRemaining := buy.Quantity
		for buyRemaining.IsPositive() && sellIdx < len(sells) {
			if !sellRemaining.IsPositive() {
				sellIdx++
				if sellIdx < len(sells) {
					sellRemaining = sells[sellIdx].Quantity
				}
				continue
			}

			sell := sells[sellIdx]
			qty := decimal.Min(buyRemaining, sellRemaining)

			m := Match{
				BuyContractID:   buy.ContractID,
				SellContractID:  sell.ContractID,
				MatchedQuantity: qty,
				BuyPrice:        buy.Price,
				SellPrice:       sell.Price,
				MatchDate:       matchDate,
			}
			if buy.Price != nil && sell.Price != nil {
				pnl := sell.Price.Sub(*buy.Price).Mul(qty).Round(2)
				m.RealizedPnl = &pnl
			}
			matches = append(matches, m)

			buyRemaining = buyRemaining.Sub(qty)
			sellRemaining = sellRemaining.Sub(qty)
		}
	}
	return matches
}
