package domain

import (
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PricingFormula 定价公式：基准品位、水分罚则、杂质罚则与固定升贴水。
type PricingFormula struct {
	gorm.Model
	Name    string `gorm:"column:name;type:varchar(128);uniqueIndex;not null" json:"name"`
	CurveID uint   `gorm:"column:curve_id;index;not null" json:"curve_id"`

	BasisFe      decimal.Decimal `gorm:"column:basis_fe;type:decimal(10,4);not null;default:62" json:"basis_fe"`
	FeRatePerPct decimal.Decimal `gorm:"column:fe_rate_per_pct;type:decimal(10,4);not null;default:0" json:"fe_rate_per_pct"`

	MoistureThreshold     decimal.Decimal `gorm:"column:moisture_threshold;type:decimal(10,4);not null;default:8" json:"moisture_threshold"`
	MoisturePenaltyPerPct decimal.Decimal `gorm:"column:moisture_penalty_per_pct;type:decimal(10,4);not null;default:0" json:"moisture_penalty_per_pct"`

	FixedPremium decimal.Decimal `gorm:"column:fixed_premium;type:decimal(10,4);not null;default:0" json:"fixed_premium"`

	Adjustments []FormulaAdjustment `gorm:"foreignKey:FormulaID" json:"adjustments"`
}

func (PricingFormula) TableName() string { return "pricing_formulas" }

// FormulaAdjustment 单元素杂质罚则：只对超出阈值的部分计罚。
// 同一公式内元素唯一。
type FormulaAdjustment struct {
	gorm.Model
	FormulaID     uint            `gorm:"column:formula_id;index;uniqueIndex:idx_formula_element;not null" json:"formula_id"`
	Element       string          `gorm:"column:element;type:varchar(16);uniqueIndex:idx_formula_element;not null" json:"element"`
	Threshold     decimal.Decimal `gorm:"column:threshold;type:decimal(10,4);not null" json:"threshold"`
	PenaltyPerPct decimal.Decimal `gorm:"column:penalty_per_pct;type:decimal(10,4);not null" json:"penalty_per_pct"`
}

func (FormulaAdjustment) TableName() string { return "formula_adjustments" }

// PriceBreakdown 分项价格拆解。各字段按 4 位小数展示，
// 总价由未舍入的中间值相加后再舍入。
type PriceBreakdown struct {
	BasePrice         decimal.Decimal            `json:"base_price"`
	FeAdjustment      decimal.Decimal            `json:"fe_adjustment"`
	MoisturePenalty   decimal.Decimal            `json:"moisture_penalty"`
	ImpurityPenalties map[string]decimal.Decimal `json:"impurity_penalties"`
	FixedPremium      decimal.Decimal            `json:"fixed_premium"`
	TotalPrice        decimal.Decimal            `json:"total_price"`
}

// Evaluate 对公式求值。
// qpAverage 为作价期均价（基价）；fe / moisture 以及 elements 中的各元素值
// 均可缺省，缺省项不参与计算。elements 键为小写元素名。
// 杂质罚则只在实测值严格大于阈值时触发，按公式中原始元素名记录；
// 阈值内的元素不出现在结果映射中。
func Evaluate(f *PricingFormula, qpAverage decimal.Decimal, fe, moisture *decimal.Decimal, elements map[string]*decimal.Decimal) PriceBreakdown {
	basePrice := qpAverage

	feAdjustment := decimal.Zero
	if fe != nil && !f.FeRatePerPct.IsZero() {
		feAdjustment = fe.Sub(f.BasisFe).Mul(f.FeRatePerPct)
	}

	moisturePenalty := decimal.Zero
	if moisture != nil && !f.MoisturePenaltyPerPct.IsZero() {
		excess := moisture.Sub(f.MoistureThreshold)
		if excess.IsPositive() {
			moisturePenalty = excess.Mul(f.MoisturePenaltyPerPct).Neg()
		}
	}

	impurities := make(map[string]decimal.Decimal)
	impuritySum := decimal.Zero
	for i := range f.Adjustments {
		adj := &f.Adjustments[i]
		actual, ok := elements[strings.ToLower(adj.Element)]
		if !ok || actual == nil {
			continue
		}
		if actual.GreaterThan(adj.Threshold) {
			penalty := actual.Sub(adj.Threshold).Mul(adj.PenaltyPerPct).Neg()
			impurities[adj.Element] = penalty.Round(4)
			impuritySum = impuritySum.Add(penalty)
		}
	}

	total := basePrice.
		Add(feAdjustment).
		Add(moisturePenalty).
		Add(impuritySum).
		Add(f.FixedPremium)

	return PriceBreakdown{
		BasePrice:         basePrice.Round(4),
		FeAdjustment:      feAdjustment.Round(4),
		MoisturePenalty:   moisturePenalty.Round(4),
		ImpurityPenalties: impurities,
		FixedPremium:      f.FixedPremium.Round(4),
		TotalPrice:        total.Round(4),
	}
}
