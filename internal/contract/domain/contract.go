// Package domain 合同上下文领域模型：实货合同、船货（Shipment）与化验单（Assay）。
package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Direction 合同方向
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// Valid 校验方向取值
func (d Direction) Valid() bool {
	return d == DirectionBuy || d == DirectionSell
}

// Factor 估值方向因子：买入 +1，卖出 -1
func (d Direction) Factor() decimal.Decimal {
	if d == DirectionSell {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// ContractStatus 合同生命周期状态
type ContractStatus string

const (
	ContractStatusOpen      ContractStatus = "OPEN"
	ContractStatusExecuted  ContractStatus = "EXECUTED"
	ContractStatusClosed    ContractStatus = "CLOSED"
	ContractStatusCancelled ContractStatus = "CANCELLED"
)

func (s ContractStatus) Valid() bool {
	switch s {
	case ContractStatusOpen, ContractStatusExecuted, ContractStatusClosed, ContractStatusCancelled:
		return true
	}
	return false
}

// ShipmentStatus 船货状态
type ShipmentStatus string

const (
	ShipmentStatusPlanned   ShipmentStatus = "PLANNED"
	ShipmentStatusInTransit ShipmentStatus = "IN_TRANSIT"
	ShipmentStatusDelivered ShipmentStatus = "DELIVERED"
	ShipmentStatusCompleted ShipmentStatus = "COMPLETED"
	ShipmentStatusCancelled ShipmentStatus = "CANCELLED"
)

func (s ShipmentStatus) Valid() bool {
	switch s {
	case ShipmentStatusPlanned, ShipmentStatusInTransit, ShipmentStatusDelivered,
		ShipmentStatusCompleted, ShipmentStatusCancelled:
		return true
	}
	return false
}

// AssayType 化验单类型，每个船货每种类型至多一张
type AssayType string

const (
	AssayTypeProvisional AssayType = "PROVISIONAL"
	AssayTypeFinal       AssayType = "FINAL"
)

func (t AssayType) Valid() bool {
	return t == AssayTypeProvisional || t == AssayTypeFinal
}

// QPConvention 作价期（Quotational Period）约定
type QPConvention string

const (
	QPMonthOfBL    QPConvention = "MONTH_OF_BL"
	QPMonthPriorBL QPConvention = "MONTH_PRIOR_BL"
	QPMonthAfterBL QPConvention = "MONTH_AFTER_BL"
	QPCustom       QPConvention = "CUSTOM"
)

func (c QPConvention) Valid() bool {
	switch c {
	case QPMonthOfBL, QPMonthPriorBL, QPMonthAfterBL, QPCustom:
		return true
	}
	return false
}

// Contract 实货合同聚合根
type Contract struct {
	gorm.Model
	Reference        string          `gorm:"column:reference;type:varchar(64);uniqueIndex;not null" json:"reference"`
	Direction        Direction       `gorm:"column:direction;type:varchar(8);not null" json:"direction"`
	Counterparty     string          `gorm:"column:counterparty;type:varchar(128);not null" json:"counterparty"`
	Commodity        string          `gorm:"column:commodity;type:varchar(64);not null;default:'Iron Ore Fines'" json:"commodity"`
	Quantity         decimal.Decimal `gorm:"column:quantity;type:decimal(20,4);not null" json:"quantity"`
	UOM              string          `gorm:"column:uom;type:varchar(16);not null;default:'DMT'" json:"uom"`
	Incoterm         string          `gorm:"column:incoterm;type:varchar(16);not null;default:'CFR'" json:"incoterm"`
	DeliveryStart    time.Time       `gorm:"column:delivery_start;type:date;index;not null" json:"delivery_start"`
	DeliveryEnd      time.Time       `gorm:"column:delivery_end;type:date;not null" json:"delivery_end"`
	Status           ContractStatus  `gorm:"column:status;type:varchar(16);not null;default:'OPEN'" json:"status"`
	QPConvention     QPConvention    `gorm:"column:qp_convention;type:varchar(16);not null;default:'MONTH_OF_BL'" json:"qp_convention"`
	QPStartOffset    *int            `gorm:"column:qp_start_offset" json:"qp_start_offset"`
	QPEndOffset      *int            `gorm:"column:qp_end_offset" json:"qp_end_offset"`
	PricingFormulaID uint            `gorm:"column:pricing_formula_id;index;not null" json:"pricing_formula_id"`

	Shipments []Shipment `gorm:"foreignKey:ContractID" json:"shipments,omitempty"`
}

func (Contract) TableName() string { return "contracts" }

// Shipment 船货，归属于唯一合同。
// ProvisionalPrice / FinalPrice / PnfAmount 是定价引擎计算结果的写穿缓存，
// 只由定价引擎修改。
type Shipment struct {
	gorm.Model
	Reference  string         `gorm:"column:reference;type:varchar(64);uniqueIndex;not null" json:"reference"`
	ContractID uint           `gorm:"column:contract_id;index;not null" json:"contract_id"`
	VesselName string         `gorm:"column:vessel_name;type:varchar(128)" json:"vessel_name"`
	BLDate     *time.Time     `gorm:"column:bl_date;type:date" json:"bl_date"`
	BLQuantity *decimal.Decimal `gorm:"column:bl_quantity;type:decimal(20,4)" json:"bl_quantity"`
	Status     ShipmentStatus `gorm:"column:status;type:varchar(16);not null;default:'PLANNED'" json:"status"`

	ProvisionalPrice *decimal.Decimal `gorm:"column:provisional_price;type:decimal(20,4)" json:"provisional_price"`
	FinalPrice       *decimal.Decimal `gorm:"column:final_price;type:decimal(20,4)" json:"final_price"`
	PnfAmount        *decimal.Decimal `gorm:"column:pnf_amount;type:decimal(20,2)" json:"pnf_amount"`

	Assays []Assay `gorm:"foreignKey:ShipmentID" json:"assays,omitempty"`
}

func (Shipment) TableName() string { return "shipments" }

// EffectivePrice 船货生效价格：终价优先于暂定价，两者皆无返回 nil。
func (s *Shipment) EffectivePrice() *decimal.Decimal {
	if s.FinalPrice != nil {
		return s.FinalPrice
	}
	return s.ProvisionalPrice
}

// Assay 化验单，各项品位指标均可单独缺省
type Assay struct {
	gorm.Model
	ShipmentID uint      `gorm:"column:shipment_id;index;uniqueIndex:idx_shipment_assay_type;not null" json:"shipment_id"`
	AssayType  AssayType `gorm:"column:assay_type;type:varchar(16);uniqueIndex:idx_shipment_assay_type;not null" json:"assay_type"`

	Fe       *decimal.Decimal `gorm:"column:fe;type:decimal(10,4)" json:"fe"`
	Moisture *decimal.Decimal `gorm:"column:moisture;type:decimal(10,4)" json:"moisture"`
	SiO2     *decimal.Decimal `gorm:"column:sio2;type:decimal(10,4)" json:"sio2"`
	Al2O3    *decimal.Decimal `gorm:"column:al2o3;type:decimal(10,4)" json:"al2o3"`
	P        *decimal.Decimal `gorm:"column:p;type:decimal(10,4)" json:"p"`
	S        *decimal.Decimal `gorm:"column:s;type:decimal(10,4)" json:"s"`
}

func (Assay) TableName() string { return "assays" }

// Elements 返回杂质元素映射（键为小写元素名），供定价公式按元素取值。
func (a *Assay) Elements() map[string]*decimal.Decimal {
	return map[string]*decimal.Decimal{
		"sio2":  a.SiO2,
		"al2o3": a.Al2O3,
		"p":     a.P,
		"s":     a.S,
	}
}

// OpenQuantity 合同敞口数量拆解
type OpenQuantity struct {
	ContractID      uint            `json:"contract_id"`
	TotalQuantity   decimal.Decimal `json:"total_quantity"`
	ShippedQuantity decimal.Decimal `json:"shipped_quantity"`
	OpenQuantity    decimal.Decimal `json:"open_quantity"`
}

// ComputeOpenQuantity 计算合同敞口：合同量减去未取消船货的提单量之和。
// 超发时敞口为负，不做零值截断。
func ComputeOpenQuantity(c *Contract, shipments []Shipment) OpenQuantity {
	shipped := decimal.Zero
	for i := range shipments {
		s := &shipments[i]
		if s.Status == ShipmentStatusCancelled || s.BLQuantity == nil {
			continue
		}
		shipped = shipped.Add(*s.BLQuantity)
	}
	return OpenQuantity{
		ContractID:      c.ID,
		TotalQuantity:   c.Quantity,
		ShippedQuantity: shipped,
		OpenQuantity:    c.Quantity.Sub(shipped),
	}
}

// WeightedAveragePrice 按提单量加权的合同均价。
// 仅计入未取消、且价格与提单量同时已知的船货；总量为零返回 nil。
func WeightedAveragePrice(shipments []Shipment) *decimal.Decimal {
	totalQty := decimal.Zero
	totalValue := decimal.Zero
	for i := range shipments {
		s := &shipments[i]
		if s.Status == ShipmentStatusCancelled {
			continue
		}
		price := s.EffectivePrice()
		if price == nil || s.BLQuantity == nil {
			continue
		}
		totalQty = totalQty.Add(*s.BLQuantity)
		totalValue = totalValue.Add(price.Mul(*s.BLQuantity))
	}
	if totalQty.IsZero() {
		return nil
	}
	avg := totalValue.Div(totalQty)
	return &avg
}
