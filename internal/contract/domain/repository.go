package domain

import "context"

// ContractFilter 合同查询条件，nil 字段表示不过滤
type ContractFilter struct {
	Direction *Direction
	Status    *ContractStatus
	Statuses  []ContractStatus
}

// ContractRepository 合同仓储
type ContractRepository interface {
	Save(ctx context.Context, c *Contract) error
	Update(ctx context.Context, c *Contract) error
	FindByID(ctx context.Context, id uint) (*Contract, error)
	FindByReference(ctx context.Context, reference string) (*Contract, error)
	// List 按 delivery_start 升序返回满足条件的合同
	List(ctx context.Context, filter ContractFilter) ([]Contract, error)
	// Delete 级联删除合同及其船货与化验单
	Delete(ctx context.Context, id uint) error
}

// ShipmentRepository 船货仓储
type ShipmentRepository interface {
	Save(ctx context.Context, s *Shipment) error
	Update(ctx context.Context, s *Shipment) error
	FindByID(ctx context.Context, id uint) (*Shipment, error)
	FindByReference(ctx context.Context, reference string) (*Shipment, error)
	ListByContract(ctx context.Context, contractID uint) ([]Shipment, error)
	List(ctx context.Context) ([]Shipment, error)
	// Delete 级联删除船货与其化验单
	Delete(ctx context.Context, id uint) error
}

// AssayRepository 化验单仓储
type AssayRepository interface {
	Save(ctx context.Context, a *Assay) error
	Update(ctx context.Context, a *Assay) error
	FindByID(ctx context.Context, id uint) (*Assay, error)
	// FindByShipmentAndType 按船货与类型取化验单，缺失返回 NotFound
	FindByShipmentAndType(ctx context.Context, shipmentID uint, assayType AssayType) (*Assay, error)
	ListByShipment(ctx context.Context, shipmentID uint) ([]Assay, error)
	Delete(ctx context.Context, id uint) error
}
