package domain

import "context"

// FormulaRepository 定价公式仓储接口。
type FormulaRepository interface {
	Save(ctx context.Context, formula *PricingFormula) error
	Update(ctx context.Context, formula *PricingFormula) error
	FindByID(ctx context.Context, id uint) (*PricingFormula, error)
	FindByName(ctx context.Context, name string) (*PricingFormula, error)
	List(ctx context.Context) ([]*PricingFormula, error)
	Delete(ctx context.Context, id uint) error
}
