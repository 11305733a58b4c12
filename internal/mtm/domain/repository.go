package domain

import "context"

// MtmRepository 盯市记录仓储，只追加
type MtmRepository interface {
	Save(ctx context.Context, r *MtmRecord) error
	// ListByContract 按 valuation_date 降序返回合同的估值历史
	ListByContract(ctx context.Context, contractID uint) ([]MtmRecord, error)
	// LatestForContract 取合同最新一条估值记录，无则返回 nil
	LatestForContract(ctx context.Context, contractID uint) (*MtmRecord, error)
	List(ctx context.Context) ([]MtmRecord, error)
}
