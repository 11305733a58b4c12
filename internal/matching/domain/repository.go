package domain

import "context"

// MatchRepository 撮合记录仓储
type MatchRepository interface {
	Save(ctx context.Context, m *Match) error
	// ReplaceAll 以事务方式清空并整体重建撮合记录
	ReplaceAll(ctx context.Context, matches []Match) error
	FindByID(ctx context.Context, id uint) (*Match, error)
	List(ctx context.Context) ([]Match, error)
	ListByContract(ctx context.Context, contractID uint) ([]Match, error)
	Delete(ctx context.Context, id uint) error
	// DeleteAll 清空全部撮合记录，返回删除条数
	DeleteAll(ctx context.Context) (int64, error)
}
