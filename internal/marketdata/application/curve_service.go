// Package application 行情上下文应用服务：曲线维护、数据点录入与窗口均价。
package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/commoditytrading/internal/marketdata/domain"
	"github.com/wyfcoding/pkg/xerrors"
)

// CurveService 价格曲线应用服务
type CurveService struct {
	curves domain.CurveRepository
	data   domain.CurveDataRepository
}

func NewCurveService(curves domain.CurveRepository, data domain.CurveDataRepository) *CurveService {
	return &CurveService{curves: curves, data: data}
}

// CreateCurveCmd 建曲线命令
type CreateCurveCmd struct {
	Code     string
	Name     string
	Currency string
	UOM      string
}

func (s *CurveService) Create(ctx context.Context, cmd CreateCurveCmd) (*domain.PriceCurve, error) {
	if existing, err := s.curves.FindByCode(ctx, cmd.Code); err == nil && existing != nil {
		return nil, xerrors.New(xerrors.ErrAlreadyExists, 409, "curve code already exists", "", nil).
			WithContext("code", cmd.Code)
	} else if err != nil && !isNotFound(err) {
		return nil, err
	}
	c := &domain.PriceCurve{
		Code:     cmd.Code,
		Name:     cmd.Name,
		Currency: defaultStr(cmd.Currency, "USD"),
		UOM:      defaultStr(cmd.UOM, "DMT"),
	}
	if err := s.curves.Save(ctx, c); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "price curve created", "curve_id", c.ID, "code", c.Code)
	return c, nil
}

func (s *CurveService) Get(ctx context.Context, id uint) (*domain.PriceCurve, error) {
	return s.curves.FindByID(ctx, id)
}

func (s *CurveService) GetByCode(ctx context.Context, code string) (*domain.PriceCurve, error) {
	return s.curves.FindByCode(ctx, code)
}

// CurveExists 曲线存在性校验，供公式绑定等跨上下文调用。
func (s *CurveService) CurveExists(ctx context.Context, id uint) (bool, error) {
	if _, err := s.curves.FindByID(ctx, id); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *CurveService) List(ctx context.Context) ([]domain.PriceCurve, error) {
	return s.curves.List(ctx)
}

// UpdateCurveCmd 曲线更新命令，nil 字段保持不变
type UpdateCurveCmd struct {
	Name     *string
	Currency *string
	UOM      *string
}

func (s *CurveService) Update(ctx context.Context, id uint, cmd UpdateCurveCmd) (*domain.PriceCurve, error) {
	c, err := s.curves.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cmd.Name != nil {
		c.Name = *cmd.Name
	}
	if cmd.Currency != nil {
		c.Currency = *cmd.Currency
	}
	if cmd.UOM != nil {
		c.UOM = *cmd.UOM
	}
	if err := s.curves.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CurveService) Delete(ctx context.Context, id uint) error {
	return s.curves.Delete(ctx, id)
}

// PointInput 单个数据点录入
type PointInput struct {
	PriceDate    time.Time
	SnapshotDate time.Time
	Price        decimal.Decimal
}

// UploadData 批量追加数据点。同日修正以新 (price_date, snapshot_date) 行进入，
// 从不原地更新。
func (s *CurveService) UploadData(ctx context.Context, curveID uint, inputs []PointInput) ([]domain.CurveDataPoint, error) {
	if _, err := s.curves.FindByID(ctx, curveID); err != nil {
		return nil, err
	}
	points := make([]domain.CurveDataPoint, 0, len(inputs))
	for _, in := range inputs {
		points = append(points, domain.CurveDataPoint{
			CurveID:      curveID,
			PriceDate:    in.PriceDate,
			SnapshotDate: in.SnapshotDate,
			Price:        in.Price,
		})
	}
	if err := s.data.SaveBatch(ctx, points); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "curve data uploaded", "curve_id", curveID, "points", len(points))
	return points, nil
}

// QueryData 按窗口（可选快照）查数据点
func (s *CurveService) QueryData(ctx context.Context, curveID uint, start, end time.Time, snapshot *time.Time) ([]domain.CurveDataPoint, error) {
	if _, err := s.curves.FindByID(ctx, curveID); err != nil {
		return nil, err
	}
	return s.data.ListRange(ctx, curveID, start, end, snapshot)
}

// Average 曲线窗口均价。
// 给定快照时只用该快照的点；否则每个交易日取最新修正。
// 窗口内无点返回 domain.ErrNoData。
func (s *CurveService) Average(ctx context.Context, curveID uint, start, end time.Time, snapshot *time.Time) (domain.WindowAverage, error) {
	if _, err := s.curves.FindByID(ctx, curveID); err != nil {
		return domain.WindowAverage{}, err
	}
	points, err := s.data.ListRange(ctx, curveID, start, end, snapshot)
	if err != nil {
		return domain.WindowAverage{}, err
	}
	return domain.Average(points, snapshot == nil)
}

// LatestOnOrBefore 透出数据仓储的回退查询，供 MTM 引擎的价格回退链使用
func (s *CurveService) LatestOnOrBefore(ctx context.Context, curveID uint, date time.Time) (*domain.CurveDataPoint, error) {
	return s.data.LatestOnOrBefore(ctx, curveID, date)
}

// Latest 整条曲线最新数据点
func (s *CurveService) Latest(ctx context.Context, curveID uint) (*domain.CurveDataPoint, error) {
	return s.data.Latest(ctx, curveID)
}

func defaultStr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func isNotFound(err error) bool {
	var xe *xerrors.Error
	return errors.As(err, &xe) && xe.Type == xerrors.ErrNotFound
}
