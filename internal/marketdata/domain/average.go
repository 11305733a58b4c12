package domain

import (
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/xerrors"
)

// ErrNoData 请求窗口内没有任何曲线数据。
// 与参数错误区分开，调用方据此判断是"输入有误"还是"行情缺失"。
var ErrNoData = xerrors.New(xerrors.ErrUnavailable, 404101,
	"no curve data found for the given date range",
	"the curve has no points matching the requested window/snapshot", nil)

// IsNoData 判断错误是否为行情缺失
func IsNoData(err error) bool {
	var xe *xerrors.Error
	return errors.As(err, &xe) && xe.Type == xerrors.ErrUnavailable && xe.Code == 404101
}

// WindowAverage 曲线窗口均价结果
type WindowAverage struct {
	Average decimal.Decimal `json:"average"`
	Count   int             `json:"count"`
}

// Average 对窗口内数据点求无加权算术平均。
// latestSnapshotOnly 为 true 时，每个 price_date 只取 snapshot_date 最大的
// 一条（该日最新修正），再对每个不同交易日各取一点求平均；
// 为 false 时认为调用方已按精确快照过滤，直接对全部点求平均。
// 点集为空返回 ErrNoData。结果与输入顺序无关。
func Average(points []CurveDataPoint, latestSnapshotOnly bool) (WindowAverage, error) {
	selected := points
	if latestSnapshotOnly {
		selected = latestPerPriceDate(points)
	}
	if len(selected) == 0 {
		return WindowAverage{}, ErrNoData
	}
	sum := decimal.Zero
	for i := range selected {
		sum = sum.Add(selected[i].Price)
	}
	return WindowAverage{
		Average: sum.Div(decimal.NewFromInt(int64(len(selected)))),
		Count:   len(selected),
	}, nil
}

// latestPerPriceDate 每个 price_date 保留 snapshot_date 最大的数据点，
// 返回按 price_date 升序的确定性序列。
func latestPerPriceDate(points []CurveDataPoint) []CurveDataPoint {
	best := make(map[time.Time]CurveDataPoint, len(points))
	for i := range points {
		p := points[i]
		key := dateKey(p.PriceDate)
		cur, ok := best[key]
		if !ok || p.SnapshotDate.After(cur.SnapshotDate) {
			best[key] = p
		}
	}
	out := make([]CurveDataPoint, 0, len(best))
	for _, p := range best {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PriceDate.Before(out[j].PriceDate) })
	return out
}

// dateKey 归一到日粒度，避免时区/时刻噪声影响分组
func dateKey(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
