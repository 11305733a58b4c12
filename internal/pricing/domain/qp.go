// Package domain 定价上下文领域逻辑：作价期解析与定价公式求值。
package domain

import (
	"time"

	contractdomain "github.com/wyfcoding/commoditytrading/internal/contract/domain"
	"github.com/wyfcoding/pkg/xerrors"
)

// QPWindow 作价期窗口，闭区间
type QPWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ResolveQPWindow 按约定从提单日解析作价期窗口。
// CUSTOM 约定必须同时给出起止日偏移；未知约定返回参数错误。
// 纯日期运算，跨年翻转（12月↔1月）由 time.Date 归一化保证。
func ResolveQPWindow(convention contractdomain.QPConvention, blDate time.Time, startOffset, endOffset *int) (QPWindow, error) {
	y, m, _ := blDate.Date()
	loc := blDate.Location()

	switch convention {
	case contractdomain.QPMonthOfBL:
		return QPWindow{
			Start: time.Date(y, m, 1, 0, 0, 0, 0, loc),
			End:   time.Date(y, m+1, 0, 0, 0, 0, 0, loc),
		}, nil

	case contractdomain.QPMonthPriorBL:
		return QPWindow{
			Start: time.Date(y, m-1, 1, 0, 0, 0, 0, loc),
			End:   time.Date(y, m, 0, 0, 0, 0, 0, loc),
		}, nil

	case contractdomain.QPMonthAfterBL:
		return QPWindow{
			Start: time.Date(y, m+1, 1, 0, 0, 0, 0, loc),
			End:   time.Date(y, m+2, 0, 0, 0, 0, 0, loc),
		}, nil

	case contractdomain.QPCustom:
		if startOffset == nil || endOffset == nil {
			return QPWindow{}, xerrors.InvalidArg("CUSTOM QP requires start and end offsets")
		}
		return QPWindow{
			Start: blDate.AddDate(0, 0, *startOffset),
			End:   blDate.AddDate(0, 0, *endOffset),
		}, nil

	default:
		return QPWindow{}, xerrors.InvalidArg("unknown QP convention").
			WithContext("qp_convention", string(convention))
	}
}
