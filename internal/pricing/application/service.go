// Package application 定价上下文应用服务：公式管理与定价引擎编排。
package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/xerrors"

	"github.com/wyfcoding/commoditytrading/internal/pricing/domain"
)

// CurveReader 公式绑定曲线的存在性校验入口。
type CurveReader interface {
	CurveExists(ctx context.Context, curveID uint) (bool, error)
}

// FormulaService 定价公式管理。
type FormulaService struct {
	formulas domain.FormulaRepository
	curves   CurveReader
	logger   *slog.Logger
}

func NewFormulaService(formulas domain.FormulaRepository, curves CurveReader, logger *slog.Logger) *FormulaService {
	return &FormulaService{formulas: formulas, curves: curves, logger: logger}
}

// AdjustmentInput 单元素罚则入参。
type AdjustmentInput struct {
	Element       string          `json:"element" binding:"required"`
	Threshold     decimal.Decimal `json:"threshold"`
	PenaltyPerPct decimal.Decimal `json:"penalty_per_pct"`
}

// CreateFormulaCmd 创建公式入参。
type CreateFormulaCmd struct {
	Name                  string            `json:"name" binding:"required"`
	CurveID               uint              `json:"curve_id" binding:"required"`
	BasisFe               decimal.Decimal   `json:"basis_fe"`
	FeRatePerPct          decimal.Decimal   `json:"fe_rate_per_pct"`
	MoistureThreshold     decimal.Decimal   `json:"moisture_threshold"`
	MoisturePenaltyPerPct decimal.Decimal   `json:"moisture_penalty_per_pct"`
	FixedPremium          decimal.Decimal   `json:"fixed_premium"`
	Adjustments           []AdjustmentInput `json:"adjustments"`
}

func (s *FormulaService) Create(ctx context.Context, cmd CreateFormulaCmd) (*domain.PricingFormula, error) {
	if existing, err := s.formulas.FindByName(ctx, cmd.Name); err == nil && existing != nil {
		return nil, xerrors.New(xerrors.ErrAlreadyExists, 409, "pricing formula name already exists", "", nil).
			WithContext("name", cmd.Name)
	} else if err != nil && !isNotFound(err) {
		return nil, err
	}

	ok, err := s.curves.CurveExists(ctx, cmd.CurveID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, xerrors.NotFound("price curve not found").WithContext("curve_id", cmd.CurveID)
	}

	seen := make(map[string]struct{}, len(cmd.Adjustments))
	formula := &domain.PricingFormula{
		Name:                  cmd.Name,
		CurveID:               cmd.CurveID,
		BasisFe:               defaultDec(cmd.BasisFe, "62"),
		FeRatePerPct:          cmd.FeRatePerPct,
		MoistureThreshold:     defaultDec(cmd.MoistureThreshold, "8"),
		MoisturePenaltyPerPct: cmd.MoisturePenaltyPerPct,
		FixedPremium:          cmd.FixedPremium,
	}
	for _, a := range cmd.Adjustments {
		if _, dup := seen[a.Element]; dup {
			return nil, xerrors.InvalidArg("duplicate adjustment element").WithContext("element", a.Element)
		}
		seen[a.Element] = struct{}{}
		formula.Adjustments = append(formula.Adjustments, domain.FormulaAdjustment{
			Element:       a.Element,
			Threshold:     a.Threshold,
			PenaltyPerPct: a.PenaltyPerPct,
		})
	}

	if err := s.formulas.Save(ctx, formula); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "pricing formula created", "formula_id", formula.ID, "name", formula.Name)
	return formula, nil
}

func (s *FormulaService) Get(ctx context.Context, id uint) (*domain.PricingFormula, error) {
	return s.formulas.FindByID(ctx, id)
}

func (s *FormulaService) List(ctx context.Context) ([]*domain.PricingFormula, error) {
	return s.formulas.List(ctx)
}

// UpdateFormulaCmd 更新公式入参。Adjustments 为整组替换。
type UpdateFormulaCmd struct {
	BasisFe               *decimal.Decimal  `json:"basis_fe"`
	FeRatePerPct          *decimal.Decimal  `json:"fe_rate_per_pct"`
	MoistureThreshold     *decimal.Decimal  `json:"moisture_threshold"`
	MoisturePenaltyPerPct *decimal.Decimal  `json:"moisture_penalty_per_pct"`
	FixedPremium          *decimal.Decimal  `json:"fixed_premium"`
	Adjustments           []AdjustmentInput `json:"adjustments"`
}

func (s *FormulaService) Update(ctx context.Context, id uint, cmd UpdateFormulaCmd) (*domain.PricingFormula, error) {
	formula, err := s.formulas.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cmd.BasisFe != nil {
		formula.BasisFe = *cmd.BasisFe
	}
	if cmd.FeRatePerPct != nil {
		formula.FeRatePerPct = *cmd.FeRatePerPct
	}
	if cmd.MoistureThreshold != nil {
		formula.MoistureThreshold = *cmd.MoistureThreshold
	}
	if cmd.MoisturePenaltyPerPct != nil {
		formula.MoisturePenaltyPerPct = *cmd.MoisturePenaltyPerPct
	}
	if cmd.FixedPremium != nil {
		formula.FixedPremium = *cmd.FixedPremium
	}
	if cmd.Adjustments != nil {
		formula.Adjustments = formula.Adjustments[:0]
		for _, a := range cmd.Adjustments {
			formula.Adjustments = append(formula.Adjustments, domain.FormulaAdjustment{
				FormulaID:     formula.ID,
				Element:       a.Element,
				Threshold:     a.Threshold,
				PenaltyPerPct: a.PenaltyPerPct,
			})
		}
	}
	if err := s.formulas.Update(ctx, formula); err != nil {
		return nil, err
	}
	return formula, nil
}

func (s *FormulaService) Delete(ctx context.Context, id uint) error {
	if _, err := s.formulas.FindByID(ctx, id); err != nil {
		return err
	}
	return s.formulas.Delete(ctx, id)
}

// EvaluateCmd 公式试算入参，不落库。
type EvaluateCmd struct {
	QPAverage decimal.Decimal             `json:"qp_average" binding:"required"`
	Fe        *decimal.Decimal            `json:"fe"`
	Moisture  *decimal.Decimal            `json:"moisture"`
	Elements  map[string]*decimal.Decimal `json:"elements"`
}

// Evaluate 按给定基价与品位试算公式，用于报价核对。
func (s *FormulaService) Evaluate(ctx context.Context, id uint, cmd EvaluateCmd) (*domain.PriceBreakdown, error) {
	formula, err := s.formulas.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	breakdown := domain.Evaluate(formula, cmd.QPAverage, cmd.Fe, cmd.Moisture, cmd.Elements)
	return &breakdown, nil
}

func defaultDec(v decimal.Decimal, def string) decimal.Decimal {
	if v.IsZero() {
		return decimal.RequireFromString(def)
	}
	return v
}

func isNotFound(err error) bool {
	var xe *xerrors.Error
	return errors.As(err, &xe) && xe.Type == xerrors.ErrNotFound
}
