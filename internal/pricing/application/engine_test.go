package application

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/pkg/xerrors"

	contractdomain "github.com/wyfcoding/commoditytrading/internal/contract/domain"
	mddomain "github.com/wyfcoding/commoditytrading/internal/marketdata/domain"
	"github.com/wyfcoding/commoditytrading/internal/pricing/domain"
)

type fakeFormulaRepo struct {
	byID map[uint]*domain.PricingFormula
}

func (f *fakeFormulaRepo) Save(_ context.Context, formula *domain.PricingFormula) error {
	if formula.ID == 0 {
		formula.ID = uint(len(f.byID) + 1)
	}
	f.byID[formula.ID] = formula
	return nil
}

func (f *fakeFormulaRepo) Update(_ context.Context, formula *domain.PricingFormula) error {
	f.byID[formula.ID] = formula
	return nil
}

func (f *fakeFormulaRepo) FindByID(_ context.Context, id uint) (*domain.PricingFormula, error) {
	if formula, ok := f.byID[id]; ok {
		return formula, nil
	}
	return nil, xerrors.NotFound("pricing formula not found")
}

func (f *fakeFormulaRepo) FindByName(_ context.Context, name string) (*domain.PricingFormula, error) {
	for _, formula := range f.byID {
		if formula.Name == name {
			return formula, nil
		}
	}
	return nil, xerrors.NotFound("pricing formula not found")
}

func (f *fakeFormulaRepo) List(_ context.Context) ([]*domain.PricingFormula, error) {
	out := make([]*domain.PricingFormula, 0, len(f.byID))
	for _, formula := range f.byID {
		out = append(out, formula)
	}
	return out, nil
}

func (f *fakeFormulaRepo) Delete(_ context.Context, id uint) error {
	delete(f.byID, id)
	return nil
}

type fakeContractRepo struct {
	byID map[uint]*contractdomain.Contract
}

func (f *fakeContractRepo) Save(_ context.Context, c *contractdomain.Contract) error {
	f.byID[c.ID] = c
	return nil
}

func (f *fakeContractRepo) Update(_ context.Context, c *contractdomain.Contract) error {
	f.byID[c.ID] = c
	return nil
}

func (f *fakeContractRepo) FindByID(_ context.Context, id uint) (*contractdomain.Contract, error) {
	if c, ok := f.byID[id]; ok {
		return c, nil
	}
	return nil, xerrors.NotFound("contract not found")
}

func (f *fakeContractRepo) FindByReference(_ context.Context, ref string) (*contractdomain.Contract, error) {
	for _, c := range f.byID {
		if c.Reference == ref {
			return c, nil
		}
	}
	return nil, xerrors.NotFound("contract not found")
}

func (f *fakeContractRepo) List(_ context.Context, _ contractdomain.ContractFilter) ([]contractdomain.Contract, error) {
	out := make([]contractdomain.Contract, 0, len(f.byID))
	for _, c := range f.byID {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeContractRepo) Delete(_ context.Context, id uint) error {
	delete(f.byID, id)
	return nil
}

type fakeShipmentRepo struct {
	byID map[uint]*contractdomain.Shipment
}

func (f *fakeShipmentRepo) Save(_ context.Context, s *contractdomain.Shipment) error {
	f.byID[s.ID] = s
	return nil
}

func (f *fakeShipmentRepo) Update(_ context.Context, s *contractdomain.Shipment) error {
	f.byID[s.ID] = s
	return nil
}

func (f *fakeShipmentRepo) FindByID(_ context.Context, id uint) (*contractdomain.Shipment, error) {
	if s, ok := f.byID[id]; ok {
		return s, nil
	}
	return nil, xerrors.NotFound("shipment not found")
}

func (f *fakeShipmentRepo) FindByReference(_ context.Context, ref string) (*contractdomain.Shipment, error) {
	for _, s := range f.byID {
		if s.Reference == ref {
			return s, nil
		}
	}
	return nil, xerrors.NotFound("shipment not found")
}

func (f *fakeShipmentRepo) ListByContract(_ context.Context, contractID uint) ([]contractdomain.Shipment, error) {
	var out []contractdomain.Shipment
	for _, s := range f.byID {
		if s.ContractID == contractID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeShipmentRepo) List(_ context.Context) ([]contractdomain.Shipment, error) {
	out := make([]contractdomain.Shipment, 0, len(f.byID))
	for _, s := range f.byID {
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeShipmentRepo) Delete(_ context.Context, id uint) error {
	delete(f.byID, id)
	return nil
}

type fakeAssayRepo struct {
	assays []*contractdomain.Assay
}

func (f *fakeAssayRepo) Save(_ context.Context, a *contractdomain.Assay) error {
	f.assays = append(f.assays, a)
	return nil
}

func (f *fakeAssayRepo) Update(_ context.Context, _ *contractdomain.Assay) error { return nil }

func (f *fakeAssayRepo) FindByID(_ context.Context, id uint) (*contractdomain.Assay, error) {
	for _, a := range f.assays {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, xerrors.NotFound("assay not found")
}

func (f *fakeAssayRepo) FindByShipmentAndType(_ context.Context, shipmentID uint, assayType contractdomain.AssayType) (*contractdomain.Assay, error) {
	for _, a := range f.assays {
		if a.ShipmentID == shipmentID && a.AssayType == assayType {
			return a, nil
		}
	}
	return nil, xerrors.NotFound("assay not found")
}

func (f *fakeAssayRepo) ListByShipment(_ context.Context, shipmentID uint) ([]contractdomain.Assay, error) {
	var out []contractdomain.Assay
	for _, a := range f.assays {
		if a.ShipmentID == shipmentID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAssayRepo) Delete(_ context.Context, _ uint) error { return nil }

type fakeAverager struct {
	avg   decimal.Decimal
	count int
	start time.Time
	end   time.Time
}

func (f *fakeAverager) Average(_ context.Context, _ uint, start, end time.Time, _ *time.Time) (mddomain.WindowAverage, error) {
	f.start, f.end = start, end
	return mddomain.WindowAverage{Average: f.avg, Count: f.count}, nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type engineFixture struct {
	engine    *PricingEngine
	shipments *fakeShipmentRepo
	assays    *fakeAssayRepo
	averager  *fakeAverager
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	formulas := &fakeFormulaRepo{byID: map[uint]*domain.PricingFormula{}}
	contracts := &fakeContractRepo{byID: map[uint]*contractdomain.Contract{}}
	shipments := &fakeShipmentRepo{byID: map[uint]*contractdomain.Shipment{}}
	assays := &fakeAssayRepo{}
	averager := &fakeAverager{avg: dec("110"), count: 20}

	formula := &domain.PricingFormula{
		Name:                  "62% Fe CFR Standard",
		CurveID:               1,
		BasisFe:               dec("62"),
		FeRatePerPct:          dec("1.5"),
		MoistureThreshold:     dec("8"),
		MoisturePenaltyPerPct: dec("0.5"),
		FixedPremium:          dec("1.00"),
		Adjustments: []domain.FormulaAdjustment{
			{Element: "SiO2", Threshold: dec("4.5"), PenaltyPerPct: dec("1.0")},
			{Element: "P", Threshold: dec("0.08"), PenaltyPerPct: dec("3.0")},
		},
	}
	formula.ID = 1
	formulas.byID[1] = formula

	contract := &contractdomain.Contract{
		Reference:        "CT-2025-001",
		Direction:        contractdomain.DirectionBuy,
		Quantity:         dec("75000"),
		QPConvention:     contractdomain.QPMonthOfBL,
		PricingFormulaID: 1,
	}
	contract.ID = 1
	contracts.byID[1] = contract

	blDate := day(2025, time.January, 15)
	shipment := &contractdomain.Shipment{
		Reference:  "SH-001",
		ContractID: 1,
		BLDate:     &blDate,
		BLQuantity: decPtr("50000"),
	}
	shipment.ID = 1
	shipments.byID[1] = shipment

	engine := NewPricingEngine(formulas, contracts, shipments, assays, averager, slog.Default())
	return &engineFixture{engine: engine, shipments: shipments, assays: assays, averager: averager}
}

func addAssay(f *engineFixture, assayType contractdomain.AssayType, fe, moisture, sio2, p string) {
	f.assays.assays = append(f.assays.assays, &contractdomain.Assay{
		ShipmentID: 1,
		AssayType:  assayType,
		Fe:         decPtr(fe),
		Moisture:   decPtr(moisture),
		SiO2:       decPtr(sio2),
		P:          decPtr(p),
	})
}

func TestComputeProvisional(t *testing.T) {
	f := newEngineFixture(t)
	addAssay(f, contractdomain.AssayTypeProvisional, "62.5", "8.5", "5.0", "0.10")

	result, err := f.engine.ComputeProvisional(context.Background(), 1)
	require.NoError(t, err)

	// 110 + 0.75 - 0.25 - 0.5 - 0.06 + 1.00
	assert.True(t, result.Price.Equal(dec("110.94")), "got %s", result.Price)
	assert.Equal(t, day(2025, time.January, 1), result.QPStart)
	assert.Equal(t, day(2025, time.January, 31), result.QPEnd)
	assert.Equal(t, 20, result.PointCount)

	stored := f.shipments.byID[1]
	require.NotNil(t, stored.ProvisionalPrice)
	assert.True(t, stored.ProvisionalPrice.Equal(dec("110.94")))
	assert.Nil(t, stored.FinalPrice)
}

func TestComputeProvisionalRequiresBLDate(t *testing.T) {
	f := newEngineFixture(t)
	addAssay(f, contractdomain.AssayTypeProvisional, "62.5", "8.5", "5.0", "0.10")
	f.shipments.byID[1].BLDate = nil

	_, err := f.engine.ComputeProvisional(context.Background(), 1)
	assert.Error(t, err)
}

func TestComputeProvisionalRequiresAssay(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.ComputeProvisional(context.Background(), 1)
	assert.Error(t, err)
}

func TestComputeFinalSettlesPnf(t *testing.T) {
	f := newEngineFixture(t)
	addAssay(f, contractdomain.AssayTypeProvisional, "62.5", "8.5", "5.0", "0.10")
	addAssay(f, contractdomain.AssayTypeFinal, "63", "8", "4.5", "0.08")

	_, err := f.engine.ComputeProvisional(context.Background(), 1)
	require.NoError(t, err)

	// 终局化验全部达标：110 + 1.5 + 1.00 = 112.5
	result, err := f.engine.ComputeFinal(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, result.Price.Equal(dec("112.5")), "got %s", result.Price)

	// (112.5 - 110.94) * 50000 = 78000.00
	require.NotNil(t, result.PnfAmount)
	assert.True(t, result.PnfAmount.Equal(dec("78000")), "got %s", result.PnfAmount)

	stored := f.shipments.byID[1]
	require.NotNil(t, stored.FinalPrice)
	assert.True(t, stored.FinalPrice.Equal(dec("112.5")))
}

func TestComputeFinalWithoutProvisionalLeavesPnfNull(t *testing.T) {
	f := newEngineFixture(t)
	addAssay(f, contractdomain.AssayTypeFinal, "63", "8", "4.5", "0.08")

	result, err := f.engine.ComputeFinal(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, result.PnfAmount)
	assert.Nil(t, f.shipments.byID[1].PnfAmount)
}

func TestComputeFinalWithoutBLQuantityLeavesPnfNull(t *testing.T) {
	f := newEngineFixture(t)
	addAssay(f, contractdomain.AssayTypeProvisional, "62.5", "8.5", "5.0", "0.10")
	addAssay(f, contractdomain.AssayTypeFinal, "63", "8", "4.5", "0.08")
	f.shipments.byID[1].BLQuantity = nil

	_, err := f.engine.ComputeProvisional(context.Background(), 1)
	require.NoError(t, err)

	result, err := f.engine.ComputeFinal(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, result.PnfAmount)
}
