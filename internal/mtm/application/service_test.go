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
	"github.com/wyfcoding/commoditytrading/internal/mtm/domain"
	pricingdomain "github.com/wyfcoding/commoditytrading/internal/pricing/domain"
)

type fakeMtmRepo struct {
	records []domain.MtmRecord
}

func (f *fakeMtmRepo) Save(_ context.Context, r *domain.MtmRecord) error {
	r.ID = uint(len(f.records) + 1)
	f.records = append(f.records, *r)
	return nil
}

func (f *fakeMtmRepo) ListByContract(_ context.Context, contractID uint) ([]domain.MtmRecord, error) {
	var out []domain.MtmRecord
	for i := len(f.records) - 1; i >= 0; i-- {
		if f.records[i].ContractID == contractID {
			out = append(out, f.records[i])
		}
	}
	return out, nil
}

func (f *fakeMtmRepo) LatestForContract(_ context.Context, contractID uint) (*domain.MtmRecord, error) {
	for i := len(f.records) - 1; i >= 0; i-- {
		if f.records[i].ContractID == contractID {
			return &f.records[i], nil
		}
	}
	return nil, nil
}

func (f *fakeMtmRepo) List(_ context.Context) ([]domain.MtmRecord, error) {
	return f.records, nil
}

type fakeContractRepo struct {
	byID map[uint]*contractdomain.Contract
}

func (f *fakeContractRepo) Save(_ context.Context, c *contractdomain.Contract) error {
	f.byID[c.ID] = c
	return nil
}

func (f *fakeContractRepo) Update(_ context.Context, _ *contractdomain.Contract) error { return nil }

func (f *fakeContractRepo) FindByID(_ context.Context, id uint) (*contractdomain.Contract, error) {
	if c, ok := f.byID[id]; ok {
		return c, nil
	}
	return nil, xerrors.NotFound("contract not found")
}

func (f *fakeContractRepo) FindByReference(_ context.Context, _ string) (*contractdomain.Contract, error) {
	return nil, xerrors.NotFound("contract not found")
}

func (f *fakeContractRepo) List(_ context.Context, filter contractdomain.ContractFilter) ([]contractdomain.Contract, error) {
	var out []contractdomain.Contract
	for _, c := range f.byID {
		if len(filter.Statuses) > 0 {
			keep := false
			for _, st := range filter.Statuses {
				if c.Status == st {
					keep = true
					break
				}
			}
			if !keep {
				continue
			}
		}
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeContractRepo) Delete(_ context.Context, _ uint) error { return nil }

type fakeShipmentRepo struct {
	byContract map[uint][]contractdomain.Shipment
}

func (f *fakeShipmentRepo) Save(_ context.Context, _ *contractdomain.Shipment) error   { return nil }
func (f *fakeShipmentRepo) Update(_ context.Context, _ *contractdomain.Shipment) error { return nil }

func (f *fakeShipmentRepo) FindByID(_ context.Context, _ uint) (*contractdomain.Shipment, error) {
	return nil, xerrors.NotFound("shipment not found")
}

func (f *fakeShipmentRepo) FindByReference(_ context.Context, _ string) (*contractdomain.Shipment, error) {
	return nil, xerrors.NotFound("shipment not found")
}

func (f *fakeShipmentRepo) ListByContract(_ context.Context, contractID uint) ([]contractdomain.Shipment, error) {
	return f.byContract[contractID], nil
}

func (f *fakeShipmentRepo) List(_ context.Context) ([]contractdomain.Shipment, error) {
	return nil, nil
}

func (f *fakeShipmentRepo) Delete(_ context.Context, _ uint) error { return nil }

type fakeFormulaRepo struct {
	formula *pricingdomain.PricingFormula
}

func (f *fakeFormulaRepo) Save(_ context.Context, _ *pricingdomain.PricingFormula) error   { return nil }
func (f *fakeFormulaRepo) Update(_ context.Context, _ *pricingdomain.PricingFormula) error { return nil }

func (f *fakeFormulaRepo) FindByID(_ context.Context, _ uint) (*pricingdomain.PricingFormula, error) {
	return f.formula, nil
}

func (f *fakeFormulaRepo) FindByName(_ context.Context, _ string) (*pricingdomain.PricingFormula, error) {
	return f.formula, nil
}

func (f *fakeFormulaRepo) List(_ context.Context) ([]*pricingdomain.PricingFormula, error) {
	return []*pricingdomain.PricingFormula{f.formula}, nil
}

func (f *fakeFormulaRepo) Delete(_ context.Context, _ uint) error { return nil }

// fakePricer 各回退层可单独置空。
type fakePricer struct {
	snapshotAvg *decimal.Decimal
	dayAvg      *decimal.Decimal
	onOrBefore  *mddomain.CurveDataPoint
	latest      *mddomain.CurveDataPoint
}

func (f *fakePricer) Average(_ context.Context, _ uint, _, _ time.Time, snapshot *time.Time) (mddomain.WindowAverage, error) {
	if snapshot != nil {
		if f.snapshotAvg == nil {
			return mddomain.WindowAverage{}, mddomain.ErrNoData
		}
		return mddomain.WindowAverage{Average: *f.snapshotAvg, Count: 1}, nil
	}
	if f.dayAvg == nil {
		return mddomain.WindowAverage{}, mddomain.ErrNoData
	}
	return mddomain.WindowAverage{Average: *f.dayAvg, Count: 1}, nil
}

func (f *fakePricer) LatestOnOrBefore(_ context.Context, _ uint, _ time.Time) (*mddomain.CurveDataPoint, error) {
	return f.onOrBefore, nil
}

func (f *fakePricer) Latest(_ context.Context, _ uint) (*mddomain.CurveDataPoint, error) {
	return f.latest, nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

var valuationDay = time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)

type fixture struct {
	svc       *MtmService
	records   *fakeMtmRepo
	contracts *fakeContractRepo
	shipments *fakeShipmentRepo
	pricer    *fakePricer
}

func newFixture(direction contractdomain.Direction, quantity string) *fixture {
	records := &fakeMtmRepo{}
	contracts := &fakeContractRepo{byID: map[uint]*contractdomain.Contract{}}
	shipments := &fakeShipmentRepo{byContract: map[uint][]contractdomain.Shipment{}}
	formula := &pricingdomain.PricingFormula{CurveID: 1}
	formula.ID = 1
	pricer := &fakePricer{dayAvg: decPtr("110")}

	contract := &contractdomain.Contract{
		Direction:        direction,
		Quantity:         dec(quantity),
		Status:           contractdomain.ContractStatusOpen,
		PricingFormulaID: 1,
	}
	contract.ID = 1
	contracts.byID[1] = contract

	svc := NewMtmService(records, contracts, shipments, &fakeFormulaRepo{formula: formula}, pricer, nil, slog.Default())
	return &fixture{svc: svc, records: records, contracts: contracts, shipments: shipments, pricer: pricer}
}

func TestRunForContractBuySide(t *testing.T) {
	f := newFixture(contractdomain.DirectionBuy, "75000")
	f.shipments.byContract[1] = []contractdomain.Shipment{
		{ContractID: 1, BLQuantity: decPtr("25000"), ProvisionalPrice: decPtr("100")},
	}

	record, err := f.svc.RunForContract(context.Background(), 1, valuationDay, nil)
	require.NoError(t, err)

	assert.True(t, record.OpenQuantity.Equal(dec("50000")))
	require.NotNil(t, record.ContractPrice)
	assert.True(t, record.ContractPrice.Equal(dec("100")))
	// (110 - 100) * 50000 * +1 = 500000.00
	assert.True(t, record.MtmValue.Equal(dec("500000")), "got %s", record.MtmValue)
}

func TestRunForContractSellSideNegatesValue(t *testing.T) {
	f := newFixture(contractdomain.DirectionSell, "75000")
	f.shipments.byContract[1] = []contractdomain.Shipment{
		{ContractID: 1, BLQuantity: decPtr("25000"), ProvisionalPrice: decPtr("100")},
	}

	record, err := f.svc.RunForContract(context.Background(), 1, valuationDay, nil)
	require.NoError(t, err)
	// (110 - 100) * 50000 * -1 = -500000.00
	assert.True(t, record.MtmValue.Equal(dec("-500000")), "got %s", record.MtmValue)
}

func TestRunForContractNoOpenQuantity(t *testing.T) {
	f := newFixture(contractdomain.DirectionBuy, "50000")
	f.shipments.byContract[1] = []contractdomain.Shipment{
		{ContractID: 1, BLQuantity: decPtr("60000"), ProvisionalPrice: decPtr("100")},
	}

	record, err := f.svc.RunForContract(context.Background(), 1, valuationDay, nil)
	require.NoError(t, err)

	// 超发导致敞口为负：记录敞口与估值清零，市场价照常解析
	assert.True(t, record.OpenQuantity.IsZero())
	assert.True(t, record.MtmValue.IsZero())
	assert.Nil(t, record.ContractPrice)
	assert.True(t, record.CurvePrice.Equal(dec("110")))
}

func TestRunForContractUnpricedShipmentsZeroValue(t *testing.T) {
	f := newFixture(contractdomain.DirectionBuy, "75000")

	record, err := f.svc.RunForContract(context.Background(), 1, valuationDay, nil)
	require.NoError(t, err)

	assert.True(t, record.OpenQuantity.Equal(dec("75000")))
	assert.Nil(t, record.ContractPrice)
	assert.True(t, record.MtmValue.IsZero())
}

func TestRunForContractAppendOnly(t *testing.T) {
	f := newFixture(contractdomain.DirectionBuy, "75000")

	_, err := f.svc.RunForContract(context.Background(), 1, valuationDay, nil)
	require.NoError(t, err)
	_, err = f.svc.RunForContract(context.Background(), 1, valuationDay, nil)
	require.NoError(t, err)

	assert.Len(t, f.records.records, 2)
}

func TestResolveCurvePriceFallbackChain(t *testing.T) {
	f := newFixture(contractdomain.DirectionBuy, "75000")
	snapshot := valuationDay

	// 第一层：精确快照命中
	f.pricer.snapshotAvg = decPtr("108")
	record, err := f.svc.RunForContract(context.Background(), 1, valuationDay, &snapshot)
	require.NoError(t, err)
	assert.True(t, record.CurvePrice.Equal(dec("108")))

	// 第二层：快照无数据则退到当日最新修正
	f.pricer.snapshotAvg = nil
	record, err = f.svc.RunForContract(context.Background(), 1, valuationDay, &snapshot)
	require.NoError(t, err)
	assert.True(t, record.CurvePrice.Equal(dec("110")))

	// 第三层：当日无数据则退到估值日前最近一点
	f.pricer.dayAvg = nil
	f.pricer.onOrBefore = &mddomain.CurveDataPoint{Price: dec("107")}
	record, err = f.svc.RunForContract(context.Background(), 1, valuationDay, &snapshot)
	require.NoError(t, err)
	assert.True(t, record.CurvePrice.Equal(dec("107")))

	// 第四层：整条曲线最新一点
	f.pricer.onOrBefore = nil
	f.pricer.latest = &mddomain.CurveDataPoint{Price: dec("112")}
	record, err = f.svc.RunForContract(context.Background(), 1, valuationDay, &snapshot)
	require.NoError(t, err)
	assert.True(t, record.CurvePrice.Equal(dec("112")))

	// 曲线完全无数据才失败
	f.pricer.latest = nil
	_, err = f.svc.RunForContract(context.Background(), 1, valuationDay, &snapshot)
	require.Error(t, err)
	assert.True(t, mddomain.IsNoData(err))
}

func TestRunPortfolioSumsRecords(t *testing.T) {
	f := newFixture(contractdomain.DirectionBuy, "50000")
	f.shipments.byContract[1] = []contractdomain.Shipment{
		{ContractID: 1, BLQuantity: decPtr("20000"), ProvisionalPrice: decPtr("100")},
	}

	sell := &contractdomain.Contract{
		Direction:        contractdomain.DirectionSell,
		Quantity:         dec("40000"),
		Status:           contractdomain.ContractStatusExecuted,
		PricingFormulaID: 1,
	}
	sell.ID = 2
	f.contracts.byID[2] = sell
	f.shipments.byContract[2] = []contractdomain.Shipment{
		{ContractID: 2, BLQuantity: decPtr("10000"), FinalPrice: decPtr("105")},
	}

	// 取消的合同不参与组合盯市
	cancelled := &contractdomain.Contract{
		Direction:        contractdomain.DirectionBuy,
		Quantity:         dec("99999"),
		Status:           contractdomain.ContractStatusCancelled,
		PricingFormulaID: 1,
	}
	cancelled.ID = 3
	f.contracts.byID[3] = cancelled

	result, err := f.svc.RunPortfolio(context.Background(), valuationDay, nil)
	require.NoError(t, err)
	require.Len(t, result.Records, 2)

	expected := decimal.Zero
	for _, r := range result.Records {
		expected = expected.Add(r.MtmValue)
	}
	assert.True(t, result.TotalMtm.Equal(expected))
}
