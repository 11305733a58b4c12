package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

var matchDay = time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

func TestAllocateFIFOSingleMatchNullPrices(t *testing.T) {
	buys := []BookEntry{{ContractID: 1, Quantity: dec("75000")}}
	sells := []BookEntry{{ContractID: 2, Quantity: dec("60000")}}

	matches := AllocateFIFO(buys, sells, matchDay)

	require.Len(t, matches, 1)
	m := matches[0]
	assert.Equal(t, uint(1), m.BuyContractID)
	assert.Equal(t, uint(2), m.SellContractID)
	assert.True(t, m.MatchedQuantity.Equal(dec("60000")))
	assert.Nil(t, m.BuyPrice)
	assert.Nil(t, m.SellPrice)
	assert.Nil(t, m.RealizedPnl)
}

func TestAllocateFIFOSpansMultipleSells(t *testing.T) {
	buys := []BookEntry{{ContractID: 1, Quantity: dec("100000")}}
	sells := []BookEntry{
		{ContractID: 2, Quantity: dec("40000")},
		{ContractID: 3, Quantity: dec("40000")},
		{ContractID: 4, Quantity: dec("40000")},
	}

	matches := AllocateFIFO(buys, sells, matchDay)

	require.Len(t, matches, 3)
	assert.True(t, matches[0].MatchedQuantity.Equal(dec("40000")))
	assert.True(t, matches[1].MatchedQuantity.Equal(dec("40000")))
	assert.True(t, matches[2].MatchedQuantity.Equal(dec("20000")))
	assert.Equal(t, uint(4), matches[2].SellContractID)
}

func TestAllocateFIFOCarriesSellRemainder(t *testing.T) {
	buys := []BookEntry{
		{ContractID: 1, Quantity: dec("30000")},
		{ContractID: 2, Quantity: dec("30000")},
	}
	sells := []BookEntry{{ContractID: 3, Quantity: dec("50000")}}

	matches := AllocateFIFO(buys, sells, matchDay)

	require.Len(t, matches, 2)
	assert.Equal(t, uint(1), matches[0].BuyContractID)
	assert.True(t, matches[0].MatchedQuantity.Equal(dec("30000")))
	assert.Equal(t, uint(2), matches[1].BuyContractID)
	assert.True(t, matches[1].MatchedQuantity.Equal(dec("20000")))
}

func TestAllocateFIFORealizedPnl(t *testing.T) {
	buys := []BookEntry{{ContractID: 1, Quantity: dec("50000"), Price: decPtr("105.5")}}
	sells := []BookEntry{{ContractID: 2, Quantity: dec("50000"), Price: decPtr("110")}}

	matches := AllocateFIFO(buys, sells, matchDay)

	require.Len(t, matches, 1)
	require.NotNil(t, matches[0].RealizedPnl)
	// (110 - 105.5) * 50000 = 225000.00
	assert.True(t, matches[0].RealizedPnl.Equal(dec("225000")), "got %s", matches[0].RealizedPnl)
}

func TestAllocateFIFOOneSidedPriceLeavesPnlNull(t *testing.T) {
	buys := []BookEntry{{ContractID: 1, Quantity: dec("10000"), Price: decPtr("100")}}
	sells := []BookEntry{{ContractID: 2, Quantity: dec("10000")}}

	matches := AllocateFIFO(buys, sells, matchDay)

	require.Len(t, matches, 1)
	assert.NotNil(t, matches[0].BuyPrice)
	assert.Nil(t, matches[0].SellPrice)
	assert.Nil(t, matches[0].RealizedPnl)
}

// 相同输入重复分配产出相同的撮合集合。
func TestAllocateFIFOIdempotent(t *testing.T) {
	buys := []BookEntry{
		{ContractID: 1, Quantity: dec("75000"), Price: decPtr("102")},
		{ContractID: 2, Quantity: dec("25000")},
	}
	sells := []BookEntry{
		{ContractID: 3, Quantity: dec("60000"), Price: decPtr("108")},
		{ContractID: 4, Quantity: dec("55000")},
	}

	first := AllocateFIFO(buys, sells, matchDay)
	second := AllocateFIFO(buys, sells, matchDay)
	assert.Equal(t, first, second)
}

// 任一合同被分配的总量不超过其自身数量。
func TestAllocateFIFOQuantityBound(t *testing.T) {
	buys := []BookEntry{
		{ContractID: 1, Quantity: dec("75000")},
		{ContractID: 2, Quantity: dec("10000")},
		{ContractID: 3, Quantity: dec("42500")},
	}
	sells := []BookEntry{
		{ContractID: 4, Quantity: dec("30000")},
		{ContractID: 5, Quantity: dec("120000")},
	}

	matches := AllocateFIFO(buys, sells, matchDay)

	byBuy := map[uint]decimal.Decimal{}
	bySell := map[uint]decimal.Decimal{}
	for _, m := range matches {
		byBuy[m.BuyContractID] = byBuy[m.BuyContractID].Add(m.MatchedQuantity)
		bySell[m.SellContractID] = bySell[m.SellContractID].Add(m.MatchedQuantity)
	}
	for _, b := range buys {
		assert.True(t, byBuy[b.ContractID].LessThanOrEqual(b.Quantity))
	}
	for _, s := range sells {
		assert.True(t, bySell[s.ContractID].LessThanOrEqual(s.Quantity))
	}
}

func TestAllocateFIFOEmptySides(t *testing.T) {
	assert.Empty(t, AllocateFIFO(nil, []BookEntry{{ContractID: 1, Quantity: dec("100")}}, matchDay))
	assert.Empty(t, AllocateFIFO([]BookEntry{{ContractID: 1, Quantity: dec("100")}}, nil, matchDay))
	assert.Empty(t, AllocateFIFO(nil, nil, matchDay))
}
