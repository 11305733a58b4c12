package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(v string) *decimal.Decimal {
	d := dec(v)
	return &d
}

func makeShipment(status ShipmentStatus, qty, prov, final *decimal.Decimal) Shipment {
	return Shipment{
		Status:           status,
		BLQuantity:       qty,
		ProvisionalPrice: prov,
		FinalPrice:       final,
	}
}

func TestComputeOpenQuantity(t *testing.T) {
	c := &Contract{Quantity: dec("75000")}

	oq := ComputeOpenQuantity(c, []Shipment{
		makeShipment(ShipmentStatusDelivered, decPtr("30000"), nil, nil),
		makeShipment(ShipmentStatusInTransit, decPtr("20000"), nil, nil),
		makeShipment(ShipmentStatusCancelled, decPtr("10000"), nil, nil), // ignored
		makeShipment(ShipmentStatusPlanned, nil, nil, nil),               // no BL qty yet
	})

	assert.True(t, oq.ShippedQuantity.Equal(dec("50000")))
	assert.True(t, oq.OpenQuantity.Equal(dec("25000")))
}

func TestComputeOpenQuantity_OverShippedGoesNegative(t *testing.T) {
	c := &Contract{Quantity: dec("40000")}

	oq := ComputeOpenQuantity(c, []Shipment{
		makeShipment(ShipmentStatusDelivered, decPtr("50000"), nil, nil),
	})

	assert.True(t, oq.OpenQuantity.Equal(dec("-10000")))
}

func TestWeightedAveragePrice_FinalOverProvisional(t *testing.T) {
	shipments := []Shipment{
		// final price wins over provisional
		makeShipment(ShipmentStatusCompleted, decPtr("10000"), decPtr("100"), decPtr("110")),
		makeShipment(ShipmentStatusDelivered, decPtr("30000"), decPtr("90"), nil),
	}

	price := WeightedAveragePrice(shipments)
	require.NotNil(t, price)
	// (110*10000 + 90*30000) / 40000 = 95
	assert.True(t, price.Equal(dec("95")), "got %s", price)
}

func TestWeightedAveragePrice_SkipsCancelledAndUnpriced(t *testing.T) {
	shipments := []Shipment{
		makeShipment(ShipmentStatusCancelled, decPtr("10000"), decPtr("200"), nil),
		makeShipment(ShipmentStatusDelivered, decPtr("20000"), nil, nil),
		makeShipment(ShipmentStatusDelivered, decPtr("5000"), decPtr("80"), nil),
	}

	price := WeightedAveragePrice(shipments)
	require.NotNil(t, price)
	assert.True(t, price.Equal(dec("80")))
}

func TestWeightedAveragePrice_NilWhenNoPricedQuantity(t *testing.T) {
	assert.Nil(t, WeightedAveragePrice(nil))
	assert.Nil(t, WeightedAveragePrice([]Shipment{
		makeShipment(ShipmentStatusPlanned, decPtr("10000"), nil, nil),
	}))
}

func TestDirectionFactor(t *testing.T) {
	assert.True(t, DirectionBuy.Factor().Equal(dec("1")))
	assert.True(t, DirectionSell.Factor().Equal(dec("-1")))
}

func TestEffectivePrice(t *testing.T) {
	s := makeShipment(ShipmentStatusDelivered, decPtr("1"), decPtr("100"), nil)
	require.NotNil(t, s.EffectivePrice())
	assert.True(t, s.EffectivePrice().Equal(dec("100")))

	s.FinalPrice = decPtr("105")
	assert.True(t, s.EffectivePrice().Equal(dec("105")))
}
