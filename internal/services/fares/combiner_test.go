package fares

import (
	"testing"
	"time"

	"FarePull/internal/domain/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombine_TotalIsLegSumTimesPassengers(t *testing.T) {
	records := []models.FareRecord{
		fare("FO5920", models.DirectionOutbound, "B", "economy", 100000, 9),
		fare("FO5921", models.DirectionInbound, "B", "economy", 90000, 4),
	}

	combos := NewCombiner(WithCombinerClock(fixedClock)).Combine(testPair, records, 2)

	require.Len(t, combos, 1)
	assert.True(t, decimal.NewFromInt(380000).Equal(combos[0].Total), "got %s", combos[0].Total)
	assert.Equal(t, 4, combos[0].MinAvailability)
	assert.Equal(t, testPair, combos[0].Pair)
	assert.Equal(t, fixedClock(), combos[0].CreatedAt)
	assert.NotEmpty(t, combos[0].ID)
}

func TestCombine_NoRoundingDrift(t *testing.T) {
	ob := fare("FO1", models.DirectionOutbound, "B", "economy", 0, 5)
	ob.PriceAfterTax = decimal.RequireFromString("123456.78")
	ib := fare("FO2", models.DirectionInbound, "B", "economy", 0, 5)
	ib.PriceAfterTax = decimal.RequireFromString("0.11")

	combos := NewCombiner().Combine(testPair, []models.FareRecord{ob, ib}, 3)

	require.Len(t, combos, 1)
	assert.Equal(t, "370370.67", combos[0].Total.StringFixed(2))
}

func TestCombine_PicksCheapestEligibleAdultFare(t *testing.T) {
	child := fare("FO5920", models.DirectionOutbound, "B", "economy", 10, 9)
	child.PassengerType = models.PassengerChild
	records := []models.FareRecord{
		fare("FO5920", models.DirectionOutbound, "B", "economy", 120000, 9),
		fare("FO5920", models.DirectionOutbound, "B", "economy", 110000, 2),
		fare("FO5920", models.DirectionOutbound, "J", "plus", 150000, 9),
		fare("FO5920", models.DirectionOutbound, "M", "promo", 50000, 0), // sold out
		child,
		fare("FO5921", models.DirectionInbound, "Y", "standard", 95000, 1),
	}

	combos := NewCombiner().Combine(testPair, records, 1)

	require.Len(t, combos, 1)
	assert.True(t, decimal.NewFromInt(110000).Equal(combos[0].Outbound.PriceAfterTax))
	assert.Equal(t, 1, combos[0].MinAvailability)
}

func TestCombine_CartesianProductInInputOrder(t *testing.T) {
	ob2 := fare("FO2", models.DirectionOutbound, "B", "economy", 200, 5)
	ob2.DepartureTime = ob2.DepartureTime.Add(4 * time.Hour)
	records := []models.FareRecord{
		fare("FO1", models.DirectionOutbound, "B", "economy", 100, 5),
		ob2,
		fare("FO3", models.DirectionInbound, "B", "economy", 10, 5),
		fare("FO4", models.DirectionInbound, "B", "economy", 20, 5),
	}

	combos := NewCombiner().Combine(testPair, records, 1)

	require.Len(t, combos, 4)
	got := make([]string, 0, len(combos))
	for _, c := range combos {
		got = append(got, c.Outbound.FlightNumber+"+"+c.Inbound.FlightNumber)
	}
	assert.Equal(t, []string{"FO1+FO3", "FO1+FO4", "FO2+FO3", "FO2+FO4"}, got)
}

func TestCombine_FallsBackToDepartureDate(t *testing.T) {
	ob := fare("FO1", models.DirectionOutbound, "B", "economy", 100, 5)
	ib := fare("FO2", models.DirectionInbound, "B", "economy", 50, 5)
	ob.Direction, ib.Direction = "", ""

	combos := NewCombiner().Combine(testPair, []models.FareRecord{ib, ob}, 1)

	require.Len(t, combos, 1)
	assert.Equal(t, "FO1", combos[0].Outbound.FlightNumber)
	assert.Equal(t, "FO2", combos[0].Inbound.FlightNumber)
}

func TestCombine_EmptyLegYieldsEmptyList(t *testing.T) {
	records := []models.FareRecord{
		fare("FO1", models.DirectionOutbound, "B", "economy", 100, 5),
		fare("FO2", models.DirectionInbound, "B", "economy", 50, 0),
	}

	combos := NewCombiner().Combine(testPair, records, 1)

	assert.NotNil(t, combos)
	assert.Empty(t, combos)
}

func TestCombine_DoesNotMutateInput(t *testing.T) {
	records := []models.FareRecord{
		fare("FO1", models.DirectionOutbound, "J", "plus", 300, 5),
		fare("FO1", models.DirectionOutbound, "B", "economy", 100, 5),
		fare("FO2", models.DirectionInbound, "B", "economy", 50, 5),
	}
	before := append([]models.FareRecord(nil), records...)

	NewCombiner().Combine(testPair, records, 2)

	assert.Equal(t, before, records)
}
