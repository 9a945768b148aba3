package fares

import (
	"time"

	"FarePull/internal/domain/models"

	"github.com/shopspring/decimal"
)

var testPair = models.DatePair{Departure: "2026-03-08", Return: "2026-03-15"}

func fare(flight string, dir models.Direction, class, typ string, price int64, avail int) models.FareRecord {
	dep := time.Date(2026, 3, 8, 6, 30, 0, 0, time.UTC)
	if dir == models.DirectionInbound {
		dep = time.Date(2026, 3, 15, 18, 10, 0, 0, time.UTC)
	}
	p := decimal.NewFromInt(price)
	return models.FareRecord{
		FlightNumber:       flight,
		Origin:             "BUE",
		Destination:        "FLN",
		Direction:          dir,
		DepartureTime:      dep,
		ArrivalTime:        dep.Add(3 * time.Hour),
		FareClass:          class,
		FareType:           typ,
		PassengerType:      models.PassengerAdult,
		PriceAfterTax:      p,
		PriceBeforeTax:     p,
		BasePriceBeforeTax: p,
		Availability:       avail,
	}
}

func fixedClock() time.Time { return time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC) }
