package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format used for search dates and labels.
const DateLayout = "2006-01-02"

type Direction string

const (
	DirectionOutbound Direction = "outbound"
	DirectionInbound  Direction = "inbound"
)

type PassengerType string

const (
	PassengerAdult  PassengerType = "adult"
	PassengerChild  PassengerType = "child"
	PassengerInfant PassengerType = "infant"
)

// ParsePassengerType maps upstream codes (ADT, CHD, INF, ...) onto PassengerType.
func ParsePassengerType(s string) (PassengerType, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ADT", "ADULT":
		return PassengerAdult, true
	case "CHD", "CNN", "CHILD":
		return PassengerChild, true
	case "INF", "INFANT":
		return PassengerInfant, true
	default:
		return "", false
	}
}

// FareRecord is one priced fare option for one passenger type on one flight leg.
type FareRecord struct {
	FlightNumber  string    `json:"flight_no"`
	Origin        string    `json:"origin"`
	Destination   string    `json:"destination"`
	Direction     Direction `json:"direction,omitempty"` // empty when upstream did not tag it
	DepartureTime time.Time `json:"departure_time"`
	ArrivalTime   time.Time `json:"arrival_time"`

	FareClass     string        `json:"fare_class"` // "B", "M", "Y", "J"...
	FareType      string        `json:"fare_type"`  // "economy", "plus", "premium"...
	PassengerType PassengerType `json:"passenger_type"`
	FareRef       string        `json:"fare_ref,omitempty"`

	PriceAfterTax      decimal.Decimal `json:"price_after_tax"`
	PriceBeforeTax     decimal.Decimal `json:"price_before_tax"`
	BasePriceBeforeTax decimal.Decimal `json:"base_price_before_tax"`
	PromotionAmount    decimal.Decimal `json:"promotion_amount"`

	Availability int `json:"availability"` // 0 = sold out
}

func (f FareRecord) IsAdult() bool { return f.PassengerType == PassengerAdult }

// DepartureDate returns the local calendar date of departure.
func (f FareRecord) DepartureDate() string {
	if f.DepartureTime.IsZero() {
		return ""
	}
	return f.DepartureTime.Format(DateLayout)
}

// FlightKey identifies the flight a fare belongs to.
func (f FareRecord) FlightKey() string {
	return fmt.Sprintf("%s|%s|%s", f.FlightNumber, f.Direction, f.DepartureTime.Format(time.RFC3339))
}

// DatePair is one point of the search space.
type DatePair struct {
	Departure string `json:"departure"`
	Return    string `json:"return"`
}

// Label renders the pair the way alerts and dedup keys show it.
func (p DatePair) Label() string {
	return p.Departure + " → " + p.Return
}

func (p DatePair) String() string { return p.Label() }

// CrossDates builds every (departure, return) pair where return is not before departure.
func CrossDates(departures, returns []string) []DatePair {
	pairs := make([]DatePair, 0, len(departures)*len(returns))
	for _, d := range departures {
		for _, r := range returns {
			if r < d {
				continue
			}
			pairs = append(pairs, DatePair{Departure: d, Return: r})
		}
	}
	return pairs
}

// FareQuery is what the orchestration loop asks the fetch collaborator for.
type FareQuery struct {
	Origin      string
	Destination string
	Pair        DatePair
	Passengers  int
	Currency    string
}

// FareBatch is a successful fetch result. A batch with no records is not an error.
type FareBatch struct {
	Records       []FareRecord
	ParseWarnings int
	FetchedAt     time.Time
}
