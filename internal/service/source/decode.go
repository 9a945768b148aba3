package source

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"FarePull/internal/domain/models"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type graphQLError struct {
	Message string `json:"message"`
}

type searchResponse struct {
	Data *struct {
		Viewer struct {
			Flights struct {
				SearchURL string `json:"searchUrl"`
				Edges     []struct {
					Node *flightNode `json:"node"`
				} `json:"edges"`
			} `json:"flights"`
		} `json:"viewer"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

type flightNode struct {
	FlightNo      string            `json:"flightNo"`
	Origin        string            `json:"origin"`
	Destination   string            `json:"destination"`
	Direction     string            `json:"direction"`
	DepartureDate string            `json:"departureDate"`
	ArrivalDate   string            `json:"arrivalDate"`
	Fares         []json.RawMessage `json:"fares"`
}

type rawFare struct {
	FareRef       string     `json:"fareRef"`
	PassengerType string     `json:"passengerType" validate:"required"`
	Class         string     `json:"class"`
	Type          string     `json:"type" validate:"required_without=Class"`
	Availability  *int       `json:"availability" validate:"required,gte=0"`
	Prices        *rawPrices `json:"prices" validate:"required"`
}

type rawPrices struct {
	AfterTax        decimal.NullDecimal `json:"afterTax"`
	BeforeTax       decimal.NullDecimal `json:"beforeTax"`
	BaseBeforeTax   decimal.NullDecimal `json:"baseBeforeTax"`
	PromotionAmount decimal.NullDecimal `json:"promotionAmount"`
}

// decoder turns one GraphQL payload into fare records. A fare that fails to
// decode or validate is skipped and counted; it never fails the batch.
type decoder struct {
	validate *validator.Validate
}

func newDecoder() *decoder {
	return &decoder{validate: validator.New()}
}

func (d *decoder) decode(body []byte) ([]models.FareRecord, int, error) {
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, 0, fmt.Errorf("%w: graphql: %s", ErrUpstreamStatus, strings.Join(msgs, "; "))
	}
	if resp.Data == nil {
		return nil, 0, fmt.Errorf("%w: missing data", ErrMalformedPayload)
	}

	records := make([]models.FareRecord, 0, 64)
	warnings := 0
	for _, edge := range resp.Data.Viewer.Flights.Edges {
		n := edge.Node
		if n == nil {
			warnings++
			continue
		}
		dep, errDep := time.Parse(time.RFC3339, n.DepartureDate)
		arr, errArr := time.Parse(time.RFC3339, n.ArrivalDate)
		if errDep != nil || errArr != nil || n.FlightNo == "" {
			warnings += max(len(n.Fares), 1)
			continue
		}
		for _, raw := range n.Fares {
			rec, ok := d.fare(n, dep, arr, raw)
			if !ok {
				warnings++
				continue
			}
			records = append(records, rec)
		}
	}
	return records, warnings, nil
}

func (d *decoder) fare(n *flightNode, dep, arr time.Time, raw json.RawMessage) (models.FareRecord, bool) {
	var f rawFare
	if err := json.Unmarshal(raw, &f); err != nil {
		return models.FareRecord{}, false
	}
	if err := d.validate.Struct(f); err != nil {
		return models.FareRecord{}, false
	}
	if !f.Prices.AfterTax.Valid {
		return models.FareRecord{}, false
	}
	pax, ok := models.ParsePassengerType(f.PassengerType)
	if !ok {
		return models.FareRecord{}, false
	}

	return models.FareRecord{
		FlightNumber:       n.FlightNo,
		Origin:             n.Origin,
		Destination:        n.Destination,
		Direction:          parseDirection(n.Direction),
		DepartureTime:      dep,
		ArrivalTime:        arr,
		FareClass:          strings.ToUpper(strings.TrimSpace(f.Class)),
		FareType:           strings.TrimSpace(f.Type),
		PassengerType:      pax,
		FareRef:            f.FareRef,
		PriceAfterTax:      f.Prices.AfterTax.Decimal,
		PriceBeforeTax:     f.Prices.BeforeTax.Decimal,
		BasePriceBeforeTax: f.Prices.BaseBeforeTax.Decimal,
		PromotionAmount:    f.Prices.PromotionAmount.Decimal,
		Availability:       *f.Availability,
	}, true
}

func parseDirection(s string) models.Direction {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "outbound":
		return models.DirectionOutbound
	case "inbound":
		return models.DirectionInbound
	default:
		return ""
	}
}
