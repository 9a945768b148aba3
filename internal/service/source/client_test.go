package source

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"FarePull/internal/domain/models"
	xhttp "FarePull/pkg/http"
	applogger "FarePull/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const okPayload = `{"data":{"viewer":{"flights":{"searchUrl":"x","edges":[
 {"node":{"flightNo":"FO5000","origin":"BUE","destination":"FLN","direction":"outbound",
   "departureDate":"2026-03-08T06:30:00-03:00","arrivalDate":"2026-03-08T09:30:00-03:00",
   "fares":[
     {"fareRef":"r1","passengerType":"ADT","class":"b","type":"economy","availability":7,
      "prices":{"afterTax":185000.5,"beforeTax":150000,"baseBeforeTax":150000,"promotionAmount":0}},
     {"fareRef":"r2","passengerType":"ADT","class":"M","type":"plus","availability":3,
      "prices":{"afterTax":"210000","beforeTax":"180000","baseBeforeTax":"180000","promotionAmount":null}},
     {"fareRef":"r3","passengerType":"ADT","class":"Y","type":"premium","availability":2},
     {"fareRef":"r4","passengerType":"XXX","class":"Y","type":"premium","availability":2,
      "prices":{"afterTax":1}},
     "garbage"
   ]}},
 {"node":{"flightNo":"FO5001","origin":"FLN","destination":"BUE","direction":"inbound",
   "departureDate":"2026-03-15T18:10:00-03:00","arrivalDate":"2026-03-15T21:10:00-03:00",
   "fares":[
     {"passengerType":"ADT","class":"B","type":"economy","availability":0,
      "prices":{"afterTax":175000,"beforeTax":140000,"baseBeforeTax":140000,"promotionAmount":0}}
   ]}}
]}}}}`

var testQuery = models.FareQuery{
	Origin:      "BUE",
	Destination: "FLN",
	Pair:        models.DatePair{Departure: "2026-03-08", Return: "2026-03-15"},
	Passengers:  2,
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{URL: srv.URL, APIKey: "secret", Timeout: 2 * time.Second}, applogger.Nop())
}

func TestFetchFares_DecodesAndSkipsBadFares(t *testing.T) {
	var got graphQLRequest
	var auth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		_, _ = io.WriteString(w, okPayload)
	})

	batch, err := c.FetchFares(context.Background(), testQuery)
	require.NoError(t, err)
	require.NotNil(t, batch)

	assert.Equal(t, "Key secret", auth)
	assert.Equal(t, "BUE", got.Variables.Input.Origin)
	assert.Equal(t, "2026-03-15", got.Variables.Input.ReturnDate)
	assert.Equal(t, 2, got.Variables.Input.Pax.Adults)
	assert.Equal(t, "ARS", got.Variables.Input.Currency)
	assert.Nil(t, got.Variables.Input.PromoCode)

	require.Len(t, batch.Records, 3)
	assert.Equal(t, 3, batch.ParseWarnings)

	first := batch.Records[0]
	assert.Equal(t, "FO5000", first.FlightNumber)
	assert.Equal(t, models.DirectionOutbound, first.Direction)
	assert.Equal(t, "B", first.FareClass)
	assert.Equal(t, models.PassengerAdult, first.PassengerType)
	assert.Equal(t, "185000.5", first.PriceAfterTax.String())
	assert.Equal(t, 7, first.Availability)
	assert.Equal(t, "2026-03-08", first.DepartureDate())

	assert.True(t, batch.Records[1].PromotionAmount.IsZero())
	assert.Equal(t, models.DirectionInbound, batch.Records[2].Direction)
	assert.Equal(t, 0, batch.Records[2].Availability)
}

func TestFetchFares_EmptyResultIsNotAnError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":{"viewer":{"flights":{"edges":[]}}}}`)
	})

	batch, err := c.FetchFares(context.Background(), testQuery)
	require.NoError(t, err)
	assert.Empty(t, batch.Records)
	assert.Zero(t, batch.ParseWarnings)
}

func TestFetchFares_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		want      error
		retryable bool
	}{
		{name: "server error", status: 503, body: "down", want: ErrTransient, retryable: true},
		{name: "rate limited", status: 429, body: "slow down", want: ErrTransient, retryable: true},
		{name: "forbidden", status: 403, body: "no", want: ErrUpstreamStatus},
		{name: "graphql errors", status: 200, body: `{"errors":[{"message":"bad input"}]}`, want: ErrUpstreamStatus},
		{name: "not json", status: 200, body: `<html>`, want: ErrMalformedPayload},
		{name: "no data", status: 200, body: `{}`, want: ErrMalformedPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			batch, err := c.FetchFares(context.Background(), testQuery)
			require.Error(t, err)
			assert.Nil(t, batch)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.retryable, IsRetryable(err))
		})
	}
}

func TestFetchFares_Timeout(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.FetchFares(ctx, testQuery)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransient)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchFares_CanceledIsNotRetryable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, okPayload)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FetchFares(ctx, testQuery)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, IsRetryable(err))
}

func TestFetchFares_RejectsZeroPassengers(t *testing.T) {
	c := New(Config{URL: "http://127.0.0.1:1"}, applogger.Nop())
	q := testQuery
	q.Passengers = 0
	_, err := c.FetchFares(context.Background(), q)
	require.Error(t, err)
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.True(t, IsRetryable(&xhttp.StatusError{Code: 502}))
	assert.False(t, IsRetryable(&xhttp.StatusError{Code: 400}))
	assert.False(t, IsRetryable(ErrMalformedPayload))
}
