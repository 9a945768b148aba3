package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"FarePull/internal/domain/models"
	domrepo "FarePull/internal/domain/repository"
	pkgch "FarePull/pkg/clickhouse"
	applogger "FarePull/pkg/logger"

	"github.com/shopspring/decimal"
)

const itineraryColumns = `id, created_at, departure_date, return_date, passengers, total, min_availability,
	out_flight, out_fare_type, out_fare_class, out_departure, out_price, out_availability,
	in_flight, in_fare_type, in_fare_class, in_departure, in_price, in_availability`

// ItinerarySchema creates the itineraries table. Decimal columns map onto shopspring/decimal in the driver.
func ItinerarySchema(database string) []string {
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.itineraries (
			id               String,
			created_at       DateTime64(3, 'UTC'),
			departure_date   Date,
			return_date      Date,
			passengers       UInt8,
			total            Decimal(18, 2),
			min_availability Int32,
			out_flight       LowCardinality(String),
			out_fare_type    LowCardinality(String),
			out_fare_class   LowCardinality(String),
			out_departure    DateTime('UTC'),
			out_price        Decimal(18, 2),
			out_availability Int32,
			in_flight        LowCardinality(String),
			in_fare_type     LowCardinality(String),
			in_fare_class    LowCardinality(String),
			in_departure     DateTime('UTC'),
			in_price         Decimal(18, 2),
			in_availability  Int32
		) ENGINE = MergeTree
		PARTITION BY toYYYYMM(created_at)
		ORDER BY (departure_date, return_date, created_at)
		TTL toDateTime(created_at) + INTERVAL 180 DAY`, database),
	}
}

// ClickHouseItineraries stores every combo of every cycle for offline price analysis.
type ClickHouseItineraries struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

var _ domrepo.ItineraryStore = (*ClickHouseItineraries)(nil)

func NewClickHouseItineraries(ch *pkgch.Client, l *applogger.Logger) *ClickHouseItineraries {
	return &ClickHouseItineraries{db: ch.DB(), table: ch.Database() + ".itineraries", l: l}
}

// SaveItineraries inserts in chunks of 2000 rows with multi-row VALUES.
func (s *ClickHouseItineraries) SaveItineraries(ctx context.Context, combos []models.RoundTripCombo) error {
	const chunkSize = 2000
	for start := 0; start < len(combos); start += chunkSize {
		end := start + chunkSize
		if end > len(combos) {
			end = len(combos)
		}

		values := make([]string, 0, end-start)
		args := make([]any, 0, (end-start)*19)
		for _, c := range combos[start:end] {
			dep, err := time.Parse(models.DateLayout, c.Pair.Departure)
			if err != nil {
				return fmt.Errorf("itinerary %s: %w", c.ID, err)
			}
			ret, err := time.Parse(models.DateLayout, c.Pair.Return)
			if err != nil {
				return fmt.Errorf("itinerary %s: %w", c.ID, err)
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				c.ID, c.CreatedAt.UTC(), dep, ret, uint8(c.Passengers), c.Total, int32(c.MinAvailability),
				c.Outbound.FlightNumber, c.Outbound.FareType, c.Outbound.FareClass, c.Outbound.DepartureTime.UTC(), c.Outbound.PriceAfterTax, int32(c.Outbound.Availability),
				c.Inbound.FlightNumber, c.Inbound.FareType, c.Inbound.FareClass, c.Inbound.DepartureTime.UTC(), c.Inbound.PriceAfterTax, int32(c.Inbound.Availability),
			)
		}

		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", s.table, itineraryColumns, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse itinerary insert failed", applogger.Int("rows", end-start), applogger.Error(err))
			}
			return fmt.Errorf("save itineraries: %w", err)
		}
	}
	return nil
}

// Recent returns the newest itineraries first. Only the stored leg fields are populated.
func (s *ClickHouseItineraries) Recent(ctx context.Context, limit int) ([]models.RoundTripCombo, error) {
	if limit <= 0 {
		limit = 50
	}
	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY created_at DESC LIMIT ?", itineraryColumns, s.table)
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("recent itineraries: %w", err)
	}
	defer rows.Close()

	out := make([]models.RoundTripCombo, 0, limit)
	for rows.Next() {
		var (
			c                 models.RoundTripCombo
			dep, ret          time.Time
			passengers        uint8
			minAvail          int32
			outAvail, inAvail int32
			total, outP, inP  decimal.Decimal
		)
		c.Outbound.Direction = models.DirectionOutbound
		c.Inbound.Direction = models.DirectionInbound
		if err := rows.Scan(
			&c.ID, &c.CreatedAt, &dep, &ret, &passengers, &total, &minAvail,
			&c.Outbound.FlightNumber, &c.Outbound.FareType, &c.Outbound.FareClass, &c.Outbound.DepartureTime, &outP, &outAvail,
			&c.Inbound.FlightNumber, &c.Inbound.FareType, &c.Inbound.FareClass, &c.Inbound.DepartureTime, &inP, &inAvail,
		); err != nil {
			return nil, fmt.Errorf("scan itinerary: %w", err)
		}
		c.Pair = models.DatePair{Departure: dep.Format(models.DateLayout), Return: ret.Format(models.DateLayout)}
		c.Passengers = int(passengers)
		c.Total = total
		c.MinAvailability = int(minAvail)
		c.Outbound.PriceAfterTax, c.Outbound.Availability = outP, int(outAvail)
		c.Inbound.PriceAfterTax, c.Inbound.Availability = inP, int(inAvail)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *ClickHouseItineraries) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op; the pool belongs to pkg/clickhouse.Client.
func (s *ClickHouseItineraries) Close() error { return nil }

// NoopItineraries is used when ClickHouse is disabled.
type NoopItineraries struct{}

var _ domrepo.ItineraryStore = NoopItineraries{}

func (NoopItineraries) SaveItineraries(context.Context, []models.RoundTripCombo) error { return nil }
func (NoopItineraries) Recent(context.Context, int) ([]models.RoundTripCombo, error)   { return nil, nil }
func (NoopItineraries) Health(context.Context) error                                   { return nil }
func (NoopItineraries) Close() error                                                   { return nil }
