package alerts

import (
	"fmt"
	"strings"
	"time"

	"FarePull/internal/domain/models"

	"github.com/shopspring/decimal"
)

const (
	maxAnomaliesPerMessage = 5
	maxFlagsPerMessage     = 10
)

// FormatMoney renders an amount with dot thousands separators, e.g. $1.234.567.
func FormatMoney(d decimal.Decimal) string {
	s := d.Round(0).Abs().StringFixed(0)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if d.Round(0).IsNegative() {
		return "-$" + b.String()
	}
	return "$" + b.String()
}

// ComboMessage renders a price-tier alert for the best itinerary of a cycle.
func ComboMessage(route string, c models.RoundTripCombo, tier models.PriceTier, th models.Thresholds, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s PRICE ALERT* %s\n\n", tier, route)
	fmt.Fprintf(&b, "*TOTAL: %s* for %d passenger(s)\n\n", FormatMoney(c.Total), c.Passengers)
	writeLeg(&b, "OUTBOUND", c.Pair.Departure, c.Outbound)
	writeLeg(&b, "INBOUND", c.Pair.Return, c.Inbound)
	if saved := th.CeilingMax.Sub(c.Total); saved.IsPositive() {
		fmt.Fprintf(&b, "Below ceiling by %s\n", FormatMoney(saved))
	}
	fmt.Fprintf(&b, "\n%s", at.Format("02/01/2006 15:04"))
	return b.String()
}

func writeLeg(b *strings.Builder, label, date string, f models.FareRecord) {
	fmt.Fprintf(b, "*%s* (%s)\n", label, date)
	fmt.Fprintf(b, "   %s→%s | %s-%s | flight %s | %s (%s)\n",
		f.Origin, f.Destination,
		f.DepartureTime.Format("15:04"), f.ArrivalTime.Format("15:04"),
		f.FlightNumber, FormatMoney(f.PriceAfterTax), f.FareType)
	fmt.Fprintf(b, "   %d seats\n\n", f.Availability)
}

// AnomalyMessage renders the active digest of new critical/high anomalies.
func AnomalyMessage(anoms []models.Anomaly, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*FARE GLITCH ALERT*\n\n*%d new glitch(es):*\n\n", len(anoms))
	for i, a := range anoms {
		if i == maxAnomaliesPerMessage {
			fmt.Fprintf(&b, "...and %d more\n\n", len(anoms)-i)
			break
		}
		switch a.Kind {
		case models.KindFareInversion:
			fmt.Fprintf(&b, "*Fare inversion* flight %s\n", a.FlightNumber)
			fmt.Fprintf(&b, "   `%s` (rank %d) %s\n", a.Cheap.FareType+"/"+a.Cheap.FareClass, a.Cheap.Rank, FormatMoney(a.Cheap.Price))
			fmt.Fprintf(&b, "   `%s` (rank %d) %s\n", a.Expensive.FareType+"/"+a.Expensive.FareClass, a.Expensive.Rank, FormatMoney(a.Expensive.Price))
			fmt.Fprintf(&b, "   Potential saving: *%s*\n", FormatMoney(*a.SavingsTotal))
		case models.KindZeroPrice:
			fmt.Fprintf(&b, "*Zero price* flight %s\n", a.FlightNumber)
		case models.KindNegativePrice:
			fmt.Fprintf(&b, "*Negative price* flight %s\n", a.FlightNumber)
		default:
			fmt.Fprintf(&b, "*%s* flight %s\n", a.Kind, a.FlightNumber)
		}
		fmt.Fprintf(&b, "   %s\n\n", a.Pair.Label())
	}
	b.WriteString(at.Format("02/01/2006 15:04"))
	return b.String()
}

// PromoMessage renders the silent digest of newly seen promotions.
func PromoMessage(promos []models.Anomaly, at time.Time) string {
	var b strings.Builder
	b.WriteString("*PROMO DETECTED*\n\n")
	for i, p := range promos {
		if i == maxAnomaliesPerMessage {
			break
		}
		fmt.Fprintf(&b, "Flight %s (%s)\n", p.FlightNumber, p.Direction)
		if p.DiscountPct != nil {
			fmt.Fprintf(&b, "   Discount: *%s%%*\n", p.DiscountPct.String())
		}
		if p.PromoAmount != nil {
			fmt.Fprintf(&b, "   Promo: %s\n", FormatMoney(*p.PromoAmount))
		}
		if p.AfterTax != nil {
			fmt.Fprintf(&b, "   Final price: %s\n", FormatMoney(*p.AfterTax))
		}
		fmt.Fprintf(&b, "   %s\n\n", p.Pair.Label())
	}
	b.WriteString(at.Format("02/01/2006 15:04"))
	return b.String()
}

// ScarewareMessage renders stale low-seat claims.
func ScarewareMessage(warnings []ScarewareWarning) string {
	lines := make([]string, 0, len(warnings))
	for _, w := range warnings {
		lines = append(lines, "- "+w.String())
	}
	return "*SCAREWARE ALERT*\n\n" + strings.Join(lines, "\n")
}

// FlagMessage renders critical feature-flag changes.
func FlagMessage(changes []models.FlagChange, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*FEATURE FLAG ALERT*\n\n*%d critical change(s):*\n\n", len(changes))
	for i, ch := range changes {
		if i == maxFlagsPerMessage {
			break
		}
		fmt.Fprintf(&b, "[%s] `%s`\n   before: `%v`\n   now: `%v`\n\n", ch.Type, ch.Key, ch.OldValue, ch.NewValue)
	}
	b.WriteString(at.Format("02/01/2006 15:04"))
	return b.String()
}
