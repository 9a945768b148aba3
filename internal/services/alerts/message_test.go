package alerts

import (
	"strings"
	"testing"
	"time"

	"FarePull/internal/domain/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatMoney(t *testing.T) {
	cases := map[string]string{
		"0":         "$0",
		"999":       "$999",
		"1000":      "$1.000",
		"380000":    "$380.000",
		"1234567":   "$1.234.567",
		"370370.67": "$370.371",
		"-2500":     "-$2.500",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatMoney(decimal.RequireFromString(in)), in)
	}
}

func TestAnomalyMessageCapsList(t *testing.T) {
	var anoms []models.Anomaly
	for i := 0; i < 8; i++ {
		anoms = append(anoms, zeroPrice("FO50"+string(rune('0'+i))))
	}
	msg := AnomalyMessage(anoms, time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC))
	assert.Contains(t, msg, "8 new glitch(es)")
	assert.Equal(t, maxAnomaliesPerMessage, strings.Count(msg, "FO50"))
}

func TestComboMessageShowsTotals(t *testing.T) {
	c := comboWithSeats(9, 12)
	c.Total = decimal.NewFromInt(380000)
	msg := ComboMessage("BUE→FLN", c, models.TierGreen, thresholds(), time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC))
	assert.Contains(t, msg, "GREEN")
	assert.Contains(t, msg, "$380.000")
	assert.Contains(t, msg, "Below ceiling by $220.000")
}
