package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2026-03-08T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2026, 3, 8, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDate(t *testing.T) {
	got, ok := ParseTime("2026-03-08")
	if !ok || got.Day() != 8 {
		t.Fatalf("unexpected %v %v", got, ok)
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestParseDateList(t *testing.T) {
	got, err := ParseDateList(" 2026-03-08,2026-03-09 ,, 2026-03-08")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(got) != 2 || got[0] != "2026-03-08" || got[1] != "2026-03-09" {
		t.Fatalf("unexpected list %v", got)
	}

	if _, err := ParseDateList("2026-02-30"); err == nil {
		t.Fatalf("expected error for impossible date")
	}
}

func TestParseIntDefault(t *testing.T) {
	if ParseIntDefault("", 7) != 7 || ParseIntDefault("x", 7) != 7 || ParseIntDefault("12", 7) != 12 {
		t.Fatalf("unexpected ParseIntDefault result")
	}
}
