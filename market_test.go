package rebalance

import (
	"errors"
	"slices"
	"testing"

	"github.com/etnz/rebalance/date"
)

// quote is a test helper building a Quote from USD floats.
func quote(close, adj, dividend float64) Quote {
	return Quote{Close: M(close, "USD"), AdjClose: M(adj, "USD"), Dividend: M(dividend, "USD")}
}

func newTestMarket() *Market {
	m := NewMarket()
	m.Add("AAPL", date.MustParse("2025-01-10"), quote(100, 100, 0))
	m.Add("AAPL", date.MustParse("2025-01-20"), quote(110, 110, 0.5))
	m.Add("AAPL", date.MustParse("2025-01-31"), quote(105, 105, 0))
	m.Add("VUAA.L", date.MustParse("2025-01-15"), quote(80, 80, 0))
	return m
}

func TestMarket_Get(t *testing.T) {
	m := newTestMarket()

	q, ok := m.Get("AAPL", date.MustParse("2025-01-20"))
	if !ok {
		t.Fatal("Get() on a recorded day must be ok")
	}
	if !q.Close.Equal(M(110, "USD")) {
		t.Errorf("Get().Close = %v, want %v", q.Close, M(110, "USD"))
	}

	if _, ok := m.Get("AAPL", date.MustParse("2025-01-15")); ok {
		t.Error("Get() on a missing day must not be ok")
	}
	if _, ok := m.Get("MSFT", date.MustParse("2025-01-20")); ok {
		t.Error("Get() on an unknown ticker must not be ok")
	}
}

func TestMarket_Nearest(t *testing.T) {
	m := newTestMarket()

	testCases := []struct {
		name    string
		day     string
		wantDay string
	}{
		{name: "exact", day: "2025-01-10", wantDay: "2025-01-10"},
		{name: "closest after", day: "2025-01-18", wantDay: "2025-01-20"},
		{name: "equidistant earlier wins", day: "2025-01-15", wantDay: "2025-01-10"},
		{name: "beyond the series", day: "2025-06-01", wantDay: "2025-01-31"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, on, err := m.Nearest("AAPL", date.MustParse(tc.day))
			if err != nil {
				t.Fatalf("Nearest() err = %v", err)
			}
			if on != date.MustParse(tc.wantDay) {
				t.Errorf("Nearest(%s) on %v, want %s", tc.day, on, tc.wantDay)
			}
		})
	}

	_, _, err := m.Nearest("MSFT", date.MustParse("2025-01-10"))
	if !errors.Is(err, ErrUnknownTicker) {
		t.Errorf("Nearest() on unknown ticker err = %v, want ErrUnknownTicker", err)
	}
}

func TestMarket_Start(t *testing.T) {
	m := newTestMarket()

	start, err := m.Start("AAPL", "VUAA.L")
	if err != nil {
		t.Fatalf("Start() err = %v", err)
	}
	// VUAA.L only has data from the 15th, so that is the first day with full coverage.
	if want := date.MustParse("2025-01-15"); start != want {
		t.Errorf("Start() = %v, want %v", start, want)
	}

	if _, err := m.Start("AAPL", "MSFT"); !errors.Is(err, ErrUnknownTicker) {
		t.Errorf("Start() with unknown ticker err = %v, want ErrUnknownTicker", err)
	}
}

func TestMarket_Dates(t *testing.T) {
	m := newTestMarket()

	r := date.Range{From: date.MustParse("2025-01-15"), To: date.MustParse("2025-01-31")}
	got := m.Dates(r, "AAPL", "VUAA.L")
	want := []date.Date{
		date.MustParse("2025-01-15"),
		date.MustParse("2025-01-20"),
		date.MustParse("2025-01-31"),
	}
	if !slices.Equal(got, want) {
		t.Errorf("Dates() = %v, want %v", got, want)
	}
}
