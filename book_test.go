package rebalance

import (
	"testing"

	"github.com/etnz/rebalance/date"
)

func newTestBook() *Book {
	b := NewBook("USD", "AAPL", "SGOV")
	d1, d2 := date.MustParse("2025-01-10"), date.MustParse("2025-01-20")
	b.appendHolding("AAPL", d1, 10)
	b.appendHolding("SGOV", d1, 0)
	b.appendCash(d1, M(100, "USD"))
	b.appendHolding("AAPL", d2, 10)
	b.appendHolding("SGOV", d2, 2)
	b.appendCash(d2, M(-5, "USD"))
	return b
}

func TestBook_ValueAt(t *testing.T) {
	b := newTestBook()
	m := newTestMarket()
	m.Add("SGOV", date.MustParse("2025-01-20"), quote(50, 50, 0))

	// Latest holdings are 10 AAPL and 2 SGOV with cash -5; pricing against
	// 2025-01-31 nearest closes: AAPL 105, SGOV 50.
	v, err := b.ValueAt(date.MustParse("2025-01-31"), m)
	if err != nil {
		t.Fatalf("ValueAt() err = %v", err)
	}
	want := M(10*105+2*50-5, "USD")
	if !v.Equal(want) {
		t.Errorf("ValueAt() = %v, want %v", v, want)
	}
}

func TestBook_ValueAt_Empty(t *testing.T) {
	b := NewBook("USD", "AAPL")
	v, err := b.ValueAt(date.MustParse("2025-01-10"), newTestMarket())
	if err != nil {
		t.Fatalf("ValueAt() err = %v", err)
	}
	if !v.IsZero() {
		t.Errorf("ValueAt() on an empty book = %v, want 0", v)
	}
}

func TestBook_ValueOn(t *testing.T) {
	b := newTestBook()
	m := newTestMarket()
	m.Add("SGOV", date.MustParse("2025-01-20"), quote(50, 50, 0))

	// On the first recorded date only AAPL is held: 10 × 100 + 100 cash.
	v, err := b.ValueOn(date.MustParse("2025-01-10"), m)
	if err != nil {
		t.Fatalf("ValueOn() err = %v", err)
	}
	if want := M(1100, "USD"); !v.Equal(want) {
		t.Errorf("ValueOn() = %v, want %v", v, want)
	}

	if _, err := b.ValueOn(date.MustParse("2025-01-15"), m); err == nil {
		t.Error("ValueOn() on a date without a ledger entry must fail")
	}
}

func TestBook_Row(t *testing.T) {
	b := newTestBook()
	row, ok := b.Row(date.MustParse("2025-01-20"))
	if !ok {
		t.Fatal("Row() on a recorded date must be ok")
	}
	if row.Holdings["AAPL"] != 10 || row.Holdings["SGOV"] != 2 {
		t.Errorf("Row().Holdings = %v, want AAPL 10, SGOV 2", row.Holdings)
	}
	if !row.Cash.Equal(M(-5, "USD")) {
		t.Errorf("Row().Cash = %v, want -5", row.Cash)
	}

	if _, ok := b.Row(date.MustParse("2025-01-15")); ok {
		t.Error("Row() between recorded dates must not be ok")
	}
}

func TestBook_Series(t *testing.T) {
	b := newTestBook()
	m := newTestMarket()
	m.Add("SGOV", date.MustParse("2025-01-20"), quote(50, 50, 0))

	nav, err := b.Series(m)
	if err != nil {
		t.Fatalf("Series() err = %v", err)
	}
	if nav.Len() != 2 {
		t.Fatalf("Series().Len() = %d, want 2", nav.Len())
	}
	// 2025-01-20: 10 AAPL at the nearest close 110, 2 SGOV at 50, cash -5.
	v, _ := nav.Get(date.MustParse("2025-01-20"))
	if want := M(10*110+2*50-5, "USD"); !v.Equal(want) {
		t.Errorf("Series()[2025-01-20] = %v, want %v", v, want)
	}
}
