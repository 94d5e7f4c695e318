package rebalance

import (
	"fmt"
	"slices"

	"github.com/etnz/rebalance/date"
)

// Book is the holdings-and-cash ledger produced by a simulation.
//
// For every tracked symbol (the active tickers plus the reserve asset) it
// keeps an append-only history of whole share counts, one entry per simulation
// date, alongside a parallel cash history. Appending is the only mutation;
// entries are never deleted or rewritten, so a finished Book is a faithful
// record of the whole run.
type Book struct {
	currency string
	symbols  []string // tracked symbols, in tracking order
	holdings map[string]*date.History[int64]
	cash     date.History[Money]
}

// NewBook returns an empty book tracking the given symbols.
func NewBook(currency string, symbols ...string) *Book {
	b := &Book{
		currency: currency,
		symbols:  slices.Clone(symbols),
		holdings: make(map[string]*date.History[int64], len(symbols)),
	}
	for _, s := range b.symbols {
		b.holdings[s] = new(date.History[int64])
	}
	return b
}

// Currency returns the book's reporting currency.
func (b *Book) Currency() string { return b.currency }

// Symbols returns the tracked symbols in tracking order.
func (b *Book) Symbols() []string { return slices.Clone(b.symbols) }

// Len returns the number of recorded simulation dates.
func (b *Book) Len() int { return b.cash.Len() }

// position returns the latest recorded share count for symbol, zero when
// nothing was recorded yet.
func (b *Book) position(symbol string) int64 {
	_, shares := b.holdings[symbol].Latest()
	return shares
}

// cashBalance returns the latest recorded cash balance and whether any was
// recorded yet.
func (b *Book) cashBalance() (Money, bool) {
	if b.cash.Len() == 0 {
		return M(0, b.currency), false
	}
	_, balance := b.cash.Latest()
	return balance, true
}

// appendHolding records the share count of symbol for a simulation date.
func (b *Book) appendHolding(symbol string, day date.Date, shares int64) {
	b.holdings[symbol].Append(day, shares)
}

// appendCash records the cash balance for a simulation date.
func (b *Book) appendCash(day date.Date, balance Money) {
	b.cash.Append(day, balance)
}

// Holding returns the recorded share count of symbol on day.
func (b *Book) Holding(symbol string, day date.Date) (int64, bool) {
	h, ok := b.holdings[symbol]
	if !ok {
		return 0, false
	}
	return h.Get(day)
}

// Holdings returns the full share-count history of a tracked symbol, or nil
// for a symbol the book does not track.
func (b *Book) Holdings(symbol string) *date.History[int64] { return b.holdings[symbol] }

// Cash returns the recorded cash balance on day.
func (b *Book) Cash(day date.Date) (Money, bool) { return b.cash.Get(day) }

// Dates returns the recorded simulation dates in ascending order.
func (b *Book) Dates() []date.Date {
	days := make([]date.Date, 0, b.cash.Len())
	for on := range b.cash.Values() {
		days = append(days, on)
	}
	return days
}

// Row is one date-indexed line of the ledger table: one share count per
// tracked symbol, plus cash.
type Row struct {
	Date     date.Date
	Holdings map[string]int64
	Cash     Money
}

// Row returns the ledger line recorded for a simulation date.
func (b *Book) Row(day date.Date) (Row, bool) {
	balance, ok := b.cash.Get(day)
	if !ok {
		return Row{}, false
	}
	row := Row{Date: day, Holdings: make(map[string]int64, len(b.symbols)), Cash: balance}
	for _, s := range b.symbols {
		shares, _ := b.holdings[s].Get(day)
		row.Holdings[s] = shares
	}
	return row, true
}

// ValueAt prices the latest recorded holdings against the nearest quotes at
// day and adds the latest cash balance. During a run this is the sizing value
// of the portfolio: rebalancing intentionally prices yesterday's holdings
// against today's close.
func (b *Book) ValueAt(day date.Date, market *Market) (Money, error) {
	value, _ := b.cashBalance()
	for _, s := range b.symbols {
		shares := b.position(s)
		if shares == 0 {
			continue
		}
		q, _, err := market.Nearest(s, day)
		if err != nil {
			return Money{}, fmt.Errorf("valuing %d %s shares: %w", shares, s, err)
		}
		value = value.Add(q.Close.MulShares(shares))
	}
	return value, nil
}

// ValueOn prices the holdings recorded on a past simulation date against that
// date's nearest quotes. It is the net-asset-value view of a finished run.
func (b *Book) ValueOn(day date.Date, market *Market) (Money, error) {
	value, ok := b.cash.Get(day)
	if !ok {
		return Money{}, fmt.Errorf("no ledger entry on %s", day)
	}
	for _, s := range b.symbols {
		shares, _ := b.holdings[s].Get(day)
		if shares == 0 {
			continue
		}
		q, _, err := market.Nearest(s, day)
		if err != nil {
			return Money{}, fmt.Errorf("valuing %d %s shares: %w", shares, s, err)
		}
		value = value.Add(q.Close.MulShares(shares))
	}
	return value, nil
}

// Series returns the net-asset-value history of the whole run.
func (b *Book) Series(market *Market) (*date.History[Money], error) {
	nav := new(date.History[Money])
	for on := range b.cash.Values() {
		v, err := b.ValueOn(on, market)
		if err != nil {
			return nil, err
		}
		nav.Append(on, v)
	}
	return nav, nil
}
