package rebalance

import (
	"errors"
	"fmt"

	"github.com/etnz/rebalance/date"
)

// ErrUnknownTicker is returned when a ticker has no series in the market.
var ErrUnknownTicker = errors.New("unknown ticker")

// Quote holds the market data for one ticker on one day.
type Quote struct {
	Close    Money // closing price
	AdjClose Money // closing price adjusted for splits and dividends
	Dividend Money // dividend amount per share paid that day
}

// Market holds price and dividend history for a set of tickers.
//
// A Market is loaded once before a simulation and never mutated during a run.
type Market struct {
	quotes map[string]*date.History[Quote]
}

// NewMarket returns a new empty market data collection.
func NewMarket() *Market {
	return &Market{quotes: make(map[string]*date.History[Quote])}
}

// Has reports whether the market holds a series for ticker.
func (m *Market) Has(ticker string) bool {
	_, ok := m.quotes[ticker]
	return ok
}

// Tickers returns the tickers known to the market, in no particular order.
func (m *Market) Tickers() []string {
	tickers := make([]string, 0, len(m.quotes))
	for t := range m.quotes {
		tickers = append(tickers, t)
	}
	return tickers
}

// Add records a quote for (ticker, day). An existing quote at that exact day
// is overwritten.
func (m *Market) Add(ticker string, day date.Date, q Quote) {
	h, ok := m.quotes[ticker]
	if !ok {
		h = new(date.History[Quote])
		m.quotes[ticker] = h
	}
	h.Append(day, q)
}

// Get returns the quote recorded for (ticker, day) and true, or a zero quote
// and false when the ticker has no record at that exact day. A missing day is
// an expected outcome, not an error; only an unknown ticker is reported as
// such by Nearest, Start and End.
func (m *Market) Get(ticker string, day date.Date) (Quote, bool) {
	h, ok := m.quotes[ticker]
	if !ok {
		return Quote{}, false
	}
	return h.Get(day)
}

// Nearest returns the quote minimizing the absolute day distance to 'day',
// along with its actual date. When two quotes are equidistant, the earlier
// date wins. It fails only when the ticker itself is unknown.
func (m *Market) Nearest(ticker string, day date.Date) (Quote, date.Date, error) {
	h, ok := m.quotes[ticker]
	if !ok {
		return Quote{}, date.Date{}, fmt.Errorf("market has no series for %q: %w", ticker, ErrUnknownTicker)
	}
	on, q, ok := h.Nearest(day)
	if !ok {
		return Quote{}, date.Date{}, fmt.Errorf("market has an empty series for %q: %w", ticker, ErrUnknownTicker)
	}
	return q, on, nil
}

// Start returns the latest of the per-ticker earliest dates, i.e. the first
// day by which every given ticker has data. It is the default start of a
// simulation.
func (m *Market) Start(tickers ...string) (date.Date, error) {
	var start date.Date
	for _, t := range tickers {
		h, ok := m.quotes[t]
		if !ok || h.Len() == 0 {
			return date.Date{}, fmt.Errorf("market has no series for %q: %w", t, ErrUnknownTicker)
		}
		first, _ := h.First()
		if start.IsZero() || first.After(start) {
			start = first
		}
	}
	return start, nil
}

// End returns the latest date for which any of the given tickers has data.
func (m *Market) End(tickers ...string) (date.Date, error) {
	var end date.Date
	for _, t := range tickers {
		h, ok := m.quotes[t]
		if !ok || h.Len() == 0 {
			return date.Date{}, fmt.Errorf("market has no series for %q: %w", t, ErrUnknownTicker)
		}
		last, _ := h.Latest()
		if last.After(end) {
			end = last
		}
	}
	return end, nil
}

// Dates returns the ascending, de-duplicated union of quote dates of the given
// tickers, restricted to the range r. It is the calendar a simulation steps
// through. Unknown tickers contribute nothing.
func (m *Market) Dates(r date.Range, tickers ...string) []date.Date {
	histories := make([]*date.History[Quote], 0, len(tickers))
	for _, t := range tickers {
		if h, ok := m.quotes[t]; ok {
			histories = append(histories, h)
		}
	}
	var days []date.Date
	for on := range date.Iterate(histories...) {
		if r.Contains(on) {
			days = append(days, on)
		}
	}
	return days
}
