package rebalance

import (
	"errors"
	"fmt"
	"slices"

	"github.com/etnz/rebalance/date"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Defaults for the simulation configuration surface.
const (
	DefaultBudget   = 10000  // initial budget in currency units
	DefaultReserve  = "SGOV" // short-duration treasury ETF parking spare cash
	DefaultMargin   = -100   // cash floor before the reserve is liquidated
	DefaultCurrency = "USD"
)

// ErrZeroPrice reports a zero close price where the engine needs to divide by
// it. A zero quote is corrupt input, not a market state, and must never
// silently propagate through a floor or ceil division.
var ErrZeroPrice = errors.New("zero close price")

// Weights maps a ticker to its non-negative target allocation weight. The
// allocation fraction of a ticker is its weight over the total; the absolute
// scale of the weights is irrelevant.
type Weights map[string]float64

// Options carries the optional knobs of a simulation. The zero value selects
// every default.
type Options struct {
	Budget   float64   // initial budget, DefaultBudget when 0
	Reserve  string    // reserve asset ticker, DefaultReserve when ""
	Margin   *float64  // cash margin floor, DefaultMargin when nil; 0 floors cash at zero
	Currency string    // reporting currency, DefaultCurrency when ""
	Start    date.Date // explicit start, zero derives it from the market
}

// Simulation replays a periodic rebalancing policy over the quote history of a
// market and records the resulting holdings and cash in a Book.
//
// A Simulation is reusable: SetWeights followed by Run supports interactive
// what-if exploration. Runs are strictly sequential internally; concurrent
// runs need separate Simulation instances since they would otherwise share
// ledger and strategy state.
type Simulation struct {
	market   *Market
	strategy func() Strategy

	weights     Weights
	tickers     []string // active tickers, in deterministic order
	totalWeight float64

	budget  Money
	reserve string
	margin  Money
	start   date.Date
}

// NewSimulation prepares a simulation of the given target weights over the
// market. The strategy factory is invoked once per run so that trailing
// strategy state never leaks across runs.
func NewSimulation(market *Market, weights Weights, strategy func() Strategy, opts Options) (*Simulation, error) {
	if market == nil {
		return nil, errors.New("nil market")
	}
	if strategy == nil {
		return nil, errors.New("nil strategy factory")
	}
	if opts.Budget == 0 {
		opts.Budget = DefaultBudget
	}
	if opts.Reserve == "" {
		opts.Reserve = DefaultReserve
	}
	margin := float64(DefaultMargin)
	if opts.Margin != nil {
		margin = *opts.Margin
	}
	if opts.Currency == "" {
		opts.Currency = DefaultCurrency
	}
	if opts.Budget < 0 {
		return nil, fmt.Errorf("negative budget %v", opts.Budget)
	}
	s := &Simulation{
		market:   market,
		strategy: strategy,
		budget:   M(opts.Budget, opts.Currency),
		reserve:  opts.Reserve,
		margin:   M(margin, opts.Currency),
		start:    opts.Start,
	}
	if err := s.SetWeights(weights); err != nil {
		return nil, err
	}
	return s, nil
}

// SetWeights replaces the target allocation for subsequent runs. Tickers are
// tracked in lexical order so that two runs over the same weights always
// evaluate them in the same order. The reserve asset cannot carry a weight:
// it would be traded both by the per-ticker loop and by the sweep, and its
// ledger column would be double-counted in every valuation.
func (s *Simulation) SetWeights(weights Weights) error {
	if _, ok := weights[s.reserve]; ok {
		return fmt.Errorf("reserve asset %q cannot carry a weight", s.reserve)
	}
	tickers := make([]string, 0, len(weights))
	total := 0.0
	for t, w := range weights {
		if w < 0 {
			return fmt.Errorf("negative weight %v for %q", w, t)
		}
		tickers = append(tickers, t)
		total += w
	}
	slices.Sort(tickers)
	s.weights = weights
	s.tickers = tickers
	s.totalWeight = total
	return nil
}

// calendar returns the simulation dates: the union of the active tickers'
// quote dates, from the configured (or derived) start to the last available
// date.
func (s *Simulation) calendar() ([]date.Date, error) {
	start := s.start
	if start.IsZero() {
		// Default start: the first day by which every ticker has data.
		var err error
		start, err = s.market.Start(s.tickers...)
		if err != nil {
			return nil, err
		}
	}
	end, err := s.market.End(s.tickers...)
	if err != nil {
		return nil, err
	}
	return s.market.Dates(date.Range{From: start, To: end}, s.tickers...), nil
}

// Run executes the simulation and returns the resulting ledger.
func (s *Simulation) Run() (*Book, error) {
	if len(s.tickers) == 0 {
		return nil, errors.New("no tickers to simulate")
	}
	days, err := s.calendar()
	if err != nil {
		return nil, err
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("no quotes between %s and the end of the data", s.start)
	}
	book := NewBook(s.budget.Currency(), append(slices.Clone(s.tickers), s.reserve)...)

	if s.totalWeight == 0 {
		// Degenerate allocation: nothing is ever bought. Record zero holdings
		// and cash over the whole range without touching strategy or fees.
		for _, day := range days {
			for _, sym := range book.Symbols() {
				book.appendHolding(sym, day, 0)
			}
			book.appendCash(day, M(0, s.budget.Currency()))
		}
		return book, nil
	}

	log.Debug().
		Strs("tickers", s.tickers).
		Str("reserve", s.reserve).
		Stringer("budget", s.budget).
		Int("days", len(days)).
		Msg("rebalance run starting")

	strategy := s.strategy()
	for _, day := range days {
		expenditure, err := s.step(book, strategy, day)
		if err != nil {
			return nil, fmt.Errorf("on %s: %w", day, err)
		}
		if err := s.sweep(book, day, expenditure); err != nil {
			return nil, fmt.Errorf("on %s: %w", day, err)
		}
	}

	if nav, err := book.ValueAt(days[len(days)-1], s.market); err == nil {
		log.Debug().Stringer("value", nav).Msg("rebalance run finished")
	}
	return book, nil
}

// targetShares returns the whole number of shares of ticker the allocation
// calls for, given the portfolio size: floor(weight/total × size / close).
// Flooring deliberately under-allocates rather than overspending.
func (s *Simulation) targetShares(ticker string, close Money, size Money) (int64, error) {
	if close.IsZero() {
		return 0, fmt.Errorf("%w for %q", ErrZeroPrice, ticker)
	}
	if s.totalWeight == 0 {
		// Run short-circuits on a zero total weight before reaching this
		// point; hitting it anyway is a configuration error.
		return 0, fmt.Errorf("zero total weight sizing %q", ticker)
	}
	frac := decimal.NewFromFloat(s.weights[ticker] / s.totalWeight)
	target := size.Scale(frac).Shares(close)
	if target < 0 { // a portfolio under water targets an empty position
		target = 0
	}
	return target, nil
}

// liquid reports whether any cash or reserve liquidity is available to fund a
// buy: before the first sweep the whole budget is, afterwards a positive cash
// balance or a non-empty reserve holding.
func (s *Simulation) liquid(book *Book) bool {
	balance, recorded := book.cashBalance()
	if !recorded {
		return true
	}
	return balance.IsPositive() || book.position(s.reserve) > 0
}

// step sizes the portfolio and trades every active ticker for one date,
// appending the resulting holdings. It returns the date's aggregate
// expenditure: dividend income plus sale proceeds, minus purchase costs and
// fees, to be consumed exactly once by the reserve sweep.
func (s *Simulation) step(book *Book, strategy Strategy, day date.Date) (Money, error) {
	expenditure := M(0, s.budget.Currency())

	size := s.budget
	if book.Len() > 0 {
		var err error
		size, err = book.ValueAt(day, s.market)
		if err != nil {
			return Money{}, err
		}
	}

	for _, t := range s.tickers {
		prev := book.position(t)
		q, ok := s.market.Get(t, day)
		if !ok {
			// No quote today: carry the position forward, no trade, no fee.
			book.appendHolding(t, day, prev)
			continue
		}

		expenditure = expenditure.Add(Dividend(t, prev, q.Dividend))
		buy, sell := strategy.Decide(t, q)
		target, err := s.targetShares(t, q.Close, size)
		if err != nil {
			return Money{}, err
		}

		switch {
		case target > prev && buy && s.liquid(book):
			n := target - prev
			expenditure = expenditure.
				Sub(q.Close.MulShares(n)).
				Sub(TransactionFee(t, n, q.Close, false))
			book.appendHolding(t, day, target)
		case prev > 0 && sell:
			// Sells are always full liquidations.
			expenditure = expenditure.
				Add(q.Close.MulShares(prev)).
				Sub(TransactionFee(t, prev, q.Close, true))
			book.appendHolding(t, day, 0)
		default:
			book.appendHolding(t, day, prev)
		}
	}
	return expenditure, nil
}

// sweep settles one date: it folds the date's expenditure into the cash
// balance, credits the reserve dividend, then parks surplus cash in the
// reserve asset or liquidates reserve shares on a margin breach. The final
// balance becomes the date's cash entry.
func (s *Simulation) sweep(book *Book, day date.Date, expenditure Money) error {
	balance := expenditure
	if prev, recorded := book.cashBalance(); recorded {
		balance = balance.Add(prev)
	} else {
		balance = balance.Add(s.budget)
	}

	held := book.position(s.reserve)
	q, ok := s.market.Get(s.reserve, day)
	if !ok {
		// No reserve quote today: no trade, the balance stays in cash.
		book.appendHolding(s.reserve, day, held)
		book.appendCash(day, balance)
		return nil
	}

	balance = balance.Add(Dividend(s.reserve, held, q.Dividend))
	price := q.Close
	if price.IsZero() {
		return fmt.Errorf("%w for reserve %q", ErrZeroPrice, s.reserve)
	}

	switch {
	case balance.LessThan(s.margin):
		// Margin breach: free just enough reserve shares to cover the hole.
		// Under a positive floor the balance may still be positive here, in
		// which case the ceil division goes negative and there is nothing to
		// sell; clamping keeps the holding from growing without a purchase.
		toSell := max(0, min(held, balance.Neg().SharesCeil(price)))
		if toSell > 0 {
			balance = balance.
				Add(price.MulShares(toSell)).
				Sub(TransactionFee(s.reserve, toSell, price, true))
		}
		book.appendHolding(s.reserve, day, held-toSell)
	case balance.IsPositive():
		toBuy := balance.Shares(price)
		if toBuy > 0 {
			balance = balance.
				Sub(price.MulShares(toBuy)).
				Sub(TransactionFee(s.reserve, toBuy, price, false))
		}
		book.appendHolding(s.reserve, day, held+toBuy)
	default:
		book.appendHolding(s.reserve, day, held)
	}

	book.appendCash(day, balance)
	return nil
}
