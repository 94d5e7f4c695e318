package rebalance

import "fmt"

// A Strategy decides, ticker by ticker, whether the engine may open or must
// close a position. A Strategy instance lives for exactly one run: variants
// with trailing state own it per ticker and must never be shared across
// concurrent simulations.
type Strategy interface {
	// Decide returns whether the ticker is eligible for buying and whether it
	// should be sold, given this day's quote.
	Decide(ticker string, q Quote) (buy, sell bool)
}

// BuyAndHold buys whenever the allocation calls for it and never sells.
type BuyAndHold struct{}

func (BuyAndHold) Decide(string, Quote) (buy, sell bool) { return true, false }

// downThreshold is the relative adjusted-close move below which Momentum
// switches from holding to selling.
const downThreshold = -0.05

// Momentum sells after a down period and buys back after the next up period.
//
// It keeps, per ticker, the two most recent adjusted closes and compares their
// relative change against downThreshold.
type Momentum struct {
	window map[string][]float64
}

// NewMomentum returns a Momentum strategy with empty windows.
func NewMomentum() *Momentum {
	return &Momentum{window: make(map[string][]float64)}
}

func (s *Momentum) Decide(ticker string, q Quote) (buy, sell bool) {
	w := append(s.window[ticker], q.AdjClose.InexactFloat64())
	if len(w) > 2 {
		w = w[len(w)-2:] // only look at the two most recent values
	}
	s.window[ticker] = w

	if len(w) < 2 { // not enough data
		return true, true
	}
	grad := (w[1] - w[0]) / w[0]
	if grad >= downThreshold { // up/sideways/at most down 5%; buy or maintain
		return true, false
	}
	return false, true // down; sell or don't buy
}

// Strategies names the available strategy constructors. Each call builds a
// fresh instance, so runs never share trailing state.
var Strategies = map[string]func() Strategy{
	"Momentum":     func() Strategy { return NewMomentum() },
	"Buy and Hold": func() Strategy { return BuyAndHold{} },
}

// NewStrategy builds a fresh strategy instance by name.
func NewStrategy(name string) (Strategy, error) {
	build, ok := Strategies[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
	return build(), nil
}
