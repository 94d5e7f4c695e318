package rebalance

import (
	"testing"

	"github.com/etnz/rebalance/date"
)

func TestParseConfig(t *testing.T) {
	c, err := ParseConfig([]byte(`
weights:
  AAPL: 2
  VUAA.L: 1
strategy: Momentum
budget: 5000
start: 2025-01-15
`))
	if err != nil {
		t.Fatalf("ParseConfig() err = %v", err)
	}
	if c.Budget != 5000 {
		t.Errorf("Budget = %v, want 5000", c.Budget)
	}
	if c.Reserve != "SGOV" || c.Currency != "USD" {
		t.Errorf("defaults not applied: reserve %q currency %q", c.Reserve, c.Currency)
	}
	if c.Margin == nil || *c.Margin != -100 {
		t.Errorf("Margin = %v, want the default -100", c.Margin)
	}
	if c.Start != date.MustParse("2025-01-15") {
		t.Errorf("Start = %v, want 2025-01-15", c.Start)
	}
}

func TestParseConfig_Defaults(t *testing.T) {
	c, err := ParseConfig([]byte("weights: {AAPL: 1}\n"))
	if err != nil {
		t.Fatalf("ParseConfig() err = %v", err)
	}
	if c.Strategy != "Buy and Hold" {
		t.Errorf("Strategy = %q, want the default", c.Strategy)
	}
	if c.Budget != DefaultBudget {
		t.Errorf("Budget = %v, want %v", c.Budget, DefaultBudget)
	}
}

func TestParseConfig_ZeroMargin(t *testing.T) {
	// An explicit 0 is a real margin floor, not "unset".
	c, err := ParseConfig([]byte("weights: {AAPL: 1}\nmargin: 0\n"))
	if err != nil {
		t.Fatalf("ParseConfig() err = %v", err)
	}
	if c.Margin == nil || *c.Margin != 0 {
		t.Errorf("Margin = %v, want an explicit 0", c.Margin)
	}
}

func TestParseConfig_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		yaml string
	}{
		{name: "not yaml", yaml: "weights: ["},
		{name: "missing weights", yaml: "budget: 100\n"},
		{name: "negative weight", yaml: "weights: {AAPL: -1}\n"},
		{name: "negative budget", yaml: "weights: {AAPL: 1}\nbudget: -5\n"},
		{name: "unknown strategy", yaml: "weights: {AAPL: 1}\nstrategy: martingale\n"},
		{name: "bad currency", yaml: "weights: {AAPL: 1}\ncurrency: DOLLARS\n"},
		{name: "weighted reserve", yaml: "weights: {SGOV: 1}\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseConfig([]byte(tc.yaml)); err == nil {
				t.Error("ParseConfig() must fail")
			}
		})
	}
}

func TestConfig_Simulation(t *testing.T) {
	c, err := ParseConfig([]byte("weights: {AAPL: 1}\nbudget: 1000\n"))
	if err != nil {
		t.Fatalf("ParseConfig() err = %v", err)
	}
	m := NewMarket()
	m.Add("AAPL", date.MustParse("2025-01-31"), quote(100, 100, 0))
	sim, err := c.Simulation(m)
	if err != nil {
		t.Fatalf("Simulation() err = %v", err)
	}
	book, err := sim.Run()
	if err != nil {
		t.Fatalf("Run() err = %v", err)
	}
	if got, _ := book.Holding("AAPL", date.MustParse("2025-01-31")); got != 10 {
		t.Errorf("holdings = %d, want 10", got)
	}
}
