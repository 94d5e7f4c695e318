package rebalance

import (
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/etnz/rebalance/date"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Config is the declarative description of one backtest run, typically read
// from a YAML file. Zero fields take the documented defaults.
type Config struct {
	// Weights maps tickers to target allocation weights. Weights summing to
	// zero are legal and yield an all-zero ledger.
	Weights Weights `yaml:"weights" validate:"required,dive,gte=0"`
	// Strategy names a registered strategy, see Strategies.
	Strategy string `yaml:"strategy" default:"Buy and Hold"`
	// Budget is the initial budget in currency units.
	Budget float64 `yaml:"budget" default:"10000" validate:"gt=0"`
	// Reserve is the asset parking spare cash between rebalances. It must not
	// appear in Weights.
	Reserve string `yaml:"reserve" default:"SGOV"`
	// Margin is the cash floor below which reserve shares are liquidated. An
	// explicit 0 floors cash at zero.
	Margin *float64 `yaml:"margin" default:"-100"`
	// Currency is the reporting currency.
	Currency string `yaml:"currency" default:"USD" validate:"len=3"`
	// Start optionally pins the first simulation date. When absent the run
	// starts on the first date every ticker has data for.
	Start date.Date `yaml:"start"`
}

// LoadConfig reads and validates a run configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return ParseConfig(b)
}

// ParseConfig decodes a YAML run configuration, fills in defaults and
// validates it.
func ParseConfig(b []byte) (*Config, error) {
	c := new(Config)
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := defaults.Set(c); err != nil {
		return nil, fmt.Errorf("applying config defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the configuration constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, ok := Strategies[c.Strategy]; !ok {
		return fmt.Errorf("invalid config: unknown strategy %q", c.Strategy)
	}
	if _, ok := c.Weights[c.Reserve]; ok {
		return fmt.Errorf("invalid config: reserve asset %q cannot carry a weight", c.Reserve)
	}
	return nil
}

// Simulation builds a ready-to-run simulation of this configuration over the
// given market.
func (c *Config) Simulation(market *Market) (*Simulation, error) {
	build := Strategies[c.Strategy]
	if build == nil {
		return nil, fmt.Errorf("unknown strategy %q", c.Strategy)
	}
	return NewSimulation(market, c.Weights, build, Options{
		Budget:   c.Budget,
		Reserve:  c.Reserve,
		Margin:   c.Margin,
		Currency: c.Currency,
		Start:    c.Start,
	})
}
