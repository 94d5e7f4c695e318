package rebalance

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/rebalance/date"
	"github.com/rs/zerolog/log"
)

// Loaders for locally cached provider files. A ticker whose file is missing or
// unreadable is skipped with a warning, so one stale download does not block a
// whole backtest; loading fails only when nothing loads at all.

// loadJSON reads and decodes one provider file.
func loadJSON(path string) (any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var jobj any
	if err := json.Unmarshal(b, &jobj); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return jobj, nil
}

// asFloat reads a jsonpath result that providers serve either as a number or
// as a quoted number.
func asFloat(jval any) (float64, bool) {
	switch v := jval.(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// LoadAlphaVantage loads per-ticker AlphaVantage "Monthly Adjusted Time
// Series" JSON files named <ticker>.json from dir into a Market.
func LoadAlphaVantage(dir string, tickers ...string) (*Market, error) {
	m := NewMarket()
	for _, t := range tickers {
		jobj, err := loadJSON(filepath.Join(dir, t+".json"))
		if err != nil {
			log.Warn().Str("ticker", t).Err(err).Msg("skipping ticker")
			continue
		}
		jval, err := jsonpath.Get(`$["Monthly Adjusted Time Series"]`, jobj)
		if err != nil {
			log.Warn().Str("ticker", t).Err(err).Msg("no monthly series, skipping ticker")
			continue
		}
		series, ok := jval.(map[string]any)
		if !ok {
			log.Warn().Str("ticker", t).Msg("malformed monthly series, skipping ticker")
			continue
		}
		for day, jentry := range series {
			on, err := date.Parse(day)
			if err != nil {
				return nil, fmt.Errorf("ticker %q: %w", t, err)
			}
			entry, ok := jentry.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("ticker %q on %s: malformed entry", t, day)
			}
			q, err := alphaVantageQuote(entry)
			if err != nil {
				return nil, fmt.Errorf("ticker %q on %s: %w", t, day, err)
			}
			m.Add(t, on, q)
		}
	}
	if len(m.Tickers()) == 0 {
		return nil, errors.New("no ticker data loaded")
	}
	return m, nil
}

// alphaVantageQuote maps the AlphaVantage numbered fields onto a Quote.
func alphaVantageQuote(entry map[string]any) (Quote, error) {
	var q Quote
	for _, f := range []struct {
		key  string
		dest *Money
	}{
		{"4. close", &q.Close},
		{"5. adjusted close", &q.AdjClose},
		{"7. dividend amount", &q.Dividend},
	} {
		v, ok := asFloat(entry[f.key])
		if !ok {
			return Quote{}, fmt.Errorf("missing field %q", f.key)
		}
		*f.dest = M(v, DefaultCurrency)
	}
	return q, nil
}

// LoadFMP loads per-ticker Financial Modeling Prep historical JSON files named
// <ticker>.json from dir into a Market. FMP history carries no dividend
// column; dividends load as zero.
func LoadFMP(dir string, tickers ...string) (*Market, error) {
	m := NewMarket()
	for _, t := range tickers {
		jobj, err := loadJSON(filepath.Join(dir, t+".json"))
		if err != nil {
			log.Warn().Str("ticker", t).Err(err).Msg("skipping ticker")
			continue
		}
		jval, err := jsonpath.Get("$.historical", jobj)
		if err != nil {
			log.Warn().Str("ticker", t).Err(err).Msg("no history, skipping ticker")
			continue
		}
		entries, ok := jval.([]any)
		if !ok {
			log.Warn().Str("ticker", t).Msg("malformed history, skipping ticker")
			continue
		}
		for _, jentry := range entries {
			entry, ok := jentry.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("ticker %q: malformed entry", t)
			}
			day, ok := entry["date"].(string)
			if !ok {
				return nil, fmt.Errorf("ticker %q: entry without date", t)
			}
			on, err := date.Parse(day)
			if err != nil {
				return nil, fmt.Errorf("ticker %q: %w", t, err)
			}
			closePrice, ok := asFloat(entry["close"])
			if !ok {
				return nil, fmt.Errorf("ticker %q on %s: missing close", t, day)
			}
			adj, ok := asFloat(entry["adjClose"])
			if !ok {
				adj = closePrice
			}
			m.Add(t, on, Quote{
				Close:    M(closePrice, DefaultCurrency),
				AdjClose: M(adj, DefaultCurrency),
				Dividend: M(0, DefaultCurrency),
			})
		}
	}
	if len(m.Tickers()) == 0 {
		return nil, errors.New("no ticker data loaded")
	}
	return m, nil
}

// LoadCSV loads a benchmark index series from a CSV file: dates in column
// dateIndex parsed with the given [time.Format] layout, values in column
// valueIndex. Rows whose date column does not parse (headers, footers) are
// skipped.
func LoadCSV(path, layout string, dateIndex, valueIndex int) (*date.History[float64], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv %s: %w", path, err)
	}

	h := new(date.History[float64])
	for _, rec := range records {
		if dateIndex >= len(rec) || valueIndex >= len(rec) {
			continue
		}
		on, err := date.ParseLayout(layout, rec[dateIndex])
		if err != nil {
			continue // not a data row
		}
		v, err := strconv.ParseFloat(rec[valueIndex], 64)
		if err != nil {
			return nil, fmt.Errorf("csv %s on %s: %w", path, on, err)
		}
		h.Append(on, v)
	}
	return h, nil
}
