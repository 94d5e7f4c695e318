// Package rebalance simulates rules-based periodic rebalancing of a
// multi-asset portfolio over historical price and dividend series, producing
// a full holdings-and-cash ledger for backtest analysis.
//
// The core pieces are:
//   - Market: a read-only, date-indexed price and dividend store with exact
//     and nearest-date lookup.
//   - Fee model: venue-classified transaction fees and dividend withholding.
//   - Strategy: per-ticker buy/sell decision units, including a trailing
//     momentum variant.
//   - Book: the append-only per-symbol share-count and cash ledger a run
//     produces.
//   - Simulation: the date-stepped engine that sizes the portfolio, trades
//     each ticker against its strategy decision, and sweeps surplus or
//     shortfall cash into a reserve asset.
//
// Market data is loaded from locally cached provider files (AlphaVantage or
// FMP JSON, benchmark CSVs); the engine itself performs no I/O and a run is a
// bounded, synchronous computation. Concurrent runs need independent
// Simulation instances.
package rebalance
