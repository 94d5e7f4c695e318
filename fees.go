package rebalance

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Interactive-broker style fixed-pricing fees. Where the published schedule
// gives a range, the worst case applies.

// gstSurcharge scales broker commissions by GST (1.00 + 9%).
var gstSurcharge = decimal.NewFromFloat(1.09)

var (
	usBrokerPerShare   = decimal.NewFromFloat(0.005)
	usBrokerMin        = decimal.NewFromFloat(1.00)
	usBrokerCapRate    = decimal.NewFromFloat(0.01) // cap as fraction of notional
	usRegPerNotional   = decimal.NewFromFloat(0.0000278)
	usRegPerShare      = decimal.NewFromFloat(0.0000469)
	usRegSellPerShare  = decimal.NewFromFloat(0.000166)
	lseBrokerPerShare  = decimal.NewFromFloat(0.0005)
	lseBrokerMin       = decimal.NewFromFloat(4.00)
	usWithholdingRate  = decimal.NewFromFloat(0.30)
	lseWithholdingRate = decimal.NewFromFloat(0.15)
)

// lseListed classifies the trading venue of a ticker by its suffix
// convention: "VUAA.L" is LSE-listed, anything else is treated as US-listed.
// The same classification routes both the fee schedule and the dividend
// withholding rate.
func lseListed(ticker string) bool { return strings.HasSuffix(ticker, ".L") }

// TransactionFee returns the fee for trading the given number of shares at the
// given unit price, routed to the venue schedule of the ticker. The shares
// count is the quantity actually traded, never a target position.
func TransactionFee(ticker string, shares int64, price Money, sell bool) Money {
	if lseListed(ticker) {
		return lseFixed(shares, price)
	}
	return usFixed(shares, price, sell)
}

// usFixed is the US fixed-pricing schedule: a bounded-proportional broker
// commission scaled by GST, plus the regulatory add-ons.
func usFixed(shares int64, price Money, sell bool) Money {
	n := decimal.NewFromInt(shares)
	notional := price.Decimal().Mul(n)
	broker := decimal.Min(decimal.Max(usBrokerPerShare.Mul(n), usBrokerMin), usBrokerCapRate.Mul(notional))
	fee := broker.Mul(gstSurcharge).Add(usReg(n, notional, sell))
	return M(fee, price.Currency())
}

// usReg covers the SEC and FINRA per-notional and per-share fees; the extra
// per-share fee applies to sells only.
func usReg(shares, notional decimal.Decimal, sell bool) decimal.Decimal {
	reg := usRegPerNotional.Mul(notional).Add(usRegPerShare.Mul(shares))
	if sell {
		reg = reg.Add(usRegSellPerShare.Mul(shares))
	}
	return reg
}

// lseFixed is the LSE fixed-pricing schedule: commission only, no regulatory
// add-on.
func lseFixed(shares int64, price Money) Money {
	n := decimal.NewFromInt(shares)
	fee := decimal.Max(lseBrokerPerShare.Mul(n), lseBrokerMin).Mul(gstSurcharge)
	return M(fee, price.Currency())
}

// Dividend returns the cash credited for a per-share dividend on a holding,
// net of withholding tax: 15% for LSE-listed tickers, 30% for US-listed ones.
func Dividend(ticker string, shares int64, perShare Money) Money {
	rate := usWithholdingRate
	if lseListed(ticker) {
		rate = lseWithholdingRate
	}
	net := perShare.Decimal().Mul(decimal.NewFromInt(shares)).Mul(decimal.NewFromInt(1).Sub(rate))
	return M(net, perShare.Currency())
}
