// Package divitax reconciles brokerage-reported dividend and withholding-tax
// transactions against the daily BGN exchange-rate series and computes the
// exact figures for the annual Bulgarian dividend-tax filing.
//
// The pipeline is a single-shot batch: broker exports are extracted into
// dividend events and tax adjustments (package ibkr), each dividend is matched
// to the adjustments that belong to it, matched amounts are converted to BGN
// with the rate archive (package rates) and the treaty tax credit is computed.
// A Report accumulator collects every anomaly seen along the way and decides
// whether the produced output is fit for filing.
//
// All monetary arithmetic is done on decimals; nothing in this package touches
// floating point.
package divitax
