package orders

import "github.com/shopspring/decimal"

// The service charge is 5.5% of the purchase amount; purchases under $50
// carry an additional flat $2.
var (
	feeRate      = decimal.NewFromFloat(0.055)
	feeSurcharge = decimal.NewFromInt(2)
	feeThreshold = decimal.NewFromInt(50)
	minorUnits   = decimal.NewFromInt(100)
)

// ServiceFee computes the platform commission for a purchase amount.
// The result keeps mill precision (e.g. 45 -> 4.475).
func ServiceFee(price float64) float64 {
	p := decimal.NewFromFloat(price)
	fee := p.Mul(feeRate)
	if p.LessThan(feeThreshold) {
		fee = fee.Add(feeSurcharge)
	}
	return fee.Round(3).InexactFloat64()
}

// AmountMinorUnits is price plus service fee in minor currency units,
// floored the way the payment intent is charged.
func AmountMinorUnits(price float64) int64 {
	total := decimal.NewFromFloat(price).Add(decimal.NewFromFloat(ServiceFee(price)))
	return total.Mul(minorUnits).Floor().IntPart()
}
